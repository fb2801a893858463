package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Config holds retry strategy configuration
type Config struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// DefaultConfig returns the defaults used for remote state reads and writes
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:       3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying, e.g. a state document that
// cannot be encoded or decoded. Do returns it after the first attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retryable is a function that can be retried
type Retryable[T any] func(ctx context.Context) (T, error)

// Do runs fn until it succeeds, returns a permanent error, the context ends
// or MaxAttempts is reached, backing off exponentially between attempts.
func Do[T any](ctx context.Context, cfg *Config, log *slog.Logger, op string, fn Retryable[T]) (T, error) {
	var zero T
	if cfg == nil {
		cfg = DefaultConfig()
	}

	backoff := cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if IsPermanent(err) {
			return zero, err
		}
		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}

		log.Warn("remote call failed, backing off",
			slog.String("operation", op),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		backoff = nextBackoff(backoff, cfg)
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", op, cfg.MaxAttempts, lastErr)
}

func nextBackoff(current time.Duration, cfg *Config) time.Duration {
	next := time.Duration(float64(current) * cfg.BackoffMultiplier)
	if next > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return next
}
