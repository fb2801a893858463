package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/bluecarbon/internal/reliability/retry"
)

const defaultBreakerTimeout = 30 * time.Second

// FallbackStore writes every save to the local store and then to the remote
// one. A failed remote write is reported as *domain.DegradedError and left
// pending for Sync. Load prefers whichever copy has the newest UpdatedAt.
type FallbackStore struct {
	remote     domain.StateStore
	remoteName string
	local      domain.StateStore
	breaker    *circuitbreaker.CircuitBreaker
	retry      *retry.Config
	logger     *slog.Logger

	mu      sync.Mutex
	pending bool
}

// NewFallbackStore combines a remote store (may be nil) with a local one
func NewFallbackStore(remote domain.StateStore, remoteName string, local domain.StateStore, logger *slog.Logger) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		remote:     remote,
		remoteName: remoteName,
		local:      local,
		breaker:    circuitbreaker.NewCircuitBreaker(3, 1, defaultBreakerTimeout),
		retry:      retry.DefaultConfig(),
		logger:     logger,
	}
}

// WithRetry overrides the remote retry policy
func (f *FallbackStore) WithRetry(cfg *retry.Config) *FallbackStore {
	f.retry = cfg
	return f
}

// Breaker exposes the remote circuit breaker for health reporting
func (f *FallbackStore) Breaker() *circuitbreaker.CircuitBreaker {
	return f.breaker
}

// Load reads both copies. When the remote read fails the local copy is
// returned together with a *domain.DegradedError.
func (f *FallbackStore) Load(ctx context.Context) (*domain.AppState, error) {
	localState, localErr := f.local.Load(ctx)
	if localErr != nil {
		f.logger.Warn("local state unreadable", slog.String("error", localErr.Error()))
	}
	if f.remote == nil {
		return localState, localErr
	}

	remoteState, remoteErr := f.remoteLoad(ctx)
	if remoteErr != nil {
		if localErr != nil {
			return nil, errors.Join(remoteErr, localErr)
		}
		f.setPending(localState != nil)
		return localState, &domain.DegradedError{Service: f.remoteName, Durable: true, Err: remoteErr}
	}

	switch {
	case remoteState == nil:
		f.setPending(localState != nil)
		return localState, nil
	case localState == nil:
		return remoteState, nil
	case localState.UpdatedAt.After(remoteState.UpdatedAt):
		f.logger.Info("local state is newer than remote, scheduling sync",
			slog.Time("local_updated_at", localState.UpdatedAt),
			slog.Time("remote_updated_at", remoteState.UpdatedAt),
		)
		f.setPending(true)
		return localState, nil
	default:
		return remoteState, nil
	}
}

// Save persists locally, then remotely
func (f *FallbackStore) Save(ctx context.Context, state *domain.AppState) error {
	localErr := f.local.Save(ctx, state)
	if localErr != nil {
		f.logger.Error("local save failed", slog.String("error", localErr.Error()))
	}
	if f.remote == nil {
		if localErr != nil {
			return &domain.DegradedError{Service: "local", Durable: false, Err: localErr}
		}
		return nil
	}

	remoteErr := f.remoteSave(ctx, state)
	switch {
	case remoteErr == nil && localErr == nil:
		f.setPending(false)
		return nil
	case remoteErr == nil:
		f.setPending(false)
		return &domain.DegradedError{Service: "local", Durable: true, Err: localErr}
	case localErr == nil:
		f.setPending(true)
		return &domain.DegradedError{Service: f.remoteName, Durable: true, Err: remoteErr}
	default:
		f.setPending(true)
		return &domain.DegradedError{Service: f.remoteName, Durable: false, Err: errors.Join(remoteErr, localErr)}
	}
}

// Pending reports whether the remote copy is behind
func (f *FallbackStore) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

// Sync pushes state to the remote store if a write is pending
func (f *FallbackStore) Sync(ctx context.Context, state *domain.AppState) (bool, error) {
	if f.remote == nil || !f.Pending() {
		return false, nil
	}
	if err := f.remoteSave(ctx, state); err != nil {
		return false, err
	}
	f.setPending(false)
	f.logger.Info("remote state resynchronized", slog.String("backend", f.remoteName))
	return true, nil
}

func (f *FallbackStore) setPending(v bool) {
	f.mu.Lock()
	f.pending = v
	f.mu.Unlock()
}

func (f *FallbackStore) remoteLoad(ctx context.Context) (*domain.AppState, error) {
	return retry.Do(ctx, f.retry, f.logger, f.remoteName+".load", func(ctx context.Context) (*domain.AppState, error) {
		var state *domain.AppState
		err := f.breaker.Execute(func() error {
			var loadErr error
			state, loadErr = f.remote.Load(ctx)
			return loadErr
		})
		return state, err
	})
}

func (f *FallbackStore) remoteSave(ctx context.Context, state *domain.AppState) error {
	_, err := retry.Do(ctx, f.retry, f.logger, f.remoteName+".save", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f.breaker.Execute(func() error {
			return f.remote.Save(ctx, state)
		})
	})
	if err != nil {
		return fmt.Errorf("remote save: %w", err)
	}
	return nil
}
