package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker rejects calls
var ErrOpen = errors.New("circuit open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// CircuitBreaker fails fast when a dependency (remote store, scorer) fails repeatedly
type CircuitBreaker struct {
	mu            sync.Mutex
	state         State
	failures      int32
	probes        int32
	openedAt      time.Time
	onStateChange func(from, to State)

	failureThreshold int32
	successThreshold int32
	cooldown         time.Duration
	now              func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold consecutive
// failures, probes again after cooldown and closes after successThreshold probe successes
func NewCircuitBreaker(failureThreshold, successThreshold int32, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// SetStateChangeCallback registers fn, called outside the breaker's lock
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn if the breaker allows it and records the outcome
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.AllowRequest() {
		return ErrOpen
	}
	if err := fn(); err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// AllowRequest reports whether a call may go through. An open breaker
// past its cooldown moves to half-open and lets probes through.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	if cb.state != StateOpen {
		cb.mu.Unlock()
		return true
	}
	if cb.now().Sub(cb.openedAt) < cb.cooldown {
		cb.mu.Unlock()
		return false
	}
	notify := cb.moveLocked(StateHalfOpen)
	cb.mu.Unlock()
	notify()
	return true
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateHalfOpen:
		cb.probes++
		if cb.probes >= cb.successThreshold {
			notify = cb.moveLocked(StateClosed)
		}
	case StateClosed:
		cb.failures = 0
	}
	cb.mu.Unlock()
	notify()
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	notify := func() {}
	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			notify = cb.moveLocked(StateOpen)
		}
	case StateHalfOpen:
		notify = cb.moveLocked(StateOpen)
	}
	cb.mu.Unlock()
	notify()
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// moveLocked switches state, resets counters and returns the callback
// invocation to run once the lock is released.
func (cb *CircuitBreaker) moveLocked(to State) func() {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	fn := cb.onStateChange
	if fn == nil || from == to {
		return func() {}
	}
	return func() { fn(from, to) }
}
