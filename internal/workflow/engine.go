// Package workflow holds the submission lifecycle state machine.
//
// Every mutation is a pure function of (state, command): Apply clones the
// input state, applies the command to the clone and returns the clone with
// the resulting event. On error the input state is returned untouched, so a
// rejected command can never leave submissions, credits and audit entries
// mutually inconsistent.
package workflow

import (
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// Policy holds the configurable rules of the workflow
type Policy struct {
	// RequirePositiveCarbon blocks issuance for submissions with estimatedCarbon <= 0
	RequirePositiveCarbon bool
	// RestrictPurchaseToCorporate rejects purchases from non-CORPORATE actors
	RestrictPurchaseToCorporate bool
}

// DefaultPolicy returns the production rules
func DefaultPolicy() Policy {
	return Policy{
		RequirePositiveCarbon:       true,
		RestrictPurchaseToCorporate: true,
	}
}

// Engine applies commands to an AppState
type Engine struct {
	policy Policy
	now    func() time.Time
	newID  func() string
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides identifier generation
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// NewEngine creates a workflow engine
func NewEngine(policy Policy, opts ...Option) *Engine {
	e := &Engine{
		policy: policy,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the rules this engine enforces
func (e *Engine) Policy() Policy {
	return e.policy
}

// Event describes the outcome of a successful command
type Event struct {
	Action     domain.AuditAction
	TargetID   string
	Audit      domain.AuditLog
	Submission *domain.Submission
	Credit     *domain.CarbonCredit
}

// Apply runs cmd against state and returns the next state.
// The input state is never modified.
func (e *Engine) Apply(state *domain.AppState, cmd Command) (*domain.AppState, *Event, error) {
	if state == nil {
		state = domain.NewAppState()
	}
	actor := cmd.actor()
	if actor == nil {
		return state, nil, domain.ErrNoSession
	}
	if !actor.Role.Valid() {
		return state, nil, &domain.AuthorizationError{Role: actor.Role, Action: cmd.name(), Reason: "unknown role"}
	}

	next := state.Clone()
	now := e.now()
	ev, err := cmd.apply(e, next, now)
	if err != nil {
		return state, nil, err
	}

	entry, ok := appendAudit(next, actor, ev.Action, ev.TargetID, ev.details, e.newID(), now)
	if ok {
		ev.Audit = entry
	}
	next.UpdatedAt = now

	return next, &ev.Event, nil
}

// pendingEvent carries the audit details alongside the public event
type pendingEvent struct {
	Event
	details string
}
