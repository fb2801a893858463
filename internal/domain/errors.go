package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNoSession         = errors.New("no active session")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrCreditUnavailable = errors.New("credit unavailable")
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDegraded          = errors.New("external service degraded")
)

// AuthorizationError reports an actor whose role does not permit an action
type AuthorizationError struct {
	Role   Role
	Action string
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("role %s may not %s: %s", e.Role, e.Action, e.Reason)
	}
	return fmt.Sprintf("role %s may not %s", e.Role, e.Action)
}

func (e *AuthorizationError) Unwrap() error { return ErrUnauthorized }

// InvalidTransitionError reports a transition not defined for the current state
type InvalidTransitionError struct {
	Entity string // "submission" or "credit"
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// CreditUnavailableError reports a purchase on a credit that is missing or not AVAILABLE
type CreditUnavailableError struct {
	CreditID string
	Status   CreditStatus // empty when the credit does not exist
}

func (e *CreditUnavailableError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("credit %s unavailable: not found", e.CreditID)
	}
	return fmt.Sprintf("credit %s unavailable: status %s", e.CreditID, e.Status)
}

func (e *CreditUnavailableError) Unwrap() error { return ErrCreditUnavailable }

// NotFound reports whether the credit does not exist at all
func (e *CreditUnavailableError) NotFound() bool { return e.Status == "" }

// NotFoundError reports a missing entity
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Entity, e.ID) }

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports bad input
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// DegradedError reports an external dependency that failed and was absorbed.
// Durable is true when a fallback still persisted the data.
type DegradedError struct {
	Service string
	Durable bool
	Err     error
}

func (e *DegradedError) Error() string {
	if e.Durable {
		return fmt.Sprintf("%s degraded (fallback applied): %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s degraded (not persisted): %v", e.Service, e.Err)
}

func (e *DegradedError) Unwrap() []error { return []error{ErrDegraded, e.Err} }
