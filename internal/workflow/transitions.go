package workflow

import (
	"fmt"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// SubmissionTransition is one row of the review table
type SubmissionTransition struct {
	Action domain.AuditAction
	Role   domain.Role
	From   []domain.SubmissionStatus
	To     domain.SubmissionStatus
	effect transitionEffect
}

type effectResult struct {
	details string
	credit  *domain.CarbonCredit
}

// transitionEffect records the side effects of a row on the (cloned) state
type transitionEffect func(e *Engine, st *domain.AppState, sub *domain.Submission, cmd TransitionSubmission, now time.Time) (effectResult, error)

var awaitingNGO = []domain.SubmissionStatus{domain.StatusPending, domain.StatusAIVerified}

var submissionTransitions = map[domain.AuditAction]SubmissionTransition{
	domain.ActionNGOApprove: {
		Action: domain.ActionNGOApprove,
		Role:   domain.RoleNGO,
		From:   awaitingNGO,
		To:     domain.StatusNGOApproved,
		effect: func(_ *Engine, _ *domain.AppState, sub *domain.Submission, cmd TransitionSubmission, _ time.Time) (effectResult, error) {
			sub.VerifierComments = cmd.Comments
			sub.NGOID = cmd.By.ID
			sub.NGOName = cmd.By.Name
			return effectResult{details: "NGO verified site: " + cmd.Comments}, nil
		},
	},
	domain.ActionNGOReject: {
		Action: domain.ActionNGOReject,
		Role:   domain.RoleNGO,
		From:   awaitingNGO,
		To:     domain.StatusRejected,
		effect: func(_ *Engine, _ *domain.AppState, sub *domain.Submission, cmd TransitionSubmission, _ time.Time) (effectResult, error) {
			sub.VerifierComments = cmd.Comments
			return effectResult{details: "NGO rejected site: " + cmd.Comments}, nil
		},
	},
	domain.ActionNGOFlag: {
		Action: domain.ActionNGOFlag,
		Role:   domain.RoleNGO,
		From:   awaitingNGO,
		To:     domain.StatusFieldCheckRequired,
		effect: func(_ *Engine, _ *domain.AppState, sub *domain.Submission, cmd TransitionSubmission, _ time.Time) (effectResult, error) {
			sub.VerifierComments = cmd.Comments
			return effectResult{details: "NGO flagged for field visit: " + cmd.Comments}, nil
		},
	},
	domain.ActionAdminIssueCredit: {
		Action: domain.ActionAdminIssueCredit,
		Role:   domain.RoleAdmin,
		From:   []domain.SubmissionStatus{domain.StatusNGOApproved},
		To:     domain.StatusApproved,
		effect: func(e *Engine, st *domain.AppState, sub *domain.Submission, cmd TransitionSubmission, now time.Time) (effectResult, error) {
			credit, err := e.mintCredit(st, sub, cmd.By, now)
			if err != nil {
				return effectResult{}, err
			}
			sub.AdminComments = cmd.Comments
			sub.CreditID = credit.ID
			out := credit
			return effectResult{
				details: fmt.Sprintf("Government issued %.0f tons for sub %s", sub.EstimatedCarbon, sub.ID),
				credit:  &out,
			}, nil
		},
	},
	domain.ActionAdminReject: {
		Action: domain.ActionAdminReject,
		Role:   domain.RoleAdmin,
		From:   []domain.SubmissionStatus{domain.StatusNGOApproved},
		To:     domain.StatusRejected,
		effect: func(_ *Engine, _ *domain.AppState, sub *domain.Submission, cmd TransitionSubmission, _ time.Time) (effectResult, error) {
			sub.AdminComments = cmd.Comments
			return effectResult{details: "Admin rejected issuance: " + cmd.Comments}, nil
		},
	},
}

// SubmissionTransitions returns the review table, for documentation and tests
func SubmissionTransitions() []SubmissionTransition {
	order := []domain.AuditAction{
		domain.ActionNGOApprove,
		domain.ActionNGOReject,
		domain.ActionNGOFlag,
		domain.ActionAdminIssueCredit,
		domain.ActionAdminReject,
	}
	out := make([]SubmissionTransition, 0, len(order))
	for _, a := range order {
		out = append(out, submissionTransitions[a])
	}
	return out
}

// CanTransition reports whether role may apply action to a submission in status from
func CanTransition(action domain.AuditAction, role domain.Role, from domain.SubmissionStatus) bool {
	t, err := lookupSubmissionTransition(action, role)
	return err == nil && t.allows(from)
}

func lookupSubmissionTransition(action domain.AuditAction, role domain.Role) (SubmissionTransition, error) {
	t, ok := submissionTransitions[action]
	if !ok {
		return SubmissionTransition{}, &domain.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown submission action %q", action)}
	}
	if t.Role != role {
		return SubmissionTransition{}, &domain.AuthorizationError{Role: role, Action: string(action)}
	}
	return t, nil
}

func (t SubmissionTransition) allows(from domain.SubmissionStatus) bool {
	for _, s := range t.From {
		if s == from {
			return true
		}
	}
	return false
}
