package workflow

import (
	"fmt"
	"math"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// Command is a mutating request against the registry
type Command interface {
	actor() *domain.User
	name() string
	apply(e *Engine, st *domain.AppState, now time.Time) (*pendingEvent, error)
}

// CreateSubmission files a new restoration report on behalf of a field worker
type CreateSubmission struct {
	By            *domain.User
	ImageURL      string
	Location      domain.Location
	Ecosystem     domain.EcosystemType
	EstimatedArea float64 // hectares
	Analysis      domain.Analysis
}

func (c CreateSubmission) actor() *domain.User { return c.By }
func (c CreateSubmission) name() string        { return "create submission" }

func (c CreateSubmission) apply(e *Engine, st *domain.AppState, now time.Time) (*pendingEvent, error) {
	if c.By.Role != domain.RoleFisherman {
		return nil, &domain.AuthorizationError{Role: c.By.Role, Action: c.name()}
	}
	if c.ImageURL == "" {
		return nil, &domain.ValidationError{Field: "imageUrl", Reason: "required"}
	}
	if c.Ecosystem != domain.EcosystemMangrove && c.Ecosystem != domain.EcosystemSeagrass {
		return nil, &domain.ValidationError{Field: "ecosystemType", Reason: fmt.Sprintf("unknown ecosystem %q", c.Ecosystem)}
	}
	if err := c.Location.Validate(); err != nil {
		return nil, err
	}
	if c.EstimatedArea <= 0 {
		return nil, &domain.ValidationError{Field: "estimatedArea", Reason: "must be positive"}
	}
	if err := c.Analysis.Validate(); err != nil {
		return nil, err
	}

	status := domain.StatusPending
	if c.Analysis.IsVerified {
		status = domain.StatusAIVerified
	}

	id, err := e.uniqueID(func(id string) bool { return st.SubmissionIndex(id) >= 0 })
	if err != nil {
		return nil, err
	}

	sub := domain.Submission{
		ID:              id,
		UserID:          c.By.ID,
		UserName:        c.By.Name,
		Timestamp:       now,
		ImageURL:        c.ImageURL,
		Location:        c.Location,
		EcosystemType:   c.Ecosystem,
		Status:          status,
		AIScore:         c.Analysis.ConfidenceScore,
		AIAnalysis:      c.Analysis.HealthAssessment,
		EstimatedArea:   c.EstimatedArea,
		EstimatedCarbon: math.Round(c.Analysis.EstimatedCarbonPotential * c.EstimatedArea),
	}
	st.Submissions = append([]domain.Submission{sub}, st.Submissions...)

	out := sub
	return &pendingEvent{
		Event: newEvent(domain.ActionSubmissionCreate, sub.ID, &out, nil),
		details: fmt.Sprintf("Submitted %s site in %s (%.0f tCO2e estimated, status %s)",
			sub.EcosystemType, sub.Location.Region, sub.EstimatedCarbon, sub.Status),
	}, nil
}

// TransitionSubmission moves a submission along the review table.
// Action selects the row: NGO_APPROVE, NGO_REJECT, NGO_FLAG, ADMIN_ISSUE_CREDIT or ADMIN_REJECT.
type TransitionSubmission struct {
	By           *domain.User
	SubmissionID string
	Action       domain.AuditAction
	Comments     string
}

func (c TransitionSubmission) actor() *domain.User { return c.By }
func (c TransitionSubmission) name() string        { return string(c.Action) }

func (c TransitionSubmission) apply(e *Engine, st *domain.AppState, now time.Time) (*pendingEvent, error) {
	t, err := lookupSubmissionTransition(c.Action, c.By.Role)
	if err != nil {
		return nil, err
	}

	idx := st.SubmissionIndex(c.SubmissionID)
	if idx < 0 {
		return nil, &domain.NotFoundError{Entity: "submission", ID: c.SubmissionID}
	}
	sub := &st.Submissions[idx]
	if !t.allows(sub.Status) {
		return nil, &domain.InvalidTransitionError{
			Entity: "submission",
			ID:     sub.ID,
			From:   string(sub.Status),
			To:     string(t.To),
		}
	}

	res, err := t.effect(e, st, sub, c, now)
	if err != nil {
		return nil, err
	}
	sub.Status = t.To

	out := *sub
	target := sub.ID
	if res.credit != nil {
		target = res.credit.ID
	}
	return &pendingEvent{
		Event:   newEvent(t.Action, target, &out, res.credit),
		details: res.details,
	}, nil
}

// PurchaseCredit transfers an AVAILABLE credit to the buyer
type PurchaseCredit struct {
	By       *domain.User
	CreditID string
}

func (c PurchaseCredit) actor() *domain.User { return c.By }
func (c PurchaseCredit) name() string        { return "purchase credit" }

func (c PurchaseCredit) apply(e *Engine, st *domain.AppState, now time.Time) (*pendingEvent, error) {
	if e.policy.RestrictPurchaseToCorporate && c.By.Role != domain.RoleCorporate {
		return nil, &domain.AuthorizationError{Role: c.By.Role, Action: c.name()}
	}

	idx := st.CreditIndex(c.CreditID)
	if idx < 0 {
		return nil, &domain.CreditUnavailableError{CreditID: c.CreditID}
	}
	credit := &st.Credits[idx]
	if credit.Status != domain.CreditAvailable {
		return nil, &domain.CreditUnavailableError{CreditID: credit.ID, Status: credit.Status}
	}

	credit.Status = domain.CreditSold
	credit.OwnerID = c.By.ID
	credit.OwnerName = c.By.Name

	out := *credit
	return &pendingEvent{
		Event:   newEvent(domain.ActionCorporatePurchase, credit.ID, nil, &out),
		details: fmt.Sprintf("Bought by %s", c.By.Name),
	}, nil
}

// RetireCredit permanently retires a SOLD credit held by the actor
type RetireCredit struct {
	By       *domain.User
	CreditID string
	Note     string
}

func (c RetireCredit) actor() *domain.User { return c.By }
func (c RetireCredit) name() string        { return "retire credit" }

func (c RetireCredit) apply(e *Engine, st *domain.AppState, now time.Time) (*pendingEvent, error) {
	if c.By.Role != domain.RoleCorporate {
		return nil, &domain.AuthorizationError{Role: c.By.Role, Action: c.name()}
	}

	idx := st.CreditIndex(c.CreditID)
	if idx < 0 {
		return nil, &domain.CreditUnavailableError{CreditID: c.CreditID}
	}
	credit := &st.Credits[idx]
	if credit.Status != domain.CreditSold {
		return nil, &domain.InvalidTransitionError{
			Entity: "credit",
			ID:     credit.ID,
			From:   string(credit.Status),
			To:     string(domain.CreditRetired),
		}
	}
	if credit.OwnerID != c.By.ID {
		return nil, &domain.AuthorizationError{Role: c.By.Role, Action: c.name(), Reason: "credit is owned by another account"}
	}

	retiredAt := now
	credit.Status = domain.CreditRetired
	credit.RetiredBy = credit.OwnerID
	credit.RetiredByName = credit.OwnerName
	credit.RetiredAt = &retiredAt
	credit.RetirementNote = c.Note
	credit.OwnerID = ""
	credit.OwnerName = ""

	out := *credit
	details := fmt.Sprintf("Retired %.0f tons by %s", credit.Tons, c.By.Name)
	if c.Note != "" {
		details += ": " + c.Note
	}
	return &pendingEvent{
		Event:   newEvent(domain.ActionCorporateRetire, credit.ID, nil, &out),
		details: details,
	}, nil
}

func newEvent(action domain.AuditAction, target string, sub *domain.Submission, credit *domain.CarbonCredit) Event {
	return Event{Action: action, TargetID: target, Submission: sub, Credit: credit}
}

// uniqueID draws identifiers until taken reports false
func (e *Engine) uniqueID(taken func(string) bool) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := e.newID()
		if !taken(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("no unique identifier after %d attempts", maxIDAttempts)
}

const maxIDAttempts = 16
