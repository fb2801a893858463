package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

var (
	fisher = &domain.User{ID: "u-fisher", Name: "ravi", Role: domain.RoleFisherman}
	ngo    = &domain.User{ID: "u-ngo", Name: "marine", Role: domain.RoleNGO}
	admin  = &domain.User{ID: "u-admin", Name: "nccr", Role: domain.RoleAdmin}
	buyer  = &domain.User{ID: "u-buyer", Name: "acme", Role: domain.RoleCorporate}
	buyer2 = &domain.User{ID: "u-buyer2", Name: "globex", Role: domain.RoleCorporate}
)

func newTestEngine(policy Policy) *Engine {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seq := 0
	return NewEngine(policy,
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)
}

func mustApply(t *testing.T, e *Engine, st *domain.AppState, cmd Command) (*domain.AppState, *Event) {
	t.Helper()
	next, ev, err := e.Apply(st, cmd)
	if err != nil {
		t.Fatalf("apply %s: %v", cmd.name(), err)
	}
	if err := CheckInvariants(next); err != nil {
		t.Fatalf("invariants after %s: %v", cmd.name(), err)
	}
	return next, ev
}

func createCmd(carbonPotential float64, verified bool) CreateSubmission {
	return CreateSubmission{
		By:            fisher,
		ImageURL:      "https://img.example/site.jpg",
		Location:      domain.Location{Lat: 21.9, Lng: 88.1, Region: "Sundarbans"},
		Ecosystem:     domain.EcosystemMangrove,
		EstimatedArea: 1,
		Analysis: domain.Analysis{
			ConfidenceScore:          0.8,
			HealthAssessment:         "dense canopy",
			EstimatedCarbonPotential: carbonPotential,
			IsVerified:               verified,
		},
	}
}

func TestCreateSubmissionInitialStatus(t *testing.T) {
	tests := []struct {
		name     string
		verified bool
		want     domain.SubmissionStatus
	}{
		{"unverified", false, domain.StatusPending},
		{"verified", true, domain.StatusAIVerified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(DefaultPolicy())
			st, ev := mustApply(t, e, domain.NewAppState(), createCmd(100, tt.verified))
			if ev.Submission.Status != tt.want {
				t.Fatalf("status = %s, want %s", ev.Submission.Status, tt.want)
			}
			if st.Submissions[0].EstimatedCarbon != 100 || st.Submissions[0].AIScore != 0.8 {
				t.Fatalf("unexpected submission %+v", st.Submissions[0])
			}
			if ev.Audit.Action != domain.ActionSubmissionCreate || len(st.AuditLogs) != 1 {
				t.Fatalf("expected one creation audit entry, got %+v", st.AuditLogs)
			}
		})
	}
}

func TestCreateSubmissionEstimatesCarbonFromArea(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	cmd := createCmd(140, false)
	cmd.EstimatedArea = 0.5
	_, ev := mustApply(t, e, domain.NewAppState(), cmd)
	if ev.Submission.EstimatedCarbon != 70 {
		t.Fatalf("estimatedCarbon = %v, want 70", ev.Submission.EstimatedCarbon)
	}
}

func TestCreateSubmissionRequiresFisherman(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	cmd := createCmd(100, false)
	cmd.By = ngo
	st := domain.NewAppState()
	next, _, err := e.Apply(st, cmd)
	var authErr *domain.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthorizationError, got %v", err)
	}
	if next != st || len(st.Submissions) != 0 {
		t.Fatalf("state must be unchanged on failure")
	}
}

func TestCreateSubmissionValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateSubmission)
	}{
		{"missing image", func(c *CreateSubmission) { c.ImageURL = "" }},
		{"bad ecosystem", func(c *CreateSubmission) { c.Ecosystem = "KELP" }},
		{"bad latitude", func(c *CreateSubmission) { c.Location.Lat = 91 }},
		{"zero area", func(c *CreateSubmission) { c.EstimatedArea = 0 }},
		{"score out of range", func(c *CreateSubmission) { c.Analysis.ConfidenceScore = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(DefaultPolicy())
			cmd := createCmd(100, false)
			tt.mutate(&cmd)
			if _, _, err := e.Apply(domain.NewAppState(), cmd); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

// Scenario A: create, NGO approve, admin issue, corporate purchase.
func TestFullLifecycle(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st, ev := mustApply(t, e, domain.NewAppState(), createCmd(100, false))
	s1 := ev.Submission.ID
	if ev.Submission.Status != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", ev.Submission.Status)
	}

	st, ev = mustApply(t, e, st, TransitionSubmission{By: ngo, SubmissionID: s1, Action: domain.ActionNGOApprove, Comments: "ok"})
	if ev.Submission.Status != domain.StatusNGOApproved || ev.Submission.VerifierComments != "ok" {
		t.Fatalf("unexpected after NGO approve: %+v", ev.Submission)
	}
	if ev.Submission.NGOID != ngo.ID || ev.Submission.NGOName != ngo.Name {
		t.Fatalf("ngo attribution missing: %+v", ev.Submission)
	}

	st, ev = mustApply(t, e, st, TransitionSubmission{By: admin, SubmissionID: s1, Action: domain.ActionAdminIssueCredit, Comments: "approved"})
	if ev.Submission.Status != domain.StatusApproved || ev.Submission.AdminComments != "approved" {
		t.Fatalf("unexpected after issue: %+v", ev.Submission)
	}
	if ev.Submission.VerifierComments != "ok" {
		t.Fatalf("admin transition erased verifier comments")
	}
	c1 := ev.Credit
	if c1 == nil || c1.Tons != 100 || c1.Status != domain.CreditAvailable || c1.OwnerID != "" {
		t.Fatalf("unexpected credit %+v", c1)
	}
	if c1.SubmissionID != s1 || ev.Submission.CreditID != c1.ID || ev.TargetID != c1.ID {
		t.Fatalf("credit not linked to submission: %+v / %+v", c1, ev.Submission)
	}
	if c1.Origin != "MANGROVE Restoration" || c1.Region != "Sundarbans" || c1.IssuedBy != admin.Name {
		t.Fatalf("unexpected credit attributes %+v", c1)
	}
	if len(c1.TransactionHash) != 66 {
		t.Fatalf("transaction hash %q is not a 32-byte hex digest", c1.TransactionHash)
	}

	st, ev = mustApply(t, e, st, PurchaseCredit{By: buyer, CreditID: c1.ID})
	if ev.Credit.Status != domain.CreditSold || ev.Credit.OwnerID != buyer.ID || ev.Credit.OwnerName != buyer.Name {
		t.Fatalf("unexpected credit after purchase %+v", ev.Credit)
	}

	want := []domain.AuditAction{
		domain.ActionCorporatePurchase,
		domain.ActionAdminIssueCredit,
		domain.ActionNGOApprove,
		domain.ActionSubmissionCreate,
	}
	if len(st.AuditLogs) != len(want) {
		t.Fatalf("audit entries = %d, want %d", len(st.AuditLogs), len(want))
	}
	for i, a := range want {
		if st.AuditLogs[i].Action != a {
			t.Fatalf("audit[%d] = %s, want %s", i, st.AuditLogs[i].Action, a)
		}
	}
	if st.AuditLogs[0].UserID != buyer.ID || st.AuditLogs[0].Role != domain.RoleCorporate {
		t.Fatalf("audit actor not snapshotted: %+v", st.AuditLogs[0])
	}
}

// Scenario B: a flagged submission cannot be issued.
func TestFlaggedSubmissionCannotBeIssued(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st, ev := mustApply(t, e, domain.NewAppState(), createCmd(100, true))
	s2 := ev.Submission.ID
	st, _ = mustApply(t, e, st, TransitionSubmission{By: ngo, SubmissionID: s2, Action: domain.ActionNGOFlag, Comments: "visit"})

	next, _, err := e.Apply(st, TransitionSubmission{By: admin, SubmissionID: s2, Action: domain.ActionAdminIssueCredit})
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != string(domain.StatusFieldCheckRequired) || invalid.To != string(domain.StatusApproved) {
		t.Fatalf("error does not name states: %+v", invalid)
	}
	if next != st || len(st.Credits) != 0 || len(st.AuditLogs) != 2 {
		t.Fatalf("failed transition mutated state")
	}
}

// Scenario C: admin cannot skip NGO review.
func TestAdminCannotSkipNGO(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st, ev := mustApply(t, e, domain.NewAppState(), createCmd(100, false))
	before := st.Clone()

	_, _, err := e.Apply(st, TransitionSubmission{By: admin, SubmissionID: ev.Submission.ID, Action: domain.ActionAdminReject})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if !reflect.DeepEqual(before, st) {
		t.Fatalf("state changed after failed transition")
	}
}

func TestTransitionTable(t *testing.T) {
	actors := map[domain.Role]*domain.User{
		domain.RoleFisherman: fisher,
		domain.RoleNGO:       ngo,
		domain.RoleAdmin:     admin,
		domain.RoleCorporate: buyer,
	}
	actions := []domain.AuditAction{
		domain.ActionNGOApprove,
		domain.ActionNGOReject,
		domain.ActionNGOFlag,
		domain.ActionAdminIssueCredit,
		domain.ActionAdminReject,
	}

	for _, from := range domain.SubmissionStatuses {
		for _, action := range actions {
			for _, role := range domain.Roles {
				name := fmt.Sprintf("%s/%s/%s", from, action, role)
				t.Run(name, func(t *testing.T) {
					e := newTestEngine(DefaultPolicy())
					st := stateWithSubmission(from)
					before := st.Clone()

					next, ev, err := e.Apply(st, TransitionSubmission{By: actors[role], SubmissionID: "sub-1", Action: action, Comments: "c"})
					allowed := CanTransition(action, role, from)
					if !allowed {
						if err == nil {
							t.Fatalf("expected failure")
						}
						if !reflect.DeepEqual(before, st) || next != st {
							t.Fatalf("failed transition mutated state")
						}
						return
					}
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					if next.Submissions[0].Status != submissionTransitions[action].To {
						t.Fatalf("status = %s, want %s", next.Submissions[0].Status, submissionTransitions[action].To)
					}
					if len(next.AuditLogs) != len(st.AuditLogs)+1 || next.AuditLogs[0].Action != action || ev.Audit.Action != action {
						t.Fatalf("expected exactly one %s audit entry", action)
					}
					if err := CheckInvariants(next); err != nil {
						t.Fatalf("invariants: %v", err)
					}
				})
			}
		}
	}
}

// stateWithSubmission builds a consistent state holding one submission in status.
func stateWithSubmission(status domain.SubmissionStatus) *domain.AppState {
	st := domain.NewAppState()
	sub := domain.Submission{
		ID:              "sub-1",
		UserID:          fisher.ID,
		UserName:        fisher.Name,
		Timestamp:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		ImageURL:        "img",
		Location:        domain.Location{Region: "Bali"},
		EcosystemType:   domain.EcosystemSeagrass,
		Status:          status,
		EstimatedArea:   0.5,
		EstimatedCarbon: 38,
	}
	if status == domain.StatusApproved {
		sub.CreditID = "credit-1"
		st.Credits = append(st.Credits, domain.CarbonCredit{
			ID: "credit-1", SubmissionID: sub.ID, Tons: sub.EstimatedCarbon, Status: domain.CreditAvailable,
		})
	}
	st.Submissions = append(st.Submissions, sub)
	return st
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, tr := range SubmissionTransitions() {
		for _, from := range tr.From {
			if from.Terminal() {
				t.Fatalf("%s leaves terminal status %s", tr.Action, from)
			}
		}
	}
}

func TestUnknownSubmission(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	_, _, err := e.Apply(domain.NewAppState(), TransitionSubmission{By: ngo, SubmissionID: "missing", Action: domain.ActionNGOApprove})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUnknownAction(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st := stateWithSubmission(domain.StatusPending)
	_, _, err := e.Apply(st, TransitionSubmission{By: ngo, SubmissionID: "sub-1", Action: domain.ActionCorporatePurchase})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestNoSession(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st := stateWithSubmission(domain.StatusPending)
	next, _, err := e.Apply(st, TransitionSubmission{SubmissionID: "sub-1", Action: domain.ActionNGOApprove})
	if !errors.Is(err, domain.ErrNoSession) || next != st {
		t.Fatalf("expected no-session failure, got %v", err)
	}
}

func TestIssuanceRequiresPositiveCarbon(t *testing.T) {
	st := stateWithSubmission(domain.StatusNGOApproved)
	st.Submissions[0].EstimatedCarbon = 0

	strict := newTestEngine(DefaultPolicy())
	if _, _, err := strict.Apply(st, TransitionSubmission{By: admin, SubmissionID: "sub-1", Action: domain.ActionAdminIssueCredit}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if st.Submissions[0].Status != domain.StatusNGOApproved || len(st.Credits) != 0 {
		t.Fatalf("rejected issuance mutated state")
	}

	lenient := newTestEngine(Policy{RestrictPurchaseToCorporate: true})
	next, ev, err := lenient.Apply(st, TransitionSubmission{By: admin, SubmissionID: "sub-1", Action: domain.ActionAdminIssueCredit})
	if err != nil {
		t.Fatalf("lenient issuance failed: %v", err)
	}
	if ev.Credit.Tons != 0 || len(next.Credits) != 1 {
		t.Fatalf("expected zero-ton credit, got %+v", ev.Credit)
	}
}

func TestPurchaseSoldCreditFails(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st := stateWithSubmission(domain.StatusApproved)
	st, _ = mustApply(t, e, st, PurchaseCredit{By: buyer, CreditID: "credit-1"})

	next, _, err := e.Apply(st, PurchaseCredit{By: buyer2, CreditID: "credit-1"})
	var unavailable *domain.CreditUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Status != domain.CreditSold {
		t.Fatalf("expected CreditUnavailableError(SOLD), got %v", err)
	}
	if next != st || st.Credits[0].OwnerID != buyer.ID || st.Credits[0].Status != domain.CreditSold {
		t.Fatalf("failed purchase changed ownership")
	}
	if len(st.AuditLogs) != 1 {
		t.Fatalf("failed purchase appended audit entries")
	}
}

func TestPurchaseMissingCredit(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	_, _, err := e.Apply(domain.NewAppState(), PurchaseCredit{By: buyer, CreditID: "nope"})
	var unavailable *domain.CreditUnavailableError
	if !errors.As(err, &unavailable) || !unavailable.NotFound() {
		t.Fatalf("expected not-found CreditUnavailableError, got %v", err)
	}
}

func TestPurchaseRolePolicy(t *testing.T) {
	st := stateWithSubmission(domain.StatusApproved)

	strict := newTestEngine(DefaultPolicy())
	if _, _, err := strict.Apply(st, PurchaseCredit{By: ngo, CreditID: "credit-1"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	open := newTestEngine(Policy{RequirePositiveCarbon: true})
	if _, _, err := open.Apply(st, PurchaseCredit{By: ngo, CreditID: "credit-1"}); err != nil {
		t.Fatalf("open purchase failed: %v", err)
	}
}

func TestRetireCredit(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st := stateWithSubmission(domain.StatusApproved)

	if _, _, err := e.Apply(st, RetireCredit{By: buyer, CreditID: "credit-1"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("retiring an unsold credit: expected invalid transition, got %v", err)
	}

	st, _ = mustApply(t, e, st, PurchaseCredit{By: buyer, CreditID: "credit-1"})
	if _, _, err := e.Apply(st, RetireCredit{By: buyer2, CreditID: "credit-1"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("retiring someone else's credit: expected unauthorized, got %v", err)
	}

	st, ev := mustApply(t, e, st, RetireCredit{By: buyer, CreditID: "credit-1", Note: "FY26 offset"})
	c := ev.Credit
	if c.Status != domain.CreditRetired || c.OwnerID != "" || c.RetiredBy != buyer.ID || c.RetiredAt == nil {
		t.Fatalf("unexpected retired credit %+v", c)
	}
	if st.AuditLogs[0].Action != domain.ActionCorporateRetire {
		t.Fatalf("expected retire audit entry, got %s", st.AuditLogs[0].Action)
	}
	if _, _, err := e.Apply(st, PurchaseCredit{By: buyer2, CreditID: "credit-1"}); !errors.Is(err, domain.ErrCreditUnavailable) {
		t.Fatalf("purchasing a retired credit: expected unavailable, got %v", err)
	}
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st := stateWithSubmission(domain.StatusNGOApproved)
	before := st.Clone()
	if _, _, err := e.Apply(st, TransitionSubmission{By: admin, SubmissionID: "sub-1", Action: domain.ActionAdminIssueCredit}); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if !reflect.DeepEqual(before, st) {
		t.Fatalf("Apply modified its input state")
	}
}

func TestStateRoundTrip(t *testing.T) {
	e := newTestEngine(DefaultPolicy())
	st, ev := mustApply(t, e, domain.NewAppState(), createCmd(100, false))
	st, _ = mustApply(t, e, st, TransitionSubmission{By: ngo, SubmissionID: ev.Submission.ID, Action: domain.ActionNGOApprove, Comments: "ok"})
	st, ev = mustApply(t, e, st, TransitionSubmission{By: admin, SubmissionID: ev.Submission.ID, Action: domain.ActionAdminIssueCredit})
	st, _ = mustApply(t, e, st, PurchaseCredit{By: buyer, CreditID: ev.Credit.ID})
	st, _ = mustApply(t, e, st, RetireCredit{By: buyer, CreditID: ev.Credit.ID})
	st = StartSession(st, *buyer, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded domain.AppState
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(st, &decoded) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, *st)
	}
}

func TestCheckInvariantsDetectsViolations(t *testing.T) {
	st := stateWithSubmission(domain.StatusApproved)
	st.Credits[0].OwnerID = "someone"
	if err := CheckInvariants(st); err == nil {
		t.Fatalf("expected owner/status violation")
	}

	st = stateWithSubmission(domain.StatusNGOApproved)
	st.Submissions[0].CreditID = "dangling"
	if err := CheckInvariants(st); err == nil {
		t.Fatalf("expected creditId/status violation")
	}
}
