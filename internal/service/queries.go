package service

import (
	"fmt"
	"strings"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/security"
)

// Submission queues
const (
	QueueReview   = "review"   // awaiting an NGO decision
	QueueIssuance = "issuance" // NGO approved, awaiting an administrator
)

// SubmissionFilter narrows ListSubmissions. Zero values match everything.
type SubmissionFilter struct {
	Status domain.SubmissionStatus
	Queue  string
	Mine   bool
}

// CreditFilter narrows ListCredits
type CreditFilter struct {
	Status domain.CreditStatus
	Mine   bool
}

// RegistryStats is the administrator dashboard summary
type RegistryStats struct {
	TotalSubmissions int                             `json:"totalSubmissions"`
	ByStatus         map[domain.SubmissionStatus]int `json:"byStatus"`
	CreditsIssued    int                             `json:"creditsIssued"`
	CreditsAvailable int                             `json:"creditsAvailable"`
	CreditsSold      int                             `json:"creditsSold"`
	CreditsRetired   int                             `json:"creditsRetired"`
	TonsIssued       float64                         `json:"tonsIssued"`
	TonsSold         float64                         `json:"tonsSold"`
	TonsRetired      float64                         `json:"tonsRetired"`
	AuditEntries     int                             `json:"auditEntries"`
	UserCount        int                             `json:"userCount"`
	PendingSync      bool                            `json:"pendingSync"`
}

// Portfolio is a corporate buyer's holdings
type Portfolio struct {
	Owned           []domain.CarbonCredit            `json:"owned"`
	Retired         []domain.CarbonCredit            `json:"retired"`
	TotalOffsetTons float64                          `json:"totalOffsetTons"`
	RetiredTons     float64                          `json:"retiredTons"`
	TonsByEcosystem map[domain.EcosystemType]float64 `json:"tonsByEcosystem"`
	ValueUSD        float64                          `json:"valueUsd"`
}

// FieldSummary is a field worker's dashboard summary
type FieldSummary struct {
	Submissions          int     `json:"submissions"`
	AwaitingReview       int     `json:"awaitingReview"`
	Approved             int     `json:"approved"`
	Rejected             int     `json:"rejected"`
	ApprovedTons         float64 `json:"approvedTons"`
	EstimatedEarningsUSD float64 `json:"estimatedEarningsUsd"`
}

// ListSubmissions returns submissions newest first. Field workers only ever see their own.
func (s *RegistryService) ListSubmissions(actor *domain.User, f SubmissionFilter) ([]domain.Submission, error) {
	if err := s.readable(actor, security.PermListSubmissions); err != nil {
		return nil, err
	}
	queue := strings.ToLower(strings.TrimSpace(f.Queue))
	switch queue {
	case "", QueueReview, QueueIssuance:
	default:
		return nil, &domain.ValidationError{Field: "queue", Reason: fmt.Sprintf("must be %s or %s; got %q", QueueReview, QueueIssuance, f.Queue)}
	}
	if actor.Role == domain.RoleFisherman {
		f.Mine = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Submission{}
	for _, sub := range s.state.Submissions {
		if f.Status != "" && sub.Status != f.Status {
			continue
		}
		if f.Mine && sub.UserID != actor.ID {
			continue
		}
		switch queue {
		case QueueReview:
			if !sub.Status.AwaitingNGO() {
				continue
			}
		case QueueIssuance:
			if sub.Status != domain.StatusNGOApproved {
				continue
			}
		}
		out = append(out, sub)
	}
	return out, nil
}

// GetSubmission returns one submission
func (s *RegistryService) GetSubmission(actor *domain.User, id string) (*domain.Submission, error) {
	if err := s.readable(actor, security.PermListSubmissions); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := s.state.SubmissionIndex(id)
	var sub domain.Submission
	if idx >= 0 {
		sub = s.state.Submissions[idx]
	}
	s.mu.Unlock()

	if idx < 0 {
		return nil, &domain.NotFoundError{Entity: "submission", ID: id}
	}
	if err := s.authz.ValidateOwnership(*actor, sub.UserID, "submission", id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListCredits returns credits newest first
func (s *RegistryService) ListCredits(actor *domain.User, f CreditFilter) ([]domain.CarbonCredit, error) {
	if err := s.readable(actor, security.PermListCredits); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.CarbonCredit{}
	for _, c := range s.state.Credits {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Mine && c.OwnerID != actor.ID && c.RetiredBy != actor.ID {
			continue
		}
		out = append(out, cloneCredit(c))
	}
	return out, nil
}

// GetCredit returns one credit
func (s *RegistryService) GetCredit(actor *domain.User, id string) (*domain.CarbonCredit, error) {
	if err := s.readable(actor, security.PermListCredits); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.CreditIndex(id)
	if idx < 0 {
		return nil, &domain.NotFoundError{Entity: "credit", ID: id}
	}
	c := cloneCredit(s.state.Credits[idx])
	return &c, nil
}

// AuditLogs returns up to limit entries, newest first. limit <= 0 returns all.
func (s *RegistryService) AuditLogs(actor *domain.User, limit int) ([]domain.AuditLog, error) {
	if err := s.readable(actor, security.PermViewAuditLog); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.state.AuditLogs)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.AuditLog, n)
	copy(out, s.state.AuditLogs[:n])
	return out, nil
}

// CanStreamAudit checks access to the live audit stream
func (s *RegistryService) CanStreamAudit(actor *domain.User) error {
	return s.readable(actor, security.PermStreamAuditLog)
}

// Stats summarizes the registry for administrators
func (s *RegistryService) Stats(actor *domain.User) (*RegistryStats, error) {
	if err := s.readable(actor, security.PermViewStats); err != nil {
		return nil, err
	}
	pending := s.PendingSync()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := &RegistryStats{
		TotalSubmissions: len(s.state.Submissions),
		ByStatus:         make(map[domain.SubmissionStatus]int, len(domain.SubmissionStatuses)),
		CreditsIssued:    len(s.state.Credits),
		AuditEntries:     len(s.state.AuditLogs),
		UserCount:        s.state.Preferences.UserCount,
		PendingSync:      pending,
	}
	for _, status := range domain.SubmissionStatuses {
		st.ByStatus[status] = 0
	}
	for _, sub := range s.state.Submissions {
		st.ByStatus[sub.Status]++
	}
	for _, c := range s.state.Credits {
		st.TonsIssued += c.Tons
		switch c.Status {
		case domain.CreditAvailable:
			st.CreditsAvailable++
		case domain.CreditSold:
			st.CreditsSold++
			st.TonsSold += c.Tons
		case domain.CreditRetired:
			st.CreditsRetired++
			st.TonsRetired += c.Tons
		}
	}
	return st, nil
}

// Portfolio summarizes the credits a corporate buyer owns or has retired
func (s *RegistryService) Portfolio(actor *domain.User) (*Portfolio, error) {
	if err := s.readable(actor, security.PermViewPortfolio); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Portfolio{
		Owned:   []domain.CarbonCredit{},
		Retired: []domain.CarbonCredit{},
		TonsByEcosystem: map[domain.EcosystemType]float64{
			domain.EcosystemMangrove: 0,
			domain.EcosystemSeagrass: 0,
		},
	}
	for _, c := range s.state.Credits {
		switch {
		case c.Status == domain.CreditSold && c.OwnerID == actor.ID:
			p.Owned = append(p.Owned, cloneCredit(c))
			p.TotalOffsetTons += c.Tons
		case c.Status == domain.CreditRetired && c.RetiredBy == actor.ID:
			p.Retired = append(p.Retired, cloneCredit(c))
			p.RetiredTons += c.Tons
		default:
			continue
		}
		if eco := c.Ecosystem(); eco != "" {
			p.TonsByEcosystem[eco] += c.Tons
		}
	}
	p.ValueUSD = (p.TotalOffsetTons + p.RetiredTons) * s.opts.CreditPriceUSD
	return p, nil
}

// FieldSummary summarizes a field worker's submissions and estimated earnings
func (s *RegistryService) FieldSummary(actor *domain.User) (*FieldSummary, error) {
	if err := s.readable(actor, security.PermViewFieldSummary); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fs := &FieldSummary{}
	for _, sub := range s.state.Submissions {
		if sub.UserID != actor.ID {
			continue
		}
		fs.Submissions++
		switch {
		case sub.Status.AwaitingNGO():
			fs.AwaitingReview++
		case sub.Status == domain.StatusApproved:
			fs.Approved++
			fs.ApprovedTons += sub.EstimatedCarbon
		case sub.Status == domain.StatusRejected:
			fs.Rejected++
		}
	}
	fs.EstimatedEarningsUSD = fs.ApprovedTons * s.opts.CreditPriceUSD
	return fs, nil
}

func (s *RegistryService) readable(actor *domain.User, perm security.Permission) error {
	if actor == nil {
		return domain.ErrNoSession
	}
	return s.authz.ValidatePermission(actor.Role, perm)
}

func cloneCredit(c domain.CarbonCredit) domain.CarbonCredit {
	if c.RetiredAt != nil {
		t := *c.RetiredAt
		c.RetiredAt = &t
	}
	return c
}
