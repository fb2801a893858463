package domain

import (
	"fmt"
	"time"
)

// Language is a UI language code. Only static string lookup depends on it.
type Language string

// Languages lists the supported UI languages
var Languages = []Language{"en", "es", "hi", "id"}

// ParseLanguage validates a language code
func ParseLanguage(s string) (Language, error) {
	for _, l := range Languages {
		if string(l) == s {
			return l, nil
		}
	}
	return "", &ValidationError{Field: "language", Reason: fmt.Sprintf("unsupported language %q", s)}
}

// Preferences holds UI settings persisted with the state but opaque to the workflow
type Preferences struct {
	Language  Language `json:"language"`
	UserCount int      `json:"userCount"`
}

// AppState is the whole registry aggregate and the unit of persistence.
// Collections are ordered newest-first.
type AppState struct {
	CurrentUser *User          `json:"currentUser"`
	Submissions []Submission   `json:"submissions"`
	Credits     []CarbonCredit `json:"credits"`
	AuditLogs   []AuditLog     `json:"auditLogs"`
	Preferences Preferences    `json:"preferences"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// NewAppState returns the empty first-run state
func NewAppState() *AppState {
	return &AppState{
		Submissions: []Submission{},
		Credits:     []CarbonCredit{},
		AuditLogs:   []AuditLog{},
		Preferences: Preferences{Language: "en", UserCount: 42},
	}
}

// Clone returns a deep copy that shares no mutable memory with s
func (s *AppState) Clone() *AppState {
	out := &AppState{
		Submissions: make([]Submission, len(s.Submissions)),
		Credits:     make([]CarbonCredit, len(s.Credits)),
		AuditLogs:   make([]AuditLog, len(s.AuditLogs)),
		Preferences: s.Preferences,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.CurrentUser != nil {
		u := *s.CurrentUser
		out.CurrentUser = &u
	}
	copy(out.Submissions, s.Submissions)
	copy(out.AuditLogs, s.AuditLogs)
	for i, c := range s.Credits {
		if c.RetiredAt != nil {
			t := *c.RetiredAt
			c.RetiredAt = &t
		}
		out.Credits[i] = c
	}
	return out
}

// Normalize replaces nil collections so a decoded state behaves like NewAppState
func (s *AppState) Normalize() {
	if s.Submissions == nil {
		s.Submissions = []Submission{}
	}
	if s.Credits == nil {
		s.Credits = []CarbonCredit{}
	}
	if s.AuditLogs == nil {
		s.AuditLogs = []AuditLog{}
	}
	if s.Preferences.Language == "" {
		s.Preferences.Language = "en"
	}
}

// SubmissionIndex returns the position of a submission or -1
func (s *AppState) SubmissionIndex(id string) int {
	for i := range s.Submissions {
		if s.Submissions[i].ID == id {
			return i
		}
	}
	return -1
}

// CreditIndex returns the position of a credit or -1
func (s *AppState) CreditIndex(id string) int {
	for i := range s.Credits {
		if s.Credits[i].ID == id {
			return i
		}
	}
	return -1
}

// CreditForSubmission returns the position of the credit minted from a submission or -1
func (s *AppState) CreditForSubmission(submissionID string) int {
	for i := range s.Credits {
		if s.Credits[i].SubmissionID == submissionID {
			return i
		}
	}
	return -1
}
