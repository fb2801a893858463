package domain

import (
	"fmt"
	"strings"
	"time"
)

// SubmissionStatus is the state of a restoration report
type SubmissionStatus string

const (
	StatusPending            SubmissionStatus = "PENDING"
	StatusAIVerified         SubmissionStatus = "AI_VERIFIED"
	StatusNGOApproved        SubmissionStatus = "NGO_APPROVED"
	StatusFieldCheckRequired SubmissionStatus = "FIELD_CHECK_REQUIRED"
	StatusApproved           SubmissionStatus = "APPROVED"
	StatusRejected           SubmissionStatus = "REJECTED"
)

// SubmissionStatuses lists every status in lifecycle order
var SubmissionStatuses = []SubmissionStatus{
	StatusPending,
	StatusAIVerified,
	StatusNGOApproved,
	StatusFieldCheckRequired,
	StatusApproved,
	StatusRejected,
}

// Valid reports whether s is a known status
func (s SubmissionStatus) Valid() bool {
	for _, known := range SubmissionStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusFieldCheckRequired
}

// AwaitingNGO reports whether s is in the NGO review queue
func (s SubmissionStatus) AwaitingNGO() bool {
	return s == StatusPending || s == StatusAIVerified
}

// EcosystemType is the kind of coastal ecosystem being restored
type EcosystemType string

const (
	EcosystemMangrove EcosystemType = "MANGROVE"
	EcosystemSeagrass EcosystemType = "SEAGRASS"
)

// ParseEcosystem converts user input (any case) into an EcosystemType
func ParseEcosystem(s string) (EcosystemType, error) {
	e := EcosystemType(strings.ToUpper(strings.TrimSpace(s)))
	if e != EcosystemMangrove && e != EcosystemSeagrass {
		return "", &ValidationError{Field: "ecosystemType", Reason: fmt.Sprintf("unknown ecosystem %q", s)}
	}
	return e, nil
}

// Location is where the restoration photo was taken
type Location struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Region string  `json:"region"`
}

// Validate checks coordinate bounds
func (l Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 {
		return &ValidationError{Field: "location.lat", Reason: "must be within [-90, 90]"}
	}
	if l.Lng < -180 || l.Lng > 180 {
		return &ValidationError{Field: "location.lng", Reason: "must be within [-180, 180]"}
	}
	return nil
}

// Submission is a field report of a restoration site awaiting verification
type Submission struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	UserName      string        `json:"userName"`
	Timestamp     time.Time     `json:"timestamp"`
	ImageURL      string        `json:"imageUrl"`
	Location      Location      `json:"location"`
	EcosystemType EcosystemType `json:"ecosystemType"`

	Status           SubmissionStatus `json:"status"`
	AIScore          float64          `json:"aiScore"`
	AIAnalysis       string           `json:"aiAnalysis,omitempty"`
	EstimatedArea    float64          `json:"estimatedArea"`   // hectares
	EstimatedCarbon  float64          `json:"estimatedCarbon"` // tCO2e
	VerifierComments string           `json:"verifierComments,omitempty"`
	AdminComments    string           `json:"adminComments,omitempty"`
	CreditID         string           `json:"creditId,omitempty"` // set only when APPROVED
	NGOID            string           `json:"ngoId,omitempty"`
	NGOName          string           `json:"ngoName,omitempty"`
}
