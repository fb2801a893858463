package domain

import (
	"strings"
	"time"
)

// CreditStatus is the market state of a carbon credit
type CreditStatus string

const (
	CreditAvailable CreditStatus = "AVAILABLE"
	CreditSold      CreditStatus = "SOLD"
	CreditRetired   CreditStatus = "RETIRED"
)

// Valid reports whether s is a known credit status
func (s CreditStatus) Valid() bool {
	return s == CreditAvailable || s == CreditSold || s == CreditRetired
}

// CarbonCredit is a tradeable record minted from exactly one approved submission.
// OwnerID is non-empty iff Status is SOLD.
type CarbonCredit struct {
	ID              string       `json:"id"`
	SubmissionID    string       `json:"submissionId"`
	Origin          string       `json:"origin"`
	Region          string       `json:"region"`
	OwnerID         string       `json:"ownerId"`
	OwnerName       string       `json:"ownerName"`
	Tons            float64      `json:"tons"`
	Status          CreditStatus `json:"status"`
	MintedAt        time.Time    `json:"mintedAt"`
	TransactionHash string       `json:"transactionHash"`
	IssuedBy        string       `json:"issuedBy,omitempty"`

	// Retirement record; owner fields are cleared on retirement
	RetiredBy      string     `json:"retiredBy,omitempty"`
	RetiredByName  string     `json:"retiredByName,omitempty"`
	RetiredAt      *time.Time `json:"retiredAt,omitempty"`
	RetirementNote string     `json:"retirementNote,omitempty"`
}

// Ecosystem extracts the ecosystem type from the origin label
func (c CarbonCredit) Ecosystem() EcosystemType {
	switch {
	case strings.HasPrefix(c.Origin, string(EcosystemMangrove)):
		return EcosystemMangrove
	case strings.HasPrefix(c.Origin, string(EcosystemSeagrass)):
		return EcosystemSeagrass
	}
	return ""
}
