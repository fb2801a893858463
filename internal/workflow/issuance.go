package workflow

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// mintCredit creates the single credit for an approved submission and adds it to st.
// It is reachable only from the NGO_APPROVED -> APPROVED row.
func (e *Engine) mintCredit(st *domain.AppState, sub *domain.Submission, issuer *domain.User, now time.Time) (domain.CarbonCredit, error) {
	if e.policy.RequirePositiveCarbon && sub.EstimatedCarbon <= 0 {
		return domain.CarbonCredit{}, &domain.ValidationError{
			Field:  "estimatedCarbon",
			Reason: fmt.Sprintf("submission %s has %.2f tCO2e; issuance requires a positive amount", sub.ID, sub.EstimatedCarbon),
		}
	}
	if sub.EstimatedCarbon < 0 {
		return domain.CarbonCredit{}, &domain.ValidationError{Field: "estimatedCarbon", Reason: "must not be negative"}
	}
	if existing := st.CreditForSubmission(sub.ID); existing >= 0 {
		return domain.CarbonCredit{}, &domain.InvalidTransitionError{
			Entity: "submission",
			ID:     sub.ID,
			From:   string(sub.Status),
			To:     string(domain.StatusApproved),
		}
	}

	id, err := e.uniqueID(func(id string) bool { return st.CreditIndex(id) >= 0 })
	if err != nil {
		return domain.CarbonCredit{}, err
	}

	credit := domain.CarbonCredit{
		ID:              id,
		SubmissionID:    sub.ID,
		Origin:          fmt.Sprintf("%s Restoration", sub.EcosystemType),
		Region:          sub.Location.Region,
		OwnerID:         "",
		OwnerName:       "",
		Tons:            sub.EstimatedCarbon,
		Status:          domain.CreditAvailable,
		MintedAt:        now,
		TransactionHash: transactionHash(id, sub.ID, sub.EstimatedCarbon, now),
		IssuedBy:        issuer.Name,
	}
	st.Credits = append([]domain.CarbonCredit{credit}, st.Credits...)
	return credit, nil
}

// transactionHash derives a 0x-prefixed Keccak-256 digest for the mint record
func transactionHash(creditID, submissionID string, tons float64, mintedAt time.Time) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(creditID))
	h.Write([]byte{0})
	h.Write([]byte(submissionID))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(tons, 'f', -1, 64)))
	h.Write([]byte{0})
	h.Write([]byte(mintedAt.Format(time.RFC3339Nano)))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
