package workflow

import (
	"errors"
	"fmt"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// CheckInvariants verifies the cross-entity rules of a state:
// creditId is set iff a submission is APPROVED, every approved submission has
// exactly one credit carrying its tonnage, ownerId is set iff a credit is SOLD,
// and the audit log is newest-first.
func CheckInvariants(st *domain.AppState) error {
	var errs []error

	creditsBySubmission := make(map[string][]domain.CarbonCredit, len(st.Credits))
	for _, c := range st.Credits {
		creditsBySubmission[c.SubmissionID] = append(creditsBySubmission[c.SubmissionID], c)
		if (c.OwnerID != "") != (c.Status == domain.CreditSold) {
			errs = append(errs, fmt.Errorf("credit %s: owner %q with status %s", c.ID, c.OwnerID, c.Status))
		}
		if !c.Status.Valid() {
			errs = append(errs, fmt.Errorf("credit %s: unknown status %q", c.ID, c.Status))
		}
	}

	for _, s := range st.Submissions {
		approved := s.Status == domain.StatusApproved
		if (s.CreditID != "") != approved {
			errs = append(errs, fmt.Errorf("submission %s: creditId %q with status %s", s.ID, s.CreditID, s.Status))
		}
		credits := creditsBySubmission[s.ID]
		switch {
		case approved && len(credits) != 1:
			errs = append(errs, fmt.Errorf("submission %s: %d credits minted, want 1", s.ID, len(credits)))
		case !approved && len(credits) != 0:
			errs = append(errs, fmt.Errorf("submission %s: %d credits minted while %s", s.ID, len(credits), s.Status))
		case approved:
			if credits[0].ID != s.CreditID {
				errs = append(errs, fmt.Errorf("submission %s: creditId %s does not match minted credit %s", s.ID, s.CreditID, credits[0].ID))
			}
			if credits[0].Tons != s.EstimatedCarbon {
				errs = append(errs, fmt.Errorf("submission %s: credit carries %.2f tons, submission %.2f", s.ID, credits[0].Tons, s.EstimatedCarbon))
			}
		}
	}

	for i := 1; i < len(st.AuditLogs); i++ {
		if st.AuditLogs[i].Timestamp.After(st.AuditLogs[i-1].Timestamp) {
			errs = append(errs, fmt.Errorf("audit log out of order at %d", i))
			break
		}
	}

	return errors.Join(errs...)
}
