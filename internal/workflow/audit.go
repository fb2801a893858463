package workflow

import (
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// appendAudit prepends an entry so the log stays newest-first.
// With no actor it does nothing.
func appendAudit(st *domain.AppState, actor *domain.User, action domain.AuditAction, targetID, details, id string, now time.Time) (domain.AuditLog, bool) {
	if actor == nil {
		return domain.AuditLog{}, false
	}
	entry := domain.AuditLog{
		ID:        id,
		Timestamp: now,
		UserID:    actor.ID,
		UserName:  actor.Name,
		Role:      actor.Role,
		Action:    action,
		TargetID:  targetID,
		Details:   details,
	}
	st.AuditLogs = append([]domain.AuditLog{entry}, st.AuditLogs...)
	return entry, true
}
