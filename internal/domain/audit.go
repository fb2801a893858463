package domain

import "time"

// AuditAction tags the mutation an audit entry records
type AuditAction string

const (
	ActionSubmissionCreate  AuditAction = "SUBMISSION_CREATE"
	ActionNGOApprove        AuditAction = "NGO_APPROVE"
	ActionNGOReject         AuditAction = "NGO_REJECT"
	ActionNGOFlag           AuditAction = "NGO_FLAG"
	ActionAdminIssueCredit  AuditAction = "ADMIN_ISSUE_CREDIT"
	ActionAdminReject       AuditAction = "ADMIN_REJECT"
	ActionCorporatePurchase AuditAction = "CORPORATE_PURCHASE"
	ActionCorporateRetire   AuditAction = "CORPORATE_RETIRE"
)

// AuditLog is one append-only record of a successful mutation.
// The actor fields are a snapshot taken at append time.
type AuditLog struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName"`
	Role      Role        `json:"role"`
	Action    AuditAction `json:"action"`
	TargetID  string      `json:"targetId"`
	Details   string      `json:"details"`
}
