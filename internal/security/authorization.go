package security

import (
	"log/slog"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// Permission names a read-side capability. Mutations are authorized by the
// workflow transition table instead.
type Permission string

const (
	PermListSubmissions  Permission = "list_submissions"
	PermListCredits      Permission = "list_credits"
	PermViewAuditLog     Permission = "view_audit_log"
	PermStreamAuditLog   Permission = "stream_audit_log"
	PermViewStats        Permission = "view_stats"
	PermViewPortfolio    Permission = "view_portfolio"
	PermViewFieldSummary Permission = "view_field_summary"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermListSubmissions,
		PermListCredits,
		PermViewAuditLog,
		PermStreamAuditLog,
		PermViewStats,
	},
	domain.RoleNGO: {
		PermListSubmissions,
		PermListCredits,
		PermViewAuditLog,
		PermStreamAuditLog,
	},
	domain.RoleCorporate: {
		PermListSubmissions,
		PermListCredits,
		PermViewPortfolio,
	},
	domain.RoleFisherman: {
		PermListSubmissions,
		PermListCredits,
		PermViewFieldSummary,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	permissions, exists := RolePermissions[role]
	if !exists {
		return false
	}
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission returns a *domain.AuthorizationError when role lacks permission
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return &domain.AuthorizationError{Role: role, Action: string(permission)}
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role domain.Role) []Permission {
	return RolePermissions[role]
}

// ValidateOwnership restricts field workers to their own submissions.
// Reviewers, administrators and buyers may read any submission.
func (as *AuthorizationService) ValidateOwnership(user domain.User, ownerID, resource, resourceID string) error {
	if user.Role != domain.RoleFisherman || user.ID == ownerID {
		return nil
	}
	as.logger.Warn("resource access denied",
		slog.String("user_id", user.ID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resource),
		slog.String("owner_id", ownerID),
	)
	return &domain.AuthorizationError{Role: user.Role, Action: "read " + resource, Reason: "owned by another account"}
}
