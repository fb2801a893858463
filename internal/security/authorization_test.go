package security

import (
	"errors"
	"testing"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

func TestValidatePermission(t *testing.T) {
	as := NewAuthorizationService(nil)
	tests := []struct {
		role domain.Role
		perm Permission
		ok   bool
	}{
		{domain.RoleAdmin, PermViewAuditLog, true},
		{domain.RoleNGO, PermViewAuditLog, true},
		{domain.RoleCorporate, PermViewAuditLog, false},
		{domain.RoleFisherman, PermViewAuditLog, false},
		{domain.RoleAdmin, PermViewStats, true},
		{domain.RoleNGO, PermViewStats, false},
		{domain.RoleCorporate, PermViewPortfolio, true},
		{domain.RoleAdmin, PermViewPortfolio, false},
		{domain.RoleFisherman, PermViewFieldSummary, true},
		{domain.Role("PIRATE"), PermListCredits, false},
	}
	for _, tt := range tests {
		err := as.ValidatePermission(tt.role, tt.perm)
		if tt.ok && err != nil {
			t.Errorf("%s/%s: unexpected error %v", tt.role, tt.perm, err)
		}
		if !tt.ok && !errors.Is(err, domain.ErrUnauthorized) {
			t.Errorf("%s/%s: expected ErrUnauthorized, got %v", tt.role, tt.perm, err)
		}
	}
}

func TestValidateOwnership(t *testing.T) {
	as := NewAuthorizationService(nil)
	fisher := domain.User{ID: "f-1", Role: domain.RoleFisherman}
	if err := as.ValidateOwnership(fisher, "f-1", "submission", "s-1"); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	if err := as.ValidateOwnership(fisher, "f-2", "submission", "s-1"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	ngo := domain.User{ID: "n-1", Role: domain.RoleNGO}
	if err := as.ValidateOwnership(ngo, "f-2", "submission", "s-1"); err != nil {
		t.Fatalf("reviewer should pass: %v", err)
	}
}
