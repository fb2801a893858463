package service

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/workflow"
)

// StartSession records user as the current user. Returns a durability warning, if any.
func (s *RegistryService) StartSession(ctx context.Context, user domain.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("session started", slog.String("user_id", user.ID), slog.String("role", string(user.Role)))
	return s.commitSession(ctx, workflow.StartSession(s.state, user, s.now()))
}

// EndSession clears the current user when it is user
func (s *RegistryService) EndSession(ctx context.Context, user domain.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentUser == nil || s.state.CurrentUser.ID != user.ID {
		return ""
	}
	s.logger.Info("session ended", slog.String("user_id", user.ID))
	return s.commitSession(ctx, workflow.EndSession(s.state, s.now()))
}

// CurrentUser returns the most recent session user, if any
func (s *RegistryService) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentUser == nil {
		return nil
	}
	u := *s.state.CurrentUser
	return &u
}

// PreferencesUpdate carries optional changes; nil fields are left as they are
type PreferencesUpdate struct {
	Language  *string
	UserCount *int
}

// UpdatePreferences changes UI preferences. Not audited.
func (s *RegistryService) UpdatePreferences(ctx context.Context, actor *domain.User, upd PreferencesUpdate) (domain.Preferences, string, error) {
	if actor == nil {
		return domain.Preferences{}, "", domain.ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs := s.state.Preferences
	if upd.Language != nil {
		lang, err := domain.ParseLanguage(*upd.Language)
		if err != nil {
			return domain.Preferences{}, "", err
		}
		prefs.Language = lang
	}
	if upd.UserCount != nil {
		if actor.Role != domain.RoleAdmin {
			return domain.Preferences{}, "", &domain.AuthorizationError{Role: actor.Role, Action: "set user count"}
		}
		if *upd.UserCount < 0 {
			return domain.Preferences{}, "", &domain.ValidationError{Field: "userCount", Reason: "must not be negative"}
		}
		prefs.UserCount = *upd.UserCount
	}

	warning := s.commitSession(ctx, workflow.UpdatePreferences(s.state, prefs, s.now()))
	return prefs, warning, nil
}

// Preferences returns the current UI preferences
func (s *RegistryService) Preferences() domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Preferences
}
