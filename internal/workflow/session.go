package workflow

import (
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// StartSession records user as the current user. Session changes are not audited.
func StartSession(state *domain.AppState, user domain.User, now time.Time) *domain.AppState {
	next := state.Clone()
	next.CurrentUser = &user
	next.UpdatedAt = now
	return next
}

// EndSession clears the current user
func EndSession(state *domain.AppState, now time.Time) *domain.AppState {
	next := state.Clone()
	next.CurrentUser = nil
	next.UpdatedAt = now
	return next
}

// UpdatePreferences replaces the UI preferences
func UpdatePreferences(state *domain.AppState, prefs domain.Preferences, now time.Time) *domain.AppState {
	next := state.Clone()
	next.Preferences = prefs
	next.UpdatedAt = now
	return next
}
