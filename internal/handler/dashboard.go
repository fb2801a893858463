package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

// DashboardHandler serves the role dashboards, the audit log and preferences
type DashboardHandler struct {
	registry *service.RegistryService
	logger   *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(registry *service.RegistryService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{registry: registry, logger: logger}
}

// PreferencesRequest changes UI preferences; omitted fields are kept
type PreferencesRequest struct {
	Language  *string `json:"language,omitempty"`
	UserCount *int    `json:"userCount,omitempty"`
}

// AuditLogs handles GET /api/audit-logs?limit=N
func (h *DashboardHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	logs, err := h.registry.AuditLogs(user, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"auditLogs": logs, "count": len(logs)})
}

// Stats handles GET /api/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	stats, err := h.registry.Stats(user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Portfolio handles GET /api/portfolio
func (h *DashboardHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.registry.Portfolio(user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// FieldSummary handles GET /api/field-summary
func (h *DashboardHandler) FieldSummary(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	fs, err := h.registry.FieldSummary(user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

// GetPreferences handles GET /api/preferences
func (h *DashboardHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	if _, err := sessionUser(r); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.registry.Preferences())
}

// UpdatePreferences handles PUT /api/preferences
func (h *DashboardHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req PreferencesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	prefs, warning, err := h.registry.UpdatePreferences(r.Context(), user, service.PreferencesUpdate{
		Language:  req.Language,
		UserCount: req.UserCount,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if warning != "" {
		w.Header().Set("X-Persistence-Warning", warning)
	}
	writeJSON(w, http.StatusOK, prefs)
}
