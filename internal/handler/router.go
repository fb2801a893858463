package handler

import (
	"net/http"
)

// Routes groups the handlers served by the API
type Routes struct {
	Auth        *AuthHandler
	Submissions *SubmissionHandler
	Credits     *CreditHandler
	Dashboard   *DashboardHandler
	Health      *HealthHandler
	AuditStream *AuditStreamHandler
}

// Register mounts every route on mux
func (rt Routes) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", rt.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", rt.Auth.Logout)
	mux.HandleFunc("GET /api/auth/me", rt.Auth.Me)

	mux.HandleFunc("POST /api/submissions", rt.Submissions.Create)
	mux.HandleFunc("GET /api/submissions", rt.Submissions.List)
	mux.HandleFunc("GET /api/submissions/{id}", rt.Submissions.Get)
	mux.HandleFunc("POST /api/submissions/{id}/review", rt.Submissions.Review)
	mux.HandleFunc("POST /api/submissions/{id}/decision", rt.Submissions.Decide)

	mux.HandleFunc("GET /api/credits", rt.Credits.List)
	mux.HandleFunc("GET /api/credits/{id}", rt.Credits.Get)
	mux.HandleFunc("POST /api/credits/{id}/purchase", rt.Credits.Purchase)
	mux.HandleFunc("POST /api/credits/{id}/retire", rt.Credits.Retire)

	mux.HandleFunc("GET /api/audit-logs", rt.Dashboard.AuditLogs)
	mux.HandleFunc("GET /api/stats", rt.Dashboard.Stats)
	mux.HandleFunc("GET /api/portfolio", rt.Dashboard.Portfolio)
	mux.HandleFunc("GET /api/field-summary", rt.Dashboard.FieldSummary)
	mux.HandleFunc("GET /api/preferences", rt.Dashboard.GetPreferences)
	mux.HandleFunc("PUT /api/preferences", rt.Dashboard.UpdatePreferences)

	mux.HandleFunc("GET /healthz", rt.Health.Health)
	mux.HandleFunc("GET /readyz", rt.Health.Ready)

	if rt.AuditStream != nil {
		mux.Handle("GET /ws/audit", rt.AuditStream)
	}
}
