package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

// SubmissionHandler serves the submission workflow
type SubmissionHandler struct {
	registry *service.RegistryService
	logger   *slog.Logger
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(registry *service.RegistryService, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{registry: registry, logger: logger}
}

// CreateSubmissionRequest is a field report. estimatedArea is optional.
type CreateSubmissionRequest struct {
	ImageURL      string          `json:"imageUrl"`
	Location      domain.Location `json:"location"`
	EcosystemType string          `json:"ecosystemType"`
	EstimatedArea float64         `json:"estimatedArea,omitempty"`
}

// DecisionRequest carries a review or issuance decision
type DecisionRequest struct {
	Decision string `json:"decision"`
	Comments string `json:"comments,omitempty"`
}

// Create handles POST /api/submissions
func (h *SubmissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req CreateSubmissionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	receipt, err := h.registry.CreateSubmission(r.Context(), user, service.SubmissionInput{
		ImageURL:      req.ImageURL,
		Location:      req.Location,
		Ecosystem:     domain.EcosystemType(req.EcosystemType),
		EstimatedArea: req.EstimatedArea,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

// List handles GET /api/submissions?status=&queue=review|issuance&mine=true
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	q := r.URL.Query()
	filter := service.SubmissionFilter{
		Status: domain.SubmissionStatus(q.Get("status")),
		Queue:  q.Get("queue"),
		Mine:   queryBool(r, "mine"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, h.logger, &domain.ValidationError{Field: "status", Reason: "unknown submission status"})
		return
	}

	subs, err := h.registry.ListSubmissions(user, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"submissions": subs, "count": len(subs)})
}

// Get handles GET /api/submissions/{id}
func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sub, err := h.registry.GetSubmission(user, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Review handles POST /api/submissions/{id}/review (NGO: approve, reject, flag)
func (h *SubmissionHandler) Review(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registry.ReviewSubmission)
}

// Decide handles POST /api/submissions/{id}/decision (ADMIN: issue, reject)
func (h *SubmissionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registry.DecideSubmission)
}

type decisionFunc func(ctx context.Context, actor *domain.User, id, decision, comments string) (*service.Receipt, error)

func (h *SubmissionHandler) decide(w http.ResponseWriter, r *http.Request, apply decisionFunc) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req DecisionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	receipt, err := apply(r.Context(), user, r.PathValue("id"), req.Decision, req.Comments)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
