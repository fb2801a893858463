package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

// CreditHandler serves the credit marketplace
type CreditHandler struct {
	registry *service.RegistryService
	logger   *slog.Logger
}

// NewCreditHandler creates a new credit handler
func NewCreditHandler(registry *service.RegistryService, logger *slog.Logger) *CreditHandler {
	return &CreditHandler{registry: registry, logger: logger}
}

// RetireRequest optionally annotates a retirement
type RetireRequest struct {
	Note string `json:"note,omitempty"`
}

// List handles GET /api/credits?status=&mine=true
func (h *CreditHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	filter := service.CreditFilter{
		Status: domain.CreditStatus(r.URL.Query().Get("status")),
		Mine:   queryBool(r, "mine"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, h.logger, &domain.ValidationError{Field: "status", Reason: "unknown credit status"})
		return
	}

	credits, err := h.registry.ListCredits(user, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"credits": credits, "count": len(credits)})
}

// Get handles GET /api/credits/{id}
func (h *CreditHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	credit, err := h.registry.GetCredit(user, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, credit)
}

// Purchase handles POST /api/credits/{id}/purchase
func (h *CreditHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	receipt, err := h.registry.PurchaseCredit(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// Retire handles POST /api/credits/{id}/retire
func (h *CreditHandler) Retire(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req RetireRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	receipt, err := h.registry.RetireCredit(r.Context(), user, r.PathValue("id"), req.Note)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
