package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/auth"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	registry    *service.RegistryService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, registry *service.RegistryService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		registry:    registry,
		logger:      logger,
	}
}

// LoginRequest represents the login stub input. The role is self-selected.
type LoginRequest struct {
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
	Region       string `json:"region,omitempty"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Warn("failed to decode login request", slog.String("error", err.Error()))
		writeError(w, h.logger, err)
		return
	}

	result, err := h.authService.Login(r.Context(), auth.LoginRequest{
		Email:        req.Email,
		Role:         req.Role,
		Organization: req.Organization,
		Region:       req.Region,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	warning, err := h.authService.Logout(r.Context(), user)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := map[string]string{"message": "logged out"}
	if warning != "" {
		resp["warning"] = warning
	}
	writeJSON(w, http.StatusOK, resp)
}

// MeResponse describes the caller's session
type MeResponse struct {
	User        *domain.User `json:"user"`
	CurrentUser *domain.User `json:"currentUser"`
}

// Me handles GET /api/auth/me. currentUser is the most recent login on this
// server, which may differ from the caller when several users are signed in.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := sessionUser(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{User: user, CurrentUser: h.registry.CurrentUser()})
}
