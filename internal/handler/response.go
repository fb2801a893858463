package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/middleware"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// maxBodyBytes bounds request bodies; image references are URLs, not uploads
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized, "no_session"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "authorization"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrCreditUnavailable):
		var cu *domain.CreditUnavailableError
		if errors.As(err, &cu) && cu.NotFound() {
			return http.StatusNotFound, "not_found"
		}
		return http.StatusConflict, "credit_unavailable"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrDegraded):
		return http.StatusServiceUnavailable, "degraded"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, kind := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", msg))
		msg = "internal error"
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}

// decodeBody reads a JSON body; an empty body leaves v untouched
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return &domain.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

// sessionUser returns the user the JWT middleware attached, or ErrNoSession
func sessionUser(r *http.Request) (*domain.User, error) {
	u := middleware.GetUserFromContext(r.Context())
	if u == nil {
		return nil, domain.ErrNoSession
	}
	return u, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &domain.ValidationError{Field: key, Reason: "must be a non-negative integer"}
	}
	return n, nil
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
