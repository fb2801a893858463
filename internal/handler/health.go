package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

// Check probes one dependency
type Check func(ctx context.Context) error

type namedCheck struct {
	name     string
	critical bool
	check    Check
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	registry *service.RegistryService
	breaker  *circuitbreaker.CircuitBreaker
	logger   *slog.Logger

	mu     sync.RWMutex
	checks []namedCheck
}

// NewHealthHandler creates a new health handler. breaker may be nil when
// there is no remote store.
func NewHealthHandler(registry *service.RegistryService, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthHandler{
		registry: registry,
		breaker:  breaker,
		logger:   logger,
	}
}

// AddCheck registers a dependency probe. A failing critical check makes the
// server not ready; any other failure only reports it as degraded.
func (h *HealthHandler) AddCheck(name string, critical bool, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, critical: critical, check: check})
}

// HealthResponse represents the health status response
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse represents the readiness check response
type ReadinessResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	Breaker     string            `json:"remoteBreaker,omitempty"`
	PendingSync bool              `json:"pendingSync"`
}

// Health handles GET /healthz - Simple liveness check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready handles GET /readyz - Readiness check for Kubernetes
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	h.mu.RLock()
	checks := make([]namedCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	results := make(map[string]string, len(checks))
	status := "ready"
	statusCode := http.StatusOK
	for _, c := range checks {
		if err := c.check(ctx); err != nil {
			results[c.name] = "error: " + err.Error()
			if c.critical {
				status = "not_ready"
				statusCode = http.StatusServiceUnavailable
			} else if status == "ready" {
				status = "degraded"
			}
			continue
		}
		results[c.name] = "ok"
	}

	response := ReadinessResponse{
		Status:      status,
		Checks:      results,
		PendingSync: h.registry.PendingSync(),
	}
	if h.breaker != nil {
		response.Breaker = h.breaker.GetState().String()
	}

	writeJSON(w, statusCode, response)

	if status != "ready" {
		h.logger.Warn("readiness check",
			slog.String("status", status),
			slog.Any("checks", results),
		)
	}
}
