package test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/handler"
	"github.com/aryan0dhankhar/bluecarbon/internal/observability/metrics"
	"github.com/aryan0dhankhar/bluecarbon/internal/reliability/retry"
	"github.com/aryan0dhankhar/bluecarbon/internal/repository"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/audit"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/auth"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/middleware"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/ratelimit"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
	"github.com/aryan0dhankhar/bluecarbon/internal/worker"
	"github.com/aryan0dhankhar/bluecarbon/internal/workflow"
)

// flakyStore is an in-memory remote store that can be switched off
type flakyStore struct {
	mu    sync.Mutex
	down  bool
	state *domain.AppState
}

func (f *flakyStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyStore) Load(ctx context.Context) (*domain.AppState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, errors.New("connection refused")
	}
	if f.state == nil {
		return nil, nil
	}
	return f.state.Clone(), nil
}

func (f *flakyStore) Save(ctx context.Context, st *domain.AppState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return errors.New("connection refused")
	}
	f.state = st.Clone()
	return nil
}

func (f *flakyStore) submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == nil {
		return 0
	}
	return len(f.state.Submissions)
}

// TestServerHelper runs the full HTTP stack on a temporary SQLite file and a flaky remote
type TestServerHelper struct {
	Server   *httptest.Server
	Logger   *slog.Logger
	Registry *service.RegistryService
	Worker   *worker.SyncWorker

	t       *testing.T
	remote  *flakyStore
	local   *repository.SQLiteStateStore
	limiter *ratelimit.Limiter
	once    sync.Once
}

// NewTestServer starts a server. Passing the same dir and remote simulates a restart.
func NewTestServer(t *testing.T, dir string, remote *flakyStore) *TestServerHelper {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	local, err := repository.NewSQLiteStateStore(filepath.Join(dir, "state.db"), 5, log)
	if err != nil {
		t.Fatalf("open local store: %v", err)
	}
	store := repository.NewFallbackStore(remote, "postgres", local, log).WithRetry(&retry.Config{
		MaxAttempts:       1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	})

	registry := service.NewRegistryService(workflow.NewEngine(workflow.DefaultPolicy()), store, nil, log, service.DefaultOptions())
	if err := registry.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	tokens := auth.NewTokenManager("integration", "bluecarbon")
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	health := handler.NewHealthHandler(registry, store.Breaker(), log)
	health.AddCheck("local", true, func(ctx context.Context) error {
		_, err := local.SnapshotCount(ctx)
		return err
	})
	health.AddCheck("postgres", false, func(ctx context.Context) error {
		_, err := remote.Load(ctx)
		return err
	})

	routes := handler.Routes{
		Auth:        handler.NewAuthHandler(service.NewAuthService(auth.NewDirectory(), tokens, registry, time.Hour, log), registry, log),
		Submissions: handler.NewSubmissionHandler(registry, log),
		Credits:     handler.NewCreditHandler(registry, log),
		Dashboard:   handler.NewDashboardHandler(registry, log),
		Health:      health,
		AuditStream: handler.NewAuditStreamHandler(registry, log, nil),
	}
	mux := http.NewServeMux()
	routes.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	root := middleware.Chain(
		metrics.HTTPMetricsMiddleware(mux),
		middleware.RequestIDMiddleware,
		middleware.CORSMiddleware([]string{"http://localhost:5173"}),
		middleware.SanitizeInputs(log),
		middleware.JWTMiddleware(tokens, log),
		middleware.RateLimitMiddleware(limiter, log),
		middleware.AuditMiddleware(audit.NewLogger(log)),
		middleware.ValidateJSONContentType(log),
	)

	h := &TestServerHelper{
		Server:   httptest.NewServer(root),
		Logger:   log,
		Registry: registry,
		Worker:   worker.NewSyncWorker(registry, log, time.Hour),
		t:        t,
		remote:   remote,
		local:    local,
		limiter:  limiter,
	}
	t.Cleanup(h.Close)
	return h
}

func (h *TestServerHelper) Close() {
	h.once.Do(func() {
		h.Server.Close()
		h.limiter.Stop()
		h.local.Close()
	})
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Do sends a JSON request and decodes a JSON response into out when non-nil
func (h *TestServerHelper) Do(method, path, token string, body, out interface{}) *http.Response {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.URL()+path, r)
	if err != nil {
		h.t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			h.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

// Login signs in and returns the bearer token
func (h *TestServerHelper) Login(email, role string) string {
	h.t.Helper()
	var res service.LoginResult
	resp := h.Do(http.MethodPost, "/api/auth/login", "", handler.LoginRequest{Email: email, Role: role}, &res)
	AssertStatusCode(h.t, resp, http.StatusOK)
	return res.Token
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType helper function
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); ct != expected {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}
