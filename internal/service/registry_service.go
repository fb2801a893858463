package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/observability/metrics"
	"github.com/aryan0dhankhar/bluecarbon/internal/observability/tracing"
	"github.com/aryan0dhankhar/bluecarbon/internal/security"
	"github.com/aryan0dhankhar/bluecarbon/internal/security/audit"
	"github.com/aryan0dhankhar/bluecarbon/internal/workflow"
	"github.com/aryan0dhankhar/bluecarbon/pkg/cache"

	"go.opentelemetry.io/otel/attribute"
)

// AuditPublisher forwards committed audit entries to an external stream
type AuditPublisher interface {
	Publish(ctx context.Context, entry domain.AuditLog) error
}

// syncingStore is implemented by stores that can fall behind a remote copy
type syncingStore interface {
	Pending() bool
	Sync(ctx context.Context, state *domain.AppState) (bool, error)
}

// Options tunes the registry service
type Options struct {
	DefaultSiteArea float64       // hectares, used when a submission omits its area
	CreditPriceUSD  float64       // per ton, informational
	ScorerTimeout   time.Duration // bound on one scoring call
	AnalysisTTL     time.Duration // cache lifetime of a successful analysis
	SaveTimeout     time.Duration // bound on one state save
	OfflineScoring  bool          // skip the scorer and always use the fallback analysis
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		DefaultSiteArea: 0.5,
		CreditPriceUSD:  15,
		ScorerTimeout:   10 * time.Second,
		AnalysisTTL:     time.Hour,
		SaveTimeout:     5 * time.Second,
	}
}

// Receipt is returned by every mutation. Warning is set when the change was
// committed in memory but could not be fully persisted.
type Receipt struct {
	Submission *domain.Submission   `json:"submission,omitempty"`
	Credit     *domain.CarbonCredit `json:"credit,omitempty"`
	Audit      *domain.AuditLog     `json:"audit,omitempty"`
	PriceUSD   float64              `json:"priceUsd,omitempty"`
	Warning    string               `json:"warning,omitempty"`
}

// RegistryService owns the in-memory registry state. All mutations are
// serialized by mu and persisted before the lock is released, so saves are
// written in commit order. Audit entries are handed to the live feed and the
// external publisher under the same lock, so they leave in commit order too.
type RegistryService struct {
	mu    sync.Mutex
	state *domain.AppState

	engine      *workflow.Engine
	store       domain.StateStore
	scorer      domain.Scorer
	analyses    *cache.Cache[domain.Analysis]
	authz       *security.AuthorizationService
	auditLog    *audit.Logger
	broadcaster *AuditBroadcaster
	outbox      *auditOutbox
	logger      *slog.Logger
	opts        Options
	now         func() time.Time
}

// NewRegistryService creates a new registry service. scorer may be nil.
func NewRegistryService(
	engine *workflow.Engine,
	store domain.StateStore,
	scorer domain.Scorer,
	logger *slog.Logger,
	opts Options,
) *RegistryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistryService{
		state:       domain.NewAppState(),
		engine:      engine,
		store:       store,
		scorer:      scorer,
		analyses:    cache.New[domain.Analysis](),
		authz:       security.NewAuthorizationService(logger),
		auditLog:    audit.NewLogger(logger),
		broadcaster: NewAuditBroadcaster(logger),
		logger:      logger,
		opts:        opts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetPublisher attaches an external audit stream, replacing any previous one
func (s *RegistryService) SetPublisher(p AuditPublisher) {
	s.mu.Lock()
	prev := s.outbox
	s.outbox = newAuditOutbox(p, s.logger)
	s.mu.Unlock()
	if prev != nil {
		prev.close()
	}
}

// Close flushes audit entries still queued for the external publisher
func (s *RegistryService) Close() {
	s.mu.Lock()
	o := s.outbox
	s.outbox = nil
	s.mu.Unlock()
	if o != nil {
		o.close()
	}
}

// Broadcaster returns the in-process audit fan-out
func (s *RegistryService) Broadcaster() *AuditBroadcaster {
	return s.broadcaster
}

// Options returns the service options
func (s *RegistryService) Options() Options {
	return s.opts
}

// Bootstrap loads the persisted state. A missing state starts empty; a
// degraded load (remote down) proceeds with the local copy. Bootstrap never
// stops startup: when no copy can be read at all the registry starts empty
// and the returned *domain.DegradedError says so. The unreadable snapshots
// are left in place; the next save appends a fresh one.
func (s *RegistryService) Bootstrap(ctx context.Context) error {
	var loadFailure error
	st, err := s.store.Load(ctx)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDegraded):
		s.logger.Warn("state loaded from fallback", slog.String("error", err.Error()))
	default:
		s.logger.Error("persisted state unreadable, starting empty", slog.String("error", err.Error()))
		st = nil
		loadFailure = &domain.DegradedError{Service: "state", Durable: false, Err: err}
	}
	if st == nil {
		s.logger.Info("no persisted state, starting empty")
		st = domain.NewAppState()
	}
	st.Normalize()
	if err := workflow.CheckInvariants(st); err != nil {
		s.logger.Warn("persisted state violates invariants", slog.String("error", err.Error()))
	}

	s.mu.Lock()
	s.state = st
	counts := statusCounts(st)
	s.mu.Unlock()

	metrics.SetSubmissionCounts(counts)
	s.logger.Info("registry state loaded",
		slog.Int("submissions", len(st.Submissions)),
		slog.Int("credits", len(st.Credits)),
		slog.Int("audit_entries", len(st.AuditLogs)),
	)
	return loadFailure
}

// Snapshot returns a deep copy of the current state
func (s *RegistryService) Snapshot() *domain.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// SyncPending pushes the current state to the remote store when it is behind
func (s *RegistryService) SyncPending(ctx context.Context) (bool, error) {
	syncer, ok := s.store.(syncingStore)
	if !ok || !syncer.Pending() {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return syncer.Sync(ctx, s.state)
}

// PurgeAnalyses evicts expired scoring results and returns how many were removed
func (s *RegistryService) PurgeAnalyses() int {
	return s.analyses.Purge()
}

// PendingSync reports whether the remote copy is behind
func (s *RegistryService) PendingSync() bool {
	syncer, ok := s.store.(syncingStore)
	return ok && syncer.Pending()
}

// apply runs one workflow command, persists the result and fans out the audit entry
func (s *RegistryService) apply(ctx context.Context, label string, cmd workflow.Command, actor *domain.User) (*workflow.Event, string, error) {
	ctx, span := tracing.Start(ctx, "registry."+label, attribute.String("registry.action", label))

	s.mu.Lock()
	next, ev, err := s.engine.Apply(s.state, cmd)
	if err != nil {
		s.mu.Unlock()
		metrics.ObserveCommand(label, "rejected")
		if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrNoSession) {
			s.auditLog.LogDenied(ctx, actor, label, err.Error())
		}
		tracing.End(span, err)
		return nil, "", err
	}
	s.state = next
	warning := s.persist(ctx, next)
	counts := statusCounts(next)
	if ev.Audit.ID != "" {
		s.fanOutLocked(ctx, ev.Audit)
	}
	s.mu.Unlock()

	metrics.ObserveCommand(label, "ok")
	metrics.SetSubmissionCounts(counts)
	span.SetAttributes(attribute.String("registry.target", ev.TargetID))
	tracing.End(span, nil)
	return ev, warning, nil
}

// commitSession replaces state for unaudited session changes. Caller holds mu.
func (s *RegistryService) commitSession(ctx context.Context, next *domain.AppState) string {
	s.state = next
	return s.persist(ctx, next)
}

// persist saves state with a bounded, cancellation-free context so a client
// disconnect cannot abandon a save half way. Caller holds mu.
func (s *RegistryService) persist(ctx context.Context, st *domain.AppState) string {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.SaveTimeout)
	defer cancel()

	err := s.store.Save(saveCtx, st)
	if err == nil {
		metrics.ObservePersistence("ok")
		return ""
	}

	var degraded *domain.DegradedError
	if errors.As(err, &degraded) && degraded.Durable {
		metrics.ObservePersistence("degraded")
		s.logger.Warn("state saved with degraded durability",
			slog.String("service", degraded.Service),
			slog.String("error", degraded.Err.Error()),
		)
		return "Saved locally; " + degraded.Service + " sync pending"
	}

	metrics.ObservePersistence("failed")
	s.logger.Error("state not persisted", slog.String("error", err.Error()))
	return "Change applied but not persisted: storage unavailable"
}

// fanOutLocked never blocks: lagging subscribers and a full outbox drop
// entries instead. Caller holds mu.
func (s *RegistryService) fanOutLocked(ctx context.Context, entry domain.AuditLog) {
	s.auditLog.LogEntry(ctx, entry)
	s.broadcaster.Publish(entry)
	if s.outbox != nil {
		s.outbox.enqueue(entry)
	}
}

func statusCounts(st *domain.AppState) map[string]int {
	counts := make(map[string]int, len(domain.SubmissionStatuses))
	for _, status := range domain.SubmissionStatuses {
		counts[string(status)] = 0
	}
	for _, sub := range st.Submissions {
		counts[string(sub.Status)]++
	}
	return counts
}

func auditPtr(ev *workflow.Event) *domain.AuditLog {
	if ev.Audit.ID == "" {
		return nil
	}
	entry := ev.Audit
	return &entry
}
