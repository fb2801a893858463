package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/observability/metrics"
)

// Registry is the part of the registry service the sync worker drives
type Registry interface {
	SyncPending(ctx context.Context) (bool, error)
	PurgeAnalyses() int
}

// SyncWorker periodically pushes locally saved state to the remote store
// after an outage and evicts expired scoring results
type SyncWorker struct {
	registry Registry
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// DefaultInterval is used when a non-positive interval is configured
const DefaultInterval = 30 * time.Second

// NewSyncWorker creates a new sync worker
func NewSyncWorker(registry Registry, logger *slog.Logger, interval time.Duration) *SyncWorker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &SyncWorker{
		registry: registry,
		logger:   logger,
		interval: interval,
		timeout:  30 * time.Second,
	}
}

// Start begins the worker loop; it returns when ctx is cancelled
func (w *SyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("sync worker started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sync worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sync and cache sweep
func (w *SyncWorker) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	synced, err := w.registry.SyncPending(runCtx)
	switch {
	case err != nil:
		metrics.ObserveSync("failed")
		w.logger.Warn("remote sync failed, will retry",
			slog.String("error", err.Error()),
		)
	case synced:
		metrics.ObserveSync("ok")
		w.logger.Info("pending state synced to remote store")
	default:
		metrics.ObserveSync("idle")
	}

	if n := w.registry.PurgeAnalyses(); n > 0 {
		w.logger.Debug("expired analyses evicted", slog.Int("count", n))
	}
}
