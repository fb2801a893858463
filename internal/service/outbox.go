package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

const (
	outboxSize     = 256
	publishTimeout = 5 * time.Second
)

// auditOutbox hands committed entries to an external publisher from a single
// goroutine, so they leave in the order they were enqueued. enqueue never
// blocks; a full outbox drops the entry and logs it.
type auditOutbox struct {
	entries   chan domain.AuditLog
	publisher AuditPublisher
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

func newAuditOutbox(publisher AuditPublisher, logger *slog.Logger) *auditOutbox {
	o := &auditOutbox{
		entries:   make(chan domain.AuditLog, outboxSize),
		publisher: publisher,
		logger:    logger,
		done:      make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *auditOutbox) enqueue(entry domain.AuditLog) {
	select {
	case o.entries <- entry:
	default:
		o.logger.Warn("audit outbox full, entry not published", slog.String("audit_id", entry.ID))
	}
}

func (o *auditOutbox) run() {
	defer close(o.done)
	for entry := range o.entries {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := o.publisher.Publish(ctx, entry); err != nil {
			o.logger.Warn("audit publish failed",
				slog.String("audit_id", entry.ID),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

// close stops accepting entries and waits for queued ones to be published
func (o *auditOutbox) close() {
	o.closeOnce.Do(func() { close(o.entries) })
	<-o.done
}
