package service

import (
	"log/slog"
	"sync"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/observability/metrics"
)

const subscriberBuffer = 32

// AuditBroadcaster fans committed audit entries out to live subscribers.
// A subscriber that falls behind loses entries rather than blocking commits.
type AuditBroadcaster struct {
	mu          sync.Mutex
	subscribers map[chan domain.AuditLog]struct{}
	logger      *slog.Logger
}

// NewAuditBroadcaster creates an empty broadcaster
func NewAuditBroadcaster(logger *slog.Logger) *AuditBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditBroadcaster{
		subscribers: make(map[chan domain.AuditLog]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener. The returned cancel func closes the channel.
func (b *AuditBroadcaster) Subscribe() (<-chan domain.AuditLog, func()) {
	ch := make(chan domain.AuditLog, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	metrics.IncrementSubscribers()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers, ch)
			close(ch)
			b.mu.Unlock()
			metrics.DecrementSubscribers()
		})
	}
	return ch, cancel
}

// Publish delivers entry to every subscriber without blocking
func (b *AuditBroadcaster) Publish(entry domain.AuditLog) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- entry:
		default:
			b.logger.Warn("audit subscriber lagging, entry dropped", slog.String("audit_id", entry.ID))
		}
	}
}

// Subscribers returns the number of live subscribers
func (b *AuditBroadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
