package ratelimit

import (
	"sync"
	"time"
)

const (
	sweepInterval = 5 * time.Minute
	idleAfter     = 15 * time.Minute
)

// Limiter is a sliding-window request limiter keyed by caller (user id or client address)
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxReqs int
	span    time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

type window struct {
	hits     []time.Time
	lastSeen time.Time
}

func NewLimiter(maxRequests int, span time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		maxReqs: maxRequests,
		span:    span,
		done:    make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow records a request for key and reports whether it fits the window
func (l *Limiter) Allow(key string) bool {
	if key == "" || l.maxReqs <= 0 {
		return true
	}
	return l.admit(key, l.maxReqs, l.span)
}

// AllowStrict applies a tighter, separately tracked budget, used for login
func (l *Limiter) AllowStrict(key string, maxReqs int, span time.Duration) bool {
	return l.admit("strict:"+key, maxReqs, span)
}

func (l *Limiter) admit(key string, maxReqs int, span time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok {
		w = &window{}
		l.windows[key] = w
	}
	w.lastSeen = now

	cutoff := now.Add(-span)
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept

	if len(w.hits) >= maxReqs {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.mu.Lock()
			for key, w := range l.windows {
				if now.Sub(w.lastSeen) > idleAfter {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}
