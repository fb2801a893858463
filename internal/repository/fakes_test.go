package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/infrastructure/redis"
)

var errBackendDown = errors.New("backend down")

type memStore struct {
	mu      sync.Mutex
	state   *domain.AppState
	saves   int
	loadErr error
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (*domain.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.state == nil {
		return nil, nil
	}
	return m.state.Clone(), nil
}

func (m *memStore) Save(ctx context.Context, state *domain.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.state = state.Clone()
	return nil
}

type memDocs struct {
	data    map[string]string
	updated map[string]time.Time
}

func newMemDocs() *memDocs {
	return &memDocs{data: map[string]string{}, updated: map[string]time.Time{}}
}

func (m *memDocs) ReadDocument(ctx context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, redis.ErrNil
	}
	return []byte(v), nil
}

func (m *memDocs) WriteDocument(ctx context.Context, key string, body []byte, updatedAt time.Time) error {
	m.data[key] = string(body)
	m.updated[key] = updatedAt
	return nil
}

func sampleState(updated time.Time, submissions int) *domain.AppState {
	st := domain.NewAppState()
	for i := 0; i < submissions; i++ {
		st.Submissions = append(st.Submissions, domain.Submission{
			ID:            "sub-" + string(rune('a'+i)),
			UserID:        "f-1",
			UserName:      "ravi",
			Status:        domain.StatusPending,
			EcosystemType: domain.EcosystemMangrove,
			Timestamp:     updated,
		})
	}
	st.UpdatedAt = updated
	return st
}
