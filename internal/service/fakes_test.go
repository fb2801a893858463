package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/workflow"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type memStateStore struct {
	mu      sync.Mutex
	state   *domain.AppState
	saves   int
	saveErr error
	loadErr error
}

func (m *memStateStore) Load(ctx context.Context) (*domain.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, m.loadErr
	}
	return m.state.Clone(), m.loadErr
}

func (m *memStateStore) Save(ctx context.Context, st *domain.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		var degraded *domain.DegradedError
		if !errors.As(m.saveErr, &degraded) || !degraded.Durable {
			return m.saveErr
		}
	}
	m.state = st.Clone()
	return m.saveErr
}

func (m *memStateStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type fakeScorer struct {
	mu       sync.Mutex
	calls    int
	analysis domain.Analysis
	err      error
}

func (f *fakeScorer) Analyze(ctx context.Context, imageRef string, eco domain.EcosystemType) (*domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	a := f.analysis
	return &a, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (p *recordingPublisher) Publish(ctx context.Context, entry domain.AuditLog) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
	return nil
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

type fixture struct {
	svc    *RegistryService
	store  *memStateStore
	scorer *fakeScorer
}

func newFixture() *fixture {
	store := &memStateStore{}
	scorer := &fakeScorer{analysis: domain.Analysis{
		ConfidenceScore:          0.92,
		HealthAssessment:         "Dense canopy",
		EstimatedCarbonPotential: 140,
		IsVerified:               true,
	}}
	clock := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	engine := workflow.NewEngine(workflow.DefaultPolicy(),
		workflow.WithIDGenerator(sequentialIDs()),
		workflow.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	svc := NewRegistryService(engine, store, scorer, quietLogger, DefaultOptions())
	return &fixture{svc: svc, store: store, scorer: scorer}
}

var (
	fisher  = &domain.User{ID: "f-1", Name: "ravi", Role: domain.RoleFisherman}
	fisher2 = &domain.User{ID: "f-2", Name: "asha", Role: domain.RoleFisherman}
	ngo     = &domain.User{ID: "n-1", Name: "marine", Role: domain.RoleNGO}
	admin   = &domain.User{ID: "a-1", Name: "nccr", Role: domain.RoleAdmin}
	corp    = &domain.User{ID: "c-1", Name: "acme", Role: domain.RoleCorporate}
	corp2   = &domain.User{ID: "c-2", Name: "globex", Role: domain.RoleCorporate}
)

var mangroveSite = SubmissionInput{
	ImageURL:  "https://img.example/mangrove.jpg",
	Location:  domain.Location{Lat: 21.9, Lng: 89.1, Region: "Sundarbans"},
	Ecosystem: domain.EcosystemMangrove,
}
