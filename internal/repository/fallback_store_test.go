package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/reliability/retry"
)

func newTestFallback(remote, local *memStore) *FallbackStore {
	var r domain.StateStore
	if remote != nil {
		r = remote
	}
	return NewFallbackStore(r, "postgres", local, nil).WithRetry(&retry.Config{
		MaxAttempts:       1,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	})
}

func TestFallbackSaveWritesBoth(t *testing.T) {
	remote, local := &memStore{}, &memStore{}
	store := newTestFallback(remote, local)

	if err := store.Save(context.Background(), sampleState(t0, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if remote.saves != 1 || local.saves != 1 {
		t.Fatalf("expected one save each, got remote=%d local=%d", remote.saves, local.saves)
	}
	if store.Pending() {
		t.Fatal("nothing should be pending")
	}
}

func TestFallbackSaveRemoteDown(t *testing.T) {
	remote, local := &memStore{saveErr: errBackendDown}, &memStore{}
	store := newTestFallback(remote, local)

	err := store.Save(context.Background(), sampleState(t0, 1))
	var degraded *domain.DegradedError
	if !errors.As(err, &degraded) {
		t.Fatalf("expected DegradedError, got %v", err)
	}
	if !degraded.Durable || degraded.Service != "postgres" {
		t.Fatalf("unexpected degraded error %+v", degraded)
	}
	if !errors.Is(err, domain.ErrDegraded) || !errors.Is(err, errBackendDown) {
		t.Fatalf("error chain incomplete: %v", err)
	}
	if local.saves != 1 || !store.Pending() {
		t.Fatalf("expected local save and pending sync")
	}

	remote.saveErr = nil
	synced, err := store.Sync(context.Background(), sampleState(t0, 1))
	if err != nil || !synced {
		t.Fatalf("sync: synced=%v err=%v", synced, err)
	}
	if store.Pending() || remote.saves != 1 {
		t.Fatalf("expected remote caught up")
	}
}

func TestFallbackSaveBothDown(t *testing.T) {
	store := newTestFallback(&memStore{saveErr: errBackendDown}, &memStore{saveErr: errors.New("disk full")})
	err := store.Save(context.Background(), sampleState(t0, 1))
	var degraded *domain.DegradedError
	if !errors.As(err, &degraded) || degraded.Durable {
		t.Fatalf("expected non-durable DegradedError, got %v", err)
	}
}

func TestFallbackLoadPrefersNewest(t *testing.T) {
	remote := &memStore{state: sampleState(t0, 1)}
	local := &memStore{state: sampleState(t0.Add(time.Minute), 2)}
	store := newTestFallback(remote, local)

	st, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Submissions) != 2 {
		t.Fatalf("expected local (newer) copy, got %d submissions", len(st.Submissions))
	}
	if !store.Pending() {
		t.Fatal("newer local copy should schedule a sync")
	}

	remote.state = sampleState(t0.Add(time.Hour), 3)
	st, err = store.Load(context.Background())
	if err != nil || len(st.Submissions) != 3 {
		t.Fatalf("expected remote copy, got %v %v", st, err)
	}
}

func TestFallbackLoadRemoteDown(t *testing.T) {
	local := &memStore{state: sampleState(t0, 1)}
	store := newTestFallback(&memStore{loadErr: errBackendDown}, local)

	st, err := store.Load(context.Background())
	if !errors.Is(err, domain.ErrDegraded) {
		t.Fatalf("expected degraded load, got %v", err)
	}
	if st == nil || len(st.Submissions) != 1 {
		t.Fatalf("expected local copy, got %v", st)
	}
}

func TestFallbackLoadEmpty(t *testing.T) {
	store := newTestFallback(&memStore{}, &memStore{})
	st, err := store.Load(context.Background())
	if err != nil || st != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", st, err)
	}
}

func TestFallbackLocalOnly(t *testing.T) {
	local := &memStore{}
	store := newTestFallback(nil, local)
	if err := store.Save(context.Background(), sampleState(t0, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	synced, err := store.Sync(context.Background(), sampleState(t0, 1))
	if synced || err != nil {
		t.Fatalf("local-only store never syncs, got %v %v", synced, err)
	}
}
