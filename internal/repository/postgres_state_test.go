package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
)

// fakePG is an in-memory database/sql driver that understands the three
// statements PostgresStateStore issues. Writes inside a transaction are
// staged and only become visible on commit.
type fakePG struct {
	mu        sync.Mutex
	rows      map[string][]byte
	migrated  bool
	execErr   error
	commits   int
	rollbacks int
}

func newFakePG() *fakePG {
	return &fakePG{rows: map[string][]byte{}}
}

func (f *fakePG) Connect(context.Context) (driver.Conn, error) { return &fakeConn{db: f}, nil }
func (f *fakePG) Driver() driver.Driver                        { return fakeDriver{f} }

type fakeDriver struct{ db *fakePG }

func (d fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{db: d.db}, nil }

type fakeConn struct {
	db     *fakePG
	staged map[string][]byte
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{conn: c, query: query}, nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	c.staged = map[string][]byte{}
	return &fakeTx{conn: c}, nil
}

type fakeTx struct{ conn *fakeConn }

func (t *fakeTx) Commit() error {
	db := t.conn.db
	db.mu.Lock()
	defer db.mu.Unlock()
	for k, v := range t.conn.staged {
		db.rows[k] = v
	}
	db.commits++
	t.conn.staged = nil
	return nil
}

func (t *fakeTx) Rollback() error {
	db := t.conn.db
	db.mu.Lock()
	defer db.mu.Unlock()
	db.rollbacks++
	t.conn.staged = nil
	return nil
}

type fakeStmt struct {
	conn  *fakeConn
	query string
}

func (s *fakeStmt) Close() error  { return nil }
func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	db := s.conn.db
	db.mu.Lock()
	defer db.mu.Unlock()

	switch {
	case strings.Contains(s.query, "CREATE TABLE"):
		db.migrated = true
	case strings.Contains(s.query, "INSERT INTO registry_state"):
		if db.execErr != nil {
			return nil, db.execErr
		}
		payload, _ := args[1].([]byte)
		key, _ := args[0].(string)
		if s.conn.staged != nil {
			s.conn.staged[key] = payload
		} else {
			db.rows[key] = payload
		}
	default:
		return nil, errors.New("unexpected statement: " + s.query)
	}
	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query(args []driver.Value) (driver.Rows, error) {
	db := s.conn.db
	db.mu.Lock()
	defer db.mu.Unlock()

	key, _ := args[0].(string)
	payload, ok := db.rows[key]
	if !ok {
		return &fakeRows{}, nil
	}
	return &fakeRows{values: [][]byte{payload}}, nil
}

type fakeRows struct {
	values [][]byte
	pos    int
}

func (r *fakeRows) Columns() []string { return []string{"payload"} }
func (r *fakeRows) Close() error      { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.values) {
		return io.EOF
	}
	dest[0] = r.values[r.pos]
	r.pos++
	return nil
}

func newPostgresFixture(t *testing.T) (*PostgresStateStore, *fakePG) {
	t.Helper()
	fake := newFakePG()
	db := sql.OpenDB(fake)
	t.Cleanup(func() { db.Close() })

	store := NewPostgresStateStore(db, nil)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !fake.migrated {
		t.Fatal("expected the state table to be created")
	}
	return store, fake
}

func TestPostgresStateStoreEmpty(t *testing.T) {
	store, _ := newPostgresFixture(t)
	st, err := store.Load(context.Background())
	if err != nil || st != nil {
		t.Fatalf("expected (nil, nil) before the first save, got (%v, %v)", st, err)
	}
}

func TestPostgresStateStoreRoundTrip(t *testing.T) {
	store, fake := newPostgresFixture(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleState(t0, 3)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if fake.commits != 1 {
		t.Fatalf("commits = %d, want 1", fake.commits)
	}
	st, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Submissions) != 3 || !st.UpdatedAt.Equal(t0) {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestPostgresStateStoreRollsBackFailedSave(t *testing.T) {
	store, fake := newPostgresFixture(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleState(t0, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}

	constraint := errors.New("pq: disk full")
	fake.execErr = constraint
	err := store.Save(ctx, sampleState(t0, 5))
	if !errors.Is(err, constraint) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
	if fake.rollbacks != 1 || fake.commits != 1 {
		t.Fatalf("commits=%d rollbacks=%d", fake.commits, fake.rollbacks)
	}

	fake.execErr = nil
	st, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(st.Submissions) != 1 {
		t.Fatalf("failed save must leave the previous document, got %d submissions", len(st.Submissions))
	}
}
