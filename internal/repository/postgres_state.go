package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
)

// PostgresStateStore keeps the registry document in a single JSONB row
type PostgresStateStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStateStore creates a new postgres-backed state store
func NewPostgresStateStore(db *sql.DB, logger *slog.Logger) *PostgresStateStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStateStore{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the state table when missing
func (r *PostgresStateStore) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS registry_state (
			id         TEXT PRIMARY KEY,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate registry_state: %w", err)
	}
	return nil
}

// Load returns the stored state, or nil when nothing was saved yet
func (r *PostgresStateStore) Load(ctx context.Context) (*domain.AppState, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM registry_state WHERE id = $1`,
		StateKey,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to load state", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return decodeState(payload)
}

// Save upserts the whole document inside one transaction
func (r *PostgresStateStore) Save(ctx context.Context, state *domain.AppState) error {
	payload, err := encodeState(state)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO registry_state (id, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, StateKey, payload, state.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state: %w", err)
	}

	r.logger.Debug("state saved",
		slog.String("backend", "postgres"),
		slog.Int("submissions", len(state.Submissions)),
		slog.Int("credits", len(state.Credits)),
	)
	return nil
}
