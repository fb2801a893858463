package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/infrastructure/redis"
)

// documentStore is the subset of the redis client the state store needs
type documentStore interface {
	ReadDocument(ctx context.Context, key string) ([]byte, error)
	WriteDocument(ctx context.Context, key string, body []byte, updatedAt time.Time) error
}

// RedisStateStore keeps the registry document in one hash with no expiry
type RedisStateStore struct {
	redis  documentStore
	logger *slog.Logger
}

// NewRedisStateStore creates a new redis-backed state store
func NewRedisStateStore(client documentStore, logger *slog.Logger) *RedisStateStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStateStore{
		redis:  client,
		logger: logger,
	}
}

// Load returns the stored state, or nil when the key is absent
func (r *RedisStateStore) Load(ctx context.Context) (*domain.AppState, error) {
	data, err := r.redis.ReadDocument(ctx, StateKey)
	if errors.Is(err, redis.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	return decodeState(data)
}

// Save overwrites the stored document
func (r *RedisStateStore) Save(ctx context.Context, state *domain.AppState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	if err := r.redis.WriteDocument(ctx, StateKey, data, state.UpdatedAt); err != nil {
		return fmt.Errorf("failed to store state: %w", err)
	}

	r.logger.Debug("state saved", slog.String("backend", "redis"))
	return nil
}
