package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNil is returned when the requested document does not exist
var ErrNil = errors.New("redis: key not found")

// Documents are stored as a hash so the body and its timestamp change together.
const (
	fieldBody      = "body"
	fieldUpdatedAt = "updated_at"
)

// Client stores whole JSON documents in Redis
type Client struct {
	rdb *redis.Client
}

// NewClient parses url and verifies the server answers before returning
func NewClient(url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// WriteDocument replaces the document under key in a single MULTI/EXEC
func (c *Client) WriteDocument(ctx context.Context, key string, body []byte, updatedAt time.Time) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			fieldBody, body,
			fieldUpdatedAt, updatedAt.UTC().Format(time.RFC3339Nano),
		)
		return nil
	})
	return err
}

// ReadDocument returns the document body under key, or ErrNil
func (c *Client) ReadDocument(ctx context.Context, key string) ([]byte, error) {
	body, err := c.rdb.HGet(ctx, key, fieldBody).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNil
	}
	return body, err
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
