package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carelane/voicedesk/pkg/dialog"
)

// keyPrefix namespaces call state keys in a shared Redis instance.
const keyPrefix = "voicedesk:call:"

// Redis is a Store backed by a Redis instance, for deployments where
// more than one process serves calls. TTL handling is delegated to
// Redis key expiry.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("store: redis address is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}

	return &Redis{client: client, ttl: cfg.TTL}, nil
}

// Create stores the initial state for a call.
func (r *Redis) Create(ctx context.Context, st *dialog.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, keyPrefix+st.CallID, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("store: redis setnx: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	return nil
}

// Get returns a copy of the stored state for a call.
func (r *Redis) Get(ctx context.Context, callID string) (*dialog.State, error) {
	data, err := r.client.Get(ctx, keyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get: %w", err)
	}
	return decode(data)
}

// Update replaces the state for a live call and refreshes its TTL.
func (r *Redis) Update(ctx context.Context, st *dialog.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}

	ok, err := r.client.SetXX(ctx, keyPrefix+st.CallID, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("store: redis setxx: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes a call's state. Absent calls are fine.
func (r *Redis) Delete(ctx context.Context, callID string) error {
	if err := r.client.Del(ctx, keyPrefix+callID).Err(); err != nil {
		return fmt.Errorf("store: redis del: %w", err)
	}
	return nil
}

// Ping reports whether the backend is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Store = (*Redis)(nil)
