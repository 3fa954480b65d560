package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fedorten/resursGraf/internal/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "resursgraf:history:"

// Redis stores each history as one JSON value without expiry; staleness is
// decided by the service from FetchedAt.
type Redis struct {
	rdb *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func redisKey(resource string) string { return redisKeyPrefix + resource }

func (r *Redis) Load(ctx context.Context, resource string) (*models.History, error) {
	b, err := r.rdb.Get(ctx, redisKey(resource)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", resource, err)
	}

	var h models.History
	if err := json.Unmarshal(b, &h); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", resource, err)
	}
	return &h, nil
}

func (r *Redis) Save(ctx context.Context, h *models.History) error {
	b, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode history %s: %w", h.Resource, err)
	}
	if err := r.rdb.Set(ctx, redisKey(h.Resource), b, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", h.Resource, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
