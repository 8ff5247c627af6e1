package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beautifulqr/qrgen/pkg/config"
	"github.com/beautifulqr/qrgen/pkg/logger"
)

// Redis shares renderings between server replicas.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "qrgen:render:"
	}
	return &Redis{client: client, prefix: prefix}, nil
}

// Get treats every Redis error as a miss; the caller renders instead.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WarnCF("cache", "Redis get failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, false
	}
	return data, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		logger.WarnCF("cache", "Redis set failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
