// Package redis holds the provider response cache and the lifecycle event
// queue. Both share one client whose timeouts bound every call, so a slow
// redis cannot stall the merged-incidents fan-out.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"trafine/internal/config"

	goredis "github.com/redis/go-redis/v9"
)

type Redis struct {
	Client *goredis.Client
}

func newClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:                  cfg.Addr,
		Password:              cfg.Password,
		DB:                    cfg.DB,
		PoolSize:              cfg.PoolSize,
		DialTimeout:           cfg.DialTimeout,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		ContextTimeoutEnabled: true,
	})
}

// NewRedis connects and pings once; the ping is bounded by DialTimeout.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*Redis, error) {
	const op = "redis.NewRedis"

	rdb := newClient(cfg)
	r := &Redis{Client: rdb}

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := r.Ping(ctx); err != nil {
		logger.Error("Failed to ping Redis", slog.String("op", op), slog.String("addr", cfg.Addr), slog.Any("error", err))
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("Connected to Redis",
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Duration("read_timeout", cfg.ReadTimeout),
	)

	return r, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
