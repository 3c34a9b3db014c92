package ratelimit

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/uplinehq/upline/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewTokenBucket),
)

// NewRedisClient returns nil when no Redis address is configured; the
// limiter then degrades to a pass-through.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return err
			}
			log.Info("redis connected", zap.String("addr", cfg.RedisAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = ctx
			return client.Close()
		},
	})
	return client
}
