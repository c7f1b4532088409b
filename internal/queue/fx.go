package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/mina/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis ping failed", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

func provideQueue(client *redis.Client, cfg config.Config) (Enqueuer, Consumer) {
	q := NewRedisQueue(client, cfg.QueueName)
	return q, q
}

var Module = fx.Module("queue",
	fx.Provide(
		newRedisClient,
		provideQueue,
	),
)
