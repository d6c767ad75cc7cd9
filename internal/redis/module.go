package redis

import (
	"context"

	"github.com/paylinelabs/payline/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("redis",
	fx.Provide(NewClient),
)

// NewClient connects to the shared Redis instance used for the sync run lock
// and the last-result cache. An empty address yields a nil client; callers
// treat that as "locking and caching disabled".
func NewClient(cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
