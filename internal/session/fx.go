package session

import (
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/payflow/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newStore(cfg config.Config, log *zap.Logger) Store {
	if cfg.RedisAddr == "" {
		log.Warn("REDIS_ADDR not set, falling back to in-memory session store")
		return NewMemoryStore()
	}
	return NewRedisStore(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}))
}

// Module wires the checkout session store and manager.
var Module = fx.Module("session",
	fx.Provide(newStore),
	fx.Provide(NewManager),
)
