package redis

import (
	"github.com/redis/go-redis/v9"

	"collabhub/internal/config"
)

// NewClient builds the Redis client used for the payment replay guard and
// the unread-notification cache.
func NewClient(cfg config.Redis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
