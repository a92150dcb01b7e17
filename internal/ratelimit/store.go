package ratelimit

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const keyPrefix = "fidelia:ratelimit"

// New builds a limiter for the formatted rate (e.g. "10-M"). A nil client keeps counters in memory.
func New(rate string, client *redis.Client) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", rate, err)
	}
	var store limiter.Store
	if client != nil {
		store, err = limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: keyPrefix})
		if err != nil {
			return nil, fmt.Errorf("redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: keyPrefix})
	}
	return limiter.New(store, parsed), nil
}
