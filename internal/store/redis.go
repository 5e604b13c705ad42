package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the shared client behind the stats cache and the event queue.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects with the dial timeout and pool size from config. Read and
// write deadlines are half the dial timeout; cache and queue round-trips here
// are all small single-key operations.
func NewRedis(addr string, dialTimeout time.Duration, poolSize int) *Redis {
	if dialTimeout <= 0 {
		dialTimeout = 2 * time.Second
	}
	if poolSize <= 0 {
		poolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  dialTimeout,
		ReadTimeout:  dialTimeout / 2,
		WriteTimeout: dialTimeout / 2,
		PoolSize:     poolSize,
		MinIdleConns: 1,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
