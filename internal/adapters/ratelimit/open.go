package ratelimit

import (
	"context"
	"fmt"
	"route-optimizer-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options selects and sizes a call budget backend.
type Options struct {
	Backend  string
	RedisURL string
	MaxCalls int
	Window   time.Duration
}

// Open builds the configured budget and a func releasing it. A redis
// backend is pinged before it is returned.
func Open(ctx context.Context, opts Options) (ports.CallBudget, func(), error) {
	if opts.Backend != BackendRedis {
		b, err := NewMemoryBudget(opts.MaxCalls, opts.Window)
		return b, func() {}, err
	}

	ro, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(ro)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}

	b, err := NewRedisBudget(client, opts.MaxCalls, opts.Window)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return b, func() { client.Close() }, nil
}
