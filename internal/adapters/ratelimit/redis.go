package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"route-optimizer-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "route-budget:"

// The counter key expires one window after the first call in it, so the
// next call after expiry starts a fresh window.
var fixedWindowScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if n == 1 or ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisBudget shares call windows between service instances.
type RedisBudget struct {
	client   redis.UniversalClient
	prefix   string
	maxCalls int
	window   time.Duration
}

var _ ports.CallBudget = (*RedisBudget)(nil)

func NewRedisBudget(client redis.UniversalClient, maxCalls int, w time.Duration) (*RedisBudget, error) {
	if client == nil {
		return nil, errors.New("redis budget: client is nil")
	}
	if maxCalls < 1 {
		return nil, errors.New("redis budget: max calls must be positive")
	}
	if w < time.Millisecond {
		return nil, errors.New("redis budget: window must be at least 1ms")
	}
	return &RedisBudget{
		client:   client,
		prefix:   defaultKeyPrefix,
		maxCalls: maxCalls,
		window:   w,
	}, nil
}

func (b *RedisBudget) Allow(ctx context.Context, key string) (ports.BudgetDecision, error) {
	res, err := fixedWindowScript.Run(ctx, b.client, []string{b.prefix + key}, b.window.Milliseconds()).Int64Slice()
	if err != nil {
		return ports.BudgetDecision{}, fmt.Errorf("redis budget: allow %q: %w", key, err)
	}
	if len(res) != 2 {
		return ports.BudgetDecision{}, fmt.Errorf("redis budget: allow %q: unexpected reply %v", key, res)
	}

	count, ttl := int(res[0]), time.Duration(res[1])*time.Millisecond
	if count > b.maxCalls {
		return ports.BudgetDecision{Allowed: false, RetryAfter: ttl}, nil
	}
	return ports.BudgetDecision{Allowed: true, Remaining: b.maxCalls - count}, nil
}

func (b *RedisBudget) Reset(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, b.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis budget: reset %q: %w", key, err)
	}
	return nil
}
