package main

import (
	"context"
	"errors"
	"fmt"
	"route-optimizer-service/internal/adapters/ratelimit"
	"route-optimizer-service/internal/config"

	"go.uber.org/zap"
)

var errLocalBudget = errors.New("memory call budgets live inside each server process; restart the server or use RATE_LIMIT_BACKEND=redis")

// resetBudget clears the shared call budget window of one caller key.
func resetBudget(ctx context.Context, logger *zap.Logger, cfg config.RateLimitConfig, key string) error {
	if cfg.Backend != ratelimit.BackendRedis {
		return fmt.Errorf("reset budget %q: %w", key, errLocalBudget)
	}

	budget, release, err := ratelimit.Open(ctx, ratelimit.Options{
		Backend:  cfg.Backend,
		RedisURL: cfg.RedisURL,
		MaxCalls: cfg.MaxCalls,
		Window:   cfg.Window,
	})
	if err != nil {
		return fmt.Errorf("reset budget %q: %w", key, err)
	}
	defer release()

	if err := budget.Reset(ctx, key); err != nil {
		return fmt.Errorf("reset budget %q: %w", key, err)
	}
	logger.Info("Call budget cleared.", zap.String("key", key))
	return nil
}
