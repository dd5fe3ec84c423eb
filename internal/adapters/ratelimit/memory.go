package ratelimit

import (
	"context"
	"errors"
	"route-optimizer-service/internal/ports"
	"sync"
	"time"
)

const (
	DefaultMaxCalls = 3
	DefaultWindow   = time.Minute
)

type window struct {
	start time.Time
	count int
}

// MemoryBudget is a per-key fixed window held in process memory.
// A window opens on the first call and the first call after it has
// elapsed opens a new one.
type MemoryBudget struct {
	maxCalls int
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

var _ ports.CallBudget = (*MemoryBudget)(nil)

func NewMemoryBudget(maxCalls int, w time.Duration) (*MemoryBudget, error) {
	if maxCalls < 1 {
		return nil, errors.New("memory budget: max calls must be positive")
	}
	if w <= 0 {
		return nil, errors.New("memory budget: window must be positive")
	}
	return &MemoryBudget{
		maxCalls: maxCalls,
		window:   w,
		now:      time.Now,
		windows:  make(map[string]*window),
	}, nil
}

func (b *MemoryBudget) Allow(_ context.Context, key string) (ports.BudgetDecision, error) {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.windows[key]
	if !ok || !now.Before(w.start.Add(b.window)) {
		w = &window{start: now}
		b.windows[key] = w
		b.sweep(now)
	}

	if w.count >= b.maxCalls {
		return ports.BudgetDecision{
			Allowed:    false,
			RetryAfter: w.start.Add(b.window).Sub(now),
		}, nil
	}

	w.count++
	return ports.BudgetDecision{
		Allowed:   true,
		Remaining: b.maxCalls - w.count,
	}, nil
}

func (b *MemoryBudget) Reset(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.windows, key)
	b.mu.Unlock()
	return nil
}

// sweep drops expired windows. Callers hold b.mu.
func (b *MemoryBudget) sweep(now time.Time) {
	for k, w := range b.windows {
		if !now.Before(w.start.Add(b.window)) {
			delete(b.windows, k)
		}
	}
}
