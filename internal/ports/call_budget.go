package ports

import (
	"context"
	"time"
)

// Outcome of a call-budget check.
type BudgetDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// CallBudget gates how often a caller may run the optimization pipeline
// within a rolling window. Implementations own their counters.
type CallBudget interface {
	// Allow charges one call to key and reports whether it may proceed.
	Allow(ctx context.Context, key string) (BudgetDecision, error)

	// Reset discards key's current window. It is an operator action
	// (dbtool -reset-budget); request handling never calls it.
	Reset(ctx context.Context, key string) error
}
