package services

import (
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
)

const (
	DefaultExactMaxLocations = domain.DefaultExactMaxLocations
	MaxExactLocations        = domain.MaxExactLocations
)

// ErrUnsupportedStrategy is returned when the optimizer is asked for a
// strategy it cannot run itself (delegation belongs to the RoutePlanner).
var ErrUnsupportedStrategy = errors.New("unsupported optimization strategy")

type OptimizerOptions struct {
	Strategy          domain.Strategy
	ClosedTour        bool
	ExactMaxLocations int
}

// DefaultOptimizerOptions: auto strategy, open path, exact up to 10 locations.
func DefaultOptimizerOptions() OptimizerOptions {
	return OptimizerOptions{
		Strategy:          domain.StrategyAuto,
		ExactMaxLocations: DefaultExactMaxLocations,
	}
}

// RouteOptimizer orders locations to minimize the summed leg distance of a
// path that starts at location 0.
//
// It holds no mutable state and is safe for concurrent use.
type RouteOptimizer struct {
	opts OptimizerOptions
}

func NewRouteOptimizer(opts OptimizerOptions) (*RouteOptimizer, error) {
	if opts.Strategy == "" {
		opts.Strategy = domain.StrategyAuto
	}
	if opts.ExactMaxLocations == 0 {
		opts.ExactMaxLocations = DefaultExactMaxLocations
	}
	if opts.ExactMaxLocations < 1 || opts.ExactMaxLocations > MaxExactLocations {
		return nil, fmt.Errorf(
			"new route optimizer: exact threshold %d out of range [1, %d]",
			opts.ExactMaxLocations, MaxExactLocations,
		)
	}
	if opts.Strategy == domain.StrategyDelegate {
		return nil, fmt.Errorf("new route optimizer: %w: %q", ErrUnsupportedStrategy, opts.Strategy)
	}

	return &RouteOptimizer{opts: opts}, nil
}

func (o *RouteOptimizer) Options() OptimizerOptions { return o.opts }

// Optimize solves the matrix with the optimizer's configured options.
func (o *RouteOptimizer) Optimize(matrix domain.DistanceMatrix) (*domain.RouteResult, error) {
	return Optimize(matrix, o.opts)
}

// Optimize validates the matrix, picks a solver and assembles the result.
//
// Under the auto strategy instances of up to opts.ExactMaxLocations locations
// are solved exactly and larger ones greedily. Both solvers use the same
// objective so their costs are directly comparable.
func Optimize(matrix domain.DistanceMatrix, opts OptimizerOptions) (*domain.RouteResult, error) {
	if err := matrix.Validate(); err != nil {
		return nil, fmt.Errorf("optimize route: %w", err)
	}

	n := matrix.Size()
	if n == 1 {
		return &domain.RouteResult{
			Order:      domain.RouteOrder{0},
			TotalCost:  0,
			ClosedTour: opts.ClosedTour,
			Strategy:   domain.StrategyTrivial,
		}, nil
	}

	threshold := opts.ExactMaxLocations
	if threshold == 0 {
		threshold = DefaultExactMaxLocations
	}

	strategy := opts.Strategy
	switch strategy {
	case "", domain.StrategyAuto:
		strategy = domain.StrategyHeuristic
		if n <= threshold {
			strategy = domain.StrategyExact
		}
	case domain.StrategyExact:
		if n > MaxExactLocations {
			return nil, fmt.Errorf(
				"optimize route: %w: %d locations exceed the exact solver limit of %d",
				domain.ErrInvalidMatrix, n, MaxExactLocations,
			)
		}
	case domain.StrategyHeuristic:
	default:
		return nil, fmt.Errorf("optimize route: %w: %q", ErrUnsupportedStrategy, strategy)
	}

	var (
		order domain.RouteOrder
		cost  float64
	)
	if strategy == domain.StrategyExact {
		order, cost = bruteForceOrder(matrix, opts.ClosedTour)
	} else {
		order = nearestNeighborOrder(matrix)
		cost = PathCost(matrix, order, opts.ClosedTour)
	}

	return &domain.RouteResult{
		Order:      order,
		TotalCost:  cost,
		ClosedTour: opts.ClosedTour,
		Strategy:   strategy,
	}, nil
}
