package services

import (
	"context"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrTooFewStops is returned when fewer than two non-blank stops remain.
	ErrTooFewStops = errors.New("at least two stops are required")

	// ErrRateLimited is wrapped by every *RateLimitError.
	ErrRateLimited = errors.New("call budget exhausted")
)

// SharedPlanTimeout bounds one shared route computation, independent of
// the callers waiting on it.
const SharedPlanTimeout = 30 * time.Second

// RateLimitError reports a denied call budget and when to try again.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

type PlanRouteRequest struct {
	// Session identifies the caller for the call budget.
	Session string
	Stops   []domain.Stop

	// Per-request overrides; nil or empty keeps the planner defaults.
	ClosedTour *bool
	Strategy   domain.Strategy
}

// RoutePlannerDeps groups the planner collaborators. Only Matrices is
// required.
type RoutePlannerDeps struct {
	Matrices   ports.MatrixProvider
	Directions ports.DirectionsProvider
	Orderer    ports.RouteOrderer
	Budget     ports.CallBudget
}

// RoutePlanner runs one route request end to end:
// call budget, travel matrix, ordering, rendered path and presentation.
type RoutePlanner struct {
	deps     RoutePlannerDeps
	opts     OptimizerOptions
	inflight singleflight.Group
}

func NewRoutePlanner(deps RoutePlannerDeps, opts OptimizerOptions) (*RoutePlanner, error) {
	if deps.Matrices == nil {
		return nil, errors.New("new route planner: matrix provider is nil")
	}

	check := opts
	if check.Strategy == domain.StrategyDelegate {
		if deps.Orderer == nil {
			return nil, fmt.Errorf("new route planner: %w: delegate needs a route orderer", ErrUnsupportedStrategy)
		}
		check.Strategy = domain.StrategyAuto
	}
	validated, err := NewRouteOptimizer(check)
	if err != nil {
		return nil, fmt.Errorf("new route planner: %w", err)
	}
	defaults := validated.Options()
	defaults.Strategy = opts.Strategy
	if defaults.Strategy == "" {
		defaults.Strategy = domain.StrategyAuto
	}

	return &RoutePlanner{deps: deps, opts: defaults}, nil
}

// PlanRoute orders the request's stops and presents the route.
//
// Blank stops are dropped before anything else. Identical concurrent
// requests from one session share a single computation but each one is
// charged to the session's call budget.
func (p *RoutePlanner) PlanRoute(ctx context.Context, req PlanRouteRequest) (_ *domain.RoutePlan, err error) {
	defer obs.Time(ctx, "services.PlanRoute")(&err)

	stops := cleanStops(req.Stops)
	if len(stops) < 2 {
		return nil, fmt.Errorf("plan route: %w: got %d", ErrTooFewStops, len(stops))
	}

	opts := p.opts
	if req.ClosedTour != nil {
		opts.ClosedTour = *req.ClosedTour
	}
	if req.Strategy != "" {
		opts.Strategy = req.Strategy
	}
	if opts.Strategy == domain.StrategyDelegate && p.deps.Orderer == nil {
		return nil, fmt.Errorf("plan route: %w: %q", ErrUnsupportedStrategy, opts.Strategy)
	}
	if opts.Strategy == domain.StrategyExact && len(stops) > MaxExactLocations {
		return nil, fmt.Errorf(
			"plan route: %w: exact ordering supports at most %d stops, got %d",
			ErrUnsupportedStrategy, MaxExactLocations, len(stops),
		)
	}

	if p.deps.Budget != nil {
		decision, err := p.deps.Budget.Allow(ctx, req.Session)
		if err != nil {
			return nil, fmt.Errorf("plan route: check call budget: %w", err)
		}
		if !decision.Allowed {
			return nil, fmt.Errorf("plan route: %w", &RateLimitError{RetryAfter: decision.RetryAfter})
		}
	}

	// The shared computation outlives any single caller; each caller only
	// stops waiting when its own context ends.
	ch := p.inflight.DoChan(flightKey(req.Session, stops, opts), func() (any, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SharedPlanTimeout)
		defer cancel()
		return p.plan(sharedCtx, stops, opts)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("plan route: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			obs.Logger(ctx).Debug("route plan shared with concurrent request", zap.String("session", req.Session))
		}
		return res.Val.(*domain.RoutePlan), nil
	}
}

func (p *RoutePlanner) plan(ctx context.Context, stops []domain.Stop, opts OptimizerOptions) (*domain.RoutePlan, error) {
	resolved, err := p.deps.Matrices.GetMatrix(ctx, stops)
	if err != nil {
		return nil, fmt.Errorf("plan route: get matrix: %w", err)
	}

	result, err := p.order(ctx, resolved, opts)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}

	legs := BuildLegs(resolved.Travel, result.Order, result.ClosedTour)
	var geometry []domain.Coordinates

	if p.deps.Directions != nil {
		path, err := p.directions(ctx, resolved.Coordinates, result.Order, result.ClosedTour)
		if err != nil {
			// The order stands on its own; the matrix still supplies the legs.
			obs.Logger(ctx).Warn("directions unavailable, using matrix legs", zap.Error(err))
		} else {
			legs, geometry = path.Legs, path.Geometry
		}
	}

	return presentRoute(resolved, result, legs, geometry), nil
}

func (p *RoutePlanner) order(ctx context.Context, resolved *ports.ResolvedMatrix, opts OptimizerOptions) (*domain.RouteResult, error) {
	matrix := resolved.Travel.Distances

	if opts.Strategy != domain.StrategyDelegate {
		return Optimize(matrix, opts)
	}

	if err := matrix.Validate(); err != nil {
		return nil, fmt.Errorf("delegate order: %w", err)
	}
	order, err := p.deps.Orderer.OrderStops(ctx, resolved.Coordinates, opts.ClosedTour)
	if err != nil {
		return nil, fmt.Errorf("delegate order: %w", err)
	}
	if !order.IsPermutation(matrix.Size()) {
		return nil, fmt.Errorf("delegate order: %w: %v is not a route over %d stops", ports.ErrUpstream, order, matrix.Size())
	}

	return &domain.RouteResult{
		Order:      order,
		TotalCost:  PathCost(matrix, order, opts.ClosedTour),
		ClosedTour: opts.ClosedTour,
		Strategy:   domain.StrategyDelegate,
	}, nil
}

// directions renders the path in exactly the given order and maps leg
// positions back to location indices.
func (p *RoutePlanner) directions(
	ctx context.Context,
	coords []domain.Coordinates,
	order domain.RouteOrder,
	closed bool,
) (*domain.RoutePath, error) {
	visit := order
	if closed {
		visit = append(append(domain.RouteOrder{}, order...), order[0])
	}

	waypoints := make([]domain.Coordinates, len(visit))
	for i, idx := range visit {
		waypoints[i] = coords[idx]
	}

	path, err := p.deps.Directions.GetDirections(ctx, waypoints)
	if err != nil {
		return nil, err
	}
	if len(path.Legs) != len(visit)-1 {
		return nil, fmt.Errorf("directions returned %d legs for %d waypoints", len(path.Legs), len(visit))
	}

	legs := make([]domain.Leg, len(path.Legs))
	for i, l := range path.Legs {
		l.From, l.To = visit[i], visit[i+1]
		legs[i] = l
	}
	return &domain.RoutePath{Legs: legs, Geometry: path.Geometry}, nil
}

// cleanStops trims addresses and drops stops with neither text nor coordinates.
func cleanStops(in []domain.Stop) []domain.Stop {
	out := make([]domain.Stop, 0, len(in))
	for _, s := range in {
		s.Address = strings.TrimSpace(s.Address)
		if s.Coordinates == nil && s.Address == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func flightKey(session string, stops []domain.Stop, opts OptimizerOptions) string {
	var b strings.Builder
	b.WriteString(session)
	b.WriteByte(0)
	b.WriteString(string(opts.Strategy))
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(opts.ClosedTour))
	for _, s := range stops {
		b.WriteByte(0)
		b.WriteString(s.Key())
	}
	return b.String()
}
