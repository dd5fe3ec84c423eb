package domain

// Strategy names the algorithm that produced a route order.
type Strategy string

const (
	StrategyAuto      Strategy = "auto"
	StrategyExact     Strategy = "exact"
	StrategyHeuristic Strategy = "heuristic"
	StrategyDelegate  Strategy = "delegate"
	StrategyTrivial   Strategy = "trivial"
)

const (
	// DefaultExactMaxLocations is the largest instance (origin included)
	// solved by exhaustive search under the auto strategy.
	DefaultExactMaxLocations = 10

	// MaxExactLocations bounds forced exact solves: 11! orderings.
	MaxExactLocations = 12
)

// ParseStrategy maps a configuration value onto a Strategy. Empty means auto.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, true
	case StrategyExact, StrategyHeuristic, StrategyDelegate:
		return Strategy(s), true
	}
	return "", false
}

// RouteOrder is a visit order over location indices. A valid order starts
// at 0 and is a permutation of [0, n).
type RouteOrder []int

// IsPermutation reports whether the order starts at the origin and visits
// each of the n locations exactly once.
func (o RouteOrder) IsPermutation(n int) bool {
	if len(o) != n || n == 0 || o[0] != 0 {
		return false
	}
	seen := make([]bool, n)
	for _, idx := range o {
		if idx < 0 || idx >= n || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}

// RouteResult is the optimizer output: the order and its total cost under
// the objective it was solved for.
type RouteResult struct {
	Order      RouteOrder
	TotalCost  float64
	ClosedTour bool
	Strategy   Strategy
}

// One edge of a route between two consecutive stops.
type Leg struct {
	From            int
	To              int
	DistanceMeters  float64
	DurationSeconds float64
}

// Stop is a user-supplied location: either free-form address text or
// coordinates (e.g. the device's current position).
type Stop struct {
	Address     string
	Coordinates *Coordinates
}

// Key returns the text the stop is geocoded and cached under.
func (s Stop) Key() string {
	if s.Coordinates != nil {
		return s.Coordinates.String()
	}
	return s.Address
}

// A stop in the presented route, labelled in visit order starting at 1.
type PlannedStop struct {
	Label       int
	InputIndex  int
	Address     string
	Coordinates Coordinates
}

// RoutePath is a rendered path through stops in a fixed order.
type RoutePath struct {
	Legs     []Leg
	Geometry []Coordinates
}

// Represents the optimized route returned to the caller.
// It is immutable planning data derived from one request; nothing in it is persisted.
type RoutePlan struct {
	Stops                []PlannedStop
	Order                RouteOrder
	Legs                 []Leg
	Geometry             []Coordinates
	TotalDistanceMeters  float64
	TotalDurationSeconds float64
	TotalDistanceKm      float64
	ClosedTour           bool
	Strategy             Strategy
	MapURL               string
}
