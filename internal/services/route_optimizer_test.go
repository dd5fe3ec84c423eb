package services

import (
	"math"
	"math/rand"
	"route-optimizer-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomMatrix(r *rand.Rand, n int) domain.DistanceMatrix {
	m := domain.NewDistanceMatrix(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				m[i][j] = float64(r.Intn(100) + 1)
			}
		}
	}
	return m
}

// oracleMinCost walks every ordering of 1..n-1 in lexicographic order.
func oracleMinCost(m domain.DistanceMatrix, closed bool) float64 {
	n := m.Size()
	rest := make([]int, n-1)
	for i := range rest {
		rest[i] = i + 1
	}

	best := math.Inf(1)
	for {
		order := append(domain.RouteOrder{0}, rest...)
		if c := PathCost(m, order, closed); c < best {
			best = c
		}

		k := len(rest) - 2
		for k >= 0 && rest[k] >= rest[k+1] {
			k--
		}
		if k < 0 {
			return best
		}
		l := len(rest) - 1
		for rest[l] <= rest[k] {
			l--
		}
		rest[k], rest[l] = rest[l], rest[k]
		for i, j := k+1, len(rest)-1; i < j; i, j = i+1, j-1 {
			rest[i], rest[j] = rest[j], rest[i]
		}
	}
}

func TestOptimizeFourLocationScenario(t *testing.T) {
	m := domain.DistanceMatrix{
		{0, 10, 15, 20},
		{10, 0, 35, 25},
		{15, 35, 0, 30},
		{20, 25, 30, 0},
	}

	res, err := Optimize(m, DefaultOptimizerOptions())
	require.NoError(t, err)

	assert.Equal(t, domain.RouteOrder{0, 1, 3, 2}, res.Order)
	assert.Equal(t, 65.0, res.TotalCost)
	assert.Equal(t, domain.StrategyExact, res.Strategy)
	assert.False(t, res.ClosedTour)
}

func TestOptimizeClosedTourIncludesReturnLeg(t *testing.T) {
	m := domain.DistanceMatrix{
		{0, 10, 15, 20},
		{10, 0, 35, 25},
		{15, 35, 0, 30},
		{20, 25, 30, 0},
	}

	opts := DefaultOptimizerOptions()
	opts.ClosedTour = true
	res, err := Optimize(m, opts)
	require.NoError(t, err)

	// 0-1-3-2-0 = 10+25+30+15 = 80, first minimum in enumeration order.
	assert.Equal(t, domain.RouteOrder{0, 1, 3, 2}, res.Order)
	assert.Equal(t, 80.0, res.TotalCost)
	assert.True(t, res.ClosedTour)
}

func TestOptimizeSingleLocation(t *testing.T) {
	res, err := Optimize(domain.DistanceMatrix{{0}}, DefaultOptimizerOptions())
	require.NoError(t, err)
	assert.Equal(t, domain.RouteOrder{0}, res.Order)
	assert.Zero(t, res.TotalCost)
	assert.Equal(t, domain.StrategyTrivial, res.Strategy)
}

func TestOptimizeTwoLocations(t *testing.T) {
	m := domain.DistanceMatrix{{0, 7}, {3, 0}}

	for _, s := range []domain.Strategy{domain.StrategyExact, domain.StrategyHeuristic} {
		res, err := Optimize(m, OptimizerOptions{Strategy: s})
		require.NoError(t, err)
		assert.Equal(t, domain.RouteOrder{0, 1}, res.Order, s)
		assert.Equal(t, 7.0, res.TotalCost, s)
	}
}

func TestOptimizeRejectsInvalidMatrix(t *testing.T) {
	tests := map[string]domain.DistanceMatrix{
		"empty":    {},
		"ragged":   {{0, 1, 2}, {1, 0}, {2, 1, 0}},
		"missing":  {{0, math.NaN()}, {1, 0}},
		"infinite": {{0, 1}, {math.Inf(1), 0}},
		"negative": {{0, -4}, {1, 0}},
	}

	for name, m := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Optimize(m, DefaultOptimizerOptions())
			require.ErrorIs(t, err, domain.ErrInvalidMatrix)
		})
	}
}

func TestOptimizeRespectsAsymmetry(t *testing.T) {
	// Going 0->2->1 is cheap, the reverse direction is expensive.
	m := domain.DistanceMatrix{
		{0, 50, 1},
		{1, 0, 50},
		{50, 1, 0},
	}

	res, err := Optimize(m, DefaultOptimizerOptions())
	require.NoError(t, err)
	assert.Equal(t, domain.RouteOrder{0, 2, 1}, res.Order)
	assert.Equal(t, 2.0, res.TotalCost)
}

func TestOptimizeExactTiesKeepFirstEnumerated(t *testing.T) {
	m := domain.NewDistanceMatrix(4)
	for i := range m {
		for j := range m[i] {
			if i != j {
				m[i][j] = 5
			}
		}
	}

	res, err := Optimize(m, DefaultOptimizerOptions())
	require.NoError(t, err)
	assert.Equal(t, domain.RouteOrder{0, 1, 2, 3}, res.Order)
	assert.Equal(t, 15.0, res.TotalCost)
}

func TestOptimizeStrategySelection(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	res, err := Optimize(randomMatrix(r, 10), DefaultOptimizerOptions())
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyExact, res.Strategy)

	res, err = Optimize(randomMatrix(r, 11), DefaultOptimizerOptions())
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyHeuristic, res.Strategy)

	res, err = Optimize(randomMatrix(r, 5), OptimizerOptions{ExactMaxLocations: 4})
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyHeuristic, res.Strategy)

	_, err = Optimize(randomMatrix(r, 13), OptimizerOptions{Strategy: domain.StrategyExact})
	require.ErrorIs(t, err, domain.ErrInvalidMatrix)

	_, err = Optimize(randomMatrix(r, 3), OptimizerOptions{Strategy: domain.StrategyDelegate})
	require.ErrorIs(t, err, ErrUnsupportedStrategy)
}

func TestOptimizeReturnsPermutationStartingAtOrigin(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for n := 1; n <= 12; n++ {
		m := randomMatrix(r, n)
		res, err := Optimize(m, DefaultOptimizerOptions())
		require.NoError(t, err, "n=%d", n)
		require.True(t, res.Order.IsPermutation(n), "n=%d order=%v", n, res.Order)
		require.GreaterOrEqual(t, res.TotalCost, 0.0)
		require.InDelta(t, PathCost(m, res.Order, false), res.TotalCost, 1e-9)
	}
}

func TestOptimizeExactMatchesOracle(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 2; n <= 8; n++ {
		for trial := 0; trial < 3; trial++ {
			m := randomMatrix(r, n)
			for _, closed := range []bool{false, true} {
				res, err := Optimize(m, OptimizerOptions{Strategy: domain.StrategyExact, ClosedTour: closed})
				require.NoError(t, err)
				require.InDelta(t, oracleMinCost(m, closed), res.TotalCost, 1e-9, "n=%d closed=%v", n, closed)
			}
		}
	}
}

func TestOptimizeTenLocationsMatchesOracle(t *testing.T) {
	m := randomMatrix(rand.New(rand.NewSource(10)), 10)
	res, err := Optimize(m, DefaultOptimizerOptions())
	require.NoError(t, err)
	require.Equal(t, domain.StrategyExact, res.Strategy)
	require.InDelta(t, oracleMinCost(m, false), res.TotalCost, 1e-9)
}

func TestOptimizeHeuristicNeverBeatsExact(t *testing.T) {
	r := rand.New(rand.NewSource(99))
	for n := 2; n <= 9; n++ {
		m := randomMatrix(r, n)
		exact, err := Optimize(m, OptimizerOptions{Strategy: domain.StrategyExact})
		require.NoError(t, err)
		greedy, err := Optimize(m, OptimizerOptions{Strategy: domain.StrategyHeuristic})
		require.NoError(t, err)
		require.GreaterOrEqual(t, greedy.TotalCost, exact.TotalCost, "n=%d", n)
		require.True(t, greedy.Order.IsPermutation(n))
	}
}

func TestOptimizeIsDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, n := range []int{6, 14} {
		m := randomMatrix(r, n)
		first, err := Optimize(m, DefaultOptimizerOptions())
		require.NoError(t, err)
		second, err := Optimize(m, DefaultOptimizerOptions())
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestNewRouteOptimizer(t *testing.T) {
	o, err := NewRouteOptimizer(OptimizerOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptimizerOptions(), o.Options())

	_, err = NewRouteOptimizer(OptimizerOptions{ExactMaxLocations: MaxExactLocations + 1})
	require.Error(t, err)

	_, err = NewRouteOptimizer(OptimizerOptions{Strategy: domain.StrategyDelegate})
	require.ErrorIs(t, err, ErrUnsupportedStrategy)

	res, err := o.Optimize(domain.DistanceMatrix{{0, 2}, {2, 0}})
	require.NoError(t, err)
	assert.Equal(t, domain.RouteOrder{0, 1}, res.Order)
}
