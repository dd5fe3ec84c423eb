package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidMatrix is returned when a distance matrix cannot be optimized:
// it is empty, ragged, or has a missing or non-finite off-diagonal entry.
var ErrInvalidMatrix = errors.New("invalid distance matrix")

// DistanceMatrix maps (from, to) location indices to a non-negative distance.
// Missing cells are NaN. Diagonal cells are never read by the solvers.
type DistanceMatrix [][]float64

// NewDistanceMatrix allocates an n×n matrix with every off-diagonal cell missing.
func NewDistanceMatrix(n int) DistanceMatrix {
	m := make(DistanceMatrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			if i != j {
				m[i][j] = math.NaN()
			}
		}
	}
	return m
}

// Size returns the number of locations (rows).
func (m DistanceMatrix) Size() int { return len(m) }

// Validate checks the matrix is square, non-empty and fully populated with
// finite, non-negative values for every i != j.
func (m DistanceMatrix) Validate() error {
	n := len(m)
	if n == 0 {
		return fmt.Errorf("%w: no locations", ErrInvalidMatrix)
	}

	for i, row := range m {
		if len(row) != n {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), n)
		}
	}

	for i, row := range m {
		for j, v := range row {
			if i == j {
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: missing entry (%d,%d)", ErrInvalidMatrix, i, j)
			}
			if v < 0 {
				return fmt.Errorf("%w: negative entry (%d,%d)=%g", ErrInvalidMatrix, i, j, v)
			}
		}
	}

	return nil
}

// TravelMatrix is the distance matrix adapter output: distances in meters and,
// when the provider supplies them, durations in seconds over the same indices.
type TravelMatrix struct {
	Distances DistanceMatrix
	Durations DistanceMatrix
}

// HasDurations reports whether Durations is usable alongside Distances.
func (t TravelMatrix) HasDurations() bool {
	return len(t.Durations) == len(t.Distances) && len(t.Durations) > 0
}
