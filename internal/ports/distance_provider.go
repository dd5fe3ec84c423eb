package ports

import (
	"context"
	"errors"
	"route-optimizer-service/internal/domain"
)

var (
	// ErrAddressNotFound is returned when an address resolves to no location.
	ErrAddressNotFound = errors.New("address not found")

	// ErrIncompleteMatrix is returned when the distance service omits pairs.
	ErrIncompleteMatrix = errors.New("incomplete distance matrix")

	// ErrUpstream marks failures of the external routing service itself.
	ErrUpstream = errors.New("routing service unavailable")
)

// Distance and travel duration between two locations.
type DistanceResult struct {
	DistanceMeters  int
	DurationSeconds int
}

// A geocoded stop list and the travel matrix over its indices.
type ResolvedMatrix struct {
	Addresses   []string
	Coordinates []domain.Coordinates
	Travel      domain.TravelMatrix
}

// Contract for resolving stops into a fully populated travel matrix.
type MatrixProvider interface {
	// Return the N×N matrix for stops; index i in the result is stops[i].
	GetMatrix(ctx context.Context, stops []domain.Stop) (*ResolvedMatrix, error)
}
