package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Optional collaborator that renders a path through coordinates in the given order.
type DirectionsProvider interface {
	GetDirections(ctx context.Context, waypoints []domain.Coordinates) (*domain.RoutePath, error)
}

// Optional collaborator that orders stops itself instead of the local optimizer.
type RouteOrderer interface {
	// Return a visit order over locations, starting at index 0.
	OrderStops(ctx context.Context, locations []domain.Coordinates, closedTour bool) (domain.RouteOrder, error)
}

// Resolves a device position into a human-readable address.
type Geolocator interface {
	ReverseGeocode(ctx context.Context, c domain.Coordinates) (string, error)
}
