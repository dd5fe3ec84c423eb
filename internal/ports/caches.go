package ports

import (
	"context"
	"route-optimizer-service/internal/domain"
)

// Persistent address -> coordinate lookups. Keys are normalized by the caller.
type GeocodeCache interface {
	GetMany(ctx context.Context, addresses []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}

// Persistent origin -> destination distance lookups.
type DistanceCache interface {
	GetMany(ctx context.Context, origin string, destinations []string) (map[string]DistanceResult, error)
	PutMany(ctx context.Context, origin string, results map[string]DistanceResult) error
}
