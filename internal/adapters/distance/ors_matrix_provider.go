package distance

import (
	"context"
	"errors"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"

	"go.uber.org/zap"
)

// GetMatrix resolves stops into a travel matrix whose index i is stops[i].
//
// Coordinate stops skip geocoding. Distances come from the persistent cache
// when every pair is known; otherwise one full matrix request is issued
// and written back to the cache.
func (o *ORSClient) GetMatrix(
	ctx context.Context,
	stops []domain.Stop,
) (_ *ports.ResolvedMatrix, err error) {
	defer obs.Time(ctx, "ors.GetMatrix")(&err)

	if len(stops) == 0 {
		return nil, errors.New("get matrix: stops must be non-empty")
	}

	keys := make([]string, len(stops))
	coords := make([]domain.Coordinates, len(stops))
	known := make([]bool, len(stops))
	toGeocode := make([]string, 0, len(stops))

	for i, s := range stops {
		if s.Coordinates != nil {
			if !s.Coordinates.Valid() {
				return nil, fmt.Errorf("get matrix: stop %d has invalid coordinates", i)
			}
			keys[i] = s.Coordinates.String()
			coords[i] = *s.Coordinates
			known[i] = true
			continue
		}

		keys[i] = o.normalize(s.Address)
		if keys[i] == "" {
			return nil, fmt.Errorf("get matrix: stop %d address must be non-empty", i)
		}
		toGeocode = append(toGeocode, keys[i])
	}

	if len(toGeocode) > 0 {
		resolved, err := o.resolveCoordinates(ctx, toGeocode)
		if err != nil {
			return nil, fmt.Errorf("get matrix: %w", err)
		}
		for i := range stops {
			if known[i] {
				continue
			}
			c, ok := resolved[keys[i]]
			if !ok {
				return nil, fmt.Errorf("get matrix: %w: missing coordinate for %q", ports.ErrAddressNotFound, keys[i])
			}
			coords[i] = c
		}
	}

	pairs, err := o.cachedPairs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get matrix: %w", err)
	}

	if pairs == nil && len(stops) > 1 {
		pairs, err = o.fetchMatrix(ctx, coords)
		if err != nil {
			return nil, fmt.Errorf("get matrix: %w", err)
		}
		o.storePairs(ctx, keys, pairs)
	}

	n := len(stops)
	travel := domain.TravelMatrix{
		Distances: domain.NewDistanceMatrix(n),
		Durations: domain.NewDistanceMatrix(n),
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			travel.Distances[i][j] = float64(pairs[i][j].DistanceMeters)
			travel.Durations[i][j] = float64(pairs[i][j].DurationSeconds)
		}
	}

	return &ports.ResolvedMatrix{
		Addresses:   keys,
		Coordinates: coords,
		Travel:      travel,
	}, nil
}

// resolveCoordinates returns coordinates for normalized addresses via the
// geocode cache, geocoding and caching the misses.
func (o *ORSClient) resolveCoordinates(
	ctx context.Context,
	addresses []string,
) (map[string]domain.Coordinates, error) {
	hits := make(map[string]domain.Coordinates)
	if o.geocodeCache != nil {
		var err error
		hits, err = o.geocodeCache.GetMany(ctx, addresses)
		if err != nil {
			return nil, fmt.Errorf("ORS get geocode cache: %w", err)
		}
	}

	misses := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if _, ok := hits[a]; !ok {
			misses = append(misses, a)
		}
	}

	if len(misses) == 0 {
		return hits, nil
	}

	fresh, err := o.geocodeMany(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("retrieving coordinates: %w", err)
	}

	if o.geocodeCache != nil && len(fresh) > 0 {
		if err := o.geocodeCache.PutMany(ctx, fresh); err != nil {
			obs.Logger(ctx).Warn("geocode cache write failed", zap.Error(err))
		}
	}

	out := make(map[string]domain.Coordinates, len(hits)+len(fresh))
	for k, v := range hits {
		out[k] = v
	}
	for k, v := range fresh {
		out[k] = v
	}
	return out, nil
}

// cachedPairs returns the full pair table from the distance cache, or nil
// when any off-diagonal pair is missing. Repeated stops are zero apart.
func (o *ORSClient) cachedPairs(ctx context.Context, keys []string) ([][]ports.DistanceResult, error) {
	if o.distanceCache == nil {
		return nil, nil
	}

	n := len(keys)
	pairs := make([][]ports.DistanceResult, n)
	for i := 0; i < n; i++ {
		pairs[i] = make([]ports.DistanceResult, n)

		others := make([]string, 0, n-1)
		for j := 0; j < n; j++ {
			if keys[j] != keys[i] {
				others = append(others, keys[j])
			}
		}
		if len(others) == 0 {
			continue
		}

		hits, err := o.distanceCache.GetMany(ctx, keys[i], others)
		if err != nil {
			return nil, fmt.Errorf("ORS get distance cache: %w", err)
		}

		for j := 0; j < n; j++ {
			if keys[j] == keys[i] {
				continue
			}
			r, ok := hits[keys[j]]
			if !ok {
				return nil, nil
			}
			pairs[i][j] = r
		}
	}

	return pairs, nil
}

func (o *ORSClient) storePairs(ctx context.Context, keys []string, pairs [][]ports.DistanceResult) {
	if o.distanceCache == nil {
		return
	}

	for i, origin := range keys {
		row := make(map[string]ports.DistanceResult, len(keys)-1)
		for j, dest := range keys {
			if dest != origin {
				row[dest] = pairs[i][j]
			}
		}
		if len(row) == 0 {
			continue
		}
		if err := o.distanceCache.PutMany(ctx, origin, row); err != nil {
			obs.Logger(ctx).Warn("distance cache write failed", zap.String("origin", origin), zap.Error(err))
			return
		}
	}
}
