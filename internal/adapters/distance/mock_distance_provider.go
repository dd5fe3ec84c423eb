package distance

import (
	"context"
	"fmt"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
	"sync"
)

type MockPair struct {
	From, To string
	Meters   int
	Seconds  int
}

// MockMatrixProvider serves matrices from fixed address pairs. Missing pairs
// yield ErrIncompleteMatrix, unknown locations ErrAddressNotFound.
type MockMatrixProvider struct {
	m      map[string]ports.DistanceResult
	coords map[string]domain.Coordinates

	mu    sync.Mutex
	calls int
}

func NewMockMatrixProvider(pairs []MockPair, coords map[string]domain.Coordinates) *MockMatrixProvider {
	m := make(map[string]ports.DistanceResult, len(pairs))
	for _, p := range pairs {
		m[p.From+"|"+p.To] = ports.DistanceResult{DistanceMeters: p.Meters, DurationSeconds: p.Seconds}
	}
	return &MockMatrixProvider{m: m, coords: coords}
}

// Calls returns how many times GetMatrix ran.
func (p *MockMatrixProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *MockMatrixProvider) GetMatrix(ctx context.Context, stops []domain.Stop) (*ports.ResolvedMatrix, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	n := len(stops)
	res := &ports.ResolvedMatrix{
		Addresses:   make([]string, n),
		Coordinates: make([]domain.Coordinates, n),
		Travel: domain.TravelMatrix{
			Distances: domain.NewDistanceMatrix(n),
			Durations: domain.NewDistanceMatrix(n),
		},
	}

	for i, s := range stops {
		key := s.Key()
		res.Addresses[i] = key
		switch {
		case s.Coordinates != nil:
			res.Coordinates[i] = *s.Coordinates
		case p.coords != nil:
			c, ok := p.coords[key]
			if !ok {
				return nil, fmt.Errorf("mock: %w: %q", ports.ErrAddressNotFound, key)
			}
			res.Coordinates[i] = c
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			r, ok := p.m[res.Addresses[i]+"|"+res.Addresses[j]]
			if !ok {
				return nil, fmt.Errorf("mock: %w: missing pair %q -> %q", ports.ErrIncompleteMatrix, res.Addresses[i], res.Addresses[j])
			}
			res.Travel.Distances[i][j] = float64(r.DistanceMeters)
			res.Travel.Durations[i][j] = float64(r.DurationSeconds)
		}
	}

	return res, nil
}
