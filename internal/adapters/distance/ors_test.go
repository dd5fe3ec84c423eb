package distance

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryGeocodeCache struct {
	mu sync.Mutex
	m  map[string]domain.Coordinates
}

func (c *memoryGeocodeCache) GetMany(_ context.Context, addresses []string) (map[string]domain.Coordinates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]domain.Coordinates{}
	for _, a := range addresses {
		if v, ok := c.m[a]; ok {
			out[a] = v
		}
	}
	return out, nil
}

func (c *memoryGeocodeCache) PutMany(_ context.Context, results map[string]domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range results {
		c.m[k] = v
	}
	return nil
}

type memoryDistanceCache struct {
	mu sync.Mutex
	m  map[string]ports.DistanceResult
}

func (c *memoryDistanceCache) GetMany(_ context.Context, origin string, destinations []string) (map[string]ports.DistanceResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]ports.DistanceResult{}
	for _, d := range destinations {
		if v, ok := c.m[origin+"|"+d]; ok {
			out[d] = v
		}
	}
	return out, nil
}

func (c *memoryDistanceCache) PutMany(_ context.Context, origin string, results map[string]ports.DistanceResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for d, v := range results {
		c.m[origin+"|"+d] = v
	}
	return nil
}

// fakeORS answers geocode and matrix requests. Matrix cells are the
// planar distance between coordinates in units of 1e-5 degrees.
type fakeORS struct {
	t            *testing.T
	places       map[string][]float64
	geocodeCalls atomic.Int32
	matrixCalls  atomic.Int32
	nullCell     bool
}

func (f *fakeORS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/search", func(w http.ResponseWriter, r *http.Request) {
		f.geocodeCalls.Add(1)
		assert.Equal(f.t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(f.t, "BR", r.URL.Query().Get("boundary.country"))

		features := []map[string]any{}
		if c, ok := f.places[r.URL.Query().Get("text")]; ok {
			features = append(features, map[string]any{
				"geometry": map[string]any{"coordinates": c},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"features": features})
	})
	mux.HandleFunc("/v2/matrix/driving-car", func(w http.ResponseWriter, r *http.Request) {
		f.matrixCalls.Add(1)
		var req matrixRequest
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))

		n := len(req.Locations)
		dist := make([][]*float64, n)
		dur := make([][]*float64, n)
		for i := range req.Locations {
			dist[i] = make([]*float64, n)
			dur[i] = make([]*float64, n)
			for j := range req.Locations {
				d := math.Round(math.Hypot(
					req.Locations[i][0]-req.Locations[j][0],
					req.Locations[i][1]-req.Locations[j][1],
				) * 1e5)
				s := d / 10
				dist[i][j], dur[i][j] = &d, &s
			}
		}
		if f.nullCell && n > 1 {
			dist[1][0] = nil
		}
		_ = json.NewEncoder(w).Encode(matrixResponse{Distances: dist, Durations: dur})
	})
	return mux
}

func newTestClient(t *testing.T, url string, opts ORSOptions) *ORSClient {
	t.Helper()
	opts.BaseURL = url
	c, err := NewORSClient("test-key", opts)
	require.NoError(t, err)
	c.initialBackoff = time.Millisecond
	return c
}

func TestGetMatrixGeocodesFetchesAndCaches(t *testing.T) {
	fake := &fakeORS{t: t, places: map[string][]float64{
		"Hub":    {0, 0},
		"Market": {0.01, 0},
		"School": {0, 0.02},
	}}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	geocodes := &memoryGeocodeCache{m: map[string]domain.Coordinates{}}
	distances := &memoryDistanceCache{m: map[string]ports.DistanceResult{}}
	client := newTestClient(t, server.URL, ORSOptions{
		BoundaryCountry: "BR",
		GeocodeCache:    geocodes,
		DistanceCache:   distances,
	})

	stops := []domain.Stop{{Address: "  Hub "}, {Address: "Market"}, {Address: "School"}}
	res, err := client.GetMatrix(context.Background(), stops)
	require.NoError(t, err)

	require.Equal(t, []string{"Hub", "Market", "School"}, res.Addresses)
	require.Equal(t, domain.Coordinates{Lon: 0.01, Lat: 0}, res.Coordinates[1])
	require.NoError(t, res.Travel.Distances.Validate())
	require.Equal(t, 1000.0, res.Travel.Distances[0][1])
	require.Equal(t, 2000.0, res.Travel.Distances[2][0])
	require.Equal(t, 100.0, res.Travel.Durations[1][0])
	require.EqualValues(t, 3, fake.geocodeCalls.Load())
	require.EqualValues(t, 1, fake.matrixCalls.Load())

	// Second run is served from both caches.
	again, err := client.GetMatrix(context.Background(), stops)
	require.NoError(t, err)
	require.Equal(t, res.Travel, again.Travel)
	require.EqualValues(t, 3, fake.geocodeCalls.Load())
	require.EqualValues(t, 1, fake.matrixCalls.Load())
}

func TestGetMatrixCoordinateStopsSkipGeocoding(t *testing.T) {
	fake := &fakeORS{t: t, places: map[string][]float64{"Market": {0.01, 0}}}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{BoundaryCountry: "BR"})

	here := domain.Coordinates{Lon: 0, Lat: 0}
	res, err := client.GetMatrix(context.Background(), []domain.Stop{{Coordinates: &here}, {Address: "Market"}})
	require.NoError(t, err)
	require.Equal(t, here.String(), res.Addresses[0])
	require.EqualValues(t, 1, fake.geocodeCalls.Load())
	require.Equal(t, 1000.0, res.Travel.Distances[0][1])
}

func TestGetMatrixUnknownAddress(t *testing.T) {
	fake := &fakeORS{t: t, places: map[string][]float64{"Hub": {0, 0}}}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{BoundaryCountry: "BR"})

	_, err := client.GetMatrix(context.Background(), []domain.Stop{{Address: "Hub"}, {Address: "Atlantis"}})
	require.ErrorIs(t, err, ports.ErrAddressNotFound)
	require.Zero(t, fake.matrixCalls.Load())
}

func TestGetMatrixNullCellIsIncomplete(t *testing.T) {
	fake := &fakeORS{t: t, nullCell: true, places: map[string][]float64{"Hub": {0, 0}, "Island": {1, 1}}}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	distances := &memoryDistanceCache{m: map[string]ports.DistanceResult{}}
	client := newTestClient(t, server.URL, ORSOptions{BoundaryCountry: "BR", DistanceCache: distances})

	_, err := client.GetMatrix(context.Background(), []domain.Stop{{Address: "Hub"}, {Address: "Island"}})
	require.ErrorIs(t, err, ports.ErrIncompleteMatrix)
	require.Empty(t, distances.m)
}

func TestGetMatrixSingleStopNeedsNoMatrix(t *testing.T) {
	fake := &fakeORS{t: t, places: map[string][]float64{"Hub": {0, 0}}}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{BoundaryCountry: "BR"})

	res, err := client.GetMatrix(context.Background(), []domain.Stop{{Address: "Hub"}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Travel.Distances.Size())
	require.Zero(t, fake.matrixCalls.Load())
}

func TestDoWithRetryRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"features":[{"properties":{"label":"Praça da Paz"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	label, err := client.ReverseGeocode(context.Background(), domain.Coordinates{Lon: -54.58, Lat: -25.54})
	require.NoError(t, err)
	require.Equal(t, "Praça da Paz", label)
	require.EqualValues(t, 3, calls.Load())
}

func TestDoWithRetryDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	_, err := client.ReverseGeocode(context.Background(), domain.Coordinates{Lon: 1, Lat: 1})

	var he *httpStatusError
	require.ErrorAs(t, err, &he)
	require.Equal(t, http.StatusForbidden, he.Code)
	require.EqualValues(t, 1, calls.Load())
}

func TestReverseGeocodeNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/reverse", r.URL.Path)
		assert.Equal(t, "-25.5", r.URL.Query().Get("point.lat"))
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	_, err := client.ReverseGeocode(context.Background(), domain.Coordinates{Lon: -54.5, Lat: -25.5})
	require.ErrorIs(t, err, ports.ErrAddressNotFound)

	_, err = client.ReverseGeocode(context.Background(), domain.Coordinates{Lon: 0, Lat: 120})
	require.Error(t, err)
}

func TestGetDirectionsPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-car/geojson", r.URL.Path)

		var req directionsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, [][]float64{{1, 1}, {3, 3}, {2, 2}}, req.Coordinates)

		_, _ = w.Write([]byte(`{"features":[{
			"geometry":{"coordinates":[[1,1],[2.5,2.5],[3,3],[2,2]]},
			"properties":{"segments":[{"distance":1200.5,"duration":90},{"distance":800,"duration":60}]}
		}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	path, err := client.GetDirections(context.Background(), []domain.Coordinates{
		{Lon: 1, Lat: 1}, {Lon: 3, Lat: 3}, {Lon: 2, Lat: 2},
	})
	require.NoError(t, err)
	require.Equal(t, []domain.Leg{
		{From: 0, To: 1, DistanceMeters: 1200.5, DurationSeconds: 90},
		{From: 1, To: 2, DistanceMeters: 800, DurationSeconds: 60},
	}, path.Legs)
	require.Len(t, path.Geometry, 4)
	require.Equal(t, domain.Coordinates{Lon: 2.5, Lat: 2.5}, path.Geometry[1])
}

func TestGetDirectionsSegmentMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[]},"properties":{"segments":[]}}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	_, err := client.GetDirections(context.Background(), []domain.Coordinates{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}})
	require.ErrorIs(t, err, ports.ErrUpstream)
}

func TestOrderStopsReadsJobSteps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/optimization", r.URL.Path)

		var req optimizationRequest
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Jobs, 3) {
			assert.Equal(t, 1, req.Jobs[0].ID)
			assert.Equal(t, []float64{0, 0}, req.Vehicles[0].Start)
			assert.Equal(t, []float64{0, 0}, req.Vehicles[0].End)
		}

		_, _ = w.Write([]byte(`{"unassigned":[],"routes":[{"steps":[
			{"type":"start"},{"type":"job","id":2},{"type":"job","job":3},{"type":"job","id":1},{"type":"end"}
		]}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	order, err := client.OrderStops(context.Background(), []domain.Coordinates{
		{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 2, Lat: 0}, {Lon: 3, Lat: 0},
	}, true)
	require.NoError(t, err)
	require.Equal(t, domain.RouteOrder{0, 2, 3, 1}, order)
}

func TestOrderStopsUnassigned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unassigned":[{"id":1}],"routes":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	_, err := client.OrderStops(context.Background(), []domain.Coordinates{{}, {Lon: 1}}, false)
	require.ErrorIs(t, err, ports.ErrUpstream)
}

func TestOrderStopsMalformedRoutes(t *testing.T) {
	for name, body := range map[string]string{
		"no route":            `{"unassigned":[],"routes":[]}`,
		"two routes":          `{"unassigned":[],"routes":[{"steps":[]},{"steps":[]}]}`,
		"job step without id": `{"unassigned":[],"routes":[{"steps":[{"type":"job"}]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, ORSOptions{})
			_, err := client.OrderStops(context.Background(), []domain.Coordinates{{}, {Lon: 1}}, false)
			require.ErrorIs(t, err, ports.ErrUpstream)
		})
	}
}

func TestUndecodableResponsesAreUpstreamFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway hiccup</html>`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	ctx := context.Background()
	a, b := domain.Coordinates{Lon: 1, Lat: 1}, domain.Coordinates{Lon: 2, Lat: 2}

	_, err := client.GetMatrix(ctx, []domain.Stop{{Coordinates: &a}, {Coordinates: &b}})
	require.ErrorIs(t, err, ports.ErrUpstream, "matrix")

	_, err = client.GetMatrix(ctx, []domain.Stop{{Address: "Hub"}, {Address: "Market"}})
	require.ErrorIs(t, err, ports.ErrUpstream, "geocode")

	_, err = client.GetDirections(ctx, []domain.Coordinates{a, b})
	require.ErrorIs(t, err, ports.ErrUpstream, "directions")

	_, err = client.OrderStops(ctx, []domain.Coordinates{a, b}, false)
	require.ErrorIs(t, err, ports.ErrUpstream, "optimization")

	_, err = client.ReverseGeocode(ctx, a)
	require.ErrorIs(t, err, ports.ErrUpstream, "reverse geocode")
}

func TestNewORSClientRequiresKey(t *testing.T) {
	_, err := NewORSClient(" ", ORSOptions{})
	require.Error(t, err)
}

func TestUpstreamFailuresAreTagged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, ORSOptions{})
	_, err := client.GetDirections(context.Background(), []domain.Coordinates{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}})
	require.ErrorIs(t, err, ports.ErrUpstream)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.GetDirections(ctx, []domain.Coordinates{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}})
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, ports.ErrUpstream)
}
