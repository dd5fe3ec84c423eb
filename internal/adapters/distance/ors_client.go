package distance

import (
	"errors"
	"net/http"
	"route-optimizer-service/internal/ports"
	"strings"
	"time"
)

const (
	defaultBaseURL            = "https://api.openrouteservice.org"
	defaultProfile            = "driving-car"
	defaultGeocodeConcurrency = 4
)

// ORSClient talks to OpenRouteService. It implements MatrixProvider,
// DirectionsProvider, RouteOrderer and Geolocator.
//
// It coordinates:
//   - Address normalization
//   - Persistent geocode caching
//   - Persistent distance matrix caching
//   - External API calls with retry/backoff
//
// The client is safe for concurrent use.
type ORSClient struct {
	session            *http.Client
	apiKey             string
	baseURL            string
	profile            string
	boundaryCountry    string
	distanceCache      ports.DistanceCache
	geocodeCache       ports.GeocodeCache
	geocodeConcurrency int
	initialBackoff     time.Duration
}

type ORSOptions struct {
	BaseURL         string
	Profile         string
	BoundaryCountry string
	HTTPClient      *http.Client
	DistanceCache   ports.DistanceCache
	GeocodeCache    ports.GeocodeCache
}

func NewORSClient(apiKey string, opts ORSOptions) (*ORSClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	client := &ORSClient{
		session:            opts.HTTPClient,
		apiKey:             apiKey,
		baseURL:            strings.TrimRight(opts.BaseURL, "/"),
		profile:            opts.Profile,
		boundaryCountry:    opts.BoundaryCountry,
		distanceCache:      opts.DistanceCache,
		geocodeCache:       opts.GeocodeCache,
		geocodeConcurrency: defaultGeocodeConcurrency,
		initialBackoff:     200 * time.Millisecond,
	}
	if client.session == nil {
		client.session = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.profile == "" {
		client.profile = defaultProfile
	}

	return client, nil
}

// normalize ensures consistent cache keys by collapsing whitespace.
func (o *ORSClient) normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
