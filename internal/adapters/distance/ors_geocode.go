package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
)

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// geocodeMany resolves addresses individually using OpenRouteService
// (/geocode/search). Calls run with bounded concurrency and may be retried
// via doWithRetry. The first failure cancels the remaining lookups.
func (o *ORSClient) geocodeMany(
	ctx context.Context,
	addresses []string,
) (_ map[string]domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.geocodeMany")(&err)

	endpoint := o.baseURL + "/geocode/search"

	var mu sync.Mutex
	out := make(map[string]domain.Coordinates, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.geocodeConcurrency)

	seen := make(map[string]struct{}, len(addresses))
	for _, a := range addresses {
		norm := o.normalize(a)
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}

		g.Go(func() error {
			c, err := o.geocodeOne(gctx, endpoint, norm)
			if err != nil {
				return err
			}
			mu.Lock()
			out[norm] = c
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

func (o *ORSClient) geocodeOne(ctx context.Context, endpoint string, address string) (domain.Coordinates, error) {
	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("text", address)
		q.Set("size", "1")
		if o.boundaryCountry != "" {
			q.Set("boundary.country", o.boundaryCountry)
		}
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: execute request: %w", address, err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("geocode %q: decode response: %w", address, upstreamError(err))
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("geocode: %w: %q", ports.ErrAddressNotFound, address)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("geocode: %w: invalid coordinate format for %q", ports.ErrUpstream, address)
	}

	return domain.Coordinates{
		Lon: coords[0],
		Lat: coords[1],
	}, nil
}

// ReverseGeocode resolves a position (e.g. the device's current location)
// into the label of the nearest known address (/geocode/reverse).
func (o *ORSClient) ReverseGeocode(ctx context.Context, c domain.Coordinates) (_ string, err error) {
	defer obs.Time(ctx, "ors.ReverseGeocode")(&err)

	if !c.Valid() {
		return "", fmt.Errorf("reverse geocode: invalid coordinates %s", c)
	}

	endpoint := o.baseURL + "/geocode/reverse"
	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("point.lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
		q.Set("point.lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
		q.Set("size", "1")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode: execute request: %w", err)
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("reverse geocode: decode response: %w", upstreamError(err))
	}

	if len(decoded.Features) == 0 || decoded.Features[0].Properties.Label == "" {
		return "", fmt.Errorf("reverse geocode: %w: %s", ports.ErrAddressNotFound, c)
	}

	return decoded.Features[0].Properties.Label, nil
}
