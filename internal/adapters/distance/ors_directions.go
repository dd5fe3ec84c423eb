package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
)

type directionsRequest struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type directionsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Segments []struct {
				Distance float64 `json:"distance"`
				Duration float64 `json:"duration"`
			} `json:"segments"`
		} `json:"properties"`
	} `json:"features"`
}

// GetDirections requests a rendered path through waypoints in exactly the
// given order. Leg From/To values are positions in waypoints.
func (o *ORSClient) GetDirections(
	ctx context.Context,
	waypoints []domain.Coordinates,
) (_ *domain.RoutePath, err error) {
	defer obs.Time(ctx, "ors.GetDirections")(&err)

	if len(waypoints) < 2 {
		return nil, errors.New("get directions: at least two waypoints are required")
	}

	endpoint := fmt.Sprintf("%s/v2/directions/%s/geojson", o.baseURL, o.profile)

	body := directionsRequest{Coordinates: make([][]float64, 0, len(waypoints))}
	for _, c := range waypoints {
		body.Coordinates = append(body.Coordinates, c.CoordsToList())
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("decode directions response: %w", upstreamError(err))
	}

	if len(dr.Features) == 0 {
		return nil, fmt.Errorf("get directions: %w: response has no route", ports.ErrUpstream)
	}

	feature := dr.Features[0]
	segments := feature.Properties.Segments
	if len(segments) != len(waypoints)-1 {
		return nil, fmt.Errorf(
			"get directions: %w: got %d segments for %d waypoints",
			ports.ErrUpstream, len(segments), len(waypoints),
		)
	}

	path := &domain.RoutePath{
		Legs:     make([]domain.Leg, 0, len(segments)),
		Geometry: make([]domain.Coordinates, 0, len(feature.Geometry.Coordinates)),
	}
	for i, s := range segments {
		path.Legs = append(path.Legs, domain.Leg{
			From:            i,
			To:              i + 1,
			DistanceMeters:  s.Distance,
			DurationSeconds: s.Duration,
		})
	}
	for _, pt := range feature.Geometry.Coordinates {
		if len(pt) < 2 {
			continue
		}
		path.Geometry = append(path.Geometry, domain.Coordinates{Lon: pt[0], Lat: pt[1]})
	}

	return path, nil
}
