package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
)

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
	Units     string      `json:"units"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// fetchMatrix retrieves the full N×N distance and duration matrix between
// locations using the OpenRouteService matrix endpoint.
// A null cell means ORS could not route that pair.
func (o *ORSClient) fetchMatrix(
	ctx context.Context,
	locations []domain.Coordinates,
) (_ [][]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "ors.fetchMatrix")(&err)

	n := len(locations)
	if n == 0 {
		return [][]ports.DistanceResult{}, nil
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	bodyObj := matrixRequest{
		Locations: make([][]float64, 0, n),
		Metrics:   []string{"distance", "duration"},
		Units:     "m",
	}
	for _, c := range locations {
		bodyObj.Locations = append(bodyObj.Locations, c.CoordsToList())
	}

	payload, err := json.Marshal(bodyObj)
	if err != nil {
		return nil, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode matrix response: %w", upstreamError(err))
	}

	if len(mr.Distances) != n || len(mr.Durations) != n {
		return nil, fmt.Errorf(
			"%w: expected %d rows; got distances=%d durations=%d",
			ports.ErrIncompleteMatrix, n, len(mr.Distances), len(mr.Durations),
		)
	}

	out := make([][]ports.DistanceResult, n)
	for i := 0; i < n; i++ {
		if len(mr.Distances[i]) != n || len(mr.Durations[i]) != n {
			return nil, fmt.Errorf(
				"%w: row %d lengths distances=%d durations=%d, want %d",
				ports.ErrIncompleteMatrix, i, len(mr.Distances[i]), len(mr.Durations[i]), n,
			)
		}

		out[i] = make([]ports.DistanceResult, n)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}

			metersPtr := mr.Distances[i][j]
			secondsPtr := mr.Durations[i][j]
			if metersPtr == nil || secondsPtr == nil {
				return nil, fmt.Errorf("%w: no route from location %d to %d", ports.ErrIncompleteMatrix, i, j)
			}

			// ORS returns float metrics; round to nearest integer for cache consistency.
			out[i][j] = ports.DistanceResult{
				DistanceMeters:  int(math.Round(*metersPtr)),
				DurationSeconds: int(math.Round(*secondsPtr)),
			}
		}
	}

	return out, nil
}
