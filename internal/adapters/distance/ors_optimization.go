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

type optimizationJob struct {
	ID       int       `json:"id"`
	Location []float64 `json:"location"`
}

type optimizationVehicle struct {
	ID      int       `json:"id"`
	Profile string    `json:"profile"`
	Start   []float64 `json:"start"`
	End     []float64 `json:"end,omitempty"`
}

type optimizationRequest struct {
	Jobs     []optimizationJob     `json:"jobs"`
	Vehicles []optimizationVehicle `json:"vehicles"`
}

type optimizationResponse struct {
	Unassigned []struct {
		ID int `json:"id"`
	} `json:"unassigned"`
	Routes []struct {
		Steps []struct {
			Type string `json:"type"`
			ID   *int   `json:"id"`
			Job  *int   `json:"job"`
		} `json:"steps"`
	} `json:"routes"`
}

// OrderStops delegates ordering to the ORS optimization endpoint with a
// single vehicle starting at locations[0]. Job ids are location indices.
func (o *ORSClient) OrderStops(
	ctx context.Context,
	locations []domain.Coordinates,
	closedTour bool,
) (_ domain.RouteOrder, err error) {
	defer obs.Time(ctx, "ors.OrderStops")(&err)

	if len(locations) == 0 {
		return nil, errors.New("order stops: locations must be non-empty")
	}
	if len(locations) == 1 {
		return domain.RouteOrder{0}, nil
	}

	vehicle := optimizationVehicle{
		ID:      1,
		Profile: o.profile,
		Start:   locations[0].CoordsToList(),
	}
	if closedTour {
		vehicle.End = locations[0].CoordsToList()
	}

	body := optimizationRequest{
		Jobs:     make([]optimizationJob, 0, len(locations)-1),
		Vehicles: []optimizationVehicle{vehicle},
	}
	for i := 1; i < len(locations); i++ {
		body.Jobs = append(body.Jobs, optimizationJob{ID: i, Location: locations[i].CoordsToList()})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal optimization request: %w", err)
	}

	endpoint := o.baseURL + "/optimization"
	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return nil, fmt.Errorf("optimization request failed: %w", err)
	}
	defer resp.Body.Close()

	var optResp optimizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&optResp); err != nil {
		return nil, fmt.Errorf("decode optimization response: %w", upstreamError(err))
	}

	if len(optResp.Unassigned) > 0 {
		return nil, fmt.Errorf("order stops: %w: %d stops left unassigned", ports.ErrUpstream, len(optResp.Unassigned))
	}
	if len(optResp.Routes) != 1 {
		return nil, fmt.Errorf("order stops: %w: expected 1 route, got %d", ports.ErrUpstream, len(optResp.Routes))
	}

	order := domain.RouteOrder{0}
	for _, step := range optResp.Routes[0].Steps {
		if step.Type != "job" {
			continue
		}
		// Newer responses carry the job id in "id", older ones in "job".
		switch {
		case step.ID != nil:
			order = append(order, *step.ID)
		case step.Job != nil:
			order = append(order, *step.Job)
		default:
			return nil, fmt.Errorf("order stops: %w: job step without id", ports.ErrUpstream)
		}
	}

	return order, nil
}
