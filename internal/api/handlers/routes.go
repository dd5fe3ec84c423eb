package handlers

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"route-optimizer-service/internal/api/dto"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/platform/obs"
	"route-optimizer-service/internal/ports"
	"route-optimizer-service/internal/services"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	sessionHeader = "X-Session-ID"
	maxStops      = 50
)

type RoutePlanner interface {
	PlanRoute(ctx context.Context, req services.PlanRouteRequest) (*domain.RoutePlan, error)
}

type RouteHandler struct {
	Planner RoutePlanner
}

// Plan orders the submitted stops and returns the route to render.
func (h *RouteHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req dto.RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if len(req.Stops) > maxStops {
		writeError(w, r, http.StatusBadRequest, "at most "+strconv.Itoa(maxStops)+" stops are allowed")
		return
	}

	strategy, ok := domain.ParseStrategy(strings.TrimSpace(req.Strategy))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "strategy must be one of auto, exact, heuristic, delegate")
		return
	}

	stops := make([]domain.Stop, 0, len(req.Stops))
	for _, s := range req.Stops {
		stop, ok := toStop(s)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "each stop needs an address or both lat and lon within range")
			return
		}
		stops = append(stops, stop)
	}

	svcReq := services.PlanRouteRequest{
		Session:    sessionKey(r),
		Stops:      stops,
		ClosedTour: req.ClosedTour,
	}
	if strings.TrimSpace(req.Strategy) != "" {
		svcReq.Strategy = strategy
	}

	plan, err := h.Planner.PlanRoute(r.Context(), svcReq)
	if err != nil {
		writePlanError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, toRouteResponse(plan))
}

func writePlanError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *services.RateLimitError

	switch {
	case errors.Is(err, services.ErrTooFewStops):
		writeError(w, r, http.StatusBadRequest, "at least two addresses are required")
	case errors.As(err, &rl):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		writeError(w, r, http.StatusTooManyRequests, "too many route requests, try again later")
	case errors.Is(err, services.ErrUnsupportedStrategy):
		writeError(w, r, http.StatusBadRequest, "strategy is not available for these stops")
	case errors.Is(err, ports.ErrAddressNotFound):
		writeError(w, r, http.StatusUnprocessableEntity,
			"address too ambiguous: add details such as the city, street name or number")
	case errors.Is(err, ports.ErrIncompleteMatrix),
		errors.Is(err, ports.ErrUpstream),
		errors.Is(err, domain.ErrInvalidMatrix):
		obs.Logger(r.Context()).Warn("route distances unavailable", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "could not compute distances, check that every address is correct")
	default:
		obs.Logger(r.Context()).Error("plan route failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func toStop(s dto.StopRequest) (domain.Stop, bool) {
	if s.Lat != nil || s.Lon != nil {
		if s.Lat == nil || s.Lon == nil {
			return domain.Stop{}, false
		}
		c := domain.Coordinates{Lat: *s.Lat, Lon: *s.Lon}
		if !c.Valid() {
			return domain.Stop{}, false
		}
		return domain.Stop{Address: s.Address, Coordinates: &c}, true
	}
	// Blank addresses are dropped by the planner.
	return domain.Stop{Address: s.Address}, true
}

// sessionKey identifies the caller for the call budget: the session header
// when present, the client IP otherwise.
func sessionKey(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get(sessionHeader)); s != "" {
		return "session:" + s
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func toRouteResponse(p *domain.RoutePlan) dto.RouteResponse {
	res := dto.RouteResponse{
		Order:                p.Order,
		Stops:                make([]dto.RouteStopResponse, 0, len(p.Stops)),
		Legs:                 make([]dto.LegResponse, 0, len(p.Legs)),
		Geometry:             make([][]float64, 0, len(p.Geometry)),
		TotalDistanceMeters:  p.TotalDistanceMeters,
		TotalDurationSeconds: p.TotalDurationSeconds,
		TotalDistanceKm:      p.TotalDistanceKm,
		ClosedTour:           p.ClosedTour,
		Strategy:             string(p.Strategy),
		MapURL:               p.MapURL,
	}
	for _, s := range p.Stops {
		res.Stops = append(res.Stops, dto.RouteStopResponse{
			Label:      s.Label,
			InputIndex: s.InputIndex,
			Address:    s.Address,
			Lat:        s.Coordinates.Lat,
			Lon:        s.Coordinates.Lon,
		})
	}
	for _, l := range p.Legs {
		res.Legs = append(res.Legs, dto.LegResponse{
			From:            l.From,
			To:              l.To,
			DistanceMeters:  l.DistanceMeters,
			DurationSeconds: l.DurationSeconds,
		})
	}
	for _, c := range p.Geometry {
		res.Geometry = append(res.Geometry, c.CoordsToList())
	}
	return res
}
