package services

import (
	"net/url"
	"route-optimizer-service/internal/domain"
	"route-optimizer-service/internal/ports"
	"strings"
)

const googleMapsDirectionsURL = "https://www.google.com/maps/dir/?api=1"

// MapsURL builds a Google Maps directions deep link visiting locations in
// order. The first location is the origin and the last the destination; the
// rest become waypoints. A closed tour ends back at the origin.
func MapsURL(locations []string, closed bool) string {
	if len(locations) == 0 {
		return ""
	}

	origin := locations[0]
	destination := locations[len(locations)-1]
	var between []string
	switch {
	case closed:
		destination = origin
		between = locations[1:]
	case len(locations) > 2:
		between = locations[1 : len(locations)-1]
	}

	var b strings.Builder
	b.WriteString(googleMapsDirectionsURL)
	b.WriteString("&origin=")
	b.WriteString(url.QueryEscape(origin))
	b.WriteString("&destination=")
	b.WriteString(url.QueryEscape(destination))
	if len(between) > 0 {
		b.WriteString("&waypoints=")
		b.WriteString(url.QueryEscape(strings.Join(between, "|")))
	}
	return b.String()
}

// presentRoute turns a solved order into the caller-facing plan: stops
// labelled 1..N in visit order, leg totals and the deep link.
func presentRoute(
	resolved *ports.ResolvedMatrix,
	result *domain.RouteResult,
	legs []domain.Leg,
	geometry []domain.Coordinates,
) *domain.RoutePlan {
	stops := make([]domain.PlannedStop, 0, len(result.Order))
	ordered := make([]string, 0, len(result.Order))
	for pos, idx := range result.Order {
		stops = append(stops, domain.PlannedStop{
			Label:       pos + 1,
			InputIndex:  idx,
			Address:     resolved.Addresses[idx],
			Coordinates: resolved.Coordinates[idx],
		})
		ordered = append(ordered, resolved.Addresses[idx])
	}

	meters, seconds := SumLegs(legs)
	if geometry == nil {
		geometry = []domain.Coordinates{}
	}

	return &domain.RoutePlan{
		Stops:                stops,
		Order:                result.Order,
		Legs:                 legs,
		Geometry:             geometry,
		TotalDistanceMeters:  meters,
		TotalDurationSeconds: seconds,
		TotalDistanceKm:      meters / 1000,
		ClosedTour:           result.ClosedTour,
		Strategy:             result.Strategy,
		MapURL:               MapsURL(ordered, result.ClosedTour),
	}
}
