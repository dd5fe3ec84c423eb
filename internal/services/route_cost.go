package services

import (
	"route-optimizer-service/internal/domain"
)

// PathCost sums matrix[prev][curr] along the order, plus the leg back to the
// first location when closed is set.
func PathCost(m domain.DistanceMatrix, order domain.RouteOrder, closed bool) float64 {
	if len(order) < 2 {
		return 0
	}

	total := 0.0
	for i := 1; i < len(order); i++ {
		total += m[order[i-1]][order[i]]
	}
	if closed {
		total += m[order[len(order)-1]][order[0]]
	}
	return total
}

// BuildLegs expands an order into legs carrying distance and, when the travel
// matrix has them, duration.
func BuildLegs(travel domain.TravelMatrix, order domain.RouteOrder, closed bool) []domain.Leg {
	if len(order) < 2 {
		return []domain.Leg{}
	}

	stops := order
	if closed {
		stops = make(domain.RouteOrder, 0, len(order)+1)
		stops = append(stops, order...)
		stops = append(stops, order[0])
	}

	withDurations := travel.HasDurations()
	legs := make([]domain.Leg, 0, len(stops)-1)
	for i := 1; i < len(stops); i++ {
		from, to := stops[i-1], stops[i]
		leg := domain.Leg{
			From:           from,
			To:             to,
			DistanceMeters: travel.Distances[from][to],
		}
		if withDurations {
			leg.DurationSeconds = travel.Durations[from][to]
		}
		legs = append(legs, leg)
	}
	return legs
}

// SumLegs totals distance and duration over legs.
func SumLegs(legs []domain.Leg) (meters float64, seconds float64) {
	for _, l := range legs {
		meters += l.DistanceMeters
		seconds += l.DurationSeconds
	}
	return meters, seconds
}
