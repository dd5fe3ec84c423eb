package services

import (
	"route-optimizer-service/internal/domain"
)

// Order locations using a greedy nearest-neighbor walk from location 0.
//
// The algorithm minimizes the immediate leg at each step and never revisits
// a choice. It does not attempt global optimization; the result is a valid
// order in O(n²) time. The design prioritizes determinism and simplicity.
func nearestNeighborOrder(m domain.DistanceMatrix) domain.RouteOrder {
	n := m.Size()

	visited := make([]bool, n)
	order := make(domain.RouteOrder, 0, n)

	current := 0
	visited[current] = true
	order = append(order, current)

	for len(order) < n {
		next := -1
		var minDistance float64

		// Ascending scan with a strict comparison: ties keep the lowest index.
		for candidate := 0; candidate < n; candidate++ {
			if visited[candidate] {
				continue
			}
			d := m[current][candidate]
			if next == -1 || d < minDistance {
				minDistance = d
				next = candidate
			}
		}

		visited[next] = true
		order = append(order, next)
		current = next
	}

	return order
}
