package services

import (
	"math"
	"route-optimizer-service/internal/domain"
)

// exactSearch enumerates orderings of locations 1..n-1 by recursive swaps.
// Enumeration order is fixed, and only a strictly cheaper complete path
// replaces the incumbent, so the first minimum found is the one returned.
type exactSearch struct {
	m        domain.DistanceMatrix
	closed   bool
	perm     []int
	bestPerm []int
	best     float64
}

// bruteForceOrder returns the minimum-cost order with 0 fixed first.
// O((n-1)!) time, O(n) space.
func bruteForceOrder(m domain.DistanceMatrix, closed bool) (domain.RouteOrder, float64) {
	n := m.Size()

	perm := make([]int, n-1)
	for i := range perm {
		perm[i] = i + 1
	}

	s := &exactSearch{
		m:        m,
		closed:   closed,
		perm:     perm,
		bestPerm: make([]int, n-1),
		best:     math.Inf(1),
	}
	s.permute(0, 0, 0)

	order := make(domain.RouteOrder, 0, n)
	order = append(order, 0)
	order = append(order, s.bestPerm...)
	return order, s.best
}

func (s *exactSearch) permute(l int, prev int, cost float64) {
	// Entries are non-negative: no completion of this prefix can be
	// strictly cheaper than the incumbent.
	if cost >= s.best {
		return
	}

	if l == len(s.perm) {
		if s.closed {
			cost += s.m[prev][0]
		}
		if cost < s.best {
			s.best = cost
			copy(s.bestPerm, s.perm)
		}
		return
	}

	for i := l; i < len(s.perm); i++ {
		s.perm[l], s.perm[i] = s.perm[i], s.perm[l]
		next := s.perm[l]
		s.permute(l+1, next, cost+s.m[prev][next])
		s.perm[l], s.perm[i] = s.perm[i], s.perm[l]
	}
}
