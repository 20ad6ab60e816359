package solver

import "routeplan/internal/model"

// depotMeasure exposes the matrix in router index space: stops come first,
// then the vehicle's start and end, both of which sit at the depot.
type depotMeasure struct {
	m     model.Matrix
	stops int
}

func (d depotMeasure) location(i int) int {
	if i >= d.stops {
		return model.DepotIndex
	}
	return i + 1
}

func (d depotMeasure) Cost(from, to int) float64 {
	return float64(d.m[d.location(from)][d.location(to)])
}

// quantities lists the capacity change at each stop. The engine reads a
// negative value as load taken on.
func quantities(p model.Problem) []int {
	q := make([]int, len(p.Locations)-1)
	for i := range q {
		q[i] = -p.Demand(i + 1)
	}
	return q
}

// capacity is what remains for stops once the depot's own weight is loaded.
func capacity(p model.Problem) int {
	return p.Capacity - p.Demand(model.DepotIndex)
}

func penalties(p model.Problem) []int {
	out := make([]int, len(p.Locations)-1)
	for i := range out {
		out[i] = int(p.Penalty)
	}
	return out
}
