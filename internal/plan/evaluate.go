// Package plan turns a raw solver assignment into a checked, costed plan.
package plan

import (
	"errors"
	"fmt"

	"routeplan/internal/model"
)

// ErrInfeasible reports an assignment that breaks a route constraint.
var ErrInfeasible = errors.New("infeasible assignment")

// Evaluate recomputes leg costs and cumulative load along a.Route and lists
// every location the route does not visit as dropped. A location's demand is
// loaded when the vehicle departs it, so the depot's weight counts from the start.
func Evaluate(p model.Problem, a model.Assignment) (model.Plan, error) {
	n := len(p.Locations)
	if !p.Matrix.Square(n) {
		return model.Plan{}, fmt.Errorf("%w: matrix is not %dx%d", ErrInfeasible, n, n)
	}
	r := a.Route
	if len(r) < 2 || r[0] != model.DepotIndex || r[len(r)-1] != model.DepotIndex {
		return model.Plan{}, fmt.Errorf("%w: route must start and end at the depot: %v", ErrInfeasible, r)
	}

	out := model.Plan{Metric: p.Metric, Capacity: p.Capacity}
	present := make(map[int]bool, len(r))
	load := 0
	for seq, idx := range r {
		if idx < 0 || idx >= n {
			return model.Plan{}, fmt.Errorf("%w: location %d out of range", ErrInfeasible, idx)
		}
		last := seq == len(r)-1
		if !last {
			if present[idx] {
				return model.Plan{}, fmt.Errorf("%w: location %d visited twice", ErrInfeasible, idx)
			}
			present[idx] = true
			load += p.Demand(idx)
			if load > p.Capacity {
				return model.Plan{}, fmt.Errorf("%w: load %d exceeds capacity %d at location %d", ErrInfeasible, load, p.Capacity, idx)
			}
		}
		loc := p.Locations[idx]
		out.Stops = append(out.Stops, model.PlanStop{
			Index:    idx,
			Name:     loc.Name,
			Demand:   loc.Demand,
			Load:     load,
			Location: loc.Location,
		})
		if last {
			break
		}
		next := r[seq+1]
		if next < 0 || next >= n {
			return model.Plan{}, fmt.Errorf("%w: location %d out of range", ErrInfeasible, next)
		}
		c := p.Transit(idx, next)
		out.Legs = append(out.Legs, model.Leg{Seq: seq, From: idx, To: next, Cost: c})
		out.RouteCost += c
	}
	if p.MaxRouteCost > 0 && out.RouteCost > p.MaxRouteCost {
		return model.Plan{}, fmt.Errorf("%w: route cost %d exceeds bound %d", ErrInfeasible, out.RouteCost, p.MaxRouteCost)
	}
	out.RouteLoad = load

	for i := range p.Locations {
		if present[i] {
			continue
		}
		out.Dropped = append(out.Dropped, model.DroppedStop{Index: i, Name: p.Locations[i].Name, Demand: p.Locations[i].Demand})
	}
	out.PenaltyCost = int64(len(out.Dropped)) * p.Penalty
	out.Objective = out.RouteCost + out.PenaltyCost
	return out, nil
}
