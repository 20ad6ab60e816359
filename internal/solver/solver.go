// Package solver hands an assembled routing problem to an external routing engine.
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"routeplan/internal/model"
)

// Solver finds a visiting order for one vehicle, dropping stops at a penalty when needed.
type Solver interface {
	Solve(ctx context.Context, p model.Problem) (model.Assignment, error)
}

var (
	ErrInvalidProblem = errors.New("invalid problem")
	ErrNoSolution     = errors.New("no solution found")
)

// Options tune the engine run.
type Options struct {
	DurationLimit time.Duration
	Threads       int
}

// Validate checks the shape of p before it is handed to an engine.
func Validate(p model.Problem) error {
	n := len(p.Locations)
	if n == 0 {
		return fmt.Errorf("%w: no locations", ErrInvalidProblem)
	}
	if !p.Matrix.Square(n) {
		return fmt.Errorf("%w: matrix is not %dx%d", ErrInvalidProblem, n, n)
	}
	for i, row := range p.Matrix {
		for j, c := range row {
			if c < 0 {
				return fmt.Errorf("%w: negative cost %d at [%d][%d]", ErrInvalidProblem, c, i, j)
			}
		}
	}
	for i, l := range p.Locations {
		if l.Demand < 0 {
			return fmt.Errorf("%w: location %d has negative demand", ErrInvalidProblem, i)
		}
	}
	if p.Capacity < 0 || p.Penalty < 0 {
		return fmt.Errorf("%w: capacity and penalty must be non-negative", ErrInvalidProblem)
	}
	if p.MaxRouteCost <= 0 {
		return fmt.Errorf("%w: max route cost must be positive, got %d", ErrInvalidProblem, p.MaxRouteCost)
	}
	if p.Locations[model.DepotIndex].Demand > p.Capacity {
		return fmt.Errorf("%w: depot demand %d exceeds capacity %d", ErrInvalidProblem, p.Locations[model.DepotIndex].Demand, p.Capacity)
	}
	return nil
}
