package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeplan/internal/model"
)

func problem() model.Problem {
	return model.Problem{
		Locations: []model.Location{
			{Name: "Depot", Demand: 5},
			{Name: "A", Demand: 100},
			{Name: "B", Demand: 200},
			{Name: "C", Demand: 300},
		},
		Matrix: model.Matrix{
			{0, 10, 20, 30},
			{11, 0, 12, 13},
			{21, 22, 0, 23},
			{31, 32, 33, 0},
		},
		Capacity:     400,
		Penalty:      1000,
		MaxRouteCost: 648000,
		Metric:       "duration",
	}
}

func TestEvaluate(t *testing.T) {
	pl, err := Evaluate(problem(), model.Assignment{Route: []int{0, 2, 1, 0}})
	require.NoError(t, err)

	require.Len(t, pl.Stops, 4)
	assert.Equal(t, []int{5, 205, 305, 305}, []int{pl.Stops[0].Load, pl.Stops[1].Load, pl.Stops[2].Load, pl.Stops[3].Load})
	assert.Equal(t, "Depot", pl.Stops[3].Name)
	require.Len(t, pl.Legs, 3)
	assert.Equal(t, int64(20+22+11), pl.RouteCost)
	assert.Equal(t, 305, pl.RouteLoad)
	require.Len(t, pl.Dropped, 1)
	assert.Equal(t, "C", pl.Dropped[0].Name)
	assert.Equal(t, int64(1000), pl.PenaltyCost)
	assert.Equal(t, pl.RouteCost+1000, pl.Objective)
}

func TestEvaluateEmptyRoute(t *testing.T) {
	pl, err := Evaluate(problem(), model.Assignment{Route: []int{0, 0}})
	require.NoError(t, err)
	assert.Zero(t, pl.RouteCost)
	assert.Equal(t, 5, pl.RouteLoad)
	assert.Len(t, pl.Dropped, 3)
}

func TestEvaluateRejects(t *testing.T) {
	cases := map[string][]int{
		"no depot start": {1, 2, 0},
		"no depot end":   {0, 1, 2},
		"too short":      {0},
		"repeat":         {0, 1, 1, 0},
		"out of range":   {0, 7, 0},
		"over capacity":  {0, 2, 3, 0},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Evaluate(problem(), model.Assignment{Route: r})
			assert.ErrorIs(t, err, ErrInfeasible)
		})
	}
}

func TestEvaluateRouteCostBound(t *testing.T) {
	p := problem()
	p.MaxRouteCost = 40
	_, err := Evaluate(p, model.Assignment{Route: []int{0, 3, 0}})
	assert.ErrorIs(t, err, ErrInfeasible)
}
