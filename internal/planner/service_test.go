package planner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeplan/internal/config"
	"routeplan/internal/distmatrix"
	"routeplan/internal/events"
	"routeplan/internal/model"
	"routeplan/internal/solver"
	"routeplan/internal/store"
	"routeplan/internal/webhooks"
)

// routeSolver returns a fixed visiting order.
type routeSolver struct {
	route []int
	err   error
	got   model.Problem
}

func (s *routeSolver) Solve(ctx context.Context, p model.Problem) (model.Assignment, error) {
	s.got = p
	if s.err != nil {
		return model.Assignment{}, s.err
	}
	return model.Assignment{Route: s.route}, nil
}

type fixedMatrix struct {
	m   model.Matrix
	err error
}

func (f fixedMatrix) Name() string { return "fixed" }
func (f fixedMatrix) Matrix(ctx context.Context, locs []model.Location) (model.Matrix, error) {
	return f.m, f.err
}

func locations() []model.Location {
	return []model.Location{{Name: "Depot"}, {Name: "A", Demand: 10}, {Name: "B", Demand: 20}}
}

func newService(slv solver.Solver, mp fixedMatrix) (*Service, *store.Memory, *events.Memory) {
	st := store.NewMemory()
	br := events.NewMemory()
	return &Service{
		Matrix:   mp,
		Solver:   slv,
		Store:    st,
		Broker:   br,
		Webhooks: webhooks.NewPublisher(st, []config.Webhook{{URL: "http://hook", Events: []string{"*"}}}, nil),
		Defaults: Defaults{Capacity: 400, Penalty: 1000, MaxRouteCost: 648000, Metric: "duration"},
	}, st, br
}

var square = model.Matrix{{0, 4, 6}, {4, 0, 3}, {6, 3, 0}}

func TestRunSolves(t *testing.T) {
	slv := &routeSolver{route: []int{0, 2, 0}}
	svc, st, _ := newService(slv, fixedMatrix{m: square})

	rec, err := svc.Run(context.Background(), model.PlanRequest{Locations: locations()})
	require.NoError(t, err)
	assert.Equal(t, model.PlanSolved, rec.Status)
	assert.Equal(t, "inline", rec.Source)
	assert.Equal(t, 3, rec.Locations)
	require.NotNil(t, rec.Plan)
	assert.Equal(t, int64(12), rec.Plan.RouteCost)
	require.Len(t, rec.Plan.Dropped, 1)
	assert.Equal(t, "A", rec.Plan.Dropped[0].Name)
	assert.Equal(t, int64(1012), rec.Plan.Objective)

	stored, err := st.GetPlan(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanSolved, stored.Status)

	due, err := st.FetchDueWebhookDeliveries(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, events.PlanSolved, due[0].EventType)
}

func TestRunAppliesRequestOverrides(t *testing.T) {
	slv := &routeSolver{route: []int{0, 1, 0}}
	svc, _, _ := newService(slv, fixedMatrix{m: square})
	capacity := 50
	penalty := int64(7)
	_, err := svc.Run(context.Background(), model.PlanRequest{
		Locations:   locations(),
		Matrix:      model.Matrix{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}},
		Capacity:    &capacity,
		Penalty:     &penalty,
		TimeLimitMs: 1500,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, slv.got.Capacity)
	assert.Equal(t, int64(7), slv.got.Penalty)
	assert.Equal(t, int64(1), slv.got.Matrix[0][1])
	assert.Equal(t, 1500*time.Millisecond, slv.got.TimeLimit)
}

func TestRunRecordsFailure(t *testing.T) {
	slv := &routeSolver{err: solver.ErrNoSolution}
	svc, st, _ := newService(slv, fixedMatrix{m: square})

	rec, err := svc.Run(context.Background(), model.PlanRequest{Locations: locations()})
	require.ErrorIs(t, err, solver.ErrNoSolution)
	assert.Equal(t, model.PlanFailed, rec.Status)

	stored, _ := st.GetPlan(context.Background(), rec.ID)
	assert.Equal(t, model.PlanFailed, stored.Status)
	assert.Contains(t, stored.Error, "no solution")
}

func TestRunRejectsBadMatrix(t *testing.T) {
	svc, _, _ := newService(&routeSolver{route: []int{0, 0}}, fixedMatrix{m: square})
	_, err := svc.Run(context.Background(), model.PlanRequest{Locations: locations(), Matrix: model.Matrix{{0}}})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestRunPropagatesProviderError(t *testing.T) {
	boom := errors.New("api down")
	svc, _, _ := newService(&routeSolver{route: []int{0, 0}}, fixedMatrix{err: boom})
	_, err := svc.Run(context.Background(), model.PlanRequest{Locations: locations()})
	assert.ErrorIs(t, err, boom)
}

func TestProviderErrorNotDoublePrefixed(t *testing.T) {
	svc, _, _ := newService(&routeSolver{route: []int{0, 0}}, fixedMatrix{err: distmatrix.ErrNoCoordinates})
	_, err := svc.Run(context.Background(), model.PlanRequest{Locations: locations()})
	require.ErrorIs(t, err, distmatrix.ErrNoCoordinates)
	assert.Equal(t, 1, strings.Count(err.Error(), "distance matrix:"), err.Error())
	assert.True(t, strings.HasPrefix(err.Error(), "measure: "), err.Error())
}

func TestStartPublishesEvents(t *testing.T) {
	slv := &routeSolver{route: []int{0, 1, 2, 0}}
	svc, st, br := newService(slv, fixedMatrix{m: square})

	// subscribe before the run can start by pre-creating a record id
	rec, err := st.CreatePlan(context.Background(), model.PlanRecord{Source: "inline"})
	require.NoError(t, err)
	ch := br.Subscribe(rec.ID)
	defer br.Unsubscribe(rec.ID, ch)

	go func() { _, _ = svc.execute(context.Background(), rec, model.PlanRequest{Locations: locations()}) }()

	var types []string
	timeout := time.After(2 * time.Second)
	for len(types) < 3 {
		select {
		case e := <-ch:
			types = append(types, e.Type)
		case <-timeout:
			t.Fatalf("timed out, got %v", types)
		}
	}
	assert.Equal(t, []string{events.PlanStarted, events.PlanMatrixReady, events.PlanSolved}, types)
}

func TestStartReturnsPending(t *testing.T) {
	slv := &routeSolver{route: []int{0, 0}}
	svc, st, _ := newService(slv, fixedMatrix{m: square})
	rec, err := svc.Start(context.Background(), model.PlanRequest{Locations: locations()})
	require.NoError(t, err)
	assert.Equal(t, model.PlanPending, rec.Status)

	require.Eventually(t, func() bool {
		got, err := st.GetPlan(context.Background(), rec.ID)
		return err == nil && got.Status == model.PlanSolved
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Distance.Provider = "haversine"
	cfg.Webhooks = []config.Webhook{{URL: "http://hook", Events: []string{"plan.solved"}}}
	svc, err := New(cfg, store.NewMemory(), events.NewMemory(), nil)
	require.NoError(t, err)
	assert.Equal(t, "flatfile", svc.Source.Name())
	assert.Equal(t, "haversine", svc.Matrix.Name())
	assert.NotNil(t, svc.Webhooks)
	assert.Equal(t, 400, svc.Defaults.Capacity)

	cfg.CSVFile = "stops.csv"
	assert.Equal(t, "csv", SourceFor(cfg).Name())
	cfg.CSVFile, cfg.LocationsFile = "", ""
	assert.Nil(t, SourceFor(cfg))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Distance.Provider = "osrm"
	_, err := New(cfg, store.NewMemory(), nil, nil)
	assert.Error(t, err)
}
