// Package planner runs planning jobs end to end: load, measure, solve, evaluate, record.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"routeplan/internal/distmatrix"
	"routeplan/internal/events"
	"routeplan/internal/integrations"
	"routeplan/internal/metrics"
	"routeplan/internal/model"
	"routeplan/internal/plan"
	"routeplan/internal/solver"
	"routeplan/internal/store"
	"routeplan/internal/webhooks"
)

// ErrBadRequest marks failures caused by the request data rather than a dependency.
var ErrBadRequest = errors.New("bad request")

// Defaults fill the problem parameters a request leaves unset.
type Defaults struct {
	Capacity     int
	Penalty      int64
	MaxRouteCost int64
	Metric       string
}

type Service struct {
	Source   integrations.Source
	Matrix   distmatrix.Provider
	Solver   solver.Solver
	Store    store.Store
	Broker   events.Broker
	Webhooks *webhooks.Publisher
	Defaults Defaults
	Log      *zap.Logger
}

// Run plans synchronously and returns the final record. A failed run is
// recorded and returned along with the error.
func (s *Service) Run(ctx context.Context, req model.PlanRequest) (model.PlanRecord, error) {
	rec, err := s.submit(ctx, req)
	if err != nil {
		return model.PlanRecord{}, err
	}
	return s.execute(ctx, rec, req)
}

// Start records a pending plan and runs it in the background. The run is
// detached from ctx so it outlives the request that started it.
func (s *Service) Start(ctx context.Context, req model.PlanRequest) (model.PlanRecord, error) {
	rec, err := s.submit(ctx, req)
	if err != nil {
		return model.PlanRecord{}, err
	}
	go func() {
		_, _ = s.execute(context.WithoutCancel(ctx), rec, req)
	}()
	return rec, nil
}

func (s *Service) submit(ctx context.Context, req model.PlanRequest) (model.PlanRecord, error) {
	src := s.source(req)
	rec, err := s.Store.CreatePlan(ctx, model.PlanRecord{Status: model.PlanPending, Source: src.Name()})
	if err != nil {
		return model.PlanRecord{}, fmt.Errorf("create plan: %w", err)
	}
	return rec, nil
}

func (s *Service) source(req model.PlanRequest) integrations.Source {
	if len(req.Locations) > 0 || s.Source == nil {
		return integrations.Static(req.Locations)
	}
	return s.Source
}

func (s *Service) execute(ctx context.Context, rec model.PlanRecord, req model.PlanRequest) (model.PlanRecord, error) {
	log := s.logger().With(zap.String("plan_id", rec.ID))
	rec.Status = model.PlanRunning
	if err := s.Store.UpdatePlan(ctx, rec); err != nil {
		log.Warn("mark plan running", zap.Error(err))
	}
	s.publish(rec.ID, events.PlanStarted, map[string]any{"source": rec.Source})
	log.Info("plan started", zap.String("source", rec.Source))

	pl, err := s.solve(ctx, log, &rec, req)
	if err != nil {
		return s.fail(ctx, log, rec, err)
	}
	rec.Status = model.PlanSolved
	rec.Plan = &pl
	rec.Error = ""
	if err := s.Store.UpdatePlan(ctx, rec); err != nil {
		log.Error("store solved plan", zap.Error(err))
		return rec, fmt.Errorf("store plan: %w", err)
	}
	metrics.PlanRuns.WithLabelValues(string(model.PlanSolved)).Inc()
	metrics.DroppedStops.Observe(float64(len(pl.Dropped)))
	summary := map[string]any{
		"routeCost": pl.RouteCost,
		"routeLoad": pl.RouteLoad,
		"stops":     len(pl.Stops) - 2,
		"dropped":   len(pl.Dropped),
		"objective": pl.Objective,
	}
	s.publish(rec.ID, events.PlanSolved, summary)
	if s.Webhooks != nil {
		s.Webhooks.Emit(ctx, events.PlanSolved, rec.ID, summary)
	}
	log.Info("plan solved",
		zap.Int64("route_cost", pl.RouteCost),
		zap.Int("route_load", pl.RouteLoad),
		zap.Int("dropped", len(pl.Dropped)))
	return rec, nil
}

func (s *Service) solve(ctx context.Context, log *zap.Logger, rec *model.PlanRecord, req model.PlanRequest) (model.Plan, error) {
	locs, err := s.source(req).Load(ctx)
	if err != nil {
		if errors.Is(err, integrations.ErrNoLocations) {
			return model.Plan{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		return model.Plan{}, fmt.Errorf("load locations: %w", err)
	}
	rec.Locations = len(locs)

	p := s.problem(locs, req)
	if len(req.Matrix) > 0 {
		if !req.Matrix.Square(len(locs)) {
			return model.Plan{}, fmt.Errorf("%w: matrix must be %dx%d", ErrBadRequest, len(locs), len(locs))
		}
		p.Matrix = req.Matrix
	} else {
		if s.Matrix == nil {
			return model.Plan{}, fmt.Errorf("%w: no matrix given and no distance provider configured", ErrBadRequest)
		}
		start := time.Now()
		m, err := s.Matrix.Matrix(ctx, locs)
		if err != nil {
			return model.Plan{}, fmt.Errorf("measure: %w", err)
		}
		log.Debug("matrix ready", zap.String("provider", s.Matrix.Name()), zap.Duration("took", time.Since(start)))
		p.Matrix = m
	}
	s.publish(rec.ID, events.PlanMatrixReady, map[string]any{"locations": len(locs)})

	a, err := s.Solver.Solve(ctx, p)
	if err != nil {
		return model.Plan{}, fmt.Errorf("solve: %w", err)
	}
	pl, err := plan.Evaluate(p, a)
	if err != nil {
		return model.Plan{}, fmt.Errorf("evaluate: %w", err)
	}
	return pl, nil
}

func (s *Service) problem(locs []model.Location, req model.PlanRequest) model.Problem {
	p := model.Problem{
		Locations:    locs,
		Capacity:     s.Defaults.Capacity,
		Penalty:      s.Defaults.Penalty,
		MaxRouteCost: s.Defaults.MaxRouteCost,
		Metric:       s.Defaults.Metric,
		TimeLimit:    time.Duration(req.TimeLimitMs) * time.Millisecond,
	}
	if req.Capacity != nil {
		p.Capacity = *req.Capacity
	}
	if req.Penalty != nil {
		p.Penalty = *req.Penalty
	}
	if req.MaxRouteCost != nil {
		p.MaxRouteCost = *req.MaxRouteCost
	}
	if p.Metric == "" {
		p.Metric = "duration"
	}
	return p
}

func (s *Service) fail(ctx context.Context, log *zap.Logger, rec model.PlanRecord, cause error) (model.PlanRecord, error) {
	rec.Status = model.PlanFailed
	rec.Error = cause.Error()
	if err := s.Store.UpdatePlan(ctx, rec); err != nil {
		log.Error("store failed plan", zap.Error(err))
	}
	metrics.PlanRuns.WithLabelValues(string(model.PlanFailed)).Inc()
	data := map[string]any{"error": rec.Error}
	s.publish(rec.ID, events.PlanFailed, data)
	if s.Webhooks != nil {
		s.Webhooks.Emit(ctx, events.PlanFailed, rec.ID, data)
	}
	log.Warn("plan failed", zap.Error(cause))
	return rec, cause
}

func (s *Service) publish(planID, typ string, data map[string]any) {
	if s.Broker == nil {
		return
	}
	s.Broker.Publish(planID, events.Event{Type: typ, PlanID: planID, At: time.Now().UTC(), Data: data})
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
