package solver

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/nextmv-io/sdk/route"
	"github.com/nextmv-io/sdk/store"
	"go.uber.org/zap"

	"routeplan/internal/metrics"
	"routeplan/internal/model"
)

const vehicleID = "vehicle-0"

// Nextmv solves with the nextmv router. The engine is loaded as a plugin at
// run time, so the binary needs it available.
type Nextmv struct {
	Options Options
	Log     *zap.Logger
}

func NewNextmv(opts Options, log *zap.Logger) *Nextmv {
	if log == nil {
		log = zap.NewNop()
	}
	return &Nextmv{Options: opts, Log: log}
}

// Available reports whether the engine plugin can be loaded.
func (s *Nextmv) Available() error {
	_, err := EnginePath()
	return err
}

func (s *Nextmv) Solve(ctx context.Context, p model.Problem) (model.Assignment, error) {
	if err := Validate(p); err != nil {
		return model.Assignment{}, err
	}
	if len(p.Locations) == 1 {
		return model.Assignment{Route: []int{model.DepotIndex, model.DepotIndex}}, nil
	}
	if err := s.Available(); err != nil {
		return model.Assignment{}, err
	}
	router, err := s.router(p)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("build router: %w", err)
	}
	opts := store.DefaultOptions()
	opts.Diagram.Expansion.Limit = 1
	opts.Limits.Duration = s.Options.DurationLimit
	if p.TimeLimit > 0 {
		opts.Limits.Duration = p.TimeLimit
	}
	if opts.Limits.Duration == 0 {
		opts.Limits.Duration = 10 * time.Second
	}
	slv, err := router.Solver(opts)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("build solver: %w", err)
	}

	start := time.Now()
	sol := slv.Last(ctx)
	metrics.SolveDuration.Observe(time.Since(start).Seconds())
	if sol.Store == nil {
		return model.Assignment{}, ErrNoSolution
	}
	s.Log.Debug("solver finished", zap.Any("elapsed", sol.Statistics.Time.Elapsed))
	plan := router.Plan().Get(sol.Store)
	return planToAssignment(len(p.Locations), plan)
}

func (s *Nextmv) router(p model.Problem) (route.Router, error) {
	stops := make([]route.Stop, len(p.Locations)-1)
	for i := range stops {
		loc := p.Locations[i+1]
		stops[i] = route.Stop{ID: strconv.Itoa(i + 1)}
		if loc.Location != nil {
			stops[i].Position = route.Position{Lon: loc.Location.Lng, Lat: loc.Location.Lat}
		}
	}
	depot := route.Position{}
	if d := p.Locations[model.DepotIndex].Location; d != nil {
		depot = route.Position{Lon: d.Lng, Lat: d.Lat}
	}
	measures := []route.ByIndex{depotMeasure{m: p.Matrix, stops: len(stops)}}

	opts := []route.Option{
		route.Starts([]route.Position{depot}),
		route.Ends([]route.Position{depot}),
		route.ValueFunctionMeasures(measures),
		route.TravelTimeMeasures(measures),
		route.LimitDurations([]float64{float64(p.MaxRouteCost)}, true),
		route.Capacity(quantities(p), []int{capacity(p)}),
		route.Unassigned(penalties(p)),
	}
	if s.Options.Threads > 0 {
		opts = append(opts, route.Threads(s.Options.Threads))
	}
	return route.NewRouter(stops, []string{vehicleID}, opts...)
}

// planToAssignment maps the engine plan back to location indices. Vehicle
// start and end are the first and last route entries.
func planToAssignment(n int, plan route.Plan) (model.Assignment, error) {
	if len(plan.Vehicles) != 1 {
		return model.Assignment{}, fmt.Errorf("solver returned %d vehicles, want 1", len(plan.Vehicles))
	}
	r := plan.Vehicles[0].Route
	a := model.Assignment{Route: []int{model.DepotIndex}}
	for i, st := range r {
		if i == 0 || i == len(r)-1 {
			continue
		}
		idx, err := stopIndex(st.ID, n)
		if err != nil {
			return model.Assignment{}, err
		}
		a.Route = append(a.Route, idx)
	}
	a.Route = append(a.Route, model.DepotIndex)
	for _, st := range plan.Unassigned {
		idx, err := stopIndex(st.ID, n)
		if err != nil {
			return model.Assignment{}, err
		}
		a.Dropped = append(a.Dropped, idx)
	}
	sort.Ints(a.Dropped)
	return a, nil
}

func stopIndex(id string, n int) (int, error) {
	idx, err := strconv.Atoi(id)
	if err != nil || idx <= model.DepotIndex || idx >= n {
		return 0, fmt.Errorf("solver returned unknown stop %q", id)
	}
	return idx, nil
}
