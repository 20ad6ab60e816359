package planner

import (
	"fmt"

	"go.uber.org/zap"

	"routeplan/internal/config"
	"routeplan/internal/distmatrix"
	"routeplan/internal/events"
	"routeplan/internal/integrations"
	"routeplan/internal/integrations/csvfile"
	"routeplan/internal/integrations/flatfile"
	"routeplan/internal/solver"
	"routeplan/internal/store"
	"routeplan/internal/webhooks"
)

// New assembles a Service from configuration. A CSV file, when set, takes
// precedence over the locations and weights files.
func New(cfg config.Config, st store.Store, br events.Broker, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	mp, err := distmatrix.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("distance provider: %w", err)
	}
	svc := &Service{
		Source: SourceFor(cfg),
		Matrix: mp,
		Solver: solver.NewNextmv(solver.Options{
			DurationLimit: cfg.Solver.DurationLimit,
			Threads:       cfg.Solver.Threads,
		}, log),
		Store:  st,
		Broker: br,
		Defaults: Defaults{
			Capacity:     cfg.Capacity,
			Penalty:      cfg.Penalty,
			MaxRouteCost: cfg.MaxRouteCost,
			Metric:       cfg.Distance.Metric,
		},
		Log: log,
	}
	if len(cfg.Webhooks) > 0 {
		svc.Webhooks = webhooks.NewPublisher(st, cfg.Webhooks, log)
	}
	return svc, nil
}

// SourceFor picks the configured location source, or nil when none is set.
func SourceFor(cfg config.Config) integrations.Source {
	switch {
	case cfg.CSVFile != "":
		return csvfile.Adapter{Path: cfg.CSVFile}
	case cfg.LocationsFile != "":
		return flatfile.Adapter{LocationsPath: cfg.LocationsFile, WeightsPath: cfg.WeightsFile}
	}
	return nil
}
