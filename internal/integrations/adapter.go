package integrations

import (
	"context"
	"errors"

	"routeplan/internal/model"
)

// Source defines the minimal interface for problem data integrations.
// Load returns the depot first, followed by the candidate stops.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]model.Location, error)
}

// ErrNoLocations is returned when a source yields nothing to plan.
var ErrNoLocations = errors.New("no locations")

// Static serves a fixed list, e.g. locations posted inline to the API.
type Static []model.Location

func (s Static) Name() string { return "inline" }

func (s Static) Load(ctx context.Context) ([]model.Location, error) {
	if len(s) == 0 {
		return nil, ErrNoLocations
	}
	out := make([]model.Location, len(s))
	copy(out, s)
	for i := range out {
		if out[i].Location == nil {
			if gp, ok := model.ParseGeoPoint(out[i].Name); ok {
				out[i].Location = &gp
			}
		}
	}
	return out, nil
}
