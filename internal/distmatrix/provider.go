// Package distmatrix builds travel-cost matrices for a list of locations.
package distmatrix

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"routeplan/internal/config"
	"routeplan/internal/model"
)

// Provider returns an n x n cost matrix for locs, row = origin.
type Provider interface {
	Name() string
	Matrix(ctx context.Context, locs []model.Location) (model.Matrix, error)
}

var (
	ErrMissingAPIKey  = errors.New("distance matrix: api key not configured")
	ErrNoCoordinates  = errors.New("distance matrix: location has no coordinates")
	ErrUnreachable    = errors.New("distance matrix: no route between locations")
	ErrMalformedReply = errors.New("distance matrix: malformed response")
)

// APIError is a non-OK top-level status returned by the remote service.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "distance matrix: " + e.Status
	}
	return fmt.Sprintf("distance matrix: %s: %s", e.Status, e.Message)
}

// New builds the configured provider, wrapped with a cache when enabled.
func New(cfg config.Config, log *zap.Logger) (Provider, error) {
	var p Provider
	switch cfg.Distance.Provider {
	case "google":
		p = NewGoogle(cfg.Distance, log)
	case "haversine":
		p = Haversine{SpeedKph: cfg.Distance.SpeedKph, Metric: cfg.Distance.Metric}
	default:
		return nil, fmt.Errorf("distance provider %q not supported", cfg.Distance.Provider)
	}
	if !cfg.Cache.Enabled {
		return p, nil
	}
	var c Cache = NewMemoryCache()
	if cfg.Cache.RedisURL != "" {
		rc, err := NewRedisCache(cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("matrix cache: %w", err)
		}
		c = rc
	}
	return &Cached{Provider: p, Cache: c, Metric: cfg.Distance.Metric, TTL: cfg.Cache.TTL, Log: log}, nil
}

// queryValue is how a location is named to a remote service.
// Coordinates win over the display name when both are present.
func queryValue(l model.Location) string {
	if l.Location != nil {
		return strconv.FormatFloat(l.Location.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Location.Lng, 'f', -1, 64)
	}
	return l.Name
}
