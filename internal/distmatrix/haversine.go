package distmatrix

import (
	"context"
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"routeplan/internal/model"
)

// earthRadiusM is the mean Earth radius in metres.
const earthRadiusM = 6371008.8

// Haversine estimates costs offline from great-circle distances.
// Every location needs coordinates.
type Haversine struct {
	SpeedKph float64
	Metric   string
}

func (h Haversine) Name() string { return "haversine" }

func (h Haversine) Profile() string {
	return fmt.Sprintf("haversine|%g|%s", h.SpeedKph, h.Metric)
}

func (h Haversine) Matrix(ctx context.Context, locs []model.Location) (model.Matrix, error) {
	pts := make([]s2.LatLng, len(locs))
	for i, l := range locs {
		if l.Location == nil {
			return nil, fmt.Errorf("%w: %d (%s)", ErrNoCoordinates, i, l.Name)
		}
		pts[i] = s2.LatLngFromDegrees(l.Location.Lat, l.Location.Lng)
	}
	speed := h.SpeedKph * 1000 / 3600 // m/s
	if speed <= 0 {
		return nil, fmt.Errorf("haversine: speed must be positive, got %v kph", h.SpeedKph)
	}
	m := make(model.Matrix, len(locs))
	for i := range pts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m[i] = make([]int64, len(locs))
		for j := range pts {
			if i == j {
				continue
			}
			metres := pts[i].Distance(pts[j]).Radians() * earthRadiusM
			if h.Metric == "distance" {
				m[i][j] = int64(math.Round(metres))
			} else {
				m[i][j] = int64(math.Round(metres / speed))
			}
		}
	}
	return m, nil
}
