package report

import (
	"encoding/json"
	"io"

	polyline "github.com/twpayne/go-polyline"

	"routeplan/internal/model"
)

// Polyline encodes the route as a Google encoded polyline. It is empty
// unless every stop on the route has coordinates.
func Polyline(p model.Plan) string {
	if len(p.Stops) == 0 {
		return ""
	}
	coords := make([][]float64, 0, len(p.Stops))
	for _, s := range p.Stops {
		if s.Location == nil {
			return ""
		}
		coords = append(coords, []float64{s.Location.Lat, s.Location.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}

// JSON writes p as indented JSON with the route polyline filled in.
func JSON(w io.Writer, p model.Plan) error {
	if p.Polyline == "" {
		p.Polyline = Polyline(p)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
