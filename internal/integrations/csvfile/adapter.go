package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"routeplan/internal/integrations"
	"routeplan/internal/model"
)

// Adapter parses a CSV export with a header row: name,demand[,lat,lng].
// Columns are matched by header name, case-insensitively, in any order.
type Adapter struct {
	Path string
}

func (a Adapter) Name() string { return "csv" }

func (a Adapter) Load(ctx context.Context) ([]model.Location, error) {
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse reads locations from r. The first data row is the depot.
func Parse(r io.Reader) ([]model.Location, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, integrations.ErrNoLocations
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	nameIdx, ok := col["name"]
	if !ok {
		return nil, errors.New("csv header: missing name column")
	}
	demandIdx, ok := col["demand"]
	if !ok {
		return nil, errors.New("csv header: missing demand column")
	}
	latIdx, hasLat := col["lat"]
	lngIdx, hasLng := col["lng"]
	if hasLat != hasLng {
		return nil, errors.New("csv header: lat and lng must be given together")
	}

	var out []model.Location
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ParseError already names the line.
			return nil, fmt.Errorf("csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		name := strings.TrimSpace(rec[nameIdx])
		if name == "" {
			return nil, fmt.Errorf("csv line %d: empty name", line)
		}
		demand, err := strconv.Atoi(strings.TrimSpace(rec[demandIdx]))
		if err != nil || demand < 0 {
			return nil, fmt.Errorf("csv line %d: demand %q must be a non-negative integer", line, rec[demandIdx])
		}
		loc := model.Location{Name: name, Demand: demand}
		if hasLat {
			latS, lngS := strings.TrimSpace(rec[latIdx]), strings.TrimSpace(rec[lngIdx])
			switch {
			case latS == "" && lngS == "":
			case latS == "" || lngS == "":
				return nil, fmt.Errorf("csv line %d: lat and lng must be given together", line)
			default:
				gp, ok := model.ParseGeoPoint(latS + "," + lngS)
				if !ok {
					return nil, fmt.Errorf("csv line %d: invalid coordinates %s,%s", line, latS, lngS)
				}
				loc.Location = &gp
			}
		} else if gp, ok := model.ParseGeoPoint(name); ok {
			loc.Location = &gp
		}
		out = append(out, loc)
	}
	if len(out) == 0 {
		return nil, integrations.ErrNoLocations
	}
	return out, nil
}
