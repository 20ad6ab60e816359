package flatfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"routeplan/internal/integrations"
	"routeplan/internal/model"
)

// Adapter reads the two line-oriented files the planner has always used:
// one location per line and one integer weight per line, in the same order.
type Adapter struct {
	LocationsPath string
	WeightsPath   string
}

func (a Adapter) Name() string { return "flatfile" }

func (a Adapter) Load(ctx context.Context) ([]model.Location, error) {
	names, err := readLines(a.LocationsPath)
	if err != nil {
		return nil, err
	}
	weights, err := readLines(a.WeightsPath)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", a.LocationsPath, integrations.ErrNoLocations)
	}
	if len(names) != len(weights) {
		return nil, fmt.Errorf("%d locations in %s but %d weights in %s", len(names), a.LocationsPath, len(weights), a.WeightsPath)
	}
	out := make([]model.Location, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("%s line %d: empty location", a.LocationsPath, i+1)
		}
		w, err := strconv.Atoi(weights[i])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: weight %q is not an integer", a.WeightsPath, i+1, weights[i])
		}
		if w < 0 {
			return nil, fmt.Errorf("%s line %d: weight %d is negative", a.WeightsPath, i+1, w)
		}
		out[i] = model.Location{Name: name, Demand: w}
		if gp, ok := model.ParseGeoPoint(name); ok {
			out[i].Location = &gp
		}
	}
	return out, nil
}

// readLines returns trimmed lines; trailing blank lines are dropped, inner blanks are kept
// so that the two files stay aligned.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, strings.TrimSpace(sc.Text()))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}
