// Package report renders evaluated plans for people and programs.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"routeplan/internal/model"
)

const (
	StyleNames = "names"
	StyleLoads = "loads"
)

// Text writes p in the given style. An empty style means names.
func Text(w io.Writer, p model.Plan, style string) error {
	switch style {
	case "", StyleNames:
		return Names(w, p)
	case StyleLoads:
		return Loads(w, p)
	default:
		return fmt.Errorf("unknown report style %q", style)
	}
}

// Names lists the route by location name with the final load and route time.
func Names(w io.Writer, p model.Plan) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Route for vehicle %d:\n", p.VehicleID)
	for i, s := range p.Stops {
		if i == len(p.Stops)-1 {
			fmt.Fprintf(bw, " %s Load(%d)\n", s.Name, p.RouteLoad)
			break
		}
		fmt.Fprintf(bw, " %s -> ", s.Name)
	}
	unit := costUnit(p.Metric)
	fmt.Fprintf(bw, "Time of the route: %d%s\n\n", p.RouteCost, unit)
	fmt.Fprintf(bw, "Total Time of all routes: %d%s\n", p.RouteCost, unit)
	names := make([]string, len(p.Dropped))
	for i, d := range p.Dropped {
		names[i] = d.Name
	}
	fmt.Fprintf(bw, "Dropped visits: %s\n", strings.Join(names, ", "))
	return bw.Flush()
}

// Loads lists the route by location index with the cumulative load at each stop.
func Loads(w io.Writer, p model.Plan) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Route for vehicle %d:\n", p.VehicleID)
	for i, s := range p.Stops {
		if i == len(p.Stops)-1 {
			fmt.Fprintf(bw, " %d Load(%d)\n", s.Index, s.Load)
			break
		}
		fmt.Fprintf(bw, " %d Load(%d) -> ", s.Index, s.Load)
	}
	unit := costUnit(p.Metric)
	fmt.Fprintf(bw, "Distance of the route: %d%s\n", p.RouteCost, unit)
	fmt.Fprintf(bw, "Load of the route: %d\n\n", p.RouteLoad)
	fmt.Fprintf(bw, "Total Distance of all routes: %d%s\n", p.RouteCost, unit)
	idx := make([]string, len(p.Dropped))
	for i, d := range p.Dropped {
		idx[i] = strconv.Itoa(d.Index)
	}
	fmt.Fprintf(bw, "Dropped visits: %s\n", strings.Join(idx, ", "))
	return bw.Flush()
}

func costUnit(metric string) string {
	if metric == "distance" {
		return "m"
	}
	return "s"
}
