// Command planner solves one routing run from files and prints the report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"routeplan/internal/buildinfo"
	"routeplan/internal/config"
	"routeplan/internal/logger"
	"routeplan/internal/model"
	"routeplan/internal/planner"
	"routeplan/internal/report"
	"routeplan/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("planner", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "planner.yaml", "path to the YAML configuration")
	locations := fs.String("locations", "", "locations file, one per line (overrides config)")
	weights := fs.String("weights", "", "weights file, one integer per line (overrides config)")
	csvPath := fs.String("csv", "", "CSV file with name,demand[,lat,lng] columns (overrides config)")
	style := fs.String("style", "", "report style: names or loads (overrides config)")
	asJSON := fs.Bool("json", false, "print the plan as JSON")
	version := fs.Bool("version", false, "print version and exit")
	verbose := fs.Bool("v", false, "write logs to stderr at the configured level")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *version {
		fmt.Fprintln(stdout, buildinfo.String())
		return 0
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *locations != "" {
		cfg.LocationsFile = *locations
	}
	if *weights != "" {
		cfg.WeightsFile = *weights
	}
	if *csvPath != "" {
		cfg.CSVFile = *csvPath
	}
	if *style != "" {
		cfg.Report.Style = *style
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	// Without -v stderr carries only the final error line.
	log := zap.NewNop()
	if *verbose {
		if log, err = logger.NewWriter(stderr, cfg.Log.Level, cfg.Log.Development); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		defer func() { _ = log.Sync() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := planner.New(cfg, store.NewMemory(), nil, log)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	rec, err := svc.Run(ctx, model.PlanRequest{})
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	if *asJSON {
		err = report.JSON(stdout, *rec.Plan)
	} else {
		err = report.Text(stdout, *rec.Plan, cfg.Report.Style)
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
