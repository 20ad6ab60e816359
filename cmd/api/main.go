package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"routeplan/internal/api"
	"routeplan/internal/buildinfo"
	"routeplan/internal/config"
	"routeplan/internal/events"
	"routeplan/internal/logger"
	"routeplan/internal/metrics"
	"routeplan/internal/planner"
	"routeplan/internal/solver"
	"routeplan/internal/store"
	"routeplan/internal/webhooks"
)

func main() {
	cfgPath := flag.String("config", "planner.yaml", "path to the YAML configuration")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()
	if *version {
		fmt.Println(buildinfo.String())
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterDefault()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	var br events.Broker = events.NewMemory()
	if cfg.HTTP.RedisURL != "" {
		rb, err := events.NewRedis(cfg.HTTP.RedisURL)
		if err != nil {
			return fmt.Errorf("event broker: %w", err)
		}
		br = rb
		log.Info("using redis event broker")
	}

	svc, err := planner.New(cfg, st, br, log)
	if err != nil {
		return err
	}
	if path, err := solver.EnginePath(); err != nil {
		log.Error("solver engine missing, /readyz will fail until it is installed", zap.Error(err))
	} else {
		log.Info("solver engine found", zap.String("path", path))
	}

	if len(cfg.Webhooks) > 0 {
		worker := webhooks.NewWorker(st, log)
		worker.Start()
		defer close(worker.Stop)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewServer(cfg, svc, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", cfg.HTTP.Addr), zap.String("version", buildinfo.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.Store.DatabaseURL == "" {
		log.Info("using in-memory store")
		return store.NewMemory(), nil
	}
	pg, err := store.NewPostgres(cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.Store.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	log.Info("using postgres store")
	return pg, nil
}
