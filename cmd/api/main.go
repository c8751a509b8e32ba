package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"peatus.ee/gtfsdb"
	"peatus.ee/internal/app"
	"peatus.ee/internal/appconf"
	"peatus.ee/internal/arrivals"
	"peatus.ee/internal/clock"
	"peatus.ee/internal/gtfs"
	"peatus.ee/internal/metrics"
	"peatus.ee/internal/restapi"
	"peatus.ee/internal/servicedate"
	"peatus.ee/internal/webui"
)

func main() {
	cfg, gtfsSettings, err := appconf.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gtfsCfg := gtfs.FromSettings(gtfsSettings, cfg.Env, cfg.Verbose)

	coreApp, err := BuildApplication(cfg, gtfsCfg)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if err := Run(coreApp, cfg); err != nil {
		coreApp.Logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// BuildApplication wires the application dependencies: the imported
// feed, the service-date provider, the arrival resolver, and metrics.
func BuildApplication(cfg appconf.Config, gtfsCfg gtfs.Config) (*app.Application, error) {
	logLevel := slog.LevelInfo
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	gtfsManager, err := gtfs.InitGTFSManager(gtfsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GTFS manager: %w", err)
	}

	realClock := clock.RealClock{}

	timezone := cfg.Timezone
	if timezone == "" {
		timezone = appconf.DefaultTimezone
	}
	provider, err := servicedate.NewProvider(realClock, timezone)
	if err != nil {
		gtfsManager.Shutdown()
		return nil, fmt.Errorf("failed to initialize service date provider: %w", err)
	}

	appMetrics := metrics.NewWithLogger(logger)
	if gtfsManager.GtfsDB != nil && gtfsManager.GtfsDB.DB != nil {
		appMetrics.StartDBStatsCollector(gtfsManager.GtfsDB.DB, 15*time.Second)
	}

	coreApp := &app.Application{
		Config:      cfg,
		GtfsConfig:  gtfsCfg,
		Logger:      logger,
		GtfsManager: gtfsManager,
		Clock:       realClock,
		Provider:    provider,
		Resolver:    arrivals.NewResolver(gtfsdb.NewStore(gtfsManager), logger),
		Metrics:     appMetrics,
	}
	return coreApp, nil
}

// CreateServer builds the HTTP server with the full middleware chain
// wrapped around the API routes.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	api := restapi.NewRestAPI(coreApp)

	mux := http.NewServeMux()
	api.SetRoutes(mux)
	webui.NewWebUI(coreApp).SetRoutes(mux)

	var handler http.Handler = mux
	handler = restapi.MetricsHandler(coreApp.Metrics)(handler)
	handler = restapi.NewRequestLoggingMiddleware(coreApp.Logger)(handler)
	handler = restapi.RequestIDMiddleware(handler)
	handler = gzhttp.GzipHandler(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return srv, api
}

// Run starts the server and blocks until SIGINT or SIGTERM, then shuts
// down gracefully.
func Run(coreApp *app.Application, cfg appconf.Config) error {
	srv, api := CreateServer(coreApp, cfg)
	defer api.Shutdown()

	errChan := make(chan error, 1)
	go func() {
		coreApp.Logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		coreApp.Logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
