package app

import (
	"log/slog"

	"peatus.ee/internal/appconf"
	"peatus.ee/internal/arrivals"
	"peatus.ee/internal/clock"
	"peatus.ee/internal/gtfs"
	"peatus.ee/internal/metrics"
	"peatus.ee/internal/servicedate"
)

// Application holds the dependencies for our HTTP handlers, helpers,
// and middleware.
type Application struct {
	Config      appconf.Config
	GtfsConfig  gtfs.Config
	Logger      *slog.Logger
	GtfsManager *gtfs.Manager
	Clock       clock.Clock
	Provider    *servicedate.Provider
	Resolver    *arrivals.Resolver
	Metrics     *metrics.Metrics
}

// Shutdown releases background resources owned by the application.
func (app *Application) Shutdown() {
	if app.Metrics != nil {
		app.Metrics.Shutdown()
	}
	if app.GtfsManager != nil {
		app.GtfsManager.Shutdown()
	}
}
