package restapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"peatus.ee/internal/app"
	"peatus.ee/internal/clock"
)

// RestAPI wires the application's HTTP surface.
type RestAPI struct {
	*app.Application

	rateLimiter *RateLimitMiddleware
}

func NewRestAPI(application *app.Application) *RestAPI {
	if application.Clock == nil {
		application.Clock = clock.RealClock{}
	}

	api := &RestAPI{Application: application}
	api.rateLimiter = NewRateLimitMiddleware(
		application.Config.RateLimit,
		time.Second,
		nil,
		application.Clock,
	)
	return api
}

// Shutdown stops background goroutines owned by the API layer.
func (api *RestAPI) Shutdown() {
	if api.rateLimiter != nil {
		api.rateLimiter.Stop()
	}
	if api.Application != nil {
		api.Application.Shutdown()
	}
}

// SetRoutes registers all handlers on the mux. API endpoints go through
// API-key validation, rate limiting, and Cache-Control tiers; operational
// endpoints (health, metrics) stay unwrapped.
func (api *RestAPI) SetRoutes(mux *http.ServeMux) {
	limit := api.rateLimiter.Handler()

	endpoint := func(cacheSeconds int, handler http.HandlerFunc) http.Handler {
		return limit(CacheControlMiddleware(cacheSeconds, api.requireValidAPIKey(handler)))
	}

	// Arrival boards change minute to minute; stop geometry barely at all.
	mux.Handle("GET /api/stops/{stopID}/arrivals.json", endpoint(15, api.arrivalsHandler))
	mux.Handle("GET /api/stops/nearest.json", endpoint(3600, api.nearestStopHandler))
	mux.Handle("GET /api/stops/{stopID}", endpoint(3600, api.stopHandler))
	mux.Handle("GET /api/current-time.json", endpoint(0, api.currentTimeHandler))

	mux.Handle("GET /healthz", http.HandlerFunc(api.healthHandler))
	if api.Metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(api.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// requireValidAPIKey rejects requests without a configured key. A deployment
// with no keys configured is open.
func (api *RestAPI) requireValidAPIKey(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(api.Config.ApiKeys) > 0 && api.RequestHasInvalidAPIKey(r) {
			api.sendUnauthorized(w, r)
			return
		}
		next(w, r)
	})
}
