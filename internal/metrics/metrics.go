// Package metrics provides Prometheus metrics for the arrivals API.
package metrics

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application's Prometheus instruments, registered
// on their own registry so tests never collide on the global one.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// ArrivalLookupsTotal counts arrival resolutions by outcome
	// (ok, stop_not_found, route_not_found, error).
	ArrivalLookupsTotal *prometheus.CounterVec

	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitSecondsTotal prometheus.Counter

	logger           *slog.Logger
	collectorStarted atomic.Bool
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

func New() *Metrics {
	return NewWithLogger(nil)
}

// NewWithLogger creates metrics with a logger for error reporting.
func NewWithLogger(logger *slog.Logger) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		logger:   logger,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peatus_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peatus_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		ArrivalLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peatus_arrival_lookups_total",
			Help: "Total number of arrival lookups by outcome",
		}, []string{"outcome"}),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "peatus_db_connections_open",
			Help: "Number of open database connections",
		}),

		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "peatus_db_connections_in_use",
			Help: "Number of database connections currently in use",
		}),

		DBConnectionsIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "peatus_db_connections_idle",
			Help: "Number of idle database connections",
		}),

		DBWaitSecondsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "peatus_db_wait_seconds_total",
			Help: "Total time blocked waiting for a database connection",
		}),
	}

	m.Registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ArrivalLookupsTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.DBConnectionsIdle,
		m.DBWaitSecondsTotal,
	)

	return m
}

// StartDBStatsCollector samples connection pool statistics every
// interval until Shutdown. Only the first call starts a collector.
func (m *Metrics) StartDBStatsCollector(db *sql.DB, interval time.Duration) {
	if db == nil {
		return
	}
	if !m.collectorStarted.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Add before exposing cancel, so Shutdown cannot miss the goroutine.
	m.wg.Add(1)
	m.cancel = cancel

	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil && m.logger != nil {
				m.logger.Error("panic in DB stats collector", "error", r)
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastWaitDuration time.Duration
		for {
			select {
			case <-ticker.C:
				stats := db.Stats()
				m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
				m.DBConnectionsInUse.Set(float64(stats.InUse))
				m.DBConnectionsIdle.Set(float64(stats.Idle))

				// WaitDuration is cumulative; export only the delta.
				if delta := stats.WaitDuration - lastWaitDuration; delta > 0 {
					m.DBWaitSecondsTotal.Add(delta.Seconds())
				}
				lastWaitDuration = stats.WaitDuration

			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the DB stats collector and waits for it to exit.
// Safe to call more than once.
func (m *Metrics) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
