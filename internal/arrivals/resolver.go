// Package arrivals implements the transit arrival resolution engine:
// given a stop and a rider-facing route name, it determines which
// scheduled trips are active right now and produces an ordered,
// labeled list of upcoming arrivals across a two-day horizon.
//
// The engine is stateless and purely read-only against its Store;
// concurrent requests need no coordination.
package arrivals

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"peatus.ee/internal/servicedate"
)

const (
	// DefaultLimit caps the number of arrivals in a response.
	DefaultLimit = 5
	// DefaultQueryTimeout bounds every individual store call.
	DefaultQueryTimeout = 5 * time.Second
)

// Stop is a read-only stop snapshot. Lat/Lon of exactly (0,0) means
// the stop has no usable coordinates.
type Stop struct {
	ID     string
	Name   string
	Code   string
	Region string
	Lat    float64
	Lon    float64
}

// Route is one route identity sharing a rider-facing short name.
type Route struct {
	ID        string
	ShortName string
	LongName  string
}

// StopTime is one scheduled visit of a trip at a stop, date-independent.
// ArrivalTime is the raw GTFS HH:MM:SS text; hours may exceed 23.
type StopTime struct {
	TripID      string
	RouteID     string
	ServiceID   string
	ArrivalTime string
	Headsign    string
	DirectionID *int64
}

// Store is the read contract against the external transit database.
// A missing stop is (nil, nil); a short name matching no route is an
// empty slice. Every method must honor ctx cancellation.
type Store interface {
	StopByID(ctx context.Context, stopID string) (*Stop, error)
	RoutesByShortName(ctx context.Context, shortName string) ([]Route, error)
	StopTimesForStopAndRoutes(ctx context.Context, stopID string, routeIDs []string) ([]StopTime, error)
	CalendarsForServices(ctx context.Context, serviceIDs []string) ([]Service, error)
	ExceptionsForDate(ctx context.Context, date servicedate.Date, serviceIDs []string) ([]Exception, error)
}

// Arrival is one upcoming arrival as presented to the rider.
type Arrival struct {
	Time      string `json:"time"`
	DateLabel string `json:"dateLabel"`
	Date      string `json:"date"`
	Headsign  string `json:"headsign"`
	Direction *int64 `json:"direction"`
	Route     string `json:"route"`
}

// Result is a successful resolution. Arrivals may be empty: a stop
// and route that exist but have nothing scheduled is a success, not a
// not-found condition.
type Result struct {
	Stop     Stop
	Route    Route
	Arrivals []Arrival
}

// Resolver drives arrival resolution against a Store. Zero-value
// Limit and QueryTimeout are replaced with the defaults.
type Resolver struct {
	Store        Store
	Logger       *slog.Logger
	Limit        int
	QueryTimeout time.Duration
}

// NewResolver returns a Resolver with default limit and timeout.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		Store:        store,
		Logger:       logger,
		Limit:        DefaultLimit,
		QueryTimeout: DefaultQueryTimeout,
	}
}

func (r *Resolver) limit() int {
	if r.Limit > 0 {
		return r.Limit
	}
	return DefaultLimit
}

func (r *Resolver) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// candidate pairs a scheduled time with the stop-time row it came from.
type candidate struct {
	sched ScheduledTime
	st    StopTime
}

// ResolveArrivals produces up to Limit upcoming arrivals for the
// stop/route pair at the given instant. Today's active services are
// always consulted; tomorrow's only when today leaves the list
// underfilled — an optimization that never changes the final ranking,
// because tomorrow-service entries sort after every today-service
// entry by construction. A transient failure on today's queries fails
// the whole request rather than silently degrading to tomorrow-only
// results.
func (r *Resolver) ResolveArrivals(ctx context.Context, stopID, routeShortName string, now servicedate.Context) (*Result, error) {
	stop, err := r.lookupStop(ctx, stopID)
	if err != nil {
		return nil, err
	}
	routes, err := r.lookupRoutes(ctx, routeShortName)
	if err != nil {
		return nil, err
	}

	// Short names are not unique identifiers: every route_id sharing
	// the name participates in the join. Sorting by route_id makes the
	// long-name fallback deterministic.
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })

	routeIDs := make([]string, len(routes))
	longNameByRoute := make(map[string]string, len(routes))
	for i, rt := range routes {
		routeIDs[i] = rt.ID
		longNameByRoute[rt.ID] = rt.LongName
	}

	stopTimes, err := r.lookupStopTimes(ctx, stopID, routeIDs)
	if err != nil {
		return nil, err
	}

	today := now.Date
	tomorrow := today.Next()
	limit := r.limit()

	serviceIDs := uniqueServiceIDs(stopTimes)

	activeToday, err := r.activeServices(ctx, today, serviceIDs)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, st := range stopTimes {
		if !activeToday[st.ServiceID] {
			continue
		}
		raw, ok := r.parseArrival(st)
		if !ok {
			continue
		}
		sched := ScheduledTime{ServiceDate: today, RawSeconds: raw}
		// Past-midnight times have not departed yet by definition;
		// same-day times must still be ahead of the clock.
		if !sched.PastMidnight() && raw < now.SecondsOfDay {
			continue
		}
		candidates = append(candidates, candidate{sched: sched, st: st})
	}

	if len(candidates) < limit {
		activeTomorrow, err := r.activeServices(ctx, tomorrow, serviceIDs)
		if err != nil {
			return nil, err
		}
		for _, st := range stopTimes {
			if !activeTomorrow[st.ServiceID] {
				continue
			}
			raw, ok := r.parseArrival(st)
			if !ok {
				continue
			}
			if raw >= SecondsPerDay {
				// A past-midnight time on tomorrow's service lands on
				// the day after tomorrow, outside the two-day horizon.
				continue
			}
			candidates = append(candidates, candidate{
				sched: ScheduledTime{ServiceDate: tomorrow, RawSeconds: raw},
				st:    st,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].sched.SortKey(today) < candidates[j].sched.SortKey(today)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	chosen := Route{ShortName: routeShortName}
	if len(routes) > 0 {
		chosen = routes[0]
	}

	result := &Result{
		Stop:     *stop,
		Route:    chosen,
		Arrivals: make([]Arrival, 0, len(candidates)),
	}
	for _, c := range candidates {
		displayDate := c.sched.DisplayDate()
		result.Arrivals = append(result.Arrivals, Arrival{
			Time:      c.sched.ClockString(),
			DateLabel: dateLabel(displayDate, today),
			Date:      string(displayDate),
			Headsign:  r.headsign(c.st, longNameByRoute, chosen.LongName),
			Direction: c.st.DirectionID,
			Route:     routeShortName,
		})
	}
	return result, nil
}

func (r *Resolver) lookupStop(ctx context.Context, stopID string) (*Stop, error) {
	qctx, cancel := r.queryContext(ctx)
	defer cancel()
	stop, err := r.Store.StopByID(qctx, stopID)
	if err != nil {
		return nil, &TransientError{Op: "stop lookup", Err: err}
	}
	if stop == nil {
		return nil, &NotFoundError{Kind: NotFoundStop}
	}
	return stop, nil
}

func (r *Resolver) lookupRoutes(ctx context.Context, shortName string) ([]Route, error) {
	qctx, cancel := r.queryContext(ctx)
	defer cancel()
	routes, err := r.Store.RoutesByShortName(qctx, shortName)
	if err != nil {
		return nil, &TransientError{Op: "route lookup", Err: err}
	}
	if len(routes) == 0 {
		return nil, &NotFoundError{Kind: NotFoundRoute}
	}
	return routes, nil
}

func (r *Resolver) lookupStopTimes(ctx context.Context, stopID string, routeIDs []string) ([]StopTime, error) {
	qctx, cancel := r.queryContext(ctx)
	defer cancel()
	stopTimes, err := r.Store.StopTimesForStopAndRoutes(qctx, stopID, routeIDs)
	if err != nil {
		return nil, &TransientError{Op: "stop times", Err: err}
	}
	return stopTimes, nil
}

// parseArrival parses a stored arrival time, skipping the row with a
// warning when it is malformed. One bad row never aborts the request.
func (r *Resolver) parseArrival(st StopTime) (int, bool) {
	raw, err := ParseGTFSTime(st.ArrivalTime)
	if err != nil {
		r.Logger.Warn("skipping stop time with malformed arrival time",
			slog.String("trip_id", st.TripID),
			slog.String("arrival_time", st.ArrivalTime),
			slog.Any("error", err))
		return 0, false
	}
	return raw, true
}

// headsign picks the rider-facing destination label: the trip's own
// headsign, then the trip's route long name, then the resolved
// route's long name.
func (r *Resolver) headsign(st StopTime, longNameByRoute map[string]string, fallback string) string {
	if st.Headsign != "" {
		return st.Headsign
	}
	if ln := longNameByRoute[st.RouteID]; ln != "" {
		return ln
	}
	return fallback
}

// dateLabel renders a display date relative to today. Dates outside
// the today/tomorrow pair should not occur within the two-day horizon
// but degrade to a literal DD.MM rather than failing.
func dateLabel(d, today servicedate.Date) string {
	switch servicedate.DaysBetween(today, d) {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return d.DayMonth()
	}
}

func uniqueServiceIDs(stopTimes []StopTime) []string {
	seen := make(map[string]bool, len(stopTimes))
	var ids []string
	for _, st := range stopTimes {
		if !seen[st.ServiceID] {
			seen[st.ServiceID] = true
			ids = append(ids, st.ServiceID)
		}
	}
	sort.Strings(ids)
	return ids
}
