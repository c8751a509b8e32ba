package arrivals

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peatus.ee/internal/servicedate"
)

// fakeStore is an in-memory Store for engine tests. failOp makes the
// named operation return an error; calendarDates records which dates
// had their activation sets resolved.
type fakeStore struct {
	stops      map[string]*Stop
	routes     map[string][]Route
	stopTimes  map[string][]StopTime // keyed by stop ID
	services   []Service
	exceptions []Exception

	failOp        string
	calendarDates []servicedate.Date
}

func (f *fakeStore) StopByID(ctx context.Context, stopID string) (*Stop, error) {
	if f.failOp == "stop" {
		return nil, errors.New("store down")
	}
	return f.stops[stopID], nil
}

func (f *fakeStore) RoutesByShortName(ctx context.Context, shortName string) ([]Route, error) {
	if f.failOp == "routes" {
		return nil, errors.New("store down")
	}
	return f.routes[shortName], nil
}

func (f *fakeStore) StopTimesForStopAndRoutes(ctx context.Context, stopID string, routeIDs []string) ([]StopTime, error) {
	if f.failOp == "stoptimes" {
		return nil, errors.New("store down")
	}
	allowed := make(map[string]bool, len(routeIDs))
	for _, id := range routeIDs {
		allowed[id] = true
	}
	var out []StopTime
	for _, st := range f.stopTimes[stopID] {
		if allowed[st.RouteID] {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStore) CalendarsForServices(ctx context.Context, serviceIDs []string) ([]Service, error) {
	if f.failOp == "calendars" {
		return nil, errors.New("store down")
	}
	wanted := make(map[string]bool, len(serviceIDs))
	for _, id := range serviceIDs {
		wanted[id] = true
	}
	var out []Service
	for _, svc := range f.services {
		if wanted[svc.ID] {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (f *fakeStore) ExceptionsForDate(ctx context.Context, date servicedate.Date, serviceIDs []string) ([]Exception, error) {
	if f.failOp == "exceptions" {
		return nil, errors.New("store down")
	}
	f.calendarDates = append(f.calendarDates, date)
	wanted := make(map[string]bool, len(serviceIDs))
	for _, id := range serviceIDs {
		wanted[id] = true
	}
	var out []Exception
	for _, exc := range f.exceptions {
		if exc.Date == date && wanted[exc.ServiceID] {
			out = append(out, exc)
		}
	}
	return out, nil
}

func dirPtr(d int64) *int64 { return &d }

// nowAt builds a Context for the fixture Monday 2025-03-10.
func nowAt(seconds int) servicedate.Context {
	return servicedate.Context{Date: "20250310", Weekday: 1, SecondsOfDay: seconds}
}

func fixtureStore() *fakeStore {
	return &fakeStore{
		stops: map[string]*Stop{
			"1234": {ID: "1234", Name: "Viru keskus", Code: "1234", Region: "Tallinn", Lat: 59.436, Lon: 24.756},
		},
		routes: map[string][]Route{
			"10A": {{ID: "r10a", ShortName: "10A", LongName: "Kesklinn - Oismae"}},
		},
		stopTimes: map[string][]StopTime{},
		services: []Service{
			{ID: "mon", Weekdays: weekdaySet(1), StartDate: "20250101", EndDate: "20251231"},
			{ID: "tue", Weekdays: weekdaySet(2), StartDate: "20250101", EndDate: "20251231"},
			{ID: "daily", Weekdays: weekdaySet(0, 1, 2, 3, 4, 5, 6), StartDate: "20250101", EndDate: "20251231"},
		},
	}
}

func newTestResolver(store Store) *Resolver {
	return NewResolver(store, slog.Default())
}

func TestResolveArrivals_SameDayScenario(t *testing.T) {
	store := fixtureStore()
	store.stopTimes["1234"] = []StopTime{
		{TripID: "t1", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "13:30:00", Headsign: "Oismae"},
		{TripID: "t2", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "14:35:00", Headsign: "Oismae"},
		{TripID: "t3", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "24:10:00", Headsign: "Oismae"},
	}

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(14*3600))
	require.NoError(t, err)

	require.Len(t, result.Arrivals, 2)
	assert.Equal(t, "14:35", result.Arrivals[0].Time)
	assert.Equal(t, "today", result.Arrivals[0].DateLabel)
	assert.Equal(t, "20250310", result.Arrivals[0].Date)
	assert.Equal(t, "00:10", result.Arrivals[1].Time)
	assert.Equal(t, "tomorrow", result.Arrivals[1].DateLabel)
	assert.Equal(t, "20250311", result.Arrivals[1].Date)
	assert.Equal(t, "Viru keskus", result.Stop.Name)
	assert.Equal(t, "10A", result.Route.ShortName)
}

func TestResolveArrivals_MergesTomorrowWhenUnderfilled(t *testing.T) {
	store := fixtureStore()
	store.stopTimes["1234"] = []StopTime{
		{TripID: "t1", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "08:00:00"},
		{TripID: "t2", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "25:10:00"},
		{TripID: "t3", RouteID: "r10a", ServiceID: "tue", ArrivalTime: "07:00:00"},
	}

	// 23:00 today: the 08:00 departure is long gone, the 25:10
	// today-service run and tomorrow's 07:00 remain, in that order.
	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(23*3600))
	require.NoError(t, err)

	require.Len(t, result.Arrivals, 2)
	assert.Equal(t, "01:10", result.Arrivals[0].Time)
	assert.Equal(t, "tomorrow", result.Arrivals[0].DateLabel)
	assert.Equal(t, "07:00", result.Arrivals[1].Time)
	assert.Equal(t, "tomorrow", result.Arrivals[1].DateLabel)
}

func TestResolveArrivals_TomorrowPastMidnightOutsideHorizon(t *testing.T) {
	store := fixtureStore()
	store.stopTimes["1234"] = []StopTime{
		// Tomorrow's service with a past-midnight time would land on
		// the day after tomorrow; it must be discarded.
		{TripID: "t1", RouteID: "r10a", ServiceID: "tue", ArrivalTime: "24:30:00"},
		{TripID: "t2", RouteID: "r10a", ServiceID: "tue", ArrivalTime: "09:00:00"},
	}

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(12*3600))
	require.NoError(t, err)

	require.Len(t, result.Arrivals, 1)
	assert.Equal(t, "09:00", result.Arrivals[0].Time)
	assert.Equal(t, "tomorrow", result.Arrivals[0].DateLabel)
}

func TestResolveArrivals_AddedExceptionActivatesService(t *testing.T) {
	store := fixtureStore()
	// Service with no calendar row at all: only the exception makes it run.
	store.stopTimes["1234"] = []StopTime{
		{TripID: "t1", RouteID: "r10a", ServiceID: "special", ArrivalTime: "15:00:00"},
	}
	store.exceptions = []Exception{
		{ServiceID: "special", Date: "20250310", Type: ExceptionAdded},
	}

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(14*3600))
	require.NoError(t, err)

	require.Len(t, result.Arrivals, 1)
	assert.Equal(t, "15:00", result.Arrivals[0].Time)
}

func TestResolveArrivals_RemovedExceptionSuppressesService(t *testing.T) {
	store := fixtureStore()
	store.stopTimes["1234"] = []StopTime{
		{TripID: "t1", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "15:00:00"},
	}
	store.exceptions = []Exception{
		{ServiceID: "mon", Date: "20250310", Type: ExceptionRemoved},
	}

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(14*3600))
	require.NoError(t, err)
	assert.Empty(t, result.Arrivals)
}

func TestResolveArrivals_StopNotFound(t *testing.T) {
	store := fixtureStore()

	_, err := newTestResolver(store).ResolveArrivals(context.Background(), "nope", "10A", nowAt(0))
	nf, ok := AsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, NotFoundStop, nf.Kind)
}

func TestResolveArrivals_RouteNotFound(t *testing.T) {
	store := fixtureStore()

	_, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "99Z", nowAt(0))
	nf, ok := AsNotFound(err)
	require.True(t, ok)
	assert.Equal(t, NotFoundRoute, nf.Kind)
}

func TestResolveArrivals_NothingScheduledIsSuccess(t *testing.T) {
	store := fixtureStore()
	// Stop and route both exist, but no trip visits this stop.

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(0))
	require.NoError(t, err)
	assert.Empty(t, result.Arrivals)
}

func TestResolveArrivals_MultipleRouteIDsShareShortName(t *testing.T) {
	store := fixtureStore()
	// Two agencies both run a route "2".
	store.routes["2"] = []Route{
		{ID: "z-2", ShortName: "2", LongName: "Zone line"},
		{ID: "a-2", ShortName: "2", LongName: "Airport line"},
	}
	store.stopTimes["1234"] = []StopTime{
		{TripID: "t1", RouteID: "a-2", ServiceID: "mon", ArrivalTime: "10:00:00"},
		{TripID: "t2", RouteID: "z-2", ServiceID: "mon", ArrivalTime: "10:30:00"},
	}

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "2", nowAt(9*3600))
	require.NoError(t, err)

	require.Len(t, result.Arrivals, 2)
	assert.Equal(t, "10:00", result.Arrivals[0].Time)
	assert.Equal(t, "10:30", result.Arrivals[1].Time)
	// Long name preference is deterministic: lowest route_id wins.
	assert.Equal(t, "a-2", result.Route.ID)
	assert.Equal(t, "Airport line", result.Route.LongName)
	// Headsign falls back to the trip's own route long name.
	assert.Equal(t, "Airport line", result.Arrivals[0].Headsign)
	assert.Equal(t, "Zone line", result.Arrivals[1].Headsign)
}

func TestResolveArrivals_MalformedTimeSkipsRowOnly(t *testing.T) {
	store := fixtureStore()
	store.stopTimes["1234"] = []StopTime{
		{TripID: "bad", RouteID: "r10a", ServiceID: "daily", ArrivalTime: "not-a-time"},
		{TripID: "ok", RouteID: "r10a", ServiceID: "daily", ArrivalTime: "12:00:00"},
	}

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(11*3600))
	require.NoError(t, err)

	require.Len(t, result.Arrivals, 2) // 12:00 today and 12:00 tomorrow
	assert.Equal(t, "12:00", result.Arrivals[0].Time)
	assert.Equal(t, "today", result.Arrivals[0].DateLabel)
}

func TestResolveArrivals_EarlyExitSkipsTomorrowWhenFilled(t *testing.T) {
	store := fixtureStore()
	var sts []StopTime
	for _, at := range []string{"10:00:00", "10:10:00", "10:20:00", "10:30:00", "10:40:00", "10:50:00"} {
		sts = append(sts, StopTime{TripID: "t" + at, RouteID: "r10a", ServiceID: "daily", ArrivalTime: at})
	}
	store.stopTimes["1234"] = sts

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(9*3600))
	require.NoError(t, err)

	require.Len(t, result.Arrivals, 5)
	assert.Equal(t, "10:40", result.Arrivals[4].Time)
	// Today alone filled the list, so tomorrow's activation set was
	// never resolved.
	assert.Equal(t, []servicedate.Date{"20250310"}, store.calendarDates)
}

func TestResolveArrivals_Idempotent(t *testing.T) {
	store := fixtureStore()
	store.stopTimes["1234"] = []StopTime{
		{TripID: "t1", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "14:35:00", DirectionID: dirPtr(1)},
		{TripID: "t2", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "24:10:00"},
	}
	r := newTestResolver(store)
	now := nowAt(14 * 3600)

	first, err := r.ResolveArrivals(context.Background(), "1234", "10A", now)
	require.NoError(t, err)
	second, err := r.ResolveArrivals(context.Background(), "1234", "10A", now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveArrivals_TodayCalendarFailureFailsRequest(t *testing.T) {
	store := fixtureStore()
	store.stopTimes["1234"] = []StopTime{
		{TripID: "t1", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "14:35:00"},
	}
	store.failOp = "calendars"

	_, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(14*3600))
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	_, notFound := AsNotFound(err)
	assert.False(t, notFound)
}

func TestResolveArrivals_DirectionCarriedThrough(t *testing.T) {
	store := fixtureStore()
	store.stopTimes["1234"] = []StopTime{
		{TripID: "t1", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "14:35:00", DirectionID: dirPtr(1)},
		{TripID: "t2", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "15:35:00"},
		{TripID: "t3", RouteID: "r10a", ServiceID: "mon", ArrivalTime: "16:35:00", DirectionID: dirPtr(0)},
	}

	result, err := newTestResolver(store).ResolveArrivals(context.Background(), "1234", "10A", nowAt(14*3600))
	require.NoError(t, err)

	require.Len(t, result.Arrivals, 3)
	require.NotNil(t, result.Arrivals[0].Direction)
	assert.Equal(t, int64(1), *result.Arrivals[0].Direction)
	assert.Nil(t, result.Arrivals[1].Direction)
	require.NotNil(t, result.Arrivals[2].Direction, "direction 0 must not be dropped as unset")
	assert.Equal(t, int64(0), *result.Arrivals[2].Direction)
}
