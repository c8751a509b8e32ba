package gtfsdb

import (
	"context"
	"database/sql"
	"errors"

	"peatus.ee/internal/arrivals"
	"peatus.ee/internal/servicedate"
)

// QueriesSource yields the Queries bound to the currently active database.
// The GTFS manager hot-swaps the database on feed updates, so the store asks
// for the current Queries on every call instead of caching one.
type QueriesSource interface {
	CurrentQueries() *Queries
}

// Store adapts the Queries layer to the lookup interface the arrival
// resolver works against.
type Store struct {
	source QueriesSource
}

func NewStore(source QueriesSource) *Store {
	return &Store{source: source}
}

// ErrStoreNotReady is returned while no database is active, either during
// shutdown or after a feed update failed to leave a usable database behind.
var ErrStoreNotReady = errors.New("gtfs store: no active database")

func (s *Store) queries() (*Queries, error) {
	q := s.source.CurrentQueries()
	if q == nil {
		return nil, ErrStoreNotReady
	}
	return q, nil
}

func (s *Store) StopByID(ctx context.Context, stopID string) (*arrivals.Stop, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	row, err := q.GetStop(ctx, stopID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stop := stopFromRow(row)
	return &stop, nil
}

func (s *Store) RoutesByShortName(ctx context.Context, shortName string) ([]arrivals.Route, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.GetRoutesByShortName(ctx, shortName)
	if err != nil {
		return nil, err
	}
	routes := make([]arrivals.Route, 0, len(rows))
	for _, r := range rows {
		routes = append(routes, arrivals.Route{
			ID:        r.ID,
			ShortName: r.ShortName.String,
			LongName:  r.LongName.String,
		})
	}
	return routes, nil
}

func (s *Store) StopTimesForStopAndRoutes(ctx context.Context, stopID string, routeIDs []string) ([]arrivals.StopTime, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.GetStopTimesForStopAndRoutes(ctx, stopID, routeIDs)
	if err != nil {
		return nil, err
	}
	stopTimes := make([]arrivals.StopTime, 0, len(rows))
	for _, r := range rows {
		st := arrivals.StopTime{
			TripID:      r.TripID,
			RouteID:     r.RouteID,
			ServiceID:   r.ServiceID,
			ArrivalTime: r.ArrivalTime,
			Headsign:    pickFirstAvailable(r.StopHeadsign.String, r.TripHeadsign.String),
		}
		if r.DirectionID.Valid {
			direction := r.DirectionID.Int64
			st.DirectionID = &direction
		}
		stopTimes = append(stopTimes, st)
	}
	return stopTimes, nil
}

func (s *Store) CalendarsForServices(ctx context.Context, serviceIDs []string) ([]arrivals.Service, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.GetCalendarsForServices(ctx, serviceIDs)
	if err != nil {
		return nil, err
	}
	services := make([]arrivals.Service, 0, len(rows))
	for _, c := range rows {
		services = append(services, arrivals.Service{
			ID: c.ID,
			Weekdays: [7]bool{
				c.Sunday == 1,
				c.Monday == 1,
				c.Tuesday == 1,
				c.Wednesday == 1,
				c.Thursday == 1,
				c.Friday == 1,
				c.Saturday == 1,
			},
			StartDate: servicedate.Date(c.StartDate),
			EndDate:   servicedate.Date(c.EndDate),
		})
	}
	return services, nil
}

func (s *Store) ExceptionsForDate(ctx context.Context, date servicedate.Date, serviceIDs []string) ([]arrivals.Exception, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.GetCalendarDatesForDate(ctx, string(date), serviceIDs)
	if err != nil {
		return nil, err
	}
	exceptions := make([]arrivals.Exception, 0, len(rows))
	for _, cd := range rows {
		exceptions = append(exceptions, arrivals.Exception{
			ServiceID: cd.ServiceID,
			Date:      servicedate.Date(cd.Date),
			Type:      int(cd.ExceptionType),
		})
	}
	return exceptions, nil
}

// ListStops returns every stop with usable coordinates, for nearest-stop
// lookups.
func (s *Store) ListStops(ctx context.Context) ([]arrivals.Stop, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.ListStops(ctx)
	if err != nil {
		return nil, err
	}
	stops := make([]arrivals.Stop, 0, len(rows))
	for _, row := range rows {
		stops = append(stops, stopFromRow(row))
	}
	return stops, nil
}

// RoutesForStop returns the distinct routes calling at a stop.
func (s *Store) RoutesForStop(ctx context.Context, stopID string) ([]arrivals.Route, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.GetRoutesForStop(ctx, stopID)
	if err != nil {
		return nil, err
	}
	routes := make([]arrivals.Route, 0, len(rows))
	for _, r := range rows {
		routes = append(routes, arrivals.Route{
			ID:        r.ID,
			ShortName: r.ShortName.String,
			LongName:  r.LongName.String,
		})
	}
	return routes, nil
}

func stopFromRow(row Stop) arrivals.Stop {
	return arrivals.Stop{
		ID:     row.ID,
		Name:   row.Name.String,
		Code:   row.Code.String,
		Region: row.Region.String,
		Lat:    row.Lat,
		Lon:    row.Lon,
	}
}
