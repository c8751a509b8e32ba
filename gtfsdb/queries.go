package gtfsdb

// Hand-written SQL against the GTFS schema. Queries that take a variable
// number of IDs build their IN clause from placeholders at call time.
//
// IMPORTANT: If a table in schema.sql changes, the SQL and Go types in this
// file must be updated manually to match.

import (
	"context"
	"database/sql"
	"strings"
)

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

type CreateAgencyParams struct {
	ID       string
	Name     string
	Url      string
	Timezone string
	Lang     sql.NullString
	Phone    sql.NullString
	FareUrl  sql.NullString
	Email    sql.NullString
}

const createAgency = `
INSERT INTO agencies (id, name, url, timezone, lang, phone, fare_url, email)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateAgency(ctx context.Context, arg CreateAgencyParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createAgency,
		arg.ID, arg.Name, arg.Url, arg.Timezone,
		arg.Lang, arg.Phone, arg.FareUrl, arg.Email)
}

type CreateRouteParams struct {
	ID        string
	AgencyID  string
	ShortName sql.NullString
	LongName  sql.NullString
	Desc      sql.NullString
	Type      int64
	Url       sql.NullString
	Color     sql.NullString
	TextColor sql.NullString
}

const createRoute = `
INSERT INTO routes (id, agency_id, short_name, long_name, "desc", type, url, color, text_color)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateRoute(ctx context.Context, arg CreateRouteParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createRoute,
		arg.ID, arg.AgencyID, arg.ShortName, arg.LongName, arg.Desc,
		arg.Type, arg.Url, arg.Color, arg.TextColor)
}

type CreateStopParams struct {
	ID                 string
	Code               sql.NullString
	Name               sql.NullString
	Desc               sql.NullString
	Lat                float64
	Lon                float64
	ZoneID             sql.NullString
	Region             sql.NullString
	Url                sql.NullString
	LocationType       sql.NullInt64
	Timezone           sql.NullString
	WheelchairBoarding sql.NullInt64
	PlatformCode       sql.NullString
}

const createStop = `
INSERT INTO stops (
    id, code, name, "desc", lat, lon, zone_id, region, url,
    location_type, timezone, wheelchair_boarding, platform_code
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateStop(ctx context.Context, arg CreateStopParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createStop,
		arg.ID, arg.Code, arg.Name, arg.Desc, arg.Lat, arg.Lon,
		arg.ZoneID, arg.Region, arg.Url, arg.LocationType,
		arg.Timezone, arg.WheelchairBoarding, arg.PlatformCode)
}

type CreateCalendarParams struct {
	ID        string
	Monday    int64
	Tuesday   int64
	Wednesday int64
	Thursday  int64
	Friday    int64
	Saturday  int64
	Sunday    int64
	StartDate string
	EndDate   string
}

const createCalendar = `
INSERT INTO calendar (
    id, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
    start_date, end_date
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateCalendar(ctx context.Context, arg CreateCalendarParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createCalendar,
		arg.ID, arg.Monday, arg.Tuesday, arg.Wednesday, arg.Thursday,
		arg.Friday, arg.Saturday, arg.Sunday, arg.StartDate, arg.EndDate)
}

type CreateCalendarDateParams struct {
	ServiceID     string
	Date          string
	ExceptionType int64
}

const createCalendarDate = `
INSERT INTO calendar_dates (service_id, date, exception_type)
VALUES (?, ?, ?)
`

func (q *Queries) CreateCalendarDate(ctx context.Context, arg CreateCalendarDateParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createCalendarDate,
		arg.ServiceID, arg.Date, arg.ExceptionType)
}

type CreateTripParams struct {
	ID                   string
	RouteID              string
	ServiceID            string
	TripHeadsign         sql.NullString
	TripShortName        sql.NullString
	DirectionID          sql.NullInt64
	BlockID              sql.NullString
	WheelchairAccessible sql.NullInt64
	BikesAllowed         sql.NullInt64
}

const createTrip = `
INSERT INTO trips (
    id, route_id, service_id, trip_headsign, trip_short_name,
    direction_id, block_id, wheelchair_accessible, bikes_allowed
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateTrip(ctx context.Context, arg CreateTripParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createTrip,
		arg.ID, arg.RouteID, arg.ServiceID, arg.TripHeadsign, arg.TripShortName,
		arg.DirectionID, arg.BlockID, arg.WheelchairAccessible, arg.BikesAllowed)
}

type CreateStopTimeParams struct {
	TripID        string
	ArrivalTime   string
	DepartureTime string
	StopID        string
	StopSequence  int64
	StopHeadsign  sql.NullString
	PickupType    sql.NullInt64
	DropOffType   sql.NullInt64
	Timepoint     sql.NullInt64
}

const createStopTime = `
INSERT INTO stop_times (
    trip_id, arrival_time, departure_time, stop_id, stop_sequence,
    stop_headsign, pickup_type, drop_off_type, timepoint
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateStopTime(ctx context.Context, arg CreateStopTimeParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, createStopTime,
		arg.TripID, arg.ArrivalTime, arg.DepartureTime, arg.StopID, arg.StopSequence,
		arg.StopHeadsign, arg.PickupType, arg.DropOffType, arg.Timepoint)
}

const getStop = `
SELECT id, code, name, "desc", lat, lon, zone_id, region, url,
       location_type, timezone, wheelchair_boarding, platform_code
FROM stops
WHERE id = ?
`

func (q *Queries) GetStop(ctx context.Context, id string) (Stop, error) {
	row := q.db.QueryRowContext(ctx, getStop, id)
	var i Stop
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.Name,
		&i.Desc,
		&i.Lat,
		&i.Lon,
		&i.ZoneID,
		&i.Region,
		&i.Url,
		&i.LocationType,
		&i.Timezone,
		&i.WheelchairBoarding,
		&i.PlatformCode,
	)
	return i, err
}

const getRoutesByShortName = `
SELECT id, agency_id, short_name, long_name, "desc", type, url, color, text_color
FROM routes
WHERE short_name = ?
ORDER BY id
`

func (q *Queries) GetRoutesByShortName(ctx context.Context, shortName string) ([]Route, error) {
	rows, err := q.db.QueryContext(ctx, getRoutesByShortName, shortName)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Route
	for rows.Next() {
		var i Route
		if err := rows.Scan(
			&i.ID,
			&i.AgencyID,
			&i.ShortName,
			&i.LongName,
			&i.Desc,
			&i.Type,
			&i.Url,
			&i.Color,
			&i.TextColor,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type GetStopTimesForStopAndRoutesRow struct {
	TripID       string
	RouteID      string
	ServiceID    string
	ArrivalTime  string
	TripHeadsign sql.NullString
	StopHeadsign sql.NullString
	DirectionID  sql.NullInt64
}

// GetStopTimesForStopAndRoutes returns every scheduled call at the stop made
// by trips belonging to any of the given routes.
func (q *Queries) GetStopTimesForStopAndRoutes(ctx context.Context, stopID string, routeIDs []string) ([]GetStopTimesForStopAndRoutesRow, error) {
	if len(routeIDs) == 0 {
		return nil, nil
	}

	query := `
SELECT st.trip_id, t.route_id, t.service_id, st.arrival_time,
       t.trip_headsign, st.stop_headsign, t.direction_id
FROM stop_times st
JOIN trips t ON t.id = st.trip_id
WHERE st.stop_id = ?
  AND t.route_id IN (` + placeholders(len(routeIDs)) + `)
ORDER BY st.arrival_time, st.trip_id
`
	args := make([]interface{}, 0, len(routeIDs)+1)
	args = append(args, stopID)
	for _, id := range routeIDs {
		args = append(args, id)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []GetStopTimesForStopAndRoutesRow
	for rows.Next() {
		var i GetStopTimesForStopAndRoutesRow
		if err := rows.Scan(
			&i.TripID,
			&i.RouteID,
			&i.ServiceID,
			&i.ArrivalTime,
			&i.TripHeadsign,
			&i.StopHeadsign,
			&i.DirectionID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetCalendarsForServices(ctx context.Context, serviceIDs []string) ([]Calendar, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}

	query := `
SELECT id, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
       start_date, end_date
FROM calendar
WHERE id IN (` + placeholders(len(serviceIDs)) + `)
`
	args := make([]interface{}, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		args = append(args, id)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Calendar
	for rows.Next() {
		var i Calendar
		if err := rows.Scan(
			&i.ID,
			&i.Monday,
			&i.Tuesday,
			&i.Wednesday,
			&i.Thursday,
			&i.Friday,
			&i.Saturday,
			&i.Sunday,
			&i.StartDate,
			&i.EndDate,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetCalendarDatesForDate(ctx context.Context, date string, serviceIDs []string) ([]CalendarDate, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}

	query := `
SELECT id, service_id, date, exception_type
FROM calendar_dates
WHERE date = ?
  AND service_id IN (` + placeholders(len(serviceIDs)) + `)
`
	args := make([]interface{}, 0, len(serviceIDs)+1)
	args = append(args, date)
	for _, id := range serviceIDs {
		args = append(args, id)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []CalendarDate
	for rows.Next() {
		var i CalendarDate
		if err := rows.Scan(&i.ID, &i.ServiceID, &i.Date, &i.ExceptionType); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listStops = `
SELECT id, code, name, "desc", lat, lon, zone_id, region, url,
       location_type, timezone, wheelchair_boarding, platform_code
FROM stops
ORDER BY id
`

func (q *Queries) ListStops(ctx context.Context) ([]Stop, error) {
	rows, err := q.db.QueryContext(ctx, listStops)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Stop
	for rows.Next() {
		var i Stop
		if err := rows.Scan(
			&i.ID,
			&i.Code,
			&i.Name,
			&i.Desc,
			&i.Lat,
			&i.Lon,
			&i.ZoneID,
			&i.Region,
			&i.Url,
			&i.LocationType,
			&i.Timezone,
			&i.WheelchairBoarding,
			&i.PlatformCode,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getRoutesForStop = `
SELECT DISTINCT r.id, r.agency_id, r.short_name, r.long_name, r."desc",
       r.type, r.url, r.color, r.text_color
FROM routes r
JOIN trips t ON t.route_id = r.id
JOIN stop_times st ON st.trip_id = t.id
WHERE st.stop_id = ?
ORDER BY r.short_name, r.id
`

func (q *Queries) GetRoutesForStop(ctx context.Context, stopID string) ([]Route, error) {
	rows, err := q.db.QueryContext(ctx, getRoutesForStop, stopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // closing is also checked explicitly below
	var items []Route
	for rows.Next() {
		var i Route
		if err := rows.Scan(
			&i.ID,
			&i.AgencyID,
			&i.ShortName,
			&i.LongName,
			&i.Desc,
			&i.Type,
			&i.Url,
			&i.Color,
			&i.TextColor,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getImportMetadata = `
SELECT id, file_hash, import_time, file_source
FROM import_metadata
WHERE id = 1
`

func (q *Queries) GetImportMetadata(ctx context.Context) (ImportMetadata, error) {
	row := q.db.QueryRowContext(ctx, getImportMetadata)
	var i ImportMetadata
	err := row.Scan(&i.ID, &i.FileHash, &i.ImportTime, &i.FileSource)
	return i, err
}

type UpsertImportMetadataParams struct {
	FileHash   string
	ImportTime int64
	FileSource string
}

const upsertImportMetadata = `
INSERT INTO import_metadata (id, file_hash, import_time, file_source)
VALUES (1, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    file_hash = excluded.file_hash,
    import_time = excluded.import_time,
    file_source = excluded.file_source
`

func (q *Queries) UpsertImportMetadata(ctx context.Context, arg UpsertImportMetadataParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, upsertImportMetadata,
		arg.FileHash, arg.ImportTime, arg.FileSource)
}

func (q *Queries) ClearStopTimes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM stop_times")
	return err
}

func (q *Queries) ClearTrips(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM trips")
	return err
}

func (q *Queries) ClearCalendarDates(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM calendar_dates")
	return err
}

func (q *Queries) ClearCalendar(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM calendar")
	return err
}

func (q *Queries) ClearStops(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM stops")
	return err
}

func (q *Queries) ClearRoutes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM routes")
	return err
}

func (q *Queries) ClearAgencies(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM agencies")
	return err
}
