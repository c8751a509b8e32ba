package gtfsdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	_ "embed"
	"encoding/hex"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/OneBusAway/go-gtfs"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"peatus.ee/internal/appconf"
	"peatus.ee/internal/logging"
)

//go:embed schema.sql
var ddl string

// createDB creates a new SQLite database with tables for static GTFS data
func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	err = configureSQLitePerformance(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}

	err = performDatabaseMigration(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	configureConnectionPool(db, config)

	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	statements := strings.Split(ddl, "-- migrate") // Split DDL into individual statements
	for _, stmt := range statements {
		trimmedStmt := strings.TrimSpace(stmt)
		if trimmedStmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmedStmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmedStmt, err)
		}
	}
	return nil
}

func (c *Client) processAndStoreGTFSDataWithSource(b []byte, source string) error {
	logger := slog.Default().With(slog.String("component", "gtfs_importer"))

	startTime := time.Now()
	defer func() {
		c.importRuntime = time.Since(startTime)

		logging.LogOperation(logger, "gtfs_data_import_completed",
			slog.Duration("duration", c.importRuntime),
			slog.String("source", source))
	}()

	hash := sha256.Sum256(b)
	hashStr := hex.EncodeToString(hash[:])

	ctx := context.Background()

	existingMetadata, err := c.Queries.GetImportMetadata(ctx)
	if err == nil {
		if existingMetadata.FileHash == hashStr && existingMetadata.FileSource == source {
			logging.LogOperation(logger, "gtfs_data_unchanged_skipping_import",
				slog.String("hash", hashStr[:8]))
			return nil
		}
		logging.LogOperation(logger, "gtfs_data_changed_reimporting",
			slog.String("old_hash", existingMetadata.FileHash[:8]),
			slog.String("new_hash", hashStr[:8]))
		err = c.clearAllGTFSData(ctx)
		if err != nil {
			return fmt.Errorf("error clearing existing GTFS data: %w", err)
		}
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("error checking import metadata: %w", err)
	}
	// If err == sql.ErrNoRows, this is the first import, continue normally

	staticData, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return err
	}

	logging.LogOperation(logger, "starting_database_import",
		slog.Int("warnings", len(staticData.Warnings)))

	logging.LogOperation(logger, "inserting_agencies_and_routes",
		slog.Int("agencies", len(staticData.Agencies)),
		slog.Int("routes", len(staticData.Routes)))

	for _, a := range staticData.Agencies {
		params := CreateAgencyParams{
			ID:       a.Id,
			Name:     a.Name,
			Url:      a.Url,
			Timezone: a.Timezone,
			Lang:     toNullString(a.Language),
			Phone:    toNullString(a.Phone),
			FareUrl:  toNullString(a.FareUrl),
			Email:    toNullString(a.Email),
		}

		_, err := c.Queries.CreateAgency(ctx, params)
		if err != nil {
			return fmt.Errorf("unable to create agency: %w", err)
		}
	}

	singleAgencyID := ""
	if len(staticData.Agencies) == 1 {
		singleAgencyID = staticData.Agencies[0].Id
	}

	for _, r := range staticData.Routes {
		route := CreateRouteParams{
			ID:        r.Id,
			AgencyID:  pickFirstAvailable(r.Agency.Id, singleAgencyID),
			ShortName: toNullString(r.ShortName),
			LongName:  toNullString(r.LongName),
			Desc:      toNullString(r.Description),
			Type:      int64(r.Type),
			Url:       toNullString(r.Url),
			Color:     toNullString(r.Color),
			TextColor: toNullString(r.TextColor),
		}

		_, err := c.Queries.CreateRoute(ctx, route)
		if err != nil {
			return fmt.Errorf("unable to create route: %w", err)
		}
	}

	var allStopParams []CreateStopParams
	for _, s := range staticData.Stops {
		// Stops without coordinates cannot serve nearest-stop lookups and
		// would contaminate spatial results with (0,0) placeholders. Per the
		// GTFS reference, lat/lon are optional for generic nodes (type=3)
		// and boarding areas (type=4).
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		params := CreateStopParams{
			ID:                 s.Id,
			Code:               toNullString(s.Code),
			Name:               toNullString(s.Name),
			Desc:               toNullString(s.Description),
			Lat:                *s.Latitude,
			Lon:                *s.Longitude,
			ZoneID:             toNullString(s.ZoneId),
			Region:             toNullString(regionFromStop(s.Name, s.Description, s.ZoneId)),
			Url:                toNullString(s.Url),
			LocationType:       toNullInt64(int64(s.Type)),
			Timezone:           toNullString(s.Timezone),
			WheelchairBoarding: toNullInt64(int64(s.WheelchairBoarding)),
			PlatformCode:       toNullString(s.PlatformCode),
		}

		allStopParams = append(allStopParams, params)
	}
	err = c.bulkInsertStops(ctx, allStopParams)
	if err != nil {
		return fmt.Errorf("unable to create stops: %w", err)
	}

	logging.LogOperation(logger, "inserting_calendar",
		slog.Int("count", len(staticData.Services)))

	for _, s := range staticData.Services {
		params := CreateCalendarParams{
			ID:        s.Id,
			Monday:    boolToInt(s.Monday),
			Tuesday:   boolToInt(s.Tuesday),
			Wednesday: boolToInt(s.Wednesday),
			Thursday:  boolToInt(s.Thursday),
			Friday:    boolToInt(s.Friday),
			Saturday:  boolToInt(s.Saturday),
			Sunday:    boolToInt(s.Sunday),
			StartDate: s.StartDate.Format("20060102"),
			EndDate:   s.EndDate.Format("20060102"),
		}

		_, err := c.Queries.CreateCalendar(ctx, params)
		if err != nil {
			return fmt.Errorf("unable to create calendar: %w", err)
		}
	}

	var allCalendarDateParams []CreateCalendarDateParams
	for _, service := range staticData.Services {
		for _, date := range service.AddedDates {
			allCalendarDateParams = append(allCalendarDateParams, CreateCalendarDateParams{
				ServiceID:     service.Id,
				Date:          date.Format("20060102"),
				ExceptionType: 1,
			})
		}
		for _, date := range service.RemovedDates {
			allCalendarDateParams = append(allCalendarDateParams, CreateCalendarDateParams{
				ServiceID:     service.Id,
				Date:          date.Format("20060102"),
				ExceptionType: 2,
			})
		}
	}
	if len(allCalendarDateParams) > 0 {
		err = c.bulkInsertCalendarDates(ctx, allCalendarDateParams)
		if err != nil {
			logging.LogError(logger, "Unable to create calendar dates", err)
			return fmt.Errorf("unable to create calendar dates: %w", err)
		}
	}

	var allTripParams []CreateTripParams
	for _, t := range staticData.Trips {
		params := CreateTripParams{
			ID:                   t.ID,
			RouteID:              t.Route.Id,
			ServiceID:            t.Service.Id,
			TripHeadsign:         toNullString(t.Headsign),
			TripShortName:        toNullString(t.ShortName),
			DirectionID:          directionToNull(t.DirectionId),
			BlockID:              toNullString(t.BlockID),
			WheelchairAccessible: toNullInt64(int64(t.WheelchairAccessible)),
			BikesAllowed:         toNullInt64(int64(t.BikesAllowed)),
		}
		allTripParams = append(allTripParams, params)
	}
	err = c.bulkInsertTrips(ctx, allTripParams)
	if err != nil {
		return fmt.Errorf("unable to create trips: %w", err)
	}

	var allStopTimeParams []CreateStopTimeParams
	for _, t := range staticData.Trips {
		for _, st := range t.StopTimes {
			params := CreateStopTimeParams{
				TripID:        t.ID,
				ArrivalTime:   formatGTFSTime(st.ArrivalTime),
				DepartureTime: formatGTFSTime(st.DepartureTime),
				StopID:        st.Stop.Id,
				StopSequence:  int64(st.StopSequence),
				StopHeadsign:  toNullString(st.Headsign),
				PickupType:    toNullInt64(int64(st.PickupType)),
				DropOffType:   toNullInt64(int64(st.DropOffType)),
				Timepoint:     toNullInt64(boolToInt(st.ExactTimes)),
			}

			allStopTimeParams = append(allStopTimeParams, params)
		}
	}
	err = c.bulkInsertStopTimes(ctx, allStopTimeParams)
	if err != nil {
		return fmt.Errorf("unable to create stop times: %w", err)
	}

	logging.LogOperation(logger, "updating_import_metadata",
		slog.String("hash", hashStr[:8]),
		slog.String("source", source))

	_, err = c.Queries.UpsertImportMetadata(ctx, UpsertImportMetadataParams{
		FileHash:   hashStr,
		ImportTime: time.Now().Unix(),
		FileSource: source,
	})
	if err != nil {
		logging.LogError(logger, "Error updating import metadata", err)
		return fmt.Errorf("error updating import metadata: %w", err)
	}

	return nil
}

// clearAllGTFSData clears all GTFS data from the database in the correct order to respect foreign key constraints
func (c *Client) clearAllGTFSData(ctx context.Context) error {
	if err := c.Queries.ClearStopTimes(ctx); err != nil {
		return fmt.Errorf("error clearing stop_times: %w", err)
	}
	if err := c.Queries.ClearTrips(ctx); err != nil {
		return fmt.Errorf("error clearing trips: %w", err)
	}
	if err := c.Queries.ClearCalendarDates(ctx); err != nil {
		return fmt.Errorf("error clearing calendar_dates: %w", err)
	}
	if err := c.Queries.ClearCalendar(ctx); err != nil {
		return fmt.Errorf("error clearing calendar: %w", err)
	}
	if err := c.Queries.ClearStops(ctx); err != nil {
		return fmt.Errorf("error clearing stops: %w", err)
	}
	if err := c.Queries.ClearRoutes(ctx); err != nil {
		return fmt.Errorf("error clearing routes: %w", err)
	}
	if err := c.Queries.ClearAgencies(ctx); err != nil {
		return fmt.Errorf("error clearing agencies: %w", err)
	}
	return nil
}

// formatGTFSTime renders a parsed stop time back into the feed's HH:MM:SS
// form. Hours exceeding 23 are preserved for trips running past midnight.
func formatGTFSTime(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// regionFromStop derives a coarse region label for a stop. Estonian feeds
// usually carry the settlement in the stop description ("Tallinn, Kesklinn")
// or after a dash in the name, with the fare zone as a last resort.
func regionFromStop(name, desc, zoneID string) string {
	for _, s := range []string{desc, name} {
		if i := strings.Index(s, ","); i > 0 {
			return strings.TrimSpace(s[:i])
		}
	}
	if i := strings.Index(name, " - "); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(zoneID)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// directionToNull converts the parsed direction_id back to the feed's
// 0/1 encoding. The parser maps "0" to DirectionID_False (2) and "1" to
// DirectionID_True (1), so the enum value must not be stored as-is.
func directionToNull(d gtfs.DirectionID) sql.NullInt64 {
	switch d {
	case gtfs.DirectionID_False:
		return sql.NullInt64{Int64: 0, Valid: true}
	case gtfs.DirectionID_True:
		return sql.NullInt64{Int64: 1, Valid: true}
	default:
		return sql.NullInt64{}
	}
}

func toNullInt64(i int64) sql.NullInt64 {
	if i != 0 {
		return sql.NullInt64{
			Int64: i,
			Valid: true,
		}
	}
	return sql.NullInt64{}
}

func toNullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

func pickFirstAvailable(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// insertAllInTx runs n single-row inserts inside one transaction. The
// feed tables are small enough, apart from stop_times, that per-row
// statements in a single transaction import in well under a second.
func (c *Client) insertAllInTx(ctx context.Context, table string, n int, insert func(qtx *Queries, i int) error) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_"+table)

	qtx := c.Queries.WithTx(tx)
	for i := 0; i < n; i++ {
		if err := insert(qtx, i); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(logger, "rows_inserted",
		slog.String("table", table),
		slog.Int("count", n))
	return nil
}

func (c *Client) bulkInsertStops(ctx context.Context, stops []CreateStopParams) error {
	return c.insertAllInTx(ctx, "stops", len(stops), func(qtx *Queries, i int) error {
		_, err := qtx.CreateStop(ctx, stops[i])
		return err
	})
}

func (c *Client) bulkInsertTrips(ctx context.Context, trips []CreateTripParams) error {
	return c.insertAllInTx(ctx, "trips", len(trips), func(qtx *Queries, i int) error {
		_, err := qtx.CreateTrip(ctx, trips[i])
		return err
	})
}

func (c *Client) bulkInsertCalendarDates(ctx context.Context, calendarDates []CreateCalendarDateParams) error {
	return c.insertAllInTx(ctx, "calendar_dates", len(calendarDates), func(qtx *Queries, i int) error {
		_, err := qtx.CreateCalendarDate(ctx, calendarDates[i])
		return err
	})
}

// stopTimeBatch is one multi-row INSERT statement with its arguments.
type stopTimeBatch struct {
	query string
	args  []interface{}
	rows  int
}

// bulkInsertStopTimes is the import hot path: an Estonian national feed
// carries a few million stop_times rows. Multi-row INSERT statements
// are built on all CPUs in parallel, then executed in order inside a
// single transaction. Values travel exclusively through ? placeholders;
// the statement text itself is built from constants only.
func (c *Client) bulkInsertStopTimes(ctx context.Context, stopTimes []CreateStopTimeParams) error {
	logger := slog.Default().With(slog.String("component", "bulk_insert"))

	logging.LogOperation(logger, "inserting_stop_times",
		slog.Int("count", len(stopTimes)))

	batchSize := c.config.GetBulkInsertBatchSize()
	numBatches := (len(stopTimes) + batchSize - 1) / batchSize
	batches := make([]stopTimeBatch, numBatches)

	const insertHead = `INSERT INTO stop_times (
		trip_id, arrival_time, departure_time, stop_id, stop_sequence,
		stop_headsign, pickup_type, drop_off_type, timepoint
	) VALUES `

	indexChan := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < runtime.NumCPU(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexChan {
				start := idx * batchSize
				end := start + batchSize
				if end > len(stopTimes) {
					end = len(stopTimes)
				}
				// Each worker owns distinct indices, so writing into the
				// shared slice needs no locking.
				batches[idx] = buildStopTimeBatch(insertHead, stopTimes[start:end])
			}
		}()
	}

	for i := 0; i < numBatches; i++ {
		if ctx.Err() != nil {
			close(indexChan)
			wg.Wait()
			return ctx.Err()
		}
		indexChan <- i
	}
	close(indexChan)
	wg.Wait()

	tx, err := c.DB.Begin()
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, logger, "bulk_insert_stop_times")

	inserted := 0
	for _, batch := range batches {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := tx.ExecContext(ctx, batch.query, batch.args...); err != nil {
			return fmt.Errorf("failed to insert stop_times batch: %w", err)
		}
		inserted += batch.rows
		if inserted%100000 < batch.rows {
			logging.LogOperation(logger, "stop_times_progress",
				slog.Int("inserted", inserted),
				slog.Int("total", len(stopTimes)))
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	logging.LogOperation(logger, "stop_times_inserted",
		slog.Int("count", len(stopTimes)))
	return nil
}

func buildStopTimeBatch(head string, batch []CreateStopTimeParams) stopTimeBatch {
	var query strings.Builder
	query.WriteString(head)
	args := make([]interface{}, 0, len(batch)*9)

	for j, params := range batch {
		if j > 0 {
			query.WriteString(", ")
		}
		query.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			params.TripID,
			params.ArrivalTime,
			params.DepartureTime,
			params.StopID,
			params.StopSequence,
			params.StopHeadsign,
			params.PickupType,
			params.DropOffType,
			params.Timepoint,
		)
	}

	return stopTimeBatch{query: query.String(), args: args, rows: len(batch)}
}

// configureSQLitePerformance applies import-friendly PRAGMA settings:
// a 64MB page cache and in-memory temp storage.
func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// configureConnectionPool sets up appropriate connection pool settings for
// SQLite. Every connection to a :memory: database gets its own separate
// database instance, so those are limited to a single connection.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
}
