package arrivals

import (
	"context"

	"peatus.ee/internal/servicedate"
)

// Calendar exception types per GTFS calendar_dates.txt.
const (
	ExceptionAdded   = 1
	ExceptionRemoved = 2
)

// Service is one weekly recurrence pattern: seven weekday flags and an
// inclusive validity window.
type Service struct {
	ID        string
	Weekdays  [7]bool // indexed 0=Sunday..6=Saturday
	StartDate servicedate.Date
	EndDate   servicedate.Date
}

// Exception is a dated override of the weekly pattern.
type Exception struct {
	ServiceID string
	Date      servicedate.Date
	Type      int
}

// ServiceActiveOn is the single calendar evaluation rule. An added
// exception activates the service regardless of the weekly pattern or
// validity window; a removed exception deactivates it regardless of
// weekly presence. Otherwise the weekday flag and window decide. A
// service with neither a calendar row nor an exception is inactive.
func ServiceActiveOn(svc *Service, exc *Exception, date servicedate.Date) bool {
	if exc != nil {
		switch exc.Type {
		case ExceptionAdded:
			return true
		case ExceptionRemoved:
			return false
		}
	}
	if svc == nil {
		return false
	}
	if !svc.Weekdays[date.Weekday()] {
		return false
	}
	// YYYYMMDD strings compare correctly as strings.
	return svc.StartDate <= date && date <= svc.EndDate
}

// activeServices resolves, in two batched queries, which of the
// candidate service IDs run on the given date. Evaluated once per
// date per request, never per stop-time row.
func (r *Resolver) activeServices(ctx context.Context, date servicedate.Date, candidates []string) (map[string]bool, error) {
	if len(candidates) == 0 {
		return map[string]bool{}, nil
	}

	services, err := r.storeCalendars(ctx, candidates)
	if err != nil {
		return nil, err
	}
	exceptions, err := r.storeExceptions(ctx, date, candidates)
	if err != nil {
		return nil, err
	}

	byService := make(map[string]*Service, len(services))
	for i := range services {
		byService[services[i].ID] = &services[i]
	}
	excByService := make(map[string]*Exception, len(exceptions))
	for i := range exceptions {
		excByService[exceptions[i].ServiceID] = &exceptions[i]
	}

	active := make(map[string]bool, len(candidates))
	for _, id := range candidates {
		if ServiceActiveOn(byService[id], excByService[id], date) {
			active[id] = true
		}
	}
	return active, nil
}

func (r *Resolver) storeCalendars(ctx context.Context, serviceIDs []string) ([]Service, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()
	services, err := r.Store.CalendarsForServices(ctx, serviceIDs)
	if err != nil {
		return nil, &TransientError{Op: "calendars", Err: err}
	}
	return services, nil
}

func (r *Resolver) storeExceptions(ctx context.Context, date servicedate.Date, serviceIDs []string) ([]Exception, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()
	exceptions, err := r.Store.ExceptionsForDate(ctx, date, serviceIDs)
	if err != nil {
		return nil, &TransientError{Op: "calendar exceptions", Err: err}
	}
	return exceptions, nil
}
