// Package servicedate models the service-day calendar used by GTFS
// schedule resolution: dates in the compact YYYYMMDD form, weekday
// numbering with Sunday as 0, and a time-of-day measured in seconds
// since midnight of the service date.
//
// Date arithmetic is pure integer math over the proleptic Gregorian
// calendar so that "next date" and weekday lookups never depend on the
// host timezone database.
package servicedate

import (
	"fmt"
	"time"

	"peatus.ee/internal/clock"
)

// Date is a calendar date in YYYYMMDD form, e.g. "20250310".
type Date string

// Context is the decomposed "now" every schedule computation starts
// from: the service-local date, its weekday (0=Sunday..6=Saturday) and
// the seconds elapsed since local midnight.
type Context struct {
	Date         Date
	Weekday      int
	SecondsOfDay int
}

// At decomposes an instant into a Context in the given location.
func At(t time.Time, loc *time.Location) Context {
	local := t.In(loc)
	d := FromTime(local)
	return Context{
		Date:         d,
		Weekday:      int(local.Weekday()),
		SecondsOfDay: local.Hour()*3600 + local.Minute()*60 + local.Second(),
	}
}

// FromTime formats the calendar date of t (in t's own location).
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return fromParts(y, int(m), d)
}

// Parse validates s as a YYYYMMDD date.
func Parse(s string) (Date, error) {
	if len(s) != 8 {
		return "", fmt.Errorf("invalid date %q: want YYYYMMDD", s)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("invalid date %q: want YYYYMMDD", s)
		}
	}
	d := Date(s)
	y, m, day := d.parts()
	if m < 1 || m > 12 || day < 1 || day > daysInMonth(y, m) {
		return "", fmt.Errorf("invalid date %q: no such calendar day", s)
	}
	return d, nil
}

// Next returns the following calendar date, rolling over month and
// year boundaries (leap years included).
func (d Date) Next() Date {
	return fromDayNumber(d.dayNumber() + 1)
}

// Weekday returns the day of week, 0=Sunday through 6=Saturday.
func (d Date) Weekday() int {
	// Day 0 of the epoch (1970-01-01) was a Thursday.
	return ((d.dayNumber()+4)%7 + 7) % 7
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b Date) int {
	return b.dayNumber() - a.dayNumber()
}

// DayMonth formats the date as DD.MM for display.
func (d Date) DayMonth() string {
	_, m, day := d.parts()
	return fmt.Sprintf("%02d.%02d", day, m)
}

func (d Date) parts() (year, month, day int) {
	s := string(d)
	year = atoi(s[0:4])
	month = atoi(s[4:6])
	day = atoi(s[6:8])
	return
}

// atoi is a digits-only helper; inputs are pre-validated slices of a
// YYYYMMDD string.
func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

func fromParts(year, month, day int) Date {
	return Date(fmt.Sprintf("%04d%02d%02d", year, month, day))
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	default:
		if isLeap(year) {
			return 29
		}
		return 28
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// dayNumber converts the date to days since 1970-01-01 using the civil
// calendar algorithm (400-year eras of 146097 days).
func (d Date) dayNumber() int {
	y, m, day := d.parts()
	if m <= 2 {
		y--
	}
	era := y / 400
	yoe := y - era*400
	mp := m + 9
	if m > 2 {
		mp = m - 3
	}
	doy := (153*mp+2)/5 + day - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}

// fromDayNumber is the inverse of dayNumber.
func fromDayNumber(n int) Date {
	z := n + 719468
	era := z / 146097
	doe := z - era*146097
	yoe := (doe - doe/1460 + doe/36524 - doe/146097) / 365
	y := yoe + era*400
	doy := doe - (365*yoe + yoe/4 - yoe/100)
	mp := (5*doy + 2) / 153
	day := doy - (153*mp+2)/5 + 1
	m := mp - 9
	if mp < 10 {
		m = mp + 3
	}
	if m <= 2 {
		y++
	}
	return fromParts(y, m, day)
}

// Provider yields the current Context anchored to a fixed transit
// timezone, independent of the host zone.
type Provider struct {
	clock clock.Clock
	loc   *time.Location
}

// NewProvider resolves the named timezone once. A missing zone is a
// startup error: every downstream computation depends on a correct
// local "now", so callers must treat this failure as fatal.
func NewProvider(c clock.Clock, timezone string) (*Provider, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("unable to load transit timezone %q: %w", timezone, err)
	}
	return &Provider{clock: c, loc: loc}, nil
}

// Now returns the current Context in the provider's timezone.
func (p *Provider) Now() Context {
	return At(p.clock.Now(), p.loc)
}

// Location returns the provider's fixed timezone.
func (p *Provider) Location() *time.Location {
	return p.loc
}
