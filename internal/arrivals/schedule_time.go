package arrivals

import (
	"fmt"
	"strconv"
	"strings"

	"peatus.ee/internal/servicedate"
)

// SecondsPerDay is one service day in seconds.
const SecondsPerDay = 86400

// ParseGTFSTime parses a GTFS HH:MM:SS time into seconds since
// midnight of the service date. GTFS allows the hour field to exceed
// 23: a trip departing at 23:50 and arriving at 00:10 the next
// calendar day is encoded as "24:10:00" and still belongs to the
// previous service date. Single-digit hours ("8:05:00") are accepted
// per the GTFS reference.
func ParseGTFSTime(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("malformed GTFS time %q: want HH:MM:SS", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || len(parts[0]) == 0 || len(parts[0]) > 3 {
		return 0, fmt.Errorf("malformed GTFS time %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("malformed GTFS time %q: bad minute", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 || len(parts[2]) != 2 {
		return 0, fmt.Errorf("malformed GTFS time %q: bad second", s)
	}
	return h*3600 + m*60 + sec, nil
}

// ScheduledTime is one scheduled visit pinned to the service date that
// activated it. RawSeconds is the literal GTFS value and may exceed
// 86399; such a time is served under the ServiceDate's calendar but
// displayed on the following day. Keeping both pieces in one value
// type means the display-date and sort-key arithmetic exists exactly
// once, whichever day's query produced the entry.
type ScheduledTime struct {
	ServiceDate servicedate.Date
	RawSeconds  int
}

// PastMidnight reports whether the time spills past the service
// date's midnight.
func (st ScheduledTime) PastMidnight() bool {
	return st.RawSeconds >= SecondsPerDay
}

// DisplayDate is the calendar date a rider experiences the arrival on.
func (st ScheduledTime) DisplayDate() servicedate.Date {
	if st.PastMidnight() {
		return st.ServiceDate.Next()
	}
	return st.ServiceDate
}

// DisplaySeconds is the rider-clock time of day.
func (st ScheduledTime) DisplaySeconds() int {
	return st.RawSeconds % SecondsPerDay
}

// ClockString formats the display time as HH:MM.
func (st ScheduledTime) ClockString() string {
	s := st.DisplaySeconds()
	return fmt.Sprintf("%02d:%02d", s/3600, (s%3600)/60)
}

// SortKey orders scheduled times across a multi-day horizon relative
// to a base date: raw seconds offset by one full day per day of
// service-date distance. A today-service "25:10:00" (90600) therefore
// ranks after every same-day time but before tomorrow's "07:00:00"
// (111600).
func (st ScheduledTime) SortKey(base servicedate.Date) int {
	return st.RawSeconds + SecondsPerDay*servicedate.DaysBetween(base, st.ServiceDate)
}
