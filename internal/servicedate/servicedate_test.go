package servicedate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peatus.ee/internal/clock"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name string
		in   Date
		want Date
	}{
		{"plain day", "20250310", "20250311"},
		{"month rollover", "20250331", "20250401"},
		{"year rollover", "20251231", "20260101"},
		{"february non-leap", "20250228", "20250301"},
		{"february leap", "20240228", "20240229"},
		{"leap day", "20240229", "20240301"},
		{"century non-leap", "21000228", "21000301"},
		{"400-year leap", "20000228", "20000229"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Next())
		})
	}
}

func TestWeekday(t *testing.T) {
	// Cross-checked against time.Date weekdays.
	tests := []struct {
		in   Date
		want int
	}{
		{"19700101", 4}, // Thursday
		{"20250309", 0}, // Sunday
		{"20250310", 1}, // Monday
		{"20250315", 6}, // Saturday
		{"20240229", 4}, // Thursday
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Weekday(), "weekday of %s", tt.in)
	}
}

func TestWeekdayMatchesTimePackage(t *testing.T) {
	day := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i++ {
		d := FromTime(day)
		assert.Equal(t, int(day.Weekday()), d.Weekday(), "weekday of %s", d)
		assert.Equal(t, FromTime(day.AddDate(0, 0, 1)), d.Next(), "next of %s", d)
		day = day.AddDate(0, 0, 1)
	}
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween("20250310", "20250310"))
	assert.Equal(t, 1, DaysBetween("20250310", "20250311"))
	assert.Equal(t, -1, DaysBetween("20250311", "20250310"))
	assert.Equal(t, 366, DaysBetween("20240101", "20250101")) // 2024 is a leap year
}

func TestParse(t *testing.T) {
	d, err := Parse("20250310")
	require.NoError(t, err)
	assert.Equal(t, Date("20250310"), d)

	for _, bad := range []string{"", "2025031", "202503100", "2025-3-10", "20251301", "20250230", "20250229"} {
		_, err := Parse(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}

	// Leap day parses only in leap years
	_, err = Parse("20240229")
	assert.NoError(t, err)
}

func TestDayMonth(t *testing.T) {
	assert.Equal(t, "10.03", Date("20250310").DayMonth())
	assert.Equal(t, "01.12", Date("20251201").DayMonth())
}

func TestAt(t *testing.T) {
	tallinn, err := time.LoadLocation("Europe/Tallinn")
	require.NoError(t, err)

	// 21:30:15 UTC is 23:30:15 in Tallinn (EET, UTC+2 in March before DST)
	instant := time.Date(2025, 3, 10, 21, 30, 15, 0, time.UTC)
	ctx := At(instant, tallinn)

	assert.Equal(t, Date("20250310"), ctx.Date)
	assert.Equal(t, 1, ctx.Weekday) // Monday
	assert.Equal(t, 23*3600+30*60+15, ctx.SecondsOfDay)
}

func TestAt_DateShiftsAcrossMidnight(t *testing.T) {
	tallinn, err := time.LoadLocation("Europe/Tallinn")
	require.NoError(t, err)

	// 23:30 UTC is already the next calendar day in Tallinn
	instant := time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC)
	ctx := At(instant, tallinn)

	assert.Equal(t, Date("20250311"), ctx.Date)
	assert.Equal(t, 2, ctx.Weekday) // Tuesday
	assert.Equal(t, 5400, ctx.SecondsOfDay)
}

func TestProvider(t *testing.T) {
	mock := clock.NewMockClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	p, err := NewProvider(mock, "Europe/Tallinn")
	require.NoError(t, err)

	ctx := p.Now()
	assert.Equal(t, Date("20250310"), ctx.Date)
	assert.Equal(t, 14*3600, ctx.SecondsOfDay)
	assert.Equal(t, "Europe/Tallinn", p.Location().String())
}

func TestProvider_UnknownZoneFailsAtStartup(t *testing.T) {
	_, err := NewProvider(clock.RealClock{}, "Mars/Olympus_Mons")
	assert.Error(t, err)
}
