package arrivals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peatus.ee/internal/servicedate"
)

func TestParseGTFSTime(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00:00", 0, false},
		{"08:00:00", 8 * 3600, false},
		{"8:05:00", 8*3600 + 300, false},
		{"23:59:59", 86399, false},
		{"24:10:00", 87000, false},
		{"25:10:00", 90600, false},
		{"", 0, true},
		{"08:00", 0, true},
		{"08:60:00", 0, true},
		{"08:00:60", 0, true},
		{"ab:00:00", 0, true},
		{"08:0:00", 0, true},
		{"-1:00:00", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseGTFSTime(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestScheduledTime_PastMidnightNormalization(t *testing.T) {
	// Raw "25:10:00" on service date 20250310: displayed 01:10 on the
	// following calendar day, sort key stays the raw 90600.
	st := ScheduledTime{ServiceDate: "20250310", RawSeconds: 90600}

	assert.True(t, st.PastMidnight())
	assert.Equal(t, "01:10", st.ClockString())
	assert.Equal(t, "20250311", string(st.DisplayDate()))
	assert.Equal(t, 4200, st.DisplaySeconds())
	assert.Equal(t, 90600, st.SortKey("20250310"))
}

func TestScheduledTime_SameDay(t *testing.T) {
	st := ScheduledTime{ServiceDate: "20250310", RawSeconds: 14*3600 + 35*60}

	assert.False(t, st.PastMidnight())
	assert.Equal(t, "14:35", st.ClockString())
	assert.Equal(t, "20250310", string(st.DisplayDate()))
	assert.Equal(t, st.RawSeconds, st.SortKey("20250310"))
}

func TestScheduledTime_SortKeyOrdersAcrossDays(t *testing.T) {
	today := ScheduledTime{ServiceDate: "20250310", RawSeconds: 8 * 3600}
	lateNight := ScheduledTime{ServiceDate: "20250310", RawSeconds: 90600} // 25:10
	tomorrow := ScheduledTime{ServiceDate: "20250311", RawSeconds: 7 * 3600}

	base := servicedate.Date("20250310")
	assert.Less(t, today.SortKey(base), lateNight.SortKey(base))
	assert.Less(t, lateNight.SortKey(base), tomorrow.SortKey(base))
	assert.Equal(t, 90600, lateNight.SortKey(base))
	assert.Equal(t, 111600, tomorrow.SortKey(base)) // 07:00 + 86400
}
