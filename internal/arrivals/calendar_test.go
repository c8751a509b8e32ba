package arrivals

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"peatus.ee/internal/servicedate"
)

func weekdaySet(days ...int) [7]bool {
	var w [7]bool
	for _, d := range days {
		w[d] = true
	}
	return w
}

func TestServiceActiveOn(t *testing.T) {
	monday := servicedate.Date("20250310")
	weekdayOnly := &Service{
		ID:        "wk",
		Weekdays:  weekdaySet(1, 2, 3, 4, 5), // Mon-Fri
		StartDate: "20250101",
		EndDate:   "20251231",
	}

	tests := []struct {
		name string
		svc  *Service
		exc  *Exception
		date servicedate.Date
		want bool
	}{
		{"weekday flag matches", weekdayOnly, nil, monday, true},
		{"weekday flag off", weekdayOnly, nil, "20250309", false}, // Sunday
		{"before window", weekdayOnly, nil, "20241230", false},    // a Monday before start
		{"after window", weekdayOnly, nil, "20260105", false},     // a Monday after end
		{"window boundary start", &Service{Weekdays: weekdaySet(0, 1, 2, 3, 4, 5, 6), StartDate: monday, EndDate: monday}, nil, monday, true},
		{"added exception overrides everything", nil, &Exception{ServiceID: "x", Date: monday, Type: ExceptionAdded}, monday, true},
		{"added exception outside window", weekdayOnly, &Exception{ServiceID: "wk", Date: "20260105", Type: ExceptionAdded}, "20260105", true},
		{"removed exception overrides weekly presence", weekdayOnly, &Exception{ServiceID: "wk", Date: monday, Type: ExceptionRemoved}, monday, false},
		{"no calendar row and no exception", nil, nil, monday, false},
		{"unknown exception type falls through to weekly rule", weekdayOnly, &Exception{ServiceID: "wk", Date: monday, Type: 3}, monday, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServiceActiveOn(tt.svc, tt.exc, tt.date))
		})
	}
}
