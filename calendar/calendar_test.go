package calendar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garderieflow/backoffice/calendar"
)

func TestExtend_FromEndDate(t *testing.T) {
	// GIVEN: An enrollment ending Jan 31
	// WHEN: Extending by 30 days
	// THEN: The new end is Mar 1 (2024 is a leap year)
	end := calendar.NewDate(2024, time.January, 31)
	today := calendar.NewDate(2024, time.June, 1)

	got := calendar.Extend(&end, 30, today)

	assert.Equal(t, calendar.NewDate(2024, time.March, 1), got)
}

func TestExtend_NilEndStartsFromToday(t *testing.T) {
	today := calendar.NewDate(2024, time.March, 10)

	got := calendar.Extend(nil, 30, today)

	assert.Equal(t, calendar.NewDate(2024, time.April, 9), got)
}

func TestMonthWindow_HalfOpen(t *testing.T) {
	w := calendar.MonthWindow(2024, time.February)

	assert.Equal(t, calendar.NewDate(2024, time.February, 1), w.Start)
	assert.Equal(t, calendar.NewDate(2024, time.March, 1), w.End)
	assert.Equal(t, 29, w.Days())
	assert.True(t, w.Contains(calendar.NewDate(2024, time.February, 29)))
	assert.False(t, w.Contains(calendar.NewDate(2024, time.March, 1)), "end is exclusive")
}

func TestMonthWindow_December(t *testing.T) {
	w := calendar.MonthWindow(2024, time.December)

	assert.Equal(t, calendar.NewDate(2025, time.January, 1), w.End)
	assert.Equal(t, calendar.NewDate(2024, time.December, 31), w.Last())
}

func TestYearWindow(t *testing.T) {
	w := calendar.YearWindow(2023)

	assert.Equal(t, 365, w.Days())
	assert.Equal(t, "[2023-01-01, 2024-01-01)", w.String())
}

func TestOccupancyBounds_Uses31Days(t *testing.T) {
	// GIVEN: February (29 days in 2024)
	// WHEN: Computing occupancy bounds
	// THEN: The upper bound is Feb 1 + 31 days = Mar 3, past the month end
	from, through := calendar.OccupancyBounds(2024, time.February)

	assert.Equal(t, calendar.NewDate(2024, time.February, 1), from)
	assert.Equal(t, calendar.NewDate(2024, time.March, 3), through)
}

func TestOverlaps(t *testing.T) {
	from, through := calendar.OccupancyBounds(2024, time.March)
	feb15 := calendar.NewDate(2024, time.February, 15)
	feb29 := calendar.NewDate(2024, time.February, 29)
	mar1 := calendar.NewDate(2024, time.March, 1)
	apr1 := calendar.NewDate(2024, time.April, 1)
	apr2 := calendar.NewDate(2024, time.April, 2)

	tests := []struct {
		name  string
		start calendar.Date
		end   *calendar.Date
		want  bool
	}{
		{"ended before month", feb15, &feb29, false},
		{"ends on first day", feb15, &mar1, true},
		{"open ended", feb15, nil, true},
		{"starts on first of next month", apr1, nil, true},
		{"starts after upper bound", apr2, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calendar.Overlaps(tt.start, tt.end, from, through))
		})
	}
}

func TestDaysUntil_CanBeNegative(t *testing.T) {
	today := calendar.NewDate(2024, time.March, 10)

	assert.Equal(t, 7, calendar.DaysUntil(calendar.NewDate(2024, time.March, 17), today))
	assert.Equal(t, 0, calendar.DaysUntil(today, today))
	assert.Equal(t, -3, calendar.DaysUntil(calendar.NewDate(2024, time.March, 7), today))
}

func TestWeekStart_IsMonday(t *testing.T) {
	sunday := calendar.NewDate(2024, time.March, 17)
	monday := calendar.NewDate(2024, time.March, 11)

	assert.Equal(t, monday, calendar.WeekStart(sunday))
	assert.Equal(t, monday, calendar.WeekStart(monday))
}

func TestDate_ScanFormats(t *testing.T) {
	want := calendar.NewDate(2024, time.March, 5)

	for _, src := range []any{
		"2024-03-05",
		[]byte("2024-03-05"),
		"2024-03-05 00:00:00+00:00",
		time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
	} {
		var d calendar.Date
		require.NoError(t, d.Scan(src), "scan %T", src)
		assert.Equal(t, want, d)
	}

	var d calendar.Date
	assert.Error(t, d.Scan(42))
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Start calendar.Date  `json:"start"`
		End   *calendar.Date `json:"end"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"start":"2024-01-15","end":null}`), &payload))
	assert.Equal(t, calendar.NewDate(2024, time.January, 15), payload.Start)
	assert.Nil(t, payload.End)

	err := json.Unmarshal([]byte(`{"start":"15/01/2024"}`), &payload)
	assert.Error(t, err)
}

func TestToday_UsesClockLocation(t *testing.T) {
	// GIVEN: 23:30 UTC on Mar 9, which is already Mar 10 in Paris
	paris := time.FixedZone("CET", 3600)
	clock := calendar.FixedClock{At: time.Date(2024, time.March, 9, 23, 30, 0, 0, time.UTC).In(paris)}

	// THEN: Today follows the clock's location
	assert.Equal(t, calendar.NewDate(2024, time.March, 10), calendar.Today(clock))
	assert.Equal(t, 0, calendar.StartOfDay(clock).Hour())
}
