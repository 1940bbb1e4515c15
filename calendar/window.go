package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// WINDOW - Half-open date range [Start, End)
// =============================================================================

// Window is a half-open range of days: Start is included, End is not.
type Window struct {
	Start Date
	End   Date
}

// Contains reports whether d falls inside the window.
func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.Start) && d.Before(w.End)
}

// Days returns the number of days covered.
func (w Window) Days() int {
	return DaysBetween(w.Start, w.End)
}

// Last returns the last included day.
func (w Window) Last() Date {
	return w.End.AddDays(-1)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start, w.End)
}

// MonthWindow returns [first of month, first of next month).
func MonthWindow(year int, month time.Month) Window {
	start := NewDate(year, month, 1)
	return Window{Start: start, End: start.AddMonths(1)}
}

// YearWindow returns [Jan 1, Jan 1 of next year).
func YearWindow(year int) Window {
	return Window{Start: NewDate(year, time.January, 1), End: NewDate(year+1, time.January, 1)}
}

// OccupancyDays is how far past the first of a month the occupancy count
// looks for enrollments that start in that month. It is a fixed 31 days
// regardless of month length, so an enrollment starting on the 1st of the
// following month is counted too. Reports depend on this exact value.
const OccupancyDays = 31

// OccupancyBounds returns the inclusive bounds used to decide whether an
// enrollment occupied a place during a month.
func OccupancyBounds(year int, month time.Month) (from, through Date) {
	from = NewDate(year, month, 1)
	return from, from.AddDays(OccupancyDays)
}

// Overlaps reports whether an enrollment [start, end] touches [from, through].
// A nil end means open-ended.
func Overlaps(start Date, end *Date, from, through Date) bool {
	if start.After(through) {
		return false
	}
	return end == nil || end.AfterOrEqual(from)
}

// =============================================================================
// PERIOD ARITHMETIC
// =============================================================================

// Extend pushes an end date forward by days. When there is no end date yet
// the extension starts from today.
func Extend(end *Date, days int, today Date) Date {
	base := today
	if end != nil {
		base = *end
	}
	return base.AddDays(days)
}

// DaysUntil returns end - today in days. Negative once end has passed.
func DaysUntil(end, today Date) int {
	return DaysBetween(today, end)
}

// WeekStart returns the Monday of d's ISO week.
func WeekStart(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// MonthStart returns the first day of d's month.
func MonthStart(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1)
}
