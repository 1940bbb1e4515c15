/*
date.go - Calendar dates for enrollment periods and ledger entries

PURPOSE:
  Enrollment start/end dates, transaction dates and attendance days are
  calendar dates, not instants. Date stores a UTC-midnight time.Time so
  arithmetic never drifts across DST changes or server time zones.

PERSISTENCE:
  Date implements sql.Scanner and driver.Valuer. It is written as the
  ISO string "2006-01-02", which sorts correctly as text in SQLite and
  is accepted as-is by PostgreSQL DATE columns.

JSON:
  Dates travel as "YYYY-MM-DD" strings. A nullable end date is *Date.

SEE ALSO:
  - window.go: Month/year windows and overlap checks
  - clock.go: Injected "now"
*/
package calendar

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the wire and storage format of a Date.
const Layout = "2006-01-02"

// Date is a calendar day without time of day.
type Date struct {
	Time time.Time
}

// NewDate builds a Date. Out-of-range values normalize like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses "YYYY-MM-DD". A full RFC3339 timestamp is also accepted
// and truncated to its date.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(Layout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return DateOf(d.Time.AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.Time.AddDate(0, n, 0)) }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }

// Ptr returns a pointer to a copy of d, for nullable fields.
func (d Date) Ptr() *Date { return &d }

func (d Date) String() string {
	return d.Time.Format(Layout)
}

// DaysBetween returns the whole days from a to b (negative when b is before a).
func DaysBetween(a, b Date) int {
	return int(b.Time.Sub(a.Time).Hours() / 24)
}

// =============================================================================
// DATABASE
// =============================================================================

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("calendar: cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) < len(Layout) {
		return fmt.Errorf("calendar: cannot scan %q into Date", s)
	}
	parsed, err := time.Parse(Layout, s[:len(Layout)])
	if err != nil {
		return fmt.Errorf("calendar: cannot scan %q into Date: %w", s, err)
	}
	*d = DateOf(parsed)
	return nil
}

// GormDataType keeps the column a DATE on every dialect.
func (Date) GormDataType() string {
	return "date"
}

// =============================================================================
// JSON
// =============================================================================

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
