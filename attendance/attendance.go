// Package attendance records daily presence and summarizes it per day,
// week or month.
package attendance

import (
	"context"
	"regexp"
	"sort"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
)

// Period is the grouping of a report.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// DefaultLookbackDays is the report range when no start is given.
const DefaultLookbackDays = 30

var clockTime = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Entry is one student's attendance for the recorded day.
type Entry struct {
	StudentID     uint
	Status        core.AttendanceStatus // defaults to absent
	ArrivalTime   string                // HH:MM
	DepartureTime string                // HH:MM
	Notes         string
}

// Row is one bucket of a report. Key is the day, the Monday of the week,
// or the first of the month.
type Row struct {
	Key     calendar.Date
	Total   int
	Present int
	Absent  int
	Excused int
}

// Service records and reports attendance.
type Service struct {
	Store core.TxStore
	Clock calendar.Clock
}

func NewService(store core.TxStore, clock calendar.Clock) *Service {
	return &Service{Store: store, Clock: clock}
}

// Record stores every entry for date, replacing what was recorded for the
// same student and day. All entries are written or none.
func (s *Service) Record(ctx context.Context, orgID uint, date calendar.Date, entries []Entry) (int, error) {
	if date.IsZero() {
		return 0, core.Invalid("date", "is required")
	}
	for i := range entries {
		if err := entries[i].normalize(); err != nil {
			return 0, err
		}
	}

	err := s.Store.WithTx(ctx, func(st core.Store) error {
		for _, e := range entries {
			if _, err := st.GetStudent(ctx, orgID, e.StudentID); err != nil {
				return err
			}
			row := &core.Attendance{
				OrganizationID: orgID,
				StudentID:      e.StudentID,
				Date:           date,
				Status:         e.Status,
				ArrivalTime:    e.ArrivalTime,
				DepartureTime:  e.DepartureTime,
				Notes:          e.Notes,
			}
			if err := st.UpsertAttendance(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (e *Entry) normalize() error {
	if e.Status == "" {
		e.Status = core.AttendanceAbsent
	}
	if !e.Status.Valid() {
		return core.Invalid("status", "unknown attendance status %q", e.Status)
	}
	for field, v := range map[string]string{"arrival_time": e.ArrivalTime, "departure_time": e.DepartureTime} {
		if v != "" && !clockTime.MatchString(v) {
			return core.Invalid(field, "must be HH:MM, got %q", v)
		}
	}
	return nil
}

// Report counts attendance in [from, to] grouped by period. Nil bounds
// default to the last DefaultLookbackDays days up to today.
func (s *Service) Report(ctx context.Context, orgID uint, from, to *calendar.Date, period Period) ([]Row, error) {
	if period == "" {
		period = Daily
	}
	bucket, err := bucketFunc(period)
	if err != nil {
		return nil, err
	}

	today := calendar.Today(s.Clock)
	end := today
	if to != nil {
		end = *to
	}
	start := today.AddDays(-DefaultLookbackDays)
	if from != nil {
		start = *from
	}
	if end.Before(start) {
		return nil, core.Invalid("end", "must not be before start")
	}

	rows, err := s.Store.AttendanceBetween(ctx, orgID, start, end)
	if err != nil {
		return nil, err
	}

	buckets := make(map[calendar.Date]*Row)
	for _, a := range rows {
		key := bucket(a.Date)
		r, ok := buckets[key]
		if !ok {
			r = &Row{Key: key}
			buckets[key] = r
		}
		r.Total++
		switch a.Status {
		case core.AttendancePresent:
			r.Present++
		case core.AttendanceAbsent:
			r.Absent++
		case core.AttendanceExcused:
			r.Excused++
		}
	}

	out := make([]Row, 0, len(buckets))
	for _, r := range buckets {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Before(out[j].Key) })
	return out, nil
}

func bucketFunc(p Period) (func(calendar.Date) calendar.Date, error) {
	switch p {
	case Daily:
		return func(d calendar.Date) calendar.Date { return d }, nil
	case Weekly:
		return calendar.WeekStart, nil
	case Monthly:
		return calendar.MonthStart, nil
	default:
		return nil, core.Invalid("period", "must be daily, weekly or monthly, got %q", p)
	}
}
