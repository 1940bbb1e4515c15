/*
notifier.go - Expiration notices

PURPOSE:
  Finds active enrollments whose end date is exactly N days away for one
  of the configured thresholds (default 0, 1, 3 and 7 days) and stamps
  notified_at so the same enrollment is not reported twice on one day.

IDEMPOTENCY:
  An enrollment already stamped at or after the start of today is skipped.
  Running the check again the same day returns no notices; running it the
  next day can report the enrollment again at the next threshold.

CONCURRENCY:
  The organization row is locked for the whole run, so two concurrent runs
  for the same organization are serialized and cannot both stamp the same
  enrollment.

DELIVERY:
  Notices are returned and logged. Sending them is left to the caller.
*/
package enrollment

import (
	"context"
	"log"
	"sort"

	"github.com/google/uuid"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
)

// DefaultThresholds are the days-left values that trigger a notice.
var DefaultThresholds = []int{0, 1, 3, 7}

// Notice reports one enrollment nearing its end.
type Notice struct {
	EnrollmentID uint
	StudentID    uint
	EndDate      calendar.Date
	DaysLeft     int
}

// Run is the outcome of one expiration check.
type Run struct {
	ID             string
	OrganizationID uint
	Day            calendar.Date
	Notices        []Notice
}

// NotifiedIDs returns the enrollment ids stamped by the run.
func (r *Run) NotifiedIDs() []uint {
	ids := make([]uint, 0, len(r.Notices))
	for _, n := range r.Notices {
		ids = append(ids, n.EnrollmentID)
	}
	return ids
}

// Notifier runs expiration checks.
type Notifier struct {
	Store      core.TxStore
	Clock      calendar.Clock
	Thresholds []int
}

func NewNotifier(store core.TxStore, clock calendar.Clock, thresholds []int) *Notifier {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	return &Notifier{Store: store, Clock: clock, Thresholds: thresholds}
}

// CheckExpirations stamps and returns the enrollments due a notice today.
// A nil thresholds slice uses the notifier's configured thresholds.
func (n *Notifier) CheckExpirations(ctx context.Context, orgID uint, thresholds []int) (*Run, error) {
	if thresholds == nil {
		thresholds = n.Thresholds
	}
	due, horizon, err := thresholdSet(thresholds)
	if err != nil {
		return nil, err
	}

	today := calendar.Today(n.Clock)
	startOfDay := calendar.StartOfDay(n.Clock)
	run := &Run{ID: uuid.NewString(), OrganizationID: orgID, Day: today}

	err = n.Store.WithTx(ctx, func(st core.Store) error {
		if err := st.LockOrganization(ctx, orgID); err != nil {
			return err
		}
		candidates, err := st.ExpiringEnrollments(ctx, orgID, today.AddDays(horizon))
		if err != nil {
			return err
		}

		for i := range candidates {
			e := &candidates[i]
			if e.NotifiedAt != nil && !e.NotifiedAt.Before(startOfDay) {
				continue
			}
			daysLeft := calendar.DaysUntil(*e.EndDate, today)
			if !due[daysLeft] {
				continue
			}

			stamped := n.Clock.Now().UTC()
			e.NotifiedAt = &stamped
			if err := st.SaveEnrollment(ctx, e); err != nil {
				return err
			}
			run.Notices = append(run.Notices, Notice{
				EnrollmentID: e.ID,
				StudentID:    e.StudentID,
				EndDate:      *e.EndDate,
				DaysLeft:     daysLeft,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(run.Notices) > 0 {
		log.Printf("[Notifier] Run %s org=%d day=%s: %d enrollment(s) due a notice",
			run.ID, orgID, today, len(run.Notices))
	}
	return run, nil
}

// thresholdSet validates thresholds and returns them as a set plus the
// largest one.
func thresholdSet(thresholds []int) (map[int]bool, int, error) {
	if len(thresholds) == 0 {
		return nil, 0, core.Invalid("thresholds", "at least one threshold is required")
	}
	sorted := append([]int(nil), thresholds...)
	sort.Ints(sorted)
	if sorted[0] < 0 {
		return nil, 0, core.Invalid("thresholds", "must not be negative, got %d", sorted[0])
	}

	set := make(map[int]bool, len(sorted))
	for _, t := range sorted {
		set[t] = true
	}
	return set, sorted[len(sorted)-1], nil
}
