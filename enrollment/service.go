/*
service.go - Enrollment lifecycle

PURPOSE:
  Creates, renews and terminates enrollments, and lets payments create or
  extend them (payment.go). Status changes go through the transition
  table in machine.go.

LIFECYCLE:
  active --payment/renew--> renewed
  active --sweep--> expired --renew--> renewed
  active|renewed|expired --terminate--> terminated (final)

ATOMICITY:
  Every operation that reads then writes runs inside Store.WithTx with the
  rows it depends on locked, so two concurrent requests cannot both act on
  the same stale row.

SEE ALSO:
  - machine.go: Allowed transitions
  - notifier.go: Expiration notices
  - sweep.go: active -> expired
*/
package enrollment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/ledger"
)

// DefaultDurationDays is used when a payment or renewal does not say how
// many days it covers.
const DefaultDurationDays = 30

// Service runs the enrollment operations for any organization.
type Service struct {
	Store  core.TxStore
	Ledger *ledger.Ledger
	Clock  calendar.Clock
}

func NewService(store core.TxStore, l *ledger.Ledger, clock calendar.Clock) *Service {
	return &Service{Store: store, Ledger: l, Clock: clock}
}

func (s *Service) today() calendar.Date {
	return calendar.Today(s.Clock)
}

func (s *Service) now() time.Time {
	return s.Clock.Now().UTC()
}

func durationOrDefault(days int) (int, error) {
	switch {
	case days < 0:
		return 0, core.Invalid("duration_days", "must be positive, got %d", days)
	case days == 0:
		return DefaultDurationDays, nil
	default:
		return days, nil
	}
}

// =============================================================================
// ADD
// =============================================================================

// NewEnrollment describes an enrollment entered by hand.
type NewEnrollment struct {
	StudentID uint
	StartDate calendar.Date
	EndDate   *calendar.Date
	Amount    decimal.Decimal
	Status    core.EnrollmentStatus // defaults to active
}

// AddEnrollment records an enrollment without touching the ledger.
func (s *Service) AddEnrollment(ctx context.Context, orgID uint, in NewEnrollment) (*core.Enrollment, error) {
	if in.StartDate.IsZero() {
		return nil, core.Invalid("start_date", "is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, core.Invalid("end_date", "must not be before start_date")
	}
	if in.Amount.IsNegative() {
		return nil, core.Invalid("amount", "must not be negative")
	}
	if err := ledger.CheckCents(in.Amount); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = core.EnrollmentActive
	}
	if !status.Valid() || status == core.EnrollmentTerminated {
		return nil, core.Invalid("status", "cannot create an enrollment in status %q", status)
	}

	if _, err := s.Store.GetStudent(ctx, orgID, in.StudentID); err != nil {
		return nil, err
	}

	e := &core.Enrollment{
		OrganizationID: orgID,
		StudentID:      in.StudentID,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Amount:         in.Amount.Round(2),
		Status:         status,
	}
	if err := s.Store.CreateEnrollment(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// =============================================================================
// RENEW
// =============================================================================

// Renewal parameters. A nil Amount keeps the previous period's amount.
type Renewal struct {
	DurationDays int
	Amount       *decimal.Decimal
}

// RenewEnrollment marks the enrollment renewed and opens the following
// period, which starts the day after the old end (today when open-ended).
// Returns the new enrollment.
func (s *Service) RenewEnrollment(ctx context.Context, orgID, enrollmentID uint, r Renewal) (*core.Enrollment, error) {
	days, err := durationOrDefault(r.DurationDays)
	if err != nil {
		return nil, err
	}
	if r.Amount != nil {
		if r.Amount.IsNegative() {
			return nil, core.Invalid("amount", "must not be negative")
		}
		if err := ledger.CheckCents(*r.Amount); err != nil {
			return nil, err
		}
	}

	var renewed *core.Enrollment
	err = s.Store.WithTx(ctx, func(st core.Store) error {
		old, err := st.LockEnrollment(ctx, orgID, enrollmentID)
		if err != nil {
			return err
		}
		if err := transition(old, core.EnrollmentRenewed, "renew"); err != nil {
			return err
		}

		start := s.today()
		if old.EndDate != nil {
			start = old.EndDate.AddDays(1)
		}
		end := start.AddDays(days)
		amount := old.Amount
		if r.Amount != nil {
			amount = r.Amount.Round(2)
		}

		if err := st.SaveEnrollment(ctx, old); err != nil {
			return err
		}
		renewed = &core.Enrollment{
			OrganizationID: orgID,
			StudentID:      old.StudentID,
			StartDate:      start,
			EndDate:        &end,
			Amount:         amount,
			Status:         core.EnrollmentActive,
		}
		return st.CreateEnrollment(ctx, renewed)
	})
	if err != nil {
		return nil, err
	}
	return renewed, nil
}

// =============================================================================
// TERMINATE
// =============================================================================

// TerminateEnrollment ends an enrollment for good. Terminating twice is an
// invalid state error.
func (s *Service) TerminateEnrollment(ctx context.Context, orgID, enrollmentID uint) (*core.Enrollment, error) {
	var out *core.Enrollment
	err := s.Store.WithTx(ctx, func(st core.Store) error {
		e, err := st.LockEnrollment(ctx, orgID, enrollmentID)
		if err != nil {
			return err
		}
		if err := transition(e, core.EnrollmentTerminated, "terminate"); err != nil {
			return err
		}
		now := s.now()
		e.TerminatedAt = &now
		if err := st.SaveEnrollment(ctx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) Enrollments(ctx context.Context, orgID uint, filter core.EnrollmentFilter) ([]core.Enrollment, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, core.Invalid("status", "unknown enrollment status %q", filter.Status)
	}
	return s.Store.ListEnrollments(ctx, orgID, filter)
}
