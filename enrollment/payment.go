package enrollment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/ledger"
)

// Payment is a tuition payment for one student.
type Payment struct {
	StudentID     uint
	Amount        decimal.Decimal
	PaymentMethod core.PaymentMethod
	Date          *calendar.Date // defaults to today
	DurationDays  int            // defaults to DefaultDurationDays
	Reference     string
	Comment       string
}

// PaymentResult is what a payment changed.
type PaymentResult struct {
	Transaction *core.Transaction
	Enrollment  *core.Enrollment
	Created     bool // true when a new enrollment was opened
}

// RecordPayment books the payment as a gain and, in the same database
// transaction, extends the student's current enrollment or opens a new one.
//
// The student row is locked first so concurrent payments for the same
// student apply one after the other and each extension sees the previous one.
// An open-ended current enrollment keeps its null end date and is only
// marked renewed.
func (s *Service) RecordPayment(ctx context.Context, orgID uint, p Payment) (*PaymentResult, error) {
	if !p.Amount.IsPositive() {
		return nil, core.Invalid("amount", "must be greater than zero")
	}
	if err := ledger.CheckCents(p.Amount); err != nil {
		return nil, err
	}
	if !p.PaymentMethod.Valid() {
		return nil, core.Invalid("payment_method", "unknown payment method %q", p.PaymentMethod)
	}
	days, err := durationOrDefault(p.DurationDays)
	if err != nil {
		return nil, err
	}
	date := s.today()
	if p.Date != nil {
		date = *p.Date
	}

	result := &PaymentResult{}
	err = s.Store.WithTx(ctx, func(st core.Store) error {
		if _, err := st.LockStudent(ctx, orgID, p.StudentID); err != nil {
			return err
		}

		studentID := p.StudentID
		tx, err := s.Ledger.Bind(st).RecordGain(ctx, orgID, ledger.Entry{
			Amount:        p.Amount,
			PaymentMethod: p.PaymentMethod,
			Date:          &date,
			StudentID:     &studentID,
			Reference:     p.Reference,
			Comment:       p.Comment,
		})
		if err != nil {
			return err
		}
		result.Transaction = tx

		current, err := st.CurrentEnrollment(ctx, orgID, p.StudentID)
		if err != nil {
			return err
		}

		if current != nil {
			if current.EndDate != nil {
				end := calendar.Extend(current.EndDate, days, date)
				current.EndDate = &end
			}
			if err := transition(current, core.EnrollmentRenewed, "extend"); err != nil {
				return err
			}
			result.Enrollment = current
			return st.SaveEnrollment(ctx, current)
		}

		end := date.AddDays(days)
		created := &core.Enrollment{
			OrganizationID: orgID,
			StudentID:      p.StudentID,
			StartDate:      date,
			EndDate:        &end,
			Amount:         p.Amount.Round(2),
			Status:         core.EnrollmentActive,
		}
		if err := st.CreateEnrollment(ctx, created); err != nil {
			return err
		}
		result.Enrollment = created
		result.Created = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
