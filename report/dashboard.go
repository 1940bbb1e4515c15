package report

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
)

// UpcomingDays is how far ahead the dashboard looks for enrollments to collect.
const UpcomingDays = 7

// Dashboard is the organization's current state at a glance.
type Dashboard struct {
	Balance          decimal.Decimal
	UpcomingPayments []core.Enrollment
	ActiveStudents   int64
	MonthExpenses    map[string]decimal.Decimal
}

// Dashboard summarizes balance, enrollments ending within UpcomingDays,
// active students and this month's expenses per category.
func (a *Aggregator) Dashboard(ctx context.Context, orgID uint) (*Dashboard, error) {
	today := calendar.Today(a.Clock)
	horizon := today.AddDays(UpcomingDays)

	balance, err := a.Ledger.Balance(ctx, orgID)
	if err != nil {
		return nil, err
	}
	upcoming, err := a.Store.ListEnrollments(ctx, orgID, core.EnrollmentFilter{
		Status:     core.EnrollmentActive,
		EndFrom:    &today,
		EndThrough: &horizon,
	})
	if err != nil {
		return nil, err
	}
	active, err := a.Store.CountStudents(ctx, orgID, core.StudentActive)
	if err != nil {
		return nil, err
	}
	expenses, err := a.Ledger.ExpensesByCategoryIn(ctx, orgID, calendar.MonthWindow(today.Year(), today.Month()))
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Balance:          balance,
		UpcomingPayments: upcoming,
		ActiveStudents:   active,
		MonthExpenses:    expenses,
	}, nil
}
