/*
report.go - Period reports

PURPOSE:
  Read-only aggregation over the ledger and enrollments: monthly and
  annual profit/loss, expenses per category, and occupancy.

MONEY:
  gains          = sum of gain transactions in the period
  total_expenses = sum of categorised expenses in the period (<= 0)
  profit_loss    = gains + total_expenses

OCCUPANCY:
  A month's count is the number of distinct students with an active or
  renewed enrollment that starts on or before the 1st + 31 days and ends
  on or after the 1st (or never). The annual figure is the mean of the
  twelve monthly counts.

SEE ALSO:
  - calendar/window.go: OccupancyBounds
  - dashboard.go: Current-state summary
  - export.go: Spreadsheet export of the annual report
*/
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/ledger"
)

// Monthly is the report for one calendar month.
type Monthly struct {
	Year               int
	Month              time.Month
	Gains              decimal.Decimal
	ExpensesByCategory map[string]decimal.Decimal
	TotalExpenses      decimal.Decimal
	ProfitLoss         decimal.Decimal
	ActiveStudents     int
}

// Annual is the report for one calendar year.
type Annual struct {
	Year               int
	Gains              decimal.Decimal
	ExpensesByCategory map[string]decimal.Decimal
	TotalExpenses      decimal.Decimal
	ProfitLoss         decimal.Decimal
	AvgActiveStudents  decimal.Decimal
	Months             []Monthly
}

// Aggregator builds reports.
type Aggregator struct {
	Store  core.Store
	Ledger *ledger.Ledger
	Clock  calendar.Clock
}

func NewAggregator(store core.Store, l *ledger.Ledger, clock calendar.Clock) *Aggregator {
	return &Aggregator{Store: store, Ledger: l, Clock: clock}
}

// MonthlyReport builds the report for year/month.
func (a *Aggregator) MonthlyReport(ctx context.Context, orgID uint, year, month int) (*Monthly, error) {
	if err := ledger.ValidateMonth(year, month); err != nil {
		return nil, err
	}
	m := time.Month(month)
	window := calendar.MonthWindow(year, m)

	gains, byCategory, err := a.money(ctx, orgID, window)
	if err != nil {
		return nil, err
	}
	active, err := a.occupancy(ctx, orgID, year, m)
	if err != nil {
		return nil, err
	}

	total := ledger.Total(byCategory)
	return &Monthly{
		Year:               year,
		Month:              m,
		Gains:              gains,
		ExpensesByCategory: byCategory,
		TotalExpenses:      total,
		ProfitLoss:         gains.Add(total),
		ActiveStudents:     active,
	}, nil
}

// AnnualReport builds the report for a year, including its twelve months.
func (a *Aggregator) AnnualReport(ctx context.Context, orgID uint, year int) (*Annual, error) {
	if err := ledger.ValidateYear(year); err != nil {
		return nil, err
	}

	gains, byCategory, err := a.money(ctx, orgID, calendar.YearWindow(year))
	if err != nil {
		return nil, err
	}

	months := make([]Monthly, 0, 12)
	occupied := 0
	for m := 1; m <= 12; m++ {
		monthly, err := a.MonthlyReport(ctx, orgID, year, m)
		if err != nil {
			return nil, err
		}
		occupied += monthly.ActiveStudents
		months = append(months, *monthly)
	}

	total := ledger.Total(byCategory)
	return &Annual{
		Year:               year,
		Gains:              gains,
		ExpensesByCategory: byCategory,
		TotalExpenses:      total,
		ProfitLoss:         gains.Add(total),
		AvgActiveStudents:  decimal.NewFromInt(int64(occupied)).Div(decimal.NewFromInt(12)).Round(2),
		Months:             months,
	}, nil
}

func (a *Aggregator) money(ctx context.Context, orgID uint, w calendar.Window) (decimal.Decimal, map[string]decimal.Decimal, error) {
	gains, err := a.Ledger.GainsIn(ctx, orgID, w)
	if err != nil {
		return decimal.Zero, nil, err
	}
	byCategory, err := a.Ledger.ExpensesByCategoryIn(ctx, orgID, w)
	if err != nil {
		return decimal.Zero, nil, err
	}
	return gains, byCategory, nil
}

func (a *Aggregator) occupancy(ctx context.Context, orgID uint, year int, month time.Month) (int, error) {
	from, through := calendar.OccupancyBounds(year, month)
	return a.Store.CountOccupiedStudents(ctx, orgID, from, through)
}
