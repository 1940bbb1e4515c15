/*
ledger.go - Append-only money ledger

PURPOSE:
  Records gains (payments) and expenses as immutable transactions and
  derives balances and per-category totals by summing them. There is no
  stored balance that could drift from the transaction history.

SIGN CONVENTION:
  Gains are stored positive. Expenses are stored as -|amount| whatever
  sign the caller used, so Balance is a plain sum.

TRANSACTIONS:
  Ledger methods run on whatever core.Store they are given. Inside a
  unit of work, Bind the ledger to the transaction-scoped store so the
  append commits or rolls back with the rest.

SEE ALSO:
  - core/store.go: LedgerStore
  - enrollment/payment.go: Records a gain together with the enrollment change
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
)

// Entry is the caller-supplied part of a transaction.
type Entry struct {
	Amount        decimal.Decimal
	PaymentMethod core.PaymentMethod
	Date          *calendar.Date // defaults to today
	StudentID     *uint
	CategoryID    *uint
	Reference     string
	Comment       string
}

// Ledger is the source of truth for all money movements.
type Ledger struct {
	Store core.Store
	Clock calendar.Clock
}

func New(store core.Store, clock calendar.Clock) *Ledger {
	return &Ledger{Store: store, Clock: clock}
}

// Bind returns a ledger writing through store, typically a transaction-scoped one.
func (l *Ledger) Bind(store core.Store) *Ledger {
	return &Ledger{Store: store, Clock: l.Clock}
}

// =============================================================================
// WRITES
// =============================================================================

// RecordGain appends a positive transaction.
func (l *Ledger) RecordGain(ctx context.Context, orgID uint, e Entry) (*core.Transaction, error) {
	if !e.Amount.IsPositive() {
		return nil, core.Invalid("amount", "must be greater than zero")
	}
	if err := CheckCents(e.Amount); err != nil {
		return nil, err
	}
	if err := validateMethod(e.PaymentMethod); err != nil {
		return nil, err
	}

	tx := l.newTransaction(orgID, core.TxGain, e)
	tx.Amount = e.Amount.Round(2)
	if err := l.Store.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// RecordExpense appends -|amount| under a category owned by the organization.
func (l *Ledger) RecordExpense(ctx context.Context, orgID uint, e Entry) (*core.Transaction, error) {
	if e.Amount.IsZero() {
		return nil, core.Invalid("amount", "must not be zero")
	}
	if err := CheckCents(e.Amount); err != nil {
		return nil, err
	}
	if err := validateMethod(e.PaymentMethod); err != nil {
		return nil, err
	}
	if e.CategoryID == nil {
		return nil, core.Invalid("category_id", "is required for an expense")
	}
	if _, err := l.Store.GetCategory(ctx, orgID, *e.CategoryID); err != nil {
		return nil, err
	}

	tx := l.newTransaction(orgID, core.TxExpense, e)
	tx.Amount = e.Amount.Abs().Neg().Round(2)
	if err := l.Store.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (l *Ledger) newTransaction(orgID uint, typ core.TransactionType, e Entry) *core.Transaction {
	date := calendar.Today(l.Clock)
	if e.Date != nil {
		date = *e.Date
	}
	return &core.Transaction{
		OrganizationID: orgID,
		StudentID:      e.StudentID,
		CategoryID:     e.CategoryID,
		Date:           date,
		Type:           typ,
		PaymentMethod:  e.PaymentMethod,
		Reference:      e.Reference,
		Comment:        e.Comment,
	}
}

// CheckCents rejects amounts with more than two decimal places. Rounding
// them would store a different amount than the one entered, or zero.
func CheckCents(a decimal.Decimal) error {
	if !a.Equal(a.Round(2)) {
		return core.Invalid("amount", "must have at most 2 decimal places, got %s", a)
	}
	return nil
}

func validateMethod(m core.PaymentMethod) error {
	if !m.Valid() {
		return core.Invalid("payment_method", "unknown payment method %q", m)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Balance is the sum of every transaction amount, zero when there are none.
func (l *Ledger) Balance(ctx context.Context, orgID uint) (decimal.Decimal, error) {
	txs, err := l.Store.Transactions(ctx, orgID, core.TransactionFilter{})
	if err != nil {
		return decimal.Zero, err
	}
	return Sum(txs), nil
}

// GainsIn sums gains dated inside w.
func (l *Ledger) GainsIn(ctx context.Context, orgID uint, w calendar.Window) (decimal.Decimal, error) {
	last := w.Last()
	txs, err := l.Store.Transactions(ctx, orgID, core.TransactionFilter{
		Type: core.TxGain,
		From: &w.Start,
		To:   &last,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return Sum(txs), nil
}

// ExpensesByCategory totals the month's expenses per category label.
// Categories without expenses are absent; uncategorised expenses are not listed.
func (l *Ledger) ExpensesByCategory(ctx context.Context, orgID uint, year, month int) (map[string]decimal.Decimal, error) {
	if err := ValidateMonth(year, month); err != nil {
		return nil, err
	}
	return l.ExpensesByCategoryIn(ctx, orgID, calendar.MonthWindow(year, time.Month(month)))
}

// ExpensesByCategoryIn totals expenses inside w per category label.
func (l *Ledger) ExpensesByCategoryIn(ctx context.Context, orgID uint, w calendar.Window) (map[string]decimal.Decimal, error) {
	lines, err := l.Store.ExpenseLines(ctx, orgID, w)
	if err != nil {
		return nil, err
	}
	out := make(map[string]decimal.Decimal)
	for _, line := range lines {
		out[line.Label] = out[line.Label].Add(line.Amount)
	}
	return out, nil
}

// Transactions lists transactions matching filter, newest first.
func (l *Ledger) Transactions(ctx context.Context, orgID uint, filter core.TransactionFilter) ([]core.Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, core.Invalid("type", "unknown transaction type %q", filter.Type)
	}
	return l.Store.Transactions(ctx, orgID, filter)
}

// =============================================================================
// HELPERS
// =============================================================================

// Sum adds transaction amounts exactly.
func Sum(txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}

// Total adds a category map's values.
func Total(byCategory map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range byCategory {
		total = total.Add(v)
	}
	return total
}

// ValidateMonth rejects months outside 1..12 and years outside 1..9999.
func ValidateMonth(year, month int) error {
	if err := ValidateYear(year); err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return core.Invalid("month", "must be between 1 and 12, got %d", month)
	}
	return nil
}

func ValidateYear(year int) error {
	if year < 1 || year > 9999 {
		return core.Invalid("year", "must be between 1 and 9999, got %d", year)
	}
	return nil
}
