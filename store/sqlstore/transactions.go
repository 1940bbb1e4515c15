package sqlstore

import (
	"context"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
)

// =============================================================================
// LEDGER STORE (core.LedgerStore interface)
// =============================================================================

// AppendTransaction persists a transaction. This is the only write the
// ledger performs.
func (s *Store) AppendTransaction(ctx context.Context, tx *core.Transaction) error {
	return translate(s.conn(ctx).Create(tx).Error)
}

func (s *Store) Transactions(ctx context.Context, orgID uint, f core.TransactionFilter) ([]core.Transaction, error) {
	q := s.conn(ctx).Where("organization_id = ?", orgID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.StudentID != nil {
		q = q.Where("student_id = ?", *f.StudentID)
	}
	if f.From != nil {
		q = q.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("date <= ?", *f.To)
	}

	var out []core.Transaction
	if err := q.Order("date DESC, id DESC").Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (s *Store) ExpenseLines(ctx context.Context, orgID uint, w calendar.Window) ([]core.ExpenseLine, error) {
	var out []core.ExpenseLine
	err := s.conn(ctx).
		Table("transactions AS t").
		Select("c.label AS label, t.amount AS amount").
		Joins("JOIN transaction_categories AS c ON c.id = t.category_id").
		Where("t.organization_id = ? AND t.type = ?", orgID, core.TxExpense).
		Where("t.date >= ? AND t.date < ?", w.Start, w.End).
		Order("c.label, t.id").
		Scan(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}
