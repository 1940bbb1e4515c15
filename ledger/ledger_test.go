package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garderieflow/backoffice/calendar"
	"github.com/garderieflow/backoffice/core"
	"github.com/garderieflow/backoffice/store/sqlstore"
)

type fixture struct {
	store  *sqlstore.Store
	ledger *Ledger
	orgID  uint
	rent   uint
	food   uint
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlstore.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	org := core.Organization{CompanyName: "Les Petits Loups"}
	require.NoError(t, store.CreateOrganization(context.Background(), &org))

	f := &fixture{
		store:  store,
		ledger: New(store, calendar.FixedClock{At: time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)}),
		orgID:  org.ID,
	}
	cats, err := store.Categories(context.Background(), org.ID)
	require.NoError(t, err)
	for _, c := range cats {
		switch c.Label {
		case "Rent":
			f.rent = c.ID
		case "Food":
			f.food = c.ID
		}
	}
	return f
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRecordGain_DefaultsToToday(t *testing.T) {
	f := setup(t)

	tx, err := f.ledger.RecordGain(context.Background(), f.orgID, Entry{
		Amount:        amount("250.50"),
		PaymentMethod: core.PaymentCash,
	})

	require.NoError(t, err)
	assert.Equal(t, core.TxGain, tx.Type)
	assert.True(t, tx.Amount.Equal(amount("250.50")))
	assert.Equal(t, "2024-03-15", tx.Date.String())
}

func TestRecordGain_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ledger.RecordGain(ctx, f.orgID, Entry{Amount: decimal.Zero, PaymentMethod: core.PaymentCash})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.ledger.RecordGain(ctx, f.orgID, Entry{Amount: amount("-5"), PaymentMethod: core.PaymentCash})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = f.ledger.RecordGain(ctx, f.orgID, Entry{Amount: amount("5"), PaymentMethod: "cheque"})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payment_method", verr.Field)
}

func TestRecordAmounts_RejectSubCent(t *testing.T) {
	// GIVEN: Amounts that would round to a different value, or to zero
	f := setup(t)
	ctx := context.Background()

	// WHEN: Booking them as a gain and as an expense
	_, gainErr := f.ledger.RecordGain(ctx, f.orgID, Entry{Amount: amount("0.004"), PaymentMethod: core.PaymentCash})
	_, expenseErr := f.ledger.RecordExpense(ctx, f.orgID, Entry{Amount: amount("12.345"), PaymentMethod: core.PaymentCash, CategoryID: &f.food})

	// THEN: Both are refused on the amount field and nothing is stored
	for _, err := range []error{gainErr, expenseErr} {
		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "amount", verr.Field)
	}
	txs, err := f.ledger.Transactions(ctx, f.orgID, core.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)

	// Trailing zeros are still two places
	_, err = f.ledger.RecordGain(ctx, f.orgID, Entry{Amount: amount("10.500"), PaymentMethod: core.PaymentCash})
	assert.NoError(t, err)
}

func TestRecordExpense_StoredNegativeWhateverTheSign(t *testing.T) {
	// GIVEN: Two expenses, one entered positive and one negative
	f := setup(t)
	ctx := context.Background()

	// WHEN: Recording both
	a, err := f.ledger.RecordExpense(ctx, f.orgID, Entry{Amount: amount("100"), PaymentMethod: core.PaymentTransfer, CategoryID: &f.rent})
	require.NoError(t, err)
	b, err := f.ledger.RecordExpense(ctx, f.orgID, Entry{Amount: amount("-40.25"), PaymentMethod: core.PaymentCash, CategoryID: &f.food})
	require.NoError(t, err)

	// THEN: Both are stored negative
	assert.True(t, a.Amount.Equal(amount("-100")))
	assert.True(t, b.Amount.Equal(amount("-40.25")))
	assert.Equal(t, core.TxExpense, a.Type)
}

func TestRecordExpense_CategoryRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ledger.RecordExpense(ctx, f.orgID, Entry{Amount: amount("10"), PaymentMethod: core.PaymentCash})
	assert.ErrorIs(t, err, core.ErrValidation, "category is required")

	missing := uint(9999)
	_, err = f.ledger.RecordExpense(ctx, f.orgID, Entry{Amount: amount("10"), PaymentMethod: core.PaymentCash, CategoryID: &missing})
	assert.True(t, core.IsNotFound(err))

	_, err = f.ledger.RecordExpense(ctx, f.orgID, Entry{Amount: decimal.Zero, PaymentMethod: core.PaymentCash, CategoryID: &f.rent})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRecordExpense_CategoryOfAnotherOrganization(t *testing.T) {
	f := setup(t)
	other := core.Organization{CompanyName: "Other"}
	require.NoError(t, f.store.CreateOrganization(context.Background(), &other))

	_, err := f.ledger.RecordExpense(context.Background(), other.ID, Entry{
		Amount:        amount("10"),
		PaymentMethod: core.PaymentCash,
		CategoryID:    &f.rent,
	})
	assert.True(t, core.IsNotFound(err))
}

func TestBalance_IsExactSum(t *testing.T) {
	// GIVEN: Amounts that do not add up exactly in binary floating point
	f := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.ledger.RecordGain(ctx, f.orgID, Entry{Amount: amount("0.10"), PaymentMethod: core.PaymentCash})
		require.NoError(t, err)
	}
	_, err := f.ledger.RecordExpense(ctx, f.orgID, Entry{Amount: amount("0.20"), PaymentMethod: core.PaymentCash, CategoryID: &f.food})
	require.NoError(t, err)

	// WHEN: Computing the balance
	balance, err := f.ledger.Balance(ctx, f.orgID)

	// THEN: 0.30 - 0.20
	require.NoError(t, err)
	assert.Equal(t, "0.10", balance.StringFixed(2))
}

func TestBalance_EmptyIsZero(t *testing.T) {
	f := setup(t)

	balance, err := f.ledger.Balance(context.Background(), f.orgID)

	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestExpensesByCategory_MonthOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	march := calendar.NewDate(2024, time.March, 3)
	april := calendar.NewDate(2024, time.April, 1)

	for _, e := range []Entry{
		{Amount: amount("800"), CategoryID: &f.rent, Date: &march},
		{Amount: amount("120.40"), CategoryID: &f.food, Date: &march},
		{Amount: amount("30"), CategoryID: &f.food, Date: &march},
		{Amount: amount("800"), CategoryID: &f.rent, Date: &april},
	} {
		e.PaymentMethod = core.PaymentTransfer
		_, err := f.ledger.RecordExpense(ctx, f.orgID, e)
		require.NoError(t, err)
	}

	byCategory, err := f.ledger.ExpensesByCategory(ctx, f.orgID, 2024, 3)

	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	assert.Equal(t, "-800.00", byCategory["Rent"].StringFixed(2))
	assert.Equal(t, "-150.40", byCategory["Food"].StringFixed(2))
	assert.Equal(t, "-950.40", Total(byCategory).StringFixed(2))
}

func TestExpensesByCategory_InvalidMonth(t *testing.T) {
	f := setup(t)

	_, err := f.ledger.ExpensesByCategory(context.Background(), f.orgID, 2024, 13)

	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestTransactions_UnknownTypeRejected(t *testing.T) {
	f := setup(t)

	_, err := f.ledger.Transactions(context.Background(), f.orgID, core.TransactionFilter{Type: "refund"})

	assert.ErrorIs(t, err, core.ErrValidation)
}
