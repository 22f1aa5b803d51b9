package journal

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// fakeAccounts implements AccountReader for testing.
type fakeAccounts map[int64]model.Account

func (f fakeAccounts) Account(_ context.Context, id int64) (model.Account, error) {
	a, ok := f[id]
	if !ok {
		return model.Account{}, store.NotFound("account", id)
	}
	return a, nil
}

const (
	checkingID = 1
	rentID     = 2
	suppliesID = 3
	savingsID  = 4
)

var chart = fakeAccounts{
	checkingID: {ID: checkingID, Name: "Checking", Type: model.AccountTypeAsset, Bank: true},
	rentID:     {ID: rentID, Name: "Rent Expense", Type: model.AccountTypeExpense},
	suppliesID: {ID: suppliesID, Name: "Office Supplies", Type: model.AccountTypeExpense},
	savingsID:  {ID: savingsID, Name: "Savings", Type: model.AccountTypeAsset, Bank: true},
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func create(acct int64, side Side, amount string) LineEdit {
	return LineEdit{Op: OpCreate, AccountID: acct, Side: side, Amount: dec(amount)}
}

func validate(t *testing.T, kind model.EntryKind, in Input) ([]model.Line, error) {
	t.Helper()
	v, err := ValidatorFor(kind)
	require.NoError(t, err)
	return v.Validate(context.Background(), chart, in)
}

func TestJournal_Balanced(t *testing.T) {
	lines, err := validate(t, model.KindJournal, Input{Edits: []LineEdit{
		create(rentID, SideDebit, "70.00"),
		create(suppliesID, SideDebit, "30.00"),
		create(checkingID, SideCredit, "100.00"),
	}})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.True(t, model.SumDeltas(lines).IsZero())
	assert.True(t, lines[0].Delta.Equal(dec("-70")))
	assert.True(t, lines[2].Delta.Equal(dec("100")))
}

func TestJournal_Unbalanced(t *testing.T) {
	_, err := validate(t, model.KindJournal, Input{Edits: []LineEdit{
		create(rentID, SideDebit, "100.00"),
		create(checkingID, SideCredit, "90.00"),
	}})
	var ue *UnbalancedEntryError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.Imbalance.Equal(dec("-10")))
	assert.True(t, ue.Debits.Equal(dec("100")))
	assert.True(t, ue.Credits.Equal(dec("90")))
	assert.Contains(t, err.Error(), "unbalanced by -10.00")
}

func TestJournal_TooFewLines(t *testing.T) {
	_, err := validate(t, model.KindJournal, Input{Edits: []LineEdit{
		create(rentID, SideDebit, "100.00"),
		{Op: OpCreate}, // blank row is pruned
	}})
	var ee *EmptyEntryError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 1, ee.Lines)
}

func TestJournal_DeleteLeavesTooFew(t *testing.T) {
	existing := []model.Line{
		{ID: 10, AccountID: rentID, Delta: dec("-5")},
		{ID: 11, AccountID: checkingID, Delta: dec("5")},
	}
	_, err := validate(t, model.KindJournal, Input{Existing: existing, Edits: []LineEdit{
		{Op: OpDelete, LineID: 10},
	}})
	var ee *EmptyEntryError
	assert.ErrorAs(t, err, &ee)
}

func TestJournal_UpdateKeepsLineID(t *testing.T) {
	existing := []model.Line{
		{ID: 10, AccountID: rentID, Delta: dec("-5")},
		{ID: 11, AccountID: checkingID, Delta: dec("5")},
	}
	lines, err := validate(t, model.KindJournal, Input{Existing: existing, Edits: []LineEdit{
		{Op: OpUpdate, LineID: 10, AccountID: rentID, Side: SideDebit, Amount: dec("8")},
		{Op: OpUpdate, LineID: 11, AccountID: checkingID, Side: SideCredit, Amount: dec("8")},
	}})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, int64(10), lines[0].ID)
	assert.Equal(t, int64(11), lines[1].ID)
	assert.True(t, lines[0].Delta.Equal(dec("-8")))
}

func TestJournal_LineErrors(t *testing.T) {
	existing := []model.Line{{ID: 10, AccountID: rentID, Delta: dec("-5")}}
	tests := []struct {
		name   string
		edit   LineEdit
		reason string
	}{
		{"foreign line", LineEdit{Op: OpUpdate, LineID: 99, AccountID: rentID, Side: SideDebit, Amount: dec("1")}, "does not belong"},
		{"missing account", LineEdit{Op: OpCreate, Side: SideDebit, Amount: dec("1")}, "account is required"},
		{"zero amount", LineEdit{Op: OpCreate, AccountID: rentID, Side: SideDebit}, "must be positive"},
		{"negative amount", create(rentID, SideDebit, "-4"), "must be positive"},
		{"sub-cent amount", create(rentID, SideDebit, "1.005"), "more than 2 decimal places"},
		{"bad side", LineEdit{Op: OpCreate, AccountID: rentID, Side: "sideways", Amount: dec("1")}, "side must be"},
		{"bad op", LineEdit{Op: "merge", LineID: 10}, "unknown operation"},
		{"create with ID", LineEdit{Op: OpCreate, LineID: 10, AccountID: rentID, Side: SideDebit, Amount: dec("1")}, "must not carry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validate(t, model.KindJournal, Input{Existing: existing, Edits: []LineEdit{tt.edit}})
			var le *LineError
			require.ErrorAs(t, err, &le)
			assert.Contains(t, le.Reason, tt.reason)
		})
	}
}

func TestJournal_DuplicateEdit(t *testing.T) {
	existing := []model.Line{{ID: 10, AccountID: rentID, Delta: dec("-5")}}
	_, err := validate(t, model.KindJournal, Input{Existing: existing, Edits: []LineEdit{
		{Op: OpDelete, LineID: 10},
		{Op: OpDelete, LineID: 10},
	}})
	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 1, le.Index)
}

func TestJournal_UnknownAccount(t *testing.T) {
	_, err := validate(t, model.KindJournal, Input{Edits: []LineEdit{
		create(rentID, SideDebit, "1"),
		create(404, SideCredit, "1"),
	}})
	assert.True(t, store.IsNotFound(err))
}

func TestBankSpend_MainIsNegatedDetailSum(t *testing.T) {
	lines, err := validate(t, model.KindBankSpend, Input{
		BankAccountID: checkingID,
		Memo:          "Staples",
		Edits: []LineEdit{
			{Op: OpCreate, AccountID: suppliesID, Amount: dec("50.00"), Detail: "paper"},
		},
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	main := lines[0]
	assert.True(t, main.Main)
	assert.Equal(t, int64(checkingID), main.AccountID)
	assert.Equal(t, "Staples", main.Detail)
	assert.True(t, main.Delta.Equal(dec("-50")))
	assert.True(t, lines[1].Delta.Equal(dec("50")))
	assert.True(t, model.SumDeltas(lines).IsZero())
}

func TestBankReceive_RaisesBank(t *testing.T) {
	lines, err := validate(t, model.KindBankReceive, Input{
		BankAccountID: checkingID,
		Edits: []LineEdit{
			{Op: OpCreate, AccountID: rentID, Amount: dec("20")},
			{Op: OpCreate, AccountID: suppliesID, Amount: dec("5.50")},
		},
	})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.True(t, lines[0].Delta.Equal(dec("25.50")))
	assert.True(t, model.SumDeltas(lines).IsZero())
}

func TestBank_EditReusesMainLine(t *testing.T) {
	existing := []model.Line{
		{ID: 20, AccountID: checkingID, Delta: dec("-50"), Main: true},
		{ID: 21, AccountID: suppliesID, Delta: dec("50")},
	}
	lines, err := validate(t, model.KindBankSpend, Input{
		Existing:      existing,
		BankAccountID: checkingID,
		Edits: []LineEdit{
			{Op: OpUpdate, LineID: 21, AccountID: suppliesID, Amount: dec("30")},
			{Op: OpCreate, AccountID: rentID, Amount: dec("12")},
		},
	})
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, int64(20), lines[0].ID)
	assert.True(t, lines[0].Delta.Equal(dec("-42")))
	assert.Equal(t, int64(21), lines[1].ID)
	assert.Zero(t, lines[2].ID)
}

func TestBank_MainLineCannotBeEdited(t *testing.T) {
	existing := []model.Line{
		{ID: 20, AccountID: checkingID, Delta: dec("-50"), Main: true},
		{ID: 21, AccountID: suppliesID, Delta: dec("50")},
	}
	_, err := validate(t, model.KindBankSpend, Input{
		Existing:      existing,
		BankAccountID: checkingID,
		Edits:         []LineEdit{{Op: OpDelete, LineID: 20}},
	})
	var le *LineError
	assert.ErrorAs(t, err, &le)
}

func TestBank_NoDetails(t *testing.T) {
	existing := []model.Line{
		{ID: 20, AccountID: checkingID, Delta: dec("-50"), Main: true},
		{ID: 21, AccountID: suppliesID, Delta: dec("50")},
	}
	_, err := validate(t, model.KindBankSpend, Input{
		Existing:      existing,
		BankAccountID: checkingID,
		Edits:         []LineEdit{{Op: OpDelete, LineID: 21}},
	})
	var nd *NoDetailLinesError
	require.ErrorAs(t, err, &nd)
	assert.Equal(t, model.KindBankSpend, nd.Kind)
}

func TestBank_AccountChecks(t *testing.T) {
	t.Run("main must be a bank account", func(t *testing.T) {
		_, err := validate(t, model.KindBankReceive, Input{
			BankAccountID: rentID,
			Edits:         []LineEdit{{Op: OpCreate, AccountID: suppliesID, Amount: dec("1")}},
		})
		var be *BankAccountError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, int64(rentID), be.AccountID)
	})
	t.Run("detail must not be a bank account", func(t *testing.T) {
		_, err := validate(t, model.KindBankSpend, Input{
			BankAccountID: checkingID,
			Edits:         []LineEdit{{Op: OpCreate, AccountID: savingsID, Amount: dec("1")}},
		})
		var be *BankAccountError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, int64(savingsID), be.AccountID)
	})
	t.Run("missing bank account", func(t *testing.T) {
		_, err := validate(t, model.KindBankSpend, Input{
			Edits: []LineEdit{{Op: OpCreate, AccountID: suppliesID, Amount: dec("1")}},
		})
		assert.True(t, store.IsNotFound(err))
	})
}

func TestValidatorFor_UnknownKind(t *testing.T) {
	_, err := ValidatorFor("XX")
	assert.Error(t, err)
}
