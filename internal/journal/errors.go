package journal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// UnbalancedEntryError reports an entry whose lines do not sum to zero.
type UnbalancedEntryError struct {
	Imbalance decimal.Decimal // signed sum of all surviving lines
	Debits    decimal.Decimal
	Credits   decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("entry is unbalanced by %s: debits (%s) != credits (%s)",
		e.Imbalance.StringFixed(2), e.Debits.StringFixed(2), e.Credits.StringFixed(2))
}

// EmptyEntryError reports a journal entry with fewer than two lines.
type EmptyEntryError struct {
	Lines int
}

func (e *EmptyEntryError) Error() string {
	return fmt.Sprintf("journal entry needs at least 2 lines, got %d", e.Lines)
}

// NoDetailLinesError reports a bank entry without any detail line.
type NoDetailLinesError struct {
	Kind model.EntryKind
}

func (e *NoDetailLinesError) Error() string {
	return fmt.Sprintf("%s entry needs at least one detail line", e.Kind)
}

// SameAccountTransferError reports a transfer whose source is its destination.
type SameAccountTransferError struct {
	AccountID int64
}

func (e *SameAccountTransferError) Error() string {
	return fmt.Sprintf("cannot transfer from account #%d to itself", e.AccountID)
}

// BankAccountError reports a bank flag mismatch on a bank entry.
type BankAccountError struct {
	AccountID int64
	Reason    string
}

func (e *BankAccountError) Error() string {
	return fmt.Sprintf("account #%d %s", e.AccountID, e.Reason)
}

// LineError reports a malformed line edit. Index is the edit's position.
type LineError struct {
	Index  int
	LineID int64
	Reason string
}

func (e *LineError) Error() string {
	if e.LineID != 0 {
		return fmt.Sprintf("line edit %d (line #%d): %s", e.Index+1, e.LineID, e.Reason)
	}
	return fmt.Sprintf("line edit %d: %s", e.Index+1, e.Reason)
}
