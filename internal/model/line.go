package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one signed amount against one account, owned by one entry.
// Positive deltas are credits, negative deltas are debits.
type Line struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Delta     decimal.Decimal
	Detail    string
	Main      bool // bank side of a receiving/spending entry

	// Copied from the owning entry on read; never stored on the line.
	Kind EntryKind
	Date time.Time
}

// Debit returns the debit magnitude, zero for credit lines.
func (l Line) Debit() decimal.Decimal {
	if l.Delta.IsNegative() {
		return l.Delta.Neg()
	}
	return decimal.Zero
}

// Credit returns the credit magnitude, zero for debit lines.
func (l Line) Credit() decimal.Decimal {
	if l.Delta.IsPositive() {
		return l.Delta
	}
	return decimal.Zero
}

// Amount returns the unsigned magnitude of the line.
func (l Line) Amount() decimal.Decimal { return l.Delta.Abs() }
