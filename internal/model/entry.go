package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind tags the variant of an entry.
type EntryKind string

const (
	KindJournal     EntryKind = "GJ" // general journal
	KindBankReceive EntryKind = "CR" // bank receiving (cash receipt)
	KindBankSpend   EntryKind = "CD" // bank spending (cash disbursement)
)

// Kinds lists every entry variant.
var Kinds = []EntryKind{KindJournal, KindBankReceive, KindBankSpend}

// Valid reports whether k is a known variant.
func (k EntryKind) Valid() bool {
	switch k {
	case KindJournal, KindBankReceive, KindBankSpend:
		return true
	}
	return false
}

// IsBank reports whether entries of this kind carry a main bank line.
func (k EntryKind) IsBank() bool {
	return k == KindBankReceive || k == KindBankSpend
}

// Entry is a balanced group of lines recorded together and dated once.
type Entry struct {
	ID        int64
	Kind      EntryKind
	Date      time.Time
	Memo      string
	Reference string // external reference, e.g. a bank statement row
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	Lines     []Line // includes the main line of bank entries
}

// Main returns the bank-side line of a receiving/spending entry.
func (e Entry) Main() (Line, bool) {
	for _, l := range e.Lines {
		if l.Main {
			return l, true
		}
	}
	return Line{}, false
}

// Details returns every line except the main line.
func (e Entry) Details() []Line {
	var out []Line
	for _, l := range e.Lines {
		if !l.Main {
			out = append(out, l)
		}
	}
	return out
}

// Sum returns the signed sum of all line deltas. It is zero for a balanced entry.
func (e Entry) Sum() decimal.Decimal {
	return SumDeltas(e.Lines)
}

// Edited reports whether the entry was changed after it was created.
func (e Entry) Edited() bool {
	return e.UpdatedAt.After(e.CreatedAt)
}

// WithLineDates returns a copy of lines stamped with the entry's kind and date.
func (e Entry) WithLineDates() []Line {
	out := make([]Line, len(e.Lines))
	for i, l := range e.Lines {
		l.EntryID = e.ID
		l.Kind = e.Kind
		l.Date = e.Date
		out[i] = l
	}
	return out
}

// SumDeltas adds up the deltas of lines.
func SumDeltas(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Delta)
	}
	return total
}
