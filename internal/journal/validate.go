package journal

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// EditOp tags a line edit.
type EditOp string

const (
	OpCreate EditOp = "create"
	OpUpdate EditOp = "update"
	OpDelete EditOp = "delete"
)

// Side is the debit/credit side of a journal line.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// LineEdit is one proposed change to an entry's lines. Amount is always an
// unsigned magnitude; the sign comes from Side for journal entries and from
// the entry kind for bank entries.
type LineEdit struct {
	Op        EditOp
	LineID    int64 // required for update and delete
	AccountID int64
	Side      Side // journal entries only
	Amount    decimal.Decimal
	Detail    string
}

// AccountReader looks up accounts. store.Reader satisfies it.
type AccountReader interface {
	Account(ctx context.Context, id int64) (model.Account, error)
}

// Input is everything a Validator needs to produce an entry's line set.
type Input struct {
	Existing      []model.Line // current lines of the entry; empty on create
	Edits         []LineEdit
	BankAccountID int64  // bank entries only
	Memo          string // copied to the main line of bank entries
}

// Validator turns line edits into the complete balanced line set of one
// entry variant.
type Validator interface {
	Validate(ctx context.Context, accts AccountReader, in Input) ([]model.Line, error)
}

// ValidatorFor returns the validator for an entry kind.
func ValidatorFor(kind model.EntryKind) (Validator, error) {
	switch kind {
	case model.KindJournal:
		return journalValidator{}, nil
	case model.KindBankReceive, model.KindBankSpend:
		return bankValidator{kind: kind}, nil
	}
	return nil, fmt.Errorf("unknown entry kind %q", kind)
}

type journalValidator struct{}

func (journalValidator) Validate(ctx context.Context, accts AccountReader, in Input) ([]model.Line, error) {
	lines, err := applyEdits(in.Existing, in.Edits, func(i int, ed LineEdit) (decimal.Decimal, error) {
		switch ed.Side {
		case SideDebit:
			return ed.Amount.Neg(), nil
		case SideCredit:
			return ed.Amount, nil
		}
		return decimal.Zero, &LineError{Index: i, LineID: ed.LineID, Reason: fmt.Sprintf("side must be %q or %q", SideDebit, SideCredit)}
	})
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		if _, err := accts.Account(ctx, l.AccountID); err != nil {
			return nil, err
		}
	}

	if len(lines) < 2 {
		return nil, &EmptyEntryError{Lines: len(lines)}
	}
	if sum := model.SumDeltas(lines); !sum.IsZero() {
		debits, credits := decimal.Zero, decimal.Zero
		for _, l := range lines {
			debits = debits.Add(l.Debit())
			credits = credits.Add(l.Credit())
		}
		return nil, &UnbalancedEntryError{Imbalance: sum, Debits: debits, Credits: credits}
	}
	return lines, nil
}

// bankValidator derives the main line from the details: spending credits
// the bank account, receiving debits it.
type bankValidator struct {
	kind model.EntryKind
}

func (v bankValidator) Validate(ctx context.Context, accts AccountReader, in Input) ([]model.Line, error) {
	bank, err := accts.Account(ctx, in.BankAccountID)
	if err != nil {
		return nil, err
	}
	if !bank.Bank {
		return nil, &BankAccountError{AccountID: bank.ID, Reason: "is not a bank account"}
	}

	var (
		main    model.Line
		details []model.Line
	)
	for _, l := range in.Existing {
		if l.Main {
			main = l
			continue
		}
		details = append(details, l)
	}

	details, err = applyEdits(details, in.Edits, func(_ int, ed LineEdit) (decimal.Decimal, error) {
		if v.kind == model.KindBankSpend {
			return ed.Amount, nil
		}
		return ed.Amount.Neg(), nil
	})
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, &NoDetailLinesError{Kind: v.kind}
	}

	for _, l := range details {
		a, err := accts.Account(ctx, l.AccountID)
		if err != nil {
			return nil, err
		}
		if a.Bank {
			return nil, &BankAccountError{AccountID: a.ID, Reason: "is a bank account and cannot be a detail line"}
		}
	}

	main.AccountID = bank.ID
	main.Delta = model.SumDeltas(details).Neg()
	main.Detail = in.Memo
	main.Main = true
	return append([]model.Line{main}, details...), nil
}

// applyEdits applies edits in order to the non-main lines of an entry.
// Surviving existing lines keep their order; created lines follow.
func applyEdits(existing []model.Line, edits []LineEdit, deltaOf func(int, LineEdit) (decimal.Decimal, error)) ([]model.Line, error) {
	lines := append([]model.Line(nil), existing...)
	index := make(map[int64]int, len(lines))
	for i, l := range lines {
		index[l.ID] = i
	}
	removed := make(map[int64]bool)
	touched := make(map[int64]bool)

	for i, ed := range edits {
		switch ed.Op {
		case OpCreate:
			if ed.AccountID == 0 && ed.Amount.IsZero() {
				continue // blank row
			}
			if ed.LineID != 0 {
				return nil, &LineError{Index: i, LineID: ed.LineID, Reason: "create must not carry a line ID"}
			}
			l, err := editedLine(i, ed, deltaOf)
			if err != nil {
				return nil, err
			}
			lines = append(lines, l)

		case OpUpdate, OpDelete:
			pos, ok := index[ed.LineID]
			if !ok || ed.LineID == 0 {
				return nil, &LineError{Index: i, LineID: ed.LineID, Reason: "line does not belong to this entry"}
			}
			if touched[ed.LineID] {
				return nil, &LineError{Index: i, LineID: ed.LineID, Reason: "line edited more than once"}
			}
			touched[ed.LineID] = true
			if ed.Op == OpDelete {
				removed[ed.LineID] = true
				continue
			}
			l, err := editedLine(i, ed, deltaOf)
			if err != nil {
				return nil, err
			}
			l.ID = ed.LineID
			lines[pos] = l

		default:
			return nil, &LineError{Index: i, LineID: ed.LineID, Reason: fmt.Sprintf("unknown operation %q", ed.Op)}
		}
	}

	out := lines[:0]
	for _, l := range lines {
		if l.ID != 0 && removed[l.ID] {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

var hundred = decimal.NewFromInt(100)

func editedLine(i int, ed LineEdit, deltaOf func(int, LineEdit) (decimal.Decimal, error)) (model.Line, error) {
	if ed.AccountID == 0 {
		return model.Line{}, &LineError{Index: i, LineID: ed.LineID, Reason: "account is required"}
	}
	if !ed.Amount.IsPositive() {
		return model.Line{}, &LineError{Index: i, LineID: ed.LineID, Reason: fmt.Sprintf("amount %s must be positive", ed.Amount)}
	}
	if scaled := ed.Amount.Mul(hundred); !scaled.Equal(scaled.Floor()) {
		return model.Line{}, &LineError{Index: i, LineID: ed.LineID, Reason: fmt.Sprintf("amount %s has more than 2 decimal places", ed.Amount)}
	}
	delta, err := deltaOf(i, ed)
	if err != nil {
		return model.Line{}, err
	}
	return model.Line{AccountID: ed.AccountID, Delta: delta, Detail: ed.Detail}, nil
}
