// Package store defines the persistence boundary of the ledger. Every
// implementation must give View a consistent snapshot and make Update atomic.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// LineQuery selects ledger lines by account and owning-entry date. It spans
// every entry kind unless Kinds is set.
type LineQuery struct {
	AccountID int64
	From      time.Time // inclusive; zero = beginning of time
	To        time.Time // inclusive; zero = end of time
	Kinds     []model.EntryKind
	MainOnly  bool
}

// Matches reports whether a line (with Kind and Date populated) satisfies q.
func (q LineQuery) Matches(l model.Line) bool {
	if q.AccountID != 0 && l.AccountID != q.AccountID {
		return false
	}
	if !q.From.IsZero() && l.Date.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && l.Date.After(q.To) {
		return false
	}
	if q.MainOnly && !l.Main {
		return false
	}
	if len(q.Kinds) == 0 {
		return true
	}
	for _, k := range q.Kinds {
		if k == l.Kind {
			return true
		}
	}
	return false
}

// EntryFilter selects entries for journal listings.
type EntryFilter struct {
	Kind      model.EntryKind // "" = all kinds
	From      time.Time
	To        time.Time
	Reference string
}

// Matches reports whether e satisfies f.
func (f EntryFilter) Matches(e model.Entry) bool {
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(f.To) {
		return false
	}
	if f.Reference != "" && e.Reference != f.Reference {
		return false
	}
	return true
}

// Reader is a consistent read-only view of the ledger.
type Reader interface {
	// Revision identifies the committed state this view reads.
	Revision() int64

	Headers(ctx context.Context) ([]model.Header, error)
	Header(ctx context.Context, id int64) (model.Header, error)
	HeaderBySlug(ctx context.Context, slug string) (model.Header, error)

	Accounts(ctx context.Context) ([]model.Account, error)
	Account(ctx context.Context, id int64) (model.Account, error)
	AccountBySlug(ctx context.Context, slug string) (model.Account, error)
	// AccountInUse reports whether any line references the account.
	AccountInUse(ctx context.Context, id int64) (bool, error)

	// Entry returns the entry with all of its lines.
	Entry(ctx context.Context, id int64) (model.Entry, error)
	// Entries returns matching entries ordered by date, then ID.
	Entries(ctx context.Context, f EntryFilter) ([]model.Entry, error)

	// Lines returns matching lines ordered by entry date, then line ID.
	Lines(ctx context.Context, q LineQuery) ([]model.Line, error)
	// SumLines returns the raw delta sum of matching lines.
	SumLines(ctx context.Context, q LineQuery) (decimal.Decimal, error)
}

// Writer mutates the ledger inside an Update.
type Writer interface {
	// PutHeader creates (ID == 0) or replaces a header, assigning its ID.
	PutHeader(ctx context.Context, h *model.Header) error
	DeleteHeader(ctx context.Context, id int64) error
	// PutAccount creates (ID == 0) or replaces an account, assigning its ID.
	PutAccount(ctx context.Context, a *model.Account) error
	DeleteAccount(ctx context.Context, id int64) error

	// PutEntry creates (ID == 0) or replaces an entry together with its full
	// line set. Lines with ID == 0 are inserted, lines missing from e.Lines
	// are deleted. The entry's Version is incremented; replacing an entry
	// whose stored version differs from e.Version fails with
	// ConcurrentModificationError.
	PutEntry(ctx context.Context, e *model.Entry) error
	// DeleteEntry removes an entry and every line it owns.
	DeleteEntry(ctx context.Context, id int64) error
}

// Tx is the view handed to an Update callback. Reads observe the writes made
// earlier in the same callback; Revision returns the revision the commit will
// produce.
type Tx interface {
	Reader
	Writer
}

// Store is a ledger persistence backend.
type Store interface {
	// View runs fn against a consistent snapshot.
	View(ctx context.Context, fn func(r Reader) error) error
	// Update runs fn atomically. If fn returns an error nothing is written.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
