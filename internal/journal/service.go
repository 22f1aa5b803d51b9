package journal

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/validation"
)

// Invalidator drops cached balances that a write makes stale. It runs inside
// the write's transaction, before commit.
type Invalidator interface {
	Invalidate(ctx context.Context, accountIDs []int64, from model.Month, revision int64) error
}

// Service records, edits and deletes entries.
type Service struct {
	store       store.Store
	invalidator Invalidator
	log         logrus.FieldLogger
}

// Option configures a Service.
type Option func(*Service)

// WithInvalidator registers the balance cache to keep in step with writes.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// NewService creates a journal Service.
func NewService(s store.Store, log logrus.FieldLogger, opts ...Option) *Service {
	svc := &Service{store: s, log: log.WithField("component", "journal")}
	for _, o := range opts {
		o(svc)
	}
	return svc
}

// SaveParams holds the inputs for SaveEntry.
type SaveParams struct {
	Kind          model.EntryKind `validate:"required,entrykind"`
	EntryID       int64           // 0 creates a new entry
	Version       int64           // expected stored version; 0 skips the check
	Date          time.Time       `validate:"required"`
	Memo          string          `validate:"max=500"`
	Reference     string          `validate:"max=100"`
	BankAccountID int64           // bank entries only
	Lines         []LineEdit
	Now           time.Time `validate:"required"`
}

// TransferParams holds the inputs for Transfer.
type TransferParams struct {
	Date          time.Time       `validate:"required"`
	Memo          string          `validate:"max=500"`
	Reference     string          `validate:"max=100"`
	SourceID      int64           `validate:"gt=0"`
	DestinationID int64           `validate:"gt=0"`
	Amount        decimal.Decimal // unsigned
	Now           time.Time       `validate:"required"`
}

// SaveEntry validates an entry and its line edits and, if everything holds,
// writes the entry and its complete line set in one transaction.
func (s *Service) SaveEntry(ctx context.Context, params SaveParams) (model.Entry, error) {
	entry, err := s.saveEntry(ctx, params)
	if err != nil {
		s.logRejected(params.Kind, params.EntryID, err)
		return model.Entry{}, err
	}

	s.log.WithFields(logrus.Fields{
		"entry_id": id.FormatEntryRef(entry.Kind, entry.ID),
		"kind":     entry.Kind,
		"lines":    len(entry.Lines),
		"version":  entry.Version,
	}).Info("entry saved")
	return entry, nil
}

func (s *Service) saveEntry(ctx context.Context, params SaveParams) (model.Entry, error) {
	if err := validation.Struct(params); err != nil {
		return model.Entry{}, err
	}
	v, err := ValidatorFor(params.Kind)
	if err != nil {
		return model.Entry{}, err
	}

	var entry model.Entry
	err = s.store.Update(ctx, func(tx store.Tx) error {
		var existing model.Entry
		if params.EntryID != 0 {
			var err error
			existing, err = getEntry(ctx, tx, params.Kind, params.EntryID)
			if err != nil {
				return err
			}
			if params.Version != 0 && params.Version != existing.Version {
				return &store.ConcurrentModificationError{EntryID: existing.ID, Expected: params.Version, Actual: existing.Version}
			}
		}

		lines, err := v.Validate(ctx, tx, Input{
			Existing:      existing.Lines,
			Edits:         params.Lines,
			BankAccountID: params.BankAccountID,
			Memo:          params.Memo,
		})
		if err != nil {
			return err
		}

		entry = model.Entry{
			ID:        existing.ID,
			Kind:      params.Kind,
			Date:      model.Day(params.Date),
			Memo:      params.Memo,
			Reference: params.Reference,
			CreatedAt: existing.CreatedAt,
			UpdatedAt: params.Now,
			Version:   existing.Version,
			Lines:     lines,
		}
		if entry.ID == 0 {
			entry.CreatedAt = params.Now
		}

		if err := s.invalidate(ctx, tx, existing, entry); err != nil {
			return err
		}
		return tx.PutEntry(ctx, &entry)
	})
	if err != nil {
		return model.Entry{}, err
	}
	return entry, nil
}

// Transfer moves amount from one account to another as a two-line journal
// entry: a debit on the source and a credit on the destination.
func (s *Service) Transfer(ctx context.Context, params TransferParams) (model.Entry, error) {
	if err := validation.Struct(params); err != nil {
		s.logRejected(model.KindJournal, 0, err)
		return model.Entry{}, err
	}
	if params.SourceID == params.DestinationID {
		err := &SameAccountTransferError{AccountID: params.SourceID}
		s.logRejected(model.KindJournal, 0, err)
		return model.Entry{}, err
	}
	if !params.Amount.IsPositive() {
		err := &validation.FieldsError{Fields: map[string]string{"amount": "amount must be positive"}}
		s.logRejected(model.KindJournal, 0, err)
		return model.Entry{}, err
	}

	return s.SaveEntry(ctx, SaveParams{
		Kind:      model.KindJournal,
		Date:      params.Date,
		Memo:      params.Memo,
		Reference: params.Reference,
		Lines: []LineEdit{
			{Op: OpCreate, AccountID: params.SourceID, Side: SideDebit, Amount: params.Amount, Detail: params.Memo},
			{Op: OpCreate, AccountID: params.DestinationID, Side: SideCredit, Amount: params.Amount, Detail: params.Memo},
		},
		Now: params.Now,
	})
}

// DeleteEntry removes an entry together with all of its lines.
func (s *Service) DeleteEntry(ctx context.Context, kind model.EntryKind, entryID int64) error {
	var lines int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		existing, err := getEntry(ctx, tx, kind, entryID)
		if err != nil {
			return err
		}
		lines = len(existing.Lines)
		if err := s.invalidate(ctx, tx, existing, model.Entry{}); err != nil {
			return err
		}
		return tx.DeleteEntry(ctx, entryID)
	})
	if err != nil {
		s.logRejected(kind, entryID, err)
		return err
	}

	s.log.WithFields(logrus.Fields{
		"entry_id": id.FormatEntryRef(kind, entryID),
		"kind":     kind,
		"lines":    lines,
	}).Info("entry deleted")
	return nil
}

// Entry returns one entry with its lines.
func (s *Service) Entry(ctx context.Context, kind model.EntryKind, entryID int64) (model.Entry, error) {
	var out model.Entry
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		out, err = getEntry(ctx, r, kind, entryID)
		return err
	})
	return out, err
}

// Entries lists entries matching f, ordered by date then ID.
func (s *Service) Entries(ctx context.Context, f store.EntryFilter) ([]model.Entry, error) {
	var out []model.Entry
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		out, err = r.Entries(ctx, f)
		return err
	})
	return out, err
}

func getEntry(ctx context.Context, r store.Reader, kind model.EntryKind, entryID int64) (model.Entry, error) {
	e, err := r.Entry(ctx, entryID)
	if err != nil {
		if store.IsNotFound(err) {
			return model.Entry{}, &store.NotFoundError{Resource: "entry", Key: id.FormatEntryRef(kind, entryID)}
		}
		return model.Entry{}, err
	}
	if e.Kind != kind {
		return model.Entry{}, &store.NotFoundError{Resource: "entry", Key: id.FormatEntryRef(kind, entryID)}
	}
	return e, nil
}

// invalidate reports every account touched by the old or new line set, from
// the earlier of the two entry months.
func (s *Service) invalidate(ctx context.Context, tx store.Tx, before, after model.Entry) error {
	if s.invalidator == nil {
		return nil
	}

	seen := make(map[int64]bool)
	var accts []int64
	var from model.Month
	for _, e := range []model.Entry{before, after} {
		if len(e.Lines) == 0 {
			continue
		}
		if m := model.MonthOf(e.Date); len(accts) == 0 || m < from {
			from = m
		}
		for _, l := range e.Lines {
			if !seen[l.AccountID] {
				seen[l.AccountID] = true
				accts = append(accts, l.AccountID)
			}
		}
	}
	if len(accts) == 0 {
		return nil
	}
	sort.Slice(accts, func(i, j int) bool { return accts[i] < accts[j] })

	if err := s.invalidator.Invalidate(ctx, accts, from, tx.Revision()); err != nil {
		return store.Wrap("invalidate checkpoints", err)
	}
	return nil
}

func (s *Service) logRejected(kind model.EntryKind, entryID int64, err error) {
	var se *store.StoreError
	log := s.log.WithError(err).WithField("kind", kind)
	if entryID != 0 {
		log = log.WithField("entry_id", id.FormatEntryRef(kind, entryID))
	}
	if errors.As(err, &se) {
		log.Error("entry write failed")
		return
	}
	log.Warn("entry rejected")
}
