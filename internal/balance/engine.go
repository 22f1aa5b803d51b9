// Package balance derives opening and running balances for an account from
// its ledger lines, optionally seeded by month-end checkpoints.
package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// RangeError reports a date range whose start is after its end.
type RangeError struct {
	From, To time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid date range: %s is after %s", e.From.Format(model.DateFormat), e.To.Format(model.DateFormat))
}

// Posting is a line with the account's displayed balance after it.
type Posting struct {
	Line    model.Line
	Balance decimal.Decimal
}

// Activity is an account's movement over a closed date range. Balances are
// displayed balances: credit-normal accounts are sign-flipped.
type Activity struct {
	Account  model.Account
	From, To time.Time
	Opening  decimal.Decimal
	Postings []Posting
	Closing  decimal.Decimal
}

// Engine computes balances. It implements journal.Invalidator so the journal
// can keep its checkpoints in step with writes.
type Engine struct {
	store store.Store
	cache CheckpointCache // nil disables checkpoints
	log   logrus.FieldLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache seeds opening balances from month-end checkpoints held in c.
func WithCache(c CheckpointCache) Option {
	return func(e *Engine) { e.cache = c }
}

// NewEngine creates a balance Engine reading from s.
func NewEngine(s store.Store, log logrus.FieldLogger, opts ...Option) *Engine {
	e := &Engine{store: s, log: log.WithField("component", "balance")}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Activity returns the opening balance before from and every line of the
// account dated within [from, to], each with the running balance after it.
// A range without lines has a zero opening balance and no postings.
func (e *Engine) Activity(ctx context.Context, accountID int64, from, to time.Time) (Activity, error) {
	from, to = model.Day(from), model.Day(to)
	if from.After(to) {
		return Activity{}, &RangeError{From: from, To: to}
	}

	var out Activity
	err := e.store.View(ctx, func(r store.Reader) error {
		acct, err := r.Account(ctx, accountID)
		if err != nil {
			return err
		}
		out = Activity{Account: acct, From: from, To: to, Opening: decimal.Zero, Closing: decimal.Zero}
		if beforeAnyLine(to) {
			return nil
		}

		lines, err := r.Lines(ctx, store.LineQuery{AccountID: accountID, From: from, To: to})
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}

		raw, err := e.rawBefore(ctx, r, accountID, from)
		if err != nil {
			return err
		}
		out.Opening = display(acct, raw)

		bal := out.Opening
		out.Postings = make([]Posting, len(lines))
		for i, l := range lines {
			bal = bal.Add(display(acct, l.Delta))
			out.Postings[i] = Posting{Line: l, Balance: bal}
		}
		out.Closing = bal
		return nil
	})
	if err != nil {
		return Activity{}, err
	}

	e.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"from":       from.Format(model.DateFormat),
		"to":         to.Format(model.DateFormat),
		"postings":   len(out.Postings),
	}).Debug("activity computed")
	return out, nil
}

// OpeningBalance returns the displayed balance of the account before day.
func (e *Engine) OpeningBalance(ctx context.Context, accountID int64, day time.Time) (decimal.Decimal, error) {
	day = model.Day(day)
	var out decimal.Decimal
	err := e.store.View(ctx, func(r store.Reader) error {
		acct, err := r.Account(ctx, accountID)
		if err != nil {
			return err
		}
		raw, err := e.rawBefore(ctx, r, accountID, day)
		if err != nil {
			return err
		}
		out = display(acct, raw)
		return nil
	})
	return out, err
}

// BalanceAsOf returns the displayed balance of the account at the end of day.
func (e *Engine) BalanceAsOf(ctx context.Context, accountID int64, day time.Time) (decimal.Decimal, error) {
	return e.OpeningBalance(ctx, accountID, model.Day(day).AddDate(0, 0, 1))
}

// Register returns the main lines of receiving and spending entries on a bank
// account within [from, to], in date order.
func (e *Engine) Register(ctx context.Context, bankAccountID int64, from, to time.Time) ([]model.Line, error) {
	from, to = model.Day(from), model.Day(to)
	if from.After(to) {
		return nil, &RangeError{From: from, To: to}
	}

	var out []model.Line
	err := e.store.View(ctx, func(r store.Reader) error {
		acct, err := r.Account(ctx, bankAccountID)
		if err != nil {
			return err
		}
		if !acct.Bank {
			return store.NotFound("bank account", bankAccountID)
		}
		if beforeAnyLine(to) {
			return nil
		}
		out, err = r.Lines(ctx, store.LineQuery{
			AccountID: bankAccountID,
			From:      from,
			To:        to,
			Kinds:     []model.EntryKind{model.KindBankReceive, model.KindBankSpend},
			MainOnly:  true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops checkpoints a write to the accounts from month on has
// made stale.
func (e *Engine) Invalidate(ctx context.Context, accountIDs []int64, from model.Month, revision int64) error {
	if e.cache == nil {
		return nil
	}
	for _, id := range accountIDs {
		if err := e.cache.Invalidate(ctx, id, from, revision); err != nil {
			return fmt.Errorf("account #%d: %w", id, err)
		}
	}
	return nil
}

// rawBefore sums every line of the account dated before day.
func (e *Engine) rawBefore(ctx context.Context, r store.Reader, accountID int64, day time.Time) (decimal.Decimal, error) {
	if beforeAnyLine(day.AddDate(0, 0, -1)) {
		return decimal.Zero, nil
	}
	if e.cache == nil {
		return r.SumLines(ctx, store.LineQuery{AccountID: accountID, To: day.AddDate(0, 0, -1)})
	}

	m := model.MonthOf(day)
	base, err := e.monthEnd(ctx, r, accountID, m-1)
	if err != nil {
		return decimal.Zero, err
	}
	if day.Equal(m.Start()) {
		return base, nil
	}
	rest, err := r.SumLines(ctx, store.LineQuery{AccountID: accountID, From: m.Start(), To: day.AddDate(0, 0, -1)})
	if err != nil {
		return decimal.Zero, err
	}
	return base.Add(rest), nil
}

// monthEnd returns the raw balance at the end of m, starting from the
// nearest usable checkpoint and caching the result.
func (e *Engine) monthEnd(ctx context.Context, r store.Reader, accountID int64, m model.Month) (decimal.Decimal, error) {
	q := store.LineQuery{AccountID: accountID, To: m.End()}
	base := decimal.Zero
	if cp, ok := e.checkpoint(ctx, r.Revision(), accountID, m); ok {
		if cp.Month == m {
			return cp.Balance, nil
		}
		base = cp.Balance
		q.From = (cp.Month + 1).Start()
	}

	sum, err := r.SumLines(ctx, q)
	if err != nil {
		return decimal.Zero, err
	}
	total := base.Add(sum)

	cp := Checkpoint{Month: m, Revision: r.Revision(), Balance: total}
	if err := e.cache.Put(ctx, accountID, cp); err != nil {
		e.log.WithError(err).WithField("account_id", accountID).Warn("checkpoint not stored")
	}
	return total, nil
}

// checkpoint finds the latest checkpoint at or before m that a reader at
// revision rev may use. Past the watermark it falls back to the last month
// no write has touched.
func (e *Engine) checkpoint(ctx context.Context, rev, accountID int64, m model.Month) (Checkpoint, bool) {
	for attempt := 0; attempt < 2; attempt++ {
		cp, wm, ok, err := e.cache.Nearest(ctx, accountID, m)
		if err != nil {
			e.log.WithError(err).WithField("account_id", accountID).Warn("checkpoint lookup failed, summing history")
			return Checkpoint{}, false
		}
		if !ok {
			return Checkpoint{}, false
		}
		if wm.Usable(cp, rev) {
			return cp, true
		}
		m = wm.From - 1
	}
	return Checkpoint{}, false
}

// beforeAnyLine reports whether no line can be dated on or before day.
// Entry dates are never the zero time, and a zero LineQuery bound is open.
func beforeAnyLine(day time.Time) bool {
	return !day.After(time.Time{})
}

func display(acct model.Account, raw decimal.Decimal) decimal.Decimal {
	if acct.FlipBalance() {
		return raw.Neg()
	}
	return raw
}
