// Package storetest holds the behaviour every store.Store implementation must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Factory returns a fresh, empty store. It should register its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ChartCRUD", func(t *testing.T) { testChartCRUD(t, newStore(t)) })
	t.Run("EntryLifecycle", func(t *testing.T) { testEntryLifecycle(t, newStore(t)) })
	t.Run("VersionConflict", func(t *testing.T) { testVersionConflict(t, newStore(t)) })
	t.Run("LineOrdering", func(t *testing.T) { testLineOrdering(t, newStore(t)) })
	t.Run("LineQueryFilters", func(t *testing.T) { testLineQueryFilters(t, newStore(t)) })
	t.Run("EntryFilter", func(t *testing.T) { testEntryFilter(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("RevisionAdvances", func(t *testing.T) { testRevision(t, newStore(t)) })
	t.Run("ConcurrentReaders", func(t *testing.T) { testConcurrentReaders(t, newStore(t)) })
}

// Fixture is a small chart used by the suite.
type Fixture struct {
	Assets, Income   model.Header
	Checking, Sales  model.Account
	Supplies, Equity model.Account
}

// Seed writes the fixture chart into s.
func Seed(t *testing.T, s store.Store) Fixture {
	t.Helper()
	var f Fixture
	err := s.Update(context.Background(), func(tx store.Tx) error {
		ctx := context.Background()
		f.Assets = model.Header{Name: "Assets", Slug: "assets", Type: model.AccountTypeAsset}
		if err := tx.PutHeader(ctx, &f.Assets); err != nil {
			return err
		}
		f.Income = model.Header{Name: "Income", Slug: "income", Type: model.AccountTypeRevenue}
		if err := tx.PutHeader(ctx, &f.Income); err != nil {
			return err
		}
		f.Checking = model.Account{Name: "Checking", Slug: "checking", HeaderID: f.Assets.ID, Type: model.AccountTypeAsset, Bank: true}
		f.Supplies = model.Account{Name: "Supplies", Slug: "supplies", HeaderID: f.Assets.ID, Type: model.AccountTypeAsset}
		f.Sales = model.Account{Name: "Sales", Slug: "sales", HeaderID: f.Income.ID, Type: model.AccountTypeRevenue}
		f.Equity = model.Account{Name: "Owner Equity", Slug: "owner-equity", HeaderID: f.Income.ID, Type: model.AccountTypeEquity}
		for _, a := range []*model.Account{&f.Checking, &f.Supplies, &f.Sales, &f.Equity} {
			if err := tx.PutAccount(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return f
}

// Day is a UTC calendar date.
func Day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// PutEntry writes a GJ entry moving amount from credit to debit.
func PutEntry(t *testing.T, s store.Store, date time.Time, debit, credit int64, amount string) model.Entry {
	t.Helper()
	e := model.Entry{
		Kind: model.KindJournal,
		Date: date,
		Memo: "test entry",
		Lines: []model.Line{
			{AccountID: debit, Delta: Dec(amount).Neg()},
			{AccountID: credit, Delta: Dec(amount)},
		},
	}
	err := s.Update(context.Background(), func(tx store.Tx) error {
		return tx.PutEntry(context.Background(), &e)
	})
	require.NoError(t, err)
	return e
}

func testChartCRUD(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)

	err := s.View(ctx, func(r store.Reader) error {
		headers, err := r.Headers(ctx)
		require.NoError(t, err)
		require.Len(t, headers, 2)
		assert.Equal(t, "Assets", headers[0].Name)

		h, err := r.HeaderBySlug(ctx, "income")
		require.NoError(t, err)
		assert.Equal(t, f.Income.ID, h.ID)

		a, err := r.AccountBySlug(ctx, "checking")
		require.NoError(t, err)
		assert.True(t, a.Bank)
		assert.Equal(t, f.Assets.ID, a.HeaderID)

		accts, err := r.Accounts(ctx)
		require.NoError(t, err)
		assert.Len(t, accts, 4)

		_, err = r.Account(ctx, 9999)
		assert.True(t, store.IsNotFound(err))
		_, err = r.Header(ctx, 9999)
		assert.True(t, store.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)

	// Rename, reparent and delete.
	err = s.Update(ctx, func(tx store.Tx) error {
		child := model.Header{Name: "Current Assets", Slug: "current-assets", ParentID: f.Assets.ID, Type: model.AccountTypeAsset}
		if err := tx.PutHeader(ctx, &child); err != nil {
			return err
		}
		f.Checking.HeaderID = child.ID
		f.Checking.Name = "Main Checking"
		if err := tx.PutAccount(ctx, &f.Checking); err != nil {
			return err
		}
		extra := model.Header{Name: "Scratch", Slug: "scratch", Type: model.AccountTypeExpense}
		if err := tx.PutHeader(ctx, &extra); err != nil {
			return err
		}
		scratch := model.Account{Name: "Scratch", Slug: "scratch", HeaderID: extra.ID, Type: model.AccountTypeExpense}
		if err := tx.PutAccount(ctx, &scratch); err != nil {
			return err
		}
		if err := tx.DeleteAccount(ctx, scratch.ID); err != nil {
			return err
		}
		return tx.DeleteHeader(ctx, extra.ID)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(r store.Reader) error {
		a, err := r.Account(ctx, f.Checking.ID)
		require.NoError(t, err)
		assert.Equal(t, "Main Checking", a.Name)
		child, err := r.Header(ctx, a.HeaderID)
		require.NoError(t, err)
		assert.Equal(t, f.Assets.ID, child.ParentID)
		_, err = r.HeaderBySlug(ctx, "scratch")
		assert.True(t, store.IsNotFound(err))
		_, err = r.AccountBySlug(ctx, "scratch")
		assert.True(t, store.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}

func testEntryLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)

	e := PutEntry(t, s, Day(2025, 1, 15), f.Supplies.ID, f.Checking.ID, "40.00")
	require.NotZero(t, e.ID)
	assert.Equal(t, int64(1), e.Version)
	for _, l := range e.Lines {
		assert.NotZero(t, l.ID)
		assert.Equal(t, e.ID, l.EntryID)
	}

	var got model.Entry
	err := s.View(ctx, func(r store.Reader) error {
		var err error
		got, err = r.Entry(ctx, e.ID)
		if err != nil {
			return err
		}
		inUse, err := r.AccountInUse(ctx, f.Supplies.ID)
		require.NoError(t, err)
		assert.True(t, inUse)
		inUse, err = r.AccountInUse(ctx, f.Equity.ID)
		require.NoError(t, err)
		assert.False(t, inUse)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, model.KindJournal, got.Kind)
	assert.True(t, got.Date.Equal(Day(2025, 1, 15)))
	assert.Equal(t, "test entry", got.Memo)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Sum().IsZero())
	assert.Equal(t, model.KindJournal, got.Lines[0].Kind)

	// Replace: keep one line, drop one, add two.
	kept := got.Lines[0]
	kept.Delta = Dec("-50.00")
	got.Lines = []model.Line{
		kept,
		{AccountID: f.Checking.ID, Delta: Dec("30.00")},
		{AccountID: f.Equity.ID, Delta: Dec("20.00")},
	}
	got.Memo = "edited"
	err = s.Update(ctx, func(tx store.Tx) error { return tx.PutEntry(ctx, &got) })
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)

	err = s.View(ctx, func(r store.Reader) error {
		reread, err := r.Entry(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", reread.Memo)
		assert.Equal(t, int64(2), reread.Version)
		require.Len(t, reread.Lines, 3)
		assert.Equal(t, kept.ID, reread.Lines[0].ID)
		assert.True(t, reread.Lines[0].Delta.Equal(Dec("-50.00")))
		return nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error { return tx.DeleteEntry(ctx, e.ID) })
	require.NoError(t, err)

	err = s.View(ctx, func(r store.Reader) error {
		_, err := r.Entry(ctx, e.ID)
		assert.True(t, store.IsNotFound(err))
		lines, err := r.Lines(ctx, store.LineQuery{AccountID: f.Checking.ID})
		require.NoError(t, err)
		assert.Empty(t, lines)
		return nil
	})
	require.NoError(t, err)

	err = s.Update(ctx, func(tx store.Tx) error { return tx.DeleteEntry(ctx, e.ID) })
	assert.True(t, store.IsNotFound(err))
}

func testVersionConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)
	e := PutEntry(t, s, Day(2025, 2, 1), f.Supplies.ID, f.Checking.ID, "10.00")

	stale := e
	stale.Version = e.Version - 1
	stale.Lines = append([]model.Line(nil), e.Lines...)
	err := s.Update(ctx, func(tx store.Tx) error { return tx.PutEntry(ctx, &stale) })

	var cm *store.ConcurrentModificationError
	require.ErrorAs(t, err, &cm)
	assert.Equal(t, e.ID, cm.EntryID)
	assert.Equal(t, e.Version, cm.Actual)
}

func testLineOrdering(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)

	// Written out of date order; two on the same date.
	late := PutEntry(t, s, Day(2025, 3, 10), f.Supplies.ID, f.Checking.ID, "3.00")
	first := PutEntry(t, s, Day(2025, 3, 1), f.Supplies.ID, f.Checking.ID, "1.00")
	second := PutEntry(t, s, Day(2025, 3, 1), f.Supplies.ID, f.Checking.ID, "2.00")

	err := s.View(ctx, func(r store.Reader) error {
		lines, err := r.Lines(ctx, store.LineQuery{AccountID: f.Checking.ID})
		require.NoError(t, err)
		require.Len(t, lines, 3)
		assert.Equal(t, first.ID, lines[0].EntryID)
		assert.Equal(t, second.ID, lines[1].EntryID)
		assert.Equal(t, late.ID, lines[2].EntryID)
		assert.Less(t, lines[0].ID, lines[1].ID)
		assert.True(t, lines[2].Date.Equal(Day(2025, 3, 10)))

		entries, err := r.Entries(ctx, store.EntryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, []int64{first.ID, second.ID, late.ID},
			[]int64{entries[0].ID, entries[1].ID, entries[2].ID})
		return nil
	})
	require.NoError(t, err)
}

func testLineQueryFilters(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)

	PutEntry(t, s, Day(2025, 1, 1), f.Checking.ID, f.Equity.ID, "100.00")
	PutEntry(t, s, Day(2025, 1, 15), f.Supplies.ID, f.Checking.ID, "25.00")

	bank := model.Entry{
		Kind: model.KindBankReceive,
		Date: Day(2025, 2, 1),
		Memo: "deposit",
		Lines: []model.Line{
			{AccountID: f.Checking.ID, Delta: Dec("-10.00"), Main: true, Detail: "deposit"},
			{AccountID: f.Sales.ID, Delta: Dec("10.00")},
		},
	}
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutEntry(ctx, &bank) }))

	err := s.View(ctx, func(r store.Reader) error {
		sum, err := r.SumLines(ctx, store.LineQuery{AccountID: f.Checking.ID})
		require.NoError(t, err)
		assert.True(t, sum.Equal(Dec("-85.00")), "got %s", sum)

		sum, err = r.SumLines(ctx, store.LineQuery{AccountID: f.Checking.ID, To: Day(2025, 1, 14)})
		require.NoError(t, err)
		assert.True(t, sum.Equal(Dec("-100.00")), "got %s", sum)

		sum, err = r.SumLines(ctx, store.LineQuery{AccountID: f.Checking.ID, From: Day(2025, 1, 15), To: Day(2025, 1, 31)})
		require.NoError(t, err)
		assert.True(t, sum.Equal(Dec("25.00")), "got %s", sum)

		sum, err = r.SumLines(ctx, store.LineQuery{AccountID: f.Equity.ID, From: Day(2026, 1, 1)})
		require.NoError(t, err)
		assert.True(t, sum.IsZero())

		main, err := r.Lines(ctx, store.LineQuery{
			AccountID: f.Checking.ID,
			Kinds:     []model.EntryKind{model.KindBankReceive, model.KindBankSpend},
			MainOnly:  true,
		})
		require.NoError(t, err)
		require.Len(t, main, 1)
		assert.True(t, main[0].Main)
		assert.Equal(t, "deposit", main[0].Detail)
		assert.Equal(t, model.KindBankReceive, main[0].Kind)

		gj, err := r.Lines(ctx, store.LineQuery{AccountID: f.Checking.ID, Kinds: []model.EntryKind{model.KindJournal}})
		require.NoError(t, err)
		assert.Len(t, gj, 2)
		return nil
	})
	require.NoError(t, err)
}

func testEntryFilter(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)

	PutEntry(t, s, Day(2025, 1, 5), f.Supplies.ID, f.Checking.ID, "1.00")
	ref := model.Entry{
		Kind:      model.KindBankSpend,
		Date:      Day(2025, 1, 20),
		Reference: "chase:abc",
		Lines: []model.Line{
			{AccountID: f.Checking.ID, Delta: Dec("5.00"), Main: true},
			{AccountID: f.Supplies.ID, Delta: Dec("-5.00")},
		},
	}
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error { return tx.PutEntry(ctx, &ref) }))

	err := s.View(ctx, func(r store.Reader) error {
		got, err := r.Entries(ctx, store.EntryFilter{Kind: model.KindBankSpend})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, ref.ID, got[0].ID)
		require.Len(t, got[0].Lines, 2)

		got, err = r.Entries(ctx, store.EntryFilter{Reference: "chase:abc"})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = r.Entries(ctx, store.EntryFilter{From: Day(2025, 1, 6), To: Day(2025, 1, 31)})
		require.NoError(t, err)
		assert.Len(t, got, 1)

		got, err = r.Entries(ctx, store.EntryFilter{Reference: "missing"})
		require.NoError(t, err)
		assert.Empty(t, got)
		return nil
	})
	require.NoError(t, err)
}

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)
	boom := errors.New("boom")

	err := s.Update(ctx, func(tx store.Tx) error {
		e := model.Entry{
			Kind: model.KindJournal,
			Date: Day(2025, 1, 1),
			Lines: []model.Line{
				{AccountID: f.Supplies.ID, Delta: Dec("-1.00")},
				{AccountID: f.Checking.ID, Delta: Dec("1.00")},
			},
		}
		if err := tx.PutEntry(ctx, &e); err != nil {
			return err
		}
		// Writes are visible inside the transaction.
		got, err := tx.Entry(ctx, e.ID)
		require.NoError(t, err)
		assert.Len(t, got.Lines, 2)
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.View(ctx, func(r store.Reader) error {
		entries, err := r.Entries(ctx, store.EntryFilter{})
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	})
	require.NoError(t, err)
}

func testRevision(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)

	var before int64
	require.NoError(t, s.View(ctx, func(r store.Reader) error {
		before = r.Revision()
		return nil
	}))

	var pending int64
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		pending = tx.Revision()
		e := model.Entry{
			Kind: model.KindJournal,
			Date: Day(2025, 1, 1),
			Lines: []model.Line{
				{AccountID: f.Supplies.ID, Delta: Dec("-1.00")},
				{AccountID: f.Checking.ID, Delta: Dec("1.00")},
			},
		}
		return tx.PutEntry(ctx, &e)
	}))
	assert.Greater(t, pending, before)

	require.NoError(t, s.View(ctx, func(r store.Reader) error {
		assert.Equal(t, pending, r.Revision())
		return nil
	}))
}

func testConcurrentReaders(t *testing.T, s store.Store) {
	ctx := context.Background()
	f := Seed(t, s)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			PutEntry(t, s, Day(2025, 1, 1+i), f.Supplies.ID, f.Checking.ID, "1.00")
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				err := s.View(ctx, func(r store.Reader) error {
					lines, err := r.Lines(ctx, store.LineQuery{})
					if err != nil {
						return err
					}
					// Never a half-written entry.
					if !model.SumDeltas(lines).IsZero() {
						return errors.New("observed unbalanced snapshot")
					}
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}
