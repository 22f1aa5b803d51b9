package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

var (
	_ store.Reader = (*snapshot)(nil)
	_ store.Tx     = (*txn)(nil)
)

func (s *snapshot) Revision() int64 { return s.rev }

func (s *snapshot) Headers(_ context.Context) ([]model.Header, error) {
	out := make([]model.Header, 0, len(s.headers))
	for _, h := range s.headers {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *snapshot) Header(_ context.Context, id int64) (model.Header, error) {
	h, ok := s.headers[id]
	if !ok {
		return model.Header{}, store.NotFound("header", id)
	}
	return h, nil
}

func (s *snapshot) HeaderBySlug(_ context.Context, slug string) (model.Header, error) {
	for _, h := range s.headers {
		if h.Slug == slug {
			return h, nil
		}
	}
	return model.Header{}, store.NotFoundSlug("header", slug)
}

func (s *snapshot) Accounts(_ context.Context) ([]model.Account, error) {
	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *snapshot) Account(_ context.Context, id int64) (model.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, store.NotFound("account", id)
	}
	return a, nil
}

func (s *snapshot) AccountBySlug(_ context.Context, slug string) (model.Account, error) {
	for _, a := range s.accounts {
		if a.Slug == slug {
			return a, nil
		}
	}
	return model.Account{}, store.NotFoundSlug("account", slug)
}

func (s *snapshot) AccountInUse(_ context.Context, id int64) (bool, error) {
	for _, e := range s.entries {
		for _, l := range e.Lines {
			if l.AccountID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *snapshot) Entry(_ context.Context, id int64) (model.Entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return model.Entry{}, store.NotFound("entry", id)
	}
	e.Lines = e.WithLineDates()
	return e, nil
}

func (s *snapshot) Entries(_ context.Context, f store.EntryFilter) ([]model.Entry, error) {
	var out []model.Entry
	for _, e := range s.entries {
		if !f.Matches(e) {
			continue
		}
		e.Lines = e.WithLineDates()
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *snapshot) Lines(_ context.Context, q store.LineQuery) ([]model.Line, error) {
	var out []model.Line
	for _, e := range s.entries {
		for _, l := range e.WithLineDates() {
			if q.Matches(l) {
				out = append(out, l)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *snapshot) SumLines(_ context.Context, q store.LineQuery) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, e := range s.entries {
		for _, l := range e.WithLineDates() {
			if q.Matches(l) {
				total = total.Add(l.Delta)
			}
		}
	}
	return total, nil
}

// txn is a snapshot being written by one Update.
type txn struct {
	*snapshot
	changes Changes
}

func (t *txn) PutHeader(_ context.Context, h *model.Header) error {
	if h.ID == 0 {
		t.nextHeader++
		h.ID = t.nextHeader
	} else if _, ok := t.headers[h.ID]; !ok {
		return store.NotFound("header", h.ID)
	}
	if h.ParentID != 0 {
		if _, ok := t.headers[h.ParentID]; !ok {
			return store.NotFound("header", h.ParentID)
		}
	}
	t.headers[h.ID] = *h
	t.changes.Chart = true
	return nil
}

func (t *txn) DeleteHeader(_ context.Context, id int64) error {
	if _, ok := t.headers[id]; !ok {
		return store.NotFound("header", id)
	}
	delete(t.headers, id)
	t.changes.Chart = true
	return nil
}

func (t *txn) PutAccount(_ context.Context, a *model.Account) error {
	if _, ok := t.headers[a.HeaderID]; !ok {
		return store.NotFound("header", a.HeaderID)
	}
	if a.ID == 0 {
		t.nextAccount++
		a.ID = t.nextAccount
	} else if _, ok := t.accounts[a.ID]; !ok {
		return store.NotFound("account", a.ID)
	}
	t.accounts[a.ID] = *a
	t.changes.Chart = true
	return nil
}

func (t *txn) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := t.accounts[id]; !ok {
		return store.NotFound("account", id)
	}
	delete(t.accounts, id)
	t.changes.Chart = true
	return nil
}

func (t *txn) PutEntry(_ context.Context, e *model.Entry) error {
	var stored model.Entry
	if e.ID != 0 {
		var ok bool
		stored, ok = t.entries[e.ID]
		if !ok {
			return store.NotFound("entry", e.ID)
		}
		if stored.Version != e.Version {
			return &store.ConcurrentModificationError{EntryID: e.ID, Expected: e.Version, Actual: stored.Version}
		}
	}

	owned := make(map[int64]bool, len(stored.Lines))
	for _, l := range stored.Lines {
		owned[l.ID] = true
	}
	for _, l := range e.Lines {
		if _, ok := t.accounts[l.AccountID]; !ok {
			return store.NotFound("account", l.AccountID)
		}
		if l.ID != 0 && !owned[l.ID] {
			return store.Wrap("put entry", fmt.Errorf("line #%d does not belong to entry #%d", l.ID, e.ID))
		}
	}

	if e.ID == 0 {
		t.nextEntry++
		e.ID = t.nextEntry
		e.Version = 0
	}
	e.Version++

	lines := make([]model.Line, len(e.Lines))
	for i, l := range e.Lines {
		if l.ID == 0 {
			t.nextLine++
			l.ID = t.nextLine
		}
		l.EntryID = e.ID
		l.Kind = e.Kind
		l.Date = e.Date
		lines[i] = l
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	e.Lines = lines

	stamped := *e
	stamped.Lines = append([]model.Line(nil), lines...)
	t.entries[e.ID] = stamped
	t.changes.Journal = true
	return nil
}

func (t *txn) DeleteEntry(_ context.Context, id int64) error {
	if _, ok := t.entries[id]; !ok {
		return store.NotFound("entry", id)
	}
	delete(t.entries, id)
	t.changes.Journal = true
	return nil
}
