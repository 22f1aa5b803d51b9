// Package memstore is an in-memory ledger store built on copy-on-write
// snapshots. Writers are serialized; readers take the current snapshot and
// never block or observe a partial write.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Data is a full copy of the ledger contents.
type Data struct {
	Headers  []model.Header  // ordered by ID
	Accounts []model.Account // ordered by ID
	Entries  []model.Entry   // ordered by ID, lines ordered by ID
}

// Changes reports which parts of the ledger a commit touched.
type Changes struct {
	Chart   bool // headers or accounts
	Journal bool // entries or lines
}

// CommitHook persists a snapshot before it becomes visible. Returning an
// error aborts the commit.
type CommitHook func(ctx context.Context, data Data, changes Changes) error

// Option configures a Store.
type Option func(*Store)

// WithCommitHook registers a hook run for every successful Update.
func WithCommitHook(h CommitHook) Option {
	return func(s *Store) { s.hook = h }
}

// Store is an in-memory store.Store.
type Store struct {
	mu   sync.Mutex // serializes writers
	cur  atomic.Pointer[snapshot]
	hook CommitHook
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{}
	for _, o := range opts {
		o(s)
	}
	s.cur.Store(newSnapshot())
	return s
}

// NewFromData creates a Store seeded with data. IDs are preserved; new
// records continue after the highest ID seen.
func NewFromData(data Data, opts ...Option) (*Store, error) {
	snap := newSnapshot()
	for _, h := range data.Headers {
		if h.ID <= 0 {
			return nil, fmt.Errorf("header %q has no ID", h.Name)
		}
		snap.headers[h.ID] = h
		snap.nextHeader = max(snap.nextHeader, h.ID)
	}
	for _, a := range data.Accounts {
		if a.ID <= 0 {
			return nil, fmt.Errorf("account %q has no ID", a.Name)
		}
		snap.accounts[a.ID] = a
		snap.nextAccount = max(snap.nextAccount, a.ID)
	}
	for _, e := range data.Entries {
		if e.ID <= 0 {
			return nil, fmt.Errorf("entry dated %s has no ID", e.Date.Format(model.DateFormat))
		}
		e.Lines = append([]model.Line(nil), e.Lines...)
		for i := range e.Lines {
			e.Lines[i].EntryID = e.ID
			snap.nextLine = max(snap.nextLine, e.Lines[i].ID)
		}
		snap.entries[e.ID] = e
		snap.nextEntry = max(snap.nextEntry, e.ID)
	}

	s := &Store{}
	for _, o := range opts {
		o(s)
	}
	s.cur.Store(snap)
	return s, nil
}

// View runs fn against the current snapshot.
func (s *Store) View(ctx context.Context, fn func(r store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.cur.Load())
}

// Update runs fn against a private copy of the current snapshot and publishes
// the copy only if fn and the commit hook succeed.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.cur.Load()
	tx := &txn{snapshot: base.clone()}
	tx.rev = base.rev + 1

	if err := fn(tx); err != nil {
		return err
	}
	if !tx.changes.Chart && !tx.changes.Journal {
		return nil
	}
	if s.hook != nil {
		if err := s.hook(ctx, tx.snapshot.data(), tx.changes); err != nil {
			return store.Wrap("commit", err)
		}
	}
	s.cur.Store(tx.snapshot)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Data returns a copy of the committed contents.
func (s *Store) Data() Data {
	return s.cur.Load().data()
}

type snapshot struct {
	rev      int64
	headers  map[int64]model.Header
	accounts map[int64]model.Account
	entries  map[int64]model.Entry

	nextHeader, nextAccount, nextEntry, nextLine int64
}

func newSnapshot() *snapshot {
	return &snapshot{
		headers:  make(map[int64]model.Header),
		accounts: make(map[int64]model.Account),
		entries:  make(map[int64]model.Entry),
	}
}

// clone copies the maps. Entry line slices are shared; writers always
// replace them instead of mutating in place.
func (s *snapshot) clone() *snapshot {
	c := *s
	c.headers = make(map[int64]model.Header, len(s.headers))
	for k, v := range s.headers {
		c.headers[k] = v
	}
	c.accounts = make(map[int64]model.Account, len(s.accounts))
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	c.entries = make(map[int64]model.Entry, len(s.entries))
	for k, v := range s.entries {
		c.entries[k] = v
	}
	return &c
}

func (s *snapshot) data() Data {
	var d Data
	for _, h := range s.headers {
		d.Headers = append(d.Headers, h)
	}
	sort.Slice(d.Headers, func(i, j int) bool { return d.Headers[i].ID < d.Headers[j].ID })
	for _, a := range s.accounts {
		d.Accounts = append(d.Accounts, a)
	}
	sort.Slice(d.Accounts, func(i, j int) bool { return d.Accounts[i].ID < d.Accounts[j].ID })
	for _, e := range s.entries {
		e.Lines = append([]model.Line(nil), e.Lines...)
		d.Entries = append(d.Entries, e)
	}
	sort.Slice(d.Entries, func(i, j int) bool { return d.Entries[i].ID < d.Entries[j].ID })
	return d
}
