package balance

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

// Checkpoint is an account's raw (unflipped) balance at the end of Month, as
// read from the store at Revision.
type Checkpoint struct {
	Month    model.Month
	Revision int64
	Balance  decimal.Decimal
}

// Watermark records the earliest month a write has changed for an account
// and the revision of the latest such write. A zero Revision means the
// account has never been invalidated.
type Watermark struct {
	From     model.Month
	Revision int64
}

// Usable reports whether c can seed a balance for a reader at snapshot
// revision rev.
func (w Watermark) Usable(c Checkpoint, rev int64) bool {
	if w.Revision == 0 || c.Month < w.From {
		return true
	}
	return w.Revision <= c.Revision && w.Revision <= rev
}

// merge folds an invalidation into the watermark.
func (w Watermark) merge(from model.Month, rev int64) Watermark {
	if w.Revision == 0 || from < w.From {
		w.From = from
	}
	if rev > w.Revision {
		w.Revision = rev
	}
	return w
}

// stale reports whether a checkpoint computed at c.Revision predates a write
// that changed its month.
func (w Watermark) stale(c Checkpoint) bool {
	return w.Revision != 0 && c.Month >= w.From && c.Revision < w.Revision
}

// CheckpointCache stores month-end checkpoints per account. Implementations
// must be safe for concurrent use.
type CheckpointCache interface {
	// Nearest returns the latest checkpoint at or before m and the account's
	// current watermark. ok is false if there is none.
	Nearest(ctx context.Context, accountID int64, m model.Month) (c Checkpoint, wm Watermark, ok bool, err error)
	// Put stores c unless a later write has already made it stale.
	Put(ctx context.Context, accountID int64, c Checkpoint) error
	// Invalidate drops checkpoints at or after from and advances the
	// watermark to revision.
	Invalidate(ctx context.Context, accountID int64, from model.Month, revision int64) error
}

// MemoryCache is an in-process CheckpointCache.
type MemoryCache struct {
	mu       sync.Mutex
	accounts map[int64]*memoryAccount
}

type memoryAccount struct {
	points []Checkpoint // sorted by Month
	wm     Watermark
}

var _ CheckpointCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{accounts: make(map[int64]*memoryAccount)}
}

func (c *MemoryCache) Nearest(_ context.Context, accountID int64, m model.Month) (Checkpoint, Watermark, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.accounts[accountID]
	if a == nil {
		return Checkpoint{}, Watermark{}, false, nil
	}
	i := sort.Search(len(a.points), func(i int) bool { return a.points[i].Month > m })
	if i == 0 {
		return Checkpoint{}, a.wm, false, nil
	}
	return a.points[i-1], a.wm, true, nil
}

func (c *MemoryCache) Put(_ context.Context, accountID int64, cp Checkpoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.account(accountID)
	if a.wm.stale(cp) {
		return nil
	}
	i := sort.Search(len(a.points), func(i int) bool { return a.points[i].Month >= cp.Month })
	if i < len(a.points) && a.points[i].Month == cp.Month {
		if a.points[i].Revision <= cp.Revision {
			a.points[i] = cp
		}
		return nil
	}
	a.points = append(a.points, Checkpoint{})
	copy(a.points[i+1:], a.points[i:])
	a.points[i] = cp
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, accountID int64, from model.Month, revision int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.account(accountID)
	a.wm = a.wm.merge(from, revision)
	i := sort.Search(len(a.points), func(i int) bool { return a.points[i].Month >= from })
	a.points = a.points[:i]
	return nil
}

// Len returns the number of checkpoints held for an account.
func (c *MemoryCache) Len(accountID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a := c.accounts[accountID]; a != nil {
		return len(a.points)
	}
	return 0
}

func (c *MemoryCache) account(id int64) *memoryAccount {
	a := c.accounts[id]
	if a == nil {
		a = &memoryAccount{}
		c.accounts[id] = a
	}
	return a
}
