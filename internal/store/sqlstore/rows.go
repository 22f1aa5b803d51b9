package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/model"
)

type headerRow struct {
	ID       int64  `gorm:"primaryKey"`
	Name     string `gorm:"size:100;not null"`
	Slug     string `gorm:"size:120;not null;uniqueIndex"`
	ParentID *int64 `gorm:"index"`
	Type     string `gorm:"size:20;not null"`
}

func (headerRow) TableName() string { return "ledger_headers" }

type accountRow struct {
	ID       int64  `gorm:"primaryKey"`
	Name     string `gorm:"size:100;not null"`
	Slug     string `gorm:"size:120;not null;uniqueIndex"`
	HeaderID int64  `gorm:"not null;index"`
	Type     string `gorm:"size:20;not null"`
	Bank     bool   `gorm:"not null;default:false"`
}

func (accountRow) TableName() string { return "ledger_accounts" }

// entryRow avoids the CreatedAt/UpdatedAt field names so gorm leaves the
// timestamps to the caller.
type entryRow struct {
	ID        int64     `gorm:"primaryKey"`
	Kind      string    `gorm:"size:2;not null;index"`
	Date      time.Time `gorm:"type:date;not null;index"`
	Memo      string    `gorm:"size:500"`
	Reference string    `gorm:"size:100;index"`
	Created   time.Time `gorm:"column:created_at;not null"`
	Updated   time.Time `gorm:"column:updated_at;not null"`
	Version   int64     `gorm:"not null"`
}

func (entryRow) TableName() string { return "ledger_entries" }

type lineRow struct {
	ID        int64           `gorm:"primaryKey"`
	EntryID   int64           `gorm:"not null;index"`
	AccountID int64           `gorm:"not null;index"`
	Delta     decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Detail    string          `gorm:"size:500"`
	Main      bool            `gorm:"not null;default:false"`
}

func (lineRow) TableName() string { return "ledger_lines" }

// revisionRow is a single-row counter bumped by every write transaction.
type revisionRow struct {
	ID       int64 `gorm:"primaryKey;autoIncrement:false"`
	Revision int64 `gorm:"not null"`
}

func (revisionRow) TableName() string { return "ledger_revisions" }

// lineView is a line joined with its entry's kind and date.
type lineView struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Delta     decimal.Decimal
	Detail    string
	Main      bool
	Kind      string
	Date      time.Time
}

func headerFromRow(r headerRow) model.Header {
	h := model.Header{ID: r.ID, Name: r.Name, Slug: r.Slug, Type: model.AccountType(r.Type)}
	if r.ParentID != nil {
		h.ParentID = *r.ParentID
	}
	return h
}

func headerToRow(h model.Header) headerRow {
	r := headerRow{ID: h.ID, Name: h.Name, Slug: h.Slug, Type: string(h.Type)}
	if h.ParentID != 0 {
		parent := h.ParentID
		r.ParentID = &parent
	}
	return r
}

func accountFromRow(r accountRow) model.Account {
	return model.Account{ID: r.ID, Name: r.Name, Slug: r.Slug, HeaderID: r.HeaderID, Type: model.AccountType(r.Type), Bank: r.Bank}
}

func accountToRow(a model.Account) accountRow {
	return accountRow{ID: a.ID, Name: a.Name, Slug: a.Slug, HeaderID: a.HeaderID, Type: string(a.Type), Bank: a.Bank}
}

func entryFromRow(r entryRow) model.Entry {
	return model.Entry{
		ID:        r.ID,
		Kind:      model.EntryKind(r.Kind),
		Date:      model.Day(r.Date),
		Memo:      r.Memo,
		Reference: r.Reference,
		CreatedAt: r.Created.UTC(),
		UpdatedAt: r.Updated.UTC(),
		Version:   r.Version,
	}
}

func entryToRow(e model.Entry) entryRow {
	return entryRow{
		ID:        e.ID,
		Kind:      string(e.Kind),
		Date:      model.Day(e.Date),
		Memo:      e.Memo,
		Reference: e.Reference,
		Created:   e.CreatedAt.UTC(),
		Updated:   e.UpdatedAt.UTC(),
		Version:   e.Version,
	}
}

func lineFromView(v lineView) model.Line {
	return model.Line{
		ID:        v.ID,
		EntryID:   v.EntryID,
		AccountID: v.AccountID,
		Delta:     v.Delta,
		Detail:    v.Detail,
		Main:      v.Main,
		Kind:      model.EntryKind(v.Kind),
		Date:      model.Day(v.Date),
	}
}
