package sqlstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

var (
	_ store.Reader = (*reader)(nil)
	_ store.Tx     = (*writer)(nil)
)

type reader struct {
	db  *gorm.DB
	rev int64
}

func (r *reader) Revision() int64 { return r.rev }

func (r *reader) Headers(_ context.Context) ([]model.Header, error) {
	var rows []headerRow
	if err := r.db.Order("id").Find(&rows).Error; err != nil {
		return nil, store.Wrap("list headers", err)
	}
	out := make([]model.Header, len(rows))
	for i, row := range rows {
		out[i] = headerFromRow(row)
	}
	return out, nil
}

func (r *reader) Header(_ context.Context, id int64) (model.Header, error) {
	var row headerRow
	if err := r.db.First(&row, id).Error; err != nil {
		if isNotFound(err) {
			return model.Header{}, store.NotFound("header", id)
		}
		return model.Header{}, store.Wrap("get header", err)
	}
	return headerFromRow(row), nil
}

func (r *reader) HeaderBySlug(_ context.Context, slug string) (model.Header, error) {
	var row headerRow
	if err := r.db.Where("slug = ?", slug).First(&row).Error; err != nil {
		if isNotFound(err) {
			return model.Header{}, store.NotFoundSlug("header", slug)
		}
		return model.Header{}, store.Wrap("get header", err)
	}
	return headerFromRow(row), nil
}

func (r *reader) Accounts(_ context.Context) ([]model.Account, error) {
	var rows []accountRow
	if err := r.db.Order("id").Find(&rows).Error; err != nil {
		return nil, store.Wrap("list accounts", err)
	}
	out := make([]model.Account, len(rows))
	for i, row := range rows {
		out[i] = accountFromRow(row)
	}
	return out, nil
}

func (r *reader) Account(_ context.Context, id int64) (model.Account, error) {
	var row accountRow
	if err := r.db.First(&row, id).Error; err != nil {
		if isNotFound(err) {
			return model.Account{}, store.NotFound("account", id)
		}
		return model.Account{}, store.Wrap("get account", err)
	}
	return accountFromRow(row), nil
}

func (r *reader) AccountBySlug(_ context.Context, slug string) (model.Account, error) {
	var row accountRow
	if err := r.db.Where("slug = ?", slug).First(&row).Error; err != nil {
		if isNotFound(err) {
			return model.Account{}, store.NotFoundSlug("account", slug)
		}
		return model.Account{}, store.Wrap("get account", err)
	}
	return accountFromRow(row), nil
}

func (r *reader) AccountInUse(_ context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.Model(&lineRow{}).Where("account_id = ?", id).Count(&n).Error; err != nil {
		return false, store.Wrap("count lines", err)
	}
	return n > 0, nil
}

func (r *reader) Entry(ctx context.Context, id int64) (model.Entry, error) {
	var row entryRow
	if err := r.db.First(&row, id).Error; err != nil {
		if isNotFound(err) {
			return model.Entry{}, store.NotFound("entry", id)
		}
		return model.Entry{}, store.Wrap("get entry", err)
	}
	entries, err := r.withLines(ctx, []entryRow{row})
	if err != nil {
		return model.Entry{}, err
	}
	return entries[0], nil
}

func (r *reader) Entries(ctx context.Context, f store.EntryFilter) ([]model.Entry, error) {
	q := r.db.Model(&entryRow{})
	if f.Kind != "" {
		q = q.Where("kind = ?", string(f.Kind))
	}
	if !f.From.IsZero() {
		q = q.Where("date >= ?", model.Day(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", model.Day(f.To))
	}
	if f.Reference != "" {
		q = q.Where("reference = ?", f.Reference)
	}

	var rows []entryRow
	if err := q.Order("date").Order("id").Find(&rows).Error; err != nil {
		return nil, store.Wrap("list entries", err)
	}
	return r.withLines(ctx, rows)
}

// withLines loads the lines of rows and returns them as entries in order.
func (r *reader) withLines(_ context.Context, rows []entryRow) ([]model.Entry, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var lines []lineRow
	if err := r.db.Where("entry_id IN ?", ids).Order("id").Find(&lines).Error; err != nil {
		return nil, store.Wrap("list lines", err)
	}
	byEntry := make(map[int64][]lineRow, len(rows))
	for _, l := range lines {
		byEntry[l.EntryID] = append(byEntry[l.EntryID], l)
	}

	out := make([]model.Entry, len(rows))
	for i, row := range rows {
		e := entryFromRow(row)
		for _, l := range byEntry[row.ID] {
			e.Lines = append(e.Lines, model.Line{
				ID:        l.ID,
				EntryID:   e.ID,
				AccountID: l.AccountID,
				Delta:     l.Delta,
				Detail:    l.Detail,
				Main:      l.Main,
				Kind:      e.Kind,
				Date:      e.Date,
			})
		}
		out[i] = e
	}
	return out, nil
}

// lineQuery joins lines to their entries so every variant is covered by one
// query.
func (r *reader) lineQuery(q store.LineQuery) *gorm.DB {
	db := r.db.Table("ledger_lines AS l").
		Joins("JOIN ledger_entries AS e ON e.id = l.entry_id")
	if q.AccountID != 0 {
		db = db.Where("l.account_id = ?", q.AccountID)
	}
	if !q.From.IsZero() {
		db = db.Where("e.date >= ?", model.Day(q.From))
	}
	if !q.To.IsZero() {
		db = db.Where("e.date <= ?", model.Day(q.To))
	}
	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = string(k)
		}
		db = db.Where("e.kind IN ?", kinds)
	}
	if q.MainOnly {
		db = db.Where("l.main = ?", true)
	}
	return db
}

func (r *reader) Lines(_ context.Context, q store.LineQuery) ([]model.Line, error) {
	var views []lineView
	err := r.lineQuery(q).
		Select("l.id, l.entry_id, l.account_id, l.delta, l.detail, l.main, e.kind, e.date").
		Order("e.date").Order("l.id").
		Scan(&views).Error
	if err != nil {
		return nil, store.Wrap("list lines", err)
	}
	out := make([]model.Line, len(views))
	for i, v := range views {
		out[i] = lineFromView(v)
	}
	return out, nil
}

func (r *reader) SumLines(_ context.Context, q store.LineQuery) (decimal.Decimal, error) {
	var sum decimal.Decimal
	row := r.lineQuery(q).Select("COALESCE(SUM(l.delta), 0)").Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, store.Wrap("sum lines", err)
	}
	return sum, nil
}

type writer struct {
	reader
	dirty bool
}

func (w *writer) PutHeader(ctx context.Context, h *model.Header) error {
	if h.ParentID != 0 {
		if _, err := w.Header(ctx, h.ParentID); err != nil {
			return err
		}
	}
	row := headerToRow(*h)
	if h.ID == 0 {
		if err := w.db.Create(&row).Error; err != nil {
			return store.Wrap("create header", err)
		}
		h.ID = row.ID
	} else {
		if _, err := w.Header(ctx, h.ID); err != nil {
			return err
		}
		if err := w.db.Save(&row).Error; err != nil {
			return store.Wrap("update header", err)
		}
	}
	w.dirty = true
	return nil
}

func (w *writer) DeleteHeader(_ context.Context, id int64) error {
	res := w.db.Delete(&headerRow{}, id)
	if res.Error != nil {
		return store.Wrap("delete header", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.NotFound("header", id)
	}
	w.dirty = true
	return nil
}

func (w *writer) PutAccount(ctx context.Context, a *model.Account) error {
	if _, err := w.Header(ctx, a.HeaderID); err != nil {
		return err
	}
	row := accountToRow(*a)
	if a.ID == 0 {
		if err := w.db.Create(&row).Error; err != nil {
			return store.Wrap("create account", err)
		}
		a.ID = row.ID
	} else {
		if _, err := w.Account(ctx, a.ID); err != nil {
			return err
		}
		if err := w.db.Save(&row).Error; err != nil {
			return store.Wrap("update account", err)
		}
	}
	w.dirty = true
	return nil
}

func (w *writer) DeleteAccount(_ context.Context, id int64) error {
	res := w.db.Delete(&accountRow{}, id)
	if res.Error != nil {
		return store.Wrap("delete account", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.NotFound("account", id)
	}
	w.dirty = true
	return nil
}

func (w *writer) PutEntry(ctx context.Context, e *model.Entry) error {
	if err := w.checkAccounts(e.Lines); err != nil {
		return err
	}

	owned := make(map[int64]bool)
	if e.ID != 0 {
		var stored entryRow
		if err := w.db.First(&stored, e.ID).Error; err != nil {
			if isNotFound(err) {
				return store.NotFound("entry", e.ID)
			}
			return store.Wrap("get entry", err)
		}
		if stored.Version != e.Version {
			return &store.ConcurrentModificationError{EntryID: e.ID, Expected: e.Version, Actual: stored.Version}
		}

		var ids []int64
		if err := w.db.Model(&lineRow{}).Where("entry_id = ?", e.ID).Pluck("id", &ids).Error; err != nil {
			return store.Wrap("list lines", err)
		}
		for _, id := range ids {
			owned[id] = true
		}
	}
	kept := make(map[int64]bool)
	for _, l := range e.Lines {
		if l.ID == 0 {
			continue
		}
		if !owned[l.ID] {
			return store.Wrap("put entry", fmt.Errorf("line #%d does not belong to entry #%d", l.ID, e.ID))
		}
		kept[l.ID] = true
	}

	if e.ID == 0 {
		e.Version = 1
		row := entryToRow(*e)
		if err := w.db.Create(&row).Error; err != nil {
			return store.Wrap("create entry", err)
		}
		e.ID = row.ID
	} else {
		row := entryToRow(*e)
		res := w.db.Model(&entryRow{}).
			Where("id = ? AND version = ?", e.ID, e.Version).
			Updates(map[string]any{
				"kind":       row.Kind,
				"date":       row.Date,
				"memo":       row.Memo,
				"reference":  row.Reference,
				"created_at": row.Created,
				"updated_at": row.Updated,
				"version":    e.Version + 1,
			})
		if res.Error != nil {
			return store.Wrap("update entry", res.Error)
		}
		if res.RowsAffected == 0 {
			return &store.ConcurrentModificationError{EntryID: e.ID, Expected: e.Version, Actual: e.Version + 1}
		}
		e.Version++
	}

	var stale []int64
	for id := range owned {
		if !kept[id] {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := w.db.Where("id IN ?", stale).Delete(&lineRow{}).Error; err != nil {
			return store.Wrap("delete lines", err)
		}
	}

	for i := range e.Lines {
		l := &e.Lines[i]
		row := lineRow{ID: l.ID, EntryID: e.ID, AccountID: l.AccountID, Delta: l.Delta, Detail: l.Detail, Main: l.Main}
		if l.ID == 0 {
			if err := w.db.Create(&row).Error; err != nil {
				return store.Wrap("create line", err)
			}
			l.ID = row.ID
		} else if err := w.db.Save(&row).Error; err != nil {
			return store.Wrap("update line", err)
		}
		l.EntryID = e.ID
		l.Kind = e.Kind
		l.Date = model.Day(e.Date)
	}
	sort.Slice(e.Lines, func(i, j int) bool { return e.Lines[i].ID < e.Lines[j].ID })

	w.dirty = true
	return nil
}

func (w *writer) DeleteEntry(_ context.Context, id int64) error {
	if err := w.db.Where("entry_id = ?", id).Delete(&lineRow{}).Error; err != nil {
		return store.Wrap("delete lines", err)
	}
	res := w.db.Delete(&entryRow{}, id)
	if res.Error != nil {
		return store.Wrap("delete entry", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.NotFound("entry", id)
	}
	w.dirty = true
	return nil
}

func (w *writer) checkAccounts(lines []model.Line) error {
	want := make(map[int64]bool)
	for _, l := range lines {
		want[l.AccountID] = true
	}
	if len(want) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(want))
	for id := range want {
		ids = append(ids, id)
	}

	var found []int64
	if err := w.db.Model(&accountRow{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return store.Wrap("check accounts", err)
	}
	for _, id := range found {
		delete(want, id)
	}
	for id := range want {
		return store.NotFound("account", id)
	}
	return nil
}
