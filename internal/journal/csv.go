package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
)

// Header is the CSV header for journal.csv. Each row is one line; entry
// columns repeat on every line of the entry.
const Header = "entry_ref,date,memo,reference,created_at,updated_at,version,line_id,account_id,debit,credit,main,detail"

const (
	numFields    = 13
	colRef       = 0
	colDate      = 1
	colMemo      = 2
	colReference = 3
	colCreated   = 4
	colUpdated   = 5
	colVersion   = 6
	colLineID    = 7
	colAcctID    = 8
	colDebit     = 9
	colCredit    = 10
	colMain      = 11
	colDetail    = 12
)

// ReadEntries reads all entries from a journal.csv reader. Rows of one entry
// must be contiguous.
func ReadEntries(r io.Reader) ([]model.Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var entries []model.Entry
	for i, rec := range records[1:] {
		e, l, err := UnmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if n := len(entries); n > 0 && entries[n-1].ID == e.ID && entries[n-1].Kind == e.Kind {
			entries[n-1].Lines = append(entries[n-1].Lines, l)
			continue
		}
		e.Lines = []model.Line{l}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteEntries writes entries to a journal.csv writer (including header).
func WriteEntries(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, e := range entries {
		for _, l := range e.Lines {
			if err := cw.Write(MarshalLine(e, l)); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalLine converts one line of e to a CSV row.
func MarshalLine(e model.Entry, l model.Line) []string {
	row := make([]string, numFields)
	row[colRef] = id.FormatEntryRef(e.Kind, e.ID)
	row[colDate] = e.Date.Format(model.DateFormat)
	row[colMemo] = e.Memo
	row[colReference] = e.Reference
	row[colCreated] = e.CreatedAt.UTC().Format(time.RFC3339)
	row[colUpdated] = e.UpdatedAt.UTC().Format(time.RFC3339)
	row[colVersion] = strconv.FormatInt(e.Version, 10)
	row[colLineID] = strconv.FormatInt(l.ID, 10)
	row[colAcctID] = strconv.FormatInt(l.AccountID, 10)

	if debit := l.Debit(); !debit.IsZero() {
		row[colDebit] = debit.StringFixed(2)
	}
	if credit := l.Credit(); !credit.IsZero() {
		row[colCredit] = credit.StringFixed(2)
	}

	if l.Main {
		row[colMain] = "true"
	}
	row[colDetail] = l.Detail
	return row
}

// UnmarshalLine converts a CSV row to its entry header and line. The
// returned entry has no lines.
func UnmarshalLine(record []string) (model.Entry, model.Line, error) {
	if len(record) != numFields {
		return model.Entry{}, model.Line{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	kind, entryID, err := id.ParseEntryRef(record[colRef])
	if err != nil {
		return model.Entry{}, model.Line{}, err
	}

	date, err := model.ParseDay(record[colDate])
	if err != nil {
		return model.Entry{}, model.Line{}, err
	}

	created, err := time.Parse(time.RFC3339, record[colCreated])
	if err != nil {
		return model.Entry{}, model.Line{}, fmt.Errorf("parsing created_at %q: %w", record[colCreated], err)
	}
	updated, err := time.Parse(time.RFC3339, record[colUpdated])
	if err != nil {
		return model.Entry{}, model.Line{}, fmt.Errorf("parsing updated_at %q: %w", record[colUpdated], err)
	}

	version, err := strconv.ParseInt(record[colVersion], 10, 64)
	if err != nil {
		return model.Entry{}, model.Line{}, fmt.Errorf("parsing version %q: %w", record[colVersion], err)
	}

	lineID, err := strconv.ParseInt(record[colLineID], 10, 64)
	if err != nil {
		return model.Entry{}, model.Line{}, fmt.Errorf("parsing line_id %q: %w", record[colLineID], err)
	}

	accountID, err := strconv.ParseInt(record[colAcctID], 10, 64)
	if err != nil {
		return model.Entry{}, model.Line{}, fmt.Errorf("parsing account_id %q: %w", record[colAcctID], err)
	}

	var debit, credit decimal.Decimal
	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return model.Entry{}, model.Line{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}
	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return model.Entry{}, model.Line{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}
	if debit.IsZero() == credit.IsZero() {
		return model.Entry{}, model.Line{}, fmt.Errorf("line %d must have exactly one of debit or credit", lineID)
	}

	var main bool
	if record[colMain] != "" {
		main, err = strconv.ParseBool(record[colMain])
		if err != nil {
			return model.Entry{}, model.Line{}, fmt.Errorf("parsing main %q: %w", record[colMain], err)
		}
	}

	e := model.Entry{
		ID:        entryID,
		Kind:      kind,
		Date:      date,
		Memo:      record[colMemo],
		Reference: record[colReference],
		CreatedAt: created,
		UpdatedAt: updated,
		Version:   version,
	}
	l := model.Line{
		ID:        lineID,
		EntryID:   entryID,
		AccountID: accountID,
		Delta:     credit.Sub(debit),
		Detail:    record[colDetail],
		Main:      main,
	}
	return e, l, nil
}
