package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/cleared-dev/ledger/internal/model"
)

const (
	numHeaderFields = 5
	colHeaderID     = 0
	colHeaderName   = 1
	colHeaderSlug   = 2
	colHeaderParent = 3
	colHeaderType   = 4
)

const (
	numFields = 6
	colID     = 0
	colName   = 1
	colSlug   = 2
	colHeader = 3
	colType   = 4
	colBank   = 5
)

// ReadHeaders reads headers.csv.
func ReadHeaders(r io.Reader) ([]model.Header, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numHeaderFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading headers CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var headers []model.Header
	for i, rec := range records[1:] {
		h, err := UnmarshalHeader(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// WriteHeaders writes headers.csv.
func WriteHeaders(w io.Writer, headers []model.Header) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"header_id", "name", "slug", "parent_id", "account_type"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, h := range headers {
		if err := cw.Write(MarshalHeader(h)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalHeader converts a Header to a CSV row.
func MarshalHeader(h model.Header) []string {
	row := make([]string, numHeaderFields)
	row[colHeaderID] = strconv.FormatInt(h.ID, 10)
	row[colHeaderName] = h.Name
	row[colHeaderSlug] = h.Slug
	if h.ParentID != 0 {
		row[colHeaderParent] = strconv.FormatInt(h.ParentID, 10)
	}
	row[colHeaderType] = string(h.Type)
	return row
}

// UnmarshalHeader converts a CSV row to a Header.
func UnmarshalHeader(record []string) (model.Header, error) {
	if len(record) != numHeaderFields {
		return model.Header{}, fmt.Errorf("expected %d fields, got %d", numHeaderFields, len(record))
	}

	id, err := strconv.ParseInt(record[colHeaderID], 10, 64)
	if err != nil {
		return model.Header{}, fmt.Errorf("parsing header_id %q: %w", record[colHeaderID], err)
	}

	var parentID int64
	if record[colHeaderParent] != "" {
		parentID, err = strconv.ParseInt(record[colHeaderParent], 10, 64)
		if err != nil {
			return model.Header{}, fmt.Errorf("parsing parent_id %q: %w", record[colHeaderParent], err)
		}
	}

	t := model.AccountType(record[colHeaderType])
	if !t.Valid() {
		return model.Header{}, fmt.Errorf("unknown account_type %q", record[colHeaderType])
	}

	return model.Header{
		ID:       id,
		Name:     record[colHeaderName],
		Slug:     record[colHeaderSlug],
		ParentID: parentID,
		Type:     t,
	}, nil
}

// ReadAccounts reads chart-of-accounts.csv.
func ReadAccounts(r io.Reader) ([]model.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var accounts []model.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

// WriteAccounts writes chart-of-accounts.csv.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"account_id", "account_name", "slug", "header_id", "account_type", "bank"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		if err := cw.Write(MarshalAccount(acct)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account) []string {
	row := make([]string, numFields)
	row[colID] = strconv.FormatInt(acct.ID, 10)
	row[colName] = acct.Name
	row[colSlug] = acct.Slug
	row[colHeader] = strconv.FormatInt(acct.HeaderID, 10)
	row[colType] = string(acct.Type)
	if acct.Bank {
		row[colBank] = "true"
	}
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (model.Account, error) {
	if len(record) != numFields {
		return model.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := strconv.ParseInt(record[colID], 10, 64)
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing account_id %q: %w", record[colID], err)
	}

	headerID, err := strconv.ParseInt(record[colHeader], 10, 64)
	if err != nil {
		return model.Account{}, fmt.Errorf("parsing header_id %q: %w", record[colHeader], err)
	}

	var bank bool
	if record[colBank] != "" {
		bank, err = strconv.ParseBool(record[colBank])
		if err != nil {
			return model.Account{}, fmt.Errorf("parsing bank %q: %w", record[colBank], err)
		}
	}

	t := model.AccountType(record[colType])
	if !t.Valid() {
		return model.Account{}, fmt.Errorf("unknown account_type %q", record[colType])
	}

	return model.Account{
		ID:       id,
		Name:     record[colName],
		Slug:     record[colSlug],
		HeaderID: headerID,
		Type:     t,
		Bank:     bank,
	}, nil
}
