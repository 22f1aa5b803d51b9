package journal

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
)

func sampleEntries() []model.Entry {
	created := time.Date(2024, 1, 20, 14, 0, 0, 0, time.UTC)
	return []model.Entry{
		{
			ID: 1, Kind: model.KindBankSpend, Date: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
			Memo: "Staples, Inc.", Reference: "chk-1042", CreatedAt: created, UpdatedAt: created, Version: 1,
			Lines: []model.Line{
				{ID: 1, EntryID: 1, AccountID: 1, Delta: dec("-50.00"), Detail: "Staples, Inc.", Main: true},
				{ID: 2, EntryID: 1, AccountID: 9, Delta: dec("50.00"), Detail: "paper \"A4\""},
			},
		},
		{
			ID: 2, Kind: model.KindJournal, Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			Memo: "accrual", CreatedAt: created, UpdatedAt: created.Add(time.Hour), Version: 3,
			Lines: []model.Line{
				{ID: 3, EntryID: 2, AccountID: 12, Delta: dec("-120.5")},
				{ID: 4, EntryID: 2, AccountID: 3, Delta: dec("120.5")},
			},
		},
	}
}

func TestWriteReadEntries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, sampleEntries()))

	got, err := ReadEntries(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	want := sampleEntries()
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Kind, got[i].Kind)
		assert.True(t, want[i].Date.Equal(got[i].Date))
		assert.Equal(t, want[i].Memo, got[i].Memo)
		assert.Equal(t, want[i].Reference, got[i].Reference)
		assert.Equal(t, want[i].Version, got[i].Version)
		assert.True(t, want[i].UpdatedAt.Equal(got[i].UpdatedAt))
		require.Len(t, got[i].Lines, len(want[i].Lines))
		for j, l := range want[i].Lines {
			assert.Equal(t, l.ID, got[i].Lines[j].ID)
			assert.Equal(t, l.Main, got[i].Lines[j].Main)
			assert.Equal(t, l.Detail, got[i].Lines[j].Detail)
			assert.True(t, l.Delta.Equal(got[i].Lines[j].Delta), "entry %d line %d", i, j)
		}
	}
	assert.True(t, got[1].Edited())
}

func TestWriteEntries_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, sampleEntries()))

	rows := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, rows, 5)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, `CD-1,2024-01-20,"Staples, Inc.",chk-1042,2024-01-20T14:00:00Z,2024-01-20T14:00:00Z,1,1,1,50.00,,true,"Staples, Inc."`, rows[1])
	assert.Equal(t, "GJ-2,2024-01-31,accrual,,2024-01-20T14:00:00Z,2024-01-20T15:00:00Z,3,4,3,,120.50,,", rows[4])
}

type failWriter struct{ err error }

func (w failWriter) Write([]byte) (int, error) { return 0, w.err }

func TestWriteEntries_ReportsFlushError(t *testing.T) {
	errDisk := errors.New("disk full")
	err := WriteEntries(failWriter{errDisk}, sampleEntries())
	assert.ErrorIs(t, err, errDisk)
}

func TestReadEntries_Empty(t *testing.T) {
	got, err := ReadEntries(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ReadEntries(strings.NewReader(Header + "\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnmarshalLine_Errors(t *testing.T) {
	valid := MarshalLine(sampleEntries()[1], sampleEntries()[1].Lines[0])
	tests := []struct {
		name  string
		col   int
		value string
	}{
		{"bad ref", colRef, "XX-1"},
		{"bad date", colDate, "2024-13-01"},
		{"bad created", colCreated, "yesterday"},
		{"bad version", colVersion, "v1"},
		{"bad line id", colLineID, "one"},
		{"bad account", colAcctID, "checking"},
		{"bad debit", colDebit, "12..0"},
		{"bad main", colMain, "maybe"},
		{"both sides", colCredit, "5.00"},
		{"no side", colDebit, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := append([]string(nil), valid...)
			rec[tt.col] = tt.value
			_, _, err := UnmarshalLine(rec)
			assert.Error(t, err)
		})
	}

	_, _, err := UnmarshalLine(valid[:5])
	assert.ErrorContains(t, err, "expected 13 fields")
}

func TestReadEntries_ReportsRow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEntries(&buf, sampleEntries()))
	corrupt := strings.Replace(buf.String(), "GJ-2,2024-01-31", "GJ-2,2024-01-32", 1)

	_, err := ReadEntries(strings.NewReader(corrupt))
	assert.ErrorContains(t, err, "row 4")
}
