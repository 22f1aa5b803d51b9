package accounts

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/model"
)

func TestHeadersRoundTrip(t *testing.T) {
	headers := []model.Header{
		{ID: 1, Name: "Assets", Slug: "assets", Type: model.AccountTypeAsset},
		{ID: 2, Name: "Cash", Slug: "cash", ParentID: 1, Type: model.AccountTypeAsset},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteHeaders(&buf, headers))

	got, err := ReadHeaders(&buf)
	require.NoError(t, err)
	assert.Equal(t, headers, got)
}

func TestAccountsRoundTrip(t *testing.T) {
	accounts := []model.Account{
		{ID: 1, Name: "Business Checking", Slug: "business-checking", HeaderID: 2, Type: model.AccountTypeAsset, Bank: true},
		{ID: 2, Name: "Software & SaaS", Slug: "software-saas", HeaderID: 5, Type: model.AccountTypeExpense},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAccounts(&buf, accounts))

	got, err := ReadAccounts(&buf)
	require.NoError(t, err)
	assert.Equal(t, accounts, got)
}

func TestRootHeaderHasEmptyParent(t *testing.T) {
	row := MarshalHeader(model.Header{ID: 1, Name: "Assets", Slug: "assets", Type: model.AccountTypeAsset})
	assert.Equal(t, "", row[colHeaderParent])

	h, err := UnmarshalHeader(row)
	require.NoError(t, err)
	assert.True(t, h.IsRoot())
}

func TestUnmarshalAccount_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
	}{
		{"short row", []string{"1", "Cash"}},
		{"bad id", []string{"x", "Cash", "cash", "1", "asset", ""}},
		{"bad header", []string{"1", "Cash", "cash", "", "asset", ""}},
		{"bad type", []string{"1", "Cash", "cash", "1", "money", ""}},
		{"bad bank flag", []string{"1", "Cash", "cash", "1", "asset", "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalAccount(tt.record)
			assert.Error(t, err)
		})
	}
}

func TestReadHeaders_Empty(t *testing.T) {
	got, err := ReadHeaders(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadTestdata(t *testing.T) {
	f, err := os.Open("../../testdata/chart-of-accounts.csv")
	require.NoError(t, err)
	defer f.Close()

	accounts, err := ReadAccounts(f)
	require.NoError(t, err)
	require.Len(t, accounts, 12, "default chart has 12 accounts")

	banks := 0
	for _, a := range accounts {
		if a.Bank {
			banks++
		}
	}
	assert.Equal(t, 2, banks)
}
