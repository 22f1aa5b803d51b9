package commands_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedEntries records an owner contribution, a two-line bank spend and a
// transfer to savings, numbered GJ-1, CD-2 and GJ-3.
func seedEntries(t *testing.T, dir string) {
	t.Helper()
	steps := [][]string{
		{"entry", "journal", "--date", "2024-01-02", "--memo", "Owner contribution",
			"--credit", "business-checking=5000", "--debit", "owners-equity=5000"},
		{"entry", "bank", "spend", "--date", "2024-01-10", "--memo", "Staples",
			"--line", "office-supplies=42.17:paper", "--line", "shipping-postage=12.60"},
		{"entry", "transfer", "--date", "2024-02-01", "--memo", "Savings",
			"--from", "business-checking", "--to", "business-savings", "--amount", "1000"},
	}
	for _, args := range steps {
		_, err := runLedger(t, append([]string{"--dir", dir}, args...)...)
		require.NoError(t, err, strings.Join(args, " "))
	}
}

func TestChart(t *testing.T) {
	dir := initLedger(t)

	out, err := runLedger(t, "--dir", dir, "chart")
	require.NoError(t, err)
	assert.Contains(t, out, "Business Checking")
	assert.Contains(t, out, "asset (bank)")
	assert.Less(t, strings.Index(out, "Assets"), strings.Index(out, "Cash"))
	assert.Less(t, strings.Index(out, "Cash"), strings.Index(out, "Liabilities"))

	out, err = runLedger(t, "--dir", dir, "chart", "expenses")
	require.NoError(t, err)
	assert.Contains(t, out, "Operating Expenses")
	assert.Contains(t, out, "Rent Expense")
	assert.NotContains(t, out, "Business Checking")

	_, err = runLedger(t, "--dir", dir, "chart", "no-such-header")
	assert.ErrorContains(t, err, "not found")
}

func TestHeaderAndAccountAdmin(t *testing.T) {
	dir := initLedger(t)

	out, err := runLedger(t, "--dir", dir, "header", "add", "Travel", "--parent", "operating-expenses")
	require.NoError(t, err)
	assert.Contains(t, out, "Added header Travel (travel")

	out, err = runLedger(t, "--dir", dir, "account", "add", "Airfare", "--header", "travel")
	require.NoError(t, err)
	assert.Contains(t, out, "Added account Airfare (airfare")

	out, err = runLedger(t, "--dir", dir, "chart", "travel")
	require.NoError(t, err)
	assert.Contains(t, out, "Airfare")
	assert.Contains(t, out, "expense")

	_, err = runLedger(t, "--dir", dir, "header", "rm", "travel")
	assert.ErrorContains(t, err, "airfare")

	_, err = runLedger(t, "--dir", dir, "header", "edit", "operating-expenses", "--parent", "travel")
	assert.Error(t, err, "moving a header under its own child is a cycle")

	_, err = runLedger(t, "--dir", dir, "account", "edit", "airfare", "--name", "Flights")
	require.NoError(t, err)
	_, err = runLedger(t, "--dir", dir, "account", "rm", "flights")
	require.NoError(t, err)
	_, err = runLedger(t, "--dir", dir, "header", "rm", "travel")
	require.NoError(t, err)

	out, err = runLedger(t, "--dir", dir, "chart")
	require.NoError(t, err)
	assert.NotContains(t, out, "Travel")
}

func TestEntries(t *testing.T) {
	dir := initLedger(t)
	seedEntries(t, dir)

	out, err := runLedger(t, "--dir", dir, "entry", "show", "CD-2")
	require.NoError(t, err)
	assert.Contains(t, out, "CD-2  2024-01-10  Staples")
	assert.Contains(t, out, "Office Supplies")
	assert.Contains(t, out, "paper")
	assert.Contains(t, out, "54.77")

	out, err = runLedger(t, "--dir", dir, "journal", "--from", "2024-01-01", "--to", "2024-12-31", "--kind", "cd")
	require.NoError(t, err)
	assert.Contains(t, out, "CD-2")
	assert.NotContains(t, out, "GJ-1")

	out, err = runLedger(t, "--dir", dir, "journal", "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err)
	assert.Contains(t, out, "GJ-1")
	assert.Contains(t, out, "CD-2")
	assert.NotContains(t, out, "GJ-3")

	_, err = runLedger(t, "--dir", dir, "entry", "show", "CR-2")
	assert.ErrorContains(t, err, "not found")
}

func TestEntryJournal_Unbalanced(t *testing.T) {
	dir := initLedger(t)
	_, err := runLedger(t, "--dir", dir, "entry", "journal", "--date", "2024-01-02",
		"--credit", "business-checking=100", "--debit", "owners-equity=90")
	assert.ErrorContains(t, err, "unbalanced")

	out, err := runLedger(t, "--dir", dir, "journal", "--from", "2024-01-01", "--to", "2024-12-31")
	require.NoError(t, err)
	assert.Contains(t, out, "No entries.")
}

func TestEntryEdit(t *testing.T) {
	dir := initLedger(t)
	seedEntries(t, dir)

	out, err := runLedger(t, "--dir", dir, "entry", "journal", "--id", "1", "--memo", "Capital")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated GJ-1")

	out, err = runLedger(t, "--dir", dir, "entry", "show", "GJ-1")
	require.NoError(t, err)
	assert.Contains(t, out, "GJ-1  2024-01-02  Capital")
	assert.Contains(t, out, "5000.00")

	// Replace the detail lines of the spend; the bank side follows.
	_, err = runLedger(t, "--dir", dir, "entry", "bank", "spend", "--id", "2", "--line", "office-supplies=20")
	require.NoError(t, err)
	out, err = runLedger(t, "--dir", dir, "balance", "business-checking", "--as-of", "2024-01-31")
	require.NoError(t, err)
	assert.Contains(t, out, "4980.00")

	_, err = runLedger(t, "--dir", dir, "entry", "journal", "--id", "1", "--version", "1", "--memo", "stale")
	assert.ErrorContains(t, err, "modified")
}

func TestActivity(t *testing.T) {
	dir := initLedger(t)
	seedEntries(t, dir)

	out, err := runLedger(t, "--dir", dir, "activity", "business-checking", "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6, out)
	assert.Contains(t, lines[0], "Business Checking (asset)  2024-01-01 to 2024-01-31")
	assert.Contains(t, lines[2], "Opening balance")
	assert.True(t, strings.HasSuffix(lines[2], "0.00"))
	assert.Contains(t, lines[3], "GJ-1")
	assert.True(t, strings.HasSuffix(lines[3], "5000.00"))
	assert.Contains(t, lines[4], "CD-2")
	assert.True(t, strings.HasSuffix(lines[4], "4945.23"))
	assert.True(t, strings.HasSuffix(lines[5], "4945.23"))

	out, err = runLedger(t, "--dir", dir, "activity", "business-checking", "--from", "2024-02-01", "--to", "2024-02-29")
	require.NoError(t, err)
	assert.Contains(t, out, "4945.23")
	assert.Contains(t, out, "3945.23")

	// Credit-normal accounts show a positive balance.
	out, err = runLedger(t, "--dir", dir, "activity", "owners-equity", "--from", "2024-01-01", "--to", "2024-12-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Owner's Equity (equity)")
	assert.NotContains(t, out, "-5000.00")

	_, err = runLedger(t, "--dir", dir, "activity", "business-checking", "--from", "2024-02-01", "--to", "2024-01-01")
	assert.ErrorContains(t, err, "invalid date range")
}

func TestBalance(t *testing.T) {
	dir := initLedger(t)
	seedEntries(t, dir)

	out, err := runLedger(t, "--dir", dir, "balance", "business-checking", "business-savings", "owners-equity",
		"--as-of", "2024-12-31")
	require.NoError(t, err)
	assert.Contains(t, out, "BALANCE AS OF 2024-12-31")
	assert.Regexp(t, `Business Checking\s+asset\s+3945\.23`, out)
	assert.Regexp(t, `Business Savings\s+asset\s+1000\.00`, out)
	assert.Regexp(t, `Owner's Equity\s+equity\s+5000\.00`, out)

	_, err = runLedger(t, "--dir", dir, "entry", "rm", "GJ-3")
	require.NoError(t, err)
	out, err = runLedger(t, "--dir", dir, "balance", "--as-of", "2024-12-31")
	require.NoError(t, err)
	assert.Regexp(t, `Business Savings\s+asset\s+0\.00`, out)
	assert.Regexp(t, `Office Supplies\s+expense\s+42\.17`, out)
}

func TestRegister(t *testing.T) {
	dir := initLedger(t)
	seedEntries(t, dir)

	out, err := runLedger(t, "--dir", dir, "register", "business-checking", "--from", "2024-01-01", "--to", "2024-12-31")
	require.NoError(t, err)
	assert.Regexp(t, `2024-01-10\s+CD-2\s+Staples\s+54\.77`, out)
	assert.NotContains(t, out, "GJ-1")
	assert.NotContains(t, out, "GJ-3")

	_, err = runLedger(t, "--dir", dir, "register", "office-supplies", "--from", "2024-01-01", "--to", "2024-12-31")
	assert.ErrorContains(t, err, "bank account")
}

func TestImport(t *testing.T) {
	dir := initLedger(t)
	statement, err := os.ReadFile("../../testdata/chase_checking.csv")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "chase.csv"), statement, 0o644))

	_, err = runLedger(t, "--dir", dir, "import")
	assert.ErrorContains(t, err, "offset")

	out, err := runLedger(t, "--dir", dir, "import", "--offset", "professional-services")
	require.NoError(t, err)
	assert.Contains(t, out, "chase.csv: 6 imported, 0 skipped")

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "chase.csv"))
	assert.NoError(t, err, "statement should be moved to processed")

	out, err = runLedger(t, "--dir", dir, "import", "--offset", "professional-services",
		filepath.Join(dir, "import", "processed", "chase.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "chase.csv: 0 imported, 6 skipped")

	out, err = runLedger(t, "--dir", dir, "import")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to import.")

	out, err = runLedger(t, "--dir", dir, "balance", "business-checking", "--as-of", "2025-12-31")
	require.NoError(t, err)
	assert.Contains(t, out, "2976.83")
}
