package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// moneyOrBlank leaves zero debit/credit cells empty.
func moneyOrBlank(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}

func today() time.Time {
	return model.Day(time.Now())
}

// dayFlag returns the named date flag, or fallback when it was not set.
func dayFlag(cmd *cobra.Command, name string, fallback time.Time) (time.Time, error) {
	if !cmd.Flags().Changed(name) {
		return fallback, nil
	}
	s, err := cmd.Flags().GetString(name)
	if err != nil {
		return time.Time{}, err
	}
	d, err := model.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// dateRange reads --from and --to. Both default to the current month to date.
func dateRange(cmd *cobra.Command) (time.Time, time.Time, error) {
	t := today()
	from, err := dayFlag(cmd, "from", model.MonthOf(t).Start())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := dayFlag(cmd, "to", t)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first day, YYYY-MM-DD (default: start of this month)")
	cmd.Flags().String("to", "", "last day, YYYY-MM-DD (default: today)")
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// lineSpec is a line given on the command line as ACCOUNT=AMOUNT[:DETAIL].
type lineSpec struct {
	account string
	amount  decimal.Decimal
	detail  string
}

func parseLineSpec(s string) (lineSpec, error) {
	acct, rest, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(acct) == "" {
		return lineSpec{}, fmt.Errorf("invalid line %q: want ACCOUNT=AMOUNT[:DETAIL]", s)
	}
	amt, detail, _ := strings.Cut(rest, ":")
	amount, err := parseAmount(amt)
	if err != nil {
		return lineSpec{}, fmt.Errorf("invalid line %q: %w", s, err)
	}
	return lineSpec{account: strings.TrimSpace(acct), amount: amount, detail: strings.TrimSpace(detail)}, nil
}

// accountNames maps account IDs to display names.
func accountNames(ctx context.Context, rt *runtime) (map[int64]string, error) {
	accts, err := rt.accounts.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(accts))
	for _, a := range accts {
		names[a.ID] = a.Name
	}
	return names, nil
}

func printEntry(w io.Writer, e model.Entry, names map[int64]string) error {
	title := fmt.Sprintf("%s  %s  %s", id.FormatEntryRef(e.Kind, e.ID), e.Date.Format(model.DateFormat), e.Memo)
	if e.Reference != "" {
		title += fmt.Sprintf("  [%s]", e.Reference)
	}
	if e.Edited() {
		title += "  (edited)"
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "  LINE\tACCOUNT\tDEBIT\tCREDIT\tDETAIL")
	for _, l := range e.Lines {
		name := names[l.AccountID]
		if l.Main {
			name += " *"
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%s\n", l.ID, name, moneyOrBlank(l.Debit()), moneyOrBlank(l.Credit()), l.Detail)
	}
	return tw.Flush()
}
