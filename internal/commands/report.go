package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

func newJournalCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "List entries in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			f := store.EntryFilter{Kind: model.EntryKind(strings.ToUpper(kind)), From: from, To: to}
			if f.Kind != "" && !f.Kind.Valid() {
				return fmt.Errorf("unknown entry kind %q", kind)
			}
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				entries, err := rt.journal.Entries(ctx, f)
				if err != nil {
					return err
				}
				names, err := accountNames(ctx, rt)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No entries.")
					return nil
				}
				for i, e := range entries {
					if i > 0 {
						fmt.Fprintln(out)
					}
					if err := printEntry(out, e, names); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	addRangeFlags(cmd)
	cmd.Flags().StringVar(&kind, "kind", "", "only entries of this kind: GJ, CR or CD")
	return cmd
}

func newActivityCommand() *cobra.Command {
	var ytd bool

	cmd := &cobra.Command{
		Use:   "activity <account>",
		Short: "Show an account's lines with opening and running balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				if ytd && !cmd.Flags().Changed("from") {
					from = rt.cfg.FiscalYearStart(to)
				}
				acct, err := rt.accounts.ResolveAccount(ctx, args[0])
				if err != nil {
					return err
				}
				act, err := rt.balance.Activity(ctx, acct.ID, from, to)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)  %s to %s\n", act.Account.Name, act.Account.Type,
					act.From.Format(model.DateFormat), act.To.Format(model.DateFormat))
				tw := newTable(out)
				fmt.Fprintln(tw, "DATE\tENTRY\tDETAIL\tDEBIT\tCREDIT\tBALANCE")
				fmt.Fprintf(tw, "\t\tOpening balance\t\t\t%s\n", money(act.Opening))
				for _, p := range act.Postings {
					l := p.Line
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						l.Date.Format(model.DateFormat), id.FormatEntryRef(l.Kind, l.EntryID), l.Detail,
						moneyOrBlank(l.Debit()), moneyOrBlank(l.Credit()), money(p.Balance))
				}
				fmt.Fprintf(tw, "\t\tClosing balance\t\t\t%s\n", money(act.Closing))
				return tw.Flush()
			})
		},
	}
	addRangeFlags(cmd)
	cmd.Flags().BoolVar(&ytd, "ytd", false, "start at the beginning of the fiscal year")
	return cmd
}

func newBalanceCommand() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "balance [account...]",
		Short: "Show account balances at the end of a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dayFlag(cmd, "as-of", today())
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				var accts []model.Account
				if len(args) == 0 {
					nodes, err := rt.accounts.Tree(ctx, 0)
					if err != nil {
						return err
					}
					for _, n := range nodes {
						accts = append(accts, n.Accounts...)
					}
				}
				for _, ref := range args {
					a, err := rt.accounts.ResolveAccount(ctx, ref)
					if err != nil {
						return err
					}
					accts = append(accts, a)
				}

				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintf(tw, "ACCOUNT\tTYPE\tBALANCE AS OF %s\n", day.Format(model.DateFormat))
				for _, a := range accts {
					bal, err := rt.balance.BalanceAsOf(ctx, a.ID, day)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Name, a.Type, money(bal))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "day, YYYY-MM-DD (default: today)")
	return cmd
}

func newRegisterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register [bank-account]",
		Short: "List a bank account's receiving and spending entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := dateRange(cmd)
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				ref := rt.cfg.Import.Bank
				if len(args) > 0 {
					ref = args[0]
				}
				acct, err := rt.accounts.ResolveAccount(ctx, ref)
				if err != nil {
					return err
				}
				lines, err := rt.balance.Register(ctx, acct.ID, from, to)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s  %s to %s\n", acct.Name, from.Format(model.DateFormat), to.Format(model.DateFormat))
				tw := newTable(out)
				fmt.Fprintln(tw, "DATE\tENTRY\tMEMO\tRECEIVED\tSPENT")
				for _, l := range lines {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						l.Date.Format(model.DateFormat), id.FormatEntryRef(l.Kind, l.EntryID), l.Detail,
						moneyOrBlank(l.Credit()), moneyOrBlank(l.Debit()))
				}
				return tw.Flush()
			})
		},
	}
	addRangeFlags(cmd)
	return cmd
}
