package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
)

func newEntryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Record, show and remove entries",
	}
	cmd.AddCommand(
		newEntryJournalCommand(),
		newEntryBankCommand(),
		newEntryTransferCommand(),
		newEntryShowCommand(),
		newEntryRemoveCommand(),
	)
	return cmd
}

// entryFlags are shared by the journal and bank subcommands. Editing an
// entry keeps any header field whose flag was not given.
type entryFlags struct {
	date      string
	memo      string
	reference string
	editID    int64
	version   int64
}

func (f *entryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "entry date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&f.memo, "memo", "", "entry memo")
	cmd.Flags().StringVar(&f.reference, "ref", "", "external reference")
	cmd.Flags().Int64Var(&f.editID, "id", 0, "edit the entry with this number instead of creating one")
	cmd.Flags().Int64Var(&f.version, "version", 0, "fail unless the stored entry has this version")
}

// params builds SaveParams for a new entry, or for an edit of existing.
func (f *entryFlags) params(cmd *cobra.Command, kind model.EntryKind, existing *model.Entry) (journal.SaveParams, error) {
	p := journal.SaveParams{
		Kind:      kind,
		EntryID:   f.editID,
		Version:   f.version,
		Memo:      f.memo,
		Reference: f.reference,
		Now:       time.Now(),
	}
	fallback := today()
	if existing != nil {
		fallback = existing.Date
		if !cmd.Flags().Changed("memo") {
			p.Memo = existing.Memo
		}
		if !cmd.Flags().Changed("ref") {
			p.Reference = existing.Reference
		}
	}
	date, err := dayFlag(cmd, "date", fallback)
	if err != nil {
		return journal.SaveParams{}, err
	}
	p.Date = date
	return p, nil
}

// existing loads the entry being edited, or returns nil when creating.
func (f *entryFlags) existing(ctx context.Context, rt *runtime, kind model.EntryKind) (*model.Entry, error) {
	if f.editID == 0 {
		return nil, nil
	}
	e, err := rt.journal.Entry(ctx, kind, f.editID)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// replaceLines deletes the given lines and creates the new ones.
func replaceLines(old []model.Line, created []journal.LineEdit) []journal.LineEdit {
	edits := make([]journal.LineEdit, 0, len(old)+len(created))
	for _, l := range old {
		edits = append(edits, journal.LineEdit{Op: journal.OpDelete, LineID: l.ID})
	}
	return append(edits, created...)
}

func newEntryJournalCommand() *cobra.Command {
	var flags entryFlags
	var debits, credits []string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Record or edit a general journal entry",
		Long: `Record or edit a general journal entry.

A credit is a positive amount and raises asset and expense balances; a debit
is negative and raises liability, equity and revenue balances. Debits and
credits must sum to zero. With --id, the given lines replace the entry's
lines; without any lines only the date, memo and reference change.`,
		Example: `  ledger entry journal --memo "Owner contribution" --credit business-checking=5000 --debit owners-equity=5000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				existing, err := flags.existing(ctx, rt, model.KindJournal)
				if err != nil {
					return err
				}
				params, err := flags.params(cmd, model.KindJournal, existing)
				if err != nil {
					return err
				}

				var created []journal.LineEdit
				for _, side := range []struct {
					side  journal.Side
					specs []string
				}{{journal.SideDebit, debits}, {journal.SideCredit, credits}} {
					for _, s := range side.specs {
						ed, err := lineEdit(ctx, rt, s)
						if err != nil {
							return err
						}
						ed.Side = side.side
						created = append(created, ed)
					}
				}
				params.Lines = created
				if existing != nil && len(created) > 0 {
					params.Lines = replaceLines(existing.Lines, created)
				}

				e, err := rt.journal.SaveEntry(ctx, params)
				if err != nil {
					return err
				}
				return reportSaved(ctx, cmd, rt, e, existing != nil)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringArrayVar(&debits, "debit", nil, "debit line ACCOUNT=AMOUNT[:DETAIL] (repeatable)")
	cmd.Flags().StringArrayVar(&credits, "credit", nil, "credit line ACCOUNT=AMOUNT[:DETAIL] (repeatable)")
	return cmd
}

func newEntryBankCommand() *cobra.Command {
	var flags entryFlags
	var bank string
	var lines []string

	cmd := &cobra.Command{
		Use:       "bank <spend|receive>",
		Short:     "Record or edit a bank spending or receiving entry",
		Example:   `  ledger entry bank spend --memo "Staples" --line office-supplies=42.17 --line shipping-postage=12.60`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"spend", "receive"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := bankKind(args[0])
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				existing, err := flags.existing(ctx, rt, kind)
				if err != nil {
					return err
				}
				params, err := flags.params(cmd, kind, existing)
				if err != nil {
					return err
				}

				params.BankAccountID, err = bankAccountID(ctx, rt, bank, existing)
				if err != nil {
					return err
				}

				var created []journal.LineEdit
				for _, s := range lines {
					ed, err := lineEdit(ctx, rt, s)
					if err != nil {
						return err
					}
					created = append(created, ed)
				}
				params.Lines = created
				if existing != nil && len(created) > 0 {
					params.Lines = replaceLines(existing.Details(), created)
				}

				e, err := rt.journal.SaveEntry(ctx, params)
				if err != nil {
					return err
				}
				return reportSaved(ctx, cmd, rt, e, existing != nil)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&bank, "bank", "", "bank account slug or ID (default: import.bank from ledger.yaml)")
	cmd.Flags().StringArrayVar(&lines, "line", nil, "detail line ACCOUNT=AMOUNT[:DETAIL] (repeatable)")
	return cmd
}

// bankAccountID resolves --bank, falling back to the bank of the entry being
// edited and then to the configured import bank.
func bankAccountID(ctx context.Context, rt *runtime, ref string, existing *model.Entry) (int64, error) {
	if ref == "" && existing != nil {
		if main, ok := existing.Main(); ok {
			return main.AccountID, nil
		}
	}
	if ref == "" {
		ref = rt.cfg.Import.Bank
	}
	a, err := rt.accounts.ResolveAccount(ctx, ref)
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func bankKind(arg string) (model.EntryKind, error) {
	switch strings.ToLower(arg) {
	case "spend", "cd":
		return model.KindBankSpend, nil
	case "receive", "cr":
		return model.KindBankReceive, nil
	}
	return "", fmt.Errorf("unknown bank entry type %q: want spend or receive", arg)
}

func lineEdit(ctx context.Context, rt *runtime, spec string) (journal.LineEdit, error) {
	ls, err := parseLineSpec(spec)
	if err != nil {
		return journal.LineEdit{}, err
	}
	a, err := rt.accounts.ResolveAccount(ctx, ls.account)
	if err != nil {
		return journal.LineEdit{}, err
	}
	return journal.LineEdit{Op: journal.OpCreate, AccountID: a.ID, Amount: ls.amount, Detail: ls.detail}, nil
}

func newEntryTransferCommand() *cobra.Command {
	var date, memo, reference, from, to, amount string

	cmd := &cobra.Command{
		Use:     "transfer",
		Short:   "Move money between two accounts",
		Example: `  ledger entry transfer --from business-checking --to business-savings --amount 1000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				day, err := dayFlag(cmd, "date", today())
				if err != nil {
					return err
				}
				amt, err := parseAmount(amount)
				if err != nil {
					return err
				}
				src, err := rt.accounts.ResolveAccount(ctx, from)
				if err != nil {
					return err
				}
				dst, err := rt.accounts.ResolveAccount(ctx, to)
				if err != nil {
					return err
				}

				e, err := rt.journal.Transfer(ctx, journal.TransferParams{
					Date:          day,
					Memo:          memo,
					Reference:     reference,
					SourceID:      src.ID,
					DestinationID: dst.ID,
					Amount:        amt,
					Now:           time.Now(),
				})
				if err != nil {
					return err
				}
				return reportSaved(ctx, cmd, rt, e, false)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "transfer date, YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&memo, "memo", "", "entry memo")
	cmd.Flags().StringVar(&reference, "ref", "", "external reference")
	cmd.Flags().StringVar(&from, "from", "", "source account slug or ID (required)")
	cmd.Flags().StringVar(&to, "to", "", "destination account slug or ID (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to move (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func reportSaved(ctx context.Context, cmd *cobra.Command, rt *runtime, e model.Entry, edited bool) error {
	ref := id.FormatEntryRef(e.Kind, e.ID)
	verb, msg := "Recorded", "entry: add "+ref
	if edited {
		verb, msg = "Updated", "entry: edit "+ref
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, ref)
	names, err := accountNames(ctx, rt)
	if err != nil {
		return err
	}
	if err := printEntry(cmd.OutOrStdout(), e, names); err != nil {
		return err
	}
	return rt.commit(ctx, msg)
}

func newEntryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Show an entry, e.g. GJ-3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, entryID, err := id.ParseEntryRef(args[0])
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				e, err := rt.journal.Entry(ctx, kind, entryID)
				if err != nil {
					return err
				}
				names, err := accountNames(ctx, rt)
				if err != nil {
					return err
				}
				return printEntry(cmd.OutOrStdout(), e, names)
			})
		},
	}
}

func newEntryRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <ref>",
		Short: "Delete an entry and all of its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, entryID, err := id.ParseEntryRef(args[0])
			if err != nil {
				return err
			}
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				if err := rt.journal.DeleteEntry(ctx, kind, entryID); err != nil {
					return err
				}
				ref := id.FormatEntryRef(kind, entryID)
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", ref)
				return rt.commit(ctx, "entry: delete "+ref)
			})
		},
	}
}
