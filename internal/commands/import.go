package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/importer"
)

type importOptions struct {
	format string
	bank   string
	offset string
}

func newImportCommand() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import bank statement CSV files",
		Long: `Import bank statement CSV files as receiving and spending entries.

With no files, every CSV in the project's import/ directory is imported and
then moved to import/processed/. Rows already in the journal are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				return runImport(ctx, cmd, rt, args, opts)
			})
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "", "statement format (default: import.format from ledger.yaml)")
	cmd.Flags().StringVar(&opts.bank, "bank", "", "bank account slug or ID (default: import.bank)")
	cmd.Flags().StringVar(&opts.offset, "offset", "", "account for the other side of every entry (default: import.offset)")
	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, rt *runtime, files []string, opts importOptions) error {
	format := firstNonEmpty(opts.format, rt.cfg.Import.Format)
	parser := importer.DefaultRegistry().Get(format)
	if parser == nil {
		return fmt.Errorf("unknown statement format %q", format)
	}

	bankRef := firstNonEmpty(opts.bank, rt.cfg.Import.Bank)
	offsetRef := firstNonEmpty(opts.offset, rt.cfg.Import.Offset)
	if bankRef == "" || offsetRef == "" {
		return fmt.Errorf("import needs a bank and an offset account; pass --bank and --offset or set them under import: in %s", config.FileName)
	}
	bank, err := rt.accounts.ResolveAccount(ctx, bankRef)
	if err != nil {
		return err
	}
	offset, err := rt.accounts.ResolveAccount(ctx, offsetRef)
	if err != nil {
		return err
	}

	fromDir := len(files) == 0
	if fromDir {
		found, err := importer.Scan(rt.root)
		if err != nil {
			return err
		}
		for _, f := range found {
			files = append(files, f.Path)
		}
	}

	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "Nothing to import.")
		return nil
	}

	im := importer.New(rt.journal, rt.log)
	for _, path := range files {
		txns, err := parseStatement(parser, path)
		if err != nil {
			return err
		}
		res, err := im.Import(ctx, txns, importer.Params{
			BankAccountID:   bank.ID,
			OffsetAccountID: offset.ID,
			Now:             time.Now(),
		})
		name := filepath.Base(path)
		if err != nil {
			// Entries written before the failure are kept; commit them.
			if cerr := rt.commit(ctx, fmt.Sprintf("import: %d entries from %s (partial)", len(res.Created), name)); cerr != nil {
				rt.log.WithError(cerr).Warn("commit failed")
			}
			return fmt.Errorf("%s: %w", name, err)
		}

		fmt.Fprintf(out, "%s: %d imported, %d skipped\n", name, len(res.Created), len(res.Skipped))
		if fromDir {
			if err := importer.MarkProcessed(rt.root, name); err != nil {
				return err
			}
		}
		if err := rt.commit(ctx, fmt.Sprintf("import: %d entries from %s", len(res.Created), name)); err != nil {
			return err
		}
	}
	return nil
}

func parseStatement(p importer.Parser, path string) ([]importer.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	txns, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return txns, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
