package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ledger",
		Short:   "Double-entry bookkeeping for small businesses",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("dir", ".", "ledger project directory")

	rootCmd.AddCommand(
		newInitCommand(),
		newChartCommand(),
		newHeaderCommand(),
		newAccountCommand(),
		newEntryCommand(),
		newJournalCommand(),
		newActivityCommand(),
		newBalanceCommand(),
		newRegisterCommand(),
		newImportCommand(),
	)

	return rootCmd
}
