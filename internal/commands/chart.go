package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/model"
)

func newChartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chart [header]",
		Short: "Show the chart of accounts, or one header's subtree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				var rootID int64
				if len(args) > 0 {
					h, err := rt.accounts.ResolveHeader(ctx, args[0])
					if err != nil {
						return err
					}
					rootID = h.ID
				}
				nodes, err := rt.accounts.Tree(ctx, rootID)
				if err != nil {
					return err
				}
				return printChart(cmd, nodes)
			})
		},
	}
}

func printChart(cmd *cobra.Command, nodes []accounts.Node) error {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "NAME\tSLUG\tID\tTYPE")
	for _, n := range nodes {
		indent := strings.Repeat("  ", n.Depth)
		fmt.Fprintf(tw, "%s%s\t%s\t%d\t%s\n", indent, n.Header.Name, n.Header.Slug, n.Header.ID, n.Header.Type)
		for _, a := range n.Accounts {
			fmt.Fprintf(tw, "%s  %s\t%s\t%d\t%s\n", indent, a.Name, a.Slug, a.ID, accountTypeLabel(a))
		}
	}
	return tw.Flush()
}

func accountTypeLabel(a model.Account) string {
	if a.Bank {
		return string(a.Type) + " (bank)"
	}
	return string(a.Type)
}
