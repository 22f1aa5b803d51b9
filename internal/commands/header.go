package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/model"
)

func newHeaderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "header",
		Short: "Manage chart headers",
	}
	cmd.AddCommand(newHeaderAddCommand(), newHeaderEditCommand(), newHeaderRemoveCommand())
	return cmd
}

func newHeaderAddCommand() *cobra.Command {
	var parent, accountType string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				params := accounts.HeaderParams{Name: args[0], Type: model.AccountType(accountType)}
				if parent != "" {
					p, err := rt.accounts.ResolveHeader(ctx, parent)
					if err != nil {
						return err
					}
					params.ParentID = p.ID
				}
				h, err := rt.accounts.SaveHeader(ctx, params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added header %s (%s, #%d)\n", h.Name, h.Slug, h.ID)
				return rt.commit(ctx, "header: add "+h.Name)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent header slug or ID (default: root)")
	cmd.Flags().StringVar(&accountType, "type", "", "account type (default: the parent's)")
	return cmd
}

func newHeaderEditCommand() *cobra.Command {
	var name, parent string

	cmd := &cobra.Command{
		Use:   "edit <header>",
		Short: "Rename or move a header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				h, err := rt.accounts.ResolveHeader(ctx, args[0])
				if err != nil {
					return err
				}
				params := accounts.HeaderParams{ID: h.ID, Name: h.Name, ParentID: h.ParentID, Type: h.Type}
				if cmd.Flags().Changed("name") {
					params.Name = name
				}
				if cmd.Flags().Changed("parent") {
					params.ParentID = 0
					if parent != "" {
						p, err := rt.accounts.ResolveHeader(ctx, parent)
						if err != nil {
							return err
						}
						params.ParentID = p.ID
					}
				}
				h, err = rt.accounts.SaveHeader(ctx, params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated header %s (%s, #%d)\n", h.Name, h.Slug, h.ID)
				return rt.commit(ctx, "header: edit "+h.Name)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&parent, "parent", "", "new parent header slug or ID; empty moves it to the root")
	return cmd
}

func newHeaderRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <header>",
		Short: "Remove an empty header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				h, err := rt.accounts.ResolveHeader(ctx, args[0])
				if err != nil {
					return err
				}
				if err := rt.accounts.DeleteHeader(ctx, h.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed header %s\n", h.Name)
				return rt.commit(ctx, "header: remove "+h.Name)
			})
		},
	}
}
