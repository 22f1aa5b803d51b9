package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/model"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newAccountAddCommand(), newAccountEditCommand(), newAccountRemoveCommand())
	return cmd
}

func newAccountAddCommand() *cobra.Command {
	var header, accountType string
	var bank bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account under a header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				h, err := rt.accounts.ResolveHeader(ctx, header)
				if err != nil {
					return err
				}
				a, err := rt.accounts.SaveAccount(ctx, accounts.AccountParams{
					Name:     args[0],
					HeaderID: h.ID,
					Type:     model.AccountType(accountType),
					Bank:     bank,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added account %s (%s, #%d)\n", a.Name, a.Slug, a.ID)
				return rt.commit(ctx, "account: add "+a.Name)
			})
		},
	}
	cmd.Flags().StringVar(&header, "header", "", "header slug or ID (required)")
	_ = cmd.MarkFlagRequired("header")
	cmd.Flags().StringVar(&accountType, "type", "", "account type (default: the header's)")
	cmd.Flags().BoolVar(&bank, "bank", false, "the account is a bank account")
	return cmd
}

func newAccountEditCommand() *cobra.Command {
	var name, header string
	var bank bool

	cmd := &cobra.Command{
		Use:   "edit <account>",
		Short: "Rename, move or re-flag an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				a, err := rt.accounts.ResolveAccount(ctx, args[0])
				if err != nil {
					return err
				}
				params := accounts.AccountParams{ID: a.ID, Name: a.Name, HeaderID: a.HeaderID, Type: a.Type, Bank: a.Bank}
				if cmd.Flags().Changed("name") {
					params.Name = name
				}
				if cmd.Flags().Changed("header") {
					h, err := rt.accounts.ResolveHeader(ctx, header)
					if err != nil {
						return err
					}
					params.HeaderID = h.ID
				}
				if cmd.Flags().Changed("bank") {
					params.Bank = bank
				}
				a, err = rt.accounts.SaveAccount(ctx, params)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated account %s (%s, #%d)\n", a.Name, a.Slug, a.ID)
				return rt.commit(ctx, "account: edit "+a.Name)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&header, "header", "", "new header slug or ID")
	cmd.Flags().BoolVar(&bank, "bank", false, "the account is a bank account")
	return cmd
}

func newAccountRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <account>",
		Short: "Remove an account that has no lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, rt *runtime) error {
				a, err := rt.accounts.ResolveAccount(ctx, args[0])
				if err != nil {
					return err
				}
				if err := rt.accounts.DeleteAccount(ctx, a.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed account %s\n", a.Name)
				return rt.commit(ctx, "account: remove "+a.Name)
			})
		},
	}
}
