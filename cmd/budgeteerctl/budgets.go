package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budgeteer/internal/core"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage an owner's monthly budgets",
	}
	cmd.AddCommand(setBudgetCmd())
	cmd.AddCommand(listBudgetsCmd())
	return cmd
}

func setBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <limit>",
		Short: "Create or replace the budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			owner, err := resolveOwner(ctx, store)
			if err != nil {
				return err
			}
			_, budgets, _ := newServices(store)
			b, err := budgets.Upsert(ctx, owner.ID, core.BudgetInput{
				Category: args[0],
				Limit:    core.RawAmount(args[1]),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s budget set to %s\n", b.Category.Label(), b.Limit)
			return nil
		},
	}
}

func listBudgetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			owner, err := resolveOwner(ctx, store)
			if err != nil {
				return err
			}
			_, budgets, _ := newServices(store)
			list, err := budgets.List(ctx, owner.ID)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No budgets. Set one with 'budgeteerctl budgets set <category> <limit>'.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tCATEGORY\tLIMIT")
			for _, b := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\n", b.ID, b.Category.Label(), b.Limit)
			}
			return nil
		},
	}
}
