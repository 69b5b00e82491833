package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage API users",
	}
	cmd.AddCommand(createUserCmd())
	cmd.AddCommand(listUsersCmd())
	return cmd
}

func createUserCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <email>",
		Short: "Create a user and print its API token",
		Long:  `Create a user. The printed token is shown once and cannot be recovered.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			u, token, err := store.CreateUser(ctx, args[0])
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:    %s\n", u.ID)
			fmt.Fprintf(out, "email: %s\n", u.Email)
			fmt.Fprintf(out, "token: %s\n", token)
			return nil
		},
	}
}

func listUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			users, err := store.ListUsers(ctx)
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			if len(users) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users. Create one with 'budgeteerctl users create <email>'.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tEMAIL")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\n", u.ID, u.Email)
			}
			return nil
		},
	}
}
