package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgeteer/internal/services"
)

func categorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <description> [sub-description]",
		Short: "Suggest a category for a description",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub := ""
			if len(args) == 2 {
				sub = args[1]
			}
			s := services.Suggest(args[0], sub)
			if !s.Matched {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching category")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Label)
			return nil
		},
	}
}
