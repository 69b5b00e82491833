package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print an owner's monthly summary",
		Long:  `Print income, expenses, savings and the per-category budget breakdown. Defaults to the current month.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			now := time.Now().UTC()
			if year == 0 {
				year = now.Year()
			}
			if month == 0 {
				month = int(now.Month())
			}

			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			owner, err := resolveOwner(ctx, store)
			if err != nil {
				return err
			}
			_, _, summaries := newServices(store)
			s, err := summaries.MonthlySummary(ctx, owner.ID, year, month)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%04d-%02d\n", s.Year, s.Month)
			fmt.Fprintf(out, "income:   %s\n", s.TotalIncome)
			fmt.Fprintf(out, "expenses: %s\n", s.TotalExpenses)
			fmt.Fprintf(out, "savings:  %s\n\n", s.NetSavings)

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			defer w.Flush()
			fmt.Fprintln(w, "CATEGORY\tLIMIT\tSPENT\tREMAINING\tUSED %\t")
			for _, b := range s.CategoryBreakdown {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\t\n", b.Category, b.Limit, b.Spent, b.Remaining, b.PercentUsed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	return cmd
}
