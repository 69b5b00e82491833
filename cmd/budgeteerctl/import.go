package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budgeteer/internal/core"
	"budgeteer/internal/importer"
)

func importCmd() *cobra.Command {
	var preview bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV, OFX or QFX statement",
		Long: `Parse and normalize a statement file and store its transactions for the
owner identified by --token. With --preview nothing is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			path := args[0]

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			rows, err := importer.ReadFile(f, filepath.Base(path))
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()
			ledger, _, _ := newServices(store)

			if preview {
				batch, err := ledger.PreviewImport(ctx, rows)
				if err != nil {
					return err
				}
				printTransactions(cmd, batch.Transactions)
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d transactions, %d categorized (not stored)\n",
					len(batch.Transactions), batch.AutoCategorized)
				return nil
			}

			owner, err := resolveOwner(ctx, store)
			if err != nil {
				return err
			}
			res, err := ledger.Import(ctx, owner.ID, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions, %d categorized\n", res.Created, res.AutoCategorized)
			return nil
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "print the normalized transactions without storing them")
	return cmd
}

func printTransactions(cmd *cobra.Command, txs []core.Transaction) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "DATE\tDESCRIPTION\tAMOUNT\tCATEGORY")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tx.Date, tx.Description, tx.Amount, tx.Category.Label())
	}
}
