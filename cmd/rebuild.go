package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ledger-cli/internal/reconcile"
	"github.com/sells-group/ledger-cli/internal/store"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the ledger from the raw extracts",
	Long:  "Loads the credit roster, every sales extract and the margin extract, reconciles them and atomically replaces the persisted ledger. A failed rebuild leaves the previous ledger in place.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyRebuildFlags(cmd)
		st, err := openStore(ctx, "rebuild")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := runRebuild(ctx, st)
		if err != nil {
			return err
		}
		formatRebuildResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	rebuildCmd.Flags().String("credit", "", "credit balance extract (overrides sources.credit_file)")
	rebuildCmd.Flags().StringSlice("sales", nil, "sales extracts (overrides sources.sales_files)")
	rebuildCmd.Flags().String("margin", "", "invoice margin extract (overrides sources.margin_file)")
	rebuildCmd.Flags().Bool("no-margin", false, "rebuild without margin data; every line gets profit 0")
	rootCmd.AddCommand(rebuildCmd)
}

func applyRebuildFlags(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetString("credit"); v != "" {
		cfg.Sources.CreditFile = v
	}
	if v, _ := cmd.Flags().GetStringSlice("sales"); len(v) > 0 {
		cfg.Sources.SalesFiles = v
	}
	if v, _ := cmd.Flags().GetString("margin"); v != "" {
		cfg.Sources.MarginFile = v
	}
	if v, _ := cmd.Flags().GetBool("no-margin"); v {
		cfg.Sources.MarginFile = ""
	}
}

func runRebuild(ctx context.Context, st store.Store) (*reconcile.Result, error) {
	svc := reconcile.NewService(st, reconcile.Sources{
		CreditFile: cfg.Sources.Resolve(cfg.Sources.CreditFile),
		SalesFiles: cfg.Sources.SalesPaths(),
		MarginFile: cfg.Sources.Resolve(cfg.Sources.MarginFile),
	})
	res, err := svc.Rebuild(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "rebuild")
	}
	return res, nil
}

// formatRebuildResult writes the rebuild outcome and load report to w.
func formatRebuildResult(out io.Writer, res *reconcile.Result) {
	r := res.Report
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Ledger version:\t%s\n", res.Version.ID)
	_, _ = fmt.Fprintf(w, "Customers:\t%s\n", cellText(res.Version.Customers))
	_, _ = fmt.Fprintf(w, "Transaction lines:\t%s\n", cellText(res.Version.Lines))
	_, _ = fmt.Fprintf(w, "  Raw sales lines:\t%s\n", cellText(r.RawSalesLines))
	_, _ = fmt.Fprintf(w, "  Returns:\t%s (%s)\n", cellText(r.Sales.ReturnLines), cellText(r.Sales.ReturnAmount))
	_, _ = fmt.Fprintf(w, "Net sales:\t%s\n", cellText(r.Sales.NetAmount))
	_, _ = fmt.Fprintf(w, "Owed to us:\t%s (%d customers)\n", cellText(r.Credit.TotalOwing), r.Credit.Owing)
	_, _ = fmt.Fprintf(w, "We owe:\t%s (%d customers)\n", cellText(r.Credit.TotalWeOwe), r.Credit.WeOwe)
	_, _ = fmt.Fprintf(w, "Net receivable:\t%s\n", cellText(r.Credit.NetReceivable))
	_, _ = fmt.Fprintf(w, "Margin invoices:\t%s (%d loss-making)\n", cellText(r.Margin.Invoices), r.Margin.Loss)
	_, _ = fmt.Fprintf(w, "Lines with margin:\t%s of %s\n", cellText(r.Merge.Matched), cellText(r.Merge.Lines))
	if n := len(r.Merge.SharedInvoices); n > 0 {
		_, _ = fmt.Fprintf(w, "Shared invoices:\t%d (see log)\n", n)
	}
	_ = w.Flush()
}
