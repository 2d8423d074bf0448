package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/inventory"
	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/purchasing"
	"github.com/sells-group/ledger-cli/internal/store"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage the product inventory",
}

var productsLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Replace the product inventory from the inventory extract",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if v, _ := cmd.Flags().GetString("file"); v != "" {
			cfg.Sources.InventoryFile = v
		}
		st, err := openStore(ctx, "products")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		path := cfg.Sources.Resolve(cfg.Sources.InventoryFile)
		products, err := inventory.Load(ctx, path)
		if err != nil {
			return err
		}
		if err := st.ReplaceProducts(ctx, products); err != nil {
			return eris.Wrap(err, "products load")
		}

		counts := inventory.CountByStatus(products)
		zap.L().Info("products: inventory replaced", zap.Int("products", len(products)))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d products (%d active, %d out of stock, %d discontinued)\n",
			len(products), counts[model.ProductActive], counts[model.ProductOutOfStock], counts[model.ProductDiscontinued])
		return nil
	},
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the product inventory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "read")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		products, err := st.Products(ctx)
		if err != nil {
			return eris.Wrap(err, "products list")
		}
		v := view{Title: "Products", Headers: []string{"PRODUCT", "STOCK", "STATUS"}, Value: products}
		for _, p := range products {
			v.Rows = append(v.Rows, []any{p.Name, p.StockQuantity, p.Status})
		}
		return writeView(cmd, v)
	},
}

var purchasingCmd = &cobra.Command{
	Use:   "purchasing",
	Short: "Recommend purchases from stock levels and sales velocity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		t, err := asOf(cmd)
		if err != nil {
			return err
		}
		st, err := openStore(ctx, "read")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		products, err := st.Products(ctx)
		if err != nil {
			return eris.Wrap(err, "purchasing")
		}
		if len(products) == 0 {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No product inventory. Run `ledger-cli products load` first.")
			return nil
		}
		lines, err := st.Transactions(ctx, store.TransactionFilter{})
		if err != nil && !eris.Is(err, store.ErrNoLedger) {
			return eris.Wrap(err, "purchasing")
		}

		company, _ := cmd.Flags().GetString("company")
		if company == "all" {
			company = ""
		}
		items := purchasing.Plan(products, lines, t, cfg.Purchasing, company)
		return writeView(cmd, purchasingView(items))
	},
}

func init() {
	productsLoadCmd.Flags().String("file", "", "inventory extract (overrides sources.inventory_file)")
	addOutputFlags(productsListCmd)

	purchasingCmd.Flags().String("company", "all", "filter by company")
	addAsOfFlag(purchasingCmd)
	addOutputFlags(purchasingCmd)

	productsCmd.AddCommand(productsLoadCmd)
	productsCmd.AddCommand(productsListCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(purchasingCmd)
}

func purchasingView(items []purchasing.Item) view {
	v := view{
		Title: "Purchasing plan",
		Headers: []string{
			"PRODUCT", "COMPANY", "STOCK", "SOLD_RECENT", "SOLD_SEASONAL", "PROJECTED",
			"DAYS_LEFT", "RECOMMENDED", "STATUS",
		},
		Value: items,
	}
	for _, it := range items {
		v.Rows = append(v.Rows, []any{
			it.Product, it.Company, it.StockQuantity, it.RecentSales, it.SeasonalSales, it.ProjectedDemand,
			it.DaysOfStockLeft, it.RecommendedPurchase, it.Status,
		})
	}
	return v
}
