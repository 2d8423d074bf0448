package main

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/normalize"
	"github.com/sells-group/ledger-cli/internal/report"
	"github.com/sells-group/ledger-cli/internal/scoring"
	"github.com/sells-group/ledger-cli/internal/store"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "List reconciled customer summaries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "read")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		code, err := customerFlag(cmd)
		if err != nil {
			return err
		}
		route, _ := cmd.Flags().GetString("route")
		company, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		customers, err := st.Customers(ctx, store.CustomerFilter{
			CustomerCode: code,
			Route:        route,
			Company:      company,
			Limit:        limit,
		})
		if err != nil {
			if noLedger(cmd, err) {
				return nil
			}
			return eris.Wrap(err, "customers")
		}
		return writeView(cmd, customersView(customers))
	},
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "List transaction detail lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter := store.TransactionFilter{}
		var err error
		if filter.CustomerCode, err = customerFlag(cmd); err != nil {
			return err
		}
		filter.Route, _ = cmd.Flags().GetString("route")
		filter.Company, _ = cmd.Flags().GetString("company")
		filter.Product, _ = cmd.Flags().GetString("product")
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		if filter.From, err = dateFlag(cmd, "from"); err != nil {
			return err
		}
		if filter.To, err = dateFlag(cmd, "to"); err != nil {
			return err
		}

		st, err := openStore(ctx, "read")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lines, err := st.Transactions(ctx, filter)
		if err != nil {
			if noLedger(cmd, err) {
				return nil
			}
			return eris.Wrap(err, "transactions")
		}
		return writeView(cmd, transactionsView(lines))
	},
}

var creditListCmd = &cobra.Command{
	Use:   "credit-list",
	Short: "List customer balances with their scores",
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

		route, _ := cmd.Flags().GetString("route")
		sortBy, _ := cmd.Flags().GetString("sort")
		order, _ := cmd.Flags().GetString("order")
		if route == "all" {
			route = ""
		}

		customers, err := st.Customers(ctx, store.CustomerFilter{})
		if err != nil {
			if noLedger(cmd, err) {
				return nil
			}
			return eris.Wrap(err, "credit-list")
		}
		lines, err := st.Transactions(ctx, store.TransactionFilter{})
		if err != nil {
			return eris.Wrap(err, "credit-list")
		}
		if err := scoring.ValidateConfig(cfg.Scoring); err != nil {
			return err
		}
		scores := scoring.Score(lines, t, cfg.Scoring)

		list, err := report.BuildCreditList(customers, lines, scores, report.CreditListOptions{
			Route:  route,
			SortBy: sortBy,
			Asc:    order == "asc",
		})
		if err != nil {
			return err
		}
		return writeView(cmd, creditListView(list))
	},
}

func init() {
	customersCmd.Flags().String("customer", "", "filter by customer code")
	customersCmd.Flags().String("route", "", "filter by route")
	customersCmd.Flags().String("company", "", "filter by company")
	customersCmd.Flags().Int("limit", 0, "max number of customers (0 = all)")

	transactionsCmd.Flags().String("customer", "", "filter by customer code")
	transactionsCmd.Flags().String("route", "", "filter by route")
	transactionsCmd.Flags().String("company", "", "filter by company")
	transactionsCmd.Flags().String("product", "", "filter by product name")
	transactionsCmd.Flags().String("from", "", "first delivery date YYYY-MM-DD, inclusive")
	transactionsCmd.Flags().String("to", "", "last delivery date YYYY-MM-DD, inclusive")
	transactionsCmd.Flags().Int("limit", 100, "max number of lines (0 = all)")

	creditListCmd.Flags().String("route", "all", "filter by route")
	creditListCmd.Flags().String("sort", "balance", "sort column")
	creditListCmd.Flags().String("order", "desc", "sort order: asc or desc")
	addAsOfFlag(creditListCmd)

	for _, c := range []*cobra.Command{customersCmd, transactionsCmd, creditListCmd} {
		addOutputFlags(c)
		rootCmd.AddCommand(c)
	}
}

func dateFlag(cmd *cobra.Command, name string) (*time.Time, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, eris.Wrapf(err, "parse --%s %q", name, s)
	}
	return &t, nil
}

// customerFlag returns --customer in canonical identity form, "" when unset.
func customerFlag(cmd *cobra.Command) (string, error) {
	raw, _ := cmd.Flags().GetString("customer")
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	code := normalize.Identity(raw)
	if normalize.IsSentinel(code) {
		return "", eris.Errorf("invalid --customer %q: not a customer code", raw)
	}
	return code, nil
}

func customersView(customers []model.CustomerSummary) view {
	v := view{
		Title: "Customers",
		Headers: []string{
			"CODE", "NAME", "ROUTE", "BOOKER", "COMPANY", "BALANCE", "SALES", "QTY",
			"INVOICES", "LAST_DELIVERY", "LAST_INVOICE", "DAYS_SINCE",
		},
		Value: customers,
	}
	for _, c := range customers {
		v.Rows = append(v.Rows, []any{
			c.Code, c.Name, c.Route, c.Booker, c.Company, c.Balance, c.TotalSalesAmount, c.TotalQuantity,
			c.InvoiceCount, formatDate(c.LastDeliveryDate), formatDate(c.LastInvoiceDate), c.DaysSinceLastSale,
		})
	}
	return v
}

func transactionsView(lines []model.TransactionDetail) view {
	v := view{
		Title: "Transactions",
		Headers: []string{
			"DATE", "INVOICE", "CODE", "CUSTOMER", "PRODUCT", "QTY", "AMOUNT", "PROFIT",
			"BALANCE", "ROUTE", "BOOKER", "COMPANY",
		},
		Value: lines,
	}
	for _, l := range lines {
		v.Rows = append(v.Rows, []any{
			formatDate(l.DeliveryDate), l.InvoiceNumber, l.Code, l.CustomerName, l.Product, l.Quantity,
			l.Amount, l.Profit, l.Balance, l.Route, l.Booker, l.Company,
		})
	}
	return v
}

func creditListView(list *report.CreditList) view {
	v := view{
		Title: "Credit list",
		Headers: []string{
			"CODE", "NAME", "ROUTE", "BALANCE", "NET_AMOUNT", "PROFIT", "INVOICES",
			"RECENCY", "CREDIT_SCORE", "SEGMENT",
		},
		Value: list,
	}
	for _, r := range list.Rows {
		v.Rows = append(v.Rows, []any{
			r.Code, r.Name, r.Route, r.Balance, r.NetAmount, r.TotalProfit, r.InvoiceCount,
			r.Recency, r.CreditScore, r.Segment,
		})
	}
	return v
}
