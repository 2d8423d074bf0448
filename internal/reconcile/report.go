package reconcile

import (
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/margin"
	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/sales"
)

// CreditStats summarizes the roster's balances.
type CreditStats struct {
	Customers     int   `json:"customers"`
	Owing         int   `json:"customers_owing"`
	WeOwe         int   `json:"customers_we_owe"`
	Settled       int   `json:"customers_settled"`
	TotalOwing    int64 `json:"total_owing"`
	TotalWeOwe    int64 `json:"total_we_owe"`
	NetReceivable int64 `json:"net_receivable"`
}

// MarginStats summarizes invoice profitability.
type MarginStats struct {
	Invoices    int   `json:"invoices"`
	Profitable  int   `json:"profitable_invoices"`
	Loss        int   `json:"loss_invoices"`
	TotalProfit int64 `json:"total_profit"`
}

// LoadReport describes the data that went into one rebuild.
type LoadReport struct {
	Credit        CreditStats        `json:"credit"`
	RawSalesLines int                `json:"raw_sales_lines"`
	Sales         sales.Stats        `json:"sales"`
	Margin        MarginStats        `json:"margin"`
	Merge         margin.MergeReport `json:"merge"`
}

// SummarizeCredit computes balance totals. Positive balances are owed to us.
func SummarizeCredit(roster []model.CreditRecord) CreditStats {
	st := CreditStats{Customers: len(roster)}
	for _, c := range roster {
		switch {
		case c.Balance > 0:
			st.Owing++
			st.TotalOwing += c.Balance
		case c.Balance < 0:
			st.WeOwe++
			st.TotalWeOwe += -c.Balance
		default:
			st.Settled++
		}
	}
	st.NetReceivable = st.TotalOwing - st.TotalWeOwe
	return st
}

// SummarizeMargin counts profitable and loss-making invoices.
func SummarizeMargin(profits []model.InvoiceProfit) MarginStats {
	st := MarginStats{Invoices: len(profits)}
	for _, p := range profits {
		switch {
		case p.Profit > 0:
			st.Profitable++
		case p.Profit < 0:
			st.Loss++
		}
		st.TotalProfit += p.Profit
	}
	return st
}

// Log writes the report as structured fields.
func (r LoadReport) Log(log *zap.Logger) {
	log.Info("rebuild: credit balances",
		zap.Int("customers", r.Credit.Customers),
		zap.Int("owing", r.Credit.Owing),
		zap.Int("we_owe", r.Credit.WeOwe),
		zap.Int64("total_owing", r.Credit.TotalOwing),
		zap.Int64("total_we_owe", r.Credit.TotalWeOwe),
	)
	log.Info("rebuild: sales lines",
		zap.Int("raw", r.RawSalesLines),
		zap.Int("deduplicated", r.Sales.Lines),
		zap.Int("positive", r.Sales.PositiveLines),
		zap.Int("returns", r.Sales.ReturnLines),
		zap.Int("zero", r.Sales.ZeroLines),
		zap.Int64("net_amount", r.Sales.NetAmount),
	)
	log.Info("rebuild: margin",
		zap.Int("invoices", r.Margin.Invoices),
		zap.Int("profitable", r.Margin.Profitable),
		zap.Int("loss", r.Margin.Loss),
		zap.Int("unmatched_lines", r.Merge.Unmatched),
		zap.Int("shared_invoices", len(r.Merge.SharedInvoices)),
	)
}
