// Package report builds the read-side views that join the persisted ledger
// with derived scores.
package report

import (
	"cmp"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ledger-cli/internal/model"
)

// SegmentUnknown marks customers that scoring did not cover.
const SegmentUnknown = "UNKNOWN"

// CreditRow is one customer of the credit list.
type CreditRow struct {
	Code          string `json:"customer_code"`
	Name          string `json:"customer_name"`
	Route         string `json:"route"`
	Balance       int64  `json:"balance"`
	NetAmount     int64  `json:"net_amount"`
	TotalQuantity int64  `json:"total_quantity"`
	TotalProfit   int64  `json:"total_profit"`
	InvoiceCount  int    `json:"invoice_count"`
	DaysSince     int    `json:"days_since"`
	Recency       int    `json:"recency"`
	CreditScore   int    `json:"credit_score"`
	Segment       string `json:"segment"`
}

// CreditTotals summarizes the rows of a credit list.
type CreditTotals struct {
	Customers        int   `json:"customers"`
	TotalOutstanding int64 `json:"total_outstanding"`
	TotalProfit      int64 `json:"total_profit"`
	CustomersOwingUs int   `json:"customers_owing_us"`
	CustomersWeOwe   int   `json:"customers_we_owe"`
}

// CreditList is the credit view with its totals and the routes available
// for filtering.
type CreditList struct {
	Rows   []CreditRow  `json:"customers"`
	Totals CreditTotals `json:"totals"`
	Routes []string     `json:"routes"`
}

// CreditListOptions filter and order a credit list. An empty Route keeps
// every route; an empty SortBy orders by balance.
type CreditListOptions struct {
	Route  string
	SortBy string
	Asc    bool
}

var creditSortKeys = map[string]func(a, b CreditRow) int{
	"balance":        func(a, b CreditRow) int { return cmp.Compare(a.Balance, b.Balance) },
	"net_amount":     func(a, b CreditRow) int { return cmp.Compare(a.NetAmount, b.NetAmount) },
	"total_profit":   func(a, b CreditRow) int { return cmp.Compare(a.TotalProfit, b.TotalProfit) },
	"total_quantity": func(a, b CreditRow) int { return cmp.Compare(a.TotalQuantity, b.TotalQuantity) },
	"invoice_count":  func(a, b CreditRow) int { return cmp.Compare(a.InvoiceCount, b.InvoiceCount) },
	"days_since":     func(a, b CreditRow) int { return cmp.Compare(a.DaysSince, b.DaysSince) },
	"recency":        func(a, b CreditRow) int { return cmp.Compare(a.Recency, b.Recency) },
	"credit_score":   func(a, b CreditRow) int { return cmp.Compare(a.CreditScore, b.CreditScore) },
	"customer_code":  func(a, b CreditRow) int { return cmp.Compare(a.Code, b.Code) },
	"customer_name":  func(a, b CreditRow) int { return cmp.Compare(a.Name, b.Name) },
	"route":          func(a, b CreditRow) int { return cmp.Compare(a.Route, b.Route) },
	"segment":        func(a, b CreditRow) int { return cmp.Compare(a.Segment, b.Segment) },
}

// CreditSortKeys lists the accepted CreditListOptions.SortBy values.
func CreditSortKeys() []string {
	keys := make([]string, 0, len(creditSortKeys))
	for k := range creditSortKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildCreditList joins every roster customer with its invoice-level profit
// and, when scored, its RFM score and segment. Scored customers take
// frequency, monetary value, profit and recency from their score.
func BuildCreditList(customers []model.CustomerSummary, lines []model.TransactionDetail, scores []model.ScoreRecord, opts CreditListOptions) (*CreditList, error) {
	sortBy := opts.SortBy
	if sortBy == "" {
		sortBy = "balance"
	}
	compare, ok := creditSortKeys[sortBy]
	if !ok {
		return nil, eris.Errorf("report: unknown credit list sort key %q", sortBy)
	}

	profit := ProfitByCustomer(lines)
	scored := make(map[string]model.ScoreRecord, len(scores))
	for _, s := range scores {
		scored[s.Code] = s
	}

	list := &CreditList{Routes: routes(customers)}
	for _, c := range customers {
		if opts.Route != "" && c.Route != opts.Route {
			continue
		}
		row := CreditRow{
			Code:          c.Code,
			Name:          c.Name,
			Route:         c.Route,
			Balance:       c.Balance,
			NetAmount:     c.TotalSalesAmount,
			TotalQuantity: c.TotalQuantity,
			TotalProfit:   profit[c.Code],
			InvoiceCount:  c.InvoiceCount,
			DaysSince:     c.DaysSinceLastSale,
			Recency:       c.DaysSinceLastSale,
			Segment:       SegmentUnknown,
		}
		if s, ok := scored[c.Code]; ok {
			row.NetAmount = s.Monetary
			row.TotalProfit = s.TotalProfit
			row.InvoiceCount = s.Frequency
			row.Recency = s.Recency
			row.CreditScore = s.RFMScore
			row.Segment = s.Segment
		}
		list.Rows = append(list.Rows, row)

		list.Totals.Customers++
		list.Totals.TotalOutstanding += row.Balance
		list.Totals.TotalProfit += row.TotalProfit
		switch {
		case row.Balance > 0:
			list.Totals.CustomersOwingUs++
		case row.Balance < 0:
			list.Totals.CustomersWeOwe++
		}
	}

	sort.SliceStable(list.Rows, func(a, b int) bool {
		c := compare(list.Rows[a], list.Rows[b])
		if opts.Asc {
			return c < 0
		}
		return c > 0
	})
	return list, nil
}

// ProfitByCustomer sums profit per customer counting each invoice once.
func ProfitByCustomer(lines []model.TransactionDetail) map[string]int64 {
	type key struct{ code, invoice string }
	seen := make(map[key]struct{})
	out := make(map[string]int64)
	for _, l := range lines {
		k := key{l.Code, l.InvoiceNumber}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out[l.Code] += l.Profit
	}
	return out
}

func routes(customers []model.CustomerSummary) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range customers {
		if c.Route == "" {
			continue
		}
		if _, ok := seen[c.Route]; ok {
			continue
		}
		seen[c.Route] = struct{}{}
		out = append(out, c.Route)
	}
	sort.Strings(out)
	return out
}
