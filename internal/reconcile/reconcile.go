// Package reconcile merges the credit roster with sales aggregates and
// profit-bearing sales lines into the persisted ledger, and orchestrates
// rebuilds of that ledger.
package reconcile

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/normalize"
)

// NotAvailable fills text fields a customer has no sales data for.
const NotAvailable = "N/A"

// NoActivityDays is DaysSinceLastSale for a customer with no dated activity.
const NoActivityDays = 999

// ErrNoIdentityOverlap means no sales customer code matches any credit
// customer code, which almost always indicates an identity formatting
// mismatch between the extracts.
var ErrNoIdentityOverlap = eris.New("reconcile: no sales customer matches the credit roster")

// Reconcile produces the customer summary and the transaction detail.
//
// The summary has exactly one row per credit customer, in roster order.
// Balances always come from the roster. The detail carries every line, with
// balance and last invoice date looked up by customer code; lines of
// customers missing from the roster get balance 0.
func Reconcile(credit []model.CreditRecord, agg []model.CustomerSalesAgg, lines []model.SalesLineWithProfit, asOf time.Time) (*model.Ledger, error) {
	log := zap.L().With(zap.String("component", "reconcile"))

	roster := make(map[string]model.CreditRecord, len(credit))
	for _, c := range credit {
		roster[c.Code] = c
	}

	if err := checkOverlap(roster, agg); err != nil {
		return nil, err
	}

	byCode := make(map[string]model.CustomerSalesAgg, len(agg))
	for _, a := range agg {
		byCode[a.Code] = a
	}

	customers := make([]model.CustomerSummary, 0, len(credit))
	for _, c := range credit {
		customers = append(customers, summarize(c, byCode, asOf))
	}

	transactions := make([]model.TransactionDetail, 0, len(lines))
	unknown := make(map[string]struct{})
	for _, l := range lines {
		td := model.TransactionDetail{SalesLine: l.SalesLine, Profit: l.Profit}
		if c, ok := roster[l.Code]; ok {
			td.Balance = c.Balance
			td.LastInvoiceDate = c.LastInvoiceDate
		} else {
			unknown[l.Code] = struct{}{}
		}
		transactions = append(transactions, td)
	}
	if len(unknown) > 0 {
		log.Warn("reconcile: sales customers missing from credit roster, balance set to 0",
			zap.Int("customers", len(unknown)))
	}

	log.Info("reconcile: ledger built",
		zap.Int("customers", len(customers)),
		zap.Int("transactions", len(transactions)),
	)
	return &model.Ledger{Customers: customers, Transactions: transactions}, nil
}

// checkOverlap passes only for an empty aggregate or when at least one real
// sales identity is on the roster. Sentinel identities never count.
func checkOverlap(roster map[string]model.CreditRecord, agg []model.CustomerSalesAgg) error {
	if len(agg) == 0 {
		return nil
	}
	var unparseable int
	for _, a := range agg {
		if normalize.IsSentinel(a.Code) {
			unparseable++
			continue
		}
		if _, ok := roster[a.Code]; ok {
			return nil
		}
	}
	return eris.Wrapf(ErrNoIdentityOverlap, "%d sales customers (%d unparseable), %d credit customers",
		len(agg), unparseable, len(roster))
}

func summarize(c model.CreditRecord, byCode map[string]model.CustomerSalesAgg, asOf time.Time) model.CustomerSummary {
	s := model.CustomerSummary{
		Code:            c.Code,
		Name:            c.Name,
		Balance:         c.Balance,
		LastInvoiceDate: c.LastInvoiceDate,
		Route:           c.Route,
		Booker:          NotAvailable,
		Company:         NotAvailable,
	}

	if a, ok := byCode[c.Code]; ok {
		s.TotalSalesAmount = a.TotalAmount
		s.TotalQuantity = a.TotalQuantity
		s.InvoiceCount = a.InvoiceCount
		s.LastDeliveryDate = a.LastDeliveryDate
		if a.Route != "" {
			s.Route = a.Route
		}
		if s.Name == "" {
			s.Name = a.CustomerName
		}
		s.Booker = orNA(a.Booker)
		s.Company = orNA(a.Company)
	}
	s.Route = orNA(s.Route)
	s.DaysSinceLastSale = daysSince(asOf, s.LastDeliveryDate, s.LastInvoiceDate)
	return s
}

func orNA(v string) string {
	if v == "" {
		return NotAvailable
	}
	return v
}

// daysSince counts whole days from the most relevant activity date to asOf.
func daysSince(asOf time.Time, delivery, invoice *time.Time) int {
	ref := delivery
	if ref == nil {
		ref = invoice
	}
	if ref == nil {
		return NoActivityDays
	}
	return normalize.DaysBetween(*ref, asOf)
}
