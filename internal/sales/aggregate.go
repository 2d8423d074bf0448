package sales

import (
	"time"

	"github.com/sells-group/ledger-cli/internal/model"
)

// Aggregate rolls lines up to one row per customer code, in order of first
// appearance. Name, route, booker and company come from the first line that
// carries a non-empty value.
func Aggregate(lines []model.SalesLine) []model.CustomerSalesAgg {
	pos := make(map[string]int)
	invoices := make(map[string]map[string]struct{})
	var out []model.CustomerSalesAgg

	for _, l := range lines {
		i, ok := pos[l.Code]
		if !ok {
			i = len(out)
			pos[l.Code] = i
			out = append(out, model.CustomerSalesAgg{Code: l.Code})
			invoices[l.Code] = make(map[string]struct{})
		}
		a := &out[i]
		a.TotalAmount += l.Amount
		a.TotalQuantity += l.Quantity
		if l.InvoiceNumber != "" {
			invoices[l.Code][l.InvoiceNumber] = struct{}{}
		}
		if l.DeliveryDate != nil && (a.LastDeliveryDate == nil || l.DeliveryDate.After(*a.LastDeliveryDate)) {
			d := *l.DeliveryDate
			a.LastDeliveryDate = &d
		}
		firstNonEmpty(&a.CustomerName, l.CustomerName)
		firstNonEmpty(&a.Route, l.Route)
		firstNonEmpty(&a.Booker, l.Booker)
		firstNonEmpty(&a.Company, l.Company)
	}

	for i := range out {
		out[i].InvoiceCount = len(invoices[out[i].Code])
	}
	return out
}

func firstNonEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// Stats describes the make-up of a set of sales lines.
type Stats struct {
	Lines          int        `json:"lines"`
	PositiveLines  int        `json:"positive_lines"`
	ReturnLines    int        `json:"return_lines"`
	ZeroLines      int        `json:"zero_lines"`
	PositiveAmount int64      `json:"positive_amount"`
	ReturnAmount   int64      `json:"return_amount"`
	NetAmount      int64      `json:"net_amount"`
	Customers      int        `json:"customers"`
	Invoices       int        `json:"invoices"`
	FirstDelivery  *time.Time `json:"first_delivery,omitempty"`
	LastDelivery   *time.Time `json:"last_delivery,omitempty"`
}

// Summarize computes Stats for lines. Returns and claims are lines with a
// negative amount.
func Summarize(lines []model.SalesLine) Stats {
	st := Stats{Lines: len(lines)}
	customers := make(map[string]struct{})
	invoices := make(map[string]struct{})
	for _, l := range lines {
		switch {
		case l.Amount > 0:
			st.PositiveLines++
			st.PositiveAmount += l.Amount
		case l.Amount < 0:
			st.ReturnLines++
			st.ReturnAmount += l.Amount
		default:
			st.ZeroLines++
		}
		st.NetAmount += l.Amount
		customers[l.Code] = struct{}{}
		if l.InvoiceNumber != "" {
			invoices[l.InvoiceNumber] = struct{}{}
		}
		if d := l.DeliveryDate; d != nil {
			if st.FirstDelivery == nil || d.Before(*st.FirstDelivery) {
				v := *d
				st.FirstDelivery = &v
			}
			if st.LastDelivery == nil || d.After(*st.LastDelivery) {
				v := *d
				st.LastDelivery = &v
			}
		}
	}
	st.Customers = len(customers)
	st.Invoices = len(invoices)
	return st
}
