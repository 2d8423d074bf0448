// Package margin loads invoice-level profit and attaches it to sales lines.
package margin

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/extract"
	"github.com/sells-group/ledger-cli/internal/model"
)

// Canonical field names.
const (
	FieldInvoice = "invoice_number"
	FieldNet     = "amount_from_margin"
	FieldProfit  = "profit"
)

// Schema is the margin extract column contract.
var Schema = extract.Schema{
	Name: "margin",
	Columns: []extract.Column{
		{Field: FieldInvoice, Headers: []string{"Invoice #", "Inv #", "invoice_number"}, Kind: extract.KindString, Required: true},
		{Field: FieldNet, Headers: []string{"Net", "amount_from_margin"}, Kind: extract.KindInteger},
		{Field: FieldProfit, Headers: []string{"Profit", "profit"}, Kind: extract.KindInteger, Required: true},
	},
}

// Load reads the margin extract at path, one row per invoice.
func Load(ctx context.Context, path string) ([]model.InvoiceProfit, error) {
	recs, _, err := extract.Read(ctx, path, Schema)
	if err != nil {
		return nil, eris.Wrap(err, "margin: load")
	}
	profits, duplicates := FromRecords(recs)
	log := zap.L().With(zap.String("component", "margin"), zap.String("path", path))
	if duplicates > 0 {
		log.Warn("margin: removed duplicate invoices", zap.Int("duplicates", duplicates))
	}
	log.Info("margin: invoices loaded", zap.Int("invoices", len(profits)))
	return profits, nil
}

// FromRecords maps cleaned rows to invoice profits. Rows without an invoice
// number are skipped; a repeated invoice keeps its last row.
func FromRecords(recs []extract.Record) (profits []model.InvoiceProfit, duplicates int) {
	pos := make(map[string]int, len(recs))
	for _, rec := range recs {
		inv := rec.String(FieldInvoice)
		if inv == "" {
			continue
		}
		p := model.InvoiceProfit{
			InvoiceNumber: inv,
			NetAmount:     rec.Int(FieldNet),
			Profit:        rec.Int(FieldProfit),
		}
		if i, ok := pos[inv]; ok {
			profits[i] = p
			duplicates++
			continue
		}
		pos[inv] = len(profits)
		profits = append(profits, p)
	}
	return profits, duplicates
}

// MergeReport describes one Merge call.
type MergeReport struct {
	Lines          int      `json:"lines"`
	Matched        int      `json:"matched_lines"`
	Unmatched      int      `json:"unmatched_lines"`
	SharedInvoices []string `json:"shared_invoices,omitempty"`
}

// Merge attaches each invoice's profit to every line of that invoice. Lines
// whose invoice has no margin row get profit 0. Invoices that appear under
// more than one customer code are reported and logged, not resolved.
func Merge(lines []model.SalesLine, profits []model.InvoiceProfit) ([]model.SalesLineWithProfit, MergeReport) {
	byInvoice := make(map[string]int64, len(profits))
	for _, p := range profits {
		byInvoice[p.InvoiceNumber] = p.Profit
	}

	rep := MergeReport{Lines: len(lines)}
	owners := make(map[string]string, len(lines))
	shared := make(map[string]struct{})
	out := make([]model.SalesLineWithProfit, len(lines))
	for i, l := range lines {
		profit, ok := byInvoice[l.InvoiceNumber]
		if ok {
			rep.Matched++
		} else {
			rep.Unmatched++
		}
		out[i] = model.SalesLineWithProfit{SalesLine: l, Profit: profit}

		if l.InvoiceNumber == "" {
			continue
		}
		if owner, seen := owners[l.InvoiceNumber]; !seen {
			owners[l.InvoiceNumber] = l.Code
		} else if owner != l.Code {
			shared[l.InvoiceNumber] = struct{}{}
		}
	}

	for inv := range shared {
		rep.SharedInvoices = append(rep.SharedInvoices, inv)
	}
	sort.Strings(rep.SharedInvoices)

	if len(rep.SharedInvoices) > 0 {
		zap.L().Warn("margin: invoices shared by more than one customer",
			zap.String("component", "margin"),
			zap.Int("count", len(rep.SharedInvoices)),
			zap.Strings("invoices", head(rep.SharedInvoices, 20)),
		)
	}
	return out, rep
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
