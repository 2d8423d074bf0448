// Package sales loads sales extracts, removes duplicate invoice lines and
// aggregates lines per customer.
package sales

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/ledger-cli/internal/extract"
	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/normalize"
)

// Canonical field names.
const (
	FieldInvoice  = "invoice_number"
	FieldDate     = "delivery_date"
	FieldBooker   = "booker_name"
	FieldCode     = "customer_code"
	FieldName     = "customer_name"
	FieldProduct  = "product_name"
	FieldQuantity = "quantity"
	FieldAmount   = "amount"
	FieldCompany  = "company"
	FieldRoute    = "route"
)

// readConcurrency bounds parallel extract reads.
const readConcurrency = 4

// Schema is the sales extract column contract.
var Schema = extract.Schema{
	Name: "sales",
	Columns: []extract.Column{
		{Field: FieldInvoice, Headers: []string{"Inv #", "Invoice #", "invoice_number"}, Kind: extract.KindString, Required: true},
		{Field: FieldDate, Headers: []string{"Dl. Date", "Delivery Date", "delivery_date"}, Kind: extract.KindDate, Required: true},
		{Field: FieldBooker, Headers: []string{"Booker", "booker_name"}, Kind: extract.KindString},
		{Field: FieldCode, Headers: []string{"Cust", "customer_code"}, Kind: extract.KindIdentity, Required: true},
		{Field: FieldName, Headers: []string{"Client", "customer_name"}, Kind: extract.KindString},
		{Field: FieldProduct, Headers: []string{"Product", "product_name"}, Kind: extract.KindString, Required: true},
		{Field: FieldQuantity, Headers: []string{"Net.Qty", "Net. Qty", "quantity"}, Kind: extract.KindInteger},
		{Field: FieldAmount, Headers: []string{"Net. Amnt", "Net.Amnt", "amount"}, Kind: extract.KindInteger, Required: true},
		{Field: FieldCompany, Headers: []string{"Company", "company"}, Kind: extract.KindString},
		{Field: FieldRoute, Headers: []string{"Route", "route"}, Kind: extract.KindString},
	},
}

// Load reads every sales extract in paths and returns the concatenated,
// cleaned lines in path order. Extracts are read concurrently; any failure
// aborts the whole load.
func Load(ctx context.Context, paths []string) ([]model.SalesLine, error) {
	log := zap.L().With(zap.String("component", "sales"))
	if len(paths) == 0 {
		log.Warn("sales: no extracts configured")
		return nil, nil
	}

	parts := make([][]extract.Record, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			recs, _, err := extract.Read(gctx, path, Schema)
			if err != nil {
				return eris.Wrapf(err, "sales: load %s", path)
			}
			parts[i] = recs
			log.Debug("sales: extract read", zap.String("path", path), zap.Int("rows", len(recs)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var lines []model.SalesLine
	for _, recs := range parts {
		lines = append(lines, FromRecords(recs)...)
	}
	log.Info("sales: extracts loaded", zap.Int("files", len(paths)), zap.Int("lines", len(lines)))
	return lines, nil
}

// FromRecords maps cleaned sales rows to lines and standardizes every
// customer code.
func FromRecords(recs []extract.Record) []model.SalesLine {
	lines := make([]model.SalesLine, 0, len(recs))
	for _, rec := range recs {
		lines = append(lines, model.SalesLine{
			Code:          rec.String(FieldCode),
			CustomerName:  rec.String(FieldName),
			InvoiceNumber: rec.String(FieldInvoice),
			DeliveryDate:  rec.Date(FieldDate),
			Booker:        rec.String(FieldBooker),
			Product:       rec.String(FieldProduct),
			Quantity:      rec.Int(FieldQuantity),
			Amount:        rec.Int(FieldAmount),
			Company:       rec.String(FieldCompany),
			Route:         rec.String(FieldRoute),
		})
	}
	for i := range lines {
		lines[i].Code = normalize.Identity(lines[i].Code)
	}
	return lines
}

type lineKey struct {
	invoice string
	product string
}

// Dedup keeps one line per (invoice, product): the one with the latest
// delivery date, and among equal dates the one that arrived later. Lines
// without a date lose to any dated line. The result is in ascending
// delivery-date order with undated lines last.
func Dedup(lines []model.SalesLine) []model.SalesLine {
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	// Newest first, undated last, later arrival first on ties.
	sort.SliceStable(idx, func(a, b int) bool {
		da, db := lines[idx[a]].DeliveryDate, lines[idx[b]].DeliveryDate
		if c := compareDates(da, db); c != 0 {
			if da == nil || db == nil {
				return da != nil
			}
			return c > 0
		}
		return idx[a] > idx[b]
	})

	seen := make(map[lineKey]struct{}, len(lines))
	kept := make([]int, 0, len(lines))
	for _, i := range idx {
		k := lineKey{invoice: lines[i].InvoiceNumber, product: lines[i].Product}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, i)
	}

	sort.SliceStable(kept, func(a, b int) bool {
		if c := compareDates(lines[kept[a]].DeliveryDate, lines[kept[b]].DeliveryDate); c != 0 {
			return c < 0
		}
		return kept[a] < kept[b]
	})

	out := make([]model.SalesLine, len(kept))
	for i, k := range kept {
		out[i] = lines[k]
	}
	return out
}

// compareDates orders dates ascending with nil after every date.
func compareDates(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}
