// Package inventory loads the product stock extract that feeds the
// purchasing signal.
package inventory

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/extract"
	"github.com/sells-group/ledger-cli/internal/model"
)

// Canonical field names.
const (
	FieldName   = "product_name"
	FieldStock  = "stock_quantity"
	FieldStatus = "status"
)

// Schema is the inventory extract column contract.
var Schema = extract.Schema{
	Name: "inventory",
	Columns: []extract.Column{
		{Field: FieldName, Headers: []string{"Name", "product_name", "Product"}, Kind: extract.KindString, Required: true},
		{Field: FieldStock, Headers: []string{"netpcs", "stock_quantity", "Stock"}, Kind: extract.KindInteger, Required: true},
		{Field: FieldStatus, Headers: []string{"Status", "status"}, Kind: extract.KindString},
	},
}

// Load reads the inventory extract at path.
func Load(ctx context.Context, path string) ([]model.Product, error) {
	log := zap.L().With(zap.String("component", "inventory"), zap.String("path", path))

	recs, b, err := extract.Read(ctx, path, Schema)
	if err != nil {
		return nil, eris.Wrap(err, "inventory: load")
	}
	hasStatus := b.Present(FieldStatus)
	if !hasStatus {
		log.Info("inventory: no Status column, deriving status from stock")
	}

	products, duplicates := FromRecords(recs, hasStatus)
	if duplicates > 0 {
		log.Warn("inventory: removed duplicate product names", zap.Int("duplicates", duplicates))
	}

	counts := CountByStatus(products)
	log.Info("inventory: products loaded",
		zap.Int("products", len(products)),
		zap.Int("active", counts[model.ProductActive]),
		zap.Int("discontinued", counts[model.ProductDiscontinued]),
		zap.Int("out_of_stock", counts[model.ProductOutOfStock]),
	)
	return products, nil
}

// FromRecords builds the product list. Rows without a name are skipped and
// unparseable stock counts as 0. When the extract carries a status column a
// blank status means Active; otherwise status follows stock. Duplicate names
// keep the last row at the position of the first.
func FromRecords(recs []extract.Record, hasStatus bool) (products []model.Product, duplicates int) {
	pos := make(map[string]int, len(recs))
	for _, rec := range recs {
		name := rec.String(FieldName)
		if name == "" || strings.EqualFold(name, "nan") {
			continue
		}
		p := model.Product{Name: name, StockQuantity: rec.Int(FieldStock)}
		switch {
		case !hasStatus && p.StockQuantity > 0:
			p.Status = model.ProductActive
		case !hasStatus:
			p.Status = model.ProductOutOfStock
		default:
			p.Status = rec.String(FieldStatus)
			if p.Status == "" {
				p.Status = model.ProductActive
			}
		}

		if i, ok := pos[name]; ok {
			products[i] = p
			duplicates++
			continue
		}
		pos[name] = len(products)
		products = append(products, p)
	}
	return products, duplicates
}

// CountByStatus tallies products per status.
func CountByStatus(products []model.Product) map[string]int {
	out := make(map[string]int)
	for _, p := range products {
		out[p.Status]++
	}
	return out
}
