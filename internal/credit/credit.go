// Package credit loads the credit-balance extract, the authoritative
// customer roster.
package credit

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/extract"
	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/normalize"
)

// Canonical field names.
const (
	FieldCode            = "customer_code"
	FieldBalance         = "balance"
	FieldLastInvoiceDate = "last_invoice_date"
	FieldName            = "customer_name"
	FieldRoute           = "route"
)

// ErrEmptyRoster is returned when no usable customer survives loading.
var ErrEmptyRoster = eris.New("credit: roster is empty")

// Schema is the credit extract column contract.
var Schema = extract.Schema{
	Name: "credit",
	Columns: []extract.Column{
		{Field: FieldCode, Headers: []string{"Code", "customer_code"}, Kind: extract.KindIdentity, Required: true},
		{Field: FieldBalance, Headers: []string{"Balance", "balance"}, Kind: extract.KindInteger, Required: true},
		{Field: FieldLastInvoiceDate, Headers: []string{"Last Invoice on", "last_invoice_date"}, Kind: extract.KindDate, Required: true},
		{Field: FieldName, Headers: []string{"Name", "Customer Name", "customer_name", "Client"}, Kind: extract.KindString},
		{Field: FieldRoute, Headers: []string{"Route", "route"}, Kind: extract.KindString},
	},
}

// Load reads the credit roster at path. Any read or binding failure is an
// error: a partial roster is never returned.
func Load(ctx context.Context, path string) ([]model.CreditRecord, error) {
	log := zap.L().With(zap.String("component", "credit"), zap.String("path", path))

	recs, b, err := extract.Read(ctx, path, Schema)
	if err != nil {
		return nil, eris.Wrap(err, "credit: load")
	}
	log.Info("credit: extract read",
		zap.Int("rows", len(recs)),
		zap.Bool("has_name", b.Present(FieldName)),
		zap.Bool("has_route", b.Present(FieldRoute)),
	)

	roster, dropped, duplicates := FromRecords(recs)
	if dropped > 0 {
		log.Warn("credit: dropped rows without a usable customer code", zap.Int("dropped", dropped))
	}
	if duplicates > 0 {
		log.Warn("credit: removed duplicate customer codes", zap.Int("duplicates", duplicates))
	}
	if len(roster) == 0 {
		return nil, eris.Wrapf(ErrEmptyRoster, "%s", path)
	}

	log.Info("credit: roster loaded", zap.Int("customers", len(roster)))
	return roster, nil
}

// FromRecords turns cleaned credit rows into the roster: identities are
// standardized, sentinel identities dropped, balances flipped to the
// "positive = owed to us" convention, and duplicates resolved by keeping
// the last occurrence at the position of its first.
func FromRecords(recs []extract.Record) (roster []model.CreditRecord, dropped, duplicates int) {
	pos := make(map[string]int, len(recs))
	for _, rec := range recs {
		code := normalize.Identity(rec.String(FieldCode))
		if normalize.IsSentinel(code) {
			dropped++
			continue
		}

		cr := model.CreditRecord{
			Code:            code,
			Name:            rec.String(FieldName),
			Route:           rec.String(FieldRoute),
			Balance:         -rec.Int(FieldBalance),
			LastInvoiceDate: rec.Date(FieldLastInvoiceDate),
		}

		if i, ok := pos[code]; ok {
			roster[i] = cr
			duplicates++
			continue
		}
		pos[code] = len(roster)
		roster = append(roster, cr)
	}
	return roster, dropped, duplicates
}
