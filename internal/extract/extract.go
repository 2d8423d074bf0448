// Package extract binds spreadsheet extracts to declared column schemas and
// cleans every cell through the normalize primitives for its declared kind.
// Loaders never clean fields themselves.
package extract

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ledger-cli/internal/fetcher"
	"github.com/sells-group/ledger-cli/internal/normalize"
)

// ErrMissingColumns is returned when an extract lacks a required column.
var ErrMissingColumns = eris.New("extract: required columns missing")

// ErrEmptyExtract is returned when an extract has no header row.
var ErrEmptyExtract = eris.New("extract: no header row")

// Kind is the declared type of a column; it selects the cleaning primitive.
type Kind int

const (
	KindString Kind = iota
	KindInteger
	KindDate
	// KindIdentity is kept as the trimmed raw text. Callers standardize
	// identities in bulk with normalize.Identity after loading.
	KindIdentity
)

// Column declares one canonical field and the source headers it may come from.
type Column struct {
	Field    string
	Headers  []string
	Kind     Kind
	Required bool
}

// Schema is the explicit column contract of one extract type.
type Schema struct {
	Name    string
	Columns []Column
}

// Binding maps canonical fields to column positions of one extract.
type Binding struct {
	schema Schema
	index  map[string]int
	kinds  map[string]Kind
}

var spaceRe = regexp.MustCompile(`\s+`)

// normalizeHeader lowercases and collapses whitespace so "Dl.  Date " and
// "dl. date" match.
func normalizeHeader(s string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Bind resolves every schema column against header. Missing optional
// columns are simply absent from the binding; missing required columns
// return ErrMissingColumns naming them.
func Bind(schema Schema, header []string) (*Binding, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := positions[key]; !dup {
			positions[key] = i
		}
	}

	b := &Binding{
		schema: schema,
		index:  make(map[string]int, len(schema.Columns)),
		kinds:  make(map[string]Kind, len(schema.Columns)),
	}
	var missing []string
	for _, col := range schema.Columns {
		b.kinds[col.Field] = col.Kind
		found := false
		for _, h := range col.Headers {
			if idx, ok := positions[normalizeHeader(h)]; ok {
				b.index[col.Field] = idx
				found = true
				break
			}
		}
		if !found && col.Required {
			missing = append(missing, col.Headers[0])
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, eris.Wrapf(ErrMissingColumns, "%s: %s", schema.Name, strings.Join(missing, ", "))
	}
	return b, nil
}

// Present reports whether field was found in the extract.
func (b *Binding) Present(field string) bool {
	_, ok := b.index[field]
	return ok
}

// Record cleans one row according to the bound schema.
func (b *Binding) Record(row []string) Record {
	rec := Record{values: make(map[string]value, len(b.index))}
	for field, idx := range b.index {
		if idx >= len(row) {
			continue
		}
		rec.values[field] = clean(b.kinds[field], row[idx])
	}
	return rec
}

// Records cleans every row.
func (b *Binding) Records(rows [][]string) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, b.Record(row))
	}
	return out
}

func clean(kind Kind, raw string) value {
	switch kind {
	case KindInteger:
		n, ok := normalize.CleanRoundInteger(raw)
		return value{i: n, ok: ok}
	case KindDate:
		t, ok := normalize.ParseDate(raw)
		return value{t: t, ok: ok}
	default:
		s, ok := normalize.CleanString(raw)
		return value{s: s, ok: ok}
	}
}

// Read loads the extract at path and binds it to schema. The first non-blank
// row is the header.
func Read(ctx context.Context, path string, schema Schema) ([]Record, *Binding, error) {
	rows, err := fetcher.ReadTable(ctx, path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "extract: read %s extract", schema.Name)
	}
	if len(rows) == 0 {
		return nil, nil, eris.Wrapf(ErrEmptyExtract, "%s: %s", schema.Name, path)
	}
	b, err := Bind(schema, rows[0])
	if err != nil {
		return nil, nil, err
	}
	return b.Records(rows[1:]), b, nil
}

type value struct {
	s  string
	i  int64
	t  time.Time
	ok bool
}

// Record is one cleaned extract row. Accessors return zero values for
// missing cells.
type Record struct {
	values map[string]value
}

// String returns the cleaned string for field, "" when missing.
func (r Record) String(field string) string {
	return r.values[field].s
}

// Int returns the rounded integer for field, 0 when missing.
func (r Record) Int(field string) int64 {
	return r.values[field].i
}

// IntOK is Int with a presence flag.
func (r Record) IntOK(field string) (int64, bool) {
	v := r.values[field]
	return v.i, v.ok
}

// Date returns the parsed date for field, nil when missing.
func (r Record) Date(field string) *time.Time {
	v, ok := r.values[field]
	if !ok || !v.ok {
		return nil
	}
	t := v.t
	return &t
}

// Valid reports whether field held a usable value.
func (r Record) Valid(field string) bool {
	return r.values[field].ok
}
