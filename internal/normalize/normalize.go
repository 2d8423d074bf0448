// Package normalize holds the per-field cleaning primitives shared by every
// extract loader, and the single customer identity standardizer.
package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CleanString returns v as a trimmed string. The bool is false when v is
// nil, a nil pointer, or blank.
func CleanString(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s = x
	case *string:
		if x == nil {
			return "", false
		}
		s = *x
	case float64:
		if math.IsNaN(x) {
			return "", false
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return "", false
		}
		s = x.Format(time.DateTime)
	default:
		n, ok := toDecimal(v)
		if !ok {
			return "", false
		}
		s = n.String()
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	return s, true
}

// CleanRoundInteger parses v as a number and rounds it to the nearest
// integer, halves away from zero. The bool is false when v is not numeric.
func CleanRoundInteger(v any) (int64, bool) {
	d, ok := toDecimal(v)
	if !ok {
		return 0, false
	}
	return toInt64(d.Round(0))
}

// truncateInteger is CleanRoundInteger without rounding: fractional parts
// are dropped.
func truncateInteger(v any) (int64, bool) {
	d, ok := toDecimal(v)
	if !ok {
		return 0, false
	}
	return toInt64(d.Truncate(0))
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

// toInt64 converts a whole decimal, reporting false when it does not fit.
func toInt64(d decimal.Decimal) (int64, bool) {
	if d.LessThan(minInt64) || d.GreaterThan(maxInt64) {
		return 0, false
	}
	return d.IntPart(), true
}

// toDecimal converts the numeric kinds a spreadsheet reader can hand us into
// an exact decimal.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int8:
		return decimal.NewFromInt(int64(x)), true
	case int16:
		return decimal.NewFromInt(int64(x)), true
	case int32:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case uint:
		return decimal.NewFromInt(int64(x)), true
	case uint8:
		return decimal.NewFromInt(int64(x)), true
	case uint16:
		return decimal.NewFromInt(int64(x)), true
	case uint32:
		return decimal.NewFromInt(int64(x)), true
	case uint64:
		if x > math.MaxInt64 {
			return decimal.Zero, false
		}
		return decimal.NewFromInt(int64(x)), true
	case float32:
		return fromFloat(float64(x))
	case float64:
		return fromFloat(x)
	case decimal.Decimal:
		return x, true
	case string:
		return parseDecimal(x)
	case *string:
		if x == nil {
			return decimal.Zero, false
		}
		return parseDecimal(*x)
	default:
		return decimal.Zero, false
	}
}

func fromFloat(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// parseDecimal accepts plain, thousands-separated and exponent notation.
func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		// Accounting negatives: (1,200) == -1200.
		s = "-" + strings.Trim(s, "()")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// excelEpoch is day zero of the 1900 spreadsheet date system, shifted to
// absorb the fictitious 1900-02-29.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxExcelSerial is 9999-12-31.
const maxExcelSerial = 2958465

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"2006/1/2",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"2-Jan-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"02-Jan-06",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"02.01.2006",
	"20060102",
}

// ParseDate converts v to a date with time of day. It accepts time.Time,
// spreadsheet serial numbers (as numbers or numeric strings) and the common
// textual layouts found in distributor exports. Ambiguous slash dates are
// read month first. The bool is false when nothing matches.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return x, !x.IsZero()
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, false
		}
		return *x, true
	case string:
		return parseDateString(x)
	case *string:
		if x == nil {
			return time.Time{}, false
		}
		return parseDateString(*x)
	default:
		d, ok := toDecimal(v)
		if !ok {
			return time.Time{}, false
		}
		return fromSerial(d.InexactFloat64())
	}
}

func parseDateString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f < maxExcelSerial+1 {
		return fromSerial(f)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func fromSerial(f float64) (time.Time, bool) {
	if math.IsNaN(f) || f < 1 || f >= maxExcelSerial+1 {
		return time.Time{}, false
	}
	days := math.Floor(f)
	secs := math.Round((f - days) * 86400)
	return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), true
}

// DaysBetween returns the number of calendar days from a to b, ignoring the
// time of day. It is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}
