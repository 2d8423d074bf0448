package normalize

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCleanString(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   string
		wantOK bool
	}{
		{"plain", "Al Madina Store", "Al Madina Store", true},
		{"trimmed", "  Route 7 \t", "Route 7", true},
		{"blank", "   ", "", false},
		{"empty", "", "", false},
		{"nil", nil, "", false},
		{"nil pointer", (*string)(nil), "", false},
		{"int", 42, "42", true},
		{"float", 1001.0, "1001", true},
		{"nan", math.NaN(), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanString(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanRoundInteger(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int64
		wantOK bool
	}{
		{"int string", "1200", 1200, true},
		{"negative", "-500", -500, true},
		{"round down", "10.4", 10, true},
		{"half up", "10.5", 11, true},
		{"half away from zero", "-10.5", -11, true},
		{"thousands", "1,234,567", 1234567, true},
		{"accounting negative", "(1,200)", -1200, true},
		{"exponent", "1.5e3", 1500, true},
		{"float", 99.6, 100, true},
		{"int64", int64(7), 7, true},
		{"decimal", decimal.RequireFromString("2.5"), 3, true},
		{"blank", " ", 0, false},
		{"text", "n/a", 0, false},
		{"nil", nil, 0, false},
		{"inf", math.Inf(1), 0, false},
		{"max int64", "9223372036854775807", math.MaxInt64, true},
		{"min int64", "-9223372036854775808", math.MinInt64, true},
		{"overflow exponent", "1e25", 0, false},
		{"overflow by one", "9223372036854775808", 0, false},
		{"negative overflow", "-1e19", 0, false},
		{"huge float", 1e30, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanRoundInteger(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	jan1 := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		in     any
		want   time.Time
		wantOK bool
	}{
		{"iso", "2025-01-01", jan1, true},
		{"iso datetime", "2025-01-01 13:30:00", time.Date(2025, 1, 1, 13, 30, 0, 0, time.UTC), true},
		{"rfc3339", "2025-01-01T00:00:00Z", jan1, true},
		{"month first slashes", "1/2/2025", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"dd-Mon-yyyy", "01-Jan-2025", jan1, true},
		{"long month", "January 1, 2025", jan1, true},
		{"compact", "20250101", jan1, true},
		{"serial number", 45658, jan1, true},
		{"serial string", "45658", jan1, true},
		{"serial with time", 45658.5, time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), true},
		{"time value", jan1, jan1, true},
		{"zero time", time.Time{}, time.Time{}, false},
		{"garbage", "not a date", time.Time{}, false},
		{"blank", "", time.Time{}, false},
		{"nil", nil, time.Time{}, false},
		{"negative serial", -3, time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestDaysBetween(t *testing.T) {
	jan1 := time.Date(2025, 1, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysBetween(jan1, jan1))
	assert.Equal(t, 9, DaysBetween(jan1, time.Date(2025, 1, 10, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 365, DaysBetween(jan1, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, -1, DaysBetween(jan1, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
}
