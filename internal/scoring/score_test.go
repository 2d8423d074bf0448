package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ledger-cli/internal/model"
)

func date(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func line(code, invoice, delivered string, amount, profit, balance int64) model.TransactionDetail {
	var d *time.Time
	if delivered != "" {
		d = date(delivered)
	}
	return model.TransactionDetail{
		SalesLine: model.SalesLine{
			Code:          code,
			CustomerName:  "Customer " + code,
			InvoiceNumber: invoice,
			DeliveryDate:  d,
			Amount:        amount,
		},
		Profit:  profit,
		Balance: balance,
	}
}

// scenario has three scored customers plus lines that must be ignored.
func scenario() []model.TransactionDetail {
	return []model.TransactionDetail{
		// 100: one invoice split over three lines, profit counted once.
		line("100", "INV1", "2025-03-01", 1000, 150, 0),
		line("100", "INV1", "2025-03-01", 1000, 150, 0),
		line("100", "INV1", "2025-03-01", 1000, 150, 0),
		line("100", "INV2", "2025-03-29", 2000, 50, 0),
		line("100", "INV9", "", 99999, 99999, 0),

		line("200", "INV3", "2025-01-01", 10000, 1500, 60000),

		line("300", "INV4", "2025-03-20", 3000, 300, 1000),
		line("300", "INV5", "2025-03-25", 1000, 100, 1000),
		line("300", "INV6", "2025-03-27", 500, 50, 1000),

		// 400 only returned goods.
		line("400", "INV7", "2025-03-10", -700, 0, 500),
	}
}

var asOf = time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

func byCode(recs []model.ScoreRecord) map[string]model.ScoreRecord {
	out := make(map[string]model.ScoreRecord, len(recs))
	for _, r := range recs {
		out[r.Code] = r
	}
	return out
}

func TestScore(t *testing.T) {
	recs := Score(scenario(), asOf, DefaultConfig())
	require.Len(t, recs, 3)

	// Sorted by total score descending.
	assert.Equal(t, []string{"300", "100", "200"}, []string{recs[0].Code, recs[1].Code, recs[2].Code})

	got := byCode(recs)
	assert.NotContains(t, got, "400")

	a := got["100"]
	assert.Equal(t, "Customer 100", a.Name)
	assert.Equal(t, 2, a.Recency)
	assert.Equal(t, 2, a.Frequency)
	assert.Equal(t, int64(5000), a.Monetary)
	assert.Equal(t, int64(200), a.TotalProfit)
	assert.Equal(t, 28, a.DaysActive)
	assert.InDelta(t, 1250, a.WeeklySales, 0.001)
	assert.InDelta(t, 5000, a.MonthlySales, 0.001)
	assert.InDelta(t, 0, a.DSO, 0.001)
	assert.InDelta(t, 4, a.ProfitMarginPct, 0.001)
	assert.InDelta(t, 2500, a.AvgOrderValue, 0.001)
	assert.InDelta(t, 2.0/7, a.WeeksSinceLastOrder, 0.001)
	assert.Equal(t, []int{5, 2, 2, 5, 2}, []int{a.RScore, a.FScore, a.MScore, a.CScore, a.PScore})
	assert.Equal(t, 64, a.TotalScore)
	assert.Equal(t, 9, a.RFMScore)
	assert.Equal(t, model.SegmentPotential, a.Segment)
	assert.Equal(t, "PROFIT", a.RiskFlags.String())
	assert.Equal(t, 3, a.Priority)

	b := got["200"]
	assert.Equal(t, 89, b.Recency)
	assert.Equal(t, 7, b.DaysActive)
	assert.InDelta(t, 42, b.DSO, 0.001)
	assert.InDelta(t, 6, b.WeeksOwing, 0.001)
	assert.Equal(t, []int{3, 1, 3, 2, 5}, []int{b.RScore, b.FScore, b.MScore, b.CScore, b.PScore})
	assert.Equal(t, 56, b.TotalScore)
	assert.Equal(t, model.SegmentCreditRisk, b.Segment)
	assert.Equal(t, "CREDIT", b.RiskFlags.String())
	assert.Equal(t, 1, b.Priority)

	c := got["300"]
	assert.Equal(t, 7, c.DaysActive)
	assert.InDelta(t, 4500, c.WeeklySales, 0.001)
	assert.InDelta(t, 1000.0/4500*7, c.DSO, 0.001)
	assert.Equal(t, []int{4, 3, 1, 5, 5}, []int{c.RScore, c.FScore, c.MScore, c.CScore, c.PScore})
	assert.Equal(t, 66, c.TotalScore)
	assert.Equal(t, model.SegmentPotential, c.Segment)
	assert.Equal(t, model.FlagOK, c.RiskFlags.String())
	assert.Equal(t, 3, c.Priority)
}

func TestScoreProfitCountedOncePerInvoice(t *testing.T) {
	lines := []model.TransactionDetail{
		line("1", "A", "2025-03-01", 3000, 900, 0),
		line("1", "A", "2025-03-01", 3000, 900, 0),
		line("1", "A", "2025-03-01", 3000, 900, 0),
	}
	recs := Score(lines, asOf, DefaultConfig())
	require.Len(t, recs, 1)
	assert.Equal(t, int64(900), recs[0].TotalProfit)
	assert.Equal(t, 1, recs[0].Frequency)
	assert.InDelta(t, 10, recs[0].ProfitMarginPct, 0.001)
}

func TestScoreBlankInvoiceNotCounted(t *testing.T) {
	tests := []struct {
		name      string
		lines     []model.TransactionDetail
		frequency int
		profit    int64
		avgOrder  float64
	}{
		{
			name: "blank alongside real invoice",
			lines: []model.TransactionDetail{
				line("1", "A", "2025-03-01", 1000, 100, 0),
				line("1", "", "2025-03-02", 500, 50, 0),
			},
			frequency: 1,
			profit:    100,
			avgOrder:  1500,
		},
		{
			name: "only blank invoices",
			lines: []model.TransactionDetail{
				line("1", "", "2025-03-01", 700, 70, 0),
			},
			frequency: 0,
			profit:    0,
			avgOrder:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := Score(tt.lines, asOf, DefaultConfig())
			require.Len(t, recs, 1)
			assert.Equal(t, tt.frequency, recs[0].Frequency)
			assert.Equal(t, tt.profit, recs[0].TotalProfit)
			assert.InDelta(t, tt.avgOrder, recs[0].AvgOrderValue, 0.001)
		})
	}
}

func TestScoreEmpty(t *testing.T) {
	assert.Empty(t, Score(nil, asOf, DefaultConfig()))
	assert.Empty(t, Score([]model.TransactionDetail{line("1", "A", "", 100, 0, 0)}, asOf, DefaultConfig()))
}

func TestScoreCustomWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Monetary = 0
	recs := byCode(Score(scenario(), asOf, cfg))
	assert.Equal(t, 64-2*6, recs["100"].TotalScore)
}

func TestScoreTieBreaksOnCode(t *testing.T) {
	lines := []model.TransactionDetail{
		line("B", "1", "2025-03-01", 100, 0, 0),
		line("A", "2", "2025-03-01", 100, 0, 0),
	}
	recs := Score(lines, asOf, DefaultConfig())
	require.Len(t, recs, 2)
	assert.Equal(t, recs[0].TotalScore, recs[1].TotalScore)
	assert.Equal(t, "A", recs[0].Code)
}

func TestDSO(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name    string
		balance int64
		weekly  float64
		want    float64
	}{
		{"no sales rate", 1000, 0, 0},
		{"nothing owed", 0, 500, 0},
		{"we owe", -300, 500, 0},
		{"one week", 500, 500, 7},
		{"clamped", 1_000_000_000, 1, 999},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DSO(tt.balance, tt.weekly, cfg), 0.001)
		})
	}
}

func TestCreditScore(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name    string
		balance int64
		dso     float64
		want    int
	}{
		{"credit balance", -100, 500, 5},
		{"zero balance", 0, 0, 5},
		{"zero rate guard", 1000, DSO(1000, 0, cfg), 5},
		{"14 days", 10, 14, 5},
		{"21 days", 10, 21, 4},
		{"35 days", 10, 35, 3},
		{"60 days", 10, 60, 2},
		{"61 days", 10, 61, 1},
		{"max", 10, 999, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CreditScore(tt.balance, tt.dso, cfg))
		})
	}
}

func TestProfitScore(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		margin float64
		want   int
	}{
		{12, 5}, {10, 5}, {9.99, 4}, {8, 4}, {5, 3}, {3, 2}, {2.99, 1}, {-4, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProfitScore(tt.margin, cfg), "margin %v", tt.margin)
	}
}

func TestAssignSegment(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		rec  model.ScoreRecord
		want string
	}{
		{"high risk", model.ScoreRecord{CScore: 1, Balance: 50001, TotalScore: 100}, model.SegmentHighRisk},
		{"high risk needs balance", model.ScoreRecord{CScore: 1, Balance: 50000, PScore: 5, TotalScore: 90}, model.SegmentCreditRisk},
		{"credit risk", model.ScoreRecord{CScore: 2, Balance: 20001, PScore: 5}, model.SegmentCreditRisk},
		{"review pricing", model.ScoreRecord{CScore: 5, PScore: 2, RFMScore: 10, TotalScore: 90}, model.SegmentReviewPricing},
		{"champions", model.ScoreRecord{CScore: 5, PScore: 5, TotalScore: 85}, model.SegmentChampions},
		{"loyal", model.ScoreRecord{CScore: 5, PScore: 5, TotalScore: 70}, model.SegmentLoyal},
		{"potential", model.ScoreRecord{CScore: 5, PScore: 5, TotalScore: 55}, model.SegmentPotential},
		{"at risk", model.ScoreRecord{CScore: 5, PScore: 5, TotalScore: 40}, model.SegmentAtRisk},
		{"dormant", model.ScoreRecord{CScore: 5, PScore: 5, TotalScore: 39}, model.SegmentDormant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssignSegment(tt.rec, cfg))
		})
	}
}

func TestAssignRiskFlags(t *testing.T) {
	assert.Empty(t, AssignRiskFlags(model.ScoreRecord{RScore: 5, CScore: 5, PScore: 5}))
	assert.Equal(t, model.RiskFlags{"CREDIT", "PROFIT", "INACTIVE"},
		AssignRiskFlags(model.ScoreRecord{RScore: 1, CScore: 1, PScore: 1, Balance: 10}))
	// Low credit score without a balance owed raises nothing.
	assert.Empty(t, AssignRiskFlags(model.ScoreRecord{RScore: 5, CScore: 1, PScore: 5}))
}

func TestAssignPriority(t *testing.T) {
	tests := []struct {
		name    string
		segment string
		flags   model.RiskFlags
		want    int
	}{
		{"high risk", model.SegmentHighRisk, nil, 1},
		{"credit flag on champion", model.SegmentChampions, model.RiskFlags{model.FlagCredit}, 1},
		{"credit risk", model.SegmentCreditRisk, nil, 2},
		{"review pricing", model.SegmentReviewPricing, model.RiskFlags{model.FlagProfit}, 2},
		{"potential", model.SegmentPotential, nil, 3},
		{"inactive loyal", model.SegmentLoyal, model.RiskFlags{model.FlagInactive}, 3},
		{"champions", model.SegmentChampions, nil, 4},
		{"dormant", model.SegmentDormant, nil, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssignPriority(tt.segment, tt.flags))
		})
	}
}

func TestHighRiskCustomerIsTopPriority(t *testing.T) {
	lines := []model.TransactionDetail{
		line("9", "X1", "2025-03-24", 1000, 100, 90000),
	}
	recs := Score(lines, asOf, DefaultConfig())
	require.Len(t, recs, 1)
	assert.InDelta(t, 630, recs[0].DSO, 0.001)
	assert.Equal(t, 1, recs[0].CScore)
	assert.Equal(t, model.SegmentHighRisk, recs[0].Segment)
	assert.Equal(t, 1, recs[0].Priority)
}
