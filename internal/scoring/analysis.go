package scoring

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ledger-cli/internal/model"
)

// SegmentStats aggregates the customers of one segment.
type SegmentStats struct {
	Segment      string  `json:"segment"`
	Customers    int     `json:"customer_count"`
	TotalSales   int64   `json:"total_sales"`
	TotalBalance int64   `json:"total_balance"`
	TotalProfit  int64   `json:"total_profit"`
	AvgScore     float64 `json:"avg_score"`
}

// SegmentSummary groups scores by segment, best average score first.
func SegmentSummary(scores []model.ScoreRecord) []SegmentStats {
	idx := make(map[string]int)
	var out []SegmentStats
	sums := []int{}
	for _, s := range scores {
		i, ok := idx[s.Segment]
		if !ok {
			i = len(out)
			idx[s.Segment] = i
			out = append(out, SegmentStats{Segment: s.Segment})
			sums = append(sums, 0)
		}
		out[i].Customers++
		out[i].TotalSales += s.Monetary
		out[i].TotalBalance += s.Balance
		out[i].TotalProfit += s.TotalProfit
		sums[i] += s.TotalScore
	}
	for i := range out {
		out[i].AvgScore = float64(sums[i]) / float64(out[i].Customers)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].AvgScore != out[b].AvgScore {
			return out[a].AvgScore > out[b].AvgScore
		}
		return out[a].Segment < out[b].Segment
	})
	return out
}

// FlagAll selects every customer in RiskCustomers.
const FlagAll = "ALL"

// RiskCustomers returns customers carrying flag (or any flag for FlagAll),
// most urgent first and then by balance descending. limit <= 0 means no
// limit.
func RiskCustomers(scores []model.ScoreRecord, flag string, limit int) []model.ScoreRecord {
	var out []model.ScoreRecord
	for _, s := range scores {
		if flag == FlagAll {
			if len(s.RiskFlags) == 0 {
				continue
			}
		} else if !s.RiskFlags.Has(flag) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Priority != out[b].Priority {
			return out[a].Priority < out[b].Priority
		}
		return out[a].Balance > out[b].Balance
	})
	return truncate(out, limit)
}

// Metrics accepted by TopCustomers.
const (
	MetricTotalScore = "total_score"
	MetricMonetary   = "monetary_value"
	MetricProfit     = "total_profit"
	MetricBalance    = "balance"
	MetricFrequency  = "frequency"
	MetricDSO        = "dso"
	MetricMargin     = "profit_margin_pct"
)

var metricValue = map[string]func(model.ScoreRecord) float64{
	MetricTotalScore: func(r model.ScoreRecord) float64 { return float64(r.TotalScore) },
	MetricMonetary:   func(r model.ScoreRecord) float64 { return float64(r.Monetary) },
	MetricProfit:     func(r model.ScoreRecord) float64 { return float64(r.TotalProfit) },
	MetricBalance:    func(r model.ScoreRecord) float64 { return float64(r.Balance) },
	MetricFrequency:  func(r model.ScoreRecord) float64 { return float64(r.Frequency) },
	MetricDSO:        func(r model.ScoreRecord) float64 { return r.DSO },
	MetricMargin:     func(r model.ScoreRecord) float64 { return r.ProfitMarginPct },
}

// TopCustomers returns the n customers with the highest value of metric.
// An empty metric ranks by total score.
func TopCustomers(scores []model.ScoreRecord, n int, metric string) ([]model.ScoreRecord, error) {
	if metric == "" {
		metric = MetricTotalScore
	}
	value, ok := metricValue[metric]
	if !ok {
		return nil, eris.Errorf("scoring: unknown metric %q", metric)
	}
	out := append([]model.ScoreRecord(nil), scores...)
	sort.SliceStable(out, func(a, b int) bool {
		return value(out[a]) > value(out[b])
	})
	return truncate(out, n), nil
}

func truncate(recs []model.ScoreRecord, limit int) []model.ScoreRecord {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}

// CreditOverview summarizes the receivables position of the scored
// customers.
type CreditOverview struct {
	TotalCustomers int     `json:"total_customers"`
	OwingCount     int     `json:"customers_owing"`
	OwingAmount    int64   `json:"total_owed_to_us"`
	WeOweCount     int     `json:"customers_we_owe"`
	WeOweAmount    int64   `json:"total_we_owe"`
	NetBalance     int64   `json:"net_balance"`
	AvgDSO         float64 `json:"avg_dso_owing"`
	HighRiskCount  int     `json:"high_risk_count"`
	HighRiskAmount int64   `json:"high_risk_amount"`
}

// CreditSummary computes the receivables overview. AvgDSO averages only
// customers who owe.
func CreditSummary(scores []model.ScoreRecord) CreditOverview {
	var o CreditOverview
	var dsoSum float64
	o.TotalCustomers = len(scores)
	for _, s := range scores {
		o.NetBalance += s.Balance
		switch {
		case s.Balance > 0:
			o.OwingCount++
			o.OwingAmount += s.Balance
			dsoSum += s.DSO
		case s.Balance < 0:
			o.WeOweCount++
			o.WeOweAmount += -s.Balance
		}
		if s.CScore <= 2 {
			o.HighRiskCount++
			if s.Balance > 0 {
				o.HighRiskAmount += s.Balance
			}
		}
	}
	if o.OwingCount > 0 {
		o.AvgDSO = dsoSum / float64(o.OwingCount)
	}
	return o
}
