package scoring

import (
	"sort"
	"time"

	"github.com/sells-group/ledger-cli/internal/config"
	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/normalize"
)

// customerMetrics accumulates one customer's raw activity.
type customerMetrics struct {
	code          string
	name          string
	first, last   time.Time
	balance       int64
	balanceAt     time.Time
	monetary      int64
	invoiceProfit map[string]int64
}

// Score computes one ScoreRecord per customer with positive sales among
// lines, as of asOf. Lines without a delivery date are ignored. Profit is
// counted once per invoice, however many lines carry it. The result is
// sorted by total score descending, then customer code.
func Score(lines []model.TransactionDetail, asOf time.Time, cfg config.ScoringConfig) []model.ScoreRecord {
	byCode := make(map[string]*customerMetrics)
	for _, l := range lines {
		if l.DeliveryDate == nil {
			continue
		}
		d := *l.DeliveryDate
		m, ok := byCode[l.Code]
		if !ok {
			m = &customerMetrics{
				code:          l.Code,
				first:         d,
				last:          d,
				balanceAt:     d,
				balance:       l.Balance,
				invoiceProfit: make(map[string]int64),
			}
			byCode[l.Code] = m
		}
		if m.name == "" {
			m.name = l.CustomerName
		}
		if d.Before(m.first) {
			m.first = d
		}
		if d.After(m.last) {
			m.last = d
		}
		if !d.Before(m.balanceAt) {
			m.balance = l.Balance
			m.balanceAt = d
		}
		m.monetary += l.Amount
		if l.InvoiceNumber != "" {
			m.invoiceProfit[l.InvoiceNumber] = l.Profit
		}
	}

	codes := make([]string, 0, len(byCode))
	for code, m := range byCode {
		if m.monetary > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	cycle := float64(cfg.VisitCycleDays)
	records := make([]model.ScoreRecord, len(codes))
	for i, code := range codes {
		m := byCode[code]
		rec := model.ScoreRecord{
			Code:      m.code,
			Name:      m.name,
			Recency:   normalize.DaysBetween(m.last, asOf),
			Frequency: len(m.invoiceProfit),
			Monetary:  m.monetary,
			Balance:   m.balance,
		}
		for _, p := range m.invoiceProfit {
			rec.TotalProfit += p
		}
		rec.DaysActive = max(normalize.DaysBetween(m.first, m.last), cfg.VisitCycleDays)

		rec.WeeklySales = float64(rec.Monetary) / float64(rec.DaysActive) * cycle
		rec.MonthlySales = rec.WeeklySales * 4
		rec.DSO = DSO(rec.Balance, rec.WeeklySales, cfg)
		rec.WeeksOwing = rec.DSO / cycle
		rec.ProfitMarginPct = float64(rec.TotalProfit) / float64(rec.Monetary) * 100
		if rec.Frequency > 0 {
			rec.AvgOrderValue = float64(rec.Monetary) / float64(rec.Frequency)
		}
		rec.WeeksSinceLastOrder = float64(rec.Recency) / cycle
		records[i] = rec
	}

	recency := make([]float64, len(records))
	frequency := make([]float64, len(records))
	monetary := make([]float64, len(records))
	for i, r := range records {
		recency[i] = float64(r.Recency)
		frequency[i] = float64(r.Frequency)
		monetary[i] = float64(r.Monetary)
	}
	rs := QuintileScores(recency, true)
	fs := QuintileScores(frequency, false)
	ms := QuintileScores(monetary, false)

	for i := range records {
		r := &records[i]
		r.RScore, r.FScore, r.MScore = rs[i], fs[i], ms[i]
		r.CScore = CreditScore(r.Balance, r.DSO, cfg)
		r.PScore = ProfitScore(r.ProfitMarginPct, cfg)
		w := cfg.Weights
		r.TotalScore = r.RScore*w.Recency + r.FScore*w.Frequency + r.MScore*w.Monetary +
			r.CScore*w.Credit + r.PScore*w.Profit
		r.RFMScore = r.RScore + r.FScore + r.MScore
		r.Segment = AssignSegment(*r, cfg)
		r.RiskFlags = AssignRiskFlags(*r)
		r.Priority = AssignPriority(r.Segment, r.RiskFlags)
	}

	sort.SliceStable(records, func(a, b int) bool {
		if records[a].TotalScore != records[b].TotalScore {
			return records[a].TotalScore > records[b].TotalScore
		}
		return records[a].Code < records[b].Code
	})
	return records
}

// DSO estimates how many days of typical sales the balance represents. It
// is 0 when nothing is owed or there is no sales rate, and never exceeds
// cfg.MaxDSO.
func DSO(balance int64, weeklySales float64, cfg config.ScoringConfig) float64 {
	if balance <= 0 || weeklySales <= 0 {
		return 0
	}
	dso := float64(balance) / weeklySales * float64(cfg.VisitCycleDays)
	return max(0, min(dso, cfg.MaxDSO))
}

// CreditScore maps DSO to 1-5. A customer who owes nothing scores 5.
func CreditScore(balance int64, dso float64, cfg config.ScoringConfig) int {
	switch {
	case balance <= 0:
		return 5
	case dso <= cfg.DSOExcellent:
		return 5
	case dso <= cfg.DSOGood:
		return 4
	case dso <= cfg.DSOFair:
		return 3
	case dso <= cfg.DSOPoor:
		return 2
	default:
		return 1
	}
}

// ProfitScore maps profit margin percent to 1-5.
func ProfitScore(marginPct float64, cfg config.ScoringConfig) int {
	switch {
	case marginPct >= cfg.MarginExcellent:
		return 5
	case marginPct >= cfg.MarginGood:
		return 4
	case marginPct >= cfg.MarginFair:
		return 3
	case marginPct >= cfg.MarginLow:
		return 2
	default:
		return 1
	}
}

// AssignSegment classifies a scored customer. Risk segments take precedence
// over the score bands.
func AssignSegment(r model.ScoreRecord, cfg config.ScoringConfig) string {
	s := cfg.Segments
	switch {
	case r.CScore == 1 && r.Balance > s.HighRiskBalance:
		return model.SegmentHighRisk
	case r.CScore <= 2 && r.Balance > s.CreditRiskBalance:
		return model.SegmentCreditRisk
	case r.PScore <= 2 && r.RFMScore >= s.ReviewPricingRFM:
		return model.SegmentReviewPricing
	case r.TotalScore >= s.Champions:
		return model.SegmentChampions
	case r.TotalScore >= s.Loyal:
		return model.SegmentLoyal
	case r.TotalScore >= s.Potential:
		return model.SegmentPotential
	case r.TotalScore >= s.AtRisk:
		return model.SegmentAtRisk
	default:
		return model.SegmentDormant
	}
}

// AssignRiskFlags returns the independent risk flags of a scored customer.
func AssignRiskFlags(r model.ScoreRecord) model.RiskFlags {
	var flags model.RiskFlags
	if r.CScore <= 2 && r.Balance > 0 {
		flags = append(flags, model.FlagCredit)
	}
	if r.PScore <= 2 {
		flags = append(flags, model.FlagProfit)
	}
	if r.RScore <= 2 {
		flags = append(flags, model.FlagInactive)
	}
	return flags
}

// AssignPriority ranks urgency from 1 (act now) to 5.
func AssignPriority(segment string, flags model.RiskFlags) int {
	switch {
	case segment == model.SegmentHighRisk || flags.Has(model.FlagCredit):
		return 1
	case segment == model.SegmentCreditRisk || segment == model.SegmentReviewPricing:
		return 2
	case segment == model.SegmentPotential || segment == model.SegmentAtRisk || flags.Has(model.FlagInactive):
		return 3
	case segment == model.SegmentChampions || segment == model.SegmentLoyal:
		return 4
	default:
		return 5
	}
}
