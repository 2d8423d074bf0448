package model

import "strings"

// Segment labels, in evaluation priority order.
const (
	SegmentHighRisk      = "High Risk"
	SegmentCreditRisk    = "Credit Risk"
	SegmentReviewPricing = "Review Pricing"
	SegmentChampions     = "Champions"
	SegmentLoyal         = "Loyal"
	SegmentPotential     = "Potential"
	SegmentAtRisk        = "At Risk"
	SegmentDormant       = "Dormant"
)

// Risk flags. A customer can carry any combination.
const (
	FlagCredit   = "CREDIT"
	FlagProfit   = "PROFIT"
	FlagInactive = "INACTIVE"
	FlagOK       = "OK"
)

// RiskFlags is the set of risk flags raised for a customer.
type RiskFlags []string

// Has reports whether flag is set.
func (f RiskFlags) Has(flag string) bool {
	for _, v := range f {
		if v == flag {
			return true
		}
	}
	return false
}

// String joins the flags with " | ", or returns "OK" when none are set.
func (f RiskFlags) String() string {
	if len(f) == 0 {
		return FlagOK
	}
	return strings.Join(f, " | ")
}

// ScoreRecord is the derived RFMCP view of one customer. It is recomputed
// from the persisted ledger on every request and never stored.
type ScoreRecord struct {
	Code        string `json:"customer_code"`
	Name        string `json:"customer_name"`
	Recency     int    `json:"recency"`
	Frequency   int    `json:"frequency"`
	Monetary    int64  `json:"monetary_value"`
	TotalProfit int64  `json:"total_profit"`
	Balance     int64  `json:"balance"`
	DaysActive  int    `json:"days_active"`

	WeeklySales         float64 `json:"weekly_sales"`
	MonthlySales        float64 `json:"monthly_sales"`
	DSO                 float64 `json:"dso"`
	WeeksOwing          float64 `json:"weeks_owing"`
	ProfitMarginPct     float64 `json:"profit_margin_pct"`
	AvgOrderValue       float64 `json:"avg_order_value"`
	WeeksSinceLastOrder float64 `json:"weeks_since_last_order"`

	RScore int `json:"r_score"`
	FScore int `json:"f_score"`
	MScore int `json:"m_score"`
	CScore int `json:"c_score"`
	PScore int `json:"p_score"`

	TotalScore int       `json:"total_score"`
	RFMScore   int       `json:"rfm_score"`
	Segment    string    `json:"segment"`
	RiskFlags  RiskFlags `json:"risk_flags"`
	Priority   int       `json:"priority"`
}
