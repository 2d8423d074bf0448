// Package scoring computes RFMCP scores, segments, risk flags and priorities
// from the persisted ledger. Scoring is a pure function of its inputs and is
// safe to call concurrently.
package scoring

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ledger-cli/internal/config"
)

// DefaultConfig returns the standard weekly-visit-cycle scoring settings.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		VisitCycleDays: 7,

		DSOExcellent: 14,
		DSOGood:      21,
		DSOFair:      35,
		DSOPoor:      60,
		MaxDSO:       999,

		MarginExcellent: 10,
		MarginGood:      8,
		MarginFair:      5,
		MarginLow:       3,

		Weights: config.ScoreWeights{Recency: 4, Frequency: 3, Monetary: 6, Credit: 4, Profit: 3},
		Segments: config.SegmentThresholds{
			HighRiskBalance:   50000,
			CreditRiskBalance: 20000,
			ReviewPricingRFM:  10,
			Champions:         85,
			Loyal:             70,
			Potential:         55,
			AtRisk:            40,
		},
	}
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	if c.VisitCycleDays <= 0 {
		errs = append(errs, "visit_cycle_days must be > 0")
	}
	if !(c.DSOExcellent <= c.DSOGood && c.DSOGood <= c.DSOFair && c.DSOFair <= c.DSOPoor) {
		errs = append(errs, "dso bands must be ascending: excellent <= good <= fair <= poor")
	}
	if c.MaxDSO < c.DSOPoor {
		errs = append(errs, "max_dso must be >= dso_poor")
	}
	if !(c.MarginExcellent >= c.MarginGood && c.MarginGood >= c.MarginFair && c.MarginFair >= c.MarginLow) {
		errs = append(errs, "margin bands must be descending: excellent >= good >= fair >= low")
	}

	weights := map[string]int{
		"recency":   c.Weights.Recency,
		"frequency": c.Weights.Frequency,
		"monetary":  c.Weights.Monetary,
		"credit":    c.Weights.Credit,
		"profit":    c.Weights.Profit,
	}
	sum := 0
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("weights.%s must be >= 0", name))
		}
		sum += w
	}
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	s := c.Segments
	if !(s.Champions >= s.Loyal && s.Loyal >= s.Potential && s.Potential >= s.AtRisk) {
		errs = append(errs, "segment bands must be descending: champions >= loyal >= potential >= at_risk")
	}
	if s.HighRiskBalance < s.CreditRiskBalance {
		errs = append(errs, "high_risk_balance must be >= credit_risk_balance")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
