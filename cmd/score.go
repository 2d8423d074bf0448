package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ledger-cli/internal/model"
	"github.com/sells-group/ledger-cli/internal/scoring"
	"github.com/sells-group/ledger-cli/internal/store"
)

// loadScores scores every customer of the active ledger as of t.
func loadScores(ctx context.Context, st store.Store, t time.Time) ([]model.ScoreRecord, error) {
	if err := scoring.ValidateConfig(cfg.Scoring); err != nil {
		return nil, err
	}
	lines, err := st.Transactions(ctx, store.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return scoring.Score(lines, t, cfg.Scoring), nil
}

// withScores opens the store, scores the ledger and hands the scores to fn.
// An unbuilt ledger renders as an empty view.
func withScores(cmd *cobra.Command, fn func([]model.ScoreRecord) error) error {
	ctx := cmd.Context()
	t, err := asOf(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(ctx, "read")
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	scores, err := loadScores(ctx, st, t)
	if err != nil {
		if noLedger(cmd, err) {
			return nil
		}
		return eris.Wrap(err, "score")
	}
	return fn(scores)
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score customers on recency, frequency, monetary value, credit and profit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withScores(cmd, func(scores []model.ScoreRecord) error {
			top, _ := cmd.Flags().GetInt("top")
			by, _ := cmd.Flags().GetString("by")
			segment, _ := cmd.Flags().GetString("segment")

			if segment != "" {
				scores = filterSegment(scores, segment)
			}
			if top > 0 || by != "" {
				var err error
				if scores, err = scoring.TopCustomers(scores, top, by); err != nil {
					return err
				}
			}
			return writeView(cmd, scoresView(scores))
		})
	},
}

var scoreRiskCmd = &cobra.Command{
	Use:   "risk",
	Short: "List customers carrying risk flags, most urgent first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withScores(cmd, func(scores []model.ScoreRecord) error {
			flag, _ := cmd.Flags().GetString("flag")
			limit, _ := cmd.Flags().GetInt("limit")
			flag = strings.ToUpper(flag)
			switch flag {
			case scoring.FlagAll, model.FlagCredit, model.FlagProfit, model.FlagInactive:
			default:
				return eris.Errorf("unknown risk flag %q", flag)
			}
			return writeView(cmd, scoresView(scoring.RiskCustomers(scores, flag, limit)))
		})
	},
}

var scoreCreditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Summarize receivables across scored customers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withScores(cmd, func(scores []model.ScoreRecord) error {
			return writeView(cmd, creditOverviewView(scoring.CreditSummary(scores)))
		})
	},
}

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Summarize customers per segment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withScores(cmd, func(scores []model.ScoreRecord) error {
			return writeView(cmd, segmentsView(scoring.SegmentSummary(scores)))
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{scoreCmd, scoreRiskCmd, scoreCreditCmd, segmentsCmd} {
		addAsOfFlag(c)
		addOutputFlags(c)
	}
	scoreCmd.Flags().Int("top", 0, "keep only the top N customers")
	scoreCmd.Flags().String("by", "", "rank by metric: total_score, monetary_value, total_profit, balance, frequency, dso, profit_margin_pct")
	scoreCmd.Flags().String("segment", "", "keep only one segment")
	scoreRiskCmd.Flags().String("flag", scoring.FlagAll, "risk flag: ALL, CREDIT, PROFIT, INACTIVE")
	scoreRiskCmd.Flags().Int("limit", 50, "max number of customers")

	scoreCmd.AddCommand(scoreRiskCmd)
	scoreCmd.AddCommand(scoreCreditCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(segmentsCmd)
}

func filterSegment(scores []model.ScoreRecord, segment string) []model.ScoreRecord {
	var out []model.ScoreRecord
	for _, s := range scores {
		if strings.EqualFold(s.Segment, segment) {
			out = append(out, s)
		}
	}
	return out
}

func scoresView(scores []model.ScoreRecord) view {
	v := view{
		Title: "Customer scores",
		Headers: []string{
			"CODE", "NAME", "R", "F", "M", "C", "P", "TOTAL", "SEGMENT", "FLAGS", "PRIORITY",
			"SALES", "PROFIT", "MARGIN%", "BALANCE", "DSO", "DAYS_SINCE",
		},
		Value: scores,
	}
	for _, s := range scores {
		v.Rows = append(v.Rows, []any{
			s.Code, s.Name, s.RScore, s.FScore, s.MScore, s.CScore, s.PScore, s.TotalScore,
			s.Segment, s.RiskFlags.String(), s.Priority,
			s.Monetary, s.TotalProfit, s.ProfitMarginPct, s.Balance, s.DSO, s.Recency,
		})
	}
	return v
}

func segmentsView(stats []scoring.SegmentStats) view {
	v := view{
		Title:   "Segments",
		Headers: []string{"SEGMENT", "CUSTOMERS", "SALES", "BALANCE", "PROFIT", "AVG_SCORE"},
		Value:   stats,
	}
	for _, s := range stats {
		v.Rows = append(v.Rows, []any{s.Segment, s.Customers, s.TotalSales, s.TotalBalance, s.TotalProfit, s.AvgScore})
	}
	return v
}

func creditOverviewView(o scoring.CreditOverview) view {
	return view{
		Title:   "Credit summary",
		Headers: []string{"METRIC", "VALUE"},
		Rows: [][]any{
			{"Customers", o.TotalCustomers},
			{"Customers owing us", o.OwingCount},
			{"Owed to us", o.OwingAmount},
			{"Customers we owe", o.WeOweCount},
			{"We owe", o.WeOweAmount},
			{"Net balance", o.NetBalance},
			{"Avg DSO (owing)", o.AvgDSO},
			{"High credit risk customers", o.HighRiskCount},
			{"High credit risk amount", o.HighRiskAmount},
		},
		Value: o,
	}
}
