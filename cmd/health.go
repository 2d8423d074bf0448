package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/ledger-cli/internal/monitoring"
	"github.com/sells-group/ledger-cli/internal/store"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check rebuild history for a stale ledger or repeated failures",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx, "read")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if h, _ := cmd.Flags().GetInt("lookback"); h > 0 {
			cfg.Monitoring.LookbackHours = h
		}
		snap, alerts, err := newChecker(st).Check(ctx)
		if err != nil {
			return err
		}

		if err := writeView(cmd, healthView(snap, alerts)); err != nil {
			return err
		}

		strict, _ := cmd.Flags().GetBool("strict")
		if strict && len(alerts) > 0 {
			return eris.Errorf("health: %d alert(s) raised", len(alerts))
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().Int("lookback", 0, "hours of rebuild history to evaluate (overrides monitoring.lookback_hours)")
	healthCmd.Flags().Bool("strict", false, "exit non-zero when any alert is raised")
	addOutputFlags(healthCmd)
	rootCmd.AddCommand(healthCmd)
}

func newChecker(st store.Store) *monitoring.Checker {
	return monitoring.NewChecker(
		monitoring.NewCollector(st),
		monitoring.NewAlerter(cfg.Monitoring),
		cfg.Monitoring,
	)
}

type healthReport struct {
	Snapshot *monitoring.MetricsSnapshot `json:"snapshot" yaml:"snapshot"`
	Alerts   []monitoring.Alert          `json:"alerts" yaml:"alerts"`
}

func healthView(snap *monitoring.MetricsSnapshot, alerts []monitoring.Alert) view {
	v := view{
		Title:   "Ledger health",
		Headers: []string{"Check", "Value"},
		Value:   healthReport{Snapshot: snap, Alerts: alerts},
	}
	add := func(k string, val any) { v.Rows = append(v.Rows, []any{k, val}) }

	add("Active version", snap.ActiveVersion)
	add("Active lines", snap.ActiveLines)
	add("Last success", formatTime(snap.LastSuccessAt))
	add("Last attempt", formatTime(snap.LastAttemptAt))
	add(fmt.Sprintf("Rebuilds (last %dh)", snap.LookbackHours), snap.Total)
	add("Complete", snap.Complete)
	add("Failed", snap.Failed)
	add("Failure rate", fmt.Sprintf("%.1f%%", snap.FailRate*100))
	for _, a := range alerts {
		add("ALERT "+a.Severity, a.Message)
	}
	if len(alerts) == 0 {
		add("Alerts", "none")
	}
	return v
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}
