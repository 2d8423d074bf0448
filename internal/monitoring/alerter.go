package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ledger-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertNoLedger        AlertType = "no_ledger"
	AlertStaleLedger     AlertType = "stale_ledger"
	AlertRebuildFailed   AlertType = "rebuild_failed"
	AlertRebuildFailRate AlertType = "rebuild_failure_rate"
)

// Severities.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt

	if snap.ActiveVersion == "" {
		alerts = append(alerts, Alert{
			Type:      AlertNoLedger,
			Severity:  SeverityHigh,
			Message:   "No ledger has been built",
			Timestamp: now,
		})
	} else if a.cfg.MaxStalenessHours > 0 && snap.LastSuccessAt != nil {
		age := now.Sub(*snap.LastSuccessAt)
		if age > time.Duration(a.cfg.MaxStalenessHours)*time.Hour {
			alerts = append(alerts, Alert{
				Type:     AlertStaleLedger,
				Severity: SeverityHigh,
				Message: fmt.Sprintf("Ledger last rebuilt %s ago, limit is %dh",
					age.Round(time.Minute), a.cfg.MaxStalenessHours),
				Details: map[string]any{
					"last_success_at": snap.LastSuccessAt,
					"active_version":  snap.ActiveVersion,
				},
				Timestamp: now,
			})
		}
	}

	if snap.LastAttemptErr != "" {
		alerts = append(alerts, Alert{
			Type:     AlertRebuildFailed,
			Severity: SeverityMedium,
			Message:  "Latest rebuild failed, previous ledger kept: " + snap.LastAttemptErr,
			Details: map[string]any{
				"last_attempt_at": snap.LastAttemptAt,
			},
			Timestamp: now,
		})
	}

	finished := snap.Complete + snap.Failed
	if finished >= 3 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertRebuildFailRate,
			Severity: SeverityHigh,
			Message: fmt.Sprintf(
				"Rebuild failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent
}

func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
