// Package monitoring watches rebuild history and raises alerts when the
// ledger goes stale or rebuilds keep failing.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ledger-cli/internal/model"
)

// VersionLister is the slice of the store the collector reads.
type VersionLister interface {
	ListVersions(ctx context.Context, limit int) ([]model.LedgerVersion, error)
}

// MetricsSnapshot holds a point-in-time view of rebuild health.
type MetricsSnapshot struct {
	// Rebuilds started within the lookback window.
	Total    int     `json:"rebuilds_total"`
	Complete int     `json:"rebuilds_complete"`
	Failed   int     `json:"rebuilds_failed"`
	Running  int     `json:"rebuilds_running"`
	FailRate float64 `json:"fail_rate"`

	// Latest state regardless of the window.
	ActiveVersion  string     `json:"active_version,omitempty"`
	LastSuccessAt  *time.Time `json:"last_success_at,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	LastAttemptErr string     `json:"last_attempt_error,omitempty"`
	ActiveLines    int        `json:"active_lines"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// historyLimit bounds how many versions one collection reads.
const historyLimit = 500

// Collector gathers metrics from the rebuild log.
type Collector struct {
	store VersionLister
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st VersionLister) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	now := c.now().UTC()
	snap := &MetricsSnapshot{LookbackHours: lookbackHours, CollectedAt: now}
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	versions, err := c.store.ListVersions(ctx, historyLimit)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list versions")
	}

	// Versions are newest first.
	for i, v := range versions {
		if i == 0 {
			started := v.StartedAt
			snap.LastAttemptAt = &started
			snap.LastAttemptErr = v.Error
		}
		if v.Active {
			snap.ActiveVersion = v.ID
			snap.ActiveLines = v.Lines
		}
		if v.Status == model.LedgerStatusComplete && snap.LastSuccessAt == nil {
			snap.LastSuccessAt = v.CompletedAt
		}

		if v.StartedAt.Before(cutoff) {
			continue
		}
		snap.Total++
		switch v.Status {
		case model.LedgerStatusComplete:
			snap.Complete++
		case model.LedgerStatusFailed:
			snap.Failed++
		case model.LedgerStatusRunning:
			snap.Running++
		}
	}

	if finished := snap.Complete + snap.Failed; finished > 0 {
		snap.FailRate = float64(snap.Failed) / float64(finished)
	}
	return snap, nil
}
