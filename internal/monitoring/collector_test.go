package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ledger-cli/internal/model"
)

type fakeVersions struct {
	versions []model.LedgerVersion
	err      error
}

func (f *fakeVersions) ListVersions(_ context.Context, limit int) ([]model.LedgerVersion, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.versions) {
		return f.versions[:limit], nil
	}
	return f.versions, nil
}

var testNow = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func ago(h int) time.Time { return testNow.Add(-time.Duration(h) * time.Hour) }

func ptr(t time.Time) *time.Time { return &t }

func newTestCollector(versions ...model.LedgerVersion) *Collector {
	c := NewCollector(&fakeVersions{versions: versions})
	c.now = func() time.Time { return testNow }
	return c
}

func TestCollect(t *testing.T) {
	c := newTestCollector(
		model.LedgerVersion{ID: "v4", Status: model.LedgerStatusFailed, StartedAt: ago(1), CompletedAt: ptr(ago(1)), Error: "credit: load: no such file"},
		model.LedgerVersion{ID: "v3", Status: model.LedgerStatusComplete, Active: true, StartedAt: ago(5), CompletedAt: ptr(ago(4)), Lines: 120},
		model.LedgerVersion{ID: "v2", Status: model.LedgerStatusRunning, StartedAt: ago(10)},
		model.LedgerVersion{ID: "v1", Status: model.LedgerStatusComplete, StartedAt: ago(200), CompletedAt: ptr(ago(199))},
	)

	snap, err := c.Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 1, snap.Complete)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 1, snap.Running)
	assert.InDelta(t, 0.5, snap.FailRate, 0.001)
	assert.Equal(t, "v3", snap.ActiveVersion)
	assert.Equal(t, 120, snap.ActiveLines)
	require.NotNil(t, snap.LastSuccessAt)
	assert.Equal(t, ago(4), *snap.LastSuccessAt)
	require.NotNil(t, snap.LastAttemptAt)
	assert.Equal(t, ago(1), *snap.LastAttemptAt)
	assert.Equal(t, "credit: load: no such file", snap.LastAttemptErr)
	assert.Equal(t, testNow, snap.CollectedAt)
}

func TestCollect_Empty(t *testing.T) {
	snap, err := newTestCollector().Collect(context.Background(), 24)
	require.NoError(t, err)

	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.FailRate)
	assert.Empty(t, snap.ActiveVersion)
	assert.Nil(t, snap.LastSuccessAt)
	assert.Nil(t, snap.LastAttemptAt)
}

func TestCollect_StoreError(t *testing.T) {
	c := NewCollector(&fakeVersions{err: errors.New("database is locked")})

	_, err := c.Collect(context.Background(), 24)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list versions")
}
