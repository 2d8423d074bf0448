package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/sales.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "data/raw", cfg.Sources.RawDir)
	assert.Equal(t, "Credit_Balances.xlsx", cfg.Sources.CreditFile)
	assert.Equal(t, []string{"2024.xlsx", "2025.xlsx"}, cfg.Sources.SalesFiles)
	assert.Equal(t, 7, cfg.Scoring.VisitCycleDays)
	assert.InDelta(t, 14, cfg.Scoring.DSOExcellent, 0.001)
	assert.InDelta(t, 60, cfg.Scoring.DSOPoor, 0.001)
	assert.InDelta(t, 10, cfg.Scoring.MarginExcellent, 0.001)
	assert.Equal(t, ScoreWeights{Recency: 4, Frequency: 3, Monetary: 6, Credit: 4, Profit: 3}, cfg.Scoring.Weights)
	assert.Equal(t, int64(50000), cfg.Scoring.Segments.HighRiskBalance)
	assert.Equal(t, 85, cfg.Scoring.Segments.Champions)
	assert.Equal(t, 30, cfg.Purchasing.VelocityDays)
	assert.Equal(t, 15, cfg.Purchasing.CriticalDays)
	assert.Equal(t, "0 6 * * *", cfg.Schedule.Cron)
	assert.Equal(t, 168, cfg.Monitoring.LookbackHours)
	assert.Equal(t, 48, cfg.Monitoring.MaxStalenessHours)
	assert.InDelta(t, 0.5, cfg.Monitoring.FailureRateThreshold, 0.001)
	assert.Empty(t, cfg.Monitoring.WebhookURL)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/ledger
log:
  level: debug
  format: console
sources:
  raw_dir: /srv/extracts
  sales_files:
    - 2025.xlsx
    - 2025sep.xlsx
scoring:
  weights:
    monetary: 8
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"2025.xlsx", "2025sep.xlsx"}, cfg.Sources.SalesFiles)
	assert.Equal(t, 8, cfg.Scoring.Weights.Monetary)
	// Defaults still apply for unset values
	assert.Equal(t, 4, cfg.Scoring.Weights.Recency)
	assert.Equal(t, "Credit_Balances.xlsx", cfg.Sources.CreditFile)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("LEDGER_STORE_DRIVER", "postgres")
	t.Setenv("LEDGER_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvSalesFilesList(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LEDGER_SOURCES_SALES_FILES", "a.xlsx, b.xls")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xlsx", "b.xls"}, cfg.Sources.SalesFiles)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEDGER_SOURCES_RAW_DIR=/from/dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("LEDGER_SOURCES_RAW_DIR") }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Sources.RawDir)
}

func TestSourcesResolve(t *testing.T) {
	s := SourcesConfig{RawDir: "data/raw", SalesFiles: []string{"2024.xlsx", "/abs/2025.xlsx"}}

	assert.Equal(t, filepath.Join("data/raw", "credit.xlsx"), s.Resolve("credit.xlsx"))
	assert.Equal(t, "", s.Resolve(""))
	assert.Equal(t, []string{filepath.Join("data/raw", "2024.xlsx"), "/abs/2025.xlsx"}, s.SalesPaths())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "data/sales.db"
	cfg.Sources.CreditFile = "Credit_Balances.xlsx"
	cfg.Sources.SalesFiles = []string{"2025.xlsx"}
	cfg.Sources.InventoryFile = "inventory.xlsx"
	cfg.Purchasing.VelocityDays = 30
	cfg.Purchasing.CriticalDays = 15
	cfg.Purchasing.RecommendedDays = 30
	cfg.Schedule.Cron = "0 6 * * *"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "read ok", mode: "read"},
		{name: "rebuild ok", mode: "rebuild"},
		{name: "schedule ok", mode: "schedule"},
		{name: "products ok", mode: "products"},
		{name: "bad driver", mode: "read", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "store.driver"},
		{name: "no database", mode: "read", mutate: func(c *Config) { c.Store.DatabaseURL = "" }, wantErr: "store.database_url is required"},
		{name: "no credit", mode: "rebuild", mutate: func(c *Config) { c.Sources.CreditFile = "" }, wantErr: "sources.credit_file"},
		{name: "no sales", mode: "rebuild", mutate: func(c *Config) { c.Sources.SalesFiles = nil }, wantErr: "sources.sales_files"},
		{name: "no inventory", mode: "products", mutate: func(c *Config) { c.Sources.InventoryFile = "" }, wantErr: "inventory_file"},
		{name: "no cron", mode: "schedule", mutate: func(c *Config) { c.Schedule.Cron = " " }, wantErr: "schedule.cron"},
		{name: "inverted purchasing bands", mode: "read", mutate: func(c *Config) { c.Purchasing.CriticalDays = 40 }, wantErr: "critical_days"},
		{name: "bad failure rate", mode: "read", mutate: func(c *Config) { c.Monitoring.FailureRateThreshold = 1.5 }, wantErr: "failure_rate_threshold"},
		{name: "unknown mode", mode: "serve", wantErr: "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
