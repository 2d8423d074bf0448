package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Purchasing PurchasingConfig `yaml:"purchasing" mapstructure:"purchasing"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SourcesConfig names the raw extracts. Relative file names resolve against
// RawDir.
type SourcesConfig struct {
	RawDir        string   `yaml:"raw_dir" mapstructure:"raw_dir"`
	CreditFile    string   `yaml:"credit_file" mapstructure:"credit_file"`
	SalesFiles    []string `yaml:"sales_files" mapstructure:"sales_files"`
	MarginFile    string   `yaml:"margin_file" mapstructure:"margin_file"`
	InventoryFile string   `yaml:"inventory_file" mapstructure:"inventory_file"`
}

// Resolve returns name joined to RawDir unless it is empty or absolute.
func (s SourcesConfig) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || s.RawDir == "" {
		return name
	}
	return filepath.Join(s.RawDir, name)
}

// SalesPaths returns every configured sales extract, resolved.
func (s SourcesConfig) SalesPaths() []string {
	out := make([]string, 0, len(s.SalesFiles))
	for _, f := range s.SalesFiles {
		out = append(out, s.Resolve(f))
	}
	return out
}

// ScoringConfig holds the RFMCP thresholds and weights.
type ScoringConfig struct {
	VisitCycleDays int `yaml:"visit_cycle_days" mapstructure:"visit_cycle_days"`

	// DSO bands, in days.
	DSOExcellent float64 `yaml:"dso_excellent" mapstructure:"dso_excellent"`
	DSOGood      float64 `yaml:"dso_good" mapstructure:"dso_good"`
	DSOFair      float64 `yaml:"dso_fair" mapstructure:"dso_fair"`
	DSOPoor      float64 `yaml:"dso_poor" mapstructure:"dso_poor"`
	MaxDSO       float64 `yaml:"max_dso" mapstructure:"max_dso"`

	// Margin bands, in percent.
	MarginExcellent float64 `yaml:"margin_excellent" mapstructure:"margin_excellent"`
	MarginGood      float64 `yaml:"margin_good" mapstructure:"margin_good"`
	MarginFair      float64 `yaml:"margin_fair" mapstructure:"margin_fair"`
	MarginLow       float64 `yaml:"margin_low" mapstructure:"margin_low"`

	Weights  ScoreWeights      `yaml:"weights" mapstructure:"weights"`
	Segments SegmentThresholds `yaml:"segments" mapstructure:"segments"`
}

// ScoreWeights multiply the sub-scores into the total score.
type ScoreWeights struct {
	Recency   int `yaml:"recency" mapstructure:"recency"`
	Frequency int `yaml:"frequency" mapstructure:"frequency"`
	Monetary  int `yaml:"monetary" mapstructure:"monetary"`
	Credit    int `yaml:"credit" mapstructure:"credit"`
	Profit    int `yaml:"profit" mapstructure:"profit"`
}

// SegmentThresholds drive segment assignment.
type SegmentThresholds struct {
	HighRiskBalance   int64 `yaml:"high_risk_balance" mapstructure:"high_risk_balance"`
	CreditRiskBalance int64 `yaml:"credit_risk_balance" mapstructure:"credit_risk_balance"`
	ReviewPricingRFM  int   `yaml:"review_pricing_rfm" mapstructure:"review_pricing_rfm"`
	Champions         int   `yaml:"champions" mapstructure:"champions"`
	Loyal             int   `yaml:"loyal" mapstructure:"loyal"`
	Potential         int   `yaml:"potential" mapstructure:"potential"`
	AtRisk            int   `yaml:"at_risk" mapstructure:"at_risk"`
}

// PurchasingConfig configures the purchasing signal.
type PurchasingConfig struct {
	VelocityDays    int `yaml:"velocity_days" mapstructure:"velocity_days"`
	CriticalDays    int `yaml:"critical_days" mapstructure:"critical_days"`
	RecommendedDays int `yaml:"recommended_days" mapstructure:"recommended_days"`
}

// ScheduleConfig configures periodic rebuilds.
type ScheduleConfig struct {
	Cron     string `yaml:"cron" mapstructure:"cron"`
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// MonitoringConfig configures rebuild health alerts.
type MonitoringConfig struct {
	LookbackHours        int     `yaml:"lookback_hours" mapstructure:"lookback_hours"`
	MaxStalenessHours    int     `yaml:"max_staleness_hours" mapstructure:"max_staleness_hours"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and LEDGER_* environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "data/sales.db")
	v.SetDefault("sources.raw_dir", "data/raw")
	v.SetDefault("sources.credit_file", "Credit_Balances.xlsx")
	v.SetDefault("sources.sales_files", []string{"2024.xlsx", "2025.xlsx"})
	v.SetDefault("sources.margin_file", "tiles_margin.xlsx")
	v.SetDefault("sources.inventory_file", "inventory.xlsx")
	v.SetDefault("scoring.visit_cycle_days", 7)
	v.SetDefault("scoring.dso_excellent", 14)
	v.SetDefault("scoring.dso_good", 21)
	v.SetDefault("scoring.dso_fair", 35)
	v.SetDefault("scoring.dso_poor", 60)
	v.SetDefault("scoring.max_dso", 999)
	v.SetDefault("scoring.margin_excellent", 10)
	v.SetDefault("scoring.margin_good", 8)
	v.SetDefault("scoring.margin_fair", 5)
	v.SetDefault("scoring.margin_low", 3)
	v.SetDefault("scoring.weights.recency", 4)
	v.SetDefault("scoring.weights.frequency", 3)
	v.SetDefault("scoring.weights.monetary", 6)
	v.SetDefault("scoring.weights.credit", 4)
	v.SetDefault("scoring.weights.profit", 3)
	v.SetDefault("scoring.segments.high_risk_balance", 50000)
	v.SetDefault("scoring.segments.credit_risk_balance", 20000)
	v.SetDefault("scoring.segments.review_pricing_rfm", 10)
	v.SetDefault("scoring.segments.champions", 85)
	v.SetDefault("scoring.segments.loyal", 70)
	v.SetDefault("scoring.segments.potential", 55)
	v.SetDefault("scoring.segments.at_risk", 40)
	v.SetDefault("purchasing.velocity_days", 30)
	v.SetDefault("purchasing.critical_days", 15)
	v.SetDefault("purchasing.recommended_days", 30)
	v.SetDefault("schedule.cron", "0 6 * * *")
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("monitoring.lookback_hours", 168)
	v.SetDefault("monitoring.max_staleness_hours", 48)
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	// LEDGER_SOURCES_SALES_FILES may be a comma-separated list.
	var sales []string
	for _, f := range cfg.Sources.SalesFiles {
		sales = append(sales, splitList(f)...)
	}
	cfg.Sources.SalesFiles = sales

	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings a command mode depends on. Modes: "rebuild",
// "read", "products", "schedule".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	switch mode {
	case "read":
	case "rebuild":
		errs = append(errs, c.validateSources()...)
	case "products":
		if c.Sources.InventoryFile == "" {
			errs = append(errs, "sources.inventory_file is required")
		}
	case "schedule":
		errs = append(errs, c.validateSources()...)
		if strings.TrimSpace(c.Schedule.Cron) == "" {
			errs = append(errs, "schedule.cron is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Purchasing.VelocityDays <= 0 {
		errs = append(errs, "purchasing.velocity_days must be > 0")
	}
	if c.Purchasing.CriticalDays > c.Purchasing.RecommendedDays {
		errs = append(errs, "purchasing.critical_days must be <= recommended_days")
	}
	if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
		errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSources() []string {
	var errs []string
	if c.Sources.CreditFile == "" {
		errs = append(errs, "sources.credit_file is required")
	}
	if len(c.Sources.SalesFiles) == 0 {
		errs = append(errs, "sources.sales_files must list at least one extract")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
