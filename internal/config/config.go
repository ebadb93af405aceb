// Package config loads the tradecore YAML configuration and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tradecore engine process.
type Config struct {
	Feed      Feed      `yaml:"feed"`
	Risk      Risk      `yaml:"risk"`
	Execution Execution `yaml:"execution"`
	Strategy  Strategy  `yaml:"strategy"`
	Alpaca    Alpaca    `yaml:"alpaca"`
	Storage   Storage   `yaml:"storage"`
	Monitor   Monitor   `yaml:"monitor"`
	Logging   Logging   `yaml:"logging"`
}

// Feed configures the market data feed adapter.
type Feed struct {
	URL            string   `yaml:"url"`
	Symbols        []string `yaml:"symbols"`
	BufferCapacity int      `yaml:"buffer_capacity"`
}

// Risk holds account state and the static risk limits.
type Risk struct {
	AccountBalance   float64 `yaml:"account_balance"`
	InitialEquity    float64 `yaml:"initial_equity"`
	MaxExposure      float64 `yaml:"max_exposure"`
	MaxDrawdownPct   float64 `yaml:"max_drawdown_pct"`
	RiskTolerancePct float64 `yaml:"risk_tolerance_pct"`
	MinReturnSamples int     `yaml:"min_return_samples"`
}

// Execution holds order placement and slicing parameters.
type Execution struct {
	TWAPSlices       int  `yaml:"twap_slices"`
	RetryAttempts    int  `yaml:"retry_attempts"`
	RetryBaseDelayMS int  `yaml:"retry_base_delay_ms"`
	PaperMode        bool `yaml:"paper_mode"`
	RateLimitPerMin  int  `yaml:"rate_limit_per_min"`
}

// RetryBaseDelay returns the configured retry base delay as a duration.
func (e Execution) RetryBaseDelay() time.Duration {
	return time.Duration(e.RetryBaseDelayMS) * time.Millisecond
}

// Strategy selects and paces the trading strategy. An empty name disables
// automated trading; the engine then only executes operator orders.
type Strategy struct {
	Name        string  `yaml:"name"`
	IntervalS   int     `yaml:"interval_s"`
	StopLossPct float64 `yaml:"stop_loss_pct"`
}

// Interval returns the signal evaluation cadence as a duration.
func (s Strategy) Interval() time.Duration {
	return time.Duration(s.IntervalS) * time.Second
}

// Alpaca holds credentials and endpoints for the Alpaca venue adapter.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Storage holds paths for the audit journal and the tick recorder.
type Storage struct {
	JournalPath string `yaml:"journal_path"`
	DataDir     string `yaml:"data_dir"`
}

// Monitor configures the read-only monitoring HTTP server.
type Monitor struct {
	Addr string `yaml:"addr"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("JOURNAL_PATH"); v != "" {
		cfg.Storage.JournalPath = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MONITOR_ADDR"); v != "" {
		cfg.Monitor.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ACCOUNT_BALANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.AccountBalance = f
		}
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("APCA_API_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
}

// applyDefaults fills zero-valued fields that have sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Feed.BufferCapacity == 0 {
		cfg.Feed.BufferCapacity = 10000
	}
	if cfg.Risk.MinReturnSamples == 0 {
		cfg.Risk.MinReturnSamples = 20
	}
	if cfg.Risk.InitialEquity == 0 {
		cfg.Risk.InitialEquity = cfg.Risk.AccountBalance
	}
	if cfg.Execution.TWAPSlices == 0 {
		cfg.Execution.TWAPSlices = 10
	}
	if cfg.Execution.RetryAttempts == 0 {
		cfg.Execution.RetryAttempts = 3
	}
	if cfg.Execution.RetryBaseDelayMS == 0 {
		cfg.Execution.RetryBaseDelayMS = 500
	}
	if cfg.Execution.RateLimitPerMin == 0 {
		cfg.Execution.RateLimitPerMin = 60
	}
	if cfg.Strategy.IntervalS == 0 {
		cfg.Strategy.IntervalS = 30
	}
	if cfg.Strategy.StopLossPct == 0 {
		cfg.Strategy.StopLossPct = 2
	}
	if cfg.Monitor.Addr == "" {
		cfg.Monitor.Addr = "localhost:8090"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// validate rejects configurations the engine cannot run with.
func validate(cfg *Config) error {
	if cfg.Risk.AccountBalance <= 0 {
		return fmt.Errorf("risk.account_balance must be positive, got %v", cfg.Risk.AccountBalance)
	}
	if cfg.Risk.MaxExposure <= 0 {
		return fmt.Errorf("risk.max_exposure must be positive, got %v", cfg.Risk.MaxExposure)
	}
	if cfg.Risk.MaxDrawdownPct <= 0 || cfg.Risk.MaxDrawdownPct >= 1 {
		return fmt.Errorf("risk.max_drawdown_pct must be in (0, 1), got %v", cfg.Risk.MaxDrawdownPct)
	}
	return nil
}
