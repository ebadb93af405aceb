package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "tradecore-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FEED_URL", "JOURNAL_PATH", "DATA_DIR", "MONITOR_ADDR", "LOG_LEVEL",
		"ACCOUNT_BALANCE", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "APCA_API_BASE_URL",
	} {
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	clearEnvOverrides(t)

	path := writeTempConfig(t, `
feed:
  url: "wss://stream.example.com/ws"
  symbols: ["BTCUSD", "ETHUSD"]
  buffer_capacity: 5000
risk:
  account_balance: 50000
  initial_equity: 50000
  max_exposure: 100000
  max_drawdown_pct: 0.15
  risk_tolerance_pct: 2
  min_return_samples: 30
execution:
  twap_slices: 8
  retry_attempts: 5
  retry_base_delay_ms: 250
  paper_mode: true
  rate_limit_per_min: 120
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
storage:
  journal_path: "/tmp/tradecore/journal.db"
  data_dir: "/tmp/tradecore/data"
monitor:
  addr: "localhost:9100"
logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Feed.URL != "wss://stream.example.com/ws" {
		t.Errorf("Feed.URL = %q, want %q", cfg.Feed.URL, "wss://stream.example.com/ws")
	}
	if len(cfg.Feed.Symbols) != 2 || cfg.Feed.Symbols[0] != "BTCUSD" {
		t.Errorf("Feed.Symbols = %v, want [BTCUSD ETHUSD]", cfg.Feed.Symbols)
	}
	if cfg.Feed.BufferCapacity != 5000 {
		t.Errorf("Feed.BufferCapacity = %d, want 5000", cfg.Feed.BufferCapacity)
	}
	if cfg.Risk.AccountBalance != 50000 {
		t.Errorf("Risk.AccountBalance = %v, want 50000", cfg.Risk.AccountBalance)
	}
	if cfg.Risk.MaxDrawdownPct != 0.15 {
		t.Errorf("Risk.MaxDrawdownPct = %v, want 0.15", cfg.Risk.MaxDrawdownPct)
	}
	if cfg.Execution.RetryBaseDelay() != 250*time.Millisecond {
		t.Errorf("Execution.RetryBaseDelay() = %v, want 250ms", cfg.Execution.RetryBaseDelay())
	}
	if !cfg.Execution.PaperMode {
		t.Error("Execution.PaperMode = false, want true")
	}
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q", cfg.Alpaca.APIKey, "test-key")
	}
	if cfg.Monitor.Addr != "localhost:9100" {
		t.Errorf("Monitor.Addr = %q, want %q", cfg.Monitor.Addr, "localhost:9100")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v, want level=debug format=text", cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnvOverrides(t)

	path := writeTempConfig(t, `
risk:
  account_balance: 10000
  max_exposure: 20000
  max_drawdown_pct: 0.1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Feed.BufferCapacity != 10000 {
		t.Errorf("default Feed.BufferCapacity = %d, want 10000", cfg.Feed.BufferCapacity)
	}
	if cfg.Risk.MinReturnSamples != 20 {
		t.Errorf("default Risk.MinReturnSamples = %d, want 20", cfg.Risk.MinReturnSamples)
	}
	if cfg.Risk.InitialEquity != 10000 {
		t.Errorf("default Risk.InitialEquity = %v, want account balance 10000", cfg.Risk.InitialEquity)
	}
	if cfg.Execution.TWAPSlices != 10 {
		t.Errorf("default Execution.TWAPSlices = %d, want 10", cfg.Execution.TWAPSlices)
	}
	if cfg.Execution.RetryAttempts != 3 {
		t.Errorf("default Execution.RetryAttempts = %d, want 3", cfg.Execution.RetryAttempts)
	}
	if cfg.Strategy.IntervalS != 30 || cfg.Strategy.StopLossPct != 2 {
		t.Errorf("default Strategy = %+v, want interval 30s, stop 2%%", cfg.Strategy)
	}
	if cfg.Strategy.Name != "" {
		t.Errorf("default Strategy.Name = %q, want empty (trading disabled)", cfg.Strategy.Name)
	}
	if cfg.Monitor.Addr != "localhost:8090" {
		t.Errorf("default Monitor.Addr = %q, want localhost:8090", cfg.Monitor.Addr)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnvOverrides(t)

	path := writeTempConfig(t, `
risk:
  account_balance: 10000
  max_exposure: 20000
  max_drawdown_pct: 0.1
alpaca:
  api_key: "file-key"
  api_secret: "file-secret"
`)

	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("APCA_API_SECRET_KEY", "env-secret")
	t.Setenv("MONITOR_ADDR", "0.0.0.0:7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want env override %q", cfg.Alpaca.APIKey, "env-key")
	}
	if cfg.Alpaca.APISecret != "env-secret" {
		t.Errorf("Alpaca.APISecret = %q, want env override %q", cfg.Alpaca.APISecret, "env-secret")
	}
	if cfg.Monitor.Addr != "0.0.0.0:7777" {
		t.Errorf("Monitor.Addr = %q, want env override %q", cfg.Monitor.Addr, "0.0.0.0:7777")
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnvOverrides(t)

	cases := []struct {
		name    string
		content string
	}{
		{"zero balance", "risk:\n  max_exposure: 1000\n  max_drawdown_pct: 0.1\n"},
		{"zero exposure", "risk:\n  account_balance: 1000\n  max_drawdown_pct: 0.1\n"},
		{"drawdown out of range", "risk:\n  account_balance: 1000\n  max_exposure: 1000\n  max_drawdown_pct: 1.5\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTempConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Error("Load() returned nil error for invalid config")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/tradecore.yaml"); err == nil {
		t.Error("Load() returned nil error for missing file")
	}
}
