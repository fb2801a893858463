package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func useConfigFile(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if body != "" {
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	t.Setenv("CONFIG_FILE", path)
}

func TestLoadDefaults(t *testing.T) {
	useConfigFile(t, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != 8080 || cfg.StateBackend != BackendLocal {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.DefaultSiteAreaHectares != 0.5 || cfg.CreditPriceUSD != 15 || !cfg.RequirePositiveCarbon {
		t.Fatalf("unexpected registry defaults %+v", cfg)
	}
	if cfg.AIScorerTimeout != 10*time.Second || cfg.SyncInterval != 30*time.Second {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 0 {
		t.Fatalf("kafka should be disabled by default, got %v", cfg.KafkaBrokers)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	useConfigFile(t, `
server:
  port: 9090
state:
  backend: redis
  postgres:
    host: file-db
registry:
  credit_price_usd: 18
  require_positive_carbon: false
kafka:
  brokers: ["k1:9092", "k2:9092"]
`)
	t.Setenv("DB_HOST", "env-db")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServerPort != 9090 || cfg.StateBackend != BackendRedis {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Database.Host != "env-db" {
		t.Fatalf("env should override file, got host %q", cfg.Database.Host)
	}
	if cfg.CreditPriceUSD != 18 || cfg.RequirePositiveCarbon {
		t.Fatalf("registry values not applied: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"SERVER_PORT":                "eighty",
		"STATE_BACKEND":              "mongo",
		"DEFAULT_SITE_AREA_HECTARES": "0",
		"REQUIRE_POSITIVE_CARBON":    "maybe",
		"SYNC_INTERVAL_SECONDS":      "0",
		"AI_SCORER_TIMEOUT_SECONDS":  "-5",
		"SESSION_TTL_MINUTES":        "0",
		"RATE_LIMIT_PER_MINUTE":      "-1",
		"LOCAL_SNAPSHOT_RETENTION":   "-1",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			useConfigFile(t, "")
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoadRejectsNonFiniteNumbers(t *testing.T) {
	tests := []struct{ key, value string }{
		{"DEFAULT_SITE_AREA_HECTARES", "NaN"},
		{"DEFAULT_SITE_AREA_HECTARES", "+Inf"},
		{"CREDIT_PRICE_USD", "Inf"},
		{"CREDIT_PRICE_USD", "nan"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			useConfigFile(t, "")
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	useConfigFile(t, "server: [unclosed")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
