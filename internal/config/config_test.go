package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 5001 {
		t.Errorf("expected port 5001, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.Source != "file" || cfg.Catalog.Path != "./data/crops.json" {
		t.Errorf("unexpected catalog config: %+v", cfg.Catalog)
	}
	if cfg.Catalog.CacheTTL != 5*time.Minute {
		t.Errorf("expected cache TTL 5m, got %v", cfg.Catalog.CacheTTL)
	}
	if cfg.Scoring.MaxResults != 12 || cfg.Scoring.HardConstraintPenalty != -100 {
		t.Errorf("unexpected scoring defaults: %+v", cfg.Scoring)
	}
	if cfg.Scoring.InclusionExpression == "" {
		t.Error("expected default inclusion expression")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8080
catalog:
  source: database
  cache_ttl: 30s
scoring:
  max_results: 5
  preference_boost: 200
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("CROPADVISOR_PORT", "9090")
	t.Setenv("CROPADVISOR_SCORING_MAX_RESULTS", "8")
	t.Setenv("CROPADVISOR_DB_DRIVER", "sqlite")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("env should override file port, got %d", cfg.Server.Port)
	}
	if cfg.Catalog.Source != "database" {
		t.Errorf("expected database source from file, got %s", cfg.Catalog.Source)
	}
	if cfg.Catalog.CacheTTL != 30*time.Second {
		t.Errorf("expected cache TTL 30s, got %v", cfg.Catalog.CacheTTL)
	}
	if cfg.Scoring.MaxResults != 8 {
		t.Errorf("env should override max results, got %d", cfg.Scoring.MaxResults)
	}
	if cfg.Scoring.PreferenceBoost != 200 {
		t.Errorf("expected preference boost 200, got %v", cfg.Scoring.PreferenceBoost)
	}
	if cfg.Scoring.SeasonBonus != 20 {
		t.Errorf("unset keys should keep defaults, got season bonus %v", cfg.Scoring.SeasonBonus)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug logging, got %s", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad catalog source": "CROPADVISOR_CATALOG_SOURCE",
		"bad driver":         "CROPADVISOR_DB_DRIVER",
		"bad log level":      "CROPADVISOR_LOG_LEVEL",
	}

	for name, key := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(key, "bogus")
			if _, err := LoadFile(""); err == nil {
				t.Errorf("expected validation error for %s=bogus", key)
			}
		})
	}

	t.Run("redis without address", func(t *testing.T) {
		t.Setenv("CROPADVISOR_CACHE_TYPE", "redis")
		if _, err := LoadFile(""); err == nil {
			t.Error("expected error for redis cache without address")
		}
	})
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CROPADVISOR_PORT":                     "server.port",
		"CROPADVISOR_LOG_LEVEL":                "logging.level",
		"CROPADVISOR_SCORING_PROFIT_SCORE_CAP": "scoring.profit_score_cap",
		"CROPADVISOR_EVENTBUS_TYPE":            "eventbus.type",
		"CROPADVISOR_CONFIG":                   "",
		"CROPADVISOR_UNKNOWN_THING":            "",
	}

	for input, want := range tests {
		if got := envKey(input); got != want {
			t.Errorf("envKey(%s) = %q, want %q", input, got, want)
		}
	}
}
