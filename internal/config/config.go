// Package config loads cropadvisor configuration in layers: built-in
// defaults, then an optional YAML file, then CROPADVISOR_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/validation"
)

const (
	// EnvPrefix prefixes every configuration environment variable.
	EnvPrefix = "CROPADVISOR_"

	// ConfigPathEnvVar names the config file to load.
	ConfigPathEnvVar = EnvPrefix + "CONFIG"
)

// DefaultConfigPaths are searched when CROPADVISOR_CONFIG is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cropadvisor/config.yaml",
}

// envAliases maps short variable names (without the prefix) to config paths.
// Anything else is read as SECTION_KEY, e.g. CROPADVISOR_SCORING_MAX_RESULTS.
var envAliases = map[string]string{
	"host":              "server.host",
	"port":              "server.port",
	"cors_origins":      "server.cors_origins",
	"rate_limit":        "server.rate_limit_requests",
	"catalog_source":    "catalog.source",
	"catalog_path":      "catalog.path",
	"seed_path":         "catalog.seed_path",
	"db_driver":         "repository.driver",
	"sqlite_path":       "repository.sqlite_path",
	"postgres_host":     "repository.postgres_host",
	"postgres_port":     "repository.postgres_port",
	"postgres_user":     "repository.postgres_user",
	"postgres_password": "repository.postgres_password",
	"postgres_db":       "repository.postgres_db",
	"redis_addr":        "cache.redis_addr",
	"redis_password":    "cache.redis_password",
	"nats_url":          "eventbus.nats_url",
	"nats_token":        "eventbus.nats_token",
	"log_level":         "logging.level",
	"log_format":        "logging.format",
}

// sections are the top-level config keys.
var sections = map[string]bool{
	"server":     true,
	"catalog":    true,
	"repository": true,
	"cache":      true,
	"eventbus":   true,
	"scoring":    true,
	"logging":    true,
	"tracing":    true,
}

// Load reads configuration with precedence env > file > defaults and
// validates the result.
func Load() (*domain.Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file; an empty path skips the
// file layer.
func LoadFile(path string) (*domain.Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(domain.DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &domain.Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks a loaded configuration.
func Validate(cfg *domain.Config) error {
	if err := validation.ValidateStruct(cfg); err != nil {
		return err
	}
	if cfg.Catalog.Source == "file" && cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required when catalog.source is file")
	}
	if cfg.Cache.Type == "redis" && cfg.Cache.RedisAddr == "" {
		return fmt.Errorf("cache.redis_addr is required when cache.type is redis")
	}
	return nil
}

// envKey maps CROPADVISOR_SECTION_KEY to section.key. Unknown names map to ""
// and are ignored.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))

	if path, ok := envAliases[key]; ok {
		return path
	}

	section, rest, found := strings.Cut(key, "_")
	if !found || !sections[section] {
		return ""
	}
	return section + "." + rest
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}
