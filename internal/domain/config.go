package domain

import "time"

// Config holds the complete cropadvisor configuration.
type Config struct {
	// Server settings
	Server ServerConfig `koanf:"server"`

	// Catalog source and caching
	Catalog CatalogConfig `koanf:"catalog"`

	// Component configurations
	Repository RepositoryConfig `koanf:"repository"`
	Cache      CacheConfig      `koanf:"cache"`
	EventBus   EventBusConfig   `koanf:"eventbus"`

	// Scoring tunables
	Scoring ScoringConfig `koanf:"scoring"`

	// Observability
	Logging LoggingConfig `koanf:"logging"`
	Tracing TracingConfig `koanf:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string   `koanf:"host"`
	Port         int      `koanf:"port" validate:"gt=0,lte=65535"`
	ReadTimeout  int      `koanf:"read_timeout"`  // seconds
	WriteTimeout int      `koanf:"write_timeout"` // seconds
	CORSOrigins  []string `koanf:"cors_origins"`

	// Per-IP limit on POST /recommend; 0 disables limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// CatalogConfig selects where crop records come from.
type CatalogConfig struct {
	// Source is "file" (JSON catalog) or "database" (repository).
	Source string `koanf:"source" validate:"oneof=file database"`

	// Path of the JSON catalog when Source is "file".
	Path string `koanf:"path"`

	// SeedPath is imported into an empty database on startup.
	SeedPath string `koanf:"seed_path"`

	// CacheTTL bounds how long a loaded catalog is reused; 0 disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// ScoringConfig holds the calibration constants of the recommendation engine.
// They are product tunables, not invariants.
type ScoringConfig struct {
	HardConstraintPenalty float64 `koanf:"hard_constraint_penalty"`
	SeasonBonus           float64 `koanf:"season_bonus"`
	SowingMonthBonus      float64 `koanf:"sowing_month_bonus"`
	TemperatureBonus      float64 `koanf:"temperature_bonus"`
	SoilBonus             float64 `koanf:"soil_bonus"`
	WaterExactBonus       float64 `koanf:"water_exact_bonus"`
	WaterSurplusBonus     float64 `koanf:"water_surplus_bonus"`
	BudgetPenalty         float64 `koanf:"budget_penalty"`
	PreferenceBoost       float64 `koanf:"preference_boost"`
	ProfitScoreCap        float64 `koanf:"profit_score_cap"`
	ProfitNormalizer      float64 `koanf:"profit_normalizer" validate:"gt=0"`

	// InclusionThreshold is the score a crop must exceed to be listed
	// unless it is preferred.
	InclusionThreshold float64 `koanf:"inclusion_threshold"`

	// InclusionExpression is a CEL expression over total_score, threshold,
	// preferred, selectable and profit_per_acre.
	InclusionExpression string `koanf:"inclusion_expression" validate:"required"`

	MaxResults int `koanf:"max_results" validate:"gt=0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

// DefaultScoring returns the calibrated scoring constants.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		HardConstraintPenalty: -100,
		SeasonBonus:           20,
		SowingMonthBonus:      10,
		TemperatureBonus:      20,
		SoilBonus:             20,
		WaterExactBonus:       30,
		WaterSurplusBonus:     15,
		BudgetPenalty:         -40,
		PreferenceBoost:       150,
		ProfitScoreCap:        50,
		ProfitNormalizer:      100000,
		InclusionThreshold:    -80,
		InclusionExpression:   "total_score > threshold || preferred",
		MaxResults:            12,
	}
}

// DefaultConfig returns a single-node configuration: JSON catalog,
// in-memory cache and channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              5001,
			ReadTimeout:       30,
			WriteTimeout:      30,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Catalog: CatalogConfig{
			Source:   "file",
			Path:     "./data/crops.json",
			CacheTTL: 5 * time.Minute,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./cropadvisor.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 100,
		},
		Scoring: DefaultScoring(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "cropadvisor",
		},
	}
}
