package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/biomed-dq-validator/internal/domain"
)

// EnvPrefix prefixes every environment variable override, e.g.
// BIOMED_DQ_VALIDATION_K_THRESHOLD.
const EnvPrefix = "BIOMED_DQ"

// ConfigFileEnv names the config file read by the server binaries.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

// Manager loads the application configuration using Viper
type Manager struct {
	v      *viper.Viper
	file   string
	config *domain.Config
}

// NewManager creates a configuration manager reading config.yaml from the
// standard search paths.
func NewManager() (*Manager, error) {
	return NewManagerFromFile("")
}

// NewManagerFromFile creates a configuration manager reading the given file.
// An empty path searches the standard locations; a missing file there is not
// an error.
func NewManagerFromFile(path string) (*Manager, error) {
	m := &Manager{file: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from defaults, file and environment
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.file != "" {
		v.SetConfigFile(m.file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/biomed-dq-validator/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.max_body_bytes", 64<<20)
	v.SetDefault("server.tls_enabled", false)

	// Validation defaults
	d := domain.DefaultValidationConfig()
	v.SetDefault("validation.completeness_threshold", d.CompletenessThreshold)
	v.SetDefault("validation.drop_threshold", d.DropThreshold)
	v.SetDefault("validation.k_threshold", d.KThreshold)
	v.SetDefault("validation.outlier_method", string(d.OutlierMethod))
	v.SetDefault("validation.iqr_multiplier", d.IQRMultiplier)
	v.SetDefault("validation.extreme_iqr_multiplier", d.ExtremeIQRMultiplier)
	v.SetDefault("validation.zscore_threshold", d.ZScoreThreshold)
	v.SetDefault("validation.modified_z_threshold", d.ModifiedZThreshold)
	v.SetDefault("validation.fuzzy_threshold", d.FuzzyThreshold)
	v.SetDefault("validation.fuzzy_sample_cap", d.FuzzySampleCap)
	v.SetDefault("validation.fuzzy_top_n", d.FuzzyTopN)
	v.SetDefault("validation.fuzzy_timeout", d.FuzzyTimeout.String())
	v.SetDefault("validation.min_interval_days", d.MinIntervalDays)
	v.SetDefault("validation.max_interval_days", d.MaxIntervalDays)
	v.SetDefault("validation.trend_max_contradiction", d.TrendMaxContradiction)
	v.SetDefault("validation.phi_sample_size", d.PHISampleSize)
	v.SetDefault("validation.exempt_visit_date_column", d.ExemptVisitDateColumn)
	v.SetDefault("validation.strict_mode", d.StrictMode)
	v.SetDefault("validation.max_parallel_checks", d.MaxParallelChecks)
	v.SetDefault("validation.range_specs_file", "")

	// Scoring defaults
	s := domain.DefaultScoringConfig()
	v.SetDefault("scoring.phi_weight", s.PHIWeight)
	v.SetDefault("scoring.deidentification_weight", s.DeidentificationWeight)
	v.SetDefault("scoring.completeness_weight", s.CompletenessWeight)
	v.SetDefault("scoring.outlier_weight", s.OutlierWeight)
	v.SetDefault("scoring.range_weight", s.RangeWeight)
	v.SetDefault("scoring.duplicate_weight", s.DuplicateWeight)
	v.SetDefault("scoring.temporal_weight", s.TemporalWeight)
	v.SetDefault("scoring.temporal_to_completeness", s.TemporalToCompleteness)
	v.SetDefault("scoring.temporal_to_range", s.TemporalToRange)
	v.SetDefault("scoring.outlier_density_ceiling_pct", s.OutlierDensityCeilingPct)
	v.SetDefault("scoring.duplicate_penalty_factor", s.DuplicatePenaltyFactor)
	v.SetDefault("scoring.ready_threshold", s.ReadyThreshold)

	// Archive defaults
	v.SetDefault("archive.driver", "sqlite")
	v.SetDefault("archive.path", DefaultArchivePath())
	v.SetDefault("archive.url", "")
	v.SetDefault("archive.sql_driver", "pgx")
	v.SetDefault("archive.run_migrations", true)
	v.SetDefault("archive.max_open_conns", 10)
	v.SetDefault("archive.max_idle_conns", 2)
	v.SetDefault("archive.conn_max_lifetime", "5m")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.memory_size", 256)
	v.SetDefault("cache.memory_ttl", "30m")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.redis_ttl", "24h")
	v.SetDefault("cache.key_prefix", "dq:report:")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.breaker_timeout", "30s")
	v.SetDefault("cache.breaker_trips", 5)

	// Rate limiting defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")

	// MCP defaults
	v.SetDefault("mcp.server_name", "biomed-dq-validator")
	v.SetDefault("mcp.server_version", "1.0.0")
	v.SetDefault("mcp.request_timeout", "120s")
	v.SetDefault("mcp.max_rows", 200000)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetValidationConfig returns the checker thresholds
func (m *Manager) GetValidationConfig() domain.ValidationConfig {
	return m.config.Validation
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Set overrides a single key and re-reads the configuration struct. It is
// used by command-line flags that shadow configuration keys.
func (m *Manager) Set(key string, value any) error {
	m.v.Set(key, value)
	config := &domain.Config{}
	if err := m.v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	m.config = config
	return nil
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate checker thresholds
	val := config.Validation
	if val.CompletenessThreshold <= 0 || val.CompletenessThreshold > 1 {
		return domain.NewValidationError("validation.completeness_threshold", "must be within (0,1]", val.CompletenessThreshold)
	}
	if val.DropThreshold < 0 || val.DropThreshold > 1 {
		return domain.NewValidationError("validation.drop_threshold", "must be within [0,1]", val.DropThreshold)
	}
	if val.KThreshold < 2 {
		return domain.NewValidationError("validation.k_threshold", "must be at least 2", val.KThreshold)
	}
	if !val.OutlierMethod.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidMethod, val.OutlierMethod)
	}
	if val.FuzzyThreshold <= 0 || val.FuzzyThreshold > 1 {
		return domain.NewValidationError("validation.fuzzy_threshold", "must be within (0,1]", val.FuzzyThreshold)
	}
	if val.MinIntervalDays < 0 || val.MaxIntervalDays < val.MinIntervalDays {
		return domain.NewValidationError("validation.max_interval_days", "interval bounds are inverted", val.MaxIntervalDays)
	}
	if val.MaxParallelChecks <= 0 {
		return domain.NewValidationError("validation.max_parallel_checks", "must be positive", val.MaxParallelChecks)
	}

	// Validate scoring weights
	if err := config.Scoring.Validate(); err != nil {
		return fmt.Errorf("invalid scoring configuration: %w", err)
	}

	// Validate archive configuration
	switch config.Archive.Driver {
	case "none", "":
	case "sqlite":
		if config.Archive.Path == "" {
			return fmt.Errorf("archive path is required for the sqlite driver")
		}
	case "postgres":
		if config.Archive.URL == "" {
			return fmt.Errorf("archive url is required for the postgres driver")
		}
		if config.Archive.SQLDriver != "pgx" && config.Archive.SQLDriver != "postgres" {
			return fmt.Errorf("invalid archive sql driver: %s", config.Archive.SQLDriver)
		}
	default:
		return fmt.Errorf("invalid archive driver: %s", config.Archive.Driver)
	}

	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
