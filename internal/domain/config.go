package domain

import (
	"math"
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Validation  ValidationConfig `mapstructure:"validation"`
	Scoring     ScoringConfig    `mapstructure:"scoring"`
	Archive     ArchiveConfig    `mapstructure:"archive"`
	Cache       CacheConfig      `mapstructure:"cache"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limit"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	MCP         MCPConfig        `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
}

// ValidationConfig holds the thresholds used by the checkers
type ValidationConfig struct {
	CompletenessThreshold float64       `mapstructure:"completeness_threshold" json:"completeness_threshold"`
	DropThreshold         float64       `mapstructure:"drop_threshold" json:"drop_threshold"`
	KThreshold            int           `mapstructure:"k_threshold" json:"k_threshold"`
	OutlierMethod         OutlierMethod `mapstructure:"outlier_method" json:"outlier_method"`
	IQRMultiplier         float64       `mapstructure:"iqr_multiplier" json:"iqr_multiplier"`
	ExtremeIQRMultiplier  float64       `mapstructure:"extreme_iqr_multiplier" json:"extreme_iqr_multiplier"`
	ZScoreThreshold       float64       `mapstructure:"zscore_threshold" json:"zscore_threshold"`
	ModifiedZThreshold    float64       `mapstructure:"modified_z_threshold" json:"modified_z_threshold"`
	FuzzyThreshold        float64       `mapstructure:"fuzzy_threshold" json:"fuzzy_threshold"`
	FuzzySampleCap        int           `mapstructure:"fuzzy_sample_cap" json:"fuzzy_sample_cap"`
	FuzzyTopN             int           `mapstructure:"fuzzy_top_n" json:"fuzzy_top_n"`
	FuzzyTimeout          time.Duration `mapstructure:"fuzzy_timeout" json:"fuzzy_timeout"`
	MinIntervalDays       int           `mapstructure:"min_interval_days" json:"min_interval_days"`
	MaxIntervalDays       int           `mapstructure:"max_interval_days" json:"max_interval_days"`
	TrendMaxContradiction float64       `mapstructure:"trend_max_contradiction" json:"trend_max_contradiction"`
	PHISampleSize         int           `mapstructure:"phi_sample_size" json:"phi_sample_size"`
	ExemptVisitDateColumn bool          `mapstructure:"exempt_visit_date_column" json:"exempt_visit_date_column"`
	StrictMode            bool          `mapstructure:"strict_mode" json:"strict_mode"`
	MaxParallelChecks     int           `mapstructure:"max_parallel_checks" json:"max_parallel_checks"`
	RangeSpecsFile        string        `mapstructure:"range_specs_file" json:"range_specs_file,omitempty"`
}

// DefaultValidationConfig returns the documented checker defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		CompletenessThreshold: 0.70,
		DropThreshold:         0.50,
		KThreshold:            5,
		OutlierMethod:         METHOD_BOTH,
		IQRMultiplier:         1.5,
		ExtremeIQRMultiplier:  3.0,
		ZScoreThreshold:       3.0,
		ModifiedZThreshold:    3.5,
		FuzzyThreshold:        0.95,
		FuzzySampleCap:        1000,
		FuzzyTopN:             20,
		FuzzyTimeout:          10 * time.Second,
		MinIntervalDays:       1,
		MaxIntervalDays:       730,
		TrendMaxContradiction: 0.30,
		PHISampleSize:         1000,
		ExemptVisitDateColumn: true,
		StrictMode:            false,
		MaxParallelChecks:     4,
	}
}

// ScoringConfig holds the component weights of the quality score. Weights
// must sum to 100. When the temporal check is not applicable its weight is
// moved to completeness and range validation by the redistribution shares.
type ScoringConfig struct {
	PHIWeight                float64 `mapstructure:"phi_weight" json:"phi_weight"`
	DeidentificationWeight   float64 `mapstructure:"deidentification_weight" json:"deidentification_weight"`
	CompletenessWeight       float64 `mapstructure:"completeness_weight" json:"completeness_weight"`
	OutlierWeight            float64 `mapstructure:"outlier_weight" json:"outlier_weight"`
	RangeWeight              float64 `mapstructure:"range_weight" json:"range_weight"`
	DuplicateWeight          float64 `mapstructure:"duplicate_weight" json:"duplicate_weight"`
	TemporalWeight           float64 `mapstructure:"temporal_weight" json:"temporal_weight"`
	TemporalToCompleteness   float64 `mapstructure:"temporal_to_completeness" json:"temporal_to_completeness"`
	TemporalToRange          float64 `mapstructure:"temporal_to_range" json:"temporal_to_range"`
	OutlierDensityCeilingPct float64 `mapstructure:"outlier_density_ceiling_pct" json:"outlier_density_ceiling_pct"`
	DuplicatePenaltyFactor   float64 `mapstructure:"duplicate_penalty_factor" json:"duplicate_penalty_factor"`
	ReadyThreshold           float64 `mapstructure:"ready_threshold" json:"ready_threshold"`
}

// DefaultScoringConfig returns the standard 20/15/20/10/15/10/10 weighting.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		PHIWeight:                20,
		DeidentificationWeight:   15,
		CompletenessWeight:       20,
		OutlierWeight:            10,
		RangeWeight:              15,
		DuplicateWeight:          10,
		TemporalWeight:           10,
		TemporalToCompleteness:   5,
		TemporalToRange:          5,
		OutlierDensityCeilingPct: 10,
		DuplicatePenaltyFactor:   5,
		ReadyThreshold:           70,
	}
}

// Validate checks that the weights sum to 100 and the temporal
// redistribution shares add up to the temporal weight.
func (s ScoringConfig) Validate() error {
	total := s.PHIWeight + s.DeidentificationWeight + s.CompletenessWeight +
		s.OutlierWeight + s.RangeWeight + s.DuplicateWeight + s.TemporalWeight
	if math.Abs(total-100) > 1e-9 {
		return ErrInvalidWeights
	}
	if math.Abs(s.TemporalToCompleteness+s.TemporalToRange-s.TemporalWeight) > 1e-9 {
		return NewValidationError("scoring.temporal_to_completeness", "temporal redistribution must equal the temporal weight", s.TemporalToCompleteness)
	}
	if s.ReadyThreshold < 0 || s.ReadyThreshold > 100 {
		return NewValidationError("scoring.ready_threshold", "must be within [0,100]", s.ReadyThreshold)
	}
	return nil
}

// ArchiveConfig represents report archive configuration
type ArchiveConfig struct {
	Driver          string        `mapstructure:"driver"` // "sqlite", "postgres", "none"
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	SQLDriver       string        `mapstructure:"sql_driver"` // "pgx" or "postgres"
	RunMigrations   bool          `mapstructure:"run_migrations"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig represents report cache configuration
type CacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MemorySize     int           `mapstructure:"memory_size"`
	MemoryTTL      time.Duration `mapstructure:"memory_ttl"`
	RedisURL       string        `mapstructure:"redis_url"`
	RedisTTL       time.Duration `mapstructure:"redis_ttl"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PoolSize       int           `mapstructure:"pool_size"`
	PoolTimeout    time.Duration `mapstructure:"pool_timeout"`
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
	BreakerTrips   uint32        `mapstructure:"breaker_trips"`
}

// RateLimitConfig represents per-client request rate limiting
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName     string        `mapstructure:"server_name"`
	ServerVersion  string        `mapstructure:"server_version"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRows        int           `mapstructure:"max_rows"`
}
