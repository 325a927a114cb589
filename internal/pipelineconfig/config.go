// Package pipelineconfig loads the single JSON configuration document
// described in spec §6, using the same viper + .env + environment
// variable override shape as config/config.go, retargeted from that
// file's server/database/rate-limit sections to the orchestrator's
// system/processing-limits/cache/auth/performance sections.
package pipelineconfig

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/chri75252/simpler-fba-sub003/internal/authguard"
	"github.com/chri75252/simpler-fba-sub003/internal/financial"
)

// decimalDecodeHook lets GateConfig's decimal.Decimal fields be set
// from plain JSON/env strings or numbers, since mapstructure has no
// built-in decimal.Decimal support.
func decimalDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(decimal.Decimal{}) {
		return data, nil
	}
	switch from.Kind() {
	case reflect.String:
		return decimal.NewFromString(data.(string))
	case reflect.Float32, reflect.Float64:
		return decimal.NewFromFloat(reflect.ValueOf(data).Float()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(reflect.ValueOf(data).Int()), nil
	default:
		return data, nil
	}
}

// Config is the top-level configuration document (spec §6's
// "configuration surface" table).
type Config struct {
	System                   SystemConfig                   `mapstructure:"system"`
	ProcessingLimits         ProcessingLimitsConfig         `mapstructure:"processing_limits"`
	SupplierCacheControl     SupplierCacheControlConfig     `mapstructure:"supplier_cache_control"`
	SupplierExtractionProgress SupplierExtractionProgressConfig `mapstructure:"supplier_extraction_progress"`
	HybridProcessing         HybridProcessingConfig         `mapstructure:"hybrid_processing"`
	Authentication           authguard.Config                `mapstructure:"authentication"`
	Performance              PerformanceConfig               `mapstructure:"performance"`
	Cache                    CacheConfig                     `mapstructure:"cache"`
	Gate                     financial.GateConfig             `mapstructure:"criteria_gate"`
	RateLimit                RateLimitConfig                 `mapstructure:"rate_limit"`

	// SupplierURL/SupplierEmail/SupplierPassword/OutputRoot are
	// CLI-sourced (spec §6's flag surface), not part of the JSON
	// document itself but carried alongside it for convenience.
	SupplierURL      string `mapstructure:"-"`
	SupplierEmail    string `mapstructure:"-"`
	SupplierPassword string `mapstructure:"-"`
	OutputRoot       string `mapstructure:"-"`
}

// String redacts SupplierPassword so the config never appears
// plaintext in logs (supplemented security requirement).
func (c Config) String() string {
	redacted := "<empty>"
	if c.SupplierPassword != "" {
		redacted = "<redacted>"
	}
	return fmt.Sprintf("Config{System:%+v SupplierEmail:%q SupplierPassword:%s}", c.System, c.SupplierEmail, redacted)
}

// SystemConfig holds the orchestrator's run-wide caps.
type SystemConfig struct {
	MaxProducts                 int `mapstructure:"max_products"`
	MaxProductsPerCategory       int `mapstructure:"max_products_per_category"`
	MaxProductsPerCycle          int `mapstructure:"max_products_per_cycle"`
	SupplierExtractionBatchSize int `mapstructure:"supplier_extraction_batch_size"`
}

// ProcessingLimitsConfig holds the price-band filter.
type ProcessingLimitsConfig struct {
	MinPriceGBP float64 `mapstructure:"min_price_gbp"`
	MaxPriceGBP float64 `mapstructure:"max_price_gbp"`
}

// SupplierCacheControlConfig holds cache flush cadence.
type SupplierCacheControlConfig struct {
	UpdateFrequencyProducts int `mapstructure:"update_frequency_products"`
}

// StatePersistenceConfig holds state-checkpoint cadence.
type StatePersistenceConfig struct {
	BatchSaveFrequency int `mapstructure:"batch_save_frequency"`
}

// SupplierExtractionProgressConfig holds resume-mode configuration.
type SupplierExtractionProgressConfig struct {
	StatePersistence StatePersistenceConfig `mapstructure:"state_persistence"`
	RecoveryMode     string                 `mapstructure:"recovery_mode"`
}

// ChunkedProcessingModeConfig holds the chunked-interleaving backlog
// drain size.
type ChunkedProcessingModeConfig struct {
	ChunkSizeCategories int `mapstructure:"chunk_size_categories"`
}

// ProcessingModesConfig wraps the supported processing modes.
type ProcessingModesConfig struct {
	Chunked ChunkedProcessingModeConfig `mapstructure:"chunked"`
}

// HybridProcessingConfig holds the category/Amazon interleave
// threshold.
type HybridProcessingConfig struct {
	SwitchToAmazonAfterCategories int                   `mapstructure:"switch_to_amazon_after_categories"`
	ProcessingModes               ProcessingModesConfig `mapstructure:"processing_modes"`
}

// PerformanceConfig holds the detail-page worker pool size.
type PerformanceConfig struct {
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests"`
}

// CacheConfig holds the cache TTL / rotation hint.
type CacheConfig struct {
	TTLHours  int `mapstructure:"ttl_hours"`
	MaxSizeMB int `mapstructure:"max_size_mb"`
}

// RateLimitConfig holds the per-domain request-rate and retry/backoff
// tuning handed to internal/ratelimit.New (spec §4.4's
// rate_limit_delay, defaulted to 1.0s/1 req-per-second below).
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxRetries        int     `mapstructure:"max_retries"`
	InitialBackoffMs  int     `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int     `mapstructure:"max_backoff_ms"`
}

// RecoveryModeProductResume is the only supported recovery mode
// (spec §6).
const RecoveryModeProductResume = "product_resume"

var globalConfig *Config

// Load reads configPath (or the default config.json/./config search
// path), applies .env overrides, then environment variable overrides,
// and unmarshals into a Config. Defaults are set for every key so a
// bare, empty document still produces a usable configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := loadEnvFile(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("FBA_PIPELINE")
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		decimalDecodeHook,
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.SupplierEmail = v.GetString("supplier_email")
	cfg.SupplierPassword = v.GetString("supplier_password")
	cfg.SupplierURL = v.GetString("supplier_url")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// ValidationError names a single config-validation failure, in the
// Field/Reason shape used by the optimizer's ErrInvalidRequest.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: field %q invalid: %s", e.Field, e.Reason)
}

// Validate checks the config document for internally-consistent
// values before the orchestrator starts a run.
func (c Config) Validate() error {
	if c.ProcessingLimits.MinPriceGBP < 0 {
		return ValidationError{Field: "processing_limits.min_price_gbp", Reason: "cannot be negative"}
	}
	if c.ProcessingLimits.MaxPriceGBP > 0 && c.ProcessingLimits.MaxPriceGBP < c.ProcessingLimits.MinPriceGBP {
		return ValidationError{Field: "processing_limits.max_price_gbp", Reason: "cannot be less than min_price_gbp"}
	}
	if c.SupplierExtractionProgress.RecoveryMode != "" && c.SupplierExtractionProgress.RecoveryMode != RecoveryModeProductResume {
		return ValidationError{Field: "supplier_extraction_progress.recovery_mode", Reason: "only product_resume is supported"}
	}
	if c.Performance.MaxConcurrentRequests < 0 {
		return ValidationError{Field: "performance.max_concurrent_requests", Reason: "cannot be negative"}
	}
	return nil
}

func loadEnvFile() error {
	candidates := []string{".env", "./config/.env"}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if err := loadDotEnvFile(path); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")
		os.Setenv(key, value)
	}
	return scanner.Err()
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("supplier_url", "SUPPLIER_URL")
	v.BindEnv("supplier_email", "SUPPLIER_EMAIL")
	v.BindEnv("supplier_password", "SUPPLIER_PASSWORD")
	v.BindEnv("system.max_products", "FBA_MAX_PRODUCTS")
	v.BindEnv("performance.max_concurrent_requests", "FBA_MAX_CONCURRENT_REQUESTS")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("system.max_products", 0)
	v.SetDefault("system.max_products_per_category", 0)
	v.SetDefault("system.max_products_per_cycle", 50)
	v.SetDefault("system.supplier_extraction_batch_size", 10)

	v.SetDefault("processing_limits.min_price_gbp", 0.1)
	v.SetDefault("processing_limits.max_price_gbp", 20.0)

	v.SetDefault("supplier_cache_control.update_frequency_products", 50)

	v.SetDefault("supplier_extraction_progress.state_persistence.batch_save_frequency", 10)
	v.SetDefault("supplier_extraction_progress.recovery_mode", RecoveryModeProductResume)

	v.SetDefault("hybrid_processing.switch_to_amazon_after_categories", 5)
	v.SetDefault("hybrid_processing.processing_modes.chunked.chunk_size_categories", 5)

	v.SetDefault("authentication.consecutive_failure_threshold", 3)
	v.SetDefault("authentication.primary_periodic_interval", 100)
	v.SetDefault("authentication.secondary_periodic_interval", 200)
	v.SetDefault("authentication.max_consecutive_auth_failures", 3)
	v.SetDefault("authentication.auth_failure_delay_seconds", 30*time.Second)

	v.SetDefault("performance.max_concurrent_requests", 5)

	v.SetDefault("cache.ttl_hours", 168)
	v.SetDefault("cache.max_size_mb", 500)

	v.SetDefault("rate_limit.requests_per_second", 1.0)
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.initial_backoff_ms", 100)
	v.SetDefault("rate_limit.max_backoff_ms", 30000)

	v.SetDefault("criteria_gate.min_roi_percent", "35")
	v.SetDefault("criteria_gate.min_profit_per_unit", "3.0")
	v.SetDefault("criteria_gate.min_rating", 4.0)
	v.SetDefault("criteria_gate.min_reviews", 50)
	v.SetDefault("criteria_gate.max_sales_rank", 150000)
}

// Get returns the last-loaded global configuration, or nil if Load
// has not been called.
func Get() *Config {
	return globalConfig
}
