package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Extractor ExtractorConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Retry     RetryConfig
	Worker    WorkerConfig
	Schemas   SchemasConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ProviderConfig holds settings for a single vision model provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
	MaxTokens    int    `mapstructure:"max_tokens"`
}

// ExtractorConfig holds model invocation settings.
type ExtractorConfig struct {
	Primary ProviderConfig `mapstructure:"primary"`

	MaxFields        int `mapstructure:"max_fields"`
	MaxAllowedValues int `mapstructure:"max_allowed_values"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	RedisURL         string        `mapstructure:"redis_url"`
	TTL              time.Duration `mapstructure:"ttl"`
	MemoryMaxEntries int           `mapstructure:"memory_max_entries"`
}

// RateLimitConfig holds admission control settings.
type RateLimitConfig struct {
	Window        time.Duration `mapstructure:"window"`
	MaxRequests   int           `mapstructure:"max_requests"`
	BlockDuration time.Duration `mapstructure:"block_duration"`
}

// RetryConfig holds the two independent retry policies: transport failures
// and low-confidence re-extraction.
type RetryConfig struct {
	TransportMaxAttempts int           `mapstructure:"transport_max_attempts"`
	TransportBaseDelay   time.Duration `mapstructure:"transport_base_delay"`

	ConfidenceThreshold   int           `mapstructure:"confidence_threshold"`
	ConfidenceMaxAttempts int           `mapstructure:"confidence_max_attempts"`
	ConfidenceBaseDelay   time.Duration `mapstructure:"confidence_base_delay"`
	ConfidenceMultiplier  float64       `mapstructure:"confidence_multiplier"`
	ConfidenceMaxDelay    time.Duration `mapstructure:"confidence_max_delay"`
	ConfidenceJitter      float64       `mapstructure:"confidence_jitter"`
}

// WorkerConfig holds extraction worker settings.
type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Concurrency  int           `mapstructure:"concurrency"`
}

// SchemasConfig points at the category schema source.
type SchemasConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from environment variables with the ATTRIX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ATTRIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// Log defaults
	v.SetDefault("log.level", "debug")

	// Extractor defaults
	v.SetDefault("extractor.primary.provider", "openai")
	v.SetDefault("extractor.primary.api_key", "")
	v.SetDefault("extractor.primary.default_model", "gpt-4o")
	v.SetDefault("extractor.primary.timeout_secs", 30)
	v.SetDefault("extractor.primary.max_tokens", 4096)
	v.SetDefault("extractor.max_fields", 15)
	v.SetDefault("extractor.max_allowed_values", 8)

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.memory_max_entries", 1000)

	// Rate limit defaults
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.max_requests", 30)
	v.SetDefault("rate_limit.block_duration", "5m")

	// Retry defaults
	v.SetDefault("retry.transport_max_attempts", 3)
	v.SetDefault("retry.transport_base_delay", "1s")
	v.SetDefault("retry.confidence_threshold", 70)
	v.SetDefault("retry.confidence_max_attempts", 3)
	v.SetDefault("retry.confidence_base_delay", "2s")
	v.SetDefault("retry.confidence_multiplier", 2.0)
	v.SetDefault("retry.confidence_max_delay", "30s")
	v.SetDefault("retry.confidence_jitter", 0.1)

	// Worker defaults
	v.SetDefault("worker.poll_interval", "500ms")
	v.SetDefault("worker.concurrency", 3)

	// Schema source defaults
	v.SetDefault("schemas.path", "schemas.json")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                    "ATTRIX_SERVER_PORT",
		"server.read_timeout":            "ATTRIX_SERVER_READ_TIMEOUT",
		"server.write_timeout":           "ATTRIX_SERVER_WRITE_TIMEOUT",
		"server.environment":             "ATTRIX_SERVER_ENVIRONMENT",
		"log.level":                      "ATTRIX_LOG_LEVEL",
		"extractor.primary.provider":     "ATTRIX_EXTRACTOR_PRIMARY_PROVIDER",
		"extractor.primary.api_key":      "ATTRIX_EXTRACTOR_PRIMARY_API_KEY",
		"extractor.primary.default_model": "ATTRIX_EXTRACTOR_PRIMARY_DEFAULT_MODEL",
		"extractor.primary.timeout_secs": "ATTRIX_EXTRACTOR_PRIMARY_TIMEOUT_SECS",
		"extractor.primary.max_tokens":   "ATTRIX_EXTRACTOR_PRIMARY_MAX_TOKENS",
		"extractor.max_fields":           "ATTRIX_EXTRACTOR_MAX_FIELDS",
		"extractor.max_allowed_values":   "ATTRIX_EXTRACTOR_MAX_ALLOWED_VALUES",
		"cache.redis_url":                "ATTRIX_CACHE_REDIS_URL",
		"cache.ttl":                      "ATTRIX_CACHE_TTL",
		"cache.memory_max_entries":       "ATTRIX_CACHE_MEMORY_MAX_ENTRIES",
		"rate_limit.window":              "ATTRIX_RATE_LIMIT_WINDOW",
		"rate_limit.max_requests":        "ATTRIX_RATE_LIMIT_MAX_REQUESTS",
		"rate_limit.block_duration":      "ATTRIX_RATE_LIMIT_BLOCK_DURATION",
		"retry.transport_max_attempts":   "ATTRIX_RETRY_TRANSPORT_MAX_ATTEMPTS",
		"retry.transport_base_delay":     "ATTRIX_RETRY_TRANSPORT_BASE_DELAY",
		"retry.confidence_threshold":     "ATTRIX_RETRY_CONFIDENCE_THRESHOLD",
		"retry.confidence_max_attempts":  "ATTRIX_RETRY_CONFIDENCE_MAX_ATTEMPTS",
		"retry.confidence_base_delay":    "ATTRIX_RETRY_CONFIDENCE_BASE_DELAY",
		"retry.confidence_multiplier":    "ATTRIX_RETRY_CONFIDENCE_MULTIPLIER",
		"retry.confidence_max_delay":     "ATTRIX_RETRY_CONFIDENCE_MAX_DELAY",
		"retry.confidence_jitter":        "ATTRIX_RETRY_CONFIDENCE_JITTER",
		"worker.poll_interval":           "ATTRIX_WORKER_POLL_INTERVAL",
		"worker.concurrency":             "ATTRIX_WORKER_CONCURRENCY",
		"schemas.path":                   "ATTRIX_SCHEMAS_PATH",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if ATTRIX_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ATTRIX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}
	cfg.Extractor = ExtractorConfig{
		Primary: ProviderConfig{
			Provider:     v.GetString("extractor.primary.provider"),
			APIKey:       v.GetString("extractor.primary.api_key"),
			DefaultModel: v.GetString("extractor.primary.default_model"),
			TimeoutSecs:  v.GetInt("extractor.primary.timeout_secs"),
			MaxTokens:    v.GetInt("extractor.primary.max_tokens"),
		},
		MaxFields:        v.GetInt("extractor.max_fields"),
		MaxAllowedValues: v.GetInt("extractor.max_allowed_values"),
	}
	cfg.Cache = CacheConfig{
		RedisURL:         v.GetString("cache.redis_url"),
		TTL:              v.GetDuration("cache.ttl"),
		MemoryMaxEntries: v.GetInt("cache.memory_max_entries"),
	}
	cfg.RateLimit = RateLimitConfig{
		Window:        v.GetDuration("rate_limit.window"),
		MaxRequests:   v.GetInt("rate_limit.max_requests"),
		BlockDuration: v.GetDuration("rate_limit.block_duration"),
	}
	cfg.Retry = RetryConfig{
		TransportMaxAttempts:  v.GetInt("retry.transport_max_attempts"),
		TransportBaseDelay:    v.GetDuration("retry.transport_base_delay"),
		ConfidenceThreshold:   v.GetInt("retry.confidence_threshold"),
		ConfidenceMaxAttempts: v.GetInt("retry.confidence_max_attempts"),
		ConfidenceBaseDelay:   v.GetDuration("retry.confidence_base_delay"),
		ConfidenceMultiplier:  v.GetFloat64("retry.confidence_multiplier"),
		ConfidenceMaxDelay:    v.GetDuration("retry.confidence_max_delay"),
		ConfidenceJitter:      v.GetFloat64("retry.confidence_jitter"),
	}
	cfg.Worker = WorkerConfig{
		PollInterval: v.GetDuration("worker.poll_interval"),
		Concurrency:  v.GetInt("worker.concurrency"),
	}
	cfg.Schemas = SchemasConfig{
		Path: v.GetString("schemas.path"),
	}

	return cfg, nil
}
