// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"LUCID_HOST" yaml:"host"`
	Port int    `envconfig:"LUCID_PORT" yaml:"port"`

	// Postgres configuration
	Postgres PostgresConfig `yaml:"postgres"`

	// Qdrant configuration
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Embedding configuration
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Analytics configuration
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Auth configuration
	Auth AuthConfig `yaml:"auth"`

	// Search configuration
	Search SearchConfig `yaml:"search"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	DSN          string `envconfig:"LUCID_POSTGRES_DSN" yaml:"dsn"`
	MaxOpenConns int    `envconfig:"LUCID_POSTGRES_MAX_OPEN_CONNS" yaml:"max_open_conns"`
	MaxIdleConns int    `envconfig:"LUCID_POSTGRES_MAX_IDLE_CONNS" yaml:"max_idle_conns"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	URL        string `envconfig:"QDRANT_URL" yaml:"url"`
	APIKey     string `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	Collection string `envconfig:"QDRANT_COLLECTION" yaml:"collection"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `envconfig:"OPENAI_API_KEY" yaml:"api_key"`
	BaseURL    string `envconfig:"LUCID_EMBEDDING_BASE_URL" yaml:"base_url"`
	Model      string `envconfig:"LUCID_EMBEDDING_MODEL" yaml:"model"`
	Dimensions int    `envconfig:"LUCID_EMBEDDING_DIM" yaml:"dimensions"`
	MaxBatch   int    `envconfig:"LUCID_EMBEDDING_MAX_BATCH" yaml:"max_batch"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled    bool   `envconfig:"LUCID_CACHE_ENABLED" yaml:"enabled"`
	RedisURL   string `envconfig:"LUCID_REDIS_URL" yaml:"redis_url"`
	TTLSeconds int    `envconfig:"LUCID_CACHE_TTL" yaml:"ttl_seconds"` // 0 = no expiry
}

// AnalyticsConfig holds search analytics settings.
type AnalyticsConfig struct {
	Type         string `envconfig:"LUCID_ANALYTICS_TYPE" yaml:"type"` // memory or kafka
	KafkaBrokers string `envconfig:"LUCID_KAFKA_BROKERS" yaml:"kafka_brokers"`
	Topic        string `envconfig:"LUCID_ANALYTICS_TOPIC" yaml:"topic"`
}

// AuthConfig holds session authentication settings.
type AuthConfig struct {
	JWTSecret  string `envconfig:"LUCID_JWT_SECRET" yaml:"jwt_secret"`
	CookieName string `envconfig:"LUCID_AUTH_COOKIE" yaml:"cookie_name"`
}

// SearchConfig holds search settings.
type SearchConfig struct {
	DefaultLimit       int `envconfig:"LUCID_DEFAULT_LIMIT" yaml:"default_limit"`
	MaxLimit           int `envconfig:"LUCID_MAX_LIMIT" yaml:"max_limit"`
	PrefetchMultiplier int `envconfig:"LUCID_PREFETCH_MULTIPLIER" yaml:"prefetch_multiplier"`
	RRFConstant        int `envconfig:"LUCID_RRF_CONSTANT" yaml:"rrf_constant"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"LUCID_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"LUCID_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds security settings.
type SecurityConfig struct {
	RateLimit   int    `envconfig:"LUCID_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
	CORSOrigins string `envconfig:"LUCID_CORS_ORIGINS" yaml:"cors_origins"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Postgres = PostgresConfig{
		DSN:          "postgres://localhost:5432/lucid?sslmode=disable",
		MaxOpenConns: 20,
		MaxIdleConns: 5,
	}

	cfg.Qdrant = QdrantConfig{
		URL:        "http://localhost:6333",
		Collection: "highlights",
	}

	cfg.Embedding = EmbeddingConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		MaxBatch:   100,
	}

	cfg.Cache = CacheConfig{
		Enabled:    true,
		RedisURL:   "redis://localhost:6379",
		TTLSeconds: 3600,
	}

	cfg.Analytics = AnalyticsConfig{
		Type:  "memory",
		Topic: "search.performed",
	}

	cfg.Auth = AuthConfig{
		CookieName: "lucid_session",
	}

	cfg.Search = SearchConfig{
		DefaultLimit:       10,
		MaxLimit:           100,
		PrefetchMultiplier: 2,
		RRFConstant:        60,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:   0,
		CORSOrigins: "*",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	// Postgres validation
	if c.Postgres.DSN == "" {
		errs = append(errs, "postgres dsn must not be empty")
	}

	// Embedding validation
	if c.Embedding.Dimensions < 1 {
		errs = append(errs, "embedding dimensions must be positive")
	}

	if c.Embedding.MaxBatch < 1 || c.Embedding.MaxBatch > 100 {
		errs = append(errs, "embedding max_batch must be between 1 and 100")
	}

	// Auth validation
	if c.Auth.JWTSecret == "" {
		errs = append(errs, "jwt_secret must not be empty")
	}

	// Analytics validation
	validAnalyticsTypes := map[string]bool{"memory": true, "kafka": true}
	if !validAnalyticsTypes[c.Analytics.Type] {
		errs = append(errs, fmt.Sprintf("invalid analytics type: %s (must be memory or kafka)", c.Analytics.Type))
	}

	if c.Analytics.Type == "kafka" && c.Analytics.KafkaBrokers == "" {
		errs = append(errs, "kafka_brokers required when analytics type is kafka")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	// Search validation
	if c.Search.DefaultLimit < 1 {
		errs = append(errs, "default_limit must be positive")
	}

	if c.Search.MaxLimit < c.Search.DefaultLimit {
		errs = append(errs, "max_limit must be at least default_limit")
	}

	if c.Search.PrefetchMultiplier < 1 {
		errs = append(errs, "prefetch_multiplier must be positive")
	}

	if c.Search.RRFConstant < 1 {
		errs = append(errs, "rrf_constant must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaBrokerList splits the comma-separated broker string.
func (c *AnalyticsConfig) KafkaBrokerList() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
