package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aryan0dhankhar/bluecarbon/pkg/database"
)

// State backends
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendLocal    = "local"
)

// Config holds the application configuration
type Config struct {
	Environment        string
	ServerPort         int
	LogLevel           string
	JWTSecret          string
	SessionTTL         time.Duration
	CORSAllowedOrigins []string
	RateLimitPerMinute int

	// Persistence
	StateBackend           string
	Database               *database.Config
	RedisURL               string
	LocalStatePath         string
	LocalSnapshotRetention int
	SyncInterval           time.Duration

	// AI scoring
	AIScorerURL     string
	AIScorerAPIKey  string
	AIScorerTimeout time.Duration
	AICacheTTL      time.Duration

	// Audit event stream, disabled when no brokers are set
	KafkaBrokers    []string
	KafkaAuditTopic string

	// Registry rules
	DefaultSiteAreaHectares float64
	CreditPriceUSD          float64
	RequirePositiveCarbon   bool
}

// fileConfig mirrors config.yaml. Every field is optional.
type fileConfig struct {
	Server struct {
		Port        int      `yaml:"port"`
		LogLevel    string   `yaml:"log_level"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	State struct {
		Backend           string `yaml:"backend"`
		RedisURL          string `yaml:"redis_url"`
		LocalPath         string `yaml:"local_path"`
		SnapshotRetention int    `yaml:"snapshot_retention"`
		SyncIntervalSecs  int    `yaml:"sync_interval_seconds"`
		Postgres          struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Database string `yaml:"database"`
			SSLMode  string `yaml:"sslmode"`
		} `yaml:"postgres"`
	} `yaml:"state"`
	Scorer struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		CacheTTLMins   int    `yaml:"cache_ttl_minutes"`
	} `yaml:"scorer"`
	Kafka struct {
		Brokers    []string `yaml:"brokers"`
		AuditTopic string   `yaml:"audit_topic"`
	} `yaml:"kafka"`
	Registry struct {
		DefaultSiteAreaHectares float64 `yaml:"default_site_area_hectares"`
		CreditPriceUSD          float64 `yaml:"credit_price_usd"`
		RequirePositiveCarbon   *bool   `yaml:"require_positive_carbon"`
	} `yaml:"registry"`
}

// defaults returns the built-in development configuration
func defaults() *Config {
	return &Config{
		Environment:        "development",
		ServerPort:         8080,
		LogLevel:           "info",
		SessionTTL:         8 * time.Hour,
		CORSAllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		RateLimitPerMinute: 120,

		StateBackend:           BackendLocal,
		Database:               database.DefaultConfig(),
		RedisURL:               "redis://localhost:6379",
		LocalStatePath:         "bluecarbon_mrv_v2.db",
		LocalSnapshotRetention: 20,
		SyncInterval:           30 * time.Second,

		AIScorerTimeout: 10 * time.Second,
		AICacheTTL:      time.Hour,

		KafkaAuditTopic: "bluecarbon.audit",

		DefaultSiteAreaHectares: 0.5,
		CreditPriceUSD:          15,
		RequirePositiveCarbon:   true,
	}
}

// Load resolves configuration in order: defaults, then the YAML file named by
// CONFIG_FILE (config.yaml if unset, ignored when missing), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()
	if err := cfg.applyFile(getEnv("CONFIG_FILE", "config.yaml")); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Server.Port > 0 {
		c.ServerPort = f.Server.Port
	}
	if f.Server.LogLevel != "" {
		c.LogLevel = f.Server.LogLevel
	}
	if len(f.Server.CORSOrigins) > 0 {
		c.CORSAllowedOrigins = f.Server.CORSOrigins
	}
	if f.State.Backend != "" {
		c.StateBackend = f.State.Backend
	}
	if f.State.RedisURL != "" {
		c.RedisURL = f.State.RedisURL
	}
	if f.State.LocalPath != "" {
		c.LocalStatePath = f.State.LocalPath
	}
	if f.State.SnapshotRetention > 0 {
		c.LocalSnapshotRetention = f.State.SnapshotRetention
	}
	if f.State.SyncIntervalSecs > 0 {
		c.SyncInterval = time.Duration(f.State.SyncIntervalSecs) * time.Second
	}
	pg := f.State.Postgres
	if pg.Host != "" {
		c.Database.Host = pg.Host
	}
	if pg.Port > 0 {
		c.Database.Port = pg.Port
	}
	if pg.User != "" {
		c.Database.User = pg.User
	}
	if pg.Database != "" {
		c.Database.Database = pg.Database
	}
	if pg.SSLMode != "" {
		c.Database.SSLMode = pg.SSLMode
	}
	if f.Scorer.URL != "" {
		c.AIScorerURL = f.Scorer.URL
	}
	if f.Scorer.TimeoutSeconds > 0 {
		c.AIScorerTimeout = time.Duration(f.Scorer.TimeoutSeconds) * time.Second
	}
	if f.Scorer.CacheTTLMins > 0 {
		c.AICacheTTL = time.Duration(f.Scorer.CacheTTLMins) * time.Minute
	}
	if len(f.Kafka.Brokers) > 0 {
		c.KafkaBrokers = f.Kafka.Brokers
	}
	if f.Kafka.AuditTopic != "" {
		c.KafkaAuditTopic = f.Kafka.AuditTopic
	}
	if f.Registry.DefaultSiteAreaHectares > 0 {
		c.DefaultSiteAreaHectares = f.Registry.DefaultSiteAreaHectares
	}
	if f.Registry.CreditPriceUSD > 0 {
		c.CreditPriceUSD = f.Registry.CreditPriceUSD
	}
	if f.Registry.RequirePositiveCarbon != nil {
		c.RequirePositiveCarbon = *f.Registry.RequirePositiveCarbon
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.CORSAllowedOrigins = parseCSVEnv("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)
	if c.ServerPort, err = getEnvInt("SERVER_PORT", c.ServerPort); err != nil {
		return err
	}
	if c.RateLimitPerMinute, err = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute); err != nil {
		return err
	}
	if c.SessionTTL, err = getEnvDuration("SESSION_TTL_MINUTES", c.SessionTTL, time.Minute); err != nil {
		return err
	}

	c.StateBackend = strings.ToLower(getEnv("STATE_BACKEND", c.StateBackend))
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.LocalStatePath = getEnv("LOCAL_STATE_PATH", c.LocalStatePath)
	if c.LocalSnapshotRetention, err = getEnvInt("LOCAL_SNAPSHOT_RETENTION", c.LocalSnapshotRetention); err != nil {
		return err
	}
	if c.SyncInterval, err = getEnvDuration("SYNC_INTERVAL_SECONDS", c.SyncInterval, time.Second); err != nil {
		return err
	}
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	if c.Database.Port, err = getEnvInt("DB_PORT", c.Database.Port); err != nil {
		return err
	}
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.AIScorerURL = getEnv("AI_SCORER_URL", c.AIScorerURL)
	c.AIScorerAPIKey = getEnv("AI_SCORER_API_KEY", c.AIScorerAPIKey)
	if c.AIScorerTimeout, err = getEnvDuration("AI_SCORER_TIMEOUT_SECONDS", c.AIScorerTimeout, time.Second); err != nil {
		return err
	}
	if c.AICacheTTL, err = getEnvDuration("AI_CACHE_TTL_MINUTES", c.AICacheTTL, time.Minute); err != nil {
		return err
	}

	c.KafkaBrokers = parseCSVEnv("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaAuditTopic = getEnv("KAFKA_AUDIT_TOPIC", c.KafkaAuditTopic)

	if c.DefaultSiteAreaHectares, err = getEnvFloat("DEFAULT_SITE_AREA_HECTARES", c.DefaultSiteAreaHectares); err != nil {
		return err
	}
	if c.CreditPriceUSD, err = getEnvFloat("CREDIT_PRICE_USD", c.CreditPriceUSD); err != nil {
		return err
	}
	if c.RequirePositiveCarbon, err = getEnvBool("REQUIRE_POSITIVE_CARBON", c.RequirePositiveCarbon); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StateBackend {
	case BackendPostgres, BackendRedis, BackendLocal:
	default:
		return fmt.Errorf("invalid STATE_BACKEND: %q", c.StateBackend)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.ServerPort)
	}
	// NaN and Inf would poison every carbon figure and the persisted JSON
	if !finite(c.DefaultSiteAreaHectares) || c.DefaultSiteAreaHectares <= 0 {
		return fmt.Errorf("invalid DEFAULT_SITE_AREA_HECTARES: must be a positive number")
	}
	if !finite(c.CreditPriceUSD) || c.CreditPriceUSD < 0 {
		return fmt.Errorf("invalid CREDIT_PRICE_USD: must be a non-negative number")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("invalid SYNC_INTERVAL_SECONDS: must be positive")
	}
	if c.AIScorerTimeout <= 0 {
		return fmt.Errorf("invalid AI_SCORER_TIMEOUT_SECONDS: must be positive")
	}
	if c.AICacheTTL < 0 {
		return fmt.Errorf("invalid AI_CACHE_TTL_MINUTES: must not be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid SESSION_TTL_MINUTES: must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: must not be negative")
	}
	if c.LocalSnapshotRetention < 0 {
		return fmt.Errorf("invalid LOCAL_SNAPSHOT_RETENTION: must not be negative")
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getEnvDuration reads an integer count of unit
func getEnvDuration(key string, defaultValue, unit time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * unit, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
