package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	Admin      AdminConfig
	Pricing    PricingConfig
	DB         DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Allkeyshop AllkeyshopConfig
	Kafka      KafkaConfig
	Worker     WorkerConfig
}

// AdminConfig holds the static admin credentials. A request carrying both
// ADMIN_KEY and ADMIN_CLIENT_ID bypasses API key checks. When Email and
// Password are set, that admin user is created at startup if missing.
type AdminConfig struct {
	Key      string
	ClientID string
	Email    string
	Password string
	Name     string
}

// PricingConfig holds defaults applied to price requests.
type PricingConfig struct {
	DefaultCurrency   string
	DefaultPlatform   string
	FilterOptionsPath string
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig selects the price cache backend.
type CacheConfig struct {
	Backend   string // "redis" or "pebble"
	TTL       time.Duration
	PebbleDir string
}

// AllkeyshopConfig contains the catalog endpoint.
type AllkeyshopConfig struct {
	BaseURL string
	Timeout time.Duration
}

// KafkaConfig enables search event publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	APIKeyCleanupInterval time.Duration
	CacheSweepInterval    time.Duration
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first.
func Load() (*Config, error) {
	// Missing .env is fine: production relies on real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")

	cfg.Admin = AdminConfig{
		Key:      getEnv("ADMIN_KEY", ""),
		ClientID: getEnv("ADMIN_CLIENT_ID", ""),
		Email:    getEnv("ADMIN_EMAIL", ""),
		Password: getEnv("ADMIN_PASSWORD", ""),
		Name:     getEnv("ADMIN_NAME", "Admin"),
	}

	cfg.Pricing = PricingConfig{
		DefaultCurrency:   getEnv("DEFAULT_CURRENCY", "eur"),
		DefaultPlatform:   getEnv("DEFAULT_PLATFORM", "pc"),
		FilterOptionsPath: getEnv("FILTER_OPTIONS_PATH", ""),
	}

	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	cfg.Allkeyshop = AllkeyshopConfig{
		BaseURL: strings.TrimSuffix(getEnv("ALLKEYSHOP_BASE_URL", "https://www.allkeyshop.com"), "/"),
	}

	cfg.Kafka = KafkaConfig{
		Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
		Topic:   getEnv("KAFKA_TOPIC", "price-searches"),
	}

	cfg.Cache = CacheConfig{
		Backend:   strings.ToLower(getEnv("CACHE_BACKEND", "redis")),
		PebbleDir: getEnv("PEBBLE_DIR", "data/cache"),
	}

	var err error
	if cfg.Cache.TTL, err = parseDurationEnv("CACHE_TTL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	if cfg.Allkeyshop.Timeout, err = parseDurationEnv("ALLKEYSHOP_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid ALLKEYSHOP_TIMEOUT: %w", err)
	}
	if cfg.Worker.APIKeyCleanupInterval, err = parseDurationEnv("APIKEY_CLEANUP_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid APIKEY_CLEANUP_INTERVAL: %w", err)
	}
	if cfg.Worker.CacheSweepInterval, err = parseDurationEnv("CACHE_SWEEP_INTERVAL", "10m"); err != nil {
		return nil, fmt.Errorf("invalid CACHE_SWEEP_INTERVAL: %w", err)
	}

	if cfg.Worker.APIKeyCleanupInterval == 0 || cfg.Worker.CacheSweepInterval == 0 {
		return nil, errors.New("worker intervals must be greater than zero")
	}

	if cfg.Cache.Backend != "redis" && cfg.Cache.Backend != "pebble" {
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q: must be redis or pebble", cfg.Cache.Backend)
	}

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	if cfg.Admin.Key == "" {
		return nil, errors.New("ADMIN_KEY must be set to issue API keys")
	}

	return cfg, nil
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
