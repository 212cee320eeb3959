package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "keyprice")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_KEY", "admin-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "eur", cfg.Pricing.DefaultCurrency)
	assert.Equal(t, "pc", cfg.Pricing.DefaultPlatform)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 15*time.Second, cfg.Allkeyshop.Timeout)
	assert.Equal(t, "https://www.allkeyshop.com", cfg.Allkeyshop.BaseURL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "price-searches", cfg.Kafka.Topic)
}

func TestLoad_CustomValues(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "3000")
	t.Setenv("CACHE_BACKEND", "Pebble")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("ALLKEYSHOP_BASE_URL", "http://catalog.local/")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "pebble", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "http://catalog.local", cfg.Allkeyshop.BaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 3, cfg.Redis.DB)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"missing jwt secret", "JWT_SECRET", ""},
		{"missing admin key", "ADMIN_KEY", ""},
		{"missing db host", "DB_HOST", ""},
		{"bad cache backend", "CACHE_BACKEND", "memcached"},
		{"bad ttl", "CACHE_TTL", "soon"},
		{"negative timeout", "ALLKEYSHOP_TIMEOUT", "-1s"},
		{"zero sweep interval", "CACHE_SWEEP_INTERVAL", "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
