package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"HTTP_ADDR", "DATABASE_URL", "REDIS_URL", "CART_TTL", "KAFKA_BROKERS", "BROKER_DRIVER",
	"ORDER_STATUS_TOPIC", "TOTAL_POLICY", "TOTAL_TOLERANCE", "EXPIRY_SWEEP_INTERVAL",
	"PUBLISH_MAX_TRIES", "PUBLISH_BUFFER", "SEED_PRODUCTS", "LOG_LEVEL",
}

// unsetAll blanks the variables Load reads. Blank counts as unset.
func unsetAll(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetAll(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, DriverKafkaGo, cfg.BrokerDriver)
	assert.Equal(t, "orders.status", cfg.OrderStatusTopic)
	assert.Equal(t, 72*time.Hour, cfg.CartTTL)
	assert.Equal(t, time.Minute, cfg.ExpirySweepInterval)
	assert.Equal(t, "0.01", cfg.TotalTolerance.String())
	assert.Equal(t, uint(5), cfg.PublishMaxTries)
	assert.Equal(t, 256, cfg.PublishBuffer)
	assert.True(t, cfg.SeedProducts)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	unsetAll(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("BROKER_DRIVER", "Watermill")
	t.Setenv("EXPIRY_SWEEP_INTERVAL", "0")
	t.Setenv("SEED_PRODUCTS", "false")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TOTAL_POLICY", "tolerance")
	t.Setenv("TOTAL_TOLERANCE", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, DriverWatermill, cfg.BrokerDriver)
	assert.Zero(t, cfg.ExpirySweepInterval)
	assert.False(t, cfg.SeedProducts)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "tolerance", cfg.TotalPolicy)
	assert.Equal(t, "0.5", cfg.TotalTolerance.String())
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	tests := map[string]string{
		"CART_TTL":              "three days",
		"EXPIRY_SWEEP_INTERVAL": "-1m",
		"TOTAL_TOLERANCE":       "lots",
		"PUBLISH_MAX_TRIES":     "0",
		"PUBLISH_BUFFER":        "-3",
		"SEED_PRODUCTS":         "maybe",
		"LOG_LEVEL":             "chatty",
		"BROKER_DRIVER":         "nats",
		"TOTAL_POLICY":          "generous",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			unsetAll(t)
			t.Setenv(key, val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}
