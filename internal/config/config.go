package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DriverKafkaGo   = "kafka-go"
	DriverWatermill = "watermill"
)

// Config holds the process settings read from the environment.
type Config struct {
	HTTPAddr    string
	DatabaseURL string
	RedisURL    string
	CartTTL     time.Duration

	KafkaBrokers     []string
	BrokerDriver     string
	OrderStatusTopic string

	TotalPolicy    string
	TotalTolerance decimal.Decimal

	ExpirySweepInterval time.Duration
	PublishMaxTries     uint
	PublishBuffer       int
	SeedProducts        bool
	LogLevel            slog.Level
}

// Load reads the configuration. Unset variables take their defaults; a set
// but malformed one is an error naming the variable.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		BrokerDriver:     strings.ToLower(getEnv("BROKER_DRIVER", DriverKafkaGo)),
		OrderStatusTopic: getEnv("ORDER_STATUS_TOPIC", "orders.status"),
		TotalPolicy:      getEnv("TOTAL_POLICY", "server"),
	}

	for _, b := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}
	if cfg.BrokerDriver != DriverKafkaGo && cfg.BrokerDriver != DriverWatermill {
		return nil, fmt.Errorf("BROKER_DRIVER: unknown driver %q", cfg.BrokerDriver)
	}

	cfg.TotalPolicy = strings.ToLower(cfg.TotalPolicy)
	switch cfg.TotalPolicy {
	case "server", "tolerance", "client":
	default:
		return nil, fmt.Errorf("TOTAL_POLICY: unknown policy %q", cfg.TotalPolicy)
	}

	var err error
	if cfg.CartTTL, err = durationEnv("CART_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ExpirySweepInterval, err = durationEnv("EXPIRY_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.TotalTolerance, err = decimal.NewFromString(getEnv("TOTAL_TOLERANCE", "0.01")); err != nil {
		return nil, fmt.Errorf("TOTAL_TOLERANCE: %w", err)
	}
	if cfg.TotalTolerance.IsNegative() {
		return nil, fmt.Errorf("TOTAL_TOLERANCE: must not be negative")
	}

	tries, err := strconv.ParseUint(getEnv("PUBLISH_MAX_TRIES", "5"), 10, 32)
	if err != nil || tries == 0 {
		return nil, fmt.Errorf("PUBLISH_MAX_TRIES: want a positive integer, got %q", os.Getenv("PUBLISH_MAX_TRIES"))
	}
	cfg.PublishMaxTries = uint(tries)

	if cfg.PublishBuffer, err = strconv.Atoi(getEnv("PUBLISH_BUFFER", "256")); err != nil || cfg.PublishBuffer < 1 {
		return nil, fmt.Errorf("PUBLISH_BUFFER: want a positive integer, got %q", os.Getenv("PUBLISH_BUFFER"))
	}
	if cfg.SeedProducts, err = strconv.ParseBool(getEnv("SEED_PRODUCTS", "true")); err != nil {
		return nil, fmt.Errorf("SEED_PRODUCTS: %w", err)
	}
	if err = cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}
