package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     uint16
	MongoURI string
	MongoDB  string
	NatsURL  string // empty disables event publishing
	Checkout CheckoutConfig
}

// CheckoutConfig holds the business constants of the order lifecycle.
// Reference values come from the storefront's pricing rules; all are
// overridable per deployment.
type CheckoutConfig struct {
	// ShippingFee is the flat delivery fee applied to orders below the
	// free-shipping threshold.
	ShippingFee int64

	// FreeShippingThreshold is the subtotal at or above which the shipping
	// fee is waived.
	FreeShippingThreshold int64

	// CancelReversalWindowHours bounds how long after a cancellation an
	// admin may still reverse an approved cancel request.
	CancelReversalWindowHours int
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 3000),
		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "stridewear"),
		NatsURL:  getEnv("NATS_URL", ""),
		Checkout: CheckoutConfig{
			ShippingFee:               getEnvInt64("SHIPPING_FEE", 30000),
			FreeShippingThreshold:     getEnvInt64("FREE_SHIPPING_THRESHOLD", 1000000),
			CancelReversalWindowHours: int(getEnvInt64("CANCEL_REVERSAL_WINDOW_HOURS", 24)),
		},
	}

	// Validate env
	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Checkout.ShippingFee < 0 {
		return nil, fmt.Errorf("SHIPPING_FEE must not be negative")
	}
	if cfg.Checkout.FreeShippingThreshold < 0 {
		return nil, fmt.Errorf("FREE_SHIPPING_THRESHOLD must not be negative")
	}
	if cfg.Checkout.CancelReversalWindowHours < 1 {
		return nil, fmt.Errorf("CANCEL_REVERSAL_WINDOW_HOURS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		var intValue int64
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}
