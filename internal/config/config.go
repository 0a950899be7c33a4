package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port int
	Env  string

	// Database
	DatabaseURL string

	// Object store
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3UseSSL      bool
	PublicBaseURL string

	// Rule cache (optional)
	RedisURL     string
	RuleCacheTTL time.Duration

	// Worker loop
	BatchSize    int
	PollInterval time.Duration
	MaxAttempts  int
	LeaseTTL     time.Duration

	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "production"),

		S3UseSSL:     getEnvBool("S3_USE_SSL", true),
		RedisURL:     getEnv("REDIS_URL", ""),
		RuleCacheTTL: getEnvDuration("RULE_CACHE_TTL", 30*time.Second),

		BatchSize:    getEnvInt("BATCH_SIZE", 50),
		PollInterval: getEnvDuration("POLL_INTERVAL", 1*time.Second),
		MaxAttempts:  getEnvInt("MAX_ATTEMPTS", 10),
		LeaseTTL:     getEnvDuration("LEASE_TTL", 10*time.Minute),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	// Critical configuration - fail if missing
	var err error
	if cfg.DatabaseURL, err = getEnvRequired("DATABASE_URL"); err != nil {
		return nil, err
	}
	if cfg.S3Endpoint, err = getEnvRequired("S3_ENDPOINT"); err != nil {
		return nil, err
	}
	if cfg.S3AccessKey, err = getEnvRequired("S3_ACCESS_KEY"); err != nil {
		return nil, err
	}
	if cfg.S3SecretKey, err = getEnvRequired("S3_SECRET_KEY"); err != nil {
		return nil, err
	}
	if cfg.S3Bucket, err = getEnvRequired("S3_BUCKET"); err != nil {
		return nil, err
	}
	if cfg.PublicBaseURL, err = getEnvRequired("PUBLIC_BASE_URL"); err != nil {
		return nil, err
	}

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive, got %d", cfg.BatchSize)
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be positive, got %d", cfg.MaxAttempts)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
