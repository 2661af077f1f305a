// Package config handles application configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. The same struct is shared by
// the API, the worker, and the dispatcher; each process reads the fields it
// needs.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database (Postgres). DATABASE_URL wins over the individual fields.
	DatabaseURL      string
	DatabaseHost     string
	DatabasePort     int
	DatabaseName     string
	DatabaseUser     string
	DatabasePassword string

	// Message broker (RabbitMQ)
	BrokerHost     string
	BrokerPort     int
	BrokerUser     string
	BrokerPassword string

	// Optional Redis cache for completed job status lookups.
	// Empty RedisHost disables the cache.
	RedisHost string
	RedisPort int
	RedisDB   int

	// Security
	APISecretKey string
	JWTSecretKey string
	JWTExpiry    time.Duration

	// Rate limits (requests per minute per client)
	SubmitRateLimit int
	StatusRateLimit int

	// CORS
	CORSOrigins []string
	CORSMethods []string
	CORSHeaders []string
	CORSMaxAge  int

	// Worker
	WorkerConcurrency   int
	BatchSize           int
	BatchTimeout        time.Duration
	ConfidenceThreshold float64

	// Webhook delivery
	WebhookTimeout    time.Duration
	WebhookMaxRetries int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnvInt("PORT", 8080),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		DatabaseHost:     getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:     getEnvInt("DATABASE_PORT", 5432),
		DatabaseName:     getEnv("DATABASE_NAME", "moderation"),
		DatabaseUser:     getEnv("DATABASE_USER", "moderation"),
		DatabasePassword: getEnv("DATABASE_PASSWORD", ""),

		BrokerHost:     getEnv("RABBITMQ_HOST", "localhost"),
		BrokerPort:     getEnvInt("RABBITMQ_PORT", 5672),
		BrokerUser:     getEnv("RABBITMQ_USER", "guest"),
		BrokerPassword: getEnv("RABBITMQ_PASSWORD", "guest"),

		RedisHost: getEnv("REDIS_HOST", ""),
		RedisPort: getEnvInt("REDIS_PORT", 6379),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		APISecretKey: getEnv("API_SECRET_KEY", ""),
		JWTSecretKey: getEnv("JWT_SECRET_KEY", ""),
		JWTExpiry:    getEnvDuration("JWT_EXPIRY", 24*time.Hour),

		SubmitRateLimit: getEnvInt("SUBMIT_RATE_LIMIT", 100),
		StatusRateLimit: getEnvInt("STATUS_RATE_LIMIT", 10000),

		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		CORSMethods: getEnvSlice("CORS_ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		CORSHeaders: getEnvSlice("CORS_ALLOW_HEADERS", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Hub-Signature-256"}),
		CORSMaxAge:  getEnvInt("CORS_MAX_AGE", 300),

		WorkerConcurrency:   getEnvInt("WORKER_CONCURRENCY", 4),
		BatchSize:           getEnvInt("BATCH_SIZE", 32),
		BatchTimeout:        getEnvDuration("BATCH_TIMEOUT", 200*time.Millisecond),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.7),

		WebhookTimeout:    getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
		WebhookMaxRetries: getEnvInt("WEBHOOK_MAX_RETRIES", 3),
	}

	if cfg.JWTSecretKey == "" {
		cfg.JWTSecretKey = cfg.APISecretKey
	}
	if cfg.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}
	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("BATCH_SIZE must be at least 1")
	}
	if cfg.WebhookMaxRetries < 1 {
		return nil, fmt.Errorf("WEBHOOK_MAX_RETRIES must be at least 1")
	}

	return cfg, nil
}

// DatabaseDSN returns the Postgres connection string.
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.DatabaseUser), url.QueryEscape(c.DatabasePassword),
		c.DatabaseHost, c.DatabasePort, c.DatabaseName)
}

// BrokerURL returns the AMQP connection string.
func (c *Config) BrokerURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		url.QueryEscape(c.BrokerUser), url.QueryEscape(c.BrokerPassword),
		c.BrokerHost, c.BrokerPort)
}

// RedisAddr returns the Redis address, or "" if the cache is disabled.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// CacheEnabled reports whether the optional status cache is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Bare integers are treated as seconds (WEBHOOK_TIMEOUT=10).
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
