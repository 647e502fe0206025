// Package config loads process configuration from environment variables
// (with an optional .env file), adapted from pkg/config/config.go: same
// viper.New() + AutomaticEnv() + SetEnvKeyReplacer shape, same
// setDefaults/bindConfig/Validate split, generalized to the knobs spec.md §6
// enumerates instead of the teacher's multi-service database fleet.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all process configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OTel      OTelConfig
	Outbox    OutboxConfig
	Retry     RetryConfig
	Breaker   BreakerConfig
	Provider  ProviderConfig
	Code      CodeConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	ForceHTTPS   bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig holds Redis connection settings, backing the distributed rate
// limiter (SPEC_FULL.md §12).
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns the Redis address.
func (r *RedisConfig) Addr() string { return fmt.Sprintf("%s:%d", r.Host, r.Port) }

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled       bool
	ServiceName   string
	CollectorAddr string
}

// OutboxConfig controls the outbox worker (C8; spec.md §4.9, §6).
type OutboxConfig struct {
	BatchSize        int
	PollInterval     time.Duration
}

// RetryConfig controls C5 (spec.md §4.8, §6 retry.*).
type RetryConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
}

// BreakerConfig controls C4 (spec.md §4.7, §6 breaker.*).
type BreakerConfig struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

// ProviderConfig controls C6's outbound calls (spec.md §6 provider.*).
type ProviderConfig struct {
	TimeoutSeconds time.Duration
	StripeAPIKey   string
	BookingBaseURL string
}

// CodeConfig controls C3 (spec.md §6 code.*).
type CodeConfig struct {
	MaxRetries int
}

// RateLimitConfig controls the reservations-route limiter (SPEC_FULL.md §12).
type RateLimitConfig struct {
	DefaultPerMinute      int
	ReservationsPerMinute int
}

// Load loads configuration from environment variables and a best-effort
// .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // .env is optional; env vars still apply

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "reservas-api")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_VERSION", "1.0.0")

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	v.SetDefault("SERVER_FORCE_HTTPS", false)

	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "postgres")
	v.SetDefault("DATABASE_PASSWORD", "postgres")
	v.SetDefault("DATABASE_DBNAME", "reservas")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_CONNS", 20)
	v.SetDefault("DATABASE_MIN_CONNS", 2)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DATABASE_CONN_MAX_IDLE_TIME", "30m")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "reservas-api")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")

	v.SetDefault("OUTBOX_BATCH_SIZE", 20)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "5s")

	v.SetDefault("RETRY_MAX_RETRIES", 3)
	v.SetDefault("RETRY_BASE_DELAY", "200ms")
	v.SetDefault("RETRY_BACKOFF_FACTOR", 2.0)
	v.SetDefault("RETRY_MAX_DELAY", "5s")

	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)
	v.SetDefault("BREAKER_RECOVERY_SECONDS", "30s")

	v.SetDefault("PROVIDER_TIMEOUT_SECONDS", "10s")
	v.SetDefault("PROVIDER_STRIPE_API_KEY", "")
	v.SetDefault("PROVIDER_BOOKING_BASE_URL", "http://localhost:9090")

	v.SetDefault("CODE_MAX_RETRIES", 1000)

	v.SetDefault("RATE_LIMIT_DEFAULT_PER_MINUTE", 120)
	v.SetDefault("RATE_LIMIT_RESERVATIONS_PER_MINUTE", 30)
}

func bindConfig(v *viper.Viper, cfg *Config) {
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Version = v.GetString("APP_VERSION")

	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")
	cfg.Server.ForceHTTPS = v.GetBool("SERVER_FORCE_HTTPS")

	cfg.Database.Host = v.GetString("DATABASE_HOST")
	cfg.Database.Port = v.GetInt("DATABASE_PORT")
	cfg.Database.User = v.GetString("DATABASE_USER")
	cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	cfg.Database.DBName = v.GetString("DATABASE_DBNAME")
	cfg.Database.SSLMode = v.GetString("DATABASE_SSLMODE")
	cfg.Database.MaxConns = int32(v.GetInt("DATABASE_MAX_CONNS"))
	cfg.Database.MinConns = int32(v.GetInt("DATABASE_MIN_CONNS"))
	cfg.Database.ConnMaxLifetime = v.GetDuration("DATABASE_CONN_MAX_LIFETIME")
	cfg.Database.ConnMaxIdleTime = v.GetDuration("DATABASE_CONN_MAX_IDLE_TIME")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.DialTimeout = v.GetDuration("REDIS_DIAL_TIMEOUT")
	cfg.Redis.ReadTimeout = v.GetDuration("REDIS_READ_TIMEOUT")
	cfg.Redis.WriteTimeout = v.GetDuration("REDIS_WRITE_TIMEOUT")

	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")

	cfg.Outbox.BatchSize = v.GetInt("OUTBOX_BATCH_SIZE")
	cfg.Outbox.PollInterval = v.GetDuration("OUTBOX_POLL_INTERVAL")

	cfg.Retry.MaxRetries = v.GetInt("RETRY_MAX_RETRIES")
	cfg.Retry.BaseDelay = v.GetDuration("RETRY_BASE_DELAY")
	cfg.Retry.BackoffFactor = v.GetFloat64("RETRY_BACKOFF_FACTOR")
	cfg.Retry.MaxDelay = v.GetDuration("RETRY_MAX_DELAY")

	cfg.Breaker.FailureThreshold = v.GetInt("BREAKER_FAILURE_THRESHOLD")
	cfg.Breaker.RecoveryTimeout = v.GetDuration("BREAKER_RECOVERY_SECONDS")

	cfg.Provider.TimeoutSeconds = v.GetDuration("PROVIDER_TIMEOUT_SECONDS")
	cfg.Provider.StripeAPIKey = v.GetString("PROVIDER_STRIPE_API_KEY")
	cfg.Provider.BookingBaseURL = v.GetString("PROVIDER_BOOKING_BASE_URL")

	cfg.Code.MaxRetries = v.GetInt("CODE_MAX_RETRIES")

	cfg.RateLimit.DefaultPerMinute = v.GetInt("RATE_LIMIT_DEFAULT_PER_MINUTE")
	cfg.RateLimit.ReservationsPerMinute = v.GetInt("RATE_LIMIT_RESERVATIONS_PER_MINUTE")
}

// Validate checks the minimal invariants needed to boot.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be greater than zero")
	}
	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("outbox poll interval must be greater than zero")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker failure threshold must be greater than zero")
	}
	if c.RateLimit.DefaultPerMinute <= 0 || c.RateLimit.ReservationsPerMinute <= 0 {
		return fmt.Errorf("rate limit values must be greater than zero")
	}
	return nil
}

// IsProduction reports whether the process is running in production.
func (c *Config) IsProduction() bool { return c.App.Environment == "production" }

// IsDevelopment reports whether the process is running in development.
func (c *Config) IsDevelopment() bool { return c.App.Environment == "development" }
