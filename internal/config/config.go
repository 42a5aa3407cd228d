package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// Supabase
	SupabaseURL            string
	SupabaseServiceRoleKey string
	SupabaseJWTSecret      string
	SupabaseStorageBucket  string

	// Database
	DatabaseURL string
	DBDriver    string
	SQLitePath  string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	OrderAmountCents    int64
	OrderCurrency       string

	// Redis (optional; rate limiting and signed URL cache are skipped without it)
	RedisAddr        string
	RedisDB          int
	UploadRateLimit  int
	UploadRateWindow time.Duration

	// Temp storage
	TempTTL           time.Duration
	TempSweepInterval time.Duration
	SignedURLTTL      time.Duration

	// Server
	Port        string
	Environment string
	LogLevel    string
}

func Load() (*Config, error) {
	cfg := &Config{
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		SupabaseJWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "head-images"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBDriver:    strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
		SQLitePath:  getEnv("SQLITE_PATH", "storefront.db"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		OrderCurrency:       strings.ToLower(getEnv("ORDER_CURRENCY", "eur")),

		RedisAddr: getEnv("REDIS_ADDR", ""),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.OrderAmountCents, err = getEnvInt64("ORDER_AMOUNT_CENTS", 3000); err != nil {
		return nil, fmt.Errorf("invalid ORDER_AMOUNT_CENTS: %w", err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.UploadRateLimit, err = getEnvInt("UPLOAD_RATE_LIMIT", 30); err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_RATE_LIMIT: %w", err)
	}
	if cfg.UploadRateWindow, err = getEnvDuration("UPLOAD_RATE_WINDOW_SEC", 60, time.Second); err != nil {
		return nil, fmt.Errorf("invalid UPLOAD_RATE_WINDOW_SEC: %w", err)
	}
	if cfg.TempTTL, err = getEnvDuration("TEMP_TTL_HOURS", 72, time.Hour); err != nil {
		return nil, fmt.Errorf("invalid TEMP_TTL_HOURS: %w", err)
	}
	if cfg.TempSweepInterval, err = getEnvDuration("TEMP_SWEEP_INTERVAL_MIN", 0, time.Minute); err != nil {
		return nil, fmt.Errorf("invalid TEMP_SWEEP_INTERVAL_MIN: %w", err)
	}
	if cfg.SignedURLTTL, err = getEnvDuration("SIGNED_URL_TTL_SEC", 3600, time.Second); err != nil {
		return nil, fmt.Errorf("invalid SIGNED_URL_TTL_SEC: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceRoleKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
	}
	if c.StripeWebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required")
	}
	switch c.DBDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if c.OrderAmountCents <= 0 {
		return fmt.Errorf("ORDER_AMOUNT_CENTS must be > 0")
	}
	if c.UploadRateLimit <= 0 {
		return fmt.Errorf("UPLOAD_RATE_LIMIT must be > 0")
	}
	if c.UploadRateWindow <= 0 {
		return fmt.Errorf("UPLOAD_RATE_WINDOW_SEC must be > 0")
	}
	if c.TempTTL <= 0 {
		return fmt.Errorf("TEMP_TTL_HOURS must be > 0")
	}
	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL_SEC must be > 0")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

// getEnvDuration reads an integer count of unit from the environment.
func getEnvDuration(key string, defaultValue int, unit time.Duration) (time.Duration, error) {
	n, err := getEnvInt(key, defaultValue)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return time.Duration(n) * unit, nil
}
