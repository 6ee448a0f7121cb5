package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr               string        `yaml:"addr"`
	Environment        string        `yaml:"env"`
	DatabaseURL        string        `yaml:"databaseUrl"`
	DataFile           string        `yaml:"dataFile"`
	JWTSecret          string        `yaml:"jwtSecret"`
	AdminPassword      string        `yaml:"adminPassword"`
	AdminPasswordHash  string        `yaml:"adminPasswordHash"`
	AdminTOTPSecret    string        `yaml:"adminTotpSecret"`
	SessionTTL         time.Duration `yaml:"sessionTtl"`
	RunMigrations      bool          `yaml:"runMigrations"`
	MigrationsDir      string        `yaml:"migrationsDir"`
	RunSeed            bool          `yaml:"runSeed"`
	MaxBodyBytes       int64         `yaml:"maxBodyBytes"`
	RateLimitPerMinute int           `yaml:"rateLimitPerMinute"`
	FeedLimit          int           `yaml:"feedLimit"`
	CurrencySymbol     string        `yaml:"currencySymbol"`
	CurrencyCode       string        `yaml:"currencyCode"`
	FrontendDir        string        `yaml:"frontendDir"`
	MetricsEnabled     bool          `yaml:"metricsEnabled"`
	IdempotencyTTL     time.Duration `yaml:"idempotencyTtl"`
	AuditRetentionDays int           `yaml:"auditRetentionDays"`
	MaintenanceEvery   time.Duration `yaml:"maintenanceInterval"`
	Log                LogConfig     `yaml:"log"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

func Defaults() Config {
	return Config{
		Addr:               ":8080",
		Environment:        "development",
		SessionTTL:         7 * 24 * time.Hour,
		RunMigrations:      true,
		MigrationsDir:      "migrations",
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 60,
		FeedLimit:          5,
		CurrencySymbol:     "₹",
		CurrencyCode:       "INR",
		FrontendDir:        "frontend/dist",
		MetricsEnabled:     true,
		IdempotencyTTL:     24 * time.Hour,
		AuditRetentionDays: 365,
		MaintenanceEvery:   time.Hour,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// Load starts from the defaults, applies the YAML file named by CONFIG_FILE
// when set, then lets environment variables override individual keys.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Addr = getEnv("APP_ADDR", cfg.Addr)
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.DataFile = getEnv("DATA_FILE", cfg.DataFile)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", cfg.AdminPasswordHash)
	cfg.AdminTOTPSecret = getEnv("ADMIN_TOTP_SECRET", cfg.AdminTOTPSecret)
	cfg.SessionTTL = getEnvDuration("SESSION_TTL", cfg.SessionTTL)
	cfg.RunMigrations = getEnvBool("RUN_MIGRATIONS", cfg.RunMigrations)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.RunSeed = getEnvBool("RUN_SEED", cfg.RunSeed)
	cfg.MaxBodyBytes = int64(getEnvInt("MAX_BODY_BYTES", int(cfg.MaxBodyBytes)))
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.FeedLimit = getEnvInt("FEED_LIMIT", cfg.FeedLimit)
	cfg.CurrencySymbol = getEnv("CURRENCY_SYMBOL", cfg.CurrencySymbol)
	cfg.CurrencyCode = getEnv("CURRENCY_CODE", cfg.CurrencyCode)
	cfg.FrontendDir = getEnv("FRONTEND_DIR", cfg.FrontendDir)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.IdempotencyTTL = getEnvDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	cfg.AuditRetentionDays = getEnvInt("AUDIT_RETENTION_DAYS", cfg.AuditRetentionDays)
	cfg.MaintenanceEvery = getEnvDuration("MAINTENANCE_INTERVAL", cfg.MaintenanceEvery)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)
	cfg.Log.MaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", cfg.Log.MaxAgeDays)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesFileStore reports whether entities live in the JSON data file rather
// than Postgres.
func (c Config) UsesFileStore() bool {
	return strings.TrimSpace(c.DatabaseURL) == "" && strings.TrimSpace(c.DataFile) != ""
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" && strings.TrimSpace(c.DataFile) == "" {
		return fmt.Errorf("DATABASE_URL or DATA_FILE is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.AdminPassword) == "" && strings.TrimSpace(c.AdminPasswordHash) == "" {
			return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH must be set in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.FeedLimit <= 0 {
		return fmt.Errorf("FEED_LIMIT must be positive")
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}
	if c.AuditRetentionDays < 0 || c.MaintenanceEvery < 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS and MAINTENANCE_INTERVAL must not be negative")
	}
	return nil
}
