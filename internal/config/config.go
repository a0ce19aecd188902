// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Billing  BillingConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// DatabaseConfig holds PostgreSQL connection settings.
// DSN, when set through DATABASE_DSN, overrides the individual fields.
type DatabaseConfig struct {
	RawDSN   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Debug    bool
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	Seed       bool
}

// BillingConfig holds document defaults and sweep schedules.
type BillingConfig struct {
	DefaultTaxRate           decimal.Decimal
	DefaultServiceChargeRate decimal.Decimal
	QuotationValidityDays    int
	InvoiceDueDays           int
	// SweepSchedule is a cron spec for the overdue and expiry sweeps; empty disables them.
	SweepSchedule string
	// CatalogCacheTTL is how long catalog packages are cached, in seconds. 0 disables the cache.
	CatalogCacheTTL int
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.RawDSN != "" {
		return d.RawDSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// URL returns the PostgreSQL connection string in URL format.
func (d DatabaseConfig) URL() string {
	if l := strings.ToLower(d.RawDSN); strings.HasPrefix(l, "postgres://") || strings.HasPrefix(l, "postgresql://") {
		return d.RawDSN
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	dev := getEnvBool("DEV", true)
	format := "json"
	if dev {
		format = "text"
	}
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			RawDSN:   getEnv("DATABASE_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "voyage"),
			Password: getEnv("DB_PASSWORD", "voyage123"),
			DBName:   getEnv("DB_NAME", "voyage_billing"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Debug:    getEnvBool("DB_DEBUG", false),
		},
		App: AppConfig{
			Dev:        dev,
			Migrations: getEnvBool("MIGRATIONS", false),
			Seed:       getEnvBool("DB_SEED", false),
		},
		Billing: BillingConfig{
			DefaultTaxRate:           getEnvDecimal("BILLING_TAX_RATE", decimal.NewFromInt(5)),
			DefaultServiceChargeRate: getEnvDecimal("BILLING_SERVICE_CHARGE_RATE", decimal.Zero),
			QuotationValidityDays:    getEnvInt("BILLING_QUOTATION_VALIDITY_DAYS", 15),
			InvoiceDueDays:           getEnvInt("BILLING_INVOICE_DUE_DAYS", 30),
			SweepSchedule:            getEnv("BILLING_SWEEP_SCHEDULE", "@every 1h"),
			CatalogCacheTTL:          getEnvInt("BILLING_CATALOG_CACHE_TTL", 60),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", format),
		},
	}
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
