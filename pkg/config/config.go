package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/joho/godotenv"
	"github.com/mcclellann/pawnledger/pkg/models"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port string
	Env  string

	// Storage
	DBPath string

	// Location whose calendar decides what "today" is.
	Location *time.Location

	// Loan defaults offered when a field is left empty at creation.
	Defaults LoanDefaults

	Valuation ValuationConfig
}

// LoanDefaults are the terms a new loan starts from.
type LoanDefaults struct {
	InterestRate decimal.Decimal
	RateBasis    models.RateBasis
	DurationDays int
}

// ValuationConfig configures the optional device price estimator.
type ValuationConfig struct {
	APIKey         string // empty disables valuation
	Model          string
	Endpoint       string // base URL override, empty for the SDK default
	RatePerMinute  int
	RequestTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Asia/Ho_Chi_Minh"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	rate, err := decimal.NewFromString(getEnv("DEFAULT_INTEREST_RATE", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_INTEREST_RATE: %w", err)
	}
	duration, err := strconv.Atoi(getEnv("DEFAULT_DURATION_DAYS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_DURATION_DAYS: %w", err)
	}
	perMinute, err := strconv.Atoi(getEnv("VALUATION_RATE_PER_MINUTE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALUATION_RATE_PER_MINUTE: %w", err)
	}
	timeout, err := time.ParseDuration(getEnv("VALUATION_TIMEOUT", "20s"))
	if err != nil {
		return nil, fmt.Errorf("invalid VALUATION_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		DBPath:   getEnv("DB_PATH", "pawnledger.db"),
		Location: loc,
		Defaults: LoanDefaults{
			InterestRate: rate,
			RateBasis:    models.RateBasis(getEnv("DEFAULT_RATE_BASIS", string(models.RateBasisPerDay))),
			DurationDays: duration,
		},
		Valuation: ValuationConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Endpoint:       getEnv("GEMINI_ENDPOINT", ""),
			RatePerMinute:  perMinute,
			RequestTimeout: timeout,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Defaults.RateBasis != models.RateBasisPerDay && c.Defaults.RateBasis != models.RateBasisPerMonth {
		return fmt.Errorf("DEFAULT_RATE_BASIS must be %q or %q", models.RateBasisPerDay, models.RateBasisPerMonth)
	}
	if c.Defaults.InterestRate.IsNegative() {
		return fmt.Errorf("DEFAULT_INTEREST_RATE must not be negative")
	}
	if c.Defaults.DurationDays < 0 {
		return fmt.Errorf("DEFAULT_DURATION_DAYS must not be negative")
	}
	if c.Valuation.RatePerMinute < 1 {
		return fmt.Errorf("VALUATION_RATE_PER_MINUTE must be at least 1")
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
