package config

import (
	"os"
	"strconv"
	"time"

	"github.com/boddenberg/creditline/internal/domain"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port            int
	LogLevel        string
	ShutdownTimeout time.Duration

	// Account
	CreditLimit string
	APR         string
	OpeningDate string // required by serve; the process never guesses "today"

	// Resilience
	MaxConcurrency int

	// Observability
	OTLPEndpoint string

	// Auth
	JWTSecret string // empty disables the bearer guard
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:            getEnvInt("PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		CreditLimit: getEnv("CREDIT_LIMIT", "1000"),
		APR:         getEnv("APR", "35"),
		OpeningDate: getEnv("OPENING_DATE", ""),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
	}
}

// AccountTerms parses the credit limit and APR.
func (c *Config) AccountTerms() (limit, apr decimal.Decimal, err error) {
	limit, err = decimal.NewFromString(c.CreditLimit)
	if err != nil || !limit.IsPositive() {
		return decimal.Zero, decimal.Zero, &domain.ErrValidation{Field: "CREDIT_LIMIT", Message: "must be a positive amount"}
	}
	apr, err = decimal.NewFromString(c.APR)
	if err != nil || apr.IsNegative() {
		return decimal.Zero, decimal.Zero, &domain.ErrValidation{Field: "APR", Message: "must be a non-negative percentage"}
	}
	return limit, apr, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
