package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"tradeplanner/internal/adapters/logger"
)

// Config holds all application configuration.
type Config struct {
	// Portfolio
	PortfolioValue float64 // Total account value the risk budget is taken from
	RiskPercent    float64 // Risk per trade in percent (1.0 = 1% rule)

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	cfg.PortfolioValue, err = getEnvAsFloatRequired("PORTFOLIO_VALUE", 50000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PORTFOLIO_VALUE: %v", err))
	} else if cfg.PortfolioValue <= 0 {
		errs = append(errs, "PORTFOLIO_VALUE must be positive")
	}

	cfg.RiskPercent, err = getEnvAsFloatRequired("RISK_PERCENT", 1.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_PERCENT: %v", err))
	} else if cfg.RiskPercent <= 0 || cfg.RiskPercent > 100 {
		errs = append(errs, "RISK_PERCENT must be between 0 and 100 (exclusive of 0)")
	}

	cfg.DBPath = getEnv("DB_PATH", "./data/tradeplanner.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
