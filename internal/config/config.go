package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
// Sale parameters (mechanic, phases, vesting, ...) live in a separate JSON file
// pointed to by SaleFile and are loaded by the sale package.
type Config struct {
	SaleFile string `envconfig:"SALECORE_SALE_FILE" default:"./sale.json"`
	DBPath   string `envconfig:"SALECORE_DB_PATH" default:"./data/salecore.sqlite"`
	Port     int    `envconfig:"SALECORE_PORT" default:"8080"`
	LogLevel string `envconfig:"SALECORE_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"SALECORE_LOG_DIR" default:"./logs"`

	// Custody service that actually moves tokens. Multiple URLs are tried in
	// order on retriable failures.
	CustodyURLs    []string      `envconfig:"SALECORE_CUSTODY_URLS"`
	CustodyHolder  string        `envconfig:"SALECORE_CUSTODY_HOLDER" default:"sale-proceeds"`
	CustodyTimeout time.Duration `envconfig:"SALECORE_CUSTODY_TIMEOUT" default:"30s"`
	CustodyRPS     float64       `envconfig:"SALECORE_CUSTODY_RPS" default:"5"`

	// Payout network determines how destination addresses are validated:
	// "evm" (0x-prefixed hex) or "base58".
	PayoutNetwork string `envconfig:"SALECORE_PAYOUT_NETWORK" default:"evm"`

	AdminToken string `envconfig:"SALECORE_ADMIN_TOKEN"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars, so real environment
	// variables take precedence over .env values.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.PayoutNetwork != "evm" && c.PayoutNetwork != "base58" {
		return fmt.Errorf("%w: payout network must be \"evm\" or \"base58\", got %q", ErrInvalidConfig, c.PayoutNetwork)
	}
	if c.CustodyRPS <= 0 {
		return fmt.Errorf("%w: custody RPS must be positive, got %f", ErrInvalidConfig, c.CustodyRPS)
	}
	return nil
}
