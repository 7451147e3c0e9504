// Package config loads service configuration from the environment.
// A .env file in the working directory is honored when present.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service
type Config struct {
	Port      int    `env:"AGORA_PORT" envDefault:"8080"`
	DBPath    string `env:"AGORA_DB" envDefault:"agora.db"`
	JWTSecret string `env:"AGORA_JWT_SECRET"`
	LedgerURL string `env:"AGORA_LEDGER_URL"`
	// BaseURL is the public address used in invite links. When empty the
	// server derives one from the detected LAN address at startup.
	BaseURL  string `env:"AGORA_BASE_URL"`
	LogLevel string `env:"AGORA_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from a .env file (if any) and the environment
func Load() (*Config, error) {
	// Missing .env is fine; the environment alone may be complete.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return &cfg, nil
}
