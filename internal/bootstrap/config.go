// Package bootstrap wires configuration, infrastructure, and services
// together for the application entrypoint.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/authbridge/relying-party/config"
)

// InitLogger initializes the structured logger.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateProviderConfig checks that the selected provider mode has the
// settings it needs. The dev provider needs none.
func ValidateProviderConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	switch cfg.Provider.Mode {
	case config.ProviderModeDev:
		return nil
	case config.ProviderModeIdentityX:
		if cfg.Provider.BaseURL == "" {
			return errors.New("FIDO_BASE_URL is required for the identityx provider")
		}
		if cfg.Provider.ApplicationID == "" {
			return errors.New("FIDO_APPLICATION_ID is required for the identityx provider")
		}
		return nil
	default:
		return fmt.Errorf("unknown provider mode %q", cfg.Provider.Mode)
	}
}
