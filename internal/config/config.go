// Package config loads server configuration from the environment.
//
// Sources, in order: a .env file in the working directory (if present, loaded
// via godotenv), then real environment variables parsed into struct tags with
// caarlos0/env. Defaults live on the struct tags so the zero configuration
// ("just run it") works for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"data/snippethub.db"`

	// JWTSecret signs bearer tokens. Must be at least 16 characters; generate
	// with: openssl rand -hex 32
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// GitHub OAuth app credentials. When either is empty the OAuth routes are
	// not registered and email/password auth is the only way in.
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`
}

// Load reads the .env file (optional) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}

// GitHubEnabled reports whether the OAuth login flow can be wired up.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}
