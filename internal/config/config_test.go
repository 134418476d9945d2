package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// t.Setenv snapshots the variable for restoration after the test;
	// the Unsetenv that follows makes it genuinely absent, so the struct
	// tag defaults apply even when the developer's shell sets these.
	for _, key := range []string{
		"PORT", "DB_PATH", "JWT_SECRET",
		"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET", "GITHUB_CALLBACK_URL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DBPath != "data/snippethub.db" {
		t.Errorf("DBPath = %q, want data/snippethub.db", cfg.DBPath)
	}
	if cfg.GitHubEnabled() {
		t.Error("GitHubEnabled() = true without credentials")
	}
	if cfg.GitHubCallbackURL != "http://localhost:8080/auth/github/callback" {
		t.Errorf("GitHubCallbackURL = %q", cfg.GitHubCallbackURL)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9191")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")
	t.Setenv("GITHUB_CALLBACK_URL", "https://example.com/cb")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want /tmp/test.db", cfg.DBPath)
	}
	if !cfg.GitHubEnabled() {
		t.Error("GitHubEnabled() = false with credentials set")
	}
	if cfg.GitHubCallbackURL != "https://example.com/cb" {
		t.Errorf("GitHubCallbackURL = %q", cfg.GitHubCallbackURL)
	}
}
