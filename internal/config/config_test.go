package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"DONETICK_BASE_URL", "DONETICK_USERNAME", "DONETICK_PASSWORD", "DONETICK_API_TOKEN",
	"DONETICK_TEST_USER_ID", "DONETICK_CACHE_TTL", "DONETICK_TIMEZONE", "DONETICK_MAX_ATTEMPTS",
	"RATE_LIMIT_PER_SECOND", "RATE_LIMIT_BURST", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chorebridge.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RateLimit.PerSecond != 10 || cfg.RateLimit.Burst != 10 {
		t.Errorf("rate limit = %+v, want 10/10", cfg.RateLimit)
	}
	if cfg.Donetick.CacheTTL.Duration != time.Minute {
		t.Errorf("CacheTTL = %v, want 1m", cfg.Donetick.CacheTTL)
	}
	if cfg.Donetick.MaxAttempts != 3 || cfg.Donetick.Timezone != "America/New_York" {
		t.Errorf("donetick = %+v", cfg.Donetick)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
[donetick]
base-url = "https://chores.example.com/"
username = "alice"
password = "from-file"
cache-ttl = "90s"
test-user-id = 4

[rate-limit]
per-second = 2.5
burst = 5

[log]
level = "debug"
`)
	t.Setenv("DONETICK_PASSWORD", "from-env")
	t.Setenv("RATE_LIMIT_BURST", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Donetick.BaseURL != "https://chores.example.com" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.Donetick.BaseURL)
	}
	if cfg.Donetick.Password != "from-env" {
		t.Errorf("Password = %q, env should win", cfg.Donetick.Password)
	}
	if cfg.Donetick.CacheTTL.Duration != 90*time.Second {
		t.Errorf("CacheTTL = %v, want 90s", cfg.Donetick.CacheTTL)
	}
	if cfg.RateLimit.PerSecond != 2.5 || cfg.RateLimit.Burst != 7 {
		t.Errorf("rate limit = %+v, want 2.5/7", cfg.RateLimit)
	}
	if cfg.Donetick.TestUserID != 4 || cfg.Log.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	cc := cfg.Client()
	if cc.BaseURL != cfg.Donetick.BaseURL || cc.RateBurst != 7 || cc.CacheTTL != 90*time.Second || cc.MaxAttempts != 3 {
		t.Errorf("Client() = %+v", cc)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for explicit missing file")
	}
	if _, err := Load(writeFile(t, "[donetick\n")); err == nil {
		t.Error("expected parse error")
	}

	t.Setenv("RATE_LIMIT_PER_SECOND", "fast")
	t.Setenv("DONETICK_MAX_ATTEMPTS", "three")
	_, err := Load(writeFile(t, ""))
	if err == nil {
		t.Fatal("expected env parse error")
	}
	for _, key := range []string{"RATE_LIMIT_PER_SECOND", "DONETICK_MAX_ATTEMPTS"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q should mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"password", func(c *Config) {}, ""},
		{"api token only", func(c *Config) { c.Donetick.Username, c.Donetick.Password, c.Donetick.APIToken = "", "", "tok" }, ""},
		{"no base url", func(c *Config) { c.Donetick.BaseURL = "" }, "base URL is required"},
		{"bad scheme", func(c *Config) { c.Donetick.BaseURL = "chores.local" }, "http://"},
		{"no credentials", func(c *Config) { c.Donetick.Password = "" }, "API token"},
		{"timezone", func(c *Config) { c.Donetick.Timezone = "Mars/Olympus" }, "unknown timezone"},
		{"attempts", func(c *Config) { c.Donetick.MaxAttempts = 0 }, "max-attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Donetick.BaseURL = "http://localhost:2021"
			cfg.Donetick.Username = "alice"
			cfg.Donetick.Password = "secret"
			cfg.Donetick.Timezone = "UTC"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := Default()
	cfg.Donetick.Timezone = "Nowhere/Special"
	if cfg.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", cfg.Location())
	}
}
