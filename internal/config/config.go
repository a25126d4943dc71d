// Package config loads chorebridge.toml and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dukerupert/chorebridge/internal/donetick"
)

// DefaultPath is read when no --config flag is given. A missing file is not
// an error.
const DefaultPath = "chorebridge.toml"

// Duration decodes TOML strings such as "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config represents the chorebridge.toml configuration file.
type Config struct {
	Donetick  Donetick  `toml:"donetick"`
	RateLimit RateLimit `toml:"rate-limit"`
	Log       Log       `toml:"log"`
}

type Donetick struct {
	BaseURL  string `toml:"base-url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	APIToken string `toml:"api-token"`
	// TestUserID is the user the check command completes and assigns as.
	TestUserID  int      `toml:"test-user-id"`
	Timezone    string   `toml:"timezone"`
	CacheTTL    Duration `toml:"cache-ttl"`
	MaxAttempts int      `toml:"max-attempts"`
}

type RateLimit struct {
	PerSecond float64 `toml:"per-second"`
	Burst     int     `toml:"burst"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Donetick: Donetick{
			Timezone:    "America/New_York",
			CacheTTL:    Duration{60 * time.Second},
			MaxAttempts: 3,
		},
		RateLimit: RateLimit{PerSecond: 10, Burst: 10},
		Log:       Log{Level: "info", Format: "text"},
	}
}

// Load applies defaults, then the TOML file at path, then environment
// variables. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	if err := cfg.loadFile(path, optional); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Donetick.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Donetick.BaseURL), "/")
	return cfg, nil
}

func (c *Config) loadFile(path string, optional bool) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && optional {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Donetick.BaseURL, "DONETICK_BASE_URL")
	setString(&c.Donetick.Username, "DONETICK_USERNAME")
	setString(&c.Donetick.Password, "DONETICK_PASSWORD")
	setString(&c.Donetick.APIToken, "DONETICK_API_TOKEN")
	setString(&c.Donetick.Timezone, "DONETICK_TIMEZONE")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	var errs []error
	errs = append(errs,
		setInt(&c.Donetick.TestUserID, "DONETICK_TEST_USER_ID"),
		setInt(&c.Donetick.MaxAttempts, "DONETICK_MAX_ATTEMPTS"),
		setInt(&c.RateLimit.Burst, "RATE_LIMIT_BURST"),
	)
	if v := os.Getenv("RATE_LIMIT_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_PER_SECOND: %w", err))
		} else {
			c.RateLimit.PerSecond = f
		}
	}
	if v := os.Getenv("DONETICK_CACHE_TTL"); v != "" {
		if err := c.Donetick.CacheTTL.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("DONETICK_CACHE_TTL: %w", err))
		}
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// Validate checks that the client can reach and authenticate against the
// server.
func (c *Config) Validate() error {
	var problems []string
	if c.Donetick.BaseURL == "" {
		problems = append(problems, "base URL is required (DONETICK_BASE_URL)")
	} else if !strings.HasPrefix(c.Donetick.BaseURL, "http://") && !strings.HasPrefix(c.Donetick.BaseURL, "https://") {
		problems = append(problems, "base URL must start with http:// or https://")
	}
	hasPassword := c.Donetick.Username != "" && c.Donetick.Password != ""
	if !hasPassword && c.Donetick.APIToken == "" {
		problems = append(problems, "username and password, or an API token, are required")
	}
	if _, err := time.LoadLocation(c.Donetick.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("unknown timezone %q", c.Donetick.Timezone))
	}
	if c.Donetick.MaxAttempts < 1 {
		problems = append(problems, "max-attempts must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location returns the configured timezone, or UTC if it does not load.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Donetick.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Client returns the donetick client configuration.
func (c *Config) Client() donetick.Config {
	return donetick.Config{
		BaseURL:       c.Donetick.BaseURL,
		Username:      c.Donetick.Username,
		Password:      c.Donetick.Password,
		APIToken:      c.Donetick.APIToken,
		RatePerSecond: c.RateLimit.PerSecond,
		RateBurst:     c.RateLimit.Burst,
		CacheTTL:      c.Donetick.CacheTTL.Duration,
		MaxAttempts:   c.Donetick.MaxAttempts,
	}
}
