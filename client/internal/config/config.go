// Package config handles client configuration loading and validation.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/cinemax-app/subscribe/client/internal/onetimecode"
)

// Config is the top-level client configuration.
type Config struct {
	API         APIConfig         `json:"api"`
	User        UserConfig        `json:"user"`
	OneTimeCode OneTimeCodeConfig `json:"one_time_code,omitempty"`
	Logging     LoggingConfig     `json:"logging,omitempty"`
}

// APIConfig defines how the client reaches the subscription API.
type APIConfig struct {
	URL     string   `json:"url" env:"SUBSCRIBE_API_URL"`
	Timeout Duration `json:"timeout,omitempty" env:"SUBSCRIBE_API_TIMEOUT"`
}

// UserConfig identifies the signed-in user.
type UserConfig struct {
	ID              string `json:"id,omitempty" env:"SUBSCRIBE_USER_ID"` // defaults to the token's uid claim
	Token           string `json:"token,omitempty" env:"SUBSCRIBE_TOKEN"`
	CredentialsPath string `json:"credentials_path,omitempty" env:"SUBSCRIBE_CREDENTIALS"` // renewed tokens are written here
}

// OneTimeCodeConfig controls the scannable payment code.
type OneTimeCodeConfig struct {
	Target string `json:"target,omitempty"`
	Width  int    `json:"width,omitempty"`  // pixels
	Margin *int   `json:"margin,omitempty"` // quiet zone, in modules; 0 is allowed
}

// LoggingConfig defines logging settings. The TUI owns the terminal, so
// logs go to a file.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" env:"SUBSCRIBE_LOG_LEVEL"`
	Format string `json:"format,omitempty"` // "json" or "text"
	File   string `json:"file,omitempty" env:"SUBSCRIBE_LOG_FILE"`
}

// Duration is a JSON-friendly time.Duration (accepts strings like "30s", "5m").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		dur, err := time.ParseDuration(val)
		if err != nil {
			return err
		}
		d.Duration = dur
	case float64:
		d.Duration = time.Duration(val) * time.Second
	default:
		return fmt.Errorf("invalid duration: %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalText lets environment variables carry durations.
func (d *Duration) UnmarshalText(b []byte) error {
	dur, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// DefaultDir returns the per-user directory holding config, credentials and logs.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".subscribe"
	}
	return filepath.Join(dir, "subscribe")
}

// DefaultConfigPath returns the config file used when none is given.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDir(), "config.json")
}

// Load reads the config file at path (a missing file is treated as empty),
// applies environment overrides, then validates. A .env file in the working
// directory is loaded into the environment first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	return load(path, env.Options{})
}

func load(path string, opts env.Options) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.url must be an http(s) URL")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error")
	}
	switch c.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	if c.OneTimeCode.Width < 0 {
		return fmt.Errorf("one_time_code.width must not be negative")
	}
	if c.OneTimeCode.Margin != nil && *c.OneTimeCode.Margin < 0 {
		return fmt.Errorf("one_time_code.margin must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Timeout.Duration == 0 {
		c.API.Timeout.Duration = 10 * time.Second
	}
	if c.User.CredentialsPath == "" {
		c.User.CredentialsPath = filepath.Join(DefaultDir(), "credentials.json")
	}
	if c.OneTimeCode.Target == "" {
		c.OneTimeCode.Target = onetimecode.DefaultTarget
	}
	if c.OneTimeCode.Width == 0 {
		c.OneTimeCode.Width = onetimecode.DefaultWidth
	}
	if c.OneTimeCode.Margin == nil {
		margin := onetimecode.DefaultMargin
		c.OneTimeCode.Margin = &margin
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.File == "" {
		c.Logging.File = filepath.Join(DefaultDir(), "subscribe.log")
	}
}
