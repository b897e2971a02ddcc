package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Server struct {
		Port      string `yaml:"port"`
		BaseURL   string `yaml:"base_url"`
		Templates string `yaml:"templates"`
	} `yaml:"server"`
	Session struct {
		// Secret signs the session JWT. A static secret in a config file is
		// fine for this demo setup, only.
		Secret     string `yaml:"secret"`
		CookieName string `yaml:"cookie_name"`
		// MaxAge is the absolute session lifetime in seconds.
		MaxAge int64 `yaml:"max_age_seconds"`
		// UpdateInterval defers reissuing an unchanged token: a token keeps
		// its expiry until it is older than this many seconds.
		UpdateInterval int64 `yaml:"update_interval_seconds"`
	} `yaml:"session"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	// Everything else has a sane default; an empty signing key does not.
	if config.Session.Secret == "" {
		return nil, fmt.Errorf("config %s: session.secret must not be empty", configPath)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost" + c.Server.Port
	}
	if c.Server.Templates == "" {
		c.Server.Templates = "web/templates/*.html"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "session_token"
	}
	if c.Session.MaxAge <= 0 {
		c.Session.MaxAge = int64((6 * time.Hour).Seconds())
	}
	if c.Session.UpdateInterval <= 0 {
		c.Session.UpdateInterval = int64(time.Hour.Seconds())
	}
}

// SessionMaxAge returns the absolute session lifetime.
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Session.MaxAge) * time.Second
}

// SessionUpdateInterval returns the reissue deferral interval.
func (c *Config) SessionUpdateInterval() time.Duration {
	return time.Duration(c.Session.UpdateInterval) * time.Second
}
