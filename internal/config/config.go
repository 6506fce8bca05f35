package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file location when none is given.
const DefaultPath = "config.yaml"

// OAuth2Provider describes one configured OAuth2 identity provider.
type OAuth2Provider struct {
	ClientID     string   `yaml:"clientID"`
	ClientSecret string   `yaml:"clientSecret"`
	AuthURL      string   `yaml:"authURL"`
	TokenURL     string   `yaml:"tokenURL"`
	UserinfoURL  string   `yaml:"userinfoURL"`
	Scopes       []string `yaml:"scopes"`
}

// Config represents configuration loaded from YAML.
type Config struct {
	Listen      string `yaml:"listen"`      // App listen address.
	StoreListen string `yaml:"storeListen"` // Record store listen address.
	StoreURL    string `yaml:"storeURL"`    // Record store base URL seen by the app.

	Database string `yaml:"database"` // SQLite path or Postgres DSN.

	TokenSecret string `yaml:"tokenSecret"` // HS256 signing secret.
	TokenExpiry string `yaml:"tokenExpiry"` // Duration string, default 720h.

	Environment string `yaml:"environment"` // development or production.
	LogLevel    string `yaml:"logLevel"`
	LogFile     string `yaml:"logFile"` // Rotated via lumberjack when set.

	RedisAddr              string `yaml:"redisAddr"` // Enables auth rate limiting when set.
	RedisPassword          string `yaml:"redisPassword"`
	AuthRateLimitPerMinute int    `yaml:"authRateLimitPerMinute"`

	OAuth2 map[string]OAuth2Provider `yaml:"oauth2"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	if strings.TrimSpace(cfg.TokenSecret) == "" {
		return cfg, fmt.Errorf("config: tokenSecret is required")
	}
	return cfg, nil
}

// applyEnvOverrides lets JITSDIARY_* environment variables win over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JITSDIARY_LISTEN"); v != "" {
		cfg.Listen = strings.TrimSpace(v)
	}
	if v := os.Getenv("JITSDIARY_STORE_LISTEN"); v != "" {
		cfg.StoreListen = strings.TrimSpace(v)
	}
	if v := os.Getenv("JITSDIARY_STORE_URL"); v != "" {
		cfg.StoreURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("JITSDIARY_DATABASE"); v != "" {
		cfg.Database = strings.TrimSpace(v)
	}
	if v := os.Getenv("JITSDIARY_TOKEN_SECRET"); v != "" {
		cfg.TokenSecret = v
	}
	if v := os.Getenv("JITSDIARY_ENVIRONMENT"); v != "" {
		cfg.Environment = strings.TrimSpace(v)
	}
	if v := os.Getenv("JITSDIARY_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("JITSDIARY_AUTH_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, errParse := strconv.Atoi(strings.TrimSpace(v)); errParse == nil {
			cfg.AuthRateLimitPerMinute = n
		}
	}
}

// applyDefaults fills unset fields with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.StoreListen == "" {
		cfg.StoreListen = ":8090"
	}
	if cfg.StoreURL == "" {
		cfg.StoreURL = "http://127.0.0.1:8090"
	}
	if cfg.Database == "" {
		cfg.Database = "file:data/jitsdiary.db"
	}
	if cfg.TokenExpiry == "" {
		cfg.TokenExpiry = "720h"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AuthRateLimitPerMinute == 0 {
		cfg.AuthRateLimitPerMinute = 10
	}
}

// IsProduction reports whether the config targets a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// ParseTokenExpiry parses the token expiry duration.
func (c Config) ParseTokenExpiry() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.TokenExpiry))
	if err != nil {
		return 0, fmt.Errorf("config: parse tokenExpiry: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: tokenExpiry must be positive")
	}
	return d, nil
}
