package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Presence PresenceConfig `yaml:"presence"`
	Search   SearchConfig   `yaml:"search"`
	Media    MediaConfig    `yaml:"media"`
	Log      LogConfig      `yaml:"log"`
	Seed     bool           `yaml:"seed"`
}

// StorageConfig holds key-value store configuration
type StorageConfig struct {
	DataDir  string `yaml:"data_dir"`
	InMemory bool   `yaml:"in_memory"`
}

// AuthConfig holds session token configuration
type AuthConfig struct {
	JWTSecret    string `yaml:"jwt_secret"`
	TokenTTLDays int    `yaml:"token_ttl_days"`
}

// PresenceConfig holds the liveness heuristics
type PresenceConfig struct {
	OnlineWindowMinutes int `yaml:"online_window_minutes"`
	TypingTTLSeconds    int `yaml:"typing_ttl_seconds"`
}

// OnlineWindow returns the sliding window within which a user counts as online.
func (c PresenceConfig) OnlineWindow() time.Duration {
	return time.Duration(c.OnlineWindowMinutes) * time.Minute
}

// TypingTTL returns the staleness cutoff for typing signals.
func (c PresenceConfig) TypingTTL() time.Duration {
	return time.Duration(c.TypingTTLSeconds) * time.Second
}

// SearchConfig holds user search configuration
type SearchConfig struct {
	MaxResults int `yaml:"max_results"`
}

// MediaConfig holds image blob storage configuration. Disabled means
// data-URIs are stored inline in the collections.
type MediaConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Backend   string `yaml:"backend"` // "local" or "s3"
	LocalDir  string `yaml:"local_dir"`
	BaseURL   string `yaml:"base_url"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = "connectsphere-dev-secret"
	}
	if c.Auth.TokenTTLDays <= 0 {
		c.Auth.TokenTTLDays = 365
	}
	if c.Presence.OnlineWindowMinutes <= 0 {
		c.Presence.OnlineWindowMinutes = 5
	}
	if c.Presence.TypingTTLSeconds <= 0 {
		c.Presence.TypingTTLSeconds = 3
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 10
	}
	if c.Media.Backend == "" {
		c.Media.Backend = "local"
	}
	if c.Media.LocalDir == "" {
		c.Media.LocalDir = "media"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
