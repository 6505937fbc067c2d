// Package config loads JIRA connection settings from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the file and environment leave a value unset.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultPageSize = 50
)

// Config holds JIRA connection settings.
type Config struct {
	URL      string        `yaml:"url"                 mapstructure:"url"`
	Username string        `yaml:"username"            mapstructure:"username"`
	Password string        `yaml:"password"            mapstructure:"password"`
	Timeout  time.Duration `yaml:"timeout,omitempty"   mapstructure:"timeout"`
	PageSize int           `yaml:"page_size,omitempty" mapstructure:"page_size"`
}

// Validation errors.
var (
	ErrURLRequired      = errors.New("JIRA URL is required (set in config file or JIRA_URL env var)")
	ErrUsernameRequired = errors.New("JIRA username is required (set in config file or JIRA_USERNAME env var)")
	ErrPasswordRequired = errors.New("JIRA password is required (set in config file or JIRA_PASSWORD env var)")
	ErrTimeoutInvalid   = errors.New("timeout must be positive")
	ErrPageSizeInvalid  = errors.New("page_size must be positive")
)

// DefaultPath returns the default config file path (~/.jira-rest-client.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jira-rest-client.yaml"
	}
	return filepath.Join(home, ".jira-rest-client.yaml")
}

// Load reads config from the YAML file and applies env var overrides.
// configPath may be empty to use the default path.
func Load(configPath string) (Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = DefaultPath()
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("page_size", DefaultPageSize)

	// Env var overrides
	_ = v.BindEnv("url", "JIRA_URL")
	_ = v.BindEnv("username", "JIRA_USERNAME")
	_ = v.BindEnv("password", "JIRA_PASSWORD")
	_ = v.BindEnv("timeout", "JIRA_TIMEOUT")
	_ = v.BindEnv("page_size", "JIRA_PAGE_SIZE")

	// Read the config file (ignore "not found" errors so env vars still work)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required fields are present.
func (c Config) Validate() error {
	if c.URL == "" {
		return ErrURLRequired
	}
	if c.Username == "" {
		return ErrUsernameRequired
	}
	if c.Password == "" {
		return ErrPasswordRequired
	}
	if c.Timeout < 0 {
		return ErrTimeoutInvalid
	}
	if c.PageSize < 0 {
		return ErrPageSizeInvalid
	}
	return nil
}

// WithDefaults returns a copy of c with zero timeout and page size replaced
// by their defaults.
func (c Config) WithDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	return c
}

// Save writes the config to the given path (or default path if empty).
func Save(cfg Config, configPath string) error {
	if configPath == "" {
		configPath = DefaultPath()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
