// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"

	custom_errors "devtool/internal/errors"
)

// TokenEnv is the environment variable holding the GitHub credential.
const TokenEnv = "GITHUB_TOKEN"

// Config holds all configuration for the application.
type Config struct {
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogFormat         string        `mapstructure:"LOG_FORMAT"`
	AppEnv            string        `mapstructure:"APP_ENV"`
	GithubToken       string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL      string        `mapstructure:"GITHUB_API_URL"`
	GithubTimeout     time.Duration `mapstructure:"GITHUB_TIMEOUT"`
	PageConcurrency   int           `mapstructure:"GITHUB_PAGE_CONCURRENCY"`
	RequestsPerSecond float64       `mapstructure:"GITHUB_REQUESTS_PER_SECOND"`
	CachePath         string        `mapstructure:"CACHE_PATH"`
}

var defaults = map[string]any{
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "text",
	"APP_ENV":                    "development",
	"GITHUB_TOKEN":               "",
	"GITHUB_API_URL":             "https://api.github.com/",
	"GITHUB_TIMEOUT":             "30s",
	"GITHUB_PAGE_CONCURRENCY":    1,
	"GITHUB_REQUESTS_PER_SECOND": 0,
	"CACHE_PATH":                 ".cache/github/repos.json",
}

// LoadConfig reads configuration from an optional .env file in dir and
// environment variables. Environment variables win.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()

	// Set default values. Every key needs one so AutomaticEnv can see it on Unmarshal.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	_ = v.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.GithubToken) == "" {
		cfg.GithubToken = v.GetString("GH_TOKEN")
	}
	cfg.GithubToken = strings.TrimSpace(cfg.GithubToken)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	// Validate fields
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("LOG_FORMAT must be either 'text' or 'json'")
	}
	if cfg.GithubTimeout < 0 {
		return nil, errors.New("GITHUB_TIMEOUT must not be negative")
	}
	if cfg.PageConcurrency < 1 {
		return nil, errors.New("GITHUB_PAGE_CONCURRENCY must be at least 1")
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, errors.New("GITHUB_REQUESTS_PER_SECOND must not be negative")
	}
	if strings.TrimSpace(cfg.CachePath) == "" {
		return nil, errors.New("CACHE_PATH must not be empty")
	}

	return &cfg, nil
}

// RequireGithubToken returns the GitHub token, or a MissingEnvError carrying
// the remediation hint when none is configured.
func (c *Config) RequireGithubToken() (string, error) {
	if c.GithubToken == "" {
		return "", &custom_errors.MissingEnvError{Name: TokenEnv}
	}
	return c.GithubToken, nil
}
