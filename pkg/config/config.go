package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is sent on page and media requests unless overridden.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds all configuration options for the downloader
type Config struct {
	// Viewer site settings
	Source SourceConfig `yaml:"source" json:"source"`

	// Request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SourceConfig describes the viewer site that proxies profile content
type SourceConfig struct {
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
	PageTimeout time.Duration `yaml:"page_timeout" json:"page_timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerMinute caps page requests to the viewer site.
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	// Cooldown is the courtesy delay applied after each media item.
	Cooldown time.Duration `yaml:"cooldown" json:"cooldown"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay" json:"retry_base_delay"`
	UserAgent           string        `yaml:"user_agent" json:"user_agent"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL:     "https://www.picuki.com",
			UserAgent:   DefaultUserAgent,
			PageTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			Cooldown:          time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 4,
			Timeout:             60 * time.Second,
			RetryAttempts:       3,
			RetryBaseDelay:      500 * time.Millisecond,
			UserAgent:           DefaultUserAgent,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from PICUKI_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("PICUKI_BASE_URL"); v != "" {
		c.Source.BaseURL = v
	}
	if v := os.Getenv("PICUKI_USER_AGENT"); v != "" {
		c.Source.UserAgent = v
		c.Download.UserAgent = v
	}
	if v := os.Getenv("PICUKI_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("PICUKI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PICUKI_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	envInt := func(name string, dst *int) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		var val int
		if _, err := fmt.Sscanf(v, "%d", &val); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = val
	}
	envDuration := func(name string, dst *time.Duration) {
		v := os.Getenv(name)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return
		}
		*dst = d
	}

	envInt("PICUKI_REQUESTS_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	envInt("PICUKI_CONCURRENT_DOWNLOADS", &c.Download.ConcurrentDownloads)
	envInt("PICUKI_RETRY_ATTEMPTS", &c.Download.RetryAttempts)
	envDuration("PICUKI_COOLDOWN", &c.RateLimit.Cooldown)
	envDuration("PICUKI_DOWNLOAD_TIMEOUT", &c.Download.Timeout)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// DefaultPath is where `config init` writes when no path is given.
func DefaultPath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "picuki-dl", "config.yaml")
}

func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".picuki-dl.yaml",
		".picuki-dl.yml",
		filepath.Join(home, ".config", "picuki-dl", "config.yaml"),
		filepath.Join(home, ".config", "picuki-dl", "config.yml"),
		filepath.Join(home, ".picuki-dl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Source.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("source base URL %q is not an absolute URL", c.Source.BaseURL))
	}
	if c.Source.PageTimeout <= 0 {
		errs = append(errs, errors.New("page timeout must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.Cooldown < 0 {
		errs = append(errs, errors.New("cooldown cannot be negative"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 10 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 10"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in flags are applied. Zero values are ignored except for
// max-retries and cooldown, where zero is meaningful and Validate rejects
// negatives.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v > 0 {
		c.Download.Timeout = v
	}
	if v, ok := flags["max-retries"].(int); ok {
		c.Download.RetryAttempts = v
	}
	if v, ok := flags["cooldown"].(time.Duration); ok {
		c.RateLimit.Cooldown = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v > 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
}

// applyFallbacks restores defaults for options left blank by a file or
// environment.
func (c *Config) applyFallbacks() {
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = DefaultUserAgent
	}
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = c.Source.UserAgent
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment (including .env) > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".picuki-dl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)
	config.applyFallbacks()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
