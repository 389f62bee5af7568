// Package config loads the service configuration from defaults, an optional
// YAML file and the environment, in increasing order of precedence. A .env
// file in the working directory is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"expensetracker/internal/core"
	"expensetracker/internal/csvio"
	"expensetracker/internal/log"
)

type Config struct {
	// HTTP Server
	Port               string
	MaxUploadBytes     int64
	RateLimitPerMinute int

	// Logging
	LogLevel  string
	LogFormat string

	// Ledger defaults for new sessions
	DefaultBudget     string
	DefaultCategories []string
	ImportPolicy      string

	// Sessions
	SessionTTL  time.Duration
	MaxSessions int

	// AMQP, optional: events are published only when AMQPURL is set
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// fileConfig mirrors Config for the YAML file. Empty fields keep the default.
type fileConfig struct {
	Port              string   `yaml:"port"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes"`
	RateLimit         int      `yaml:"rate_limit_per_minute"`
	LogLevel          string   `yaml:"log_level"`
	LogFormat         string   `yaml:"log_format"`
	DefaultBudget     string   `yaml:"default_budget"`
	DefaultCategories []string `yaml:"default_categories"`
	ImportPolicy      string   `yaml:"import_policy"`
	SessionTTL        string   `yaml:"session_ttl"`
	MaxSessions       int      `yaml:"max_sessions"`
	AMQP              struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
		Queue    string `yaml:"queue"`
	} `yaml:"amqp"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:               "8080",
		MaxUploadBytes:     10 << 20,
		RateLimitPerMinute: 120,
		LogLevel:           "info",
		LogFormat:          "text",
		DefaultBudget:      core.DefaultBudget.String(),
		DefaultCategories:  append([]string(nil), core.DefaultCategories...),
		ImportPolicy:       string(csvio.Permissive),
		SessionTTL:         2 * time.Hour,
		MaxSessions:        1000,
		AMQPExchange:       "expensetracker",
		AMQPQueue:          "ledger_events",
	}
}

// Load builds the configuration. path names an optional YAML file; a missing
// file is an error only when path is set explicitly.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.mergeEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config file %s not found", path)
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	setString(&c.Port, fc.Port)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	setString(&c.DefaultBudget, fc.DefaultBudget)
	setString(&c.ImportPolicy, fc.ImportPolicy)
	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)
	if len(fc.DefaultCategories) > 0 {
		c.DefaultCategories = fc.DefaultCategories
	}
	if fc.MaxUploadBytes > 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.RateLimit > 0 {
		c.RateLimitPerMinute = fc.RateLimit
	}
	if fc.MaxSessions > 0 {
		c.MaxSessions = fc.MaxSessions
	}
	if fc.SessionTTL != "" {
		d, err := time.ParseDuration(fc.SessionTTL)
		if err != nil {
			return fmt.Errorf("invalid session_ttl %q: %w", fc.SessionTTL, err)
		}
		c.SessionTTL = d
	}
	return nil
}

func (c *Config) mergeEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.DefaultBudget = getEnv("DEFAULT_BUDGET", c.DefaultBudget)
	c.ImportPolicy = getEnv("IMPORT_POLICY", c.ImportPolicy)
	c.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)
	c.SessionTTL = getEnvDuration("SESSION_TTL", c.SessionTTL)
	c.MaxSessions = getEnvInt("MAX_SESSIONS", c.MaxSessions)
	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)
	if v := os.Getenv("DEFAULT_CATEGORIES"); v != "" {
		c.DefaultCategories = splitList(v)
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if _, err := c.Budget(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default budget '%s': must be a non-negative amount", c.DefaultBudget))
	}
	if len(c.DefaultCategories) == 0 {
		errors = append(errors, "default categories cannot be empty")
	}
	for _, cat := range c.DefaultCategories {
		if strings.TrimSpace(cat) == "" {
			errors = append(errors, "default categories cannot contain blank labels")
			break
		}
	}
	if _, err := csvio.ParsePolicy(c.ImportPolicy); err != nil {
		errors = append(errors, err.Error())
	}

	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max upload bytes %d: must be at least 1024", c.MaxUploadBytes))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Budget parses DefaultBudget.
func (c *Config) Budget() (decimal.Decimal, error) {
	return core.ParseBudget(c.DefaultBudget)
}

// Policy parses ImportPolicy.
func (c *Config) Policy() (csvio.Policy, error) {
	return csvio.ParsePolicy(c.ImportPolicy)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	return log.ParseLevel(c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
