package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Database    DatabaseConfig    `yaml:"database"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Paths       PathsConfig       `yaml:"paths"`
	Logging     LoggingConfig     `yaml:"logging"`
	Performance PerformanceConfig `yaml:"performance"`
	Events      EventsConfig      `yaml:"events"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

// AnalysisConfig describes how the external analysis job is launched.
// APIKey is handed to the job; it is never written to logs.
type AnalysisConfig struct {
	Command []string      `yaml:"command"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
	// Model is forwarded to the job when set.
	Model string `yaml:"model"`
}

type PathsConfig struct {
	Staging   string `yaml:"staging"`
	Artifacts string `yaml:"artifacts"`
	Inbox     string `yaml:"inbox"`
	Failed    string `yaml:"failed"`
	Exports   string `yaml:"exports"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PerformanceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

type EventsConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Channel   string `yaml:"channel"`
}

// Load reads the YAML file at path, applies environment overrides and validates.
// A missing file is not an error; the environment may carry everything needed.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Analysis.APIKey = v
	}
	if v := os.Getenv("MINUTES_GEMINI_MODEL"); v != "" {
		c.Analysis.Model = v
	}
	if v := os.Getenv("MINUTES_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("MINUTES_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("MINUTES_STAGING_DIR"); v != "" {
		c.Paths.Staging = v
	}
	if v := os.Getenv("MINUTES_ARTIFACTS_DIR"); v != "" {
		c.Paths.Artifacts = v
	}
	if v := os.Getenv("MINUTES_INBOX_DIR"); v != "" {
		c.Paths.Inbox = v
	}
	if v := os.Getenv("MINUTES_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MINUTES_REDIS_ADDR"); v != "" {
		c.Events.RedisAddr = v
	}
	if v := os.Getenv("MINUTES_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Performance.MaxConcurrent = n
		}
	}
}

// Validate checks required fields and fills defaults.
// The analysis API key is optional; uploads fail without it, reads do not.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if len(c.Analysis.Command) == 0 {
		c.Analysis.Command = []string{"minutes-analyze"}
	}
	if c.Analysis.Command[0] == "" {
		return fmt.Errorf("analysis.command must name an executable")
	}
	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis.timeout must not be negative")
	}
	if c.Performance.MaxConcurrent < 0 {
		return fmt.Errorf("performance.max_concurrent must not be negative")
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxUploadBytes == 0 {
		c.HTTP.MaxUploadBytes = 512 << 20
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = 30 * time.Minute
	}
	if c.Paths.Staging == "" {
		c.Paths.Staging = "data/uploads"
	}
	if c.Paths.Artifacts == "" {
		c.Paths.Artifacts = "data/downloads"
	}
	if c.Paths.Failed == "" {
		c.Paths.Failed = "data/failed"
	}
	if c.Paths.Exports == "" {
		c.Paths.Exports = "data/exports"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Events.Channel == "" {
		c.Events.Channel = "events.meeting.created"
	}

	return nil
}
