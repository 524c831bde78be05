package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const (
	EnvWorkerBaseURL      = "UW_WORKER_BASE_URL"
	EnvWorkerTimeout      = "UW_WORKER_TIMEOUT"
	EnvWorkerMaxAttempts  = "UW_WORKER_MAX_ATTEMPTS"
	EnvWorkerRetryBackoff = "UW_WORKER_RETRY_BACKOFF"
)

// WorkerConfig holds connection parameters for the external analysis-worker
// service. Timeout is generous because the worker performs multi-stage
// reasoning before acknowledging a start request.
type WorkerConfig struct {
	BaseURL      string `toml:"base_url"`
	Timeout      string `toml:"timeout"`
	MaxAttempts  int    `toml:"max_attempts"`
	RetryBackoff string `toml:"retry_backoff"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *WorkerConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// RetryBackoffDuration returns RetryBackoff as a time.Duration.
func (c *WorkerConfig) RetryBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.RetryBackoff)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WorkerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkerConfig) Merge(overlay *WorkerConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.RetryBackoff != "" {
		c.RetryBackoff = overlay.RetryBackoff
	}
}

func (c *WorkerConfig) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8090"
	}
	if c.Timeout == "" {
		c.Timeout = "5m"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff == "" {
		c.RetryBackoff = "1m"
	}
}

func (c *WorkerConfig) loadEnv() {
	if v := os.Getenv(EnvWorkerBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvWorkerTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvWorkerMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
	if v := os.Getenv(EnvWorkerRetryBackoff); v != "" {
		c.RetryBackoff = v
	}
}

func (c *WorkerConfig) validate() error {
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	if _, err := time.ParseDuration(c.RetryBackoff); err != nil {
		return fmt.Errorf("invalid retry_backoff: %w", err)
	}
	return nil
}
