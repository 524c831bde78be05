package config

import (
	"testing"
	"time"
)

func TestWorkerConfigDefaults(t *testing.T) {
	var cfg WorkerConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.BaseURL != "http://localhost:8090" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.TimeoutDuration() != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", cfg.TimeoutDuration())
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.RetryBackoffDuration() != time.Minute {
		t.Errorf("RetryBackoff = %v, want 1m", cfg.RetryBackoffDuration())
	}
}

func TestWorkerConfigEnvOverrides(t *testing.T) {
	t.Setenv(EnvWorkerBaseURL, "http://worker.internal:9000")
	t.Setenv(EnvWorkerMaxAttempts, "5")
	t.Setenv(EnvWorkerRetryBackoff, "30s")

	var cfg WorkerConfig
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.BaseURL != "http://worker.internal:9000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.RetryBackoffDuration() != 30*time.Second {
		t.Errorf("RetryBackoff = %v", cfg.RetryBackoffDuration())
	}
}

func TestWorkerConfigValidation(t *testing.T) {
	cfg := WorkerConfig{Timeout: "not-a-duration"}
	if err := cfg.Finalize(); err == nil {
		t.Fatal("expected invalid timeout error")
	}

	cfg = WorkerConfig{MaxAttempts: -1}
	if err := cfg.Finalize(); err == nil {
		t.Fatal("expected invalid max_attempts error")
	}
}

func TestWorkerConfigMerge(t *testing.T) {
	base := WorkerConfig{
		BaseURL:      "http://localhost:8090",
		Timeout:      "5m",
		MaxAttempts:  3,
		RetryBackoff: "1m",
	}
	base.Merge(&WorkerConfig{BaseURL: "http://worker:9000", MaxAttempts: 2})

	if base.BaseURL != "http://worker:9000" {
		t.Errorf("BaseURL = %q", base.BaseURL)
	}
	if base.MaxAttempts != 2 {
		t.Errorf("MaxAttempts = %d", base.MaxAttempts)
	}
	if base.Timeout != "5m" || base.RetryBackoff != "1m" {
		t.Error("unset overlay fields must not overwrite base values")
	}
}
