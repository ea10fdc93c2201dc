package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.yaml", true)
	if err != nil {
		t.Fatalf("env-only load must not require a file: %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Fatalf("http addr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Cron.SyncSpec != "@every 2m" {
		t.Fatalf("sync spec = %q", cfg.Cron.SyncSpec)
	}
	if cfg.Sync.RateLimitPerMin != 30 || cfg.Sync.RateLimitWindow != time.Minute {
		t.Fatalf("rate limit defaults = %d per %v", cfg.Sync.RateLimitPerMin, cfg.Sync.RateLimitWindow)
	}
	if cfg.Sync.RetryMaxAttempts != 3 || cfg.Sync.RetryBaseDelay != time.Second {
		t.Fatalf("retry defaults = %d, %v", cfg.Sync.RetryMaxAttempts, cfg.Sync.RetryBaseDelay)
	}
	if cfg.Sync.TokenRefreshSkew != 5*time.Minute {
		t.Fatalf("token skew = %v", cfg.Sync.TokenRefreshSkew)
	}
	if cfg.Sync.PullWindowPast != 720*time.Hour || cfg.Sync.PullWindowFuture != 8760*time.Hour {
		t.Fatalf("pull window = %v back, %v forward", cfg.Sync.PullWindowPast, cfg.Sync.PullWindowFuture)
	}
	if cfg.Sync.SweepEveryCycles != 10 {
		t.Fatalf("sweep cadence = %d", cfg.Sync.SweepEveryCycles)
	}
	if cfg.Sync.BatchSize != 50 {
		t.Fatalf("batch size = %d", cfg.Sync.BatchSize)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("nonexistent.yaml", false); err == nil {
		t.Fatalf("file-backed load must fail when the file is missing")
	}
}
