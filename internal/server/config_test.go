package server

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.CrawlQueue != "crawl_requests" {
		t.Errorf("CrawlQueue = %q", cfg.CrawlQueue)
	}
	if cfg.ResultsQueue != "raw_recipe_data" {
		t.Errorf("ResultsQueue = %q", cfg.ResultsQueue)
	}
	if cfg.FailedQueue != "crawl_requests_failed" {
		t.Errorf("FailedQueue = %q", cfg.FailedQueue)
	}
	if cfg.DelayStrategy != "exchange" {
		t.Errorf("DelayStrategy = %q", cfg.DelayStrategy)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.PrefetchCount != 1 {
		t.Errorf("PrefetchCount = %d", cfg.PrefetchCount)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DELAY_STRATEGY", "ladder")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("PREFETCH_COUNT", "10")
	t.Setenv("AMQP_DIAL_TIMEOUT", "2m")

	cfg := LoadConfig()
	if cfg.DelayStrategy != "ladder" {
		t.Errorf("DelayStrategy = %q", cfg.DelayStrategy)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.PrefetchCount != 10 {
		t.Errorf("PrefetchCount = %d", cfg.PrefetchCount)
	}
	if cfg.DialTimeout != 2*time.Minute {
		t.Errorf("DialTimeout = %v", cfg.DialTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(c *Config) {}, false},
		{"unknown strategy", func(c *Config) { c.DelayStrategy = "sleep" }, true},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"zero prefetch", func(c *Config) { c.PrefetchCount = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
