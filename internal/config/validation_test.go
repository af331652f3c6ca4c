package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Target.DSN = "postgres://localhost/shop"
	return cfg
}

func TestValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no validation errors, got: %v", err)
	}
}

func TestValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing source path", func(c *Config) { c.Source.Path = "" }, "source.path"},
		{"unknown driver", func(c *Config) { c.Target.Driver = "oracle" }, "target.driver"},
		{"missing dsn", func(c *Config) { c.Target.DSN = "" }, "target.dsn"},
		{"negative max connections", func(c *Config) { c.Target.MaxConnections = -1 }, "target.max_connections"},
		{"negative idle connections", func(c *Config) { c.Target.MaxIdleConnections = -1 }, "target.max_idle_connections"},
		{"zero workers", func(c *Config) { c.Processing.Workers = 0 }, "processing.workers"},
		{"negative stage timeout", func(c *Config) { c.Processing.StageTimeoutSeconds = -5 }, "processing.stage_timeout_seconds"},
		{"negative lock timeout", func(c *Config) { c.Safety.LockTimeoutSeconds = -1 }, "safety.lock_timeout_seconds"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %q, got: %v", tt.field, err)
			}
		})
	}
}

func TestValidationCollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Source.Path = ""
	cfg.Target.DSN = ""
	cfg.Processing.Workers = -1

	err := cfg.Validate()
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	if len(verrs) != 3 {
		t.Errorf("expected 3 validation errors, got %d: %v", len(verrs), verrs)
	}
	if !strings.HasPrefix(err.Error(), "validation failed:") {
		t.Errorf("unexpected error format: %s", err.Error())
	}
}

func TestValidationErrorsEmpty(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "" {
		t.Errorf("expected empty string for no errors, got %q", errs.Error())
	}
}
