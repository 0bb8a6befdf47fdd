package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"empty backend url", func(c *Config) { c.Backend.URL = "" }, "backend.url"},
		{"relative backend url", func(c *Config) { c.Backend.URL = "/containers" }, "backend.url"},
		{"non-http scheme", func(c *Config) { c.Backend.URL = "ftp://ctf.example.org" }, "backend.url"},
		{"unparseable url", func(c *Config) { c.Backend.URL = "http://[::1" }, "backend.url"},
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSeconds = -1 }, "backend.timeout_seconds"},
		{"unknown theme", func(c *Config) { c.TUI.Theme = "neon" }, "tui.theme"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"negative log size", func(c *Config) { c.Logging.MaxSizeMB = -5 }, "logging.max_size_mb"},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
		{"bad listen address", func(c *Config) { c.Dev.Listen = "8000" }, "dev.listen"},
		{"zero expiration", func(c *Config) { c.Dev.ExpirationSeconds = 0 }, "dev.expiration_seconds"},
		{"unknown connect", func(c *Config) { c.Dev.Connect = "ssh" }, "dev.connect"},
		{"zero max containers", func(c *Config) { c.Dev.MaxContainers = 0 }, "dev.max_containers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidate_AcceptsUppercaseLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "DEBUG"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	var empty ValidationErrors
	if empty.Error() != "" {
		t.Errorf("empty Error() = %q", empty.Error())
	}

	single := ValidationErrors{{Field: "tui.theme", Value: "neon", Message: "must be one of: default, mono"}}
	if got := single.Error(); got != "tui.theme: must be one of: default, mono (got: neon)" {
		t.Errorf("single Error() = %q", got)
	}

	multi := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	got := multi.Error()
	if !strings.HasPrefix(got, "2 validation errors:") {
		t.Errorf("multi Error() = %q", got)
	}
	if !strings.Contains(got, "1. a: bad (got: 1)") || !strings.Contains(got, "2. b: worse (got: 2)") {
		t.Errorf("multi Error() missing entries: %q", got)
	}
}
