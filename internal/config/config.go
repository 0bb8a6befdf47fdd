package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete chalbox configuration
type Config struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	TUI     TUIConfig     `mapstructure:"tui" yaml:"tui"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Dev     DevConfig     `mapstructure:"dev" yaml:"dev"`
}

// BackendConfig controls how the containers backend is reached
type BackendConfig struct {
	// URL is the base URL of the CTF platform, e.g. "https://ctf.example.org".
	// The /containers/api/* paths are resolved against it.
	URL string `mapstructure:"url" yaml:"url"`
	// CSRFToken is sent as the CSRF-Token header on every call
	CSRFToken string `mapstructure:"csrf_token" yaml:"csrf_token"`
	// SessionCookie is the platform session cookie value, sent as "session=<value>"
	SessionCookie string `mapstructure:"session_cookie" yaml:"session_cookie"`
	// TimeoutSeconds bounds each call (0 = no client timeout, the transport's own applies)
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// TUIConfig controls the interactive view
type TUIConfig struct {
	// Theme selects the alert palette. Options: "default", "mono"
	Theme string `mapstructure:"theme" yaml:"theme"`
	// GuardStaleResponses drops replies that arrive after the active challenge changed
	GuardStaleResponses bool `mapstructure:"guard_stale_responses" yaml:"guard_stale_responses"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// DevConfig controls the in-memory development backend
type DevConfig struct {
	// Listen is the address the development backend binds to
	Listen string `mapstructure:"listen" yaml:"listen"`
	// ExpirationSeconds is the container time-to-live granted on request and renew
	ExpirationSeconds int `mapstructure:"expiration_seconds" yaml:"expiration_seconds"`
	// Hostname is reported to clients as the container host
	Hostname string `mapstructure:"hostname" yaml:"hostname"`
	// Connect is the connection type reported for every challenge: "tcp" or "http"
	Connect string `mapstructure:"connect" yaml:"connect"`
	// MaxContainers is the number of containers one owner may run at once
	MaxContainers int `mapstructure:"max_containers" yaml:"max_containers"`
	// CSRFToken, when set, must match the CSRF-Token header of every call
	CSRFToken string `mapstructure:"csrf_token" yaml:"csrf_token"`
	// RateLimit applies the platform's per-minute limits to each endpoint
	RateLimit bool `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:            "http://localhost:8000",
			CSRFToken:      "",
			SessionCookie:  "",
			TimeoutSeconds: 0, // No client timeout, matching the browser fetch
		},
		TUI: TUIConfig{
			Theme:               "default",
			GuardStaleResponses: true,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Dev: DevConfig{
			Listen:            "127.0.0.1:8000",
			ExpirationSeconds: 3600,
			Hostname:          "localhost",
			Connect:           "tcp",
			MaxContainers:     3,
			CSRFToken:         "",
			RateLimit:         true,
		},
	}
}

// Timeout returns the backend timeout as a time.Duration (0 means none)
func (c *BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Expiration returns the development backend TTL as a time.Duration
func (c *DevConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Backend defaults
	viper.SetDefault("backend.url", defaults.Backend.URL)
	viper.SetDefault("backend.csrf_token", defaults.Backend.CSRFToken)
	viper.SetDefault("backend.session_cookie", defaults.Backend.SessionCookie)
	viper.SetDefault("backend.timeout_seconds", defaults.Backend.TimeoutSeconds)

	// TUI defaults
	viper.SetDefault("tui.theme", defaults.TUI.Theme)
	viper.SetDefault("tui.guard_stale_responses", defaults.TUI.GuardStaleResponses)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)

	// Dev backend defaults
	viper.SetDefault("dev.listen", defaults.Dev.Listen)
	viper.SetDefault("dev.expiration_seconds", defaults.Dev.ExpirationSeconds)
	viper.SetDefault("dev.hostname", defaults.Dev.Hostname)
	viper.SetDefault("dev.connect", defaults.Dev.Connect)
	viper.SetDefault("dev.max_containers", defaults.Dev.MaxContainers)
	viper.SetDefault("dev.csrf_token", defaults.Dev.CSRFToken)
	viper.SetDefault("dev.rate_limit", defaults.Dev.RateLimit)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chalbox")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chalbox"
	}
	return filepath.Join(home, ".config", "chalbox")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StateDir returns the directory for logs and other runtime state
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "chalbox")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chalbox"
	}
	return filepath.Join(home, ".local", "state", "chalbox")
}

// ValidThemes returns the list of valid TUI themes
func ValidThemes() []string {
	return []string{"default", "mono"}
}

// ValidConnectTypes returns the connection types the development backend can report
func ValidConnectTypes() []string {
	return []string{"tcp", "http"}
}
