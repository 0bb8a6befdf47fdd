package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "backend.url")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBackend()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateDev()...)

	return errors
}

// validateBackend validates the BackendConfig
func (c *Config) validateBackend() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.Backend.URL)
	switch {
	case c.Backend.URL == "":
		errors = append(errors, ValidationError{
			Field:   "backend.url",
			Value:   c.Backend.URL,
			Message: "must not be empty",
		})
	case err != nil:
		errors = append(errors, ValidationError{
			Field:   "backend.url",
			Value:   c.Backend.URL,
			Message: fmt.Sprintf("is not a valid URL: %v", err),
		})
	case u.Scheme != "http" && u.Scheme != "https":
		errors = append(errors, ValidationError{
			Field:   "backend.url",
			Value:   c.Backend.URL,
			Message: "must use the http or https scheme",
		})
	case u.Host == "":
		errors = append(errors, ValidationError{
			Field:   "backend.url",
			Value:   c.Backend.URL,
			Message: "must include a host",
		})
	}

	if c.Backend.TimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "backend.timeout_seconds",
			Value:   c.Backend.TimeoutSeconds,
			Message: "must be non-negative (0 disables the client timeout)",
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.Theme != "" && !slices.Contains(ValidThemes(), c.TUI.Theme) {
		errors = append(errors, ValidationError{
			Field:   "tui.theme",
			Value:   c.TUI.Theme,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidThemes(), ", ")),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateDev validates the DevConfig
func (c *Config) validateDev() []ValidationError {
	var errors []ValidationError

	if _, _, err := net.SplitHostPort(c.Dev.Listen); err != nil {
		errors = append(errors, ValidationError{
			Field:   "dev.listen",
			Value:   c.Dev.Listen,
			Message: "must be a host:port address",
		})
	}

	if c.Dev.ExpirationSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "dev.expiration_seconds",
			Value:   c.Dev.ExpirationSeconds,
			Message: "must be positive",
		})
	}

	if !slices.Contains(ValidConnectTypes(), c.Dev.Connect) {
		errors = append(errors, ValidationError{
			Field:   "dev.connect",
			Value:   c.Dev.Connect,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidConnectTypes(), ", ")),
		})
	}

	if c.Dev.MaxContainers < 1 {
		errors = append(errors, ValidationError{
			Field:   "dev.max_containers",
			Value:   c.Dev.MaxContainers,
			Message: "must be at least 1",
		})
	}

	return errors
}
