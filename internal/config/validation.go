package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if c.Source.Path == "" {
		errors = append(errors, ValidationError{
			Field:   "source.path",
			Message: "path to the SQLite database is required",
		})
	}

	errors = append(errors, c.validateTarget()...)
	errors = append(errors, c.validateProcessing()...)

	if c.Safety.LockTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "safety.lock_timeout_seconds",
			Message: "lock_timeout_seconds cannot be negative",
		})
	}

	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateTarget() ValidationErrors {
	var errors ValidationErrors

	switch c.Target.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		errors = append(errors, ValidationError{
			Field:   "target.driver",
			Message: "driver must be 'postgres' or 'mysql'",
		})
	}

	if c.Target.DSN == "" {
		errors = append(errors, ValidationError{
			Field:   "target.dsn",
			Message: "dsn is required (set DATABASE_URL or target.dsn)",
		})
	}

	if c.Target.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "target.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if c.Target.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "target.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.Workers <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.workers",
			Message: "workers must be positive",
		})
	}

	if c.Processing.StageTimeoutSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.stage_timeout_seconds",
			Message: "stage_timeout_seconds cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
