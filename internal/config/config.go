// Package config provides configuration structures and loading for litemigrate.
package config

// Config represents the complete application configuration.
type Config struct {
	Source       SourceConfig       `yaml:"source" mapstructure:"source"`
	Target       TargetConfig       `yaml:"target" mapstructure:"target"`
	Processing   ProcessingConfig   `yaml:"processing" mapstructure:"processing"`
	Safety       SafetyConfig       `yaml:"safety" mapstructure:"safety"`
	Verification VerificationConfig `yaml:"verification" mapstructure:"verification"`
	Logging      LoggingConfig      `yaml:"logging" mapstructure:"logging"`
}

// SourceConfig describes the SQLite database being migrated from.
type SourceConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// TargetConfig describes the database being migrated to.
type TargetConfig struct {
	Driver             string `yaml:"driver" mapstructure:"driver"` // postgres or mysql
	DSN                string `yaml:"dsn" mapstructure:"dsn"`
	Schema             string `yaml:"schema" mapstructure:"schema"` // postgres only
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ProcessingConfig represents stage execution settings.
type ProcessingConfig struct {
	Workers             int      `yaml:"workers" mapstructure:"workers"`
	StageTimeoutSeconds int      `yaml:"stage_timeout_seconds" mapstructure:"stage_timeout_seconds"`
	IncludeTables       []string `yaml:"include_tables" mapstructure:"include_tables"`
	ExcludeTables       []string `yaml:"exclude_tables" mapstructure:"exclude_tables"`
	Progress            bool     `yaml:"progress" mapstructure:"progress"`
}

// SafetyConfig represents run-level safety settings.
type SafetyConfig struct {
	Lock               bool `yaml:"lock" mapstructure:"lock"`
	LockTimeoutSeconds int  `yaml:"lock_timeout_seconds" mapstructure:"lock_timeout_seconds"`
}

// VerificationConfig represents post-migration verification settings.
type VerificationConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// Target drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path: "digi_aata.db",
		},
		Target: TargetConfig{
			Driver:             DriverPostgres,
			DSN:                "${DATABASE_URL}",
			Schema:             "public",
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Processing: ProcessingConfig{
			Workers: 4,
		},
		Safety: SafetyConfig{
			Lock:               true,
			LockTimeoutSeconds: 1,
		},
		Verification: VerificationConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// EffectiveWorkers returns the worker pool size, never more than the target
// connection pool can serve.
func (c *Config) EffectiveWorkers() int {
	workers := c.Processing.Workers
	if workers <= 0 {
		workers = 1
	}
	if c.Target.MaxConnections > 0 && workers > c.Target.MaxConnections {
		workers = c.Target.MaxConnections
	}
	return workers
}

// TableSelected reports whether a table passes the include/exclude filters.
// Exclusion wins over inclusion.
func (c *Config) TableSelected(name string) bool {
	for _, t := range c.Processing.ExcludeTables {
		if t == name {
			return false
		}
	}
	if len(c.Processing.IncludeTables) == 0 {
		return true
	}
	for _, t := range c.Processing.IncludeTables {
		if t == name {
			return true
		}
	}
	return false
}
