package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFile is used when no --config flag is given. It is allowed to be absent.
const DefaultConfigFile = "litemigrate.yaml"

// Load reads configuration from the specified file path.
// It supports YAML files and performs environment variable substitution.
// An empty path, or the default path when that file does not exist, yields the defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return finalize(DefaultConfig())
	}
	if configPath == DefaultConfigFile {
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			return finalize(DefaultConfig())
		}
	}

	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return finalize(cfg)
}

func finalize(cfg *Config) (*Config, error) {
	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// bracedVarPattern matches only ${VAR_NAME}.
var bracedVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	cfg.Source.Path = expandEnvVar(cfg.Source.Path)
	cfg.Target.DSN = expandDSN(cfg.Target.DSN)
	cfg.Target.Schema = expandEnvVar(cfg.Target.Schema)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)
	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
// References to unset variables are left verbatim.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// expandDSN expands only ${VAR} references, as a bare $ may be part of a
// password. A DSN that is a single unset ${VAR} becomes empty so validation
// reports it as missing; unset references inside a longer DSN are kept.
func expandDSN(dsn string) string {
	trimmed := strings.TrimSpace(dsn)
	if loc := bracedVarPattern.FindStringIndex(trimmed); loc != nil && loc[0] == 0 && loc[1] == len(trimmed) {
		return os.Getenv(trimmed[2 : len(trimmed)-1])
	}
	return bracedVarPattern.ReplaceAllStringFunc(dsn, func(match string) string {
		if value, exists := os.LookupEnv(match[2 : len(match)-1]); exists {
			return value
		}
		return match
	})
}

// Overrides contains CLI flag values that take precedence over the file.
type Overrides struct {
	LogLevel     string
	LogFormat    string
	SourcePath   string
	TargetDSN    string
	TargetDriver string
	Workers      int
	SkipVerify   bool
}

// ApplyOverrides applies CLI flag overrides to the configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.SourcePath != "" {
		c.Source.Path = o.SourcePath
	}
	if o.TargetDSN != "" {
		c.Target.DSN = o.TargetDSN
	}
	if o.TargetDriver != "" {
		c.Target.Driver = o.TargetDriver
	}
	if o.Workers > 0 {
		c.Processing.Workers = o.Workers
	}
	if o.SkipVerify {
		c.Verification.Enabled = false
	}
}
