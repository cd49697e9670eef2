package app

import (
	"errors"
	"fmt"
	"slices"
)

// Accepted values of the logging flags.
var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"text", "json"}
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath is the tool configuration file. When empty the file is
	// looked up from WorkDir upwards and defaults apply if none exists.
	ConfigPath string
	WorkDir    string

	LogFormat string
	LogLevel  string
	// Workers bounds how many spec files are processed at once; 0 means one
	// per CPU.
	Workers int
	// CacheDir enables the result cache. It overrides the configuration
	// file's cache.dir.
	CacheDir string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	var problems []error
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}
	if !slices.Contains(LogLevels, cfg.LogLevel) {
		problems = append(problems, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	if !slices.Contains(LogFormats, cfg.LogFormat) {
		problems = append(problems, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if cfg.Workers < 0 {
		problems = append(problems, fmt.Errorf("invalid workers %d: must not be negative", cfg.Workers))
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}
	return &cfg, nil
}
