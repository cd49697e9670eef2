package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration file at path and translates it into the
	// format-agnostic model. A missing file is an errs.KindNotFound error.
	Load(ctx context.Context, path string) (*Config, error)
}
