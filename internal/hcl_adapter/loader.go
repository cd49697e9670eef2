package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/apispec/internal/config"
	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/errs"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses the file at path, applies it on top of config.Default and
// validates the result.
func (l *Loader) Load(ctx context.Context, path string) (*config.Config, error) {
	logger := ctxlog.Component(ctx, "config").With("path", path)
	logger.Debug("HCL config loading started.")

	src, err := os.ReadFile(path)
	if err != nil {
		kind := errs.KindInvalidConfig
		if errors.Is(err, fs.ErrNotExist) {
			kind = errs.KindNotFound
		}
		return nil, errs.New("config.load", kind, path, err)
	}
	return l.Parse(ctx, src, path)
}

// Parse decodes configuration source. filename is used in diagnostics.
func (l *Loader) Parse(ctx context.Context, src []byte, filename string) (*config.Config, error) {
	logger := ctxlog.Component(ctx, "config").With("path", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, errs.New("config.parse", errs.KindInvalidConfig, filename, fmt.Errorf("failed to parse HCL: %w", diags))
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, errs.New("config.parse", errs.KindInvalidConfig, filename, fmt.Errorf("failed to decode HCL: %w", diags))
	}

	cfg := config.Default()
	cfg.Source = filename
	if err := translate(ctx, &root, cfg); err != nil {
		return nil, errs.New("config.parse", errs.KindInvalidConfig, filename, err)
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	logger.Debug("HCL config loaded.",
		"rules", len(cfg.Lint.Rules),
		"custom_rules", len(cfg.Lint.Custom),
		"extends", cfg.Lint.Extends,
	)
	return cfg, nil
}

// FindConfigFile looks for config.FileName in dir and its parents and
// returns the first match.
func FindConfigFile(dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(abs, config.FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}
