package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/vk/apispec/internal/check"
	"github.com/vk/apispec/internal/config"
	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/hcl_adapter"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/lint"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/ref"
	"github.com/vk/apispec/internal/registry"
	"github.com/vk/apispec/internal/resultcache"
	"github.com/vk/apispec/internal/rpc"
	"github.com/vk/apispec/internal/validator"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	logger    *slog.Logger
	cfg       *Config
	tool      *config.Config
	files     *loader.FileLoader
	resolver  *ref.Resolver
	validator *validator.Validator
	linter    *lint.Linter
	cache     *resultcache.Store
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App with its own isolated logger writing to logW. disable
// names validation or lint rules switched off for this run.
func NewApp(ctx context.Context, logW io.Writer, cfg *Config, cfgLoader config.Loader, disable ...string) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	tool, err := loadToolConfig(ctx, cfg, cfgLoader)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration loaded.", "source", tool.Source, "extends", tool.Lint.Extends)

	validationRules := registry.New(validator.Builtins{})
	validateDisable := slices.Clone(tool.Validate.Disable)
	var lintDisable []string
	for _, name := range disable {
		if _, ok := validationRules.Lookup(name); ok {
			validateDisable = append(validateDisable, name)
		} else {
			lintDisable = append(lintDisable, name)
		}
	}

	files := loader.NewFileLoader()
	opts := []ref.Option{ref.WithFileLoader(files)}
	if tool.Validate.RemoteRefs {
		opts = append(opts, ref.WithRemote(loader.NewHTTPFetcher(tool.Validate.RemoteTimeout)))
	}
	resolver := ref.NewResolver(opts...)

	linter, err := lint.New(tool.Lint, lintDisable...)
	if err != nil {
		return nil, errs.New("app.init", errs.KindInvalidConfig, tool.Source, err)
	}
	v := validator.New(validator.Options{Resolver: resolver, Disable: validateDisable})

	if err := registry.ValidateConfig(ctx, tool, v.Registry(), linter.Registry()); err != nil {
		return nil, errs.New("app.init", errs.KindInvalidConfig, tool.Source, err)
	}
	for _, name := range lintDisable {
		if _, ok := linter.Registry().Lookup(name); !ok {
			return nil, errs.New("app.init", errs.KindInvalidConfig, "", fmt.Errorf("--disable: unknown rule %q", name))
		}
	}
	logger.Debug("Registry validation passed.",
		"validation_rules", v.Registry().Len(), "lint_rules", linter.Registry().Len())

	a := &App{
		logger:    logger,
		cfg:       cfg,
		tool:      tool,
		files:     files,
		resolver:  resolver,
		validator: v,
		linter:    linter,
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = tool.Cache.Dir
	}
	if cacheDir != "" {
		if err := a.openCache(ctx, cacheDir); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func loadToolConfig(ctx context.Context, cfg *Config, cfgLoader config.Loader) (*config.Config, error) {
	path := cfg.ConfigPath
	if path == "" {
		found, ok := hcl_adapter.FindConfigFile(cfg.WorkDir)
		if !ok {
			ctxlog.FromContext(ctx).Debug("No configuration file found, using defaults.", "dir", cfg.WorkDir)
			return config.Default(), nil
		}
		path = found
	}
	tool, err := cfgLoader.Load(ctx, path)
	if err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			return nil, errs.New("app.init", errs.KindInvalidConfig, path, err)
		}
		return nil, err
	}
	return tool, nil
}

func (a *App) openCache(ctx context.Context, dir string) error {
	store, err := resultcache.Open(ctx, dir)
	if err != nil {
		return fmt.Errorf("opening result cache: %w", err)
	}
	if a.tool.Cache.MaxAge > 0 {
		pruned, err := store.Prune(ctx, a.tool.Cache.MaxAge)
		if err != nil {
			a.logger.Warn("Result cache prune failed.", "error", err)
		} else if pruned > 0 {
			a.logger.Debug("Result cache pruned.", "removed", pruned)
		}
	}
	a.cache = store
	return nil
}

// Close releases the result cache.
func (a *App) Close() error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Close()
}

// Tool returns the tool configuration in effect.
func (a *App) Tool() *config.Config {
	return a.tool
}

// context attaches the application's logger to ctx.
func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

var _ rpc.Service = (*App)(nil)

// Load reads the spec at path and merges the files it includes.
func (a *App) Load(ctx context.Context, path string) (*loader.Document, error) {
	return a.files.LoadWithIncludes(a.context(ctx), path)
}

// ValidateDocument runs the validator over doc.
func (a *App) ValidateDocument(ctx context.Context, doc *loader.Document) (issue.List, error) {
	res, err := a.validator.Validate(a.context(ctx), doc)
	if err != nil {
		return nil, err
	}
	return res.Issues, nil
}

// LintDocument runs the linter over doc.
func (a *App) LintDocument(ctx context.Context, doc *loader.Document) (issue.List, error) {
	ctx = a.context(ctx)
	issues := a.linter.LintDocument(ctx, doc)
	return issues, ctx.Err()
}

// BundleDocument inlines the external references of doc.
func (a *App) BundleDocument(ctx context.Context, doc *loader.Document) (map[string]any, error) {
	return a.resolver.Bundle(a.context(ctx), doc)
}

// Rules lists validation rules, then lint rules, with the severity each
// runs with under the current configuration.
func (a *App) Rules() []registry.RuleInfo {
	disabled := a.validator.Disabled()
	out := a.validator.Registry().Describe("validate", func(rule *check.Rule) issue.Severity {
		if disabled[rule.Name] {
			return issue.SeverityOff
		}
		return rule.Severity
	})
	return append(out, a.linter.Registry().Describe("lint", a.linter.Severity)...)
}

// ServeRPC answers editor requests read from rwc until the peer leaves or
// ctx is done.
func (a *App) ServeRPC(ctx context.Context, rwc io.ReadWriteCloser) error {
	return rpc.NewServer(a).Serve(a.context(ctx), rwc)
}
