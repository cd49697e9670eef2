package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/vk/apispec/internal/batch"
	"github.com/vk/apispec/internal/buildinfo"
	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/fsutil"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/ref"
	"github.com/vk/apispec/internal/resultcache"
)

// Commands recorded in result cache entries.
const (
	CommandValidate = "validate"
	CommandLint     = "lint"
)

// ErrNoSpecs is returned when the given paths hold no spec documents.
var ErrNoSpecs = errors.New("no spec files found")

// FileResult is the outcome of checking one spec file. Err is set when the
// file could not be loaded; Issues are the findings otherwise.
type FileResult struct {
	Path   string
	Issues issue.List
	Cached bool
	Err    error
}

// Results holds one FileResult per checked file, in path order.
type Results []FileResult

// Issues returns the findings of every file.
func (r Results) Issues() issue.List {
	var all issue.List
	for _, fr := range r {
		all = append(all, fr.Issues...)
	}
	return all
}

// Err joins the load errors of every file.
func (r Results) Err() error {
	var all []error
	for _, fr := range r {
		if fr.Err != nil {
			all = append(all, fr.Err)
		}
	}
	return errors.Join(all...)
}

// Validate checks every spec file found under paths.
func (a *App) Validate(ctx context.Context, paths []string) (Results, error) {
	return a.checkAll(ctx, CommandValidate, paths, a.ValidateDocument)
}

// Lint runs the style rules over every spec file found under paths. Files
// matching the lint ignore globs are skipped.
func (a *App) Lint(ctx context.Context, paths []string) (Results, error) {
	return a.checkAll(ctx, CommandLint, paths, a.LintDocument)
}

type checked struct {
	issues issue.List
	cached bool
}

func (a *App) checkAll(ctx context.Context, command string, paths []string, run func(context.Context, *loader.Document) (issue.List, error)) (Results, error) {
	ctx = a.context(ctx)
	logger := ctxlog.Component(ctx, "app").With("command", command)

	files, err := a.specFiles(paths)
	if err != nil {
		return nil, err
	}
	if command == CommandLint {
		files = slices.DeleteFunc(files, a.lintIgnored)
	}
	logger.Info("🔎 Checking spec files.", "files", len(files), "workers", a.cfg.Workers)

	out := batch.Run(ctx, files, a.cfg.Workers, func(ctx context.Context, path string) (checked, error) {
		return a.checkFile(ctx, command, path, run)
	})

	results := make(Results, len(out))
	cached := 0
	for i, r := range out {
		results[i] = FileResult{Path: r.Input, Issues: r.Value.issues, Cached: r.Value.cached, Err: r.Err}
		if r.Value.cached {
			cached++
		}
	}
	logger.Info("🏁 Check finished.", "files", len(results), "issues", len(results.Issues()), "cached", cached)
	return results, ctx.Err()
}

// lintIgnored matches the lint ignore globs against path as given and
// relative to the working directory.
func (a *App) lintIgnored(path string) bool {
	if a.linter.Ignored(path) {
		return true
	}
	rel, err := filepath.Rel(a.cfg.WorkDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return a.linter.Ignored(rel)
}

func (a *App) specFiles(paths []string) ([]string, error) {
	files, err := fsutil.FindSpecs(paths, a.tool.Ignore)
	if err != nil {
		kind := errs.KindInvalidConfig
		if errors.Is(err, os.ErrNotExist) {
			kind = errs.KindNotFound
		}
		return nil, errs.New("app.find", kind, strings.Join(paths, ", "), err)
	}
	if len(files) == 0 {
		return nil, errs.New("app.find", errs.KindNotFound, strings.Join(paths, ", "), ErrNoSpecs)
	}
	return files, nil
}

func (a *App) checkFile(ctx context.Context, command, path string, run func(context.Context, *loader.Document) (issue.List, error)) (checked, error) {
	logger := ctxlog.Component(ctx, "app").With("command", command, "path", path)

	doc, err := a.Load(ctx, path)
	if err != nil {
		return checked{}, err
	}

	key, cacheable := a.cacheKey(command, doc)
	if cacheable {
		issues, ok, err := a.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("Result cache read failed.", "error", err)
		case ok:
			logger.Debug("Result cache hit.")
			return checked{issues: issues, cached: true}, nil
		}
	}

	issues, err := run(ctx, doc)
	if err != nil {
		return checked{}, err
	}
	if cacheable {
		if err := a.cache.Put(ctx, key, command, issues); err != nil {
			logger.Warn("Result cache write failed.", "error", err)
		}
	}
	return checked{issues: issues}, nil
}

// cacheKey covers the entry file and the files it includes. Documents with
// external references are never cached: their targets are not part of the
// key.
func (a *App) cacheKey(command string, doc *loader.Document) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	for _, r := range ref.Collect(doc.Data) {
		if !r.IsLocal() {
			return "", false
		}
	}

	included := map[string]bool{}
	for _, file := range doc.Origins {
		if file != doc.Path {
			included[file] = true
		}
	}
	names := make([]string, 0, len(included))
	for name := range included {
		names = append(names, name)
	}
	sort.Strings(names)

	contents := [][]byte{doc.Raw}
	for _, name := range names {
		b, err := os.ReadFile(name)
		if err != nil {
			return "", false
		}
		contents = append(contents, []byte(name), b)
	}
	return resultcache.Key(buildinfo.Version, a.tool.Fingerprint(), command, contents...), true
}
