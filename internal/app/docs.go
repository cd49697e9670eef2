package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/docs"
)

// DocsOptions tune BuildDocs and ServeDocs. Empty fields take the values
// of the configuration file.
type DocsOptions struct {
	Title string
	Addr  string
}

// BuildDocs renders the spec at path into a single HTML page written to
// out.
func (a *App) BuildDocs(ctx context.Context, path, out string, opts DocsOptions) (*docs.Summary, error) {
	ctx = a.context(ctx)
	b, err := a.buildDocs(ctx, path, a.docsTitle(opts), false)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(out, b.HTML, 0o644); err != nil {
		return nil, fmt.Errorf("writing docs: %w", err)
	}
	ctxlog.Component(ctx, "app").Info("📖 Docs written.", "path", out, "summary", b.Summary.String())
	return &b.Summary, nil
}

// NewDocsServer prepares a live-reloading docs server for the spec at path.
// It watches the spec and the files it includes.
func (a *App) NewDocsServer(ctx context.Context, path string, opts DocsOptions) *docs.Server {
	ctx = a.context(ctx)

	watch := []string{path}
	if doc, err := a.Load(ctx, path); err == nil {
		included := map[string]bool{}
		for _, file := range doc.Origins {
			if file != path {
				included[file] = true
			}
		}
		for file := range included {
			watch = append(watch, file)
		}
		sort.Strings(watch[1:])
	}

	addr := opts.Addr
	if addr == "" {
		addr = a.tool.Docs.Addr
	}
	title := a.docsTitle(opts)
	cfg := docs.ServerConfig{Addr: addr, Watch: watch, Debounce: a.tool.Docs.Debounce}
	return docs.NewServer(ctx, cfg, func(ctx context.Context) (*docs.Build, error) {
		return a.buildDocs(ctx, path, title, true)
	})
}

// ServeDocs serves the docs of the spec at path until ctx is done.
func (a *App) ServeDocs(ctx context.Context, path string, opts DocsOptions) error {
	return a.NewDocsServer(ctx, path, opts).Run(a.context(ctx))
}

func (a *App) docsTitle(opts DocsOptions) string {
	if opts.Title != "" {
		return opts.Title
	}
	return a.tool.Docs.Title
}

func (a *App) buildDocs(ctx context.Context, path, title string, live bool) (*docs.Build, error) {
	logger := ctxlog.Component(ctx, "app").With("path", path)

	doc, err := a.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	res, err := a.validator.Validate(ctx, doc)
	if err != nil {
		return nil, err
	}

	html, err := docs.Render(res.Spec, res.Models, docs.Options{Title: title, LiveReload: live, Issues: res.Issues})
	if err != nil {
		return nil, err
	}

	data, err := a.BundleDocument(ctx, doc)
	if err != nil {
		logger.Warn("Bundling failed, serving the spec as loaded.", "error", err)
		data = doc.Data
	}
	specJSON, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}

	return &docs.Build{
		HTML:    html,
		Spec:    specJSON,
		Summary: docs.Summarize(res.Spec, res.Issues, time.Now()),
	}, nil
}
