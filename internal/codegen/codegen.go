package codegen

import (
	"context"
	"fmt"
	"go/token"
	"os"
	"path/filepath"
	"slices"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/spec"
)

// Generation targets.
const (
	TargetModels = "models"
	TargetServer = "server"
	TargetClient = "client"
)

// Targets lists every target in generation order.
var Targets = []string{TargetModels, TargetServer, TargetClient}

type Options struct {
	// Package is the name of the generated package; "api" when empty.
	Package string
	// Targets selects what to generate; all targets when empty.
	Targets []string
	// Tests adds unit tests for the server and client targets.
	Tests bool
}

// File is one generated source file.
type File struct {
	Name    string
	Content []byte
}

type Files []File

// Names returns the file names in generation order.
func (fs Files) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// Write stores every file in dir, creating it when needed.
func (fs Files) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range fs {
		if err := os.WriteFile(filepath.Join(dir, f.Name), f.Content, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Generate produces the requested targets for sw. models is the result of
// model.Compile; definitions missing from it are typed as any.
func Generate(ctx context.Context, sw *spec.Swagger, models *model.Set, opts Options) (Files, error) {
	logger := ctxlog.Component(ctx, "codegen")

	if opts.Package == "" {
		opts.Package = "api"
	}
	if !token.IsIdentifier(opts.Package) {
		return nil, errs.New("codegen.generate", errs.KindInvalidConfig, opts.Package,
			fmt.Errorf("%q is not a valid Go package name", opts.Package))
	}
	targets := opts.Targets
	if len(targets) == 0 {
		targets = Targets
	}
	for _, t := range targets {
		if !slices.Contains(Targets, t) {
			return nil, errs.New("codegen.generate", errs.KindInvalidConfig, t,
				fmt.Errorf("unknown target %q", t))
		}
	}
	want := func(t string) bool { return slices.Contains(targets, t) }

	g := newGenerator(sw, models, opts.Package, want(TargetModels))
	if err := g.prepare(want(TargetServer)); err != nil {
		return nil, err
	}

	var files []*file
	if want(TargetModels) {
		files = append(files, g.modelsFile())
	}
	if want(TargetServer) || want(TargetClient) {
		files = append(files, g.paramsFile())
	}
	if want(TargetServer) {
		files = append(files, g.serverFile())
		if opts.Tests && len(g.ops) > 0 {
			files = append(files, g.serverTestFile())
		}
	}
	if want(TargetClient) {
		files = append(files, g.clientFile())
		if opts.Tests && len(g.ops) > 0 {
			files = append(files, g.clientTestFile())
		}
	}

	out := make(Files, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rendered, err := f.render()
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	logger.Debug("Code generated.", "package", opts.Package, "targets", targets, "files", len(out), "operations", len(g.ops))
	return out, nil
}

type generator struct {
	sw         *spec.Swagger
	models     *model.Set
	pkg        string
	withModels bool

	// names holds package-level identifiers.
	names *namer
	// types maps definition names to generated type names.
	types map[string]string
	ops   []*operation

	pending []func()
}

func newGenerator(sw *spec.Swagger, models *model.Set, pkg string, withModels bool) *generator {
	return &generator{
		sw:         sw,
		models:     models,
		pkg:        pkg,
		withModels: withModels,
		names:      newNamer("Handler", "NewRouter", "Client", "NewClient"),
		types:      make(map[string]string),
	}
}

func (g *generator) prepare(server bool) error {
	for _, name := range g.models.Names() {
		g.types[name] = g.names.name(GoName(name, true), "Model")
	}

	methods := newNamer("BaseURL", "HTTPClient")
	for _, op := range g.sw.Operations() {
		o, err := g.operation(op, methods)
		if err != nil && server {
			return err
		}
		g.ops = append(g.ops, o)
	}
	if !server {
		return nil
	}
	for i, a := range g.ops {
		for _, b := range g.ops[i+1:] {
			if conflicts(a.Pattern, b.Pattern) {
				return errs.New("codegen.route", errs.KindUnsupported, b.Path,
					fmt.Errorf("%w: route %q conflicts with %q", errs.ErrUnsupported, b.Pattern, a.Pattern))
			}
		}
	}
	return nil
}

// flush emits the nested types queued while writing a model.
func (g *generator) flush() {
	for len(g.pending) > 0 {
		next := g.pending[0]
		g.pending = g.pending[1:]
		next()
	}
}
