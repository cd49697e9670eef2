package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/apispec/internal/codegen"
	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/issue"
)

// ErrInvalidSpec is returned when a spec with errors is used to generate
// code or documentation that requires a valid one.
var ErrInvalidSpec = errors.New("spec has validation errors")

// GenerateResult lists what Generate wrote. Issues are the validation
// findings of the spec.
type GenerateResult struct {
	Dir    string
	Files  codegen.Files
	Issues issue.List
}

// Generate validates the spec at path and writes the code selected by opts
// into dir. Nothing is written when the spec has errors.
func (a *App) Generate(ctx context.Context, path, dir string, opts codegen.Options) (*GenerateResult, error) {
	ctx = a.context(ctx)
	logger := ctxlog.Component(ctx, "app").With("path", path)

	doc, err := a.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	res, err := a.validator.Validate(ctx, doc)
	if err != nil {
		return nil, err
	}
	result := &GenerateResult{Dir: dir, Issues: res.Issues}
	if res.Issues.HasErrors() {
		return result, errs.New("app.generate", errs.KindInvalidSpec, path, ErrInvalidSpec)
	}

	files, err := codegen.Generate(ctx, res.Spec, res.Models, opts)
	if err != nil {
		return result, err
	}
	if err := files.Write(dir); err != nil {
		return result, fmt.Errorf("writing generated code: %w", err)
	}
	result.Files = files

	logger.Info("✨ Code generated.", "dir", dir, "package", opts.Package, "files", files.Names())
	return result, nil
}
