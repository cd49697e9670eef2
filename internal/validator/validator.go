package validator

import (
	"context"
	"maps"
	"slices"

	"github.com/vk/apispec/internal/check"
	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/ref"
	"github.com/vk/apispec/internal/registry"
	"github.com/vk/apispec/internal/spec"
)

// Result is the outcome of validating one document.
type Result struct {
	Spec   *spec.Swagger
	Models *model.Set
	Issues issue.List
}

// Valid reports whether the document has no error findings.
func (r *Result) Valid() bool {
	return !r.Issues.HasErrors()
}

// Options tune a Validator.
type Options struct {
	// Resolver resolves $ref values. Defaults to a file-only resolver.
	Resolver *ref.Resolver
	// Disable names rules that must not run.
	Disable []string
}

// Validator runs a registry of rules over documents. It is safe for
// concurrent use once constructed.
type Validator struct {
	registry *registry.Registry
	resolver *ref.Resolver
	disabled map[string]bool
}

// New creates a validator whose registry is populated by modules. Without
// modules the built-in checks are registered.
func New(opts Options, modules ...registry.Module) *Validator {
	if len(modules) == 0 {
		modules = []registry.Module{Builtins{}}
	}
	v := &Validator{
		registry: registry.New(modules...),
		resolver: opts.Resolver,
		disabled: make(map[string]bool, len(opts.Disable)),
	}
	if v.resolver == nil {
		v.resolver = ref.NewResolver()
	}
	for _, name := range opts.Disable {
		v.disabled[name] = true
	}
	return v
}

// Register adds a rule to the validator.
func (v *Validator) Register(rule *check.Rule) {
	v.registry.Register(rule)
}

// Registry exposes the validator's rules.
func (v *Validator) Registry() *registry.Registry {
	return v.registry
}

// Resolver returns the reference resolver the validator uses.
func (v *Validator) Resolver() *ref.Resolver {
	return v.resolver
}

// Disabled returns the names of the rules that do not run.
func (v *Validator) Disabled() map[string]bool {
	return maps.Clone(v.disabled)
}

// Validate builds doc and runs every enabled rule. The error is non-nil
// only when ctx is done; problems with the document are findings.
func (v *Validator) Validate(ctx context.Context, doc *loader.Document) (*Result, error) {
	logger := ctxlog.Component(ctx, "validator").With("path", doc.Path)
	logger.Debug("Validation started.")

	sw, prechecked := spec.Build(ctx, doc)
	prechecked = append(prechecked, v.resolver.Check(ctx, doc)...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	models, err := model.Compile(sw)
	if err != nil {
		logger.Debug("Some definitions did not compile.", "failures", len(models.Failures()))
	}

	subj := &check.Subject{Doc: doc, Spec: sw, Models: models, Prechecked: prechecked}
	issues := Run(ctx, v.registry, subj, func(rule *check.Rule) issue.Severity {
		if v.disabled[rule.Name] {
			return issue.SeverityOff
		}
		return rule.Severity
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	issues = doc.Locate(issues)
	issues.Sort()

	logger.Debug("Validation finished.", "issues", len(issues), "valid", !issues.HasErrors())
	return &Result{Spec: sw, Models: models, Issues: issues}, nil
}

// Run executes every rule of reg against subj with the severity chosen by
// severity. It stops early when ctx is done.
func Run(ctx context.Context, reg *registry.Registry, subj *check.Subject, severity func(*check.Rule) issue.Severity) issue.List {
	var out issue.List
	for _, rule := range reg.Rules() {
		if ctx.Err() != nil {
			break
		}
		out = append(out, check.Run(ctx, rule, subj, severity(rule), nil)...)
	}
	return slices.Clip(out)
}
