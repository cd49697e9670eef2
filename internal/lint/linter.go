package lint

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vk/apispec/internal/check"
	"github.com/vk/apispec/internal/config"
	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/registry"
	"github.com/vk/apispec/internal/spec"
)

// Linter runs the configured style rules. It is safe for concurrent use
// once constructed.
type Linter struct {
	registry *registry.Registry
	cfg      config.Lint
	disabled map[string]bool
	custom   map[string]bool
}

// New builds a linter from configuration. disable names rules switched off
// on the command line. Custom rules that do not compile are an error.
func New(cfg config.Lint, disable ...string) (*Linter, error) {
	reg := registry.New(Builtins{})
	custom := make(map[string]bool, len(cfg.Custom))
	for _, cr := range cfg.Custom {
		if _, taken := reg.Lookup(cr.Name); taken {
			return nil, fmt.Errorf("custom rule %q: name is taken by a built-in rule", cr.Name)
		}
		rule, err := CustomRule(cr)
		if err != nil {
			return nil, err
		}
		reg.Register(rule)
		custom[cr.Name] = true
	}
	l := &Linter{registry: reg, cfg: cfg, disabled: map[string]bool{}, custom: custom}
	for _, name := range disable {
		l.disabled[name] = true
	}
	return l, nil
}

// Registry exposes the linter's rules, custom ones included.
func (l *Linter) Registry() *registry.Registry {
	return l.registry
}

// Ignored reports whether path matches one of the lint ignore globs.
func (l *Linter) Ignored(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range l.cfg.Ignore {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}

// Severity returns the severity rule runs with under the configuration.
// SeverityOff means the rule does not run.
func (l *Linter) Severity(rule *check.Rule) issue.Severity {
	if l.disabled[rule.Name] {
		return issue.SeverityOff
	}

	sev := issue.SeverityOff
	switch {
	case l.custom[rule.Name]:
		// Declared rules run whatever the preset.
		sev = rule.Severity
	case l.cfg.Extends == config.ExtendsAll:
		sev = rule.Severity
	case l.cfg.Extends == config.ExtendsOff:
	default:
		if rule.Recommended {
			sev = rule.Severity
		}
	}

	setting, ok := l.cfg.Rules[rule.Name]
	if !ok {
		return sev
	}
	if setting.Severity != "" {
		// Validated with the configuration.
		if parsed, err := issue.ParseSeverity(setting.Severity); err == nil {
			sev = parsed
		}
	} else if setting.Enabled != nil && *setting.Enabled && sev == issue.SeverityOff {
		sev = rule.Severity
	}
	if setting.Enabled != nil && !*setting.Enabled {
		sev = issue.SeverityOff
	}
	return sev
}

// Lint runs every enabled rule against subj. Findings are located in the
// document and ordered by path, then rule.
func (l *Linter) Lint(ctx context.Context, subj *check.Subject) issue.List {
	logger := ctxlog.Component(ctx, "lint").With("path", subj.Doc.Path)

	var issues issue.List
	ran := 0
	for _, rule := range l.registry.Rules() {
		if ctx.Err() != nil {
			break
		}
		sev := l.Severity(rule)
		if sev == issue.SeverityOff {
			continue
		}
		ran++
		issues = append(issues, check.Run(ctx, rule, subj, sev, l.cfg.Rules[rule.Name].Options)...)
	}

	issues = silenced(issues, inlineDisables(subj.Doc.Data))
	issues = subj.Doc.Locate(issues)
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Rule < b.Rule
	})

	logger.Debug("Lint finished.", "rules", ran, "issues", len(issues))
	return issues
}

// LintDocument builds doc and lints it. Structural problems are left to the
// validator; rules see whatever could be built.
func (l *Linter) LintDocument(ctx context.Context, doc *loader.Document) issue.List {
	sw, _ := spec.Build(ctx, doc)
	models, _ := model.Compile(sw)
	return l.Lint(ctx, &check.Subject{Doc: doc, Spec: sw, Models: models})
}
