package check

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/pointer"
	"github.com/vk/apispec/internal/spec"
)

// Subject is everything a rule may inspect.
type Subject struct {
	Doc    *loader.Document
	Spec   *spec.Swagger
	Models *model.Set
	// Prechecked holds findings made while building Spec and resolving
	// references. Rules that own those findings re-emit them so they can be
	// disabled like any other rule.
	Prechecked issue.List
}

// Rule is a named check.
type Rule struct {
	Name        string
	Description string
	// Severity is the default severity of the rule's findings.
	Severity issue.Severity
	// Recommended rules run when a rule set extends "recommended".
	Recommended bool
	// Options holds the default value of every option the rule accepts.
	Options map[string]any
	Run     func(ctx context.Context, p *Pass)
}

// OptionNames returns the names of the rule's options in lexical order.
func (r *Rule) OptionNames() []string {
	names := make([]string, 0, len(r.Options))
	for n := range r.Options {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Pass is one execution of a rule against a subject.
type Pass struct {
	*Subject
	Rule     *Rule
	Severity issue.Severity
	options  map[string]any
	issues   issue.List
}

// Run executes rule against subj. A SeverityOff severity skips the rule.
// Configured options override the rule's defaults key by key.
func Run(ctx context.Context, rule *Rule, subj *Subject, sev issue.Severity, options map[string]any) issue.List {
	if sev == issue.SeverityOff {
		return nil
	}
	merged := make(map[string]any, len(rule.Options)+len(options))
	for k, v := range rule.Options {
		merged[k] = v
	}
	for k, v := range options {
		merged[k] = v
	}

	p := &Pass{Subject: subj, Rule: rule, Severity: sev, options: merged}
	rule.Run(ctx, p)

	ctxlog.Component(ctx, "check").Debug("Rule finished.", "rule", rule.Name, "issues", len(p.issues))
	return p.issues
}

// Report records a finding at the given location.
func (p *Pass) Report(at pointer.Pointer, format string, args ...any) {
	p.issues = append(p.issues, issue.New(p.Rule.Name, p.Severity, at, format, args...))
}

// Reemit records an existing finding under this rule's name and severity.
func (p *Pass) Reemit(i issue.Issue) {
	i.Rule = p.Rule.Name
	i.Severity = p.Severity
	p.issues = append(p.issues, i)
}

// Option returns the value of an option.
func (p *Pass) Option(name string) any {
	return p.options[name]
}

// String returns a string option, or "" when it is unset or not a string.
func (p *Pass) String(name string) string {
	s, _ := p.options[name].(string)
	return s
}

// Strings returns a list-of-strings option. A single string is accepted as
// a one-element list.
func (p *Pass) Strings(name string) []string {
	switch v := p.options[name].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Reemitter returns a Run function that re-emits the prechecked findings
// recorded under the given rule name.
func Reemitter(name string) func(context.Context, *Pass) {
	return func(_ context.Context, p *Pass) {
		for _, i := range p.Prechecked {
			if i.Rule == name {
				p.Reemit(i)
			}
		}
	}
}
