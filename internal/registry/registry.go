package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/apispec/internal/check"
)

// Module is the interface that all rule modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the rules of one rule set, keyed by name.
type Registry struct {
	rules map[string]*check.Rule
}

// New creates a registry populated by the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{rules: make(map[string]*check.Rule)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a rule. It panics when the name is empty, already taken or
// the rule has nothing to run.
func (r *Registry) Register(rule *check.Rule) {
	if rule == nil || rule.Name == "" {
		panic("rule must have a name")
	}
	if rule.Run == nil {
		panic(fmt.Sprintf("rule '%s' has no Run function", rule.Name))
	}
	if _, exists := r.rules[rule.Name]; exists {
		panic(fmt.Sprintf("rule with name '%s' already registered", rule.Name))
	}
	slog.Debug("Registering rule.", "name", rule.Name, "severity", rule.Severity)
	r.rules[rule.Name] = rule
}

// Lookup returns the named rule.
func (r *Registry) Lookup(name string) (*check.Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// Rules returns every rule ordered by name.
func (r *Registry) Rules() []*check.Rule {
	out := make([]*check.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every rule name in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.rules))
	for n := range r.rules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}
