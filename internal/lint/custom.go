package lint

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"

	"github.com/vk/apispec/internal/check"
	"github.com/vk/apispec/internal/config"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/pointer"
)

// KeyField makes a custom rule test the keys of the selected objects
// instead of one of their values.
const KeyField = "@key"

// CustomRule compiles a configured rule into a check.Rule.
func CustomRule(cr config.CustomRule) (*check.Rule, error) {
	selector, err := jsonpath.New(cr.Given)
	if err != nil {
		return nil, fmt.Errorf("custom rule %q: invalid given %q: %w", cr.Name, cr.Given, err)
	}
	sev := issue.SeverityWarn
	if cr.Severity != "" {
		if sev, err = issue.ParseSeverity(cr.Severity); err != nil {
			return nil, fmt.Errorf("custom rule %q: %w", cr.Name, err)
		}
	}
	var re *regexp.Regexp
	if cr.Check == config.CheckPattern {
		if re, err = regexp.Compile(cr.Pattern); err != nil {
			return nil, fmt.Errorf("custom rule %q: invalid pattern: %w", cr.Name, err)
		}
	}

	c := &custom{rule: cr, selector: selector, pattern: re, multi: isMulti(cr.Given)}
	if parent, member, ok := splitMember(cr.Given); ok {
		if sel, err := jsonpath.New(parent); err == nil {
			c.parent, c.parentMulti, c.member = sel, isMulti(parent), member
		}
	}
	description := cr.Description
	if description == "" {
		description = fmt.Sprintf("Values at %s pass the %s check.", cr.Given, cr.Check)
	}
	return &check.Rule{
		Name:        cr.Name,
		Description: description,
		Severity:    sev,
		Recommended: true,
		Run:         c.run,
	}, nil
}

type custom struct {
	rule     config.CustomRule
	selector gval.Evaluable
	pattern  *regexp.Regexp
	multi    bool

	// parent selects the objects holding the matched member when Given ends
	// in a plain member access. It locates non-object matches exactly.
	parent      gval.Evaluable
	parentMulti bool
	member      string
}

var memberTail = regexp.MustCompile(`^(.*[^.])(?:\.([A-Za-z_][\w-]*)|\[\s*'([^']*)'\s*\]|\[\s*"([^"]*)"\s*\])$`)

// splitMember splits "$.info.title" into "$.info" and "title".
func splitMember(expr string) (parent, member string, ok bool) {
	m := memberTail.FindStringSubmatch(strings.TrimSpace(expr))
	if m == nil {
		return "", "", false
	}
	for _, name := range m[2:] {
		if name != "" {
			return m[1], name, true
		}
	}
	return "", "", false
}

// isMulti reports whether a JSONPath expression can select several values,
// in which case evaluation yields a list of matches.
func isMulti(expr string) bool {
	return strings.ContainsAny(expr, "*?,:") || strings.Contains(expr, "..")
}

// target is one value a custom rule tests.
type target struct {
	at    pointer.Pointer
	value any
	found bool
}

func (c *custom) run(ctx context.Context, p *check.Pass) {
	data := p.Doc.Data
	for _, m := range c.matches(ctx, data) {
		for _, t := range c.targets(m.at, m.value) {
			if msg, ok := c.test(t); !ok {
				p.Report(t.at, "%s", msg)
			}
		}
	}
}

type match struct {
	at    pointer.Pointer
	value any
}

// matches evaluates the selector and locates every match. Objects are found
// by identity. Other values are found through their parent objects when the
// selector allows it, and otherwise by their first unclaimed occurrence in
// document order.
func (c *custom) matches(ctx context.Context, data map[string]any) []match {
	values, ok := evaluate(ctx, c.selector, c.multi, data)
	if !ok {
		return nil
	}

	index := indexObjects(data)
	var out []match
	var loose []any
	for _, v := range values {
		if at, ok := objectPath(index, v); ok {
			out = append(out, match{at: at, value: v})
		} else {
			loose = append(loose, v)
		}
	}
	if len(loose) == 0 {
		return out
	}

	if c.parent != nil {
		parents, _ := evaluate(ctx, c.parent, c.parentMulti, data)
		for _, pv := range parents {
			obj, isObj := pv.(map[string]any)
			at, traced := objectPath(index, pv)
			if !isObj || !traced {
				continue
			}
			if v, has := obj[c.member]; has {
				if _, nested := v.(map[string]any); !nested {
					out = append(out, match{at: at.Append(c.member), value: v})
				}
			}
		}
		return out
	}

	leaves := valueLeaves(data)
	claimed := make([]bool, len(leaves))
	for _, v := range loose {
		at := pointer.Pointer{}
		for i, l := range leaves {
			if !claimed[i] && reflect.DeepEqual(l.value, v) {
				claimed[i], at = true, l.at
				break
			}
		}
		out = append(out, match{at: at, value: v})
	}
	return out
}

func evaluate(ctx context.Context, sel gval.Evaluable, multi bool, data any) ([]any, bool) {
	result, err := sel(ctx, data)
	if err != nil {
		// Plain paths fail on missing keys, which is simply no match.
		return nil, false
	}
	if multi {
		list, _ := result.([]any)
		return list, true
	}
	return []any{result}, true
}

func (c *custom) targets(at pointer.Pointer, match any) []target {
	switch c.rule.Field {
	case "":
		return []target{{at: at, value: match, found: true}}
	case KeyField:
		obj, ok := match.(map[string]any)
		if !ok {
			return nil
		}
		var out []target
		for _, k := range sortedNames(obj) {
			out = append(out, target{at: at.Append(k), value: k, found: true})
		}
		return out
	}
	obj, ok := match.(map[string]any)
	if !ok {
		return nil
	}
	v, found := obj[c.rule.Field]
	return []target{{at: at.Append(c.rule.Field), value: v, found: found}}
}

// test applies the check and returns the failure message.
func (c *custom) test(t target) (string, bool) {
	var ok bool
	var want string
	switch c.rule.Check {
	case config.CheckTruthy:
		ok, want = t.found && truthy(t.value), "must be set"
	case config.CheckFalsy:
		ok, want = !t.found || !truthy(t.value), "must not be set"
	case config.CheckPattern:
		s, isString := t.value.(string)
		ok = t.found && isString && c.pattern.MatchString(s)
		want = fmt.Sprintf("must match %q", c.rule.Pattern)
	case config.CheckEnum:
		ok = t.found && slices.Contains(c.rule.Values, fmt.Sprint(t.value))
		want = fmt.Sprintf("must be one of %s", strings.Join(c.rule.Values, ", "))
	}
	if ok {
		return "", true
	}
	if c.rule.Message != "" {
		return strings.ReplaceAll(c.rule.Message, "{value}", fmt.Sprint(t.value)), false
	}
	name := c.rule.Field
	if name == "" || name == KeyField {
		name = "value"
	}
	if t.found && t.value != nil {
		return fmt.Sprintf("%s %s (got %v)", name, want, t.value), false
	}
	return fmt.Sprintf("%s %s", name, want), false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}

// indexObjects maps every object in the tree to its location. Objects are
// keyed by identity so a JSONPath match can be traced back.
func indexObjects(data map[string]any) map[uintptr]pointer.Pointer {
	index := map[uintptr]pointer.Pointer{}
	var walk func(v any, at pointer.Pointer)
	walk = func(v any, at pointer.Pointer) {
		switch node := v.(type) {
		case map[string]any:
			index[reflect.ValueOf(node).Pointer()] = at
			for k, child := range node {
				walk(child, at.Append(k))
			}
		case []any:
			for i, child := range node {
				walk(child, at.AppendIndex(i))
			}
		}
	}
	walk(data, pointer.Pointer{})
	return index
}

// objectPath locates an object match.
func objectPath(index map[uintptr]pointer.Pointer, v any) (pointer.Pointer, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	at, ok := index[reflect.ValueOf(m).Pointer()]
	return at, ok
}

// valueLeaves lists every non-object value in document order, keys sorted.
func valueLeaves(data map[string]any) []match {
	var out []match
	var walk func(v any, at pointer.Pointer)
	walk = func(v any, at pointer.Pointer) {
		switch node := v.(type) {
		case map[string]any:
			for _, k := range sortedNames(node) {
				walk(node[k], at.Append(k))
			}
			return
		case []any:
			out = append(out, match{at: at, value: node})
			for i, child := range node {
				walk(child, at.AppendIndex(i))
			}
			return
		}
		out = append(out, match{at: at, value: v})
	}
	walk(data, pointer.Pointer{})
	return out
}
