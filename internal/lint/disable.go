package lint

import (
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/pointer"
)

// DisableKey is the extension that silences findings inside an object.
// Its value is true for every rule or a list of rule names.
const DisableKey = "x-lint-disable"

type disable struct {
	at    pointer.Pointer
	all   bool
	rules map[string]bool
}

// inlineDisables collects the x-lint-disable extensions of a document.
func inlineDisables(data map[string]any) []disable {
	var out []disable
	var walk func(v any, at pointer.Pointer)
	walk = func(v any, at pointer.Pointer) {
		switch node := v.(type) {
		case map[string]any:
			if raw, ok := node[DisableKey]; ok {
				d := disable{at: at, rules: map[string]bool{}}
				switch x := raw.(type) {
				case bool:
					d.all = x
				case string:
					d.rules[x] = true
				case []any:
					for _, item := range x {
						if name, ok := item.(string); ok {
							d.rules[name] = true
						}
					}
				}
				if d.all || len(d.rules) > 0 {
					out = append(out, d)
				}
			}
			for _, k := range sortedNames(node) {
				walk(node[k], at.Append(k))
			}
		case []any:
			for i, child := range node {
				walk(child, at.AppendIndex(i))
			}
		}
	}
	walk(data, pointer.Pointer{})
	return out
}

// silenced drops the findings located under an object that disables their
// rule.
func silenced(issues issue.List, disables []disable) issue.List {
	if len(disables) == 0 {
		return issues
	}
	return issues.Filter(func(i issue.Issue) bool {
		at, err := pointer.Parse(i.Path)
		if err != nil {
			return true
		}
		for _, d := range disables {
			if at.HasPrefix(d.at) && (d.all || d.rules[i.Rule]) {
				return false
			}
		}
		return true
	})
}
