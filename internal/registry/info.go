package registry

import (
	"github.com/vk/apispec/internal/check"
	"github.com/vk/apispec/internal/issue"
)

// RuleInfo describes a rule for catalogues. Enabled is false when the
// effective severity is off.
type RuleInfo struct {
	Name        string         `json:"name"`
	Set         string         `json:"set"`
	Description string         `json:"description"`
	Severity    issue.Severity `json:"severity"`
	Enabled     bool           `json:"enabled"`
	Recommended bool           `json:"recommended"`
	Options     map[string]any `json:"options,omitempty"`
}

// Describe lists the rules of r under set. severity gives the severity a
// rule runs with; nil means the rule's default.
func (r *Registry) Describe(set string, severity func(*check.Rule) issue.Severity) []RuleInfo {
	rules := r.Rules()
	out := make([]RuleInfo, 0, len(rules))
	for _, rule := range rules {
		sev := rule.Severity
		if severity != nil {
			sev = severity(rule)
		}
		out = append(out, RuleInfo{
			Name:        rule.Name,
			Set:         set,
			Description: rule.Description,
			Severity:    sev,
			Enabled:     sev != issue.SeverityOff,
			Recommended: rule.Recommended,
			Options:     rule.Options,
		})
	}
	return out
}
