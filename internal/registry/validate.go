package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/apispec/internal/config"
	"github.com/vk/apispec/internal/ctxlog"
)

// ValidateConfig performs a strict parity check between the configuration
// and the registered rules: every rule the configuration names must exist,
// custom lint rules must not shadow built-in ones, and rule options must be
// known and of the default's type.
func ValidateConfig(ctx context.Context, cfg *config.Config, validation, lint *Registry) error {
	var errs []string
	logger := ctxlog.Component(ctx, "registry")

	for _, name := range cfg.Validate.Disable {
		if _, ok := validation.Lookup(name); !ok {
			errs = append(errs, fmt.Sprintf("validate.disable: unknown validation rule '%s'", name))
		}
	}

	custom := make(map[string]bool, len(cfg.Lint.Custom))
	for _, cr := range cfg.Lint.Custom {
		custom[cr.Name] = true
		if _, ok := lint.Lookup(cr.Name); ok {
			errs = append(errs, fmt.Sprintf("lint.custom '%s': name is taken by a built-in rule", cr.Name))
		}
	}

	names := make([]string, 0, len(cfg.Lint.Rules))
	for name := range cfg.Lint.Rules {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		setting := cfg.Lint.Rules[name]
		rule, ok := lint.Lookup(name)
		if !ok {
			if custom[name] {
				if len(setting.Options) > 0 {
					errs = append(errs, fmt.Sprintf("lint.rule '%s': custom rules take no options", name))
				}
				continue
			}
			errs = append(errs, fmt.Sprintf("lint.rule '%s': unknown lint rule", name))
			continue
		}

		optNames := make([]string, 0, len(setting.Options))
		for opt := range setting.Options {
			optNames = append(optNames, opt)
		}
		sort.Strings(optNames)

		for _, opt := range optNames {
			def, known := rule.Options[opt]
			if !known {
				errs = append(errs, fmt.Sprintf("lint.rule '%s': unknown option '%s'", name, opt))
				continue
			}
			if def == nil {
				logger.Warn("Rule option has no default, which disables type checking.", "rule", name, "option", opt)
				continue
			}
			want, got := optionKind(def), optionKind(setting.Options[opt])
			if want != got {
				errs = append(errs, fmt.Sprintf("lint.rule '%s', option '%s': type mismatch. Rule expects %s but configuration provides %s",
					name, opt, want, got))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func optionKind(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case int, int64, float64:
		return "number"
	case bool:
		return "bool"
	case []any, []string:
		return "list"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
