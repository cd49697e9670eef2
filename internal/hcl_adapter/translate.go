package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/apispec/internal/config"
	"github.com/vk/apispec/internal/ctxlog"
)

// translate applies the decoded HCL blocks on top of cfg.
func translate(ctx context.Context, root *fileRoot, cfg *config.Config) error {
	logger := ctxlog.Component(ctx, "config")

	if root.Ignore != nil {
		cfg.Ignore = root.Ignore
	}

	if lb := root.Lint; lb != nil {
		setString(&cfg.Lint.Extends, lb.Extends)
		if lb.Ignore != nil {
			cfg.Lint.Ignore = lb.Ignore
		}
		for _, rb := range lb.Rules {
			if _, dup := cfg.Lint.Rules[rb.Name]; dup {
				return fmt.Errorf("lint: rule %q is configured more than once", rb.Name)
			}
			setting := config.RuleSetting{Enabled: rb.Enabled}
			setString(&setting.Severity, rb.Severity)
			if !rb.Options.IsNull() {
				opts, err := optionsToNative(rb.Options)
				if err != nil {
					return fmt.Errorf("lint: rule %q: options: %w", rb.Name, err)
				}
				setting.Options = opts
			}
			logger.Debug("Translating rule setting.", "rule", rb.Name, "options", len(setting.Options))
			cfg.Lint.Rules[rb.Name] = setting
		}
		for _, cb := range lb.Custom {
			cr := config.CustomRule{
				Name:   cb.Name,
				Given:  cb.Given,
				Check:  cb.Check,
				Values: cb.Values,
			}
			setString(&cr.Description, cb.Description)
			setString(&cr.Field, cb.Field)
			setString(&cr.Pattern, cb.Pattern)
			setString(&cr.Message, cb.Message)
			setString(&cr.Severity, cb.Severity)
			cfg.Lint.Custom = append(cfg.Lint.Custom, cr)
		}
	}

	if vb := root.Validate; vb != nil {
		if vb.Disable != nil {
			cfg.Validate.Disable = vb.Disable
		}
		if vb.RemoteRefs != nil {
			cfg.Validate.RemoteRefs = *vb.RemoteRefs
		}
		if err := setDuration(&cfg.Validate.RemoteTimeout, vb.RemoteTimeout, "validate.remote_timeout"); err != nil {
			return err
		}
	}

	if cb := root.Codegen; cb != nil {
		setString(&cfg.Codegen.Package, cb.Package)
		setString(&cfg.Codegen.Output, cb.Output)
		if cb.Targets != nil {
			cfg.Codegen.Targets = cb.Targets
		}
		if cb.Tests != nil {
			cfg.Codegen.Tests = *cb.Tests
		}
	}

	if db := root.Docs; db != nil {
		setString(&cfg.Docs.Title, db.Title)
		setString(&cfg.Docs.Addr, db.Addr)
		if err := setDuration(&cfg.Docs.Debounce, db.Debounce, "docs.debounce"); err != nil {
			return err
		}
	}

	if cb := root.Cache; cb != nil {
		setString(&cfg.Cache.Dir, cb.Dir)
		if err := setDuration(&cfg.Cache.MaxAge, cb.MaxAge, "cache.max_age"); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = d
	return nil
}

// optionsToNative converts a rule's options object.
func optionsToNative(v cty.Value) (map[string]any, error) {
	if !v.Type().IsObjectType() && !v.Type().IsMapType() {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	m, _ := native.(map[string]any)
	return m, nil
}
