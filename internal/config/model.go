package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/issue"
)

// FileName is the configuration file looked up when --config is not given.
const FileName = ".apispec.hcl"

// Rule set presets for Lint.Extends.
const (
	ExtendsRecommended = "recommended"
	ExtendsAll         = "all"
	ExtendsOff         = "off"
)

// Checks a custom lint rule can perform.
const (
	CheckTruthy  = "truthy"
	CheckFalsy   = "falsy"
	CheckPattern = "pattern"
	CheckEnum    = "enum"
)

// Config is the unified representation of the tool configuration.
type Config struct {
	// Source is the file the configuration came from; empty for defaults.
	Source   string   `json:"-"`
	Ignore   []string `json:"ignore,omitempty"`
	Lint     Lint     `json:"lint"`
	Validate Validate `json:"validate"`
	Codegen  Codegen  `json:"codegen"`
	Docs     Docs     `json:"docs"`
	Cache    Cache    `json:"cache"`
}

type Lint struct {
	Extends string                 `json:"extends"`
	Ignore  []string               `json:"ignore,omitempty"`
	Rules   map[string]RuleSetting `json:"rules,omitempty"`
	Custom  []CustomRule           `json:"custom,omitempty"`
}

// RuleSetting overrides the defaults of one rule. Nil and empty fields keep
// the rule's defaults.
type RuleSetting struct {
	Enabled  *bool          `json:"enabled,omitempty"`
	Severity string         `json:"severity,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// CustomRule is a lint rule declared in configuration: values selected by
// the JSONPath in Given (optionally narrowed to Field) must pass Check.
type CustomRule struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Given       string   `json:"given"`
	Field       string   `json:"field,omitempty"`
	Check       string   `json:"check"`
	Pattern     string   `json:"pattern,omitempty"`
	Values      []string `json:"values,omitempty"`
	Message     string   `json:"message,omitempty"`
	Severity    string   `json:"severity,omitempty"`
}

type Validate struct {
	Disable       []string      `json:"disable,omitempty"`
	RemoteRefs    bool          `json:"remote_refs"`
	RemoteTimeout time.Duration `json:"remote_timeout"`
}

type Codegen struct {
	Package string   `json:"package"`
	Output  string   `json:"output"`
	Targets []string `json:"targets"`
	Tests   bool     `json:"tests"`
}

type Docs struct {
	Title    string        `json:"title,omitempty"`
	Addr     string        `json:"addr"`
	Debounce time.Duration `json:"debounce"`
}

type Cache struct {
	Dir    string        `json:"dir,omitempty"`
	MaxAge time.Duration `json:"max_age"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Lint: Lint{
			Extends: ExtendsRecommended,
			Rules:   map[string]RuleSetting{},
		},
		Validate: Validate{
			RemoteTimeout: 30 * time.Second,
		},
		Codegen: Codegen{
			Package: "api",
			Output:  "gen",
			Targets: []string{"models", "server", "client"},
		},
		Docs: Docs{
			Addr:     "127.0.0.1:8080",
			Debounce: 250 * time.Millisecond,
		},
		Cache: Cache{
			MaxAge: 7 * 24 * time.Hour,
		},
	}
}

var (
	identifier     = regexp.MustCompile(`^[a-z][a-z0-9]*([.-][a-z0-9]+)*$`)
	validTargets   = []string{"models", "server", "client"}
	validExtends   = []string{ExtendsRecommended, ExtendsAll, ExtendsOff}
	validChecks    = []string{CheckTruthy, CheckFalsy, CheckPattern, CheckEnum}
	goPackageIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Check verifies values that do not depend on which rules exist. Unknown
// rule names are checked by the registry.
func (c *Config) Check() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if !slices.Contains(validExtends, c.Lint.Extends) {
		add("lint.extends: %q must be one of %s", c.Lint.Extends, strings.Join(validExtends, ", "))
	}
	for name, rs := range c.Lint.Rules {
		if rs.Severity != "" {
			if _, err := issue.ParseSeverity(rs.Severity); err != nil {
				add("lint.rule %q: %v", name, err)
			}
		}
	}

	seen := map[string]bool{}
	for _, cr := range c.Lint.Custom {
		where := fmt.Sprintf("lint.custom %q", cr.Name)
		if !identifier.MatchString(cr.Name) {
			add("%s: name must be lower-case words separated by '-' or '.'", where)
		}
		if seen[cr.Name] {
			add("%s: declared more than once", where)
		}
		seen[cr.Name] = true
		if cr.Given == "" {
			add("%s: given is required", where)
		}
		if !slices.Contains(validChecks, cr.Check) {
			add("%s: check %q must be one of %s", where, cr.Check, strings.Join(validChecks, ", "))
		}
		if cr.Check == CheckPattern {
			if cr.Pattern == "" {
				add("%s: pattern is required for check %q", where, cr.Check)
			} else if _, err := regexp.Compile(cr.Pattern); err != nil {
				add("%s: invalid pattern: %v", where, err)
			}
		}
		if cr.Check == CheckEnum && len(cr.Values) == 0 {
			add("%s: values are required for check %q", where, cr.Check)
		}
		if cr.Severity != "" {
			if _, err := issue.ParseSeverity(cr.Severity); err != nil {
				add("%s: %v", where, err)
			}
		}
	}

	if c.Validate.RemoteTimeout < 0 {
		add("validate.remote_timeout must not be negative")
	}
	if !goPackageIdent.MatchString(c.Codegen.Package) {
		add("codegen.package: %q is not a valid Go package name", c.Codegen.Package)
	}
	for _, t := range c.Codegen.Targets {
		if !slices.Contains(validTargets, t) {
			add("codegen.targets: %q must be one of %s", t, strings.Join(validTargets, ", "))
		}
	}
	if c.Docs.Debounce < 0 {
		add("docs.debounce must not be negative")
	}
	if c.Cache.MaxAge < 0 {
		add("cache.max_age must not be negative")
	}

	if len(problems) == 0 {
		return nil
	}
	slices.Sort(problems)
	return errs.New("config.validate", errs.KindInvalidConfig, c.Source,
		fmt.Errorf("invalid configuration:\n- %s", strings.Join(problems, "\n- ")))
}

// Fingerprint identifies the settings that influence validate and lint
// results. It is part of result cache keys.
func (c *Config) Fingerprint() string {
	relevant := struct {
		Lint     Lint     `json:"lint"`
		Validate Validate `json:"validate"`
	}{c.Lint, c.Validate}
	// Maps marshal with sorted keys, so the encoding is stable.
	b, err := json.Marshal(relevant)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", relevant))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
