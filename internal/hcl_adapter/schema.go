package hcl_adapter

import "github.com/zclconf/go-cty/cty"

// fileRoot is the decoding target for a whole configuration file. Unknown
// blocks and attributes are decode errors.
type fileRoot struct {
	Ignore   []string       `hcl:"ignore,optional"`
	Lint     *LintBlock     `hcl:"lint,block"`
	Validate *ValidateBlock `hcl:"validate,block"`
	Codegen  *CodegenBlock  `hcl:"codegen,block"`
	Docs     *DocsBlock     `hcl:"docs,block"`
	Cache    *CacheBlock    `hcl:"cache,block"`
}

type LintBlock struct {
	Extends *string        `hcl:"extends,optional"`
	Ignore  []string       `hcl:"ignore,optional"`
	Rules   []*RuleBlock   `hcl:"rule,block"`
	Custom  []*CustomBlock `hcl:"custom,block"`
}

type RuleBlock struct {
	Name     string    `hcl:"name,label"`
	Enabled  *bool     `hcl:"enabled,optional"`
	Severity *string   `hcl:"severity,optional"`
	Options  cty.Value `hcl:"options,optional"`
}

type CustomBlock struct {
	Name        string   `hcl:"name,label"`
	Description *string  `hcl:"description,optional"`
	Given       string   `hcl:"given"`
	Field       *string  `hcl:"field,optional"`
	Check       string   `hcl:"check"`
	Pattern     *string  `hcl:"pattern,optional"`
	Values      []string `hcl:"values,optional"`
	Message     *string  `hcl:"message,optional"`
	Severity    *string  `hcl:"severity,optional"`
}

type ValidateBlock struct {
	Disable       []string `hcl:"disable,optional"`
	RemoteRefs    *bool    `hcl:"remote_refs,optional"`
	RemoteTimeout *string  `hcl:"remote_timeout,optional"`
}

type CodegenBlock struct {
	Package *string  `hcl:"package,optional"`
	Output  *string  `hcl:"output,optional"`
	Targets []string `hcl:"targets,optional"`
	Tests   *bool    `hcl:"tests,optional"`
}

type DocsBlock struct {
	Title    *string `hcl:"title,optional"`
	Addr     *string `hcl:"addr,optional"`
	Debounce *string `hcl:"debounce,optional"`
}

type CacheBlock struct {
	Dir    *string `hcl:"dir,optional"`
	MaxAge *string `hcl:"max_age,optional"`
}
