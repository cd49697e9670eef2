// Package config defines the format-agnostic tool configuration: lint rule
// settings and custom rules, validation switches, code generation and
// documentation defaults, and the result cache. Concrete file formats live
// in separate packages (see hcl_adapter) and produce a *Config.
package config
