// Package registry holds the named rules of one rule set.
//
// The validator and the linter each own a Registry. Rules are contributed by
// modules at construction time; a duplicate name is a programming error and
// panics. Before rules run, ValidateConfig checks that the tool
// configuration only names rules and options that exist, so a typo in a
// config file fails loudly instead of silently doing nothing.
package registry
