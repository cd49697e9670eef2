// Package check defines the rule abstraction shared by the validator and
// the linter. A Rule inspects a Subject (the loaded document plus the
// objects built from it) and reports findings through a Pass.
package check
