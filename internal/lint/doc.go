// Package lint checks the style of a Swagger 2.0 document.
//
// Style rules are ordinary check.Rule values registered in the linter's own
// registry. The rule set to run is chosen by configuration: "extends" picks
// a preset, per-rule settings override severity and options, and custom
// rules select values with JSONPath and test them. Findings can be silenced
// for a subtree with an "x-lint-disable" extension.
package lint
