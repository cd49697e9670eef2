// Package validator checks that a Swagger 2.0 document is correct.
//
// Validation runs in two stages. The document is first built into spec
// objects, its references are checked and its definitions are compiled into
// models; those stages record structural findings. Then every registered
// rule runs against the result. The structural findings are themselves
// re-emitted by rules, so any finding can be switched off by rule name.
package validator
