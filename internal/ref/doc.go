// Package ref implements JSON Reference handling for spec documents:
// collecting "$ref" values, resolving them against the local document, a
// file next to it or a remote URL, reporting unresolved references and
// alias cycles, and bundling a multi-file spec into one self-contained
// document.
package ref
