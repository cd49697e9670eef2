// Package dag provides a small concurrency-safe directed graph used wherever
// the toolchain has to reason about "A needs B" relationships between
// documents or references: the include graph of split spec files and the
// alias chains of $ref-only schemas. Its main job is to report cycles with a
// readable path.
package dag
