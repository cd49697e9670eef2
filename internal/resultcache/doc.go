// Package resultcache stores validate and lint results in a SQLite
// database so unchanged documents are not checked twice.
//
// Entries are keyed by a hash of everything that can change a result: the
// tool version, the configuration fingerprint, the command and the document
// content (every file of an include tree).
package resultcache
