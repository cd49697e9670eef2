// Package loader turns Swagger documents on disk (or in memory) into raw
// decoded trees. It knows about encodings, YAML/JSON syntax, source
// positions and the "#include:" convention used to split a large spec into
// several files. It knows nothing about Swagger semantics; that is the job of
// the spec package.
package loader
