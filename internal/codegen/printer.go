package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strings"
)

const generatedHeader = "// Code generated by apispec. DO NOT EDIT.\n\n"

// file accumulates the body of one Go source file and the imports it uses.
type file struct {
	name    string
	pkg     string
	imports map[string]bool
	body    bytes.Buffer
}

func newFile(name, pkg string) *file {
	return &file{name: name, pkg: pkg, imports: make(map[string]bool)}
}

func (f *file) use(paths ...string) {
	for _, p := range paths {
		f.imports[p] = true
	}
}

// p writes one line.
func (f *file) p(format string, args ...any) {
	fmt.Fprintf(&f.body, format, args...)
	f.body.WriteByte('\n')
}

// comment writes text as line comments, skipping empty text.
func (f *file) comment(text string) {
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			f.p("// %s", line)
		}
	}
}

func (f *file) render() (File, error) {
	var src bytes.Buffer
	src.WriteString(generatedHeader)
	fmt.Fprintf(&src, "package %s\n\n", f.pkg)
	if len(f.imports) > 0 {
		paths := make([]string, 0, len(f.imports))
		for p := range f.imports {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		src.WriteString("import (\n")
		for _, p := range paths {
			fmt.Fprintf(&src, "\t%q\n", p)
		}
		src.WriteString(")\n\n")
	}
	src.Write(f.body.Bytes())

	out, err := format.Source(src.Bytes())
	if err != nil {
		return File{}, fmt.Errorf("generated %s is not valid Go: %w", f.name, err)
	}
	return File{Name: f.name, Content: out}, nil
}
