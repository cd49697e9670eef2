package loader

import (
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/pointer"
)

// Document is a decoded spec document.
type Document struct {
	// Path is the file the document was read from; empty for in-memory input.
	Path string
	// Raw holds the original bytes of the entry file.
	Raw []byte
	// Data is the decoded tree. Mapping keys are always strings.
	Data map[string]any
	// Positions maps JSON pointers to the source location of the key (or
	// item) that introduced the value.
	Positions map[string]issue.Position
	// Literals keeps the source text of numeric scalars by JSON pointer, so
	// "version: 1.0" can still be read as "1.0".
	Literals map[string]string
	// Includes lists the "#include:" statements of the entry file.
	Includes []string
	// Origins records which file contributed a subtree when includes were
	// merged in. Pointers absent from Origins come from Path.
	Origins map[string]string
}

// OriginOf returns the file that contributed the value at path.
func (d *Document) OriginOf(path string) string {
	if len(d.Origins) > 0 {
		if p, err := pointer.Parse(path); err == nil {
			for {
				if file, ok := d.Origins[p.String()]; ok {
					return file
				}
				if len(p) == 0 {
					break
				}
				p = p.Parent()
			}
		}
	}
	return d.Path
}

// Locate stamps each issue with the file and source position its path
// points into.
func (d *Document) Locate(issues issue.List) issue.List {
	out := make(issue.List, 0, len(issues))
	for _, i := range issues {
		located := issue.List{i}.WithFile(d.OriginOf(i.Path), d.Positions)
		out = append(out, located[0])
	}
	return out
}
