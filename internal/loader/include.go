package loader

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/pointer"
)

// IncludeDirective is the comment prefix that pulls another spec file into
// the including one.
const IncludeDirective = "#include:"

// ExtractIncludes returns the include statements of raw, in the order they
// appear.
func ExtractIncludes(raw []byte) []string {
	var includes []string
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, IncludeDirective) {
			continue
		}
		target := strings.TrimSpace(strings.TrimPrefix(line, IncludeDirective))
		if target != "" {
			includes = append(includes, target)
		}
	}
	return includes
}

// Merge folds src into dst. For each top-level key: mappings are merged with
// src entries replacing dst entries, sequences are concatenated, and absent
// keys are copied. When both sides hold scalars dst wins.
func Merge(dst, src *Document) {
	if dst.Data == nil {
		dst.Data = make(map[string]any)
	}
	if dst.Positions == nil {
		dst.Positions = make(map[string]issue.Position)
	}
	if dst.Origins == nil {
		dst.Origins = make(map[string]string)
	}
	if dst.Literals == nil {
		dst.Literals = make(map[string]string)
	}

	for key, incoming := range src.Data {
		top := pointer.New(key)
		existing, present := dst.Data[key]
		if !present {
			dst.Data[key] = incoming
			dst.adopt(src, top, top)
			continue
		}

		switch cur := existing.(type) {
		case map[string]any:
			in, ok := incoming.(map[string]any)
			if !ok {
				continue
			}
			for k, v := range in {
				cur[k] = v
				child := top.Append(k)
				dst.forget(child)
				dst.adopt(src, child, child)
			}
		case []any:
			in, ok := incoming.([]any)
			if !ok {
				continue
			}
			offset := len(cur)
			dst.Data[key] = append(cur, in...)
			for i := range in {
				dst.adopt(src, top.AppendIndex(i), top.AppendIndex(offset+i))
			}
		}
	}
}

// adopt records that the subtree at to came from src's subtree at from.
func (d *Document) adopt(src *Document, from, to pointer.Pointer) {
	if origin := src.OriginOf(from.String()); origin != "" {
		d.Origins[to.String()] = origin
	}
	for raw, pos := range src.Positions {
		p, err := pointer.Parse(raw)
		if err != nil || !p.HasPrefix(from) {
			continue
		}
		d.Positions[to.Append(p[len(from):]...).String()] = pos
	}
	for raw, text := range src.Literals {
		p, err := pointer.Parse(raw)
		if err != nil || !p.HasPrefix(from) {
			continue
		}
		d.Literals[to.Append(p[len(from):]...).String()] = text
	}
	for raw, file := range src.Origins {
		p, err := pointer.Parse(raw)
		if err != nil || !p.HasPrefix(from) || len(p) == len(from) {
			continue
		}
		d.Origins[to.Append(p[len(from):]...).String()] = file
	}
}

// forget drops positions and origins recorded beneath a replaced subtree.
func (d *Document) forget(at pointer.Pointer) {
	for raw := range d.Positions {
		if p, err := pointer.Parse(raw); err == nil && p.HasPrefix(at) {
			delete(d.Positions, raw)
		}
	}
	for raw := range d.Origins {
		if p, err := pointer.Parse(raw); err == nil && p.HasPrefix(at) {
			delete(d.Origins, raw)
		}
	}
	for raw := range d.Literals {
		if p, err := pointer.Parse(raw); err == nil && p.HasPrefix(at) {
			delete(d.Literals, raw)
		}
	}
}
