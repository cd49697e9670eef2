package loader

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/pointer"
)

// maxAliasDepth bounds alias expansion so "billion laughs" documents fail
// instead of exhausting memory.
const maxAliasDepth = 64

// Decode parses YAML or JSON bytes into a Document. A byte order mark selects
// UTF-16 or UTF-8 decoding; without one the input is treated as UTF-8.
func Decode(raw []byte) (*Document, error) {
	text, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return nil, errs.New("loader.decode", errs.KindParse, "", fmt.Errorf("decoding text: %w", err))
	}

	if len(bytes.TrimSpace(text)) == 0 {
		return nil, errs.New("loader.decode", errs.KindParse, "", errors.New("document is empty"))
	}

	var root yaml.Node
	if err := yaml.Unmarshal(text, &root); err != nil {
		return nil, errs.New("loader.decode", errs.KindParse, "", err)
	}

	body := &root
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, errs.New("loader.decode", errs.KindParse, "", errors.New("document is empty"))
		}
		body = root.Content[0]
	}
	if resolveAlias(body).Kind != yaml.MappingNode {
		return nil, errs.New("loader.decode", errs.KindParse, "",
			fmt.Errorf("line %d: top-level value must be a mapping", body.Line))
	}

	c := &converter{positions: make(map[string]issue.Position), literals: make(map[string]string)}
	c.positions[""] = issue.Position{Line: body.Line, Column: body.Column}
	value, err := c.convert(body, pointer.Pointer{}, 0)
	if err != nil {
		return nil, errs.New("loader.decode", errs.KindParse, "", err)
	}

	return &Document{
		Raw:       raw,
		Data:      value.(map[string]any),
		Positions: c.positions,
		Literals:  c.literals,
		Includes:  ExtractIncludes(text),
	}, nil
}

type converter struct {
	positions map[string]issue.Position
	literals  map[string]string
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func (c *converter) convert(n *yaml.Node, at pointer.Pointer, depth int) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return c.convert(n.Content[0], at, depth)

	case yaml.AliasNode:
		if depth >= maxAliasDepth {
			return nil, fmt.Errorf("line %d: alias nesting exceeds %d levels", n.Line, maxAliasDepth)
		}
		return c.convert(n.Alias, at, depth+1)

	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		var merges []*yaml.Node
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if key.ShortTag() == "!!merge" {
				merges = append(merges, val)
				continue
			}
			child := at.Append(key.Value)
			c.positions[child.String()] = issue.Position{Line: key.Line, Column: key.Column}
			v, err := c.convert(val, child, depth)
			if err != nil {
				return nil, err
			}
			m[key.Value] = v
		}
		for _, merge := range merges {
			if err := c.applyMerge(m, merge, at, depth); err != nil {
				return nil, err
			}
		}
		return m, nil

	case yaml.SequenceNode:
		s := make([]any, 0, len(n.Content))
		for i, item := range n.Content {
			child := at.AppendIndex(i)
			c.positions[child.String()] = issue.Position{Line: item.Line, Column: item.Column}
			v, err := c.convert(item, child, depth)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		return s, nil

	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			c.literals[at.String()] = n.Value
		}
		return scalar(n)
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

// applyMerge implements the YAML "<<" merge key: keys from the merged
// mapping(s) are added unless the mapping already defines them.
func (c *converter) applyMerge(dst map[string]any, merge *yaml.Node, at pointer.Pointer, depth int) error {
	v, err := c.convert(merge, at, depth+1)
	if err != nil {
		return err
	}
	var sources []any
	switch src := v.(type) {
	case map[string]any:
		sources = []any{src}
	case []any:
		sources = src
	default:
		return fmt.Errorf("line %d: merge key requires a mapping or a list of mappings", merge.Line)
	}
	for _, s := range sources {
		sm, ok := s.(map[string]any)
		if !ok {
			return fmt.Errorf("line %d: merge key requires a mapping or a list of mappings", merge.Line)
		}
		for k, val := range sm {
			if _, exists := dst[k]; !exists {
				dst[k] = val
			}
		}
	}
	return nil
}

func scalar(n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return b, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return i, nil
		}
		// Out of int64 range: keep the magnitude as a float.
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return f, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return f, nil
	}
	// Strings, timestamps and binary stay textual.
	return n.Value, nil
}
