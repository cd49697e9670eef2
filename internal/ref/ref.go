package ref

import (
	"sort"
	"strings"

	"github.com/vk/apispec/internal/pointer"
)

// Key is the JSON Reference keyword.
const Key = "$ref"

// Ref is a single reference found in a document.
type Ref struct {
	// Value is the raw reference, e.g. "#/definitions/Pet".
	Value string
	// At locates the object that holds the "$ref" key.
	At pointer.Pointer
}

// IsLocal reports whether the reference points into the same document.
func (r Ref) IsLocal() bool {
	return strings.HasPrefix(r.Value, "#")
}

// IsRemote reports whether the reference is an http(s) URL.
func (r Ref) IsRemote() bool {
	return isURL(r.Value)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Split separates a reference into its location and fragment parts.
func Split(ref string) (location, fragment string) {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		return ref[:i], ref[i:]
	}
	return ref, ""
}

// Collect returns every reference in data in document order (keys sorted).
// Only string "$ref" values count.
func Collect(data any) []Ref {
	var refs []Ref
	walk(data, pointer.Pointer{}, func(m map[string]any, at pointer.Pointer) {
		if v, ok := m[Key].(string); ok {
			refs = append(refs, Ref{Value: v, At: at})
		}
	})
	return refs
}

// walk calls fn for every mapping in v, parents before children.
func walk(v any, at pointer.Pointer, fn func(map[string]any, pointer.Pointer)) {
	switch node := v.(type) {
	case map[string]any:
		fn(node, at)
		for _, k := range sortedKeys(node) {
			walk(node[k], at.Append(k), fn)
		}
	case []any:
		for i, item := range node {
			walk(item, at.AppendIndex(i), fn)
		}
	}
}

// refOnly reports whether m is a pure alias: a "$ref" with nothing but
// extensions next to it.
func refOnly(m map[string]any) (string, bool) {
	v, ok := m[Key].(string)
	if !ok {
		return "", false
	}
	for k := range m {
		if k != Key && !strings.HasPrefix(k, "x-") {
			return "", false
		}
	}
	return v, true
}

// deepCopy clones a decoded tree.
func deepCopy(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, val := range node {
			out[i] = deepCopy(val)
		}
		return out
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
