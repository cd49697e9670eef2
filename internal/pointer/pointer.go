// Package pointer implements RFC 6901 JSON Pointers over decoded documents
// (map[string]any / []any trees). Pointers address $ref targets and locate
// findings inside a spec.
package pointer

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Pointer is a parsed JSON Pointer. The empty pointer addresses the whole
// document.
type Pointer []string

var tokenEscaper = strings.NewReplacer("~", "~0", "/", "~1")
var tokenUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

// New builds a pointer from raw (unescaped) tokens.
func New(tokens ...string) Pointer {
	p := make(Pointer, len(tokens))
	copy(p, tokens)
	return p
}

// Parse parses the canonical string form, e.g. "/paths/~1pets/get".
func Parse(raw string) (Pointer, error) {
	if raw == "" {
		return Pointer{}, nil
	}
	if raw[0] != '/' {
		return nil, fmt.Errorf("json pointer %q must start with '/'", raw)
	}

	parts := strings.Split(raw[1:], "/")
	p := make(Pointer, 0, len(parts))
	for _, part := range parts {
		if err := checkEscapes(part); err != nil {
			return nil, fmt.Errorf("json pointer %q: %w", raw, err)
		}
		p = append(p, tokenUnescaper.Replace(part))
	}
	return p, nil
}

// ParseFragment parses the fragment part of a reference such as
// "#/definitions/Pet". A bare "#" yields the empty pointer. The fragment may
// be percent-encoded.
func ParseFragment(fragment string) (Pointer, error) {
	fragment = strings.TrimPrefix(fragment, "#")
	unescaped, err := url.PathUnescape(fragment)
	if err != nil {
		return nil, fmt.Errorf("invalid fragment %q: %w", fragment, err)
	}
	return Parse(unescaped)
}

// checkEscapes rejects a '~' that is not followed by '0' or '1'.
func checkEscapes(token string) error {
	for i := 0; i < len(token); i++ {
		if token[i] != '~' {
			continue
		}
		if i+1 >= len(token) || (token[i+1] != '0' && token[i+1] != '1') {
			return fmt.Errorf("invalid escape sequence in token %q", token)
		}
	}
	return nil
}

// String serializes the pointer into its canonical representation.
func (p Pointer) String() string {
	if len(p) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, tok := range p {
		sb.WriteByte('/')
		sb.WriteString(tokenEscaper.Replace(tok))
	}
	return sb.String()
}

// Fragment renders the pointer as a local reference, e.g. "#/definitions/Pet".
func (p Pointer) Fragment() string {
	return "#" + p.String()
}

// Append returns a new pointer with tokens added. The receiver is never
// modified.
func (p Pointer) Append(tokens ...string) Pointer {
	out := make(Pointer, 0, len(p)+len(tokens))
	out = append(out, p...)
	return append(out, tokens...)
}

// AppendIndex appends an array index token.
func (p Pointer) AppendIndex(i int) Pointer {
	return p.Append(strconv.Itoa(i))
}

// Parent returns the pointer without its last token.
func (p Pointer) Parent() Pointer {
	if len(p) == 0 {
		return p
	}
	return New(p[:len(p)-1]...)
}

// Last returns the final token, or "" for the root pointer.
func (p Pointer) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// HasPrefix reports whether prefix addresses p itself or one of its ancestors.
func (p Pointer) HasPrefix(prefix Pointer) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal checks token-wise equality.
func (p Pointer) Equal(other Pointer) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// Get walks doc and returns the addressed value.
func (p Pointer) Get(doc any) (any, error) {
	cur := doc
	for i, tok := range p {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[tok]
			if !ok {
				return nil, fmt.Errorf("%s: key %q not found", New(p[:i+1]...), tok)
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("%s: invalid array index %q", New(p[:i+1]...), tok)
			}
			cur = node[idx]
		default:
			kind := "null"
			if node != nil {
				kind = reflect.TypeOf(node).Kind().String()
			}
			return nil, fmt.Errorf("%s: cannot descend into %s", New(p[:i]...), kind)
		}
	}
	return cur, nil
}
