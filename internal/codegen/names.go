package codegen

import (
	"go/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vk/apispec/internal/lint"
	"github.com/vk/apispec/internal/spec"
)

var initialisms = map[string]bool{
	"API": true, "HTML": true, "HTTP": true, "HTTPS": true, "ID": true,
	"IP": true, "JSON": true, "URI": true, "URL": true, "UUID": true, "XML": true,
}

// GoName turns an API name such as "pet_id" or "list-pets" into a Go
// identifier ("PetID", "ListPets"). It returns "" when name has no letters
// or digits.
func GoName(name string, exported bool) string {
	title := cases.Title(language.Und)
	lower := cases.Lower(language.Und)

	var b strings.Builder
	for i, w := range lint.Words(name) {
		up := strings.ToUpper(w)
		switch {
		case i == 0 && !exported:
			b.WriteString(lower.String(w))
		case initialisms[up]:
			b.WriteString(up)
		default:
			b.WriteString(title.String(w))
		}
	}
	s := b.String()
	if s == "" {
		return ""
	}
	if r, _ := utf8.DecodeRuneInString(s); unicode.IsDigit(r) {
		if exported {
			s = "N" + s
		} else {
			s = "n" + s
		}
	}
	if token.IsKeyword(s) {
		s += "_"
	}
	return s
}

// operationName prefers the operationId and falls back to method and path.
func operationName(op *spec.Operation) string {
	if op.OperationID != "" {
		if n := GoName(op.OperationID, true); n != "" {
			return n
		}
	}
	return GoName(op.Method+" "+op.Path, true)
}

// namer hands out unique identifiers within one scope.
type namer struct {
	used map[string]bool
}

func newNamer(reserved ...string) *namer {
	n := &namer{used: make(map[string]bool)}
	for _, r := range reserved {
		n.used[r] = true
	}
	return n
}

// name returns base, or base with the lowest free numeric suffix. An empty
// base is replaced by fallback.
func (n *namer) name(base, fallback string) string {
	if base == "" {
		base = fallback
	}
	name := base
	for i := 2; n.used[name]; i++ {
		name = base + strconv.Itoa(i)
	}
	n.used[name] = true
	return name
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
