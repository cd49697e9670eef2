package spec

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/pointer"
)

// Names of the findings Build can produce.
const (
	RuleRequired          = "structure.required"
	RuleType              = "structure.type"
	RuleParameterLocation = "structure.parameter-location"
	RuleDialect           = "dialect.version"
)

// Version is the only dialect this package builds.
const Version = "2.0"

// Build converts doc into typed objects. The returned *Swagger is never nil.
func Build(ctx context.Context, doc *loader.Document) (*Swagger, issue.List) {
	logger := ctxlog.Component(ctx, "spec")

	b := &builder{literals: doc.Literals}
	sw := b.swagger(doc.Data)

	logger.Debug("Spec objects built.",
		"path", doc.Path,
		"paths", len(sw.Paths),
		"definitions", len(sw.Definitions),
		"issues", len(b.issues),
	)
	return sw, b.issues
}

type builder struct {
	issues issue.List
	// literals is the source text of numeric scalars.
	literals map[string]string
}

func (b *builder) report(rule string, at pointer.Pointer, format string, args ...any) {
	b.issues = append(b.issues, issue.New(rule, issue.SeverityError, at, format, args...))
}

func (b *builder) missing(at pointer.Pointer, key, where string) {
	b.report(RuleRequired, at, "missing required key %q in %s", key, where)
}

func (b *builder) wrongType(at pointer.Pointer, want string, got any) {
	b.report(RuleType, at, "expected %s, got %s", want, kindOf(got))
}

func (b *builder) swagger(data map[string]any) *Swagger {
	root := pointer.Pointer{}
	sw := &Swagger{Data: data, Extensions: extensions(data)}

	if v, ok := data["openapi"]; ok {
		b.report(RuleDialect, root.Append("openapi"), "OpenAPI %v documents are not supported: only Swagger %s is", v, Version)
		sw.Info = b.info(data, root)
		return sw
	}

	switch v := data["swagger"].(type) {
	case nil:
		if _, present := data["swagger"]; present {
			b.wrongType(root.Append("swagger"), "a string", v)
		} else {
			b.missing(root, "swagger", "the document")
		}
	case string:
		sw.Swagger = v
		if v != Version {
			b.report(RuleDialect, root.Append("swagger"), "unsupported swagger version %q: expected %q", v, Version)
		}
	default:
		b.wrongType(root.Append("swagger"), `the string "2.0"`, v)
	}

	sw.Info = b.info(data, root)
	sw.Host = b.str(data, "host", root)
	sw.BasePath = b.str(data, "basePath", root)
	sw.Schemes = b.strs(data, "schemes", root)
	sw.Consumes = b.strs(data, "consumes", root)
	sw.Produces = b.strs(data, "produces", root)
	sw.ExternalDocs = b.externalDocs(data, root)

	sw.Definitions = b.definitions(data, root)
	sw.Parameters = b.namedParameters(data, root)
	sw.Responses = b.namedResponses(data, root)
	sw.SecurityDefinitions = b.securityDefinitions(data, root)
	sw.Security = b.securityRequirements(data, root)
	sw.Tags = b.tags(data, root)

	if _, ok := data["paths"]; !ok {
		b.missing(root, "paths", "the document")
	}
	sw.Paths = b.paths(data, root)
	return sw
}

// Value helpers. Each reports a structure.type finding and returns the zero
// value when the key holds something else.

func (b *builder) object(v any, at pointer.Pointer) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		b.wrongType(at, "an object", v)
	}
	return m, ok
}

func (b *builder) mapping(m map[string]any, key string, at pointer.Pointer) map[string]any {
	v, ok := m[key]
	if !ok {
		return nil
	}
	obj, _ := b.object(v, at.Append(key))
	return obj
}

func (b *builder) list(m map[string]any, key string, at pointer.Pointer) []any {
	v, ok := m[key]
	if !ok {
		return nil
	}
	l, ok := v.([]any)
	if !ok {
		b.wrongType(at.Append(key), "an array", v)
	}
	return l
}

func (b *builder) str(m map[string]any, key string, at pointer.Pointer) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		b.wrongType(at.Append(key), "a string", v)
	}
	return s
}

// text is str that also accepts numbers, for values YAML authors often
// leave unquoted such as "version: 1.0".
// text reads a string that authors often leave unquoted, such as a version.
// Numbers keep their source spelling when it is known.
func (b *builder) text(m map[string]any, key string, at pointer.Pointer) string {
	switch m[key].(type) {
	case int64, float64:
		if lit, ok := b.literals[at.Append(key).String()]; ok {
			return lit
		}
	}
	switch v := m[key].(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return b.str(m, key, at)
}

func (b *builder) boolean(m map[string]any, key string, at pointer.Pointer) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	bv, ok := v.(bool)
	if !ok {
		b.wrongType(at.Append(key), "a boolean", v)
	}
	return bv
}

func (b *builder) number(m map[string]any, key string, at pointer.Pointer) *float64 {
	v, ok := m[key]
	if !ok {
		return nil
	}
	f, ok := ToFloat(v)
	if !ok {
		b.wrongType(at.Append(key), "a number", v)
		return nil
	}
	return &f
}

func (b *builder) integer(m map[string]any, key string, at pointer.Pointer) *int64 {
	v, ok := m[key]
	if !ok {
		return nil
	}
	f, ok := ToFloat(v)
	if !ok || f != float64(int64(f)) || f < 0 {
		b.wrongType(at.Append(key), "a non-negative integer", v)
		return nil
	}
	i := int64(f)
	return &i
}

func (b *builder) strs(m map[string]any, key string, at pointer.Pointer) []string {
	items := b.list(m, key, at)
	if items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			b.wrongType(at.Append(key).AppendIndex(i), "a string", item)
			continue
		}
		out = append(out, s)
	}
	return out
}

func (b *builder) validations(m map[string]any, at pointer.Pointer) Validations {
	v := Validations{
		Maximum:          b.number(m, "maximum", at),
		ExclusiveMaximum: b.boolean(m, "exclusiveMaximum", at),
		Minimum:          b.number(m, "minimum", at),
		ExclusiveMinimum: b.boolean(m, "exclusiveMinimum", at),
		MaxLength:        b.integer(m, "maxLength", at),
		MinLength:        b.integer(m, "minLength", at),
		Pattern:          b.str(m, "pattern", at),
		MaxItems:         b.integer(m, "maxItems", at),
		MinItems:         b.integer(m, "minItems", at),
		UniqueItems:      b.boolean(m, "uniqueItems", at),
		Enum:             b.list(m, "enum", at),
		MultipleOf:       b.number(m, "multipleOf", at),
	}
	if v.MultipleOf != nil && *v.MultipleOf <= 0 {
		b.report(RuleType, at.Append("multipleOf"), "multipleOf must be greater than 0")
		v.MultipleOf = nil
	}
	return v
}

// extensions collects the "x-" keys of m.
func extensions(m map[string]any) Extensions {
	var ext Extensions
	for k, v := range m {
		if strings.HasPrefix(k, "x-") {
			if ext == nil {
				ext = make(Extensions)
			}
			ext[k] = v
		}
	}
	return ext
}

// ToFloat converts the numeric representations a decoded document may hold.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, int:
		return "integer"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
