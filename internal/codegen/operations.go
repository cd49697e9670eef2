package codegen

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/spec"
)

var (
	pathVar   = regexp.MustCompile(`^\{([^{}]+)\}$`)
	inlineVar = regexp.MustCompile(`\{([^{}]+)\}`)
)

type operation struct {
	*spec.Operation
	// Name is the Go method name on Handler and Client.
	Name   string
	Params string
	// Pattern is the http.ServeMux pattern, e.g. "GET /v1/pets/{petID}".
	Pattern  string
	Segments []segment
	Fields   []*param
	Body     *param
	// Files lists formData file parameters, which are left to the handler.
	Files []string
}

// segment is a piece of the request path: literal text or one parameter.
type segment struct {
	Literal string
	Var     string
	Param   *param
}

type param struct {
	*spec.Parameter
	Field string
	// Type is the Go type of non-body parameters: string, int64, float64,
	// bool or []string.
	Type   string
	Wild   string
	Multi  bool
	Format string
}

func (g *generator) operation(op *spec.Operation, methods *namer) (*operation, error) {
	o := &operation{Operation: op}
	o.Name = methods.name(operationName(op), "Operation")
	o.Params = g.names.name(o.Name+"Params", "")

	fields := newNamer()
	for _, p := range g.sw.EffectiveParameters(op) {
		if p.In == "body" {
			if o.Body == nil {
				o.Body = &param{Parameter: p, Field: fields.name(GoName(p.Name, true), "Body")}
			}
			continue
		}
		if p.Type == "file" {
			o.Files = append(o.Files, p.Name)
			continue
		}
		pr := &param{
			Parameter: p,
			Field:     fields.name(GoName(p.Name, true), "Param"),
			Type:      paramType(p),
			Format:    p.CollectionFormat,
		}
		if pr.Format == "" || pr.Format == "multi" {
			pr.Multi = pr.Format == "multi" && (p.In == "query" || p.In == "formData")
			pr.Format = "csv"
		}
		o.Fields = append(o.Fields, pr)
	}

	return o, g.route(o)
}

// route fills in the ServeMux pattern and the client path segments.
func (g *generator) route(o *operation) error {
	base := strings.TrimRight(g.sw.BasePath, "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	wild := newNamer()

	var pattern strings.Builder
	pattern.WriteString(base)
	lit := base
	var routeErr error
	for _, part := range strings.Split(strings.TrimPrefix(o.Path, "/"), "/") {
		pattern.WriteByte('/')
		lit += "/"
		m := pathVar.FindStringSubmatch(part)
		if m == nil {
			pattern.WriteString(part)
			if !strings.ContainsAny(part, "{}") {
				lit += part
				continue
			}
			if routeErr == nil {
				routeErr = errs.New("codegen.route", errs.KindUnsupported, o.Path,
					fmt.Errorf("%w: segment %q mixes text and a parameter", errs.ErrUnsupported, part))
			}
			// The client can still build such paths piece by piece.
			prev := 0
			for _, loc := range inlineVar.FindAllStringSubmatchIndex(part, -1) {
				lit += part[prev:loc[0]]
				o.Segments = append(o.Segments, segment{Literal: lit})
				lit = ""
				o.Segments = append(o.Segments, o.pathSegment(part[loc[2]:loc[3]], ""))
				prev = loc[1]
			}
			lit += part[prev:]
			continue
		}

		w := wild.name(GoName(m[1], false), "p")
		fmt.Fprintf(&pattern, "{%s}", w)
		o.Segments = append(o.Segments, segment{Literal: lit})
		lit = ""
		o.Segments = append(o.Segments, o.pathSegment(m[1], w))
	}
	if lit != "" {
		o.Segments = append(o.Segments, segment{Literal: lit})
	}

	path := pattern.String()
	if strings.HasSuffix(path, "/") {
		path += "{$}"
	}
	o.Pattern = strings.ToUpper(o.Method) + " " + path
	return routeErr
}

// pathSegment binds the path variable name to its parameter. wild is the
// ServeMux wildcard it is read from, if any.
func (o *operation) pathSegment(name, wild string) segment {
	seg := segment{Var: name}
	for _, pr := range o.Fields {
		if pr.In == "path" && pr.Name == name {
			if wild != "" {
				pr.Wild = wild
			}
			seg.Param = pr
		}
	}
	return seg
}

// Relations between two ServeMux patterns, following net/http.
type relation int

const (
	equivalent relation = iota
	moreGeneral
	moreSpecific
	overlaps
	disjoint
)

func combine(a, b relation) relation {
	switch {
	case a == disjoint || b == disjoint:
		return disjoint
	case a == equivalent:
		return b
	case b == equivalent, a == b:
		return a
	}
	return overlaps
}

// conflicts reports whether ServeMux would refuse to register both
// patterns: they match a common request and neither is more specific.
// Patterns are "METHOD /path" with single-segment wildcards only.
func conflicts(a, b string) bool {
	ma, pa, _ := strings.Cut(a, " ")
	mb, pb, _ := strings.Cut(b, " ")

	var rel relation
	switch {
	case ma == mb:
		rel = equivalent
	case ma == "GET" && mb == "HEAD":
		rel = moreGeneral
	case ma == "HEAD" && mb == "GET":
		rel = moreSpecific
	default:
		return false
	}

	sa := strings.Split(pa, "/")
	sb := strings.Split(pb, "/")
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if (sa[i] == "{$}" || sb[i] == "{$}") && sa[i] != sb[i] {
			return false
		}
		wa := pathVar.MatchString(sa[i]) && sa[i] != "{$}"
		wb := pathVar.MatchString(sb[i]) && sb[i] != "{$}"
		switch {
		case wa && wb:
		case wa:
			rel = combine(rel, moreGeneral)
		case wb:
			rel = combine(rel, moreSpecific)
		case sa[i] != sb[i]:
			return false
		}
	}
	return rel == equivalent || rel == overlaps
}

func paramType(p *spec.Parameter) string {
	kind := model.KindString
	if f, err := model.FromSimpleType(p.Name, p.SimpleType); err == nil {
		kind = f.Kind
		if kind == model.KindOneOf {
			kind = f.Base
		}
	}
	switch kind {
	case model.KindInteger:
		return "int64"
	case model.KindNumber:
		return "float64"
	case model.KindBoolean:
		return "bool"
	case model.KindArray:
		return "[]string"
	}
	return "string"
}

// sample is a raw value that decodes into p without error.
func sample(p *param) string {
	if len(p.Enum) > 0 && p.Type != "[]string" {
		return fmt.Sprint(p.Enum[0])
	}
	switch p.Type {
	case "int64":
		return "1"
	case "float64":
		return "1.5"
	case "bool":
		return "true"
	case "[]string":
		return "a"
	}
	return "x"
}

// sampleLiteral is sample written as a Go expression of p's type.
func sampleLiteral(p *param) string {
	s := sample(p)
	switch p.Type {
	case "string":
		return strconv.Quote(s)
	case "[]string":
		return fmt.Sprintf("[]string{%q}", s)
	}
	return s
}

// literal renders a default value as a Go constant of type typ.
func literal(typ string, v any) (string, bool) {
	switch typ {
	case "string":
		if s, ok := v.(string); ok {
			return strconv.Quote(s), true
		}
	case "int64":
		if f, ok := spec.ToFloat(v); ok && f == math.Trunc(f) && !math.IsInf(f, 0) {
			return strconv.FormatInt(int64(f), 10), true
		}
	case "float64":
		if f, ok := spec.ToFloat(v); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 64), true
		}
	case "bool":
		if b, ok := v.(bool); ok {
			return strconv.FormatBool(b), true
		}
	}
	return "", false
}

// describe is the human name of a parameter in generated error messages.
func describe(p *param) string {
	return fmt.Sprintf("%s parameter %q", p.In, p.Name)
}

// fmtSafe escapes text placed inside a generated format string.
func fmtSafe(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}
