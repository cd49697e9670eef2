package codegen

import (
	"fmt"

	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/spec"
)

func (g *generator) modelsFile() *file {
	f := newFile("models.go", g.pkg)
	for _, name := range g.models.Names() {
		m, _ := g.models.Model(name)
		f.p("// %s is generated from the %q definition.", g.types[name], name)
		g.model(f, g.types[name], m)
		g.flush()
	}
	return f
}

func (g *generator) model(f *file, typeName string, m *model.Model) {
	f.comment(m.Description)

	if m.Scalar != nil {
		switch {
		case isStringEnum(m.Scalar):
			g.enum(f, typeName, m.Scalar.Enum)
		case m.Scalar.Kind == model.KindDateTime:
			// An alias keeps the JSON methods of time.Time.
			f.p("type %s = %s", typeName, g.goType(f, m.Scalar, typeName))
			f.p("")
		default:
			f.p("type %s %s", typeName, g.goType(f, m.Scalar, typeName))
			f.p("")
		}
		return
	}

	if len(m.Fields) == 0 {
		switch {
		case m.AdditionalField != nil:
			f.p("type %s map[string]%s", typeName, g.goType(f, m.AdditionalField, typeName+"Value"))
		case m.Additional:
			f.p("type %s map[string]any", typeName)
		default:
			f.p("type %s struct{}", typeName)
		}
		f.p("")
		return
	}

	fields := newNamer()
	f.p("type %s struct {", typeName)
	for _, fld := range m.Fields {
		name := fields.name(GoName(fld.Name, true), "Field")
		typ := g.goType(f, fld, typeName+name)
		if !fld.Required && g.optionalPointer(fld) {
			typ = "*" + typ
		}
		tag := fld.Name
		if !fld.Required {
			tag += ",omitempty"
		}
		if line := firstLine(fld.Description); line != "" {
			f.p("// %s", line)
		}
		f.p("%s %s `json:%q`", name, typ, tag)
	}
	f.p("}")
	f.p("")
}

// goType maps a field to a Go type. Inline objects and string enums become
// named types called nested; they are written after the current type.
func (g *generator) goType(f *file, fld *model.Field, nested string) string {
	switch fld.Kind {
	case model.KindString, model.KindRegex, model.KindDate:
		return "string"
	case model.KindDateTime:
		f.use("time")
		return "time.Time"
	case model.KindBytes:
		return "[]byte"
	case model.KindInteger:
		return "int64"
	case model.KindNumber:
		return "float64"
	case model.KindBoolean:
		return "bool"
	case model.KindArray:
		if fld.Items == nil {
			return "[]any"
		}
		return "[]" + g.goType(f, fld.Items, nested+"Item")
	case model.KindRef:
		if t, ok := g.types[fld.Ref]; ok {
			return t
		}
		return "any"
	case model.KindObject:
		name := g.names.name(nested, "Object")
		obj := fld.Object
		g.pending = append(g.pending, func() { g.model(f, name, obj) })
		return name
	case model.KindOneOf:
		if isStringEnum(fld) {
			name := g.names.name(nested, "Enum")
			values := fld.Enum
			g.pending = append(g.pending, func() { g.enum(f, name, values) })
			return name
		}
		base := *fld
		base.Kind = fld.Base
		return g.goType(f, &base, nested)
	}
	return "any"
}

// optionalPointer reports whether an optional field of this kind is held
// by pointer so that its absence survives a JSON round trip.
func (g *generator) optionalPointer(fld *model.Field) bool {
	switch fld.Kind {
	case model.KindObject, model.KindDateTime:
		return true
	case model.KindRef:
		m, ok := g.models.Model(fld.Ref)
		return ok && m.IsObject()
	}
	return false
}

func (g *generator) enum(f *file, typeName string, values []any) {
	f.p("type %s string", typeName)
	f.p("")
	f.p("const (")
	for i, v := range values {
		s := v.(string)
		suffix := GoName(s, true)
		if suffix == "" {
			suffix = fmt.Sprintf("Value%d", i)
		}
		f.p("%s %s = %q", g.names.name(typeName+suffix, ""), typeName, s)
	}
	f.p(")")
	f.p("")
}

func isStringEnum(fld *model.Field) bool {
	if fld.Kind != model.KindOneOf || (fld.Base != model.KindString && fld.Base != model.KindRegex) || len(fld.Enum) == 0 {
		return false
	}
	for _, v := range fld.Enum {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}

// schemaType is the Go type of a body parameter.
func (g *generator) schemaType(f *file, s *spec.Schema) string {
	if s == nil {
		f.use("encoding/json")
		return "json.RawMessage"
	}
	if s.Ref != "" {
		if name, err := spec.LocalName(s.Ref, "definitions"); err == nil && g.withModels {
			if t, ok := g.types[name]; ok {
				return t
			}
		}
		f.use("encoding/json")
		return "json.RawMessage"
	}
	switch s.Type {
	case "array":
		return "[]" + g.schemaType(f, s.Items)
	case "integer":
		return "int64"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "string":
		return "string"
	}
	return "map[string]any"
}

// sampleBody is a JSON document accepted by the decoder of s's Go type.
func (g *generator) sampleBody(s *spec.Schema) string {
	resolved, err := g.sw.ResolveSchema(s)
	if err != nil || resolved == nil {
		return "{}"
	}
	switch resolved.Type {
	case "array":
		return "[]"
	case "integer", "number":
		return "1"
	case "boolean":
		return "true"
	case "string":
		if len(resolved.Enum) > 0 {
			if v, ok := resolved.Enum[0].(string); ok {
				return fmt.Sprintf("%q", v)
			}
		}
		switch resolved.Format {
		case "date-time":
			return `"2006-01-02T15:04:05Z"`
		case "byte", "binary":
			return `"eA=="`
		}
		return `"x"`
	}
	return "{}"
}
