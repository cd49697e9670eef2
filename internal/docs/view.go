package docs

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/spec"
)

// defaultGroup collects operations without tags.
const defaultGroup = "default"

type page struct {
	Title       string
	Version     string
	Description string
	Host        string
	BasePath    string
	Schemes     []string
	Groups      []group
	Models      []modelView
	Security    []securityView
	Issues      []string
	LiveReload  bool
}

type group struct {
	Name        string
	Description string
	Operations  []operationView
}

type operationView struct {
	Anchor      string
	Method      string
	Path        string
	Summary     string
	Description string
	Deprecated  bool
	Parameters  []parameterView
	Responses   []responseView
}

type parameterView struct {
	Name        string
	In          string
	Type        string
	Required    bool
	Description string
}

type responseView struct {
	Code        string
	Description string
	Type        string
}

type modelView struct {
	Name        string
	Description string
	Type        string
	Fields      []fieldView
}

type fieldView struct {
	Name        string
	Type        string
	Required    bool
	Description string
	Constraints string
}

type securityView struct {
	Name        string
	Type        string
	Description string
	Detail      string
}

func newPage(sw *spec.Swagger, models *model.Set, opts Options) page {
	p := page{
		Title:      opts.Title,
		Host:       sw.Host,
		BasePath:   sw.BasePath,
		Schemes:    sw.Schemes,
		LiveReload: opts.LiveReload,
	}
	if sw.Info != nil {
		if p.Title == "" {
			p.Title = sw.Info.Title
		}
		p.Version = sw.Info.Version
		p.Description = sw.Info.Description
	}
	if p.Title == "" {
		p.Title = "API reference"
	}

	for _, is := range opts.Issues.MinSeverity(issue.SeverityError) {
		p.Issues = append(p.Issues, is.String())
	}

	p.Groups = groups(sw)
	for _, name := range models.Names() {
		m, _ := models.Model(name)
		p.Models = append(p.Models, newModelView(name, m))
	}
	p.Security = security(sw)
	return p
}

func groups(sw *spec.Swagger) []group {
	byTag := map[string][]operationView{}
	for _, op := range sw.Operations() {
		view := newOperationView(sw, op)
		tags := op.Tags
		if len(tags) == 0 {
			tags = []string{defaultGroup}
		}
		for _, t := range tags {
			byTag[t] = append(byTag[t], view)
		}
	}

	var out []group
	seen := map[string]bool{}
	for _, t := range sw.Tags {
		if ops, ok := byTag[t.Name]; ok && !seen[t.Name] {
			out = append(out, group{Name: t.Name, Description: t.Description, Operations: ops})
			seen[t.Name] = true
		}
	}
	var rest []string
	for name := range byTag {
		if !seen[name] && name != defaultGroup {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	if _, ok := byTag[defaultGroup]; ok && !seen[defaultGroup] {
		rest = append(rest, defaultGroup)
	}
	for _, name := range rest {
		out = append(out, group{Name: name, Operations: byTag[name]})
	}
	return out
}

func newOperationView(sw *spec.Swagger, op *spec.Operation) operationView {
	v := operationView{
		Anchor:      anchor(op),
		Method:      strings.ToUpper(op.Method),
		Path:        op.Path,
		Summary:     op.Summary,
		Description: op.Description,
		Deprecated:  op.Deprecated,
	}
	for _, p := range sw.EffectiveParameters(op) {
		pv := parameterView{Name: p.Name, In: p.In, Required: p.Required, Description: p.Description}
		if p.In == "body" {
			pv.Type = schemaLabel(p.Schema)
		} else {
			pv.Type = simpleLabel(p.SimpleType)
		}
		v.Parameters = append(v.Parameters, pv)
	}

	if op.Responses != nil {
		add := func(code string, r *spec.Response) {
			resolved, err := sw.ResolveResponse(r)
			if err != nil || resolved == nil {
				v.Responses = append(v.Responses, responseView{Code: code, Description: r.Ref})
				return
			}
			v.Responses = append(v.Responses, responseView{
				Code:        code,
				Description: resolved.Description,
				Type:        schemaLabel(resolved.Schema),
			})
		}
		for _, code := range op.Responses.SortedCodes() {
			add(code, op.Responses.Codes[code])
		}
		if op.Responses.Default != nil {
			add("default", op.Responses.Default)
		}
	}
	return v
}

// anchor is the fragment identifier of an operation on the page.
func anchor(op *spec.Operation) string {
	if op.OperationID != "" {
		return "op-" + op.OperationID
	}
	return "op-" + op.Method + "-" + strings.Trim(strings.NewReplacer("/", "-", "{", "", "}", "").Replace(op.Path), "-")
}

func schemaLabel(s *spec.Schema) string {
	switch {
	case s == nil:
		return ""
	case s.Ref != "":
		if name, err := spec.LocalName(s.Ref, "definitions"); err == nil {
			return name
		}
		return s.Ref
	case s.Type == "array":
		return "array of " + schemaLabel(s.Items)
	case s.Type == "" && len(s.Properties) > 0:
		return "object"
	}
	return typeLabel(s.Type, s.Format)
}

func simpleLabel(st spec.SimpleType) string {
	if st.Type == "array" && st.Items != nil {
		return "array of " + simpleLabel(st.Items.SimpleType)
	}
	return typeLabel(st.Type, st.Format)
}

func typeLabel(typ, format string) string {
	if format == "" {
		return typ
	}
	return typ + " (" + format + ")"
}

func newModelView(name string, m *model.Model) modelView {
	v := modelView{Name: name, Description: m.Description, Type: "object"}
	if m.Scalar != nil {
		v.Type = fieldLabel(m.Scalar)
		v.Fields = []fieldView{newFieldView(m.Scalar)}
		v.Fields[0].Name = "value"
		return v
	}
	for _, f := range m.Fields {
		v.Fields = append(v.Fields, newFieldView(f))
	}
	if m.AdditionalField != nil {
		fv := newFieldView(m.AdditionalField)
		fv.Name = "additional properties"
		v.Fields = append(v.Fields, fv)
	}
	return v
}

func newFieldView(f *model.Field) fieldView {
	return fieldView{
		Name:        f.Name,
		Type:        fieldLabel(f),
		Required:    f.Required,
		Description: f.Description,
		Constraints: constraints(f),
	}
}

func fieldLabel(f *model.Field) string {
	switch f.Kind {
	case model.KindRef:
		return f.Ref
	case model.KindArray:
		if f.Items != nil {
			return "array of " + fieldLabel(f.Items)
		}
		return "array"
	case model.KindOneOf:
		return f.Base.String()
	}
	return f.Kind.String()
}

func constraints(f *model.Field) string {
	var parts []string
	add := func(format string, args ...any) { parts = append(parts, fmt.Sprintf(format, args...)) }
	number := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	if len(f.Enum) > 0 {
		values := make([]string, len(f.Enum))
		for i, v := range f.Enum {
			values[i] = fmt.Sprint(v)
		}
		add("one of %s", strings.Join(values, ", "))
	}
	if f.Minimum != nil {
		op := ">="
		if f.ExclusiveMinimum {
			op = ">"
		}
		add("%s %s", op, number(*f.Minimum))
	}
	if f.Maximum != nil {
		op := "<="
		if f.ExclusiveMaximum {
			op = "<"
		}
		add("%s %s", op, number(*f.Maximum))
	}
	if f.MultipleOf != nil {
		add("multiple of %s", number(*f.MultipleOf))
	}
	if f.MinLength != nil {
		add("min length %d", *f.MinLength)
	}
	if f.MaxLength != nil {
		add("max length %d", *f.MaxLength)
	}
	if f.Pattern != nil {
		add("pattern %s", f.Pattern.String())
	}
	if f.MinItems != nil {
		add("min items %d", *f.MinItems)
	}
	if f.MaxItems != nil {
		add("max items %d", *f.MaxItems)
	}
	if f.UniqueItems {
		add("unique items")
	}
	if f.HasDefault {
		add("default %v", f.Default)
	}
	if f.ReadOnly {
		add("read-only")
	}
	return strings.Join(parts, "; ")
}

func security(sw *spec.Swagger) []securityView {
	names := make([]string, 0, len(sw.SecurityDefinitions))
	for n := range sw.SecurityDefinitions {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]securityView, 0, len(names))
	for _, n := range names {
		s := sw.SecurityDefinitions[n]
		v := securityView{Name: n, Type: s.Type, Description: s.Description}
		switch s.Type {
		case "apiKey":
			v.Detail = fmt.Sprintf("%s %q", s.In, s.Name)
		case "oauth2":
			scopes := make([]string, 0, len(s.Scopes))
			for sc := range s.Scopes {
				scopes = append(scopes, sc)
			}
			sort.Strings(scopes)
			v.Detail = s.Flow
			if len(scopes) > 0 {
				v.Detail += "; scopes: " + strings.Join(scopes, ", ")
			}
		}
		out = append(out, v)
	}
	return out
}
