package spec

import (
	"slices"
	"strings"

	"github.com/vk/apispec/internal/pointer"
)

func (b *builder) info(data map[string]any, root pointer.Pointer) *Info {
	v, ok := data["info"]
	if !ok {
		b.missing(root, "info", "the document")
		return nil
	}
	at := root.Append("info")
	m, ok := b.object(v, at)
	if !ok {
		return nil
	}

	info := &Info{
		Title:          b.str(m, "title", at),
		Description:    b.str(m, "description", at),
		TermsOfService: b.str(m, "termsOfService", at),
		Version:        b.text(m, "version", at),
		Extensions:     extensions(m),
		Pointer:        at,
	}
	for _, key := range []string{"title", "version"} {
		if _, ok := m[key]; !ok {
			b.missing(at, key, "info")
		}
	}

	if c := b.mapping(m, "contact", at); c != nil {
		cat := at.Append("contact")
		info.Contact = &Contact{
			Name:       b.str(c, "name", cat),
			URL:        b.str(c, "url", cat),
			Email:      b.str(c, "email", cat),
			Extensions: extensions(c),
		}
	}
	if l := b.mapping(m, "license", at); l != nil {
		lat := at.Append("license")
		if _, ok := l["name"]; !ok {
			b.missing(lat, "name", "license")
		}
		info.License = &License{
			Name:       b.str(l, "name", lat),
			URL:        b.str(l, "url", lat),
			Extensions: extensions(l),
		}
	}
	return info
}

func (b *builder) externalDocs(m map[string]any, at pointer.Pointer) *ExternalDocs {
	d := b.mapping(m, "externalDocs", at)
	if d == nil {
		return nil
	}
	dat := at.Append("externalDocs")
	if _, ok := d["url"]; !ok {
		b.missing(dat, "url", "externalDocs")
	}
	return &ExternalDocs{
		Description: b.str(d, "description", dat),
		URL:         b.str(d, "url", dat),
		Extensions:  extensions(d),
	}
}

// tags accepts both plain names and tag objects.
func (b *builder) tags(data map[string]any, root pointer.Pointer) []*Tag {
	items := b.list(data, "tags", root)
	var tags []*Tag
	for i, item := range items {
		at := root.Append("tags").AppendIndex(i)
		switch t := item.(type) {
		case string:
			tags = append(tags, &Tag{Name: t, Pointer: at})
		case map[string]any:
			if _, ok := t["name"]; !ok {
				b.missing(at, "name", "tag")
			}
			tags = append(tags, &Tag{
				Name:         b.str(t, "name", at),
				Description:  b.str(t, "description", at),
				ExternalDocs: b.externalDocs(t, at),
				Extensions:   extensions(t),
				Pointer:      at,
			})
		default:
			b.wrongType(at, "a tag name or object", item)
		}
	}
	return tags
}

func (b *builder) definitions(data map[string]any, root pointer.Pointer) map[string]*Schema {
	defs := b.mapping(data, "definitions", root)
	out := make(map[string]*Schema, len(defs))
	for _, name := range sortedKeys(defs) {
		at := root.Append("definitions", name)
		if m, ok := b.object(defs[name], at); ok {
			out[name] = b.schema(m, at)
		}
	}
	return out
}

func (b *builder) namedParameters(data map[string]any, root pointer.Pointer) map[string]*Parameter {
	params := b.mapping(data, "parameters", root)
	out := make(map[string]*Parameter, len(params))
	for _, name := range sortedKeys(params) {
		if p := b.parameter(params[name], root.Append("parameters", name)); p != nil {
			out[name] = p
		}
	}
	return out
}

func (b *builder) namedResponses(data map[string]any, root pointer.Pointer) map[string]*Response {
	responses := b.mapping(data, "responses", root)
	out := make(map[string]*Response, len(responses))
	for _, name := range sortedKeys(responses) {
		if r := b.response(responses[name], root.Append("responses", name)); r != nil {
			out[name] = r
		}
	}
	return out
}

func (b *builder) schema(m map[string]any, at pointer.Pointer) *Schema {
	if ref, ok := m["$ref"]; ok {
		s, isString := ref.(string)
		if !isString {
			b.wrongType(at.Append("$ref"), "a string", ref)
		}
		return &Schema{Ref: s, Pointer: at}
	}

	s := &Schema{
		Type:          b.str(m, "type", at),
		Format:        b.str(m, "format", at),
		Title:         b.str(m, "title", at),
		Description:   b.str(m, "description", at),
		Validations:   b.validations(m, at),
		Required:      b.strs(m, "required", at),
		Discriminator: b.str(m, "discriminator", at),
		ReadOnly:      b.boolean(m, "readOnly", at),
		ExternalDocs:  b.externalDocs(m, at),
		Extensions:    extensions(m),
		Pointer:       at,
	}
	s.Default, s.HasDefault = m["default"]
	s.Example, s.HasExample = m["example"]
	s.Examples = b.list(m, "examples", at)

	if v, ok := m["items"]; ok {
		if im, ok := b.object(v, at.Append("items")); ok {
			s.Items = b.schema(im, at.Append("items"))
		}
	}
	for i, member := range b.list(m, "allOf", at) {
		mat := at.Append("allOf").AppendIndex(i)
		if mm, ok := b.object(member, mat); ok {
			s.AllOf = append(s.AllOf, b.schema(mm, mat))
		}
	}
	if props := b.mapping(m, "properties", at); props != nil {
		s.Properties = make(map[string]*Schema, len(props))
		for _, name := range sortedKeys(props) {
			pat := at.Append("properties", name)
			if pm, ok := b.object(props[name], pat); ok {
				s.Properties[name] = b.schema(pm, pat)
			}
		}
	}
	switch ap := m["additionalProperties"].(type) {
	case nil:
	case bool:
		s.AdditionalProperties = &AdditionalProperties{Allowed: ap}
	case map[string]any:
		aat := at.Append("additionalProperties")
		s.AdditionalProperties = &AdditionalProperties{Allowed: true, Schema: b.schema(ap, aat)}
	default:
		b.wrongType(at.Append("additionalProperties"), "a boolean or an object", ap)
	}
	return s
}

func (b *builder) simpleType(m map[string]any, at pointer.Pointer) SimpleType {
	st := SimpleType{
		Type:             b.str(m, "type", at),
		Format:           b.str(m, "format", at),
		CollectionFormat: b.str(m, "collectionFormat", at),
		Validations:      b.validations(m, at),
	}
	st.Default, st.HasDefault = m["default"]
	if v, ok := m["items"]; ok {
		iat := at.Append("items")
		if im, ok := b.object(v, iat); ok {
			st.Items = &Items{SimpleType: b.simpleType(im, iat), Pointer: iat}
		}
	}
	if st.Type == "array" && st.Items == nil {
		b.missing(at, "items", "an array definition")
	}
	return st
}

func (b *builder) parameter(v any, at pointer.Pointer) *Parameter {
	m, ok := b.object(v, at)
	if !ok {
		return nil
	}
	if ref, ok := m["$ref"]; ok {
		s, isString := ref.(string)
		if !isString {
			b.wrongType(at.Append("$ref"), "a string", ref)
		}
		return &Parameter{Ref: s, Pointer: at}
	}

	p := &Parameter{
		Name:            b.str(m, "name", at),
		In:              b.str(m, "in", at),
		Description:     b.str(m, "description", at),
		Required:        b.boolean(m, "required", at),
		AllowEmptyValue: b.boolean(m, "allowEmptyValue", at),
		Extensions:      extensions(m),
		Pointer:         at,
	}
	for _, key := range []string{"name", "in"} {
		if _, ok := m[key]; !ok {
			b.missing(at, key, "parameter")
		}
	}
	if p.In != "" && !slices.Contains(ParameterLocations, p.In) {
		b.report(RuleParameterLocation, at.Append("in"), "invalid parameter location %q: must be one of %s",
			p.In, strings.Join(ParameterLocations, ", "))
	}

	if p.In == "body" {
		if sm := b.mapping(m, "schema", at); sm != nil {
			p.Schema = b.schema(sm, at.Append("schema"))
		} else if _, ok := m["schema"]; !ok {
			b.missing(at, "schema", "body parameter")
		}
		return p
	}

	p.SimpleType = b.simpleType(m, at)
	switch p.Type {
	case "":
		if p.In != "" {
			b.missing(at, "type", "non-body parameter")
		}
	case "string", "number", "integer", "boolean", "array":
	case "file":
		if p.In != "formData" {
			b.report(RuleType, at.Append("type"), "type \"file\" is only allowed for formData parameters")
		}
	default:
		b.report(RuleType, at.Append("type"), "unsupported parameter type %q", p.Type)
	}
	return p
}

func (b *builder) parameterList(m map[string]any, at pointer.Pointer) []*Parameter {
	var out []*Parameter
	for i, item := range b.list(m, "parameters", at) {
		if p := b.parameter(item, at.Append("parameters").AppendIndex(i)); p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (b *builder) response(v any, at pointer.Pointer) *Response {
	m, ok := b.object(v, at)
	if !ok {
		return nil
	}
	if ref, ok := m["$ref"]; ok {
		s, isString := ref.(string)
		if !isString {
			b.wrongType(at.Append("$ref"), "a string", ref)
		}
		return &Response{Ref: s, Pointer: at}
	}

	r := &Response{
		Description: b.str(m, "description", at),
		Examples:    b.mapping(m, "examples", at),
		Extensions:  extensions(m),
		Pointer:     at,
	}
	if _, ok := m["description"]; !ok {
		b.missing(at, "description", "response")
	}
	if sm := b.mapping(m, "schema", at); sm != nil {
		r.Schema = b.schema(sm, at.Append("schema"))
	}
	if headers := b.mapping(m, "headers", at); headers != nil {
		r.Headers = make(map[string]*Header, len(headers))
		for _, name := range sortedKeys(headers) {
			hat := at.Append("headers", name)
			hm, ok := b.object(headers[name], hat)
			if !ok {
				continue
			}
			if _, ok := hm["type"]; !ok {
				b.missing(hat, "type", "header")
			}
			r.Headers[name] = &Header{
				Description: b.str(hm, "description", hat),
				SimpleType:  b.simpleType(hm, hat),
				Pointer:     hat,
			}
		}
	}
	return r
}

func (b *builder) responses(v any, at pointer.Pointer) *Responses {
	m, ok := b.object(v, at)
	if !ok {
		return nil
	}
	rs := &Responses{Codes: make(map[string]*Response), Pointer: at}
	for _, code := range sortedKeys(m) {
		switch {
		case strings.HasPrefix(code, "x-"):
		case code == "default":
			rs.Default = b.response(m[code], at.Append(code))
		case isStatusCode(code):
			if r := b.response(m[code], at.Append(code)); r != nil {
				rs.Codes[code] = r
			}
		default:
			b.report(RuleType, at.Append(code), "invalid response code %q", code)
		}
	}
	return rs
}

func isStatusCode(code string) bool {
	if len(code) != 3 || code[0] < '1' || code[0] > '5' {
		return false
	}
	for _, c := range code[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (b *builder) paths(data map[string]any, root pointer.Pointer) Paths {
	raw := b.mapping(data, "paths", root)
	paths := make(Paths, len(raw))
	for _, path := range sortedKeys(raw) {
		if strings.HasPrefix(path, "x-") {
			continue
		}
		at := root.Append("paths", path)
		if !strings.HasPrefix(path, "/") {
			b.report(RuleType, at, "path %q must begin with '/'", path)
		}
		m, ok := b.object(raw[path], at)
		if !ok {
			continue
		}
		item := &PathItem{
			Ref:        b.str(m, "$ref", at),
			Path:       path,
			Operations: make(map[string]*Operation),
			Parameters: b.parameterList(m, at),
			Extensions: extensions(m),
			Pointer:    at,
		}
		for _, method := range Methods {
			if v, ok := m[method]; ok {
				if op := b.operation(v, method, path, at.Append(method)); op != nil {
					item.Operations[method] = op
				}
			}
		}
		paths[path] = item
	}
	return paths
}

func (b *builder) operation(v any, method, path string, at pointer.Pointer) *Operation {
	m, ok := b.object(v, at)
	if !ok {
		return nil
	}
	op := &Operation{
		Method:       method,
		Path:         path,
		Tags:         b.strs(m, "tags", at),
		Summary:      b.str(m, "summary", at),
		Description:  b.str(m, "description", at),
		ExternalDocs: b.externalDocs(m, at),
		OperationID:  b.str(m, "operationId", at),
		Consumes:     b.strs(m, "consumes", at),
		Produces:     b.strs(m, "produces", at),
		Parameters:   b.parameterList(m, at),
		Schemes:      b.strs(m, "schemes", at),
		Deprecated:   b.boolean(m, "deprecated", at),
		Security:     b.securityRequirements(m, at),
		Extensions:   extensions(m),
		Pointer:      at,
	}
	if rv, ok := m["responses"]; ok {
		op.Responses = b.responses(rv, at.Append("responses"))
	} else {
		b.missing(at, "responses", "operation")
	}
	return op
}

var (
	securityTypes = []string{"basic", "apiKey", "oauth2"}
	oauth2Flows   = []string{"implicit", "password", "application", "accessCode"}
)

func (b *builder) securityDefinitions(data map[string]any, root pointer.Pointer) map[string]*SecurityScheme {
	defs := b.mapping(data, "securityDefinitions", root)
	out := make(map[string]*SecurityScheme, len(defs))
	for _, name := range sortedKeys(defs) {
		at := root.Append("securityDefinitions", name)
		m, ok := b.object(defs[name], at)
		if !ok {
			continue
		}
		s := &SecurityScheme{
			Type:             b.str(m, "type", at),
			Description:      b.str(m, "description", at),
			Name:             b.str(m, "name", at),
			In:               b.str(m, "in", at),
			Flow:             b.str(m, "flow", at),
			AuthorizationURL: b.str(m, "authorizationUrl", at),
			TokenURL:         b.str(m, "tokenUrl", at),
			Extensions:       extensions(m),
			Pointer:          at,
		}
		if scopes := b.mapping(m, "scopes", at); scopes != nil {
			s.Scopes = make(map[string]string, len(scopes))
			for _, scope := range sortedKeys(scopes) {
				s.Scopes[scope] = b.str(scopes, scope, at.Append("scopes"))
			}
		}
		b.checkScheme(s, m, at)
		out[name] = s
	}
	return out
}

func (b *builder) checkScheme(s *SecurityScheme, m map[string]any, at pointer.Pointer) {
	require := func(keys ...string) {
		for _, key := range keys {
			if _, ok := m[key]; !ok {
				b.missing(at, key, s.Type+" security scheme")
			}
		}
	}

	switch s.Type {
	case "":
		require("type")
	case "basic":
	case "apiKey":
		require("name", "in")
		if s.In != "" && s.In != "query" && s.In != "header" {
			b.report(RuleParameterLocation, at.Append("in"), "invalid apiKey location %q: must be query or header", s.In)
		}
	case "oauth2":
		require("flow", "scopes")
		if s.Flow != "" && !slices.Contains(oauth2Flows, s.Flow) {
			b.report(RuleType, at.Append("flow"), "invalid oauth2 flow %q: must be one of %s", s.Flow, strings.Join(oauth2Flows, ", "))
		}
		if s.Flow == "implicit" || s.Flow == "accessCode" {
			require("authorizationUrl")
		}
		if s.Flow == "password" || s.Flow == "application" || s.Flow == "accessCode" {
			require("tokenUrl")
		}
	default:
		b.report(RuleType, at.Append("type"), "invalid security scheme type %q: must be one of %s", s.Type, strings.Join(securityTypes, ", "))
	}
}

func (b *builder) securityRequirements(m map[string]any, at pointer.Pointer) []SecurityRequirement {
	v, ok := m["security"]
	if !ok {
		return nil
	}
	sat := at.Append("security")
	items, ok := v.([]any)
	if !ok {
		b.wrongType(sat, "an array", v)
		return nil
	}
	reqs := make([]SecurityRequirement, 0, len(items))
	for i, item := range items {
		iat := sat.AppendIndex(i)
		obj, ok := b.object(item, iat)
		if !ok {
			continue
		}
		req := SecurityRequirement{Schemes: make(map[string][]string, len(obj)), Pointer: iat}
		for _, name := range sortedKeys(obj) {
			scopes := b.strs(obj, name, iat)
			if scopes == nil {
				scopes = []string{}
			}
			req.Schemes[name] = scopes
		}
		reqs = append(reqs, req)
	}
	return reqs
}
