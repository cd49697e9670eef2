package lint

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/vk/apispec/internal/check"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/pointer"
	"github.com/vk/apispec/internal/ref"
	"github.com/vk/apispec/internal/registry"
	"github.com/vk/apispec/internal/spec"
)

// Builtins is the module that registers the built-in style rules.
type Builtins struct{}

var _ registry.Module = Builtins{}

func (Builtins) Register(r *registry.Registry) {
	for _, rule := range builtinRules() {
		r.Register(rule)
	}
}

func builtinRules() []*check.Rule {
	return []*check.Rule{
		{
			Name: "info-description", Description: "The info object has a description.",
			Severity: issue.SeverityWarn, Recommended: true, Run: infoDescription,
		},
		{
			Name: "info-contact", Description: "The info object has a contact.",
			Severity: issue.SeverityWarn, Recommended: true, Run: infoContact,
		},
		{
			Name: "info-license", Description: "The info object has a license.",
			Severity: issue.SeverityInfo, Run: infoLicense,
		},
		{
			Name: "operation-summary", Description: "Operations have a summary.",
			Severity: issue.SeverityWarn, Recommended: true, Run: operationSummary,
		},
		{
			Name: "operation-description", Description: "Operations have a description.",
			Severity: issue.SeverityInfo, Run: operationDescription,
		},
		{
			Name: "operation-operationid", Description: "Operations have an operationId.",
			Severity: issue.SeverityWarn, Recommended: true, Run: operationID,
		},
		{
			Name: "operation-tags", Description: "Operations have at least one tag.",
			Severity: issue.SeverityWarn, Recommended: true, Run: operationTags,
		},
		{
			Name: "operation-tag-defined", Description: "Operation tags are declared in the top-level tags list.",
			Severity: issue.SeverityWarn, Recommended: true, Run: operationTagDefined,
		},
		{
			Name: "tag-description", Description: "Tags have a description.",
			Severity: issue.SeverityInfo, Run: tagDescription,
		},
		{
			Name: "operationid-casing", Description: "operationId values follow one casing style.",
			Severity: issue.SeverityWarn, Recommended: true,
			Options: map[string]any{"style": StyleCamel}, Run: operationIDCasing,
		},
		{
			Name: "path-casing", Description: "Static path segments follow one casing style.",
			Severity: issue.SeverityWarn, Recommended: true,
			Options: map[string]any{"style": StyleKebab}, Run: pathCasing,
		},
		{
			Name: "path-trailing-slash", Description: "Paths do not end with a slash.",
			Severity: issue.SeverityWarn, Recommended: true, Run: pathTrailingSlash,
		},
		{
			Name: "definition-casing", Description: "Definition names follow one casing style.",
			Severity: issue.SeverityWarn, Recommended: true,
			Options: map[string]any{"style": StylePascal}, Run: definitionCasing,
		},
		{
			Name: "property-casing", Description: "Schema property names follow one casing style.",
			Severity: issue.SeverityInfo,
			Options: map[string]any{"style": StyleCamel}, Run: propertyCasing,
		},
		{
			Name: "parameter-description", Description: "Parameters have a description.",
			Severity: issue.SeverityInfo, Run: parameterDescription,
		},
		{
			Name: "response-success", Description: "Operations declare a 2xx or 3xx response.",
			Severity: issue.SeverityWarn, Recommended: true, Run: responseSuccess,
		},
		{
			Name: "no-unused-definitions", Description: "Every definition is referenced.",
			Severity: issue.SeverityWarn, Recommended: true, Run: noUnusedDefinitions,
		},
		{
			Name: "schemes-https", Description: "Plain http is not offered.",
			Severity: issue.SeverityWarn, Recommended: true, Run: schemesHTTPS,
		},
		{
			Name: "host-no-scheme", Description: "host holds neither a scheme nor a path.",
			Severity: issue.SeverityError, Recommended: true, Run: hostNoScheme,
		},
		{
			Name: "basepath-leading-slash", Description: "basePath starts with a slash.",
			Severity: issue.SeverityError, Recommended: true, Run: basePathLeadingSlash,
		},
	}
}

func infoDescription(_ context.Context, p *check.Pass) {
	if info := p.Spec.Info; info != nil && strings.TrimSpace(info.Description) == "" {
		p.Report(info.Pointer, "info object should have a description")
	}
}

func infoContact(_ context.Context, p *check.Pass) {
	if info := p.Spec.Info; info != nil && info.Contact == nil {
		p.Report(info.Pointer, "info object should have a contact")
	}
}

func infoLicense(_ context.Context, p *check.Pass) {
	if info := p.Spec.Info; info != nil && info.License == nil {
		p.Report(info.Pointer, "info object should have a license")
	}
}

func operationSummary(_ context.Context, p *check.Pass) {
	for _, op := range p.Spec.Operations() {
		if strings.TrimSpace(op.Summary) == "" {
			p.Report(op.Pointer, "operation should have a summary")
		}
	}
}

func operationDescription(_ context.Context, p *check.Pass) {
	for _, op := range p.Spec.Operations() {
		if strings.TrimSpace(op.Description) == "" {
			p.Report(op.Pointer, "operation should have a description")
		}
	}
}

func operationID(_ context.Context, p *check.Pass) {
	for _, op := range p.Spec.Operations() {
		if op.OperationID == "" {
			p.Report(op.Pointer, "operation should have an operationId")
		}
	}
}

func operationTags(_ context.Context, p *check.Pass) {
	for _, op := range p.Spec.Operations() {
		if len(op.Tags) == 0 {
			p.Report(op.Pointer, "operation should have at least one tag")
		}
	}
}

func operationTagDefined(_ context.Context, p *check.Pass) {
	declared := p.Spec.TagNames()
	for _, op := range p.Spec.Operations() {
		for i, tag := range op.Tags {
			if !declared[tag] {
				p.Report(op.Pointer.Append("tags").AppendIndex(i), "tag %q is not declared in the top-level tags list", tag)
			}
		}
	}
}

func tagDescription(_ context.Context, p *check.Pass) {
	for _, tag := range p.Spec.Tags {
		if strings.TrimSpace(tag.Description) == "" {
			p.Report(tag.Pointer, "tag %q should have a description", tag.Name)
		}
	}
}

// casingStyle returns the configured style, reporting an unknown one.
func casingStyle(p *check.Pass) (string, bool) {
	style := p.String("style")
	if _, err := Matches("", style); err != nil {
		p.Report(pointer.Pointer{}, "%v", err)
		return "", false
	}
	return style, true
}

func operationIDCasing(_ context.Context, p *check.Pass) {
	style, ok := casingStyle(p)
	if !ok {
		return
	}
	for _, op := range p.Spec.Operations() {
		if op.OperationID == "" {
			continue
		}
		if ok, _ := Matches(op.OperationID, style); !ok {
			p.Report(op.Pointer.Append("operationId"), "operationId %q is not %s case (expected %q)",
				op.OperationID, style, Convert(op.OperationID, style))
		}
	}
}

var templateVar = regexp.MustCompile(`\{[^{}/]*\}`)

func pathCasing(_ context.Context, p *check.Pass) {
	style, ok := casingStyle(p)
	if !ok {
		return
	}
	for _, path := range p.Spec.Paths.Keys() {
		item := p.Spec.Paths[path]
		for _, segment := range strings.Split(path, "/") {
			static := templateVar.ReplaceAllString(segment, "")
			for _, part := range strings.Split(static, ".") {
				if part == "" {
					continue
				}
				if ok, _ := Matches(part, style); !ok {
					p.Report(item.Pointer, "path segment %q is not %s case (expected %q)", part, style, Convert(part, style))
				}
			}
		}
	}
}

func pathTrailingSlash(_ context.Context, p *check.Pass) {
	for _, path := range p.Spec.Paths.Keys() {
		if len(path) > 1 && strings.HasSuffix(path, "/") {
			p.Report(p.Spec.Paths[path].Pointer, "path %q should not end with a slash", path)
		}
	}
}

func definitionCasing(_ context.Context, p *check.Pass) {
	style, ok := casingStyle(p)
	if !ok {
		return
	}
	for _, name := range sortedNames(p.Spec.Definitions) {
		if ok, _ := Matches(name, style); !ok {
			p.Report(p.Spec.Definitions[name].Pointer, "definition name %q is not %s case (expected %q)", name, style, Convert(name, style))
		}
	}
}

func propertyCasing(_ context.Context, p *check.Pass) {
	style, ok := casingStyle(p)
	if !ok {
		return
	}
	var visit func(s *spec.Schema)
	visit = func(s *spec.Schema) {
		if s == nil {
			return
		}
		for _, name := range s.SortedProperties() {
			prop := s.Properties[name]
			if ok, _ := Matches(name, style); !ok {
				p.Report(prop.Pointer, "property name %q is not %s case (expected %q)", name, style, Convert(name, style))
			}
			visit(prop)
		}
		visit(s.Items)
		for _, member := range s.AllOf {
			visit(member)
		}
		if s.AdditionalProperties != nil {
			visit(s.AdditionalProperties.Schema)
		}
	}
	for _, name := range sortedNames(p.Spec.Definitions) {
		visit(p.Spec.Definitions[name])
	}
}

func parameterDescription(_ context.Context, p *check.Pass) {
	sw := p.Spec
	checkParam := func(param *spec.Parameter) {
		if param != nil && param.Ref == "" && strings.TrimSpace(param.Description) == "" {
			p.Report(param.Pointer, "parameter %q should have a description", param.Name)
		}
	}
	for _, name := range sortedNames(sw.Parameters) {
		checkParam(sw.Parameters[name])
	}
	for _, path := range sw.Paths.Keys() {
		item := sw.Paths[path]
		for _, param := range item.Parameters {
			checkParam(param)
		}
		for _, method := range spec.Methods {
			if op, ok := item.Operations[method]; ok {
				for _, param := range op.Parameters {
					checkParam(param)
				}
			}
		}
	}
}

func responseSuccess(_ context.Context, p *check.Pass) {
	for _, op := range p.Spec.Operations() {
		if op.Responses == nil {
			continue
		}
		found := false
		for _, code := range op.Responses.SortedCodes() {
			if code[0] == '2' || code[0] == '3' {
				found = true
				break
			}
		}
		if !found {
			p.Report(op.Responses.Pointer, "operation should declare a success (2xx or 3xx) response")
		}
	}
}

func noUnusedDefinitions(_ context.Context, p *check.Pass) {
	used := map[string]bool{}
	for _, r := range ref.Collect(p.Spec.Data) {
		if !r.IsLocal() {
			continue
		}
		name, err := spec.LocalName(r.Value, "definitions")
		if err != nil {
			continue
		}
		// A definition referring to itself does not make it used.
		if r.At.HasPrefix(pointer.New("definitions", name)) {
			continue
		}
		used[name] = true
	}
	for _, name := range sortedNames(p.Spec.Definitions) {
		if !used[name] {
			p.Report(p.Spec.Definitions[name].Pointer, "definition %q is never referenced", name)
		}
	}
}

func schemesHTTPS(_ context.Context, p *check.Pass) {
	report := func(schemes []string, at pointer.Pointer) {
		for i, s := range schemes {
			if strings.EqualFold(s, "http") || strings.EqualFold(s, "ws") {
				p.Report(at.AppendIndex(i), "scheme %q is not encrypted: prefer https", s)
			}
		}
	}
	report(p.Spec.Schemes, pointer.New("schemes"))
	for _, op := range p.Spec.Operations() {
		report(op.Schemes, op.Pointer.Append("schemes"))
	}
}

func hostNoScheme(_ context.Context, p *check.Pass) {
	host := p.Spec.Host
	if host == "" {
		return
	}
	at := pointer.New("host")
	rest := host
	if i := strings.Index(host, "://"); i >= 0 {
		p.Report(at, "host %q must not include a scheme: use schemes instead", host)
		rest = host[i+3:]
	}
	if strings.Contains(rest, "/") {
		p.Report(at, "host %q must not include a path: use basePath instead", host)
	}
}

func basePathLeadingSlash(_ context.Context, p *check.Pass) {
	if bp := p.Spec.BasePath; bp != "" && !strings.HasPrefix(bp, "/") {
		p.Report(pointer.New("basePath"), "basePath %q must start with a slash", bp)
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
