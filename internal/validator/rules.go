package validator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/vk/apispec/internal/check"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/spec"
)

var templateVar = regexp.MustCompile(`\{([^{}/]+)\}`)

// TemplateVars returns the variable names of a path template in order.
func TemplateVars(path string) []string {
	var out []string
	for _, m := range templateVar.FindAllStringSubmatch(path, -1) {
		out = append(out, m[1])
	}
	return out
}

func pathParameters(_ context.Context, p *check.Pass) {
	sw := p.Spec
	for _, path := range sw.Paths.Keys() {
		item := sw.Paths[path]
		vars := TemplateVars(path)

		seen := map[string]bool{}
		for _, v := range vars {
			if seen[v] {
				p.Report(item.Pointer, "path template %q declares {%s} more than once", path, v)
			}
			seen[v] = true
		}

		for _, method := range spec.Methods {
			op, ok := item.Operations[method]
			if !ok {
				continue
			}
			declared := map[string]*spec.Parameter{}
			for _, param := range sw.EffectiveParameters(op) {
				if param.In == "path" {
					declared[param.Name] = param
				}
			}
			for _, v := range vars {
				param, ok := declared[v]
				if !ok {
					p.Report(op.Pointer, "path variable {%s} has no matching path parameter", v)
					continue
				}
				if !param.Required {
					p.Report(param.Pointer.Append("required"), "path parameter %q must be required", v)
				}
			}
			for _, name := range sortedNames(declared) {
				if !seen[name] {
					p.Report(declared[name].Pointer, "path parameter %q does not appear in path template %q", name, path)
				}
			}
		}
	}
}

func uniqueOperationIDs(_ context.Context, p *check.Pass) {
	first := map[string]*spec.Operation{}
	for _, op := range p.Spec.Operations() {
		if op.OperationID == "" {
			continue
		}
		if prev, ok := first[op.OperationID]; ok {
			p.Report(op.Pointer.Append("operationId"), "operationId %q is already used by %s %s",
				op.OperationID, methodName(prev.Method), prev.Path)
			continue
		}
		first[op.OperationID] = op
	}
}

func uniqueParameters(_ context.Context, p *check.Pass) {
	sw := p.Spec
	checkList := func(params []*spec.Parameter, where string) {
		seen := map[string]bool{}
		for _, raw := range params {
			param, err := sw.ResolveParameter(raw)
			if err != nil || param == nil || param.Name == "" {
				continue
			}
			key := param.In + "\x00" + param.Name
			if seen[key] {
				p.Report(raw.Pointer, "duplicate %s parameter %q in %s", param.In, param.Name, where)
			}
			seen[key] = true
		}
	}
	for _, path := range sw.Paths.Keys() {
		item := sw.Paths[path]
		checkList(item.Parameters, fmt.Sprintf("path %s", path))
		for _, method := range spec.Methods {
			if op, ok := item.Operations[method]; ok {
				checkList(op.Parameters, fmt.Sprintf("operation %s %s", methodName(method), path))
			}
		}
	}
}

func bodyParameters(_ context.Context, p *check.Pass) {
	for _, op := range p.Spec.Operations() {
		var body, form int
		for _, param := range p.Spec.EffectiveParameters(op) {
			switch param.In {
			case "body":
				body++
			case "formData":
				form++
			}
		}
		if body > 1 {
			p.Report(op.Pointer.Append("parameters"), "operation has %d body parameters: at most one is allowed", body)
		}
		if body > 0 && form > 0 {
			p.Report(op.Pointer.Append("parameters"), "body and formData parameters cannot be used in the same operation")
		}
	}
}

func operationResponses(_ context.Context, p *check.Pass) {
	for _, op := range p.Spec.Operations() {
		// A missing responses key is a structure.required finding.
		if op.Responses != nil && op.Responses.Len() == 0 {
			p.Report(op.Responses.Pointer, "operation must declare at least one response")
		}
	}
}

func securityDefined(_ context.Context, p *check.Pass) {
	sw := p.Spec
	checkReqs := func(reqs []spec.SecurityRequirement) {
		for _, req := range reqs {
			for _, name := range sortedNames(req.Schemes) {
				at := req.Pointer.Append(name)
				scheme, ok := sw.SecurityDefinitions[name]
				if !ok {
					p.Report(at, "security scheme %q is not defined in securityDefinitions", name)
					continue
				}
				scopes := req.Schemes[name]
				if scheme.Type != "oauth2" {
					if len(scopes) > 0 {
						p.Report(at, "security scheme %q is of type %s and must not list scopes", name, scheme.Type)
					}
					continue
				}
				for i, scope := range scopes {
					if _, ok := scheme.Scopes[scope]; !ok {
						p.Report(at.AppendIndex(i), "scope %q is not declared by security scheme %q", scope, name)
					}
				}
			}
		}
	}
	checkReqs(sw.Security)
	for _, op := range sw.Operations() {
		checkReqs(op.Security)
	}
}

func compileDefinitions(_ context.Context, p *check.Pass) {
	for _, failure := range p.Models.Failures() {
		p.Report(failure.Pointer, "definition %s cannot be compiled: %v", failure.Name, failure.Err)
	}
}

func definitionExamples(_ context.Context, p *check.Pass) {
	for _, name := range p.Models.Names() {
		m, _ := p.Models.Model(name)
		if _, err := m.Examples(); err != nil {
			p.Report(m.Pointer, "%v", err)
		}
	}
}

func parameterDefaults(_ context.Context, p *check.Pass) {
	sw := p.Spec
	checkParam := func(param *spec.Parameter) {
		if param == nil || param.Ref != "" || param.In == "body" || !param.HasDefault {
			return
		}
		field, err := model.FromSimpleType(param.Name, param.SimpleType)
		if err != nil {
			return
		}
		if _, err := field.Check(param.Default); err != nil {
			p.Report(param.Pointer.Append("default"), "default value of parameter %q is invalid: %v", param.Name, err)
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

func methodName(method string) string {
	return strings.ToUpper(method)
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
