package validator

import (
	"github.com/vk/apispec/internal/check"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/ref"
	"github.com/vk/apispec/internal/registry"
	"github.com/vk/apispec/internal/spec"
)

// Names of the built-in checks that are not produced while building.
const (
	RulePathParameters   = "path.parameters"
	RuleUniqueID         = "operation.unique-id"
	RuleUniqueParameters = "operation.parameters-unique"
	RuleBody             = "operation.body"
	RuleResponses        = "operation.responses"
	RuleSecurityDefined  = "security.defined"
	RuleCompile          = "definition.compile"
	RuleExamples         = "definition.examples"
	RuleParameterDefault = "parameter.default"
)

// Builtins is the module that registers the built-in checks.
type Builtins struct{}

var _ registry.Module = Builtins{}

func (Builtins) Register(r *registry.Registry) {
	prechecked := []struct{ name, description string }{
		{spec.RuleRequired, "Required keys are present."},
		{spec.RuleType, "Values have the expected type."},
		{spec.RuleParameterLocation, "Parameter and apiKey locations are valid."},
		{spec.RuleDialect, `The document is Swagger "2.0".`},
		{ref.RuleUnresolved, "Every $ref resolves."},
		{ref.RuleCycle, "References do not alias each other in a cycle."},
	}
	for _, p := range prechecked {
		r.Register(&check.Rule{
			Name:        p.name,
			Description: p.description,
			Severity:    issue.SeverityError,
			Recommended: true,
			Run:         check.Reemitter(p.name),
		})
	}

	for _, rule := range []*check.Rule{
		{Name: RulePathParameters, Description: "Path template variables and path parameters match.", Severity: issue.SeverityError, Run: pathParameters},
		{Name: RuleUniqueID, Description: "operationId values are unique.", Severity: issue.SeverityError, Run: uniqueOperationIDs},
		{Name: RuleUniqueParameters, Description: "Parameters are unique by name and location.", Severity: issue.SeverityError, Run: uniqueParameters},
		{Name: RuleBody, Description: "At most one body parameter, never combined with formData.", Severity: issue.SeverityError, Run: bodyParameters},
		{Name: RuleResponses, Description: "Operations declare at least one response.", Severity: issue.SeverityError, Run: operationResponses},
		{Name: RuleSecurityDefined, Description: "Security requirements name defined schemes and scopes.", Severity: issue.SeverityError, Run: securityDefined},
		{Name: RuleCompile, Description: "Every definition compiles into a model.", Severity: issue.SeverityError, Run: compileDefinitions},
		{Name: RuleExamples, Description: "Definition examples satisfy their models.", Severity: issue.SeverityWarn, Run: definitionExamples},
		{Name: RuleParameterDefault, Description: "Parameter defaults satisfy their constraints.", Severity: issue.SeverityWarn, Run: parameterDefaults},
	} {
		rule.Recommended = true
		r.Register(rule)
	}
}
