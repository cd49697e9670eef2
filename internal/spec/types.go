package spec

import (
	"sort"

	"github.com/vk/apispec/internal/pointer"
)

// Extensions holds the "x-" keys of an object.
type Extensions map[string]any

// Methods lists the HTTP methods a path item may define, in output order.
var Methods = []string{"get", "put", "post", "delete", "options", "head", "patch"}

// ParameterLocations are the valid values of a parameter's "in" key.
var ParameterLocations = []string{"query", "header", "path", "formData", "body"}

// Swagger is the root document object.
type Swagger struct {
	Swagger             string
	Info                *Info
	Host                string
	BasePath            string
	Schemes             []string
	Consumes            []string
	Produces            []string
	Paths               Paths
	Definitions         map[string]*Schema
	Parameters          map[string]*Parameter
	Responses           map[string]*Response
	SecurityDefinitions map[string]*SecurityScheme
	Security            []SecurityRequirement
	Tags                []*Tag
	ExternalDocs        *ExternalDocs
	Extensions          Extensions

	// Data is the raw tree the objects were built from.
	Data map[string]any
}

type Info struct {
	Title          string
	Description    string
	TermsOfService string
	Contact        *Contact
	License        *License
	Version        string
	Extensions     Extensions
	Pointer        pointer.Pointer
}

type Contact struct {
	Name       string
	URL        string
	Email      string
	Extensions Extensions
}

type License struct {
	Name       string
	URL        string
	Extensions Extensions
}

type ExternalDocs struct {
	Description string
	URL         string
	Extensions  Extensions
}

type Tag struct {
	Name         string
	Description  string
	ExternalDocs *ExternalDocs
	Extensions   Extensions
	Pointer      pointer.Pointer
}

// Paths maps path templates ("/pets/{id}") to their items.
type Paths map[string]*PathItem

// Keys returns the path templates in lexical order.
func (p Paths) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type PathItem struct {
	Ref        string
	Path       string
	Operations map[string]*Operation
	Parameters []*Parameter
	Extensions Extensions
	Pointer    pointer.Pointer
}

// Operation is a single HTTP method on a path.
type Operation struct {
	Method       string
	Path         string
	Tags         []string
	Summary      string
	Description  string
	ExternalDocs *ExternalDocs
	OperationID  string
	Consumes     []string
	Produces     []string
	Parameters   []*Parameter
	Responses    *Responses
	Schemes      []string
	Deprecated   bool
	// Security is nil when the operation inherits the document's
	// requirements, and empty when it explicitly opts out.
	Security   []SecurityRequirement
	Extensions Extensions
	Pointer    pointer.Pointer
}

// Validations are the constraint keywords shared by schemas, parameters,
// items and headers.
type Validations struct {
	Maximum          *float64
	ExclusiveMaximum bool
	Minimum          *float64
	ExclusiveMinimum bool
	MaxLength        *int64
	MinLength        *int64
	Pattern          string
	MaxItems         *int64
	MinItems         *int64
	UniqueItems      bool
	Enum             []any
	MultipleOf       *float64
}

// SimpleType describes the non-body value shape used by parameters, items
// and headers.
type SimpleType struct {
	Type             string
	Format           string
	Items            *Items
	CollectionFormat string
	Default          any
	HasDefault       bool
	Validations
}

type Parameter struct {
	Ref             string
	Name            string
	In              string
	Description     string
	Required        bool
	Schema          *Schema
	AllowEmptyValue bool
	SimpleType
	Extensions Extensions
	Pointer    pointer.Pointer
}

type Items struct {
	SimpleType
	Pointer pointer.Pointer
}

type Header struct {
	Description string
	SimpleType
	Pointer pointer.Pointer
}

type Response struct {
	Ref         string
	Description string
	Schema      *Schema
	Headers     map[string]*Header
	Examples    map[string]any
	Extensions  Extensions
	Pointer     pointer.Pointer
}

// Responses holds an operation's responses by status code.
type Responses struct {
	Default *Response
	Codes   map[string]*Response
	Pointer pointer.Pointer
}

// Len counts the declared responses, default included.
func (r *Responses) Len() int {
	if r == nil {
		return 0
	}
	n := len(r.Codes)
	if r.Default != nil {
		n++
	}
	return n
}

// SortedCodes returns the status codes in lexical order.
func (r *Responses) SortedCodes() []string {
	if r == nil {
		return nil
	}
	codes := make([]string, 0, len(r.Codes))
	for c := range r.Codes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// AdditionalProperties is either a boolean or a schema.
type AdditionalProperties struct {
	Allowed bool
	Schema  *Schema
}

type Schema struct {
	Ref                  string
	Type                 string
	Format               string
	Title                string
	Description          string
	Default              any
	HasDefault           bool
	Validations
	Required             []string
	Items                *Schema
	AllOf                []*Schema
	Properties           map[string]*Schema
	AdditionalProperties *AdditionalProperties
	Discriminator        string
	ReadOnly             bool
	ExternalDocs         *ExternalDocs
	Example              any
	HasExample           bool
	// Examples is the non-standard "examples" list accepted on definitions.
	Examples   []any
	Extensions Extensions
	Pointer    pointer.Pointer
}

// SortedProperties returns the property names in lexical order.
func (s *Schema) SortedProperties() []string {
	names := make([]string, 0, len(s.Properties))
	for n := range s.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type SecurityScheme struct {
	Type             string
	Description      string
	Name             string
	In               string
	Flow             string
	AuthorizationURL string
	TokenURL         string
	Scopes           map[string]string
	Extensions       Extensions
	Pointer          pointer.Pointer
}

// SecurityRequirement maps scheme names to the scopes they need.
type SecurityRequirement struct {
	Schemes map[string][]string
	Pointer pointer.Pointer
}
