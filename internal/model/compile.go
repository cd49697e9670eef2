package model

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"

	"github.com/vk/apispec/internal/pointer"
	"github.com/vk/apispec/internal/spec"
)

// Set is the collection of models compiled from one spec.
type Set struct {
	models   map[string]*Model
	failures []*DefinitionError
}

// DefinitionError reports a definition that could not be compiled.
type DefinitionError struct {
	Name    string
	Pointer pointer.Pointer
	Err     error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("definition %s: %v", e.Name, e.Err)
}

func (e *DefinitionError) Unwrap() error { return e.Err }

// Model returns the named model.
func (s *Set) Model(name string) (*Model, bool) {
	if s == nil {
		return nil, false
	}
	m, ok := s.models[name]
	return m, ok
}

// Names returns the compiled model names in lexical order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.models))
	for n := range s.models {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Failures returns the definitions that did not compile, by name.
func (s *Set) Failures() []*DefinitionError {
	if s == nil {
		return nil
	}
	return s.failures
}

// Compile builds a model for every definition of sw. Definitions that fail
// are left out of the set and reported both through Failures and the
// joined error.
func Compile(sw *spec.Swagger) (*Set, error) {
	set := &Set{models: make(map[string]*Model, len(sw.Definitions))}
	c := &compiler{sw: sw, set: set}

	names := make([]string, 0, len(sw.Definitions))
	for name := range sw.Definitions {
		names = append(names, name)
	}
	sort.Strings(names)

	var all []error
	for _, name := range names {
		schema := sw.Definitions[name]
		m, err := c.model(name, schema)
		if err != nil {
			de := &DefinitionError{Name: name, Pointer: schema.Pointer, Err: err}
			set.failures = append(set.failures, de)
			all = append(all, de)
			continue
		}
		set.models[name] = m
	}
	return set, errors.Join(all...)
}

type compiler struct {
	sw  *spec.Swagger
	set *Set
}

func (c *compiler) model(name string, s *spec.Schema) (*Model, error) {
	if s.Ref != "" {
		target, err := c.sw.ResolveSchema(s)
		if err != nil {
			return nil, err
		}
		m, err := c.model(name, target)
		if err != nil {
			return nil, err
		}
		m.Pointer = s.Pointer
		return m, nil
	}

	m := &Model{
		Name:        name,
		Description: s.Description,
		Pointer:     s.Pointer,
		example:     s.Example,
		hasExample:  s.HasExample,
		examples:    s.Examples,
		index:       map[string]*Field{},
	}

	if !isObject(s) {
		f, err := c.field(name, s, false)
		if err != nil {
			return nil, err
		}
		m.Scalar = f
		return m, nil
	}

	props, required, additional, err := c.flatten(s, 0)
	if err != nil {
		return nil, err
	}
	for _, propName := range sortedNames(props) {
		f, err := c.field(propName, props[propName], slices.Contains(required, propName))
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", propName, err)
		}
		m.Fields = append(m.Fields, f)
		m.index[propName] = f
	}
	if additional != nil {
		m.Additional = additional.Allowed
		if additional.Schema != nil {
			f, err := c.field("*", additional.Schema, false)
			if err != nil {
				return nil, fmt.Errorf("additionalProperties: %w", err)
			}
			m.AdditionalField = f
		}
	}

	for _, r := range required {
		if _, ok := props[r]; ok {
			continue
		}
		if !m.Additional {
			return nil, fmt.Errorf("required property %s is not defined", r)
		}
		m.RequiredAdditional = append(m.RequiredAdditional, r)
	}
	return m, nil
}

// flatten merges s with its allOf members: properties and required lists
// are combined, later members overriding earlier ones, s itself last.
func (c *compiler) flatten(s *spec.Schema, depth int) (map[string]*spec.Schema, []string, *spec.AdditionalProperties, error) {
	if depth > 32 {
		return nil, nil, nil, errors.New("allOf nesting is too deep")
	}
	props := map[string]*spec.Schema{}
	var required []string
	var additional *spec.AdditionalProperties

	for _, member := range s.AllOf {
		resolved, err := c.sw.ResolveSchema(member)
		if err != nil {
			return nil, nil, nil, err
		}
		mp, mr, ma, err := c.flatten(resolved, depth+1)
		if err != nil {
			return nil, nil, nil, err
		}
		for k, v := range mp {
			props[k] = v
		}
		required = appendUnique(required, mr...)
		if ma != nil {
			additional = ma
		}
	}
	for k, v := range s.Properties {
		props[k] = v
	}
	required = appendUnique(required, s.Required...)
	if s.AdditionalProperties != nil {
		additional = s.AdditionalProperties
	}
	return props, required, additional, nil
}

func (c *compiler) field(name string, s *spec.Schema, required bool) (*Field, error) {
	f := &Field{
		Name:             name,
		Type:             s.Type,
		Format:           s.Format,
		Description:      s.Description,
		Required:         required,
		ReadOnly:         s.ReadOnly,
		Default:          s.Default,
		HasDefault:       s.HasDefault,
		Enum:             s.Enum,
		Minimum:          s.Minimum,
		Maximum:          s.Maximum,
		ExclusiveMinimum: s.ExclusiveMinimum,
		ExclusiveMaximum: s.ExclusiveMaximum,
		MinLength:        s.MinLength,
		MaxLength:        s.MaxLength,
		MinItems:         s.MinItems,
		MaxItems:         s.MaxItems,
		UniqueItems:      s.UniqueItems,
		MultipleOf:       s.MultipleOf,
		set:              c.set,
	}

	if s.Ref != "" {
		target, err := spec.LocalName(s.Ref, "definitions")
		if err != nil {
			return nil, err
		}
		if _, err := c.sw.Definition(target); err != nil {
			return nil, err
		}
		f.Kind, f.Ref = KindRef, target
		return f, nil
	}

	if isObject(s) {
		obj, err := c.model(name, s)
		if err != nil {
			return nil, err
		}
		f.Kind, f.Object = KindObject, obj
		return f, nil
	}

	kind, err := kindOf(s.Type, s.Format)
	if err != nil {
		return nil, err
	}
	f.Kind = kind

	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", s.Pattern, err)
		}
		f.Pattern = re
		if f.Kind == KindString {
			f.Kind = KindRegex
		}
	}

	if f.Kind == KindArray {
		if s.Items == nil {
			return nil, fmt.Errorf("array %s has no items", name)
		}
		items, err := c.field(name+"[]", s.Items, false)
		if err != nil {
			return nil, err
		}
		f.Items = items
	}

	if len(f.Enum) > 0 {
		f.Base, f.Kind = f.Kind, KindOneOf
	}
	return f, nil
}

// FromSimpleType builds a field for a non-body parameter, header or items
// value.
func FromSimpleType(name string, st spec.SimpleType) (*Field, error) {
	f := &Field{
		Name:             name,
		Type:             st.Type,
		Format:           st.Format,
		Default:          st.Default,
		HasDefault:       st.HasDefault,
		Enum:             st.Enum,
		Minimum:          st.Minimum,
		Maximum:          st.Maximum,
		ExclusiveMinimum: st.ExclusiveMinimum,
		ExclusiveMaximum: st.ExclusiveMaximum,
		MinLength:        st.MinLength,
		MaxLength:        st.MaxLength,
		MinItems:         st.MinItems,
		MaxItems:         st.MaxItems,
		UniqueItems:      st.UniqueItems,
		MultipleOf:       st.MultipleOf,
	}
	if st.Type == "file" {
		f.Kind = KindAny
		return f, nil
	}
	kind, err := kindOf(st.Type, st.Format)
	if err != nil {
		return nil, err
	}
	f.Kind = kind
	if kind == KindObject {
		return nil, fmt.Errorf("encountered unsupported type: %s", st.Type)
	}
	if st.Pattern != "" {
		re, err := regexp.Compile(st.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", st.Pattern, err)
		}
		f.Pattern = re
		if f.Kind == KindString {
			f.Kind = KindRegex
		}
	}
	if kind == KindArray && st.Items != nil {
		items, err := FromSimpleType(name+"[]", st.Items.SimpleType)
		if err != nil {
			return nil, err
		}
		f.Items = items
	}
	if len(f.Enum) > 0 {
		f.Base, f.Kind = f.Kind, KindOneOf
	}
	return f, nil
}

func kindOf(typ, format string) (Kind, error) {
	switch typ {
	case "":
		return KindAny, nil
	case "integer", "long":
		return KindInteger, nil
	case "number", "float", "double":
		return KindNumber, nil
	case "boolean":
		return KindBoolean, nil
	case "array":
		return KindArray, nil
	case "object":
		return KindObject, nil
	case "string":
		switch format {
		case "byte", "binary":
			return KindBytes, nil
		case "date":
			return KindDate, nil
		case "date-time":
			return KindDateTime, nil
		}
		return KindString, nil
	}
	return KindAny, fmt.Errorf("encountered unsupported type: %s", typ)
}

func isObject(s *spec.Schema) bool {
	if s.Type == "object" {
		return true
	}
	return s.Type == "" && (len(s.Properties) > 0 || len(s.AllOf) > 0 || s.AdditionalProperties != nil)
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func sortedNames(m map[string]*spec.Schema) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
