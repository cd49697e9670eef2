package model

import (
	"fmt"
	"sort"

	"github.com/vk/apispec/internal/pointer"
)

// Model is a compiled definition.
type Model struct {
	Name        string
	Description string
	// Fields are ordered by name.
	Fields []*Field
	// Additional is true when properties beyond Fields are accepted.
	Additional bool
	// AdditionalField checks additional properties when the schema gives
	// one.
	AdditionalField *Field
	// RequiredAdditional names required keys that are not properties and
	// are checked as additional properties.
	RequiredAdditional []string
	// Scalar is set instead of Fields for definitions that are not objects,
	// such as a string enum.
	Scalar  *Field
	Pointer pointer.Pointer

	example    any
	hasExample bool
	examples   []any

	index map[string]*Field
}

// Field returns the named field.
func (m *Model) Field(name string) (*Field, bool) {
	f, ok := m.index[name]
	return f, ok
}

// IsObject reports whether the model describes an object.
func (m *Model) IsObject() bool {
	return m.Scalar == nil
}

// Check validates an arbitrary value against the model. Objects become
// instances; scalars are returned in canonical form.
func (m *Model) Check(v any) (any, error) {
	if m.Scalar != nil {
		out, err := m.Scalar.Check(v)
		if err != nil {
			return nil, m.wrap(err)
		}
		return out, nil
	}
	return m.check(v)
}

func (m *Model) check(v any) (any, error) {
	switch values := v.(type) {
	case *Instance:
		if values.model == m {
			return values, nil
		}
		return m.New(values.Values())
	case map[string]any:
		return m.New(values)
	}
	return nil, m.wrap(typeError("an object", v))
}

// New instantiates the model. Required fields must be present, unknown
// fields are rejected unless the model accepts additional properties, and
// absent optional fields with a default get that default.
func (m *Model) New(values map[string]any) (*Instance, error) {
	inst := &Instance{model: m, values: make(map[string]any, len(values))}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := inst.Set(k, values[k]); err != nil {
			return nil, err
		}
	}

	for _, f := range m.Fields {
		if _, ok := inst.values[f.Name]; ok {
			continue
		}
		switch {
		case f.Required:
			return nil, &FieldError{Model: m.Name, Field: f.Name, Reason: "required field is missing"}
		case f.HasDefault:
			if err := inst.Set(f.Name, f.Default); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range m.RequiredAdditional {
		if _, ok := inst.values[name]; !ok {
			return nil, &FieldError{Model: m.Name, Field: name, Reason: "required field is missing"}
		}
	}
	return inst, nil
}

func (m *Model) wrap(err error) error {
	fe, ok := err.(*FieldError)
	if !ok {
		return &FieldError{Model: m.Name, Reason: err.Error()}
	}
	out := *fe
	out.Model = m.Name
	return &out
}

// Examples checks the definition's "example" and "examples" values against
// the model and returns them in canonical form.
func (m *Model) Examples() ([]any, error) {
	var raw []any
	if m.hasExample {
		raw = append(raw, m.example)
	}
	raw = append(raw, m.examples...)

	out := make([]any, 0, len(raw))
	for i, ex := range raw {
		v, err := m.Check(ex)
		if err != nil {
			return nil, fmt.Errorf("example %d: %w", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Instance is a value of an object model.
type Instance struct {
	model  *Model
	values map[string]any
}

// Model returns the model the instance belongs to.
func (i *Instance) Model() *Model {
	return i.model
}

// Get returns the value of a field.
func (i *Instance) Get(name string) (any, bool) {
	v, ok := i.values[name]
	return v, ok
}

// Set checks and assigns a field.
func (i *Instance) Set(name string, v any) error {
	m := i.model
	f, known := m.Field(name)
	if !known {
		if !m.Additional {
			return &FieldError{Model: m.Name, Field: name, Reason: "unknown field"}
		}
		f = m.AdditionalField
	}

	if f == nil {
		i.values[name] = v
		return nil
	}
	if v == nil && !f.Required {
		i.values[name] = nil
		return nil
	}
	if v == nil && f.Required {
		return &FieldError{Model: m.Name, Field: name, Reason: "required field is null"}
	}

	checked, err := f.Check(v)
	if err != nil {
		return m.wrap(nest(name, err))
	}
	i.values[name] = checked
	return nil
}

// Values returns a plain copy of the instance with nested instances
// converted to maps.
func (i *Instance) Values() map[string]any {
	out := make(map[string]any, len(i.values))
	for k, v := range i.values {
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case *Instance:
		return val.Values()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	}
	return v
}
