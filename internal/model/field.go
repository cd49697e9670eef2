package model

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/vk/apispec/internal/spec"
)

// Kind is the value shape a field accepts.
type Kind int

const (
	KindAny Kind = iota
	KindString
	KindRegex
	KindInteger
	KindNumber
	KindBoolean
	KindBytes
	KindDate
	KindDateTime
	KindOneOf
	KindArray
	KindObject
	KindRef
)

var kindNames = [...]string{
	KindAny:      "any",
	KindString:   "string",
	KindRegex:    "regex",
	KindInteger:  "integer",
	KindNumber:   "number",
	KindBoolean:  "boolean",
	KindBytes:    "bytes",
	KindDate:     "date",
	KindDateTime: "date-time",
	KindOneOf:    "one-of",
	KindArray:    "array",
	KindObject:   "object",
	KindRef:      "ref",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DateLayout is the layout of "date" values.
const DateLayout = "2006-01-02"

// Field describes one property of a model, or the element of an array.
type Field struct {
	Name        string
	Kind        Kind
	// Base is the underlying kind of a OneOf field.
	Base        Kind
	Type        string
	Format      string
	Description string
	Required    bool
	ReadOnly    bool
	Default     any
	HasDefault  bool

	Enum             []any
	Pattern          *regexp.Regexp
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MinLength        *int64
	MaxLength        *int64
	MinItems         *int64
	MaxItems         *int64
	UniqueItems      bool
	MultipleOf       *float64

	// Items is the element field of an array.
	Items *Field
	// Ref names the model a KindRef field points to.
	Ref string
	// Object is the inline model of a KindObject field.
	Object *Model

	set *Set
}

// Check validates v and returns it in canonical form: int64 for integers,
// float64 for numbers, []byte for bytes, time.Time for dates and *Instance
// for objects. Errors are *FieldError values whose Field is relative to f.
func (f *Field) Check(v any) (any, error) {
	if v == nil {
		if f.Kind == KindAny {
			return nil, nil
		}
		return nil, reason("must not be null")
	}

	kind := f.Kind
	if kind == KindOneOf {
		kind = f.Base
	}

	out, err := f.checkKind(kind, v)
	if err != nil {
		return nil, err
	}
	if len(f.Enum) > 0 && !oneOf(v, f.Enum) {
		return nil, reason("value %v is not one of %v", v, f.Enum)
	}
	return out, nil
}

func (f *Field) checkKind(kind Kind, v any) (any, error) {
	switch kind {
	case KindAny:
		return v, nil

	case KindString, KindRegex:
		s, ok := v.(string)
		if !ok {
			return nil, typeError("a string", v)
		}
		return s, f.checkString(s)

	case KindInteger:
		if i, ok := v.(int64); ok {
			return i, f.checkNumber(float64(i))
		}
		n, ok := toFloat(v)
		if !ok || n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, typeError("an integer", v)
		}
		if n < -(1<<63) || n >= 1<<63 {
			return nil, reason("%v is out of range for a 64-bit integer", v)
		}
		if err := f.checkNumber(n); err != nil {
			return nil, err
		}
		return int64(n), nil

	case KindNumber:
		n, ok := toFloat(v)
		if !ok {
			return nil, typeError("a number", v)
		}
		return n, f.checkNumber(n)

	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, typeError("a boolean", v)
		}
		return b, nil

	case KindBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			if f.Format == "binary" {
				return []byte(b), nil
			}
			decoded, err := base64.StdEncoding.DecodeString(b)
			if err != nil {
				return nil, reason("invalid base64 data: %v", err)
			}
			return decoded, nil
		}
		return nil, typeError("base64 encoded bytes", v)

	case KindDate, KindDateTime:
		layout, want := DateLayout, "a date (YYYY-MM-DD)"
		if kind == KindDateTime {
			layout, want = time.RFC3339, "an RFC 3339 date-time"
		}
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			parsed, err := time.Parse(layout, t)
			if err != nil {
				return nil, reason("%q is not %s", t, want)
			}
			return parsed, nil
		}
		return nil, typeError(want, v)

	case KindArray:
		return f.checkArray(v)

	case KindObject:
		return f.Object.check(v)

	case KindRef:
		target, ok := f.set.Model(f.Ref)
		if !ok {
			return nil, reason("a model definition named %s doesn't exist", f.Ref)
		}
		return target.Check(v)
	}
	return nil, reason("unsupported field kind %s", kind)
}

func (f *Field) checkString(s string) error {
	n := int64(utf8.RuneCountInString(s))
	if f.MinLength != nil && n < *f.MinLength {
		return reason("length %d is shorter than %d", n, *f.MinLength)
	}
	if f.MaxLength != nil && n > *f.MaxLength {
		return reason("length %d is longer than %d", n, *f.MaxLength)
	}
	if f.Pattern != nil && !f.Pattern.MatchString(s) {
		return reason("%q does not match pattern %q", s, f.Pattern.String())
	}
	return nil
}

func (f *Field) checkNumber(n float64) error {
	if f.Minimum != nil {
		if f.ExclusiveMinimum && n <= *f.Minimum {
			return reason("%v must be greater than %v", n, *f.Minimum)
		}
		if n < *f.Minimum {
			return reason("%v must be at least %v", n, *f.Minimum)
		}
	}
	if f.Maximum != nil {
		if f.ExclusiveMaximum && n >= *f.Maximum {
			return reason("%v must be less than %v", n, *f.Maximum)
		}
		if n > *f.Maximum {
			return reason("%v must be at most %v", n, *f.Maximum)
		}
	}
	if f.MultipleOf != nil {
		q := n / *f.MultipleOf
		if math.Abs(q-math.Round(q)) > 1e-9 {
			return reason("%v is not a multiple of %v", n, *f.MultipleOf)
		}
	}
	return nil
}

func (f *Field) checkArray(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, typeError("an array", v)
	}
	n := int64(len(items))
	if f.MinItems != nil && n < *f.MinItems {
		return nil, reason("%d items are fewer than %d", n, *f.MinItems)
	}
	if f.MaxItems != nil && n > *f.MaxItems {
		return nil, reason("%d items are more than %d", n, *f.MaxItems)
	}

	out := make([]any, len(items))
	for i, item := range items {
		if f.Items == nil {
			out[i] = item
			continue
		}
		checked, err := f.Items.Check(item)
		if err != nil {
			return nil, nest(fmt.Sprintf("[%d]", i), err)
		}
		out[i] = checked
	}

	if f.UniqueItems {
		for i := range items {
			for j := i + 1; j < len(items); j++ {
				if equal(items[i], items[j]) {
					return nil, reason("items %d and %d are equal", i, j)
				}
			}
		}
	}
	return out, nil
}

// FieldError reports a value a model does not accept.
type FieldError struct {
	Model  string
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	switch {
	case e.Model == "" && e.Field == "":
		return e.Reason
	case e.Model == "":
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	case e.Field == "":
		return fmt.Sprintf("%s: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Model, e.Field, e.Reason)
}

func reason(format string, args ...any) *FieldError {
	return &FieldError{Reason: fmt.Sprintf(format, args...)}
}

func typeError(want string, got any) *FieldError {
	return reason("expected %s, got %s", want, describe(got))
}

// nest prefixes the field path of err with name.
func nest(name string, err error) error {
	var fe *FieldError
	if !errors.As(err, &fe) {
		return &FieldError{Field: name, Reason: err.Error()}
	}
	out := *fe
	switch {
	case out.Field == "":
		out.Field = name
	case out.Field[0] == '[':
		out.Field = name + out.Field
	default:
		out.Field = name + "." + out.Field
	}
	return &out
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, int, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any, *Instance:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func toFloat(v any) (float64, bool) {
	return spec.ToFloat(v)
}

func equal(a, b any) bool {
	x, xok := toFloat(a)
	y, yok := toFloat(b)
	if xok && yok {
		return x == y
	}
	return reflect.DeepEqual(a, b)
}

func oneOf(v any, values []any) bool {
	for _, candidate := range values {
		if equal(v, candidate) {
			return true
		}
	}
	return false
}
