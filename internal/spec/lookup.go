package spec

import (
	"fmt"
	"strings"

	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/pointer"
)

// maxRefHops bounds how many ref-only aliases a lookup follows.
const maxRefHops = 32

// Operations returns every operation ordered by path and then by method in
// the order of Methods.
func (s *Swagger) Operations() []*Operation {
	var ops []*Operation
	for _, path := range s.Paths.Keys() {
		item := s.Paths[path]
		for _, method := range Methods {
			if op, ok := item.Operations[method]; ok {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

// Definition returns the named model definition.
func (s *Swagger) Definition(name string) (*Schema, error) {
	if d, ok := s.Definitions[name]; ok {
		return d, nil
	}
	return nil, errs.New("spec.lookup", errs.KindUnresolvedRef, "#/definitions/"+name,
		fmt.Errorf("a model definition named %s doesn't exist", name))
}

// Parameter returns the named document-level parameter.
func (s *Swagger) Parameter(name string) (*Parameter, error) {
	if p, ok := s.Parameters[name]; ok {
		return p, nil
	}
	return nil, errs.New("spec.lookup", errs.KindUnresolvedRef, "#/parameters/"+name,
		fmt.Errorf("a parameter named %s doesn't exist", name))
}

// Response returns the named document-level response.
func (s *Swagger) Response(name string) (*Response, error) {
	if r, ok := s.Responses[name]; ok {
		return r, nil
	}
	return nil, errs.New("spec.lookup", errs.KindUnresolvedRef, "#/responses/"+name,
		fmt.Errorf("a response named %s doesn't exist", name))
}

// LocalName extracts NAME from a local reference "#/<section>/NAME".
func LocalName(ref, section string) (string, error) {
	if !strings.HasPrefix(ref, "#") {
		return "", errs.New("spec.resolve", errs.KindUnsupported, ref,
			fmt.Errorf("%w: only local references can be resolved here", errs.ErrUnsupported))
	}
	p, err := pointer.ParseFragment(ref)
	if err != nil {
		return "", errs.New("spec.resolve", errs.KindUnresolvedRef, ref, err)
	}
	if len(p) != 2 || p[0] != section {
		return "", errs.New("spec.resolve", errs.KindUnresolvedRef, ref,
			fmt.Errorf("expected a reference of the form #/%s/NAME", section))
	}
	return p[1], nil
}

// ResolveSchema follows s.Ref (if any) to a definition.
func (s *Swagger) ResolveSchema(schema *Schema) (*Schema, error) {
	for hops := 0; schema != nil && schema.Ref != ""; hops++ {
		if hops == maxRefHops {
			return nil, errs.New("spec.resolve", errs.KindUnresolvedRef, schema.Ref, fmt.Errorf("reference chain longer than %d", maxRefHops))
		}
		name, err := LocalName(schema.Ref, "definitions")
		if err != nil {
			return nil, err
		}
		if schema, err = s.Definition(name); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

// ResolveParameter follows p.Ref (if any) to a document-level parameter.
func (s *Swagger) ResolveParameter(p *Parameter) (*Parameter, error) {
	for hops := 0; p != nil && p.Ref != ""; hops++ {
		if hops == maxRefHops {
			return nil, errs.New("spec.resolve", errs.KindUnresolvedRef, p.Ref, fmt.Errorf("reference chain longer than %d", maxRefHops))
		}
		name, err := LocalName(p.Ref, "parameters")
		if err != nil {
			return nil, err
		}
		if p, err = s.Parameter(name); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ResolveResponse follows r.Ref (if any) to a document-level response.
func (s *Swagger) ResolveResponse(r *Response) (*Response, error) {
	for hops := 0; r != nil && r.Ref != ""; hops++ {
		if hops == maxRefHops {
			return nil, errs.New("spec.resolve", errs.KindUnresolvedRef, r.Ref, fmt.Errorf("reference chain longer than %d", maxRefHops))
		}
		name, err := LocalName(r.Ref, "responses")
		if err != nil {
			return nil, err
		}
		if r, err = s.Response(name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// EffectiveParameters merges path-level and operation-level parameters. An
// operation parameter replaces a path parameter with the same name and
// location. References are resolved; unresolvable ones are skipped.
func (s *Swagger) EffectiveParameters(op *Operation) []*Parameter {
	var out []*Parameter
	index := map[string]int{}
	add := func(params []*Parameter) {
		for _, p := range params {
			resolved, err := s.ResolveParameter(p)
			if err != nil || resolved == nil {
				continue
			}
			key := resolved.In + "\x00" + resolved.Name
			if i, ok := index[key]; ok {
				out[i] = resolved
				continue
			}
			index[key] = len(out)
			out = append(out, resolved)
		}
	}
	if item, ok := s.Paths[op.Path]; ok {
		add(item.Parameters)
	}
	add(op.Parameters)
	return out
}

// TagNames returns the names of the declared tags.
func (s *Swagger) TagNames() map[string]bool {
	names := make(map[string]bool, len(s.Tags))
	for _, t := range s.Tags {
		names[t.Name] = true
	}
	return names
}
