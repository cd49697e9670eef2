package ref

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/pointer"
)

// Sections that can receive imported components.
const (
	SectionDefinitions = "definitions"
	SectionParameters  = "parameters"
	SectionResponses   = "responses"
)

// Bundle returns a copy of doc in which every external reference has been
// replaced by a local one. Referenced values are copied into definitions,
// parameters or responses; a name already taken by a different value gets a
// numeric suffix. doc itself is not modified.
func (r *Resolver) Bundle(ctx context.Context, doc *loader.Document) (map[string]any, error) {
	out, _ := deepCopy(doc.Data).(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	b := &bundler{
		ctx:      ctx,
		resolver: r,
		rootPath: doc.Path,
		origins:  doc,
		out:      out,
		imported: map[string]string{},
		taken:    map[string]map[string]bool{},
	}
	for _, section := range []string{SectionDefinitions, SectionParameters, SectionResponses} {
		b.taken[section] = map[string]bool{}
		if existing, ok := out[section].(map[string]any); ok {
			for name := range existing {
				b.taken[section][name] = true
			}
		}
	}

	if err := b.rewrite(out, doc.Path, true, pointer.Pointer{}); err != nil {
		return nil, err
	}

	ctxlog.Component(ctx, "ref").Debug("Spec bundled.", "path", doc.Path, "imported", len(b.imported))
	return out, nil
}

type bundler struct {
	ctx      context.Context
	resolver *Resolver
	rootPath string
	origins  *loader.Document
	out      map[string]any
	// imported maps "location#fragment" to the local reference it became.
	imported map[string]string
	taken    map[string]map[string]bool
}

// rewrite walks v, which was read from the document at base, replacing
// references that leave the output document.
func (b *bundler) rewrite(v any, base string, root bool, at pointer.Pointer) error {
	if err := b.ctx.Err(); err != nil {
		return err
	}
	switch node := v.(type) {
	case map[string]any:
		if value, ok := node[Key].(string); ok && !(root && strings.HasPrefix(value, "#")) {
			from := base
			if root {
				from = b.origins.OriginOf(at.String())
			}
			local, err := b.importRef(from, value, at)
			if err != nil {
				return err
			}
			node[Key] = local
		}
		for _, k := range sortedKeys(node) {
			if k == Key {
				continue
			}
			if err := b.rewrite(node[k], base, root, at.Append(k)); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range node {
			if err := b.rewrite(item, base, root, at.AppendIndex(i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *bundler) importRef(base, value string, at pointer.Pointer) (string, error) {
	location, fragment, err := Locate(base, value)
	if err != nil {
		return "", errs.New("ref.bundle", errs.KindUnresolvedRef, value, err)
	}
	if location == b.rootPath {
		return "#" + strings.TrimPrefix(fragment, "#"), nil
	}
	key := location + fragment
	if local, ok := b.imported[key]; ok {
		return local, nil
	}

	doc, err := b.resolver.Document(b.ctx, location)
	if err != nil {
		return "", errs.New("ref.bundle", errs.KindUnresolvedRef, value, err)
	}
	p, err := pointer.ParseFragment(fragment)
	if err != nil {
		return "", errs.New("ref.bundle", errs.KindUnresolvedRef, value, err)
	}
	target, err := p.Get(doc.Data)
	if err != nil {
		return "", errs.New("ref.bundle", errs.KindUnresolvedRef, value, err)
	}

	section, name := placement(location, p, at)
	name = b.reserve(section, name)
	local := pointer.New(section, name).Fragment()
	b.imported[key] = local

	copied := deepCopy(target)
	if err := b.rewrite(copied, location, false, pointer.New(section, name)); err != nil {
		return "", err
	}

	dst, ok := b.out[section].(map[string]any)
	if !ok {
		dst = map[string]any{}
		b.out[section] = dst
	}
	dst[name] = copied
	return local, nil
}

// placement picks the section and preferred name for an imported value: the
// section it lives in at the source when that is a components section,
// otherwise the kind of slot that references it.
func placement(location string, p pointer.Pointer, at pointer.Pointer) (section, name string) {
	if len(p) == 2 {
		switch p[0] {
		case SectionDefinitions, SectionParameters, SectionResponses:
			return p[0], p[1]
		}
	}

	name = p.Last()
	if name == "" || isIndex(name) {
		base := path.Base(strings.ReplaceAll(location, "\\", "/"))
		name = strings.TrimSuffix(base, path.Ext(base))
	}

	parent := at.Parent()
	switch {
	case len(at) > 0 && at[0] == SectionDefinitions:
	case parent.Last() == "parameters" && (isIndex(at.Last()) || len(parent) == 1):
		return SectionParameters, name
	case parent.Last() == "responses":
		return SectionResponses, name
	}
	return SectionDefinitions, name
}

func (b *bundler) reserve(section, name string) string {
	taken := b.taken[section]
	candidate := name
	for i := 2; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s%d", name, i)
	}
	taken[candidate] = true
	return candidate
}

func isIndex(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}
