package ref

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/pointer"
)

// ErrRemoteDisabled is returned for http(s) references when the resolver
// has no remote loader.
var ErrRemoteDisabled = errors.New("remote references are disabled")

// Target is a resolved reference.
type Target struct {
	// Location is the file or URL holding the value; empty for the root
	// document when it has no path.
	Location string
	Pointer  pointer.Pointer
	Value    any
}

// Resolver resolves references and caches the external documents it loads.
// It is safe for concurrent use.
type Resolver struct {
	files  loader.Loader
	remote loader.Loader

	mu   sync.Mutex
	docs map[string]*loader.Document
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFileLoader sets the loader used for relative and absolute file refs.
func WithFileLoader(l loader.Loader) Option {
	return func(r *Resolver) { r.files = l }
}

// WithRemote enables http(s) references through l.
func WithRemote(l loader.Loader) Option {
	return func(r *Resolver) { r.remote = l }
}

// NewResolver creates a resolver. Without options it reads files from the
// operating system and refuses remote references.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		files: loader.NewFileLoader(),
		docs:  make(map[string]*loader.Document),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Locate turns ref, as written in the document at base, into an absolute
// location and a fragment. Local references keep base as their location.
func Locate(base, ref string) (location, fragment string, err error) {
	loc, frag := Split(ref)
	switch {
	case loc == "":
		return base, frag, nil
	case isURL(loc):
		return loc, frag, nil
	case isURL(base):
		b, err := url.Parse(base)
		if err != nil {
			return "", "", err
		}
		rel, err := url.Parse(loc)
		if err != nil {
			return "", "", err
		}
		return b.ResolveReference(rel).String(), frag, nil
	case filepath.IsAbs(loc):
		return filepath.Clean(loc), frag, nil
	}
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(loc)), frag, nil
}

// Document returns the decoded document at location, loading it once.
func (r *Resolver) Document(ctx context.Context, location string) (*loader.Document, error) {
	r.mu.Lock()
	doc, ok := r.docs[location]
	r.mu.Unlock()
	if ok {
		return doc, nil
	}

	l := r.files
	if isURL(location) {
		if r.remote == nil {
			return nil, errs.New("ref.load", errs.KindUnsupported, location, ErrRemoteDisabled)
		}
		l = r.remote
	}

	ctxlog.Component(ctx, "ref").Debug("Loading referenced document.", "location", location)
	doc, err := l.Load(ctx, location)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.docs[location] = doc
	r.mu.Unlock()
	return doc, nil
}

// Resolve finds the value ref points to. root is the document ref was
// written in and base its location.
func (r *Resolver) Resolve(ctx context.Context, base string, root map[string]any, ref string) (*Target, error) {
	location, fragment, err := Locate(base, ref)
	if err != nil {
		return nil, errs.New("ref.resolve", errs.KindUnresolvedRef, ref, err)
	}

	data := root
	if location != base {
		doc, err := r.Document(ctx, location)
		if err != nil {
			return nil, errs.New("ref.resolve", errs.KindUnresolvedRef, ref, err)
		}
		data = doc.Data
	}

	p, err := pointer.ParseFragment(fragment)
	if err != nil {
		return nil, errs.New("ref.resolve", errs.KindUnresolvedRef, ref, err)
	}
	value, err := p.Get(data)
	if err != nil {
		return nil, errs.New("ref.resolve", errs.KindUnresolvedRef, ref, err)
	}
	return &Target{Location: location, Pointer: p, Value: value}, nil
}

// cause strips the OpError wrappers so findings read naturally.
func cause(err error) error {
	for {
		var oe *errs.OpError
		if !errors.As(err, &oe) || oe.Err == nil {
			return err
		}
		err = oe.Err
	}
}

func describe(err error) string {
	return fmt.Sprint(cause(err))
}
