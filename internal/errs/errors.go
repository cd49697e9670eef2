// Package errs defines the operational error type shared by loaders,
// resolvers and the application layer.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors for broad classification.
var (
	ErrNotFound     = errors.New("not found")
	ErrIncludeCycle = errors.New("include cycle")
	ErrUnsupported  = errors.New("unsupported")
)

// Kind is a coarse-grained categorization for errors.
type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindParse         Kind = "parse"
	KindInvalidSpec   Kind = "invalid_spec"
	KindUnresolvedRef Kind = "unresolved_ref"
	KindIncludeCycle  Kind = "include_cycle"
	KindUnsupported   Kind = "unsupported"
	KindInvalidConfig Kind = "invalid_config"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind Kind
	Path string // Optional: relevant file path or reference
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New is a shorthand for building an *OpError.
func New(op string, kind Kind, path string, err error) *OpError {
	return &OpError{Op: op, Kind: kind, Path: path, Err: err}
}

// IsKind reports whether any OpError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var oe *OpError
	for err != nil {
		if !errors.As(err, &oe) {
			return false
		}
		if oe.Kind == kind {
			return true
		}
		err = oe.Err
	}
	return false
}
