package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpError_Error(t *testing.T) {
	err := New("loader.read", KindNotFound, "api.yaml", errors.New("no such file"))
	assert.Equal(t, "loader.read: not_found (path=api.yaml): no such file", err.Error())

	var nilErr *OpError
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestIsKind(t *testing.T) {
	inner := New("ref.resolve", KindUnresolvedRef, "#/definitions/Pet", ErrNotFound)
	outer := New("validate", KindInvalidSpec, "api.yaml", inner)
	wrapped := fmt.Errorf("running: %w", outer)

	assert.True(t, IsKind(wrapped, KindInvalidSpec))
	assert.True(t, IsKind(wrapped, KindUnresolvedRef))
	assert.False(t, IsKind(wrapped, KindParse))
	assert.False(t, IsKind(errors.New("plain"), KindParse))
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}
