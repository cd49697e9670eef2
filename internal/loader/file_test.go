package loader

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/errs"
)

func TestFileLoader_Load(t *testing.T) {
	fsys := fstest.MapFS{
		"api.yaml": {Data: []byte("#include: defs.yaml\nswagger: '2.0'\n")},
		"bad.yaml": {Data: []byte("- not a mapping\n")},
	}
	l := NewFileLoader(WithFS(fsys))

	doc, err := l.Load(context.Background(), "api.yaml")
	require.NoError(t, err)
	assert.Equal(t, "api.yaml", doc.Path)
	assert.Equal(t, []string{"defs.yaml"}, doc.Includes)

	_, err = l.Load(context.Background(), "missing.yaml")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	_, err = l.Load(context.Background(), "bad.yaml")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindParse))
	assert.ErrorContains(t, err, "path=bad.yaml")
}

func TestFileLoader_LoadWithIncludes(t *testing.T) {
	fsys := fstest.MapFS{
		"api.yaml": {Data: []byte(`#include: parts/paths.yaml
#include: parts/defs.yaml
swagger: "2.0"
info: {title: Main, version: "1"}
tags: [main]
definitions:
  Error: {type: object, description: from main}
`)},
		"parts/paths.yaml": {Data: []byte(`#include: shared.yaml
paths:
  /pets:
    get:
      responses: {200: {description: ok}}
tags: [pets]
`)},
		"parts/shared.yaml": {Data: []byte(`tags: [shared]
info: {title: Ignored, version: "2"}
`)},
		"parts/defs.yaml": {Data: []byte(`#include: shared.yaml
definitions:
  Pet: {type: object}
  Error: {type: object, description: from defs}
`)},
	}
	l := NewFileLoader(WithFS(fsys))

	doc, err := l.LoadWithIncludes(context.Background(), "api.yaml")
	require.NoError(t, err)

	assert.Equal(t, []any{"main", "pets", "shared"}, doc.Data["tags"], "sequences concatenate depth-first, each file once")
	assert.Contains(t, doc.Data, "paths")

	info := doc.Data["info"].(map[string]any)
	assert.Equal(t, "Ignored", info["title"], "mappings are updated by includes")

	defs := doc.Data["definitions"].(map[string]any)
	assert.Contains(t, defs, "Pet")
	assert.Equal(t, "from defs", defs["Error"].(map[string]any)["description"])

	assert.Equal(t, "parts/paths.yaml", doc.OriginOf("/paths/~1pets/get"))
	assert.Equal(t, "parts/defs.yaml", doc.OriginOf("/definitions/Pet"))
	assert.Equal(t, "parts/shared.yaml", doc.OriginOf("/tags/2"))
	assert.Equal(t, "api.yaml", doc.OriginOf("/swagger"))
	assert.Equal(t, 3, doc.Positions["/definitions/Pet"].Line)
}

func TestFileLoader_IncludeCycles(t *testing.T) {
	t.Run("two-file cycle", func(t *testing.T) {
		fsys := fstest.MapFS{
			"a.yaml": {Data: []byte("#include: b.yaml\nswagger: '2.0'\n")},
			"b.yaml": {Data: []byte("#include: a.yaml\ntags: [b]\n")},
		}
		_, err := NewFileLoader(WithFS(fsys)).LoadWithIncludes(context.Background(), "a.yaml")
		require.Error(t, err)
		assert.True(t, errs.IsKind(err, errs.KindIncludeCycle))
		assert.ErrorIs(t, err, errs.ErrIncludeCycle)
		assert.ErrorContains(t, err, "a.yaml -> b.yaml -> a.yaml")
	})

	t.Run("self include", func(t *testing.T) {
		fsys := fstest.MapFS{
			"a.yaml": {Data: []byte("#include: a.yaml\nswagger: '2.0'\n")},
		}
		_, err := NewFileLoader(WithFS(fsys)).LoadWithIncludes(context.Background(), "a.yaml")
		assert.True(t, errs.IsKind(err, errs.KindIncludeCycle))
	})

	t.Run("missing include", func(t *testing.T) {
		fsys := fstest.MapFS{
			"a.yaml": {Data: []byte("#include: nope.yaml\nswagger: '2.0'\n")},
		}
		_, err := NewFileLoader(WithFS(fsys)).LoadWithIncludes(context.Background(), "a.yaml")
		assert.True(t, errs.IsKind(err, errs.KindNotFound))
	})
}
