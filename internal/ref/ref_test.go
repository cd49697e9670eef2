package ref

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/loader"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func load(t *testing.T, path string) *loader.Document {
	t.Helper()
	doc, err := loader.NewFileLoader().Load(context.Background(), path)
	require.NoError(t, err)
	return doc
}

func TestCollect(t *testing.T) {
	doc, err := loader.Decode([]byte(`
paths:
  /a:
    get:
      parameters: [{$ref: "#/parameters/P"}]
definitions:
  A: {$ref: "other.yaml#/definitions/A"}
  B:
    properties:
      self: {$ref: "#/definitions/B"}
      count: {type: integer}
  C: {$ref: 42}
`))
	require.NoError(t, err)

	var got []string
	for _, r := range Collect(doc.Data) {
		got = append(got, r.At.String()+" "+r.Value)
	}
	want := []string{
		"/definitions/A other.yaml#/definitions/A",
		"/definitions/B/properties/self #/definitions/B",
		"/paths/~1a/get/parameters/0 #/parameters/P",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect mismatch (-want +got):\n%s", diff)
	}

	assert.True(t, Ref{Value: "#/x"}.IsLocal())
	assert.True(t, Ref{Value: "https://example.com/a.yaml"}.IsRemote())
	assert.False(t, Ref{Value: "a.yaml"}.IsRemote())
}

func TestLocate(t *testing.T) {
	cases := []struct {
		base, ref, location, fragment string
	}{
		{"specs/api.yaml", "#/definitions/Pet", "specs/api.yaml", "#/definitions/Pet"},
		{"specs/api.yaml", "common/errors.yaml#/Error", filepath.Join("specs", "common", "errors.yaml"), "#/Error"},
		{"specs/api.yaml", "../shared.yaml", "shared.yaml", ""},
		{"https://example.com/v1/api.yaml", "common.yaml#/X", "https://example.com/v1/common.yaml", "#/X"},
		{"specs/api.yaml", "https://example.com/c.yaml#/X", "https://example.com/c.yaml", "#/X"},
	}
	for _, tc := range cases {
		t.Run(tc.ref, func(t *testing.T) {
			loc, frag, err := Locate(tc.base, tc.ref)
			require.NoError(t, err)
			assert.Equal(t, tc.location, loc)
			assert.Equal(t, tc.fragment, frag)
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"api.yaml":           "definitions:\n  Pet: {type: object}\n",
		"common/errors.yaml": "definitions:\n  Error: {type: object, required: [code]}\n",
	})
	base := filepath.Join(dir, "api.yaml")
	root := load(t, base)
	r := NewResolver()
	ctx := context.Background()

	target, err := r.Resolve(ctx, base, root.Data, "#/definitions/Pet")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "object"}, target.Value)

	target, err = r.Resolve(ctx, base, root.Data, "common/errors.yaml#/definitions/Error")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "common", "errors.yaml"), target.Location)
	assert.Equal(t, "/definitions/Error", target.Pointer.String())

	_, err = r.Resolve(ctx, base, root.Data, "#/definitions/Owner")
	assert.True(t, errs.IsKind(err, errs.KindUnresolvedRef))

	_, err = r.Resolve(ctx, base, root.Data, "missing.yaml#/x")
	assert.True(t, errs.IsKind(err, errs.KindNotFound))

	_, err = r.Resolve(ctx, base, root.Data, "https://example.com/x.yaml#/x")
	assert.ErrorIs(t, err, ErrRemoteDisabled)
}

func TestResolver_Remote(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("definitions:\n  Error: {type: object}\n"))
	}))
	defer srv.Close()

	r := NewResolver(WithRemote(loader.NewHTTPFetcher(5 * time.Second)))
	for range 3 {
		target, err := r.Resolve(context.Background(), "api.yaml", nil, srv.URL+"/common.yaml#/definitions/Error")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"type": "object"}, target.Value)
	}
	assert.Equal(t, int32(1), hits.Load(), "remote documents are cached per resolver")
}

func TestResolver_Check(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"api.yaml": `swagger: "2.0"
definitions:
  Node:
    type: object
    properties:
      children: {type: array, items: {$ref: "#/definitions/Node"}}
  A: {$ref: "#/definitions/B"}
  B: {$ref: "#/definitions/C"}
  C: {$ref: "#/definitions/A", x-note: aliases}
  Error: {$ref: "common.yaml#/definitions/Error"}
  Gone: {$ref: "common.yaml#/definitions/Gone"}
paths:
  /a:
    get:
      responses:
        200: {schema: {$ref: "#/definitions/Missing"}}
`,
		"common.yaml": "definitions:\n  Error: {type: object}\n",
	})
	doc := load(t, filepath.Join(dir, "api.yaml"))

	issues := NewResolver().Check(context.Background(), doc)
	issues.Sort()

	var got []string
	for _, i := range issues {
		got = append(got, i.Rule+" "+i.Path)
	}
	want := []string{
		"ref.cycle /definitions/A/$ref",
		"ref.unresolved /definitions/Gone/$ref",
		"ref.unresolved /paths/~1a/get/responses/200/schema/$ref",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Check mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "reference cycle: #/definitions/A -> #/definitions/B -> #/definitions/C -> #/definitions/A", issues[0].Message)
	assert.Contains(t, issues[2].Message, `key "Missing" not found`)
}

func TestResolver_CheckSelfAlias(t *testing.T) {
	doc, err := loader.Decode([]byte("definitions:\n  A: {$ref: \"#/definitions/A\"}\n"))
	require.NoError(t, err)

	issues := NewResolver().Check(context.Background(), doc)
	require.Len(t, issues, 1)
	assert.Equal(t, RuleCycle, issues[0].Rule)
}

func TestResolver_Bundle(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"api.yaml": `swagger: "2.0"
parameters:
  Limit: {name: limit, in: query, type: integer}
definitions:
  Error: {type: string}
  Pet:
    properties:
      owner: {$ref: "people.yaml#/definitions/Person"}
      again: {$ref: "people.yaml#/definitions/Person"}
paths:
  /pets:
    get:
      parameters:
        - {$ref: "#/parameters/Limit"}
        - {$ref: "shared/params.yaml#/Trace"}
      responses:
        200: {$ref: "shared/responses.yaml#/PetList"}
        default: {$ref: "common.yaml#/definitions/Error"}
`,
		"people.yaml": `definitions:
  Person:
    properties:
      address: {$ref: "#/definitions/Address"}
  Address: {type: object}
`,
		"shared/params.yaml":    "Trace: {name: X-Trace, in: header, type: string}\n",
		"shared/responses.yaml": "PetList: {description: pets, schema: {type: array, items: {$ref: \"../api.yaml#/definitions/Pet\"}}}\n",
		"common.yaml":           "definitions:\n  Error: {type: object, properties: {code: {type: integer}}}\n",
	})
	doc := load(t, filepath.Join(dir, "api.yaml"))
	original := deepCopy(doc.Data)

	out, err := NewResolver().Bundle(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, original, doc.Data, "input must not be modified")

	assert.Empty(t, externalRefs(out))

	defs := out["definitions"].(map[string]any)
	assert.Contains(t, defs, "Person")
	assert.Contains(t, defs, "Address")
	assert.Equal(t, "string", defs["Error"].(map[string]any)["type"], "existing definitions are kept")
	assert.Equal(t, "object", defs["Error2"].(map[string]any)["type"], "colliding names get a suffix")

	pet := defs["Pet"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "#/definitions/Person", pet["owner"].(map[string]any)["$ref"])
	assert.Equal(t, "#/definitions/Person", pet["again"].(map[string]any)["$ref"], "a target is imported once")
	person := defs["Person"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "#/definitions/Address", person["address"].(map[string]any)["$ref"])

	params := out["parameters"].(map[string]any)
	assert.Contains(t, params, "Trace")
	assert.Contains(t, params, "Limit")

	responses := out["responses"].(map[string]any)
	petList := responses["PetList"].(map[string]any)
	items := petList["schema"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, "#/definitions/Pet", items["$ref"], "references back into the entry document stay local")
}

func TestResolver_IncludedFileRefs(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"api.yaml": "#include: parts/defs.yaml\nswagger: \"2.0\"\ndefinitions:\n  Root: {$ref: \"#/definitions/Owner\"}\n",
		"parts/defs.yaml": `definitions:
  Owner:
    properties:
      pet: {$ref: "common.yaml#/definitions/Pet"}
`,
		"parts/common.yaml": "definitions:\n  Pet: {type: object}\n",
	})
	doc, err := loader.NewFileLoader().LoadWithIncludes(context.Background(), filepath.Join(dir, "api.yaml"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "parts", "defs.yaml"), doc.OriginOf("/definitions/Owner/properties/pet"))

	r := NewResolver()
	assert.Empty(t, r.Check(context.Background(), doc), "refs in an included file are relative to that file")

	out, err := r.Bundle(context.Background(), doc)
	require.NoError(t, err)
	assert.Empty(t, externalRefs(out))
	defs := out["definitions"].(map[string]any)
	assert.Equal(t, "object", defs["Pet"].(map[string]any)["type"])
	owner := defs["Owner"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "#/definitions/Pet", owner["pet"].(map[string]any)["$ref"])
}

func TestResolver_BundleUnresolved(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"api.yaml": "definitions:\n  A: {$ref: \"nope.yaml#/definitions/A\"}\n",
	})
	_, err := NewResolver().Bundle(context.Background(), load(t, filepath.Join(dir, "api.yaml")))
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindUnresolvedRef))
}

func externalRefs(v any) []string {
	var out []string
	for _, r := range Collect(v) {
		if !r.IsLocal() {
			out = append(out, r.Value)
		}
	}
	return out
}
