package lint

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/config"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
)

const sloppy = `swagger: "2.0"
info:
  title: T
  version: "1"
host: https://api.example.com/v1
basePath: v1
schemes: [http, https]
tags:
  - name: pets
paths:
  /Pets/:
    get:
      operationId: List_pets
      tags: [pets, store]
      parameters:
        - {name: limit, in: query, type: integer}
      responses:
        400:
          description: bad
          schema: {$ref: "#/definitions/pet_item"}
    post:
      responses:
        201: {description: created}
definitions:
  pet_item:
    type: object
    properties:
      Name: {type: string}
  Unused:
    type: object
    properties:
      self: {$ref: "#/definitions/Unused"}
`

func decode(t *testing.T, src string) *loader.Document {
	t.Helper()
	doc, err := loader.Decode([]byte(src))
	require.NoError(t, err)
	return doc
}

func summarize(issues issue.List) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Rule+" "+i.Path)
	}
	sort.Strings(out)
	return out
}

func newLinter(t *testing.T, cfg config.Lint, disable ...string) *Linter {
	t.Helper()
	l, err := New(cfg, disable...)
	require.NoError(t, err)
	return l
}

func TestBuiltinRules(t *testing.T) {
	l := newLinter(t, config.Lint{Extends: config.ExtendsAll})
	got := l.LintDocument(context.Background(), decode(t, sloppy))

	want := []string{
		"basepath-leading-slash /basePath",
		"definition-casing /definitions/pet_item",
		"host-no-scheme /host",
		"host-no-scheme /host",
		"info-contact /info",
		"info-description /info",
		"info-license /info",
		"no-unused-definitions /definitions/Unused",
		"operation-description /paths/~1Pets~1/get",
		"operation-description /paths/~1Pets~1/post",
		"operation-operationid /paths/~1Pets~1/post",
		"operation-summary /paths/~1Pets~1/get",
		"operation-summary /paths/~1Pets~1/post",
		"operation-tag-defined /paths/~1Pets~1/get/tags/1",
		"operation-tags /paths/~1Pets~1/post",
		"operationid-casing /paths/~1Pets~1/get/operationId",
		"parameter-description /paths/~1Pets~1/get/parameters/0",
		"path-casing /paths/~1Pets~1",
		"path-trailing-slash /paths/~1Pets~1",
		"property-casing /definitions/pet_item/properties/Name",
		"response-success /paths/~1Pets~1/get/responses",
		"schemes-https /schemes/0",
		"tag-description /tags/0",
	}
	if diff := cmp.Diff(want, summarize(got)); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}

	for _, i := range got {
		if i.Rule == "operationid-casing" {
			assert.Equal(t, `operationId "List_pets" is not camel case (expected "listPets")`, i.Message)
		}
		if i.Rule == "path-casing" {
			assert.Equal(t, `path segment "Pets" is not kebab case (expected "pets")`, i.Message)
		}
	}
}

func TestBuiltinRules_Options(t *testing.T) {
	src := `swagger: "2.0"
info: {title: T, version: "1", description: d, contact: {name: n}}
paths:
  /pet_items/{id}.json:
    get:
      operationId: get_pet
      summary: s
      tags: [pets]
      responses:
        200: {description: ok}
tags:
  - {name: pets, description: d}
`
	l := newLinter(t, config.Lint{
		Extends: config.ExtendsRecommended,
		Rules: map[string]config.RuleSetting{
			"path-casing":        {Options: map[string]any{"style": "snake"}},
			"operationid-casing": {Options: map[string]any{"style": "snake"}},
		},
	})
	assert.Empty(t, l.LintDocument(context.Background(), decode(t, src)))

	l = newLinter(t, config.Lint{
		Extends: config.ExtendsRecommended,
		Rules: map[string]config.RuleSetting{
			"path-casing": {Options: map[string]any{"style": "shouty"}},
		},
	})
	got := l.LintDocument(context.Background(), decode(t, src))
	require.Len(t, got, 2)
	assert.Equal(t, "path-casing", got[0].Rule)
	assert.Equal(t, "", got[0].Path)
	assert.Contains(t, got[0].Message, "unknown casing style")
	assert.Equal(t, "operationid-casing /paths/~1pet_items~1{id}.json/get/operationId", got[1].Rule+" "+got[1].Path)
}
