package spec

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
)

const petstore = `swagger: "2.0"
info:
  title: Petstore
  version: 1.0
  x-audience: public
  license: {name: MIT}
host: petstore.example.com
basePath: /v1
schemes: [https]
tags:
  - pets
  - name: store
    description: Store operations
securityDefinitions:
  api_key: {type: apiKey, name: X-API-Key, in: header}
  oauth:
    type: oauth2
    flow: implicit
    authorizationUrl: https://example.com/auth
    scopes: {"read:pets": read pets}
security:
  - api_key: []
paths:
  /pets/{petId}:
    parameters:
      - {name: petId, in: path, required: true, type: integer, format: int64}
    get:
      operationId: getPet
      tags: [pets]
      responses:
        200:
          description: A pet
          schema: {$ref: "#/definitions/Pet"}
        default: {$ref: "#/responses/Error"}
    delete:
      operationId: deletePet
      security: []
      responses:
        204: {description: deleted}
  /pets:
    post:
      operationId: createPet
      parameters:
        - {$ref: "#/parameters/Trace"}
        - name: body
          in: body
          schema: {$ref: "#/definitions/Pet"}
      responses:
        201: {description: created}
parameters:
  Trace: {name: X-Trace, in: header, type: string}
responses:
  Error: {description: error}
definitions:
  Pet:
    type: object
    required: [name]
    properties:
      id: {type: integer, format: int64, minimum: 1}
      name: {type: string, maxLength: 40}
      tags:
        type: array
        items: {type: string}
    additionalProperties: false
    example: {id: 1, name: Rex}
`

func build(t *testing.T, src string) (*Swagger, issue.List) {
	t.Helper()
	doc, err := loader.Decode([]byte(src))
	require.NoError(t, err)
	return Build(context.Background(), doc)
}

func rulesOf(l issue.List) []string {
	var out []string
	for _, i := range l {
		out = append(out, i.Rule+" "+i.Path)
	}
	return out
}

func TestBuild_Petstore(t *testing.T) {
	sw, issues := build(t, petstore)
	require.Empty(t, issues)

	assert.Equal(t, "2.0", sw.Swagger)
	assert.Equal(t, "Petstore", sw.Info.Title)
	assert.Equal(t, "1.0", sw.Info.Version, "unquoted numeric versions keep their spelling")
	assert.Equal(t, "public", sw.Info.Extensions["x-audience"])
	assert.Equal(t, "MIT", sw.Info.License.Name)
	assert.Equal(t, []string{"https"}, sw.Schemes)

	require.Len(t, sw.Tags, 2)
	assert.Equal(t, "pets", sw.Tags[0].Name)
	assert.Equal(t, "Store operations", sw.Tags[1].Description)

	item := sw.Paths["/pets/{petId}"]
	require.NotNil(t, item)
	require.Len(t, item.Parameters, 1)
	assert.Equal(t, "integer", item.Parameters[0].Type)

	get := item.Operations["get"]
	require.NotNil(t, get)
	assert.Equal(t, "getPet", get.OperationID)
	assert.Equal(t, "/paths/~1pets~1{petId}/get", get.Pointer.String())
	assert.Equal(t, "#/definitions/Pet", get.Responses.Codes["200"].Schema.Ref)
	assert.Equal(t, "#/responses/Error", get.Responses.Default.Ref)
	assert.Nil(t, get.Security, "inherits document security")

	del := item.Operations["delete"]
	assert.NotNil(t, del.Security)
	assert.Empty(t, del.Security, "explicit opt-out")

	pet := sw.Definitions["Pet"]
	require.NotNil(t, pet)
	assert.Equal(t, []string{"id", "name", "tags"}, pet.SortedProperties())
	assert.Equal(t, 1.0, *pet.Properties["id"].Minimum)
	assert.Equal(t, int64(40), *pet.Properties["name"].MaxLength)
	assert.Equal(t, "string", pet.Properties["tags"].Items.Type)
	assert.False(t, pet.AdditionalProperties.Allowed)
	assert.True(t, pet.HasExample)

	assert.Equal(t, []string{"read:pets"}, keys(sw.SecurityDefinitions["oauth"].Scopes))
	require.Len(t, sw.Security, 1)
	assert.Equal(t, []string{}, sw.Security[0].Schemes["api_key"])
}

func keys(m map[string]string) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestBuild_RequiredKeys(t *testing.T) {
	src := `swagger: "2.0"
info: {license: {url: "https://x"}}
tags: [{description: nameless}]
externalDocs: {description: docs}
paths:
  /a:
    get:
      parameters:
        - {type: string}
      responses:
        200: {}
    post: {}
`
	_, issues := build(t, src)
	issues.Sort()

	want := []string{
		"structure.required /externalDocs",
		"structure.required /info",
		"structure.required /info",
		"structure.required /info/license",
		"structure.required /paths/~1a/get/parameters/0",
		"structure.required /paths/~1a/get/parameters/0",
		"structure.required /paths/~1a/get/responses/200",
		"structure.required /paths/~1a/post",
		"structure.required /tags/0",
	}
	if diff := cmp.Diff(want, rulesOf(issues)); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
	for _, i := range issues {
		assert.Equal(t, issue.SeverityError, i.Severity)
	}
	assert.Contains(t, issues[0].Message, `missing required key "url" in externalDocs`)
}

func TestBuild_MissingTopLevel(t *testing.T) {
	_, issues := build(t, "host: example.com\n")
	issues.Sort()
	assert.Equal(t, []string{
		"structure.required ",
		"structure.required ",
		"structure.required ",
	}, rulesOf(issues))
}

func TestBuild_Types(t *testing.T) {
	src := `swagger: "2.0"
info: {title: [x], version: "1"}
schemes: https
paths:
  /a:
    get:
      deprecated: "yes"
      parameters:
        - {name: q, in: query, type: object}
        - {name: limit, in: query, type: integer, maximum: ten}
      responses:
        ok: {description: nope}
        200: {description: fine}
  b: {}
definitions:
  Bad: [1, 2]
`
	_, issues := build(t, src)
	issues.Sort()

	want := []string{
		"structure.type /definitions/Bad",
		"structure.type /info/title",
		"structure.type /paths/b",
		"structure.type /paths/~1a/get/deprecated",
		"structure.type /paths/~1a/get/parameters/0/type",
		"structure.type /paths/~1a/get/parameters/1/maximum",
		"structure.type /paths/~1a/get/responses/ok",
		"structure.type /schemes",
	}
	if diff := cmp.Diff(want, rulesOf(issues)); diff != "" {
		t.Errorf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ParameterLocation(t *testing.T) {
	src := `swagger: "2.0"
info: {title: t, version: "1"}
paths:
  /a:
    get:
      parameters:
        - {name: q, in: cookie, type: string}
        - {name: f, in: query, type: file}
        - {name: b, in: body}
      responses: {200: {description: ok}}
`
	_, issues := build(t, src)
	issues.Sort()
	assert.Equal(t, []string{
		"structure.parameter-location /paths/~1a/get/parameters/0/in",
		"structure.type /paths/~1a/get/parameters/1/type",
		"structure.required /paths/~1a/get/parameters/2",
	}, rulesOf(issues))
}

func TestBuild_Dialect(t *testing.T) {
	t.Run("openapi 3", func(t *testing.T) {
		sw, issues := build(t, "openapi: 3.0.3\ninfo: {title: t, version: '1'}\npaths: {}\n")
		require.Len(t, issues, 1)
		assert.Equal(t, RuleDialect, issues[0].Rule)
		assert.Equal(t, "/openapi", issues[0].Path)
		assert.Contains(t, issues[0].Message, "OpenAPI 3.0.3 documents are not supported")
		assert.Equal(t, "t", sw.Info.Title)
		assert.Empty(t, sw.Paths)
	})
	t.Run("wrong version", func(t *testing.T) {
		_, issues := build(t, "swagger: '1.2'\ninfo: {title: t, version: '1'}\npaths: {}\n")
		require.Len(t, issues, 1)
		assert.Equal(t, RuleDialect, issues[0].Rule)
		assert.Equal(t, "/swagger", issues[0].Path)
	})
	t.Run("unquoted version", func(t *testing.T) {
		_, issues := build(t, "swagger: 2.0\ninfo: {title: t, version: '1'}\npaths: {}\n")
		require.Len(t, issues, 1)
		assert.Equal(t, RuleType, issues[0].Rule)
	})
}

func TestBuild_SecuritySchemes(t *testing.T) {
	src := `swagger: "2.0"
info: {title: t, version: "1"}
paths: {}
securityDefinitions:
  key: {type: apiKey, in: cookie}
  oauth: {type: oauth2, flow: accessCode}
  weird: {type: magic}
`
	_, issues := build(t, src)
	issues.Sort()
	assert.Equal(t, []string{
		"structure.required /securityDefinitions/key",
		"structure.parameter-location /securityDefinitions/key/in",
		"structure.required /securityDefinitions/oauth",
		"structure.required /securityDefinitions/oauth",
		"structure.required /securityDefinitions/oauth",
		"structure.type /securityDefinitions/weird/type",
	}, rulesOf(issues))
}
