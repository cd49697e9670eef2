package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/issue"
)

const petstoreYAML = `swagger: "2.0"
info:
  title: Petstore
  version: 1.0.0
paths:
  /pets:
    get:
      responses:
        200:
          description: ok
        default:
          description: error
definitions:
  Pet:
    type: object
    properties:
      id: {type: integer, format: int64, minimum: 1}
      weight: {type: number, default: 1.5}
      tame: {type: boolean, default: true}
      nick: {type: string, default: null}
`

func TestDecode_YAML(t *testing.T) {
	doc, err := Decode([]byte(petstoreYAML))
	require.NoError(t, err)

	assert.Equal(t, "2.0", doc.Data["swagger"])

	responses := doc.Data["paths"].(map[string]any)["/pets"].(map[string]any)["get"].(map[string]any)["responses"].(map[string]any)
	assert.Contains(t, responses, "200", "numeric keys must become strings")
	assert.Contains(t, responses, "default")

	props := doc.Data["definitions"].(map[string]any)["Pet"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, int64(1), props["id"].(map[string]any)["minimum"])
	assert.Equal(t, 1.5, props["weight"].(map[string]any)["default"])
	assert.Equal(t, true, props["tame"].(map[string]any)["default"])
	assert.Nil(t, props["nick"].(map[string]any)["default"])
	assert.Equal(t, "1.0.0", doc.Data["info"].(map[string]any)["version"])

	assert.Equal(t, issue.Position{Line: 2, Column: 1}, doc.Positions["/info"])
	assert.Equal(t, issue.Position{Line: 9, Column: 9}, doc.Positions["/paths/~1pets/get/responses/200"])

	assert.Equal(t, "1.5", doc.Literals["/definitions/Pet/properties/weight/default"])
	assert.NotContains(t, doc.Literals, "/info/version", "quoted scalars are already text")
}

func TestDecode_KeepsNumericSpelling(t *testing.T) {
	doc, err := Decode([]byte("info: {version: 1.0, build: 0x1F}\n"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, doc.Data["info"].(map[string]any)["version"])
	assert.Equal(t, "1.0", doc.Literals["/info/version"])
	assert.Equal(t, "0x1F", doc.Literals["/info/build"])
}

func TestDecode_JSON(t *testing.T) {
	doc, err := Decode([]byte(`{"swagger": "2.0", "schemes": ["https", "http"], "x-rate": 10}`))
	require.NoError(t, err)

	assert.Equal(t, []any{"https", "http"}, doc.Data["schemes"])
	assert.Equal(t, int64(10), doc.Data["x-rate"])
}

func TestDecode_MergeKeys(t *testing.T) {
	src := `
base: &base
  type: string
  maxLength: 10
definitions:
  Name:
    <<: *base
    maxLength: 20
`
	doc, err := Decode([]byte(src))
	require.NoError(t, err)

	name := doc.Data["definitions"].(map[string]any)["Name"].(map[string]any)
	assert.Equal(t, "string", name["type"])
	assert.Equal(t, int64(20), name["maxLength"], "explicit keys win over merged ones")
}

func TestDecode_UTF16WithBOM(t *testing.T) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("swagger: \"2.0\"\n"))
	require.NoError(t, err)

	doc, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Data["swagger"])
}

func TestDecode_UTF8BOM(t *testing.T) {
	doc, err := Decode(append([]byte{0xEF, 0xBB, 0xBF}, []byte("swagger: \"2.0\"\n")...))
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc.Data["swagger"])
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		message string
	}{
		{name: "empty", input: "   \n", message: "document is empty"},
		{name: "top-level sequence", input: "- a\n- b\n", message: "top-level value must be a mapping"},
		{name: "top-level scalar", input: "hello", message: "top-level value must be a mapping"},
		{name: "syntax error", input: "a: [1, 2\n", message: "yaml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.input))
			require.Error(t, err)
			assert.True(t, errs.IsKind(err, errs.KindParse))
			assert.ErrorContains(t, err, tc.message)
		})
	}
}

func TestExtractIncludes(t *testing.T) {
	raw := []byte("#include: paths/pets.yaml\r\n# a normal comment\n#include:   definitions.yaml  \nswagger: '2.0'\n  #include: indented.yaml\n#include:\n")
	assert.Equal(t, []string{"paths/pets.yaml", "definitions.yaml"}, ExtractIncludes(raw))
}
