package codegen

import (
	"context"
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/errs"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/spec"
)

const petstore = `swagger: "2.0"
info: {title: Petstore, version: "1.0"}
basePath: /v1
paths:
  /pets:
    get:
      operationId: list-pets
      summary: List pets
      parameters:
        - {name: limit, in: query, type: integer, default: 20}
        - {name: tags, in: query, type: array, items: {type: string}, collectionFormat: multi}
        - {name: X-Request-ID, in: header, type: string, required: true}
      responses:
        200: {description: ok}
    post:
      operationId: createPet
      parameters:
        - name: pet
          in: body
          required: true
          schema: {$ref: "#/definitions/Pet"}
      responses:
        201: {description: created}
  /pets/{pet_id}:
    parameters:
      - {name: pet_id, in: path, required: true, type: integer}
    delete:
      responses:
        204: {description: deleted}
  /pets/{pet_id}/photo:
    post:
      operationId: uploadPhoto
      consumes: [multipart/form-data]
      parameters:
        - {name: pet_id, in: path, required: true, type: integer}
        - {name: caption, in: formData, type: string}
        - {name: file, in: formData, type: file}
      responses:
        200: {description: ok}
definitions:
  Pet:
    type: object
    description: A pet in the store.
    required: [name]
    properties:
      id: {type: integer}
      name: {type: string}
      status: {type: string, enum: [available, sold]}
      born: {type: string, format: date-time}
      owner:
        type: object
        properties:
          email: {type: string}
      category: {$ref: "#/definitions/Category"}
  Category:
    type: object
    properties:
      name: {type: string}
  Color:
    type: string
    enum: [red, dark-blue]
`

func build(t *testing.T, src string) (*spec.Swagger, *model.Set) {
	t.Helper()
	doc, err := loader.Decode([]byte(src))
	require.NoError(t, err)
	sw, issues := spec.Build(context.Background(), doc)
	require.False(t, issues.HasErrors(), "%v", issues)
	models, err := model.Compile(sw)
	require.NoError(t, err)
	return sw, models
}

var blanks = regexp.MustCompile(`[ \t]+`)

// contents maps file names to their source with runs of blanks squashed,
// so assertions do not depend on gofmt column alignment.
func contents(files Files) map[string]string {
	out := make(map[string]string, len(files))
	for _, f := range files {
		out[f.Name] = blanks.ReplaceAllString(string(f.Content), " ")
	}
	return out
}

func TestGenerate_AllTargets(t *testing.T) {
	sw, models := build(t, petstore)

	files, err := Generate(context.Background(), sw, models, Options{Package: "petstore", Tests: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"models.go", "params.go", "server.go", "server_test.go", "client.go", "client_test.go"}, files.Names())

	fset := token.NewFileSet()
	for _, f := range files {
		parsed, err := parser.ParseFile(fset, f.Name, f.Content, parser.ParseComments)
		require.NoError(t, err, f.Name)
		assert.Equal(t, "petstore", parsed.Name.Name)
		assert.Contains(t, string(f.Content), "// Code generated by apispec. DO NOT EDIT.")
	}

	src := contents(files)

	modelSrc := src["models.go"]
	assert.Contains(t, modelSrc, "type Pet struct {")
	assert.Contains(t, modelSrc, "// A pet in the store.")
	assert.Contains(t, modelSrc, "Name string `json:\"name\"`")
	assert.Contains(t, modelSrc, "ID int64 `json:\"id,omitempty\"`")
	assert.Contains(t, modelSrc, "Born *time.Time `json:\"born,omitempty\"`")
	assert.Contains(t, modelSrc, "Category *Category `json:\"category,omitempty\"`")
	assert.Contains(t, modelSrc, "Owner *PetOwner `json:\"owner,omitempty\"`")
	assert.Contains(t, modelSrc, "type PetOwner struct {")
	assert.Contains(t, modelSrc, "Status PetStatus `json:\"status,omitempty\"`")
	assert.Contains(t, modelSrc, `PetStatusAvailable PetStatus = "available"`)
	assert.Contains(t, modelSrc, "type Color string")
	assert.Contains(t, modelSrc, `ColorDarkBlue Color = "dark-blue"`)

	params := src["params.go"]
	assert.Contains(t, params, "type ListPetsParams struct {")
	assert.Contains(t, params, "Limit int64")
	assert.Contains(t, params, "Tags []string")
	assert.Contains(t, params, "XRequestID string")
	assert.Contains(t, params, "Pet Pet")
	assert.Contains(t, params, "type DeletePetsPetIDParams struct {")
	assert.Contains(t, params, `// The file parameter "file" is read from the request by the handler.`)

	server := src["server.go"]
	assert.Contains(t, server, "ListPets(w http.ResponseWriter, r *http.Request, params ListPetsParams)")
	assert.Contains(t, server, `mux.HandleFunc("GET /v1/pets",`)
	assert.Contains(t, server, `mux.HandleFunc("DELETE /v1/pets/{petID}",`)
	assert.Contains(t, server, `r.PathValue("petID")`)
	assert.Contains(t, server, `params.Limit = 20`)
	assert.Contains(t, server, `q["tags"]`)
	assert.Contains(t, server, `errors.New("header parameter \"X-Request-ID\" is required")`)
	assert.Contains(t, server, "r.ParseMultipartForm")

	client := src["client.go"]
	assert.Contains(t, client, "func (c *Client) ListPets(ctx context.Context, params ListPetsParams) (*http.Response, error) {")
	assert.Contains(t, client, `path := "/v1/pets/" + url.PathEscape(fmt.Sprint(params.PetID))`)
	assert.Contains(t, client, `query.Add("tags", v)`)
	assert.Contains(t, client, `req.Header.Set("X-Request-ID", params.XRequestID)`)
	assert.Contains(t, client, `"application/x-www-form-urlencoded"`)

	assert.Contains(t, src["server_test.go"], `target: "/v1/pets/1",`)
	assert.Contains(t, src["client_test.go"], `c.DeletePetsPetID(context.Background(), DeletePetsPetIDParams{PetID: 1})`)
	assert.Contains(t, src["client_test.go"], `"DELETE /v1/pets/1"`)
}

func TestGenerate_GeneratedTestsPass(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the go tool on the generated package")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go tool not found")
	}

	sw, models := build(t, petstore)
	files, err := Generate(context.Background(), sw, models, Options{Package: "petstore", Tests: true})
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, files.Write(dir))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/petstore\n\ngo 1.22\n"), 0o644))

	cmd := exec.Command(goBin, "test", "./...")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "generated package failed:\n%s", out)
	assert.Contains(t, string(out), "ok")
}

func TestGenerate_ServerWithoutModelsUsesRawJSON(t *testing.T) {
	sw, models := build(t, petstore)

	files, err := Generate(context.Background(), sw, models, Options{Targets: []string{TargetServer}})
	require.NoError(t, err)
	assert.Equal(t, []string{"params.go", "server.go"}, files.Names())
	assert.Contains(t, contents(files)["params.go"], "Pet json.RawMessage")
	assert.Contains(t, contents(files)["params.go"], "package api")
}

func TestGenerate_Errors(t *testing.T) {
	sw, models := build(t, petstore)
	ctx := context.Background()

	_, err := Generate(ctx, sw, models, Options{Package: "not-a-package"})
	assert.True(t, errs.IsKind(err, errs.KindInvalidConfig))

	_, err = Generate(ctx, sw, models, Options{Targets: []string{"docs"}})
	assert.ErrorContains(t, err, `unknown target "docs"`)

	mixed, mixedModels := build(t, `swagger: "2.0"
info: {title: t, version: "1"}
paths:
  /files/{name}.json:
    get:
      parameters: [{name: name, in: path, required: true, type: string}]
      responses: {200: {description: ok}}
`)
	_, err = Generate(ctx, mixed, mixedModels, Options{Targets: []string{TargetServer}})
	assert.True(t, errs.IsKind(err, errs.KindUnsupported))

	files, err := Generate(ctx, mixed, mixedModels, Options{Targets: []string{TargetClient}})
	require.NoError(t, err)
	client := contents(files)["client.go"]
	assert.Contains(t, client, `path := "/files/" + url.PathEscape(params.Name) + ".json"`)
	assert.NotContains(t, client, "{name}")

	overlapping, overlappingModels := build(t, `swagger: "2.0"
info: {title: t, version: "1"}
paths:
  /a/{x}:
    get:
      parameters: [{name: x, in: path, required: true, type: string}]
      responses: {200: {description: ok}}
  /{y}/b:
    get:
      parameters: [{name: y, in: path, required: true, type: string}]
      responses: {200: {description: ok}}
`)
	_, err = Generate(ctx, overlapping, overlappingModels, Options{Targets: []string{TargetServer}})
	assert.True(t, errs.IsKind(err, errs.KindUnsupported))
	assert.ErrorContains(t, err, "conflicts with")

	_, err = Generate(ctx, overlapping, overlappingModels, Options{Targets: []string{TargetClient}})
	assert.NoError(t, err, "overlapping routes only matter to the server")
}

func TestConflicts(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"GET /a/{x}", "GET /{y}/b", true},
		{"GET /a/{x}", "GET /a/{y}", true},
		{"GET /pets/{id}", "GET /pets/mine", false},
		{"GET /pets/{id}", "POST /{kind}/mine", false},
		{"GET /pets", "GET /pets/{id}", false},
		{"GET /pets/{id}", "HEAD /pets/{id}", false},
		{"GET /a/{x}", "HEAD /{y}/b", true},
		{"GET /pets/{$}", "GET /pets/{id}", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, conflicts(tt.a, tt.b))
			assert.Equal(t, tt.want, conflicts(tt.b, tt.a))
		})
	}
}

func TestFiles_Write(t *testing.T) {
	dir := t.TempDir() + "/out"
	files := Files{{Name: "a.go", Content: []byte("package a\n")}}
	require.NoError(t, files.Write(dir))
	assert.FileExists(t, dir+"/a.go")
}

func TestGoName(t *testing.T) {
	tests := []struct {
		in       string
		exported bool
		want     string
	}{
		{"pet_id", true, "PetID"},
		{"list-pets", true, "ListPets"},
		{"getHTTPStatus_v2", true, "GetHTTPStatusV2"},
		{"X-Request-ID", false, "xRequestID"},
		{"200", true, "N200"},
		{"type", false, "type_"},
		{"url", true, "URL"},
		{"!!", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, GoName(tt.in, tt.exported))
		})
	}
}
