package app

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/hcl_adapter"
	"github.com/vk/apispec/internal/testutil"
)

const petstore = `swagger: "2.0"
info:
  title: Petstore
  version: "1.0.0"
  description: A sample pet store.
  contact:
    name: API team
    email: api@example.com
  license:
    name: MIT
host: petstore.example.com
basePath: /v1
schemes: [https]
tags:
  - name: pets
    description: Pet operations.
paths:
  /pets:
    get:
      tags: [pets]
      summary: List pets
      description: Returns every pet.
      operationId: listPets
      parameters:
        - name: limit
          in: query
          type: integer
          format: int32
          description: Page size.
      responses:
        "200":
          description: A list of pets.
          schema:
            type: array
            items:
              $ref: "#/definitions/Pet"
  /pets/{petId}:
    get:
      tags: [pets]
      summary: Show a pet
      description: Returns one pet.
      operationId: showPetById
      parameters:
        - name: petId
          in: path
          required: true
          type: string
          description: The pet id.
      responses:
        "200":
          description: The pet.
          schema:
            $ref: "#/definitions/Pet"
definitions:
  Pet:
    type: object
    required: [id, name]
    properties:
      id:
        type: integer
        format: int64
      name:
        type: string
      tag:
        type: string
`

// SetupAppTest writes files into a temporary directory and creates an app
// working there. Logs are kept in the returned buffer and printed when
// APISPEC_TEST_LOGS is "true".
func SetupAppTest(t *testing.T, files map[string]string, cfg Config, disable ...string) (*App, string, *testutil.SafeBuffer) {
	t.Helper()

	root := testutil.WriteFiles(t, files)
	cfg.WorkDir = root
	cfg.LogLevel = "debug"
	appConfig, err := NewConfig(cfg)
	require.NoError(t, err)

	logBuffer := &testutil.SafeBuffer{}
	testApp, err := NewApp(context.Background(), logBuffer, appConfig, hcl_adapter.NewLoader(), disable...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv(testutil.LogsEnv) == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return testApp, root, logBuffer
}
