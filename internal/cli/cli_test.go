package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/fsutil"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/registry"
	"github.com/vk/apispec/internal/testutil"
)

var petstore = filepath.Join("..", "..", "testdata", "petstore.yaml")

const broken = `swagger: "2.0"
info:
  title: Broken
  version: "1"
`

// execute runs the command line and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(context.Background(), append([]string{"--log-level", "error"}, args...), Streams{
		In:  strings.NewReader(""),
		Out: &out,
		Err: &errOut,
	})
	return out.String(), errOut.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	return exitErr.Code
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "apispec dev (commit=none, date=unknown)\n", out)

	out, _, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "apispec dev")
}

func TestValidate(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{"broken.yaml": broken})
	brokenPath := filepath.Join(root, "broken.yaml")

	t.Run("valid spec", func(t *testing.T) {
		out, _, err := execute(t, "validate", "--format", "json", petstore)
		require.NoError(t, err)
		var issues issue.List
		require.NoError(t, json.Unmarshal([]byte(out), &issues))
		assert.False(t, issues.HasErrors())
	})
	t.Run("findings fail the run", func(t *testing.T) {
		out, _, err := execute(t, "validate", brokenPath)
		assert.Equal(t, ExitFindings, exitCode(t, err))
		assert.Contains(t, err.Error(), "check failed")
		assert.Contains(t, out, "structure.required")
	})
	t.Run("fail-on never", func(t *testing.T) {
		_, _, err := execute(t, "validate", "--fail-on", "never", brokenPath)
		assert.NoError(t, err)
	})
	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "validate", filepath.Join(root, "missing.yaml"))
		assert.Equal(t, ExitIO, exitCode(t, err))
	})
	t.Run("unparsable file", func(t *testing.T) {
		dir := testutil.WriteFiles(t, map[string]string{"bad.yaml": "swagger: [", "ok.yaml": broken})
		_, errOut, err := execute(t, "validate", "--fail-on", "never", dir)
		assert.Equal(t, ExitIO, exitCode(t, err))
		assert.Contains(t, errOut, "bad.yaml")
		assert.Contains(t, err.Error(), "1 of 2 files could not be loaded")
	})
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"validate", "--nope", petstore}},
		{"unknown command", []string{"frobnicate"}},
		{"missing argument", []string{"validate"}},
		{"too many arguments", []string{"bundle", petstore, petstore}},
		{"bad threshold", []string{"lint", "--fail-on", "fatal", petstore}},
		{"bad report format", []string{"lint", "--format", "xml", petstore}},
		{"bad bundle format", []string{"bundle", "--format", "toml", petstore}},
		{"bad log level", []string{"--log-level", "trace", "rules"}},
		{"bad workers", []string{"--workers", "-1", "rules"}},
		{"unknown disabled rule", []string{"lint", "--disable", "no-such-rule", petstore}},
		{"missing config file", []string{"--config", "does-not-exist.hcl", "rules"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			err := Execute(context.Background(), tt.args, Streams{In: strings.NewReader(""), Out: &out, Err: &errOut})
			assert.Equal(t, ExitUsage, exitCode(t, err), "error: %v", err)
		})
	}
}

func TestMalformedConfig(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{".apispec.hcl": "lint {"})
	_, _, err := execute(t, "--config", filepath.Join(root, ".apispec.hcl"), "validate", petstore)
	assert.Equal(t, ExitUsage, exitCode(t, err))
}

func TestLint(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{"broken.yaml": broken})
	path := filepath.Join(root, "broken.yaml")

	out, _, err := execute(t, "lint", "--fail-on", "warn", path)
	assert.Equal(t, ExitFindings, exitCode(t, err))
	assert.Contains(t, out, "info-description")

	out, _, err = execute(t, "lint", "--format", "json", "--disable", "info-description", path)
	require.NoError(t, err, "warnings pass the default threshold")
	assert.NotContains(t, out, "info-description")
}

func TestBundle(t *testing.T) {
	out, _, err := execute(t, "bundle", "--format", "json", petstore)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "2.0", doc["swagger"])

	target := filepath.Join(t.TempDir(), "bundle.yaml")
	out, _, err = execute(t, "bundle", "-o", target, petstore)
	require.NoError(t, err)
	assert.Empty(t, out)
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(b), "title: Swagger Petstore")
}

func TestGen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "petstore")

	out, _, err := execute(t, "gen", "client", "--package", "petstore", "-o", dir, petstore)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "params.go")+"\n"+filepath.Join(dir, "client.go")+"\n", out)
	b, err := os.ReadFile(filepath.Join(dir, "client.go"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "package petstore")

	all := filepath.Join(t.TempDir(), "all")
	out, _, err = execute(t, "gen", "--tests", "-o", all, petstore)
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(all, "server_test.go"))
	assert.Contains(t, out, filepath.Join(all, "models.go"))

	root := testutil.WriteFiles(t, map[string]string{"broken.yaml": broken})
	_, errOut, err := execute(t, "gen", "-o", filepath.Join(root, "gen"), filepath.Join(root, "broken.yaml"))
	assert.Equal(t, ExitFindings, exitCode(t, err))
	assert.Contains(t, errOut, "structure.required")
}

func TestDocsBuild(t *testing.T) {
	target := filepath.Join(t.TempDir(), "site", "index.html")

	out, _, err := execute(t, "docs", "build", "-o", target, "--title", "Pets API", petstore)
	require.NoError(t, err)
	assert.Contains(t, out, "4 operations")
	assert.Contains(t, out, "written to "+target)

	html, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Pets API")
}

func TestRules(t *testing.T) {
	out, _, err := execute(t, "rules", "--format", "json")
	require.NoError(t, err)
	var infos []registry.RuleInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.NotEmpty(t, infos)
	assert.Equal(t, "validate", infos[0].Set)
	assert.Equal(t, "lint", infos[len(infos)-1].Set)

	out, _, err = execute(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "RULE")
	assert.Contains(t, out, "operation.unique-id")
	assert.Contains(t, out, "path-casing")
}

func TestClean(t *testing.T) {
	root := testutil.WriteFiles(t, map[string]string{
		fsutil.CacheDirName + "/results.apispec.db": "db",
		"nested/old.apispec.db-shm":                 "shm",
		"api.yaml":                                  broken,
		"nested/readme.md":                          "keep",
	})

	out, _, err := execute(t, "clean", root)
	require.NoError(t, err)
	assert.Contains(t, out, "removed "+filepath.Join(root, fsutil.CacheDirName))
	assert.Contains(t, out, "removed "+filepath.Join(root, "nested", "old.apispec.db-shm"))
	assert.FileExists(t, filepath.Join(root, "api.yaml"))
	assert.FileExists(t, filepath.Join(root, "nested", "readme.md"))
	assert.NoDirExists(t, filepath.Join(root, fsutil.CacheDirName))

	out, _, err = execute(t, "clean", root)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestResultCacheFlag(t *testing.T) {
	cache := filepath.Join(t.TempDir(), fsutil.CacheDirName)

	_, _, err := execute(t, "--cache", cache, "validate", "--fail-on", "never", petstore)
	require.NoError(t, err)
	assert.DirExists(t, cache)
}
