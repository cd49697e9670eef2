package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/ctxlog"
)

func TestWriteFiles(t *testing.T) {
	root := WriteFiles(t, map[string]string{
		"api.yaml":        "swagger: '2.0'",
		"nested/dir/a.md": "hello",
	})

	b, err := os.ReadFile(filepath.Join(root, "nested", "dir", "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
	assert.FileExists(t, filepath.Join(root, "api.yaml"))
}

func TestSafeBuffer_ConcurrentWrites(t *testing.T) {
	var buf SafeBuffer
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = buf.Write([]byte("x"))
		}()
	}
	wg.Wait()
	assert.Len(t, buf.String(), 10)
}

func TestContext_CarriesLogger(t *testing.T) {
	ctx := Context(t)
	assert.NotNil(t, ctxlog.FromContext(ctx))
	ctxlog.Component(ctx, "test").Debug("visible with " + LogsEnv)
}
