package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("hello"), 0o644))

	rt := NewReadFileTool(WithRoot(dir))
	assert.True(t, rt.Metadata().Idempotent)

	res, err := rt.Execute(context.Background(), map[string]any{"path": "note.txt"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hello", res.Output)

	res, err = rt.Execute(context.Background(), map[string]any{"path": "missing.txt"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestReadFileToolRejectsEscape(t *testing.T) {
	rt := NewReadFileTool(WithRoot(t.TempDir()))

	res, err := rt.Execute(context.Background(), map[string]any{"path": "../../etc/passwd"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "escapes")
}

func TestWriteAndListDirTools(t *testing.T) {
	dir := t.TempDir()
	wt := NewWriteFileTool(WithRoot(dir))
	lt := NewListDirTool(WithRoot(dir))

	res, err := wt.Execute(context.Background(), map[string]any{"path": "sub/a.txt", "content": "x"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = lt.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "sub/", res.Output)

	res, err = lt.Execute(context.Background(), map[string]any{"path": "sub"})
	require.NoError(t, err)
	assert.Equal(t, "a.txt", res.Output)
}

func TestShellTool(t *testing.T) {
	st := NewShellTool()
	assert.False(t, st.Metadata().Idempotent, "shell commands must never be auto-retried")

	res, err := st.Execute(context.Background(), map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "hello", res.Output)

	res, err = st.Execute(context.Background(), map[string]any{"command": "exit 3"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "exit status 3")
}

func TestHTTPToolReadOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	ht := NewHTTPTool(WithReadOnly())
	assert.True(t, ht.Metadata().Idempotent)

	res, err := ht.Execute(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "payload", res.Output)

	res, err = ht.Execute(context.Background(), map[string]any{"url": srv.URL, "method": "POST"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "read-only")
}

func TestHTTPToolFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	ht := NewHTTPTool()
	res, err := ht.Execute(context.Background(), map[string]any{"url": srv.URL})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "HTTP 403")
}

func TestMetadataSchema(t *testing.T) {
	meta := Metadata{
		Name: "sample",
		Parameters: []Parameter{
			{Name: "a", Type: "string", Required: true},
			{Name: "b", Type: "integer"},
		},
	}
	schema := meta.Schema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"a"}, schema["required"])

	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
}
