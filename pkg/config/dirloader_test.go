package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchFile(path string, modTime time.Time) error {
	return os.Chtimes(path, modTime, modTime)
}

func TestDirectoryLoader_LoadValidAndInvalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.yaml", `
resources:
  - method: GET
    path: /ping
    response:
      data: pong
`)
	writeFile(t, dir, "bad.yaml", "resources: [this is not valid yaml")

	loader := NewDirectoryLoader(dir)
	result, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Path, "bad.yaml")

	docs, ok := result.Documents["rest"]
	require.True(t, ok)
	require.Len(t, docs, 1)
	assert.Equal(t, "/ping", docs[0].Config.Resources[0].Path)
}

func TestDirectoryLoader_GroupsByPlugin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rest.yaml", `
resources:
  - path: /a
    response: { data: a }
`)
	writeFile(t, dir, "spec.yaml", `
plugin: openapi
specFile: petstore.yaml
`)

	loader := NewDirectoryLoader(dir)
	result, err := loader.Load()
	require.NoError(t, err)

	assert.Len(t, result.Documents["rest"], 1)
	assert.Len(t, result.Documents["openapi"], 1)
}

func TestDirectoryLoader_NotFound(t *testing.T) {
	loader := NewDirectoryLoader("/nonexistent/path/xyz")
	_, err := loader.Load()
	require.Error(t, err)
}

func TestDirectoryLoader_HasChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", `
resources:
  - path: /a
    response: { data: a }
`)

	loader := NewDirectoryLoader(dir)
	_, err := loader.Load()
	require.NoError(t, err)

	changed, err := loader.HasChanges()
	require.NoError(t, err)
	assert.Empty(t, changed)

	// Touch the file with a later mtime.
	future := time.Now().Add(time.Hour)
	require.NoError(t, touchFile(path, future))

	changed, err = loader.HasChanges()
	require.NoError(t, err)
	assert.Contains(t, changed, path)
}

func TestWatcher_EmitsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", `
resources:
  - path: /a
    response: { data: a }
`)

	loader := NewDirectoryLoader(dir)
	_, err := loader.Load()
	require.NoError(t, err)

	w := NewWatcher(loader)
	w.interval = 10 * time.Millisecond
	events := w.Start()
	defer w.Stop()

	require.NoError(t, touchFile(path, time.Now().Add(time.Hour)))

	select {
	case ev := <-events:
		assert.Equal(t, path, ev.Path)
		assert.Equal(t, "modified", ev.Type)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}
