package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return name
}

func TestEngine_Execute_BasicResponse(t *testing.T) {
	dir := t.TempDir()
	name := writeScript(t, dir, "ok.expr", `response().WithStatusCode(201).WithData('{"ok":true}').Respond()`)

	e := NewEngine(dir)
	b, err := e.Execute(context.Background(), name, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 201, b.StatusCode)
	assert.Equal(t, `{"ok":true}`, b.Data)
}

func TestEngine_Execute_UsesRequestEnv(t *testing.T) {
	dir := t.TempDir()
	name := writeScript(t, dir, "echo.expr", `response().WithData(pathParams.id).Respond()`)

	e := NewEngine(dir)
	b, err := e.Execute(context.Background(), name, map[string]interface{}{
		"pathParams": map[string]string{"id": "42"},
	})
	require.NoError(t, err)
	assert.Equal(t, "42", b.Data)
}

func TestEngine_Execute_MissingRespondCallErrors(t *testing.T) {
	dir := t.TempDir()
	name := writeScript(t, dir, "bad.expr", `1 + 1`)

	e := NewEngine(dir)
	_, err := e.Execute(context.Background(), name, map[string]interface{}{})
	assert.Error(t, err)
}

func TestEngine_Execute_CompileErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	name := writeScript(t, dir, "broken.expr", `response(`)

	e := NewEngine(dir)
	_, err := e.Execute(context.Background(), name, map[string]interface{}{})
	assert.Error(t, err)
}

func TestEngine_Execute_CachesCompiledProgram(t *testing.T) {
	dir := t.TempDir()
	name := writeScript(t, dir, "cached.expr", `response().WithStatusCode(200).Respond()`)

	e := NewEngine(dir)
	_, err := e.Execute(context.Background(), name, map[string]interface{}{})
	require.NoError(t, err)

	path := e.resolve(name)
	e.mu.RLock()
	_, cached := e.cache[path]
	e.mu.RUnlock()
	assert.True(t, cached)
}

func TestEngine_Execute_InvalidateOnChangeRecompiles(t *testing.T) {
	dir := t.TempDir()
	name := writeScript(t, dir, "mutable.expr", `response().WithStatusCode(200).Respond()`)

	e := NewEngine(dir)
	e.InvalidateOnChange = true

	b, err := e.Execute(context.Background(), name, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 200, b.StatusCode)

	time.Sleep(10 * time.Millisecond)
	path := e.resolve(name)
	future := time.Now().Add(time.Second)
	require.NoError(t, os.WriteFile(path, []byte(`response().WithStatusCode(418).Respond()`), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	b, err = e.Execute(context.Background(), name, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 418, b.StatusCode)
}

func TestEngine_Execute_WithoutInvalidateKeepsStaleProgram(t *testing.T) {
	dir := t.TempDir()
	name := writeScript(t, dir, "stale.expr", `response().WithStatusCode(200).Respond()`)

	e := NewEngine(dir)

	b, err := e.Execute(context.Background(), name, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 200, b.StatusCode)

	path := e.resolve(name)
	future := time.Now().Add(time.Second)
	require.NoError(t, os.WriteFile(path, []byte(`response().WithStatusCode(418).Respond()`), 0o644))
	require.NoError(t, os.Chtimes(path, future, future))

	b, err = e.Execute(context.Background(), name, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, 200, b.StatusCode, "without InvalidateOnChange the cached program should be reused")
}

func TestEngine_LoggerFor_IsCachedPerScript(t *testing.T) {
	e := NewEngine(t.TempDir())
	a := e.loggerFor("one.expr")
	b := e.loggerFor("one.expr")
	assert.Same(t, a, b)

	c := e.loggerFor("two.expr")
	assert.NotSame(t, a, c)
}
