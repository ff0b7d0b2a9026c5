package engine

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/mimic/pkg/httputil"
	_ "github.com/ashgrove/mimic/pkg/plugin/rest"
)

func writeConfig(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func newTestService(t *testing.T, dir string) *Service {
	t.Helper()
	manager := NewManager()
	_, err := manager.Load([]string{dir})
	require.NoError(t, err)
	return NewService(manager, nil)
}

func TestService_MatchesAndRendersInlineResponse(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mock.yaml", `
resources:
  - method: GET
    path: /users/{id}
    response:
      statusCode: 200
      data: '{"id": "static"}'
`)
	svc := newTestService(t, dir)

	req := httptest.NewRequest("GET", "/users/42", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.JSONEq(t, `{"id":"static"}`, rec.Body.String())
}

func TestService_NoMatchReturns404(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mock.yaml", `
resources:
  - method: GET
    path: /known
    response:
      statusCode: 200
`)
	svc := newTestService(t, dir)

	req := httptest.NewRequest("GET", "/unknown", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestService_ScriptOverridesStatusCode(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "respond.expr", `response().WithStatusCode(202).WithData('{"ok":true}').Respond()`)
	writeConfig(t, dir, "mock.yaml", `
resources:
  - method: POST
    path: /jobs
    response:
      statusCode: 200
      script: respond.expr
`)
	svc := newTestService(t, dir)

	req := httptest.NewRequest("POST", "/jobs", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	assert.Equal(t, 202, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestService_ScriptShortCircuitForcesEmptyBody(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "respond.expr", `response().WithStatusCode(204).WithData("ignored").Immediately().Respond()`)
	writeConfig(t, dir, "mock.yaml", `
resources:
  - method: DELETE
    path: /jobs/{id}
    response:
      statusCode: 200
      script: respond.expr
`)
	svc := newTestService(t, dir)

	req := httptest.NewRequest("DELETE", "/jobs/1", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	assert.Equal(t, 204, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestService_CapturesRunOnRequestReceived(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mock.yaml", `
resources:
  - method: GET
    path: /users/{id}
    response:
      statusCode: 200
      data: 'ok'
    captures:
      - name: lastUserId
        pathParam: id
`)
	manager := NewManager()
	_, err := manager.Load([]string{dir})
	require.NoError(t, err)
	svc := NewService(manager, nil)

	req := httptest.NewRequest("GET", "/users/99", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	store, err := manager.Stores.OpenOrCreate("default")
	require.NoError(t, err)
	value, err := store.Load("lastUserId")
	require.NoError(t, err)
	assert.Equal(t, "99", value)
}

func TestService_NoMatchFallsBackToPluginRootResponse(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mock.yaml", `
response:
  statusCode: 418
  data: '{"fallback":true}'
resources:
  - method: GET
    path: /known
    response:
      statusCode: 200
`)
	svc := newTestService(t, dir)

	req := httptest.NewRequest("GET", "/unknown", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	assert.Equal(t, 418, rec.Code)
	assert.JSONEq(t, `{"fallback":true}`, rec.Body.String())
}

func TestService_NoMatchStillReturns404WithoutRootResponse(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mock.yaml", `
resources:
  - method: GET
    path: /known
    response:
      statusCode: 200
`)
	svc := newTestService(t, dir)

	req := httptest.NewRequest("GET", "/unknown", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestService_RegisteredErrorHandlerOverridesDefault404(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mock.yaml", `
resources:
  - method: GET
    path: /known
    response:
      statusCode: 200
`)
	svc := newTestService(t, dir)

	var gotStatus int
	svc.RegisterErrorHandler(404, func(w http.ResponseWriter, r *http.Request, status int, cause error) {
		gotStatus = status
		httputil.WriteError(w, status, "not_found", "nothing here")
	})

	req := httptest.NewRequest("GET", "/unknown", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
	assert.Equal(t, 404, gotStatus)
	assert.JSONEq(t, `{"error":"not_found","message":"nothing here"}`, rec.Body.String())
}

func TestService_BasePathIsPrefixed(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "mock.yaml", `
basePath: /api/v1
resources:
  - method: GET
    path: /health
    response:
      statusCode: 200
`)
	svc := newTestService(t, dir)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	svc.ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
}
