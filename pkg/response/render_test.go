package response

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/script"
	"github.com/ashgrove/mimic/pkg/template"
)

func newTestContext() *template.Context {
	r := httptest.NewRequest("GET", "/things/1", nil)
	return template.NewContext(r, nil)
}

func TestRenderer_InlineData(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{StatusCode: 201, Data: `{"ok":true}`})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 201, out.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(out.Body))
	assert.Equal(t, "application/json", out.Headers["Content-Type"])
}

func TestRenderer_DefaultsStatusTo200(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{Data: "hi"})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, out.StatusCode)
}

func TestRenderer_FileContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "body.json"), []byte(`{"from":"file"}`), 0o644))

	r := NewRenderer(dir, template.New())
	spec := SpecFromConfig(config.ResponseConfig{File: "body.json"})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"from":"file"}`, string(out.Body))
	assert.Equal(t, "application/json", out.Headers["Content-Type"])
}

func TestRenderer_NonTemplatedFileBypassesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "body.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))

	r := NewRenderer(dir, template.New())
	spec := SpecFromConfig(config.ResponseConfig{File: "body.txt"})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", string(out.Body))

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))

	out, err = r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "second", string(out.Body), "a non-templated file is read fresh every time, never cached")
}

func TestRenderer_TemplatedFileContentIsCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "body.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))

	r := NewRenderer(dir, template.New())
	spec := SpecFromConfig(config.ResponseConfig{File: "body.txt", IsTemplate: true})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", string(out.Body))

	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))

	out, err = r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "first", string(out.Body), "templated file content should not change without cache invalidation")
}

func TestRenderer_ExampleLookup(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{ExampleName: "success"})

	lookup := func(name string) (string, bool) {
		if name == "success" {
			return `{"example":true}`, true
		}
		return "", false
	}

	out, err := r.Render(spec, lookup, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"example":true}`, string(out.Body))
}

func TestRenderer_ExampleLookupMissing(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{ExampleName: "missing"})

	lookup := func(name string) (string, bool) { return "", false }

	_, err := r.Render(spec, lookup, newTestContext(), nil, nil)
	assert.Error(t, err)
}

func TestRenderer_TemplateExpansion(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{
		Data:       `{"path":"{{request.path}}"}`,
		IsTemplate: true,
	})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"path":"/things/1"}`, string(out.Body))
}

func TestRenderer_ExplicitContentTypeWins(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{
		Data:        "<ok/>",
		ContentType: "application/custom+xml",
	})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/custom+xml", out.Headers["Content-Type"])
}

func TestRenderer_EmptyForcesNoBody(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{Data: "should be dropped"})
	spec.Empty = true

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out.Body)
}

func TestRenderer_FallsBackToJSONForUnrecognizedInlineData(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{Data: "just text"})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", out.Headers["Content-Type"])
}

// TestRenderer_PingScenarioReturnsJSON exercises the literal end-to-end
// example: an inline "pong" body with no file, no explicit content
// type, and no template must still come back as application/json.
func TestRenderer_PingScenarioReturnsJSON(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{Data: "pong"})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(out.Body))
	assert.Equal(t, "application/json", out.Headers["Content-Type"])
}

func TestRenderer_FileExtensionStillWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "body.txt"), []byte("plain"), 0o644))

	r := NewRenderer(dir, template.New())
	spec := SpecFromConfig(config.ResponseConfig{File: "body.txt"})

	out, err := r.Render(spec, nil, newTestContext(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", out.Headers["Content-Type"])
}

func TestRenderer_InvokesBeforeTransmittingTemplateHook(t *testing.T) {
	r := NewRenderer(t.TempDir(), template.New())
	spec := SpecFromConfig(config.ResponseConfig{
		Data:       `{"path":"{{request.path}}"}`,
		IsTemplate: true,
	})

	var seen string
	listener := &recordingListener{onTemplate: func(tmpl string) string {
		seen = tmpl
		return tmpl
	}}

	req := httptest.NewRequest("GET", "/things/1", nil)
	out, err := r.Render(spec, nil, newTestContext(), req, listener)
	require.NoError(t, err)
	assert.Equal(t, `{"path":"/things/1"}`, string(out.Body))
	assert.Equal(t, `{"path":"{{request.path}}"}`, seen)
}

type recordingListener struct {
	onTemplate func(string) string
}

func (recordingListener) BeforeBuildingRuntimeContext(*http.Request, *config.ResourceConfig) {}
func (recordingListener) AfterSuccessfulScriptExecution(*http.Request, *config.ResourceConfig, *script.Behaviour) {
}
func (l *recordingListener) BeforeTransmittingTemplate(_ *http.Request, tmpl string) string {
	return l.onTemplate(tmpl)
}
