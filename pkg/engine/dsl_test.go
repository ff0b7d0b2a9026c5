package engine

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/response"
	"github.com/ashgrove/mimic/pkg/script"
)

func TestOverlayScriptBehaviour_KeepsResourceDefaultsWhenUnset(t *testing.T) {
	resp := config.ResponseConfig{
		StatusCode:  200,
		Data:        `{"fallback":true}`,
		ContentType: "application/json",
	}
	behaviour := &script.Behaviour{UseDefaults: true, Headers: map[string]string{"X-Trace": "abc"}}

	spec := overlayScriptBehaviour(behaviour, resp)

	assert.Equal(t, 200, spec.StatusCode)
	assert.Equal(t, `{"fallback":true}`, spec.Data)
	assert.Equal(t, "abc", spec.Headers["X-Trace"])
}

func TestOverlayScriptBehaviour_ShortCircuitForcesEmpty(t *testing.T) {
	resp := config.ResponseConfig{StatusCode: 200, Data: "should not appear"}
	behaviour := &script.Behaviour{StatusCode: 204, UseDefaults: false}

	spec := overlayScriptBehaviour(behaviour, resp)

	assert.Equal(t, 204, spec.StatusCode)
	assert.True(t, spec.Empty)
}

func TestOverlayRootDefaults_FillsUnsetFields(t *testing.T) {
	root := &config.ResponseConfig{ContentType: "text/plain", StatusCode: 418}
	spec := overlayRootDefaults(response.Spec{}, root)

	assert.Equal(t, 418, spec.StatusCode)
	assert.Equal(t, "text/plain", spec.ContentType)
}

func TestPerformanceFromScript_PrefersExactDelay(t *testing.T) {
	b := &script.Behaviour{DelayMs: 50}
	perf := performanceFromScript(b, &config.PerformanceConfig{MinDelayMs: 10, MaxDelayMs: 20})
	assert.Equal(t, 50, perf.ExactDelayMs)
}

func TestPerformanceFromScript_FallsBackToResourceConfig(t *testing.T) {
	b := &script.Behaviour{}
	fallback := &config.PerformanceConfig{ExactDelayMs: 30}
	perf := performanceFromScript(b, fallback)
	assert.Same(t, fallback, perf)
}

func TestScriptEnv_ExposesProcessEnvironment(t *testing.T) {
	t.Setenv("MOCKD_DSL_TEST_VAR", "present")
	processEnv = snapshotEnv()

	r := httptest.NewRequest("GET", "/things/1", nil)
	env := scriptEnv(nil, r, nil, nil, nil)

	got, ok := env["env"].(map[string]string)
	require.True(t, ok, "env key should be a read-only string map")
	assert.Equal(t, "present", got["MOCKD_DSL_TEST_VAR"])
}
