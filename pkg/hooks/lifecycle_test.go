package hooks

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/script"
)

type simpleListener struct {
	NoopListener
	onBuild    func()
	onTemplate func(string) string
	onScript   func(*script.Behaviour)
}

func (s *simpleListener) BeforeBuildingRuntimeContext(r *http.Request, resource *config.ResourceConfig) {
	if s.onBuild != nil {
		s.onBuild()
	}
}

func (s *simpleListener) AfterSuccessfulScriptExecution(r *http.Request, resource *config.ResourceConfig, behaviour *script.Behaviour) {
	if s.onScript != nil {
		s.onScript(behaviour)
	}
}

func (s *simpleListener) BeforeTransmittingTemplate(r *http.Request, template string) string {
	if s.onTemplate != nil {
		return s.onTemplate(template)
	}
	return template
}

func TestNoopListener_PassesTemplateThrough(t *testing.T) {
	var l NoopListener
	assert.Equal(t, "{{foo}}", l.BeforeTransmittingTemplate(nil, "{{foo}}"))
}

func TestMulti_FansOutToEveryListener(t *testing.T) {
	r := httptest.NewRequest("GET", "/x", nil)
	resource := &config.ResourceConfig{Path: "/x"}

	var aCalls, bCalls int
	a := &simpleListener{onBuild: func() { aCalls++ }}
	b := &simpleListener{onBuild: func() { bCalls++ }}

	multi := Multi{a, b}
	multi.BeforeBuildingRuntimeContext(r, resource)

	assert.Equal(t, 1, aCalls)
	assert.Equal(t, 1, bCalls)
}

func TestMulti_ChainsTemplateReplacements(t *testing.T) {
	a := &simpleListener{onTemplate: func(s string) string { return s + "-a" }}
	b := &simpleListener{onTemplate: func(s string) string { return s + "-b" }}

	multi := Multi{a, b}
	got := multi.BeforeTransmittingTemplate(nil, "tmpl")
	assert.Equal(t, "tmpl-a-b", got)
}

func TestMulti_PropagatesScriptResult(t *testing.T) {
	var seen *script.Behaviour
	l := &simpleListener{onScript: func(b *script.Behaviour) { seen = b }}

	multi := Multi{l}
	behaviour := &script.Behaviour{StatusCode: 202}
	multi.AfterSuccessfulScriptExecution(httptest.NewRequest("GET", "/", nil), nil, behaviour)

	assert.Same(t, behaviour, seen)
}
