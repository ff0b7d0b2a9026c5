package hooks

import (
	"net/http"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/script"
)

// EngineLifecycleListener observes the stages of handling a single
// request. Implementations must be safe for concurrent use: the
// engine calls a request's listeners from whatever goroutine is
// serving that request.
type EngineLifecycleListener interface {
	// BeforeBuildingRuntimeContext runs once a resource has been
	// matched, before the request/path-param/capture environment a
	// script or template sees is assembled. It may inspect the request
	// and the resource that matched.
	BeforeBuildingRuntimeContext(r *http.Request, resource *config.ResourceConfig)

	// AfterSuccessfulScriptExecution runs after a resource's script has
	// produced a Behaviour, before that behaviour is merged with the
	// resource's declared response.
	AfterSuccessfulScriptExecution(r *http.Request, resource *config.ResourceConfig, behaviour *script.Behaviour)

	// BeforeTransmittingTemplate runs once per template string (a body
	// or a header value) immediately before it is evaluated, and may
	// return a replacement to evaluate instead.
	BeforeTransmittingTemplate(r *http.Request, template string) string
}

// NoopListener implements EngineLifecycleListener with no-ops. Embed it
// to implement only the hooks a listener cares about.
type NoopListener struct{}

func (NoopListener) BeforeBuildingRuntimeContext(*http.Request, *config.ResourceConfig) {}

func (NoopListener) AfterSuccessfulScriptExecution(*http.Request, *config.ResourceConfig, *script.Behaviour) {
}

func (NoopListener) BeforeTransmittingTemplate(_ *http.Request, template string) string {
	return template
}

// Multi fan-outs each hook to every listener in order. For
// BeforeTransmittingTemplate each listener sees the previous listener's
// replacement, and the last listener's return value (empty or not) is
// returned.
type Multi []EngineLifecycleListener

func (m Multi) BeforeBuildingRuntimeContext(r *http.Request, resource *config.ResourceConfig) {
	for _, l := range m {
		l.BeforeBuildingRuntimeContext(r, resource)
	}
}

func (m Multi) AfterSuccessfulScriptExecution(r *http.Request, resource *config.ResourceConfig, behaviour *script.Behaviour) {
	for _, l := range m {
		l.AfterSuccessfulScriptExecution(r, resource, behaviour)
	}
}

func (m Multi) BeforeTransmittingTemplate(r *http.Request, template string) string {
	for _, l := range m {
		template = l.BeforeTransmittingTemplate(r, template)
	}
	return template
}
