// Package rest implements the default, generic plugin: every resource
// a configuration document declares is routed exactly as written, with
// no request-time rewriting beyond the field and JSON Schema validation
// a resource opts into with requestValidation.
package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/plugin"
	"github.com/ashgrove/mimic/pkg/validation"
)

// Plugin is the rest plugin. Its only per-request work is running each
// resource's declared requestValidation, if any.
type Plugin struct {
	doc config.PluginDocument
}

// New constructs the rest plugin for doc.
func New(doc config.PluginDocument) (plugin.Plugin, error) {
	return &Plugin{doc: doc}, nil
}

func (p *Plugin) Name() string { return "rest" }

func (p *Plugin) Routes() []config.ResourceConfig {
	if p.doc.Config == nil {
		return nil
	}
	return p.doc.Config.Resources
}

// OnRequest runs resource's requestValidation, when declared, against
// the request body, path parameters, query string, and headers. A
// strict-mode failure is returned as a ValidationError; warn and
// permissive modes log nothing here and always let the request through,
// since the rest plugin has no logger of its own to report through.
func (p *Plugin) OnRequest(r *http.Request, resource *config.ResourceConfig, pathParams map[string]string) error {
	if resource.RequestValidation == nil || resource.RequestValidation.IsEmpty() {
		return nil
	}

	var body map[string]interface{}
	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err == nil && len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
	}

	hv := validation.NewHTTPValidator(resource.RequestValidation)
	result := hv.Validate(r.Context(), body, pathParams, flattenQueryValues(r), flattenHeaderValues(r))
	if result.Valid || hv.GetMode() != validation.ModeStrict {
		return nil
	}
	return &ValidationError{Result: result, Status: hv.GetFailStatus()}
}

func flattenQueryValues(r *http.Request) map[string]string {
	q := r.URL.Query()
	out := make(map[string]string, len(q))
	for k, v := range q {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func flattenHeaderValues(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// ValidationError signals a requestValidation failure. Status defaults
// to 400 unless the resource's requestValidation sets failStatus.
type ValidationError struct {
	Result *validation.Result
	Status int
}

func (e *ValidationError) Error() string {
	return "rest: request failed field validation"
}

func (e *ValidationError) ValidationResult() *validation.Result { return e.Result }

func (e *ValidationError) HTTPStatus() int { return e.Status }

func init() {
	plugin.Register("rest", New)
}
