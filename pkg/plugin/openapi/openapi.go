package openapi

import (
	"net/http"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/plugin"
	"github.com/ashgrove/mimic/pkg/validation"
)

// Plugin loads an OpenAPI 3 document once at construction, synthesizes
// one ResourceConfig per (path, method, status) operation the document
// declares, and optionally validates inbound requests against the
// matched operation's request schema.
type Plugin struct {
	doc       config.PluginDocument
	spec      *openapi3.T
	resources []config.ResourceConfig
	examples  map[string]string
	validator *validation.OpenAPIValidator
}

// New constructs the openapi plugin for doc. doc.Config.SpecFile,
// resolved against doc.Config.ParentDir, names the OpenAPI document to
// load; explicit resources declared alongside SpecFile take
// precedence over synthesized ones sharing the same method and path,
// since they appear earlier in the matcher's declaration-order list.
func New(doc config.PluginDocument) (plugin.Plugin, error) {
	p := &Plugin{doc: doc}

	if doc.Config == nil || doc.Config.SpecFile == "" {
		return p, nil
	}

	specPath := resolveSpecFile(doc.Config)
	spec, err := validation.LoadSpec(specPath)
	if err != nil {
		return nil, err
	}
	p.spec = spec

	synthesized, examples := synthesizeResources(spec)
	p.resources = append(append([]config.ResourceConfig{}, doc.Config.Resources...), synthesized...)
	p.examples = examples

	if rule := doc.Config.Validation; rule != nil && rule.Enabled {
		v, err := validation.NewOpenAPIValidator(&validation.ValidationConfig{
			Enabled:          true,
			SpecFile:         specPath,
			ValidateRequest:  rule.ValidateRequest,
			ValidateResponse: rule.ValidateResponse,
			FailOnError:      true,
		})
		if err != nil {
			return nil, err
		}
		p.validator = v
	}

	return p, nil
}

func resolveSpecFile(cfg *config.PluginConfig) string {
	if cfg.SpecFile == "" || filepath.IsAbs(cfg.SpecFile) || cfg.ParentDir == "" {
		return cfg.SpecFile
	}
	return filepath.Join(cfg.ParentDir, cfg.SpecFile)
}

func (p *Plugin) Name() string { return "openapi" }

func (p *Plugin) Routes() []config.ResourceConfig {
	if p.resources != nil {
		return p.resources
	}
	if p.doc.Config == nil {
		return nil
	}
	return p.doc.Config.Resources
}

// ExampleLookup resolves a synthesized resource's ExampleName back to
// the body the plugin generated for it at load time.
func (p *Plugin) ExampleLookup(name string) (string, bool) {
	body, ok := p.examples[name]
	return body, ok
}

// OnRequest validates r against the matched operation's request schema
// when contract validation is enabled, failing the request with the
// validator's result attached before the resource's response runs.
func (p *Plugin) OnRequest(r *http.Request, resource *config.ResourceConfig, pathParams map[string]string) error {
	if p.validator == nil || !p.validator.IsEnabled() {
		return nil
	}
	result := p.validator.ValidateRequest(r)
	if !result.Valid {
		return &ValidationError{Result: result}
	}
	return nil
}

// ValidateResponse checks a rendered response against the matched
// operation's declared response schema, when response validation is
// enabled. The engine calls this through the responseValidator
// interface after rendering, before transmitting.
func (p *Plugin) ValidateResponse(r *http.Request, status int, headers http.Header, body []byte) *validation.Result {
	if p.validator == nil || !p.validator.IsEnabled() {
		return nil
	}
	return p.validator.ValidateResponse(r, status, headers, body)
}

// ValidationError signals a contract-validation failure; the engine
// maps it to a 400 with the result's field errors as the body.
type ValidationError struct {
	Result *validation.Result
}

func (e *ValidationError) Error() string {
	return "openapi: request failed contract validation"
}

func (e *ValidationError) ValidationResult() *validation.Result { return e.Result }

func init() {
	plugin.Register("openapi", New)
}
