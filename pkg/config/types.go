// Package config defines the typed configuration tree the request-handling
// core consumes, and the loader that discovers and parses it from disk.
package config

import "github.com/ashgrove/mimic/pkg/validation"

// DefaultContentType is the MIME type used when a response does not specify one
// and none can be inferred from a response file's extension.
const DefaultContentType = "application/json"

// CapturePhase is when a capture runs relative to response transmission.
type CapturePhase string

const (
	// PhaseRequestReceived runs the capture after resource resolution and
	// before the response body is rendered.
	PhaseRequestReceived CapturePhase = "request_received"
	// PhaseResponseSent runs the capture after the response body has been
	// successfully flushed. Skipped if transmission fails.
	PhaseResponseSent CapturePhase = "response_sent"
)

// PluginConfig is the tree parsed from one configuration file.
type PluginConfig struct {
	// Plugin names the plugin this document targets ("rest" if omitted).
	Plugin string `yaml:"plugin,omitempty" json:"plugin,omitempty"`

	// ParentDir is the directory the document was loaded from, used to
	// resolve relative response files. Populated by the loader, not by
	// the document itself.
	ParentDir string `yaml:"-" json:"-"`

	// BasePath is prepended to every resource's path template.
	BasePath string `yaml:"basePath,omitempty" json:"basePath,omitempty"`

	// DefaultContentType is used when neither a resource nor its response
	// sets an explicit content type.
	DefaultContentType string `yaml:"defaultContentType,omitempty" json:"defaultContentType,omitempty"`

	// Response is the plugin's root response, used as a source of
	// defaults when DefaultsFromRootResponse is set, and as the
	// last-resort fallback when no resource matches.
	Response *ResponseConfig `yaml:"response,omitempty" json:"response,omitempty"`

	// DefaultsFromRootResponse, when true, overlays Response into any
	// still-unset fields of a resolved resource's behaviour.
	DefaultsFromRootResponse bool `yaml:"defaultsFromRootResponse,omitempty" json:"defaultsFromRootResponse,omitempty"`

	// Validation configures OpenAPI-backed contract validation. Only
	// meaningful for the openapi plugin.
	Validation *ValidationRule `yaml:"validation,omitempty" json:"validation,omitempty"`

	// Resources is the ordered list of matchable endpoints. Order matters:
	// it is the tie-break when two resources score equally.
	Resources []ResourceConfig `yaml:"resources,omitempty" json:"resources,omitempty"`

	// SpecFile names an OpenAPI document (relative to ParentDir) for the
	// openapi plugin to load and synthesize resources from.
	SpecFile string `yaml:"specFile,omitempty" json:"specFile,omitempty"`
}

// ResourceConfig describes a single matchable endpoint.
type ResourceConfig struct {
	// Method is the HTTP method to match; empty means any method.
	Method string `yaml:"method,omitempty" json:"method,omitempty"`

	// Path is the path template; segments written {name} are path
	// parameters that match exactly one non-empty, non-slash segment.
	Path string `yaml:"path" json:"path"`

	// QueryParams is a map of required query parameter name to exact value.
	QueryParams map[string]string `yaml:"queryParams,omitempty" json:"queryParams,omitempty"`

	// Headers is a map of required header name to value, matched
	// case-insensitively on the header name.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Body is an optional request body matcher; when several of its
	// fields are set, all of them must match.
	Body *BodyMatcher `yaml:"body,omitempty" json:"body,omitempty"`

	// Response is the canned response behaviour for this resource.
	Response ResponseConfig `yaml:"response" json:"response"`

	// Captures declares named extractions to run when this resource
	// is selected.
	Captures []CaptureConfig `yaml:"captures,omitempty" json:"captures,omitempty"`

	// RequestValidation, when set, checks an incoming request against
	// field-level or JSON Schema rules before the resource's response
	// runs. Independent of the openapi plugin's contract validation:
	// this works for any resource, in any plugin.
	RequestValidation *validation.RequestValidation `yaml:"requestValidation,omitempty" json:"requestValidation,omitempty"`
}

// BodyMatcher matches the decoded request body. Exactly one field should
// be set; if more than one is, all must match (AND semantics), mirroring
// the matcher's general "every constraint must hold" rule.
type BodyMatcher struct {
	// Equals matches the body as a literal string.
	Equals string `yaml:"equals,omitempty" json:"equals,omitempty"`

	// JSONPath matches when the expression returns a non-empty result.
	JSONPath string `yaml:"jsonPath,omitempty" json:"jsonPath,omitempty"`

	// XPath matches when the expression returns a non-empty node set.
	XPath string `yaml:"xpath,omitempty" json:"xpath,omitempty"`

	// Regex matches when the pattern matches anywhere in the body.
	Regex string `yaml:"regex,omitempty" json:"regex,omitempty"`
}

// PerformanceConfig simulates response latency.
type PerformanceConfig struct {
	// ExactDelayMs, if > 0, delays the response by exactly this long.
	ExactDelayMs int `yaml:"exactDelayMs,omitempty" json:"exactDelayMs,omitempty"`

	// MinDelayMs and MaxDelayMs, when MinDelayMs > 0 and MaxDelayMs >=
	// MinDelayMs, pick a uniform random delay in [MinDelayMs, MaxDelayMs).
	// The upper bound is exclusive; see DESIGN.md for why this is kept
	// rather than silently fixed.
	MinDelayMs int `yaml:"minDelayMs,omitempty" json:"minDelayMs,omitempty"`
	MaxDelayMs int `yaml:"maxDelayMs,omitempty" json:"maxDelayMs,omitempty"`
}

// ResponseConfig is the declarative description of how to answer a request.
type ResponseConfig struct {
	// StatusCode defaults to 200 when zero.
	StatusCode int `yaml:"statusCode,omitempty" json:"statusCode,omitempty"`

	// File is a response file path, relative to the plugin's ParentDir.
	File string `yaml:"file,omitempty" json:"file,omitempty"`

	// Data is inline response body data.
	Data string `yaml:"data,omitempty" json:"data,omitempty"`

	// ExampleName selects a named example from an OpenAPI document.
	// Meaningful only for the openapi plugin.
	ExampleName string `yaml:"exampleName,omitempty" json:"exampleName,omitempty"`

	// Headers are copied onto the response.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// ContentType, if set, overrides inference from the response file
	// extension or the default.
	ContentType string `yaml:"contentType,omitempty" json:"contentType,omitempty"`

	// Script names a script file, relative to ParentDir, that computes
	// the response behaviour dynamically.
	Script string `yaml:"script,omitempty" json:"script,omitempty"`

	// IsTemplate enables placeholder substitution in the body before
	// transmission.
	IsTemplate bool `yaml:"template,omitempty" json:"template,omitempty"`

	// Performance configures latency simulation for this response.
	Performance *PerformanceConfig `yaml:"performance,omitempty" json:"performance,omitempty"`
}

// CaptureConfig is a named extraction of a value from a request into a
// store. Exactly one source field should be set.
type CaptureConfig struct {
	// Name identifies this capture within the resource, used for
	// error messages ("log once per resource id").
	Name string `yaml:"name" json:"name"`

	// Enabled defaults to true; set false to declare a capture without
	// running it (useful for documenting intent without activating it).
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Phase controls when this capture runs. Defaults to
	// PhaseRequestReceived.
	Phase CapturePhase `yaml:"phase,omitempty" json:"phase,omitempty"`

	// Source — exactly one of the following.
	PathParam  string `yaml:"pathParam,omitempty" json:"pathParam,omitempty"`
	QueryParam string `yaml:"queryParam,omitempty" json:"queryParam,omitempty"`
	Header     string `yaml:"header,omitempty" json:"header,omitempty"`
	JSONPath   string `yaml:"jsonPath,omitempty" json:"jsonPath,omitempty"`
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
	Const      string `yaml:"const,omitempty" json:"const,omitempty"`

	// Key, when set, is itself a capture whose result is used as the
	// store key instead of Name. Key captures cannot declare a Key or
	// Store of their own: nesting is one level deep by construction.
	Key *KeySource `yaml:"key,omitempty" json:"key,omitempty"`

	// Store, when set, is itself a capture whose result is used as the
	// store name instead of a fixed name. Same one-level restriction
	// as Key.
	Store *KeySource `yaml:"store,omitempty" json:"store,omitempty"`

	// StoreName is the store to write to when Store is not set.
	StoreName string `yaml:"storeName,omitempty" json:"storeName,omitempty"`
}

// IsEnabled reports whether the capture should run, defaulting to true.
func (c CaptureConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// EffectivePhase returns Phase, defaulting to PhaseRequestReceived.
func (c CaptureConfig) EffectivePhase() CapturePhase {
	if c.Phase == "" {
		return PhaseRequestReceived
	}
	return c.Phase
}

// KeySource is a capture's source fields without Key/Store/Name, used to
// derive a store key or store name from the request. It deliberately
// cannot nest further.
type KeySource struct {
	PathParam  string `yaml:"pathParam,omitempty" json:"pathParam,omitempty"`
	QueryParam string `yaml:"queryParam,omitempty" json:"queryParam,omitempty"`
	Header     string `yaml:"header,omitempty" json:"header,omitempty"`
	JSONPath   string `yaml:"jsonPath,omitempty" json:"jsonPath,omitempty"`
	Expression string `yaml:"expression,omitempty" json:"expression,omitempty"`
	Const      string `yaml:"const,omitempty" json:"const,omitempty"`
}

// ValidationRule configures JSON-schema-backed request/response validation
// for the openapi plugin.
type ValidationRule struct {
	Enabled           bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	ValidateRequest   bool `yaml:"validateRequest,omitempty" json:"validateRequest,omitempty"`
	ValidateResponse  bool `yaml:"validateResponse,omitempty" json:"validateResponse,omitempty"`
}

// PluginDocument is one parsed configuration file: its PluginConfig plus
// the source path it came from, kept for error messages and relative-file
// resolution.
type PluginDocument struct {
	Path   string
	Config *PluginConfig
}
