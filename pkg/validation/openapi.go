package validation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// maxValidationBodySize bounds how much of a request body openapi3filter
// is allowed to read while validating, independent of any limit the
// engine itself applies.
const maxValidationBodySize = 10 << 20

// ValidationConfig configures OpenAPI-backed request/response validation.
type ValidationConfig struct {
	Enabled          bool   `json:"enabled" yaml:"enabled"`
	SpecFile         string `json:"specFile,omitempty" yaml:"specFile,omitempty"`
	SpecURL          string `json:"specUrl,omitempty" yaml:"specUrl,omitempty"`
	Spec             string `json:"spec,omitempty" yaml:"spec,omitempty"`
	ValidateRequest  bool   `json:"validateRequest" yaml:"validateRequest"`
	ValidateResponse bool   `json:"validateResponse" yaml:"validateResponse"`
	FailOnError      bool   `json:"failOnError" yaml:"failOnError"`
	LogWarnings      bool   `json:"logWarnings" yaml:"logWarnings"`
	Mode             string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// GetMode returns the middleware's validation mode, defaulting to strict.
func (c *ValidationConfig) GetMode() string {
	if c == nil || c.Mode == "" {
		return ModeStrict
	}
	return c.Mode
}

// DefaultValidationConfig returns validation switched off, so wiring a
// zero-value config into a plugin doesn't accidentally start rejecting
// requests.
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		Enabled:          false,
		ValidateRequest:  true,
		ValidateResponse: false,
		FailOnError:      true,
		LogWarnings:      true,
	}
}

// LoadSpecFromEnv builds a ValidationConfig from MOCKD_OPENAPI_SPEC_FILE,
// MOCKD_OPENAPI_SPEC_URL, or MOCKD_OPENAPI_SPEC (checked in that order),
// plus the MOCKD_OPENAPI_VALIDATE_RESPONSE and MOCKD_OPENAPI_FAIL_ON_ERROR
// overrides.
func LoadSpecFromEnv() *ValidationConfig {
	cfg := DefaultValidationConfig()

	switch {
	case os.Getenv("MOCKD_OPENAPI_SPEC_FILE") != "":
		cfg.SpecFile = os.Getenv("MOCKD_OPENAPI_SPEC_FILE")
		cfg.Enabled = true
	case os.Getenv("MOCKD_OPENAPI_SPEC_URL") != "":
		cfg.SpecURL = os.Getenv("MOCKD_OPENAPI_SPEC_URL")
		cfg.Enabled = true
	case os.Getenv("MOCKD_OPENAPI_SPEC") != "":
		cfg.Spec = os.Getenv("MOCKD_OPENAPI_SPEC")
		cfg.Enabled = true
	}

	if os.Getenv("MOCKD_OPENAPI_VALIDATE_RESPONSE") == "true" {
		cfg.ValidateResponse = true
	}
	if os.Getenv("MOCKD_OPENAPI_FAIL_ON_ERROR") == "false" {
		cfg.FailOnError = false
	}
	return cfg
}

// LoadSpec parses an OpenAPI document from a local file, following
// external $refs relative to it.
func LoadSpec(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load spec from file %s: %w", path, err)
	}
	return doc, nil
}

// LoadSpecFromURL parses an OpenAPI document fetched from specURL.
func LoadSpecFromURL(specURL string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	parsed, err := url.Parse(specURL)
	if err != nil {
		return nil, fmt.Errorf("invalid spec URL: %w", err)
	}
	doc, err := loader.LoadFromURI(parsed)
	if err != nil {
		return nil, fmt.Errorf("load spec from URL %s: %w", specURL, err)
	}
	return doc, nil
}

// LoadSpecFromString parses an inline OpenAPI document (YAML or JSON).
func LoadSpecFromString(spec string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	doc, err := loader.LoadFromData([]byte(spec))
	if err != nil {
		return nil, fmt.Errorf("load spec from string: %w", err)
	}
	return doc, nil
}

func loadConfiguredSpec(cfg *ValidationConfig) (*openapi3.T, error) {
	switch {
	case cfg.SpecFile != "":
		return LoadSpec(cfg.SpecFile)
	case cfg.SpecURL != "":
		return LoadSpecFromURL(cfg.SpecURL)
	case cfg.Spec != "":
		return LoadSpecFromString(cfg.Spec)
	default:
		return nil, fmt.Errorf("no OpenAPI spec source provided (specFile, specUrl, or spec required)")
	}
}

// OpenAPIValidator checks requests and responses against a parsed
// OpenAPI document via openapi3filter, translating its errors into this
// package's FieldError/Result vocabulary.
type OpenAPIValidator struct {
	doc    *openapi3.T
	router routers.Router
	config *ValidationConfig
}

// NewOpenAPIValidator loads the spec named by config and validates it.
// A disabled config yields a validator whose ValidateRequest and
// ValidateResponse are no-ops, so callers don't need to branch on
// config.Enabled themselves.
func NewOpenAPIValidator(config *ValidationConfig) (*OpenAPIValidator, error) {
	if config == nil {
		return nil, fmt.Errorf("validation config is required")
	}
	if !config.Enabled {
		return &OpenAPIValidator{config: config}, nil
	}

	doc, err := loadConfiguredSpec(config)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI spec: %w", err)
	}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build OpenAPI router: %w", err)
	}

	return &OpenAPIValidator{doc: doc, router: router, config: config}, nil
}

// IsEnabled reports whether the validator was built from an enabled config.
func (v *OpenAPIValidator) IsEnabled() bool {
	return v.config != nil && v.config.Enabled
}

// GetSpec returns the parsed OpenAPI document, or nil if disabled.
func (v *OpenAPIValidator) GetSpec() *openapi3.T {
	return v.doc
}

// GetConfig returns the configuration the validator was built from.
func (v *OpenAPIValidator) GetConfig() *ValidationConfig {
	return v.config
}

// ValidateRequest checks r's method, path, parameters, and body against
// the matching operation. Returns a valid Result untouched when
// disabled, when no spec was loaded, or when ValidateRequest is off.
func (v *OpenAPIValidator) ValidateRequest(r *http.Request) *Result {
	result := &Result{Valid: true}
	if v.doc == nil || v.router == nil || !v.config.ValidateRequest {
		return result
	}

	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		result.AddError(&FieldError{Location: LocationPath, Code: "no_route",
			Message: fmt.Sprintf("no matching route found: %s", err)})
		return result
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: pathParams,
		Route:      route,
		Options:    &openapi3filter.Options{MultiError: true, IncludeResponseStatus: true},
	}

	if r.Body != nil && r.Body != http.NoBody {
		bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxValidationBodySize))
		if err != nil {
			result.AddError(&FieldError{Location: LocationBody, Code: "read_error",
				Message: fmt.Sprintf("failed to read request body: %s", err)})
			return result
		}
		// openapi3filter consumes the body; hand the caller's original
		// request a fresh reader too, so it can still be read downstream.
		r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		input.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
		appendOpenAPIErrors(result, err)
	}
	return result
}

// ValidateResponse checks a rendered response against the operation
// matching r. Errors default to the "response" location when the
// underlying error didn't attribute one.
func (v *OpenAPIValidator) ValidateResponse(r *http.Request, status int, headers http.Header, body []byte) *Result {
	result := &Result{Valid: true}
	if v.doc == nil || v.router == nil || !v.config.ValidateResponse {
		return result
	}

	route, pathParams, err := v.router.FindRoute(r)
	if err != nil {
		result.AddError(&FieldError{Location: "response", Code: "no_route",
			Message: fmt.Sprintf("no matching route found: %s", err)})
		return result
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request: r, PathParams: pathParams, Route: route,
		},
		Status: status,
		Header: headers,
		Options: &openapi3filter.Options{
			MultiError: true, IncludeResponseStatus: true,
		},
	}
	if len(body) > 0 {
		input.SetBodyBytes(body)
	}

	if err := openapi3filter.ValidateResponse(r.Context(), input); err != nil {
		appendOpenAPIErrors(result, err)
		for _, e := range result.Errors {
			if e.Location == "" {
				e.Location = "response"
			}
		}
	}
	return result
}

// appendOpenAPIErrors flattens err (which may be an openapi3.MultiError)
// into result's error list, marking result invalid if it added anything.
func appendOpenAPIErrors(result *Result, err error) {
	if err == nil {
		return
	}
	result.Valid = false

	if multi, ok := err.(openapi3.MultiError); ok {
		for _, e := range multi {
			appendOpenAPIErrors(result, e)
		}
		result.Valid = false
		return
	}

	result.Errors = append(result.Errors, openAPIFieldError(err))
}

// openAPIFieldError classifies a single (non-multi) openapi3filter error
// into a FieldError, extracting whatever location/field detail the
// concrete error type carries.
func openAPIFieldError(err error) *FieldError {
	switch e := err.(type) {
	case *openapi3filter.RequestError:
		return requestErrorToField(e)
	case *openapi3filter.ResponseError:
		fe := &FieldError{Location: "response", Code: "openapi_validation", Message: e.Error()}
		applySchemaDetail(fe, e.Err)
		return fe
	case *openapi3filter.SecurityRequirementsError:
		return &FieldError{Location: "security", Code: "security", Message: e.Error()}
	case *openapi3.SchemaError:
		fe := &FieldError{Location: LocationBody, Code: ErrCodeSchema, Message: e.Reason}
		if path := formatJSONPath(e.JSONPointer()); path != "" && path != "$" {
			fe.Field = path
		}
		return fe
	default:
		return &FieldError{Location: "validation", Code: "openapi_validation", Message: err.Error()}
	}
}

func requestErrorToField(reqErr *openapi3filter.RequestError) *FieldError {
	fe := &FieldError{Message: reqErr.Error(), Code: "openapi_validation"}

	switch {
	case reqErr.Parameter != nil:
		fe.Field = reqErr.Parameter.Name
		fe.Location = parameterLocation(reqErr.Parameter.In)
	case reqErr.RequestBody != nil:
		fe.Location = LocationBody
	default:
		fe.Location = "request"
	}

	if reqErr.Err != nil {
		fe.Message = reqErr.Err.Error()
		applySchemaDetail(fe, reqErr.Err)
	}
	return fe
}

func parameterLocation(in string) string {
	switch in {
	case "path":
		return LocationPath
	case "query":
		return LocationQuery
	case "header":
		return LocationHeader
	case "cookie":
		return "cookie"
	default:
		return "parameter"
	}
}

// applySchemaDetail overwrites fe's message/code/field with detail from
// cause when cause is a schema validation error, leaving fe unchanged
// otherwise.
func applySchemaDetail(fe *FieldError, cause error) {
	schemaErr, ok := cause.(*openapi3.SchemaError)
	if !ok {
		return
	}
	if path := formatJSONPath(schemaErr.JSONPointer()); path != "" && path != "$" {
		fe.Field = path
	}
	fe.Message = schemaErr.Reason
	fe.Code = ErrCodeSchema
}

// formatJSONPath renders a JSON-pointer segment slice (as kin-openapi
// reports it) in $.foo.bar[0] form.
func formatJSONPath(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("$")
	for _, part := range parts {
		if part == "" {
			continue
		}
		if isArrayIndex(part) {
			sb.WriteString("[")
			sb.WriteString(part)
			sb.WriteString("]")
		} else {
			sb.WriteString(".")
			sb.WriteString(part)
		}
	}
	return sb.String()
}

func isArrayIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
