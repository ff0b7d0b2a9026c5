package template

import (
	"encoding/json"
	"io"
	mathrand "math/rand"
	"net/http"
)

// Context holds all available data for template evaluation.
type Context struct {
	Request RequestContext

	// Rand is the optional seeded source returned by ctxRNG; nil when unset.
	Rand *mathrand.Rand
}

// RequestContext contains HTTP request data available to templates.
type RequestContext struct {
	Method              string
	Path                string
	URL                 string
	Body                interface{}            // Parsed JSON or nil
	RawBody             string                 // Original body string
	Query               map[string][]string    // Query parameters
	Headers             map[string][]string    // HTTP headers
	PathParams          map[string]string      // Path parameters (from /users/{id} style paths)
	PathPatternCaptures map[string]string      // Named capture groups from PathPattern regex
	JSONPath            map[string]interface{} // Values extracted from JSONPath matching
}

// NewContext creates a template context from an HTTP request.
// It parses the request body and makes all request data available for templating.
func NewContext(r *http.Request, bodyBytes []byte) *Context {
	ctx := &Context{
		Request: RequestContext{
			Method:              r.Method,
			Path:                r.URL.Path,
			URL:                 r.URL.String(),
			RawBody:             string(bodyBytes),
			Query:               r.URL.Query(),
			Headers:             r.Header,
			PathParams:          make(map[string]string),
			PathPatternCaptures: make(map[string]string),
			JSONPath:            make(map[string]interface{}),
		},
	}

	// Parse JSON body if Content-Type is application/json
	contentType := r.Header.Get("Content-Type")
	if contentType == "application/json" && len(bodyBytes) > 0 {
		var body interface{}
		if err := json.Unmarshal(bodyBytes, &body); err == nil {
			ctx.Request.Body = body
		}
	}

	return ctx
}

// SetJSONPathMatches populates the JSONPath context from matching results.
func (c *Context) SetJSONPathMatches(matches map[string]interface{}) {
	if matches == nil {
		return
	}
	for key, value := range matches {
		c.Request.JSONPath[key] = value
	}
}

// SetPathPatternCaptures populates the PathPatternCaptures from regex matching results.
func (c *Context) SetPathPatternCaptures(captures map[string]string) {
	if captures == nil {
		return
	}
	for key, value := range captures {
		c.Request.PathPatternCaptures[key] = value
	}
}

// NewContextFromRequest creates a template context by reading the request body.
// The body is read completely and can be read again if needed.
func NewContextFromRequest(r *http.Request) (*Context, error) {
	const maxTemplateBodySize = 10 << 20 // 10MB defense-in-depth
	bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateBodySize))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()

	return NewContext(r, bodyBytes), nil
}

// NewContextFromMap creates a template context from parsed request data,
// for callers that have already decoded a request rather than holding an
// *http.Request (e.g. a synthesized OpenAPI example request).
func NewContextFromMap(body interface{}, headers map[string][]string) *Context {
	ctx := &Context{
		Request: RequestContext{
			Body:                body,
			Headers:             headers,
			Query:               make(map[string][]string),
			PathParams:          make(map[string]string),
			PathPatternCaptures: make(map[string]string),
			JSONPath:            make(map[string]interface{}),
		},
	}

	// Set RawBody from body if possible
	if body != nil {
		if jsonBytes, err := json.Marshal(body); err == nil {
			ctx.Request.RawBody = string(jsonBytes)
		}
	}

	// Initialize headers if nil
	if ctx.Request.Headers == nil {
		ctx.Request.Headers = make(map[string][]string)
	}

	return ctx
}
