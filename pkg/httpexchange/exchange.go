package httpexchange

import (
	"net/http"
	"net/url"
)

// HttpExchange is the request/response surface the engine needs to
// resolve a match, run captures and scripts, and transmit a response.
// It deliberately exposes only what the core uses, not the full
// net/http surface, so an embedder can back it with something other
// than net/http (an in-memory test harness, a different transport)
// without the core noticing.
type HttpExchange interface {
	Method() string
	Path() string
	Query() url.Values
	Header() http.Header
	Body() ([]byte, error)

	WriteStatus(code int)
	WriteHeader(name, value string)
	WriteBody(body []byte) error
}

// Exchange adapts an http.ResponseWriter/*http.Request pair to
// HttpExchange.
type Exchange struct {
	w http.ResponseWriter
	r *http.Request

	body     []byte
	bodyRead bool
	bodyErr  error
}

// New wraps w and r as an HttpExchange.
func New(w http.ResponseWriter, r *http.Request) *Exchange {
	return &Exchange{w: w, r: r}
}

func (e *Exchange) Method() string { return e.r.Method }
func (e *Exchange) Path() string   { return e.r.URL.Path }
func (e *Exchange) Query() url.Values {
	return e.r.URL.Query()
}
func (e *Exchange) Header() http.Header { return e.r.Header }

// Body reads and caches the request body; subsequent calls return the
// same bytes without touching the underlying reader again.
func (e *Exchange) Body() ([]byte, error) {
	if !e.bodyRead {
		e.bodyRead = true
		e.body, e.bodyErr = readBody(e.r)
	}
	return e.body, e.bodyErr
}

func (e *Exchange) WriteStatus(code int) {
	e.w.WriteHeader(code)
}

func (e *Exchange) WriteHeader(name, value string) {
	e.w.Header().Set(name, value)
}

func (e *Exchange) WriteBody(body []byte) error {
	_, err := e.w.Write(body)
	return err
}

// Request exposes the underlying *http.Request for callers (the
// matcher, the template engine) that need it directly rather than
// through the trimmed HttpExchange surface.
func (e *Exchange) Request() *http.Request { return e.r }
