package capture

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Request is the subset of an HTTP exchange a capture can read from.
// For the request_received phase this describes the incoming request;
// for response_sent it additionally carries the outgoing response so
// captures can pull values out of what was actually sent.
type Request struct {
	PathParams map[string]string
	Query      url.Values
	Header     http.Header
	Body       []byte

	ResponseHeader     http.Header
	ResponseBody       []byte
	ResponseStatusCode int
}

// exprEnv builds the environment an expr-lang capture expression is
// evaluated against.
func (r Request) exprEnv() map[string]interface{} {
	var bodyJSON interface{}
	_ = json.Unmarshal(r.Body, &bodyJSON)

	var responseBodyJSON interface{}
	_ = json.Unmarshal(r.ResponseBody, &responseBodyJSON)

	return map[string]interface{}{
		"pathParams": r.PathParams,
		"query":      flattenValues(r.Query),
		"headers":    flattenHeader(r.Header),
		"body":       bodyJSON,
		"rawBody":    string(r.Body),
		"response": map[string]interface{}{
			"statusCode": r.ResponseStatusCode,
			"headers":    flattenHeader(r.ResponseHeader),
			"body":       responseBodyJSON,
			"rawBody":    string(r.ResponseBody),
		},
	}
}

func flattenValues(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k := range v {
		out[k] = v.Get(k)
	}
	return out
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
