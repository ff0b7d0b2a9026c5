package capture

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/ashgrove/mimic/pkg/config"
)

// sourceFields is the common shape shared by config.CaptureConfig and
// config.KeySource: exactly one of these should be set.
type sourceFields struct {
	PathParam  string
	QueryParam string
	Header     string
	JSONPath   string
	Expression string
	Const      string
}

func captureSource(c config.CaptureConfig) sourceFields {
	return sourceFields{
		PathParam:  c.PathParam,
		QueryParam: c.QueryParam,
		Header:     c.Header,
		JSONPath:   c.JSONPath,
		Expression: c.Expression,
		Const:      c.Const,
	}
}

func keySource(k *config.KeySource) sourceFields {
	if k == nil {
		return sourceFields{}
	}
	return sourceFields{
		PathParam:  k.PathParam,
		QueryParam: k.QueryParam,
		Header:     k.Header,
		JSONPath:   k.JSONPath,
		Expression: k.Expression,
		Const:      k.Const,
	}
}

// resolve extracts a string value for fields out of req, evaluating an
// Expression source through eval.
func (e *Evaluator) resolve(fields sourceFields, req Request) (string, error) {
	switch {
	case fields.PathParam != "":
		return req.PathParams[fields.PathParam], nil
	case fields.QueryParam != "":
		return req.Query.Get(fields.QueryParam), nil
	case fields.Header != "":
		return req.Header.Get(fields.Header), nil
	case fields.JSONPath != "":
		return jsonPathValue(fields.JSONPath, req.Body)
	case fields.Expression != "":
		return e.evalExpression(fields.Expression, req)
	default:
		return fields.Const, nil
	}
}

// jsonPathValue evaluates expr against body parsed as JSON and returns
// its first result, stringified.
func jsonPathValue(expr string, body []byte) (string, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("capture: parse body as JSON: %w", err)
	}
	path, err := jp.ParseString(expr)
	if err != nil {
		return "", fmt.Errorf("capture: parse JSONPath %q: %w", expr, err)
	}
	results := path.Get(data)
	if len(results) == 0 {
		return "", nil
	}
	return stringify(results[0]), nil
}

func stringify(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
