package matching

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/jp"

	"github.com/ashgrove/mimic/pkg/config"
)

// MatchBodyMatcher reports whether body satisfies m. A nil matcher always
// matches. When more than one field of m is set, every set field must
// match (AND semantics) for the matcher to be satisfied.
//
// A non-nil error means evaluation itself failed (malformed JSON against
// a JSONPath expression, unparseable XML against an XPath expression, or
// a regex that refused to run) rather than that the matcher simply
// didn't match; the caller treats the resource as not qualifying either
// way but logs the two cases differently.
func MatchBodyMatcher(m *config.BodyMatcher, body []byte) (bool, error) {
	if m == nil {
		return true, nil
	}
	if m.Equals != "" && string(body) != m.Equals {
		return false, nil
	}
	if m.JSONPath != "" {
		ok, err := jsonPathNonEmpty(m.JSONPath, body)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if m.XPath != "" {
		ok, err := xpathNonEmpty(m.XPath, body)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if m.Regex != "" {
		matched, err := regexp.Match(m.Regex, body)
		if err != nil {
			return false, fmt.Errorf("body regex %q: %w", m.Regex, err)
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// jsonPathNonEmpty reports whether expr, evaluated against body parsed
// as JSON, returns at least one result. A body that isn't valid JSON or
// an expr that isn't a valid JSONPath is an evaluation error, not a
// non-match.
func jsonPathNonEmpty(expr string, body []byte) (bool, error) {
	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return false, fmt.Errorf("body is not valid JSON: %w", err)
	}
	path, err := jp.ParseString(expr)
	if err != nil {
		return false, fmt.Errorf("jsonPath %q: %w", expr, err)
	}
	return len(path.Get(data)) > 0, nil
}

// xpathNonEmpty reports whether expr, evaluated against body parsed as
// XML, selects at least one element. A body that isn't valid XML or an
// expr that etree cannot compile is an evaluation error, not a
// non-match.
func xpathNonEmpty(expr string, body []byte) (bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return false, fmt.Errorf("body is not valid XML: %w", err)
	}
	path, err := etree.CompilePath(expr)
	if err != nil {
		return false, fmt.Errorf("xpath %q: %w", expr, err)
	}
	return len(doc.FindElementsPath(path)) > 0, nil
}
