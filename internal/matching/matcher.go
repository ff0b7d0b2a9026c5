// Package matching implements the resource matcher: given a request and
// an ordered list of resources, it picks the single best-qualifying
// resource or reports that none qualify.
package matching

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ashgrove/mimic/pkg/config"
)

// MatchResult is the winning resource and the context needed to build a
// response from it.
type MatchResult struct {
	Resource   *config.ResourceConfig
	Index      int
	Score      int
	PathParams map[string]string
}

// Matcher evaluates resources against incoming requests. Its zero value
// works and reports body-matcher failures through slog.Default();
// NewMatcher wires it to a logger for the body-matcher failure reporting
// spec.md requires.
type Matcher struct {
	Logger *slog.Logger

	warned sync.Map // resource id -> struct{}, so a bad matcher logs once, not once per request
}

// NewMatcher constructs a Matcher that logs body-matcher evaluation
// failures through logger.
func NewMatcher(logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{Logger: logger}
}

// Match evaluates every resource against r and body in declaration
// order. A resource qualifies only if every constraint it declares
// holds: method, path template, query parameters, headers, and body
// matcher. Among qualifying resources the highest total score wins;
// equal scores are broken by declaration order, so the first qualifying
// resource at the winning score is returned. Returns nil if no resource
// qualifies.
//
// A resource whose body matcher fails to evaluate (malformed JSON/XML
// against a JSONPath/XPath expression, an invalid regex) is skipped like
// any other non-match, but the failure is logged once per resource id
// rather than silently absorbed.
func (m *Matcher) Match(resources []config.ResourceConfig, r *http.Request, body []byte) *MatchResult {
	var best *MatchResult

	for i := range resources {
		res := &resources[i]

		if res.Method != "" && !strings.EqualFold(res.Method, r.Method) {
			continue
		}

		matched, score, params := MatchResourcePath(res.Path, r.URL.Path)
		if !matched {
			continue
		}

		if !MatchQueryParams(res.QueryParams, r.URL.Query()) {
			continue
		}
		score += len(res.QueryParams) * ScoreQueryConstraint

		if !MatchHeaders(res.Headers, r.Header) {
			continue
		}
		score += len(res.Headers) * ScoreHeaderConstraint

		if res.Body != nil {
			ok, err := MatchBodyMatcher(res.Body, body)
			if err != nil {
				m.logBodyMatchError(res, err)
				continue
			}
			if !ok {
				continue
			}
			score += ScoreBodyMatcher
		}

		if best == nil || score > best.Score {
			best = &MatchResult{
				Resource:   res,
				Index:      i,
				Score:      score,
				PathParams: params,
			}
		}
	}

	return best
}

func (m *Matcher) logBodyMatchError(res *config.ResourceConfig, err error) {
	id := resourceID(res)
	if _, already := m.warned.LoadOrStore(id, struct{}{}); already {
		return
	}
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("body matcher evaluation failed, resource skipped", "resource_id", id, "error", err)
}

func resourceID(res *config.ResourceConfig) string {
	method := res.Method
	if method == "" {
		method = "*"
	}
	return fmt.Sprintf("%s %s", method, res.Path)
}

// Match evaluates resources against r and body using a fresh Matcher
// with no logger, for callers (tests, tools) that don't need a dedicated
// logger; body-matcher failures go to slog.Default().
func Match(resources []config.ResourceConfig, r *http.Request, body []byte) *MatchResult {
	return (&Matcher{}).Match(resources, r, body)
}
