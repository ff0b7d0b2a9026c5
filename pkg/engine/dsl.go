package engine

import (
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/response"
	"github.com/ashgrove/mimic/pkg/script"
	"github.com/ashgrove/mimic/pkg/store"
)

// processEnv is a snapshot of the process's environment variables,
// taken once at startup. It is bound into every script execution as
// env; scripts see the environment mockd itself was launched with, not
// a live, mutable view of it.
var processEnv = snapshotEnv()

func snapshotEnv() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}

// scriptEnv builds the flat environment a resource's script executes
// against: pathParams, query, and headers exposed both as raw
// net/http-shaped values (for callers that iterate) and flattened to a
// single value per name, plus the parsed JSON body, the raw body
// string, a read-only snapshot of the process environment, and a
// stores handle for scripts that read or write captured state
// directly.
func scriptEnv(pathParams map[string]string, r *http.Request, body []byte, bodyJSON interface{}, stores *storesHandle) map[string]interface{} {
	return map[string]interface{}{
		"pathParams": pathParams,
		"query":      flattenQuery(r.URL.Query()),
		"headers":    flattenHeader(r.Header),
		"body":       bodyJSON,
		"rawBody":    string(body),
		"method":     r.Method,
		"path":       r.URL.Path,
		"env":        processEnv,
		"stores":     stores,
	}
}

func flattenQuery(v url.Values) map[string]string {
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

// storesHandle exposes the capture stores to scripts. Method names are
// capitalized to match the response()....Respond() builder's Go-style
// DSL convention rather than the JSON-ish lowerCamel field names the
// configuration format uses.
type storesHandle struct {
	factory store.Factory
}

// Open resolves name to a storeProxy, creating the backing store on
// first use. A script that never calls Open touches no store.
func (h *storesHandle) Open(name string) *storeProxy {
	if h == nil || h.factory == nil {
		return &storeProxy{}
	}
	s, err := h.factory.OpenOrCreate(name)
	if err != nil {
		return &storeProxy{}
	}
	return &storeProxy{s: s}
}

// storeProxy is the per-store surface a script sees. A nil or failed
// Open yields a zero-value proxy whose methods are safe no-ops, so a
// script referencing an unreachable store degrades to empty results
// rather than aborting execution.
type storeProxy struct {
	s store.Store
}

func (p *storeProxy) Save(key string, value interface{}) bool {
	if p.s == nil {
		return false
	}
	return p.s.Save(key, value) == nil
}

func (p *storeProxy) Load(key string) interface{} {
	if p.s == nil {
		return nil
	}
	v, err := p.s.Load(key)
	if err != nil {
		return nil
	}
	return v
}

func (p *storeProxy) HasKey(key string) bool {
	if p.s == nil {
		return false
	}
	return p.s.HasKey(key)
}

func (p *storeProxy) LoadAll() map[string]interface{} {
	if p.s == nil {
		return map[string]interface{}{}
	}
	return p.s.LoadAll()
}

func (p *storeProxy) Delete(key string) bool {
	if p.s == nil {
		return false
	}
	return p.s.Delete(key) == nil
}

// overlayScriptBehaviour merges a script's Behaviour onto a resource's
// declared response, field by field, when the behaviour opts into
// defaults (UseDefaults, the builder's default state). A behaviour
// that turned defaults off (Immediately/SkipDefaultBehaviour) is used
// as-is with an always-empty body, per short-circuit mode.
func overlayScriptBehaviour(b *script.Behaviour, resp config.ResponseConfig) response.Spec {
	spec := response.Spec{
		StatusCode:  b.StatusCode,
		File:        b.File,
		Data:        b.Data,
		ExampleName: b.ExampleName,
		Headers:     b.Headers,
		Empty:       b.Empty,
	}

	if !b.UseDefaults {
		spec.Empty = true
		return spec
	}

	if spec.StatusCode == 0 {
		spec.StatusCode = resp.StatusCode
	}
	if spec.File == "" && spec.Data == "" && spec.ExampleName == "" && !spec.Empty {
		spec.File = resp.File
		spec.Data = resp.Data
		spec.ExampleName = resp.ExampleName
	}
	if len(spec.Headers) == 0 {
		spec.Headers = resp.Headers
	} else {
		merged := make(map[string]string, len(resp.Headers)+len(spec.Headers))
		for k, v := range resp.Headers {
			merged[k] = v
		}
		for k, v := range spec.Headers {
			merged[k] = v
		}
		spec.Headers = merged
	}
	spec.ContentType = resp.ContentType
	spec.IsTemplate = resp.IsTemplate
	spec.Performance = performanceFromScript(b, resp.Performance)
	return spec
}

// overlayRootDefaults fills any field spec left unset from a plugin
// document's root Response, when the document opted into
// DefaultsFromRootResponse.
func overlayRootDefaults(spec response.Spec, root *config.ResponseConfig) response.Spec {
	if root == nil {
		return spec
	}
	if spec.StatusCode == 0 {
		spec.StatusCode = root.StatusCode
	}
	if spec.File == "" && spec.Data == "" && spec.ExampleName == "" {
		spec.File = root.File
		spec.Data = root.Data
		spec.ExampleName = root.ExampleName
	}
	if spec.ContentType == "" {
		spec.ContentType = root.ContentType
	}
	if spec.Performance == nil {
		spec.Performance = root.Performance
	}
	if len(spec.Headers) == 0 {
		spec.Headers = root.Headers
	}
	return spec
}

// performanceFromScript prefers delay settings a script's Behaviour
// declared over the resource's configured PerformanceConfig.
func performanceFromScript(b *script.Behaviour, fallback *config.PerformanceConfig) *config.PerformanceConfig {
	if b.DelayMs > 0 {
		return &config.PerformanceConfig{ExactDelayMs: b.DelayMs}
	}
	if b.MinDelayMs > 0 && b.MaxDelayMs >= b.MinDelayMs {
		return &config.PerformanceConfig{MinDelayMs: b.MinDelayMs, MaxDelayMs: b.MaxDelayMs}
	}
	return fallback
}
