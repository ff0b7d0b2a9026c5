package response

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/hooks"
	"github.com/ashgrove/mimic/pkg/metrics"
	"github.com/ashgrove/mimic/pkg/template"
)

// Spec is a fully-resolved description of the response to render,
// built either straight from a resource's config.ResponseConfig or by
// overlaying a script's Behaviour onto one.
type Spec struct {
	StatusCode  int
	File        string
	Data        string
	ExampleName string
	Headers     map[string]string
	ContentType string
	IsTemplate  bool
	Empty       bool
	Performance *config.PerformanceConfig
}

// SpecFromConfig builds a Spec from a resource's declared response.
func SpecFromConfig(resp config.ResponseConfig) Spec {
	return Spec{
		StatusCode:  resp.StatusCode,
		File:        resp.File,
		Data:        resp.Data,
		ExampleName: resp.ExampleName,
		Headers:     resp.Headers,
		ContentType: resp.ContentType,
		IsTemplate:  resp.IsTemplate,
		Performance: resp.Performance,
	}
}

// Rendered is the final, ready-to-transmit response.
type Rendered struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// ExampleLookup resolves a named OpenAPI example to its body. The rest
// plugin has none and never calls it; the openapi plugin supplies one
// backed by the parsed document.
type ExampleLookup func(name string) (string, bool)

// Renderer resolves a Spec's content, expands templates, and infers a
// content type when none was set explicitly.
type Renderer struct {
	BaseDir   string
	Templates *template.Engine

	files  *fileCache
	logger *slog.Logger
}

// NewRenderer constructs a Renderer that resolves relative response
// files against baseDir and renders templates with templates. The file
// cache defaults to fileCacheSize entries; call WithFileCacheSize to
// size it from configuration instead.
func NewRenderer(baseDir string, templates *template.Engine) *Renderer {
	return &Renderer{
		BaseDir:   baseDir,
		Templates: templates,
		files:     newFileCache(fileCacheSize),
		logger:    slog.Default(),
	}
}

// WithFileCacheSize replaces the renderer's file cache with one bounded
// to n entries. A non-positive n leaves the existing size in place.
func (r *Renderer) WithFileCacheSize(n int) *Renderer {
	if n > 0 {
		r.files = newFileCache(n)
	}
	return r
}

// WithCacheMetrics reports the file cache's current entry count through
// gauge every time an entry is added or evicted.
func (r *Renderer) WithCacheMetrics(gauge *metrics.Gauge) *Renderer {
	if gauge == nil {
		return r
	}
	return r.WithCacheReporter(func(n int) { _ = gauge.Set(float64(n)) })
}

// WithCacheReporter registers fn to be called with the file cache's
// current entry count every time an entry is added or evicted. Useful
// when several renderers must fold their counts into one shared gauge
// instead of each owning it outright.
func (r *Renderer) WithCacheReporter(fn func(n int)) *Renderer {
	r.files.setSizeCallback(fn)
	return r
}

// SetLogger sets the logger used for content-type inference tracing. A
// nil logger is ignored.
func (r *Renderer) SetLogger(l *slog.Logger) {
	if l != nil {
		r.logger = l
	}
}

// Render produces the final response bytes and headers for spec,
// evaluating templates against tmplCtx when spec.IsTemplate is set.
// Every template string (the body, then each header value) is offered to
// listener's BeforeTransmittingTemplate hook immediately before it is
// evaluated; a nil listener runs no hook. req is passed through to the
// hook unexamined by Render itself.
func (r *Renderer) Render(spec Spec, lookup ExampleLookup, tmplCtx *template.Context, req *http.Request, listener hooks.EngineLifecycleListener) (*Rendered, error) {
	if listener == nil {
		listener = hooks.NoopListener{}
	}

	status := spec.StatusCode
	if status == 0 {
		status = 200
	}

	body, err := r.resolveBody(spec, lookup)
	if err != nil {
		return nil, err
	}

	if body != "" && spec.IsTemplate && r.Templates != nil && tmplCtx != nil {
		body = listener.BeforeTransmittingTemplate(req, body)
		processed, err := r.Templates.Process(body, tmplCtx)
		if err == nil {
			body = processed
		}
	}

	headers := make(map[string]string, len(spec.Headers))
	for name, value := range spec.Headers {
		if spec.IsTemplate && r.Templates != nil && tmplCtx != nil {
			value = listener.BeforeTransmittingTemplate(req, value)
			if processed, err := r.Templates.Process(value, tmplCtx); err == nil {
				value = processed
			}
		}
		headers[name] = value
	}

	if _, explicit := headerValue(headers, "Content-Type"); !explicit {
		ct := spec.ContentType
		if ct == "" {
			var guessed bool
			ct, guessed = inferContentType(spec.File)
			if guessed {
				r.logger.Debug("guessed content type", "file", spec.File, "content_type", ct)
			}
		}
		headers["Content-Type"] = ct
	}

	if spec.Empty {
		body = ""
	}

	return &Rendered{StatusCode: status, Headers: headers, Body: []byte(body)}, nil
}

func (r *Renderer) resolveBody(spec Spec, lookup ExampleLookup) (string, error) {
	if spec.Empty {
		return "", nil
	}
	switch {
	case spec.File != "":
		path := spec.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.BaseDir, path)
		}
		if r.BaseDir != "" {
			rel, err := filepath.Rel(r.BaseDir, path)
			if err != nil || strings.HasPrefix(rel, "..") {
				return "", fmt.Errorf("response: file %q escapes plugin directory", spec.File)
			}
		}
		// The cache exists to save re-reading and re-templating the same
		// file across requests; a non-templated file is served exactly as
		// written, so read it straight off disk and leave the LRU (and
		// its eviction boundary) for the templated case only.
		if !spec.IsTemplate {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("response: read file %q: %w", spec.File, err)
			}
			return string(data), nil
		}
		data, err := r.files.load(path)
		if err != nil {
			return "", fmt.Errorf("response: read file %q: %w", spec.File, err)
		}
		return string(data), nil
	case spec.ExampleName != "":
		if lookup == nil {
			return "", fmt.Errorf("response: example %q requested but no example source is configured", spec.ExampleName)
		}
		data, ok := lookup(spec.ExampleName)
		if !ok {
			return "", fmt.Errorf("response: example %q not found", spec.ExampleName)
		}
		return data, nil
	default:
		return spec.Data, nil
	}
}

func headerValue(headers map[string]string, name string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// inferContentType defaults from a response file's extension, falling
// back to application/json when the file has no extension entry or
// there is no response file at all (inline data or an example body).
// There is no body-sniffing step: a resource that returns plain text
// must declare contentType explicitly. guessed reports whether the
// second, unconditional fallback fired, so callers can trace it.
func inferContentType(file string) (contentType string, guessed bool) {
	if file != "" {
		switch strings.ToLower(filepath.Ext(file)) {
		case ".json":
			return "application/json", false
		case ".xml":
			return "application/xml", false
		case ".txt":
			return "text/plain", false
		case ".html", ".htm":
			return "text/html", false
		}
	}
	return config.DefaultContentType, true
}
