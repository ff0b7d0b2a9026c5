package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashgrove/mimic/internal/id"
	"github.com/ashgrove/mimic/internal/matching"
	"github.com/ashgrove/mimic/pkg/capture"
	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/hooks"
	"github.com/ashgrove/mimic/pkg/httpexchange"
	"github.com/ashgrove/mimic/pkg/httputil"
	"github.com/ashgrove/mimic/pkg/metrics"
	"github.com/ashgrove/mimic/pkg/response"
	"github.com/ashgrove/mimic/pkg/template"
	"github.com/ashgrove/mimic/pkg/util"
	"github.com/ashgrove/mimic/pkg/validation"
)

// ErrorHandler responds to a request that failed with status. Installed
// through Service.RegisterErrorHandler; absent one for a given status,
// the router emits the status with a textual description and logs it.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, status int, cause error)

// Service wires the matcher, plugin hook, capture evaluator, script
// engine, and response renderer into a single http.Handler.
type Service struct {
	Manager  *Manager
	Listener hooks.EngineLifecycleListener
	Captures *capture.Evaluator
	Matcher  *matching.Matcher
	Logger   *slog.Logger
	Metrics  *ServiceMetrics

	errorHandlers map[int]ErrorHandler
}

// RegisterErrorHandler installs handler as the responder for status,
// replacing the default "emit status and log" behaviour for that status
// code. Registering nil removes any handler previously installed for
// status.
func (s *Service) RegisterErrorHandler(status int, handler ErrorHandler) {
	if handler == nil {
		delete(s.errorHandlers, status)
		return
	}
	if s.errorHandlers == nil {
		s.errorHandlers = make(map[int]ErrorHandler)
	}
	s.errorHandlers[status] = handler
}

// dispatchError routes a failed request to status's registered
// ErrorHandler, or, absent one, emits status with a textual description
// and logs it (ERROR for 5xx, WARN for 4xx, matching the router's
// default failure semantics).
func (s *Service) dispatchError(w http.ResponseWriter, r *http.Request, status int, cause error) {
	if h, ok := s.errorHandlers[status]; ok {
		h(w, r, status, cause)
		return
	}
	message := http.StatusText(status)
	if cause != nil {
		message = cause.Error()
	}
	switch {
	case status >= 500:
		s.Logger.Error("request failed", "status", status, "error", cause)
	case status >= 400:
		s.Logger.Warn("request failed", "status", status, "error", cause)
	}
	http.Error(w, message, status)
}

// ServiceMetrics is the request-scoped instrumentation a Service
// reports through. A nil field within it is simply not recorded.
type ServiceMetrics struct {
	RequestsTotal   *metrics.Counter
	RequestDuration *metrics.Histogram
	UnmatchedTotal  *metrics.Counter
}

// NewService constructs a Service backed by manager, reporting through
// metrics (a nil registry disables instrumentation) and defaulting the
// lifecycle listener to a no-op.
func NewService(manager *Manager, registry *metrics.Registry) *Service {
	svc := &Service{
		Manager:  manager,
		Listener: hooks.NoopListener{},
		Captures: capture.NewEvaluator(manager.Stores),
		Matcher:  matching.NewMatcher(manager.Logger),
		Logger:   manager.Logger,
	}
	if registry != nil {
		svc.Metrics = &ServiceMetrics{
			RequestsTotal:   registry.NewCounter("mockd_requests_total", "Total requests handled", "method", "status"),
			RequestDuration: registry.NewHistogram("mockd_request_duration_seconds", "Request handling latency", metrics.DefaultBuckets),
			UnmatchedTotal:  registry.NewCounter("mockd_unmatched_requests_total", "Requests with no matching resource", "method"),
		}
	}
	return svc
}

// ServeHTTP implements http.Handler: it matches the request against
// every loaded resource, runs the owning plugin's hook, evaluates
// captures and any resource script, renders the response, and
// transmits it.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	exchange := httpexchange.New(w, r)

	requestID := id.Short()
	w.Header().Set("X-Request-Id", requestID)
	logger := s.Logger.With("request_id", requestID)

	body, err := exchange.Body()
	if err != nil {
		logger.Warn("read request body failed", "error", err)
		body = nil
	}
	// exchange.Body drains r.Body; restore it so plugins and validators
	// that read r.Body directly (rather than through the exchange) still
	// see the content.
	r.Body = io.NopCloser(bytes.NewReader(body))

	logger.Debug("request received", "method", r.Method, "path", r.URL.Path, "body", util.TruncateBody(string(body), 0))

	snap := s.Manager.snapshot()
	result := s.Matcher.Match(snap.resources, r, body)
	if result == nil {
		s.recordUnmatched(r.Method)
		if owner := snap.rootFallback(r.URL.Path); owner != nil {
			s.serveRootFallback(w, exchange, r, owner, body, start)
			return
		}
		s.dispatchError(w, r, http.StatusNotFound, errors.New("Resource not found"))
		s.recordRequest(r.Method, http.StatusNotFound, start)
		return
	}

	owner := snap.owners[result.Index]
	resource := result.Resource

	if err := owner.Plugin.OnRequest(r, resource, result.PathParams); err != nil {
		status := s.writeHookError(w, r, err)
		s.recordRequest(r.Method, status, start)
		return
	}

	s.Listener.BeforeBuildingRuntimeContext(r, resource)

	var bodyJSON interface{}
	_ = json.Unmarshal(body, &bodyJSON)

	captureReq := capture.Request{
		PathParams: result.PathParams,
		Query:      r.URL.Query(),
		Header:     r.Header,
		Body:       body,
	}
	s.Captures.Run(resource.Captures, config.PhaseRequestReceived, captureReq)

	spec, err := s.buildSpec(r, owner, resource, result.PathParams, body, bodyJSON)
	if err != nil {
		s.handlePipelineError(w, r, err)
		s.recordRequest(r.Method, statusForError(err), start)
		return
	}

	if spec.Performance != nil {
		if err := response.Simulate(r.Context(), spec.Performance); err != nil {
			s.recordRequest(r.Method, 0, start)
			return
		}
	}

	tmplCtx := template.NewContext(r, body)
	tmplCtx.SetPathPatternCaptures(result.PathParams)

	lookup := exampleLookupFor(owner)
	rendered, err := owner.Renderer.Render(spec, lookup, tmplCtx, r, s.Listener)
	if err != nil {
		s.handlePipelineError(w, r, &RenderError{Resource: resource.Path, Err: err})
		s.recordRequest(r.Method, http.StatusInternalServerError, start)
		return
	}

	if result := validateRendered(owner, r, rendered); result != nil && !result.Valid {
		s.Logger.Error("response failed contract validation", "resource", resource.Path)
		httputil.WriteErrorWithDetails(w, http.StatusInternalServerError, "contract_validation_failed",
			"response failed contract validation", result)
		s.recordRequest(r.Method, http.StatusInternalServerError, start)
		return
	}

	if err := transmit(exchange, rendered); err != nil {
		s.Logger.Warn("transmit response failed", "error", err)
		s.recordRequest(r.Method, rendered.StatusCode, start)
		return
	}

	s.Captures.Run(resource.Captures, config.PhaseResponseSent, capture.Request{
		PathParams:         result.PathParams,
		Query:              r.URL.Query(),
		Header:             r.Header,
		Body:               body,
		ResponseHeader:     headerFromMap(rendered.Headers),
		ResponseBody:       rendered.Body,
		ResponseStatusCode: rendered.StatusCode,
	})

	s.recordRequest(r.Method, rendered.StatusCode, start)
}

// serveRootFallback renders and transmits owner's plugin-document root
// Response when no resource matched the request at all. It bypasses the
// plugin hook, captures, and scripting: there is no resource to run
// them against, only the document's last-resort default.
func (s *Service) serveRootFallback(w http.ResponseWriter, exchange *httpexchange.Exchange, r *http.Request, owner *Instance, body []byte, start time.Time) {
	spec := response.SpecFromConfig(*owner.Config.Response)

	tmplCtx := template.NewContext(r, body)
	lookup := exampleLookupFor(owner)
	rendered, err := owner.Renderer.Render(spec, lookup, tmplCtx, r, s.Listener)
	if err != nil {
		s.dispatchError(w, r, http.StatusInternalServerError, &RenderError{Resource: "<root>", Err: err})
		s.recordRequest(r.Method, http.StatusInternalServerError, start)
		return
	}

	if err := transmit(exchange, rendered); err != nil {
		s.Logger.Warn("transmit root fallback response failed", "error", err)
		s.recordRequest(r.Method, rendered.StatusCode, start)
		return
	}

	s.recordRequest(r.Method, rendered.StatusCode, start)
}

// buildSpec resolves the response.Spec for the matched resource,
// running its script (if any) and overlaying the plugin document's
// root response when DefaultsFromRootResponse is set.
func (s *Service) buildSpec(r *http.Request, owner *Instance, resource *config.ResourceConfig, pathParams map[string]string, body []byte, bodyJSON interface{}) (response.Spec, error) {
	resp := resource.Response

	var spec response.Spec
	if resp.Script != "" {
		env := scriptEnv(pathParams, r, body, bodyJSON, &storesHandle{factory: s.Manager.Stores})
		behaviour, err := owner.Scripts.Execute(r.Context(), resp.Script, env)
		if err != nil {
			return response.Spec{}, &ScriptError{Resource: resource.Path, Err: err}
		}
		s.Listener.AfterSuccessfulScriptExecution(r, resource, behaviour)
		spec = overlayScriptBehaviour(behaviour, resp)
	} else {
		spec = response.SpecFromConfig(resp)
	}

	if owner.Config != nil && owner.Config.DefaultsFromRootResponse {
		spec = overlayRootDefaults(spec, owner.Config.Response)
	}

	return spec, nil
}

// responseValidator is implemented by plugins (openapi) that can
// contract-check a rendered response against a declared schema.
type responseValidator interface {
	ValidateResponse(r *http.Request, status int, headers http.Header, body []byte) *validation.Result
}

func validateRendered(owner *Instance, r *http.Request, rendered *response.Rendered) *validation.Result {
	v, ok := owner.Plugin.(responseValidator)
	if !ok {
		return nil
	}
	return v.ValidateResponse(r, rendered.StatusCode, headerFromMap(rendered.Headers), rendered.Body)
}

func exampleLookupFor(owner *Instance) response.ExampleLookup {
	if p, ok := owner.Plugin.(exampleLookupper); ok {
		return p.ExampleLookup
	}
	return nil
}

func transmit(exchange *httpexchange.Exchange, rendered *response.Rendered) error {
	for name, value := range rendered.Headers {
		exchange.WriteHeader(name, value)
	}
	exchange.WriteStatus(rendered.StatusCode)
	if err := exchange.WriteBody(rendered.Body); err != nil {
		return &TransmissionError{Err: err}
	}
	return nil
}

func headerFromMap(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// statusedFailure is implemented by validation errors that want a
// status other than the default 400 (the rest plugin's failStatus).
type statusedFailure interface {
	HTTPStatus() int
}

// writeHookError maps a plugin's OnRequest error to an HTTP response,
// giving any validation.Failing error (contract or field validation) a
// structured JSON body at its chosen status, and routing everything
// else to the generic error dispatch as an opaque 502 from the plugin.
func (s *Service) writeHookError(w http.ResponseWriter, r *http.Request, err error) int {
	var failing validation.Failing
	if errors.As(err, &failing) {
		status := http.StatusBadRequest
		if sf, ok := err.(statusedFailure); ok && sf.HTTPStatus() != 0 {
			status = sf.HTTPStatus()
		}
		httputil.WriteErrorWithDetails(w, status, "request_validation_failed",
			"request failed validation", failing.ValidationResult())
		return status
	}
	s.dispatchError(w, r, http.StatusBadGateway, err)
	return http.StatusBadGateway
}

// handlePipelineError maps a pipeline error to the status code
// spec.md's error taxonomy assigns it: a failed script is a 500 with
// the script's error surfaced, a render failure (missing file, missing
// example) is also a 500. Routed through dispatchError so a registered
// per-status handler for 500 takes precedence over the default text body.
func (s *Service) handlePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	s.dispatchError(w, r, statusForError(err), err)
}

// statusForError maps a pipeline error to its HTTP status. Both
// ScriptError and RenderError are server-side failures; the taxonomy
// exists so a future error kind (e.g. a client-caused RenderError) has
// a place to diverge.
func statusForError(err error) int {
	return http.StatusInternalServerError
}

func (s *Service) recordRequest(method string, status int, start time.Time) {
	if s.Metrics == nil {
		return
	}
	if s.Metrics.RequestDuration != nil {
		_ = s.Metrics.RequestDuration.Observe(time.Since(start).Seconds())
	}
	if s.Metrics.RequestsTotal != nil && status != 0 {
		if v, err := s.Metrics.RequestsTotal.WithLabels(method, statusLabel(status)); err == nil {
			_ = v.Inc()
		}
	}
}

func (s *Service) recordUnmatched(method string) {
	if s.Metrics == nil || s.Metrics.UnmatchedTotal == nil {
		return
	}
	if v, err := s.Metrics.UnmatchedTotal.WithLabels(method); err == nil {
		_ = v.Inc()
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
