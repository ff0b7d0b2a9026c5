package script

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ashgrove/mimic/pkg/metrics"
)

// Service runs a script file against a request environment and returns
// the Behaviour it produces.
type Service interface {
	Execute(ctx context.Context, scriptPath string, env map[string]interface{}) (*Behaviour, error)
}

type compiledScript struct {
	program *vm.Program
	modTime time.Time
}

// Engine is the default Service. It resolves relative script paths
// against BaseDir and caches compiled programs by absolute path, only
// recompiling when InvalidateOnChange is set and the file's mtime has
// advanced.
type Engine struct {
	BaseDir            string
	InvalidateOnChange bool

	logger  *slog.Logger
	loggers *loggerCache
	timer   *metrics.Histogram

	mu    sync.RWMutex
	cache map[string]*compiledScript
}

// NewEngine constructs an Engine rooted at baseDir. Relative script
// paths passed to Execute are resolved against it.
func NewEngine(baseDir string) *Engine {
	return &Engine{
		BaseDir: baseDir,
		logger:  slog.Default(),
		loggers: newLoggerCache(),
		cache:   make(map[string]*compiledScript),
	}
}

// SetLogger sets the base logger that per-script loggers derive from.
func (e *Engine) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
}

// SetTimer wires a histogram that Execute reports each run's wall-clock
// duration through, in seconds. A nil timer disables the instrumentation.
func (e *Engine) SetTimer(h *metrics.Histogram) {
	e.timer = h
}

func (e *Engine) resolve(scriptPath string) string {
	if filepath.IsAbs(scriptPath) {
		return scriptPath
	}
	return filepath.Join(e.BaseDir, scriptPath)
}

// Execute compiles (or reuses the cached compilation of) scriptPath,
// runs it against env plus the injected response and logger helpers,
// and returns the resulting Behaviour.
func (e *Engine) Execute(ctx context.Context, scriptPath string, env map[string]interface{}) (*Behaviour, error) {
	if e.timer != nil {
		start := time.Now()
		defer func() { _ = e.timer.Observe(time.Since(start).Seconds()) }()
	}

	path := e.resolve(scriptPath)

	program, err := e.compile(path)
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", scriptPath, err)
	}

	fullEnv := make(map[string]interface{}, len(env)+2)
	for k, v := range env {
		fullEnv[k] = v
	}
	fullEnv["response"] = newResponseBuilder
	fullEnv["logger"] = e.loggerFor(scriptPath)

	result, err := expr.Run(program, fullEnv)
	if err != nil {
		return nil, fmt.Errorf("script: execute %s: %w", scriptPath, err)
	}

	behaviour, ok := result.(*Behaviour)
	if !ok {
		return nil, fmt.Errorf("script: %s did not end with response()....Respond()", scriptPath)
	}
	return behaviour, nil
}

func (e *Engine) compile(path string) (*vm.Program, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	cached, ok := e.cache[path]
	e.mu.RUnlock()
	if ok && (!e.InvalidateOnChange || !info.ModTime().After(cached.modTime)) {
		return cached.program, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cached, ok = e.cache[path]
	if ok && (!e.InvalidateOnChange || !info.ModTime().After(cached.modTime)) {
		return cached.program, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	program, err := expr.Compile(string(source), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.cache[path] = &compiledScript{program: program, modTime: info.ModTime()}
	return program, nil
}

func (e *Engine) loggerFor(scriptPath string) *slog.Logger {
	if l, ok := e.loggers.get(scriptPath); ok {
		return l
	}
	l := e.logger.With("script", scriptPath)
	e.loggers.set(scriptPath, l)
	return l
}
