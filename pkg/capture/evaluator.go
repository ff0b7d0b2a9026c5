package capture

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/store"
)

// Evaluator runs a resource's captures against a request and writes
// their results into stores obtained from Factory. A capture that
// fails to resolve or write is logged and skipped; it never fails the
// request that triggered it.
type Evaluator struct {
	Factory store.Factory
	Logger  *slog.Logger

	programMu    sync.RWMutex
	programCache map[string]*vm.Program
}

// NewEvaluator constructs an Evaluator that opens stores through
// factory.
func NewEvaluator(factory store.Factory) *Evaluator {
	return &Evaluator{
		Factory:      factory,
		Logger:       slog.Default(),
		programCache: make(map[string]*vm.Program),
	}
}

func (e *Evaluator) evalExpression(expression string, req Request) (string, error) {
	program, err := e.compile(expression)
	if err != nil {
		return "", fmt.Errorf("capture: compile expression %q: %w", expression, err)
	}

	result, err := expr.Run(program, req.exprEnv())
	if err != nil {
		return "", fmt.Errorf("capture: evaluate expression %q: %w", expression, err)
	}
	return stringify(result), nil
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	e.programMu.RLock()
	if program, ok := e.programCache[expression]; ok {
		e.programMu.RUnlock()
		return program, nil
	}
	e.programMu.RUnlock()

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.programMu.Lock()
	defer e.programMu.Unlock()
	if existing, ok := e.programCache[expression]; ok {
		return existing, nil
	}
	e.programCache[expression] = program
	return program, nil
}

// Run executes every enabled capture in captures whose effective phase
// matches phase, in declaration order, against req. A failing capture
// is logged and skipped; Run itself never fails.
func (e *Evaluator) Run(captures []config.CaptureConfig, phase config.CapturePhase, req Request) {
	for _, c := range captures {
		if !c.IsEnabled() || c.EffectivePhase() != phase {
			continue
		}
		if err := e.runOne(c, req); err != nil {
			e.Logger.Warn("capture failed", "capture", c.Name, "error", err)
		}
	}
}

func (e *Evaluator) runOne(c config.CaptureConfig, req Request) error {
	value, err := e.resolve(captureSource(c), req)
	if err != nil {
		return err
	}

	key := c.Name
	if c.Key != nil {
		key, err = e.resolve(keySource(c.Key), req)
		if err != nil {
			return fmt.Errorf("resolve key: %w", err)
		}
	}

	storeName := c.StoreName
	if c.Store != nil {
		storeName, err = e.resolve(keySource(c.Store), req)
		if err != nil {
			return fmt.Errorf("resolve store: %w", err)
		}
	}
	if storeName == "" {
		storeName = "default"
	}

	target, err := e.Factory.OpenOrCreate(storeName)
	if err != nil {
		return fmt.Errorf("open store %q: %w", storeName, err)
	}
	return target.Save(key, value)
}
