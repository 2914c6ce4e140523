package dinia

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Built in expression engines.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// ErrNoEvaluator is returned when no expression engine is available.
var ErrNoEvaluator = errors.New("dinia: evaluator not configured")

// EvalContext carries the inputs of an expression getter. State keys are also
// exposed as top level variables.
type EvalContext struct {
	StoreID string
	State   map[string]any
	Now     *time.Time
	Args    map[string]any
}

func (ctx EvalContext) withDefaults() EvalContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.State == nil {
		ctx.State = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	return *ctx.withDefaults().Now
}

// bindings returns the variables visible to an expression. Reserved names win
// over state keys.
func (ctx EvalContext) bindings() map[string]any {
	env := make(map[string]any, len(ctx.State)+4)
	for key, value := range ctx.State {
		env[key] = value
	}
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	env["state"] = ctx.State
	env["store"] = ctx.StoreID
	return env
}

var reservedNames = map[string]bool{"now": true, "args": true, "state": true, "store": true, "call": true}

// Evaluator runs expressions against an EvalContext.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule is a reusable compiled expression.
type CompiledRule interface {
	Evaluate(ctx EvalContext) (any, error)
}

// ProgramCache stores compiled programs keyed by expression.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

type syncProgramCache struct {
	programs sync.Map
}

// NewProgramCache returns a ProgramCache safe for concurrent use.
func NewProgramCache() ProgramCache {
	return &syncProgramCache{}
}

func (c *syncProgramCache) Get(key string) (any, bool) {
	return c.programs.Load(key)
}

func (c *syncProgramCache) Set(key string, value any) {
	c.programs.Store(key, value)
}

// EvaluatorOption configures a built in evaluator.
type EvaluatorOption func(*evaluatorConfig)

type evaluatorConfig struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// EvaluatorCache shares compiled programs through cache.
func EvaluatorCache(cache ProgramCache) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.cache = cache
	}
}

// EvaluatorFunctions exposes the functions of registry to expressions. The
// registry is copied.
func EvaluatorFunctions(registry *FunctionRegistry) EvaluatorOption {
	return func(cfg *evaluatorConfig) {
		cfg.registry = registry.Clone()
	}
}

func applyEvaluatorOptions(opts []EvaluatorOption) evaluatorConfig {
	var cfg evaluatorConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.cache == nil {
		cfg.cache = NewProgramCache()
	}
	return cfg
}

// engines maps engine names to constructors. The js engine registers itself
// when built with the js_eval tag.
var engines = map[string]func(evaluatorConfig) Evaluator{
	EngineExpr: func(cfg evaluatorConfig) Evaluator { return &exprEvaluator{cfg: cfg} },
	EngineCEL:  func(cfg evaluatorConfig) Evaluator { return &celEvaluator{cfg: cfg} },
}

// Evaluator returns the evaluator used by expression getters: the one set
// with WithEvaluator, or the configured built in engine.
func (c *Container) Evaluator() (Evaluator, error) {
	c.evalOnce.Do(func() {
		if c.cfg.evaluator != nil {
			c.evaluator = c.cfg.evaluator
			return
		}
		c.evaluator, c.evalErr = newEngine(c.cfg.engine,
			EvaluatorCache(c.cfg.programCache),
			EvaluatorFunctions(c.cfg.functions),
		)
	})
	return c.evaluator, c.evalErr
}

func newEngine(engine string, opts ...EvaluatorOption) (Evaluator, error) {
	if engine == "" {
		engine = EngineExpr
	}
	build, ok := engines[engine]
	switch {
	case ok:
		return build(applyEvaluatorOptions(opts)), nil
	case engine == EngineJS:
		return nil, fmt.Errorf("%w: js engine requires the js_eval build tag", ErrNoEvaluator)
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", ErrNoEvaluator, engine)
	}
}

// evaluatorEngine names the engine behind e for error reports.
func evaluatorEngine(e Evaluator) string {
	switch typed := e.(type) {
	case nil:
		return "unknown"
	case interface{ engine() string }:
		return typed.engine()
	default:
		return "custom"
	}
}

var errEmptyExpression = errors.New("expression must not be empty")

// EvaluationError reports a failed expression getter. Store and Getter name
// the getter that ran the expression.
type EvaluationError struct {
	Engine string
	Store  string
	Getter string
	Expr   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := e.Store
	if e.Getter != "" {
		target += "." + e.Getter
	}
	if target == "" {
		target = "<detached>"
	}
	return fmt.Sprintf("dinia: getter %s (%s) %q: %v", target, e.Engine, e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// annotate wraps err in an EvaluationError, or fills the blank fields of the
// one it already carries.
func annotate(err error, with EvaluationError) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		with.Err = err
		return &with
	}
	if evalErr.Engine == "" {
		evalErr.Engine = with.Engine
	}
	if evalErr.Store == "" {
		evalErr.Store = with.Store
	}
	if evalErr.Getter == "" {
		evalErr.Getter = with.Getter
	}
	if evalErr.Expr == "" {
		evalErr.Expr = with.Expr
	}
	return err
}
