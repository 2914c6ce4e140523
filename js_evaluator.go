//go:build js_eval

package dinia

import (
	"fmt"

	"github.com/dop251/goja"
)

func init() {
	engines[EngineJS] = func(cfg evaluatorConfig) Evaluator { return &jsEvaluator{cfg: cfg} }
}

// jsEvaluator runs expressions with goja. Every evaluation gets a fresh
// runtime holding the store snapshot and the registered functions.
type jsEvaluator struct {
	cfg evaluatorConfig
}

// NewJSEvaluator returns an Evaluator backed by goja. It is only built with
// the js_eval tag.
func NewJSEvaluator(opts ...EvaluatorOption) Evaluator {
	return &jsEvaluator{cfg: applyEvaluatorOptions(opts)}
}

func (e *jsEvaluator) engine() string { return EngineJS }

func (e *jsEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	failure := EvaluationError{Engine: EngineJS, Store: ctx.StoreID, Expr: expression}
	program, err := e.program(expression)
	if err != nil {
		return nil, annotate(err, failure)
	}

	ctx = ctx.withDefaults()
	vm := goja.New()
	for name, value := range ctx.bindings() {
		if err := vm.Set(name, value); err != nil {
			return nil, annotate(err, failure)
		}
	}
	for name, fn := range e.cfg.registry.bindings(ctx) {
		if err := vm.Set(name, fn); err != nil {
			return nil, annotate(err, failure)
		}
	}
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, annotate(err, failure)
	}
	return value.Export(), nil
}

func (e *jsEvaluator) Compile(expression string) (CompiledRule, error) {
	if _, err := e.program(expression); err != nil {
		return nil, annotate(err, EvaluationError{Engine: EngineJS, Expr: expression})
	}
	return &jsCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *jsEvaluator) program(expression string) (*goja.Program, error) {
	if expression == "" {
		return nil, errEmptyExpression
	}
	key := EngineJS + ":" + expression
	if cached, ok := e.cfg.cache.Get(key); ok {
		if program, ok := cached.(*goja.Program); ok {
			return program, nil
		}
	}
	program, err := goja.Compile("", fmt.Sprintf("(function(){ return (%s); })()", expression), false)
	if err != nil {
		return nil, err
	}
	e.cfg.cache.Set(key, program)
	return program, nil
}

type jsCompiledRule struct {
	evaluator  *jsEvaluator
	expression string
}

func (r *jsCompiledRule) Evaluate(ctx EvalContext) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expression)
}
