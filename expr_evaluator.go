package dinia

import (
	"fmt"
	"sort"
	"strings"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/parser"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator runs expressions with github.com/expr-lang/expr. Programs
// are checked against the environment of the evaluation, so variables named
// like expr builtins ("count", "len", "now") resolve to the bound values.
type exprEvaluator struct {
	cfg evaluatorConfig
}

// NewExprEvaluator returns an Evaluator backed by expr-lang/expr. It is the
// default engine.
func NewExprEvaluator(opts ...EvaluatorOption) Evaluator {
	return &exprEvaluator{cfg: applyEvaluatorOptions(opts)}
}

func (e *exprEvaluator) engine() string { return EngineExpr }

func (e *exprEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	failure := EvaluationError{Engine: EngineExpr, Store: ctx.StoreID, Expr: expression}
	if expression == "" {
		return nil, annotate(errEmptyExpression, failure)
	}
	ctx = ctx.withDefaults()
	env := e.env(ctx)
	program, err := e.program(expression, env)
	if err != nil {
		return nil, annotate(err, failure)
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, annotate(err, failure)
	}
	return result, nil
}

// Compile only parses the expression. Type checking needs the variables of
// an evaluation and happens, once per environment shape, when the rule runs.
func (e *exprEvaluator) Compile(expression string) (CompiledRule, error) {
	failure := EvaluationError{Engine: EngineExpr, Expr: expression}
	if expression == "" {
		return nil, annotate(errEmptyExpression, failure)
	}
	if _, err := parser.Parse(expression); err != nil {
		return nil, annotate(err, failure)
	}
	return &exprCompiledRule{evaluator: e, expression: expression}, nil
}

// env binds the evaluation context. Registered functions take precedence
// over state keys of the same name.
func (e *exprEvaluator) env(ctx EvalContext) map[string]any {
	env := ctx.bindings()
	for name, fn := range e.cfg.registry.bindings(ctx) {
		env[name] = fn
	}
	return env
}

func (e *exprEvaluator) program(expression string, env map[string]any) (*exprvm.Program, error) {
	key := EngineExpr + ":" + envShape(env) + ":" + expression
	if cached, ok := e.cfg.cache.Get(key); ok {
		if program, ok := cached.(*exprvm.Program); ok {
			return program, nil
		}
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(env),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	e.cfg.cache.Set(key, program)
	return program, nil
}

// envShape identifies the names and Go types of env. Programs compiled for
// one shape are reused by every environment with the same shape.
func envShape(env map[string]any) string {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%T;", name, env[name])
	}
	return b.String()
}

type exprCompiledRule struct {
	evaluator  *exprEvaluator
	expression string
}

func (r *exprCompiledRule) Evaluate(ctx EvalContext) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expression)
}
