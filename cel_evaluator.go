package dinia

import (
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	functions "github.com/google/cel-go/common/functions"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

type celProgram struct {
	env     *celgo.Env
	ast     *celgo.Ast
	program celgo.Program
}

// celEvaluator runs expressions with cel-go. State keys are declared as
// dynamic variables, so programs are compiled per state shape.
type celEvaluator struct {
	cfg evaluatorConfig
}

// NewCELEvaluator returns an Evaluator backed by cel-go. Registered functions
// are reached through call("name", args...).
func NewCELEvaluator(opts ...EvaluatorOption) Evaluator {
	return &celEvaluator{cfg: applyEvaluatorOptions(opts)}
}

func (e *celEvaluator) engine() string { return EngineCEL }

func (e *celEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	failure := EvaluationError{Engine: EngineCEL, Store: ctx.StoreID, Expr: expression}
	if expression == "" {
		return nil, annotate(errEmptyExpression, failure)
	}
	ctx = ctx.withDefaults()
	compiled, err := e.loadOrCompile(expression, ctx.State)
	if err != nil {
		return nil, annotate(err, failure)
	}
	program := compiled.program
	if program == nil {
		// call is bound per evaluation so functions see the calling store.
		program, err = compiled.env.Program(compiled.ast, celgo.Functions(e.callOverloads(ctx)...))
		if err != nil {
			return nil, annotate(err, failure)
		}
	}
	out, _, err := program.Eval(ctx.bindings())
	if err != nil {
		return nil, annotate(err, failure)
	}
	return out.Value(), nil
}

// Compile checks the expression syntax. Type checking happens per state shape
// on evaluation.
func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	failure := EvaluationError{Engine: EngineCEL, Expr: expression}
	if expression == "" {
		return nil, annotate(errEmptyExpression, failure)
	}
	env, err := e.buildEnv(nil)
	if err != nil {
		return nil, annotate(err, failure)
	}
	if _, issues := env.Parse(expression); issues != nil && issues.Err() != nil {
		return nil, annotate(issues.Err(), failure)
	}
	return &celCompiledRule{evaluator: e, expression: expression}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, state map[string]any) (*celProgram, error) {
	keys := stateVariables(state)
	cacheKey := EngineCEL + ":" + strings.Join(keys, ",") + ":" + expression
	if cached, ok := e.cfg.cache.Get(cacheKey); ok {
		if compiled, ok := cached.(*celProgram); ok {
			return compiled, nil
		}
	}

	env, err := e.buildEnv(keys)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	compiled := &celProgram{env: env, ast: ast}
	if e.cfg.registry == nil {
		if compiled.program, err = env.Program(ast); err != nil {
			return nil, err
		}
	}
	e.cfg.cache.Set(cacheKey, compiled)
	return compiled, nil
}

func (e *celEvaluator) buildEnv(keys []string) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("state", celgo.DynType),
		celgo.Variable("store", celgo.StringType),
	}
	if e.cfg.registry != nil {
		opts = append(opts, celgo.Function("call",
			celgo.Overload(celCallOverloads[0], []*celgo.Type{celgo.StringType}, celgo.DynType),
			celgo.Overload(celCallOverloads[1], []*celgo.Type{celgo.StringType, celgo.DynType}, celgo.DynType),
			celgo.Overload(celCallOverloads[2], []*celgo.Type{celgo.StringType, celgo.DynType, celgo.DynType}, celgo.DynType),
		))
	}
	for _, key := range keys {
		opts = append(opts, celgo.Variable(key, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func stateVariables(state map[string]any) []string {
	keys := make([]string, 0, len(state))
	for key := range state {
		if reservedNames[key] {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx EvalContext) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expression)
}

var celCallOverloads = []string{"call_string", "call_string_dyn", "call_string_dyn_dyn"}

// callOverloads implements call for one evaluation.
func (e *celEvaluator) callOverloads(ctx EvalContext) []*functions.Overload {
	op := func(values ...ref.Val) ref.Val {
		if len(values) == 0 {
			return types.NewErr("dinia: call requires function name")
		}
		name, ok := values[0].Value().(string)
		if !ok {
			return types.NewErr("dinia: call name must be string")
		}
		args := make([]any, 0, len(values)-1)
		for _, val := range values[1:] {
			args = append(args, val.Value())
		}
		result, err := e.cfg.registry.Invoke(ctx, name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}

	overloads := make([]*functions.Overload, 0, len(celCallOverloads)+1)
	for _, id := range append([]string{"call"}, celCallOverloads...) {
		overloads = append(overloads, &functions.Overload{Operator: id, Function: op})
	}
	return overloads
}
