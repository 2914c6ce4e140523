package dinia

import "sync"

// Expr returns a getter that evaluates source against a snapshot of the store
// state with the container evaluator. State keys are top level variables;
// "state", "store", "now" and "args" are also bound, along with the
// functions registered on the container.
func Expr(source string) Getter {
	return &exprGetter{source: source}
}

// ExprWith returns an expression getter bound to evaluator. The expression is
// compiled once, on first use.
func ExprWith(evaluator Evaluator, source string) Getter {
	return &exprGetter{source: source, evaluator: evaluator}
}

type exprGetter struct {
	source    string
	evaluator Evaluator

	once    sync.Once
	rule    CompiledRule
	ruleErr error
}

func (g *exprGetter) Compute(s *Store) (any, error) {
	ctx := EvalContext{StoreID: s.id, State: s.state.Snapshot()}

	if g.evaluator != nil {
		failure := EvaluationError{Engine: evaluatorEngine(g.evaluator), Store: s.id, Expr: g.source}
		g.once.Do(func() {
			g.rule, g.ruleErr = g.evaluator.Compile(g.source)
		})
		if g.ruleErr != nil {
			return nil, annotate(g.ruleErr, failure)
		}
		value, err := g.rule.Evaluate(ctx)
		return value, annotate(err, failure)
	}

	evaluator, err := s.container.Evaluator()
	if err != nil {
		return nil, annotate(err, EvaluationError{Engine: s.container.cfg.engine, Store: s.id, Expr: g.source})
	}
	value, err := evaluator.Evaluate(ctx, g.source)
	return value, annotate(err, EvaluationError{Engine: evaluatorEngine(evaluator), Store: s.id, Expr: g.source})
}
