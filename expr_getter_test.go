package dinia

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func defineCart(t *testing.T, getters map[string]Getter) *Definition {
	t.Helper()
	return Must(Define("cart", Options{
		State: func() any {
			return map[string]any{"count": 2, "price": 5, "owner": "ada"}
		},
		Getters: getters,
		Actions: map[string]Action{
			"add": func(s *Store, _ ...any) (any, error) {
				n, _ := s.State().Value("count").(int)
				s.State().Set("count", n+1)
				return nil, nil
			},
		},
	}))
}

func TestExprGetterDefaultEngine(t *testing.T) {
	c := newTestContainer(t)
	s := mustUse(t, defineCart(t, map[string]Getter{
		"total": Expr("count * price"),
		"label": Expr(`store + ":" + owner`),
	}), c)

	total, err := s.Getter("total")
	if err != nil || total != 10 {
		t.Fatalf("unexpected total %v, %v", total, err)
	}
	if got := s.Value("label"); got != "cart:ada" {
		t.Fatalf("unexpected label %v", got)
	}

	if _, err := s.Call("add"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := s.Value("total"); got != 15 {
		t.Fatalf("expected the getter to follow state, got %v", got)
	}
}

func TestExprGetterCELEngine(t *testing.T) {
	c := newTestContainer(t, WithEngine(EngineCEL), WithProgramCache(NewProgramCache()))
	s := mustUse(t, defineCart(t, map[string]Getter{
		"total":  Expr("count * price"),
		"bigger": Expr("count > 1 && owner == 'ada'"),
	}), c)

	if got := s.Value("total"); got != int64(10) {
		t.Fatalf("unexpected total %v (%T)", got, got)
	}
	if got := s.Value("bigger"); got != true {
		t.Fatalf("unexpected bigger %v", got)
	}
}

func TestExprGetterStateKeysShadowBuiltins(t *testing.T) {
	def := Must(Define("stats", Options{
		State: func() any {
			return map[string]any{
				"len": 3, "sum": 12, "max": 9, "min": 1,
				"all": true, "filter": "open", "now": "stale",
			}
		},
		Getters: map[string]Getter{
			"mean":   Expr("sum / len"),
			"spread": Expr("max - min"),
			"label":  Expr(`filter + ":" + string(all)`),
			"clock":  Expr("now.Year() > 2000"),
		},
	}))
	s := mustUse(t, def, newTestContainer(t))

	if got, err := s.Getter("mean"); err != nil || got != 4.0 {
		t.Fatalf("unexpected mean %v, %v", got, err)
	}
	if got := s.Value("spread"); got != 8 {
		t.Fatalf("unexpected spread %v", got)
	}
	if got := s.Value("label"); got != "open:true" {
		t.Fatalf("unexpected label %v", got)
	}
	if got := s.Value("clock"); got != true {
		t.Fatalf("expected now to stay the evaluation time, got %v", got)
	}
}

func TestExprGetterRecompilesWhenStateTypesChange(t *testing.T) {
	cache := NewProgramCache()
	c := newTestContainer(t, WithProgramCache(cache))
	s := mustUse(t, defineCart(t, map[string]Getter{
		"total": Expr("count * price"),
	}), c)

	if got := s.Value("total"); got != 10 {
		t.Fatalf("unexpected total %v", got)
	}
	s.State().Set("price", 2.5)
	if got := s.Value("total"); got != 5.0 {
		t.Fatalf("expected a float total after the price type changed, got %v (%T)", got, got)
	}
}

func TestExprGetterFunctionRegistry(t *testing.T) {
	discount := func(call FunctionCall) (any, error) {
		if len(call.Args) != 1 {
			return nil, errors.New("discount takes one argument")
		}
		switch n := call.Arg(0).(type) {
		case int:
			return n - 1, nil
		case int64:
			return n - 1, nil
		}
		return nil, fmt.Errorf("discount: unexpected %T", call.Arg(0))
	}
	signed := func(call FunctionCall) (any, error) {
		return fmt.Sprintf("%v@%s", call.State["owner"], call.Store), nil
	}

	c := newTestContainer(t,
		WithCustomFunction("discount", discount),
		WithCustomFunction("signed", signed),
	)
	s := mustUse(t, defineCart(t, map[string]Getter{
		"direct": Expr("discount(price)"),
		"called": Expr(`call("discount", price)`),
		"signed": Expr("signed()"),
		"broken": Expr("discount()"),
	}), c)
	if got := s.Value("direct"); got != 4 {
		t.Fatalf("unexpected direct result %v", got)
	}
	if got := s.Value("called"); got != 4 {
		t.Fatalf("unexpected call result %v", got)
	}
	if got := s.Value("signed"); got != "ada@cart" {
		t.Fatalf("expected the function to see the calling store, got %v", got)
	}
	if _, err := s.Getter("broken"); err == nil || !strings.Contains(err.Error(), "discount takes one argument") {
		t.Fatalf("expected the function error to surface, got %v", err)
	}

	registry := NewFunctionRegistry()
	if err := registry.Register("discount", discount); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("DISCOUNT", discount); err == nil {
		t.Fatalf("expected names differing by case to be rejected")
	}
	if err := registry.Register("store", discount); err == nil {
		t.Fatalf("expected reserved names to be rejected")
	}
	if err := registry.Register("signed", signed); err != nil {
		t.Fatalf("register: %v", err)
	}
	cel := newTestContainer(t, WithEngine(EngineCEL), WithFunctionRegistry(registry))
	cs := mustUse(t, defineCart(t, map[string]Getter{
		"called": Expr(`call("discount", price)`),
		"signed": Expr(`call("signed")`),
	}), cel)
	if got := cs.Value("called"); got != int64(4) {
		t.Fatalf("unexpected cel call result %v (%T)", got, got)
	}
	if got := cs.Value("signed"); got != "ada@cart" {
		t.Fatalf("unexpected cel signed result %v", got)
	}
}

func TestExprWithCompilesOnce(t *testing.T) {
	evaluator := &countingEvaluator{Evaluator: NewExprEvaluator()}
	c := newTestContainer(t)
	s := mustUse(t, defineCart(t, map[string]Getter{
		"total": ExprWith(evaluator, "count * price"),
	}), c)

	for i := 0; i < 3; i++ {
		if _, err := s.Call("add"); err != nil {
			t.Fatalf("add: %v", err)
		}
		s.Value("total")
	}
	if evaluator.compiles != 1 {
		t.Fatalf("expected one compilation, got %d", evaluator.compiles)
	}
}

func TestExprGetterErrors(t *testing.T) {
	c := newTestContainer(t)
	s := mustUse(t, defineCart(t, map[string]Getter{
		"broken": Expr("count +"),
	}), c)

	_, err := s.Getter("broken")
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvaluationError, got %v", err)
	}
	if evalErr.Engine != EngineExpr || evalErr.Store != "cart" || evalErr.Getter != "broken" || evalErr.Expr != "count +" {
		t.Fatalf("unexpected evaluation error %+v", evalErr)
	}
	if !strings.HasPrefix(err.Error(), `dinia: getter cart.broken (expr) "count +": `) {
		t.Fatalf("unexpected message %q", err.Error())
	}

	unknown := newTestContainer(t, WithEngine("lua"))
	us := mustUse(t, defineCart(t, map[string]Getter{"total": Expr("count")}), unknown)
	if _, err := us.Getter("total"); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator for an unknown engine, got %v", err)
	}
}

type countingEvaluator struct {
	Evaluator
	compiles int
}

func (e *countingEvaluator) Compile(expr string) (CompiledRule, error) {
	e.compiles++
	return e.Evaluator.Compile(expr)
}
