//go:build js_eval

package dinia

import "testing"

func TestExprGetterJSEngine(t *testing.T) {
	c := newTestContainer(t,
		WithEngine(EngineJS),
		WithCustomFunction("shout", func(call FunctionCall) (any, error) {
			return call.Arg(0).(string) + "!", nil
		}),
		WithCustomFunction("owned", func(call FunctionCall) (any, error) {
			return call.Store + ":" + call.State["owner"].(string), nil
		}),
	)
	s := mustUse(t, defineCart(t, map[string]Getter{
		"total":    Expr("count * price"),
		"greeting": Expr("shout(owner)"),
		"owned":    Expr(`call("owned")`),
		"sum":      Expr("count + price"),
	}), c)

	if got := s.Value("total"); got != int64(10) {
		t.Fatalf("unexpected total %v (%T)", got, got)
	}
	if got := s.Value("greeting"); got != "ada!" {
		t.Fatalf("unexpected greeting %v", got)
	}
	if got := s.Value("owned"); got != "cart:ada" {
		t.Fatalf("unexpected owned %v", got)
	}
	if got := s.Value("sum"); got != int64(7) {
		t.Fatalf("unexpected sum %v (%T)", got, got)
	}
}
