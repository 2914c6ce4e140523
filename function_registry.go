package dinia

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// FunctionCall is what a registered function receives when an expression
// getter calls it. State is a snapshot of the calling store and must be
// treated as read only.
type FunctionCall struct {
	Store string
	State map[string]any
	Args  []any
}

// Arg returns argument i, or nil when the call has fewer arguments.
func (c FunctionCall) Arg(i int) any {
	if i < 0 || i >= len(c.Args) {
		return nil
	}
	return c.Args[i]
}

// Function is a callable exposed to expression getters.
type Function func(call FunctionCall) (any, error)

// FunctionRegistry holds the functions expression getters can call. Names
// are unique regardless of case.
type FunctionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{funcs: make(map[string]Function)}
}

// Register adds fn under name. Names used by the evaluation context ("now",
// "args", "state", "store" and "call") are rejected.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	switch {
	case name == "":
		return fmt.Errorf("dinia: function name must not be empty")
	case fn == nil:
		return fmt.Errorf("dinia: function %q is nil", name)
	case reservedNames[strings.ToLower(name)]:
		return fmt.Errorf("dinia: function name %q is reserved", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.funcs == nil {
		r.funcs = make(map[string]Function)
	}
	for existing := range r.funcs {
		if strings.EqualFold(existing, name) {
			return fmt.Errorf("dinia: function %q already registered as %q", name, existing)
		}
	}
	r.funcs[name] = fn
	return nil
}

// Clone returns a registry holding the same functions. Registering on the
// clone leaves r untouched.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{funcs: make(map[string]Function, len(r.funcs))}
	for name, fn := range r.funcs {
		clone.funcs[name] = fn
	}
	return clone
}

// Names returns the registered names in sorted order.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke calls the function registered under name on behalf of the store
// described by ctx. An exact name match wins over a case insensitive one.
func (r *FunctionRegistry) Invoke(ctx EvalContext, name string, args ...any) (any, error) {
	fn := r.lookup(name)
	if fn == nil {
		return nil, fmt.Errorf("dinia: function %q not registered", name)
	}
	result, err := fn(FunctionCall{Store: ctx.StoreID, State: ctx.State, Args: args})
	if err != nil {
		return nil, fmt.Errorf("dinia: function %q: %w", name, err)
	}
	return result, nil
}

func (r *FunctionRegistry) lookup(name string) Function {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if fn, ok := r.funcs[name]; ok {
		return fn
	}
	for existing, fn := range r.funcs {
		if strings.EqualFold(existing, name) {
			return fn
		}
	}
	return nil
}

// bindings returns every function as a variadic closure over ctx, plus the
// "call" dispatcher, ready to be placed in an evaluation environment.
func (r *FunctionRegistry) bindings(ctx EvalContext) map[string]any {
	names := r.Names()
	if len(names) == 0 {
		return nil
	}
	env := make(map[string]any, len(names)+1)
	for _, name := range names {
		fn := name
		env[fn] = func(args ...any) (any, error) {
			return r.Invoke(ctx, fn, args...)
		}
	}
	env["call"] = func(name string, args ...any) (any, error) {
		return r.Invoke(ctx, name, args...)
	}
	return env
}
