// Package dinia is a reactive store container. Stores are declared once with
// Define or DefineSetup and resolved per container, so every container (one
// per request on a server) holds its own instance of each store.
//
//	var counter = dinia.Must(dinia.Define("counter", dinia.Options{
//	    State: func() any { return map[string]any{"count": 0} },
//	    Actions: map[string]dinia.Action{
//	        "increment": func(s *dinia.Store, _ ...any) (any, error) {
//	            n, _ := s.State().Value("count").(int)
//	            s.State().Set("count", n+1)
//	            return n + 1, nil
//	        },
//	    },
//	}))
//
//	c := dinia.New()
//	ctx := dinia.Provide(context.Background(), c)
//	s := counter.MustUse(ctx)
//	s.Call("increment")
//
// A container and its stores are used from one goroutine at a time. Queued
// subscribers and watchers run when Container.Flush is called.
package dinia
