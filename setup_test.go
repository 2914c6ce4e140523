package dinia

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-dinia/reactive"
)

type themeKey struct{}

func defineTodos(t *testing.T, opts ...SetupOption) (*Definition, *[]string) {
	t.Helper()
	var changes []string
	def := Must(DefineSetup("todos", func(sc *SetupContext) map[string]any {
		items := reactive.NewRef([]string{})
		filter := reactive.NewRef("all")
		meta := reactive.NewMap(map[string]any{"owner": "ada"})
		count := Computed(sc, func() int { return len(items.Get()) }, items)

		sc.WatchValue(filter, func(newValue, _ any) {
			changes = append(changes, newValue.(string))
		})

		return map[string]any{
			"items":  items,
			"filter": filter,
			"meta":   meta,
			"count":  count,
			"theme":  sc.Inject(themeKey{}, "light"),
			"add": func(args ...any) (any, error) {
				next := append([]string{}, items.Get()...)
				for _, arg := range args {
					next = append(next, arg.(string))
				}
				items.Set(next)
				return len(next), nil
			},
			"clear": func() { items.Set([]string{}) },
		}
	}, opts...))
	return def, &changes
}

func TestSetupStorePartitionsResult(t *testing.T) {
	def, _ := defineTodos(t)
	c := newTestContainer(t)
	s := mustUse(t, def, c)

	if diff := cmp.Diff([]string{"filter", "items", "meta"}, s.State().Keys()); diff != "" {
		t.Fatalf("state keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"count"}, s.Getters()); diff != "" {
		t.Fatalf("getters mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"add", "clear"}, s.Actions()); diff != "" {
		t.Fatalf("actions mismatch (-want +got):\n%s", diff)
	}
	if got := s.Value("theme"); got != "light" {
		t.Fatalf("expected the injected default, got %v", got)
	}

	if _, err := s.Call("add", "milk", "eggs"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := s.Value("count"); got != 2 {
		t.Fatalf("expected count 2, got %v", got)
	}
	got, _ := c.State().Lookup("todos", "items")
	if diff := cmp.Diff([]string{"milk", "eggs"}, got); diff != "" {
		t.Fatalf("root state mismatch (-want +got):\n%s", diff)
	}
}

func TestSetupInjectReadsHostApp(t *testing.T) {
	def, _ := defineTodos(t)
	app := NewHostApp()
	app.Provide(themeKey{}, "dark")
	c := New()
	c.Install(app)
	t.Cleanup(func() { SetActive(nil) })

	if got := mustUse(t, def, c).Value("theme"); got != "dark" {
		t.Fatalf("expected injected theme, got %v", got)
	}
}

func TestSetupWatchersRunOnFlush(t *testing.T) {
	def, changes := defineTodos(t)
	c := newTestContainer(t)
	s := mustUse(t, def, c)

	s.State().Set("filter", "done")
	s.State().Set("filter", "open")
	if len(*changes) != 0 {
		t.Fatalf("expected queued watcher, got %v", *changes)
	}
	if n := c.Flush(); n == 0 {
		t.Fatalf("expected queued jobs")
	}
	if diff := cmp.Diff([]string{"open"}, *changes); diff != "" {
		t.Fatalf("watch mismatch (-want +got):\n%s", diff)
	}
}

func TestSetupResetRequiresOptIn(t *testing.T) {
	def, _ := defineTodos(t)
	c := newTestContainer(t)
	s := mustUse(t, def, c)

	err := s.Reset()
	if !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
	var notSupported *NotSupportedError
	if !errors.As(err, &notSupported) || notSupported.StoreID != "todos" {
		t.Fatalf("expected NotSupportedError for todos, got %#v", err)
	}
}

func TestSetupResetRestoresInitialState(t *testing.T) {
	def, _ := defineTodos(t, WithReset())
	c := newTestContainer(t)
	s := mustUse(t, def, c)

	if _, err := s.Call("add", "milk"); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Patch(map[string]any{"meta": map[string]any{"owner": "grace"}, "filter": "done"})

	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	want := map[string]any{
		"items":  []string{},
		"filter": "all",
		"meta":   map[string]any{"owner": "ada"},
	}
	if diff := cmp.Diff(want, s.State().Snapshot()); diff != "" {
		t.Fatalf("state after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsResetReevaluatesState(t *testing.T) {
	c := newTestContainer(t)
	s := mustUse(t, Must(Define("counter", counterOptions())), c)
	s.Patch(map[string]any{"count": 9, "name": "changed"})

	if err := s.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"count": 0, "name": "counter"}, s.State().Snapshot()); diff != "" {
		t.Fatalf("state after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestSetupHydratesFromRootState(t *testing.T) {
	def, _ := defineTodos(t)
	c := newTestContainer(t)
	c.State().Set("todos", map[string]any{
		"items":  []any{"bread"},
		"filter": "done",
		"meta":   map[string]any{"owner": "grace"},
	})

	s := mustUse(t, def, c)
	if got := s.Value("filter"); got != "done" {
		t.Fatalf("expected hydrated filter, got %v", got)
	}
	owner, _ := s.State().Lookup("meta", "owner")
	if owner != "grace" {
		t.Fatalf("expected hydrated meta, got %v", owner)
	}
}

func TestSetupComputedStopsWithStore(t *testing.T) {
	var stopped bool
	var computed *reactive.Computed[int]
	def := Must(DefineSetup("gauge", func(sc *SetupContext) map[string]any {
		level := reactive.NewRef(1)
		computed = Computed(sc, func() int { return level.Get() * 10 }, level)
		sc.OnDispose(func() { stopped = true })
		return map[string]any{"level": level, "scaled": computed}
	}))
	c := newTestContainer(t)
	s := mustUse(t, def, c)

	if got := s.Value("scaled"); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}
	s.Dispose()
	if !stopped || !computed.Stopped() {
		t.Fatalf("expected dispose hooks and computed values to stop")
	}
}
