package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefSetNotifiesOnChange(t *testing.T) {
	r := NewRef("a")
	var got []Event
	cancel := r.Observe(func(e Event) { got = append(got, e) })

	r.Set("a")
	r.Set("b")
	cancel()
	r.Set("c")

	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Old)
	assert.Equal(t, "b", got[0].New)
	assert.Equal(t, uint64(2), r.Version())
}

func TestRefStoreConvertsNumbers(t *testing.T) {
	r := NewRef(0)

	require.NoError(t, r.Store(float64(4)))
	assert.Equal(t, 4, r.Get())

	require.NoError(t, r.Store(nil))
	assert.Equal(t, 0, r.Get())

	assert.Error(t, r.Store("four"))
}

func TestRefStoreReshapesDecodedJSON(t *testing.T) {
	r := NewRef([]string{})
	require.NoError(t, r.Store([]any{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, r.Get())

	type point struct {
		X int `json:"x"`
	}
	p := NewRef(point{})
	require.NoError(t, p.Store(map[string]any{"x": float64(3)}))
	assert.Equal(t, point{X: 3}, p.Get())

	assert.Error(t, r.Store(map[string]any{"a": 1}))
}

func TestRefUpdate(t *testing.T) {
	r := NewRef([]string{"a"})
	r.Update(func(v []string) []string { return append(v, "b") })
	assert.Equal(t, []string{"a", "b"}, r.Get())
}

func TestComputedIsLazyAndCached(t *testing.T) {
	count := NewRef(1)
	double := NewComputed(func() int { return count.Get() * 2 }, count)

	assert.Zero(t, double.Runs())
	assert.Equal(t, 2, double.Get())
	assert.Equal(t, 2, double.Get())
	assert.Equal(t, 1, double.Runs())

	count.Set(5)
	assert.Equal(t, 1, double.Runs())
	assert.Equal(t, 10, double.Get())
	assert.Equal(t, 2, double.Runs())
}

func TestComputedOverMapAndStop(t *testing.T) {
	state := NewMap(map[string]any{"n": 2})
	square := NewComputed(func() int {
		n := state.Value("n").(int)
		return n * n
	}, state)

	notified := 0
	square.Observe(func(Event) { notified++ })

	state.Set("n", 3)
	assert.Equal(t, 9, square.Get())
	assert.Equal(t, 1, notified)

	square.Stop()
	state.Set("n", 4)
	assert.Equal(t, 9, square.Get())
	assert.Equal(t, 1, notified)
	assert.True(t, square.Stopped())
}

func TestComputedChains(t *testing.T) {
	base := NewRef(1)
	plusOne := NewComputed(func() int { return base.Get() + 1 }, base)
	times := NewComputed(func() int { return plusOne.Get() * 10 }, plusOne)

	assert.Equal(t, 20, times.Get())
	base.Set(2)
	assert.Equal(t, 30, times.Get())
}
