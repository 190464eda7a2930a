package walk

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/transition"
)

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

func mustLayer(t *testing.T, name string, directed bool, edges ...layer.Edge) *layer.Layer {
	t.Helper()
	l, err := layer.New(name, directed, edges)
	if err != nil {
		t.Fatalf("layer.New() error: %v", err)
	}
	return l
}

func e(src, dst string) layer.Edge {
	return layer.Edge{Source: src, Target: dst, Weight: 1}
}

func preprocess(t *testing.T, p, q float64, layers ...*layer.Layer) *transition.Store {
	t.Helper()
	store, err := transition.Preprocess(context.Background(), layer.NewNetwork(layers...), transition.Options{P: p, Q: q, Workers: 1})
	if err != nil {
		t.Fatalf("Preprocess() error: %v", err)
	}
	return store
}

func triangleStore(t *testing.T) *transition.Store {
	t.Helper()
	tri := func(name string) *layer.Layer {
		return mustLayer(t, name, false, e("a", "b"), e("b", "c"), e("c", "a"))
	}
	return preprocess(t, 1, 1, tri("L0"), tri("L1"))
}

// fakeModels exposes a slot list with possibly empty entries.
type fakeModels []*transition.Model

func (f fakeModels) Len() int                       { return len(f) }
func (f fakeModels) Model(id int) *transition.Model { return f[id] }

func TestNewValidation(t *testing.T) {
	single := preprocess(t, 1, 1, mustLayer(t, "only", false, e("a", "b")))
	double := triangleStore(t)

	tests := []struct {
		name    string
		models  Models
		cfg     Config
		wantErr error
	}{
		{"valid", double, Config{W: 0.5, Length: 5}, nil},
		{"single layer no switching", single, Config{W: 0, Length: 5}, nil},
		{"single layer with switching", single, Config{W: 0.1, Length: 5}, ErrSingleLayerSwitch},
		{"zero length", double, Config{W: 0.5, Length: 0}, ErrInvalidLength},
		{"negative w", double, Config{W: -0.1, Length: 5}, ErrInvalidSwitchProbability},
		{"w above one", double, Config{W: 1.5, Length: 5}, ErrInvalidSwitchProbability},
		{"nan w", double, Config{W: math.NaN(), Length: 5}, ErrInvalidSwitchProbability},
		{"no layers", fakeModels{}, Config{W: 0, Length: 5}, ErrNoLayers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(tt.models, tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && w.Config().MaxForcedSwitches != DefaultMaxForcedSwitches {
				t.Errorf("MaxForcedSwitches = %d, want default %d", w.Config().MaxForcedSwitches, DefaultMaxForcedSwitches)
			}
		})
	}
}

func TestWalkShape(t *testing.T) {
	store := triangleStore(t)
	w, err := New(store, Config{W: 0.3, Length: 12})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	rng := newRNG(3)
	for _, start := range []string{"a", "b", "c"} {
		for layerID := range store.Len() {
			walk, trace, err := w.Trace(rng, start, layerID)
			if err != nil {
				t.Fatalf("Trace(%s, %d) error: %v", start, layerID, err)
			}
			if len(walk) != 12 || len(trace) != 12 {
				t.Fatalf("len(walk) = %d, len(trace) = %d, want 12", len(walk), len(trace))
			}
			if walk[0] != start || trace[0] != layerID {
				t.Errorf("walk starts at (%s, %d), want (%s, %d)", walk[0], trace[0], start, layerID)
			}
			for i := 1; i < len(walk); i++ {
				l := store.Model(trace[i]).Layer()
				if !l.HasEdge(walk[i-1], walk[i]) {
					t.Errorf("step %d: %s -> %s is not an edge of layer %d", i, walk[i-1], walk[i], trace[i])
				}
			}
		}
	}
}

func TestWalkLengthOne(t *testing.T) {
	w, err := New(triangleStore(t), Config{W: 0.5, Length: 1})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	walk, err := w.Walk(newRNG(1), "a", 0)
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	if !slices.Equal(walk, Walk{"a"}) {
		t.Errorf("Walk() = %v, want [a]", walk)
	}
}

func TestWalkUnknownLayer(t *testing.T) {
	w, _ := New(triangleStore(t), Config{W: 0.5, Length: 3})
	if _, err := w.Walk(newRNG(1), "a", 2); !errors.Is(err, ErrUnknownLayer) {
		t.Errorf("Walk() error = %v, want ErrUnknownLayer", err)
	}
}

func TestOtherLayerExcludesCurrent(t *testing.T) {
	models := make(fakeModels, 5)
	w := &Walker{models: models, layers: len(models)}
	rng := newRNG(11)

	for cur := range 5 {
		seen := make(map[int]int)
		for range 10_000 {
			next := w.otherLayer(rng, cur)
			if next == cur {
				t.Fatalf("otherLayer(%d) returned the current layer", cur)
			}
			if next < 0 || next >= 5 {
				t.Fatalf("otherLayer(%d) = %d, out of range", cur, next)
			}
			seen[next]++
		}
		for id, n := range seen {
			if frac := float64(n) / 10_000; math.Abs(frac-0.25) > 0.02 {
				t.Errorf("otherLayer(%d): layer %d frequency %.3f, want 0.25", cur, id, frac)
			}
		}
	}
}

func TestTwoTriangleSwitchFraction(t *testing.T) {
	w, err := New(triangleStore(t), Config{W: 0.5, Length: 5})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	rng := newRNG(2024)
	switches, steps := 0, 0
	for i := range 10_000 {
		start := []string{"a", "b", "c"}[i%3]
		walk, trace, err := w.Trace(rng, start, i%2)
		if err != nil {
			t.Fatalf("Trace() error: %v", err)
		}
		if len(walk) != 5 {
			t.Fatalf("len(walk) = %d, want 5", len(walk))
		}
		for j := 1; j < len(trace); j++ {
			steps++
			if trace[j] != trace[j-1] {
				switches++
			}
		}
	}

	if frac := float64(switches) / float64(steps); math.Abs(frac-0.5) > 0.02 {
		t.Errorf("switch fraction = %.4f, want 0.5 ± 0.02", frac)
	}
}

func TestEdgeTableBias(t *testing.T) {
	line := func() *layer.Layer { return mustLayer(t, "line", false, e("a", "b"), e("b", "c")) }

	tests := []struct {
		name       string
		p          float64
		wantReturn float64 // fraction of walks a -> b -> a
	}{
		{"return discouraged", 1e9, 0},
		{"return encouraged", 1e-9, 1},
		{"unbiased", 1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(preprocess(t, tt.p, 1, line()), Config{W: 0, Length: 3})
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			rng := newRNG(5)
			returns := 0
			const n = 20_000
			for range n {
				walk, err := w.Walk(rng, "a", 0)
				if err != nil {
					t.Fatalf("Walk() error: %v", err)
				}
				if walk[2] == "a" {
					returns++
				}
			}
			if frac := float64(returns) / n; math.Abs(frac-tt.wantReturn) > 0.02 {
				t.Errorf("return fraction = %.4f, want %.2f", frac, tt.wantReturn)
			}
		})
	}
}

func TestLayerChangeUsesNodeTable(t *testing.T) {
	// With w = 1 every step changes layer, so the strong return penalty of
	// the edge tables never applies.
	line := func(name string) *layer.Layer { return mustLayer(t, name, false, e("a", "b"), e("b", "c")) }
	w, err := New(preprocess(t, 1e9, 1, line("L0"), line("L1")), Config{W: 1, Length: 3})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	rng := newRNG(8)
	returns := 0
	const n = 20_000
	for range n {
		walk, err := w.Walk(rng, "a", 0)
		if err != nil {
			t.Fatalf("Walk() error: %v", err)
		}
		if walk[2] == "a" {
			returns++
		}
	}
	if frac := float64(returns) / n; math.Abs(frac-0.5) > 0.02 {
		t.Errorf("return fraction = %.4f, want 0.5", frac)
	}
}

func TestForcedSwitch(t *testing.T) {
	// x has neighbors only in L1; starting in L0 with w = 0 forces a switch.
	l0 := mustLayer(t, "L0", false, e("a", "b"))
	l1 := mustLayer(t, "L1", false, e("x", "y"))
	w, err := New(preprocess(t, 1, 1, l0, l1), Config{W: 0, Length: 4})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	walk, trace, err := w.Trace(newRNG(1), "x", 0)
	if err != nil {
		t.Fatalf("Trace() error: %v", err)
	}
	if !slices.Equal(walk, Walk{"x", "y", "x", "y"}) {
		t.Errorf("walk = %v, want [x y x y]", walk)
	}
	if !slices.Equal(trace, []int{0, 1, 1, 1}) {
		t.Errorf("trace = %v, want [0 1 1 1]", trace)
	}
}

func TestDeadEnd(t *testing.T) {
	// z is a sink in the directed L0 and absent from L1.
	l0 := mustLayer(t, "L0", true, e("a", "z"))
	l1 := mustLayer(t, "L1", false, e("b", "c"))
	store := preprocess(t, 1, 1, l0, l1)

	w, err := New(store, Config{W: 0.5, Length: 5, MaxForcedSwitches: 7})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = w.Walk(newRNG(1), "a", 0)
	var dead *DeadEndError
	if !errors.As(err, &dead) {
		t.Fatalf("Walk() error = %v, want *DeadEndError", err)
	}
	if dead.Node != "z" {
		t.Errorf("Node = %q, want z", dead.Node)
	}
	if dead.Switches != 7 {
		t.Errorf("Switches = %d, want 7", dead.Switches)
	}
}

func TestDeadEndSingleLayer(t *testing.T) {
	store := preprocess(t, 1, 1, mustLayer(t, "L0", true, e("a", "z")))
	w, err := New(store, Config{W: 0, Length: 3})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	_, err = w.Walk(newRNG(1), "a", 0)
	var dead *DeadEndError
	if !errors.As(err, &dead) {
		t.Fatalf("Walk() error = %v, want *DeadEndError", err)
	}
	if dead.Switches != 0 || dead.Step != 2 {
		t.Errorf("dead end = %+v, want 0 switches at step 2", dead)
	}
}

func TestFailedLayerBehavesAsEmpty(t *testing.T) {
	healthy := preprocess(t, 1, 1, mustLayer(t, "L0", false, e("a", "b")))
	models := fakeModels{healthy.Model(0), nil}

	w, err := New(models, Config{W: 0.5, Length: 20})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	walk, trace, err := w.Trace(newRNG(9), "a", 1)
	if err != nil {
		t.Fatalf("Trace() error: %v", err)
	}
	for i := 1; i < len(trace); i++ {
		if trace[i] != 0 {
			t.Fatalf("step %d drawn in failed layer %d", i, trace[i])
		}
	}
	if len(walk) != 20 {
		t.Errorf("len(walk) = %d, want 20", len(walk))
	}
}

func TestWalkDeterministic(t *testing.T) {
	w, _ := New(triangleStore(t), Config{W: 0.5, Length: 30})
	a, _ := w.Walk(newRNG(77), "a", 0)
	b, _ := w.Walk(newRNG(77), "a", 0)
	if !slices.Equal(a, b) {
		t.Errorf("same seed produced different walks:\n%v\n%v", a, b)
	}
}

func BenchmarkWalk(b *testing.B) {
	tri := func(name string) *layer.Layer {
		l, _ := layer.New(name, false, []layer.Edge{e("a", "b"), e("b", "c"), e("c", "a")})
		return l
	}
	store, _ := transition.Preprocess(context.Background(), layer.NewNetwork(tri("L0"), tri("L1")), transition.Options{P: 1, Q: 1, Workers: 1})
	w, _ := New(store, Config{W: 0.5, Length: 80})
	rng := newRNG(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = w.Walk(rng, "a", 0)
	}
}
