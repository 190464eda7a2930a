package neighborhood

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	mltnerrors "github.com/matzehuels/mltn2v/pkg/errors"
	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/transition"
	"github.com/matzehuels/mltn2v/pkg/walk"
)

func mustStore(t *testing.T, layers ...*layer.Layer) *transition.Store {
	t.Helper()
	store, err := transition.Preprocess(context.Background(), layer.NewNetwork(layers...), transition.Options{P: 1, Q: 1, Workers: 2})
	if err != nil {
		t.Fatalf("Preprocess() error: %v", err)
	}
	return store
}

func mustLayer(t *testing.T, name string, directed bool, pairs ...[2]string) *layer.Layer {
	t.Helper()
	edges := make([]layer.Edge, len(pairs))
	for i, p := range pairs {
		edges[i] = layer.Edge{Source: p[0], Target: p[1], Weight: 1}
	}
	l, err := layer.New(name, directed, edges)
	if err != nil {
		t.Fatalf("layer.New() error: %v", err)
	}
	return l
}

func twoLayers(t *testing.T) *transition.Store {
	return mustStore(t,
		mustLayer(t, "L0", false, [2]string{"a", "b"}, [2]string{"b", "c"}, [2]string{"c", "a"}),
		mustLayer(t, "L1", false, [2]string{"a", "d"}, [2]string{"d", "e"}),
	)
}

func TestExtractCounts(t *testing.T) {
	store := twoLayers(t)
	res, err := Extract(context.Background(), store, Options{
		WValues:        []float64{0, 0.5},
		WalkLength:     6,
		SamplesPerNode: 4,
		Workers:        3,
		Seed:           1,
	})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	// 3 nodes in L0 + 3 nodes in L1, 4 samples each
	for _, w := range []float64{0, 0.5} {
		if got := len(res.Walks[w]); got != 24 {
			t.Errorf("len(Walks[%v]) = %d, want 24", w, got)
		}
		if res.Failures[w] != 0 {
			t.Errorf("Failures[%v] = %d, want 0", w, res.Failures[w])
		}
		for _, wk := range res.Walks[w] {
			if len(wk) != 6 {
				t.Fatalf("walk length = %d, want 6", len(wk))
			}
		}
	}
	if res.Total() != 48 {
		t.Errorf("Total() = %d, want 48", res.Total())
	}
	if got := res.WValues(); !reflect.DeepEqual(got, []float64{0, 0.5}) {
		t.Errorf("WValues() = %v, want [0 0.5]", got)
	}
}

func TestExtractDefaults(t *testing.T) {
	res, err := Extract(context.Background(), twoLayers(t), Options{Seed: 3})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if got := res.WValues(); !reflect.DeepEqual(got, DefaultWValues) {
		t.Errorf("WValues() = %v, want %v", got, DefaultWValues)
	}
	if got := len(res.Walks[0.5]); got != 6*DefaultSamplesPerNode {
		t.Errorf("len(Walks[0.5]) = %d, want %d", got, 6*DefaultSamplesPerNode)
	}
}

func TestExtractParallelismInvariance(t *testing.T) {
	store := twoLayers(t)
	run := func(workers int) *Result {
		res, err := Extract(context.Background(), store, Options{
			WValues:        []float64{0.25, 0.75},
			WalkLength:     10,
			SamplesPerNode: 20,
			Workers:        workers,
			Seed:           42,
		})
		if err != nil {
			t.Fatalf("Extract(workers=%d) error: %v", workers, err)
		}
		return res
	}

	seq := run(1)
	for _, workers := range []int{2, 8} {
		if par := run(workers); !reflect.DeepEqual(seq.Walks, par.Walks) {
			t.Errorf("workers=%d produced different walks than workers=1", workers)
		}
	}
}

func TestExtractSeedChangesOutput(t *testing.T) {
	store := twoLayers(t)
	opts := Options{WValues: []float64{0.5}, WalkLength: 10, SamplesPerNode: 5, Workers: 2}

	opts.Seed = 1
	a, _ := Extract(context.Background(), store, opts)
	opts.Seed = 2
	b, _ := Extract(context.Background(), store, opts)

	if reflect.DeepEqual(a.Walks, b.Walks) {
		t.Error("different seeds should produce different walks")
	}
}

func TestExtractDeadEnds(t *testing.T) {
	// "z" is a sink in L0 and absent from L1: every walk reaching it dies.
	store := mustStore(t,
		mustLayer(t, "L0", true, [2]string{"a", "z"}),
		mustLayer(t, "L1", false, [2]string{"b", "c"}),
	)

	res, err := Extract(context.Background(), store, Options{
		WValues:           []float64{0.5},
		WalkLength:        4,
		SamplesPerNode:    3,
		Workers:           2,
		MaxForcedSwitches: 5,
	})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	// a and z in L0 always dead-end; b and c in L1 always complete.
	if got := res.Failures[0.5]; got != 6 {
		t.Errorf("Failures = %d, want 6", got)
	}
	if got := len(res.Walks[0.5]); got != 6 {
		t.Errorf("len(Walks) = %d, want 6", got)
	}

	_, err = Extract(context.Background(), store, Options{
		WValues:           []float64{0.5},
		WalkLength:        4,
		SamplesPerNode:    3,
		Workers:           2,
		MaxForcedSwitches: 5,
		MinSuccessRatio:   0.9,
	})
	if !mltnerrors.Is(err, mltnerrors.ErrCodeInsufficientWalks) {
		t.Errorf("Extract() error = %v, want INSUFFICIENT_WALKS", err)
	}
}

func TestResultCheckSuccess(t *testing.T) {
	res := &Result{
		Walks: map[float64][]walk.Walk{
			0.25: {{"a", "b"}, {"b", "a"}, {"a", "b"}},
			0.75: {{"a", "b"}},
			1:    nil,
		},
		Failures: map[float64]int{0.25: 1, 0.75: 1},
	}
	tests := []struct {
		ratio   float64
		wantErr bool
	}{
		{0, false},
		{-1, false},
		{0.5, false},
		{0.6, true}, // w=0.75 completed 1 of 2
		{1, true},
	}
	for _, tt := range tests {
		err := res.CheckSuccess(tt.ratio)
		if got := mltnerrors.Is(err, mltnerrors.ErrCodeInsufficientWalks); got != tt.wantErr {
			t.Errorf("CheckSuccess(%v) = %v, wantErr %v", tt.ratio, err, tt.wantErr)
		}
	}
}

func TestExtractConfigErrors(t *testing.T) {
	single := mustStore(t, mustLayer(t, "only", false, [2]string{"a", "b"}))
	double := twoLayers(t)

	tests := []struct {
		name  string
		store *transition.Store
		opts  Options
	}{
		{"single layer with switching", single, Options{WValues: []float64{0.5}}},
		{"duplicate w", double, Options{WValues: []float64{0.5, 0.5}}},
		{"w out of range", double, Options{WValues: []float64{1.2}}},
		{"negative samples", double, Options{SamplesPerNode: -1}},
		{"bad min ratio", double, Options{MinSuccessRatio: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(context.Background(), tt.store, tt.opts)
			if !mltnerrors.Is(err, mltnerrors.ErrCodeInvalidConfig) {
				t.Errorf("Extract() error = %v, want INVALID_CONFIG", err)
			}
		})
	}

	_, err := Extract(context.Background(), single, Options{WValues: []float64{0.5}})
	if !errors.Is(err, walk.ErrSingleLayerSwitch) {
		t.Errorf("single layer error = %v, want wrapped ErrSingleLayerSwitch", err)
	}

	if _, err := Extract(context.Background(), single, Options{WValues: []float64{0}, SamplesPerNode: 1}); err != nil {
		t.Errorf("single layer with w=0 should succeed, got %v", err)
	}
}

func TestExtractCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, twoLayers(t), Options{WValues: []float64{0.5}, Workers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
}

func TestResultJSON(t *testing.T) {
	in := &Result{
		Walks: map[float64][]walk.Walk{
			0.25: {{"a", "b"}, {"b", "a"}},
			0.75: {{"c", "a"}},
		},
		Failures: map[float64]int{0.25: 0, 0.75: 2},
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	var out Result
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !reflect.DeepEqual(in.Walks, out.Walks) || !reflect.DeepEqual(in.Failures, out.Failures) {
		t.Errorf("decoded result = %+v, want %+v", out, in)
	}
}
