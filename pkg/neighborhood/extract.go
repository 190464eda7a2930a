// Package neighborhood generates the walk corpus of a multilayer network.
//
// [Extract] starts SamplesPerNode walks from every node of every layer, for
// each layer-switch probability w requested, and groups the results by w.
// Work is spread over a bounded worker pool. Every (w, layer, node) task
// draws from its own random stream derived from the run seed, so the output
// is identical for any worker count.
package neighborhood

import (
	"context"
	stderrors "errors"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mltn2v/pkg/errors"
	"github.com/matzehuels/mltn2v/pkg/transition"
	"github.com/matzehuels/mltn2v/pkg/walk"
)

// Default values for Options.
const (
	DefaultWalkLength     = 10
	DefaultSamplesPerNode = 52
	DefaultWorkers        = 4
)

// DefaultWValues are the layer-switch probabilities used when none are given.
var DefaultWValues = []float64{0.25, 0.5, 0.75}

// nodesPerTask groups start nodes to keep scheduling overhead low.
const nodesPerTask = 64

// Options configures [Extract].
type Options struct {
	WValues           []float64
	WalkLength        int
	SamplesPerNode    int
	Workers           int
	Seed              uint64
	MaxForcedSwitches int

	// MinSuccessRatio fails the run when, for any w, the fraction of walks
	// that completed is below this value. Zero disables the check.
	MinSuccessRatio float64

	Logger *log.Logger
}

// Result holds the generated walks grouped by w.
type Result struct {
	Walks    map[float64][]walk.Walk
	Failures map[float64]int // dead-end walks per w
}

// WValues returns the w values of the result in ascending order.
func (r *Result) WValues() []float64 {
	ws := make([]float64, 0, len(r.Walks))
	for w := range r.Walks {
		ws = append(ws, w)
	}
	slices.Sort(ws)
	return ws
}

// Total returns the number of walks across all w values.
func (r *Result) Total() int {
	n := 0
	for _, ws := range r.Walks {
		n += len(ws)
	}
	return n
}

// TotalFailures returns the number of dead-end walks across all w values.
func (r *Result) TotalFailures() int {
	n := 0
	for _, f := range r.Failures {
		n += f
	}
	return n
}

// CheckSuccess returns an INSUFFICIENT_WALKS error when, for any w, the
// fraction of completed walks is below minRatio. A ratio of zero or less
// disables the check.
func (r *Result) CheckSuccess(minRatio float64) error {
	if minRatio <= 0 {
		return nil
	}
	for _, w := range r.WValues() {
		ok, failed := len(r.Walks[w]), r.Failures[w]
		attempted := ok + failed
		if attempted == 0 {
			continue
		}
		if ratio := float64(ok) / float64(attempted); ratio < minRatio {
			return errors.New(errors.ErrCodeInsufficientWalks,
				"only %d of %d walks completed for w=%v (minimum ratio %.2f)", ok, attempted, w, minRatio)
		}
	}
	return nil
}

func (o *Options) setDefaults() {
	if len(o.WValues) == 0 {
		o.WValues = slices.Clone(DefaultWValues)
	}
	if o.WalkLength == 0 {
		o.WalkLength = DefaultWalkLength
	}
	if o.SamplesPerNode == 0 {
		o.SamplesPerNode = DefaultSamplesPerNode
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

func (o *Options) validate() error {
	seen := make(map[float64]bool, len(o.WValues))
	for _, w := range o.WValues {
		if err := errors.ValidateProbability("w", w); err != nil {
			return err
		}
		if seen[w] {
			return errors.New(errors.ErrCodeInvalidConfig, "duplicate w value %v", w)
		}
		seen[w] = true
	}
	if err := errors.ValidatePositiveInt("walk length", o.WalkLength); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("samples per node", o.SamplesPerNode); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("workers", o.Workers); err != nil {
		return err
	}
	return errors.ValidateProbability("min success ratio", o.MinSuccessRatio)
}

// task is one block of start nodes of one layer for one w.
type task struct {
	wIndex int
	layer  int
	first  int // index of the first node in the layer's sorted node list
	nodes  []string
}

type taskResult struct {
	walks    []walk.Walk
	failures int
}

// Extract generates walks for every w in opts.WValues.
//
// Layers that failed preprocessing contribute no start nodes but remain
// switch targets, where they behave as layers without edges. Dead-end walks
// are logged, excluded, and counted in [Result.Failures].
func Extract(ctx context.Context, models *transition.Store, opts Options) (*Result, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if models == nil || models.Healthy() == 0 {
		return nil, errors.New(errors.ErrCodeNoLayers, "no preprocessed layers to walk")
	}

	walkers := make([]*walk.Walker, len(opts.WValues))
	for i, w := range opts.WValues {
		wk, err := walk.New(models, walk.Config{
			W:                 w,
			Length:            opts.WalkLength,
			MaxForcedSwitches: opts.MaxForcedSwitches,
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "w=%v", w)
		}
		walkers[i] = wk
	}

	tasks := planTasks(models, len(opts.WValues))
	results := make([]taskResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	start := time.Now()
	for i, t := range tasks {
		g.Go(func() error {
			res, err := runTask(gctx, walkers[t.wIndex], t, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{
		Walks:    make(map[float64][]walk.Walk, len(opts.WValues)),
		Failures: make(map[float64]int, len(opts.WValues)),
	}
	for _, w := range opts.WValues {
		out.Walks[w] = nil
		out.Failures[w] = 0
	}
	for i, t := range tasks {
		w := opts.WValues[t.wIndex]
		out.Walks[w] = append(out.Walks[w], results[i].walks...)
		out.Failures[w] += results[i].failures
	}

	for _, w := range opts.WValues {
		ok, failed := len(out.Walks[w]), out.Failures[w]
		opts.Logger.Info("generated neighborhoods", "w", w, "walks", ok, "dead_ends", failed)
		if failed > 0 {
			opts.Logger.Warn("walks ended in dead ends", "w", w, "count", failed)
		}
	}
	if err := out.CheckSuccess(opts.MinSuccessRatio); err != nil {
		return out, err
	}
	opts.Logger.Debug("walk generation finished", "tasks", len(tasks), "duration", time.Since(start))

	return out, nil
}

// planTasks splits every healthy layer's nodes into blocks, for every w.
func planTasks(models *transition.Store, nw int) []task {
	var tasks []task
	for wi := range nw {
		for li := range models.Len() {
			m := models.Model(li)
			if m == nil {
				continue
			}
			nodes := m.Layer().Nodes()
			for first := 0; first < len(nodes); first += nodesPerTask {
				end := min(first+nodesPerTask, len(nodes))
				tasks = append(tasks, task{wIndex: wi, layer: li, first: first, nodes: nodes[first:end]})
			}
		}
	}
	return tasks
}

func runTask(ctx context.Context, wk *walk.Walker, t task, opts Options) (taskResult, error) {
	res := taskResult{walks: make([]walk.Walk, 0, len(t.nodes)*opts.SamplesPerNode)}
	for i, node := range t.nodes {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rng := newStream(opts.Seed, uint64(t.wIndex), uint64(t.layer), uint64(t.first+i))
		for range opts.SamplesPerNode {
			wlk, err := wk.Walk(rng, node, t.layer)
			if err != nil {
				var dead *walk.DeadEndError
				if stderrors.As(err, &dead) {
					res.failures++
					opts.Logger.Debug("walk dead end", "start", node, "layer", t.layer, "err", err)
					continue
				}
				return res, err
			}
			res.walks = append(res.walks, wlk)
		}
	}
	return res, nil
}
