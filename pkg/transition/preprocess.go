package transition

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mltn2v/pkg/errors"
	"github.com/matzehuels/mltn2v/pkg/layer"
)

// Options configures [Preprocess].
type Options struct {
	P       float64 // return parameter
	Q       float64 // in-out parameter
	Workers int     // concurrent layer builds; 1 builds layers sequentially
	Logger  *log.Logger
}

// LayerFailure records a layer whose model could not be built.
type LayerFailure struct {
	Layer int
	Name  string
	Err   error
}

// Error implements the error interface.
func (f *LayerFailure) Error() string {
	return fmt.Sprintf("layer %d (%s): %v", f.Layer, f.Name, f.Err)
}

// Unwrap returns the underlying cause.
func (f *LayerFailure) Unwrap() error { return f.Err }

// Store holds one model slot per layer id.
//
// Each slot is written exactly once by the worker that owns the layer, and
// the store is read-only after [Preprocess] returns.
type Store struct {
	models   []*Model
	failures []*LayerFailure
}

// Len returns the number of layer slots, failed layers included.
func (s *Store) Len() int { return len(s.models) }

// Model returns the model of layer id, or nil if the layer failed or id is
// out of range.
func (s *Store) Model(id int) *Model {
	if id < 0 || id >= len(s.models) {
		return nil
	}
	return s.models[id]
}

// Failures returns the recorded layer failures in layer order.
func (s *Store) Failures() []*LayerFailure {
	var out []*LayerFailure
	for _, f := range s.failures {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Healthy returns the number of layers with a complete model.
func (s *Store) Healthy() int {
	n := 0
	for _, m := range s.models {
		if m != nil {
			n++
		}
	}
	return n
}

// buildModel is swapped in tests to inject worker failures.
var buildModel = Build

// Preprocess builds a [Model] for every layer of net using a bounded worker
// pool.
//
// A layer that fails to build, including by panicking, is recorded in
// [Store.Failures] and leaves its slot empty; other layers are unaffected.
// Preprocess returns an error only for invalid options, cancellation, or
// when no layer could be built.
func Preprocess(ctx context.Context, net *layer.Network, opts Options) (*Store, error) {
	if err := errors.ValidatePositive("p", opts.P); err != nil {
		return nil, err
	}
	if err := errors.ValidatePositive("q", opts.Q); err != nil {
		return nil, err
	}
	if err := errors.ValidatePositiveInt("workers", opts.Workers); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if net == nil || net.Len() == 0 {
		return nil, errors.New(errors.ErrCodeNoLayers, "network has no layers")
	}

	store := &Store{
		models:   make([]*Model, net.Len()),
		failures: make([]*LayerFailure, net.Len()),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for id, l := range net.Layers() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			m, err := safeBuild(l, opts.P, opts.Q)
			if err != nil {
				name := ""
				if l != nil {
					name = l.Name
				}
				store.failures[id] = &LayerFailure{Layer: id, Name: name, Err: err}
				logger.Warn("layer preprocessing failed", "layer", id, "name", name, "err", err)
				return nil
			}
			store.models[id] = m
			logger.Debug("built layer model",
				"layer", id,
				"name", l.Name,
				"node_tables", m.NodeTableCount(),
				"edge_tables", m.EdgeTableCount(),
				"duration", time.Since(start))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if store.Healthy() == 0 {
		return store, errors.New(errors.ErrCodeNoLayers, "all %d layers failed preprocessing", net.Len())
	}
	return store, nil
}

// safeBuild converts a panic during construction into an error.
func safeBuild(l *layer.Layer, p, q float64) (m *Model, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = errors.New(errors.ErrCodeInternal, "panic building layer model: %v\n%s", r, debug.Stack())
		}
	}()
	return buildModel(l, p, q)
}
