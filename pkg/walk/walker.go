// Package walk generates fixed-length random walks over a multilayer network.
//
// A [Walker] moves through the layers of a preprocessed network (see package
// transition). At every step it may jump to another layer with probability
// w, then samples the next node from the current layer:
//
//   - from the node table on the first step, or right after a layer change;
//   - from the node2vec edge table of (previous, current) otherwise.
//
// When the current node has no outgoing neighbors in the current layer the
// walker performs a forced switch to a uniformly chosen other layer and
// retries. Forced switches per step are capped by
// [Config.MaxForcedSwitches]; exceeding the cap fails the walk with a
// [*DeadEndError].
//
// Walkers are immutable and safe for concurrent use as long as every
// goroutine passes its own random stream.
package walk

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/matzehuels/mltn2v/pkg/alias"
	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/transition"
)

// DefaultMaxForcedSwitches bounds consecutive forced layer switches per step.
const DefaultMaxForcedSwitches = 100

var (
	// ErrSingleLayerSwitch is returned by [New] when w > 0 but the network
	// has a single layer, so there is no other layer to switch to.
	ErrSingleLayerSwitch = errors.New("layer switching requires at least two layers")

	// ErrInvalidLength is returned by [New] when the walk length is below 1.
	ErrInvalidLength = errors.New("walk length must be at least 1")

	// ErrInvalidSwitchProbability is returned by [New] when w is outside [0, 1].
	ErrInvalidSwitchProbability = errors.New("layer switch probability must be in [0, 1]")

	// ErrNoLayers is returned by [New] when the model set is empty.
	ErrNoLayers = errors.New("no layers to walk")

	// ErrUnknownLayer is returned by [Walker.Walk] when the start layer id is
	// out of range.
	ErrUnknownLayer = errors.New("unknown start layer")
)

// DeadEndError reports a walk that could not be extended because every
// forced switch landed on a layer without outgoing edges for the node.
type DeadEndError struct {
	Node     string // node the walk was stuck on
	Layer    int    // layer of the last attempt
	Step     int    // walk position that could not be filled
	Switches int    // forced switches attempted
}

// Error implements the error interface.
func (e *DeadEndError) Error() string {
	return fmt.Sprintf("dead end at node %q (layer %d, step %d) after %d forced switches",
		e.Node, e.Layer, e.Step, e.Switches)
}

// Walk is a sequence of node tokens. Walk[0] is the start node.
type Walk []string

// Models is the read-only view of preprocessed layers a Walker needs.
// [*transition.Store] implements it.
type Models interface {
	Len() int
	Model(id int) *transition.Model
}

// Config configures a Walker.
type Config struct {
	// W is the probability of switching layers before each step.
	W float64
	// Length is the number of tokens per walk, start node included.
	Length int
	// MaxForcedSwitches caps forced switches per step. Zero means
	// [DefaultMaxForcedSwitches].
	MaxForcedSwitches int
}

// Walker generates walks for one switch probability.
type Walker struct {
	models Models
	layers int
	cfg    Config
}

// New validates cfg against models and returns a Walker.
func New(models Models, cfg Config) (*Walker, error) {
	if models == nil || models.Len() == 0 {
		return nil, ErrNoLayers
	}
	if cfg.Length < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, cfg.Length)
	}
	if math.IsNaN(cfg.W) || cfg.W < 0 || cfg.W > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSwitchProbability, cfg.W)
	}
	if models.Len() == 1 && cfg.W > 0 {
		return nil, ErrSingleLayerSwitch
	}
	if cfg.MaxForcedSwitches <= 0 {
		cfg.MaxForcedSwitches = DefaultMaxForcedSwitches
	}
	return &Walker{models: models, layers: models.Len(), cfg: cfg}, nil
}

// Config returns the effective configuration.
func (w *Walker) Config() Config { return w.cfg }

// Walk generates one walk from start in layer startLayer, drawing all
// randomness from rng.
func (w *Walker) Walk(rng *rand.Rand, start string, startLayer int) (Walk, error) {
	walk, _, err := w.Trace(rng, start, startLayer)
	return walk, err
}

// Trace is like Walk but also returns, for every token, the layer it was
// drawn in. The first entry is startLayer.
func (w *Walker) Trace(rng *rand.Rand, start string, startLayer int) (Walk, []int, error) {
	if startLayer < 0 || startLayer >= w.layers {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownLayer, startLayer)
	}

	walk := make(Walk, 1, w.cfg.Length)
	walk[0] = start
	trace := make([]int, 1, w.cfg.Length)
	trace[0] = startLayer
	cur := startLayer
	stepLayer := -1 // layer the previous step was drawn in

	for len(walk) < w.cfg.Length {
		node := walk[len(walk)-1]

		if w.layers > 1 && rng.Float64() < w.cfg.W {
			cur = w.otherLayer(rng, cur)
		}

		table, nbrs := w.candidates(walk, cur, stepLayer)
		for switches := 0; table == nil; {
			if w.layers == 1 || switches >= w.cfg.MaxForcedSwitches {
				return nil, nil, &DeadEndError{Node: node, Layer: cur, Step: len(walk), Switches: switches}
			}
			switches++
			cur = w.otherLayer(rng, cur)
			table, nbrs = w.candidates(walk, cur, stepLayer)
		}

		walk = append(walk, nbrs[table.Draw(rng)].ID)
		trace = append(trace, cur)
		stepLayer = cur
	}

	return walk, trace, nil
}

// candidates selects the table to sample the next step from in layer id.
// A nil table means the node has no outgoing neighbors there.
func (w *Walker) candidates(walk Walk, id, stepLayer int) (*alias.Table, []layer.Neighbor) {
	m := w.models.Model(id)
	if m == nil {
		return nil, nil
	}
	node := walk[len(walk)-1]
	nbrs := m.Neighbors(node)
	if len(nbrs) == 0 {
		return nil, nil
	}
	if len(walk) > 1 && stepLayer == id {
		if t, ok := m.EdgeTable(walk[len(walk)-2], node); ok && t != nil {
			return t, nbrs
		}
	}
	return m.NodeTable(node), nbrs
}

// otherLayer picks a layer uniformly among all layers except cur.
func (w *Walker) otherLayer(rng *rand.Rand, cur int) int {
	next := rng.IntN(w.layers - 1)
	if next >= cur {
		next++
	}
	return next
}
