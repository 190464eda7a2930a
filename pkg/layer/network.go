package layer

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Network is an ordered collection of layers over a shared token space.
// A layer's index in the network is its layer id for walks.
type Network struct {
	layers []*Layer
	vocab  mapset.Set[string]
}

// NewNetwork groups layers into a network. Nil layers are kept so that
// layer ids stay positional; they behave as layers without nodes.
func NewNetwork(layers ...*Layer) *Network {
	vocab := mapset.NewThreadUnsafeSet[string]()
	for _, l := range layers {
		if l == nil {
			continue
		}
		vocab.Append(l.nodes...)
	}
	return &Network{layers: layers, vocab: vocab}
}

// Len returns the number of layers.
func (n *Network) Len() int { return len(n.layers) }

// Layer returns the layer with the given id, or nil when id is out of range.
func (n *Network) Layer(id int) *Layer {
	if id < 0 || id >= len(n.layers) {
		return nil
	}
	return n.layers[id]
}

// Layers returns the layers in id order. The slice must not be modified.
func (n *Network) Layers() []*Layer { return n.layers }

// Vocabulary returns the sorted union of node tokens across layers.
func (n *Network) Vocabulary() []string {
	out := n.vocab.ToSlice()
	sort.Strings(out)
	return out
}

// NodeCount returns the number of distinct tokens across all layers.
func (n *Network) NodeCount() int { return n.vocab.Cardinality() }

// EdgeCount returns the total number of edges across all layers.
func (n *Network) EdgeCount() int {
	total := 0
	for _, l := range n.layers {
		if l != nil {
			total += l.edges
		}
	}
	return total
}
