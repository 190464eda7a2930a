package transition

import (
	"errors"
	"fmt"

	"github.com/matzehuels/mltn2v/pkg/alias"
	"github.com/matzehuels/mltn2v/pkg/layer"
)

// EdgeKey identifies a directed step prev -> cur inside one layer.
type EdgeKey struct {
	Prev, Cur string
}

// Model holds the alias tables of one layer.
//
// Node tables sample the first step out of a node (or the first step after a
// layer change) proportionally to edge weight. Edge tables sample the step
// after prev -> cur with the node2vec return/in-out bias. A nil table means
// no transitions are available.
type Model struct {
	layer *layer.Layer
	nodes map[string]*alias.Table
	edges map[EdgeKey]*alias.Table
}

// Build computes node and edge tables for l with return parameter p and
// in-out parameter q.
//
// For an undirected layer both orientations of every edge get their own
// table. Tables are built from each layer's sorted adjacency lists, so
// identical layers always produce identical models.
func Build(l *layer.Layer, p, q float64) (*Model, error) {
	if l == nil {
		return nil, errors.New("nil layer")
	}
	if p <= 0 || q <= 0 {
		return nil, fmt.Errorf("p and q must be positive, got p=%v q=%v", p, q)
	}

	m := &Model{
		layer: l,
		nodes: make(map[string]*alias.Table, l.NodeCount()),
		edges: make(map[EdgeKey]*alias.Table),
	}

	for _, u := range l.Nodes() {
		nbrs := l.Neighbors(u)
		weights := make([]float64, len(nbrs))
		for i, n := range nbrs {
			weights[i] = n.Weight
		}
		t, err := newTable(weights)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", u, err)
		}
		m.nodes[u] = t
	}

	for _, e := range l.Edges() {
		if err := m.addEdge(e.Source, e.Target, p, q); err != nil {
			return nil, err
		}
		if !l.Directed && e.Source != e.Target {
			if err := m.addEdge(e.Target, e.Source, p, q); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// addEdge builds the biased table for the step following src -> dst.
func (m *Model) addEdge(src, dst string, p, q float64) error {
	nbrs := m.layer.Neighbors(dst)
	weights := make([]float64, len(nbrs))
	for i, n := range nbrs {
		switch {
		case n.ID == src:
			weights[i] = n.Weight / p
		case m.layer.HasEdge(n.ID, src):
			weights[i] = n.Weight
		default:
			weights[i] = n.Weight / q
		}
	}
	t, err := newTable(weights)
	if err != nil {
		return fmt.Errorf("edge %s -> %s: %w", src, dst, err)
	}
	m.edges[EdgeKey{Prev: src, Cur: dst}] = t
	return nil
}

// newTable maps an empty distribution to a nil table.
func newTable(weights []float64) (*alias.Table, error) {
	t, err := alias.New(weights)
	if errors.Is(err, alias.ErrNoTransitions) {
		return nil, nil
	}
	return t, err
}

// Layer returns the layer the model was built from.
func (m *Model) Layer() *layer.Layer { return m.layer }

// Neighbors returns the sorted adjacency list that table outcomes index into.
func (m *Model) Neighbors(node string) []layer.Neighbor { return m.layer.Neighbors(node) }

// NodeTable returns the unbiased table of node, or nil if node has no
// outgoing edges or is absent from the layer.
func (m *Model) NodeTable(node string) *alias.Table { return m.nodes[node] }

// EdgeTable returns the biased table for the step after prev -> cur. ok is
// false when prev -> cur is not an edge of the layer.
func (m *Model) EdgeTable(prev, cur string) (t *alias.Table, ok bool) {
	t, ok = m.edges[EdgeKey{Prev: prev, Cur: cur}]
	return t, ok
}

// NodeTableCount returns the number of nodes with a table entry.
func (m *Model) NodeTableCount() int { return len(m.nodes) }

// EdgeTableCount returns the number of realized directed edge keys.
func (m *Model) EdgeTableCount() int { return len(m.edges) }

// Equal reports whether m and o hold bit-identical tables for the same keys.
func (m *Model) Equal(o *Model) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.nodes) != len(o.nodes) || len(m.edges) != len(o.edges) {
		return false
	}
	for k, t := range m.nodes {
		ot, ok := o.nodes[k]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	for k, t := range m.edges {
		ot, ok := o.edges[k]
		if !ok || !t.Equal(ot) {
			return false
		}
	}
	return true
}
