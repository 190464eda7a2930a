package layer

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

var (
	// ErrInvalidNode is returned by [New] when an edge endpoint is an empty
	// token.
	ErrInvalidNode = errors.New("node token must not be empty")

	// ErrInvalidWeight is returned by [New] when an edge weight is negative,
	// NaN or infinite. Zero weights are not an error; such edges are dropped.
	ErrInvalidWeight = errors.New("edge weight must be finite and non-negative")
)

// Edge is one weighted connection read from layer input.
type Edge struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Neighbor is an entry of a node's adjacency list.
type Neighbor struct {
	ID     string
	Weight float64
}

// Layer is one immutable weighted graph of a multilayer network.
//
// Adjacency lists are sorted lexicographically by neighbor token; the
// position of a neighbor in that list is the outcome index used by the
// alias tables built on top of the layer. An undirected layer stores each
// edge in both adjacency lists.
type Layer struct {
	Name     string
	Directed bool

	nodes   []string
	adj     map[string][]Neighbor
	members map[string]mapset.Set[string]
	edges   int
}

// New builds a layer from an edge list.
//
// Duplicate edges keep the last weight seen. Zero-weight edges are dropped,
// but their endpoints still become nodes of the layer.
func New(name string, directed bool, edges []Edge) (*Layer, error) {
	weights := make(map[string]map[string]float64)
	nodes := mapset.NewThreadUnsafeSet[string]()

	set := func(u, v string, w float64) {
		row, ok := weights[u]
		if !ok {
			row = make(map[string]float64)
			weights[u] = row
		}
		row[v] = w
	}

	for _, e := range edges {
		if e.Source == "" || e.Target == "" {
			return nil, fmt.Errorf("%w: %q -> %q", ErrInvalidNode, e.Source, e.Target)
		}
		if e.Weight < 0 || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
			return nil, fmt.Errorf("%w: %s -> %s: %v", ErrInvalidWeight, e.Source, e.Target, e.Weight)
		}
		nodes.Add(e.Source)
		nodes.Add(e.Target)
		if e.Weight == 0 {
			continue
		}
		set(e.Source, e.Target, e.Weight)
		if !directed {
			set(e.Target, e.Source, e.Weight)
		}
	}

	l := &Layer{
		Name:     name,
		Directed: directed,
		nodes:    nodes.ToSlice(),
		adj:      make(map[string][]Neighbor, len(weights)),
		members:  make(map[string]mapset.Set[string], len(weights)),
	}
	sort.Strings(l.nodes)

	for u, row := range weights {
		nbrs := make([]Neighbor, 0, len(row))
		member := mapset.NewThreadUnsafeSetWithSize[string](len(row))
		for v, w := range row {
			nbrs = append(nbrs, Neighbor{ID: v, Weight: w})
			member.Add(v)
		}
		slices.SortFunc(nbrs, func(a, b Neighbor) int { return strings.Compare(a.ID, b.ID) })
		l.adj[u] = nbrs
		l.members[u] = member
		l.edges += len(nbrs)
	}

	if !directed {
		// Each undirected edge was counted from both ends, self-loops once.
		loops := 0
		for u, member := range l.members {
			if member.Contains(u) {
				loops++
			}
		}
		l.edges = (l.edges-loops)/2 + loops
	}

	return l, nil
}

// Nodes returns every token that appears in the layer, sorted.
// The returned slice must not be modified.
func (l *Layer) Nodes() []string { return l.nodes }

// NodeCount returns the number of nodes in the layer.
func (l *Layer) NodeCount() int { return len(l.nodes) }

// EdgeCount returns the number of edges. Undirected edges count once.
func (l *Layer) EdgeCount() int { return l.edges }

// Contains reports whether node appears in the layer.
func (l *Layer) Contains(node string) bool {
	_, ok := slices.BinarySearch(l.nodes, node)
	return ok
}

// Neighbors returns the sorted adjacency list of node, or nil if node has no
// outgoing edges in this layer. The returned slice must not be modified.
func (l *Layer) Neighbors(node string) []Neighbor { return l.adj[node] }

// Degree returns the number of outgoing neighbors of node.
func (l *Layer) Degree(node string) int { return len(l.adj[node]) }

// HasEdge reports whether the layer holds an edge from u to v.
func (l *Layer) HasEdge(u, v string) bool {
	member, ok := l.members[u]
	return ok && member.Contains(v)
}

// Weight returns the weight of the edge from u to v.
func (l *Layer) Weight(u, v string) (float64, bool) {
	nbrs := l.adj[u]
	i, ok := slices.BinarySearchFunc(nbrs, v, func(n Neighbor, id string) int {
		return strings.Compare(n.ID, id)
	})
	if !ok {
		return 0, false
	}
	return nbrs[i].Weight, true
}

// Edges returns the realized edges in deterministic order: sources sorted,
// then targets sorted. An undirected edge is reported once, from its
// lexicographically smaller endpoint.
func (l *Layer) Edges() []Edge {
	out := make([]Edge, 0, l.edges)
	for _, u := range l.nodes {
		for _, n := range l.adj[u] {
			if !l.Directed && n.ID < u {
				continue
			}
			out = append(out, Edge{Source: u, Target: n.ID, Weight: n.Weight})
		}
	}
	return out
}

// Stats summarizes the structure of a layer.
type Stats struct {
	Nodes   int     `json:"nodes"`
	Edges   int     `json:"edges"`
	Sinks   int     `json:"sinks"` // nodes without outgoing edges
	Density float64 `json:"density"`
}

// Stats computes summary statistics for the layer.
func (l *Layer) Stats() Stats {
	s := Stats{Nodes: len(l.nodes), Edges: l.edges}
	for _, u := range l.nodes {
		if len(l.adj[u]) == 0 {
			s.Sinks++
		}
	}
	if n := float64(s.Nodes); n > 1 {
		pairs := n * (n - 1)
		if !l.Directed {
			pairs /= 2
		}
		s.Density = float64(s.Edges) / pairs
	}
	return s
}
