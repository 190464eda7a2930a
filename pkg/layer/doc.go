// Package layer models the graph layers of a multilayer network.
//
// A multilayer network is a sequence of weighted graphs (layers) that share
// one node-identity space: the token "roi17" in layer 0 and in layer 3 is the
// same entity. Layers are built once from edge lists and are immutable
// afterwards, so they can be read concurrently without locking.
//
// # Adjacency order
//
// Every adjacency list is sorted by neighbor token. Samplers built on top of
// a layer (see package transition) index outcomes by position in this list,
// which makes tables reproducible across runs and independent of input
// order.
//
// # Usage
//
//	l, err := layer.New("rest", false, []layer.Edge{
//	    {Source: "a", Target: "b", Weight: 1},
//	    {Source: "b", Target: "c", Weight: 2},
//	})
//	net := layer.NewNetwork(l, other)
//	for _, n := range l.Neighbors("b") {
//	    fmt.Println(n.ID, n.Weight)
//	}
package layer
