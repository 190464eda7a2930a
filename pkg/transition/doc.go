// Package transition precomputes the per-layer transition distributions used
// by multilayer random walks.
//
// For each layer, [Build] creates one unbiased alias table per node and one
// biased alias table per directed edge. The bias follows node2vec: after a
// step prev -> cur, a candidate next node m with edge weight w is weighted
//
//	w / p   if m == prev            (return)
//	w       if m is adjacent to prev (stay close)
//	w / q   otherwise               (explore)
//
// [Preprocess] runs [Build] for every layer of a network on a bounded
// worker pool and collects the results in a [Store] indexed by layer id.
// With Workers set to 1 layers are built one after another; any worker
// count yields identical tables.
package transition
