// Package io reads multilayer networks from disk and writes walk corpora.
//
// # Overview
//
// A network is a directory holding one file per layer. Files are loaded in
// lexicographic order of their names, and that order fixes the layer indices
// used everywhere else. Hidden files and subdirectories are skipped.
//
// # Layer Formats
//
// Three formats are recognized:
//
//   - matrix: a square CSV adjacency matrix. The first row holds column
//     labels, the first column holds row labels. Entry (i, j) is the weight
//     of the edge from row label i to column label j.
//   - edgelist: CSV rows of source,target[,weight]. An optional header row
//     starting with "source" is skipped. Missing weights default to 1.
//   - json: an object with "name", "directed" and an "edges" array of
//     {"source", "target", "weight"} objects, as written by [WriteJSON].
//
// Matrix entries that are empty, NaN or zero produce no edge. With a
// threshold set, entries at or below it are dropped too, and with binary
// weights every kept entry becomes 1:
//
//	edges, err := io.ReadMatrix(f, io.MatrixOptions{Threshold: &t, Binary: true})
//
// # Loading a Directory
//
// [LoadDir] reads every layer file of a directory into a [layer.Network]:
//
//	net, failures, err := io.LoadDir(ctx, "data/control", io.LoadOptions{})
//
// A file that cannot be read or parsed does not abort the load. It is
// reported in failures and left out of the network. LoadDir only returns an
// error when no layer could be loaded at all.
//
// # Corpora
//
// [WriteCorpus] writes one walk per line, tokens separated by single spaces,
// the input format of word2vec trainers. [WDir] names the per-w output
// directory of a run ("w0.5" for w = 0.5).
//
// [layer.Network]: github.com/matzehuels/mltn2v/pkg/layer.Network
package io
