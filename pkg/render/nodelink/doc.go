// Package nodelink renders a single network layer as a node-link diagram.
//
// # Usage
//
// Convert a layer to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(l, nodelink.Options{ShowWeights: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Undirected layers produce a "graph" with "--" edges, directed layers a
// "digraph" with "->" edges. Nodes listed in [Options.Highlight], such as
// the tokens of one sampled neighborhood, are filled so a walk can be traced
// on the drawing. Layers above [Options.MaxNodes] are rejected because
// Graphviz layout time grows quickly with node count.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion goes through the parent render package.
package nodelink
