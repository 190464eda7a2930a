// Package render draws network layers for inspection.
//
// The [nodelink] subpackage turns a layer into Graphviz DOT and renders it
// in-process to SVG. [ToPDF] and [ToPNG] convert any SVG further using the
// external rsvg-convert tool from librsvg:
//
//	dot := nodelink.ToDOT(l, nodelink.Options{ShowWeights: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := render.ToPNG(ctx, svg, 2.0)
//
// [nodelink]: github.com/matzehuels/mltn2v/pkg/render/nodelink
package render
