package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/mltn2v/pkg/errors"
	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/render"
)

// DefaultMaxNodes bounds the layers [ToDOT] accepts when Options.MaxNodes is 0.
const DefaultMaxNodes = 2000

// Options configures node-link diagram rendering.
type Options struct {
	// ShowWeights labels every edge with its weight.
	ShowWeights bool

	// Highlight lists nodes drawn filled, typically one walk.
	Highlight []string

	// MaxNodes rejects larger layers. Zero uses DefaultMaxNodes, negative
	// disables the check.
	MaxNodes int
}

// ToDOT converts a layer to Graphviz DOT format.
func ToDOT(l *layer.Layer, opts Options) (string, error) {
	limit := opts.MaxNodes
	if limit == 0 {
		limit = DefaultMaxNodes
	}
	if limit > 0 && l.NodeCount() > limit {
		return "", errors.New(errors.ErrCodeUnsupported, "layer %s has %d nodes, above the drawing limit of %d", l.Name, l.NodeCount(), limit)
	}

	kind, arrow := "graph", "--"
	if l.Directed {
		kind, arrow = "digraph", "->"
	}
	marked := make(map[string]bool, len(opts.Highlight))
	for _, n := range opts.Highlight {
		marked[n] = true
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %q {\n", kind, l.Name)
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, n := range l.Nodes() {
		attrs := []string{fmt.Sprintf("label=%q", n)}
		if marked[n] {
			attrs = append(attrs, "fillcolor=\"#f4a261\"", "penwidth=2")
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range l.Edges() {
		if opts.ShowWeights {
			fmt.Fprintf(&buf, "  %q %s %q [label=%q];\n", e.Source, arrow, e.Target, strconv.FormatFloat(e.Weight, 'g', 4, 64))
			continue
		}
		fmt.Fprintf(&buf, "  %q %s %q;\n", e.Source, arrow, e.Target)
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based size attributes so the
// SVG scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// Render draws a layer in the given format: "dot", "svg", "pdf" or "png".
func Render(ctx context.Context, l *layer.Layer, format string, opts Options) ([]byte, error) {
	dot, err := ToDOT(l, opts)
	if err != nil {
		return nil, err
	}
	if format == "dot" {
		return []byte(dot), nil
	}

	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	switch format {
	case "svg":
		return svg, nil
	case "pdf":
		return render.ToPDF(ctx, svg)
	case "png":
		return render.ToPNG(ctx, svg, 2.0)
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported render format %q (want dot, svg, pdf or png)", format)
	}
}
