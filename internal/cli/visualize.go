package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mltn2v/pkg/errors"
	mltnio "github.com/matzehuels/mltn2v/pkg/io"
	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/render/nodelink"
)

// validFormats is the set of supported drawing formats.
var validFormats = map[string]bool{"dot": true, "svg": true, "pdf": true, "png": true, "json": true}

// visualizeCommand creates the visualize command for drawing one layer.
func (c *CLI) visualizeCommand() *cobra.Command {
	var (
		flags     runFlags
		layerRef  string
		format    string
		output    string
		weights   bool
		highlight []string
		maxNodes  int
	)

	cmd := &cobra.Command{
		Use:   "visualize [input-dir]",
		Short: "Draw one layer as a node-link diagram",
		Long: `Draw one layer of a multilayer network with Graphviz.

The layer is chosen by name (the file name without extension) or by its
position in the network. Pass the tokens of a walk with --highlight to see
which part of the layer a neighborhood covers. The json format skips drawing
and writes the layer in the JSON layer format instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validFormats[format] {
				return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', 'pdf', 'png' or 'json')", format)
			}
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			net, _, err := c.loadNetwork(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			l, err := findLayer(net, layerRef)
			if err != nil {
				return err
			}

			if output == "" {
				output = l.Name + "." + format
			}
			if format == "json" {
				if err := mltnio.ExportJSON(l, output); err != nil {
					return err
				}
				printSuccess("Exported layer %s", StyleHighlight.Render(l.Name))
				printFile(output)
				return nil
			}

			c.Logger.Infof("Drawing layer %s (%d nodes, %d edges)", l.Name, l.NodeCount(), l.EdgeCount())
			data, err := nodelink.Render(cmd.Context(), l, format, nodelink.Options{
				ShowWeights: weights,
				Highlight:   highlight,
				MaxNodes:    maxNodes,
			})
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Drew layer %s", StyleHighlight.Render(l.Name))
			printFile(output)
			return nil
		},
	}

	flags.bindInput(cmd.Flags())
	cmd.Flags().StringVarP(&layerRef, "layer", "l", "0", "layer name or index")
	cmd.Flags().StringVarP(&format, "out-format", "f", "svg", "output format: dot, svg, pdf, png, json (layer export)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <layer>.<format>)")
	cmd.Flags().BoolVar(&weights, "weights", false, "label edges with their weights")
	cmd.Flags().StringSliceVar(&highlight, "highlight", nil, "nodes to fill (comma-separated)")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", nodelink.DefaultMaxNodes, "refuse layers with more nodes (-1 for no limit)")
	return cmd
}

// findLayer resolves ref as a layer name first, then as an index.
func findLayer(net *layer.Network, ref string) (*layer.Layer, error) {
	for _, l := range net.Layers() {
		if l.Name == ref {
			return l, nil
		}
	}
	if id, err := strconv.Atoi(ref); err == nil {
		if l := net.Layer(id); l != nil {
			return l, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotFound, "no layer %q among %d layers", ref, net.Len())
}
