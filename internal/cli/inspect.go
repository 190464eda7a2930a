package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mltn2v/pkg/config"
	mltnio "github.com/matzehuels/mltn2v/pkg/io"
	"github.com/matzehuels/mltn2v/pkg/layer"
)

// layerSummary is one row of the inspect output.
type layerSummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Directed bool   `json:"directed"`
	layer.Stats
}

// networkSummary is the JSON form of the inspect output.
type networkSummary struct {
	Input    string         `json:"input"`
	Nodes    int            `json:"nodes"`
	Edges    int            `json:"edges"`
	Layers   []layerSummary `json:"layers"`
	Failures []string       `json:"failures,omitempty"`
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		flags       runFlags
		jsonOut     bool
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [input-dir]",
		Short: "Summarize the layers of a multilayer network",
		Long: `Load a multilayer network and print per-layer statistics.

Use this to check threshold and format settings before a run: every layer
shows its node and edge counts, the number of sinks (nodes a walk cannot
leave within the layer) and its density. With --interactive the layers are
listed in a browser that shows the best connected nodes of each layer.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			net, failures, err := c.loadNetwork(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			summary := summarize(cfg.Run.Input, net, failures)

			switch {
			case jsonOut:
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			case interactive:
				_, err := tea.NewProgram(NewLayerListModel(net), tea.WithContext(cmd.Context())).Run()
				return err
			default:
				printSummary(summary)
				return nil
			}
		},
	}

	flags.bindInput(cmd.Flags())
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse layers interactively")
	cmd.MarkFlagsMutuallyExclusive("json", "interactive")
	return cmd
}

// loadNetwork reads the input directory with a spinner on stderr.
func (c *CLI) loadNetwork(ctx context.Context, cfg *config.Config) (*layer.Network, []mltnio.LoadFailure, error) {
	dir, err := mltnio.ExpandPath(cfg.Run.Input)
	if err != nil {
		return nil, nil, err
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Loading %s...", dir))
	spinner.Start()
	net, failures, err := mltnio.LoadDir(ctx, dir, cfg.Run.LoadOptions())
	if err != nil {
		spinner.StopWithError("Load failed")
		return nil, nil, err
	}
	spinner.Stop()

	logger := loggerFromContext(ctx)
	for _, f := range failures {
		logger.Warn("skipped layer file", "path", f.Path, "err", f.Err)
	}
	return net, failures, nil
}

func summarize(input string, net *layer.Network, failures []mltnio.LoadFailure) networkSummary {
	s := networkSummary{Input: input, Nodes: net.NodeCount(), Edges: net.EdgeCount()}
	for i, l := range net.Layers() {
		s.Layers = append(s.Layers, layerSummary{ID: i, Name: l.Name, Directed: l.Directed, Stats: l.Stats()})
	}
	for _, f := range failures {
		s.Failures = append(s.Failures, f.Error())
	}
	return s
}

func printSummary(s networkSummary) {
	printSuccess("%s: %s across %s", s.Input,
		StyleNumber.Render(strconv.Itoa(s.Nodes)+" nodes"),
		StyleNumber.Render(strconv.Itoa(len(s.Layers))+" layers"))
	printNewline()
	fmt.Println(layerTable(s.Layers).Render())
	for _, f := range s.Failures {
		printWarning("Skipped %s", f)
	}
}

func layerTable(layers []layerSummary) *table.Table {
	rows := make([][]string, 0, len(layers))
	for _, l := range layers {
		kind := "undirected"
		if l.Directed {
			kind = "directed"
		}
		rows = append(rows, []string{
			strconv.Itoa(l.ID),
			l.Name,
			kind,
			strconv.Itoa(l.Nodes),
			strconv.Itoa(l.Edges),
			strconv.Itoa(l.Sinks),
			strconv.FormatFloat(l.Density, 'f', 4, 64),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Layer", "Kind", "Nodes", "Edges", "Sinks", "Density").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 5 && rows[row][col] != "0" {
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			return lipgloss.NewStyle()
		})
}
