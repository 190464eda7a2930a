package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/mltn2v/pkg/layer"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// topNodes is the number of hubs shown for the selected layer.
const topNodes = 8

// =============================================================================
// LayerListModel - Interactive layer browser
// =============================================================================

// LayerListModel is the bubbletea model for browsing the layers of a network.
type LayerListModel struct {
	Layers []*layer.Layer
	Cursor int
	Height int
	Offset int

	// Expanded shows hub details for the layer under the cursor.
	Expanded bool
}

// NewLayerListModel creates a browser over the layers of net.
func NewLayerListModel(net *layer.Network) LayerListModel {
	return LayerListModel{Layers: net.Layers(), Height: 15}
}

func (m LayerListModel) Init() tea.Cmd {
	return nil
}

func (m LayerListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Layers)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			m.Expanded = !m.Expanded
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-topNodes-8, 5)
	}
	return m, nil
}

func (m LayerListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleNumber.Render("Layers"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Layers))
	for i := m.Offset; i < end; i++ {
		l := m.Layers[i]
		s := l.Stats()

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		line := fmt.Sprintf("%s%-24s %6d nodes %7d edges", cursor, l.Name, s.Nodes, s.Edges)

		switch {
		case i == m.Cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case s.Edges == 0:
			b.WriteString(listDimStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.Expanded && m.Cursor < len(m.Layers) {
		b.WriteString("\n")
		b.WriteString(layerDetails(m.Layers[m.Cursor]))
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Layers))))
	return b.String()
}

// layerDetails renders the structure summary and hubs of l.
func layerDetails(l *layer.Layer) string {
	var b strings.Builder
	s := l.Stats()
	fmt.Fprintf(&b, "  %s  density %.4f, %d sinks\n", StyleHighlight.Render(l.Name), s.Density, s.Sinks)
	for _, h := range hubs(l, topNodes) {
		fmt.Fprintf(&b, "    %s %s\n", styleValue.Render(fmt.Sprintf("%-20s", h)), listDimStyle.Render(fmt.Sprintf("degree %d", l.Degree(h))))
	}
	return b.String()
}

// hubs returns up to n nodes of l ordered by decreasing degree, ties by token.
func hubs(l *layer.Layer, n int) []string {
	nodes := slices.Clone(l.Nodes())
	slices.SortStableFunc(nodes, func(a, b string) int {
		return cmp.Compare(l.Degree(b), l.Degree(a))
	})
	if len(nodes) > n {
		nodes = nodes[:n]
	}
	return nodes
}
