package cli

import (
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/mltn2v/pkg/layer"
)

func testNetwork(t *testing.T) *layer.Network {
	t.Helper()
	star, err := layer.New("star", false, []layer.Edge{
		{Source: "hub", Target: "a", Weight: 1},
		{Source: "hub", Target: "b", Weight: 1},
		{Source: "hub", Target: "c", Weight: 1},
		{Source: "a", Target: "b", Weight: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	chain, err := layer.New("chain", true, []layer.Edge{{Source: "a", Target: "b", Weight: 1}})
	if err != nil {
		t.Fatal(err)
	}
	return layer.NewNetwork(star, chain)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLayerListModelNavigation(t *testing.T) {
	var m tea.Model = NewLayerListModel(testNetwork(t))

	steps := []struct {
		key        string
		wantCursor int
	}{
		{"up", 0},
		{"down", 1},
		{"down", 1},
		{"k", 0},
		{"j", 1},
	}
	for _, s := range steps {
		m, _ = m.Update(key(s.key))
		if got := m.(LayerListModel).Cursor; got != s.wantCursor {
			t.Fatalf("after %q: cursor = %d, want %d", s.key, got, s.wantCursor)
		}
	}

	m, _ = m.Update(key("enter"))
	if !m.(LayerListModel).Expanded {
		t.Error("enter should expand details")
	}
	if view := m.View(); !strings.Contains(view, "chain") || !strings.Contains(view, "[2/2]") {
		t.Errorf("View() missing selection:\n%s", view)
	}

	if _, cmd := m.Update(key("q")); cmd == nil {
		t.Error("q should quit")
	}
}

func TestLayerListModelWindowSize(t *testing.T) {
	m, _ := NewLayerListModel(testNetwork(t)).Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	if got := m.(LayerListModel).Height; got != 5 {
		t.Errorf("Height = %d, want minimum 5", got)
	}
}

func TestHubs(t *testing.T) {
	l := testNetwork(t).Layer(0)

	if got := hubs(l, 2); !slices.Equal(got, []string{"hub", "a"}) {
		t.Errorf("hubs(2) = %v, want [hub a]", got)
	}
	if got := hubs(l, 10); len(got) != 4 {
		t.Errorf("hubs(10) returned %d nodes, want 4", len(got))
	}
	if d := layerDetails(l); !strings.Contains(d, "hub") {
		t.Errorf("layerDetails() = %q", d)
	}
}
