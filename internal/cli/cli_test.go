package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mltnio "github.com/matzehuels/mltn2v/pkg/io"
	"github.com/matzehuels/mltn2v/pkg/layer"
)

func writeNetwork(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"ppi.edges":  "source,target,weight\na,b,1\nb,c,2\n",
		"coex.edges": "a,c\nc,d\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testCLI() (*CLI, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, LogInfo), &buf
}

func TestRootCommand(t *testing.T) {
	c, _ := testCLI()
	root := c.RootCommand()

	want := []string{"run", "walk", "inspect", "visualize", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("verbose") == nil || root.PersistentFlags().Lookup("log-format") == nil {
		t.Error("missing persistent logging flags")
	}
}

func TestRootCommandLogFormat(t *testing.T) {
	c, _ := testCLI()
	root := c.RootCommand()
	root.SetArgs([]string{"--log-format", "yaml", "cache", "path"})
	if err := root.Execute(); err == nil {
		t.Error("expected error for unknown log format")
	}
}

func TestWalkCommand(t *testing.T) {
	input := writeNetwork(t)
	out := filepath.Join(t.TempDir(), "out")

	c, logs := testCLI()
	root := c.RootCommand()
	root.SetArgs([]string{"walk", input, "-o", out, "--cache", "none", "--n-samples", "2", "--nbsize", "4", "--w", "0,0.5"})
	if err := root.Execute(); err != nil {
		t.Fatalf("walk error: %v\n%s", err, logs)
	}

	for _, dir := range []string{"w0", "w0.5"} {
		data, err := os.ReadFile(filepath.Join(out, dir, "walks.txt"))
		if err != nil {
			t.Fatalf("read corpus: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		// 2 layers with 3 nodes each, 2 samples per node.
		if len(lines) != 12 {
			t.Errorf("%s: %d walks, want 12", dir, len(lines))
		}
		for _, line := range lines {
			if n := len(strings.Fields(line)); n != 4 {
				t.Errorf("%s: walk %q has %d tokens, want 4", dir, line, n)
			}
		}
	}
	if _, err := os.Stat(filepath.Join(out, "run.json")); err != nil {
		t.Errorf("manifest missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "w0.5", "mltn2v.csv")); !os.IsNotExist(err) {
		t.Error("walk must not train embeddings")
	}
}

func TestVisualizeCommand(t *testing.T) {
	input := writeNetwork(t)
	out := filepath.Join(t.TempDir(), "ppi.dot")

	c, _ := testCLI()
	root := c.RootCommand()
	root.SetArgs([]string{"visualize", input, "--layer", "ppi", "--out-format", "dot", "--weights", "-o", out})
	if err := root.Execute(); err != nil {
		t.Fatalf("visualize error: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"b" -- "c" [label="2"];`) {
		t.Errorf("unexpected DOT:\n%s", data)
	}
}

func TestVisualizeJSONExport(t *testing.T) {
	input := writeNetwork(t)
	out := filepath.Join(t.TempDir(), "ppi.json")

	c, _ := testCLI()
	root := c.RootCommand()
	root.SetArgs([]string{"visualize", input, "--layer", "ppi", "--out-format", "json", "-o", out})
	if err := root.Execute(); err != nil {
		t.Fatalf("visualize error: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	l, err := mltnio.ReadJSON(f)
	if err != nil {
		t.Fatalf("exported layer does not re-import: %v", err)
	}
	if l.Name != "ppi" || l.EdgeCount() == 0 {
		t.Errorf("exported layer = %s with %d edges", l.Name, l.EdgeCount())
	}
}

func TestFindLayer(t *testing.T) {
	a, _ := layer.New("alpha", false, []layer.Edge{{Source: "x", Target: "y", Weight: 1}})
	b, _ := layer.New("1", false, []layer.Edge{{Source: "x", Target: "z", Weight: 1}})
	net := layer.NewNetwork(a, b)

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"alpha", "alpha", false},
		{"0", "alpha", false},
		{"1", "1", false}, // names win over indexes
		{"7", "", true},
		{"beta", "", true},
	}
	for _, tt := range tests {
		l, err := findLayer(net, tt.ref)
		if (err != nil) != tt.wantErr {
			t.Errorf("findLayer(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			continue
		}
		if err == nil && l.Name != tt.want {
			t.Errorf("findLayer(%q) = %s, want %s", tt.ref, l.Name, tt.want)
		}
	}
}
