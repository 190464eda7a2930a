package io

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/mltn2v/pkg/errors"
	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/walk"
)

const matrix = `,a,b,c
a,0,0.8,0.2
b,0.8,0,
c,0.2,NaN,0
`

func TestReadMatrix(t *testing.T) {
	thresh := 0.5

	tests := []struct {
		name string
		opts MatrixOptions
		want []layer.Edge
	}{
		{
			name: "weighted",
			want: []layer.Edge{
				{Source: "a", Target: "b", Weight: 0.8},
				{Source: "a", Target: "c", Weight: 0.2},
				{Source: "b", Target: "a", Weight: 0.8},
				{Source: "c", Target: "a", Weight: 0.2},
			},
		},
		{
			name: "threshold",
			opts: MatrixOptions{Threshold: &thresh},
			want: []layer.Edge{
				{Source: "a", Target: "b", Weight: 0.8},
				{Source: "b", Target: "a", Weight: 0.8},
			},
		},
		{
			name: "binary",
			opts: MatrixOptions{Binary: true},
			want: []layer.Edge{
				{Source: "a", Target: "b", Weight: 1},
				{Source: "a", Target: "c", Weight: 1},
				{Source: "b", Target: "a", Weight: 1},
				{Source: "c", Target: "a", Weight: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadMatrix(strings.NewReader(matrix), tt.opts)
			if err != nil {
				t.Fatalf("ReadMatrix() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadMatrix() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReadMatrixMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no columns", "x\n"},
		{"not square", ",a,b\na,0,1\n"},
		{"ragged row", ",a,b\na,0,1\nb,1\n"},
		{"unknown row label", ",a,b\na,0,1\nz,1,0\n"},
		{"duplicate row", ",a,b\na,0,1\na,1,0\n"},
		{"duplicate column", ",a,a\na,0,1\na,1,0\n"},
		{"bad number", ",a,b\na,0,x\nb,1,0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadMatrix(strings.NewReader(tt.input), MatrixOptions{})
			if !errors.Is(err, errors.ErrCodeMalformedLayer) {
				t.Errorf("ReadMatrix() error = %v, want MALFORMED_LAYER", err)
			}
		})
	}
}

func TestReadEdgeList(t *testing.T) {
	input := "source,target,weight\na,b,2\nb,c\n# comment\nc,a,\n"
	got, err := ReadEdgeList(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadEdgeList() error: %v", err)
	}
	want := []layer.Edge{
		{Source: "a", Target: "b", Weight: 2},
		{Source: "b", Target: "c", Weight: 1},
		{Source: "c", Target: "a", Weight: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadEdgeList() = %v, want %v", got, want)
	}

	if _, err := ReadEdgeList(strings.NewReader("a\n")); !errors.Is(err, errors.ErrCodeMalformedLayer) {
		t.Errorf("single field error = %v, want MALFORMED_LAYER", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	l, err := layer.New("ppi", false, []layer.Edge{
		{Source: "a", Target: "b", Weight: 1},
		{Source: "b", Target: "c", Weight: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteJSON(l, &buf); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	if got.Name != "ppi" || got.Directed {
		t.Errorf("got name=%q directed=%v", got.Name, got.Directed)
	}
	if !reflect.DeepEqual(got.Edges(), l.Edges()) {
		t.Errorf("Edges() = %v, want %v", got.Edges(), l.Edges())
	}
}

func TestReadJSONRejectsBadTokens(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"space", `{"name":"x","edges":[{"source":"gene a","target":"b","weight":1}]}`},
		{"tab", `{"name":"x","edges":[{"source":"a","target":"b\tc","weight":1}]}`},
		{"empty", `{"name":"x","edges":[{"source":"","target":"b","weight":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadJSON(strings.NewReader(tt.input)); !errors.Is(err, errors.ErrCodeMalformedLayer) {
				t.Errorf("ReadJSON() error = %v, want MALFORMED_LAYER", err)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_coexpr.csv", ",x,y\nx,0,1\ny,1,0\n")
	writeFile(t, dir, "a_ppi.csv", matrix)
	writeFile(t, dir, "c_reg.edges", "x,z\n")
	writeFile(t, dir, "d_broken.csv", ",a,b\na,0,1\n")
	writeFile(t, dir, ".hidden", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	net, failures, err := LoadDir(context.Background(), dir, LoadOptions{Workers: 3})
	if err != nil {
		t.Fatalf("LoadDir() error: %v", err)
	}

	var names []string
	for _, l := range net.Layers() {
		names = append(names, l.Name)
	}
	if want := []string{"a_ppi", "b_coexpr", "c_reg"}; !reflect.DeepEqual(names, want) {
		t.Errorf("layer names = %v, want %v", names, want)
	}
	if len(failures) != 1 || filepath.Base(failures[0].Path) != "d_broken.csv" {
		t.Fatalf("failures = %v, want d_broken.csv", failures)
	}
	if !errors.Is(failures[0], errors.ErrCodeMalformedLayer) {
		t.Errorf("failure = %v, want MALFORMED_LAYER", failures[0])
	}
	if got := net.Vocabulary(); !reflect.DeepEqual(got, []string{"a", "b", "c", "x", "y", "z"}) {
		t.Errorf("Vocabulary() = %v", got)
	}
}

func TestLoadDirNoLayers(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := LoadDir(context.Background(), dir, LoadOptions{}); !errors.Is(err, errors.ErrCodeNoLayers) {
		t.Errorf("empty dir error = %v, want NO_LAYERS", err)
	}

	writeFile(t, dir, "bad.csv", "garbage")
	_, failures, err := LoadDir(context.Background(), dir, LoadOptions{})
	if !errors.Is(err, errors.ErrCodeNoLayers) {
		t.Errorf("all broken error = %v, want NO_LAYERS", err)
	}
	if len(failures) != 1 {
		t.Errorf("len(failures) = %d, want 1", len(failures))
	}

	if _, _, err := LoadDir(context.Background(), filepath.Join(dir, "missing"), LoadOptions{}); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing dir error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "auto": FormatAuto, "Matrix": FormatMatrix, "edgelist": FormatEdgeList, "json": FormatJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("ParseFormat(xml) error = %v, want INVALID_CONFIG", err)
	}
}

func TestWriteCorpus(t *testing.T) {
	var buf bytes.Buffer
	walks := []walk.Walk{{"a", "b", "a"}, {"c"}}
	if err := WriteCorpus(walks, &buf); err != nil {
		t.Fatalf("WriteCorpus() error: %v", err)
	}
	if got, want := buf.String(), "a b a\nc\n"; got != want {
		t.Errorf("WriteCorpus() = %q, want %q", got, want)
	}
}

func TestWDir(t *testing.T) {
	tests := map[float64]string{0.5: "w0.5", 0.25: "w0.25", 0: "w0", 1: "w1"}
	for w, want := range tests {
		if got := WDir("out", w); got != filepath.Join("out", want) {
			t.Errorf("WDir(%v) = %q, want %q", w, got, filepath.Join("out", want))
		}
	}
}

func TestPrepareOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	created, err := PrepareOutputDir(dir)
	if err != nil || !created {
		t.Fatalf("PrepareOutputDir() = %v, %v; want true, nil", created, err)
	}
	created, err = PrepareOutputDir(dir)
	if err != nil || created {
		t.Errorf("second PrepareOutputDir() = %v, %v; want false, nil", created, err)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("MLTN2V_TEST_DIR", "/data")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := map[string]string{
		"$MLTN2V_TEST_DIR/control": "/data/control",
		"~/nets":                   filepath.Join(home, "nets"),
		"a/../b":                   "b",
	}
	for in, want := range tests {
		got, err := ExpandPath(in)
		if err != nil || got != want {
			t.Errorf("ExpandPath(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ExpandPath(""); !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Errorf("ExpandPath(\"\") error = %v, want INVALID_PATH", err)
	}
}
