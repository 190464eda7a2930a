package io

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/walk"
)

type document struct {
	Name     string       `json:"name"`
	Directed bool         `json:"directed"`
	Edges    []layer.Edge `json:"edges"`
}

// WriteJSON encodes a layer as JSON and writes it to w. Undirected edges are
// written once. The output can be re-imported with [ReadJSON].
func WriteJSON(l *layer.Layer, w io.Writer) error {
	out := document{Name: l.Name, Directed: l.Directed, Edges: l.Edges()}
	if out.Edges == nil {
		out.Edges = []layer.Edge{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a layer to a JSON file at path.
func ExportJSON(l *layer.Layer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(l, f)
}

// WriteCorpus writes one walk per line with tokens separated by spaces.
func WriteCorpus(walks []walk.Walk, w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, wk := range walks {
		if _, err := bw.WriteString(strings.Join(wk, " ")); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportCorpus writes walks to a corpus file at path.
func ExportCorpus(walks []walk.Walk, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCorpus(walks, f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
