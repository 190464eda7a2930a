package io

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/matzehuels/mltn2v/pkg/errors"
	"github.com/matzehuels/mltn2v/pkg/layer"
)

// MatrixOptions controls how adjacency matrix entries become edges.
type MatrixOptions struct {
	// Threshold drops entries less than or equal to *Threshold. Nil keeps
	// every nonzero entry.
	Threshold *float64

	// Binary replaces every kept weight with 1.
	Binary bool
}

// ReadMatrix decodes a square CSV adjacency matrix from r.
//
// The header row lists the column labels after one leading cell, and every
// following row starts with its row label. The row and column label sets
// must be identical. Rows may appear in any order relative to the columns.
//
// ReadMatrix returns a MALFORMED_LAYER error for ragged rows, unparsable
// entries, duplicate labels or a non-square matrix. ReadMatrix does not
// close r.
func ReadMatrix(r io.Reader, opts MatrixOptions) ([]layer.Edge, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrCodeMalformedLayer, "empty matrix")
	}

	header := records[0]
	if len(header) < 2 {
		return nil, errors.New(errors.ErrCodeMalformedLayer, "matrix header has no column labels")
	}
	cols := make([]string, len(header)-1)
	colSet := make(map[string]bool, len(cols))
	for i, c := range header[1:] {
		c = strings.TrimSpace(c)
		if colSet[c] {
			return nil, errors.New(errors.ErrCodeMalformedLayer, "duplicate column label %q", c)
		}
		colSet[c] = true
		cols[i] = c
	}

	rows := records[1:]
	if len(rows) != len(cols) {
		return nil, errors.New(errors.ErrCodeMalformedLayer,
			"matrix is not square: %d rows, %d columns", len(rows), len(cols))
	}

	var edges []layer.Edge
	rowSet := make(map[string]bool, len(rows))
	for i, rec := range rows {
		line := i + 2
		if len(rec) != len(header) {
			return nil, errors.New(errors.ErrCodeMalformedLayer,
				"line %d: %d fields, want %d", line, len(rec), len(header))
		}
		src := strings.TrimSpace(rec[0])
		if !colSet[src] {
			return nil, errors.New(errors.ErrCodeMalformedLayer, "line %d: row label %q has no matching column", line, src)
		}
		if rowSet[src] {
			return nil, errors.New(errors.ErrCodeMalformedLayer, "line %d: duplicate row label %q", line, src)
		}
		rowSet[src] = true

		for j, cell := range rec[1:] {
			w, ok, err := parseEntry(cell)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedLayer, err, "line %d, column %q", line, cols[j])
			}
			if !ok || !keep(w, opts) {
				continue
			}
			if opts.Binary {
				w = 1
			}
			edges = append(edges, layer.Edge{Source: src, Target: cols[j], Weight: w})
		}
	}
	return edges, nil
}

// ReadEdgeList decodes CSV rows of source,target[,weight] from r.
// Rows with a zero weight are kept and later ignored by [layer.New].
func ReadEdgeList(r io.Reader) ([]layer.Edge, error) {
	records, err := readRecords(r)
	if err != nil {
		return nil, err
	}

	var edges []layer.Edge
	for i, rec := range records {
		line := i + 1
		if i == 0 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "source") {
			continue
		}
		if len(rec) < 2 || len(rec) > 3 {
			return nil, errors.New(errors.ErrCodeMalformedLayer, "line %d: %d fields, want 2 or 3", line, len(rec))
		}
		e := layer.Edge{
			Source: strings.TrimSpace(rec[0]),
			Target: strings.TrimSpace(rec[1]),
			Weight: 1,
		}
		if len(rec) == 3 {
			w, ok, err := parseEntry(rec[2])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedLayer, err, "line %d", line)
			}
			if ok {
				e.Weight = w
			}
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// ReadJSON decodes a layer written by [WriteJSON]. The name stored in the
// document is kept; callers loading a directory overwrite it with the file
// name.
func ReadJSON(r io.Reader) (*layer.Layer, error) {
	var data document
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layer")
	}
	return newLayer(data.Name, data.Directed, data.Edges)
}

// ImportLayer reads the layer file at path in the given format.
// The layer is named after the file, without its extension.
func ImportLayer(path string, format Format, opts LoadOptions) (*layer.Layer, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()

	name := LayerName(path)
	switch format {
	case FormatJSON:
		l, err := ReadJSON(f)
		if err != nil {
			return nil, err
		}
		l.Name = name
		return l, nil
	case FormatEdgeList:
		edges, err := ReadEdgeList(f)
		if err != nil {
			return nil, err
		}
		return newLayer(name, opts.Directed, edges)
	default:
		edges, err := ReadMatrix(f, opts.Matrix)
		if err != nil {
			return nil, err
		}
		return newLayer(name, opts.Directed, edges)
	}
}

func newLayer(name string, directed bool, edges []layer.Edge) (*layer.Layer, error) {
	for _, e := range edges {
		for _, tok := range []string{e.Source, e.Target} {
			if err := errors.ValidateToken(tok); err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedLayer, err, "layer %s", name)
			}
		}
	}
	l, err := layer.New(name, directed, edges)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedLayer, err, "layer %s", name)
	}
	return l, nil
}

func readRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedLayer, err, "parse csv")
	}
	return records, nil
}

// parseEntry parses one weight cell. ok is false for empty and NaN cells.
func parseEntry(cell string) (w float64, ok bool, err error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false, nil
	}
	w, err = strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(w) {
		return 0, false, nil
	}
	return w, true, nil
}

func keep(w float64, opts MatrixOptions) bool {
	if w == 0 {
		return false
	}
	if opts.Threshold != nil && w <= *opts.Threshold {
		return false
	}
	return true
}
