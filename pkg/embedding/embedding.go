// Package embedding holds trained node vectors and their file formats.
//
// Trainers produce the word2vec text format: a header line "<count> <dim>"
// followed by one line per token, the token and then dim space-separated
// components. [ReadText] parses that format. [Embeddings.WriteCSV] writes the
// final export: rows sorted by token, the token in the first column, no
// header row.
package embedding

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/mltn2v/pkg/errors"
)

// Embeddings maps tokens to vectors of a fixed dimension.
type Embeddings struct {
	Dim     int         `json:"dim"`
	Tokens  []string    `json:"tokens"`
	Vectors [][]float64 `json:"vectors"`
}

// Len returns the number of embedded tokens.
func (e *Embeddings) Len() int { return len(e.Tokens) }

// Vector returns the vector of token, or nil if it was not embedded.
func (e *Embeddings) Vector(token string) []float64 {
	for i, t := range e.Tokens {
		if t == token {
			return e.Vectors[i]
		}
	}
	return nil
}

// ReadText parses word2vec text output.
//
// The "</s>" sentence marker some trainers emit is skipped. Duplicate tokens
// and rows whose length disagrees with the header are INVALID_FORMAT errors.
func ReadText(r io.Reader) (*Embeddings, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read embeddings")
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "empty embeddings file")
	}
	var count, dim int
	if _, err := fmt.Sscan(sc.Text(), &count, &dim); err != nil || count < 0 || dim <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "bad embeddings header %q", sc.Text())
	}

	e := &Embeddings{Dim: dim, Tokens: make([]string, 0, count), Vectors: make([][]float64, 0, count)}
	seen := make(map[string]bool, count)
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		token := fields[0]
		if token == "</s>" {
			continue
		}
		if len(fields) != dim+1 {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: %d components, want %d", line, len(fields)-1, dim)
		}
		if seen[token] {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: duplicate token %q", line, token)
		}
		seen[token] = true

		vec := make([]float64, dim)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d", line)
			}
			vec[i] = v
		}
		e.Tokens = append(e.Tokens, token)
		e.Vectors = append(e.Vectors, vec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read embeddings")
	}
	return e, nil
}

// ImportText reads a word2vec text file at path.
func ImportText(path string) (*Embeddings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	defer f.Close()
	return ReadText(f)
}

// WriteCSV writes rows sorted by token without a header. The receiver is
// not modified.
func (e *Embeddings) WriteCSV(w io.Writer) error {
	idx := make([]int, len(e.Tokens))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int { return strings.Compare(e.Tokens[a], e.Tokens[b]) })

	cw := csv.NewWriter(w)
	row := make([]string, e.Dim+1)
	for _, i := range idx {
		row[0] = e.Tokens[i]
		for j, v := range e.Vectors[i] {
			row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the CSV export to path.
func (e *Embeddings) ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := e.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
