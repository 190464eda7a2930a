package io

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mltn2v/pkg/errors"
	"github.com/matzehuels/mltn2v/pkg/layer"
)

// Format identifies a layer file format.
type Format string

const (
	// FormatAuto picks the format from each file's extension: ".json" is
	// JSON, ".edges" and ".edgelist" are edge lists, everything else is a
	// matrix.
	FormatAuto     Format = ""
	FormatMatrix   Format = "matrix"
	FormatEdgeList Format = "edgelist"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name. The empty string and "auto" select
// [FormatAuto].
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatAuto, FormatMatrix, FormatEdgeList, FormatJSON:
		return f, nil
	case "auto":
		return FormatAuto, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidConfig, "unknown layer format %q (want matrix, edgelist or json)", s)
	}
}

// FormatOf resolves the format of the file at path.
func (f Format) FormatOf(path string) Format {
	if f != FormatAuto {
		return f
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".edges", ".edgelist":
		return FormatEdgeList
	default:
		return FormatMatrix
	}
}

// LoadOptions configures [LoadDir] and [ImportLayer].
type LoadOptions struct {
	Format   Format
	Matrix   MatrixOptions
	Directed bool

	// Workers bounds how many files are parsed concurrently. Zero means 1.
	Workers int
}

// LoadFailure records a layer file that could not be loaded.
type LoadFailure struct {
	Path string
	Err  error
}

func (f LoadFailure) Error() string { return f.Path + ": " + f.Err.Error() }

func (f LoadFailure) Unwrap() error { return f.Err }

// LayerFiles lists the layer files of dir in load order.
func LayerFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "read network directory")
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read network directory")
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	slices.Sort(files)
	return files, nil
}

// LayerName derives a layer name from its file path.
func LayerName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadDir reads every layer file in dir.
//
// Files that fail to load are returned as failures and left out of the
// network, so the surviving layers keep their relative order. LoadDir fails
// with NO_LAYERS only when nothing could be loaded.
func LoadDir(ctx context.Context, dir string, opts LoadOptions) (*layer.Network, []LoadFailure, error) {
	files, err := LayerFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, errors.New(errors.ErrCodeNoLayers, "no layer files in %s", dir)
	}

	layers := make([]*layer.Layer, len(files))
	errs := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			layers[i], errs[i] = ImportLayer(path, opts.Format.FormatOf(path), opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var loaded []*layer.Layer
	var failures []LoadFailure
	for i, path := range files {
		if errs[i] != nil {
			failures = append(failures, LoadFailure{Path: path, Err: errs[i]})
			continue
		}
		loaded = append(loaded, layers[i])
	}
	if len(loaded) == 0 {
		return nil, failures, errors.New(errors.ErrCodeNoLayers, "none of the %d layer files in %s could be loaded", len(files), dir)
	}
	return layer.NewNetwork(loaded...), failures, nil
}
