package io

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/mltn2v/pkg/errors"
)

// ExpandPath expands a leading "~" and environment variables in path and
// returns it cleaned.
func ExpandPath(path string) (string, error) {
	if err := errors.ValidatePath(path); err != nil {
		return "", err
	}
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "expand %s", path)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path), nil
}

// PrepareOutputDir makes sure dir exists. created reports whether it had
// to be made.
func PrepareOutputDir(dir string) (created bool, err error) {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return false, nil
	case err == nil:
		return false, errors.New(errors.ErrCodeInvalidPath, "%s exists and is not a directory", dir)
	case !os.IsNotExist(err):
		return false, errors.Wrap(errors.ErrCodeInvalidPath, err, "stat %s", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}
	return true, nil
}

// WDir returns the output directory for layer-switch probability w.
func WDir(out string, w float64) string {
	return filepath.Join(out, "w"+strconv.FormatFloat(w, 'f', -1, 64))
}
