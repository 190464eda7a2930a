// Package train turns walk corpora into embeddings.
//
// Training itself is delegated to an external skip-gram implementation.
// [CommandTrainer] runs the reference word2vec command line tool (or any
// binary accepting the same flags) on a corpus file and reads back its text
// output.
package train

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mltn2v/pkg/embedding"
	"github.com/matzehuels/mltn2v/pkg/errors"
)

// Default training parameters.
const (
	DefaultDimensions = 100
	DefaultWindow     = 10
	DefaultEpochs     = 1
	DefaultWorkers    = 8
	DefaultBinary     = "word2vec"
)

// Params are the skip-gram hyperparameters passed to a trainer.
type Params struct {
	Dimensions int  `json:"dimensions"`
	Window     int  `json:"window"`
	MinCount   int  `json:"min_count"`
	Workers    int  `json:"workers"`
	Epochs     int  `json:"epochs"`
	CBOW       bool `json:"cbow"`
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if err := errors.ValidatePositiveInt("dimensions", p.Dimensions); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("window", p.Window); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("train workers", p.Workers); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("epochs", p.Epochs); err != nil {
		return err
	}
	if p.MinCount < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "min count must not be negative, got %d", p.MinCount)
	}
	return nil
}

// Trainer learns embeddings from a corpus file. Implementations write the
// word2vec text model to outPath and return it parsed.
type Trainer interface {
	Train(ctx context.Context, corpusPath, outPath string, p Params) (*embedding.Embeddings, error)
}

// CommandTrainer runs an external word2vec binary.
type CommandTrainer struct {
	// Binary is the executable name or path. Empty means [DefaultBinary].
	Binary string

	// ExtraArgs are appended after the generated flags.
	ExtraArgs []string

	Logger *log.Logger
}

// Args returns the command line for one training run.
func (c *CommandTrainer) Args(corpusPath, outPath string, p Params) []string {
	cbow := "0"
	if p.CBOW {
		cbow = "1"
	}
	args := []string{
		"-train", corpusPath,
		"-output", outPath,
		"-size", strconv.Itoa(p.Dimensions),
		"-window", strconv.Itoa(p.Window),
		"-min-count", strconv.Itoa(p.MinCount),
		"-threads", strconv.Itoa(p.Workers),
		"-iter", strconv.Itoa(p.Epochs),
		"-cbow", cbow,
		"-binary", "0",
	}
	return append(args, c.ExtraArgs...)
}

// Train runs the binary and parses its output. A non-zero exit is reported
// as TRAINER_FAILED with the tail of the tool's stderr.
func (c *CommandTrainer) Train(ctx context.Context, corpusPath, outPath string, p Params) (*embedding.Embeddings, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	logger := c.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	bin := c.Binary
	if bin == "" {
		bin = DefaultBinary
	}

	cmd := exec.CommandContext(ctx, bin, c.Args(corpusPath, outPath, p)...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	logger.Debug("running trainer", "cmd", cmd.String())
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeTrainerFailed, err, "%s: %s", bin, tail(stderr.String(), 512))
	}
	logger.Debug("trainer finished", "duration", time.Since(start))

	emb, err := embedding.ImportText(outPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTrainerFailed, err, "read %s output", bin)
	}
	if emb.Dim != p.Dimensions {
		return nil, errors.New(errors.ErrCodeTrainerFailed, "%s wrote %d dimensions, want %d", bin, emb.Dim, p.Dimensions)
	}
	return emb, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
