package train

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/matzehuels/mltn2v/pkg/errors"
)

var params = Params{Dimensions: 2, Window: 5, Workers: 1, Epochs: 1}

// fakeWord2Vec writes a shell script that mimics the word2vec CLI: it finds
// the -output flag and writes a fixed two-dimensional model there.
func fakeWord2Vec(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "word2vec")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

const writeModel = `while [ $# -gt 0 ]; do
  if [ "$1" = "-output" ]; then out="$2"; fi
  shift
done
printf '2 2\nb 0.1 0.2\na 0.3 0.4\n' > "$out"`

func TestArgs(t *testing.T) {
	c := &CommandTrainer{ExtraArgs: []string{"-negative", "5"}}
	got := c.Args("corpus.txt", "model.emb", Params{Dimensions: 100, Window: 10, Workers: 8, Epochs: 1})
	want := []string{
		"-train", "corpus.txt", "-output", "model.emb",
		"-size", "100", "-window", "10", "-min-count", "0",
		"-threads", "8", "-iter", "1", "-cbow", "0", "-binary", "0",
		"-negative", "5",
	}
	if !slices.Equal(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}
}

func TestCommandTrainer(t *testing.T) {
	c := &CommandTrainer{Binary: fakeWord2Vec(t, writeModel)}
	out := filepath.Join(t.TempDir(), "model.emb")

	emb, err := c.Train(context.Background(), "corpus.txt", out, params)
	if err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if emb.Len() != 2 || emb.Dim != 2 {
		t.Errorf("Len=%d Dim=%d, want 2 and 2", emb.Len(), emb.Dim)
	}
}

func TestCommandTrainerFailures(t *testing.T) {
	tests := []struct {
		name    string
		trainer *CommandTrainer
		params  Params
		code    errors.Code
	}{
		{"exit status", &CommandTrainer{Binary: fakeWord2Vec(t, "echo boom >&2; exit 3")}, params, errors.ErrCodeTrainerFailed},
		{"no output", &CommandTrainer{Binary: fakeWord2Vec(t, "exit 0")}, params, errors.ErrCodeTrainerFailed},
		{"dimension mismatch", &CommandTrainer{Binary: fakeWord2Vec(t, writeModel)}, Params{Dimensions: 3, Window: 5, Workers: 1, Epochs: 1}, errors.ErrCodeTrainerFailed},
		{"missing binary", &CommandTrainer{Binary: filepath.Join(t.TempDir(), "nope")}, params, errors.ErrCodeTrainerFailed},
		{"invalid params", &CommandTrainer{}, Params{}, errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "model.emb")
			_, err := tt.trainer.Train(context.Background(), "corpus.txt", out, tt.params)
			if !errors.Is(err, tt.code) {
				t.Errorf("Train() error = %v, want %s", err, tt.code)
			}
		})
	}
}
