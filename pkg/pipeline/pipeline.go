// Package pipeline provides the end-to-end embedding pipeline for mltn2v.
//
// This package implements the complete load → preprocess → walk → train →
// export pipeline used by every CLI command, so defaults and caching behave
// the same no matter which entry point runs it.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Load: read one layer per file from the input directory
//  2. Preprocess: build node and edge alias tables for every layer
//  3. Walk: generate neighborhoods for every layer-switch probability w
//  4. Train: run the skip-gram trainer on each w's corpus
//  5. Export: write sorted feature matrices and the run manifest
//
// Walks and embeddings are cached, keyed by a hash of the loaded network
// and of every option that influences them.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	runner.Trainer = &train.CommandTrainer{Binary: "word2vec"}
//	opts := pipeline.Options{
//	    Input:  "data/control",
//	    Output: "out",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Outputs[0.5])
//
// Run individual stages:
//
//	net, failures, err := runner.Load(ctx, opts)
//	models, err := runner.Preprocess(ctx, net, opts)
//	walks, hit, err := runner.WalksWithCacheInfo(ctx, pipeline.NetworkHash(net), models, opts)
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mltn2v/pkg/cache"
	"github.com/matzehuels/mltn2v/pkg/embedding"
	"github.com/matzehuels/mltn2v/pkg/errors"
	mltnio "github.com/matzehuels/mltn2v/pkg/io"
	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/neighborhood"
	"github.com/matzehuels/mltn2v/pkg/train"
	"github.com/matzehuels/mltn2v/pkg/transition"
	"github.com/matzehuels/mltn2v/pkg/walk"
)

// =============================================================================
// Default Values - Single Source of Truth for the CLI and config files
// =============================================================================

const (
	// DefaultWalkLength is the neighborhood size (tokens per walk).
	DefaultWalkLength = 10

	// DefaultSamplesPerNode is the number of walks started per node and layer.
	DefaultSamplesPerNode = 52

	// DefaultP is the node2vec return parameter.
	DefaultP = 1.0

	// DefaultQ is the node2vec in-out parameter.
	DefaultQ = 1.0

	// DefaultWorkers bounds preprocessing and walk generation concurrency.
	DefaultWorkers = 8

	// DefaultMinSuccessRatio is the smallest acceptable fraction of completed
	// walks per w. Zero selects it; a negative ratio disables the check.
	DefaultMinSuccessRatio = 0.5

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// DefaultOutput is the default output directory.
	DefaultOutput = "out"
)

// DefaultWValues are the layer-switch probabilities run by default.
var DefaultWValues = []float64{0.25, 0.5, 0.75}

// Output file names inside each w directory.
const (
	CorpusFile    = "walks.txt"
	ModelFile     = "mltn2v.emb"
	FeaturesFile  = "mltn2v.csv"
	ManifestFile  = "run.json"
	embeddingKind = "embedding"
	walksKind     = "walks"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the embedding pipeline. Field tags
// match the flag names of the CLI so run files and flags read the same.
type Options struct {
	// Load options
	Input     string        `json:"input" toml:"input" yaml:"input"`
	Format    mltnio.Format `json:"format,omitempty" toml:"format" yaml:"format"`
	Directed  bool          `json:"directed,omitempty" toml:"directed" yaml:"directed"`
	Threshold *float64      `json:"thresh,omitempty" toml:"thresh" yaml:"thresh"`
	Weighted  bool          `json:"weighted,omitempty" toml:"weighted" yaml:"weighted"`

	// Walk options
	WValues           []float64 `json:"w,omitempty" toml:"w" yaml:"w"`
	WalkLength        int       `json:"nbsize,omitempty" toml:"nbsize" yaml:"nbsize"`
	SamplesPerNode    int       `json:"n_samples,omitempty" toml:"n_samples" yaml:"n_samples"`
	P                 float64   `json:"p,omitempty" toml:"p" yaml:"p"`
	Q                 float64   `json:"q,omitempty" toml:"q" yaml:"q"`
	Workers           int       `json:"workers,omitempty" toml:"workers" yaml:"workers"`
	MaxForcedSwitches int       `json:"max_switches,omitempty" toml:"max_switches" yaml:"max_switches"`
	MinSuccessRatio   float64   `json:"min_success,omitempty" toml:"min_success" yaml:"min_success"`
	Seed              uint64    `json:"seed,omitempty" toml:"seed" yaml:"seed"`

	// Train options
	Dimensions   int  `json:"d,omitempty" toml:"d" yaml:"d"`
	Window       int  `json:"window,omitempty" toml:"window" yaml:"window"`
	Epochs       int  `json:"w2v_iter,omitempty" toml:"w2v_iter" yaml:"w2v_iter"`
	TrainWorkers int  `json:"w2v_workers,omitempty" toml:"w2v_workers" yaml:"w2v_workers"`
	CBOW         bool `json:"cbow,omitempty" toml:"cbow" yaml:"cbow"`
	SkipTrain    bool `json:"skip_train,omitempty" toml:"skip_train" yaml:"skip_train"`

	// Output options
	Output  string `json:"output,omitempty" toml:"output" yaml:"output"`
	Refresh bool   `json:"refresh,omitempty" toml:"refresh" yaml:"refresh"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-" yaml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in sinks and the manifest.
	RunID string `json:"run_id"`

	// Network is the loaded multilayer network.
	Network *layer.Network `json:"-"`

	// NetworkHash is the content hash of the network.
	NetworkHash string `json:"network_hash"`

	// Walks holds the generated neighborhoods per w.
	Walks *neighborhood.Result `json:"-"`

	// Embeddings holds trained vectors per w. Empty with SkipTrain.
	Embeddings map[float64]*embedding.Embeddings `json:"-"`

	// Corpora and Outputs are the written corpus and feature files per w.
	Corpora map[float64]string `json:"-"`
	Outputs map[float64]string `json:"-"`

	// LoadFailures lists layer files that could not be read.
	LoadFailures []mltnio.LoadFailure `json:"-"`

	// LayerFailures lists layers that failed preprocessing.
	LayerFailures []*transition.LayerFailure `json:"-"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Layers         int           `json:"layers"`
	FailedLayers   int           `json:"failed_layers"`
	Nodes          int           `json:"nodes"`
	Edges          int           `json:"edges"`
	Walks          int           `json:"walks"`
	DeadEnds       int           `json:"dead_ends"`
	LoadTime       time.Duration `json:"load_ns"`
	PreprocessTime time.Duration `json:"preprocess_ns"`
	WalkTime       time.Duration `json:"walk_ns"`
	TrainTime      time.Duration `json:"train_ns"`
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	WalksHit      bool `json:"walks_hit"`      // Whether walks came from cache
	EmbeddingHits int  `json:"embedding_hits"` // Number of w values whose embeddings came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline. Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForLoad(); err != nil {
		return err
	}
	if err := o.ValidateForWalks(); err != nil {
		return err
	}
	if !o.SkipTrain {
		if err := o.ValidateForTrain(); err != nil {
			return err
		}
	}
	if o.Output == "" {
		o.Output = DefaultOutput
	}
	o.validated = true
	return nil
}

// ValidateForLoad checks the input options.
func (o *Options) ValidateForLoad() error {
	if o.Input == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "input directory is required")
	}
	if _, err := mltnio.ParseFormat(string(o.Format)); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetWalkDefaults sets default values for preprocessing and walk generation.
func (o *Options) SetWalkDefaults() {
	if len(o.WValues) == 0 {
		o.WValues = slices.Clone(DefaultWValues)
	}
	if o.WalkLength == 0 {
		o.WalkLength = DefaultWalkLength
	}
	if o.SamplesPerNode == 0 {
		o.SamplesPerNode = DefaultSamplesPerNode
	}
	if o.P == 0 {
		o.P = DefaultP
	}
	if o.Q == 0 {
		o.Q = DefaultQ
	}
	if o.Workers == 0 {
		o.Workers = DefaultWorkers
	}
	if o.MaxForcedSwitches == 0 {
		o.MaxForcedSwitches = walk.DefaultMaxForcedSwitches
	}
	if o.MinSuccessRatio == 0 {
		o.MinSuccessRatio = DefaultMinSuccessRatio
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForWalks sets walk defaults and validates them.
func (o *Options) ValidateForWalks() error {
	o.SetWalkDefaults()
	if err := errors.ValidatePositive("p", o.P); err != nil {
		return err
	}
	if err := errors.ValidatePositive("q", o.Q); err != nil {
		return err
	}
	if err := errors.ValidatePositiveInt("max forced switches", o.MaxForcedSwitches); err != nil {
		return err
	}
	for _, w := range o.WValues {
		if err := errors.ValidateProbability("w", w); err != nil {
			return err
		}
	}
	if o.MinSuccessRatio < 0 {
		return nil
	}
	return errors.ValidateProbability("min success ratio", o.MinSuccessRatio)
}

// SetTrainDefaults sets default values for training. The window defaults to
// the walk length.
func (o *Options) SetTrainDefaults() {
	o.SetWalkDefaults()
	if o.Dimensions == 0 {
		o.Dimensions = train.DefaultDimensions
	}
	if o.Window == 0 {
		o.Window = o.WalkLength
	}
	if o.Epochs == 0 {
		o.Epochs = train.DefaultEpochs
	}
	if o.TrainWorkers == 0 {
		o.TrainWorkers = train.DefaultWorkers
	}
}

// ValidateForTrain sets training defaults and validates them.
func (o *Options) ValidateForTrain() error {
	o.SetTrainDefaults()
	return o.TrainParams().Validate()
}

// LoadOptions returns the options for [mltnio.LoadDir]. Unless Weighted is
// set, every kept matrix entry is binarized.
func (o *Options) LoadOptions() mltnio.LoadOptions {
	return mltnio.LoadOptions{
		Format:   o.Format,
		Directed: o.Directed,
		Matrix:   mltnio.MatrixOptions{Threshold: o.Threshold, Binary: !o.Weighted},
		Workers:  o.Workers,
	}
}

// ExtractOptions returns the options for [neighborhood.Extract].
func (o *Options) ExtractOptions() neighborhood.Options {
	return neighborhood.Options{
		WValues:           o.WValues,
		WalkLength:        o.WalkLength,
		SamplesPerNode:    o.SamplesPerNode,
		Workers:           o.Workers,
		Seed:              o.Seed,
		MaxForcedSwitches: o.MaxForcedSwitches,
		MinSuccessRatio:   max(o.MinSuccessRatio, 0),
		Logger:            o.Logger,
	}
}

// TrainParams returns the trainer hyperparameters.
func (o *Options) TrainParams() train.Params {
	return train.Params{
		Dimensions: o.Dimensions,
		Window:     o.Window,
		Workers:    o.TrainWorkers,
		Epochs:     o.Epochs,
		CBOW:       o.CBOW,
	}
}

// WalksKeyOpts returns cache key options for walk generation.
func (o *Options) WalksKeyOpts() cache.WalksKeyOpts {
	return cache.WalksKeyOpts{
		WValues:           o.WValues,
		WalkLength:        o.WalkLength,
		SamplesPerNode:    o.SamplesPerNode,
		P:                 o.P,
		Q:                 o.Q,
		MaxForcedSwitches: o.MaxForcedSwitches,
		Seed:              o.Seed,
	}
}

// EmbeddingKeyOpts returns cache key options for training.
func (o *Options) EmbeddingKeyOpts(trainer string) cache.EmbeddingKeyOpts {
	return cache.EmbeddingKeyOpts{
		Trainer:    trainer,
		Dimensions: o.Dimensions,
		Window:     o.Window,
		Epochs:     o.Epochs,
		CBOW:       o.CBOW,
	}
}
