package cli

import (
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/mltn2v/pkg/config"
	"github.com/matzehuels/mltn2v/pkg/errors"
	mltnio "github.com/matzehuels/mltn2v/pkg/io"
	"github.com/matzehuels/mltn2v/pkg/pipeline"
	"github.com/matzehuels/mltn2v/pkg/train"
	"github.com/matzehuels/mltn2v/pkg/walk"
)

// runFlags holds the command-line flags shared by run, walk and inspect.
//
// Settings are layered: config file, then .env and MLTN2V_* variables, then
// flags. A flag only overrides the layers below it when it was set on the
// command line, so its default never masks a value from a run file.
type runFlags struct {
	configPath string
	opts       pipeline.Options
	format     string
	thresh     float64

	cacheBackend string
	cacheDir     string
	redisURL     string
	namespace    string
	mongoURI     string
	metricsAddr  string
	word2vec     string
}

// bindInput registers the flags that control how layers are read.
func (f *runFlags) bindInput(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "run file (.toml, .yaml or .yml)")
	fs.StringVar(&f.format, "format", "auto", "layer file format: auto, matrix, edgelist, json")
	fs.BoolVar(&f.opts.Directed, "directed", false, "treat layers as directed graphs")
	fs.BoolVar(&f.opts.Weighted, "weighted", false, "keep matrix weights instead of binarizing")
	fs.Float64Var(&f.thresh, "thresh", 0, "drop matrix entries at or below this weight")
	fs.IntVar(&f.opts.Workers, "workers", pipeline.DefaultWorkers, "concurrent layers and walk tasks")
}

// bindWalk registers the walk generation and backend flags.
func (f *runFlags) bindWalk(fs *pflag.FlagSet) {
	f.bindInput(fs)
	fs.StringVarP(&f.opts.Output, "output", "o", pipeline.DefaultOutput, "output directory")
	fs.Float64SliceVar(&f.opts.WValues, "w", slices.Clone(pipeline.DefaultWValues), "layer-switch probabilities (comma-separated)")
	fs.IntVar(&f.opts.WalkLength, "nbsize", pipeline.DefaultWalkLength, "neighborhood size (tokens per walk)")
	fs.IntVar(&f.opts.SamplesPerNode, "n-samples", pipeline.DefaultSamplesPerNode, "walks started per node and layer")
	fs.Float64Var(&f.opts.P, "p", pipeline.DefaultP, "node2vec return parameter")
	fs.Float64Var(&f.opts.Q, "q", pipeline.DefaultQ, "node2vec in-out parameter")
	fs.IntVar(&f.opts.MaxForcedSwitches, "max-switches", walk.DefaultMaxForcedSwitches, "forced layer switches allowed per step before a walk is abandoned")
	fs.Float64Var(&f.opts.MinSuccessRatio, "min-success", pipeline.DefaultMinSuccessRatio, "smallest acceptable fraction of completed walks (negative disables the check)")
	fs.Uint64Var(&f.opts.Seed, "seed", pipeline.DefaultSeed, "random seed")
	fs.BoolVar(&f.opts.Refresh, "refresh", false, "ignore cached walks and embeddings")

	fs.StringVar(&f.cacheBackend, "cache", config.CacheFile, "cache backend: file, redis, none")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "file cache directory (default ~/.cache/mltn2v)")
	fs.StringVar(&f.redisURL, "redis", "", "redis URL for --cache redis")
	fs.StringVar(&f.namespace, "cache-namespace", "", "prefix for cache keys")
	fs.StringVar(&f.mongoURI, "mongo", "", "MongoDB URI; when set, walks are also stored there")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

// bindTrain registers the word2vec flags.
func (f *runFlags) bindTrain(fs *pflag.FlagSet) {
	fs.IntVar(&f.opts.Dimensions, "d", train.DefaultDimensions, "embedding dimensions")
	fs.IntVar(&f.opts.Window, "window", 0, "word2vec context window (default: nbsize)")
	fs.IntVar(&f.opts.Epochs, "w2v-iter", train.DefaultEpochs, "word2vec training epochs")
	fs.IntVar(&f.opts.TrainWorkers, "w2v-workers", train.DefaultWorkers, "word2vec threads")
	fs.BoolVar(&f.opts.CBOW, "cbow", false, "train CBOW instead of skip-gram")
	fs.BoolVar(&f.opts.SkipTrain, "skip-train", false, "stop after writing the walk corpora")
	fs.StringVar(&f.word2vec, "word2vec", "", "word2vec executable (default: word2vec on PATH)")
}

// apply copies every flag set on the command line into cfg.
func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	run := &cfg.Run
	setters := map[string]func(){
		"format":          func() { run.Format = mltnio.Format(f.format) },
		"directed":        func() { run.Directed = f.opts.Directed },
		"weighted":        func() { run.Weighted = f.opts.Weighted },
		"thresh":          func() { t := f.thresh; run.Threshold = &t },
		"workers":         func() { run.Workers = f.opts.Workers },
		"output":          func() { run.Output = f.opts.Output },
		"w":               func() { run.WValues = slices.Clone(f.opts.WValues) },
		"nbsize":          func() { run.WalkLength = f.opts.WalkLength },
		"n-samples":       func() { run.SamplesPerNode = f.opts.SamplesPerNode },
		"p":               func() { run.P = f.opts.P },
		"q":               func() { run.Q = f.opts.Q },
		"max-switches":    func() { run.MaxForcedSwitches = f.opts.MaxForcedSwitches },
		"min-success":     func() { run.MinSuccessRatio = f.opts.MinSuccessRatio },
		"seed":            func() { run.Seed = f.opts.Seed },
		"refresh":         func() { run.Refresh = f.opts.Refresh },
		"d":               func() { run.Dimensions = f.opts.Dimensions },
		"window":          func() { run.Window = f.opts.Window },
		"w2v-iter":        func() { run.Epochs = f.opts.Epochs },
		"w2v-workers":     func() { run.TrainWorkers = f.opts.TrainWorkers },
		"cbow":            func() { run.CBOW = f.opts.CBOW },
		"skip-train":      func() { run.SkipTrain = f.opts.SkipTrain },
		"cache":           func() { cfg.Cache.Backend = f.cacheBackend },
		"cache-dir":       func() { cfg.Cache.Dir = f.cacheDir },
		"redis":           func() { cfg.Cache.RedisURL = f.redisURL },
		"cache-namespace": func() { cfg.Cache.Namespace = f.namespace },
		"mongo":           func() { cfg.Sink.MongoURI = f.mongoURI },
		"metrics-addr":    func() { cfg.Metrics.Addr = f.metricsAddr },
		"word2vec":        func() { cfg.Trainer.Binary = f.word2vec },
	}

	fs.Visit(func(fl *pflag.Flag) {
		if set, ok := setters[fl.Name]; ok {
			set()
		}
	})

	format, err := mltnio.ParseFormat(string(run.Format))
	if err != nil {
		return err
	}
	run.Format = format
	return nil
}

// resolve builds the effective configuration for cmd. A positional
// argument names the input directory and wins over every other source.
func (f *runFlags) resolve(cmd *cobra.Command, args []string) (*config.Config, error) {
	if err := config.LoadDotEnv(dotEnvFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := f.apply(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Run.Input = args[0]
	}
	if cfg.Run.Input == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no input directory given; pass it as an argument or set input in the run file")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
