package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/mltn2v/pkg/cache"
	"github.com/matzehuels/mltn2v/pkg/embedding"
	"github.com/matzehuels/mltn2v/pkg/errors"
	mltnio "github.com/matzehuels/mltn2v/pkg/io"
	"github.com/matzehuels/mltn2v/pkg/layer"
	"github.com/matzehuels/mltn2v/pkg/neighborhood"
	"github.com/matzehuels/mltn2v/pkg/observability"
	"github.com/matzehuels/mltn2v/pkg/sink"
	"github.com/matzehuels/mltn2v/pkg/train"
	"github.com/matzehuels/mltn2v/pkg/transition"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for its collaborators; it doesn't store
// pipeline results. Multiple goroutines can use the same Runner with
// different options as long as their output directories differ.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
	Trainer train.Trainer
	Sink    sink.Sink
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
// The trainer defaults to the word2vec command and the sink discards walks.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:   c,
		Keyer:   keyer,
		Logger:  logger,
		Trainer: &train.CommandTrainer{Logger: logger},
		Sink:    sink.Discard,
	}
}

// Execute runs the complete pipeline and writes every output under
// opts.Output.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		RunID:      uuid.NewString(),
		Embeddings: make(map[float64]*embedding.Embeddings),
		Corpora:    make(map[float64]string),
		Outputs:    make(map[float64]string),
	}
	r.Logger.Debug("starting run", "run_id", result.RunID)

	out, err := mltnio.ExpandPath(opts.Output)
	if err != nil {
		return nil, err
	}
	opts.Output = out
	if created, err := mltnio.PrepareOutputDir(out); err != nil {
		return nil, err
	} else if created {
		r.Logger.Warn("output directory did not exist and was created", "dir", out)
	}

	// Stage 1: Load
	loadStart := time.Now()
	net, failures, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Network = net
	result.LoadFailures = failures
	result.NetworkHash = NetworkHash(net)
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.Layers = net.Len()
	result.Stats.Nodes = net.NodeCount()
	result.Stats.Edges = net.EdgeCount()

	r.Logger.Info("loaded network",
		"layers", net.Len(),
		"nodes", net.NodeCount(),
		"edges", net.EdgeCount(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Preprocess
	prepStart := time.Now()
	models, err := r.Preprocess(ctx, net, opts)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	result.LayerFailures = models.Failures()
	result.Stats.FailedLayers = len(result.LayerFailures)
	result.Stats.PreprocessTime = time.Since(prepStart)

	r.Logger.Info("preprocessed transitions",
		"healthy", models.Healthy(),
		"failed", len(result.LayerFailures),
		"duration", result.Stats.PreprocessTime)

	// Stage 3: Walks
	walkStart := time.Now()
	walks, walksHit, err := r.WalksWithCacheInfo(ctx, result.NetworkHash, models, opts)
	if err != nil {
		return nil, fmt.Errorf("walks: %w", err)
	}
	result.Walks = walks
	result.Stats.WalkTime = time.Since(walkStart)
	result.Stats.Walks = walks.Total()
	result.Stats.DeadEnds = walks.TotalFailures()
	result.CacheInfo.WalksHit = walksHit

	r.Logger.Info("generated walks",
		"walks", result.Stats.Walks,
		"dead_ends", result.Stats.DeadEnds,
		"cached", walksHit,
		"duration", result.Stats.WalkTime)

	snk := r.Sink
	if snk == nil {
		snk = sink.Discard
	}
	for _, w := range walks.WValues() {
		if err := snk.Write(ctx, sink.Batch{RunID: result.RunID, W: w, Walks: walks.Walks[w]}); err != nil {
			return nil, fmt.Errorf("sink: %w", err)
		}
		corpus, err := writeCorpus(walks, w, out)
		if err != nil {
			return nil, err
		}
		result.Corpora[w] = corpus
	}

	// Stage 4 and 5: Train and export
	if !opts.SkipTrain {
		trainStart := time.Now()
		for _, w := range walks.WValues() {
			dir := filepath.Dir(result.Corpora[w])
			emb, hit, err := r.TrainWithCacheInfo(ctx, w, result.Corpora[w], filepath.Join(dir, ModelFile), opts)
			if err != nil {
				return nil, fmt.Errorf("train w=%v: %w", w, err)
			}
			if hit {
				result.CacheInfo.EmbeddingHits++
			}
			features := filepath.Join(dir, FeaturesFile)
			if err := emb.ExportCSV(features); err != nil {
				return nil, err
			}
			result.Embeddings[w] = emb
			result.Outputs[w] = features
		}
		result.Stats.TrainTime = time.Since(trainStart)

		r.Logger.Info("trained embeddings",
			"w_values", len(result.Outputs),
			"cached", result.CacheInfo.EmbeddingHits,
			"duration", result.Stats.TrainTime)
	}

	if err := WriteManifest(filepath.Join(out, ManifestFile), result, opts); err != nil {
		return nil, err
	}
	return result, nil
}

// Load reads the network from opts.Input.
func (r *Runner) Load(ctx context.Context, opts Options) (*layer.Network, []mltnio.LoadFailure, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForLoad(); err != nil {
		return nil, nil, err
	}
	opts.SetWalkDefaults()

	dir, err := mltnio.ExpandPath(opts.Input)
	if err != nil {
		return nil, nil, err
	}

	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, dir)
	start := time.Now()

	net, failures, err := mltnio.LoadDir(ctx, dir, opts.LoadOptions())
	for _, f := range failures {
		r.Logger.Warn("skipping unreadable layer", "file", f.Path, "err", f.Err)
	}
	layers := 0
	if net != nil {
		layers = net.Len()
	}
	hooks.OnLoadComplete(ctx, dir, layers, len(failures), time.Since(start), err)
	if err != nil {
		return nil, failures, err
	}
	return net, failures, nil
}

// Preprocess builds the transition models of every layer.
func (r *Runner) Preprocess(ctx context.Context, net *layer.Network, opts Options) (*transition.Store, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForWalks(); err != nil {
		return nil, err
	}

	if net == nil {
		return nil, errors.New(errors.ErrCodeNoLayers, "no network to preprocess")
	}

	hooks := observability.Pipeline()
	hooks.OnPreprocessStart(ctx, net.Len())
	start := time.Now()

	store, err := transition.Preprocess(ctx, net, transition.Options{
		P:       opts.P,
		Q:       opts.Q,
		Workers: opts.Workers,
		Logger:  opts.Logger,
	})
	healthy, failed := 0, 0
	if store != nil {
		healthy, failed = store.Healthy(), len(store.Failures())
	}
	hooks.OnPreprocessComplete(ctx, healthy, failed, time.Since(start), err)
	return store, err
}

// WalksWithCacheInfo generates neighborhoods with caching and returns cache
// hit info. networkHash identifies the network the models were built from.
func (r *Runner) WalksWithCacheInfo(ctx context.Context, networkHash string, models *transition.Store, opts Options) (*neighborhood.Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForWalks(); err != nil {
		return nil, false, err
	}

	cacheKey := r.Keyer.WalksKey(networkHash, opts.WalksKeyOpts())
	hooks := observability.Pipeline()
	cacheHooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached neighborhood.Result
			if err := json.Unmarshal(data, &cached); err == nil {
				cacheHooks.OnCacheHit(ctx, walksKind)
				if err := cached.CheckSuccess(opts.MinSuccessRatio); err != nil {
					return nil, true, err
				}
				return &cached, true, nil
			}
		}
		cacheHooks.OnCacheMiss(ctx, walksKind)
	}

	for _, w := range opts.WValues {
		hooks.OnWalksStart(ctx, w)
	}
	start := time.Now()
	res, err := neighborhood.Extract(ctx, models, opts.ExtractOptions())
	elapsed := time.Since(start)
	for _, w := range opts.WValues {
		walks, dead := 0, 0
		if res != nil {
			walks, dead = len(res.Walks[w]), res.Failures[w]
		}
		hooks.OnWalksComplete(ctx, w, walks, dead, elapsed, err)
	}
	if err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLWalks); err == nil {
			cacheHooks.OnCacheSet(ctx, walksKind, len(data))
		}
	}
	return res, false, nil
}

// Walks is a convenience wrapper that calls WalksWithCacheInfo and discards
// the cache hit info.
func (r *Runner) Walks(ctx context.Context, networkHash string, models *transition.Store, opts Options) (*neighborhood.Result, error) {
	res, _, err := r.WalksWithCacheInfo(ctx, networkHash, models, opts)
	return res, err
}

// TrainWithCacheInfo trains embeddings on the corpus file of one w with
// caching and returns cache hit info. On a miss the trainer writes its
// model to modelPath.
func (r *Runner) TrainWithCacheInfo(ctx context.Context, w float64, corpusPath, modelPath string, opts Options) (*embedding.Embeddings, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForTrain(); err != nil {
		return nil, false, err
	}

	if r.Trainer == nil {
		return nil, false, errors.New(errors.ErrCodeInvalidConfig, "no trainer configured")
	}

	corpus, err := os.ReadFile(corpusPath)
	if err != nil {
		return nil, false, fmt.Errorf("read corpus: %w", err)
	}
	cacheKey := r.Keyer.EmbeddingKey(cache.Hash(corpus), opts.EmbeddingKeyOpts(trainerName(r.Trainer)))
	cacheHooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached embedding.Embeddings
			if err := json.Unmarshal(data, &cached); err == nil {
				cacheHooks.OnCacheHit(ctx, embeddingKind)
				return &cached, true, nil
			}
		}
		cacheHooks.OnCacheMiss(ctx, embeddingKind)
	}

	hooks := observability.Pipeline()
	hooks.OnTrainStart(ctx, w)
	start := time.Now()
	emb, err := r.Trainer.Train(ctx, corpusPath, modelPath, opts.TrainParams())
	tokens := 0
	if emb != nil {
		tokens = emb.Len()
	}
	hooks.OnTrainComplete(ctx, w, tokens, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}
	opts.Logger.Debug("trained", "w", w, "tokens", tokens, "duration", time.Since(start))

	if data, err := json.Marshal(emb); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLEmbeddings); err == nil {
			cacheHooks.OnCacheSet(ctx, embeddingKind, len(data))
		}
	}
	return emb, false, nil
}

// Close releases resources held by the runner.
func (r *Runner) Close(ctx context.Context) error {
	var firstErr error
	if r.Sink != nil {
		firstErr = r.Sink.Close(ctx)
	}
	if r.Cache != nil {
		if err := r.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func writeCorpus(walks *neighborhood.Result, w float64, out string) (string, error) {
	dir := mltnio.WDir(out, w)
	if _, err := mltnio.PrepareOutputDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, CorpusFile)
	if err := mltnio.ExportCorpus(walks.Walks[w], path); err != nil {
		return "", err
	}
	return path, nil
}

func trainerName(t train.Trainer) string {
	if c, ok := t.(*train.CommandTrainer); ok {
		bin := c.Binary
		if bin == "" {
			bin = train.DefaultBinary
		}
		return "command:" + bin
	}
	return fmt.Sprintf("%T", t)
}
