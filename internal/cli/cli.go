// Package cli implements the mltn2v command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/mltn2v/pkg/buildinfo"
	"github.com/matzehuels/mltn2v/pkg/cache"
	"github.com/matzehuels/mltn2v/pkg/config"
	"github.com/matzehuels/mltn2v/pkg/pipeline"
	"github.com/matzehuels/mltn2v/pkg/sink"
	"github.com/matzehuels/mltn2v/pkg/train"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "mltn2v"

	// dotEnvFile is read from the working directory before the environment.
	dotEnvFile = ".env"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Multilayer node2vec embeddings",
		Long: `mltn2v learns node embeddings for multilayer networks.

Every file in the input directory is one layer over a shared set of nodes.
Biased random walks move within a layer like node2vec and jump to another
layer with probability w. The walks are written as a text corpus per w and
fed to word2vec, which produces one feature vector per node.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	var (
		verbose   bool
		logFormat string
	)
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output: text, json, logfmt")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		formatter, err := parseLogFormat(logFormat)
		if err != nil {
			return err
		}
		c.Logger.SetFormatter(formatter)
		if verbose {
			c.SetLogLevel(LogDebug)
		}
		cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		return nil
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.runCommand())
	root.AddCommand(c.walkCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.visualizeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	registerCompletions(root)
	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner with the backends selected by cfg.
// The caller must Close the runner.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, error) {
	store, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	var keyer cache.Keyer
	if cfg.Cache.Namespace != "" {
		keyer = cache.NewScopedKeyer(nil, cfg.Cache.Namespace+":")
	}
	runner := pipeline.NewRunner(store, keyer, c.Logger)
	runner.Trainer = &train.CommandTrainer{
		Binary:    cfg.Trainer.Binary,
		ExtraArgs: cfg.Trainer.Args,
		Logger:    c.Logger,
	}

	if cfg.Sink.MongoURI != "" {
		s, err := sink.NewMongoSink(ctx, sink.MongoOptions{
			URI:        cfg.Sink.MongoURI,
			Database:   cfg.Sink.Database,
			Collection: cfg.Sink.Collection,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		runner.Sink = s
		c.Logger.Debug("writing walks to mongodb", "database", cfg.Sink.Database)
	}
	return runner, nil
}

// newCache opens the configured cache backend. A file cache that cannot be
// created degrades to no caching.
func newCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	}

	dir := cfg.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/mltn2v/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
