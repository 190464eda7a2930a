package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mltn2v/pkg/config"
	"github.com/matzehuels/mltn2v/pkg/pipeline"
)

// runCommand creates the run command for the full walk and train pipeline.
func (c *CLI) runCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [input-dir]",
		Short: "Generate walks and train embeddings",
		Long: `Generate multilayer walks and train embeddings for every w.

Each file in the input directory is one layer. For every layer-switch
probability w the command writes:

  <output>/w<w>/walks.txt     one walk per line, tokens separated by spaces
  <output>/w<w>/mltn2v.emb    word2vec text model
  <output>/w<w>/mltn2v.csv    one row per node: token followed by its vector

and a run summary to <output>/run.json. Walks and embeddings are cached, so
rerunning with the same network and parameters skips the expensive stages.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			return c.runPipeline(cmd.Context(), cfg)
		},
	}

	flags.bindWalk(cmd.Flags())
	flags.bindTrain(cmd.Flags())
	return cmd
}

// walkCommand creates the walk command, which stops after the corpora.
func (c *CLI) walkCommand() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "walk [input-dir]",
		Short: "Generate walk corpora without training",
		Long: `Generate multilayer walks and write one corpus per w.

This is 'run --skip-train': use it to feed the corpora to your own
embedding tool, or to inspect how w changes the neighborhoods.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, args)
			if err != nil {
				return err
			}
			cfg.Run.SkipTrain = true
			return c.runPipeline(cmd.Context(), cfg)
		},
	}

	flags.bindWalk(cmd.Flags())
	return cmd
}

// runPipeline executes the pipeline and prints a summary of its outputs.
func (c *CLI) runPipeline(ctx context.Context, cfg *config.Config) error {
	stop := startMetrics(ctx, cfg.Metrics.Addr, c.Logger)
	defer stop()

	runner, err := c.newRunner(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer func() {
		if err := runner.Close(context.WithoutCancel(ctx)); err != nil {
			c.Logger.Warn("close runner", "err", err)
		}
	}()

	opts := cfg.Run
	opts.Logger = c.Logger

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Run %s finished", result.RunID))

	printResult(result)
	if cfg.Run.SkipTrain {
		printNewline()
		printNextStep("Train embeddings", fmt.Sprintf("%s run %s", appName, cfg.Run.Input))
	}
	return nil
}

// printResult prints the network summary and the files written per w.
func printResult(res *pipeline.Result) {
	printNewline()
	printSuccess("Run %s", StyleHighlight.Render(res.RunID))
	printStats(res.Stats.Nodes, res.Stats.Edges, res.CacheInfo.WalksHit)
	printKeyValue("Layers", fmt.Sprintf("%d (%d unreadable, %d without transitions)", res.Stats.Layers, len(res.LoadFailures), res.Stats.FailedLayers))
	printKeyValue("Walks", fmt.Sprintf("%d (%d dead ends)", res.Stats.Walks, res.Stats.DeadEnds))
	if res.CacheInfo.EmbeddingHits > 0 {
		printKeyValue("Cached", fmt.Sprintf("%d of %d embeddings", res.CacheInfo.EmbeddingHits, len(res.Outputs)))
	}

	for _, f := range res.LoadFailures {
		printWarning("Skipped %s", f.Error())
	}
	for _, f := range res.LayerFailures {
		printWarning("%s", f.Error())
	}

	ws := make([]float64, 0, len(res.Corpora))
	for w := range res.Corpora {
		ws = append(ws, w)
	}
	slices.Sort(ws)

	printNewline()
	for _, w := range ws {
		printInfo("w = %s", strconv.FormatFloat(w, 'f', -1, 64))
		printFile(res.Corpora[w])
		if out, ok := res.Outputs[w]; ok {
			printFile(out)
		}
	}
	if len(ws) > 0 {
		printFile(filepath.Join(filepath.Dir(filepath.Dir(res.Corpora[ws[0]])), pipeline.ManifestFile))
	}
}
