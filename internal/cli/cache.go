package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mltn2v/pkg/cache"
	"github.com/matzehuels/mltn2v/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached walks and embeddings",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var (
		backend  string
		dir      string
		redisURL string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached walks and embeddings",
		Long: `Remove all cached walks and embeddings from the selected backend.

For redis only keys under the mltn2v: prefix are deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if err := config.LoadDotEnv(dotEnvFile); err != nil {
				return err
			}
			if err := config.ApplyEnv(cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("backend") {
				cfg.Cache.Backend = backend
			}
			if cmd.Flags().Changed("dir") {
				cfg.Cache.Dir = dir
			}
			if cmd.Flags().Changed("redis") {
				cfg.Cache.RedisURL = redisURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := newCache(cmd.Context(), cfg.Cache)
			if err != nil {
				return err
			}
			defer store.Close()

			clearer, ok := store.(cache.Clearer)
			if !ok {
				printInfo("Nothing to clear for the %s backend", cfg.Cache.Backend)
				return nil
			}
			count, err := clearer.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared %d cached entries", count)
			if fc, ok := store.(*cache.FileCache); ok {
				printDetail("Directory: %s", fc.Dir())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backend, "backend", config.CacheFile, "cache backend: file, redis")
	cmd.Flags().StringVar(&dir, "dir", "", "file cache directory (default ~/.cache/mltn2v)")
	cmd.Flags().StringVar(&redisURL, "redis", "", "redis URL")
	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Println(dir)
			return nil
		},
	}
}
