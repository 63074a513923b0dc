package cli

import (
	"github.com/spf13/cobra"

	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/config"
	"github.com/priyanshu-1006/GDG-Edit-sub000/internal/services"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "cleanup",
		Short: "Remove invalid and duplicate chunks and backfill classification",
		Run:   runCleanup,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show knowledge base statistics",
		Run:   runStats,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "warm",
		Short: "Precompute embeddings for common questions",
		Long:  "Precompute embeddings for common questions. Only useful with CACHE_BACKEND=redis, where the cache is shared with the server.",
		Run:   runWarm,
	})
}

func runCleanup(cmd *cobra.Command, args []string) {
	c, err := openComponents(cmd, true)
	if err != nil {
		exitErr("open", err)
	}
	defer c.Close(cmd.Context())

	report, err := c.Ingestion.Cleanup(cmd.Context())
	if err != nil {
		exitErr("cleanup", err)
	}
	printJSON(report)
}

func runStats(cmd *cobra.Command, args []string) {
	c, err := openComponents(cmd, true)
	if err != nil {
		exitErr("open", err)
	}
	defer c.Close(cmd.Context())

	stats, err := c.Ingestion.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	printJSON(stats)
}

func runWarm(cmd *cobra.Command, args []string) {
	c, err := openComponents(cmd, false)
	if err != nil {
		exitErr("open", err)
	}
	defer c.Close(cmd.Context())

	if c.Config.CacheBackend != config.BackendRedis || c.Redis == nil {
		cmd.PrintErrln("warning: cache is in memory, warmed embeddings are discarded on exit")
	}

	report := c.EmbeddingCache.Warm(cmd.Context(), services.DefaultWarmQueries, c.Provider.Embed)
	printJSON(report)
}
