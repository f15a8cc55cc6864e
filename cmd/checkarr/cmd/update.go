package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/checkarr/internal/models"
	"github.com/jmylchreest/checkarr/pkg/format"
)

var (
	updateSitemap  string
	updateOutput   string
	updateThreads  int
	updateLowLimit int
	updateDeep     bool
	updateKeep     bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh channel sources and revalidate every endpoint",
	Long: `Ingest channel data from the configured sitemap plus the live source,
then revalidate every endpoint, pruning the dead ones, and write the
surviving channels as TXT and M3U files.

The run aborts when the ingest produces fewer channels than --low-limit,
so a broken upstream never replaces a good channel list with a near-empty
one.`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().StringVar(&updateSitemap, "sitemap", "", "sitemap URL (default from config)")
	updateCmd.Flags().StringVar(&updateOutput, "output", "", "result file path (default from config)")
	updateCmd.Flags().IntVar(&updateThreads, "threads", 0, "worker count (default from config)")
	updateCmd.Flags().IntVar(&updateLowLimit, "low-limit", 0, "minimum ingested channel count (default from config)")
	updateCmd.Flags().BoolVar(&updateDeep, "deep", false, "run segment reachability and throughput stages")
	updateCmd.Flags().BoolVar(&updateKeep, "keep", false, "keep previously accumulated channels")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	sitemap := updateSitemap
	if sitemap == "" {
		sitemap = a.cfg.Sources.SitemapURL
	}
	output := updateOutput
	if output == "" {
		output = a.cfg.Output.Path
	}
	threads := updateThreads
	if threads == 0 {
		threads = a.cfg.Checker.Threads
	}
	lowLimit := updateLowLimit
	if lowLimit == 0 {
		lowLimit = a.cfg.Sources.LowLimit
	}

	started := time.Now()
	success, total, err := runUpdateFlow(cmd.Context(), a, sitemap, output, threads, lowLimit, updateDeep, updateKeep)
	if err != nil {
		return err
	}

	fmt.Printf("revalidated %s endpoints, %s alive, in %s\n",
		format.Number(int64(total)),
		format.Number(int64(success)),
		time.Since(started).Round(time.Millisecond))
	fmt.Printf("results written to %s\n", output)
	return nil
}

// runUpdateFlow is the full update pass: ingest, low-water guard,
// revalidation, output. Shared with daemon mode.
func runUpdateFlow(ctx context.Context, a *app, sitemap, output string, threads, lowLimit int, deep, keep bool) (success, total int, err error) {
	if !keep {
		a.registry.Clear()
		models.ClearInterned()
	}

	if err := a.loader.LoadSitemap(ctx, sitemap); err != nil {
		return 0, 0, err
	}
	if err := a.checker.EnsureMinimum(lowLimit); err != nil {
		return 0, 0, err
	}

	total = a.registry.TotalCount()
	taskID := a.tasks.Create(models.TaskTypeUpdate, "live source update", sitemap, total)

	success, err = runSupervised(a.tasks, taskID, func() (int, error) {
		return a.checker.UpdateBatchLive(ctx, threads, deep, taskID, output)
	}, func(success int) map[string]any {
		return map[string]any{
			"success":  success,
			"channels": a.registry.ChannelIDs(),
		}
	})
	return success, total, err
}
