package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/checkarr/internal/checker"
	"github.com/jmylchreest/checkarr/internal/models"
	"github.com/jmylchreest/checkarr/internal/task"
	"github.com/jmylchreest/checkarr/pkg/format"
)

var (
	batchURL     string
	batchStart   int
	batchSize    int
	batchThreads int
	batchDeep    bool
	batchKeep    bool
	batchOutput  string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Probe a numeric range of candidate stream URLs",
	Long: `Generate candidate URLs from a template containing the {i} placeholder
and probe ids start..start+size-1. Channels that validate are admitted to
the registry and summarized; --output additionally writes TXT and M3U
result files.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchURL, "url", "", "URL template with {i} placeholder (required)")
	batchCmd.Flags().IntVar(&batchStart, "start", 1, "first channel id")
	batchCmd.Flags().IntVar(&batchSize, "size", 10, "number of ids to probe")
	batchCmd.Flags().IntVar(&batchThreads, "threads", 0, "worker count (default from config)")
	batchCmd.Flags().BoolVar(&batchDeep, "deep", false, "run segment reachability and throughput stages")
	batchCmd.Flags().BoolVar(&batchKeep, "keep", false, "keep previously accumulated channels and tasks")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "write TXT and M3U results to this path")
	_ = batchCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	if !batchKeep {
		a.registry.Clear()
		a.tasks.Clear()
		models.ClearInterned()
	}

	threads := batchThreads
	if threads == 0 {
		threads = a.cfg.Checker.Threads
	}

	desc := fmt.Sprintf("batch check %d-%d", batchStart, batchStart+batchSize-1)
	taskID := a.tasks.Create(models.TaskTypeCheck, desc, batchURL, batchSize)

	started := time.Now()
	success, runErr := runSupervised(a.tasks, taskID, func() (int, error) {
		return a.checker.CheckBatch(cmd.Context(), batchURL, batchStart, batchSize, threads, batchDeep, taskID)
	}, func(success int) map[string]any {
		return map[string]any{
			"success":  success,
			"channels": a.registry.ChannelIDs(),
		}
	})
	if runErr != nil {
		if errors.Is(runErr, checker.ErrInvalidTemplate) {
			return fmt.Errorf("invalid --url template: %w", runErr)
		}
		return runErr
	}

	if batchOutput != "" {
		a.checker.WriteResults(batchOutput)
	}

	final, err := a.tasks.Get(taskID)
	if err != nil {
		return err
	}
	fmt.Printf("processed %s/%s, %s successful (%s) in %s\n",
		format.Number(int64(final.Processed)),
		format.Number(int64(final.Total)),
		format.Number(int64(success)),
		format.Percentage(final.Progress, 1),
		time.Since(started).Round(time.Millisecond))
	if ids := a.registry.ChannelIDs(); len(ids) > 0 {
		fmt.Printf("channel ids: %s\n", strings.Join(ids, ", "))
	}
	return nil
}

// runSupervised moves the task through running and into its terminal state
// around fn, recording the result payload on success and the error text on
// failure.
func runSupervised(tasks *task.Registry, taskID string, fn func() (int, error), result func(success int) map[string]any) (int, error) {
	running := models.TaskStatusRunning
	if err := tasks.Update(taskID, task.Patch{Status: &running}); err != nil {
		return 0, err
	}

	success, err := fn()
	if err != nil {
		errored := models.TaskStatusError
		msg := err.Error()
		_ = tasks.Update(taskID, task.Patch{Status: &errored, Error: &msg})
		return success, err
	}

	completed := models.TaskStatusCompleted
	patch := task.Patch{Status: &completed}
	if result != nil {
		patch.Result = result(success)
	}
	if err := tasks.Update(taskID, patch); err != nil {
		return success, err
	}
	return success, nil
}
