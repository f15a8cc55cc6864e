package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/checkarr/internal/scheduler"
	"github.com/jmylchreest/checkarr/pkg/format"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled update passes until interrupted",
	Long: `Run the full update pass on a cron schedule. The schedule comes from
daemon.cron in the configuration (6-field cron with a seconds column), and
daemon.run_on_start triggers an immediate pass before the first tick.
SIGINT or SIGTERM stops the scheduler and waits for any in-flight pass.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	cfg := a.cfg
	pass := func(ctx context.Context) {
		success, total, err := runUpdateFlow(ctx, a,
			cfg.Sources.SitemapURL, cfg.Output.Path,
			cfg.Checker.Threads, cfg.Sources.LowLimit, false, false)
		if err != nil {
			a.logger.Error("update pass failed", "error", err)
			return
		}
		a.logger.Info("update pass finished",
			"total", total,
			"alive", success,
			"output", cfg.Output.Path)
	}

	sched := scheduler.New(cfg.Daemon, pass, a.logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return err
	}

	fmt.Printf("schedule: %s (%s)\n", format.CronDescription(cfg.Daemon.Cron), cfg.Daemon.Cron)
	if next, err := sched.NextRun(); err == nil {
		fmt.Printf("next run: %s\n", next.Format(time.RFC3339))
	}

	<-ctx.Done()
	a.logger.Info("shutting down")
	sched.Stop()
	return nil
}
