// Package cmd implements the CLI commands for checkarr.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/checkarr/internal/category"
	"github.com/jmylchreest/checkarr/internal/checker"
	"github.com/jmylchreest/checkarr/internal/config"
	"github.com/jmylchreest/checkarr/internal/httpclient"
	"github.com/jmylchreest/checkarr/internal/ingest"
	"github.com/jmylchreest/checkarr/internal/observability"
	"github.com/jmylchreest/checkarr/internal/probe"
	"github.com/jmylchreest/checkarr/internal/registry"
	"github.com/jmylchreest/checkarr/internal/task"
	"github.com/jmylchreest/checkarr/internal/version"
)

// cfgFile holds the config file path from CLI flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "checkarr",
	Short:   "IPTV live-stream channel validator",
	Version: version.Short(),
	Long: `checkarr validates IPTV live-stream channels: it probes HLS and MP4
stream URLs, classifies the working channels into category groups, and
writes TXT / M3U channel lists.

It ingests channel data from TXT lists, M3U playlists, and remote
sitemaps, revalidates existing channel sets pruning dead endpoints, and
can run unattended on a cron schedule.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	// Note: These flags are NOT bound to viper. We check if they were
	// explicitly set using Changed() and only then override the config/env
	// values. This preserves the priority: CLI flag > env var > config >
	// default.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., ./configs, /etc/checkarr, $HOME/.checkarr)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// app bundles the wired collaborators every command operates on.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	cats     *category.Manager
	registry *registry.Registry
	tasks    *task.Registry
	prober   *probe.Prober
	checker  *checker.Checker
	loader   *ingest.Loader
}

// buildApp loads configuration, applies CLI logging overrides, and wires the
// full component graph.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Override with CLI flags only if explicitly set by the user.
	if rootCmd.PersistentFlags().Changed("log-level") {
		cfg.Logging.Level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		cfg.Logging.Format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	logger := observability.NewLoggerWithWriter(cfg.Logging, os.Stderr)
	observability.SetDefault(logger)

	cats := category.NewManager()
	if cfg.Categories.File != "" {
		cats, err = category.NewManagerFromFile(cfg.Categories.File)
		if err != nil {
			return nil, fmt.Errorf("loading category descriptors: %w", err)
		}
	}
	if len(cfg.Categories.Ignore) > 0 {
		cats.SetIgnored(cfg.Categories.Ignore)
	}

	reg := registry.New(cats)
	if cfg.EPG.HasEPG() {
		reg.SetEPG(cfg.EPG.File, cfg.EPG.Source, cfg.EPG.Domain)
	}

	tasks := task.NewRegistry()
	prober := probe.New(cfg.Probe, logger)

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.Probe.RequestTimeout
	clientCfg.Logger = logger
	if cfg.Probe.UserAgent != "" {
		clientCfg.UserAgent = cfg.Probe.UserAgent
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		cats:     cats,
		registry: reg,
		tasks:    tasks,
		prober:   prober,
		checker:  checker.New(cfg.Checker, prober, reg, tasks, logger),
		loader:   ingest.New(cfg.Sources, httpclient.New(clientCfg), reg, logger),
	}, nil
}
