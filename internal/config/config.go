// Package config provides configuration management for checkarr using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultRequestTimeout     = 5 * time.Second
	defaultHardTimeout        = 60 * time.Second
	defaultNameTimeout        = 3 * time.Second
	defaultSegmentTestCount   = 3
	defaultBenchmarkChunks    = 512
	defaultBenchmarkChunkSize = 1024
	defaultMaxManifestSize    = "10MB"
	defaultThreads            = 20
	defaultIOIntensityFactor  = 4
	defaultLowLimit           = 100
	defaultSitemapURL         = "https://raw.githubusercontent.com/vbskycn/iptv/refs/heads/master/sitemap.xml"
	defaultLiveURL            = "http://107.174.95.154/tvbox/json/live.txt"
	defaultOutputPath         = "./output/result.txt"
	defaultDaemonCron         = "0 0 2 * * *"
)

// Config holds all configuration for the application.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Probe      ProbeConfig      `mapstructure:"probe"`
	Checker    CheckerConfig    `mapstructure:"checker"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Output     OutputConfig     `mapstructure:"output"`
	EPG        EPGConfig        `mapstructure:"epg"`
	Categories CategoriesConfig `mapstructure:"categories"`
	Daemon     DaemonConfig     `mapstructure:"daemon"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// ProbeConfig holds per-URL stream validation configuration.
type ProbeConfig struct {
	// RequestTimeout is the total budget for a single probe HTTP call.
	// The connect phase gets 2s of it; the remainder covers the read.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// HardTimeout bounds one full probe invocation wall-clock.
	HardTimeout time.Duration `mapstructure:"hard_timeout"`

	// NameTimeout caps the metadata extraction stage.
	NameTimeout time.Duration `mapstructure:"name_timeout"`

	// SegmentTestCount is how many leading segments are reachability-tested.
	SegmentTestCount int `mapstructure:"segment_test_count"`

	// BenchmarkChunks and BenchmarkChunkSize define the throughput sample:
	// up to BenchmarkChunks reads of BenchmarkChunkSize bytes per segment.
	BenchmarkChunks    int `mapstructure:"benchmark_chunks"`
	BenchmarkChunkSize int `mapstructure:"benchmark_chunk_size"`

	// MaxManifestSize caps manifest response bodies.
	// Supports human-readable values like "10MB" or raw byte counts.
	MaxManifestSize ByteSize `mapstructure:"max_manifest_size"`

	// UserAgent overrides the default request User-Agent when set.
	UserAgent string `mapstructure:"user_agent"`
}

// CheckerConfig holds batch orchestration configuration.
type CheckerConfig struct {
	Threads           int `mapstructure:"threads"`
	IOIntensityFactor int `mapstructure:"io_intensity_factor"`
}

// SourcesConfig holds live-source ingestion configuration.
type SourcesConfig struct {
	// SitemapURL is the sitemap consumed by the update flow.
	SitemapURL string `mapstructure:"sitemap_url"`

	// LiveURL is the self-hosted TXT source appended after sitemap ingest.
	LiveURL string `mapstructure:"live_url"`

	// LowLimit aborts an update when fewer channels than this were ingested.
	LowLimit int `mapstructure:"low_limit"`
}

// OutputConfig holds result file configuration.
type OutputConfig struct {
	Path string `mapstructure:"path"`
}

// EPGConfig holds the optional EPG profile emitted in M3U headers.
type EPGConfig struct {
	File   string `mapstructure:"file"`
	Source string `mapstructure:"source"`
	Domain string `mapstructure:"domain"`
}

// CategoriesConfig holds category descriptor overrides.
type CategoriesConfig struct {
	// File points at a YAML descriptor set replacing the embedded defaults.
	File string `mapstructure:"file"`

	// Ignore replaces the default ignore list when non-empty.
	Ignore []string `mapstructure:"ignore"`
}

// DaemonConfig holds daemon-mode scheduling configuration.
type DaemonConfig struct {
	Cron       string `mapstructure:"cron"` // 6-field cron expression with seconds
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with CHECKARR_ and use underscores
// for nesting. Example: CHECKARR_PROBE_HARD_TIMEOUT=90s.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/checkarr")
		v.AddConfigPath("$HOME/.checkarr")
	}

	v.SetEnvPrefix("CHECKARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Probe defaults
	v.SetDefault("probe.request_timeout", defaultRequestTimeout)
	v.SetDefault("probe.hard_timeout", defaultHardTimeout)
	v.SetDefault("probe.name_timeout", defaultNameTimeout)
	v.SetDefault("probe.segment_test_count", defaultSegmentTestCount)
	v.SetDefault("probe.benchmark_chunks", defaultBenchmarkChunks)
	v.SetDefault("probe.benchmark_chunk_size", defaultBenchmarkChunkSize)
	v.SetDefault("probe.max_manifest_size", defaultMaxManifestSize)
	v.SetDefault("probe.user_agent", "")

	// Checker defaults
	v.SetDefault("checker.threads", defaultThreads)
	v.SetDefault("checker.io_intensity_factor", defaultIOIntensityFactor)

	// Sources defaults
	v.SetDefault("sources.sitemap_url", defaultSitemapURL)
	v.SetDefault("sources.live_url", defaultLiveURL)
	v.SetDefault("sources.low_limit", defaultLowLimit)

	// Output defaults
	v.SetDefault("output.path", defaultOutputPath)

	// EPG defaults (empty = no EPG header attributes)
	v.SetDefault("epg.file", "")
	v.SetDefault("epg.source", "")
	v.SetDefault("epg.domain", "")

	// Categories defaults (empty = embedded descriptor set)
	v.SetDefault("categories.file", "")
	v.SetDefault("categories.ignore", []string{})

	// Daemon defaults
	v.SetDefault("daemon.cron", defaultDaemonCron)
	v.SetDefault("daemon.run_on_start", false)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// The connect phase takes a fixed 2s slice of the request budget, so the
	// total must leave room for the read phase.
	if c.Probe.RequestTimeout <= 2*time.Second {
		return fmt.Errorf("probe.request_timeout must be greater than 2s")
	}
	if c.Probe.HardTimeout < c.Probe.RequestTimeout {
		return fmt.Errorf("probe.hard_timeout must be at least probe.request_timeout")
	}
	if c.Probe.SegmentTestCount < 1 {
		return fmt.Errorf("probe.segment_test_count must be at least 1")
	}
	if c.Probe.BenchmarkChunks < 1 || c.Probe.BenchmarkChunkSize < 1 {
		return fmt.Errorf("probe.benchmark_chunks and probe.benchmark_chunk_size must be at least 1")
	}

	if c.Checker.Threads < 1 {
		return fmt.Errorf("checker.threads must be at least 1")
	}
	if c.Checker.IOIntensityFactor < 1 {
		return fmt.Errorf("checker.io_intensity_factor must be at least 1")
	}

	if c.Sources.LowLimit < 0 {
		return fmt.Errorf("sources.low_limit must not be negative")
	}

	return nil
}

// HasEPG reports whether an EPG profile is configured.
func (c *EPGConfig) HasEPG() bool {
	return c.File != "" && c.Source != ""
}
