package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	assert.Equal(t, 5*time.Second, cfg.Probe.RequestTimeout)
	assert.Equal(t, 60*time.Second, cfg.Probe.HardTimeout)
	assert.Equal(t, 3*time.Second, cfg.Probe.NameTimeout)
	assert.Equal(t, 3, cfg.Probe.SegmentTestCount)
	assert.Equal(t, 512, cfg.Probe.BenchmarkChunks)
	assert.Equal(t, 1024, cfg.Probe.BenchmarkChunkSize)
	assert.Equal(t, int64(10*1024*1024), cfg.Probe.MaxManifestSize.Bytes())

	assert.Equal(t, 20, cfg.Checker.Threads)
	assert.Equal(t, 4, cfg.Checker.IOIntensityFactor)

	assert.Equal(t, 100, cfg.Sources.LowLimit)
	assert.NotEmpty(t, cfg.Sources.SitemapURL)
	assert.NotEmpty(t, cfg.Sources.LiveURL)

	assert.Equal(t, "./output/result.txt", cfg.Output.Path)
	assert.Equal(t, "0 0 2 * * *", cfg.Daemon.Cron)
	assert.False(t, cfg.Daemon.RunOnStart)
	assert.False(t, cfg.EPG.HasEPG())
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
  format: json
probe:
  request_timeout: 10s
  hard_timeout: 90s
  max_manifest_size: "5MB"
checker:
  threads: 8
sources:
  low_limit: 50
epg:
  file: "epg.xml"
  source: "http://epg.example/catchup"
  domain: "http://cdn.example/logos"
daemon:
  cron: "0 30 3 * * *"
  run_on_start: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.Probe.RequestTimeout)
	assert.Equal(t, 90*time.Second, cfg.Probe.HardTimeout)
	assert.Equal(t, int64(5*1024*1024), cfg.Probe.MaxManifestSize.Bytes())
	assert.Equal(t, 8, cfg.Checker.Threads)
	assert.Equal(t, 50, cfg.Sources.LowLimit)
	assert.True(t, cfg.EPG.HasEPG())
	assert.Equal(t, "http://cdn.example/logos", cfg.EPG.Domain)
	assert.Equal(t, "0 30 3 * * *", cfg.Daemon.Cron)
	assert.True(t, cfg.Daemon.RunOnStart)

	// Unset sections keep their defaults.
	assert.Equal(t, 3, cfg.Probe.SegmentTestCount)
	assert.Equal(t, "./output/result.txt", cfg.Output.Path)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CHECKARR_CHECKER_THREADS", "4")
	t.Setenv("CHECKARR_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Checker.Threads)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Logging: LoggingConfig{Level: "info", Format: "text"},
			Probe: ProbeConfig{
				RequestTimeout:     5 * time.Second,
				HardTimeout:        60 * time.Second,
				NameTimeout:        3 * time.Second,
				SegmentTestCount:   3,
				BenchmarkChunks:    512,
				BenchmarkChunkSize: 1024,
			},
			Checker: CheckerConfig{Threads: 20, IOIntensityFactor: 4},
			Sources: SourcesConfig{LowLimit: 100},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"request timeout too small", func(c *Config) { c.Probe.RequestTimeout = 2 * time.Second }, "request_timeout"},
		{"hard timeout below request", func(c *Config) { c.Probe.HardTimeout = 3 * time.Second }, "hard_timeout"},
		{"zero segment count", func(c *Config) { c.Probe.SegmentTestCount = 0 }, "segment_test_count"},
		{"zero chunks", func(c *Config) { c.Probe.BenchmarkChunks = 0 }, "benchmark_chunks"},
		{"zero threads", func(c *Config) { c.Checker.Threads = 0 }, "checker.threads"},
		{"zero io factor", func(c *Config) { c.Checker.IOIntensityFactor = 0 }, "io_intensity_factor"},
		{"negative low limit", func(c *Config) { c.Sources.LowLimit = -1 }, "low_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEPGConfig_HasEPG(t *testing.T) {
	assert.False(t, (&EPGConfig{}).HasEPG())
	assert.False(t, (&EPGConfig{File: "epg.xml"}).HasEPG())
	assert.True(t, (&EPGConfig{File: "epg.xml", Source: "http://epg.example"}).HasEPG())
}
