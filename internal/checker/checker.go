// Package checker orchestrates batch validation runs: probing candidate
// URLs generated from a template, and revalidating every endpoint already
// held by the channel registry. Progress is reported through task records.
package checker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/jmylchreest/checkarr/internal/config"
	"github.com/jmylchreest/checkarr/internal/models"
	"github.com/jmylchreest/checkarr/internal/observability"
	"github.com/jmylchreest/checkarr/internal/probe"
	"github.com/jmylchreest/checkarr/internal/registry"
	"github.com/jmylchreest/checkarr/internal/task"
)

// Placeholder is the substring in a URL template replaced by the channel id.
const Placeholder = "{i}"

const exportTimeFormat = "2006-01-02 15:04:05"

var (
	// ErrInvalidTemplate indicates a batch URL template without the {i}
	// placeholder.
	ErrInvalidTemplate = errors.New("url template missing {i} placeholder")

	// ErrTooFewChannels indicates an ingest that produced fewer channels
	// than the configured low-water mark.
	ErrTooFewChannels = errors.New("too few channels ingested")
)

// Checker runs batch validation against a shared registry and task store.
type Checker struct {
	cfg      config.CheckerConfig
	prober   *probe.Prober
	registry *registry.Registry
	tasks    *task.Registry
	logger   *slog.Logger
}

// New creates a checker bound to its collaborators.
func New(cfg config.CheckerConfig, prober *probe.Prober, reg *registry.Registry, tasks *task.Registry, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		cfg:      cfg,
		prober:   prober,
		registry: reg,
		tasks:    tasks,
		logger:   observability.WithComponent(logger, "checker"),
	}
}

// poolSize bounds the worker count by the machine's IO capacity:
// logical CPUs times the IO intensity factor, plus one.
func (c *Checker) poolSize(ctx context.Context, threads int) int {
	cpus, err := cpu.CountsWithContext(ctx, true)
	if err != nil || cpus < 1 {
		cpus = runtime.NumCPU()
	}
	limit := cpus*c.cfg.IOIntensityFactor + 1
	if threads < 1 || threads > limit {
		return limit
	}
	return threads
}

type job struct {
	channel  *models.Channel
	endpoint *models.Endpoint
}

// CheckBatch probes size consecutive candidate URLs generated from tmpl by
// substituting ids start..start+size-1 for the {i} placeholder. Channels
// that validate are admitted to the registry under their default group.
// Task progress is patched per completion. Returns the success count.
func (c *Checker) CheckBatch(ctx context.Context, tmpl string, start, size, threads int, deep bool, taskID string) (int, error) {
	if !strings.Contains(tmpl, Placeholder) {
		return 0, ErrInvalidTemplate
	}

	logger := observability.WithTaskID(c.logger, taskID)
	done := observability.TimedOperation(ctx, logger, "check batch")
	defer done()

	jobs := make(chan job)
	go func() {
		defer close(jobs)
		for i := start; i < start+size; i++ {
			id := strconv.Itoa(i)
			j := job{
				channel:  models.NewChannel(id, ""),
				endpoint: models.InternEndpoint(strings.ReplaceAll(tmpl, Placeholder, id)),
			}
			select {
			case jobs <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	success := c.run(ctx, jobs, c.poolSize(ctx, threads), deep, taskID, func(j job) {
		j.channel.AddURL(j.endpoint)
		c.registry.AddChannel("", j.channel)
	}, nil)

	c.registry.Sort()
	return success, nil
}

// UpdateBatchLive revalidates every endpoint currently held by non-ignored
// groups, pruning endpoints that fail. Results are written to outputPath
// (TXT) and its sibling .m3u; write failures are logged but do not fail the
// task. Returns the success count.
func (c *Checker) UpdateBatchLive(ctx context.Context, threads int, deep bool, taskID string, outputPath string) (int, error) {
	logger := observability.WithTaskID(c.logger, taskID)
	done := observability.TimedOperation(ctx, logger, "update batch")
	defer done()

	var pending []job
	cats := c.registry.Categories()
	for _, group := range c.registry.Groups() {
		if cats.IsIgnored(group) {
			continue
		}
		list := c.registry.ChannelList(group)
		if list == nil {
			continue
		}
		for _, ch := range list.Sorted() {
			for _, ep := range ch.URLs() {
				pending = append(pending, job{channel: ch, endpoint: ep})
			}
		}
	}

	// The live container can change between task creation and enumeration.
	total := len(pending)
	if err := c.tasks.Apply(taskID, func(t *models.Task) {
		if t.Total != total {
			logger.Warn("endpoint count changed since task creation",
				slog.Int("expected", t.Total),
				slog.Int("actual", total))
			t.Total = total
		}
	}); err != nil {
		return 0, err
	}

	jobs := make(chan job)
	go func() {
		defer close(jobs)
		for _, j := range pending {
			select {
			case jobs <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	success := c.run(ctx, jobs, c.poolSize(ctx, threads), deep, taskID, nil, func(j job) {
		j.channel.RemoveURL(j.endpoint)
	})

	if outputPath != "" {
		c.WriteResults(outputPath)
	}
	return success, nil
}

// EnsureMinimum aborts an update whose ingest produced too few channels,
// clearing the registry so a partial snapshot never replaces the live set.
func (c *Checker) EnsureMinimum(limit int) error {
	if total := c.registry.TotalCount(); total <= limit {
		c.registry.Clear()
		return fmt.Errorf("%w: %d <= %d", ErrTooFewChannels, total, limit)
	}
	return nil
}

// run drains jobs with a bounded worker pool, invoking onSuccess/onFailure
// per verdict and patching the task record per completion.
func (c *Checker) run(ctx context.Context, jobs <-chan job, workers int, deep bool, taskID string, onSuccess, onFailure func(job)) int {
	var success atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				ok := c.prober.Check(ctx, j.channel, j.endpoint, deep)
				if ok && onSuccess != nil {
					onSuccess(j)
				}
				if !ok && onFailure != nil {
					onFailure(j)
				}
				if ok {
					success.Add(1)
				}

				// Counters are bumped inside Apply so the increment and the
				// record write share one critical section; a wider snapshot
				// could land after a newer one and leave the final counts
				// short of the total.
				if err := c.tasks.Apply(taskID, func(t *models.Task) {
					t.Processed++
					if ok {
						t.Success++
					}
				}); err != nil {
					c.logger.Debug("task progress update failed", slog.Any("error", err))
				}
			}
		}()
	}
	wg.Wait()

	return int(success.Load())
}

// WriteResults exports the registry as TXT plus a sibling M3U, each led by
// an export timestamp comment. Failures are logged, never fatal.
func (c *Checker) WriteResults(outputPath string) {
	stamp := fmt.Sprintf("# 频道数据导出时间: %s\n", time.Now().Format(exportTimeFormat))

	write := func(path string, serialize func() string) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			c.logger.Error("create output directory failed", slog.String("path", path), slog.Any("error", err))
			return
		}
		if err := os.WriteFile(path, []byte(stamp+serialize()), 0o644); err != nil {
			c.logger.Error("write result file failed", slog.String("path", path), slog.Any("error", err))
			return
		}
		c.logger.Info("result file written", slog.String("path", path))
	}

	write(outputPath, c.registry.SerializeTXT)

	ext := filepath.Ext(outputPath)
	m3uPath := strings.TrimSuffix(outputPath, ext) + ".m3u"
	write(m3uPath, c.registry.SerializeM3U)
}
