package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/checkarr/internal/config"
)

func TestValidateCron(t *testing.T) {
	assert.NoError(t, ValidateCron("0 0 2 * * *"))
	assert.NoError(t, ValidateCron("*/5 * * * * *"))
	// 5-field expressions are rejected: the seconds column is required.
	assert.Error(t, ValidateCron("0 2 * * *"))
	assert.Error(t, ValidateCron("not a cron"))
}

func TestStart_InvalidExpression(t *testing.T) {
	s := New(config.DaemonConfig{Cron: "bogus"}, func(context.Context) {}, nil)
	assert.Error(t, s.Start(context.Background()))
}

func TestStart_AlreadyStarted(t *testing.T) {
	s := New(config.DaemonConfig{Cron: "0 0 2 * * *"}, func(context.Context) {}, nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Error(t, s.Start(context.Background()))
}

func TestRunOnStart(t *testing.T) {
	var runs atomic.Int32
	s := New(config.DaemonConfig{Cron: "0 0 2 * * *", RunOnStart: true}, func(context.Context) {
		runs.Add(1)
	}, nil)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.Equal(t, int32(1), runs.Load())
}

func TestCronTickFires(t *testing.T) {
	var runs atomic.Int32
	s := New(config.DaemonConfig{Cron: "* * * * * *"}, func(context.Context) {
		runs.Add(1)
	}, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestOverlappingRunsSkipped(t *testing.T) {
	var active, skippedIn atomic.Int32
	block := make(chan struct{})
	s := New(config.DaemonConfig{Cron: "* * * * * *"}, func(context.Context) {
		if active.Add(1) > 1 {
			skippedIn.Add(1)
		}
		<-block
		active.Add(-1)
	}, nil)

	require.NoError(t, s.Start(context.Background()))
	// Let several ticks elapse while the first pass is blocked.
	time.Sleep(2500 * time.Millisecond)
	close(block)
	s.Stop()

	assert.Zero(t, skippedIn.Load())
}

func TestNextRun(t *testing.T) {
	s := New(config.DaemonConfig{Cron: "0 0 2 * * *"}, func(context.Context) {}, nil)
	next, err := s.NextRun()
	require.NoError(t, err)
	assert.True(t, next.After(time.Now()))

	s = New(config.DaemonConfig{Cron: "bogus"}, func(context.Context) {}, nil)
	_, err = s.NextRun()
	assert.Error(t, err)
}
