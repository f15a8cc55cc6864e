package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Bytes(tt.bytes))
	}
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "1,234,567", Number(1234567))
	assert.Equal(t, "42", Number(42))
}

func TestNumberCompact(t *testing.T) {
	assert.Equal(t, "999", NumberCompact(999))
	assert.Equal(t, "1.2K", NumberCompact(1234))
	assert.Equal(t, "1.2M", NumberCompact(1234567))
	assert.Equal(t, "2.5B", NumberCompact(2_500_000_000))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "45.7%", Percentage(45.678, 1))
	assert.Equal(t, "100%", Percentage(100, 0))
}

func TestCronDescription(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"0 0 2 * * *", "Daily at 2AM"},
		{"0 * * * * *", "Every minute"},
		{"0 0 * * * *", "Every hour"},
		{"0 30 * * * *", "Every hour at :30"},
		{"*/15 * * * * *", "Every 15 seconds"},
		{"0 */5 * * * *", "Every 5 minutes"},
		{"0 0 2 * * 1", "Mondays at 2AM"},
		{"not-a-cron", "not-a-cron"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, CronDescription(tt.expr))
		})
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", RelativeTime(now.Add(-2*time.Second)))
	assert.Contains(t, RelativeTime(now.Add(-5*time.Minute)), "minute")
	assert.Contains(t, RelativeTime(now.Add(2*time.Hour)), "hour")
}
