package merge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/checkarr/internal/category"
	"github.com/jmylchreest/checkarr/internal/ingest"
)

func TestTopHosts(t *testing.T) {
	m := New([]ingest.Triple{
		{Category: "体育频道", Name: "a", URL: "http://h1/1"},
		{Category: "体育频道", Name: "b", URL: "http://h1/2"},
		{Category: "体育频道", Name: "c", URL: "http://h2/1"},
		{Category: "体育频道", Name: "d", URL: "rtsp://h3/1"},
		{Category: "体育频道", Name: "e", URL: "no-scheme"},
	}, category.NewManager())

	top := m.TopHosts(2)
	require.Len(t, top, 2)
	assert.Equal(t, HostCount{Host: "h1", Count: 2}, top[0])
	// Count tie between h2 and h3 breaks on host name.
	assert.Equal(t, HostCount{Host: "h2", Count: 1}, top[1])
}

func TestTopHosts_NLargerThanHosts(t *testing.T) {
	m := New([]ingest.Triple{
		{Category: "体育频道", Name: "a", URL: "http://h1/1"},
	}, category.NewManager())
	assert.Len(t, m.TopHosts(5), 1)
}

func TestFormat_TopNWithIgnoredBypass(t *testing.T) {
	cats := category.NewManager()
	m := New([]ingest.Triple{
		{Category: "体育频道", Name: "x", URL: "http://h1/1"},
		{Category: "体育频道", Name: "y", URL: "http://h1/2"},
		{Category: "体育频道", Name: "z", URL: "http://h2/1"},
		{Category: "港台频道", Name: "q", URL: "http://h3/1"},
	}, cats)

	out := m.Format(1)

	assert.Contains(t, out, "#h1: 2\n")
	assert.Contains(t, out, "x,http://h1/1")
	assert.Contains(t, out, "y,http://h1/2")
	// z's host missed the top-1 cut.
	assert.NotContains(t, out, "z,http://h2/1")
	// Ignored categories bypass the host filter.
	assert.Contains(t, out, "q,http://h3/1")

	// Category lines carry the descriptor icon.
	sports := cats.Get("体育频道")
	require.NotNil(t, sports)
	assert.Contains(t, out, sports.Icon+"体育频道,#genre#")
}

func TestFormat_SectionShape(t *testing.T) {
	cats := category.NewManager()
	m := New([]ingest.Triple{
		{Category: "体育频道", Name: "x", URL: "http://h1/1"},
	}, cats)

	lines := strings.Split(m.Format(1), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "#========================", lines[0])
	assert.Equal(t, "#h1: 1", lines[1])
	assert.Equal(t, "#========================", lines[2])
	assert.True(t, strings.HasSuffix(lines[3], "体育频道,#genre#"))
	assert.Equal(t, "x,http://h1/1", lines[4])
	assert.Equal(t, "", lines[5])
}

func TestFormat_EmptyInput(t *testing.T) {
	m := New(nil, category.NewManager())
	assert.Equal(t, "#========================\n#========================", m.Format(3))
}

func TestFormat_CategoriesInFirstAppearanceOrder(t *testing.T) {
	cats := category.NewManager()
	m := New([]ingest.Triple{
		{Category: "卫视频道", Name: "a", URL: "http://h1/1"},
		{Category: "央视频道", Name: "b", URL: "http://h1/2"},
		{Category: "卫视频道", Name: "c", URL: "http://h1/3"},
	}, cats)

	out := m.Format(1)
	assert.Less(t, strings.Index(out, "卫视频道,#genre#"), strings.Index(out, "央视频道,#genre#"))
}
