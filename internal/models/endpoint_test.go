package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternEndpoint_SamePointerForSameURL(t *testing.T) {
	ClearInterned()
	defer ClearInterned()

	a := InternEndpoint("http://example.com/stream.m3u8")
	b := InternEndpoint("http://example.com/stream.m3u8")
	c := InternEndpoint("http://example.com/other.m3u8")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestNewEndpoint_OverwritesMeasurements(t *testing.T) {
	ClearInterned()
	defer ClearInterned()

	a := NewEndpoint("http://example.com/live.flv", 120.5, "1920x1080")
	b := NewEndpoint("http://example.com/live.flv", 0, "")

	assert.Same(t, a, b)
	assert.Equal(t, 120.5, a.Speed())
	assert.Equal(t, "1920x1080", a.Resolution())

	NewEndpoint("http://example.com/live.flv", 88.8, "1280x720")
	assert.Equal(t, 88.8, a.Speed())
	assert.Equal(t, "1280x720", a.Resolution())
}

func TestEndpoint_SetSpeedRoundsToOneDecimal(t *testing.T) {
	ClearInterned()
	defer ClearInterned()

	ep := InternEndpoint("http://example.com/a")
	ep.SetSpeed(123.456)
	assert.Equal(t, 123.5, ep.Speed())

	ep.SetSpeed(99.94)
	assert.Equal(t, 99.9, ep.Speed())
}

func TestEndpoint_SetURLDoesNotRekeyInternTable(t *testing.T) {
	ClearInterned()
	defer ClearInterned()

	ep := InternEndpoint("http://example.com/master.m3u8")
	ep.SetURL("http://example.com/variant/index.m3u8")

	assert.Equal(t, "http://example.com/variant/index.m3u8", ep.URL())

	// The original key still resolves to the same object.
	again := InternEndpoint("http://example.com/master.m3u8")
	assert.Same(t, ep, again)
}
