package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMetrics(t *testing.T) {
	t.Helper()
	require.NoError(t, MetricsInitialize())
	metricsState = &MetricsState{}
}

func TestMetricsFrameTimeAverage(t *testing.T) {
	setupMetrics(t)

	// The rolling average only exists once a full window of frames has
	// been folded in.
	for i := 0; i < int(AVG_COUNT)-1; i++ {
		MetricsUpdate(0.016)
	}
	assert.Zero(t, MetricsFrameTime())

	MetricsUpdate(0.016)
	assert.InDelta(t, 16.0, MetricsFrameTime(), 0.001)
}

func TestMetricsFrameTimeTracksRecentFrames(t *testing.T) {
	setupMetrics(t)

	for i := 0; i < int(AVG_COUNT); i++ {
		MetricsUpdate(0.016)
	}
	assert.InDelta(t, 16.0, MetricsFrameTime(), 0.001)

	// A full window of slower frames replaces the old average.
	for i := 0; i < int(AVG_COUNT); i++ {
		MetricsUpdate(0.032)
	}
	assert.InDelta(t, 32.0, MetricsFrameTime(), 0.001)
}

func TestMetricsFPSSnapshotsOncePerSecond(t *testing.T) {
	setupMetrics(t)

	assert.Zero(t, MetricsFPS())

	// 16ms frames cross the one second mark on the 63rd frame, with 62
	// frames counted before it.
	for i := 0; i < 62; i++ {
		MetricsUpdate(0.016)
	}
	assert.Zero(t, MetricsFPS())

	MetricsUpdate(0.016)
	assert.InDelta(t, 62.0, MetricsFPS(), 0.001)
}

func TestMetricsFrameReturnsBothValues(t *testing.T) {
	setupMetrics(t)

	for i := 0; i < 70; i++ {
		MetricsUpdate(0.016)
	}
	fps, frameMS := MetricsFrame()
	assert.InDelta(t, 62.0, fps, 0.001)
	assert.InDelta(t, 16.0, frameMS, 0.001)
}

func TestClockMeasuresElapsedTime(t *testing.T) {
	clock := NewClock()

	// A clock that was never started stays at zero.
	clock.Update()
	assert.Zero(t, clock.Elapsed())

	clock.Start()
	time.Sleep(5 * time.Millisecond)
	clock.Update()
	first := clock.Elapsed()
	assert.Greater(t, first, 0.0)

	// Stopping freezes the elapsed time.
	clock.Stop()
	time.Sleep(2 * time.Millisecond)
	clock.Update()
	assert.Equal(t, first, clock.Elapsed())

	// Restarting resets it.
	clock.Start()
	clock.Update()
	assert.Less(t, clock.Elapsed(), first)
}
