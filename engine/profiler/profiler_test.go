package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Carmen-Shannon/oxy-gl/engine/bindcache"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/recorder"
	"github.com/Carmen-Shannon/oxy-gl/engine/gfx"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func newTestProfiler(t *testing.T) (*Profiler, *fakeClock, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithLogger(zap.New(core)), WithInterval(time.Second))
	p.now = clock.now
	p.lastTime = clock.t
	return p, clock, logs
}

func TestProfiler_TickWaitsForInterval(t *testing.T) {
	p, clock, logs := newTestProfiler(t)

	for range 29 {
		clock.t = clock.t.Add(10 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	assert.Zero(t, logs.Len())

	clock.t = time.Unix(0, 0).Add(2 * time.Second)
	require.True(t, p.Tick())
	assert.InDelta(t, 15.0, p.Last().FPS, 0.001)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "frame stats", entry.Message)
	assert.Equal(t, "profiler", entry.LoggerName)
	assert.InDelta(t, 15.0, entry.ContextMap()["fps"], 0.001)

	clock.t = clock.t.Add(100 * time.Millisecond)
	assert.False(t, p.Tick(), "the frame counter restarts after a sample")
}

func TestProfiler_DrainsSources(t *testing.T) {
	p, clock, logs := newTestProfiler(t)
	ctx := gfx.NewContext(recorder.New(), gfx.WithName("main"))
	p.Track(ctx)

	vb, err := ctx.CreateVertexBuffer("vb", gfx.VertexBufferOptions{AttribLengths: []int{2}, Vertices: []float32{0, 0, 1, 0, 1, 1}})
	require.NoError(t, err)
	vb.Flush()
	vb.Bind()
	vb.Bind()

	clock.t = clock.t.Add(time.Second)
	require.True(t, p.Tick())

	s := p.Last()
	assert.Equal(t, 1, s.Uploads.Full)
	assert.Equal(t, 24, s.Uploads.Bytes)
	assert.Positive(t, s.Binds.Binds)
	assert.Positive(t, s.Binds.Skipped)
	fields := logs.All()[0].ContextMap()
	assert.EqualValues(t, 1, fields["uploadsFull"])
	assert.EqualValues(t, 24, fields["uploadBytes"])

	assert.Equal(t, bindcache.Stats{}, ctx.ResetBindStats())
	assert.Equal(t, gfx.UploadStats{}, ctx.ResetUploadStats())
}
