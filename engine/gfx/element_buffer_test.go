package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/recorder"
)

func TestElementBuffer_IndexLimitAtCreation(t *testing.T) {
	ctx, rec := newTestContext(t)

	_, err := ctx.CreateElementBuffer("eb", ElementBufferOptions{Indices: make([]uint16, MaxIndices+1)})
	assert.ErrorIs(t, err, ErrIndexLimit)
	assert.Zero(t, rec.LiveCount(device.KindElementBuffer))

	eb, err := ctx.CreateElementBuffer("eb", ElementBufferOptions{Indices: make([]uint16, MaxIndices)})
	require.NoError(t, err)
	assert.Equal(t, MaxIndices, eb.Count())
}

func TestElementBuffer_GrowthTruncatesAtLimit(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	ctx, _ := newTestContext(t, WithLogger(zap.New(core)))
	eb, err := ctx.CreateElementBuffer("eb", ElementBufferOptions{Indices: make([]uint16, MaxIndices-6)})
	require.NoError(t, err)

	n := eb.SetRange(make([]uint16, 10), MaxIndices-6)

	assert.Equal(t, 6, n)
	assert.Equal(t, MaxIndices, eb.Count())
	assert.Equal(t, 1, logs.FilterMessage("index data truncated at the 16-bit index limit").Len())

	assert.Zero(t, eb.SetRange([]uint16{1}, MaxIndices))
	assert.Equal(t, MaxIndices, eb.Count())
}

func TestElementBuffer_Flush(t *testing.T) {
	ctx, rec := newTestContext(t)
	eb, err := ctx.CreateElementBuffer("eb", ElementBufferOptions{Indices: []uint16{0, 1, 2, 2, 3, 0}, Dynamic: true})
	require.NoError(t, err)

	assert.Equal(t, buffer.ActionAllocate, eb.Flush())
	full := rec.CallsOf(recorder.OpUploadFull)
	require.Len(t, full, 1)
	assert.Equal(t, device.KindElementBuffer, full[0].Kind)
	assert.Equal(t, 12, full[0].Size)
	assert.Equal(t, device.UsageDynamic, full[0].Usage)

	eb.Indices()[0] = 7
	assert.Equal(t, buffer.ActionSubrange, eb.Flush())
	assert.Equal(t, uint16(7), eb.Indices()[0])
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindElementBuffer))
	requireNoDeviceErrors(t, rec)
}

func TestElementBuffer_StaticReadsCopy(t *testing.T) {
	ctx, _ := newTestContext(t)
	eb, err := ctx.CreateElementBuffer("eb", ElementBufferOptions{Indices: []uint16{0, 1, 2}})
	require.NoError(t, err)

	eb.Indices()[0] = 9
	assert.Equal(t, []uint16{0, 1, 2}, eb.Indices())
}
