package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/recorder"
)

func TestVertexBuffer_FlushLifecycle(t *testing.T) {
	ctx, rec := newTestContext(t)
	vertices := make([]float32, 20)
	for i := range vertices {
		vertices[i] = float32(i)
	}

	vb, err := ctx.CreateVertexBuffer("v1", VertexBufferOptions{
		AttribLengths: []int{3, 2},
		VertexCount:   4,
		Vertices:      vertices,
	})
	require.NoError(t, err)
	assert.False(t, vb.Created())
	assert.Equal(t, 4, vb.VertexCount())
	assert.Equal(t, 5, vb.Stride())
	assert.Empty(t, rec.CallsOf(recorder.OpUploadFull))

	assert.Equal(t, buffer.ActionAllocate, vb.Flush())
	full := rec.CallsOf(recorder.OpUploadFull)
	require.Len(t, full, 1)
	assert.Equal(t, 80, full[0].Size)
	assert.Equal(t, device.UsageStatic, full[0].Usage)
	assert.True(t, vb.Created())
	assert.Equal(t, 20, vb.Allocated())
	assert.Equal(t, 80, rec.StorageSize(vb.HandleID().Handle))
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindVertexBuffer))

	rec.Reset()
	vb.SetRange([]float32{9, 9, 9}, 5)
	assert.Equal(t, buffer.ActionSubrange, vb.Flush())
	assert.Empty(t, rec.CallsOf(recorder.OpUploadFull))
	sub := rec.CallsOf(recorder.OpUploadSubrange)
	require.Len(t, sub, 1)
	assert.Equal(t, 0, sub[0].Offset)
	assert.Equal(t, 80, sub[0].Size)

	rec.Reset()
	vb.SetRange(make([]float32, 5), 20)
	assert.Equal(t, buffer.ActionAllocate, vb.Flush())
	full = rec.CallsOf(recorder.OpUploadFull)
	require.Len(t, full, 1)
	assert.Equal(t, 100, full[0].Size)
	assert.Equal(t, 5, vb.VertexCount())

	rec.Reset()
	vb.SetVertices(nil)
	assert.Equal(t, buffer.ActionRelease, vb.Flush())
	assert.Len(t, rec.CallsOf(recorder.OpReleaseStorage), 1)
	assert.False(t, vb.Created())
	requireNoDeviceErrors(t, rec)
}

func TestVertexBuffer_FlushRestoresPreviousBinding(t *testing.T) {
	ctx, rec := newTestContext(t)
	a, err := ctx.CreateVertexBuffer("a", VertexBufferOptions{AttribLengths: []int{2}, Vertices: []float32{1, 2}})
	require.NoError(t, err)
	b, err := ctx.CreateVertexBuffer("b", VertexBufferOptions{AttribLengths: []int{2}, Vertices: []float32{3, 4}})
	require.NoError(t, err)

	a.Bind()
	b.Flush()

	assert.Same(t, a, ctx.Cache(device.KindVertexBuffer).Current())
	assert.Equal(t, a.HandleID().Handle, rec.Bound(device.KindVertexBuffer))
	assert.Zero(t, ctx.Cache(device.KindVertexBuffer).Depth())

	rec.Reset()
	a.Flush()
	assert.Empty(t, rec.CallsOf(recorder.OpBind))
	requireNoDeviceErrors(t, rec)
}

func TestVertexBuffer_BindIsIdempotent(t *testing.T) {
	ctx, rec := newTestContext(t)
	vb, err := ctx.CreateVertexBuffer("vb", VertexBufferOptions{AttribLengths: []int{3}})
	require.NoError(t, err)

	vb.Bind()
	vb.Bind()
	ctx.BindVertexBuffer("vb")

	assert.Equal(t, 1, rec.Count(recorder.OpBind, device.KindVertexBuffer))

	vb.Unbind()
	vb.Unbind()
	assert.Equal(t, 2, rec.Count(recorder.OpBind, device.KindVertexBuffer))
}

func TestVertexBuffer_ReplaceReleasesPrevious(t *testing.T) {
	ctx, rec := newTestContext(t)
	first, err := ctx.CreateVertexBuffer("v1", VertexBufferOptions{AttribLengths: []int{3}, Vertices: []float32{1, 2, 3}})
	require.NoError(t, err)
	first.Bind()

	second, err := ctx.CreateVertexBuffer("v1", VertexBufferOptions{AttribLengths: []int{3}})
	require.NoError(t, err)

	assert.True(t, first.Deleted())
	assert.False(t, rec.Live(device.KindVertexBuffer, first.HandleID().Handle))
	assert.Same(t, second, ctx.VertexBuffer("v1"))
	assert.Nil(t, ctx.Cache(device.KindVertexBuffer).Current())
	requireNoDeviceErrors(t, rec)
}

func TestVertexBuffer_DeleteWhileBound(t *testing.T) {
	ctx, rec := newTestContext(t)
	vb, err := ctx.CreateVertexBuffer("vb", VertexBufferOptions{AttribLengths: []int{3}, Vertices: []float32{1, 2, 3}})
	require.NoError(t, err)
	vb.Flush()
	vb.Bind()

	vb.Delete()

	assert.Nil(t, ctx.Cache(device.KindVertexBuffer).Current())
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindVertexBuffer))
	assert.Nil(t, ctx.VertexBuffer("vb"))
	assert.False(t, vb.Created())
	requireNoDeviceErrors(t, rec)

	rec.Reset()
	vb.Delete()
	vb.Bind()
	assert.Equal(t, buffer.ActionNone, vb.Flush())
	assert.Empty(t, rec.Calls())
}

func TestVertexBuffer_InvalidLayout(t *testing.T) {
	ctx, rec := newTestContext(t)

	for name, opts := range map[string]VertexBufferOptions{
		"no attributes":   {},
		"zero components": {AttribLengths: []int{3, 0}},
		"five components": {AttribLengths: []int{5}},
		"partial vertex":  {AttribLengths: []int{3, 2}, Vertices: make([]float32, 7)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ctx.CreateVertexBuffer("vb", opts)
			assert.ErrorIs(t, err, ErrInvalidLayout)
		})
	}
	assert.Zero(t, rec.LiveCount(device.KindVertexBuffer))
}

func TestVertexBuffer_ReadSemantics(t *testing.T) {
	ctx, _ := newTestContext(t)
	static, err := ctx.CreateVertexBuffer("static", VertexBufferOptions{AttribLengths: []int{2}, Vertices: []float32{1, 2}})
	require.NoError(t, err)
	dynamic, err := ctx.CreateVertexBuffer("dynamic", VertexBufferOptions{AttribLengths: []int{2}, Vertices: []float32{1, 2}, Dynamic: true})
	require.NoError(t, err)

	s := static.Vertices()
	s[0] = 42
	assert.Equal(t, []float32{1, 2}, static.Vertices())

	d := dynamic.Vertices()
	d[0] = 42
	assert.Equal(t, []float32{42, 2}, dynamic.Vertices())
	assert.Equal(t, device.UsageDynamic, dynamic.Usage())
}

func TestVertexBuffer_Attribs(t *testing.T) {
	ctx, _ := newTestContext(t)
	vb, err := ctx.CreateVertexBuffer("vb", VertexBufferOptions{AttribLengths: []int{3, 2, 4}})
	require.NoError(t, err)

	assert.Equal(t, []device.VertexAttrib{
		{Slot: 0, Size: 3, Offset: 0},
		{Slot: 1, Size: 2, Offset: 3},
		{Slot: 2, Size: 4, Offset: 5},
	}, vb.Attribs())
	assert.Equal(t, 9, vb.Stride())
}
