package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/recorder"
)

func newVertexArrayFixture(t *testing.T) (*Context, *recorder.Recorder, *VertexBuffer, *ElementBuffer, *VertexArray) {
	t.Helper()
	ctx, rec := newTestContext(t)
	vb, err := ctx.CreateVertexBuffer("vb", VertexBufferOptions{AttribLengths: []int{3, 2}, Vertices: quad()})
	require.NoError(t, err)
	eb, err := ctx.CreateElementBuffer("eb", ElementBufferOptions{Indices: []uint16{0, 1, 2, 2, 3, 0}})
	require.NoError(t, err)
	va, err := ctx.CreateVertexArray("va", vb, eb)
	require.NoError(t, err)
	return ctx, rec, vb, eb, va
}

func TestVertexArray_ConfigureRestoresBindings(t *testing.T) {
	ctx, rec, vb, eb, va := newVertexArrayFixture(t)

	layouts := rec.CallsOf(recorder.OpSetVertexLayout)
	require.Len(t, layouts, 1)
	assert.Equal(t, va.HandleID().Handle, layouts[0].Handle)
	assert.Equal(t, 5, layouts[0].Size)
	assert.Equal(t, vb.Attribs(), layouts[0].Value)

	for _, kind := range []device.Kind{device.KindVertexArray, device.KindVertexBuffer, device.KindElementBuffer} {
		assert.Nil(t, ctx.Cache(kind).Current(), "%s slot", kind)
		assert.Equal(t, device.NoHandle, rec.Bound(kind), "%s slot", kind)
	}
	assert.Same(t, eb, va.attached)
	requireNoDeviceErrors(t, rec)
}

func TestVertexArray_BindAssumesElementBuffer(t *testing.T) {
	ctx, rec, _, eb, va := newVertexArrayFixture(t)
	elements := ctx.Cache(device.KindElementBuffer)
	rec.Reset()

	va.Bind()
	assert.Same(t, eb, elements.Current())
	assert.Equal(t, eb.HandleID().Handle, rec.Bound(device.KindElementBuffer))
	assert.Zero(t, rec.Count(recorder.OpBind, device.KindElementBuffer))

	eb.Bind()
	assert.Zero(t, rec.Count(recorder.OpBind, device.KindElementBuffer))

	va.Unbind()
	assert.Nil(t, elements.Current())
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindElementBuffer))
	requireNoDeviceErrors(t, rec)
}

func TestVertexArray_ElementBindRecordedIntoCurrentArray(t *testing.T) {
	ctx, rec, _, _, va := newVertexArrayFixture(t)
	other, err := ctx.CreateElementBuffer("other", ElementBufferOptions{Indices: []uint16{0, 1, 2}})
	require.NoError(t, err)

	va.Bind()
	other.Bind()
	va.Unbind()
	va.Bind()

	assert.Same(t, other, ctx.Cache(device.KindElementBuffer).Current())
	assert.Equal(t, other.HandleID().Handle, rec.Bound(device.KindElementBuffer))
	requireNoDeviceErrors(t, rec)
}

func TestVertexArray_DeletedElementBufferIsNotAssumed(t *testing.T) {
	ctx, rec, _, eb, va := newVertexArrayFixture(t)

	eb.Delete()
	va.Bind()

	assert.Nil(t, ctx.Cache(device.KindElementBuffer).Current())
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindElementBuffer))
	requireNoDeviceErrors(t, rec)
}

func TestVertexArray_DeletedDefaultElementBufferIsDropped(t *testing.T) {
	ctx, rec, _, _, va := newVertexArrayFixture(t)
	loose, err := ctx.CreateElementBuffer("loose", ElementBufferOptions{Indices: []uint16{0, 1, 2}})
	require.NoError(t, err)

	loose.Bind()
	require.Same(t, loose, ctx.defaultElements)

	ctx.DeleteElementBuffer("loose")
	assert.Nil(t, ctx.defaultElements)

	va.Bind()
	va.Unbind()
	assert.Nil(t, ctx.Cache(device.KindElementBuffer).Current())
	requireNoDeviceErrors(t, rec)
}

func TestVertexArray_DeleteKeepsBuffers(t *testing.T) {
	ctx, rec, vb, eb, va := newVertexArrayFixture(t)
	va.Bind()

	ctx.DeleteVertexArray("va")

	assert.True(t, va.Deleted())
	assert.Nil(t, ctx.VertexArray("va"))
	assert.Nil(t, ctx.Cache(device.KindVertexArray).Current())
	assert.False(t, vb.Deleted())
	assert.False(t, eb.Deleted())
	assert.True(t, rec.Live(device.KindVertexBuffer, vb.HandleID().Handle))
	requireNoDeviceErrors(t, rec)
}

func TestVertexArray_SetBuffersReconfigures(t *testing.T) {
	ctx, rec, _, _, va := newVertexArrayFixture(t)
	positions, err := ctx.CreateVertexBuffer("positions", VertexBufferOptions{AttribLengths: []int{3}, Vertices: []float32{0, 0, 0}})
	require.NoError(t, err)
	rec.Reset()

	va.SetBuffers(positions, nil)

	layouts := rec.CallsOf(recorder.OpSetVertexLayout)
	require.Len(t, layouts, 1)
	assert.Equal(t, 3, layouts[0].Size)
	assert.Nil(t, va.ElementBuffer())
	assert.Nil(t, va.attached)

	va.Bind()
	assert.Nil(t, ctx.Cache(device.KindElementBuffer).Current())
	requireNoDeviceErrors(t, rec)
}
