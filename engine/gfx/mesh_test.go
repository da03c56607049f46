package gfx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/recorder"
)

var quadIndices = []uint16{0, 1, 2, 2, 3, 0}

func TestMesh_StaticUploadsOnceAtCreation(t *testing.T) {
	ctx, rec := newTestContext(t)

	m, err := ctx.CreateMesh("quad", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad(), Indices: quadIndices})
	require.NoError(t, err)

	assert.True(t, m.Indexed())
	assert.False(t, m.Dynamic())
	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, 6, m.IndexCount())
	assert.True(t, m.VertexBuffer().Created())
	assert.True(t, m.ElementBuffer().Created())
	assert.Equal(t, 1, rec.Count(recorder.OpUploadFull, device.KindVertexBuffer))
	assert.Equal(t, 1, rec.Count(recorder.OpUploadFull, device.KindElementBuffer))
	assert.Equal(t, m.VertexArray().HandleID(), m.HandleID())

	rec.Reset()
	m.SetVertices([]float32{0, 0, 0, 0, 0})
	m.SetVertexRange([]float32{1}, 0)
	m.SetIndices([]uint16{0})
	m.SetIndexRange([]uint16{1}, 0)
	m.Flush()
	ctx.FlushMesh("quad")

	assert.Empty(t, rec.Calls())
	assert.Equal(t, quad(), m.Vertices())
	assert.Equal(t, quadIndices, m.Indices())

	v := m.Vertices()
	v[0] = 42
	assert.Equal(t, quad(), m.Vertices())
	requireNoDeviceErrors(t, rec)
}

func TestMesh_DynamicFlushesExplicitly(t *testing.T) {
	ctx, rec := newTestContext(t)

	m, err := ctx.CreateMesh("strip", MeshOptions{AttribLengths: []int{2}, Vertices: []float32{0, 0, 1, 0, 1, 1}, Dynamic: true})
	require.NoError(t, err)
	assert.False(t, m.Indexed())
	assert.Zero(t, rec.Count(recorder.OpUploadFull, device.KindVertexBuffer))

	m.Flush()
	full := rec.CallsOf(recorder.OpUploadFull)
	require.Len(t, full, 1)
	assert.Equal(t, 24, full[0].Size)
	assert.Equal(t, device.UsageDynamic, full[0].Usage)

	rec.Reset()
	m.SetVertexRange([]float32{0, 1}, 6)
	ctx.FlushMesh("strip")
	full = rec.CallsOf(recorder.OpUploadFull)
	require.Len(t, full, 1)
	assert.Equal(t, 32, full[0].Size)
	assert.Equal(t, 4, m.VertexCount())

	m.Vertices()[0] = 5
	assert.Equal(t, float32(5), m.VertexBuffer().Vertices()[0])
	requireNoDeviceErrors(t, rec)
}

func TestMesh_Draw(t *testing.T) {
	ctx, rec := newTestContext(t)
	indexed, err := ctx.CreateMesh("quad", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad(), Indices: quadIndices})
	require.NoError(t, err)
	array, err := ctx.CreateMesh("points", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad()})
	require.NoError(t, err)
	s, err := ctx.CreateShaderFromSource("flat", testProgram)
	require.NoError(t, err)
	s.Bind()
	rec.Reset()

	indexed.Draw(device.PrimitiveTriangles)
	array.Draw(device.PrimitivePoints)
	indexed.DrawRange(device.PrimitiveTriangles, 4, 10)
	indexed.DrawRange(device.PrimitiveTriangles, -2, 3)
	indexed.DrawRange(device.PrimitiveTriangles, 10, 3)
	indexed.DrawRange(device.PrimitiveTriangles, 0, 0)
	array.DrawInstanced(device.PrimitivePoints, 0)
	array.DrawInstanced(device.PrimitivePoints, 3)

	var got []device.DrawCommand
	for _, c := range rec.CallsOf(recorder.OpDraw) {
		got = append(got, c.Draw)
	}
	assert.Equal(t, []device.DrawCommand{
		{Primitive: device.PrimitiveTriangles, Indexed: true, First: 0, Count: 6, Instances: 1},
		{Primitive: device.PrimitivePoints, First: 0, Count: 4, Instances: 1},
		{Primitive: device.PrimitiveTriangles, Indexed: true, First: 4, Count: 2, Instances: 1},
		{Primitive: device.PrimitiveTriangles, Indexed: true, First: 0, Count: 3, Instances: 1},
		{Primitive: device.PrimitivePoints, First: 0, Count: 4, Instances: 3},
	}, got)
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindVertexArray))
	assert.Equal(t, s.HandleID().Handle, rec.Bound(device.KindProgram))
	requireNoDeviceErrors(t, rec)
}

func TestMesh_DrawKeepsBoundArray(t *testing.T) {
	ctx, rec := newTestContext(t)
	m, err := ctx.CreateMesh("quad", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad(), Indices: quadIndices})
	require.NoError(t, err)
	s, err := ctx.CreateShaderFromSource("flat", testProgram)
	require.NoError(t, err)
	s.Bind()
	m.Bind()
	rec.Reset()

	m.Draw(device.PrimitiveTriangles)
	m.Draw(device.PrimitiveTriangles)

	assert.Empty(t, rec.CallsOf(recorder.OpBind))
	assert.Len(t, rec.CallsOf(recorder.OpDraw), 2)
	requireNoDeviceErrors(t, rec)
}

func TestMesh_IndexLimit(t *testing.T) {
	ctx, rec := newTestContext(t)

	_, err := ctx.CreateMesh("big", MeshOptions{AttribLengths: []int{1}, Vertices: make([]float32, MaxIndices+1), Indices: []uint16{0, 1, 2}})
	assert.ErrorIs(t, err, ErrIndexLimit)

	_, err = ctx.CreateMesh("big", MeshOptions{AttribLengths: []int{1}, Vertices: make([]float32, 3), Indices: make([]uint16, MaxIndices+1)})
	assert.ErrorIs(t, err, ErrIndexLimit)

	assert.Empty(t, rec.Calls())

	_, err = ctx.CreateMesh("big", MeshOptions{AttribLengths: []int{1}, Vertices: make([]float32, MaxIndices+1)})
	assert.NoError(t, err)
}

func TestMesh_StaticBuffersRejectDirectMutation(t *testing.T) {
	ctx, rec := newTestContext(t)
	m, err := ctx.CreateMesh("quad", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad(), Indices: quadIndices})
	require.NoError(t, err)
	rec.Reset()

	vb, eb := m.VertexBuffer(), m.ElementBuffer()
	vb.SetRange([]float32{9, 9, 9, 9, 9}, 20)
	vb.SetVertices([]float32{1, 2, 3, 4, 5})
	assert.Equal(t, buffer.ActionNone, vb.Flush())
	assert.Zero(t, eb.SetRange([]uint16{3}, 6))
	eb.SetIndices([]uint16{0, 1, 2})
	assert.Equal(t, buffer.ActionNone, eb.Flush())
	vb.Delete()
	eb.Delete()
	m.VertexArray().Delete()

	assert.Empty(t, rec.Calls())
	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, 6, m.IndexCount())
	assert.Equal(t, quad(), m.Vertices())
	assert.False(t, vb.Deleted())
	assert.False(t, eb.Deleted())

	m.Delete()
	assert.True(t, vb.Deleted())
	assert.True(t, eb.Deleted())
	requireNoDeviceErrors(t, rec)
}

func TestMesh_DynamicBuffersAcceptDirectMutation(t *testing.T) {
	ctx, rec := newTestContext(t)
	m, err := ctx.CreateMesh("strip", MeshOptions{AttribLengths: []int{2}, Vertices: []float32{0, 0, 1, 0}, Dynamic: true})
	require.NoError(t, err)

	m.VertexBuffer().SetRange([]float32{1, 1}, 4)
	assert.Equal(t, buffer.ActionAllocate, m.VertexBuffer().Flush())
	assert.Equal(t, 3, m.VertexCount())

	m.VertexBuffer().Delete()
	assert.False(t, m.VertexBuffer().Deleted())
	requireNoDeviceErrors(t, rec)
}

func TestMesh_IndexedVertexLimit(t *testing.T) {
	ctx, rec := newTestContext(t)
	m, err := ctx.CreateMesh("grid", MeshOptions{AttribLengths: []int{1}, Indices: []uint16{0, 1, 2}, Dynamic: true})
	require.NoError(t, err)

	m.SetVertexRange(make([]float32, 70000), 0)
	assert.Equal(t, MaxIndices, m.VertexCount())

	m.SetVertices(make([]float32, MaxIndices+10))
	assert.Equal(t, MaxIndices, m.VertexCount())

	m.SetVertexRange([]float32{1}, MaxIndices)
	assert.Equal(t, MaxIndices, m.VertexCount())

	m.Flush()
	full := rec.CallsOf(recorder.OpUploadFull)
	require.NotEmpty(t, full)
	assert.Equal(t, MaxIndices*4, full[0].Size)

	array, err := ctx.CreateMesh("line", MeshOptions{AttribLengths: []int{1}, Dynamic: true})
	require.NoError(t, err)
	array.SetVertexRange(make([]float32, 70000), 0)
	assert.Equal(t, 70000, array.VertexCount())
	requireNoDeviceErrors(t, rec)
}

func TestMesh_DeleteReleasesParts(t *testing.T) {
	ctx, rec := newTestContext(t)
	m, err := ctx.CreateMesh("quad", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad(), Indices: quadIndices})
	require.NoError(t, err)
	assert.Nil(t, ctx.VertexBuffer("quad"))
	assert.Nil(t, ctx.ElementBuffer("quad"))
	assert.Nil(t, ctx.VertexArray("quad"))
	assert.True(t, m.VertexBuffer().Owned())
	m.Bind()

	ctx.DeleteMesh("quad")

	assert.True(t, m.Deleted())
	assert.True(t, m.VertexBuffer().Deleted())
	assert.True(t, m.ElementBuffer().Deleted())
	assert.True(t, m.VertexArray().Deleted())
	assert.Nil(t, ctx.Mesh("quad"))
	for _, kind := range []device.Kind{device.KindVertexBuffer, device.KindElementBuffer, device.KindVertexArray} {
		assert.Zero(t, rec.LiveCount(kind), "live %s handles", kind)
		assert.Nil(t, ctx.Cache(kind).Current(), "%s slot", kind)
	}
	requireNoDeviceErrors(t, rec)

	rec.Reset()
	m.Delete()
	m.Draw(device.PrimitiveTriangles)
	assert.Empty(t, rec.Calls())
}

func TestMesh_CreateFailureCleansUp(t *testing.T) {
	ctx, rec := newTestContext(t)
	rec.FailCreate.Add(device.KindVertexArray)

	_, err := ctx.CreateMesh("quad", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad(), Indices: quadIndices})

	assert.ErrorIs(t, err, device.ErrOutOfHandles)
	assert.Nil(t, ctx.Mesh("quad"))
	assert.Zero(t, rec.LiveCount(device.KindVertexBuffer))
	assert.Zero(t, rec.LiveCount(device.KindElementBuffer))
	requireNoDeviceErrors(t, rec)
}

func TestMesh_ReplaceDeletesPrevious(t *testing.T) {
	ctx, rec := newTestContext(t)
	first, err := ctx.CreateMesh("m", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad(), Indices: quadIndices})
	require.NoError(t, err)

	second, err := ctx.CreateMesh("m", MeshOptions{AttribLengths: []int{3, 2}, Vertices: quad()})
	require.NoError(t, err)

	assert.True(t, first.Deleted())
	assert.Same(t, second, ctx.Mesh("m"))
	assert.Equal(t, 1, rec.LiveCount(device.KindVertexArray))
	assert.Zero(t, rec.LiveCount(device.KindElementBuffer))
	requireNoDeviceErrors(t, rec)
}
