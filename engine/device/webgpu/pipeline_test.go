package webgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

func TestLayoutKey(t *testing.T) {
	attribs := []device.VertexAttrib{{Slot: 0, Size: 3, Offset: 0}, {Slot: 1, Size: 2, Offset: 3}}
	assert.Equal(t, "5:0/3@0,1/2@3", layoutKey(5, attribs))
	assert.Equal(t, "3:", layoutKey(3, nil))
}

func TestPrimitiveTopology(t *testing.T) {
	topology, ok := primitiveTopology(device.PrimitiveTriangleStrip)
	assert.True(t, ok)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleStrip, topology)
	assert.True(t, isStrip(topology))

	topology, ok = primitiveTopology(device.PrimitiveLines)
	assert.True(t, ok)
	assert.False(t, isStrip(topology))

	_, ok = primitiveTopology(device.PrimitiveTriangleFan)
	assert.False(t, ok)
}

func TestVertexFormat(t *testing.T) {
	format, ok := vertexFormat(2)
	assert.True(t, ok)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, format)

	_, ok = vertexFormat(5)
	assert.False(t, ok)
}

func TestSamplerMapping(t *testing.T) {
	assert.Equal(t, wgpu.FilterModeNearest, filterMode(device.FilterNearest))
	assert.Equal(t, wgpu.FilterModeLinear, filterMode(device.FilterLinear))
	assert.Equal(t, wgpu.AddressModeMirrorRepeat, addressMode(device.WrapMirroredRepeat))
	assert.Equal(t, wgpu.AddressModeClampToEdge, addressMode(device.WrapClampToEdge))
	assert.Equal(t, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst, bufferUsage(device.KindElementBuffer))
}

func TestClampViewport(t *testing.T) {
	x, y, w, h := clampViewport([4]int{0, 0, 800, 600}, 64, 32)
	assert.Equal(t, [4]int{0, 0, 64, 32}, [4]int{x, y, w, h})

	x, y, w, h = clampViewport([4]int{-10, 5, 40, 10}, 64, 32)
	assert.Equal(t, [4]int{0, 5, 30, 10}, [4]int{x, y, w, h})
}
