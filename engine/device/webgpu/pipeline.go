package webgpu

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

const (
	// targetFormat is the color format of textures and render targets.
	targetFormat = wgpu.TextureFormatRGBA8Unorm
	depthFormat  = wgpu.TextureFormatDepth24Plus

	// uniformOffsetAlignment is the minUniformBufferOffsetAlignment of the default limits.
	uniformOffsetAlignment = 256
)

// pipelineKey identifies a render pipeline of a program. Pipelines are created on first use.
type pipelineKey struct {
	layout   string
	topology wgpu.PrimitiveTopology
	strip    bool
	format   wgpu.TextureFormat
	depth    bool
}

// layoutKey encodes a vertex layout as a comparable string, e.g. "5:0/3@0,1/2@3".
func layoutKey(stride int, attribs []device.VertexAttrib) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d:", stride)
	for i, a := range attribs {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d/%d@%d", a.Slot, a.Size, a.Offset)
	}
	return b.String()
}

func (d *wgpuDevice) pipeline(p *program, va *gpuVertexArray, key pipelineKey) (*wgpu.RenderPipeline, error) {
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}

	floatSize := uint64(common.SizeOf[float32]())
	attributes := make([]wgpu.VertexAttribute, 0, len(va.attribs))
	for _, a := range va.attribs {
		format, ok := vertexFormat(a.Size)
		if !ok {
			return nil, fmt.Errorf("%w: attribute %d has %d components", device.ErrUnsupported, a.Slot, a.Size)
		}
		attributes = append(attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         uint64(a.Offset) * floatSize,
			ShaderLocation: uint32(a.Slot),
		})
	}

	primitive := wgpu.PrimitiveState{
		Topology:  key.topology,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpu.CullModeNone,
	}
	if key.strip {
		primitive.StripIndexFormat = wgpu.IndexFormatUint16
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.vertex,
			EntryPoint: p.refl.vertexEntry,
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(va.stride) * floatSize,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes:  attributes,
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.fragment,
			EntryPoint: p.refl.fragmentEntry,
			Targets: []wgpu.ColorTargetState{{
				Format:    key.format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: primitive,
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if key.depth {
		compare := wgpu.CompareFunctionAlways
		if d.depthTest {
			compare = wgpu.CompareFunctionLess
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: d.depthTest,
			DepthCompare:      compare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	rp, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, err
	}
	p.pipelines[key] = rp
	return rp, nil
}

func vertexFormat(size int) (wgpu.VertexFormat, bool) {
	switch size {
	case 1:
		return wgpu.VertexFormatFloat32, true
	case 2:
		return wgpu.VertexFormatFloat32x2, true
	case 3:
		return wgpu.VertexFormatFloat32x3, true
	case 4:
		return wgpu.VertexFormatFloat32x4, true
	default:
		return wgpu.VertexFormatUndefined, false
	}
}

// primitiveTopology maps a primitive onto a WebGPU topology. Triangle fans have no equivalent.
func primitiveTopology(p device.Primitive) (wgpu.PrimitiveTopology, bool) {
	switch p {
	case device.PrimitivePoints:
		return wgpu.PrimitiveTopologyPointList, true
	case device.PrimitiveLines:
		return wgpu.PrimitiveTopologyLineList, true
	case device.PrimitiveLineStrip:
		return wgpu.PrimitiveTopologyLineStrip, true
	case device.PrimitiveTriangles:
		return wgpu.PrimitiveTopologyTriangleList, true
	case device.PrimitiveTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip, true
	default:
		return wgpu.PrimitiveTopologyTriangleList, false
	}
}

func isStrip(t wgpu.PrimitiveTopology) bool {
	return t == wgpu.PrimitiveTopologyLineStrip || t == wgpu.PrimitiveTopologyTriangleStrip
}

func bufferUsage(kind device.Kind) wgpu.BufferUsage {
	if kind == device.KindElementBuffer {
		return wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	}
	return wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
}

func filterMode(f device.FilterMode) wgpu.FilterMode {
	if f == device.FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func addressMode(w device.WrapMode) wgpu.AddressMode {
	switch w {
	case device.WrapRepeat:
		return wgpu.AddressModeRepeat
	case device.WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeClampToEdge
	}
}

// clampViewport intersects a viewport with the target bounds.
func clampViewport(vp [4]int, width, height int) (x, y, w, h int) {
	x, y = max(vp[0], 0), max(vp[1], 0)
	w = min(vp[0]+vp[2], width) - x
	h = min(vp[1]+vp[3], height) - y
	return x, y, w, h
}
