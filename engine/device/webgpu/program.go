package webgpu

import (
	"fmt"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// program is a compiled WGSL program with its group 0 layout and uniform arena.
// Every draw copies the uniform block into its own arena slot, addressed by a dynamic offset.
type program struct {
	vertex   *wgpu.ShaderModule
	fragment *wgpu.ShaderModule
	refl     reflection

	bindGroupLayout *wgpu.BindGroupLayout
	layout          *wgpu.PipelineLayout
	pipelines       map[pipelineKey]*wgpu.RenderPipeline

	uniforms    []byte
	arena       *wgpu.Buffer
	arenaStride uint64
	arenaSlots  int
	cursor      int
	// bindGroups are keyed by the sampled texture handle; NoHandle uses the fallback texture.
	bindGroups map[device.Handle]*wgpu.BindGroup
}

func (p *program) compiled() bool {
	return p != nil && p.layout != nil
}

func (p *program) releaseBindGroups() {
	for h, bg := range p.bindGroups {
		bg.Release()
		delete(p.bindGroups, h)
	}
}

func (p *program) release() {
	if p == nil {
		return
	}
	p.releaseBindGroups()
	for k, rp := range p.pipelines {
		rp.Release()
		delete(p.pipelines, k)
	}
	if p.arena != nil {
		p.arena.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
	}
	if p.fragment != nil && p.fragment != p.vertex {
		p.fragment.Release()
	}
	if p.vertex != nil {
		p.vertex.Release()
	}
	*p = program{}
}

func (d *wgpuDevice) CompileProgram(h device.Handle, src device.ProgramSource) error {
	if k, ok := d.kinds[h]; !ok || k != device.KindProgram {
		return device.NewDeviceError("CompileProgram", device.KindProgram, fmt.Errorf("%w: %d", device.ErrInvalidHandle, h))
	}
	p := d.programs[h]
	p.release()

	if err := d.compile(h, p, src); err != nil {
		p.release()
		return device.NewDeviceError("CompileProgram", device.KindProgram, fmt.Errorf("%w: %v", device.ErrCompile, err))
	}
	d.logger.Debug("program compiled",
		zap.Uint32("handle", uint32(h)),
		zap.String("vertexEntry", p.refl.vertexEntry),
		zap.String("fragmentEntry", p.refl.fragmentEntry),
		zap.Uint64("uniformSize", p.refl.uniformSize))
	return nil
}

func (d *wgpuDevice) compile(h device.Handle, p *program, src device.ProgramSource) error {
	fragmentSrc := src.Fragment
	if strings.TrimSpace(fragmentSrc) == "" {
		fragmentSrc = src.Vertex
	}
	p.refl = reflectProgram(src.Vertex, fragmentSrc)
	if p.refl.vertexEntry == "" {
		return fmt.Errorf("no @vertex entry point")
	}
	if p.refl.fragmentEntry == "" {
		return fmt.Errorf("no @fragment entry point")
	}

	var err error
	label := fmt.Sprintf("Program#%d", h)
	if p.vertex, err = d.shaderModule(label+" vertex", src.Vertex); err != nil {
		return err
	}
	if fragmentSrc == src.Vertex {
		p.fragment = p.vertex
	} else if p.fragment, err = d.shaderModule(label+" fragment", fragmentSrc); err != nil {
		return err
	}

	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(p.refl.bindings))
	for _, rb := range p.refl.bindings {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    rb.binding,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		}
		switch rb.kind {
		case bindingUniform:
			entry.Buffer = wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   p.refl.uniformSize,
			}
		case bindingTexture:
			entry.Texture = wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			}
		case bindingSampler:
			entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
		}
		entries = append(entries, entry)
	}
	if p.bindGroupLayout, err = d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	}); err != nil {
		return err
	}
	if p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.bindGroupLayout},
	}); err != nil {
		return err
	}

	p.uniforms = make([]byte, p.refl.uniformSize)
	p.pipelines = make(map[pipelineKey]*wgpu.RenderPipeline)
	p.bindGroups = make(map[device.Handle]*wgpu.BindGroup)
	if p.refl.uniformSize > 0 {
		p.arenaStride = roundUpAlign(uniformOffsetAlignment, p.refl.uniformSize)
		return d.growArena(p, d.uniformSlots)
	}
	return nil
}

func (d *wgpuDevice) shaderModule(label, code string) (*wgpu.ShaderModule, error) {
	return d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: code,
		},
	})
}

// growArena replaces the uniform arena with one of the given slot count.
// Bind groups referencing the old arena are dropped.
func (d *wgpuDevice) growArena(p *program, slots int) error {
	arena, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Uniform Arena",
		Size:  p.arenaStride * uint64(slots),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	p.releaseBindGroups()
	if p.arena != nil {
		p.arena.Release()
	}
	p.arena, p.arenaSlots, p.cursor = arena, slots, 0
	return nil
}

func (d *wgpuDevice) SetUniform(h device.Handle, name string, value any) {
	if !d.lookup("SetUniform", device.KindProgram, h) {
		return
	}
	p := d.programs[h]
	if !p.compiled() {
		return
	}
	field, ok := p.refl.uniforms[name]
	if !ok {
		return
	}
	data, err := encodeUniform(field, value)
	if err != nil {
		d.fail("SetUniform", device.KindProgram, fmt.Errorf("%w: uniform %q: %v", device.ErrUnsupported, name, err))
		return
	}
	copy(p.uniforms[field.offset:], data)
}

// bindGroup writes the program's uniform block into the next arena slot and returns the bind group
// and dynamic offsets for one draw sampling texture tex.
func (d *wgpuDevice) bindGroup(p *program, tex device.Handle) (*wgpu.BindGroup, []uint32, error) {
	if len(p.refl.bindings) == 0 {
		return nil, nil, nil
	}
	var offsets []uint32
	if p.arena != nil {
		if p.cursor >= p.arenaSlots {
			// submitted slots may be rewritten
			d.flushCommands()
			if err := d.growArena(p, p.arenaSlots*2); err != nil {
				return nil, nil, err
			}
		}
		offset := p.arenaStride * uint64(p.cursor)
		p.cursor++
		if err := d.queue.WriteBuffer(p.arena, offset, p.uniforms); err != nil {
			return nil, nil, err
		}
		offsets = []uint32{uint32(offset)}
	}

	t := d.textures[tex]
	if t == nil || t.view == nil {
		tex = device.NoHandle
	}
	if bg, ok := p.bindGroups[tex]; ok {
		return bg, offsets, nil
	}
	if tex == device.NoHandle {
		var err error
		if t, err = d.whiteTexture(); err != nil {
			return nil, nil, err
		}
	}
	if t.sampler == nil {
		sampler, err := d.createSampler(t.params)
		if err != nil {
			return nil, nil, err
		}
		t.sampler = sampler
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(p.refl.bindings))
	for _, rb := range p.refl.bindings {
		switch rb.kind {
		case bindingUniform:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: rb.binding,
				Buffer:  p.arena,
				Offset:  0,
				Size:    p.refl.uniformSize,
			})
		case bindingTexture:
			entries = append(entries, wgpu.BindGroupEntry{Binding: rb.binding, TextureView: t.view})
		case bindingSampler:
			entries = append(entries, wgpu.BindGroupEntry{Binding: rb.binding, Sampler: t.sampler})
		}
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  p.bindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, nil, err
	}
	p.bindGroups[tex] = bg
	return bg, offsets, nil
}

// whiteTexture returns the 1x1 texture sampled by programs drawn without a texture bound.
func (d *wgpuDevice) whiteTexture() (*gpuTexture, error) {
	if d.white != nil {
		return d.white, nil
	}
	t := &gpuTexture{params: device.TextureParams{}}
	if err := d.createTexture(t, device.TextureImage{Width: 1, Height: 1, Pixels: []byte{255, 255, 255, 255}}); err != nil {
		return nil, err
	}
	d.white = t
	return t, nil
}

// forgetBindGroups drops cached bind groups that sample texture h.
func (d *wgpuDevice) forgetBindGroups(h device.Handle) {
	for _, p := range d.programs {
		if bg, ok := p.bindGroups[h]; ok {
			bg.Release()
			delete(p.bindGroups, h)
		}
	}
}
