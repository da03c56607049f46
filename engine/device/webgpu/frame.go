package webgpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// frame holds the command stream recorded between BeginFrame and EndFrame.
type frame struct {
	surfaceTexture *wgpu.Texture
	view           *wgpu.TextureView
	encoder        *wgpu.CommandEncoder
	pass           *wgpu.RenderPassEncoder
	// target is the framebuffer the open pass draws into; NoHandle is the window.
	target device.Handle
	// recorded is set once a pass was opened since the last submit.
	recorded bool
}

// target describes the attachments of the bound draw target.
type target struct {
	color  *wgpu.TextureView
	depth  *wgpu.TextureView
	format wgpu.TextureFormat
	width  int
	height int
}

// Resize reconfigures the surface and its depth attachment. Empty sizes, as reported for minimized
// windows, are ignored.
//
// Parameters:
//   - width, height: the new framebuffer size in pixels
//
// Returns:
//   - error: error if the surface reports no usable format or the depth texture cannot be created
func (d *wgpuDevice) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	capabilities := d.surface.GetCapabilities(d.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return errors.New("surface reports no supported format")
	}
	d.surfaceFormat = capabilities.Formats[0]
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	tex, view, err := d.createDepthTexture(width, height)
	if err != nil {
		return fmt.Errorf("failed to create depth texture: %w", err)
	}
	if d.depthView != nil {
		d.depthView.Release()
		d.depthTexture.Release()
	}
	d.depthTexture, d.depthView = tex, view
	d.surfaceWidth, d.surfaceHeight = width, height
	return nil
}

// BeginFrame acquires the next surface texture and starts recording commands.
func (d *wgpuDevice) BeginFrame() error {
	if d.frame.view != nil {
		return errors.New("previous frame not yet ended")
	}
	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	d.frame.surfaceTexture, d.frame.view = surfaceTexture, view
	return d.ensureEncoder()
}

// EndFrame submits the recorded commands and presents the surface texture.
func (d *wgpuDevice) EndFrame() error {
	err := d.submit()
	if d.frame.surfaceTexture != nil {
		d.surface.Present()
		d.frame.view.Release()
		d.frame.surfaceTexture.Release()
		d.frame.view, d.frame.surfaceTexture = nil, nil
	}
	return err
}

func (d *wgpuDevice) abandonFrame() {
	d.endPass()
	if d.frame.encoder != nil {
		d.frame.encoder.Release()
	}
	if d.frame.view != nil {
		d.frame.view.Release()
		d.frame.surfaceTexture.Release()
	}
	d.frame = frame{}
}

func (d *wgpuDevice) ensureEncoder() error {
	if d.frame.encoder != nil {
		return nil
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	d.frame.encoder = encoder
	return nil
}

func (d *wgpuDevice) endPass() {
	if d.frame.pass == nil {
		return
	}
	d.frame.pass.End()
	d.frame.pass.Release()
	d.frame.pass = nil
}

// submit ends the open pass and submits everything recorded so far. Uniform arenas are reusable afterwards.
func (d *wgpuDevice) submit() error {
	d.endPass()
	if d.frame.encoder == nil {
		return nil
	}
	encoder := d.frame.encoder
	d.frame.encoder, d.frame.recorded = nil, false
	defer encoder.Release()

	commands, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	d.queue.Submit(commands)
	commands.Release()
	for _, p := range d.programs {
		p.cursor = 0
	}
	return nil
}

// flushCommands submits recorded work and keeps recording, so that queue writes issued next are
// not observed by draws recorded before them.
func (d *wgpuDevice) flushCommands() {
	if !d.frame.recorded {
		return
	}
	if err := d.submit(); err != nil {
		d.fail("Submit", device.KindFramebuffer, err)
	}
	if err := d.ensureEncoder(); err != nil {
		d.fail("Submit", device.KindFramebuffer, err)
	}
}

// currentTarget resolves the bound framebuffer, or the window surface when none is bound.
func (d *wgpuDevice) currentTarget() (target, error) {
	fb := d.bound[device.KindFramebuffer]
	if fb == device.NoHandle {
		if d.frame.view == nil {
			return target{}, ErrNoFrame
		}
		return target{color: d.frame.view, depth: d.depthView, format: d.surfaceFormat, width: d.surfaceWidth, height: d.surfaceHeight}, nil
	}
	f := d.framebuffers[fb]
	t := d.textures[f.color]
	if t == nil || t.view == nil {
		return target{}, fmt.Errorf("%w: framebuffer %d has no color attachment", device.ErrInvalidHandle, fb)
	}
	out := target{color: t.view, format: targetFormat, width: f.width, height: f.height}
	if rb := d.renderbuffers[f.depth]; rb != nil {
		out.depth = rb.view
	}
	return out, nil
}

// beginPass opens a pass on the bound target, clearing it when clear is set.
func (d *wgpuDevice) beginPass(t target, clear *wgpu.Color) error {
	d.endPass()
	if err := d.ensureEncoder(); err != nil {
		return err
	}
	color := wgpu.RenderPassColorAttachment{
		View:    t.color,
		LoadOp:  wgpu.LoadOpLoad,
		StoreOp: wgpu.StoreOpStore,
	}
	if clear != nil {
		color.LoadOp, color.ClearValue = wgpu.LoadOpClear, *clear
	}
	desc := &wgpu.RenderPassDescriptor{ColorAttachments: []wgpu.RenderPassColorAttachment{color}}
	if t.depth != nil {
		depth := &wgpu.RenderPassDepthStencilAttachment{
			View:            t.depth,
			DepthLoadOp:     wgpu.LoadOpLoad,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
		if clear != nil {
			depth.DepthLoadOp = wgpu.LoadOpClear
		}
		desc.DepthStencilAttachment = depth
	}
	d.frame.pass = d.frame.encoder.BeginRenderPass(desc)
	d.frame.target = d.bound[device.KindFramebuffer]
	d.frame.recorded = true
	d.applyViewport(t)
	return nil
}

func (d *wgpuDevice) applyViewport(t target) {
	x, y, w, h := clampViewport(d.viewport, t.width, t.height)
	if w <= 0 || h <= 0 {
		x, y, w, h = 0, 0, t.width, t.height
	}
	d.frame.pass.SetViewport(float32(x), float32(y), float32(w), float32(h), 0, 1)
}

func (d *wgpuDevice) Clear(r, g, b, a float32) {
	t, err := d.currentTarget()
	if err != nil {
		d.fail("Clear", device.KindFramebuffer, err)
		return
	}
	if err := d.beginPass(t, &wgpu.Color{R: float64(r), G: float64(g), B: float64(b), A: float64(a)}); err != nil {
		d.fail("Clear", device.KindFramebuffer, err)
	}
}

func (d *wgpuDevice) Viewport(x, y, width, height int) {
	d.viewport = [4]int{x, y, width, height}
	if d.frame.pass == nil {
		return
	}
	if t, err := d.currentTarget(); err == nil {
		d.applyViewport(t)
	}
}

func (d *wgpuDevice) Draw(cmd device.DrawCommand) {
	if cmd.Count <= 0 {
		return
	}
	p := d.programs[d.bound[device.KindProgram]]
	if !p.compiled() {
		d.fail("Draw", device.KindProgram, fmt.Errorf("%w: no compiled program bound", device.ErrInvalidHandle))
		return
	}
	va := d.vertexArrays[d.bound[device.KindVertexArray]]
	if va == nil {
		d.fail("Draw", device.KindVertexArray, fmt.Errorf("%w: no vertex array bound", device.ErrInvalidHandle))
		return
	}
	vb := d.buffers[va.vertexBuffer]
	if vb == nil || vb.buf == nil {
		d.fail("Draw", device.KindVertexBuffer, fmt.Errorf("%w: vertex array has no vertex storage", device.ErrInvalidHandle))
		return
	}
	var eb *gpuBuffer
	if cmd.Indexed {
		if eb = d.buffers[d.bound[device.KindElementBuffer]]; eb == nil || eb.buf == nil {
			d.fail("Draw", device.KindElementBuffer, fmt.Errorf("%w: indexed draw without element storage", device.ErrInvalidHandle))
			return
		}
	}
	topology, ok := primitiveTopology(cmd.Primitive)
	if !ok {
		d.fail("Draw", device.KindProgram, fmt.Errorf("%w: primitive %s", device.ErrUnsupported, cmd.Primitive))
		return
	}
	t, err := d.currentTarget()
	if err != nil {
		d.fail("Draw", device.KindFramebuffer, err)
		return
	}

	pipeline, err := d.pipeline(p, va, pipelineKey{
		layout:   layoutKey(va.stride, va.attribs),
		topology: topology,
		strip:    cmd.Indexed && isStrip(topology),
		format:   t.format,
		depth:    t.depth != nil,
	})
	if err != nil {
		d.fail("Draw", device.KindProgram, err)
		return
	}
	bg, offsets, err := d.bindGroup(p, d.bound[device.KindTexture])
	if err != nil {
		d.fail("Draw", device.KindProgram, err)
		return
	}
	if d.frame.pass == nil || d.frame.target != d.bound[device.KindFramebuffer] {
		if err := d.beginPass(t, nil); err != nil {
			d.fail("Draw", device.KindFramebuffer, err)
			return
		}
	}

	pass := d.frame.pass
	instances := uint32(max(cmd.Instances, 1))
	pass.SetPipeline(pipeline)
	if bg != nil {
		pass.SetBindGroup(0, bg, offsets)
	}
	pass.SetVertexBuffer(0, vb.buf, 0, wgpu.WholeSize)
	if cmd.Indexed {
		pass.SetIndexBuffer(eb.buf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		pass.DrawIndexed(uint32(cmd.Count), instances, uint32(cmd.First), 0, 0)
		return
	}
	pass.Draw(uint32(cmd.Count), instances, uint32(cmd.First), 0)
}
