// Package webgpu implements device.Device on WebGPU.
// WebGPU has no bind slots, so the device keeps one emulated slot per kind, including the element
// buffer captured by each vertex array, and resolves them into pipelines and bind groups at draw time.
// Programs are WGSL: uniforms live in a single var<uniform> struct at @group(0), next to at most one
// texture_2d and one sampler.
package webgpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// ErrNoFrame is reported when a draw targets the window outside BeginFrame/EndFrame.
var ErrNoFrame = errors.New("webgpu: no frame in progress")

// Device is a device.Device that renders into a window surface.
type Device interface {
	device.FrameDevice

	// SurfaceFormat returns the texture format of the window surface.
	SurfaceFormat() wgpu.TextureFormat
}

type gpuBuffer struct {
	kind device.Kind
	buf  *wgpu.Buffer
	size uint64
}

type gpuTexture struct {
	tex     *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	params  device.TextureParams
	width   int
	height  int
}

type gpuVertexArray struct {
	vertexBuffer device.Handle
	stride       int
	attribs      []device.VertexAttrib
}

type gpuRenderbuffer struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

type gpuFramebuffer struct {
	color  device.Handle
	depth  device.Handle
	width  int
	height int
}

type wgpuDevice struct {
	logger       *zap.Logger
	depthTest    bool
	fallback     bool
	presentMode  wgpu.PresentMode
	uniformSlots int

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	surfaceWidth  int
	surfaceHeight int
	depthTexture  *wgpu.Texture
	depthView     *wgpu.TextureView

	next          device.Handle
	kinds         map[device.Handle]device.Kind
	buffers       map[device.Handle]*gpuBuffer
	programs      map[device.Handle]*program
	textures      map[device.Handle]*gpuTexture
	vertexArrays  map[device.Handle]*gpuVertexArray
	framebuffers  map[device.Handle]*gpuFramebuffer
	renderbuffers map[device.Handle]*gpuRenderbuffer

	bound [device.KindRenderbuffer]device.Handle
	// elements holds the element buffer captured by each vertex array; NoHandle keys the default array.
	elements map[device.Handle]device.Handle
	viewport [4]int

	white *gpuTexture
	frame frame
	errs  []error
}

var _ Device = &wgpuDevice{}

// New creates a WebGPU instance, adapter and device for the given window surface and configures
// the surface at the given size.
//
// Parameters:
//   - surfaceDescriptor: the platform surface of the window
//   - width, height: the initial framebuffer size in pixels
//   - options: optional builder options
//
// Returns:
//   - Device: the WebGPU device
//   - error: error if no adapter or device could be acquired
func New(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int, options ...DeviceBuilderOption) (Device, error) {
	d := &wgpuDevice{
		logger:        Logger(),
		presentMode:   wgpu.PresentModeFifo,
		uniformSlots:  256,
		kinds:         make(map[device.Handle]device.Kind),
		buffers:       make(map[device.Handle]*gpuBuffer),
		programs:      make(map[device.Handle]*program),
		textures:      make(map[device.Handle]*gpuTexture),
		vertexArrays:  make(map[device.Handle]*gpuVertexArray),
		framebuffers:  make(map[device.Handle]*gpuFramebuffer),
		renderbuffers: make(map[device.Handle]*gpuRenderbuffer),
		elements:      make(map[device.Handle]device.Handle),
	}
	for _, opt := range options {
		opt(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.fallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = adapter

	limits := wgpu.DefaultLimits()
	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "oxygl",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if err := d.Resize(width, height); err != nil {
		d.Release()
		return nil, err
	}
	d.logger.Info("WebGPU device ready", zap.Uint32("format", uint32(d.surfaceFormat)), zap.Int("width", width), zap.Int("height", height))
	return d, nil
}

func (d *wgpuDevice) fail(op string, kind device.Kind, err error) {
	de := device.NewDeviceError(op, kind, err)
	d.logger.Error("device call failed", zap.Error(de))
	d.errs = append(d.errs, de)
}

// lookup reports whether h is a live handle of kind, recording an error otherwise.
func (d *wgpuDevice) lookup(op string, kind device.Kind, h device.Handle) bool {
	if k, ok := d.kinds[h]; ok && k == kind {
		return true
	}
	d.fail(op, kind, fmt.Errorf("%w: %d", device.ErrInvalidHandle, h))
	return false
}

func (d *wgpuDevice) SurfaceFormat() wgpu.TextureFormat {
	return d.surfaceFormat
}

func (d *wgpuDevice) CreateHandle(kind device.Kind) (device.Handle, error) {
	if !kind.Valid() {
		return device.NoHandle, device.NewDeviceError("CreateHandle", kind, device.ErrUnsupported)
	}
	d.next++
	h := d.next
	d.kinds[h] = kind
	switch kind {
	case device.KindVertexBuffer, device.KindElementBuffer:
		d.buffers[h] = &gpuBuffer{kind: kind}
	case device.KindProgram:
		d.programs[h] = &program{}
	case device.KindTexture:
		d.textures[h] = &gpuTexture{}
	case device.KindVertexArray:
		d.vertexArrays[h] = &gpuVertexArray{}
	case device.KindFramebuffer:
		d.framebuffers[h] = &gpuFramebuffer{}
	case device.KindRenderbuffer:
		d.renderbuffers[h] = &gpuRenderbuffer{}
	}
	return h, nil
}

func (d *wgpuDevice) Bind(kind device.Kind, h device.Handle) {
	if !kind.Valid() || kind == device.KindRenderbuffer {
		d.fail("Bind", kind, device.ErrUnsupported)
		return
	}
	if h != device.NoHandle && !d.lookup("Bind", kind, h) {
		return
	}
	switch kind {
	case device.KindVertexArray:
		d.bound[device.KindElementBuffer] = d.elements[h]
	case device.KindElementBuffer:
		d.elements[d.bound[device.KindVertexArray]] = h
	case device.KindFramebuffer:
		if d.bound[kind] != h {
			d.endPass()
		}
	}
	d.bound[kind] = h
}

func (d *wgpuDevice) UploadFull(kind device.Kind, h device.Handle, data []byte, usage device.Usage) {
	if !d.lookup("UploadFull", kind, h) {
		return
	}
	b := d.buffers[h]
	b.release()
	if len(data) == 0 {
		return
	}
	size := roundUpAlign(4, uint64(len(data)))
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("%s#%d", kind, h),
		Size:  size,
		Usage: bufferUsage(kind),
	})
	if err != nil {
		d.fail("UploadFull", kind, err)
		return
	}
	b.buf, b.size = buf, size
	d.write("UploadFull", kind, buf, 0, data)
}

func (d *wgpuDevice) UploadSubrange(kind device.Kind, h device.Handle, offset int, data []byte) {
	if !d.lookup("UploadSubrange", kind, h) {
		return
	}
	b := d.buffers[h]
	if b.buf == nil || offset < 0 || offset%4 != 0 || roundUpAlign(4, uint64(offset+len(data))) > b.size {
		d.fail("UploadSubrange", kind, fmt.Errorf("%w: range [%d, %d) outside storage of %d bytes", device.ErrUnsupported, offset, offset+len(data), b.size))
		return
	}
	d.write("UploadSubrange", kind, b.buf, uint64(offset), data)
}

// write copies data into buf, padding it to the 4 byte copy granularity.
func (d *wgpuDevice) write(op string, kind device.Kind, buf *wgpu.Buffer, offset uint64, data []byte) {
	d.flushCommands()
	if pad := roundUpAlign(4, uint64(len(data))); pad != uint64(len(data)) {
		padded := make([]byte, pad)
		copy(padded, data)
		data = padded
	}
	if err := d.queue.WriteBuffer(buf, offset, data); err != nil {
		d.fail(op, kind, err)
	}
}

func (d *wgpuDevice) ReleaseStorage(kind device.Kind, h device.Handle) {
	if !d.lookup("ReleaseStorage", kind, h) {
		return
	}
	d.buffers[h].release()
}

func (b *gpuBuffer) release() {
	if b.buf != nil {
		b.buf.Release()
	}
	b.buf, b.size = nil, 0
}

func (d *wgpuDevice) DeleteHandle(kind device.Kind, h device.Handle) {
	if !d.lookup("DeleteHandle", kind, h) {
		return
	}
	if kind != device.KindRenderbuffer && d.bound[kind] == h {
		d.fail("DeleteHandle", kind, fmt.Errorf("%w: %d is still bound", device.ErrInvalidHandle, h))
	}
	delete(d.kinds, h)
	switch kind {
	case device.KindVertexBuffer, device.KindElementBuffer:
		d.buffers[h].release()
		delete(d.buffers, h)
		for va, eb := range d.elements {
			if eb == h {
				delete(d.elements, va)
			}
		}
	case device.KindProgram:
		d.programs[h].release()
		delete(d.programs, h)
	case device.KindTexture:
		d.textures[h].release()
		delete(d.textures, h)
		d.forgetBindGroups(h)
	case device.KindVertexArray:
		delete(d.vertexArrays, h)
		delete(d.elements, h)
	case device.KindFramebuffer:
		delete(d.framebuffers, h)
	case device.KindRenderbuffer:
		d.renderbuffers[h].release()
		delete(d.renderbuffers, h)
	}
}

func (d *wgpuDevice) SetVertexLayout(h device.Handle, stride int, attribs []device.VertexAttrib) {
	if !d.lookup("SetVertexLayout", device.KindVertexArray, h) {
		return
	}
	va := d.vertexArrays[h]
	va.vertexBuffer = d.bound[device.KindVertexBuffer]
	va.stride = stride
	va.attribs = append(va.attribs[:0], attribs...)
}

func (d *wgpuDevice) UploadTexture(h device.Handle, img device.TextureImage) {
	if !d.lookup("UploadTexture", device.KindTexture, h) {
		return
	}
	d.flushCommands()
	t := d.textures[h]
	t.releaseStorage()
	d.forgetBindGroups(h)
	if img.Width <= 0 || img.Height <= 0 {
		return
	}
	if err := d.createTexture(t, img); err != nil {
		d.fail("UploadTexture", device.KindTexture, err)
	}
}

func (d *wgpuDevice) createTexture(t *gpuTexture, img device.TextureImage) error {
	size := wgpu.Extent3D{Width: uint32(img.Width), Height: uint32(img.Height), DepthOrArrayLayers: 1}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        targetFormat,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst | wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	t.tex, t.view = tex, view
	t.width, t.height = img.Width, img.Height

	if len(img.Pixels) > 0 {
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			img.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(img.Width * 4),
				RowsPerImage: uint32(img.Height),
			},
			&size,
		)
	}
	return nil
}

func (d *wgpuDevice) SetTextureParams(h device.Handle, params device.TextureParams) {
	if !d.lookup("SetTextureParams", device.KindTexture, h) {
		return
	}
	t := d.textures[h]
	if t.sampler != nil && t.params == params {
		return
	}
	sampler, err := d.createSampler(params)
	if err != nil {
		d.fail("SetTextureParams", device.KindTexture, err)
		return
	}
	if t.sampler != nil {
		t.sampler.Release()
	}
	t.sampler, t.params = sampler, params
	d.forgetBindGroups(h)
}

func (d *wgpuDevice) createSampler(params device.TextureParams) (*wgpu.Sampler, error) {
	return d.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  addressMode(params.WrapS),
		AddressModeV:  addressMode(params.WrapT),
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     filterMode(params.MagFilter),
		MinFilter:     filterMode(params.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
}

func (t *gpuTexture) releaseStorage() {
	if t.view != nil {
		t.view.Release()
	}
	if t.tex != nil {
		t.tex.Release()
	}
	t.tex, t.view = nil, nil
	t.width, t.height = 0, 0
}

func (t *gpuTexture) release() {
	t.releaseStorage()
	if t.sampler != nil {
		t.sampler.Release()
		t.sampler = nil
	}
}

func (d *wgpuDevice) AttachRenderTarget(fb, color, depth device.Handle, width, height int) {
	if !d.lookup("AttachRenderTarget", device.KindFramebuffer, fb) || !d.lookup("AttachRenderTarget", device.KindTexture, color) {
		return
	}
	f := d.framebuffers[fb]
	f.color, f.depth, f.width, f.height = color, device.NoHandle, width, height
	if depth == device.NoHandle || !d.lookup("AttachRenderTarget", device.KindRenderbuffer, depth) {
		return
	}
	rb := d.renderbuffers[depth]
	rb.release()
	tex, view, err := d.createDepthTexture(width, height)
	if err != nil {
		d.fail("AttachRenderTarget", device.KindRenderbuffer, err)
		return
	}
	rb.tex, rb.view = tex, view
	f.depth = depth
}

func (d *wgpuDevice) createDepthTexture(width, height int) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, err
	}
	return tex, view, nil
}

func (rb *gpuRenderbuffer) release() {
	if rb.view != nil {
		rb.view.Release()
	}
	if rb.tex != nil {
		rb.tex.Release()
	}
	rb.tex, rb.view = nil, nil
}

func (d *wgpuDevice) Err() error {
	if len(d.errs) == 0 {
		return nil
	}
	err := d.errs[0]
	d.errs = d.errs[1:]
	return err
}

// Release frees every object the device still owns, then the device itself.
func (d *wgpuDevice) Release() {
	d.abandonFrame()
	d.bound = [device.KindRenderbuffer]device.Handle{}
	for h, kind := range d.kinds {
		d.DeleteHandle(kind, h)
	}
	if d.white != nil {
		d.white.release()
		d.white = nil
	}
	if d.depthView != nil {
		d.depthView.Release()
		d.depthTexture.Release()
		d.depthView, d.depthTexture = nil, nil
	}
	if d.queue != nil {
		d.queue.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
	d.queue, d.device, d.adapter, d.surface, d.instance = nil, nil, nil, nil, nil
}
