package gfx

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// DefaultTextureParams samples linearly and clamps to the edge.
var DefaultTextureParams = device.TextureParams{
	MinFilter: device.FilterLinear,
	MagFilter: device.FilterLinear,
	WrapS:     device.WrapClampToEdge,
	WrapT:     device.WrapClampToEdge,
}

// TextureOptions describes a texture at creation.
type TextureOptions struct {
	// Params is the sampling configuration. Nil uses DefaultTextureParams.
	Params *device.TextureParams
	// Image is uploaded at creation when set.
	Image *common.TextureStagingData
}

// Texture is a 2D RGBA8 texture. A render-target texture additionally owns a framebuffer whose
// color attachment is the texture and a depth/stencil renderbuffer of the same size.
type Texture struct {
	resource
	params device.TextureParams
	width  int
	height int

	fb    *framebuffer
	depth device.Handle
}

// framebuffer is the drawing side of a render-target texture, bound through the framebuffer cache.
type framebuffer struct {
	tex    *Texture
	handle device.HandleID
}

func (f *framebuffer) HandleID() device.HandleID {
	return f.handle
}

// CreateTexture creates a sampling texture and registers it under id, deleting any texture
// previously registered under id.
//
// Parameters:
//   - id: the resource id
//   - opts: sampling parameters and optional initial image
//
// Returns:
//   - *Texture: the new texture
//   - error: common.ErrTextureSize, ErrContextDeleted or a device error
func (c *Context) CreateTexture(id string, opts TextureOptions) (*Texture, error) {
	if err := c.checkCreate(device.KindTexture, id); err != nil {
		return nil, err
	}
	if opts.Image != nil {
		if err := opts.Image.Validate(); err != nil {
			return nil, fmt.Errorf("create texture %q: %w", id, err)
		}
	}

	res, err := newResource(c, id, device.KindTexture, false)
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", id, err)
	}
	t := &Texture{resource: res, params: DefaultTextureParams}
	if opts.Params != nil {
		t.params = *opts.Params
	}

	t.scoped(t, func() {
		c.dev.SetTextureParams(t.handle.Handle, t.params)
		if opts.Image != nil {
			c.dev.UploadTexture(t.handle.Handle, opts.Image.Image())
			c.countTexture(opts.Image.Width, opts.Image.Height)
			t.width, t.height = opts.Image.Width, opts.Image.Height
		}
	})
	c.textures.Add(id, t)
	return t, nil
}

// CreateRenderTexture creates a render-target texture of the given size and registers it under id,
// deleting any texture previously registered under id.
//
// Parameters:
//   - id: the resource id
//   - width, height: the attachment size in pixels
//   - opts: sampling parameters; Image is ignored
//
// Returns:
//   - *Texture: the new render-target texture
//   - error: common.ErrTextureSize, ErrContextDeleted or a device error
func (c *Context) CreateRenderTexture(id string, width, height int, opts TextureOptions) (*Texture, error) {
	if err := c.checkCreate(device.KindTexture, id); err != nil {
		return nil, err
	}
	if err := (common.TextureStagingData{Width: width, Height: height}).Validate(); err != nil {
		return nil, fmt.Errorf("create render texture %q: %w", id, err)
	}

	res, err := newResource(c, id, device.KindTexture, false)
	if err != nil {
		return nil, fmt.Errorf("create render texture %q: %w", id, err)
	}
	fbHandle, err := c.dev.CreateHandle(device.KindFramebuffer)
	if err != nil {
		c.dev.DeleteHandle(device.KindTexture, res.handle.Handle)
		return nil, fmt.Errorf("create render texture %q: %w", id, err)
	}
	depth, err := c.dev.CreateHandle(device.KindRenderbuffer)
	if err != nil {
		c.dev.DeleteHandle(device.KindFramebuffer, fbHandle)
		c.dev.DeleteHandle(device.KindTexture, res.handle.Handle)
		return nil, fmt.Errorf("create render texture %q: %w", id, err)
	}

	t := &Texture{resource: res, params: DefaultTextureParams, depth: depth}
	if opts.Params != nil {
		t.params = *opts.Params
	}
	t.fb = &framebuffer{tex: t, handle: device.HandleID{Kind: device.KindFramebuffer, Handle: fbHandle}}

	t.scoped(t, func() {
		c.dev.SetTextureParams(t.handle.Handle, t.params)
	})
	t.upload(device.TextureImage{Width: width, Height: height})
	c.textures.Add(id, t)
	return t, nil
}

// upload replaces the color storage with img and, for render targets, re-attaches color and depth.
func (t *Texture) upload(img device.TextureImage) {
	t.scoped(t, func() {
		t.ctx.dev.UploadTexture(t.handle.Handle, img)
	})
	t.ctx.countTexture(img.Width, img.Height)
	t.width, t.height = img.Width, img.Height
	if t.fb == nil {
		return
	}
	fbCache := t.ctx.caches[device.KindFramebuffer]
	tok := fbCache.ScopedBind(t.fb)
	t.ctx.dev.AttachRenderTarget(t.fb.handle.Handle, t.handle.Handle, t.depth, img.Width, img.Height)
	fbCache.Restore(tok)
}

func (t *Texture) live() bool {
	return t != nil && !t.deleted
}

// Bind binds the texture for sampling.
func (t *Texture) Bind() {
	t.BindForSampling()
}

// BindForSampling makes the texture current in the texture slot.
func (t *Texture) BindForSampling() {
	if !t.live() {
		return
	}
	t.cache().EnsureBound(t)
}

// BindForDrawing makes the texture's framebuffer current in the framebuffer slot.
// Plain textures are not drawable and ignore the call.
func (t *Texture) BindForDrawing() {
	if !t.live() || t.fb == nil {
		return
	}
	t.ctx.caches[device.KindFramebuffer].EnsureBound(t.fb)
}

// Unbind clears the texture slot if this texture is current.
func (t *Texture) Unbind() {
	if !t.live() || !t.cache().IsBound(t) {
		return
	}
	t.cache().Unbind()
}

// UnbindDrawing returns drawing to the default framebuffer if this texture's framebuffer is current.
func (t *Texture) UnbindDrawing() {
	if !t.live() || t.fb == nil {
		return
	}
	fbCache := t.ctx.caches[device.KindFramebuffer]
	if fbCache.IsBound(t.fb) {
		fbCache.Unbind()
	}
}

// Delete clears the texture and framebuffer slots that refer to this texture, then releases
// the texture, framebuffer and depth handles.
func (t *Texture) Delete() {
	if t == nil || t.deleted {
		return
	}
	if t.fb != nil {
		t.ctx.caches[device.KindFramebuffer].Forget(t.fb)
	}
	t.release(t)
	if t.fb != nil {
		t.ctx.dev.DeleteHandle(device.KindFramebuffer, t.fb.handle.Handle)
		t.ctx.dev.DeleteHandle(device.KindRenderbuffer, t.depth)
	}
	t.ctx.textures.Detach(t.id, t)
}

// IsRenderTarget reports whether the texture owns a framebuffer.
func (t *Texture) IsRenderTarget() bool {
	return t != nil && t.fb != nil
}

// FramebufferID returns the framebuffer handle of a render target, or the zero id.
func (t *Texture) FramebufferID() device.HandleID {
	if t == nil || t.fb == nil {
		return device.HandleID{}
	}
	return t.fb.handle
}

// Size returns the texture size in pixels.
func (t *Texture) Size() (width, height int) {
	if t == nil {
		return 0, 0
	}
	return t.width, t.height
}

// Params returns the sampling parameters.
func (t *Texture) Params() device.TextureParams {
	if t == nil {
		return device.TextureParams{}
	}
	return t.params
}

// SetImage uploads RGBA pixels, resizing the texture to the image.
//
// Parameters:
//   - img: the pixels and their dimensions
//
// Returns:
//   - error: common.ErrTextureSize if the pixel data does not match the dimensions
func (t *Texture) SetImage(img common.TextureStagingData) error {
	if !t.live() {
		return nil
	}
	if err := img.Validate(); err != nil {
		return fmt.Errorf("texture %q: %w", t.id, err)
	}
	t.upload(img.Image())
	return nil
}

// LoadImage decodes an encoded image and uploads it. Sampling parameters carried by the image
// replace the current ones.
//
// Parameters:
//   - src: the encoded image, in memory or on disk
//
// Returns:
//   - error: a decode error or common.ErrTextureSize
func (t *Texture) LoadImage(src *common.ImportedTexture) error {
	if !t.live() {
		return nil
	}
	img, err := src.Decode()
	if err != nil {
		return fmt.Errorf("texture %q: %w", t.id, err)
	}
	if src.Params != nil {
		t.setParams(*src.Params)
	}
	return t.SetImage(img)
}

// SetFilter sets the minification and magnification filters.
func (t *Texture) SetFilter(min, mag device.FilterMode) {
	if !t.live() {
		return
	}
	p := t.params
	p.MinFilter, p.MagFilter = min, mag
	t.setParams(p)
}

// SetWrap sets the wrap modes of the s and t coordinates.
func (t *Texture) SetWrap(s, tt device.WrapMode) {
	if !t.live() {
		return
	}
	p := t.params
	p.WrapS, p.WrapT = s, tt
	t.setParams(p)
}

func (t *Texture) setParams(p device.TextureParams) {
	t.params = p
	t.scoped(t, func() {
		t.ctx.dev.SetTextureParams(t.handle.Handle, p)
	})
}

// Resize reallocates the color and depth storage of a render target. Contents are discarded.
//
// Parameters:
//   - width, height: the new size in pixels
//
// Returns:
//   - error: ErrNotRenderTarget for plain textures, common.ErrTextureSize for empty sizes
func (t *Texture) Resize(width, height int) error {
	if !t.live() {
		return nil
	}
	if t.fb == nil {
		return fmt.Errorf("resize texture %q: %w", t.id, ErrNotRenderTarget)
	}
	if err := (common.TextureStagingData{Width: width, Height: height}).Validate(); err != nil {
		return fmt.Errorf("resize texture %q: %w", t.id, err)
	}
	if width == t.width && height == t.height {
		return nil
	}
	t.upload(device.TextureImage{Width: width, Height: height})
	t.logger.Debug("resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}
