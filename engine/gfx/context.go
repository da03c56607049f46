// Package gfx maps stable string ids to GPU resources within a rendering Context and routes every
// bind through per-slot bind caches, so redundant binds are elided and scoped operations leave
// the device bound the way they found it.
//
// Lookups of unknown ids return nil, and every method on a nil resource is a no-op, so client
// code can chain lookups in a render loop without checking each step.
package gfx

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/bindcache"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/registry"
	"github.com/Carmen-Shannon/oxy-gl/engine/shader"
)

// Context owns the registries and bind caches of one device connection.
// Contexts share no state; a Context must only be used from the thread that owns its device.
type Context struct {
	name    string
	dev     device.Device
	logger  *zap.Logger
	usage   device.Usage
	pre     shader.PreProcessor
	deleted bool

	vertexBuffers  *registry.Registry[*VertexBuffer]
	elementBuffers *registry.Registry[*ElementBuffer]
	shaders        *registry.Registry[*Shader]
	textures       *registry.Registry[*Texture]
	vertexArrays   *registry.Registry[*VertexArray]
	meshes         *registry.Registry[*Mesh]

	caches map[device.Kind]bindcache.BindCache
	// defaultElements is the element buffer recorded while no vertex array is bound.
	defaultElements *ElementBuffer

	viewport [4]int
	uploads  UploadStats
}

// UploadStats counts data transfers issued by a Context.
type UploadStats struct {
	// Full is the number of buffer storage reallocations.
	Full int
	// Subrange is the number of in-place buffer rewrites.
	Subrange int
	// Textures is the number of texture image uploads.
	Textures int
	// Bytes is the total payload size, with textures counted as RGBA8.
	Bytes int
}

// Add returns the element-wise sum of s and o.
func (s UploadStats) Add(o UploadStats) UploadStats {
	return UploadStats{
		Full:     s.Full + o.Full,
		Subrange: s.Subrange + o.Subrange,
		Textures: s.Textures + o.Textures,
		Bytes:    s.Bytes + o.Bytes,
	}
}

// NewContext creates a Context on dev.
//
// Parameters:
//   - dev: the device that owns the GPU objects
//   - options: optional builder options
//
// Returns:
//   - *Context: the new context
func NewContext(dev device.Device, options ...ContextBuilderOption) *Context {
	c := &Context{
		name:           "default",
		dev:            dev,
		logger:         Logger(),
		usage:          device.UsageStatic,
		vertexBuffers:  registry.New[*VertexBuffer](),
		elementBuffers: registry.New[*ElementBuffer](),
		shaders:        registry.New[*Shader](),
		textures:       registry.New[*Texture](),
		vertexArrays:   registry.New[*VertexArray](),
		meshes:         registry.New[*Mesh](),
		caches:         make(map[device.Kind]bindcache.BindCache, len(device.Kinds)),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.pre == nil {
		c.pre = shader.NewPreProcessor()
	}
	c.logger = c.logger.Named("gfx").With(zap.String("context", c.name))

	cacheLogger := c.logger.Named("bindcache")
	for _, kind := range device.Kinds {
		opts := []bindcache.BindCacheBuilderOption{bindcache.WithLogger(cacheLogger)}
		switch kind {
		case device.KindVertexArray:
			opts = append(opts, bindcache.WithBindHook(c.onVertexArrayBind))
		case device.KindElementBuffer:
			opts = append(opts, bindcache.WithBindHook(c.onElementBufferBind))
		}
		c.caches[kind] = bindcache.NewBindCache(kind, dev, opts...)
	}
	return c
}

// onVertexArrayBind keeps the element cache in step with the element buffer recorded by the
// vertex array the device just bound.
func (c *Context) onVertexArrayBind(r bindcache.Bindable) {
	eb := c.defaultElements
	if va, ok := r.(*VertexArray); ok {
		eb = va.attached
	}
	if eb == nil || eb.deleted {
		c.caches[device.KindElementBuffer].Assume(nil)
		return
	}
	c.caches[device.KindElementBuffer].Assume(eb)
}

// Name returns the context name used in log fields.
func (c *Context) Name() string {
	return c.name
}

// Device returns the device the context drives.
func (c *Context) Device() device.Device {
	return c.dev
}

// Logger returns the context logger.
func (c *Context) Logger() *zap.Logger {
	return c.logger
}

// Usage returns the default buffer usage hint.
func (c *Context) Usage() device.Usage {
	return c.usage
}

// PreProcessor returns the shader pre-processor applied to every shader source.
func (c *Context) PreProcessor() shader.PreProcessor {
	return c.pre
}

// Deleted reports whether Delete has run.
func (c *Context) Deleted() bool {
	return c.deleted
}

// Cache returns the bind cache of kind's slot, or nil for a kind without a slot.
func (c *Context) Cache(kind device.Kind) bindcache.BindCache {
	return c.caches[kind]
}

// Caches returns the bind cache of every slot. The map is a copy; the caches are shared.
func (c *Context) Caches() map[device.Kind]bindcache.BindCache {
	out := make(map[device.Kind]bindcache.BindCache, len(c.caches))
	for kind, cache := range c.caches {
		out[kind] = cache
	}
	return out
}

// BindStats returns the bind counters of every slot.
func (c *Context) BindStats() map[device.Kind]bindcache.Stats {
	out := make(map[device.Kind]bindcache.Stats, len(c.caches))
	for kind, cache := range c.caches {
		out[kind] = cache.Stats()
	}
	return out
}

// ResetBindStats zeroes the bind counters of every slot and returns their sum.
func (c *Context) ResetBindStats() bindcache.Stats {
	var total bindcache.Stats
	for _, cache := range c.caches {
		total = total.Add(cache.ResetStats())
	}
	return total
}

// ResetUploadStats zeroes the upload counters and returns their previous values.
func (c *Context) ResetUploadStats() UploadStats {
	out := c.uploads
	c.uploads = UploadStats{}
	return out
}

func (c *Context) countTexture(width, height int) {
	c.uploads.Textures++
	c.uploads.Bytes += width * height * 4
}

// DeviceError returns the first pending device error as a *device.DeviceError, or nil.
//
// Returns:
//   - error: the pending error, or nil
func (c *Context) DeviceError() error {
	err := c.dev.Err()
	if err == nil {
		return nil
	}
	var de *device.DeviceError
	if !errors.As(err, &de) {
		de = device.NewDeviceError("unknown", device.Kind(-1), err)
	}
	c.logger.Error("device error", zap.Error(de))
	return de
}

// Clear clears the bound draw target.
func (c *Context) Clear(r, g, b, a float32) {
	c.dev.Clear(r, g, b, a)
}

// Viewport sets the device viewport. RenderTo restores it when its callback returns.
// A zero width or height covers the whole bound draw target.
func (c *Context) Viewport(x, y, width, height int) {
	c.setViewport([4]int{x, y, width, height})
}

// setViewport records v as the last viewport sent to the device.
func (c *Context) setViewport(v [4]int) {
	c.viewport = v
	c.dev.Viewport(v[0], v[1], v[2], v[3])
}

// Delete deletes every resource the context owns and leaves every bind cache empty.
// Afterwards every create call fails with ErrContextDeleted. Delete is idempotent.
func (c *Context) Delete() {
	if c.deleted {
		return
	}
	c.meshes.Clear()
	c.vertexArrays.Clear()
	c.vertexBuffers.Clear()
	c.elementBuffers.Clear()
	c.shaders.Clear()
	c.textures.Clear()
	for _, kind := range device.Kinds {
		c.caches[kind].Unbind()
	}
	c.defaultElements = nil
	c.deleted = true
	c.logger.Debug("context deleted")
}

// DrawMesh binds the shader and draws the whole mesh, restoring the previous program.
//
// Parameters:
//   - meshID: the mesh to draw
//   - shaderID: the shader to draw with
//   - prim: the primitive assembly mode
func (c *Context) DrawMesh(meshID, shaderID string, prim device.Primitive) {
	m, s := c.Mesh(meshID), c.Shader(shaderID)
	if m == nil || s == nil {
		return
	}
	s.scoped(s, func() { m.Draw(prim) })
}

// DrawMeshRange binds the shader and draws part of the mesh, restoring the previous program.
//
// Parameters:
//   - meshID: the mesh to draw
//   - shaderID: the shader to draw with
//   - prim: the primitive assembly mode
//   - offset: first index (indexed) or vertex to draw
//   - length: number of indices or vertices to draw
func (c *Context) DrawMeshRange(meshID, shaderID string, prim device.Primitive, offset, length int) {
	m, s := c.Mesh(meshID), c.Shader(shaderID)
	if m == nil || s == nil {
		return
	}
	s.scoped(s, func() { m.DrawRange(prim, offset, length) })
}

// RenderTo directs draws issued by fn into the render-target texture textureID, then restores
// the previous draw target and viewport, also when fn panics. Calls nest. Before any Viewport
// call the restored viewport is the zero rectangle, which covers the whole restored target.
// Unknown ids and plain textures skip fn.
//
// Parameters:
//   - textureID: the render-target texture
//   - fn: the draw calls to redirect
func (c *Context) RenderTo(textureID string, fn func()) {
	t := c.Texture(textureID)
	if t == nil || t.fb == nil || t.deleted {
		c.logger.Debug("render target not found", zap.String("texture", textureID))
		return
	}
	fbCache := c.caches[device.KindFramebuffer]
	prev := c.viewport
	tok := fbCache.ScopedBind(t.fb)
	c.setViewport([4]int{0, 0, t.width, t.height})
	defer func() {
		fbCache.Restore(tok)
		c.setViewport(prev)
	}()
	fn()
}

func (c *Context) checkCreate(kind device.Kind, id string) error {
	if c.deleted {
		return fmt.Errorf("create %s %q: %w", kind, id, ErrContextDeleted)
	}
	return nil
}

// VertexBuffer returns the vertex buffer registered under id, or nil.
func (c *Context) VertexBuffer(id string) *VertexBuffer {
	return c.vertexBuffers.Lookup(id)
}

// BindVertexBuffer binds the vertex buffer registered under id.
func (c *Context) BindVertexBuffer(id string) {
	c.VertexBuffer(id).Bind()
}

// UnbindVertexBuffer clears the vertex buffer slot.
func (c *Context) UnbindVertexBuffer() {
	c.caches[device.KindVertexBuffer].Unbind()
}

// SetVertexRange writes vertex data into the vertex buffer id at float offset.
func (c *Context) SetVertexRange(id string, data []float32, offset int) {
	c.VertexBuffer(id).SetRange(data, offset)
}

// FlushVertexBuffer uploads the vertex buffer id.
func (c *Context) FlushVertexBuffer(id string) {
	c.VertexBuffer(id).Flush()
}

// DeleteVertexBuffer deletes the vertex buffer id.
func (c *Context) DeleteVertexBuffer(id string) {
	c.vertexBuffers.Delete(id)
}

// ClearVertexBuffers deletes every registered vertex buffer.
func (c *Context) ClearVertexBuffers() {
	c.vertexBuffers.Clear()
}

// ElementBuffer returns the element buffer registered under id, or nil.
func (c *Context) ElementBuffer(id string) *ElementBuffer {
	return c.elementBuffers.Lookup(id)
}

// BindElementBuffer binds the element buffer registered under id.
func (c *Context) BindElementBuffer(id string) {
	c.ElementBuffer(id).Bind()
}

// UnbindElementBuffer clears the element buffer slot.
func (c *Context) UnbindElementBuffer() {
	c.caches[device.KindElementBuffer].Unbind()
}

// SetIndexRange writes indices into the element buffer id at offset.
func (c *Context) SetIndexRange(id string, data []uint16, offset int) {
	c.ElementBuffer(id).SetRange(data, offset)
}

// FlushElementBuffer uploads the element buffer id.
func (c *Context) FlushElementBuffer(id string) {
	c.ElementBuffer(id).Flush()
}

// DeleteElementBuffer deletes the element buffer id.
func (c *Context) DeleteElementBuffer(id string) {
	c.elementBuffers.Delete(id)
}

// ClearElementBuffers deletes every registered element buffer.
func (c *Context) ClearElementBuffers() {
	c.elementBuffers.Clear()
}

// Shader returns the shader registered under id, or nil.
func (c *Context) Shader(id string) *Shader {
	return c.shaders.Lookup(id)
}

// BindShader binds the shader registered under id.
func (c *Context) BindShader(id string) {
	c.Shader(id).Bind()
}

// UnbindShader clears the program slot.
func (c *Context) UnbindShader() {
	c.caches[device.KindProgram].Unbind()
}

// SetUniform assigns a uniform of the shader id.
func (c *Context) SetUniform(id, name string, value any) {
	c.Shader(id).SetUniform(name, value)
}

// DeleteShader deletes the shader id.
func (c *Context) DeleteShader(id string) {
	c.shaders.Delete(id)
}

// ClearShaders deletes every registered shader.
func (c *Context) ClearShaders() {
	c.shaders.Clear()
}

// Texture returns the texture registered under id, or nil.
func (c *Context) Texture(id string) *Texture {
	return c.textures.Lookup(id)
}

// BindTexture binds the texture id for sampling.
func (c *Context) BindTexture(id string) {
	c.Texture(id).BindForSampling()
}

// UnbindTexture clears the texture slot.
func (c *Context) UnbindTexture() {
	c.caches[device.KindTexture].Unbind()
}

// BindFramebuffer binds the render-target texture id for drawing.
func (c *Context) BindFramebuffer(id string) {
	c.Texture(id).BindForDrawing()
}

// UnbindFramebuffer returns drawing to the default framebuffer.
func (c *Context) UnbindFramebuffer() {
	c.caches[device.KindFramebuffer].Unbind()
}

// SetTextureFilter sets the min and mag filters of the texture id.
func (c *Context) SetTextureFilter(id string, min, mag device.FilterMode) {
	c.Texture(id).SetFilter(min, mag)
}

// SetTextureWrap sets the wrap modes of the texture id.
func (c *Context) SetTextureWrap(id string, s, t device.WrapMode) {
	c.Texture(id).SetWrap(s, t)
}

// DeleteTexture deletes the texture id and, for a render target, its framebuffer.
func (c *Context) DeleteTexture(id string) {
	c.textures.Delete(id)
}

// ClearTextures deletes every registered texture.
func (c *Context) ClearTextures() {
	c.textures.Clear()
}

// VertexArray returns the vertex array registered under id, or nil.
func (c *Context) VertexArray(id string) *VertexArray {
	return c.vertexArrays.Lookup(id)
}

// BindVertexArray binds the vertex array id.
func (c *Context) BindVertexArray(id string) {
	c.VertexArray(id).Bind()
}

// UnbindVertexArray clears the vertex array slot.
func (c *Context) UnbindVertexArray() {
	c.caches[device.KindVertexArray].Unbind()
}

// DeleteVertexArray deletes the vertex array id. Its buffers are kept.
func (c *Context) DeleteVertexArray(id string) {
	c.vertexArrays.Delete(id)
}

// ClearVertexArrays deletes every registered vertex array.
func (c *Context) ClearVertexArrays() {
	c.vertexArrays.Clear()
}

// Mesh returns the mesh registered under id, or nil.
func (c *Context) Mesh(id string) *Mesh {
	return c.meshes.Lookup(id)
}

// BindMesh binds the vertex array of the mesh id.
func (c *Context) BindMesh(id string) {
	c.Mesh(id).Bind()
}

// FlushMesh uploads the buffers of the dynamic mesh id.
func (c *Context) FlushMesh(id string) {
	c.Mesh(id).Flush()
}

// DeleteMesh deletes the mesh id together with its buffers and vertex array.
func (c *Context) DeleteMesh(id string) {
	c.meshes.Delete(id)
}

// ClearMeshes deletes every registered mesh.
func (c *Context) ClearMeshes() {
	c.meshes.Clear()
}
