// Package device describes the handle-based GPU API that the rest of the engine binds state against.
// A Device is an external collaborator: it owns the real GPU objects, exposes one mutable bound slot
// per Kind, and performs every operation synchronously on the calling thread.
package device

import "fmt"

// Kind identifies the type of a device handle and, for bindable kinds, the device bind slot it occupies.
type Kind int

const (
	// KindVertexBuffer is a buffer bound to the vertex (array) buffer slot.
	KindVertexBuffer Kind = iota
	// KindElementBuffer is a buffer bound to the element (index) buffer slot.
	KindElementBuffer
	// KindProgram is a linked shader program.
	KindProgram
	// KindTexture is a 2D texture bound to the sampling slot.
	KindTexture
	// KindFramebuffer is an offscreen draw target.
	KindFramebuffer
	// KindVertexArray is a vertex-array object capturing attribute layout and element buffer binding.
	KindVertexArray
	// KindRenderbuffer is a depth/stencil attachment owned by a render target. It is never cached.
	KindRenderbuffer

	kindCount
)

// Kinds lists every bindable kind in bind-slot order.
var Kinds = []Kind{
	KindVertexBuffer,
	KindElementBuffer,
	KindProgram,
	KindTexture,
	KindFramebuffer,
	KindVertexArray,
}

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindVertexBuffer:
		return "VertexBuffer"
	case KindElementBuffer:
		return "ElementBuffer"
	case KindProgram:
		return "Program"
	case KindTexture:
		return "Texture"
	case KindFramebuffer:
		return "Framebuffer"
	case KindVertexArray:
		return "VertexArray"
	case KindRenderbuffer:
		return "Renderbuffer"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k >= KindVertexBuffer && k < kindCount
}

// IsBuffer reports whether the kind stores linear buffer data.
func (k Kind) IsBuffer() bool {
	return k == KindVertexBuffer || k == KindElementBuffer
}

// Handle is an opaque device object name. NoHandle is never a live object and binding it clears a slot.
type Handle uint32

// NoHandle is the null handle.
const NoHandle Handle = 0

// HandleID pairs a device handle with the fixed kind it was created for.
type HandleID struct {
	Kind   Kind
	Handle Handle
}

// IsZero reports whether the id refers to no device object.
func (id HandleID) IsZero() bool {
	return id.Handle == NoHandle
}

// String returns a debug representation such as "Texture#3".
func (id HandleID) String() string {
	return fmt.Sprintf("%s#%d", id.Kind, id.Handle)
}

// Usage is an advisory hint forwarded to the device allocator on full uploads.
type Usage int

const (
	// UsageStatic data is uploaded once and rarely updated.
	UsageStatic Usage = iota
	// UsageDynamic data receives frequent same-size updates.
	UsageDynamic
	// UsageStream data is rewritten every frame.
	UsageStream
)

// String returns the name of the usage hint.
func (u Usage) String() string {
	switch u {
	case UsageStatic:
		return "Static"
	case UsageDynamic:
		return "Dynamic"
	case UsageStream:
		return "Stream"
	default:
		return fmt.Sprintf("Usage(%d)", int(u))
	}
}

// Primitive selects how vertices are assembled by a draw command.
type Primitive int

const (
	PrimitivePoints Primitive = iota
	PrimitiveLines
	PrimitiveLineStrip
	PrimitiveTriangles
	PrimitiveTriangleStrip
	PrimitiveTriangleFan
)

// String returns the name of the primitive.
func (p Primitive) String() string {
	switch p {
	case PrimitivePoints:
		return "Points"
	case PrimitiveLines:
		return "Lines"
	case PrimitiveLineStrip:
		return "LineStrip"
	case PrimitiveTriangles:
		return "Triangles"
	case PrimitiveTriangleStrip:
		return "TriangleStrip"
	case PrimitiveTriangleFan:
		return "TriangleFan"
	default:
		return fmt.Sprintf("Primitive(%d)", int(p))
	}
}

// DrawCommand describes a single draw against the currently bound program, vertex array and draw target.
// Indexed draws read 16-bit indices from the element buffer captured by the bound vertex array.
type DrawCommand struct {
	Primitive Primitive
	Indexed   bool
	// First is the first vertex (array draws) or first index (indexed draws).
	First int
	// Count is the number of vertices or indices to draw.
	Count int
	// Instances is the instance count; values below 2 issue a non-instanced draw.
	Instances int
}

// ProgramSource holds the per-stage source code of a shader program.
type ProgramSource struct {
	Vertex   string
	Fragment string
}

// VertexAttrib maps a run of floats inside each vertex record onto an attribute slot.
type VertexAttrib struct {
	// Slot is the shader attribute location.
	Slot int
	// Size is the number of float components (1-4).
	Size int
	// Offset is the attribute offset inside the record, in floats.
	Offset int
}

// FilterMode selects texture sampling filter.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// WrapMode selects texture coordinate addressing outside [0, 1].
type WrapMode int

const (
	WrapClampToEdge WrapMode = iota
	WrapRepeat
	WrapMirroredRepeat
)

// TextureParams holds the sampling configuration of a texture.
type TextureParams struct {
	MinFilter, MagFilter FilterMode
	WrapS, WrapT         WrapMode
}

// TextureImage is RGBA8 pixel data, 4 bytes per pixel in row-major order. Nil Pixels allocates storage only.
type TextureImage struct {
	Width  int
	Height int
	Pixels []byte
}

// Device is the handle-based GPU API consumed by the engine.
// Every method is synchronous and must be called from the thread that owns the device.
// Failures of non-creating calls are not returned; they surface through Err, mirroring the
// error side channel of the underlying graphics API.
//
// Uploads and configuration calls act on the handle the caller has bound for that kind. Backends
// without bind slots may ignore the binding, but callers must not rely on that.
type Device interface {
	// CreateHandle allocates a new device object of the given kind.
	//
	// Parameters:
	//   - kind: the kind of object to allocate
	//
	// Returns:
	//   - Handle: the new handle, never NoHandle on success
	//   - error: a *DeviceError if the device could not allocate the object
	CreateHandle(kind Kind) (Handle, error)

	// Bind makes h the active object for the bind slot of kind. NoHandle clears the slot.
	//
	// Parameters:
	//   - kind: the bind slot
	//   - h: the handle to bind, or NoHandle
	Bind(kind Kind, h Handle)

	// UploadFull (re)allocates the storage of a bound buffer sized to data and fills it.
	//
	// Parameters:
	//   - kind: KindVertexBuffer or KindElementBuffer
	//   - h: the buffer handle, bound at kind's slot
	//   - data: the new contents; its length is the new storage size in bytes
	//   - usage: advisory allocation hint
	UploadFull(kind Kind, h Handle, data []byte, usage Usage)

	// UploadSubrange rewrites part of the existing storage of a bound buffer in place.
	//
	// Parameters:
	//   - kind: KindVertexBuffer or KindElementBuffer
	//   - h: the buffer handle, bound at kind's slot
	//   - offset: byte offset into the storage
	//   - data: the bytes to write; offset+len(data) must not exceed the storage size
	UploadSubrange(kind Kind, h Handle, offset int, data []byte)

	// ReleaseStorage frees the storage of a bound buffer while keeping the handle alive.
	//
	// Parameters:
	//   - kind: KindVertexBuffer or KindElementBuffer
	//   - h: the buffer handle, bound at kind's slot
	ReleaseStorage(kind Kind, h Handle)

	// Draw issues one draw command using the currently bound program, vertex array and framebuffer.
	//
	// Parameters:
	//   - cmd: the draw command
	Draw(cmd DrawCommand)

	// DeleteHandle releases a device object. The handle must not be bound in any slot.
	//
	// Parameters:
	//   - kind: the kind the handle was created for
	//   - h: the handle to release
	DeleteHandle(kind Kind, h Handle)

	// CompileProgram compiles and links source into the program object h.
	//
	// Parameters:
	//   - h: a KindProgram handle
	//   - src: per-stage source code
	//
	// Returns:
	//   - error: a *DeviceError carrying the compile or link log on failure
	CompileProgram(h Handle, src ProgramSource) error

	// SetUniform assigns a uniform of the bound program h.
	// Supported values are float32, int32, int, bool, [2]/[3]/[4]float32, mgl32 vectors and matrices, and []float32.
	//
	// Parameters:
	//   - h: the program handle, bound at KindProgram
	//   - name: the uniform name
	//   - value: the value to assign
	SetUniform(h Handle, name string, value any)

	// SetVertexLayout records the attribute layout of the bound vertex buffer into the bound vertex array h.
	//
	// Parameters:
	//   - h: the vertex array handle, bound at KindVertexArray
	//   - stride: vertex record size in floats
	//   - attribs: attribute slots, sizes and offsets
	SetVertexLayout(h Handle, stride int, attribs []VertexAttrib)

	// UploadTexture (re)allocates the bound texture h and fills it with img.
	//
	// Parameters:
	//   - h: the texture handle, bound at KindTexture
	//   - img: RGBA8 pixels, or nil pixels to allocate only
	UploadTexture(h Handle, img TextureImage)

	// SetTextureParams configures filtering and wrapping of the bound texture h.
	//
	// Parameters:
	//   - h: the texture handle, bound at KindTexture
	//   - params: the sampling parameters
	SetTextureParams(h Handle, params TextureParams)

	// AttachRenderTarget attaches color texture and depth/stencil renderbuffer storage to the bound framebuffer fb.
	//
	// Parameters:
	//   - fb: the framebuffer handle, bound at KindFramebuffer
	//   - color: the color attachment texture
	//   - depth: the depth/stencil renderbuffer, or NoHandle
	//   - width, height: attachment size in pixels
	AttachRenderTarget(fb, color, depth Handle, width, height int)

	// Clear clears the color and depth of the bound draw target.
	Clear(r, g, b, a float32)

	// Viewport sets the device viewport rectangle. A zero width or height selects the whole
	// bound draw target.
	Viewport(x, y, width, height int)

	// Err returns and clears the first device error recorded since the last call, or nil.
	//
	// Returns:
	//   - error: the pending device error, or nil
	Err() error
}

// FrameDevice is a Device that records work into per-frame command streams presented to a window.
// Draws to the window are only valid between BeginFrame and EndFrame.
type FrameDevice interface {
	Device

	// BeginFrame acquires the next window image and starts recording.
	BeginFrame() error

	// EndFrame submits the recorded work and presents the window image.
	EndFrame() error

	// Resize reconfigures the window attachments for a new framebuffer size.
	Resize(width, height int) error

	// Release frees every device object and the device itself.
	Release()
}
