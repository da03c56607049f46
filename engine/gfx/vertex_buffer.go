package gfx

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// VertexBufferOptions describes a vertex buffer at creation.
type VertexBufferOptions struct {
	// AttribLengths is the float count of each attribute; attribute i is bound to slot i.
	// The vertex stride is their sum.
	AttribLengths []int
	// VertexCount reserves this many zero-filled vertices.
	VertexCount int
	// Vertices is written over the reserved vertices at offset 0, growing the buffer if longer.
	Vertices []float32
	// Dynamic buffers return their live mirror on read.
	Dynamic bool
	// Usage overrides the usage hint. Defaults to UsageDynamic for dynamic buffers and the
	// context usage otherwise.
	Usage *device.Usage
}

// VertexBuffer is a vertex buffer with a CPU mirror of interleaved float records.
type VertexBuffer struct {
	resource
	data          *buffer.Growable[float32]
	attribLengths []int
	dynamic       bool
	usage         device.Usage
}

// CreateVertexBuffer creates a vertex buffer and registers it under id, deleting any
// vertex buffer previously registered under id.
//
// Parameters:
//   - id: the resource id
//   - opts: layout and initial contents
//
// Returns:
//   - *VertexBuffer: the new vertex buffer
//   - error: ErrInvalidLayout, ErrContextDeleted or a device error
func (c *Context) CreateVertexBuffer(id string, opts VertexBufferOptions) (*VertexBuffer, error) {
	vb, err := c.newVertexBuffer(id, opts, false, 0)
	if err != nil {
		return nil, err
	}
	c.vertexBuffers.Add(id, vb)
	return vb, nil
}

// newVertexBuffer creates a vertex buffer. A positive maxVertices caps the mirror, dropping
// writes past it with a warning.
func (c *Context) newVertexBuffer(id string, opts VertexBufferOptions, owned bool, maxVertices int) (*VertexBuffer, error) {
	if err := c.checkCreate(device.KindVertexBuffer, id); err != nil {
		return nil, err
	}
	stride, err := layoutStride(opts.AttribLengths)
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer %q: %w", id, err)
	}
	if len(opts.Vertices)%stride != 0 {
		return nil, fmt.Errorf("create vertex buffer %q: %w: %d floats is not a multiple of stride %d", id, ErrInvalidLayout, len(opts.Vertices), stride)
	}

	res, err := newResource(c, id, device.KindVertexBuffer, owned)
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer %q: %w", id, err)
	}

	usage := c.usage
	if opts.Dynamic {
		usage = device.UsageDynamic
	}
	if opts.Usage != nil {
		usage = *opts.Usage
	}

	vb := &VertexBuffer{
		resource: res,
		data: buffer.NewGrowable(stride,
			buffer.WithCapacity[float32](max(opts.VertexCount*stride, len(opts.Vertices))),
			buffer.WithLimit[float32](maxVertices*stride)),
		attribLengths: slices.Clone(opts.AttribLengths),
		dynamic:       opts.Dynamic,
		usage:         usage,
	}
	if opts.VertexCount > 0 {
		vb.data.SetRange(make([]float32, opts.VertexCount*stride), 0)
	}
	vb.data.SetRange(opts.Vertices, 0)
	return vb, nil
}

func layoutStride(attribLengths []int) (int, error) {
	if len(attribLengths) == 0 {
		return 0, fmt.Errorf("%w: no attributes", ErrInvalidLayout)
	}
	stride := 0
	for i, n := range attribLengths {
		if n < 1 || n > 4 {
			return 0, fmt.Errorf("%w: attribute %d has %d components", ErrInvalidLayout, i, n)
		}
		stride += n
	}
	return stride, nil
}

func (vb *VertexBuffer) live() bool {
	return vb != nil && !vb.deleted
}

// Bind makes the vertex buffer current in the vertex buffer slot.
func (vb *VertexBuffer) Bind() {
	if !vb.live() {
		return
	}
	vb.cache().EnsureBound(vb)
}

// Unbind clears the vertex buffer slot if this buffer is current.
func (vb *VertexBuffer) Unbind() {
	if !vb.live() || !vb.cache().IsBound(vb) {
		return
	}
	vb.cache().Unbind()
}

// Delete releases the device buffer and removes it from the context registry.
// Buffers owned by a Mesh are deleted with the Mesh and ignore the call.
func (vb *VertexBuffer) Delete() {
	if vb == nil || vb.meshOwned() {
		return
	}
	vb.delete()
}

func (vb *VertexBuffer) delete() {
	if vb == nil || !vb.release(vb) {
		return
	}
	vb.data.Forget()
	if !vb.owned {
		vb.ctx.vertexBuffers.Detach(vb.id, vb)
	}
}

// SetRange writes data at a float offset. Data inside the mirror is overwritten in place and
// the remainder is appended. The change reaches the device on the next Flush.
// Buffers of a static Mesh ignore the call, as do SetVertices and Flush.
//
// Parameters:
//   - data: the floats to write
//   - offset: float offset of the first written value
func (vb *VertexBuffer) SetRange(data []float32, offset int) {
	if !vb.live() || vb.rejects("SetRange") {
		return
	}
	if n := vb.data.SetRange(data, offset); n < len(data) {
		vb.logger.Warn("vertex data truncated at the 16-bit index limit",
			zap.Int("offset", offset), zap.Int("requested", len(data)), zap.Int("written", n))
	}
}

// SetVertices replaces the mirror with data.
//
// Parameters:
//   - data: the new interleaved vertex data
func (vb *VertexBuffer) SetVertices(data []float32) {
	if !vb.live() || vb.rejects("SetVertices") {
		return
	}
	if n := vb.data.Set(data); n < len(data) {
		vb.logger.Warn("vertex data truncated at the 16-bit index limit", zap.Int("requested", len(data)), zap.Int("written", n))
	}
}

// Vertices returns the mirror: the live slice for dynamic buffers, a copy otherwise.
//
// Returns:
//   - []float32: the vertex data
func (vb *VertexBuffer) Vertices() []float32 {
	if vb == nil {
		return nil
	}
	if vb.dynamic {
		return vb.data.Data()
	}
	return vb.data.Copy()
}

// VertexCount returns the number of whole vertex records in the mirror.
func (vb *VertexBuffer) VertexCount() int {
	if vb == nil {
		return 0
	}
	return vb.data.Records()
}

// Len returns the mirror length in floats.
func (vb *VertexBuffer) Len() int {
	if vb == nil {
		return 0
	}
	return vb.data.Len()
}

// Stride returns the vertex record size in floats.
func (vb *VertexBuffer) Stride() int {
	if vb == nil {
		return 0
	}
	return vb.data.Stride()
}

// AttribLengths returns a copy of the attribute lengths.
func (vb *VertexBuffer) AttribLengths() []int {
	if vb == nil {
		return nil
	}
	return slices.Clone(vb.attribLengths)
}

// Attribs returns the attribute layout: attribute i on slot i, offsets in floats.
func (vb *VertexBuffer) Attribs() []device.VertexAttrib {
	if vb == nil {
		return nil
	}
	attribs := make([]device.VertexAttrib, len(vb.attribLengths))
	offset := 0
	for i, n := range vb.attribLengths {
		attribs[i] = device.VertexAttrib{Slot: i, Size: n, Offset: offset}
		offset += n
	}
	return attribs
}

// Dynamic reports whether reads return the live mirror.
func (vb *VertexBuffer) Dynamic() bool {
	return vb != nil && vb.dynamic
}

// Usage returns the usage hint forwarded on full uploads.
func (vb *VertexBuffer) Usage() device.Usage {
	if vb == nil {
		return device.UsageStatic
	}
	return vb.usage
}

// Created reports whether device storage exists.
func (vb *VertexBuffer) Created() bool {
	return vb != nil && vb.data.Created()
}

// Allocated returns the device storage length in floats.
func (vb *VertexBuffer) Allocated() int {
	if vb == nil {
		return 0
	}
	return vb.data.Allocated()
}

// Flush uploads the mirror, reallocating device storage when its length changed and
// rewriting it in place otherwise. The previous vertex buffer binding is restored.
//
// Returns:
//   - buffer.Action: the action performed
func (vb *VertexBuffer) Flush() buffer.Action {
	if !vb.live() || vb.rejects("Flush") {
		return buffer.ActionNone
	}
	action := vb.data.Plan()
	if action == buffer.ActionNone {
		return action
	}
	vb.scoped(vb, func() {
		action = vb.data.Flush(deviceUploader{ctx: vb.ctx, handle: vb.handle, usage: vb.usage})
	})
	if ce := vb.logger.Check(zap.DebugLevel, "flush"); ce != nil {
		ce.Write(zap.Stringer("action", action), zap.Int("floats", vb.data.Len()))
	}
	return action
}
