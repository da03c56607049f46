package gfx

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// MeshOptions describes a mesh at creation.
type MeshOptions struct {
	// AttribLengths is the float count of each vertex attribute; attribute i is bound to slot i.
	AttribLengths []int
	// Vertices is the interleaved vertex data.
	Vertices []float32
	// Indices makes the mesh indexed when non-nil. At most MaxIndices indices and MaxIndices
	// vertices are allowed.
	Indices []uint16
	// Dynamic meshes accept mutation, flush explicitly and return live slices on read.
	// Static meshes flush once at creation and return copies.
	Dynamic bool
	// Usage overrides the usage hint of both buffers.
	Usage *device.Usage
}

// Mesh owns a vertex buffer, an optional element buffer and the vertex array binding them.
type Mesh struct {
	resource
	vertices *VertexBuffer
	elements *ElementBuffer
	array    *VertexArray
	dynamic  bool
}

// CreateMesh creates a mesh and registers it under id, deleting any mesh previously registered
// under id. A static mesh is uploaded before CreateMesh returns.
//
// Parameters:
//   - id: the resource id
//   - opts: layout, contents and mutability
//
// Returns:
//   - *Mesh: the new mesh
//   - error: ErrIndexLimit, ErrInvalidLayout, ErrContextDeleted or a device error
func (c *Context) CreateMesh(id string, opts MeshOptions) (*Mesh, error) {
	if err := c.checkCreate(device.KindVertexArray, id); err != nil {
		return nil, err
	}
	stride, err := layoutStride(opts.AttribLengths)
	if err != nil {
		return nil, fmt.Errorf("create mesh %q: %w", id, err)
	}
	maxVertices := 0
	if opts.Indices != nil {
		maxVertices = MaxIndices
		if len(opts.Indices) > MaxIndices {
			return nil, fmt.Errorf("create mesh %q: %w: %d indices", id, ErrIndexLimit, len(opts.Indices))
		}
		if n := len(opts.Vertices) / stride; n > MaxIndices {
			return nil, fmt.Errorf("create mesh %q: %w: %d vertices are not addressable by 16-bit indices", id, ErrIndexLimit, n)
		}
	}

	vb, err := c.newVertexBuffer(id, VertexBufferOptions{
		AttribLengths: opts.AttribLengths,
		Vertices:      opts.Vertices,
		Dynamic:       opts.Dynamic,
		Usage:         opts.Usage,
	}, true, maxVertices)
	if err != nil {
		return nil, fmt.Errorf("create mesh %q: %w", id, err)
	}

	var eb *ElementBuffer
	if opts.Indices != nil {
		eb, err = c.newElementBuffer(id, ElementBufferOptions{
			Indices: opts.Indices,
			Dynamic: opts.Dynamic,
			Usage:   opts.Usage,
		}, true)
		if err != nil {
			vb.delete()
			return nil, fmt.Errorf("create mesh %q: %w", id, err)
		}
	}

	if !opts.Dynamic {
		vb.Flush()
		eb.Flush()
		vb.frozen = true
		if eb != nil {
			eb.frozen = true
		}
	}

	va, err := c.newVertexArray(id, vb, eb, true)
	if err != nil {
		eb.delete()
		vb.delete()
		return nil, fmt.Errorf("create mesh %q: %w", id, err)
	}

	m := &Mesh{
		resource: resource{
			id:     id,
			ctx:    c,
			handle: va.handle,
			logger: c.logger.With(zap.String("id", id), zap.String("kind", "Mesh")),
		},
		vertices: vb,
		elements: eb,
		array:    va,
		dynamic:  opts.Dynamic,
	}
	c.meshes.Add(id, m)
	return m, nil
}

func (m *Mesh) live() bool {
	return m != nil && !m.deleted
}

// mutable reports whether the mirror may be changed, logging rejected static mutation.
func (m *Mesh) mutable(op string) bool {
	if !m.live() {
		return false
	}
	if !m.dynamic {
		m.logger.Debug("ignoring mutation of a static mesh", zap.String("op", op))
		return false
	}
	return true
}

// Bind binds the mesh's vertex array.
func (m *Mesh) Bind() {
	if !m.live() {
		return
	}
	m.array.Bind()
}

// Unbind clears the vertex array slot if the mesh's vertex array is current.
func (m *Mesh) Unbind() {
	if !m.live() {
		return
	}
	m.array.Unbind()
}

// Delete releases the vertex array and both buffers, and removes the mesh from the context registry.
func (m *Mesh) Delete() {
	if m == nil || m.deleted {
		return
	}
	m.deleted = true
	m.array.delete()
	m.elements.delete()
	m.vertices.delete()
	m.ctx.meshes.Detach(m.id, m)
	m.logger.Debug("deleted")
}

// Dynamic reports whether the mesh accepts mutation.
func (m *Mesh) Dynamic() bool {
	return m != nil && m.dynamic
}

// Indexed reports whether the mesh draws through an element buffer.
func (m *Mesh) Indexed() bool {
	return m != nil && m.elements != nil
}

// VertexBuffer returns the mesh's vertex buffer. The buffer of a static mesh ignores mutation.
func (m *Mesh) VertexBuffer() *VertexBuffer {
	if m == nil {
		return nil
	}
	return m.vertices
}

// ElementBuffer returns the mesh's element buffer, or nil for array meshes. The buffer of a
// static mesh ignores mutation.
func (m *Mesh) ElementBuffer() *ElementBuffer {
	if m == nil {
		return nil
	}
	return m.elements
}

// VertexArray returns the mesh's vertex array.
func (m *Mesh) VertexArray() *VertexArray {
	if m == nil {
		return nil
	}
	return m.array
}

// Vertices returns the vertex mirror: live for dynamic meshes, a copy for static ones.
func (m *Mesh) Vertices() []float32 {
	if m == nil {
		return nil
	}
	return m.vertices.Vertices()
}

// Indices returns the index mirror: live for dynamic meshes, a copy for static ones.
func (m *Mesh) Indices() []uint16 {
	if m == nil {
		return nil
	}
	return m.elements.Indices()
}

// VertexCount returns the number of whole vertices in the mirror.
func (m *Mesh) VertexCount() int {
	if m == nil {
		return 0
	}
	return m.vertices.VertexCount()
}

// IndexCount returns the number of indices in the mirror.
func (m *Mesh) IndexCount() int {
	if m == nil {
		return 0
	}
	return m.elements.Count()
}

// SetVertexRange writes vertex floats at offset. Static meshes ignore the call. Indexed meshes
// keep at most MaxIndices vertices and drop the rest with a warning.
func (m *Mesh) SetVertexRange(data []float32, offset int) {
	if !m.mutable("SetVertexRange") {
		return
	}
	m.vertices.SetRange(data, offset)
}

// SetVertices replaces the vertex mirror. Static meshes ignore the call.
func (m *Mesh) SetVertices(data []float32) {
	if !m.mutable("SetVertices") {
		return
	}
	m.vertices.SetVertices(data)
}

// SetIndexRange writes indices at offset. Static and array meshes ignore the call.
func (m *Mesh) SetIndexRange(data []uint16, offset int) {
	if !m.mutable("SetIndexRange") {
		return
	}
	m.elements.SetRange(data, offset)
}

// SetIndices replaces the index mirror. Static and array meshes ignore the call.
func (m *Mesh) SetIndices(data []uint16) {
	if !m.mutable("SetIndices") {
		return
	}
	m.elements.SetIndices(data)
}

// Flush uploads both mirrors of a dynamic mesh. Static meshes were uploaded at creation and
// ignore the call.
func (m *Mesh) Flush() {
	if !m.mutable("Flush") {
		return
	}
	m.vertices.Flush()
	m.elements.Flush()
}

// total returns the number of indices (indexed) or vertices (array) available to draw.
func (m *Mesh) total() int {
	if m.elements != nil {
		return m.elements.Count()
	}
	return m.vertices.VertexCount()
}

// Draw draws the whole mesh with the bound program.
//
// Parameters:
//   - prim: the primitive assembly mode
func (m *Mesh) Draw(prim device.Primitive) {
	if !m.live() {
		return
	}
	m.draw(prim, 0, m.total(), 1)
}

// DrawRange draws part of the mesh with the bound program. The range is clamped to the mirror.
//
// Parameters:
//   - prim: the primitive assembly mode
//   - offset: first index (indexed) or vertex
//   - length: number of indices or vertices
func (m *Mesh) DrawRange(prim device.Primitive, offset, length int) {
	if !m.live() {
		return
	}
	total := m.total()
	offset = min(max(offset, 0), total)
	length = min(max(length, 0), total-offset)
	m.draw(prim, offset, length, 1)
}

// DrawInstanced draws the whole mesh instances times with the bound program.
//
// Parameters:
//   - prim: the primitive assembly mode
//   - instances: the instance count
func (m *Mesh) DrawInstanced(prim device.Primitive, instances int) {
	if !m.live() || instances < 1 {
		return
	}
	m.draw(prim, 0, m.total(), instances)
}

func (m *Mesh) draw(prim device.Primitive, first, count, instances int) {
	if count == 0 {
		return
	}
	m.array.scoped(m.array, func() {
		m.ctx.dev.Draw(device.DrawCommand{
			Primitive: prim,
			Indexed:   m.elements != nil,
			First:     first,
			Count:     count,
			Instances: instances,
		})
	})
}
