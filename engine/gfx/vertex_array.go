package gfx

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/engine/bindcache"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// VertexArray binds the attribute layout of a vertex buffer, and optionally an element buffer,
// to attribute slots. Deleting a vertex array keeps its buffers.
type VertexArray struct {
	resource
	vertices *VertexBuffer
	elements *ElementBuffer
	// attached is the element buffer the device vertex array currently records.
	attached *ElementBuffer
}

// CreateVertexArray creates a vertex array over vb and eb and registers it under id, deleting
// any vertex array previously registered under id. Either buffer may be nil.
//
// Parameters:
//   - id: the resource id
//   - vb: the vertex buffer whose layout is captured
//   - eb: the element buffer captured for indexed draws, or nil
//
// Returns:
//   - *VertexArray: the new vertex array
//   - error: ErrContextDeleted or a device error
func (c *Context) CreateVertexArray(id string, vb *VertexBuffer, eb *ElementBuffer) (*VertexArray, error) {
	va, err := c.newVertexArray(id, vb, eb, false)
	if err != nil {
		return nil, err
	}
	c.vertexArrays.Add(id, va)
	return va, nil
}

func (c *Context) newVertexArray(id string, vb *VertexBuffer, eb *ElementBuffer, owned bool) (*VertexArray, error) {
	if err := c.checkCreate(device.KindVertexArray, id); err != nil {
		return nil, err
	}
	res, err := newResource(c, id, device.KindVertexArray, owned)
	if err != nil {
		return nil, fmt.Errorf("create vertex array %q: %w", id, err)
	}
	va := &VertexArray{resource: res, vertices: vb, elements: eb}
	va.Configure()
	return va, nil
}

// onElementBufferBind records element buffer binds into the current vertex array, which is
// where the device stores them.
func (c *Context) onElementBufferBind(r bindcache.Bindable) {
	eb, _ := r.(*ElementBuffer)
	if va, ok := c.caches[device.KindVertexArray].Current().(*VertexArray); ok {
		va.attached = eb
		return
	}
	c.defaultElements = eb
}

func (va *VertexArray) live() bool {
	return va != nil && !va.deleted
}

// Bind makes the vertex array current. The element buffer it captured becomes current in the
// element buffer slot.
func (va *VertexArray) Bind() {
	if !va.live() {
		return
	}
	va.cache().EnsureBound(va)
}

// Unbind clears the vertex array slot if this vertex array is current.
func (va *VertexArray) Unbind() {
	if !va.live() || !va.cache().IsBound(va) {
		return
	}
	va.cache().Unbind()
}

// Delete releases the vertex array and removes it from the context registry. Its buffers are kept.
// Vertex arrays owned by a Mesh are deleted with the Mesh and ignore the call.
func (va *VertexArray) Delete() {
	if va == nil || va.meshOwned() {
		return
	}
	va.delete()
}

func (va *VertexArray) delete() {
	if va == nil || !va.release(va) {
		return
	}
	va.attached = nil
	if !va.owned {
		va.ctx.vertexArrays.Detach(va.id, va)
	}
}

// VertexBuffer returns the vertex buffer whose layout is captured.
func (va *VertexArray) VertexBuffer() *VertexBuffer {
	if va == nil {
		return nil
	}
	return va.vertices
}

// ElementBuffer returns the captured element buffer, or nil.
func (va *VertexArray) ElementBuffer() *ElementBuffer {
	if va == nil {
		return nil
	}
	return va.elements
}

// SetBuffers replaces the captured buffers and re-issues the layout.
//
// Parameters:
//   - vb: the vertex buffer, or nil
//   - eb: the element buffer, or nil
func (va *VertexArray) SetBuffers(vb *VertexBuffer, eb *ElementBuffer) {
	if !va.live() {
		return
	}
	va.vertices, va.elements = vb, eb
	va.Configure()
}

// Configure re-issues the attribute layout and element buffer binding into the device vertex array.
// Previous vertex array, vertex buffer and element buffer bindings are restored.
func (va *VertexArray) Configure() {
	if !va.live() {
		return
	}
	va.scoped(va, func() {
		if vb := va.vertices; vb.live() {
			vb.scoped(vb, func() {
				va.ctx.dev.SetVertexLayout(va.handle.Handle, vb.Stride(), vb.Attribs())
			})
		}

		elements := va.ctx.caches[device.KindElementBuffer]
		if eb := va.elements; eb.live() {
			elements.EnsureBound(eb)
		} else {
			elements.Unbind()
		}
	})
}
