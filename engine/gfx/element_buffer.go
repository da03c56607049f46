package gfx

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// MaxIndices is the largest number of 16-bit indices an element buffer holds.
const MaxIndices = 1 << 16

// ElementBufferOptions describes an element buffer at creation.
type ElementBufferOptions struct {
	// Indices is the initial index data. More than MaxIndices is rejected.
	Indices []uint16
	// Dynamic buffers return their live mirror on read.
	Dynamic bool
	// Usage overrides the usage hint. Defaults to UsageDynamic for dynamic buffers and the
	// context usage otherwise.
	Usage *device.Usage
}

// ElementBuffer is an index buffer of 16-bit indices with a CPU mirror.
type ElementBuffer struct {
	resource
	data    *buffer.Growable[uint16]
	dynamic bool
	usage   device.Usage
}

// CreateElementBuffer creates an element buffer and registers it under id, deleting any
// element buffer previously registered under id.
//
// Parameters:
//   - id: the resource id
//   - opts: initial contents
//
// Returns:
//   - *ElementBuffer: the new element buffer
//   - error: ErrIndexLimit, ErrContextDeleted or a device error
func (c *Context) CreateElementBuffer(id string, opts ElementBufferOptions) (*ElementBuffer, error) {
	eb, err := c.newElementBuffer(id, opts, false)
	if err != nil {
		return nil, err
	}
	c.elementBuffers.Add(id, eb)
	return eb, nil
}

func (c *Context) newElementBuffer(id string, opts ElementBufferOptions, owned bool) (*ElementBuffer, error) {
	if err := c.checkCreate(device.KindElementBuffer, id); err != nil {
		return nil, err
	}
	if len(opts.Indices) > MaxIndices {
		return nil, fmt.Errorf("create element buffer %q: %w: %d indices", id, ErrIndexLimit, len(opts.Indices))
	}

	res, err := newResource(c, id, device.KindElementBuffer, owned)
	if err != nil {
		return nil, fmt.Errorf("create element buffer %q: %w", id, err)
	}

	usage := c.usage
	if opts.Dynamic {
		usage = device.UsageDynamic
	}
	if opts.Usage != nil {
		usage = *opts.Usage
	}

	eb := &ElementBuffer{
		resource: res,
		data:     buffer.NewGrowable(1, buffer.WithLimit[uint16](MaxIndices)),
		dynamic:  opts.Dynamic,
		usage:    usage,
	}
	eb.data.Set(opts.Indices)
	return eb, nil
}

func (eb *ElementBuffer) live() bool {
	return eb != nil && !eb.deleted
}

// Bind makes the element buffer current in the element buffer slot. While a vertex array is
// bound this also records the element buffer into that vertex array.
func (eb *ElementBuffer) Bind() {
	if !eb.live() {
		return
	}
	eb.cache().EnsureBound(eb)
}

// Unbind clears the element buffer slot if this buffer is current.
func (eb *ElementBuffer) Unbind() {
	if !eb.live() || !eb.cache().IsBound(eb) {
		return
	}
	eb.cache().Unbind()
}

// Delete releases the device buffer and removes it from the context registry.
// Buffers owned by a Mesh are deleted with the Mesh and ignore the call.
func (eb *ElementBuffer) Delete() {
	if eb == nil || eb.meshOwned() {
		return
	}
	eb.delete()
}

func (eb *ElementBuffer) delete() {
	if eb == nil || !eb.release(eb) {
		return
	}
	if eb.ctx.defaultElements == eb {
		eb.ctx.defaultElements = nil
	}
	eb.data.Forget()
	if !eb.owned {
		eb.ctx.elementBuffers.Detach(eb.id, eb)
	}
}

// SetRange writes indices at offset, overwriting in place and appending the remainder.
// Indices past MaxIndices are dropped with a warning. Buffers of a static Mesh ignore the
// call, as do SetIndices and Flush.
//
// Parameters:
//   - data: the indices to write
//   - offset: index offset of the first written value
//
// Returns:
//   - int: the number of indices written
func (eb *ElementBuffer) SetRange(data []uint16, offset int) int {
	if !eb.live() || eb.rejects("SetRange") {
		return 0
	}
	n := eb.data.SetRange(data, offset)
	if n < len(data) {
		eb.logger.Warn("index data truncated at the 16-bit index limit",
			zap.Int("offset", offset), zap.Int("requested", len(data)), zap.Int("written", n))
	}
	return n
}

// SetIndices replaces the mirror with data, truncated at MaxIndices.
//
// Parameters:
//   - data: the new indices
func (eb *ElementBuffer) SetIndices(data []uint16) {
	if !eb.live() || eb.rejects("SetIndices") {
		return
	}
	if n := eb.data.Set(data); n < len(data) {
		eb.logger.Warn("index data truncated at the 16-bit index limit", zap.Int("requested", len(data)), zap.Int("written", n))
	}
}

// Indices returns the mirror: the live slice for dynamic buffers, a copy otherwise.
func (eb *ElementBuffer) Indices() []uint16 {
	if eb == nil {
		return nil
	}
	if eb.dynamic {
		return eb.data.Data()
	}
	return eb.data.Copy()
}

// Count returns the number of indices in the mirror.
func (eb *ElementBuffer) Count() int {
	if eb == nil {
		return 0
	}
	return eb.data.Len()
}

// Dynamic reports whether reads return the live mirror.
func (eb *ElementBuffer) Dynamic() bool {
	return eb != nil && eb.dynamic
}

// Usage returns the usage hint forwarded on full uploads.
func (eb *ElementBuffer) Usage() device.Usage {
	if eb == nil {
		return device.UsageStatic
	}
	return eb.usage
}

// Created reports whether device storage exists.
func (eb *ElementBuffer) Created() bool {
	return eb != nil && eb.data.Created()
}

// Allocated returns the device storage length in indices.
func (eb *ElementBuffer) Allocated() int {
	if eb == nil {
		return 0
	}
	return eb.data.Allocated()
}

// Flush uploads the mirror, reallocating device storage when its length changed and
// rewriting it in place otherwise. The previous element buffer binding is restored.
//
// Returns:
//   - buffer.Action: the action performed
func (eb *ElementBuffer) Flush() buffer.Action {
	if !eb.live() || eb.rejects("Flush") {
		return buffer.ActionNone
	}
	action := eb.data.Plan()
	if action == buffer.ActionNone {
		return action
	}
	eb.scoped(eb, func() {
		action = eb.data.Flush(deviceUploader{ctx: eb.ctx, handle: eb.handle, usage: eb.usage})
	})
	if ce := eb.logger.Check(zap.DebugLevel, "flush"); ce != nil {
		ce.Write(zap.Stringer("action", action), zap.Int("indices", eb.data.Len()))
	}
	return action
}
