package gfx

import (
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/bindcache"
	"github.com/Carmen-Shannon/oxy-gl/engine/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// Resource is the capability set shared by every resource kind.
type Resource interface {
	bindcache.Bindable

	// ID returns the id the resource was created under.
	//
	// Returns:
	//   - string: the resource id
	ID() string

	// Deleted reports whether Delete has run.
	//
	// Returns:
	//   - bool: true once the device handle has been released
	Deleted() bool

	// Bind makes the resource current in its bind slot, skipping the device call when it already is.
	Bind()

	// Unbind clears the resource's bind slot if the resource is current.
	Unbind()

	// Delete releases the device handle and removes the resource from its registry.
	// The bind cache is cleared before the handle is released. Delete is idempotent.
	Delete()
}

var (
	_ Resource = &VertexBuffer{}
	_ Resource = &ElementBuffer{}
	_ Resource = &Shader{}
	_ Resource = &Texture{}
	_ Resource = &VertexArray{}
	_ Resource = &Mesh{}
)

// resource holds the identity shared by every kind. Its accessors require a non-nil owner.
type resource struct {
	id      string
	ctx     *Context
	handle  device.HandleID
	deleted bool
	// owned resources belong to a Mesh and are not registered with the Context.
	// Only the Mesh deletes them. frozen ones also reject mutation and Flush.
	owned  bool
	frozen bool
	logger *zap.Logger
}

func newResource(ctx *Context, id string, kind device.Kind, owned bool) (resource, error) {
	h, err := ctx.dev.CreateHandle(kind)
	if err != nil {
		return resource{}, err
	}
	return resource{
		id:     id,
		ctx:    ctx,
		handle: device.HandleID{Kind: kind, Handle: h},
		owned:  owned,
		logger: ctx.logger.With(zap.String("id", id), zap.Stringer("kind", kind)),
	}, nil
}

// ID returns the id the resource was created under.
func (r *resource) ID() string {
	return r.id
}

// HandleID returns the device handle and its kind.
func (r *resource) HandleID() device.HandleID {
	return r.handle
}

// Context returns the Context the resource belongs to.
func (r *resource) Context() *Context {
	return r.ctx
}

// Deleted reports whether Delete has run.
func (r *resource) Deleted() bool {
	return r.deleted
}

// Owned reports whether the resource belongs to a Mesh rather than a Context registry.
func (r *resource) Owned() bool {
	return r.owned
}

// rejects reports whether op must be ignored because the resource is a static Mesh's buffer.
func (r *resource) rejects(op string) bool {
	if !r.frozen {
		return false
	}
	r.logger.Debug("ignoring mutation of a static mesh buffer", zap.String("op", op))
	return true
}

// meshOwned reports whether a direct Delete must be ignored because a Mesh owns the resource.
func (r *resource) meshOwned() bool {
	if !r.owned {
		return false
	}
	r.logger.Debug("ignoring delete of a mesh-owned resource; delete the mesh")
	return true
}

func (r *resource) cache() bindcache.BindCache {
	return r.ctx.Cache(r.handle.Kind)
}

// release forgets self in its bind cache, then releases the device handle.
// It reports false when the resource was already released.
func (r *resource) release(self bindcache.Bindable) bool {
	if r.deleted {
		return false
	}
	r.deleted = true
	r.cache().Forget(self)
	r.ctx.dev.DeleteHandle(r.handle.Kind, r.handle.Handle)
	r.logger.Debug("deleted")
	return true
}

// scoped binds self in its slot for the duration of fn.
func (r *resource) scoped(self bindcache.Bindable, fn func()) {
	c := r.cache()
	tok := c.ScopedBind(self)
	fn()
	c.Restore(tok)
}

// deviceUploader flushes a Growable into one device buffer. The buffer must be bound.
// Uploads are counted on the owning context.
type deviceUploader struct {
	ctx    *Context
	handle device.HandleID
	usage  device.Usage
}

var _ buffer.Uploader = deviceUploader{}

func (u deviceUploader) UploadFull(data []byte) {
	u.ctx.dev.UploadFull(u.handle.Kind, u.handle.Handle, data, u.usage)
	u.ctx.uploads.Full++
	u.ctx.uploads.Bytes += len(data)
}

func (u deviceUploader) UploadSubrange(offset int, data []byte) {
	u.ctx.dev.UploadSubrange(u.handle.Kind, u.handle.Handle, offset, data)
	u.ctx.uploads.Subrange++
	u.ctx.uploads.Bytes += len(data)
}

func (u deviceUploader) ReleaseStorage() {
	u.ctx.dev.ReleaseStorage(u.handle.Kind, u.handle.Handle)
}
