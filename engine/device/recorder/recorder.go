// Package recorder provides an in-memory device.Device that records every call it receives.
// It performs no rendering; it tracks live handles, bind slots and buffer storage sizes so that
// misuse (binding a released handle, deleting a bound handle, writing past storage) is reported
// through Err exactly as a real device would report it through its error side channel.
package recorder

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// Op names a recorded device operation.
type Op string

const (
	OpCreateHandle       Op = "CreateHandle"
	OpBind               Op = "Bind"
	OpUploadFull         Op = "UploadFull"
	OpUploadSubrange     Op = "UploadSubrange"
	OpReleaseStorage     Op = "ReleaseStorage"
	OpDraw               Op = "Draw"
	OpDeleteHandle       Op = "DeleteHandle"
	OpCompileProgram     Op = "CompileProgram"
	OpSetUniform         Op = "SetUniform"
	OpSetVertexLayout    Op = "SetVertexLayout"
	OpUploadTexture      Op = "UploadTexture"
	OpSetTextureParams   Op = "SetTextureParams"
	OpAttachRenderTarget Op = "AttachRenderTarget"
	OpClear              Op = "Clear"
	OpViewport           Op = "Viewport"
)

// Call is one recorded device call. Only the fields relevant to Op are populated.
type Call struct {
	Op     Op
	Kind   device.Kind
	Handle device.Handle
	// Size is the byte length of uploaded data, or the pixel count of a texture upload.
	Size int
	// Offset is the byte offset of a sub-range upload.
	Offset  int
	Usage   device.Usage
	Draw    device.DrawCommand
	Uniform string
	Value   any
}

// Recorder is a device.Device that records calls instead of rendering.
type Recorder struct {
	calls   []Call
	next    device.Handle
	live    map[device.Kind]mapset.Set[device.Handle]
	bound   map[device.Kind]device.Handle
	storage map[device.Handle]int
	// elements is the element buffer binding each vertex array records; key 0 is the default array.
	elements map[device.Handle]device.Handle
	errs     []error

	// FailCreate makes CreateHandle fail for the listed kinds.
	FailCreate mapset.Set[device.Kind]
	// CompileErrors maps a vertex source to the compile log returned by CompileProgram.
	CompileErrors map[string]string
}

var _ device.Device = &Recorder{}

// New creates an empty Recorder.
func New() *Recorder {
	r := &Recorder{
		live:          make(map[device.Kind]mapset.Set[device.Handle]),
		bound:         make(map[device.Kind]device.Handle),
		storage:       make(map[device.Handle]int),
		elements:      make(map[device.Handle]device.Handle),
		FailCreate:    mapset.NewThreadUnsafeSet[device.Kind](),
		CompileErrors: make(map[string]string),
	}
	return r
}

func (r *Recorder) record(c Call) {
	r.calls = append(r.calls, c)
}

func (r *Recorder) fail(op string, kind device.Kind, format string, args ...any) {
	r.errs = append(r.errs, device.NewDeviceError(op, kind, fmt.Errorf("%w: "+format, append([]any{device.ErrInvalidHandle}, args...)...)))
}

func (r *Recorder) liveSet(kind device.Kind) mapset.Set[device.Handle] {
	s, ok := r.live[kind]
	if !ok {
		s = mapset.NewThreadUnsafeSet[device.Handle]()
		r.live[kind] = s
	}
	return s
}

func (r *Recorder) requireLive(op string, kind device.Kind, h device.Handle) bool {
	if !r.liveSet(kind).Contains(h) {
		r.fail(op, kind, "handle %d is not live", h)
		return false
	}
	return true
}

func (r *Recorder) requireBound(op string, kind device.Kind, h device.Handle) bool {
	if !r.requireLive(op, kind, h) {
		return false
	}
	if r.bound[kind] != h {
		r.fail(op, kind, "handle %d is not bound (bound: %d)", h, r.bound[kind])
		return false
	}
	return true
}

func (r *Recorder) CreateHandle(kind device.Kind) (device.Handle, error) {
	if r.FailCreate.Contains(kind) {
		return device.NoHandle, device.NewDeviceError(string(OpCreateHandle), kind, device.ErrOutOfHandles)
	}
	r.next++
	h := r.next
	r.liveSet(kind).Add(h)
	r.record(Call{Op: OpCreateHandle, Kind: kind, Handle: h})
	return h, nil
}

func (r *Recorder) Bind(kind device.Kind, h device.Handle) {
	r.record(Call{Op: OpBind, Kind: kind, Handle: h})
	if h != device.NoHandle && !r.requireLive(string(OpBind), kind, h) {
		return
	}
	r.bound[kind] = h
	switch kind {
	case device.KindVertexArray:
		r.bound[device.KindElementBuffer] = r.elements[h]
	case device.KindElementBuffer:
		r.elements[r.bound[device.KindVertexArray]] = h
	}
}

func (r *Recorder) UploadFull(kind device.Kind, h device.Handle, data []byte, usage device.Usage) {
	r.record(Call{Op: OpUploadFull, Kind: kind, Handle: h, Size: len(data), Usage: usage})
	if !r.requireBound(string(OpUploadFull), kind, h) {
		return
	}
	r.storage[h] = len(data)
}

func (r *Recorder) UploadSubrange(kind device.Kind, h device.Handle, offset int, data []byte) {
	r.record(Call{Op: OpUploadSubrange, Kind: kind, Handle: h, Size: len(data), Offset: offset})
	if !r.requireBound(string(OpUploadSubrange), kind, h) {
		return
	}
	if size := r.storage[h]; offset < 0 || offset+len(data) > size {
		r.fail(string(OpUploadSubrange), kind, "range [%d, %d) exceeds storage of %d bytes", offset, offset+len(data), size)
	}
}

func (r *Recorder) ReleaseStorage(kind device.Kind, h device.Handle) {
	r.record(Call{Op: OpReleaseStorage, Kind: kind, Handle: h})
	if !r.requireBound(string(OpReleaseStorage), kind, h) {
		return
	}
	delete(r.storage, h)
}

func (r *Recorder) Draw(cmd device.DrawCommand) {
	r.record(Call{Op: OpDraw, Draw: cmd})
	if r.bound[device.KindProgram] == device.NoHandle {
		r.fail(string(OpDraw), device.KindProgram, "no program bound")
	}
	if r.bound[device.KindVertexArray] == device.NoHandle {
		r.fail(string(OpDraw), device.KindVertexArray, "no vertex array bound")
	}
	if cmd.Indexed && r.bound[device.KindElementBuffer] == device.NoHandle {
		r.fail(string(OpDraw), device.KindElementBuffer, "indexed draw without an element buffer")
	}
}

func (r *Recorder) DeleteHandle(kind device.Kind, h device.Handle) {
	r.record(Call{Op: OpDeleteHandle, Kind: kind, Handle: h})
	if !r.requireLive(string(OpDeleteHandle), kind, h) {
		return
	}
	if r.bound[kind] == h {
		r.fail(string(OpDeleteHandle), kind, "handle %d deleted while bound", h)
	}
	r.liveSet(kind).Remove(h)
	delete(r.storage, h)
	switch kind {
	case device.KindVertexArray:
		delete(r.elements, h)
	case device.KindElementBuffer:
		for va, eb := range r.elements {
			if eb == h {
				delete(r.elements, va)
			}
		}
	}
}

func (r *Recorder) CompileProgram(h device.Handle, src device.ProgramSource) error {
	r.record(Call{Op: OpCompileProgram, Kind: device.KindProgram, Handle: h})
	if msg, ok := r.CompileErrors[src.Vertex]; ok {
		return device.NewDeviceError(string(OpCompileProgram), device.KindProgram, fmt.Errorf("%w: %s", device.ErrCompile, msg))
	}
	return nil
}

func (r *Recorder) SetUniform(h device.Handle, name string, value any) {
	r.record(Call{Op: OpSetUniform, Kind: device.KindProgram, Handle: h, Uniform: name, Value: value})
	r.requireBound(string(OpSetUniform), device.KindProgram, h)
}

func (r *Recorder) SetVertexLayout(h device.Handle, stride int, attribs []device.VertexAttrib) {
	r.record(Call{Op: OpSetVertexLayout, Kind: device.KindVertexArray, Handle: h, Size: stride, Value: attribs})
	r.requireBound(string(OpSetVertexLayout), device.KindVertexArray, h)
	if r.bound[device.KindVertexBuffer] == device.NoHandle {
		r.fail(string(OpSetVertexLayout), device.KindVertexBuffer, "no vertex buffer bound")
	}
}

func (r *Recorder) UploadTexture(h device.Handle, img device.TextureImage) {
	r.record(Call{Op: OpUploadTexture, Kind: device.KindTexture, Handle: h, Size: img.Width * img.Height})
	r.requireBound(string(OpUploadTexture), device.KindTexture, h)
}

func (r *Recorder) SetTextureParams(h device.Handle, params device.TextureParams) {
	r.record(Call{Op: OpSetTextureParams, Kind: device.KindTexture, Handle: h, Value: params})
	r.requireBound(string(OpSetTextureParams), device.KindTexture, h)
}

func (r *Recorder) AttachRenderTarget(fb, color, depth device.Handle, width, height int) {
	r.record(Call{Op: OpAttachRenderTarget, Kind: device.KindFramebuffer, Handle: fb, Size: width * height})
	r.requireBound(string(OpAttachRenderTarget), device.KindFramebuffer, fb)
	r.requireLive(string(OpAttachRenderTarget), device.KindTexture, color)
	if depth != device.NoHandle {
		r.requireLive(string(OpAttachRenderTarget), device.KindRenderbuffer, depth)
	}
}

func (r *Recorder) Clear(cr, cg, cb, ca float32) {
	r.record(Call{Op: OpClear, Value: [4]float32{cr, cg, cb, ca}})
}

func (r *Recorder) Viewport(x, y, width, height int) {
	r.record(Call{Op: OpViewport, Value: [4]int{x, y, width, height}})
}

func (r *Recorder) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return err
}

// Errors returns every pending device error without clearing them.
func (r *Recorder) Errors() []error {
	return append([]error(nil), r.errs...)
}

// Calls returns a copy of every call recorded since creation or the last Reset.
func (r *Recorder) Calls() []Call {
	return append([]Call(nil), r.calls...)
}

// CallsOf returns the recorded calls with the given op.
func (r *Recorder) CallsOf(op Op) []Call {
	var out []Call
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many calls with op targeted kind.
func (r *Recorder) Count(op Op, kind device.Kind) int {
	n := 0
	for _, c := range r.calls {
		if c.Op == op && c.Kind == kind {
			n++
		}
	}
	return n
}

// Reset discards the recorded calls and pending errors; device state is kept.
func (r *Recorder) Reset() {
	r.calls = r.calls[:0]
	r.errs = r.errs[:0]
}

// Bound returns the handle currently bound at kind's slot.
func (r *Recorder) Bound(kind device.Kind) device.Handle {
	return r.bound[kind]
}

// Live reports whether h is a live handle of kind.
func (r *Recorder) Live(kind device.Kind, h device.Handle) bool {
	return r.liveSet(kind).Contains(h)
}

// LiveCount returns the number of live handles of kind.
func (r *Recorder) LiveCount(kind device.Kind) int {
	return r.liveSet(kind).Cardinality()
}

// StorageSize returns the byte size of h's buffer storage, or 0 if it has none.
func (r *Recorder) StorageSize(h device.Handle) int {
	return r.storage[h]
}
