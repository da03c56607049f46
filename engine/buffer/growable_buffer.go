// Package buffer implements the CPU-side mirror of a GPU buffer and the decision of how to
// reconcile it with device storage: reallocate when the length changed, rewrite in place otherwise.
package buffer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/common"
)

// Element is a scalar type that can be stored in a Growable.
type Element interface {
	~float32 | ~uint16
}

// Action is the device work a flush performs.
type Action int

const (
	// ActionNone means there is nothing to upload: the mirror is empty and no storage exists.
	ActionNone Action = iota
	// ActionAllocate (re)allocates device storage sized to the mirror and fills it.
	ActionAllocate
	// ActionSubrange rewrites the existing device storage in place.
	ActionSubrange
	// ActionRelease frees device storage because the mirror was emptied.
	ActionRelease
)

// String returns the name of the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "None"
	case ActionAllocate:
		return "Allocate"
	case ActionSubrange:
		return "Subrange"
	case ActionRelease:
		return "Release"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Uploader performs the device side of a flush against one bound buffer.
type Uploader interface {
	// UploadFull replaces the buffer storage with data.
	UploadFull(data []byte)
	// UploadSubrange writes data at a byte offset inside the existing storage.
	UploadSubrange(offset int, data []byte)
	// ReleaseStorage frees the buffer storage.
	ReleaseStorage()
}

// Growable is a CPU-side mirror of a GPU buffer. Lengths are counted in elements.
//
// The device storage is either Empty (never created, or released) or Allocated with a fixed
// element length. Allocated only changes on a full reallocation or a release.
type Growable[E Element] struct {
	mirror    []E
	stride    int
	allocated int
	created   bool
	limit     int
}

// NewGrowable creates an empty mirror whose records are stride elements wide.
//
// Parameters:
//   - stride: elements per record; values below 1 are treated as 1
//   - options: optional builder options
//
// Returns:
//   - *Growable[E]: the new mirror
func NewGrowable[E Element](stride int, options ...GrowableBuilderOption[E]) *Growable[E] {
	g := &Growable[E]{stride: max(stride, 1)}
	for _, opt := range options {
		opt(g)
	}
	return g
}

// SetRange writes data starting at element offset. The part of data that falls inside the
// current mirror overwrites in place; the remainder is appended. An offset beyond the end
// zero-fills the gap first. Negative offsets are treated as 0.
// With a limit, the write stops at the limit.
//
// Parameters:
//   - data: elements to write
//   - offset: element offset of the first written element
//
// Returns:
//   - int: the number of elements of data actually written
func (g *Growable[E]) SetRange(data []E, offset int) int {
	offset = max(offset, 0)
	n := len(data)
	if g.limit > 0 {
		if offset >= g.limit {
			return 0
		}
		n = min(n, g.limit-offset)
	}
	if n == 0 {
		return 0
	}
	data = data[:n]

	if offset > len(g.mirror) {
		g.mirror = append(g.mirror, make([]E, offset-len(g.mirror))...)
	}

	inPlace := min(len(g.mirror)-offset, n)
	copy(g.mirror[offset:offset+inPlace], data[:inPlace])
	g.mirror = append(g.mirror, data[inPlace:]...)
	return n
}

// Set replaces the whole mirror with a copy of data, truncated at the limit.
//
// Parameters:
//   - data: the new contents
//
// Returns:
//   - int: the number of elements kept
func (g *Growable[E]) Set(data []E) int {
	g.mirror = g.mirror[:0]
	return g.SetRange(data, 0)
}

// Truncate shortens the mirror to n elements. Larger n is a no-op.
//
// Parameters:
//   - n: the new length
func (g *Growable[E]) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(g.mirror) {
		g.mirror = g.mirror[:n]
	}
}

// Reset empties the mirror. The next flush releases device storage.
func (g *Growable[E]) Reset() {
	g.mirror = g.mirror[:0]
}

// Len returns the mirror length in elements.
func (g *Growable[E]) Len() int {
	return len(g.mirror)
}

// Records returns the number of whole records in the mirror.
func (g *Growable[E]) Records() int {
	return len(g.mirror) / g.stride
}

// Stride returns the number of elements per record.
func (g *Growable[E]) Stride() int {
	return g.stride
}

// Limit returns the maximum mirror length, or 0 when unbounded.
func (g *Growable[E]) Limit() int {
	return g.limit
}

// Allocated returns the device storage length in elements as of the last flush.
func (g *Growable[E]) Allocated() int {
	return g.allocated
}

// Created reports whether device storage currently exists.
func (g *Growable[E]) Created() bool {
	return g.created
}

// Data returns the live mirror. Writes through it are visible to the next flush.
func (g *Growable[E]) Data() []E {
	return g.mirror
}

// Copy returns an owned copy of the mirror.
func (g *Growable[E]) Copy() []E {
	out := make([]E, len(g.mirror))
	copy(out, g.mirror)
	return out
}

// Bytes returns a byte view of the mirror in machine byte order.
func (g *Growable[E]) Bytes() []byte {
	return common.SliceToBytes(g.mirror)
}

// Plan returns the action the next Flush will perform.
//
// Returns:
//   - Action: the planned action
func (g *Growable[E]) Plan() Action {
	switch {
	case len(g.mirror) == 0 && !g.created:
		return ActionNone
	case len(g.mirror) == 0:
		return ActionRelease
	case !g.created || len(g.mirror) != g.allocated:
		return ActionAllocate
	default:
		return ActionSubrange
	}
}

// Flush reconciles device storage with the mirror through u.
// A partial update always covers the whole mirror from offset 0.
//
// Parameters:
//   - u: the device side of the bound buffer
//
// Returns:
//   - Action: the action performed
func (g *Growable[E]) Flush(u Uploader) Action {
	action := g.Plan()
	switch action {
	case ActionAllocate:
		u.UploadFull(g.Bytes())
		g.allocated = len(g.mirror)
		g.created = true
	case ActionSubrange:
		u.UploadSubrange(0, g.Bytes())
	case ActionRelease:
		u.ReleaseStorage()
		g.allocated = 0
		g.created = false
	}
	return action
}

// Forget drops the device state after the owning handle was deleted, keeping the mirror.
func (g *Growable[E]) Forget() {
	g.allocated = 0
	g.created = false
}
