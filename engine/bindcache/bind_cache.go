// Package bindcache tracks which resource occupies one device bind slot so that redundant bind calls
// are elided and scoped operations can put back whatever was bound when they started.
package bindcache

import (
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// Bindable is anything that can occupy a bind slot.
type Bindable interface {
	HandleID() device.HandleID
}

// Token is returned by ScopedBind and consumed by Restore.
// The zero Token restores nothing.
type Token struct {
	restore bool
	depth   int
}

// Restores reports whether restoring the token will touch the cache.
func (t Token) Restores() bool {
	return t.restore
}

// Stats counts bind decisions made by a BindCache.
type Stats struct {
	// Binds is the number of bind or unbind calls issued to the device.
	Binds int
	// Skipped is the number of binds elided because the resource was already current.
	Skipped int
	// Restores is the number of tokens restored that had a saved entry.
	Restores int
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{Binds: s.Binds + o.Binds, Skipped: s.Skipped + o.Skipped, Restores: s.Restores + o.Restores}
}

// bindCache is the implementation of the BindCache interface.
type bindCache struct {
	kind    device.Kind
	dev     device.Device
	logger  *zap.Logger
	current Bindable
	saved   []Bindable
	stats   Stats
	onBind  func(Bindable)
}

// BindCache mirrors one device bind slot. All binds of that slot must go through the cache,
// otherwise Current drifts from the device.
type BindCache interface {
	// Kind returns the bind slot this cache mirrors.
	//
	// Returns:
	//   - device.Kind: the slot kind
	Kind() device.Kind

	// Current returns the resource believed bound, or nil when the slot is empty.
	//
	// Returns:
	//   - Bindable: the current resource or nil
	Current() Bindable

	// IsBound reports whether r is the current resource.
	//
	// Parameters:
	//   - r: the resource to test
	//
	// Returns:
	//   - bool: true if r is current
	IsBound(r Bindable) bool

	// EnsureBound binds r unless it is already current. A nil r unbinds the slot.
	//
	// Parameters:
	//   - r: the resource to bind
	EnsureBound(r Bindable)

	// ScopedBind binds r for the duration of a scoped operation.
	// If r is already current, or r is nil and the slot is empty, the returned token restores
	// nothing and no device call is made. Otherwise the previous resource is pushed on the
	// save stack and the token remembers where.
	//
	// Parameters:
	//   - r: the resource to bind
	//
	// Returns:
	//   - Token: the token to pass to Restore when the operation ends
	ScopedBind(r Bindable) Token

	// Restore unwinds the save stack to the token's position and rebinds the saved resource
	// if it differs from the current one. Tokens restored out of order truncate the stack.
	//
	// Parameters:
	//   - t: a token returned by ScopedBind
	Restore(t Token)

	// Unbind clears the slot. No device call is made when the slot is already empty.
	Unbind()

	// Forget removes every trace of r before its handle is released. If r is current the device
	// slot is unbound; saved entries equal to r are replaced with the empty slot.
	//
	// Parameters:
	//   - r: the resource being deleted
	Forget(r Bindable)

	// Assume records r as current without a device call. Used when the device changes the slot
	// as a side effect of another bind.
	//
	// Parameters:
	//   - r: the resource now bound, or nil
	Assume(r Bindable)

	// Depth returns the number of saved entries.
	//
	// Returns:
	//   - int: the save stack depth
	Depth() int

	// Stats returns the bind counters accumulated so far.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats

	// ResetStats zeroes the bind counters and returns their previous value.
	//
	// Returns:
	//   - Stats: the counters before the reset
	ResetStats() Stats
}

var _ BindCache = &bindCache{}

// NewBindCache creates an empty BindCache for the slot of kind on dev.
//
// Parameters:
//   - kind: the bind slot mirrored by the cache
//   - dev: the device receiving bind calls
//   - options: optional builder options
//
// Returns:
//   - BindCache: the new cache
func NewBindCache(kind device.Kind, dev device.Device, options ...BindCacheBuilderOption) BindCache {
	c := &bindCache{
		kind:   kind,
		dev:    dev,
		logger: Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.logger = c.logger.With(zap.Stringer("slot", kind))
	return c
}

func (c *bindCache) Kind() device.Kind {
	return c.kind
}

func (c *bindCache) Current() Bindable {
	return c.current
}

func (c *bindCache) IsBound(r Bindable) bool {
	return r != nil && c.current == r
}

func (c *bindCache) EnsureBound(r Bindable) {
	if r == nil {
		c.Unbind()
		return
	}
	if c.current == r {
		c.stats.Skipped++
		return
	}
	c.bind(r)
}

func (c *bindCache) ScopedBind(r Bindable) Token {
	if c.current == r {
		c.stats.Skipped++
		return Token{}
	}
	c.saved = append(c.saved, c.current)
	depth := len(c.saved)
	if r == nil {
		c.unbind()
	} else {
		c.bind(r)
	}
	return Token{restore: true, depth: depth}
}

func (c *bindCache) Restore(t Token) {
	if !t.restore {
		return
	}
	if t.depth <= 0 || t.depth > len(c.saved) {
		c.logger.Warn("restore of a token that was already unwound", zap.Int("depth", t.depth), zap.Int("stack", len(c.saved)))
		return
	}
	if t.depth != len(c.saved) {
		c.logger.Warn("out-of-order restore, dropping newer saved bindings",
			zap.Int("depth", t.depth), zap.Int("stack", len(c.saved)))
	}

	prev := c.saved[t.depth-1]
	for i := t.depth - 1; i < len(c.saved); i++ {
		c.saved[i] = nil
	}
	c.saved = c.saved[:t.depth-1]
	c.stats.Restores++

	if prev == c.current {
		return
	}
	if prev == nil {
		c.unbind()
		return
	}
	c.bind(prev)
}

func (c *bindCache) Unbind() {
	if c.current == nil {
		return
	}
	c.unbind()
}

func (c *bindCache) Forget(r Bindable) {
	if r == nil {
		return
	}
	if c.current == r {
		c.unbind()
	}
	for i, s := range c.saved {
		if s == r {
			c.saved[i] = nil
		}
	}
}

func (c *bindCache) Assume(r Bindable) {
	c.current = r
}

func (c *bindCache) Depth() int {
	return len(c.saved)
}

func (c *bindCache) Stats() Stats {
	return c.stats
}

func (c *bindCache) ResetStats() Stats {
	s := c.stats
	c.stats = Stats{}
	return s
}

func (c *bindCache) bind(r Bindable) {
	id := r.HandleID()
	c.dev.Bind(c.kind, id.Handle)
	c.current = r
	c.stats.Binds++
	if c.onBind != nil {
		c.onBind(r)
	}
	if ce := c.logger.Check(zap.DebugLevel, "bind"); ce != nil {
		ce.Write(zap.Stringer("handle", id))
	}
}

func (c *bindCache) unbind() {
	c.dev.Bind(c.kind, device.NoHandle)
	c.current = nil
	c.stats.Binds++
	if c.onBind != nil {
		c.onBind(nil)
	}
	c.logger.Debug("unbind")
}
