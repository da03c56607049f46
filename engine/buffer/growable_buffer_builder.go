package buffer

// GrowableBuilderOption is a functional option for configuring a Growable.
type GrowableBuilderOption[E Element] func(*Growable[E])

// WithLimit caps the mirror length. Writes past the limit are truncated.
//
// Parameters:
//   - limit: maximum number of elements; 0 means unbounded
//
// Returns:
//   - GrowableBuilderOption[E]: option function to apply
func WithLimit[E Element](limit int) GrowableBuilderOption[E] {
	return func(g *Growable[E]) {
		g.limit = max(limit, 0)
	}
}

// WithCapacity preallocates mirror capacity without changing its length.
//
// Parameters:
//   - capacity: number of elements to reserve
//
// Returns:
//   - GrowableBuilderOption[E]: option function to apply
func WithCapacity[E Element](capacity int) GrowableBuilderOption[E] {
	return func(g *Growable[E]) {
		if capacity > 0 {
			g.mirror = make([]E, 0, capacity)
		}
	}
}
