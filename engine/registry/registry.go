// Package registry maps stable string ids to live resources of a single kind.
package registry

import (
	"sort"
)

// Deleter is implemented by resources that release their device objects on Delete.
// Delete must be idempotent.
type Deleter interface {
	Delete()
}

// Registry owns the id -> resource mapping for one resource kind within one rendering context.
// At most one resource is live per id: adding under an existing id deletes the previous resource.
// Lookups of unknown ids are not errors; they return the zero value.
//
// Registry is not safe for concurrent use; it follows the single-threaded device model.
type Registry[T Deleter] struct {
	entries map[string]T
}

// New creates an empty Registry.
func New[T Deleter]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// Add stores r under id. A different resource already stored under id is deleted first,
// so its device handle is released before the replacement becomes visible.
func (reg *Registry[T]) Add(id string, r T) {
	if old, ok := reg.entries[id]; ok && !same(old, r) {
		old.Delete()
	}
	reg.entries[id] = r
}

// Get returns the resource stored under id, or the zero value and false.
func (reg *Registry[T]) Get(id string) (T, bool) {
	r, ok := reg.entries[id]
	return r, ok
}

// Lookup returns the resource stored under id or the zero value.
func (reg *Registry[T]) Lookup(id string) T {
	return reg.entries[id]
}

// Has reports whether id is present.
func (reg *Registry[T]) Has(id string) bool {
	_, ok := reg.entries[id]
	return ok
}

// Delete removes id and deletes its resource. Unknown ids are a no-op.
func (reg *Registry[T]) Delete(id string) {
	r, ok := reg.entries[id]
	if !ok {
		return
	}
	delete(reg.entries, id)
	r.Delete()
}

// Detach removes the mapping for id only if it still refers to r, without deleting r.
// Resources call this from their own Delete so that deleting through the resource and deleting
// through the registry converge on exactly one Delete.
func (reg *Registry[T]) Detach(id string, r T) bool {
	cur, ok := reg.entries[id]
	if !ok || !same(cur, r) {
		return false
	}
	delete(reg.entries, id)
	return true
}

// Clear deletes every resource in ascending id order.
func (reg *Registry[T]) Clear() {
	for _, id := range reg.IDs() {
		reg.Delete(id)
	}
}

// Len returns the number of stored resources.
func (reg *Registry[T]) Len() int {
	return len(reg.entries)
}

// IDs returns the stored ids in ascending order.
func (reg *Registry[T]) IDs() []string {
	ids := make([]string, 0, len(reg.entries))
	for id := range reg.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Each calls fn for every entry in ascending id order until fn returns false.
// fn must not add or delete entries.
func (reg *Registry[T]) Each(fn func(id string, r T) bool) {
	for _, id := range reg.IDs() {
		if !fn(id, reg.entries[id]) {
			return
		}
	}
}

func same[T Deleter](a, b T) bool {
	return any(a) == any(b)
}
