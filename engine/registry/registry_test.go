package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResource struct {
	name    string
	deletes int
	reg     *Registry[*fakeResource]
}

func (f *fakeResource) Delete() {
	f.deletes++
	if f.reg != nil {
		f.reg.Detach(f.name, f)
	}
}

func TestRegistry_AddGet(t *testing.T) {
	reg := New[*fakeResource]()
	r := &fakeResource{name: "a"}
	reg.Add("a", r)

	got, ok := reg.Get("a")
	require.True(t, ok)
	assert.Same(t, r, got)
	assert.Equal(t, 1, reg.Len())

	_, ok = reg.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, reg.Lookup("missing"))
}

func TestRegistry_AddReplaceDeletesPrevious(t *testing.T) {
	reg := New[*fakeResource]()
	r1 := &fakeResource{name: "x", reg: reg}
	r2 := &fakeResource{name: "x", reg: reg}

	reg.Add("x", r1)
	reg.Add("x", r2)

	assert.Equal(t, 1, r1.deletes)
	assert.Equal(t, 0, r2.deletes)
	assert.Same(t, r2, reg.Lookup("x"))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_AddSameResourceIsNoop(t *testing.T) {
	reg := New[*fakeResource]()
	r := &fakeResource{name: "x"}
	reg.Add("x", r)
	reg.Add("x", r)
	assert.Equal(t, 0, r.deletes)
}

func TestRegistry_DeleteMissingIsNoop(t *testing.T) {
	reg := New[*fakeResource]()
	assert.NotPanics(t, func() { reg.Delete("nope") })
}

func TestRegistry_DeleteCallsResourceOnce(t *testing.T) {
	reg := New[*fakeResource]()
	r := &fakeResource{name: "a", reg: reg}
	reg.Add("a", r)

	reg.Delete("a")
	reg.Delete("a")

	assert.Equal(t, 1, r.deletes)
	assert.False(t, reg.Has("a"))
}

func TestRegistry_DetachOnlyMatchingResource(t *testing.T) {
	reg := New[*fakeResource]()
	r1 := &fakeResource{name: "a"}
	r2 := &fakeResource{name: "a"}
	reg.Add("a", r2)

	assert.False(t, reg.Detach("a", r1))
	assert.True(t, reg.Has("a"))
	assert.True(t, reg.Detach("a", r2))
	assert.False(t, reg.Has("a"))
	assert.Equal(t, 0, r2.deletes)
}

func TestRegistry_ClearDeletesAllInOrder(t *testing.T) {
	reg := New[*fakeResource]()
	var order []string
	for _, id := range []string{"c", "a", "b"} {
		reg.Add(id, &fakeResource{name: id, reg: reg})
	}
	reg.Each(func(id string, r *fakeResource) bool {
		order = append(order, id)
		return true
	})
	assert.Equal(t, []string{"a", "b", "c"}, order)

	all := []*fakeResource{reg.Lookup("a"), reg.Lookup("b"), reg.Lookup("c")}
	reg.Clear()

	assert.Equal(t, 0, reg.Len())
	for _, r := range all {
		assert.Equal(t, 1, r.deletes, r.name)
	}
}

func TestRegistry_EachStopsEarly(t *testing.T) {
	reg := New[*fakeResource]()
	reg.Add("a", &fakeResource{name: "a"})
	reg.Add("b", &fakeResource{name: "b"})

	n := 0
	reg.Each(func(string, *fakeResource) bool {
		n++
		return false
	})
	assert.Equal(t, 1, n)
}
