package bindcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/recorder"
)

type fakeBindable struct {
	id device.HandleID
}

func (f *fakeBindable) HandleID() device.HandleID {
	return f.id
}

func newFake(t *testing.T, rec *recorder.Recorder, kind device.Kind) *fakeBindable {
	t.Helper()
	h, err := rec.CreateHandle(kind)
	require.NoError(t, err)
	return &fakeBindable{id: device.HandleID{Kind: kind, Handle: h}}
}

func binds(rec *recorder.Recorder, kind device.Kind) int {
	return rec.Count(recorder.OpBind, kind)
}

func TestBindCache_EnsureBoundSkipsRepeats(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindTexture, rec)
	a := newFake(t, rec, device.KindTexture)

	c.EnsureBound(a)
	c.EnsureBound(a)
	c.EnsureBound(a)

	assert.Equal(t, 1, binds(rec, device.KindTexture))
	assert.True(t, c.IsBound(a))
	assert.Equal(t, a.id.Handle, rec.Bound(device.KindTexture))
	assert.Equal(t, Stats{Binds: 1, Skipped: 2}, c.Stats())
}

func TestBindCache_ScopedBindAlreadyBoundIsFree(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindProgram, rec)
	a := newFake(t, rec, device.KindProgram)
	c.EnsureBound(a)
	rec.Reset()

	tok := c.ScopedBind(a)
	assert.False(t, tok.Restores())
	c.Restore(tok)

	assert.Empty(t, rec.CallsOf(recorder.OpBind))
	assert.Same(t, a, c.Current())
}

func TestBindCache_ScopedBindRestoresPrevious(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindVertexBuffer, rec)
	a := newFake(t, rec, device.KindVertexBuffer)
	b := newFake(t, rec, device.KindVertexBuffer)
	c.EnsureBound(a)

	tok := c.ScopedBind(b)
	assert.Same(t, b, c.Current())
	assert.Equal(t, 1, c.Depth())

	c.Restore(tok)
	assert.Same(t, a, c.Current())
	assert.Equal(t, a.id.Handle, rec.Bound(device.KindVertexBuffer))
	assert.Equal(t, 0, c.Depth())
	assert.Equal(t, 3, binds(rec, device.KindVertexBuffer))
}

func TestBindCache_ScopedBindFromEmptyRestoresEmpty(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindTexture, rec)
	a := newFake(t, rec, device.KindTexture)

	tok := c.ScopedBind(a)
	c.Restore(tok)

	assert.Nil(t, c.Current())
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindTexture))
}

func TestBindCache_ScopedUnbindOfEmptySlotIsFree(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindFramebuffer, rec)

	tok := c.ScopedBind(nil)
	assert.False(t, tok.Restores())
	assert.Zero(t, c.Depth())
	c.Restore(tok)

	assert.Empty(t, rec.Calls())
	assert.Nil(t, c.Current())
	assert.Equal(t, Stats{Skipped: 1}, c.Stats())
}

func TestBindCache_NestedScopesUnwind(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindTexture, rec)
	a := newFake(t, rec, device.KindTexture)
	b := newFake(t, rec, device.KindTexture)
	d := newFake(t, rec, device.KindTexture)
	c.EnsureBound(a)

	outer := c.ScopedBind(b)
	inner := c.ScopedBind(d)
	assert.Equal(t, 2, c.Depth())

	c.Restore(inner)
	assert.Same(t, b, c.Current())
	c.Restore(outer)
	assert.Same(t, a, c.Current())
	assert.Equal(t, a.id.Handle, rec.Bound(device.KindTexture))
}

func TestBindCache_OutOfOrderRestoreTruncates(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindTexture, rec)
	a := newFake(t, rec, device.KindTexture)
	b := newFake(t, rec, device.KindTexture)
	d := newFake(t, rec, device.KindTexture)
	c.EnsureBound(a)

	outer := c.ScopedBind(b)
	inner := c.ScopedBind(d)

	c.Restore(outer)
	assert.Same(t, a, c.Current())
	assert.Equal(t, 0, c.Depth())

	// the inner token was unwound by the outer restore
	c.Restore(inner)
	assert.Same(t, a, c.Current())
}

func TestBindCache_RestoreSkipsWhenSavedIsCurrent(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindProgram, rec)
	a := newFake(t, rec, device.KindProgram)
	b := newFake(t, rec, device.KindProgram)
	c.EnsureBound(a)

	tok := c.ScopedBind(b)
	c.EnsureBound(a)
	rec.Reset()

	c.Restore(tok)
	assert.Empty(t, rec.CallsOf(recorder.OpBind))
	assert.Same(t, a, c.Current())
}

func TestBindCache_UnbindSkipsWhenEmpty(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindVertexArray, rec)
	c.Unbind()
	assert.Empty(t, rec.CallsOf(recorder.OpBind))

	a := newFake(t, rec, device.KindVertexArray)
	c.EnsureBound(a)
	c.Unbind()
	assert.Nil(t, c.Current())
	assert.Equal(t, 2, binds(rec, device.KindVertexArray))
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindVertexArray))
}

func TestBindCache_ForgetCurrentUnbinds(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindTexture, rec)
	a := newFake(t, rec, device.KindTexture)
	c.EnsureBound(a)

	c.Forget(a)
	rec.DeleteHandle(device.KindTexture, a.id.Handle)

	assert.Nil(t, c.Current())
	assert.NoError(t, rec.Err())
}

func TestBindCache_ForgetScrubsSavedEntries(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindTexture, rec)
	a := newFake(t, rec, device.KindTexture)
	b := newFake(t, rec, device.KindTexture)
	c.EnsureBound(a)

	tok := c.ScopedBind(b)
	c.Forget(a)
	rec.DeleteHandle(device.KindTexture, a.id.Handle)

	c.Restore(tok)
	assert.Nil(t, c.Current())
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindTexture))
	assert.NoError(t, rec.Err())
}

func TestBindCache_ForgetOtherResourceKeepsCurrent(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindTexture, rec)
	a := newFake(t, rec, device.KindTexture)
	b := newFake(t, rec, device.KindTexture)
	c.EnsureBound(a)
	rec.Reset()

	c.Forget(b)
	assert.Same(t, a, c.Current())
	assert.Empty(t, rec.CallsOf(recorder.OpBind))
}

func TestBindCache_AssumeMakesNoDeviceCall(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindElementBuffer, rec)
	a := newFake(t, rec, device.KindElementBuffer)

	c.Assume(a)
	assert.Same(t, a, c.Current())
	assert.Empty(t, rec.CallsOf(recorder.OpBind))

	c.EnsureBound(a)
	assert.Empty(t, rec.CallsOf(recorder.OpBind))
}

func TestBindCache_EnsureBoundNilUnbinds(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindProgram, rec)
	a := newFake(t, rec, device.KindProgram)
	c.EnsureBound(a)

	c.EnsureBound(nil)
	assert.Nil(t, c.Current())
	assert.Equal(t, device.NoHandle, rec.Bound(device.KindProgram))
}

func TestBindCache_ResetStats(t *testing.T) {
	rec := recorder.New()
	c := NewBindCache(device.KindProgram, rec)
	a := newFake(t, rec, device.KindProgram)
	c.EnsureBound(a)
	c.EnsureBound(a)

	assert.Equal(t, Stats{Binds: 1, Skipped: 1}, c.ResetStats())
	assert.Equal(t, Stats{}, c.Stats())
}

func TestStats_Add(t *testing.T) {
	s := Stats{Binds: 1, Skipped: 2, Restores: 3}.Add(Stats{Binds: 4, Skipped: 5, Restores: 6})
	assert.Equal(t, Stats{Binds: 5, Skipped: 7, Restores: 9}, s)
}

func TestBindCache_BindHookSeesEveryDeviceBind(t *testing.T) {
	rec := recorder.New()
	var seen []Bindable
	c := NewBindCache(device.KindVertexArray, rec, WithBindHook(func(r Bindable) {
		seen = append(seen, r)
	}))
	a := newFake(t, rec, device.KindVertexArray)
	b := newFake(t, rec, device.KindVertexArray)

	c.EnsureBound(a)
	c.EnsureBound(a)
	tok := c.ScopedBind(b)
	c.Restore(tok)
	c.Assume(b)
	c.Unbind()

	assert.Equal(t, []Bindable{a, b, a, nil}, seen)
}
