package engine

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/recorder"
	"github.com/Carmen-Shannon/oxy-gl/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gl/engine/window"
)

// fakeWindow runs a fixed number of message loop iterations.
type fakeWindow struct {
	iterations int
	closed     bool
	swaps      int
	onUpdate   func()
	onResize   func(width, height int)
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(callback func())                  { w.onUpdate = callback }
func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *fakeWindow) SetKeyDownCallback(func(keyCode uint32))            {}
func (w *fakeWindow) SetKeyUpCallback(func(keyCode uint32))              {}
func (w *fakeWindow) API() window.API                                    { return window.APIOpenGL }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor         { return nil }
func (w *fakeWindow) SwapBuffers()                                       { w.swaps++ }
func (w *fakeWindow) IsRunning() bool                                    { return !w.closed }
func (w *fakeWindow) RequestClose()                                      { w.closed = true }
func (w *fakeWindow) Close() error                                       { return nil }
func (w *fakeWindow) Width() int                                         { return 640 }
func (w *fakeWindow) Height() int                                        { return 480 }

func (w *fakeWindow) ProcessMessages() {
	for i := 0; i < w.iterations && w.IsRunning(); i++ {
		if w.onUpdate != nil {
			w.onUpdate()
		}
	}
}

// frameRecorder is a recorder with a frame lifecycle.
type frameRecorder struct {
	*recorder.Recorder
	begins, ends int
	beginErr     error
	sizes        [][2]int
}

var _ device.FrameDevice = &frameRecorder{}

func (f *frameRecorder) BeginFrame() error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.begins++
	return nil
}

func (f *frameRecorder) EndFrame() error {
	f.ends++
	return nil
}

func (f *frameRecorder) Resize(width, height int) error {
	f.sizes = append(f.sizes, [2]int{width, height})
	return nil
}

func (f *frameRecorder) Release() {}

func TestEngine_RunSwapsWithoutFrameDevice(t *testing.T) {
	w := &fakeWindow{iterations: 3}
	rec := recorder.New()
	ctx := gfx.NewContext(rec, gfx.WithLogger(zaptest.NewLogger(t)))
	var frames int
	e := NewEngine(w, rec,
		WithLogger(zaptest.NewLogger(t)),
		WithContext(ctx),
		WithFrameCallback(func(float32) {
			frames++
			ctx.Clear(0, 0, 0, 1)
		}),
	)

	e.Run()

	assert.Equal(t, 3, frames)
	assert.Equal(t, 3, w.swaps)
	assert.Equal(t, uint64(3), e.Frames())
	assert.Len(t, rec.CallsOf(recorder.OpClear), 3)
	assert.True(t, ctx.Deleted(), "contexts are deleted when the loop ends")
}

func TestEngine_DrainsDeviceErrorsEachFrame(t *testing.T) {
	w := &fakeWindow{iterations: 1}
	rec := recorder.New()
	core, logs := observer.New(zap.ErrorLevel)
	ctx := gfx.NewContext(rec, gfx.WithLogger(zap.New(core)))
	e := NewEngine(w, rec,
		WithLogger(zaptest.NewLogger(t)),
		WithContext(ctx),
		WithFrameCallback(func(float32) {
			for h := device.Handle(900); h < 903; h++ {
				rec.Bind(device.KindTexture, h)
			}
		}),
	)

	e.Run()

	assert.Empty(t, rec.Errors())
	assert.Equal(t, 3, logs.FilterMessage("device error").Len())
}

func TestEngine_FrameDeviceLifecycle(t *testing.T) {
	w := &fakeWindow{iterations: 2}
	dev := &frameRecorder{Recorder: recorder.New()}
	e := NewEngine(w, dev, WithLogger(zaptest.NewLogger(t)))

	e.Run()

	assert.Equal(t, 2, dev.begins)
	assert.Equal(t, 2, dev.ends)
	assert.Zero(t, w.swaps)
}

func TestEngine_SkipsFrameWhenBeginFails(t *testing.T) {
	w := &fakeWindow{iterations: 2}
	dev := &frameRecorder{Recorder: recorder.New(), beginErr: errors.New("surface outdated")}
	called := false
	e := NewEngine(w, dev, WithLogger(zaptest.NewLogger(t)), WithFrameCallback(func(float32) { called = true }))

	e.Run()

	assert.False(t, called)
	assert.Zero(t, dev.ends)
	assert.Zero(t, e.Frames())
}

func TestEngine_Resize(t *testing.T) {
	w := &fakeWindow{}
	dev := &frameRecorder{Recorder: recorder.New()}
	ctx := gfx.NewContext(dev, gfx.WithLogger(zaptest.NewLogger(t)))
	var resized [][2]int
	e := NewEngine(w, dev, WithLogger(zaptest.NewLogger(t)), WithResizeCallback(func(width, height int) {
		resized = append(resized, [2]int{width, height})
	}))
	e.AddContext(ctx)
	require.NotNil(t, w.onResize)

	w.onResize(800, 600)
	w.onResize(0, 0)

	assert.Equal(t, [][2]int{{800, 600}}, dev.sizes)
	assert.Equal(t, dev.sizes, resized)
	viewports := dev.CallsOf(recorder.OpViewport)
	require.Len(t, viewports, 1)
	assert.Equal(t, [4]int{0, 0, 800, 600}, viewports[0].Value)
	assert.Len(t, e.Contexts(), 1)
}

func TestEngine_QuitStopsLoop(t *testing.T) {
	w := &fakeWindow{iterations: 10}
	rec := recorder.New()
	var e Engine
	frames := 0
	e = NewEngine(w, rec, WithLogger(zaptest.NewLogger(t)), WithFrameCallback(func(float32) {
		frames++
		if frames == 4 {
			e.Quit()
		}
	}))

	e.Run()

	assert.Equal(t, 4, frames)
}

func TestFrameDuration(t *testing.T) {
	assert.Zero(t, frameDuration(0))
	assert.Zero(t, frameDuration(-5))
	assert.Equal(t, int64(16666666), frameDuration(60).Nanoseconds())
}
