package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gl/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gl/engine/window"
)

// engine implements the Engine interface.
// Runs every frame on the thread that owns the window and the device.
type engine struct {
	logger *zap.Logger

	window window.Window
	device device.Device

	contexts []*gfx.Context

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameCallback  func(deltaTime float32)
	resizeCallback func(width, height int)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	lastFrame time.Time
	frames    uint64
}

// Engine drives the frame loop of one window and its device.
// Everything runs on the calling goroutine, which must be the one that created the window.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Device returns the device frames are rendered with.
	//
	// Returns:
	//   - device.Device: the device
	Device() device.Device

	// AddContext registers a rendering context. Registered contexts are checked for device
	// errors after every frame, resized with the window and deleted when the loop ends.
	//
	// Parameters:
	//   - ctx: the context to register
	AddContext(ctx *gfx.Context)

	// Contexts returns the registered contexts in registration order.
	//
	// Returns:
	//   - []*gfx.Context: a copy of the registered contexts
	Contexts() []*gfx.Context

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetFrameCallback registers the function that records each frame.
	//
	// Parameters:
	//   - callback: function called once per frame with the delta time in seconds
	SetFrameCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Frames returns the number of frames rendered so far.
	Frames() uint64

	// Run runs the frame loop until the window closes, then deletes every registered context.
	Run()

	// Quit asks the window to close after the current frame.
	Quit()
}

// NewEngine creates a new Engine drawing into w with dev.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - w: the window providing the message loop
//   - dev: the device bound to the window
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(w window.Window, dev device.Device, options ...EngineBuilderOption) Engine {
	e := &engine{
		logger: Logger(),
		window: w,
		device: dev,
	}
	for _, opt := range options {
		opt(e)
	}
	e.logger = e.logger.Named("engine")
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler(profiler.WithLogger(e.logger))
	}
	for _, ctx := range e.contexts {
		e.profiler.Track(ctx)
	}

	if e.window != nil {
		e.window.SetResizeCallback(e.resize)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Device() device.Device {
	return e.device
}

func (e *engine) AddContext(ctx *gfx.Context) {
	e.contexts = append(e.contexts, ctx)
	e.profiler.Track(ctx)
}

func (e *engine) Contexts() []*gfx.Context {
	return append([]*gfx.Context(nil), e.contexts...)
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) SetFrameCallback(callback func(deltaTime float32)) {
	e.frameCallback = callback
}

func (e *engine) SetRenderFrameLimit(fps float64) {
	e.renderFrameLimit = frameDuration(fps)
}

func (e *engine) Frames() uint64 {
	return e.frames
}

func (e *engine) Run() {
	e.lastFrame = time.Now()
	e.window.SetUpdateCallback(e.frame)
	e.window.ProcessMessages()
	e.window.SetUpdateCallback(nil)

	for _, ctx := range e.contexts {
		ctx.Delete()
	}
	e.logger.Info("frame loop stopped", zap.Uint64("frames", e.frames))
}

func (e *engine) Quit() {
	e.window.RequestClose()
}

// frame renders one frame: begin, record, check errors, present, then throttle.
// A frame the device cannot begin is skipped; the surface is usually being resized.
func (e *engine) frame() {
	start := time.Now()
	dt := float32(start.Sub(e.lastFrame).Seconds())
	e.lastFrame = start

	fd, framed := e.device.(device.FrameDevice)
	if framed {
		if err := fd.BeginFrame(); err != nil {
			e.logger.Warn("frame skipped", zap.Error(err))
			return
		}
	}

	if e.frameCallback != nil {
		e.frameCallback(dt)
	}
	for _, ctx := range e.contexts {
		// DeviceError logs each error on the context logger.
		for ctx.DeviceError() != nil {
		}
	}

	if framed {
		if err := fd.EndFrame(); err != nil {
			e.logger.Error("frame submission failed", zap.Error(err))
		}
	} else {
		e.window.SwapBuffers()
	}
	e.frames++

	if e.profilingEnabled {
		e.profiler.Tick()
	}

	if e.renderFrameLimit > 0 {
		if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

// resize propagates a framebuffer size change to the device and the context viewports.
// Minimized windows report a zero size, which is ignored.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if fd, ok := e.device.(device.FrameDevice); ok {
		if err := fd.Resize(width, height); err != nil {
			e.logger.Error("resize failed", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
			return
		}
	}
	for _, ctx := range e.contexts {
		ctx.Viewport(0, 0, width, height)
	}
	if e.resizeCallback != nil {
		e.resizeCallback(width, height)
	}
	e.logger.Debug("resized", zap.Int("width", width), zap.Int("height", height))
}

func frameDuration(fps float64) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / fps)
}
