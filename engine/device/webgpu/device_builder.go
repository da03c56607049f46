package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// DeviceBuilderOption is a functional option for configuring a WebGPU device.
type DeviceBuilderOption func(*wgpuDevice)

// WithLogger sets the logger used for device failures.
//
// Parameters:
//   - l: the logger; nil keeps the package logger
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithLogger(l *zap.Logger) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDepthTest enables depth testing for pipelines drawing into targets with a depth attachment.
//
// Parameters:
//   - enabled: whether fragments are depth tested and written
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithDepthTest(enabled bool) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.depthTest = enabled
	}
}

// WithVSync selects between vsync (FIFO) and uncapped (immediate) presentation.
//
// Parameters:
//   - enabled: true to wait for vertical blank
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.presentMode = wgpu.PresentModeImmediate
		if enabled {
			d.presentMode = wgpu.PresentModeFifo
		}
	}
}

// WithFallbackAdapter forces the software fallback adapter.
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithFallbackAdapter() DeviceBuilderOption {
	return func(d *wgpuDevice) {
		d.fallback = true
	}
}

// WithUniformSlots sets the initial number of draws per submit each program can serve before its
// uniform arena grows.
//
// Parameters:
//   - slots: the arena slot count; values below 1 are ignored
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithUniformSlots(slots int) DeviceBuilderOption {
	return func(d *wgpuDevice) {
		if slots > 0 {
			d.uniformSlots = slots
		}
	}
}
