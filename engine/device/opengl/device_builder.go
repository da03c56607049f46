package opengl

import "go.uber.org/zap"

// DeviceBuilderOption is a functional option for configuring an OpenGL device.
type DeviceBuilderOption func(*glDevice)

// WithLogger sets the logger used for compile logs and GL errors.
//
// Parameters:
//   - l: the logger; nil keeps the package logger
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithLogger(l *zap.Logger) DeviceBuilderOption {
	return func(d *glDevice) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithDepthTest enables depth testing on the default state.
//
// Parameters:
//   - enabled: whether GL_DEPTH_TEST is enabled after initialization
//
// Returns:
//   - DeviceBuilderOption: option function to apply
func WithDepthTest(enabled bool) DeviceBuilderOption {
	return func(d *glDevice) {
		d.depthTest = enabled
	}
}
