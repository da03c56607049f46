package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the eye position.
//
// Parameters:
//   - p: the eye position
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's position
func WithPosition(p mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = p
	}
}

// WithTarget sets the point the camera looks at.
//
// Parameters:
//   - t: the look-at point
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's target
func WithTarget(t mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = t
	}
}

// WithFov sets the camera's field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far clipping plane distances.
//
// Parameters:
//   - near, far: the plane distances
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's clipping planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near, c.far = near, far
	}
}

// WithDepthRange selects the clip-space depth convention of the target device.
//
// Parameters:
//   - d: the depth range
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's depth range
func WithDepthRange(d DepthRange) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.depth = d
	}
}

// WithUniformNames overrides the uniform names Apply writes, "uView" and "uProjection" by default.
//
// Parameters:
//   - view, projection: the uniform names
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's uniform names
func WithUniformNames(view, projection string) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewUniform, c.projectionUniform = view, projection
	}
}
