package camera

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-gl/engine/gfx"
)

// DepthRange selects the clip-space depth convention of the device the camera renders with.
type DepthRange int

const (
	// DepthNegativeOne maps depth onto [-1, 1], the OpenGL convention.
	DepthNegativeOne DepthRange = iota
	// DepthZeroToOne maps depth onto [0, 1], the WebGPU convention.
	DepthZeroToOne
)

// zeroToOne remaps OpenGL clip depth onto [0, 1].
var zeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

type cameraImpl struct {
	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32
	depth  DepthRange

	viewUniform       string
	projectionUniform string

	viewMatrix       mgl32.Mat4
	projectionMatrix mgl32.Mat4
}

// Camera holds a look-at view and perspective settings and uploads both matrices as shader uniforms.
type Camera interface {
	// Position returns the eye position.
	Position() mgl32.Vec3

	// Target returns the point the camera looks at.
	Target() mgl32.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// ViewMatrix returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the current projection matrix in the configured depth range.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns the projection matrix multiplied by the view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the combined matrix
	ViewProjectionMatrix() mgl32.Mat4

	// SetPosition moves the eye and recomputes the view matrix.
	//
	// Parameters:
	//   - p: the eye position
	SetPosition(p mgl32.Vec3)

	// SetTarget changes the look-at point and recomputes the view matrix.
	//
	// Parameters:
	//   - t: the look-at point
	SetTarget(t mgl32.Vec3)

	// SetFov sets the field of view in radians and recomputes the projection.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio and recomputes the projection.
	// Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// Apply writes the view and projection matrices into the shader's uniforms.
	// A nil shader is ignored.
	//
	// Parameters:
	//   - s: the shader receiving the matrices
	Apply(s *gfx.Shader)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera at (0, 0, 3) looking at the origin with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		position:          mgl32.Vec3{0, 0, 3},
		up:                mgl32.Vec3{0, 1, 0},
		fov:               mgl32.DegToRad(45),
		aspect:            1,
		near:              0.1,
		far:               100,
		viewUniform:       "uView",
		projectionUniform: "uProjection",
	}
	for _, option := range options {
		option(c)
	}
	c.updateView()
	c.updateProjection()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	return c.target
}

func (c *cameraImpl) Fov() float32 {
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	return c.aspect
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	return c.projectionMatrix.Mul4(c.viewMatrix)
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.position = p
	c.updateView()
}

func (c *cameraImpl) SetTarget(t mgl32.Vec3) {
	c.target = t
	c.updateView()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.fov = fov
	c.updateProjection()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.updateProjection()
}

func (c *cameraImpl) Apply(s *gfx.Shader) {
	if s == nil {
		return
	}
	s.SetMat4(c.viewUniform, c.viewMatrix)
	s.SetMat4(c.projectionUniform, c.projectionMatrix)
}

func (c *cameraImpl) updateView() {
	c.viewMatrix = mgl32.LookAtV(c.position, c.target, c.up)
}

func (c *cameraImpl) updateProjection() {
	c.projectionMatrix = mgl32.Perspective(c.fov, c.aspect, c.near, c.far)
	if c.depth == DepthZeroToOne {
		c.projectionMatrix = zeroToOne.Mul4(c.projectionMatrix)
	}
}
