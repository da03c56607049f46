package gfx

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// Shader is a linked program. Uniform setters bind the program for the call only.
type Shader struct {
	resource
	source device.ProgramSource
}

// CreateShader pre-processes and compiles src and registers the program under id, deleting any
// shader previously registered under id. On failure nothing is registered.
//
// Parameters:
//   - id: the resource id
//   - src: per-stage GLSL sources
//
// Returns:
//   - *Shader: the new shader
//   - error: a pre-processor error, a *device.DeviceError, or ErrContextDeleted
func (c *Context) CreateShader(id string, src device.ProgramSource) (*Shader, error) {
	if err := c.checkCreate(device.KindProgram, id); err != nil {
		return nil, err
	}
	processed, err := c.pre.ProcessProgram(src)
	if err != nil {
		return nil, fmt.Errorf("create shader %q: %w", id, err)
	}
	return c.compileShader(id, processed)
}

// CreateShaderFromSource splits a single-file shader at its stage directives, then compiles it
// like CreateShader.
//
// Parameters:
//   - id: the resource id
//   - source: single-file GLSL source with //@oxy:stage directives
//
// Returns:
//   - *Shader: the new shader
//   - error: a pre-processor error, a *device.DeviceError, or ErrContextDeleted
func (c *Context) CreateShaderFromSource(id, source string) (*Shader, error) {
	if err := c.checkCreate(device.KindProgram, id); err != nil {
		return nil, err
	}
	processed, err := c.pre.Split(source)
	if err != nil {
		return nil, fmt.Errorf("create shader %q: %w", id, err)
	}
	return c.compileShader(id, processed)
}

func (c *Context) compileShader(id string, src device.ProgramSource) (*Shader, error) {
	res, err := newResource(c, id, device.KindProgram, false)
	if err != nil {
		return nil, fmt.Errorf("create shader %q: %w", id, err)
	}
	if err := c.dev.CompileProgram(res.handle.Handle, src); err != nil {
		c.dev.DeleteHandle(device.KindProgram, res.handle.Handle)
		res.logger.Error("shader compilation failed")
		return nil, fmt.Errorf("create shader %q: %w", id, err)
	}
	s := &Shader{resource: res, source: src}
	c.shaders.Add(id, s)
	return s, nil
}

func (s *Shader) live() bool {
	return s != nil && !s.deleted
}

// Bind makes the program current.
func (s *Shader) Bind() {
	if !s.live() {
		return
	}
	s.cache().EnsureBound(s)
}

// Unbind clears the program slot if this program is current.
func (s *Shader) Unbind() {
	if !s.live() || !s.cache().IsBound(s) {
		return
	}
	s.cache().Unbind()
}

// Delete releases the program and removes it from the context registry.
func (s *Shader) Delete() {
	if s == nil || !s.release(s) {
		return
	}
	s.ctx.shaders.Detach(s.id, s)
}

// Source returns the processed sources the program was compiled from.
func (s *Shader) Source() device.ProgramSource {
	if s == nil {
		return device.ProgramSource{}
	}
	return s.source
}

// SetUniform assigns a uniform, binding the program for the call and restoring the previous one.
//
// Parameters:
//   - name: the uniform name
//   - value: a value accepted by device.Device.SetUniform
func (s *Shader) SetUniform(name string, value any) {
	if !s.live() {
		return
	}
	s.scoped(s, func() {
		s.ctx.dev.SetUniform(s.handle.Handle, name, value)
	})
}

// SetFloat assigns a float uniform.
func (s *Shader) SetFloat(name string, v float32) {
	s.SetUniform(name, v)
}

// SetInt assigns an int or sampler uniform.
func (s *Shader) SetInt(name string, v int32) {
	s.SetUniform(name, v)
}

// SetVec2 assigns a vec2 uniform.
func (s *Shader) SetVec2(name string, v mgl32.Vec2) {
	s.SetUniform(name, v)
}

// SetVec3 assigns a vec3 uniform.
func (s *Shader) SetVec3(name string, v mgl32.Vec3) {
	s.SetUniform(name, v)
}

// SetVec4 assigns a vec4 uniform.
func (s *Shader) SetVec4(name string, v mgl32.Vec4) {
	s.SetUniform(name, v)
}

// SetMat3 assigns a mat3 uniform.
func (s *Shader) SetMat3(name string, m mgl32.Mat3) {
	s.SetUniform(name, m)
}

// SetMat4 assigns a mat4 uniform.
func (s *Shader) SetMat4(name string, m mgl32.Mat4) {
	s.SetUniform(name, m)
}
