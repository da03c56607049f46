// Package opengl implements device.Device on an OpenGL 4.1 core profile context.
// The context must be current on the calling thread for the lifetime of the device.
package opengl

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
)

// glDevice issues GL calls directly. GL object names are used as device handles.
type glDevice struct {
	logger    *zap.Logger
	depthTest bool

	// uniforms caches uniform locations per program.
	uniforms map[device.Handle]map[string]int32
	errs     []error

	// screen is the default framebuffer viewport read at startup. targets holds the
	// attachment size of each render-target framebuffer; fb is the bound one.
	screen  [4]int32
	targets map[device.Handle][2]int32
	fb      device.Handle

	// lastOp and lastKind attribute errors read from glGetError.
	lastOp   string
	lastKind device.Kind
}

var _ device.Device = &glDevice{}

// New loads the GL function pointers for the current context and returns a Device on it.
//
// Parameters:
//   - options: optional builder options
//
// Returns:
//   - device.Device: the OpenGL device
//   - error: error if the GL bindings could not be initialized
func New(options ...DeviceBuilderOption) (device.Device, error) {
	d := &glDevice{
		logger:   Logger(),
		uniforms: make(map[device.Handle]map[string]int32),
		targets:  make(map[device.Handle][2]int32),
	}
	for _, opt := range options {
		opt(d)
	}
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL bindings: %w", err)
	}
	d.logger.Info("OpenGL device ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	gl.GetIntegerv(gl.VIEWPORT, &d.screen[0])
	gl.ActiveTexture(gl.TEXTURE0)
	if d.depthTest {
		gl.Enable(gl.DEPTH_TEST)
	}
	return d, nil
}

func (d *glDevice) note(op string, kind device.Kind) {
	d.lastOp, d.lastKind = op, kind
}

func (d *glDevice) fail(op string, kind device.Kind, err error) {
	de := device.NewDeviceError(op, kind, err)
	d.logger.Error("device call failed", zap.Error(de))
	d.errs = append(d.errs, de)
}

func (d *glDevice) CreateHandle(kind device.Kind) (device.Handle, error) {
	d.note("CreateHandle", kind)
	var name uint32
	switch kind {
	case device.KindVertexBuffer, device.KindElementBuffer:
		gl.GenBuffers(1, &name)
	case device.KindProgram:
		name = gl.CreateProgram()
	case device.KindTexture:
		gl.GenTextures(1, &name)
	case device.KindFramebuffer:
		gl.GenFramebuffers(1, &name)
	case device.KindVertexArray:
		gl.GenVertexArrays(1, &name)
	case device.KindRenderbuffer:
		gl.GenRenderbuffers(1, &name)
	default:
		return device.NoHandle, device.NewDeviceError("CreateHandle", kind, device.ErrUnsupported)
	}
	if name == 0 {
		return device.NoHandle, device.NewDeviceError("CreateHandle", kind, device.ErrOutOfHandles)
	}
	return device.Handle(name), nil
}

func (d *glDevice) Bind(kind device.Kind, h device.Handle) {
	d.note("Bind", kind)
	name := uint32(h)
	switch kind {
	case device.KindVertexBuffer:
		gl.BindBuffer(gl.ARRAY_BUFFER, name)
	case device.KindElementBuffer:
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, name)
	case device.KindProgram:
		gl.UseProgram(name)
	case device.KindTexture:
		gl.BindTexture(gl.TEXTURE_2D, name)
	case device.KindFramebuffer:
		gl.BindFramebuffer(gl.FRAMEBUFFER, name)
		d.fb = h
	case device.KindVertexArray:
		gl.BindVertexArray(name)
	case device.KindRenderbuffer:
		gl.BindRenderbuffer(gl.RENDERBUFFER, name)
	default:
		d.fail("Bind", kind, device.ErrUnsupported)
	}
}

func (d *glDevice) UploadFull(kind device.Kind, h device.Handle, data []byte, usage device.Usage) {
	d.note("UploadFull", kind)
	target, ok := bufferTarget(kind)
	if !ok {
		d.fail("UploadFull", kind, device.ErrUnsupported)
		return
	}
	gl.BufferData(target, len(data), ptr(data), bufferUsage(usage))
}

func (d *glDevice) UploadSubrange(kind device.Kind, h device.Handle, offset int, data []byte) {
	d.note("UploadSubrange", kind)
	target, ok := bufferTarget(kind)
	if !ok {
		d.fail("UploadSubrange", kind, device.ErrUnsupported)
		return
	}
	if len(data) == 0 {
		return
	}
	gl.BufferSubData(target, offset, len(data), ptr(data))
}

// ReleaseStorage shrinks the buffer store to zero bytes; GL keeps the name alive.
func (d *glDevice) ReleaseStorage(kind device.Kind, h device.Handle) {
	d.note("ReleaseStorage", kind)
	target, ok := bufferTarget(kind)
	if !ok {
		d.fail("ReleaseStorage", kind, device.ErrUnsupported)
		return
	}
	gl.BufferData(target, 0, nil, gl.STATIC_DRAW)
}

func (d *glDevice) Draw(cmd device.DrawCommand) {
	d.note("Draw", device.KindVertexArray)
	mode := primitiveMode(cmd.Primitive)
	count := int32(cmd.Count)
	if cmd.Indexed {
		offset := gl.PtrOffset(cmd.First * 2)
		if cmd.Instances > 1 {
			gl.DrawElementsInstanced(mode, count, gl.UNSIGNED_SHORT, offset, int32(cmd.Instances))
		} else {
			gl.DrawElements(mode, count, gl.UNSIGNED_SHORT, offset)
		}
		return
	}
	if cmd.Instances > 1 {
		gl.DrawArraysInstanced(mode, int32(cmd.First), count, int32(cmd.Instances))
	} else {
		gl.DrawArrays(mode, int32(cmd.First), count)
	}
}

func (d *glDevice) DeleteHandle(kind device.Kind, h device.Handle) {
	d.note("DeleteHandle", kind)
	name := uint32(h)
	switch kind {
	case device.KindVertexBuffer, device.KindElementBuffer:
		gl.DeleteBuffers(1, &name)
	case device.KindProgram:
		gl.DeleteProgram(name)
		delete(d.uniforms, h)
	case device.KindTexture:
		gl.DeleteTextures(1, &name)
	case device.KindFramebuffer:
		gl.DeleteFramebuffers(1, &name)
		delete(d.targets, h)
		if d.fb == h {
			d.fb = device.NoHandle
		}
	case device.KindVertexArray:
		gl.DeleteVertexArrays(1, &name)
	case device.KindRenderbuffer:
		gl.DeleteRenderbuffers(1, &name)
	default:
		d.fail("DeleteHandle", kind, device.ErrUnsupported)
	}
}

func (d *glDevice) CompileProgram(h device.Handle, src device.ProgramSource) error {
	d.note("CompileProgram", device.KindProgram)
	program := uint32(h)

	vs, err := compileStage(gl.VERTEX_SHADER, src.Vertex)
	if err != nil {
		return device.NewDeviceError("CompileProgram", device.KindProgram, fmt.Errorf("%w: vertex: %s", device.ErrCompile, err))
	}
	defer gl.DeleteShader(vs)
	fs, err := compileStage(gl.FRAGMENT_SHADER, src.Fragment)
	if err != nil {
		return device.NewDeviceError("CompileProgram", device.KindProgram, fmt.Errorf("%w: fragment: %s", device.ErrCompile, err))
	}
	defer gl.DeleteShader(fs)

	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(msg))
		return device.NewDeviceError("CompileProgram", device.KindProgram, fmt.Errorf("%w: link: %s", device.ErrCompile, strings.TrimRight(msg, "\x00")))
	}
	delete(d.uniforms, h)
	return nil
}

func compileStage(stage uint32, src string) (uint32, error) {
	shader := gl.CreateShader(stage)
	csources, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		msg := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(msg))
		gl.DeleteShader(shader)
		return 0, errors.New(strings.TrimRight(msg, "\x00"))
	}
	return shader, nil
}

func (d *glDevice) location(h device.Handle, name string) int32 {
	locs, ok := d.uniforms[h]
	if !ok {
		locs = make(map[string]int32)
		d.uniforms[h] = locs
	}
	loc, ok := locs[name]
	if !ok {
		loc = gl.GetUniformLocation(uint32(h), gl.Str(name+"\x00"))
		locs[name] = loc
		if loc < 0 {
			d.logger.Debug("uniform not active", zap.Uint32("program", uint32(h)), zap.String("name", name))
		}
	}
	return loc
}

func (d *glDevice) SetUniform(h device.Handle, name string, value any) {
	d.note("SetUniform", device.KindProgram)
	loc := d.location(h, name)
	if loc < 0 {
		return
	}
	switch v := value.(type) {
	case float32:
		gl.Uniform1f(loc, v)
	case int32:
		gl.Uniform1i(loc, v)
	case int:
		gl.Uniform1i(loc, int32(v))
	case bool:
		var i int32
		if v {
			i = 1
		}
		gl.Uniform1i(loc, i)
	case [2]float32:
		gl.Uniform2fv(loc, 1, &v[0])
	case [3]float32:
		gl.Uniform3fv(loc, 1, &v[0])
	case [4]float32:
		gl.Uniform4fv(loc, 1, &v[0])
	case mgl32.Vec2:
		gl.Uniform2fv(loc, 1, &v[0])
	case mgl32.Vec3:
		gl.Uniform3fv(loc, 1, &v[0])
	case mgl32.Vec4:
		gl.Uniform4fv(loc, 1, &v[0])
	case mgl32.Mat3:
		gl.UniformMatrix3fv(loc, 1, false, &v[0])
	case mgl32.Mat4:
		gl.UniformMatrix4fv(loc, 1, false, &v[0])
	case []float32:
		if len(v) > 0 {
			gl.Uniform1fv(loc, int32(len(v)), &v[0])
		}
	default:
		d.fail("SetUniform", device.KindProgram, fmt.Errorf("%w: uniform %q of type %T", device.ErrUnsupported, name, value))
	}
}

func (d *glDevice) SetVertexLayout(h device.Handle, stride int, attribs []device.VertexAttrib) {
	d.note("SetVertexLayout", device.KindVertexArray)
	floatSize := common.SizeOf[float32]()
	for _, a := range attribs {
		slot := uint32(a.Slot)
		gl.EnableVertexAttribArray(slot)
		gl.VertexAttribPointerWithOffset(slot, int32(a.Size), gl.FLOAT, false, int32(stride*floatSize), uintptr(a.Offset*floatSize))
	}
}

func (d *glDevice) UploadTexture(h device.Handle, img device.TextureImage) {
	d.note("UploadTexture", device.KindTexture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(img.Width), int32(img.Height), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr(img.Pixels))
}

func (d *glDevice) SetTextureParams(h device.Handle, params device.TextureParams) {
	d.note("SetTextureParams", device.KindTexture)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filterMode(params.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filterMode(params.MagFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapMode(params.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapMode(params.WrapT))
}

func (d *glDevice) AttachRenderTarget(fb, color, depth device.Handle, width, height int) {
	d.note("AttachRenderTarget", device.KindFramebuffer)
	d.targets[fb] = [2]int32{int32(width), int32(height)}
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(color), 0)
	if depth != device.NoHandle {
		gl.BindRenderbuffer(gl.RENDERBUFFER, uint32(depth))
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH24_STENCIL8, int32(width), int32(height))
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, uint32(depth))
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	}
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		d.fail("AttachRenderTarget", device.KindFramebuffer, fmt.Errorf("framebuffer %d incomplete: status 0x%x", fb, status))
	}
}

func (d *glDevice) Clear(r, g, b, a float32) {
	d.note("Clear", device.KindFramebuffer)
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (d *glDevice) Viewport(x, y, width, height int) {
	d.note("Viewport", device.KindFramebuffer)
	if width <= 0 || height <= 0 {
		if size, ok := d.targets[d.fb]; ok && d.fb != device.NoHandle {
			gl.Viewport(0, 0, size[0], size[1])
			return
		}
		gl.Viewport(d.screen[0], d.screen[1], d.screen[2], d.screen[3])
		return
	}
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

// Err returns pending errors raised by the device first, then the GL error flag.
func (d *glDevice) Err() error {
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		return err
	}
	if code := gl.GetError(); code != gl.NO_ERROR {
		return device.NewDeviceError(d.lastOp, d.lastKind, fmt.Errorf("%s (0x%x)", errorName(code), code))
	}
	return nil
}

func ptr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

func bufferTarget(kind device.Kind) (uint32, bool) {
	switch kind {
	case device.KindVertexBuffer:
		return gl.ARRAY_BUFFER, true
	case device.KindElementBuffer:
		return gl.ELEMENT_ARRAY_BUFFER, true
	default:
		return 0, false
	}
}

func bufferUsage(u device.Usage) uint32 {
	switch u {
	case device.UsageDynamic:
		return gl.DYNAMIC_DRAW
	case device.UsageStream:
		return gl.STREAM_DRAW
	default:
		return gl.STATIC_DRAW
	}
}

func primitiveMode(p device.Primitive) uint32 {
	switch p {
	case device.PrimitivePoints:
		return gl.POINTS
	case device.PrimitiveLines:
		return gl.LINES
	case device.PrimitiveLineStrip:
		return gl.LINE_STRIP
	case device.PrimitiveTriangleStrip:
		return gl.TRIANGLE_STRIP
	case device.PrimitiveTriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}

func filterMode(f device.FilterMode) int32 {
	if f == device.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func wrapMode(w device.WrapMode) int32 {
	switch w {
	case device.WrapRepeat:
		return gl.REPEAT
	case device.WrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	default:
		return "GL error"
	}
}
