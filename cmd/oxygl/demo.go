package main

import (
	_ "embed"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/camera"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/gfx"
)

//go:embed assets/demo.glsl
var demoGLSL string

//go:embed assets/demo.wgsl
var demoWGSL string

const (
	shaderID    = "demo"
	checkerID   = "checker"
	offscreenID = "offscreen"
	quadID      = "quad"
	waveID      = "wave"

	wavePoints = 64
)

// demo draws a spinning checkered quad and an animated line strip into an offscreen texture,
// then draws that texture onto a quad in the window.
type demo struct {
	ctx       *gfx.Context
	screen    camera.Camera
	offscreen camera.Camera

	targetSizes []int
	target      int
	nearest     bool
	paused      bool
	time        float32
	wave        []float32
}

func newDemo(ctx *gfx.Context, cfg Config, width, height int) (*demo, error) {
	depth := camera.DepthNegativeOne
	if cfg.Backend == backendWebGPU {
		depth = camera.DepthZeroToOne
	}
	d := &demo{
		ctx: ctx,
		screen: camera.NewCamera(
			camera.WithFov(mgl32.DegToRad(60)),
			camera.WithClipPlanes(0.1, 10),
			camera.WithDepthRange(depth),
		),
		offscreen: camera.NewCamera(
			camera.WithFov(mgl32.DegToRad(60)),
			camera.WithClipPlanes(0.1, 10),
			camera.WithDepthRange(depth),
		),
		targetSizes: []int{cfg.Render.TargetSize, cfg.Render.TargetSize * 2, cfg.Render.TargetSize / 2},
		wave:        make([]float32, wavePoints*5),
	}
	d.resize(width, height)

	var err error
	if cfg.Backend == backendWebGPU {
		_, err = ctx.CreateShader(shaderID, device.ProgramSource{Vertex: demoWGSL})
	} else {
		_, err = ctx.CreateShaderFromSource(shaderID, demoGLSL)
	}
	if err != nil {
		return nil, err
	}

	checker := checkerboard(64, 8)
	if _, err := ctx.CreateTexture(checkerID, gfx.TextureOptions{
		Image: &checker,
		Params: &device.TextureParams{
			MinFilter: device.FilterLinear,
			MagFilter: device.FilterLinear,
			WrapS:     device.WrapRepeat,
			WrapT:     device.WrapRepeat,
		},
	}); err != nil {
		return nil, err
	}
	if _, err := ctx.CreateRenderTexture(offscreenID, cfg.Render.TargetSize, cfg.Render.TargetSize, gfx.TextureOptions{}); err != nil {
		return nil, err
	}

	if _, err := ctx.CreateMesh(quadID, gfx.MeshOptions{
		AttribLengths: []int{3, 2},
		Vertices: []float32{
			-1, -1, 0, 0, 0,
			1, -1, 0, 1, 0,
			1, 1, 0, 1, 1,
			-1, 1, 0, 0, 1,
		},
		Indices: []uint16{0, 1, 2, 2, 3, 0},
	}); err != nil {
		return nil, err
	}
	d.updateWave()
	wave, err := ctx.CreateMesh(waveID, gfx.MeshOptions{
		AttribLengths: []int{3, 2},
		Vertices:      d.wave,
		Dynamic:       true,
	})
	if err != nil {
		return nil, err
	}
	wave.Flush()
	return d, nil
}

// checkerboard returns a size x size RGBA image with cells of cell pixels.
func checkerboard(size, cell int) common.TextureStagingData {
	pix := make([]byte, size*size*4)
	for y := range size {
		for x := range size {
			v := byte(64)
			if (x/cell+y/cell)%2 == 0 {
				v = 230
			}
			i := (y*size + x) * 4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, 255, 255
		}
	}
	return common.TextureStagingData{Pixels: pix, Width: size, Height: size}
}

func (d *demo) updateWave() {
	for i := range wavePoints {
		x := float32(i)/float32(wavePoints-1)*2 - 1
		y := 0.25 * float32(math.Sin(float64(x*6+d.time*3)))
		copy(d.wave[i*5:], []float32{x, y, 0.01, 0.5, 0.5})
	}
}

func (d *demo) frame(dt float32) {
	if !d.paused {
		d.time += dt
	}
	s := d.ctx.Shader(shaderID)

	d.ctx.RenderTo(offscreenID, func() {
		d.ctx.Clear(0.08, 0.08, 0.12, 1)
		d.offscreen.Apply(s)
		s.SetMat4("uModel", mgl32.HomogRotate3DZ(d.time).Mul4(mgl32.Scale3D(0.8, 0.8, 1)))
		s.SetVec4("uTint", mgl32.Vec4{1, 1, 1, 1})
		d.ctx.Texture(checkerID).BindForSampling()
		d.ctx.DrawMesh(quadID, shaderID, device.PrimitiveTriangles)

		d.updateWave()
		wave := d.ctx.Mesh(waveID)
		wave.SetVertexRange(d.wave, 0)
		wave.Flush()
		s.SetMat4("uModel", mgl32.Ident4())
		s.SetVec4("uTint", mgl32.Vec4{1, 0.6, 0.2, 1})
		d.ctx.DrawMesh(waveID, shaderID, device.PrimitiveLineStrip)
	})

	d.ctx.Clear(0.02, 0.02, 0.02, 1)
	d.screen.Apply(s)
	s.SetMat4("uModel", mgl32.HomogRotate3DY(d.time*0.5))
	s.SetVec4("uTint", mgl32.Vec4{1, 1, 1, 1})
	d.ctx.Texture(offscreenID).BindForSampling()
	d.ctx.DrawMesh(quadID, shaderID, device.PrimitiveTriangles)
}

func (d *demo) resize(width, height int) {
	if height > 0 {
		d.screen.SetAspect(float32(width) / float32(height))
	}
}

// key handles the demo controls: space pauses, F toggles checker filtering, R cycles the
// offscreen target size.
func (d *demo) key(keyCode uint32) {
	switch keyCode {
	case common.KeySpace:
		d.paused = !d.paused
	case common.KeyF:
		d.nearest = !d.nearest
		filter := device.FilterLinear
		if d.nearest {
			filter = device.FilterNearest
		}
		d.ctx.SetTextureFilter(checkerID, filter, filter)
	case common.KeyR:
		d.target = (d.target + 1) % len(d.targetSizes)
		size := d.targetSizes[d.target]
		if err := d.ctx.Texture(offscreenID).Resize(size, size); err != nil {
			d.ctx.Logger().Warn("render target resize failed", zap.Int("size", size), zap.Error(err))
		}
	}
}
