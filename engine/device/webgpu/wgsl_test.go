package webgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litSource = `
struct Light {
    color: vec3<f32>,
    intensity: f32,
};

struct Uniforms {
    model: mat4x4<f32>,
    tint: vec3<f32>,
    time: f32,
    normal: mat3x3<f32>,
    weights: array<f32, 4>,
    light: Light,
};

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(0) @binding(1) var tex: texture_2d<f32>;
@group(0) @binding(2) var samp: sampler;
// @group(0) @binding(3) var<uniform> unused: Uniforms;

struct VertexOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@location(0) pos: vec3<f32>, @location(1) uv: vec2<f32>) -> VertexOut {
    var out: VertexOut;
    out.pos = u.model * vec4<f32>(pos, 1.0);
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
    return textureSample(tex, samp, in.uv) * vec4<f32>(u.tint, 1.0);
}
`

func TestReflectProgram(t *testing.T) {
	r := reflectProgram(litSource, litSource)

	assert.Equal(t, "vs_main", r.vertexEntry)
	assert.Equal(t, "fs_main", r.fragmentEntry)

	require.Len(t, r.bindings, 3)
	assert.Equal(t, bindingUniform, r.bindings[0].kind)
	assert.Equal(t, "Uniforms", r.bindings[0].typeName)
	assert.Equal(t, bindingTexture, r.bindings[1].kind)
	assert.Equal(t, bindingSampler, r.bindings[2].kind)
	sampler, ok := r.binding(bindingSampler)
	require.True(t, ok)
	assert.Equal(t, uint32(2), sampler.binding)

	offsets := map[string]uint64{}
	for name, f := range r.uniforms {
		offsets[name] = f.offset
	}
	assert.Equal(t, map[string]uint64{
		"model":   0,
		"tint":    64,
		"time":    76,
		"normal":  80,
		"weights": 128,
		"light":   192,
	}, offsets)
	assert.Equal(t, uint64(208), r.uniformSize)
}

func TestReflectProgram_SeparateStages(t *testing.T) {
	vs := `@group(0) @binding(0) var<uniform> mvp: mat4x4<f32>;
@vertex fn main_v(@location(0) p: vec3f) -> @builtin(position) vec4f { return mvp * vec4f(p, 1.0); }`
	fs := `@fragment fn main_f() -> @location(0) vec4f { return vec4f(1.0); }`

	r := reflectProgram(vs, fs)

	assert.Equal(t, "main_v", r.vertexEntry)
	assert.Equal(t, "main_f", r.fragmentEntry)
	require.Contains(t, r.uniforms, "mvp")
	assert.Equal(t, uint64(64), r.uniformSize)
	_, ok := r.binding(bindingTexture)
	assert.False(t, ok)
}

func TestReflectProgram_NoEntryPoints(t *testing.T) {
	r := reflectProgram("// @vertex fn commented() {}", "")
	assert.Empty(t, r.vertexEntry)
	assert.Empty(t, r.fragmentEntry)
	assert.Empty(t, r.bindings)
	assert.Zero(t, r.uniformSize)
}

func TestEncodeUniform(t *testing.T) {
	r := reflectProgram(litSource, litSource)

	data, err := encodeUniform(r.uniforms["time"], float32(0.5))
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(data)))

	data, err = encodeUniform(r.uniforms["normal"], mgl32.Ident3())
	require.NoError(t, err)
	require.Len(t, data, 48)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[20:])))
	assert.Equal(t, []byte{0, 0, 0, 0}, data[12:16])

	data, err = encodeUniform(r.uniforms["weights"], []float32{1, 2, 3, 4, 5})
	require.NoError(t, err)
	require.Len(t, data, 64)
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(data[16:])))

	data, err = encodeUniform(r.uniforms["tint"], mgl32.Vec4{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, data, 12)

	_, err = encodeUniform(r.uniforms["time"], "nope")
	assert.Error(t, err)
}
