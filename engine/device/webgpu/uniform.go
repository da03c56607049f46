package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Carmen-Shannon/oxy-gl/common"
)

// encodeUniform converts a uniform value into the bytes it occupies inside the uniform block.
// mat3x3 columns are padded to 16 bytes as the uniform address space requires.
//
// Parameters:
//   - field: the destination member of the uniform block
//   - value: the value passed to SetUniform
//
// Returns:
//   - []byte: the encoded value, never longer than the member
//   - error: error if the value type is not supported
func encodeUniform(field uniformField, value any) ([]byte, error) {
	var out []byte
	switch v := value.(type) {
	case float32:
		out = binary.LittleEndian.AppendUint32(nil, math.Float32bits(v))
	case int32:
		out = binary.LittleEndian.AppendUint32(nil, uint32(v))
	case int:
		out = binary.LittleEndian.AppendUint32(nil, uint32(int32(v)))
	case bool:
		var b uint32
		if v {
			b = 1
		}
		out = binary.LittleEndian.AppendUint32(nil, b)
	case [2]float32:
		out = floats(v[:])
	case [3]float32:
		out = floats(v[:])
	case [4]float32:
		out = floats(v[:])
	case mgl32.Vec2:
		out = floats(v[:])
	case mgl32.Vec3:
		out = floats(v[:])
	case mgl32.Vec4:
		out = floats(v[:])
	case mgl32.Mat3:
		out = make([]byte, 0, 48)
		for c := 0; c < 3; c++ {
			out = append(out, floats(v[c*3:c*3+3])...)
			out = append(out, 0, 0, 0, 0)
		}
	case mgl32.Mat4:
		out = floats(v[:])
	case []float32:
		out = arrayFloats(v, field)
	default:
		return nil, fmt.Errorf("uniform value of type %T", value)
	}
	if uint64(len(out)) > field.layout.size {
		out = out[:field.layout.size]
	}
	return out, nil
}

func floats(v []float32) []byte {
	return append([]byte(nil), common.SliceToBytes(v)...)
}

// arrayFloats lays out a float slice into an array<f32, N> member with its 16 byte element stride.
// Non-array members receive the slice packed.
func arrayFloats(v []float32, field uniformField) []byte {
	if _, ok := primitiveLayouts[field.typeName]; ok {
		return floats(v)
	}
	out := make([]byte, 0, len(v)*16)
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		out = append(out, make([]byte, 12)...)
	}
	return out
}
