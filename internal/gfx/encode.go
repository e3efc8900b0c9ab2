package gfx

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Std140Mat4s packs matrices for a uniform block of consecutive mat4
// members. A mat4 is four vec4 columns under std140, identical to mgl32's
// column-major layout.
func Std140Mat4s(ms ...mgl32.Mat4) []byte {
	buf := make([]byte, 0, len(ms)*64)
	for _, m := range ms {
		for _, f := range m {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf
}
