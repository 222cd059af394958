package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ACESFilmic applies exposure then the Narkowicz fit of the ACES filmic curve
// per channel, clamped to [0,1]. The fragment shader implements the same
// curve; this copy exists for CPU-side checks.
func ACESFilmic(c mgl32.Vec3, exposure float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		x := c[i] * exposure
		y := (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
		out[i] = mgl32.Clamp(y, 0, 1)
	}
	return out
}

// ApplyToneMapping is the CPU mirror of the shader's output stage.
func ApplyToneMapping(mapping ToneMapping, c mgl32.Vec3, exposure float32) mgl32.Vec3 {
	switch mapping {
	case ACESFilmicToneMapping:
		return ACESFilmic(c, exposure)
	default:
		return c.Mul(exposure)
	}
}
