package envmap

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// SH9 holds nine RGB spherical-harmonic coefficients (bands 0..2).
type SH9 [9]mgl32.Vec3

// Cosine-lobe convolution weights per band (Ramamoorthi & Hanrahan),
// already divided by pi so that Eval returns outgoing diffuse radiance.
var bandWeights = [9]float32{
	1,
	2.0 / 3.0, 2.0 / 3.0, 2.0 / 3.0,
	0.25, 0.25, 0.25, 0.25, 0.25,
}

func shBasis(d mgl32.Vec3) [9]float32 {
	x, y, z := d[0], d[1], d[2]
	return [9]float32{
		0.282095,
		0.488603 * y,
		0.488603 * z,
		0.488603 * x,
		1.092548 * x * y,
		1.092548 * y * z,
		0.315392 * (3*z*z - 1),
		1.092548 * x * z,
		0.546274 * (x*x - y*y),
	}
}

// ProjectSH integrates the radiance of an equirectangular image onto the
// SH basis, weighting each texel by its solid angle.
func ProjectSH(img *Image) SH9 {
	var sh SH9
	dPhi := 2 * math32.Pi / float32(img.Width)
	dTheta := math32.Pi / float32(img.Height)

	for y := 0; y < img.Height; y++ {
		v := (float32(y) + 0.5) / float32(img.Height)
		weight := math32.Sin(v*math32.Pi) * dPhi * dTheta
		for x := 0; x < img.Width; x++ {
			u := (float32(x) + 0.5) / float32(img.Width)
			basis := shBasis(UVToDirection(u, v))
			radiance := img.At(x, y).Mul(weight)
			for i := range sh {
				sh[i] = sh[i].Add(radiance.Mul(basis[i]))
			}
		}
	}
	return sh
}

// Convolve turns radiance coefficients into irradiance coefficients.
func (sh SH9) Convolve() SH9 {
	var out SH9
	for i := range sh {
		out[i] = sh[i].Mul(bandWeights[i])
	}
	return out
}

func (sh SH9) Eval(dir mgl32.Vec3) mgl32.Vec3 {
	basis := shBasis(dir.Normalize())
	var c mgl32.Vec3
	for i := range sh {
		c = c.Add(sh[i].Mul(basis[i]))
	}
	return c
}

// Flatten packs the coefficients for upload as a vec3 uniform array.
func (sh SH9) Flatten() []float32 {
	out := make([]float32, 0, 27)
	for _, c := range sh {
		out = append(out, c[0], c[1], c[2])
	}
	return out
}
