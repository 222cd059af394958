package envmap

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Image is a linear-light RGB float image laid out as an equirectangular
// panorama: the top row looks straight up (+Y), u wraps around the Y axis.
type Image struct {
	Width  int
	Height int
	Pix    []float32 // RGB triplets, row-major, top row first
}

func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*3),
	}
}

func (img *Image) Empty() bool {
	return img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Pix) < img.Width*img.Height*3
}

func (img *Image) At(x, y int) mgl32.Vec3 {
	i := (y*img.Width + x) * 3
	return mgl32.Vec3{img.Pix[i], img.Pix[i+1], img.Pix[i+2]}
}

func (img *Image) Set(x, y int, c mgl32.Vec3) {
	i := (y*img.Width + x) * 3
	img.Pix[i], img.Pix[i+1], img.Pix[i+2] = c[0], c[1], c[2]
}

// Fill sets every pixel to c.
func (img *Image) Fill(c mgl32.Vec3) {
	for i := 0; i+2 < len(img.Pix); i += 3 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = c[0], c[1], c[2]
	}
}

// Dispose drops the pixel storage. The image reports Empty afterwards.
func (img *Image) Dispose() {
	img.Pix = nil
	img.Width, img.Height = 0, 0
}

// Sample returns the nearest texel in the direction dir.
func (img *Image) Sample(dir mgl32.Vec3) mgl32.Vec3 {
	u, v := DirectionToUV(dir)
	x := int(u * float32(img.Width))
	y := int(v * float32(img.Height))
	if x >= img.Width {
		x = img.Width - 1
	}
	if y >= img.Height {
		y = img.Height - 1
	}
	return img.At(x, y)
}

// Resize box-filters the image to width x height. Each destination texel
// averages every source texel whose centre falls inside its footprint.
func (img *Image) Resize(width, height int) *Image {
	dst := NewImage(width, height)
	for y := 0; y < height; y++ {
		y0 := y * img.Height / height
		y1 := (y + 1) * img.Height / height
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for x := 0; x < width; x++ {
			x0 := x * img.Width / width
			x1 := (x + 1) * img.Width / width
			if x1 <= x0 {
				x1 = x0 + 1
			}
			var sum mgl32.Vec3
			for sy := y0; sy < y1; sy++ {
				for sx := x0; sx < x1; sx++ {
					sum = sum.Add(img.At(sx, sy))
				}
			}
			dst.Set(x, y, sum.Mul(1/float32((x1-x0)*(y1-y0))))
		}
	}
	return dst
}

// DirectionToUV maps a direction to equirectangular coordinates in [0,1).
func DirectionToUV(dir mgl32.Vec3) (u, v float32) {
	d := dir.Normalize()
	phi := math32.Atan2(d.Z(), d.X())
	theta := math32.Acos(mgl32.Clamp(d.Y(), -1, 1))

	u = phi / (2 * math32.Pi)
	if u < 0 {
		u += 1
	}
	v = theta / math32.Pi
	return u, v
}

// UVToDirection is the inverse of DirectionToUV.
func UVToDirection(u, v float32) mgl32.Vec3 {
	phi := u * 2 * math32.Pi
	theta := v * math32.Pi
	sinTheta := math32.Sin(theta)
	return mgl32.Vec3{
		sinTheta * math32.Cos(phi),
		math32.Cos(theta),
		sinTheta * math32.Sin(phi),
	}
}
