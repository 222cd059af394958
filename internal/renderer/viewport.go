package renderer

// Viewport tracks the logical surface size and the pixel ratio that maps it
// to the drawing buffer.
type Viewport struct {
	Width      int32
	Height     int32
	PixelRatio float32
}

func (v *Viewport) SetPixelRatio(ratio float32) {
	if ratio <= 0 {
		ratio = 1
	}
	v.PixelRatio = ratio
}

func (v *Viewport) SetSize(width, height int32) {
	v.Width = width
	v.Height = height
}

// DrawingBufferSize returns the size in device pixels, rounded down.
func (v *Viewport) DrawingBufferSize() (int32, int32) {
	ratio := v.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	return int32(float32(v.Width) * ratio), int32(float32(v.Height) * ratio)
}

func (v *Viewport) AspectRatio() float32 {
	if v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}
