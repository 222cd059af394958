package renderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestViewportDrawingBufferSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int32
		ratio         float32
		wantW, wantH  int32
	}{
		{"unit ratio", 800, 600, 1, 800, 600},
		{"retina", 800, 600, 2, 1600, 1200},
		{"fractional truncates", 1001, 333, 1.5, 1501, 499},
		{"invalid ratio falls back to 1", 640, 480, 0, 640, 480},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Viewport
			v.SetPixelRatio(tt.ratio)
			v.SetSize(tt.width, tt.height)
			w, h := v.DrawingBufferSize()
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestViewportAspectRatio(t *testing.T) {
	v := Viewport{Width: 1920, Height: 1080, PixelRatio: 1}
	if got := v.AspectRatio(); math32.Abs(got-1920.0/1080.0) > 1e-6 {
		t.Errorf("Unexpected aspect %f", got)
	}
	v.SetSize(100, 0)
	if v.AspectRatio() != 1 {
		t.Error("Zero height should not divide by zero")
	}
}

func TestACESFilmic(t *testing.T) {
	black := ACESFilmic(mgl32.Vec3{}, 1.25)
	if black != (mgl32.Vec3{}) {
		t.Errorf("Black should stay black, got %v", black)
	}

	bright := ACESFilmic(mgl32.Vec3{1000, 1000, 1000}, 1)
	for i := 0; i < 3; i++ {
		if bright[i] > 1 || bright[i] < 0.99 {
			t.Errorf("Very bright input should saturate near 1, got %v", bright)
		}
	}

	lo := ACESFilmic(mgl32.Vec3{0.2, 0.2, 0.2}, 1)
	hi := ACESFilmic(mgl32.Vec3{0.2, 0.2, 0.2}, 1.25)
	if hi[0] <= lo[0] {
		t.Error("Higher exposure should brighten the result")
	}
}

func TestApplyToneMappingNone(t *testing.T) {
	got := ApplyToneMapping(NoToneMapping, mgl32.Vec3{0.5, 1, 2}, 2)
	if got != (mgl32.Vec3{1, 2, 4}) {
		t.Errorf("Without tone mapping only exposure applies, got %v", got)
	}
}

func TestToRGBADownscales(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 400, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 400; x++ {
			src.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	dst := toRGBA(src, 200)
	if dst.Bounds().Dx() != 200 || dst.Bounds().Dy() != 50 {
		t.Fatalf("Expected 200x50, got %v", dst.Bounds())
	}
	if c := dst.RGBAAt(100, 25); c.R < 250 || c.G != 0 {
		t.Errorf("Unexpected color after scaling: %v", c)
	}

	same := toRGBA(src, 1000)
	if same.Bounds().Dx() != 400 || same.Bounds().Dy() != 100 {
		t.Errorf("Small images should keep their size, got %v", same.Bounds())
	}
}
