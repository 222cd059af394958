package envmap

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"GopherView/internal/logger"

	"github.com/chewxy/math32"
	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrEmptyImage = errors.New("empty environment image")

// Decode reads an equirectangular environment image. Radiance HDR images keep
// their float range; 8-bit formats are converted from sRGB to linear.
func Decode(r io.Reader) (*Image, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding environment image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, ErrEmptyImage
	}
	img := NewImage(bounds.Dx(), bounds.Dy())

	if hdrImg, ok := src.(hdr.Image); ok {
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, _ := hdrImg.HDRAt(bounds.Min.X+x, bounds.Min.Y+y).HDRRGBA()
				i := (y*img.Width + x) * 3
				img.Pix[i], img.Pix[i+1], img.Pix[i+2] = float32(r), float32(g), float32(b)
			}
		}
	} else {
		logger.Log.Warn("Environment image is low dynamic range", zap.String("format", format))
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				i := (y*img.Width + x) * 3
				img.Pix[i] = srgbToLinear(float32(r) / 0xffff)
				img.Pix[i+1] = srgbToLinear(float32(g) / 0xffff)
				img.Pix[i+2] = srgbToLinear(float32(b) / 0xffff)
			}
		}
	}

	logger.Log.Debug("Environment image decoded",
		zap.String("format", format),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height))
	return img, nil
}

func DecodeFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math32.Pow((c+0.055)/1.055, 2.4)
}
