package renderer

import (
	"GopherView/internal/scene"
)

var FrustumCullingEnabled bool = true
var Debug bool = false

type ToneMapping int32

const (
	NoToneMapping ToneMapping = iota
	ACESFilmicToneMapping
)

// Render draws a scene graph from a camera's viewpoint onto a surface whose
// size is expressed in logical pixels and scaled by the pixel ratio.
type Render interface {
	Init(width, height int32, pixelRatio float32) error
	SetPixelRatio(ratio float32)
	SetSize(width, height int32)
	DrawingBufferSize() (int32, int32)
	SetToneMapping(mapping ToneMapping, exposure float32)
	Render(s *scene.Scene, camera *Camera)
	Cleanup()
}
