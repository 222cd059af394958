package engine

import (
	"GopherView/internal/controls"
)

// Surface is the window the viewer draws into. Sizes are logical pixels;
// PixelRatio maps them to the drawing buffer.
type Surface interface {
	Size() (width, height int)
	PixelRatio() float32
	OnResize(fn func(width, height int))
	ShouldClose() bool
	SwapBuffers()
	PollEvents()
}

// ControlsBinder is implemented by surfaces that deliver pointer and keyboard
// input to orbit controls.
type ControlsBinder interface {
	BindControls(oc *controls.OrbitControls)
}
