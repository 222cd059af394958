package engine

import (
	"GopherView/internal/logger"

	"go.uber.org/zap"
)

// Resize adapts the camera, renderer and controls to a new logical surface
// size. Zero sizes, as reported for minimized windows, are ignored.
func (v *Viewer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	v.camera.SetAspectRatio(float32(width) / float32(height))
	v.renderer.SetPixelRatio(v.surface.PixelRatio())
	v.renderer.SetSize(int32(width), int32(height))
	v.controls.SetViewportSize(float32(width), float32(height))

	bufW, bufH := v.renderer.DrawingBufferSize()
	logger.Log.Debug("Surface resized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int32("bufferWidth", bufW),
		zap.Int32("bufferHeight", bufH))
}

// resizeNotifier fans surface size changes out to the registered handlers.
// Framebuffer changes without a logical resize, such as moving the window to
// a monitor with another pixel ratio, are reported with the current logical
// size so handlers can pick up the new ratio.
type resizeNotifier struct {
	size     func() (width, height int)
	handlers []func(width, height int)
}

func (r *resizeNotifier) add(fn func(width, height int)) {
	r.handlers = append(r.handlers, fn)
}

func (r *resizeNotifier) resized(width, height int) {
	for _, fn := range r.handlers {
		fn(width, height)
	}
}

func (r *resizeNotifier) framebufferResized() {
	r.resized(r.size())
}
