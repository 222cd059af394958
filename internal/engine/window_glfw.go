package engine

import (
	"fmt"

	"GopherView/internal/config"
	"GopherView/internal/controls"
	"GopherView/internal/logger"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// GLFWSurface is a window with an OpenGL 4.1 core context. It must be created
// and used from a goroutine locked to its OS thread.
type GLFWSurface struct {
	window *glfw.Window
	resize resizeNotifier
}

// NewGLFWSurface initializes GLFW, opens a window and makes its GL context
// current with vsync enabled.
func NewGLFWSurface(cfg config.WindowConfig, background mgl32.Vec3) (*GLFWSurface, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing glfw: %w", err)
	}

	glfw.WindowHint(glfw.Decorated, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)
	glfw.WindowHint(glfw.Samples, cfg.Samples)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("creating window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	styleTitleBar(window, background)

	s := &GLFWSurface{window: window}
	s.resize.size = window.GetSize
	window.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		s.resize.resized(width, height)
	})
	window.SetFramebufferSizeCallback(func(*glfw.Window, int, int) {
		s.resize.framebufferResized()
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	logger.Log.Info("Window created",
		zap.String("title", cfg.Title),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("samples", cfg.Samples),
		zap.Float32("pixelRatio", s.PixelRatio()))
	return s, nil
}

func (s *GLFWSurface) Size() (int, int) {
	return s.window.GetSize()
}

// PixelRatio is the framebuffer to window size ratio, 2 on most HiDPI
// displays.
func (s *GLFWSurface) PixelRatio() float32 {
	w, _ := s.window.GetSize()
	fbw, _ := s.window.GetFramebufferSize()
	if w <= 0 || fbw <= 0 {
		return 1
	}
	return float32(fbw) / float32(w)
}

func (s *GLFWSurface) OnResize(fn func(width, height int)) {
	s.resize.add(fn)
}

func (s *GLFWSurface) ShouldClose() bool {
	return s.window.ShouldClose()
}

func (s *GLFWSurface) SwapBuffers() {
	s.window.SwapBuffers()
}

func (s *GLFWSurface) PollEvents() {
	glfw.PollEvents()
}

var arrowKeys = map[glfw.Key]controls.Key{
	glfw.KeyUp:    controls.KeyUp,
	glfw.KeyDown:  controls.KeyDown,
	glfw.KeyLeft:  controls.KeyLeft,
	glfw.KeyRight: controls.KeyRight,
}

var mouseButtons = map[glfw.MouseButton]controls.Button{
	glfw.MouseButtonLeft:   controls.ButtonPrimary,
	glfw.MouseButtonRight:  controls.ButtonSecondary,
	glfw.MouseButtonMiddle: controls.ButtonMiddle,
}

// BindControls routes mouse, scroll and arrow key input to oc. Escape keeps
// closing the window.
func (s *GLFWSurface) BindControls(oc *controls.OrbitControls) {
	s.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		b, ok := mouseButtons[button]
		if !ok {
			return
		}
		switch action {
		case glfw.Press:
			x, y := w.GetCursorPos()
			oc.PointerDown(b, float32(x), float32(y))
		case glfw.Release:
			oc.PointerUp()
		}
	})
	s.window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		oc.PointerMove(float32(x), float32(y))
	})
	s.window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		oc.Scroll(float32(yoff))
	})
	s.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		if key == glfw.KeyEscape {
			w.SetShouldClose(true)
			return
		}
		if k, ok := arrowKeys[key]; ok {
			oc.KeyPan(k)
		}
	})
}

// Destroy closes the window and terminates GLFW.
func (s *GLFWSurface) Destroy() {
	s.window.Destroy()
	glfw.Terminate()
}
