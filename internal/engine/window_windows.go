//go:build windows

package engine

import (
	"syscall"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	dwmapi                    = syscall.NewLazyDLL("dwmapi.dll")
	procDwmSetWindowAttribute = dwmapi.NewProc("DwmSetWindowAttribute")
)

const (
	DWMWA_USE_IMMERSIVE_DARK_MODE = 20
	DWMWA_BORDER_COLOR            = 34
	DWMWA_CAPTION_COLOR           = 35
)

func setWindowAttribute(hwnd unsafe.Pointer, attr uintptr, value uint32) {
	procDwmSetWindowAttribute.Call(
		uintptr(hwnd),
		attr,
		uintptr(unsafe.Pointer(&value)),
		unsafe.Sizeof(value),
	)
}

// styleTitleBar tints the caption and border with the scene background and
// switches to dark mode text when the background is dark.
func styleTitleBar(window *glfw.Window, background mgl32.Vec3) {
	hwnd := window.GetWin32Window()
	if hwnd == nil {
		return
	}

	luminance := 0.2126*background[0] + 0.7152*background[1] + 0.0722*background[2]
	var dark uint32
	if luminance < 0.5 {
		dark = 1
	}
	setWindowAttribute(unsafe.Pointer(hwnd), DWMWA_USE_IMMERSIVE_DARK_MODE, dark)

	// COLORREF is 0x00BBGGRR
	colorBGR := uint32(uint8(background[2]*255))<<16 | uint32(uint8(background[1]*255))<<8 | uint32(uint8(background[0]*255))
	setWindowAttribute(unsafe.Pointer(hwnd), DWMWA_BORDER_COLOR, colorBGR)
	setWindowAttribute(unsafe.Pointer(hwnd), DWMWA_CAPTION_COLOR, colorBGR)
}
