package controls

import (
	"github.com/go-gl/mathgl/mgl32"
)

// OrbitOption is a functional option for configuring OrbitControls.
type OrbitOption func(*OrbitControls)

// WithTarget sets the point the camera orbits around.
func WithTarget(target mgl32.Vec3) OrbitOption {
	return func(oc *OrbitControls) {
		oc.target = target
	}
}

// WithDamping enables inertia. Each Update applies factor of the pending
// motion and keeps the rest for later frames.
//
// Parameters:
//   - factor: fraction of the pending motion applied per update, in (0, 1]
//
// Returns:
//   - OrbitOption: functional option enabling damping
func WithDamping(factor float32) OrbitOption {
	return func(oc *OrbitControls) {
		oc.EnableDamping = true
		oc.DampingFactor = factor
	}
}

// WithRotateSpeed sets the drag rotation multiplier.
func WithRotateSpeed(speed float32) OrbitOption {
	return func(oc *OrbitControls) {
		oc.RotateSpeed = speed
	}
}

// WithZoomSpeed sets the dolly multiplier.
func WithZoomSpeed(speed float32) OrbitOption {
	return func(oc *OrbitControls) {
		oc.ZoomSpeed = speed
	}
}

// WithPanSpeed sets the pan multiplier.
func WithPanSpeed(speed float32) OrbitOption {
	return func(oc *OrbitControls) {
		oc.PanSpeed = speed
	}
}

// WithKeyPanSpeed sets how many pixels a single arrow key press pans by.
func WithKeyPanSpeed(pixels float32) OrbitOption {
	return func(oc *OrbitControls) {
		oc.KeyPanSpeed = pixels
	}
}

// WithDistanceBounds sets how close and how far the camera may dolly.
//
// Parameters:
//   - min: minimum distance to the target
//   - max: maximum distance to the target
//
// Returns:
//   - OrbitOption: functional option to set distance bounds
func WithDistanceBounds(min, max float32) OrbitOption {
	return func(oc *OrbitControls) {
		oc.MinDistance = min
		oc.MaxDistance = max
	}
}

// WithPolarBounds limits the vertical orbit, in radians from the +Y axis.
//
// Parameters:
//   - min: smallest polar angle (0 looks straight down)
//   - max: largest polar angle (Pi looks straight up)
//
// Returns:
//   - OrbitOption: functional option to set polar bounds
func WithPolarBounds(min, max float32) OrbitOption {
	return func(oc *OrbitControls) {
		oc.MinPolarAngle = min
		oc.MaxPolarAngle = max
	}
}
