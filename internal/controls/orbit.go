package controls

import (
	"GopherView/internal/renderer"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const epsilon = 1e-6

type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyLeft
	KeyRight
)

type controlState int

const (
	stateNone controlState = iota
	stateRotate
	statePan
	stateDolly
)

// spherical is an offset from the target: theta around +Y measured from +Z,
// phi down from +Y.
type spherical struct {
	radius float32
	theta  float32
	phi    float32
}

func sphericalFromVector(v mgl32.Vec3) spherical {
	r := v.Len()
	if r == 0 {
		return spherical{}
	}
	return spherical{
		radius: r,
		theta:  math32.Atan2(v.X(), v.Z()),
		phi:    math32.Acos(mgl32.Clamp(v.Y()/r, -1, 1)),
	}
}

func (s spherical) vector() mgl32.Vec3 {
	sinPhi := math32.Sin(s.phi)
	return mgl32.Vec3{
		s.radius * sinPhi * math32.Sin(s.theta),
		s.radius * math32.Cos(s.phi),
		s.radius * sinPhi * math32.Cos(s.theta),
	}
}

// OrbitControls orbits, dollies and pans a camera around a target point.
// Input methods only accumulate motion; Update applies it and must be called
// once per frame. Not safe for concurrent use: call everything from the
// render loop goroutine.
type OrbitControls struct {
	Enabled bool

	EnableDamping bool
	DampingFactor float32

	RotateSpeed float32
	ZoomSpeed   float32
	PanSpeed    float32
	KeyPanSpeed float32

	MinDistance   float32
	MaxDistance   float32
	MinPolarAngle float32
	MaxPolarAngle float32

	camera *renderer.Camera
	target mgl32.Vec3

	sphericalDelta spherical
	panOffset      mgl32.Vec3
	scale          float32

	width, height float32

	state        controlState
	lastX, lastY float32

	lastPosition mgl32.Vec3
	lastTarget   mgl32.Vec3
}

// NewOrbitControls binds controls to camera and points it at the target.
func NewOrbitControls(camera *renderer.Camera, options ...OrbitOption) *OrbitControls {
	oc := &OrbitControls{
		Enabled:       true,
		DampingFactor: 0.05,
		RotateSpeed:   1,
		ZoomSpeed:     1,
		PanSpeed:      1,
		KeyPanSpeed:   7,
		MinDistance:   0,
		MaxDistance:   math32.Inf(1),
		MinPolarAngle: 0,
		MaxPolarAngle: math32.Pi,
		camera:        camera,
		scale:         1,
		width:         1,
		height:        1,
	}
	for _, option := range options {
		option(oc)
	}

	camera.LookAt(oc.target)
	oc.lastPosition = camera.Position
	oc.lastTarget = oc.target
	return oc
}

func (oc *OrbitControls) Target() mgl32.Vec3 {
	return oc.target
}

func (oc *OrbitControls) Camera() *renderer.Camera {
	return oc.camera
}

// SetViewportSize sets the logical surface size that pixel deltas are
// measured against.
func (oc *OrbitControls) SetViewportSize(width, height float32) {
	if width > 0 {
		oc.width = width
	}
	if height > 0 {
		oc.height = height
	}
}

// Rotate orbits by a pointer delta in pixels. A drag across the full surface
// height turns the camera by one revolution.
func (oc *OrbitControls) Rotate(dx, dy float32) {
	oc.rotateLeft(2 * math32.Pi * dx / oc.height * oc.RotateSpeed)
	oc.rotateUp(2 * math32.Pi * dy / oc.height * oc.RotateSpeed)
}

func (oc *OrbitControls) rotateLeft(angle float32) {
	oc.sphericalDelta.theta -= angle
}

func (oc *OrbitControls) rotateUp(angle float32) {
	oc.sphericalDelta.phi -= angle
}

// Pan moves the target and camera in the view plane by a pointer delta in
// pixels, so the point under the cursor follows it at the target distance.
func (oc *OrbitControls) Pan(dx, dy float32) {
	dx *= oc.PanSpeed
	dy *= oc.PanSpeed

	offset := oc.camera.Position.Sub(oc.target)
	targetDistance := offset.Len() * math32.Tan(mgl32.DegToRad(oc.camera.Fov)/2)

	oc.panLeft(2 * dx * targetDistance / oc.height)
	oc.panUp(2 * dy * targetDistance / oc.height)
}

func (oc *OrbitControls) panLeft(distance float32) {
	oc.panOffset = oc.panOffset.Add(oc.camera.Right.Mul(-distance))
}

func (oc *OrbitControls) panUp(distance float32) {
	oc.panOffset = oc.panOffset.Add(oc.camera.Up.Mul(distance))
}

func (oc *OrbitControls) zoomScale() float32 {
	return math32.Pow(0.95, oc.ZoomSpeed)
}

// DollyIn moves the camera towards the target by one zoom step.
func (oc *OrbitControls) DollyIn() {
	oc.scale *= oc.zoomScale()
}

// DollyOut moves the camera away from the target by one zoom step.
func (oc *OrbitControls) DollyOut() {
	oc.scale /= oc.zoomScale()
}

// Scroll dollies in for positive deltas (wheel up) and out for negative ones.
func (oc *OrbitControls) Scroll(delta float32) {
	if !oc.Enabled {
		return
	}
	switch {
	case delta > 0:
		oc.DollyIn()
	case delta < 0:
		oc.DollyOut()
	}
}

// KeyPan pans by KeyPanSpeed pixels in the arrow key's direction.
func (oc *OrbitControls) KeyPan(key Key) {
	if !oc.Enabled {
		return
	}
	switch key {
	case KeyUp:
		oc.Pan(0, oc.KeyPanSpeed)
	case KeyDown:
		oc.Pan(0, -oc.KeyPanSpeed)
	case KeyLeft:
		oc.Pan(oc.KeyPanSpeed, 0)
	case KeyRight:
		oc.Pan(-oc.KeyPanSpeed, 0)
	}
}

// PointerDown starts a drag: primary rotates, secondary pans, middle dollies.
func (oc *OrbitControls) PointerDown(button Button, x, y float32) {
	if !oc.Enabled {
		return
	}
	switch button {
	case ButtonPrimary:
		oc.state = stateRotate
	case ButtonSecondary:
		oc.state = statePan
	case ButtonMiddle:
		oc.state = stateDolly
	default:
		oc.state = stateNone
	}
	oc.lastX, oc.lastY = x, y
}

func (oc *OrbitControls) PointerMove(x, y float32) {
	if !oc.Enabled || oc.state == stateNone {
		return
	}
	dx, dy := x-oc.lastX, y-oc.lastY
	oc.lastX, oc.lastY = x, y

	switch oc.state {
	case stateRotate:
		oc.Rotate(dx, dy)
	case statePan:
		oc.Pan(dx, dy)
	case stateDolly:
		if dy > 0 {
			oc.DollyOut()
		} else if dy < 0 {
			oc.DollyIn()
		}
	}
}

func (oc *OrbitControls) PointerUp() {
	oc.state = stateNone
}

// Dragging reports whether a pointer drag is in progress.
func (oc *OrbitControls) Dragging() bool {
	return oc.state != stateNone
}

// Update applies the accumulated motion to the camera and reports whether the
// camera moved.
func (oc *OrbitControls) Update() bool {
	offset := oc.camera.Position.Sub(oc.target)
	s := sphericalFromVector(offset)

	if oc.EnableDamping {
		s.theta += oc.sphericalDelta.theta * oc.DampingFactor
		s.phi += oc.sphericalDelta.phi * oc.DampingFactor
	} else {
		s.theta += oc.sphericalDelta.theta
		s.phi += oc.sphericalDelta.phi
	}

	s.phi = mgl32.Clamp(s.phi, oc.MinPolarAngle, oc.MaxPolarAngle)
	s.phi = mgl32.Clamp(s.phi, epsilon, math32.Pi-epsilon)

	s.radius = mgl32.Clamp(s.radius*oc.scale, oc.MinDistance, oc.MaxDistance)

	if oc.EnableDamping {
		oc.target = oc.target.Add(oc.panOffset.Mul(oc.DampingFactor))
	} else {
		oc.target = oc.target.Add(oc.panOffset)
	}

	oc.camera.Position = oc.target.Add(s.vector())
	oc.camera.LookAt(oc.target)

	if oc.EnableDamping {
		decay := 1 - oc.DampingFactor
		oc.sphericalDelta.theta *= decay
		oc.sphericalDelta.phi *= decay
		oc.panOffset = oc.panOffset.Mul(decay)
	} else {
		oc.sphericalDelta = spherical{}
		oc.panOffset = mgl32.Vec3{}
	}
	oc.scale = 1

	moved := oc.camera.Position.Sub(oc.lastPosition).LenSqr() > epsilon ||
		oc.target.Sub(oc.lastTarget).LenSqr() > epsilon
	if moved {
		oc.lastPosition = oc.camera.Position
		oc.lastTarget = oc.target
	}
	return moved
}
