package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type LightType int

const (
	AmbientLight LightType = iota
	DirectionalLight
)

func (t LightType) String() string {
	switch t {
	case AmbientLight:
		return "ambient"
	case DirectionalLight:
		return "directional"
	}
	return "unknown"
}

// Light is attached to a Node. Directional lights shine from the node's
// world position towards the origin.
type Light struct {
	Type      LightType
	Color     mgl32.Vec3
	Intensity float32
}

// Radiance is the light color scaled by its intensity.
func (l *Light) Radiance() mgl32.Vec3 {
	return l.Color.Mul(l.Intensity)
}

func NewAmbientLight(color mgl32.Vec3, intensity float32) *Node {
	n := NewNode("AmbientLight")
	n.Light = &Light{Type: AmbientLight, Color: color, Intensity: intensity}
	return n
}

func NewDirectionalLight(color mgl32.Vec3, intensity float32, position mgl32.Vec3) *Node {
	n := NewNode("DirectionalLight")
	n.Position = position
	n.Light = &Light{Type: DirectionalLight, Color: color, Intensity: intensity}
	return n
}
