package scene

import (
	"GopherView/internal/envmap"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene owns the node graph plus the global environment and background.
// It is not safe for concurrent use; the viewer mutates it from the render
// loop only.
type Scene struct {
	root        *Node
	environment *envmap.Map
	background  mgl32.Vec3
	hasBg       bool
}

func New() *Scene {
	return &Scene{root: NewNode("Scene")}
}

func (s *Scene) Root() *Node {
	return s.root
}

func (s *Scene) Add(n *Node) {
	s.root.Add(n)
}

// NodeCount returns the number of nodes in the graph, the root excluded.
func (s *Scene) NodeCount() int {
	return s.root.Count() - 1
}

func (s *Scene) SetEnvironment(env *envmap.Map) {
	s.environment = env
}

func (s *Scene) Environment() *envmap.Map {
	return s.environment
}

func (s *Scene) SetBackground(c mgl32.Vec3) {
	s.background = c
	s.hasBg = true
}

// Background returns the clear color and whether one was set.
func (s *Scene) Background() (mgl32.Vec3, bool) {
	return s.background, s.hasBg
}

// LightInstance is a light resolved to world space.
type LightInstance struct {
	Light    *Light
	Position mgl32.Vec3
}

// Direction is the direction the light travels, for directional lights.
func (li LightInstance) Direction() mgl32.Vec3 {
	if li.Position.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return li.Position.Mul(-1).Normalize()
}

func (s *Scene) Lights() []LightInstance {
	var lights []LightInstance
	s.root.Walk(func(n *Node, world mgl32.Mat4) bool {
		if n.Light != nil {
			lights = append(lights, LightInstance{
				Light:    n.Light,
				Position: world.Col(3).Vec3(),
			})
		}
		return true
	})
	return lights
}

// AmbientRadiance sums all ambient lights.
func (s *Scene) AmbientRadiance() mgl32.Vec3 {
	var sum mgl32.Vec3
	for _, li := range s.Lights() {
		if li.Light.Type == AmbientLight {
			sum = sum.Add(li.Light.Radiance())
		}
	}
	return sum
}
