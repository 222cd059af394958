package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Node is an element of the scene graph. A node may carry a mesh, a light,
// both or neither (a pure transform group).
type Node struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Mesh     *Mesh
	Light    *Light

	matrix    mgl32.Mat4
	hasMatrix bool
	parent    *Node
	children  []*Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Add attaches child under n, detaching it from any previous parent. Adding
// n itself or one of its ancestors is ignored since it would form a cycle.
func (n *Node) Add(child *Node) {
	if child == nil || n.hasAncestor(child) {
		return
	}
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

// hasAncestor reports whether a is n or one of its parents.
func (n *Node) hasAncestor(a *Node) bool {
	for p := n; p != nil; p = p.parent {
		if p == a {
			return true
		}
	}
	return false
}

func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) Parent() *Node {
	return n.parent
}

// SetLocalMatrix overrides the TRS fields with an explicit transform.
func (n *Node) SetLocalMatrix(m mgl32.Mat4) {
	n.matrix = m
	n.hasMatrix = true
}

// LocalMatrix returns translation * rotation * scale, or the explicit matrix
// when one was set.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	if n.hasMatrix {
		return n.matrix
	}
	scale := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	rotation := n.Rotation.Mat4()
	translation := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	return translation.Mul4(rotation).Mul4(scale)
}

func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Count returns the number of nodes in the subtree rooted at n, n included.
func (n *Node) Count() int {
	count := 1
	for _, c := range n.children {
		count += c.Count()
	}
	return count
}

// Walk visits n and its descendants depth first, passing each node's world
// matrix. Returning false from fn skips that node's children.
func (n *Node) Walk(fn func(node *Node, world mgl32.Mat4) bool) {
	var parentWorld mgl32.Mat4
	if n.parent != nil {
		parentWorld = n.parent.WorldMatrix()
	} else {
		parentWorld = mgl32.Ident4()
	}
	n.walk(parentWorld, fn)
}

func (n *Node) walk(parentWorld mgl32.Mat4, fn func(*Node, mgl32.Mat4) bool) {
	world := parentWorld.Mul4(n.LocalMatrix())
	if !fn(n, world) {
		return
	}
	for _, c := range n.children {
		c.walk(world, fn)
	}
}

// Find returns the first node named name in the subtree, or nil.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}
