package scene

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the number of floats per interleaved vertex:
// position (3), texture coordinate (2), normal (3).
const VertexStride = 8

type Material struct {
	Name        string
	BaseColor   mgl32.Vec4
	Metallic    float32 // 0.0 = dielectric, 1.0 = metallic
	Roughness   float32 // 0.0 = mirror, 1.0 = completely rough
	Emissive    mgl32.Vec3
	DoubleSided bool

	BaseColorTexture image.Image
	TextureKey       string // cache key for the texture manager
}

func DefaultMaterial() *Material {
	return &Material{
		Name:      "default",
		BaseColor: mgl32.Vec4{1, 1, 1, 1},
		Metallic:  0,
		Roughness: 1,
	}
}

// Primitive is a triangle list with a single material.
type Primitive struct {
	InterleavedData []float32
	Indices         []uint32
	Material        *Material

	BoundsCenter mgl32.Vec3
	BoundsRadius float32
}

type Mesh struct {
	Name       string
	Primitives []*Primitive
}

// NewPrimitive interleaves the vertex streams. Missing texture coordinates
// default to zero, missing indices produce a plain triangle list and missing
// normals are recomputed from the triangles.
func NewPrimitive(positions, normals [][3]float32, uvs [][2]float32, indices []uint32, material *Material) *Primitive {
	if indices == nil {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(normals) != len(positions) {
		normals = computeNormals(positions, indices)
	}
	if material == nil {
		material = DefaultMaterial()
	}

	data := make([]float32, 0, len(positions)*VertexStride)
	for i, p := range positions {
		var uv [2]float32
		if i < len(uvs) {
			uv = uvs[i]
		}
		n := normals[i]
		data = append(data, p[0], p[1], p[2], uv[0], uv[1], n[0], n[1], n[2])
	}

	prim := &Primitive{
		InterleavedData: data,
		Indices:         indices,
		Material:        material,
	}
	prim.BoundsCenter, prim.BoundsRadius = boundingSphere(positions)
	return prim
}

func (p *Primitive) VertexCount() int {
	return len(p.InterleavedData) / VertexStride
}

func (p *Primitive) Position(i int) mgl32.Vec3 {
	o := i * VertexStride
	return mgl32.Vec3{p.InterleavedData[o], p.InterleavedData[o+1], p.InterleavedData[o+2]}
}

func (p *Primitive) Normal(i int) mgl32.Vec3 {
	o := i*VertexStride + 5
	return mgl32.Vec3{p.InterleavedData[o], p.InterleavedData[o+1], p.InterleavedData[o+2]}
}

// WorldBounds transforms the bounding sphere by world, scaling the radius by
// the largest axis scale.
func (p *Primitive) WorldBounds(world mgl32.Mat4) (mgl32.Vec3, float32) {
	center := world.Mul4x1(p.BoundsCenter.Vec4(1)).Vec3()
	sx := world.Col(0).Vec3().Len()
	sy := world.Col(1).Vec3().Len()
	sz := world.Col(2).Vec3().Len()
	return center, p.BoundsRadius * math32.Max(sx, math32.Max(sy, sz))
}

func computeNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	acc := make([]mgl32.Vec3, len(positions))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(positions) || int(b) >= len(positions) || int(c) >= len(positions) {
			continue
		}
		pa, pb, pc := mgl32.Vec3(positions[a]), mgl32.Vec3(positions[b]), mgl32.Vec3(positions[c])
		// area weighted: the cross product length is twice the triangle area
		face := pb.Sub(pa).Cross(pc.Sub(pa))
		acc[a] = acc[a].Add(face)
		acc[b] = acc[b].Add(face)
		acc[c] = acc[c].Add(face)
	}

	normals := make([][3]float32, len(positions))
	for i, n := range acc {
		if n.Len() == 0 {
			normals[i] = [3]float32{0, 1, 0}
			continue
		}
		normals[i] = n.Normalize()
	}
	return normals
}

func boundingSphere(positions [][3]float32) (mgl32.Vec3, float32) {
	if len(positions) == 0 {
		return mgl32.Vec3{}, 0
	}
	lo := mgl32.Vec3(positions[0])
	hi := lo
	for _, p := range positions[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math32.Min(lo[k], p[k])
			hi[k] = math32.Max(hi[k], p[k])
		}
	}
	center := lo.Add(hi).Mul(0.5)

	var radiusSq float32
	for _, p := range positions {
		if d := mgl32.Vec3(p).Sub(center).LenSqr(); d > radiusSq {
			radiusSq = d
		}
	}
	return center, math32.Sqrt(radiusSq)
}
