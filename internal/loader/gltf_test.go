package loader

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// triangleDocument builds a document with a parent node carrying a
// translation and a child node holding an unindexed triangle without normals.
func triangleDocument() *gltf.Document {
	doc := gltf.NewDocument()
	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, -1}})
	doc.Meshes = []*gltf.Mesh{{
		Name: "Triangle",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]int{gltf.POSITION: positions},
		}},
	}}
	doc.Nodes = []*gltf.Node{
		{Name: "Parent", Children: []int{1}, Translation: [3]float64{1, 2, 3}},
		{Name: "Child", Mesh: gltf.Index(0), Scale: [3]float64{2, 2, 2}},
	}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

func TestFromDocumentHierarchy(t *testing.T) {
	root, err := FromDocument(triangleDocument(), "model", "")
	require.NoError(t, err)

	assert.Equal(t, "model", root.Name)
	assert.Equal(t, 3, root.Count())

	parent := root.Find("Parent")
	require.NotNil(t, parent)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, parent.Position)
	assert.Equal(t, mgl32.QuatIdent(), parent.Rotation, "zero rotation should be identity")
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, parent.Scale, "zero scale should be unit")

	child := root.Find("Child")
	require.NotNil(t, child)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, child.Scale)
	require.NotNil(t, child.Mesh)
	require.Len(t, child.Mesh.Primitives, 1)

	prim := child.Mesh.Primitives[0]
	assert.Equal(t, []uint32{0, 1, 2}, prim.Indices, "indices should be generated")
	for i := 0; i < prim.VertexCount(); i++ {
		assert.True(t, prim.Normal(i).ApproxEqual(mgl32.Vec3{0, 1, 0}), "normal %d: %v", i, prim.Normal(i))
	}
	assert.Equal(t, "default", prim.Material.Name)

	world := child.WorldMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assert.True(t, world.ApproxEqual(mgl32.Vec3{3, 2, 3}), "world position %v", world)
}

func TestFromDocumentIndicesAndNormals(t *testing.T) {
	doc := gltf.NewDocument()
	positions := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	normals := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	indices := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})
	doc.Meshes = []*gltf.Mesh{{
		Name: "Quad",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(indices),
			Attributes: map[string]int{gltf.POSITION: positions, gltf.NORMAL: normals},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "Quad", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	root, err := FromDocument(doc, "quad", "")
	require.NoError(t, err)

	prim := root.Find("Quad").Mesh.Primitives[0]
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, prim.Indices)
	assert.Equal(t, 4, prim.VertexCount())
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, prim.Normal(2))
}

func TestFromDocumentMaterial(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(filepath.Join(dir, "base.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	doc := triangleDocument()
	doc.Images = []*gltf.Image{{URI: "base.png"}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}
	doc.Materials = []*gltf.Material{{
		Name:           "Red",
		DoubleSided:    true,
		EmissiveFactor: [3]float64{0.5, 0, 0},
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &[4]float64{1, 0, 0, 1},
			MetallicFactor:   gltf.Float(0.25),
			RoughnessFactor:  gltf.Float(0.5),
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	}}
	doc.Meshes[0].Primitives[0].Material = gltf.Index(0)

	root, err := FromDocument(doc, "model", dir)
	require.NoError(t, err)

	mat := root.Find("Child").Mesh.Primitives[0].Material
	assert.Equal(t, "Red", mat.Name)
	assert.True(t, mat.DoubleSided)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, mat.BaseColor)
	assert.Equal(t, float32(0.25), mat.Metallic)
	assert.Equal(t, float32(0.5), mat.Roughness)
	assert.Equal(t, mgl32.Vec3{0.5, 0, 0}, mat.Emissive)
	require.NotNil(t, mat.BaseColorTexture)
	assert.Equal(t, 2, mat.BaseColorTexture.Bounds().Dx())
	assert.Equal(t, filepath.Join(dir, "base.png"), mat.TextureKey)
}

func TestFromDocumentMissingTextureKeepsModel(t *testing.T) {
	doc := triangleDocument()
	doc.Images = []*gltf.Image{{URI: "missing.png"}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}
	doc.Materials = []*gltf.Material{{
		Name: "Textured",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	}}
	doc.Meshes[0].Primitives[0].Material = gltf.Index(0)

	root, err := FromDocument(doc, "model", t.TempDir())
	require.NoError(t, err)
	mat := root.Find("Child").Mesh.Primitives[0].Material
	assert.Nil(t, mat.BaseColorTexture)
	assert.Equal(t, float32(1), mat.Metallic, "glTF metallic factor defaults to 1")
}

func TestFromDocumentExplicitMatrix(t *testing.T) {
	doc := triangleDocument()
	doc.Nodes[0].Translation = [3]float64{}
	doc.Nodes[0].Matrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 6, 7, 1}

	root, err := FromDocument(doc, "model", "")
	require.NoError(t, err)
	got := root.Find("Parent").LocalMatrix().Col(3).Vec3()
	assert.Equal(t, mgl32.Vec3{5, 6, 7}, got)
}

func TestFromDocumentErrors(t *testing.T) {
	_, err := FromDocument(&gltf.Document{}, "empty", "")
	assert.ErrorIs(t, err, ErrNoScene)

	doc := triangleDocument()
	doc.Scene = gltf.Index(3)
	_, err = FromDocument(doc, "bad scene", "")
	assert.ErrorIs(t, err, ErrNoScene)

	doc = triangleDocument()
	doc.Nodes[0].Children = []int{7}
	_, err = FromDocument(doc, "bad child", "")
	assert.Error(t, err)

	doc = triangleDocument()
	doc.Meshes[0].Primitives[0].Attributes = map[string]int{}
	_, err = FromDocument(doc, "no positions", "")
	assert.Error(t, err)
}

func TestFromDocumentSkipsNonTriangles(t *testing.T) {
	doc := triangleDocument()
	doc.Meshes[0].Primitives[0].Mode = gltf.PrimitiveLines

	root, err := FromDocument(doc, "lines", "")
	require.NoError(t, err)
	assert.Empty(t, root.Find("Child").Mesh.Primitives)
}

func TestLoadGLTFBinaryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triangle.glb")
	require.NoError(t, gltf.SaveBinary(triangleDocument(), path))

	root, err := LoadGLTF(path)
	require.NoError(t, err)
	assert.Equal(t, "triangle", root.Name)
	assert.Equal(t, 3, root.Count())

	parent := root.Find("Parent")
	require.NotNil(t, parent)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, parent.Position)
	assert.Len(t, root.Find("Child").Mesh.Primitives[0].Indices, 3)

	viaDispatch, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, root.Count(), viaDispatch.Count())
}

func TestLoadModelErrors(t *testing.T) {
	_, err := LoadModel("scene.fbx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadModel(filepath.Join(t.TempDir(), "missing.glb"))
	assert.Error(t, err)
}

func embeddedTextureDocument(t *testing.T) *gltf.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))))

	doc := triangleDocument()
	imgIdx, err := modeler.WriteImage(doc, "base", "image/png", &buf)
	require.NoError(t, err)
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(imgIdx)}}
	doc.Materials = []*gltf.Material{{
		Name: "Embedded",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	}}
	doc.Meshes[0].Primitives[0].Material = gltf.Index(0)
	return doc
}

func TestEmbeddedTextureKeysAreModelScoped(t *testing.T) {
	dir := t.TempDir()
	helmet, err := FromDocument(embeddedTextureDocument(t), "helmet", dir)
	require.NoError(t, err)
	chair, err := FromDocument(embeddedTextureDocument(t), "chair", dir)
	require.NoError(t, err)

	helmetMat := helmet.Find("Child").Mesh.Primitives[0].Material
	chairMat := chair.Find("Child").Mesh.Primitives[0].Material
	require.NotNil(t, helmetMat.BaseColorTexture)
	require.NotNil(t, chairMat.BaseColorTexture)
	assert.Equal(t, filepath.Join(dir, "helmet")+"#image0", helmetMat.TextureKey)
	assert.NotEqual(t, helmetMat.TextureKey, chairMat.TextureKey)
}
