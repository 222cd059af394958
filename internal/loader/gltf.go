package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"GopherView/internal/logger"
	"GopherView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// ErrNoScene is returned for glTF documents without any scene to instantiate.
var ErrNoScene = errors.New("gltf document has no scene")

// LoadGLTF reads a .gltf or .glb file and converts its default scene into a
// node tree. External buffers and images resolve relative to the file.
func LoadGLTF(path string) (*scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening gltf %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return FromDocument(doc, name, filepath.Dir(path))
}

type gltfConverter struct {
	doc       *gltf.Document
	name      string
	dir       string
	meshes    map[int]*scene.Mesh
	materials map[int]*scene.Material
	images    map[int]image.Image
}

// FromDocument converts the document's default scene (or its first scene)
// into a root node named name. dir resolves relative image URIs.
func FromDocument(doc *gltf.Document, name, dir string) (*scene.Node, error) {
	if len(doc.Scenes) == 0 {
		return nil, ErrNoScene
	}
	sceneIdx := 0
	if doc.Scene != nil {
		sceneIdx = *doc.Scene
	}
	if sceneIdx < 0 || sceneIdx >= len(doc.Scenes) {
		return nil, fmt.Errorf("default scene %d out of range: %w", sceneIdx, ErrNoScene)
	}

	conv := &gltfConverter{
		doc:       doc,
		name:      name,
		dir:       dir,
		meshes:    make(map[int]*scene.Mesh),
		materials: make(map[int]*scene.Material),
		images:    make(map[int]image.Image),
	}

	root := scene.NewNode(name)
	for _, nodeIdx := range doc.Scenes[sceneIdx].Nodes {
		child, err := conv.node(nodeIdx, 0)
		if err != nil {
			return nil, err
		}
		root.Add(child)
	}

	logger.Log.Info("glTF scene converted",
		zap.String("name", name),
		zap.Int("nodes", root.Count()),
		zap.Int("meshes", len(conv.meshes)),
		zap.Int("materials", len(conv.materials)))
	return root, nil
}

// maxNodeDepth guards against cyclic node references in malformed files.
const maxNodeDepth = 256

func (c *gltfConverter) node(idx, depth int) (*scene.Node, error) {
	if idx < 0 || idx >= len(c.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if depth > maxNodeDepth {
		return nil, fmt.Errorf("node %d: hierarchy deeper than %d", idx, maxNodeDepth)
	}
	src := c.doc.Nodes[idx]

	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}
	n := scene.NewNode(name)
	applyTransform(n, src)

	if src.Mesh != nil {
		mesh, err := c.mesh(*src.Mesh)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		n.Mesh = mesh
	}

	for _, childIdx := range src.Children {
		child, err := c.node(childIdx, depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// applyTransform copies the node transform. An explicit matrix wins over TRS;
// zero-valued rotation and scale fields count as identity.
func applyTransform(n *scene.Node, src *gltf.Node) {
	if src.Matrix != identityMatrix && src.Matrix != ([16]float64{}) {
		var m mgl32.Mat4
		for i, v := range src.Matrix {
			m[i] = float32(v)
		}
		n.SetLocalMatrix(m)
		return
	}

	n.Position = mgl32.Vec3{float32(src.Translation[0]), float32(src.Translation[1]), float32(src.Translation[2])}
	if src.Rotation != ([4]float64{}) {
		// glTF stores quaternions as x, y, z, w
		n.Rotation = mgl32.Quat{
			W: float32(src.Rotation[3]),
			V: mgl32.Vec3{float32(src.Rotation[0]), float32(src.Rotation[1]), float32(src.Rotation[2])},
		}.Normalize()
	}
	if src.Scale != ([3]float64{}) {
		n.Scale = mgl32.Vec3{float32(src.Scale[0]), float32(src.Scale[1]), float32(src.Scale[2])}
	}
}

func (c *gltfConverter) mesh(idx int) (*scene.Mesh, error) {
	if mesh, ok := c.meshes[idx]; ok {
		return mesh, nil
	}
	if idx < 0 || idx >= len(c.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", idx)
	}
	src := c.doc.Meshes[idx]
	mesh := &scene.Mesh{Name: src.Name}

	for i, p := range src.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			logger.Log.Warn("Skipping non-triangle primitive",
				zap.String("mesh", src.Name),
				zap.Int("primitive", i),
				zap.Int("mode", int(p.Mode)))
			continue
		}
		prim, err := c.primitive(p)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", src.Name, i, err)
		}
		mesh.Primitives = append(mesh.Primitives, prim)
	}

	c.meshes[idx] = mesh
	return mesh, nil
}

func (c *gltfConverter) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", idx)
	}
	return c.doc.Accessors[idx], nil
}

func (c *gltfConverter) primitive(p *gltf.Primitive) (*scene.Primitive, error) {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, errors.New("primitive has no POSITION attribute")
	}
	acc, err := c.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(c.doc, acc, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		acc, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		if normals, err = modeler.ReadNormal(c.doc, acc, nil); err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
	}

	var uvs [][2]float32
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		acc, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		if uvs, err = modeler.ReadTextureCoord(c.doc, acc, nil); err != nil {
			return nil, fmt.Errorf("reading texture coordinates: %w", err)
		}
	}

	var indices []uint32
	if p.Indices != nil {
		acc, err := c.accessor(*p.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(c.doc, acc, nil); err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(positions) {
				return nil, fmt.Errorf("index %d out of range for %d vertices", i, len(positions))
			}
		}
	}

	material := scene.DefaultMaterial()
	if p.Material != nil {
		if material, err = c.material(*p.Material); err != nil {
			return nil, err
		}
	}
	return scene.NewPrimitive(positions, normals, uvs, indices, material), nil
}

func (c *gltfConverter) material(idx int) (*scene.Material, error) {
	if mat, ok := c.materials[idx]; ok {
		return mat, nil
	}
	if idx < 0 || idx >= len(c.doc.Materials) {
		return nil, fmt.Errorf("material index %d out of range", idx)
	}
	src := c.doc.Materials[idx]

	mat := scene.DefaultMaterial()
	mat.Name = src.Name
	mat.DoubleSided = src.DoubleSided
	mat.Emissive = mgl32.Vec3{float32(src.EmissiveFactor[0]), float32(src.EmissiveFactor[1]), float32(src.EmissiveFactor[2])}

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			mat.BaseColor = mgl32.Vec4{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
		}
		// glTF defaults both factors to 1
		mat.Metallic = 1
		if pbr.MetallicFactor != nil {
			mat.Metallic = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			mat.Roughness = float32(*pbr.RoughnessFactor)
		}
		if info := pbr.BaseColorTexture; info != nil {
			img, key, err := c.texture(info.Index)
			if err != nil {
				// a missing texture should not sink the whole model
				logger.Log.Warn("Base color texture unavailable",
					zap.String("material", src.Name),
					zap.Error(err))
			} else {
				mat.BaseColorTexture = img
				mat.TextureKey = key
			}
		}
	}

	c.materials[idx] = mat
	return mat, nil
}

func (c *gltfConverter) texture(idx int) (image.Image, string, error) {
	if idx < 0 || idx >= len(c.doc.Textures) {
		return nil, "", fmt.Errorf("texture index %d out of range", idx)
	}
	tex := c.doc.Textures[idx]
	if tex.Source == nil {
		return nil, "", fmt.Errorf("texture %d has no image source", idx)
	}
	imgIdx := *tex.Source
	if img, ok := c.images[imgIdx]; ok {
		return img, c.imageKey(imgIdx), nil
	}
	if imgIdx < 0 || imgIdx >= len(c.doc.Images) {
		return nil, "", fmt.Errorf("image index %d out of range", imgIdx)
	}

	data, err := c.imageData(c.doc.Images[imgIdx])
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding image %d: %w", imgIdx, err)
	}
	c.images[imgIdx] = img
	return img, c.imageKey(imgIdx), nil
}

func (c *gltfConverter) imageKey(idx int) string {
	img := c.doc.Images[idx]
	if img.URI != "" && !img.IsEmbeddedResource() {
		return filepath.Join(c.dir, img.URI)
	}
	return fmt.Sprintf("%s#image%d", filepath.Join(c.dir, c.name), idx)
}

func (c *gltfConverter) imageData(img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		idx := *img.BufferView
		if idx < 0 || idx >= len(c.doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", idx)
		}
		bv := c.doc.BufferViews[idx]
		if bv.Buffer < 0 || bv.Buffer >= len(c.doc.Buffers) {
			return nil, fmt.Errorf("buffer %d out of range", bv.Buffer)
		}
		buf := c.doc.Buffers[bv.Buffer].Data
		end := bv.ByteOffset + bv.ByteLength
		if end > len(buf) {
			return nil, fmt.Errorf("buffer view %d exceeds buffer length", idx)
		}
		return buf[bv.ByteOffset:end], nil
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		return os.ReadFile(filepath.Join(c.dir, filepath.FromSlash(img.URI)))
	}
	return nil, errors.New("image has neither uri nor buffer view")
}
