package loader

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"GopherView/internal/logger"
	"GopherView/internal/scene"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// LoadOBJ reads a Wavefront OBJ file, with its MTL library when present,
// into a single node holding one primitive per material group.
func LoadOBJ(path string) (*scene.Node, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseOBJ(file, name, filepath.Dir(path))
}

type faceVertex struct {
	VertexIdx   int32
	TexCoordIdx int32
	NormalIdx   int32
}

// objGroup collects the faces drawn with one material, in file order.
type objGroup struct {
	material string
	faces    []faceVertex
}

// ParseOBJ parses OBJ data. dir resolves mtllib and texture paths.
func ParseOBJ(r io.Reader, name, dir string) (*scene.Node, error) {
	var (
		vertices      [][3]float32
		textureCoords [][2]float32
		normals       [][3]float32
		groups        []*objGroup
		materials     = map[string]*scene.Material{}
	)
	current := &objGroup{material: "default"}
	groups = append(groups, current)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 || strings.HasPrefix(parts[0], "#") {
			continue
		}
		switch parts[0] {
		case "v":
			v, err := parseVec3(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: vertex: %w", lineNo, err)
			}
			vertices = append(vertices, v)
		case "vn":
			v, err := parseVec3(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: normal: %w", lineNo, err)
			}
			normals = append(normals, v)
		case "vt":
			uv, err := parseTextureCoordinate(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: texture coordinate: %w", lineNo, err)
			}
			textureCoords = append(textureCoords, uv)
		case "f":
			face, err := parseFace(parts[1:], len(vertices), len(textureCoords), len(normals))
			if err != nil {
				return nil, fmt.Errorf("line %d: face: %w", lineNo, err)
			}
			current.faces = append(current.faces, face...)
		case "mtllib":
			if len(parts) < 2 {
				continue
			}
			mtlPath := filepath.Join(dir, strings.Join(parts[1:], " "))
			loaded, err := LoadMaterials(mtlPath)
			if err != nil {
				logger.Log.Warn("Material library unavailable", zap.String("path", mtlPath), zap.Error(err))
				continue
			}
			for k, v := range loaded {
				materials[k] = v
			}
		case "usemtl":
			if len(parts) < 2 {
				continue
			}
			current = &objGroup{material: parts[1]}
			groups = append(groups, current)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	mesh := &scene.Mesh{Name: name}
	for _, g := range groups {
		if len(g.faces) == 0 {
			continue
		}
		mat, ok := materials[g.material]
		if !ok {
			if g.material != "default" {
				logger.Log.Debug("Material not found", zap.String("material", g.material))
			}
			mat = scene.DefaultMaterial()
		}
		mesh.Primitives = append(mesh.Primitives, unifyGroup(g, vertices, textureCoords, normals, mat))
	}

	node := scene.NewNode(name)
	node.Mesh = mesh
	logger.Log.Info("OBJ model parsed",
		zap.String("name", name),
		zap.Int("vertices", len(vertices)),
		zap.Int("primitives", len(mesh.Primitives)))
	return node, nil
}

// unifyGroup builds one vertex per distinct position/uv/normal triplet so the
// result can be drawn with a single index buffer.
func unifyGroup(g *objGroup, vertices [][3]float32, uvs [][2]float32, normals [][3]float32, mat *scene.Material) *scene.Primitive {
	vertexMap := make(map[faceVertex]uint32)
	var (
		outPos     [][3]float32
		outUV      [][2]float32
		outNormals [][3]float32
		indices    []uint32
	)
	hasNormals := true
	for _, fv := range g.faces {
		if idx, ok := vertexMap[fv]; ok {
			indices = append(indices, idx)
			continue
		}
		idx := uint32(len(outPos))
		vertexMap[fv] = idx
		indices = append(indices, idx)

		outPos = append(outPos, vertices[fv.VertexIdx])
		var uv [2]float32
		if fv.TexCoordIdx >= 0 {
			uv = uvs[fv.TexCoordIdx]
			// OBJ puts v=0 at the bottom of the image
			uv[1] = 1 - uv[1]
		}
		outUV = append(outUV, uv)
		if fv.NormalIdx >= 0 {
			outNormals = append(outNormals, normals[fv.NormalIdx])
		} else {
			hasNormals = false
			outNormals = append(outNormals, [3]float32{})
		}
	}
	if !hasNormals {
		// recomputed from faces by NewPrimitive
		outNormals = nil
	}
	return scene.NewPrimitive(outPos, outNormals, outUV, indices, mat)
}

// LoadMaterials loads material properties from a .mtl file.
func LoadMaterials(filename string) (map[string]*scene.Material, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var currentMaterial *scene.Material
	materials := make(map[string]*scene.Material)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] != "newmtl" && currentMaterial == nil {
			continue
		}

		switch fields[0] {
		case "newmtl":
			if len(fields) < 2 {
				logger.Log.Warn("Malformed material line", zap.String("line", line))
				continue
			}
			currentMaterial = scene.DefaultMaterial()
			currentMaterial.Name = fields[1]
			currentMaterial.Roughness = 0.5
			materials[fields[1]] = currentMaterial
		case "Kd": // Diffuse color
			if len(fields) == 4 {
				c := parseColor(fields[1:])
				currentMaterial.BaseColor = mgl32.Vec4{c[0], c[1], c[2], currentMaterial.BaseColor[3]}
			}
		case "Ke": // Emissive color
			if len(fields) == 4 {
				currentMaterial.Emissive = parseColor(fields[1:])
			}
		case "Ns": // Shininess
			if len(fields) == 2 {
				currentMaterial.Roughness = shininessToRoughness(parseFloat(fields[1]))
			}
		case "d": // Dissolve (alpha/opacity)
			if len(fields) == 2 {
				currentMaterial.BaseColor[3] = parseFloat(fields[1])
			}
		case "map_Kd": // Diffuse texture map
			if len(fields) < 2 {
				continue
			}
			// options may precede the path
			texturePath := fields[len(fields)-1]
			if !filepath.IsAbs(texturePath) {
				texturePath = filepath.Join(filepath.Dir(filename), texturePath)
			}
			img, err := decodeImageFile(texturePath)
			if err != nil {
				logger.Log.Warn("Diffuse texture unavailable",
					zap.String("material", currentMaterial.Name),
					zap.String("path", texturePath),
					zap.Error(err))
				continue
			}
			currentMaterial.BaseColorTexture = img
			currentMaterial.TextureKey = texturePath
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return materials, nil
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// shininessToRoughness maps a Blinn-Phong exponent onto perceptual roughness.
func shininessToRoughness(ns float32) float32 {
	if ns < 0 {
		ns = 0
	}
	return mgl32.Clamp(math32.Sqrt(2/(ns+2)), 0, 1)
}

// parseColor parses RGB color components from a list of strings.
func parseColor(fields []string) mgl32.Vec3 {
	var color mgl32.Vec3
	for i, field := range fields {
		if i > 2 {
			break
		}
		color[i] = parseFloat(field)
	}
	return color
}

func parseFloat(s string) float32 {
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		logger.Log.Warn("Error parsing material value", zap.String("value", s), zap.Error(err))
		return 0
	}
	return float32(f)
}

func parseVec3(parts []string) ([3]float32, error) {
	var v [3]float32
	if len(parts) < 3 {
		return v, fmt.Errorf("expected 3 components, got %d", len(parts))
	}
	for i := 0; i < 3; i++ {
		val, err := strconv.ParseFloat(parts[i], 32)
		if err != nil {
			return v, fmt.Errorf("invalid value %q: %w", parts[i], err)
		}
		v[i] = float32(val)
	}
	return v, nil
}

// for 2D textures
func parseTextureCoordinate(parts []string) ([2]float32, error) {
	var uv [2]float32
	if len(parts) < 1 {
		return uv, fmt.Errorf("expected at least 1 component")
	}
	for i := 0; i < len(parts) && i < 2; i++ {
		val, err := strconv.ParseFloat(parts[i], 32)
		if err != nil {
			return uv, fmt.Errorf("invalid value %q: %w", parts[i], err)
		}
		uv[i] = float32(val)
	}
	return uv, nil
}

// resolveIndex converts a 1-based (or negative, relative) OBJ index into a
// 0-based one checked against count.
func resolveIndex(s string, count int) (int32, error) {
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q: %w", s, err)
	}
	if i < 0 {
		i += int64(count)
	} else {
		i--
	}
	if i < 0 || i >= int64(count) {
		return 0, fmt.Errorf("index %s out of range (%d elements)", s, count)
	}
	return int32(i), nil
}

// parseFace parses one face and fan-triangulates polygons.
func parseFace(parts []string, vertexCount, uvCount, normalCount int) ([]faceVertex, error) {
	if len(parts) < 3 {
		return nil, fmt.Errorf("face needs at least 3 vertices, got %d", len(parts))
	}
	face := make([]faceVertex, 0, len(parts))
	for _, part := range parts {
		vals := strings.Split(part, "/")

		fv := faceVertex{TexCoordIdx: -1, NormalIdx: -1}
		var err error
		if fv.VertexIdx, err = resolveIndex(vals[0], vertexCount); err != nil {
			return nil, err
		}
		if len(vals) > 1 && vals[1] != "" {
			if fv.TexCoordIdx, err = resolveIndex(vals[1], uvCount); err != nil {
				return nil, err
			}
		}
		if len(vals) > 2 && vals[2] != "" {
			if fv.NormalIdx, err = resolveIndex(vals[2], normalCount); err != nil {
				return nil, err
			}
		}
		face = append(face, fv)
	}

	if len(face) == 3 {
		return face, nil
	}
	triangulated := make([]faceVertex, 0, (len(face)-2)*3)
	for i := 1; i < len(face)-1; i++ {
		triangulated = append(triangulated, face[0], face[i], face[i+1])
	}
	return triangulated, nil
}
