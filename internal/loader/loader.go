package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"GopherView/internal/scene"
)

var ErrUnsupportedFormat = errors.New("unsupported model format")

// LoadModel picks a parser from the file extension: .gltf and .glb go through
// the glTF converter, .obj through the Wavefront parser.
func LoadModel(path string) (*scene.Node, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
		return LoadGLTF(path)
	case ".obj":
		return LoadOBJ(path)
	default:
		return nil, fmt.Errorf("%s: %w %q", path, ErrUnsupportedFormat, ext)
	}
}
