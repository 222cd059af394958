package envmap

import (
	"errors"
	"sync"

	"GopherView/internal/logger"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

var ErrGeneratorDisposed = errors.New("environment generator disposed")

// Map is a prefiltered environment: diffuse irradiance as SH coefficients
// and a reflection mip chain where level i is half the size of level i-1
// and progressively blurrier.
type Map struct {
	Irradiance SH9
	Levels     []*Image
}

// Diffuse returns the cosine-weighted environment light arriving from around
// the normal n.
func (m *Map) Diffuse(n mgl32.Vec3) mgl32.Vec3 {
	return m.Irradiance.Eval(n)
}

// Reflection samples the level matching roughness in [0,1].
func (m *Map) Reflection(dir mgl32.Vec3, roughness float32) mgl32.Vec3 {
	lod := int(mgl32.Clamp(roughness, 0, 1)*m.MaxLod() + 0.5)
	return m.Levels[lod].Sample(dir)
}

func (m *Map) MaxLod() float32 {
	return float32(len(m.Levels) - 1)
}

// Generator converts equirectangular images into Maps. It is single use in the
// viewer: Dispose is called once the environment has been produced.
type Generator struct {
	mu        sync.Mutex
	baseWidth int
	minHeight int
	disposed  bool
}

type GeneratorOption func(*Generator)

// WithBaseWidth sets the width of reflection level 0. It is rounded down to a
// power of two so the chain forms a complete mip pyramid.
func WithBaseWidth(width int) GeneratorOption {
	return func(g *Generator) {
		w := 1
		for w*2 <= width {
			w *= 2
		}
		g.baseWidth = w
	}
}

// WithMinLevelHeight stops the chain before levels shorter than h texels.
func WithMinLevelHeight(h int) GeneratorOption {
	return func(g *Generator) {
		g.minHeight = h
	}
}

func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		baseWidth: 256,
		minHeight: 4,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.baseWidth < 2 {
		g.baseWidth = 2
	}
	if g.minHeight < 1 {
		g.minHeight = 1
	}
	return g
}

func (g *Generator) FromEquirectangular(img *Image) (*Map, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disposed {
		return nil, ErrGeneratorDisposed
	}
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	env := &Map{Irradiance: ProjectSH(img).Convolve()}

	level := img.Resize(g.baseWidth, g.baseWidth/2)
	env.Levels = append(env.Levels, level)
	for level.Height/2 >= g.minHeight && level.Width >= 2 {
		level = level.Resize(level.Width/2, level.Height/2)
		env.Levels = append(env.Levels, level)
	}

	logger.Log.Debug("Environment map generated",
		zap.Int("sourceWidth", img.Width),
		zap.Int("sourceHeight", img.Height),
		zap.Int("levels", len(env.Levels)))
	return env, nil
}

func (g *Generator) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disposed = true
}

func (g *Generator) Disposed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disposed
}
