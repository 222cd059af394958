package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"GopherView/internal/config"
	"GopherView/internal/controls"
	"GopherView/internal/envmap"
	"GopherView/internal/loader"
	"GopherView/internal/logger"
	"GopherView/internal/renderer"
	"GopherView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrAssetsRequested is returned when LoadAssets is called more than once.
var ErrAssetsRequested = errors.New("assets already requested")

type Option func(*Viewer)

// OnLoadError registers a hook called on the loop goroutine for every failed
// asset load.
func OnLoadError(fn func(error)) Option {
	return func(v *Viewer) {
		v.onLoadError = fn
	}
}

// WithStrictAssets makes Close report load failures.
func WithStrictAssets() Option {
	return func(v *Viewer) {
		v.strict = true
	}
}

// WithLoader replaces the default loader. The viewer still closes it.
func WithLoader(l *loader.Loader) Option {
	return func(v *Viewer) {
		v.loader = l
	}
}

// WithGenerator replaces the default environment map generator.
func WithGenerator(g *envmap.Generator) Option {
	return func(v *Viewer) {
		v.generator = g
	}
}

// Viewer owns everything the render loop touches. All methods except State
// must be called from the goroutine that runs the loop.
type Viewer struct {
	cfg       config.Config
	camera    *renderer.Camera
	scene     *scene.Scene
	renderer  renderer.Render
	controls  *controls.OrbitControls
	surface   Surface
	loader    *loader.Loader
	generator *envmap.Generator

	onLoadError func(error)
	strict      bool

	requested   bool
	modelResult <-chan loader.Result[*scene.Node]
	envResult   <-chan loader.Result[*envmap.Map]
	loadErrors  []error

	state  *atomic.Int32
	frames *atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// New initializes the renderer on surface and builds the camera, lights and
// orbit controls described by cfg. Asset loading starts with LoadAssets.
func New(cfg config.Config, surface Surface, rend renderer.Render, opts ...Option) (*Viewer, error) {
	v := &Viewer{
		cfg:      cfg,
		surface:  surface,
		renderer: rend,
		scene:    scene.New(),
		state:    atomic.NewInt32(int32(Idle)),
		frames:   atomic.NewUint64(0),
	}
	for _, opt := range opts {
		opt(v)
	}

	width, height := surface.Size()
	if err := rend.Init(int32(width), int32(height), surface.PixelRatio()); err != nil {
		return nil, fmt.Errorf("initializing renderer: %w", err)
	}
	rend.SetToneMapping(renderer.ACESFilmicToneMapping, cfg.ToneMappingExposure)

	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	v.camera = renderer.NewPerspectiveCamera(cfg.Fov, aspect, cfg.ClipNear, cfg.ClipFar)
	v.camera.Position = mgl32.Vec3(cfg.InitialCameraPosition)

	v.controls = controls.NewOrbitControls(v.camera, controlOptions(cfg)...)
	v.controls.SetViewportSize(float32(width), float32(height))
	v.controls.Update()

	v.scene.Add(scene.NewAmbientLight(mgl32.Vec3(cfg.AmbientLight.Color), cfg.AmbientLight.Intensity))
	v.scene.Add(scene.NewDirectionalLight(
		mgl32.Vec3(cfg.DirectionalLight.Color),
		cfg.DirectionalLight.Intensity,
		mgl32.Vec3(cfg.DirectionalLight.Position)))

	if v.generator == nil {
		v.generator = envmap.NewGenerator()
	}
	if v.loader == nil {
		v.loader = loader.NewLoader()
	}

	surface.OnResize(v.Resize)
	if binder, ok := surface.(ControlsBinder); ok {
		binder.BindControls(v.controls)
	}

	logger.Log.Info("Viewer initialized",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Float32("pixelRatio", surface.PixelRatio()),
		zap.Float32("fov", cfg.Fov))
	return v, nil
}

func controlOptions(cfg config.Config) []controls.OrbitOption {
	opts := []controls.OrbitOption{
		controls.WithTarget(mgl32.Vec3(cfg.CameraTarget)),
		controls.WithRotateSpeed(cfg.Controls.RotateSpeed),
		controls.WithZoomSpeed(cfg.Controls.ZoomSpeed),
		controls.WithPanSpeed(cfg.Controls.PanSpeed),
	}
	if cfg.Controls.EnableDamping {
		opts = append(opts, controls.WithDamping(cfg.Controls.DampingFactor))
	}
	return opts
}

// LoadAssets starts the environment and model loads. Both run in the
// background; their results are applied by Frame in whatever order they
// complete.
func (v *Viewer) LoadAssets(ctx context.Context) error {
	if v.requested {
		return ErrAssetsRequested
	}
	v.requested = true

	logger.Log.Info("Loading assets",
		zap.String("environment", v.cfg.EnvironmentAssetPath),
		zap.String("model", v.cfg.ModelAssetPath))
	v.envResult = v.loader.LoadEnvironment(ctx, v.cfg.EnvironmentAssetPath, v.generator)
	v.modelResult = v.loader.LoadModel(ctx, v.cfg.ModelAssetPath)
	return nil
}

// Frame runs one iteration of the loop body: controls update, completed
// loads applied, scene drawn.
func (v *Viewer) Frame() {
	v.controls.Update()
	v.applyLoads()
	v.renderer.Render(v.scene, v.camera)
	v.frames.Inc()
}

func (v *Viewer) applyLoads() {
	select {
	case res := <-v.envResult:
		v.envResult = nil
		v.applyEnvironment(res)
	default:
	}
	select {
	case res := <-v.modelResult:
		v.modelResult = nil
		v.applyModel(res)
	default:
	}
}

func (v *Viewer) applyEnvironment(res loader.Result[*envmap.Map]) {
	if res.Err != nil {
		v.recordLoadError(res.Err)
		return
	}
	v.scene.SetEnvironment(res.Value)
	v.scene.SetBackground(mgl32.Vec3(v.cfg.Background))
	logger.Log.Info("Environment installed",
		zap.String("path", res.Path),
		zap.Int("levels", len(res.Value.Levels)))
}

func (v *Viewer) applyModel(res loader.Result[*scene.Node]) {
	if res.Err != nil {
		v.recordLoadError(res.Err)
		return
	}
	v.scene.Add(res.Value)
	logger.Log.Info("Model added",
		zap.String("path", res.Path),
		zap.Int("nodes", res.Value.Count()),
		zap.Int("sceneNodes", v.scene.NodeCount()))
}

func (v *Viewer) recordLoadError(err error) {
	v.loadErrors = append(v.loadErrors, err)
	logger.Log.Error("Asset unavailable", zap.Error(err))
	if v.onLoadError != nil {
		v.onLoadError(err)
	}
}

// Pending returns how many requested loads have not been applied yet.
func (v *Viewer) Pending() int {
	n := 0
	if v.envResult != nil {
		n++
	}
	if v.modelResult != nil {
		n++
	}
	return n
}

func (v *Viewer) LoadErrors() []error {
	return append([]error(nil), v.loadErrors...)
}

func (v *Viewer) Camera() *renderer.Camera {
	return v.camera
}

func (v *Viewer) Scene() *scene.Scene {
	return v.scene
}

func (v *Viewer) Controls() *controls.OrbitControls {
	return v.controls
}

func (v *Viewer) Frames() uint64 {
	return v.frames.Load()
}

// Close waits for in-flight loads and releases renderer resources. Results
// that arrived but were never applied still count as load errors when they
// failed. With WithStrictAssets the combined load errors are returned.
func (v *Viewer) Close() error {
	v.closeOnce.Do(func() {
		v.loader.Close()
		v.drainFailures()
		v.renderer.Cleanup()
		v.state.Store(int32(Stopped))

		if v.strict {
			v.closeErr = multierr.Combine(v.loadErrors...)
		}
		logger.Log.Info("Viewer closed",
			zap.Uint64("frames", v.frames.Load()),
			zap.Int("loadErrors", len(v.loadErrors)))
	})
	return v.closeErr
}

func (v *Viewer) drainFailures() {
	select {
	case res := <-v.envResult:
		if res.Err != nil {
			v.recordLoadError(res.Err)
		}
	default:
	}
	select {
	case res := <-v.modelResult:
		if res.Err != nil {
			v.recordLoadError(res.Err)
		}
	default:
	}
	v.envResult, v.modelResult = nil, nil
}
