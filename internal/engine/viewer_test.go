package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"GopherView/internal/config"
	"GopherView/internal/controls"
	"GopherView/internal/envmap"
	"GopherView/internal/loader"
	"GopherView/internal/renderer"
	"GopherView/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type fakeSurface struct {
	width, height int
	ratio         float32
	callbacks     []func(int, int)
	bound         *controls.OrbitControls

	closeAfter int
	polls      int
	swaps      int
}

func (s *fakeSurface) Size() (int, int) { return s.width, s.height }
func (s *fakeSurface) PixelRatio() float32 { return s.ratio }
func (s *fakeSurface) OnResize(fn func(int, int)) { s.callbacks = append(s.callbacks, fn) }
func (s *fakeSurface) ShouldClose() bool { return s.closeAfter > 0 && s.polls >= s.closeAfter }
func (s *fakeSurface) SwapBuffers() { s.swaps++ }
func (s *fakeSurface) PollEvents() { s.polls++ }
func (s *fakeSurface) BindControls(oc *controls.OrbitControls) { s.bound = oc }

func (s *fakeSurface) resize(width, height int, ratio float32) {
	s.width, s.height, s.ratio = width, height, ratio
	for _, fn := range s.callbacks {
		fn(width, height)
	}
}

type fakeRenderer struct {
	renderer.Viewport
	initErr     error
	inited      bool
	cleaned     bool
	toneMapping renderer.ToneMapping
	exposure    float32
	renders     int
	lastScene   *scene.Scene
	lastCamera  *renderer.Camera
}

func (r *fakeRenderer) Init(width, height int32, ratio float32) error {
	if r.initErr != nil {
		return r.initErr
	}
	r.inited = true
	r.SetPixelRatio(ratio)
	r.SetSize(width, height)
	return nil
}

func (r *fakeRenderer) SetToneMapping(mapping renderer.ToneMapping, exposure float32) {
	r.toneMapping, r.exposure = mapping, exposure
}

func (r *fakeRenderer) Render(s *scene.Scene, camera *renderer.Camera) {
	r.renders++
	r.lastScene, r.lastCamera = s, camera
}

func (r *fakeRenderer) Cleanup() { r.cleaned = true }

// countingScheduler allows a fixed number of ticks, then returns err.
type countingScheduler struct {
	viewer *Viewer
	ticks  int
	limit  int
	err    error
	states []LoopState
}

func (s *countingScheduler) Wait(context.Context) error {
	s.states = append(s.states, s.viewer.State())
	if s.ticks >= s.limit {
		return s.err
	}
	s.ticks++
	return nil
}

func flatImage() *envmap.Image {
	img := envmap.NewImage(64, 32)
	img.Fill(mgl32.Vec3{0.2, 0.3, 0.4})
	return img
}

func modelNode() *scene.Node {
	root := scene.NewNode("model")
	root.Add(scene.NewNode("child"))
	return root
}

func newTestViewer(t *testing.T, surface *fakeSurface, rend *fakeRenderer, opts ...Option) *Viewer {
	t.Helper()
	v, err := New(config.Default(), surface, rend, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v
}

func testLoader(model loader.ModelDecoder, env loader.EnvironmentDecoder) Option {
	return WithLoader(loader.NewLoader(
		loader.WithModelDecoder(model),
		loader.WithEnvironmentDecoder(env)))
}

func smallGenerator() Option {
	return WithGenerator(envmap.NewGenerator(envmap.WithBaseWidth(64)))
}

// frameUntil runs frames until cond holds or the deadline passes.
func frameUntil(t *testing.T, v *Viewer, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		v.Frame()
		time.Sleep(time.Millisecond)
	}
}

func TestNewInitializesViewer(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600, ratio: 2}
	rend := &fakeRenderer{}
	v := newTestViewer(t, surface, rend)

	assert.True(t, rend.inited)
	assert.Equal(t, renderer.ACESFilmicToneMapping, rend.toneMapping)
	assert.Equal(t, float32(1.25), rend.exposure)
	w, h := rend.DrawingBufferSize()
	assert.Equal(t, int32(1600), w)
	assert.Equal(t, int32(1200), h)

	cam := v.Camera()
	assert.InDelta(t, 800.0/600.0, cam.AspectRatio, 1e-6)
	assert.Equal(t, float32(45), cam.Fov)
	assert.Equal(t, float32(0.25), cam.Near)
	assert.Equal(t, float32(100000), cam.Far)
	assert.True(t, cam.Position.ApproxEqualThreshold(mgl32.Vec3{5000, 0.9, 2.7}, 1e-2), "camera position %v", cam.Position)

	assert.Same(t, v.Controls(), surface.bound)
	assert.Equal(t, mgl32.Vec3{}, v.Controls().Target())
	assert.Len(t, v.Scene().Lights(), 2)
	assert.Equal(t, Idle, v.State())
	assert.Equal(t, 1, len(surface.callbacks))
}

func TestNewRendererInitError(t *testing.T) {
	boom := errors.New("no GL context")
	_, err := New(config.Default(), &fakeSurface{width: 1, height: 1, ratio: 1}, &fakeRenderer{initErr: boom})
	assert.ErrorIs(t, err, boom)
}

func TestResize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		ratio         float32
		bufW, bufH    int32
	}{
		{"landscape", 1920, 1080, 1, 1920, 1080},
		{"portrait hidpi", 600, 900, 2, 1200, 1800},
		{"fractional ratio", 1001, 501, 1.5, 1501, 751},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := &fakeSurface{width: 800, height: 600, ratio: 1}
			rend := &fakeRenderer{}
			v := newTestViewer(t, surface, rend)

			surface.resize(tt.width, tt.height, tt.ratio)

			assert.InDelta(t, float64(tt.width)/float64(tt.height), v.Camera().AspectRatio, 1e-6)
			w, h := rend.DrawingBufferSize()
			assert.Equal(t, tt.bufW, w)
			assert.Equal(t, tt.bufH, h)
		})
	}
}

func TestResizeRecomputesProjection(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600, ratio: 1}
	v := newTestViewer(t, surface, &fakeRenderer{})

	version := v.Camera().ProjectionVersion()
	before := v.Camera().GetProjectionMatrix()
	surface.resize(1920, 1080, 1)

	assert.Greater(t, v.Camera().ProjectionVersion(), version)
	assert.NotEqual(t, before, v.Camera().GetProjectionMatrix())
	assert.InDelta(t, 16.0/9.0, v.Camera().AspectRatio, 1e-6)
}

func TestResizeIgnoresZeroSize(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600, ratio: 1}
	rend := &fakeRenderer{}
	v := newTestViewer(t, surface, rend)

	version := v.Camera().ProjectionVersion()
	surface.resize(0, 0, 1)

	assert.Equal(t, version, v.Camera().ProjectionVersion())
	assert.Equal(t, int32(800), rend.Width)
	assert.InDelta(t, 800.0/600.0, v.Camera().AspectRatio, 1e-6)
}

func TestFrameRendersSceneWithCamera(t *testing.T) {
	rend := &fakeRenderer{}
	v := newTestViewer(t, &fakeSurface{width: 800, height: 600, ratio: 1}, rend)

	v.Frame()
	v.Frame()
	assert.Equal(t, 2, rend.renders)
	assert.Same(t, v.Scene(), rend.lastScene)
	assert.Same(t, v.Camera(), rend.lastCamera)
	assert.Equal(t, uint64(2), v.Frames())
}

func TestLoadAssetsInstallsModelAndEnvironment(t *testing.T) {
	var modelPath, envPath string
	v := newTestViewer(t, &fakeSurface{width: 800, height: 600, ratio: 1}, &fakeRenderer{},
		smallGenerator(),
		testLoader(
			func(path string) (*scene.Node, error) {
				modelPath = path
				return modelNode(), nil
			},
			func(path string) (*envmap.Image, error) {
				envPath = path
				return flatImage(), nil
			}))

	before := v.Scene().NodeCount()
	rootsBefore := len(v.Scene().Root().Children())
	require.NoError(t, v.LoadAssets(context.Background()))
	assert.Equal(t, 2, v.Pending())

	frameUntil(t, v, func() bool { return v.Pending() == 0 })

	assert.Equal(t, "2.glb", modelPath)
	assert.Equal(t, "3.hdr", envPath)
	assert.Equal(t, rootsBefore+1, len(v.Scene().Root().Children()))
	assert.Equal(t, before+2, v.Scene().NodeCount())
	require.NotNil(t, v.Scene().Environment())
	bg, ok := v.Scene().Background()
	assert.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, bg)
	assert.Empty(t, v.LoadErrors())
}

func TestLoadCompletionOrderIndependent(t *testing.T) {
	for _, envFirst := range []bool{true, false} {
		name := "model first"
		if envFirst {
			name = "environment first"
		}
		t.Run(name, func(t *testing.T) {
			releaseModel := make(chan struct{})
			releaseEnv := make(chan struct{})
			v := newTestViewer(t, &fakeSurface{width: 800, height: 600, ratio: 1}, &fakeRenderer{},
				smallGenerator(),
				testLoader(
					func(string) (*scene.Node, error) {
						<-releaseModel
						return modelNode(), nil
					},
					func(string) (*envmap.Image, error) {
						<-releaseEnv
						return flatImage(), nil
					}))
			before := v.Scene().NodeCount()
			require.NoError(t, v.LoadAssets(context.Background()))

			first, second := releaseModel, releaseEnv
			if envFirst {
				first, second = releaseEnv, releaseModel
			}
			close(first)
			frameUntil(t, v, func() bool { return v.Pending() == 1 })
			if envFirst {
				assert.NotNil(t, v.Scene().Environment())
				assert.Equal(t, before, v.Scene().NodeCount())
			} else {
				assert.Nil(t, v.Scene().Environment())
				assert.Equal(t, before+2, v.Scene().NodeCount())
			}

			close(second)
			frameUntil(t, v, func() bool { return v.Pending() == 0 })
			assert.NotNil(t, v.Scene().Environment())
			assert.Equal(t, before+2, v.Scene().NodeCount())
			_, ok := v.Scene().Background()
			assert.True(t, ok)
		})
	}
}

func TestLoadAssetsOnlyOnce(t *testing.T) {
	v := newTestViewer(t, &fakeSurface{width: 800, height: 600, ratio: 1}, &fakeRenderer{},
		smallGenerator(),
		testLoader(
			func(string) (*scene.Node, error) { return modelNode(), nil },
			func(string) (*envmap.Image, error) { return flatImage(), nil }))

	require.NoError(t, v.LoadAssets(context.Background()))
	assert.ErrorIs(t, v.LoadAssets(context.Background()), ErrAssetsRequested)
}

func TestLoadFailureKeepsRendering(t *testing.T) {
	modelErr := errors.New("corrupt model")
	var hooked []error
	rend := &fakeRenderer{}
	v := newTestViewer(t, &fakeSurface{width: 800, height: 600, ratio: 1}, rend,
		smallGenerator(),
		OnLoadError(func(err error) { hooked = append(hooked, err) }),
		testLoader(
			func(string) (*scene.Node, error) { return nil, modelErr },
			func(string) (*envmap.Image, error) { return flatImage(), nil }))

	before := v.Scene().NodeCount()
	require.NoError(t, v.LoadAssets(context.Background()))
	frameUntil(t, v, func() bool { return v.Pending() == 0 })

	require.Len(t, hooked, 1)
	assert.ErrorIs(t, hooked[0], modelErr)
	assert.Len(t, v.LoadErrors(), 1)
	assert.Equal(t, before, v.Scene().NodeCount())
	assert.NotNil(t, v.Scene().Environment())

	renders := rend.renders
	v.Frame()
	assert.Equal(t, renders+1, rend.renders)
}

func TestCloseStrictReportsLoadErrors(t *testing.T) {
	modelErr := errors.New("corrupt model")
	envErr := errors.New("corrupt environment")
	rend := &fakeRenderer{}
	v, err := New(config.Default(), &fakeSurface{width: 800, height: 600, ratio: 1}, rend,
		WithStrictAssets(),
		smallGenerator(),
		testLoader(
			func(string) (*scene.Node, error) { return nil, modelErr },
			func(string) (*envmap.Image, error) { return nil, envErr }))
	require.NoError(t, err)
	require.NoError(t, v.LoadAssets(context.Background()))

	err = v.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, modelErr)
	assert.ErrorIs(t, err, envErr)
	assert.Len(t, multierr.Errors(err), 2)
	assert.True(t, rend.cleaned)
	assert.Equal(t, Stopped, v.State())

	assert.Equal(t, err, v.Close(), "Close is idempotent")
}

func TestCloseLenientIgnoresLoadErrors(t *testing.T) {
	v, err := New(config.Default(), &fakeSurface{width: 800, height: 600, ratio: 1}, &fakeRenderer{},
		smallGenerator(),
		testLoader(
			func(string) (*scene.Node, error) { return nil, errors.New("nope") },
			func(string) (*envmap.Image, error) { return flatImage(), nil }))
	require.NoError(t, err)
	require.NoError(t, v.LoadAssets(context.Background()))

	assert.NoError(t, v.Close())
	assert.Len(t, v.LoadErrors(), 1)
}

func TestRunStaysScheduledUntilStopped(t *testing.T) {
	v := newTestViewer(t, &fakeSurface{width: 800, height: 600, ratio: 1}, &fakeRenderer{})
	sched := &countingScheduler{viewer: v, limit: 5, err: context.Canceled}

	require.NoError(t, v.Run(context.Background(), sched))
	assert.Equal(t, uint64(5), v.Frames())
	require.Len(t, sched.states, 6)
	for i, s := range sched.states[1:] {
		assert.Equal(t, Scheduled, s, "tick %d", i+1)
	}
	assert.Equal(t, Stopped, v.State())
}

func TestRunPropagatesSchedulerFailure(t *testing.T) {
	v := newTestViewer(t, &fakeSurface{width: 800, height: 600, ratio: 1}, &fakeRenderer{})
	boom := errors.New("display lost")

	err := v.Run(context.Background(), &countingScheduler{viewer: v, limit: 2, err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(2), v.Frames())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600, ratio: 1}
	v := newTestViewer(t, surface, &fakeRenderer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, v.Run(ctx, SurfaceScheduler{Surface: surface}))
	assert.Equal(t, uint64(0), v.Frames())
	assert.Equal(t, 1, surface.swaps)
}

func TestRunStopsWhenSurfaceCloses(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600, ratio: 1, closeAfter: 3}
	v := newTestViewer(t, surface, &fakeRenderer{})

	require.NoError(t, v.Run(context.Background(), SurfaceScheduler{Surface: surface}))
	assert.Equal(t, uint64(2), v.Frames())
	assert.Equal(t, 3, surface.polls)
	assert.Equal(t, Stopped, v.State())
}

func TestLoopStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "scheduled", Scheduled.String())
	assert.Equal(t, "rendering", Rendering.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "unknown", LoopState(42).String())
}

func TestFramebufferChangeRefreshesPixelRatio(t *testing.T) {
	surface := &fakeSurface{width: 800, height: 600, ratio: 1}
	rend := &fakeRenderer{}
	v := newTestViewer(t, surface, rend)

	notifier := resizeNotifier{size: surface.Size}
	notifier.add(v.Resize)

	// same logical size, new monitor scale
	surface.ratio = 2
	notifier.framebufferResized()

	w, h := rend.DrawingBufferSize()
	assert.Equal(t, int32(1600), w)
	assert.Equal(t, int32(1200), h)
	assert.InDelta(t, 800.0/600.0, v.Camera().AspectRatio, 1e-6)
}

func TestResizeNotifierFansOut(t *testing.T) {
	var got [][2]int
	notifier := resizeNotifier{size: func() (int, int) { return 640, 480 }}
	notifier.add(func(w, h int) { got = append(got, [2]int{w, h}) })
	notifier.add(func(w, h int) { got = append(got, [2]int{-w, -h}) })

	notifier.resized(1024, 768)
	notifier.framebufferResized()

	assert.Equal(t, [][2]int{{1024, 768}, {-1024, -768}, {640, 480}, {-640, -480}}, got)
}
