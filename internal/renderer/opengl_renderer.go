package renderer

import (
	"fmt"

	"GopherView/internal/envmap"
	"GopherView/internal/logger"
	"GopherView/internal/scene"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	baseColorTextureUnit = 0
	envMapTextureUnit    = 1
)

var FaceCullingEnabled bool = true
var DepthTestEnabled bool = true

type gpuPrimitive struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
	TextureID  uint32
}

type gpuEnvironment struct {
	source    *envmap.Map
	textureID uint32
	maxLod    float32
	sh        []float32
}

type OpenGLRenderer struct {
	Viewport

	defaultShader  Shader
	textureManager *TextureManager
	primitives     map[*scene.Primitive]*gpuPrimitive
	environment    *gpuEnvironment

	toneMapping ToneMapping
	exposure    float32
	frustum     Frustum
}

func NewOpenGLRenderer() *OpenGLRenderer {
	return &OpenGLRenderer{
		primitives:  make(map[*scene.Primitive]*gpuPrimitive),
		toneMapping: ACESFilmicToneMapping,
		exposure:    1,
	}
}

func (rend *OpenGLRenderer) Init(width, height int32, pixelRatio float32) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("initializing OpenGL: %w", err)
	}
	if rend.primitives == nil {
		rend.primitives = make(map[*scene.Primitive]*gpuPrimitive)
	}

	rend.defaultShader = InitShader()
	if err := rend.defaultShader.Compile(); err != nil {
		return fmt.Errorf("compiling default shader: %w", err)
	}
	rend.textureManager = NewTextureManager()

	if Debug {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	}
	gl.Enable(gl.MULTISAMPLE)

	rend.Viewport.SetPixelRatio(pixelRatio)
	rend.SetSize(width, height)

	logger.Log.Info("OpenGL render initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.Int32("width", width),
		zap.Int32("height", height),
		zap.Float32("pixelRatio", rend.PixelRatio))
	return nil
}

func (rend *OpenGLRenderer) SetPixelRatio(ratio float32) {
	rend.Viewport.SetPixelRatio(ratio)
	rend.updateViewport()
}

// SetSize resizes the logical surface and the GL viewport with it.
func (rend *OpenGLRenderer) SetSize(width, height int32) {
	rend.Viewport.SetSize(width, height)
	rend.updateViewport()
}

func (rend *OpenGLRenderer) updateViewport() {
	w, h := rend.DrawingBufferSize()
	gl.Viewport(0, 0, w, h)
}

func (rend *OpenGLRenderer) SetToneMapping(mapping ToneMapping, exposure float32) {
	rend.toneMapping = mapping
	rend.exposure = exposure
}

func (rend *OpenGLRenderer) Render(s *scene.Scene, camera *Camera) {
	bg, ok := s.Background()
	if !ok {
		bg = mgl32.Vec3{}
	}
	gl.ClearColor(bg[0], bg[1], bg[2], 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	if DepthTestEnabled {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthMask(true)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	if FrustumCullingEnabled {
		rend.frustum = camera.CalculateFrustum()
	}

	shader := &rend.defaultShader
	shader.Use()
	uniforms := shader.Uniforms()

	uniforms.SetMat4("viewProjection", camera.GetViewProjection())
	uniforms.SetVec3("viewPos", camera.Position)
	uniforms.SetInt("toneMapping", int32(rend.toneMapping))
	uniforms.SetFloat("exposure", rend.exposure)
	rend.setLightUniforms(uniforms, s)
	rend.setEnvironmentUniforms(uniforms, s.Environment())

	drawn, culled := 0, 0
	s.Root().Walk(func(n *scene.Node, world mgl32.Mat4) bool {
		if n.Mesh == nil {
			return true
		}
		for _, prim := range n.Mesh.Primitives {
			if FrustumCullingEnabled {
				center, radius := prim.WorldBounds(world)
				if !rend.frustum.IntersectsSphere(center, radius) {
					culled++
					continue
				}
			}
			rend.drawPrimitive(uniforms, prim, world)
			drawn++
		}
		return true
	})

	if Debug {
		logger.Log.Debug("Frame rendered", zap.Int("drawn", drawn), zap.Int("culled", culled))
	}
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
}

func (rend *OpenGLRenderer) setLightUniforms(uniforms *UniformCache, s *scene.Scene) {
	var lightColor mgl32.Vec3
	direction := mgl32.Vec3{0, -1, 0}
	// the shader carries a single directional light
	for _, li := range s.Lights() {
		if li.Light.Type == scene.DirectionalLight {
			lightColor = li.Light.Radiance()
			direction = li.Direction()
			break
		}
	}
	uniforms.SetVec3("ambientLight", s.AmbientRadiance())
	uniforms.SetVec3("lightColor", lightColor)
	uniforms.SetVec3("lightDirection", direction)
}

func (rend *OpenGLRenderer) setEnvironmentUniforms(uniforms *UniformCache, env *envmap.Map) {
	gpu := rend.uploadEnvironment(env)
	if gpu == nil {
		uniforms.SetBool("hasEnvironment", false)
		return
	}
	uniforms.SetBool("hasEnvironment", true)
	uniforms.SetVec3Array("shCoefficients", gpu.sh)
	uniforms.SetFloat("envMaxLod", gpu.maxLod)
	uniforms.SetInt("envMap", envMapTextureUnit)
	gl.ActiveTexture(gl.TEXTURE0 + envMapTextureUnit)
	gl.BindTexture(gl.TEXTURE_2D, gpu.textureID)
}

// uploadEnvironment keeps one environment resident on the GPU, replacing it
// when the scene's environment changes.
func (rend *OpenGLRenderer) uploadEnvironment(env *envmap.Map) *gpuEnvironment {
	if rend.environment != nil && rend.environment.source == env {
		return rend.environment
	}
	rend.releaseEnvironment()
	if env == nil || len(env.Levels) == 0 {
		return nil
	}

	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	for level, img := range env.Levels {
		gl.TexImage2D(gl.TEXTURE_2D, int32(level), gl.RGB16F,
			int32(img.Width), int32(img.Height), 0, gl.RGB, gl.FLOAT, gl.Ptr(img.Pix))
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_BASE_LEVEL, 0)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAX_LEVEL, int32(len(env.Levels)-1))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	rend.environment = &gpuEnvironment{
		source:    env,
		textureID: textureID,
		maxLod:    env.MaxLod(),
		sh:        env.Irradiance.Flatten(),
	}
	logger.Log.Info("Environment uploaded",
		zap.Int("levels", len(env.Levels)),
		zap.Int("width", env.Levels[0].Width),
		zap.Int("height", env.Levels[0].Height))
	return rend.environment
}

func (rend *OpenGLRenderer) releaseEnvironment() {
	if rend.environment == nil {
		return
	}
	gl.DeleteTextures(1, &rend.environment.textureID)
	rend.environment = nil
}

func (rend *OpenGLRenderer) drawPrimitive(uniforms *UniformCache, prim *scene.Primitive, world mgl32.Mat4) {
	gpu := rend.uploadPrimitive(prim)
	mat := prim.Material
	if mat == nil {
		mat = scene.DefaultMaterial()
	}

	uniforms.SetMat4("model", world)
	uniforms.SetMat3("normalMatrix", world.Mat3().Inv().Transpose())
	uniforms.SetVec4("baseColorFactor", mat.BaseColor)
	uniforms.SetFloat("metallic", mat.Metallic)
	uniforms.SetFloat("roughness", mat.Roughness)
	uniforms.SetVec3("emissive", mat.Emissive)

	uniforms.SetBool("hasBaseColorTexture", gpu.TextureID != 0)
	uniforms.SetInt("baseColorTexture", baseColorTextureUnit)
	gl.ActiveTexture(gl.TEXTURE0 + baseColorTextureUnit)
	gl.BindTexture(gl.TEXTURE_2D, gpu.TextureID)

	if FaceCullingEnabled && !mat.DoubleSided {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
		gl.FrontFace(gl.CCW)
	} else {
		gl.Disable(gl.CULL_FACE)
	}

	gl.BindVertexArray(gpu.VAO)
	gl.DrawElements(gl.TRIANGLES, gpu.IndexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)
}

// uploadPrimitive creates the vertex arrays for prim on first use.
func (rend *OpenGLRenderer) uploadPrimitive(prim *scene.Primitive) *gpuPrimitive {
	if gpu, ok := rend.primitives[prim]; ok {
		return gpu
	}
	gpu := &gpuPrimitive{IndexCount: int32(len(prim.Indices))}

	gl.GenVertexArrays(1, &gpu.VAO)
	gl.BindVertexArray(gpu.VAO)

	gl.GenBuffers(1, &gpu.VBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, gpu.VBO)
	if len(prim.InterleavedData) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(prim.InterleavedData)*4, gl.Ptr(prim.InterleavedData), gl.STATIC_DRAW)
	}

	gl.GenBuffers(1, &gpu.EBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gpu.EBO)
	if len(prim.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(prim.Indices)*4, gl.Ptr(prim.Indices), gl.STATIC_DRAW)
	}

	stride := int32(scene.VertexStride * 4)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)

	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)

	gl.VertexAttribPointer(2, 3, gl.FLOAT, false, stride, gl.PtrOffset(5*4))
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)

	if mat := prim.Material; mat != nil && mat.BaseColorTexture != nil {
		key := mat.TextureKey
		if key == "" {
			key = fmt.Sprintf("%p", mat)
		}
		textureID, err := rend.textureManager.CreateTextureFromImage(mat.BaseColorTexture, key)
		if err != nil {
			logger.Log.Warn("Base color texture upload failed", zap.String("key", key), zap.Error(err))
		} else {
			gpu.TextureID = textureID
		}
	}

	rend.primitives[prim] = gpu
	return gpu
}

func (rend *OpenGLRenderer) Cleanup() {
	for _, gpu := range rend.primitives {
		gl.DeleteVertexArrays(1, &gpu.VAO)
		gl.DeleteBuffers(1, &gpu.VBO)
		gl.DeleteBuffers(1, &gpu.EBO)
		if rend.textureManager != nil && gpu.TextureID != 0 {
			rend.textureManager.ReleaseTexture(gpu.TextureID)
		}
	}
	rend.primitives = make(map[*scene.Primitive]*gpuPrimitive)
	rend.releaseEnvironment()

	if rend.textureManager != nil {
		rend.textureManager.LogStats()
		rend.textureManager.Clear()
	}
	rend.defaultShader.Delete()
	logger.Log.Info("OpenGL render cleaned up")
}
