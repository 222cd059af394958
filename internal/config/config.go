package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/chewxy/math32"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type LightConfig struct {
	Color     [3]float32 `yaml:"color"`
	Intensity float32    `yaml:"intensity"`
	Position  [3]float32 `yaml:"position,omitempty"`
}

type ControlsConfig struct {
	EnableDamping bool    `yaml:"enableDamping"`
	DampingFactor float32 `yaml:"dampingFactor"`
	RotateSpeed   float32 `yaml:"rotateSpeed"`
	ZoomSpeed     float32 `yaml:"zoomSpeed"`
	PanSpeed      float32 `yaml:"panSpeed"`
}

type WindowConfig struct {
	Title   string `yaml:"title"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Samples int    `yaml:"samples"`
}

// Config holds everything the viewer needs at startup. Zero values are not
// meaningful; start from Default and override.
type Config struct {
	EnvironmentAssetPath  string     `yaml:"environmentAssetPath"`
	ModelAssetPath        string     `yaml:"modelAssetPath"`
	InitialCameraPosition [3]float32 `yaml:"initialCameraPosition"`
	CameraTarget          [3]float32 `yaml:"cameraTarget"`
	Fov                   float32    `yaml:"fov"`
	ClipNear              float32    `yaml:"clipNear"`
	ClipFar               float32    `yaml:"clipFar"`

	ToneMappingExposure float32     `yaml:"toneMappingExposure"`
	Background          [3]float32  `yaml:"background"`
	AmbientLight        LightConfig `yaml:"ambientLight"`
	DirectionalLight    LightConfig `yaml:"directionalLight"`

	Controls ControlsConfig `yaml:"controls"`
	Window   WindowConfig   `yaml:"window"`
	Debug    bool           `yaml:"debug"`
}

func Default() Config {
	return Config{
		EnvironmentAssetPath:  "3.hdr",
		ModelAssetPath:        "2.glb",
		InitialCameraPosition: [3]float32{5000, 0.9, 2.7},
		CameraTarget:          [3]float32{0, 0, 0},
		Fov:                   45,
		ClipNear:              0.25,
		ClipFar:               100000,

		ToneMappingExposure: 1.25,
		Background:          [3]float32{1, 1, 1},
		AmbientLight: LightConfig{
			Color:     hexColor(0x404040),
			Intensity: 1.5,
		},
		DirectionalLight: LightConfig{
			Color:     hexColor(0xffffff),
			Intensity: 1.0,
			Position:  [3]float32{5, 10, 7.5},
		},

		Controls: ControlsConfig{
			EnableDamping: false,
			DampingFactor: 0.05,
			RotateSpeed:   1,
			ZoomSpeed:     1,
			PanSpeed:      1,
		},
		Window: WindowConfig{
			Title:   "GopherView",
			Width:   1280,
			Height:  720,
			Samples: 4,
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.EnvironmentAssetPath == "":
		return fmt.Errorf("%w: environmentAssetPath is empty", ErrInvalidConfig)
	case c.ModelAssetPath == "":
		return fmt.Errorf("%w: modelAssetPath is empty", ErrInvalidConfig)
	case c.Fov <= 0 || c.Fov >= 180:
		return fmt.Errorf("%w: fov %v outside (0, 180)", ErrInvalidConfig, c.Fov)
	case c.ClipNear <= 0:
		return fmt.Errorf("%w: clipNear must be positive, got %v", ErrInvalidConfig, c.ClipNear)
	case c.ClipFar <= c.ClipNear:
		return fmt.Errorf("%w: clipFar %v must exceed clipNear %v", ErrInvalidConfig, c.ClipFar, c.ClipNear)
	case c.ToneMappingExposure <= 0:
		return fmt.Errorf("%w: toneMappingExposure must be positive", ErrInvalidConfig)
	case c.InitialCameraPosition == c.CameraTarget:
		return fmt.Errorf("%w: camera position equals camera target", ErrInvalidConfig)
	case c.Controls.EnableDamping && (c.Controls.DampingFactor <= 0 || c.Controls.DampingFactor > 1):
		return fmt.Errorf("%w: dampingFactor %v outside (0, 1]", ErrInvalidConfig, c.Controls.DampingFactor)
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	return nil
}

// hexColor converts a 0xRRGGBB sRGB value to linear components.
func hexColor(hex uint32) [3]float32 {
	return [3]float32{
		srgbToLinear(float32((hex>>16)&0xff) / 255),
		srgbToLinear(float32((hex>>8)&0xff) / 255),
		srgbToLinear(float32(hex&0xff) / 255),
	}
}

func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math32.Pow((c+0.055)/1.055, 2.4)
}
