package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"GopherView/internal/config"
	"GopherView/internal/engine"
	"GopherView/internal/logger"
	"GopherView/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GLFW and OpenGL calls must stay on the main thread.
func init() {
	runtime.LockOSThread()
}

type flags struct {
	configPath  string
	model       string
	environment string
	width       int
	height      int
	debug       bool
	strict      bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:           "viewer",
		Short:         "Display a glTF or OBJ model lit by an HDR environment",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.debug {
				logger.InitLevel(zapcore.DebugLevel)
			} else {
				logger.Init()
			}
			defer logger.Sync()

			cfg, err := loadConfig(cmd, f)
			if err != nil {
				logger.Log.Error("Invalid configuration", zap.Error(err))
				return err
			}
			if err := run(cmd.Context(), cfg, f.strict); err != nil {
				logger.Log.Error("Viewer failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	cmd.Flags().StringVar(&f.model, "model", "", "model asset path (.glb, .gltf, .obj)")
	cmd.Flags().StringVar(&f.environment, "environment", "", "equirectangular environment map path")
	cmd.Flags().IntVar(&f.width, "width", 0, "window width in logical pixels")
	cmd.Flags().IntVar(&f.height, "height", 0, "window height in logical pixels")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "exit with an error when an asset fails to load")
	return cmd
}

// loadConfig starts from the defaults or the config file and applies the
// flags the user set explicitly.
func loadConfig(cmd *cobra.Command, f flags) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return cfg, err
		}
	}

	if cmd.Flags().Changed("model") {
		cfg.ModelAssetPath = f.model
	}
	if cmd.Flags().Changed("environment") {
		cfg.EnvironmentAssetPath = f.environment
	}
	if cmd.Flags().Changed("width") {
		cfg.Window.Width = f.width
	}
	if cmd.Flags().Changed("height") {
		cfg.Window.Height = f.height
	}
	if f.debug {
		cfg.Debug = true
	}
	return cfg, cfg.Validate()
}

func run(parent context.Context, cfg config.Config, strict bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer.Debug = cfg.Debug

	surface, err := engine.NewGLFWSurface(cfg.Window, mgl32.Vec3(cfg.Background))
	if err != nil {
		return err
	}
	defer surface.Destroy()

	opts := []engine.Option{}
	if strict {
		opts = append(opts, engine.WithStrictAssets())
	}
	viewer, err := engine.New(cfg, surface, renderer.NewOpenGLRenderer(), opts...)
	if err != nil {
		return fmt.Errorf("creating viewer: %w", err)
	}
	if err := viewer.LoadAssets(ctx); err != nil {
		viewer.Close()
		return err
	}

	runErr := viewer.Run(ctx, engine.SurfaceScheduler{Surface: surface})
	closeErr := viewer.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}
