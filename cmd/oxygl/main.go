// oxygl opens a window and renders a textured quad through an offscreen render texture,
// exercising the resource registry and bind caches on either the OpenGL or the WebGPU device.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine"
	"github.com/Carmen-Shannon/oxy-gl/engine/device"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/opengl"
	"github.com/Carmen-Shannon/oxy-gl/engine/device/webgpu"
	"github.com/Carmen-Shannon/oxy-gl/engine/gfx"
	"github.com/Carmen-Shannon/oxy-gl/engine/profiler"
	"github.com/Carmen-Shannon/oxy-gl/engine/window"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML configuration file",
	}
	widthFlag = &cli.IntFlag{
		Name:  "width",
		Usage: "window width in pixels",
	}
	heightFlag = &cli.IntFlag{
		Name:  "height",
		Usage: "window height in pixels",
	}
	titleFlag = &cli.StringFlag{
		Name:  "title",
		Usage: "window title",
	}
	vsyncFlag = &cli.BoolFlag{
		Name:  "vsync",
		Usage: "synchronize presentation with the display refresh",
	}
	backendFlag = &cli.StringFlag{
		Name:    "backend",
		Aliases: []string{"b"},
		Usage:   "graphics device: opengl or webgpu",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	devLogFlag = &cli.BoolFlag{
		Name:  "dev-log",
		Usage: "human-readable development logging",
	}
	frameLimitFlag = &cli.Float64Flag{
		Name:  "frame-limit",
		Usage: "maximum frames per second (0 = uncapped)",
	}
	profileFlag = &cli.BoolFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "log frame, bind and upload statistics every interval",
	}
)

var app = &cli.App{
	Name:  "oxygl",
	Usage: "render a demo scene through the oxygl resource layer",
	Flags: []cli.Flag{
		configFlag,
		widthFlag,
		heightFlag,
		titleFlag,
		vsyncFlag,
		backendFlag,
		logLevelFlag,
		devLogFlag,
		frameLimitFlag,
		profileFlag,
	},
	Action: run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := LoadConfig(c.String(configFlag.Name))
	if err != nil {
		return err
	}
	applyFlags(c, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	api := window.APIOpenGL
	if cfg.Backend == backendWebGPU {
		api = window.APIWebGPU
	}
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithWidth(cfg.Window.Width),
		window.WithHeight(cfg.Window.Height),
		window.WithVSync(cfg.Window.VSync),
		window.WithAPI(api),
	)
	if err != nil {
		return err
	}
	defer win.Close() //nolint:errcheck

	dev, err := openDevice(cfg, win, logger)
	if err != nil {
		return err
	}
	if fd, ok := dev.(device.FrameDevice); ok {
		defer fd.Release()
	}

	ctx := gfx.NewContext(dev, gfx.WithName("main"), gfx.WithLogger(logger))
	ctx.Viewport(0, 0, win.Width(), win.Height())

	d, err := newDemo(ctx, cfg, win.Width(), win.Height())
	if err != nil {
		return err
	}

	eng := engine.NewEngine(win, dev,
		engine.WithLogger(logger),
		engine.WithContext(ctx),
		engine.WithProfiling(cfg.Profile.Enabled),
		engine.WithProfiler(profiler.NewProfiler(profiler.WithLogger(logger), profiler.WithInterval(cfg.Profile.Interval()))),
		engine.WithRenderFrameLimit(cfg.Render.FrameLimit),
		engine.WithFrameCallback(d.frame),
		engine.WithResizeCallback(d.resize),
	)
	profiling := cfg.Profile.Enabled
	win.SetKeyDownCallback(func(keyCode uint32) {
		if keyCode != common.KeyP {
			d.key(keyCode)
			return
		}
		if profiling = !profiling; profiling {
			eng.EnableProfiler()
		} else {
			eng.DisableProfiler()
		}
	})

	logger.Info("starting", zap.String("backend", cfg.Backend), zap.Int("width", win.Width()), zap.Int("height", win.Height()))
	eng.Run()
	return nil
}

// openDevice creates the device matching the window API.
func openDevice(cfg Config, win window.Window, logger *zap.Logger) (device.Device, error) {
	if win.API() == window.APIWebGPU {
		return webgpu.New(win.SurfaceDescriptor(), win.Width(), win.Height(),
			webgpu.WithLogger(logger),
			webgpu.WithDepthTest(true),
			webgpu.WithVSync(cfg.Window.VSync),
		)
	}
	return opengl.New(opengl.WithLogger(logger), opengl.WithDepthTest(true))
}
