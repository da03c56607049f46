package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Carmen-Shannon/oxy-gl/common"
)

// Config is the demo configuration. Values come from the optional TOML file and are
// overridden by explicitly set flags.
type Config struct {
	Window  WindowConfig  `toml:"window"`
	Backend string        `toml:"backend"`
	Log     LogConfig     `toml:"log"`
	Render  RenderConfig  `toml:"render"`
	Profile ProfileConfig `toml:"profile"`
}

// WindowConfig sizes and titles the window.
type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
	VSync  bool   `toml:"vsync"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// RenderConfig tunes the frame loop.
type RenderConfig struct {
	// FrameLimit caps frames per second; 0 is uncapped.
	FrameLimit float64 `toml:"frame_limit"`
	// TargetSize is the edge length of the offscreen render texture.
	TargetSize int `toml:"target_size"`
}

// ProfileConfig enables periodic frame statistics.
type ProfileConfig struct {
	Enabled    bool `toml:"enabled"`
	IntervalMs int  `toml:"interval_ms"`
}

// Interval returns the sampling interval.
func (p ProfileConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

const (
	backendOpenGL = "opengl"
	backendWebGPU = "webgpu"
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Window:  WindowConfig{Width: 1280, Height: 720, Title: "oxygl", VSync: true},
		Backend: backendOpenGL,
		Log:     LogConfig{Level: "info"},
		Render:  RenderConfig{TargetSize: 256},
		Profile: ProfileConfig{IntervalMs: 1000},
	}
}

// LoadConfig decodes the TOML file at path over the defaults. An empty path returns the defaults.
//
// Parameters:
//   - path: the config file path, or ""
//
// Returns:
//   - Config: the decoded configuration
//   - error: error if the file cannot be read or decoded
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return cfg, fmt.Errorf("config %s:%d:%d: %w", path, row, col, err)
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	defaults := DefaultConfig()
	cfg.Window.Title = common.Coalesce(cfg.Window.Title, defaults.Window.Title)
	cfg.Backend = common.Coalesce(cfg.Backend, defaults.Backend)
	cfg.Log.Level = common.Coalesce(cfg.Log.Level, defaults.Log.Level)
	return cfg, nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(c *cli.Context, cfg *Config) {
	if c.IsSet(widthFlag.Name) {
		cfg.Window.Width = c.Int(widthFlag.Name)
	}
	if c.IsSet(heightFlag.Name) {
		cfg.Window.Height = c.Int(heightFlag.Name)
	}
	if c.IsSet(titleFlag.Name) {
		cfg.Window.Title = c.String(titleFlag.Name)
	}
	if c.IsSet(vsyncFlag.Name) {
		cfg.Window.VSync = c.Bool(vsyncFlag.Name)
	}
	if c.IsSet(backendFlag.Name) {
		cfg.Backend = c.String(backendFlag.Name)
	}
	if c.IsSet(logLevelFlag.Name) {
		cfg.Log.Level = c.String(logLevelFlag.Name)
	}
	if c.IsSet(devLogFlag.Name) {
		cfg.Log.Development = c.Bool(devLogFlag.Name)
	}
	if c.IsSet(frameLimitFlag.Name) {
		cfg.Render.FrameLimit = c.Float64(frameLimitFlag.Name)
	}
	if c.IsSet(profileFlag.Name) {
		cfg.Profile.Enabled = c.Bool(profileFlag.Name)
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Window.Width <= 0 || c.Window.Height <= 0:
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	case c.Backend != backendOpenGL && c.Backend != backendWebGPU:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, backendOpenGL, backendWebGPU)
	case c.Render.FrameLimit < 0:
		return fmt.Errorf("negative frame limit %v", c.Render.FrameLimit)
	case c.Render.TargetSize <= 0:
		return fmt.Errorf("invalid render target size %d", c.Render.TargetSize)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
