// Package config loads the neon-cam YAML configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/Carmen-Shannon/neon-cam/engine/controls"
	"github.com/Carmen-Shannon/neon-cam/engine/overlay"
	"gopkg.in/yaml.v3"
)

// Capture source kinds.
const (
	SourcePattern = "pattern"
	SourceRaw     = "raw"
	SourceGst     = "gst"
)

// Defaults applied to unset values.
const (
	DefaultTitle       = "neon-cam"
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultRefreshRate = 60.0
	DefaultBackend     = "gpu"
	DefaultPresentMode = "vsync"
	DefaultSource      = SourceGst
	DefaultDevice      = "/dev/video0"
	DefaultCaptureFPS  = 30
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the complete neon-cam configuration.
type Config struct {
	Window      WindowConfig   `yaml:"window"`
	RefreshRate float64        `yaml:"refresh_rate"`
	Profiling   bool           `yaml:"profiling"`
	Renderer    RendererConfig `yaml:"renderer"`
	Capture     CaptureConfig  `yaml:"capture"`
	Overlay     OverlayConfig  `yaml:"overlay"`
	Controls    ControlsConfig `yaml:"controls"`
	Log         LogConfig      `yaml:"log"`
}

// WindowConfig contains the display window settings.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`  // client width in display points
	Height int    `yaml:"height"` // client height in display points
}

// RendererConfig contains graphics context settings.
type RendererConfig struct {
	Backend     string `yaml:"backend"`      // gpu, software
	PresentMode string `yaml:"present_mode"` // vsync, uncapped
	Workers     int    `yaml:"workers"`      // software renderer pool size, 0 = NumCPU
}

// CaptureConfig contains video source settings.
type CaptureConfig struct {
	Source string `yaml:"source"` // pattern, raw, gst
	Device string `yaml:"device"` // v4l2 device for gst
	Path   string `yaml:"path"`   // raw RGBA stream file, "-" for stdin
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// OverlayConfig contains the bouncing text settings.
type OverlayConfig struct {
	Text     string  `yaml:"text"`
	Scale    float64 `yaml:"scale"`
	FontPath string  `yaml:"font_path"` // TTF file, empty for the bundled face
	MinSpeed float64 `yaml:"min_speed"`
	MaxSpeed float64 `yaml:"max_speed"`
}

// ControlsConfig contains the initial stylization controls.
type ControlsConfig struct {
	Glitch       float64  `yaml:"glitch"`
	OutlineBoost float64  `yaml:"outline_boost"`
	Fire         bool     `yaml:"fire"`
	Effects      []string `yaml:"effects"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Default returns the configuration used when no file exists.
//
// Returns:
//   - *Config: a fresh default configuration
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  DefaultTitle,
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		RefreshRate: DefaultRefreshRate,
		Renderer: RendererConfig{
			Backend:     DefaultBackend,
			PresentMode: DefaultPresentMode,
		},
		Capture: CaptureConfig{
			Source: DefaultSource,
			Device: DefaultDevice,
			Width:  DefaultWidth,
			Height: DefaultHeight,
			FPS:    DefaultCaptureFPS,
		},
		Overlay: OverlayConfig{
			Scale:    1,
			MinSpeed: overlay.DefaultMinSpeed,
			MaxSpeed: overlay.DefaultMaxSpeed,
		},
		Controls: ControlsConfig{
			Glitch:       controls.DefaultGlitch,
			OutlineBoost: controls.DefaultBoost,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads and parses a YAML configuration file. Keys missing from the file keep their
// default values and a missing file yields Default().
//
// Parameters:
//   - path: the file path, empty for defaults only
//
// Returns:
//   - *Config: the validated configuration
//   - error: an error if the file could not be read or parsed, or wraps ErrInvalid
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
//
// Parameters:
//   - path: the destination file
//   - cfg: the configuration to write
//
// Returns:
//   - error: an error if encoding or writing failed
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyDefaults fills values left empty by an explicit blank entry in the file.
func applyDefaults(cfg *Config) {
	cfg.Window.Title = common.Coalesce(cfg.Window.Title, DefaultTitle)
	cfg.Window.Width = common.Coalesce(cfg.Window.Width, DefaultWidth)
	cfg.Window.Height = common.Coalesce(cfg.Window.Height, DefaultHeight)
	cfg.RefreshRate = common.Coalesce(cfg.RefreshRate, DefaultRefreshRate)
	cfg.Renderer.Backend = common.Coalesce(cfg.Renderer.Backend, DefaultBackend)
	cfg.Renderer.PresentMode = common.Coalesce(cfg.Renderer.PresentMode, DefaultPresentMode)
	cfg.Capture.Source = common.Coalesce(cfg.Capture.Source, DefaultSource)
	cfg.Capture.Device = common.Coalesce(cfg.Capture.Device, DefaultDevice)
	cfg.Capture.FPS = common.Coalesce(cfg.Capture.FPS, DefaultCaptureFPS)
	cfg.Overlay.Scale = common.Coalesce(cfg.Overlay.Scale, 1)
	cfg.Log.Level = common.Coalesce(cfg.Log.Level, DefaultLogLevel)
	cfg.Log.Format = common.Coalesce(cfg.Log.Format, DefaultLogFormat)
}
