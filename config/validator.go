package config

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/neon-cam/engine/controls"
	"github.com/Carmen-Shannon/neon-cam/engine/overlay"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer"
	"github.com/sirupsen/logrus"
)

// Validate fills blank values with defaults, clamps ranged values and rejects values
// that cannot be used.
//
// Parameters:
//   - cfg: the configuration, modified in place
//
// Returns:
//   - error: nil, or an error wrapping ErrInvalid that names the offending key
func Validate(cfg *Config) error {
	applyDefaults(cfg)

	if cfg.Window.Width < 0 || cfg.Window.Height < 0 {
		return invalid("window size must be positive, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.RefreshRate < 0 {
		return invalid("refresh_rate must be > 0, got %v", cfg.RefreshRate)
	}

	if _, err := renderer.ParseBackendType(cfg.Renderer.Backend); err != nil {
		return invalid("renderer.backend: %v", err)
	}
	if _, err := renderer.ParsePresentMode(cfg.Renderer.PresentMode); err != nil {
		return invalid("renderer.present_mode: %v", err)
	}
	if cfg.Renderer.Workers < 0 {
		return invalid("renderer.workers must be >= 0, got %d", cfg.Renderer.Workers)
	}

	if err := validateCapture(&cfg.Capture); err != nil {
		return err
	}

	cfg.Overlay.Scale = min(max(cfg.Overlay.Scale, overlay.MinScale), overlay.MaxScale)
	if cfg.Overlay.MinSpeed < 0 || cfg.Overlay.MaxSpeed < 0 {
		return invalid("overlay speeds must be >= 0")
	}
	if cfg.Overlay.MaxSpeed < cfg.Overlay.MinSpeed {
		return invalid("overlay.max_speed %v is below overlay.min_speed %v", cfg.Overlay.MaxSpeed, cfg.Overlay.MinSpeed)
	}

	if _, err := controls.ParseEffects(cfg.Controls.Effects); err != nil {
		return invalid("controls.effects: %v", err)
	}
	c := cfg.ControlState()
	cfg.Controls.Glitch = c.Glitch
	cfg.Controls.OutlineBoost = c.OutlineBoost

	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", cfg.Log.Format)
	}
	return nil
}

func validateCapture(c *CaptureConfig) error {
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	switch c.Source {
	case SourcePattern, SourceGst:
	case SourceRaw:
		if c.Path == "" {
			return invalid("capture.path is required for the raw source")
		}
		if c.Width <= 0 || c.Height <= 0 {
			return invalid("capture.width and capture.height are required for the raw source")
		}
	default:
		return invalid("capture.source: unknown source %q (must be pattern, raw or gst)", c.Source)
	}
	if c.Width < 0 || c.Height < 0 {
		return invalid("capture size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.FPS < 0 {
		return invalid("capture.fps must be >= 0, got %d", c.FPS)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ControlState converts the controls section to a clamped control state.
//
// Returns:
//   - controls.ControlState: the initial controls
func (c *Config) ControlState() controls.ControlState {
	fire := 0.0
	if c.Controls.Fire {
		fire = 1
	}
	return controls.ControlState{
		Glitch:        c.Controls.Glitch,
		OutlineBoost:  c.Controls.OutlineBoost,
		FireIntensity: fire,
	}.Clamped()
}

// ControlSnapshot returns the initial controls store contents.
//
// Returns:
//   - controls.Snapshot: the initial controls and effect toggles
//   - error: an error naming an unknown effect
func (c *Config) ControlSnapshot() (controls.Snapshot, error) {
	effects, err := controls.ParseEffects(c.Controls.Effects)
	if err != nil {
		return controls.Snapshot{}, fmt.Errorf("%w: controls.effects: %v", ErrInvalid, err)
	}
	return controls.Snapshot{Controls: c.ControlState(), Effects: effects}, nil
}

// LogLevel returns the parsed log level, info when unparseable.
//
// Returns:
//   - logrus.Level: the level
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
