package engine

import (
	"time"

	"github.com/Carmen-Shannon/neon-cam/engine/profiler"
	"github.com/Carmen-Shannon/neon-cam/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables frame-rate and memory statistics logging.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the default profiler.
//
// Parameters:
//   - p: the profiler ticked once per refresh
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
	}
}

// WithRefreshRate sets the number of refreshes per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - hz: target refreshes per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRefreshRate(hz float64) EngineBuilderOption {
	return func(e *engine) {
		e.setRateLocked(hz)
	}
}

// WithWindow sets the display window whose events Run polls.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithClock sets the time source for refresh timestamps.
//
// Parameters:
//   - clock: the time source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(clock func() time.Time) EngineBuilderOption {
	return func(e *engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}
