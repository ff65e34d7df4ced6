package pipeline

import (
	"time"

	"github.com/Carmen-Shannon/neon-cam/engine/compositor"
	"github.com/Carmen-Shannon/neon-cam/engine/controls"
	"github.com/Carmen-Shannon/neon-cam/engine/overlay"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
)

// PipelineBuilderOption is a functional option used to configure a Handle during Create.
type PipelineBuilderOption func(*handle)

// WithClock sets the time source for u_time, measured from the moment Create returns.
//
// Parameters:
//   - clock: the time source
//
// Returns:
//   - PipelineBuilderOption: a function that sets the clock
func WithClock(clock func() time.Time) PipelineBuilderOption {
	return func(h *handle) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithControls sets the reader for the control surface, called once per rendered frame.
//
// Parameters:
//   - read: returns the current controls snapshot, e.g. controls.Store.Snapshot
//
// Returns:
//   - PipelineBuilderOption: a function that sets the controls reader
func WithControls(read func() controls.Snapshot) PipelineBuilderOption {
	return func(h *handle) {
		if read != nil {
			h.controls = read
		}
	}
}

// WithOverlay sets the reader for the overlay physics snapshot, called once per rendered frame.
//
// Parameters:
//   - read: returns the current overlay snapshot, e.g. overlay.Overlay.Snapshot
//
// Returns:
//   - PipelineBuilderOption: a function that sets the overlay reader
func WithOverlay(read func() overlay.Snapshot) PipelineBuilderOption {
	return func(h *handle) {
		if read != nil {
			h.overlay = read
		}
	}
}

// WithCompositor sets the frame compositor. The handle owns it and releases its buffer on Dispose.
// Without this option a compositor with the bundled font is created.
//
// Parameters:
//   - c: the compositor
//
// Returns:
//   - PipelineBuilderOption: a function that sets the compositor
func WithCompositor(c compositor.Compositor) PipelineBuilderOption {
	return func(h *handle) {
		h.compositor = c
	}
}

// WithShaders replaces the embedded quad and neon stages.
//
// Parameters:
//   - vertex: the vertex stage
//   - fragment: the fragment stage
//
// Returns:
//   - PipelineBuilderOption: a function that sets both stages
func WithShaders(vertex, fragment shader.Shader) PipelineBuilderOption {
	return func(h *handle) {
		h.vertexShader = vertex
		h.fragmentShader = fragment
	}
}
