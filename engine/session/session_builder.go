package session

import (
	"github.com/Carmen-Shannon/neon-cam/engine/compositor"
	"github.com/Carmen-Shannon/neon-cam/engine/controls"
	"github.com/Carmen-Shannon/neon-cam/engine/overlay"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/pipeline"
)

// SessionBuilderOption is a functional option for configuring a session.
// Use the With* functions to create options.
type SessionBuilderOption func(s *session)

// WithControls sets the controls store shared with the key handler.
//
// Parameters:
//   - store: the controls store
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithControls(store controls.Store) SessionBuilderOption {
	return func(s *session) {
		s.controls = store
	}
}

// WithCompositor sets the compositor used for text measurement and frame composition.
//
// Parameters:
//   - c: the compositor
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithCompositor(c compositor.Compositor) SessionBuilderOption {
	return func(s *session) {
		s.compositor = c
	}
}

// WithOverlayOptions appends options used when creating the overlay.
//
// Parameters:
//   - options: the overlay options
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithOverlayOptions(options ...overlay.OverlayBuilderOption) SessionBuilderOption {
	return func(s *session) {
		s.overlayOptions = append(s.overlayOptions, options...)
	}
}

// WithPipelineOptions appends options passed to pipeline.Create on every start.
//
// Parameters:
//   - options: the pipeline options
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithPipelineOptions(options ...pipeline.PipelineBuilderOption) SessionBuilderOption {
	return func(s *session) {
		s.pipelineOptions = append(s.pipelineOptions, options...)
	}
}

// WithErrorHandler sets the callback invoked with fatal setup and capture errors.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithErrorHandler(fn func(error)) SessionBuilderOption {
	return func(s *session) {
		s.onError = fn
	}
}
