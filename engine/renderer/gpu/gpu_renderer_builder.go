package gpu

import "github.com/Carmen-Shannon/neon-cam/engine/renderer"

// RendererBuilderOption is a functional option applied to the WebGPU renderer during construction via NewRenderer.
type RendererBuilderOption func(*gpuRenderer)

// WithPresentMode sets how frames are delivered to the display. Defaults to renderer.PresentModeVSync.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option
func WithPresentMode(mode renderer.PresentMode) RendererBuilderOption {
	return func(r *gpuRenderer) {
		r.presentMode = mode
	}
}

// WithForceFallbackAdapter requests the software fallback adapter instead of a hardware one.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the fallback adapter option
func WithForceFallbackAdapter(force bool) RendererBuilderOption {
	return func(r *gpuRenderer) {
		r.forceFallback = force
	}
}

// WithSurfaceSize configures the surface at creation with the given backing size.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the surface size option
func WithSurfaceSize(width, height int) RendererBuilderOption {
	return func(r *gpuRenderer) {
		r.width, r.height = width, height
	}
}
