package renderer

import "image"

// SoftwareRendererBuilderOption is a functional option applied to a software renderer during
// construction via NewSoftwareRenderer.
type SoftwareRendererBuilderOption func(*softwareRenderer)

// WithWorkers sets the number of pool workers shading row bands in parallel.
// Defaults to runtime.NumCPU().
//
// Parameters:
//   - n: the worker count, values below 1 become 1
//
// Returns:
//   - SoftwareRendererBuilderOption: a function that applies the worker count option
func WithWorkers(n int) SoftwareRendererBuilderOption {
	return func(r *softwareRenderer) {
		r.workers = n
	}
}

// WithBandRows sets how many surface rows one pool task shades. Defaults to 16.
//
// Parameters:
//   - rows: the band height in rows
//
// Returns:
//   - SoftwareRendererBuilderOption: a function that applies the band height option
func WithBandRows(rows int) SoftwareRendererBuilderOption {
	return func(r *softwareRenderer) {
		r.bandRows = rows
	}
}

// WithSurfaceSize sets the initial backing size of the surface.
//
// Parameters:
//   - width: the width in pixels
//   - height: the height in pixels
//
// Returns:
//   - SoftwareRendererBuilderOption: a function that applies the surface size option
func WithSurfaceSize(width, height int) SoftwareRendererBuilderOption {
	return func(r *softwareRenderer) {
		r.width, r.height = width, height
	}
}

// WithPresentFunc registers a callback invoked with the surface after every draw.
// The image is only valid for the duration of the call.
//
// Parameters:
//   - fn: the present callback
//
// Returns:
//   - SoftwareRendererBuilderOption: a function that applies the present callback option
func WithPresentFunc(fn func(*image.RGBA)) SoftwareRendererBuilderOption {
	return func(r *softwareRenderer) {
		r.onPresent = fn
	}
}
