package overlay

import "math/rand/v2"

// OverlayBuilderOption is a functional option applied to an overlay during construction via NewOverlay.
type OverlayBuilderOption func(*overlay)

// WithMeasurer sets the text measurer used to derive the overlay geometry.
// Defaults to an estimate of 0.6em per rune.
//
// Parameters:
//   - m: the measurer, typically compositor.MeasureText bound to the compositor face
//
// Returns:
//   - OverlayBuilderOption: a function that applies the measurer option
func WithMeasurer(m Measurer) OverlayBuilderOption {
	return func(o *overlay) {
		if m != nil {
			o.measure = m
		}
	}
}

// WithRand sets the random source used for re-seeding.
//
// Parameters:
//   - r: the random source
//
// Returns:
//   - OverlayBuilderOption: a function that applies the random source option
func WithRand(r *rand.Rand) OverlayBuilderOption {
	return func(o *overlay) {
		o.rng = r
	}
}

// WithSpeedRange sets the per-axis speed range in points per second. Defaults to [70, 120).
//
// Parameters:
//   - minSpeed: the inclusive lower bound
//   - maxSpeed: the exclusive upper bound
//
// Returns:
//   - OverlayBuilderOption: a function that applies the speed range option
func WithSpeedRange(minSpeed, maxSpeed float64) OverlayBuilderOption {
	return func(o *overlay) {
		o.minSpeed, o.maxSpeed = minSpeed, maxSpeed
	}
}

// WithScale sets the initial text scale.
//
// Parameters:
//   - scale: the scale, clamped to [MinScale, MaxScale]
//
// Returns:
//   - OverlayBuilderOption: a function that applies the scale option
func WithScale(scale float64) OverlayBuilderOption {
	return func(o *overlay) {
		o.scale = scale
	}
}

// WithStateChange registers a callback fired after every Idle/Active transition, outside the lock.
//
// Parameters:
//   - fn: the callback receiving the new state
//
// Returns:
//   - OverlayBuilderOption: a function that applies the callback option
func WithStateChange(fn func(State)) OverlayBuilderOption {
	return func(o *overlay) {
		o.onStateChange = fn
	}
}
