package common

import (
	"math"
	"unsafe"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Clamp limits x to the closed range [lo, hi].
//
// Parameters:
//   - x: the value to clamp
//   - lo: the lower bound
//   - hi: the upper bound
//
// Returns:
//   - float64: x limited to [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Mix linearly interpolates between a and b by t, matching the WGSL/GLSL mix builtin.
//
// Parameters:
//   - a: the value returned when t is 0
//   - b: the value returned when t is 1
//   - t: the interpolation factor, not clamped
//
// Returns:
//   - float64: a*(1-t) + b*t
func Mix(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// Smoothstep performs Hermite interpolation between edge0 and edge1, matching the WGSL builtin.
// Reversed edges (edge0 > edge1) produce a falling curve, which the vignette term relies on.
//
// Parameters:
//   - edge0: the value of x at which the result is 0
//   - edge1: the value of x at which the result is 1
//   - x: the input value
//
// Returns:
//   - float64: the smoothed value in [0, 1]
func Smoothstep(edge0, edge1, x float64) float64 {
	t := Clamp((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}

// Fract returns the fractional part of x as x - floor(x), matching the WGSL builtin.
func Fract(x float64) float64 {
	return x - math.Floor(x)
}

// Vec2 is a two component vector used for texture coordinates, positions and velocities.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Mul returns the component-wise product of v and o.
func (v Vec2) Mul(o Vec2) Vec2 {
	return Vec2{v.X * o.X, v.Y * o.Y}
}

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Length returns the euclidean length of v.
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Clamp limits both components of v to [lo, hi].
func (v Vec2) Clamp(lo, hi float64) Vec2 {
	return Vec2{Clamp(v.X, lo, hi), Clamp(v.Y, lo, hi)}
}

// Vec3 is a three component vector holding linear RGB colour values.
type Vec3 struct {
	X, Y, Z float64
}

// Splat3 returns a Vec3 with every component set to s.
func Splat3(s float64) Vec3 {
	return Vec3{s, s, s}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Mul returns the component-wise product of v and o.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{v.X * o.X, v.Y * o.Y, v.Z * o.Z}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Max returns the component-wise maximum of v and o.
func (v Vec3) Max(o Vec3) Vec3 {
	return Vec3{math.Max(v.X, o.X), math.Max(v.Y, o.Y), math.Max(v.Z, o.Z)}
}

// Clamp limits every component of v to [lo, hi].
func (v Vec3) Clamp(lo, hi float64) Vec3 {
	return Vec3{Clamp(v.X, lo, hi), Clamp(v.Y, lo, hi), Clamp(v.Z, lo, hi)}
}

// MixVec3 interpolates component-wise between a and b by the scalar t.
func MixVec3(a, b Vec3, t float64) Vec3 {
	return Vec3{Mix(a.X, b.X, t), Mix(a.Y, b.Y, t), Mix(a.Z, b.Z, t)}
}
