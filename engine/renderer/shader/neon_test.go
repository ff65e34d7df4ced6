package shader

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stagedTexture builds tightly packed RGBA data from a colour function of pixel coordinates,
// with y = 0 as the bottom row.
func stagedTexture(w, h int, fn func(x, y int) [3]uint8) *common.TextureStagingData {
	px := make([]byte, w*h*4)
	for y := range h {
		for x := range w {
			c := fn(x, y)
			i := (y*w + x) * 4
			px[i], px[i+1], px[i+2], px[i+3] = c[0], c[1], c[2], 255
		}
	}
	return &common.TextureStagingData{Pixels: px, Width: uint32(w), Height: uint32(h)}
}

func baseUniforms(w, h int) Uniforms {
	return Uniforms{
		Resolution:        [2]float32{float32(w), float32(h)},
		TextureDimensions: [2]float32{float32(w), float32(h)},
		OutlineBoost:      1.4,
	}
}

func colourDistance(a, b common.Vec3) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y) + math.Abs(a.Z-b.Z)
}

func TestReferenceRegistry(t *testing.T) {
	fn, ok := Reference(NeonFragmentShader().EntryPoint())
	require.True(t, ok)
	require.NotNil(t, fn)

	_, ok = Reference("fs_missing")
	assert.False(t, ok)
}

func TestLinearClampSamplerOrientation(t *testing.T) {
	tex := stagedTexture(1, 2, func(_, y int) [3]uint8 {
		if y == 0 {
			return [3]uint8{255, 0, 0}
		}
		return [3]uint8{0, 0, 255}
	})
	s := NewLinearClampSampler(tex)

	assert.Equal(t, common.Vec3{X: 1}, s.Sample(common.Vec2{X: 0.5, Y: 0.25}))
	assert.Equal(t, common.Vec3{Z: 1}, s.Sample(common.Vec2{X: 0.5, Y: 0.75}))
	assert.Equal(t, common.Vec3{X: 1}, s.Sample(common.Vec2{X: -4, Y: -4}))

	mid := s.Sample(common.Vec2{X: 0.5, Y: 0.5})
	assert.InDelta(t, 0.5, mid.X, 1e-9)
	assert.InDelta(t, 0.5, mid.Z, 1e-9)

	assert.Equal(t, common.Vec3{}, NewLinearClampSampler(nil).Sample(common.Vec2{}))
}

func TestNeonFlatTextureIsBackgroundOnly(t *testing.T) {
	tex := NewLinearClampSampler(stagedTexture(32, 32, func(_, _ int) [3]uint8 {
		return [3]uint8{128, 128, 128}
	}))
	u := baseUniforms(32, 32)

	for _, uv := range []common.Vec2{{X: 0.1, Y: 0.1}, {X: 0.5, Y: 0.5}, {X: 0.9, Y: 0.3}} {
		got := Neon(tex, u, uv)
		scan := 0.05 * math.Sin(uv.Y*32*0.5)
		want := backgroundRGB.Add(common.Splat3(scan)).Max(common.Vec3{})
		assert.InDelta(t, want.X, got.X, 1e-9)
		assert.InDelta(t, want.Y, got.Y, 1e-9)
		assert.InDelta(t, want.Z, got.Z, 1e-9)
	}
}

func TestNeonEdgeProducesSilhouette(t *testing.T) {
	tex := NewLinearClampSampler(stagedTexture(16, 16, func(x, _ int) [3]uint8 {
		if x < 8 {
			return [3]uint8{0, 0, 0}
		}
		return [3]uint8{255, 255, 255}
	}))
	u := baseUniforms(16, 16)

	edge := Neon(tex, u, common.Vec2{X: 0.5, Y: 0.5})
	flat := Neon(tex, u, common.Vec2{X: 0.1, Y: 0.5})

	assert.Greater(t, max(edge.X, edge.Y, edge.Z), 0.5)
	assert.Less(t, max(flat.X, flat.Y, flat.Z), 0.15)

	u.FireIntensity = 1
	fire := Neon(tex, u, common.Vec2{X: 0.5, Y: 0.5})
	assert.Less(t, fire.Z, edge.Z-0.3)
}

func TestNeonIsDeterministic(t *testing.T) {
	tex := NewLinearClampSampler(stagedTexture(24, 24, func(x, y int) [3]uint8 {
		return [3]uint8{uint8(x * 10), uint8(y * 10), uint8((x + y) * 5)}
	}))
	u := baseUniforms(24, 24)
	u.Time = 3.25
	u.Glitch = 0.6
	u.FireIntensity = 1
	u.EffectNoise = 1
	u.EffectChromatic = 1

	uv := common.Vec2{X: 0.37, Y: 0.61}
	assert.Equal(t, Neon(tex, u, uv), Neon(tex, u, uv))
}

func TestNeonEffectsChangeOutput(t *testing.T) {
	tex := NewLinearClampSampler(stagedTexture(64, 64, func(x, y int) [3]uint8 {
		return [3]uint8{uint8(x * 4), uint8(y * 4), 128}
	}))
	uv := common.Vec2{X: 0.31, Y: 0.31}

	base := baseUniforms(64, 64)
	base.Time = 1.5

	tests := []struct {
		name   string
		before func(*Uniforms)
		after  func(*Uniforms)
	}{
		{name: "chromatic", after: func(u *Uniforms) { u.EffectChromatic = 1 }},
		{name: "invert", after: func(u *Uniforms) { u.EffectInvert = 1 }},
		{name: "scanline", after: func(u *Uniforms) { u.EffectScanline = 1 }},
		{name: "vignette", after: func(u *Uniforms) { u.EffectVignette = 1 }},
		{name: "noise", after: func(u *Uniforms) { u.EffectNoise = 1 }},
		{
			name:   "pixelate with chromatic",
			before: func(u *Uniforms) { u.EffectChromatic = 1 },
			after:  func(u *Uniforms) { u.EffectChromatic = 1; u.EffectPixelate = 1 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, on := base, base
			if tt.before != nil {
				tt.before(&off)
			}
			tt.after(&on)
			assert.Greater(t, colourDistance(Neon(tex, off, uv), Neon(tex, on, uv)), 1e-4)
		})
	}
}

func TestNeonPixelateAloneLeavesOutputUnchanged(t *testing.T) {
	tex := NewLinearClampSampler(stagedTexture(64, 64, func(x, y int) [3]uint8 {
		return [3]uint8{uint8(x * 4), uint8(y * 4), 128}
	}))
	uv := common.Vec2{X: 0.31, Y: 0.31}
	u := baseUniforms(64, 64)

	without := Neon(tex, u, uv)
	u.EffectPixelate = 1
	assert.Equal(t, without, Neon(tex, u, uv))
}
