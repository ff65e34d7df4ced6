package shader

import (
	"math"

	"github.com/Carmen-Shannon/neon-cam/common"
)

// FragmentFunc evaluates a fragment stage on the CPU for a single interpolated texture coordinate.
type FragmentFunc func(tex Sampler, u Uniforms, texCoord common.Vec2) common.Vec3

// references holds the CPU evaluators keyed by fragment entry point.
var references = map[string]FragmentFunc{
	"fs_main": Neon,
}

// Reference looks up the CPU evaluator for a fragment entry point.
//
// Parameters:
//   - entryPoint: the fragment entry point name, e.g. "fs_main"
//
// Returns:
//   - FragmentFunc: the evaluator
//   - bool: false if no evaluator is registered for the entry point
func Reference(entryPoint string) (FragmentFunc, bool) {
	f, ok := references[entryPoint]
	return f, ok
}

var (
	lumaWeights   = common.Vec3{X: 0.299, Y: 0.587, Z: 0.114}
	neonCyan      = common.Vec3{X: 0.0, Y: 0.8, Z: 1.0}
	neonMagenta   = common.Vec3{X: 1.0, Y: 0.0, Z: 0.7}
	neonWhite     = common.Vec3{X: 0.9, Y: 0.95, Z: 1.0}
	backgroundRGB = common.Vec3{X: 0.005, Y: 0.02, Z: 0.05}
	fireLow       = common.Vec3{X: 1.0, Y: 0.32, Z: 0.08}
	fireHigh      = common.Vec3{X: 1.0, Y: 0.82, Z: 0.18}
)

// sobelTaps are the eight neighbour offsets in texels, in tl, tc, tr, ml, mr, bl, bc, br order.
var sobelTaps = [8]common.Vec2{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// Neon is the CPU evaluation of the neon fragment stage. It produces the same colour as
// fs_main in assets/neon.wgsl for the same inputs, before the final clamp to [0,1] that
// happens on store.
//
// Parameters:
//   - tex: the source texture
//   - u: the uniform values for the draw
//   - texCoord: the interpolated quad texture coordinate
//
// Returns:
//   - common.Vec3: the unclamped output colour
func Neon(tex Sampler, u Uniforms, texCoord common.Vec2) common.Vec3 {
	t := float64(u.Time)
	glitch := float64(u.Glitch)
	texel := common.Vec2{X: safeInv(u.TextureDimensions[0]), Y: safeInv(u.TextureDimensions[1])}

	glitchShift := common.Vec2{
		X: math.Sin((texCoord.Y+t*0.45)*18.0) * 0.003 * glitch,
		Y: math.Cos((texCoord.X+t*0.35)*22.0) * 0.002 * glitch,
	}
	sampleUV := texCoord.Add(glitchShift).Clamp(0.001, 0.999)

	var l [8]float64
	for i, off := range sobelTaps {
		l[i] = tex.Sample(sampleUV.Add(texel.Mul(off))).Dot(lumaWeights)
	}
	tl, tc, tr, ml, mr, bl, bc, br := l[0], l[1], l[2], l[3], l[4], l[5], l[6], l[7]

	gx := -tl - 2.0*ml - bl + tr + 2.0*mr + br
	gy := -tl - 2.0*tc - tr + bl + 2.0*bc + br

	edge := math.Hypot(gx, gy)
	silhouette := common.Smoothstep(0.08, 0.35, edge*float64(u.OutlineBoost))

	pulse := 0.5 + 0.5*math.Sin(t*4.0+texCoord.Y*18.0)
	neonBase := common.MixVec3(neonCyan, neonMagenta, texCoord.Y+pulse*0.25)
	neon := common.MixVec3(neonBase, neonWhite, pulse)

	halo := common.Smoothstep(0.02, 0.25, edge*4.0)
	glow := neon.Scale(silhouette).Add(neon.Scale(halo * 0.35))

	resY := float64(u.Resolution[1])
	scanLines := common.Splat3(0.05 * math.Sin((texCoord.Y*resY)*0.5+t*25.0))
	background := backgroundRGB.Add(scanLines)

	fireFlow := math.Sin(texCoord.Y*140.0+t*8.0)*0.5 + 0.5
	fireRipple := math.Sin((texCoord.X+t*0.6)*60.0)*0.5 + 0.5
	fireMask := silhouette*(0.4+0.6*fireFlow) + halo*0.3
	fireMask = fireMask * common.Smoothstep(0.0, 0.3, edge) * float64(u.FireIntensity)

	fireColor := common.MixVec3(fireLow, fireHigh, fireRipple)
	fireColor = fireColor.Scale(0.6 + 0.4*math.Sin(t*12.0+texCoord.Y*90.0))

	effectUV := texCoord
	if u.EffectPixelate > 0 {
		grid := common.Mix(180.0, 32.0, common.Clamp(float64(u.EffectPixelate), 0, 1))
		effectUV = common.Vec2{X: math.Floor(effectUV.X*grid) / grid, Y: math.Floor(effectUV.Y*grid) / grid}
	}

	chromaOffset := common.Vec2{X: 0.003}
	chromaSample := common.Vec3{
		X: tex.Sample(effectUV.Add(chromaOffset).Clamp(0, 1)).X,
		Y: tex.Sample(effectUV.Clamp(0, 1)).Y,
		Z: tex.Sample(effectUV.Sub(chromaOffset).Clamp(0, 1)).Z,
	}

	final := background.Max(glow)
	final = common.MixVec3(final, fireColor, common.Clamp(fireMask, 0, 1))
	final = common.MixVec3(final, chromaSample, float64(u.EffectChromatic))

	if u.EffectScanline > 0 {
		scan := 0.65 + 0.35*math.Sin((texCoord.Y*resY)*1.2+t*35.0)
		final = final.Scale(common.Mix(1.0, scan, float64(u.EffectScanline)))
	}

	if u.EffectVignette > 0 {
		centered := texCoord.Sub(common.Vec2{X: 0.5, Y: 0.5})
		vignette := common.Smoothstep(0.65, 0.2, centered.Length())
		final = final.Scale(common.Mix(1.0, vignette, float64(u.EffectVignette)))
	}

	if u.EffectNoise > 0 {
		seed := texCoord.Scale(t).Dot(common.Vec2{X: 12.9898, Y: 78.233})
		grain := common.Fract(math.Sin(seed) * 43758.5453)
		final = final.Add(common.Splat3((grain - 0.5) * 0.35 * float64(u.EffectNoise)))
	}

	if u.EffectInvert > 0 {
		final = common.MixVec3(final, common.Splat3(1).Sub(final), float64(u.EffectInvert))
	}

	return final
}

func safeInv(v float32) float64 {
	if v == 0 {
		return 0
	}
	return 1 / float64(v)
}
