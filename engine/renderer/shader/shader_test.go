package shader

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadVertexShaderReflection(t *testing.T) {
	vs := QuadVertexShader()
	require.NoError(t, vs.Validate())

	assert.Equal(t, ShaderTypeVertex, vs.ShaderType())
	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, []VertexAttribute{
		{Name: AttributePosition, Location: 0, Format: "float32x2", Size: 8},
		{Name: AttributeTexCoord, Location: 1, Format: "float32x2", Size: 8},
	}, vs.VertexAttributes())
	assert.Empty(t, vs.Bindings())
}

func TestNeonFragmentShaderReflection(t *testing.T) {
	fs := NeonFragmentShader()
	require.NoError(t, fs.Validate())

	assert.Equal(t, "fs_main", fs.EntryPoint())
	assert.Nil(t, fs.VertexAttributes())

	bindings := fs.Bindings()
	require.Len(t, bindings, 3)

	assert.Equal(t, "uniforms", bindings[0].Name)
	assert.Equal(t, ResourceUniformBuffer, bindings[0].Kind)
	assert.Equal(t, UniformBlock, bindings[0].Type)
	assert.Equal(t, uint64(56), bindings[0].MinBindingSize)

	assert.Equal(t, UniformTexture, bindings[1].Name)
	assert.Equal(t, ResourceSampledTexture, bindings[1].Kind)
	assert.Equal(t, "2d", bindings[1].ViewDimension)
	assert.Equal(t, "f32", bindings[1].SampleType)
	assert.Equal(t, 1, bindings[1].Binding)

	assert.Equal(t, UniformSampler, bindings[2].Name)
	assert.Equal(t, ResourceSampler, bindings[2].Kind)
	assert.Equal(t, 2, bindings[2].Binding)
}

func TestResolveUniformLocations(t *testing.T) {
	loc, err := ResolveUniformLocations(NeonFragmentShader())
	require.NoError(t, err)
	assert.Equal(t, uint64(56), loc.Size())

	offsets := map[string]uint64{
		UniformResolution:        0,
		UniformTextureDimensions: 8,
		UniformTime:              16,
		UniformGlitch:            20,
		UniformOutlineBoost:      24,
		UniformFireIntensity:     28,
		UniformEffectChromatic:   32,
		UniformEffectInvert:      36,
		UniformEffectScanline:    40,
		UniformEffectPixelate:    44,
		UniformEffectVignette:    48,
		UniformEffectNoise:       52,
	}
	for name, want := range offsets {
		f, ok := loc.Location(name)
		require.True(t, ok, name)
		assert.Equal(t, want, f.Offset, name)
	}

	assert.Equal(t, 0, loc.BlockBinding().Binding)
	assert.Equal(t, 1, loc.TextureBinding().Binding)
	assert.Equal(t, 2, loc.SamplerBinding().Binding)
}

func TestResolveUniformLocationsReportsEveryMissingName(t *testing.T) {
	src := `
struct NeonUniforms {
    u_resolution: vec2<f32>,
    u_time: f32,
};
@group(0) @binding(0) var<uniform> uniforms: NeonUniforms;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(uniforms.u_time);
}
`
	_, err := ResolveUniformLocations(NewShader("partial", ShaderTypeFragment, src))
	require.Error(t, err)
	for _, name := range []string{UniformGlitch, UniformEffectNoise, UniformTexture, UniformSampler} {
		assert.Contains(t, err.Error(), name)
	}
	assert.NotContains(t, err.Error(), UniformTime+",")
}

func TestUniformsEncodeDecode(t *testing.T) {
	loc, err := ResolveUniformLocations(NeonFragmentShader())
	require.NoError(t, err)

	u := Uniforms{
		Resolution:        [2]float32{1600, 1200},
		TextureDimensions: [2]float32{1280, 720},
		Time:              2.5,
		Glitch:            0.22,
		OutlineBoost:      1.4,
		FireIntensity:     1,
		EffectChromatic:   1,
		EffectNoise:       1,
	}
	b := loc.Encode(u, nil)
	require.Len(t, b, 56)

	assert.Equal(t, math.Float32bits(1600), binary.LittleEndian.Uint32(b[0:]))
	assert.Equal(t, math.Float32bits(720), binary.LittleEndian.Uint32(b[12:]))
	assert.Equal(t, math.Float32bits(2.5), binary.LittleEndian.Uint32(b[16:]))
	assert.Equal(t, math.Float32bits(1), binary.LittleEndian.Uint32(b[52:]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(b[36:]))

	assert.Equal(t, u, loc.Decode(b))

	reused := loc.Encode(Uniforms{Time: 1}, b)
	assert.Same(t, &b[0], &reused[0])
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(reused[0:]))
}

func TestUniformsScalarFieldsUseOwnLocation(t *testing.T) {
	loc, err := ResolveUniformLocations(NeonFragmentShader())
	require.NoError(t, err)

	tests := []struct {
		name string
		set  func(u *Uniforms)
		get  func(u Uniforms) float32
	}{
		{UniformTime, func(u *Uniforms) { u.Time = 7 }, func(u Uniforms) float32 { return u.Time }},
		{UniformGlitch, func(u *Uniforms) { u.Glitch = 7 }, func(u Uniforms) float32 { return u.Glitch }},
		{UniformOutlineBoost, func(u *Uniforms) { u.OutlineBoost = 7 }, func(u Uniforms) float32 { return u.OutlineBoost }},
		{UniformFireIntensity, func(u *Uniforms) { u.FireIntensity = 7 }, func(u Uniforms) float32 { return u.FireIntensity }},
		{UniformEffectChromatic, func(u *Uniforms) { u.EffectChromatic = 7 }, func(u Uniforms) float32 { return u.EffectChromatic }},
		{UniformEffectInvert, func(u *Uniforms) { u.EffectInvert = 7 }, func(u Uniforms) float32 { return u.EffectInvert }},
		{UniformEffectScanline, func(u *Uniforms) { u.EffectScanline = 7 }, func(u Uniforms) float32 { return u.EffectScanline }},
		{UniformEffectPixelate, func(u *Uniforms) { u.EffectPixelate = 7 }, func(u Uniforms) float32 { return u.EffectPixelate }},
		{UniformEffectVignette, func(u *Uniforms) { u.EffectVignette = 7 }, func(u Uniforms) float32 { return u.EffectVignette }},
		{UniformEffectNoise, func(u *Uniforms) { u.EffectNoise = 7 }, func(u Uniforms) float32 { return u.EffectNoise }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, ok := loc.Location(tt.name)
			require.True(t, ok)

			var u Uniforms
			tt.set(&u)
			b := loc.Encode(u, nil)
			for off := uint64(0); off < uint64(len(b)); off += 4 {
				want := uint32(0)
				if off == field.Offset {
					want = math.Float32bits(7)
				}
				assert.Equal(t, want, binary.LittleEndian.Uint32(b[off:]), "offset %d", off)
			}

			decoded := loc.Decode(b)
			assert.Equal(t, float32(7), tt.get(decoded))
			assert.Equal(t, u, decoded)
		})
	}
}

func TestValidateDiagnostics(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "empty", source: "  \n", want: "empty source"},
		{name: "unclosed", source: "@fragment fn fs_main() -> @location(0) vec4<f32> {", want: "unclosed"},
		{name: "stray close", source: "}\n@fragment fn fs_main() {}", want: ":1: unexpected"},
		{name: "no entry", source: "fn helper() -> f32 { return 1.0; }", want: "no entry point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewShader("bad", ShaderTypeFragment, tt.source).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	err := NewShader("bad", ShaderTypeFragment, "fn helper() {}").Validate()
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestNewShaderFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(quadSource), 0o600))

	s, err := NewShaderFromPath("quad", ShaderTypeVertex, path)
	require.NoError(t, err)
	assert.Equal(t, "vs_main", s.EntryPoint())

	_, err = NewShaderFromPath("missing", ShaderTypeVertex, filepath.Join(t.TempDir(), "nope.wgsl"))
	assert.Error(t, err)
}
