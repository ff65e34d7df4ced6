package renderer

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	quadPositions = []float32{-1, -1, 1, -1, -1, 1, 1, 1}
	quadTexCoords = []float32{0, 0, 1, 0, 0, 1, 1, 1}
)

type drawFixture struct {
	r        SoftwareRenderer
	dc       DrawCall
	uniforms func(u shader.Uniforms) error
}

func newDrawFixture(t *testing.T, w, h int) *drawFixture {
	t.Helper()
	r := NewSoftwareRenderer(WithWorkers(2), WithBandRows(3), WithSurfaceSize(w, h))
	t.Cleanup(r.Close)

	vs, err := r.CompileShader(shader.QuadVertexShader())
	require.NoError(t, err)
	fs, err := r.CompileShader(shader.NeonFragmentShader())
	require.NoError(t, err)
	prog, err := r.LinkProgram("neon", vs, fs)
	require.NoError(t, err)

	pos, err := r.CreateVertexBuffer("positions", quadPositions)
	require.NoError(t, err)
	tc, err := r.CreateVertexBuffer("texcoords", quadTexCoords)
	require.NoError(t, err)

	loc, err := shader.ResolveUniformLocations(shader.NeonFragmentShader())
	require.NoError(t, err)
	ub, err := r.CreateUniformBuffer("uniforms", loc.Size())
	require.NoError(t, err)
	tex, err := r.CreateTexture("frame")
	require.NoError(t, err)

	f := &drawFixture{
		r: r,
		dc: DrawCall{
			Program:       prog,
			VertexBuffers: []*Resource{pos, tc},
			Uniforms:      ub,
			Texture:       tex,
			VertexCount:   4,
		},
	}
	f.uniforms = func(u shader.Uniforms) error {
		return r.WriteBuffer(ub, loc.Encode(u, nil))
	}
	return f
}

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSoftwareRendererDrawsEveryPixel(t *testing.T) {
	const w, h = 5, 7
	f := newDrawFixture(t, w, h)

	u := shader.Uniforms{
		Resolution:        [2]float32{w, h},
		TextureDimensions: [2]float32{8, 8},
		OutlineBoost:      1.4,
	}
	require.NoError(t, f.uniforms(u))
	require.NoError(t, f.r.UploadTexture(f.dc.Texture, solidImage(8, 8, color.RGBA{R: 128, G: 128, B: 128, A: 255})))
	require.NoError(t, f.r.Draw(f.dc))

	surface := f.r.Surface()
	require.Equal(t, image.Rect(0, 0, w, h), surface.Bounds())
	assert.Equal(t, uint64(1), f.r.Frames())

	for y := range h {
		for x := range w {
			got := surface.RGBAAt(x, y)
			assert.Equal(t, uint8(255), got.A)

			uv := common.Vec2{X: (float64(x) + 0.5) / w, Y: 1 - (float64(y)+0.5)/h}
			scan := 0.05 * math.Sin(uv.Y*h*0.5)
			want := common.Vec3{X: 0.005 + scan, Y: 0.02 + scan, Z: 0.05 + scan}.Max(common.Vec3{})
			assert.InDelta(t, want.X*255, float64(got.R), 1, "pixel %d,%d", x, y)
			assert.InDelta(t, want.Y*255, float64(got.G), 1, "pixel %d,%d", x, y)
			assert.InDelta(t, want.Z*255, float64(got.B), 1, "pixel %d,%d", x, y)
		}
	}
}

func TestSoftwareRendererTextureOrientation(t *testing.T) {
	const w, h = 4, 4
	f := newDrawFixture(t, w, h)

	// Top half red, bottom half blue; chromatic at full strength shows the raw texture.
	img := solidImage(16, 16, color.RGBA{B: 255, A: 255})
	for y := range 8 {
		for x := range 16 {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	require.NoError(t, f.uniforms(shader.Uniforms{
		Resolution:        [2]float32{w, h},
		TextureDimensions: [2]float32{16, 16},
		OutlineBoost:      1.4,
		EffectChromatic:   1,
	}))
	require.NoError(t, f.r.UploadTexture(f.dc.Texture, img))
	require.NoError(t, f.r.Draw(f.dc))

	surface := f.r.Surface()
	top := surface.RGBAAt(0, 0)
	bottom := surface.RGBAAt(0, h-1)
	assert.Greater(t, top.R, top.B)
	assert.Greater(t, bottom.B, bottom.R)
}

func TestSoftwareRendererResize(t *testing.T) {
	r := NewSoftwareRenderer(WithWorkers(1))
	defer r.Close()

	w, h := r.SurfaceSize()
	assert.Zero(t, w)
	assert.Zero(t, h)

	r.Resize(1600, 1200)
	w, h = r.SurfaceSize()
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1200, h)
	assert.Equal(t, image.Rect(0, 0, 1600, 1200), r.Surface().Bounds())
}

func TestSoftwareRendererCompileErrors(t *testing.T) {
	r := NewSoftwareRenderer(WithWorkers(1))
	defer r.Close()

	tests := []struct {
		name string
		s    shader.Shader
		want string
	}{
		{
			name: "missing entry point",
			s:    shader.NewShader("frag", shader.ShaderTypeFragment, "fn helper() -> f32 { return 1.0; }"),
			want: "no entry point",
		},
		{
			name: "unbalanced braces",
			s:    shader.NewShader("frag", shader.ShaderTypeFragment, "@fragment fn fs_main() {"),
			want: "unclosed",
		},
		{
			name: "unknown fragment entry point",
			s:    shader.NewShader("frag", shader.ShaderTypeFragment, "@fragment fn fs_other() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }"),
			want: "fs_other",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.CompileShader(tt.s)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSoftwareRendererLinkErrors(t *testing.T) {
	r := NewSoftwareRenderer(WithWorkers(1))
	defer r.Close()

	vs, err := r.CompileShader(shader.QuadVertexShader())
	require.NoError(t, err)
	fs, err := r.CompileShader(shader.NeonFragmentShader())
	require.NoError(t, err)

	_, err = r.LinkProgram("swapped", fs, vs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want vertex")

	partial, err := r.CompileShader(shader.NewShader("partial", shader.ShaderTypeFragment, `
struct NeonUniforms { u_time: f32, };
@group(0) @binding(0) var<uniform> uniforms: NeonUniforms;
@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(uniforms.u_time); }
`))
	require.NoError(t, err)
	_, err = r.LinkProgram("partial", vs, partial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), shader.UniformGlitch)
	assert.Contains(t, err.Error(), shader.UniformTexture)

	other := NewSoftwareRenderer(WithWorkers(1))
	defer other.Close()
	foreign, err := other.CompileShader(shader.NeonFragmentShader())
	require.NoError(t, err)
	_, err = r.LinkProgram("foreign", vs, foreign)
	assert.ErrorIs(t, err, ErrWrongResource)
}

func TestSoftwareRendererRelease(t *testing.T) {
	f := newDrawFixture(t, 2, 2)

	f.r.Release(f.dc.Texture)
	f.r.Release(f.dc.Texture, nil)
	assert.True(t, f.dc.Texture.Released())

	err := f.r.UploadTexture(f.dc.Texture, solidImage(2, 2, color.RGBA{A: 255}))
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, f.r.Draw(f.dc), ErrReleased)
}

func TestSoftwareRendererShortVertexBuffer(t *testing.T) {
	f := newDrawFixture(t, 2, 2)
	require.NoError(t, f.r.UploadTexture(f.dc.Texture, solidImage(2, 2, color.RGBA{A: 255})))

	dc := f.dc
	dc.VertexCount = 6
	assert.Error(t, f.r.Draw(dc))

	dc = f.dc
	dc.VertexBuffers = dc.VertexBuffers[:1]
	assert.Error(t, f.r.Draw(dc))
}

func TestSoftwareRendererClose(t *testing.T) {
	r := NewSoftwareRenderer(WithWorkers(1))
	require.NoError(t, r.Ready())

	r.Close()
	r.Close()

	assert.ErrorIs(t, r.Ready(), ErrContextUnavailable)
	_, err := r.CreateTexture("late")
	assert.ErrorIs(t, err, ErrContextUnavailable)
}

func TestParseBackendType(t *testing.T) {
	b, err := ParseBackendType("Software")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeSoftware, b)

	b, err = ParseBackendType("gpu")
	require.NoError(t, err)
	assert.Equal(t, BackendTypeWGPU, b)

	_, err = ParseBackendType("vulkan")
	assert.Error(t, err)

	m, err := ParsePresentMode("uncapped")
	require.NoError(t, err)
	assert.Equal(t, PresentModeUncapped, m)
}
