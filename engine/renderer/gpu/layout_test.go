package gpu

import (
	"testing"

	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexBufferLayouts(t *testing.T) {
	layouts, ok := vertexBufferLayouts(shader.QuadVertexShader().VertexAttributes())
	require.True(t, ok)
	require.Len(t, layouts, 2)

	for i, l := range layouts {
		assert.Equal(t, uint64(8), l.ArrayStride)
		assert.Equal(t, wgpu.VertexStepModeVertex, l.StepMode)
		require.Len(t, l.Attributes, 1)
		assert.Equal(t, wgpu.VertexFormatFloat32x2, l.Attributes[0].Format)
		assert.Equal(t, uint32(i), l.Attributes[0].ShaderLocation)
	}

	_, ok = vertexBufferLayouts([]shader.VertexAttribute{{Name: "a", Format: "float16x2", Size: 4}})
	assert.False(t, ok)
}

func TestNeonBindGroupLayout(t *testing.T) {
	fs := shader.NeonFragmentShader()
	merged := mergeBindGroupLayouts(
		bindGroupLayouts(shader.QuadVertexShader().Bindings(), wgpu.ShaderStageVertex),
		bindGroupLayouts(fs.Bindings(), wgpu.ShaderStageFragment),
	)
	require.Len(t, merged, 1)

	entries := merged[0].Entries
	require.Len(t, entries, 3)

	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, uint64(56), entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[0].Visibility)

	assert.Equal(t, uint32(1), entries[1].Binding)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, entries[1].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, entries[1].Texture.ViewDimension)

	assert.Equal(t, uint32(2), entries[2].Binding)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[2].Sampler.Type)
}

func TestMergeBindGroupLayoutsOrsVisibility(t *testing.T) {
	ubo := shader.ResourceBinding{Group: 0, Binding: 3, Kind: shader.ResourceUniformBuffer, MinBindingSize: 16}
	tex := shader.ResourceBinding{Group: 1, Binding: 0, Kind: shader.ResourceSampledTexture, ViewDimension: "2d", SampleType: "f32"}

	merged := mergeBindGroupLayouts(
		bindGroupLayouts([]shader.ResourceBinding{ubo}, wgpu.ShaderStageVertex),
		bindGroupLayouts([]shader.ResourceBinding{ubo, tex}, wgpu.ShaderStageFragment),
	)
	require.Len(t, merged, 2)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, merged[0].Entries[0].Visibility)
	assert.Equal(t, wgpu.ShaderStageFragment, merged[1].Entries[0].Visibility)
}

func TestPreferredSurfaceFormat(t *testing.T) {
	tests := []struct {
		name    string
		formats []wgpu.TextureFormat
		want    wgpu.TextureFormat
	}{
		{
			name:    "skips srgb",
			formats: []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb, wgpu.TextureFormatBGRA8Unorm},
			want:    wgpu.TextureFormatBGRA8Unorm,
		},
		{
			name:    "rgba",
			formats: []wgpu.TextureFormat{wgpu.TextureFormatRGBA8UnormSrgb, wgpu.TextureFormatRGBA8Unorm},
			want:    wgpu.TextureFormatRGBA8Unorm,
		},
		{
			name:    "falls back to first",
			formats: []wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float},
			want:    wgpu.TextureFormatRGBA16Float,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preferredSurfaceFormat(tt.formats))
		})
	}
}
