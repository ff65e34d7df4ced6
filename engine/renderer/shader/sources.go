package shader

import (
	_ "embed"
)

//go:embed assets/quad.wgsl
var quadSource string

//go:embed assets/neon.wgsl
var neonSource string

// Names shared between the WGSL sources and the host code.
const (
	// QuadShaderKey labels the full-viewport quad vertex stage.
	QuadShaderKey = "neon_quad"
	// NeonShaderKey labels the neon stylization fragment stage.
	NeonShaderKey = "neon_fragment"

	// AttributePosition is the clip-space position attribute of the quad.
	AttributePosition = "a_position"
	// AttributeTexCoord is the texture coordinate attribute of the quad.
	AttributeTexCoord = "a_texCoord"

	// UniformBlock is the WGSL struct holding every scalar and vector uniform.
	UniformBlock = "NeonUniforms"
	// UniformTexture is the sampled source texture binding.
	UniformTexture = "u_texture"
	// UniformSampler is the sampler paired with UniformTexture.
	UniformSampler = "u_sampler"

	UniformResolution        = "u_resolution"
	UniformTextureDimensions = "u_textureDimensions"
	UniformTime              = "u_time"
	UniformGlitch            = "u_glitch"
	UniformOutlineBoost      = "u_outlineBoost"
	UniformFireIntensity     = "u_fireIntensity"
	UniformEffectChromatic   = "u_effectChromatic"
	UniformEffectInvert      = "u_effectInvert"
	UniformEffectScanline    = "u_effectScanline"
	UniformEffectPixelate    = "u_effectPixelate"
	UniformEffectVignette    = "u_effectVignette"
	UniformEffectNoise       = "u_effectNoise"
)

// BlockUniformNames lists the members of UniformBlock that must resolve to a location.
var BlockUniformNames = []string{
	UniformResolution,
	UniformTextureDimensions,
	UniformTime,
	UniformGlitch,
	UniformOutlineBoost,
	UniformFireIntensity,
	UniformEffectChromatic,
	UniformEffectInvert,
	UniformEffectScanline,
	UniformEffectPixelate,
	UniformEffectVignette,
	UniformEffectNoise,
}

// QuadVertexShader returns the embedded full-viewport quad vertex stage.
func QuadVertexShader() Shader {
	return NewShader(QuadShaderKey, ShaderTypeVertex, quadSource)
}

// NeonFragmentShader returns the embedded neon stylization fragment stage.
func NeonFragmentShader() Shader {
	return NewShader(NeonShaderKey, ShaderTypeFragment, neonSource)
}
