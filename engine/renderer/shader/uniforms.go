package shader

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unsafe"
)

// Uniforms is the host-side copy of every per-draw parameter of the neon program.
type Uniforms struct {
	// Resolution is the output surface size in backing pixels.
	Resolution [2]float32
	// TextureDimensions is the source texture size in pixels.
	TextureDimensions [2]float32
	// Time is the elapsed time in seconds.
	Time float32

	Glitch        float32
	OutlineBoost  float32
	FireIntensity float32

	EffectChromatic float32
	EffectInvert    float32
	EffectScanline  float32
	EffectPixelate  float32
	EffectVignette  float32
	EffectNoise     float32
}

// field returns a pointer to the storage of the named uniform as a float32 slice view.
func (u *Uniforms) field(name string) []float32 {
	switch name {
	case UniformResolution:
		return u.Resolution[:]
	case UniformTextureDimensions:
		return u.TextureDimensions[:]
	case UniformTime:
		return unsafe.Slice(&u.Time, 1)
	case UniformGlitch:
		return unsafe.Slice(&u.Glitch, 1)
	case UniformOutlineBoost:
		return unsafe.Slice(&u.OutlineBoost, 1)
	case UniformFireIntensity:
		return unsafe.Slice(&u.FireIntensity, 1)
	case UniformEffectChromatic:
		return unsafe.Slice(&u.EffectChromatic, 1)
	case UniformEffectInvert:
		return unsafe.Slice(&u.EffectInvert, 1)
	case UniformEffectScanline:
		return unsafe.Slice(&u.EffectScanline, 1)
	case UniformEffectPixelate:
		return unsafe.Slice(&u.EffectPixelate, 1)
	case UniformEffectVignette:
		return unsafe.Slice(&u.EffectVignette, 1)
	case UniformEffectNoise:
		return unsafe.Slice(&u.EffectNoise, 1)
	default:
		return nil
	}
}

// UniformLocations maps every uniform name to where it lives: the members of the uniform
// block map to byte offsets, the texture and sampler map to bindings.
type UniformLocations struct {
	block   ResourceBinding
	layout  StructLayout
	texture ResourceBinding
	sampler ResourceBinding
	fields  map[string]FieldLayout
}

// ResolveUniformLocations resolves every required uniform of the program once.
// All missing names are reported together.
//
// Parameters:
//   - fragment: the fragment stage declaring the uniform block, texture and sampler
//
// Returns:
//   - *UniformLocations: the resolved locations
//   - error: an error listing every name that could not be resolved
func ResolveUniformLocations(fragment Shader) (*UniformLocations, error) {
	var missing []string
	l := &UniformLocations{fields: make(map[string]FieldLayout, len(BlockUniformNames))}

	block, ok := findUniformBlock(fragment)
	if !ok {
		missing = append(missing, UniformBlock)
	} else {
		l.block = block
		l.layout, ok = fragment.StructLayout(UniformBlock)
		if !ok {
			missing = append(missing, UniformBlock)
		}
	}

	for _, name := range BlockUniformNames {
		f, ok := l.layout.Field(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		l.fields[name] = f
	}

	if l.texture, ok = fragment.Binding(UniformTexture); !ok || l.texture.Kind != ResourceSampledTexture {
		missing = append(missing, UniformTexture)
	}
	if l.sampler, ok = fragment.Binding(UniformSampler); !ok || l.sampler.Kind != ResourceSampler {
		missing = append(missing, UniformSampler)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("unresolved uniforms in %q: %s", fragment.Key(), strings.Join(missing, ", "))
	}
	return l, nil
}

// findUniformBlock returns the uniform buffer binding whose type is UniformBlock.
func findUniformBlock(s Shader) (ResourceBinding, bool) {
	for _, b := range s.Bindings() {
		if b.Kind == ResourceUniformBuffer && b.Type == UniformBlock {
			return b, true
		}
	}
	return ResourceBinding{}, false
}

// Size returns the byte size of the uniform block.
func (l *UniformLocations) Size() uint64 {
	return l.layout.Size
}

// Location returns the layout of a uniform block member.
func (l *UniformLocations) Location(name string) (FieldLayout, bool) {
	f, ok := l.fields[name]
	return f, ok
}

// BlockBinding returns the binding of the uniform buffer.
func (l *UniformLocations) BlockBinding() ResourceBinding {
	return l.block
}

// TextureBinding returns the binding of u_texture.
func (l *UniformLocations) TextureBinding() ResourceBinding {
	return l.texture
}

// SamplerBinding returns the binding of u_sampler.
func (l *UniformLocations) SamplerBinding() ResourceBinding {
	return l.sampler
}

// Encode writes u into dst at the resolved offsets, little endian, growing dst to the
// block size when needed.
//
// Parameters:
//   - u: the uniform values
//   - dst: the destination buffer, may be nil
//
// Returns:
//   - []byte: the encoded uniform block
func (l *UniformLocations) Encode(u Uniforms, dst []byte) []byte {
	size := int(l.layout.Size)
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	clear(dst)

	for name, f := range l.fields {
		for i, v := range u.field(name) {
			off := int(f.Offset) + i*4
			if off+4 > int(f.Offset+f.Size) {
				break
			}
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
		}
	}
	return dst
}

// Decode reads a uniform block produced by Encode.
//
// Parameters:
//   - b: the encoded uniform block
//
// Returns:
//   - Uniforms: the decoded values; members beyond len(b) stay zero
func (l *UniformLocations) Decode(b []byte) Uniforms {
	var u Uniforms
	for name, f := range l.fields {
		dst := u.field(name)
		for i := range dst {
			off := int(f.Offset) + i*4
			if off+4 > len(b) || off+4 > int(f.Offset+f.Size) {
				break
			}
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
		}
	}
	return u
}
