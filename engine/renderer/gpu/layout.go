package gpu

import (
	"sort"

	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormatMap maps the reflected vertex format names to their wgpu vertex format.
var vertexFormatMap = map[shader.VertexFormat]wgpu.VertexFormat{
	"float32":   wgpu.VertexFormatFloat32,
	"float32x2": wgpu.VertexFormatFloat32x2,
	"float32x3": wgpu.VertexFormatFloat32x3,
	"float32x4": wgpu.VertexFormatFloat32x4,
	"sint32":    wgpu.VertexFormatSint32,
	"sint32x2":  wgpu.VertexFormatSint32x2,
	"sint32x4":  wgpu.VertexFormatSint32x4,
	"uint32":    wgpu.VertexFormatUint32,
	"uint32x2":  wgpu.VertexFormatUint32x2,
	"uint32x4":  wgpu.VertexFormatUint32x4,
}

// viewDimensionMap maps reflected texture dimension suffixes to their wgpu view dimension.
var viewDimensionMap = map[string]wgpu.TextureViewDimension{
	"1d":         wgpu.TextureViewDimension1D,
	"2d":         wgpu.TextureViewDimension2D,
	"2d_array":   wgpu.TextureViewDimension2DArray,
	"3d":         wgpu.TextureViewDimension3D,
	"cube":       wgpu.TextureViewDimensionCube,
	"cube_array": wgpu.TextureViewDimensionCubeArray,
}

// sampleTypeMap maps WGSL scalar type parameters to their wgpu texture sample type.
var sampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// vertexBufferLayouts builds one vertex buffer layout per attribute, so every attribute is
// fed from its own buffer at the slot equal to its index in location order.
//
// Parameters:
//   - attrs: the reflected vertex attributes, sorted by location
//
// Returns:
//   - []wgpu.VertexBufferLayout: one layout per attribute
//   - bool: false if an attribute format is unsupported
func vertexBufferLayouts(attrs []shader.VertexAttribute) ([]wgpu.VertexBufferLayout, bool) {
	layouts := make([]wgpu.VertexBufferLayout, 0, len(attrs))
	for _, a := range attrs {
		format, ok := vertexFormatMap[a.Format]
		if !ok {
			return nil, false
		}
		layouts = append(layouts, wgpu.VertexBufferLayout{
			ArrayStride: a.Size,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{{
				Format:         format,
				Offset:         0,
				ShaderLocation: uint32(a.Location),
			}},
		})
	}
	return layouts, true
}

// layoutEntry converts a reflected resource binding into a bind group layout entry.
//
// Parameters:
//   - rb: the reflected binding
//   - visibility: the shader stages that access the binding
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the layout entry
func layoutEntry(rb shader.ResourceBinding, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(rb.Binding),
		Visibility: visibility,
	}

	switch rb.Kind {
	case shader.ResourceUniformBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = rb.MinBindingSize
	case shader.ResourceStorageBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		entry.Buffer.MinBindingSize = rb.MinBindingSize
	case shader.ResourceReadOnlyStorageBuffer:
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		entry.Buffer.MinBindingSize = rb.MinBindingSize
	case shader.ResourceSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case shader.ResourceComparisonSampler:
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case shader.ResourceSampledTexture:
		entry.Texture.ViewDimension = viewDimensionMap[rb.ViewDimension]
		entry.Texture.Multisampled = rb.Multisampled
		entry.Texture.SampleType = sampleTypeMap[rb.SampleType]
	case shader.ResourceDepthTexture:
		entry.Texture.ViewDimension = viewDimensionMap[rb.ViewDimension]
		entry.Texture.Multisampled = rb.Multisampled
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
	}

	return entry
}

// bindGroupLayouts groups the reflected bindings of one stage into layout descriptors keyed by group.
//
// Parameters:
//   - bindings: the reflected bindings of the stage
//   - visibility: the stage visibility flag
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
func bindGroupLayouts(bindings []shader.ResourceBinding, visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	out := make(map[int]wgpu.BindGroupLayoutDescriptor)
	for _, rb := range bindings {
		desc := out[rb.Group]
		desc.Entries = append(desc.Entries, layoutEntry(rb, visibility))
		out[rb.Group] = desc
	}
	return out
}

// mergeBindGroupLayouts combines the bind group layout descriptors from the vertex and fragment
// shaders into a unified set of descriptors suitable for a render pipeline layout.
//
// For each group index present in either shader:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one shader are included with their original visibility
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
		for _, e := range vertexLayouts[g].Entries {
			entryMap[e.Binding] = e
		}
		for _, e := range fragmentLayouts[g].Entries {
			if existing, ok := entryMap[e.Binding]; ok {
				existing.Visibility |= e.Visibility
				entryMap[e.Binding] = existing
			} else {
				entryMap[e.Binding] = e
			}
		}

		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
		for _, e := range entryMap {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}

	return merged
}

// preferredSurfaceFormat picks a non-sRGB 8-bit format from the surface capabilities so the
// fragment output is written without a linear-to-sRGB conversion. Falls back to the first format.
//
// Parameters:
//   - formats: the formats supported by the surface
//
// Returns:
//   - wgpu.TextureFormat: the chosen format
func preferredSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, want := range []wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatRGBA8Unorm} {
		for _, f := range formats {
			if f == want {
				return f
			}
		}
	}
	if len(formats) == 0 {
		return wgpu.TextureFormatBGRA8Unorm
	}
	return formats[0]
}
