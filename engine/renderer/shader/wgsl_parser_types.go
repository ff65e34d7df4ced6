package shader

// VertexFormat names a WGSL vertex attribute format in WebGPU spelling, e.g. "float32x2".
type VertexFormat string

// VertexAttribute describes one vertex input parsed from a vertex input struct.
// Every attribute is fed from its own vertex buffer, so the buffer stride equals Size.
type VertexAttribute struct {
	// Name is the struct member name, e.g. "a_position".
	Name string
	// Location is the @location(N) index.
	Location int
	// Format is the WebGPU vertex format.
	Format VertexFormat
	// Size is the byte size of one element.
	Size uint64
}

// ResourceKind classifies a @group/@binding declaration.
type ResourceKind int

const (
	// ResourceUnknown is a declaration whose type could not be classified.
	ResourceUnknown ResourceKind = iota
	// ResourceUniformBuffer is a var<uniform> buffer binding.
	ResourceUniformBuffer
	// ResourceStorageBuffer is a var<storage, read_write> buffer binding.
	ResourceStorageBuffer
	// ResourceReadOnlyStorageBuffer is a var<storage> or var<storage, read> buffer binding.
	ResourceReadOnlyStorageBuffer
	// ResourceSampledTexture is a texture_* binding read through a sampler.
	ResourceSampledTexture
	// ResourceDepthTexture is a texture_depth_* binding.
	ResourceDepthTexture
	// ResourceStorageTexture is a texture_storage_* binding.
	ResourceStorageTexture
	// ResourceSampler is a filtering sampler binding.
	ResourceSampler
	// ResourceComparisonSampler is a sampler_comparison binding.
	ResourceComparisonSampler
)

// ResourceBinding is a parsed @group(G) @binding(B) var declaration.
type ResourceBinding struct {
	Group   int
	Binding int
	// Name is the WGSL variable name, e.g. "u_texture".
	Name string
	// AddressSpace is the var<...> qualifier, empty for handle types.
	AddressSpace string
	// Type is the declared WGSL type.
	Type string
	Kind ResourceKind
	// ViewDimension is the texture dimension suffix ("2d", "cube", ...) for texture bindings.
	ViewDimension string
	// SampleType is the texel scalar type ("f32", "i32", "u32") for sampled textures.
	SampleType string
	// Multisampled reports a texture_multisampled_* binding.
	Multisampled bool
	// MinBindingSize is the byte size of the bound struct for buffer bindings, 0 if unknown.
	MinBindingSize uint64
}

// FieldLayout is the placement of a struct member inside a host-shareable buffer.
type FieldLayout struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// StructLayout is the computed memory layout of a WGSL struct.
type StructLayout struct {
	Name   string
	Size   uint64
	Align  uint64
	Fields []FieldLayout
}

// Field returns the layout of the named member.
func (l StructLayout) Field(name string) (FieldLayout, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldLayout{}, false
}

// vertexFormatInfo holds the vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format VertexFormat
	size   uint64
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
