package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding vertex format and byte size
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {"float32", 4},
	"vec2f":     {"float32x2", 8},
	"vec2<f32>": {"float32x2", 8},
	"vec3f":     {"float32x3", 12},
	"vec3<f32>": {"float32x3", 12},
	"vec4f":     {"float32x4", 16},
	"vec4<f32>": {"float32x4", 16},
	"i32":       {"sint32", 4},
	"vec2i":     {"sint32x2", 8},
	"vec2<i32>": {"sint32x2", 8},
	"vec4i":     {"sint32x4", 16},
	"vec4<i32>": {"sint32x4", 16},
	"u32":       {"uint32", 4},
	"vec2u":     {"uint32x2", 8},
	"vec2<u32>": {"uint32x2", 8},
	"vec4u":     {"uint32x4", 16},
	"vec4<u32>": {"uint32x4", 16},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> uniforms: NeonUniforms;
	// or handle types: @group(0) @binding(1) var u_texture: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// parseVertexAttributes extracts the vertex input attributes from WGSL source code.
// It finds all structs that are pure vertex inputs (have @location attributes but no @builtin fields)
// and returns their members sorted by location. Members with unrecognized types are skipped.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []VertexAttribute: the vertex attributes in ascending location order
func parseVertexAttributes(source string) []VertexAttribute {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)

	var attrs []VertexAttribute
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		for _, f := range ps.fields {
			info, ok := wgslVertexFormatMap[f.typeName]
			if !ok || f.location < 0 {
				continue
			}
			attrs = append(attrs, VertexAttribute{
				Name:     f.name,
				Location: f.location,
				Format:   info.format,
				Size:     info.size,
			})
		}
	}

	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].Location < attrs[j].Location
	})
	return attrs
}

// parseBindings extracts all @group(N) @binding(M) resource declarations from WGSL
// source, sorted by group and then binding index.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - []ResourceBinding: the classified resource declarations
func parseBindings(source string) []ResourceBinding {
	cleaned := stripComments(source)

	// Struct sizes give MinBindingSize for buffer bindings.
	structSizes := computeStructSizes(parseStructBlocks(cleaned))

	var out []ResourceBinding
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])

		rb := classifyResource(strings.TrimSpace(match[3]), strings.TrimSpace(match[5]))
		rb.Group = group
		rb.Binding = binding
		rb.Name = strings.TrimSpace(match[4])

		if isBufferKind(rb.Kind) {
			if layout, ok := resolveTypeLayout(rb.Type, structSizes); ok && layout.size > 0 {
				rb.MinBindingSize = layout.size
			}
		}

		out = append(out, rb)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out
}

// parseStructLayouts computes the host-shareable layout of every struct in the source,
// including per-member offsets. Structs with unresolvable members are omitted.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - map[string]StructLayout: layouts keyed by struct name
func parseStructLayouts(source string) map[string]StructLayout {
	structs := parseStructBlocks(stripComments(source))
	sizes := computeStructSizes(structs)

	out := make(map[string]StructLayout, len(sizes))
	for _, ps := range structs {
		if _, ok := sizes[ps.name]; !ok {
			continue
		}
		if layout, ok := computeFieldLayouts(ps, sizes); ok {
			out[ps.name] = layout
		}
	}
	return out
}

// parseEntryPoint extracts the entry point function name for the given shader type
// from WGSL source. Returns an empty string if no matching entry point annotation is found.
//
// Parameters:
//   - source: the raw WGSL source code string
//   - shaderType: the shader type to search for (ShaderTypeVertex or ShaderTypeFragment)
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(source string, shaderType ShaderType) string {
	cleaned := stripComments(source)

	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration
//
// Returns:
//   - []parsedField: all fields found in the struct body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field parsedField

		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}

		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			loc, err := strconv.Atoi(locMatch[1])
			if err == nil {
				field.location = loc
			}
		} else {
			field.location = -1
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])

		fields = append(fields, field)
	}

	return fields
}
