package shader

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ShaderType identifies the pipeline stage a shader is written for.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// ErrNoEntryPoint is returned by Validate when the source declares no entry point for its stage.
var ErrNoEntryPoint = errors.New("shader: no entry point")

// shader is the implementation of the Shader interface.
// It holds the source together with the reflection data parsed from it.
type shader struct {
	key              string
	source           string
	shaderType       ShaderType
	entryPoint       string
	vertexAttributes []VertexAttribute
	bindings         []ResourceBinding
	structLayouts    map[string]StructLayout
}

// Shader defines the interface for a loaded and parsed WGSL shader. It exposes the shader's
// unique key, source code, entry point, vertex attributes, resource bindings and struct layouts
// needed for program linking and uniform location resolution.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and diagnostics.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType retrieves the stage this shader targets.
	//
	// Returns:
	//   - ShaderType: the shader stage
	ShaderType() ShaderType

	// EntryPoint retrieves the entry point function name for the shader stage.
	//
	// Returns:
	//   - string: the entry point name, or empty if the source declares none
	EntryPoint() string

	// VertexAttributes retrieves the vertex inputs of a vertex shader in location order.
	// Fragment shaders return nil.
	//
	// Returns:
	//   - []VertexAttribute: the parsed vertex attributes
	VertexAttributes() []VertexAttribute

	// Bindings retrieves every @group/@binding declaration sorted by group and binding.
	//
	// Returns:
	//   - []ResourceBinding: the parsed resource bindings
	Bindings() []ResourceBinding

	// Binding looks up a resource binding by its WGSL variable name.
	//
	// Parameters:
	//   - name: the variable name, e.g. "u_texture"
	//
	// Returns:
	//   - ResourceBinding: the binding
	//   - bool: false if no binding has that name
	Binding(name string) (ResourceBinding, bool)

	// StructLayout retrieves the computed memory layout of a struct declared in the source.
	//
	// Parameters:
	//   - name: the struct name
	//
	// Returns:
	//   - StructLayout: the layout including member offsets
	//   - bool: false if the struct is unknown or could not be laid out
	StructLayout(name string) (StructLayout, bool)

	// Validate performs the static checks that can be made without a GPU device: non-empty
	// source, balanced braces and an entry point for the stage. The error text is the diagnostic.
	//
	// Returns:
	//   - error: a descriptive error if the source is unusable
	Validate() error
}

var _ Shader = &shader{}

// NewShader creates a new Shader from WGSL source and parses its reflection data.
//
// Parameters:
//   - key: a unique identifier for the shader, used for labels and diagnostics
//   - shaderType: the stage the shader targets
//   - source: the WGSL source code
//
// Returns:
//   - Shader: a new Shader instance
func NewShader(key string, shaderType ShaderType, source string) Shader {
	s := &shader{
		key:        key,
		shaderType: shaderType,
	}
	s.parseSource(source)
	return s
}

// NewShaderFromPath creates a new Shader by reading WGSL source from a file.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader targets
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: a new Shader instance
//   - error: an error if the file could not be read
func NewShaderFromPath(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", sourcePath, err)
	}
	return NewShader(key, shaderType, string(data)), nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexAttributes() []VertexAttribute {
	return s.vertexAttributes
}

func (s *shader) Bindings() []ResourceBinding {
	return s.bindings
}

func (s *shader) Binding(name string) (ResourceBinding, bool) {
	for _, b := range s.bindings {
		if b.Name == name {
			return b, true
		}
	}
	return ResourceBinding{}, false
}

func (s *shader) StructLayout(name string) (StructLayout, bool) {
	l, ok := s.structLayouts[name]
	return l, ok
}

func (s *shader) Validate() error {
	if strings.TrimSpace(s.source) == "" {
		return fmt.Errorf("%s shader %q: empty source", s.shaderType, s.key)
	}

	cleaned := stripComments(s.source)
	depth := 0
	for i, line := range strings.Split(cleaned, "\n") {
		for _, c := range line {
			switch c {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth < 0 {
				return fmt.Errorf("%s shader %q:%d: unexpected '}'", s.shaderType, s.key, i+1)
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%s shader %q: %d unclosed '{'", s.shaderType, s.key, depth)
	}

	if s.entryPoint == "" {
		return fmt.Errorf("%s shader %q: %w for @%s", s.shaderType, s.key, ErrNoEntryPoint, s.shaderType)
	}
	return nil
}

// parseSource sets the WGSL source and extracts the reflection data appropriate for the
// shader type. Vertex shaders get vertex attributes parsed; every stage gets bindings and
// struct layouts.
func (s *shader) parseSource(source string) {
	s.source = source
	s.entryPoint = parseEntryPoint(source, s.shaderType)
	if s.shaderType == ShaderTypeVertex {
		s.vertexAttributes = parseVertexAttributes(source)
	}
	s.bindings = parseBindings(source)
	s.structLayouts = parseStructLayouts(source)
}
