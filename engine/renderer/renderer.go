package renderer

import (
	"errors"
	"image"

	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
)

var (
	// ErrContextUnavailable is returned when no graphics context could be obtained, or when
	// the renderer has been closed.
	ErrContextUnavailable = errors.New("renderer: graphics context unavailable")

	// ErrReleased is returned when a released resource is used.
	ErrReleased = errors.New("renderer: resource released")

	// ErrWrongResource is returned when a resource of the wrong kind or from another renderer is passed.
	ErrWrongResource = errors.New("renderer: wrong resource")
)

// DrawCall describes a single draw of a linked program into the output surface.
type DrawCall struct {
	// Program is a linked program from LinkProgram.
	Program *Resource
	// VertexBuffers holds one buffer per vertex attribute of the program, in location order.
	VertexBuffers []*Resource
	// Uniforms is the uniform buffer bound to the program's uniform block.
	Uniforms *Resource
	// Texture is the sampled texture bound to the program's texture binding.
	Texture *Resource
	// VertexCount is the number of vertices drawn as a triangle strip.
	VertexCount int
}

// Renderer defines the graphics context contract used by the pipeline lifecycle manager.
//
// A Renderer owns every GPU-side object it hands out as a *Resource. Resources are released
// explicitly with Release; releasing a resource twice is a no-op. Every draw targets the
// renderer's single output surface, whose backing size is set with Resize.
type Renderer interface {
	// Ready reports whether the graphics context is usable.
	//
	// Returns:
	//   - error: nil if the context is usable, otherwise an error wrapping ErrContextUnavailable
	Ready() error

	// CompileShader compiles one shader stage.
	//
	// Parameters:
	//   - s: the parsed WGSL shader
	//
	// Returns:
	//   - *Resource: the compiled shader module
	//   - error: an error carrying the compiler diagnostic text if compilation fails
	CompileShader(s shader.Shader) (*Resource, error)

	// LinkProgram links a compiled vertex and fragment stage into a program.
	//
	// Parameters:
	//   - label: a debug label for the program
	//   - vertex: the compiled vertex stage
	//   - fragment: the compiled fragment stage
	//
	// Returns:
	//   - *Resource: the linked program
	//   - error: an error carrying the linker diagnostic text if linking fails
	LinkProgram(label string, vertex, fragment *Resource) (*Resource, error)

	// CreateVertexBuffer creates a static vertex buffer holding one vertex attribute.
	//
	// Parameters:
	//   - label: a debug label for the buffer
	//   - data: the attribute data, tightly packed
	//
	// Returns:
	//   - *Resource: the vertex buffer
	//   - error: an error if the buffer could not be created
	CreateVertexBuffer(label string, data []float32) (*Resource, error)

	// CreateUniformBuffer creates a uniform buffer of the given byte size.
	//
	// Parameters:
	//   - label: a debug label for the buffer
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - *Resource: the uniform buffer
	//   - error: an error if the buffer could not be created
	CreateUniformBuffer(label string, size uint64) (*Resource, error)

	// CreateTexture creates an empty sampled texture with linear filtering and
	// clamp-to-edge addressing. Storage is allocated by the first upload.
	//
	// Parameters:
	//   - label: a debug label for the texture
	//
	// Returns:
	//   - *Resource: the texture
	//   - error: an error if the texture could not be created
	CreateTexture(label string) (*Resource, error)

	// UploadTexture replaces the texture contents with img, reallocating storage when the
	// size changes. Rows are flipped so texture coordinate (0,0) is the image's bottom-left.
	//
	// Parameters:
	//   - tex: the texture to upload into
	//   - img: the source pixels
	//
	// Returns:
	//   - error: an error if the upload fails
	UploadTexture(tex *Resource, img *image.RGBA) error

	// WriteBuffer writes data at offset 0 of a uniform buffer.
	//
	// Parameters:
	//   - buf: the uniform buffer
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write fails
	WriteBuffer(buf *Resource, data []byte) error

	// Resize sets the backing size of the output surface in device pixels.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// SurfaceSize returns the current backing size of the output surface.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	SurfaceSize() (int, int)

	// Draw clears the surface to opaque black, draws dc and presents the result.
	//
	// Parameters:
	//   - dc: the draw description
	//
	// Returns:
	//   - error: an error if any resource is invalid or the frame could not be presented
	Draw(dc DrawCall) error

	// Release frees the given resources. Nil and already released resources are ignored.
	//
	// Parameters:
	//   - resources: the resources to release
	Release(resources ...*Resource)

	// Close releases the graphics context. The renderer is unusable afterwards.
	Close()
}
