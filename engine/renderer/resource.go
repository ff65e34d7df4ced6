package renderer

import (
	"fmt"
	"sync/atomic"
)

// ResourceKind identifies what a Resource handle refers to.
type ResourceKind int

const (
	// ResourceShader is a compiled shader stage.
	ResourceShader ResourceKind = iota
	// ResourceProgram is a linked vertex + fragment program.
	ResourceProgram
	// ResourceVertexBuffer is a static vertex attribute buffer.
	ResourceVertexBuffer
	// ResourceUniformBuffer is a uniform buffer.
	ResourceUniformBuffer
	// ResourceTexture is a sampled texture.
	ResourceTexture
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceShader:
		return "shader"
	case ResourceProgram:
		return "program"
	case ResourceVertexBuffer:
		return "vertex buffer"
	case ResourceUniformBuffer:
		return "uniform buffer"
	case ResourceTexture:
		return "texture"
	default:
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
}

// Resource is an opaque handle to an object owned by a Renderer.
// The backend object behind it is only meaningful to the renderer that created it.
type Resource struct {
	kind     ResourceKind
	label    string
	owner    any
	handle   any
	released atomic.Bool
}

// NewResource wraps a backend object. It is intended for Renderer implementations.
//
// Parameters:
//   - owner: the renderer creating the resource
//   - kind: the resource kind
//   - label: a debug label
//   - handle: the backend object
//
// Returns:
//   - *Resource: the new handle
func NewResource(owner any, kind ResourceKind, label string, handle any) *Resource {
	return &Resource{owner: owner, kind: kind, label: label, handle: handle}
}

// Kind returns the resource kind.
func (r *Resource) Kind() ResourceKind {
	return r.kind
}

// Label returns the debug label.
func (r *Resource) Label() string {
	return r.label
}

// Handle returns the backend object.
func (r *Resource) Handle() any {
	return r.handle
}

// Released reports whether the resource has been released.
func (r *Resource) Released() bool {
	return r.released.Load()
}

// MarkReleased flags the resource as released. It returns true only for the first call,
// so the caller that receives true is the one that frees the backend object.
func (r *Resource) MarkReleased() bool {
	return r.released.CompareAndSwap(false, true)
}

func (r *Resource) String() string {
	return fmt.Sprintf("%s %q", r.kind, r.label)
}

// Check verifies that r belongs to owner, has the expected kind and is not released.
//
// Parameters:
//   - owner: the renderer performing the check
//   - kind: the expected kind
//
// Returns:
//   - error: nil, or an error wrapping ErrWrongResource or ErrReleased
func (r *Resource) Check(owner any, kind ResourceKind) error {
	if r == nil {
		return fmt.Errorf("nil %s: %w", kind, ErrWrongResource)
	}
	if r.owner != owner || r.kind != kind {
		return fmt.Errorf("%s used as %s: %w", r, kind, ErrWrongResource)
	}
	if r.Released() {
		return fmt.Errorf("%s: %w", r, ErrReleased)
	}
	return nil
}
