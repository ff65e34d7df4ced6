package pipeline

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/Carmen-Shannon/neon-cam/engine/capture"
	"github.com/Carmen-Shannon/neon-cam/engine/compositor"
	"github.com/Carmen-Shannon/neon-cam/engine/controls"
	"github.com/Carmen-Shannon/neon-cam/engine/overlay"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
)

// Stage names the setup step a SetupError came from.
type Stage string

const (
	StageContext         Stage = "context"
	StageCompositor      Stage = "compositor"
	StageCompileVertex   Stage = "compile-vertex"
	StageCompileFragment Stage = "compile-fragment"
	StageLink            Stage = "link"
	StageUniforms        Stage = "uniforms"
	StageBuffer          Stage = "buffer"
	StageTexture         Stage = "texture"
)

// QuadVertexCount is the number of vertices of the full-viewport triangle strip.
const QuadVertexCount = 4

var (
	// QuadPositions are the clip-space corners of the full-viewport quad, in strip order.
	QuadPositions = []float32{-1, -1, 1, -1, -1, 1, 1, 1}
	// QuadTexCoords are the texture coordinates matching QuadPositions; (0,0) is the bottom-left.
	QuadTexCoords = []float32{0, 0, 1, 0, 0, 1, 1, 1}
)

// SetupError is the single fatal failure returned by Create. Everything created before the
// failing step has already been released when it is returned.
type SetupError struct {
	// Stage is the step that failed.
	Stage Stage
	// Diagnostic is the compiler, linker or allocator message.
	Diagnostic string
	// Err is the underlying error.
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("pipeline setup failed at %s: %s", e.Stage, e.Diagnostic)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

func setupError(stage Stage, err error) *SetupError {
	return &SetupError{Stage: stage, Diagnostic: err.Error(), Err: err}
}

// Surface is the display surface the pipeline draws into.
type Surface interface {
	// ClientSize returns the displayed size in display points. The overlay stage uses the same space.
	//
	// Returns:
	//   - common.Size: the client size
	ClientSize() common.Size

	// ContentScale returns the device pixel ratio, backing pixels per display point.
	//
	// Returns:
	//   - float64: the device pixel ratio
	ContentScale() float64
}

// FrameSource is the read side of a capture source the render tick pulls from.
type FrameSource interface {
	// Dimensions returns the native frame size, (0, 0) until the first frame.
	Dimensions() (int, int)
	// Frame returns the latest frame or nil.
	Frame() *capture.Frame
}

// handle is the implementation of the Handle interface.
type handle struct {
	mu       *sync.Mutex
	once     sync.Once
	disposed bool

	r       renderer.Renderer
	surface Surface
	source  FrameSource

	compositor compositor.Compositor
	controls   func() controls.Snapshot
	overlay    func() overlay.Snapshot
	clock      func() time.Time
	started    time.Time

	vertexShader   shader.Shader
	fragmentShader shader.Shader

	program   *renderer.Resource
	positions *renderer.Resource
	texCoords *renderer.Resource
	uniforms  *renderer.Resource
	texture   *renderer.Resource
	locations *shader.UniformLocations

	scratch []byte
}

// Handle owns every GPU object of one capture session and draws one frame per Render call.
// Exactly one live handle exists per capture session.
type Handle interface {
	// Render runs one render tick: compose the latest frame, resize the backing store if the
	// display changed, upload the texture, write the uniforms and draw. The tick is skipped
	// while the source reports zero dimensions, and after Dispose.
	//
	// Returns:
	//   - error: an error if the renderer rejected the frame
	Render() error

	// Dispose releases the texture, buffers and program and drops the compositor buffer.
	// It is safe to call more than once.
	Dispose()

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true after Dispose
	Disposed() bool

	// Locations returns the uniform locations resolved at creation.
	//
	// Returns:
	//   - *shader.UniformLocations: the resolved locations
	Locations() *shader.UniformLocations
}

var _ Handle = &handle{}

// Create compiles and links the neon program, builds the quad buffers, the uniform buffer and
// the reusable texture, and resolves every uniform location once. On any failure the
// resources created so far are released and a *SetupError is returned.
//
// Parameters:
//   - r: the graphics context
//   - surface: the display surface
//   - source: the frame source
//   - options: variadic list of PipelineBuilderOption functions
//
// Returns:
//   - Handle: the pipeline handle
//   - error: a *SetupError describing the failed step
func Create(r renderer.Renderer, surface Surface, source FrameSource, options ...PipelineBuilderOption) (Handle, error) {
	h := &handle{
		mu:             &sync.Mutex{},
		r:              r,
		surface:        surface,
		source:         source,
		controls:       func() controls.Snapshot { return controls.Snapshot{Controls: controls.DefaultControlState()} },
		overlay:        func() overlay.Snapshot { return overlay.Snapshot{} },
		clock:          time.Now,
		vertexShader:   shader.QuadVertexShader(),
		fragmentShader: shader.NeonFragmentShader(),
	}
	for _, opt := range options {
		opt(h)
	}

	if r == nil {
		return nil, setupError(StageContext, fmt.Errorf("no graphics context: %w", renderer.ErrContextUnavailable))
	}
	if err := r.Ready(); err != nil {
		return nil, setupError(StageContext, err)
	}
	if h.compositor == nil {
		c, err := compositor.NewCompositor()
		if err != nil {
			return nil, setupError(StageCompositor, err)
		}
		h.compositor = c
	}

	if err := h.build(); err != nil {
		h.releaseResources()
		return nil, err
	}
	h.started = h.clock()
	return h, nil
}

// build creates the GPU objects in order, stopping at the first failure.
func (h *handle) build() error {
	vs, err := h.r.CompileShader(h.vertexShader)
	if err != nil {
		return setupError(StageCompileVertex, err)
	}
	fs, err := h.r.CompileShader(h.fragmentShader)
	if err != nil {
		h.r.Release(vs)
		return setupError(StageCompileFragment, err)
	}

	h.program, err = h.r.LinkProgram("neon", vs, fs)
	// the program keeps what it needs from the stages
	h.r.Release(vs, fs)
	if err != nil {
		return setupError(StageLink, err)
	}

	if h.locations, err = shader.ResolveUniformLocations(h.fragmentShader); err != nil {
		return setupError(StageUniforms, err)
	}

	if h.positions, err = h.r.CreateVertexBuffer(shader.AttributePosition, QuadPositions); err != nil {
		return setupError(StageBuffer, err)
	}
	if h.texCoords, err = h.r.CreateVertexBuffer(shader.AttributeTexCoord, QuadTexCoords); err != nil {
		return setupError(StageBuffer, err)
	}
	if h.uniforms, err = h.r.CreateUniformBuffer(shader.UniformBlock, h.locations.Size()); err != nil {
		return setupError(StageBuffer, err)
	}

	if h.texture, err = h.r.CreateTexture(shader.UniformTexture); err != nil {
		return setupError(StageTexture, err)
	}
	return nil
}

// releaseResources frees every GPU object held by the handle, most recent first.
func (h *handle) releaseResources() {
	h.r.Release(h.texture, h.uniforms, h.texCoords, h.positions, h.program)
	h.texture, h.uniforms, h.texCoords, h.positions, h.program = nil, nil, nil, nil, nil
}

func (h *handle) Render() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil
	}

	w, hgt := h.source.Dimensions()
	if w == 0 || hgt == 0 {
		return nil
	}
	frame := h.source.Frame()
	if frame == nil || frame.Image == nil {
		return nil
	}

	snap := h.controls()
	stage := h.surface.ClientSize()
	buf := h.compositor.Compose(frame.Image, h.overlay(), stage, snap.Effects.Any())

	bw, bh := common.BackingSize(stage, h.surface.ContentScale())
	if sw, sh := h.r.SurfaceSize(); sw != bw || sh != bh {
		h.r.Resize(bw, bh)
	}

	if err := h.r.UploadTexture(h.texture, buf); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	u := h.uniformValues(snap, bw, bh, buf.Bounds())
	h.scratch = h.locations.Encode(u, h.scratch)
	if err := h.r.WriteBuffer(h.uniforms, h.scratch); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := h.r.Draw(renderer.DrawCall{
		Program:       h.program,
		VertexBuffers: []*renderer.Resource{h.positions, h.texCoords},
		Uniforms:      h.uniforms,
		Texture:       h.texture,
		VertexCount:   QuadVertexCount,
	}); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// uniformValues builds the per-draw uniform set.
func (h *handle) uniformValues(snap controls.Snapshot, surfaceW, surfaceH int, tex image.Rectangle) shader.Uniforms {
	c := snap.Controls
	fx := snap.Effects
	return shader.Uniforms{
		Resolution:        [2]float32{float32(surfaceW), float32(surfaceH)},
		TextureDimensions: [2]float32{float32(tex.Dx()), float32(tex.Dy())},
		Time:              float32(h.clock().Sub(h.started).Seconds()),
		Glitch:            float32(c.Glitch),
		OutlineBoost:      float32(c.OutlineBoost),
		FireIntensity:     float32(c.FireIntensity),
		EffectChromatic:   fx.Value(controls.EffectChromatic),
		EffectInvert:      fx.Value(controls.EffectInvert),
		EffectScanline:    fx.Value(controls.EffectScanline),
		EffectPixelate:    fx.Value(controls.EffectPixelate),
		EffectVignette:    fx.Value(controls.EffectVignette),
		EffectNoise:       fx.Value(controls.EffectNoise),
	}
}

func (h *handle) Dispose() {
	h.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.disposed = true
		h.releaseResources()
		h.compositor.Release()
		h.scratch = nil
	})
}

func (h *handle) Disposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

func (h *handle) Locations() *shader.UniformLocations {
	return h.locations
}

// IsSetupError reports whether err is a *SetupError and returns it.
//
// Parameters:
//   - err: the error to inspect
//
// Returns:
//   - *SetupError: the setup error, nil if err is not one
//   - bool: true if err wraps a *SetupError
func IsSetupError(err error) (*SetupError, bool) {
	var se *SetupError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
