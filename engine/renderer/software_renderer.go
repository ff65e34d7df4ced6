package renderer

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
)

// softwareRenderer is the CPU implementation of the Renderer interface.
// Fragments are evaluated with the CPU reference of the linked fragment stage, split into
// row bands that run on a worker pool.
type softwareRenderer struct {
	mu *sync.Mutex

	surface *image.RGBA
	width   int
	height  int

	pool      worker.DynamicWorkerPool
	workers   int
	bandRows  int
	onPresent func(*image.RGBA)

	frames uint64
	closed bool
}

// SoftwareRenderer is a Renderer that rasterizes on the CPU into an in-memory surface.
type SoftwareRenderer interface {
	Renderer

	// Surface returns a copy of the last presented frame.
	//
	// Returns:
	//   - *image.RGBA: the surface contents, sized to SurfaceSize
	Surface() *image.RGBA

	// Frames returns the number of frames drawn.
	//
	// Returns:
	//   - uint64: the draw count
	Frames() uint64
}

var _ SoftwareRenderer = &softwareRenderer{}

type softwareShader struct {
	shader shader.Shader
}

type softwareProgram struct {
	fragment  shader.FragmentFunc
	locations *shader.UniformLocations
	// attribute indices into DrawCall.VertexBuffers and their component counts
	positionIndex int
	positionWidth int
	texIndex      int
	texWidth      int
}

type softwareBuffer struct {
	floats []float32
	bytes  []byte
}

// NewSoftwareRenderer creates a CPU renderer with its worker pool running.
//
// Parameters:
//   - options: variadic list of SoftwareRendererBuilderOption functions
//
// Returns:
//   - SoftwareRenderer: the renderer
func NewSoftwareRenderer(options ...SoftwareRendererBuilderOption) SoftwareRenderer {
	r := &softwareRenderer{
		mu:       &sync.Mutex{},
		workers:  runtime.NumCPU(),
		bandRows: 16,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.workers <= 0 {
		r.workers = 1
	}
	if r.bandRows <= 0 {
		r.bandRows = 1
	}
	r.pool = worker.NewDynamicWorkerPool(r.workers, 256, 1*time.Second)
	r.resizeLocked(r.width, r.height)
	return r
}

func (r *softwareRenderer) Ready() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("software renderer closed: %w", ErrContextUnavailable)
	}
	return nil
}

func (r *softwareRenderer) CompileShader(s shader.Shader) (*Resource, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("compile: nil shader")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	if s.ShaderType() == shader.ShaderTypeFragment {
		if _, ok := shader.Reference(s.EntryPoint()); !ok {
			return nil, fmt.Errorf("compile: fragment shader %q: no CPU evaluator for entry point %q", s.Key(), s.EntryPoint())
		}
	}
	return NewResource(r, ResourceShader, s.Key(), &softwareShader{shader: s}), nil
}

func (r *softwareRenderer) LinkProgram(label string, vertex, fragment *Resource) (*Resource, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	if err := vertex.Check(r, ResourceShader); err != nil {
		return nil, fmt.Errorf("link %q: %w", label, err)
	}
	if err := fragment.Check(r, ResourceShader); err != nil {
		return nil, fmt.Errorf("link %q: %w", label, err)
	}
	vs := vertex.Handle().(*softwareShader).shader
	fs := fragment.Handle().(*softwareShader).shader

	if vs.ShaderType() != shader.ShaderTypeVertex {
		return nil, fmt.Errorf("link %q: %q is a %s shader, want vertex", label, vs.Key(), vs.ShaderType())
	}
	if fs.ShaderType() != shader.ShaderTypeFragment {
		return nil, fmt.Errorf("link %q: %q is a %s shader, want fragment", label, fs.Key(), fs.ShaderType())
	}

	p := &softwareProgram{positionIndex: -1, texIndex: -1}
	for i, a := range vs.VertexAttributes() {
		switch a.Name {
		case shader.AttributePosition:
			p.positionIndex, p.positionWidth = i, int(a.Size/4)
		case shader.AttributeTexCoord:
			p.texIndex, p.texWidth = i, int(a.Size/4)
		}
	}
	if p.positionIndex < 0 || p.texIndex < 0 || p.positionWidth < 2 || p.texWidth < 2 {
		return nil, fmt.Errorf("link %q: vertex stage %q must declare vec2 attributes %s and %s", label, vs.Key(), shader.AttributePosition, shader.AttributeTexCoord)
	}

	loc, err := shader.ResolveUniformLocations(fs)
	if err != nil {
		return nil, fmt.Errorf("link %q: %w", label, err)
	}
	p.locations = loc
	p.fragment, _ = shader.Reference(fs.EntryPoint())

	return NewResource(r, ResourceProgram, label, p), nil
}

func (r *softwareRenderer) CreateVertexBuffer(label string, data []float32) (*Resource, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	b := &softwareBuffer{floats: append([]float32(nil), data...)}
	return NewResource(r, ResourceVertexBuffer, label, b), nil
}

func (r *softwareRenderer) CreateUniformBuffer(label string, size uint64) (*Resource, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	return NewResource(r, ResourceUniformBuffer, label, &softwareBuffer{bytes: make([]byte, size)}), nil
}

func (r *softwareRenderer) CreateTexture(label string) (*Resource, error) {
	if err := r.Ready(); err != nil {
		return nil, err
	}
	return NewResource(r, ResourceTexture, label, &common.TextureStagingData{}), nil
}

func (r *softwareRenderer) UploadTexture(tex *Resource, img *image.RGBA) error {
	if err := tex.Check(r, ResourceTexture); err != nil {
		return err
	}
	if img == nil {
		return fmt.Errorf("upload %s: nil image", tex)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	common.StageImage(tex.Handle().(*common.TextureStagingData), img, true)
	return nil
}

func (r *softwareRenderer) WriteBuffer(buf *Resource, data []byte) error {
	if err := buf.Check(r, ResourceUniformBuffer); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b := buf.Handle().(*softwareBuffer)
	if len(data) > len(b.bytes) {
		return fmt.Errorf("write %s: %d bytes exceeds buffer size %d", buf, len(data), len(b.bytes))
	}
	copy(b.bytes, data)
	return nil
}

func (r *softwareRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resizeLocked(width, height)
}

func (r *softwareRenderer) resizeLocked(width, height int) {
	width, height = max(width, 0), max(height, 0)
	if r.surface != nil && width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	r.surface = image.NewRGBA(image.Rect(0, 0, width, height))
}

func (r *softwareRenderer) SurfaceSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *softwareRenderer) Draw(dc DrawCall) error {
	if err := r.Ready(); err != nil {
		return err
	}
	if err := dc.Program.Check(r, ResourceProgram); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	if err := dc.Uniforms.Check(r, ResourceUniformBuffer); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	if err := dc.Texture.Check(r, ResourceTexture); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	for _, vb := range dc.VertexBuffers {
		if err := vb.Check(r, ResourceVertexBuffer); err != nil {
			return fmt.Errorf("draw: %w", err)
		}
	}

	p := dc.Program.Handle().(*softwareProgram)
	if p.positionIndex >= len(dc.VertexBuffers) || p.texIndex >= len(dc.VertexBuffers) {
		return fmt.Errorf("draw: program %q needs %d vertex buffers, got %d", dc.Program.Label(), max(p.positionIndex, p.texIndex)+1, len(dc.VertexBuffers))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tris, err := p.assemble(dc)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	u := p.locations.Decode(dc.Uniforms.Handle().(*softwareBuffer).bytes)
	sampler := shader.NewLinearClampSampler(dc.Texture.Handle().(*common.TextureStagingData))

	r.rasterize(tris, func(uv common.Vec2) common.Vec3 {
		return p.fragment(sampler, u, uv)
	})
	r.frames++

	if r.onPresent != nil {
		r.onPresent(r.surface)
	}
	return nil
}

// rasterize clears the surface to opaque black and shades every covered pixel centre,
// one row band per pool task.
func (r *softwareRenderer) rasterize(tris []triangle, shade func(common.Vec2) common.Vec3) {
	w, h := r.width, r.height
	if w == 0 || h == 0 {
		return
	}

	var wg sync.WaitGroup
	taskID := 0
	for y0 := 0; y0 < h; y0 += r.bandRows {
		y1 := min(y0+r.bandRows, h)
		wg.Add(1)
		band := [2]int{y0, y1}
		r.pool.SubmitTask(worker.Task{
			ID:      taskID,
			Payload: band,
			Do: func() (any, error) {
				defer wg.Done()
				r.shadeBand(band[0], band[1], tris, shade)
				return nil, nil
			},
		})
		taskID++
	}
	wg.Wait()
}

func (r *softwareRenderer) shadeBand(y0, y1 int, tris []triangle, shade func(common.Vec2) common.Vec3) {
	w, h := float64(r.width), float64(r.height)
	for y := y0; y < y1; y++ {
		row := r.surface.Pix[y*r.surface.Stride : y*r.surface.Stride+r.width*4]
		ndcY := 1 - (float64(y)+0.5)/h*2
		for x := 0; x < r.width; x++ {
			ndc := common.Vec2{X: (float64(x)+0.5)/w*2 - 1, Y: ndcY}
			c := common.Vec3{}
			for _, t := range tris {
				if uv, ok := t.interpolate(ndc); ok {
					c = shade(uv)
					break
				}
			}
			i := x * 4
			row[i] = toUnorm8(c.X)
			row[i+1] = toUnorm8(c.Y)
			row[i+2] = toUnorm8(c.Z)
			row[i+3] = 255
		}
	}
}

func toUnorm8(v float64) uint8 {
	return uint8(math.Round(common.Clamp(v, 0, 1) * 255))
}

func (r *softwareRenderer) Release(resources ...*Resource) {
	for _, res := range resources {
		if res == nil || res.owner != r {
			continue
		}
		if !res.MarkReleased() {
			continue
		}
		r.mu.Lock()
		switch h := res.handle.(type) {
		case *softwareBuffer:
			h.floats, h.bytes = nil, nil
		case *common.TextureStagingData:
			h.Pixels = nil
		}
		r.mu.Unlock()
	}
}

func (r *softwareRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.pool.Stop()
}

func (r *softwareRenderer) Surface() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := image.NewRGBA(r.surface.Rect)
	copy(out.Pix, r.surface.Pix)
	return out
}

func (r *softwareRenderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// triangle holds clip-space positions and texture coordinates of one strip triangle.
type triangle struct {
	p  [3]common.Vec2
	uv [3]common.Vec2
}

// assemble builds the triangles of a triangle strip from the program's vertex buffers.
func (p *softwareProgram) assemble(dc DrawCall) ([]triangle, error) {
	pos := dc.VertexBuffers[p.positionIndex].Handle().(*softwareBuffer).floats
	tc := dc.VertexBuffers[p.texIndex].Handle().(*softwareBuffer).floats
	if dc.VertexCount*p.positionWidth > len(pos) || dc.VertexCount*p.texWidth > len(tc) {
		return nil, fmt.Errorf("vertex count %d exceeds buffer contents", dc.VertexCount)
	}

	vertex := func(i int) (common.Vec2, common.Vec2) {
		a := pos[i*p.positionWidth:]
		b := tc[i*p.texWidth:]
		return common.Vec2{X: float64(a[0]), Y: float64(a[1])}, common.Vec2{X: float64(b[0]), Y: float64(b[1])}
	}

	var tris []triangle
	for i := 0; i+2 < dc.VertexCount; i++ {
		var t triangle
		for k := range 3 {
			t.p[k], t.uv[k] = vertex(i + k)
		}
		tris = append(tris, t)
	}
	return tris, nil
}

// interpolate returns the barycentric interpolation of the texture coordinates at q when q
// lies inside the triangle, edges included.
func (t triangle) interpolate(q common.Vec2) (common.Vec2, bool) {
	area := edge(t.p[0], t.p[1], t.p[2])
	if area == 0 {
		return common.Vec2{}, false
	}
	w0 := edge(t.p[1], t.p[2], q) / area
	w1 := edge(t.p[2], t.p[0], q) / area
	w2 := edge(t.p[0], t.p[1], q) / area
	if w0 < 0 || w1 < 0 || w2 < 0 {
		return common.Vec2{}, false
	}
	return t.uv[0].Scale(w0).Add(t.uv[1].Scale(w1)).Add(t.uv[2].Scale(w2)), true
}

func edge(a, b, c common.Vec2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
