// Package gpu implements renderer.Renderer on top of WebGPU.
package gpu

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// gpuRenderer is the WebGPU implementation of the renderer.Renderer interface. It owns the
// instance, adapter, device and the window surface every draw is presented to.
type gpuRenderer struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   renderer.PresentMode
	forceFallback bool

	width  int
	height int
	closed bool
}

var _ renderer.Renderer = &gpuRenderer{}

type gpuShader struct {
	shader shader.Shader
	module *wgpu.ShaderModule
}

type gpuProgram struct {
	pipeline   *wgpu.RenderPipeline
	layout     *wgpu.PipelineLayout
	groups     []*wgpu.BindGroupLayout
	locations  *shader.UniformLocations
	slotCount  int
	bindGroup  *wgpu.BindGroup
	boundView  *wgpu.TextureView
	boundUBO   *wgpu.Buffer
	boundSampl *wgpu.Sampler
}

type gpuBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
}

type gpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	staging common.TextureStagingData
}

// NewRenderer creates a WebGPU renderer presenting to the surface described by surfaceDescriptor.
// The calling goroutine is locked to its OS thread, which must also be the thread that draws.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, typically from wgpuglfw.GetSurfaceDescriptor
//   - options: variadic list of RendererBuilderOption functions
//
// Returns:
//   - renderer.Renderer: the renderer
//   - error: an error wrapping renderer.ErrContextUnavailable if no adapter or device could be obtained
func NewRenderer(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...RendererBuilderOption) (renderer.Renderer, error) {
	runtime.LockOSThread()
	r := &gpuRenderer{
		mu:          &sync.Mutex{},
		presentMode: renderer.PresentModeVSync,
	}
	for _, opt := range options {
		opt(r)
	}

	r.instance = wgpu.CreateInstance(nil)
	if r.instance == nil {
		return nil, fmt.Errorf("create instance: %w", renderer.ErrContextUnavailable)
	}
	r.surface = r.instance.CreateSurface(surfaceDescriptor)
	if r.surface == nil {
		r.instance.Release()
		return nil, fmt.Errorf("create surface: %w", renderer.ErrContextUnavailable)
	}

	a, err := r.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: r.forceFallback,
		CompatibleSurface:    r.surface,
	})
	if err != nil {
		r.releaseContext()
		return nil, fmt.Errorf("request adapter: %v: %w", err, renderer.ErrContextUnavailable)
	}
	r.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Neon Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		r.releaseContext()
		return nil, fmt.Errorf("request device: %v: %w", err, renderer.ErrContextUnavailable)
	}
	r.device = d
	r.queue = d.GetQueue()

	capabilities := r.surface.GetCapabilities(r.adapter)
	if len(capabilities.Formats) == 0 {
		r.releaseContext()
		return nil, fmt.Errorf("surface reports no formats: %w", renderer.ErrContextUnavailable)
	}
	r.surfaceFormat = preferredSurfaceFormat(capabilities.Formats)
	if len(capabilities.AlphaModes) > 0 {
		r.alphaMode = capabilities.AlphaModes[0]
	}

	if r.width > 0 && r.height > 0 {
		r.configureSurface()
	}
	return r, nil
}

// releaseContext frees whatever part of the context has been created.
func (r *gpuRenderer) releaseContext() {
	if r.queue != nil {
		r.queue.Release()
		r.queue = nil
	}
	if r.device != nil {
		r.device.Release()
		r.device = nil
	}
	if r.adapter != nil {
		r.adapter.Release()
		r.adapter = nil
	}
	if r.surface != nil {
		r.surface.Release()
		r.surface = nil
	}
	if r.instance != nil {
		r.instance.Release()
		r.instance = nil
	}
}

func (r *gpuRenderer) configureSurface() {
	mode := wgpu.PresentModeFifo
	if r.presentMode == renderer.PresentModeUncapped {
		mode = wgpu.PresentModeImmediate
	}
	r.surface.Configure(r.adapter, r.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      r.surfaceFormat,
		Width:       uint32(r.width),
		Height:      uint32(r.height),
		PresentMode: mode,
		AlphaMode:   r.alphaMode,
	})
}

func (r *gpuRenderer) Ready() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readyLocked()
}

func (r *gpuRenderer) readyLocked() error {
	if r.closed || r.device == nil {
		return fmt.Errorf("gpu renderer closed: %w", renderer.ErrContextUnavailable)
	}
	return nil
}

func (r *gpuRenderer) CompileShader(s shader.Shader) (*renderer.Resource, error) {
	if s == nil {
		return nil, fmt.Errorf("compile: nil shader")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.readyLocked(); err != nil {
		return nil, err
	}

	module, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", s.Key(), err)
	}
	return renderer.NewResource(r, renderer.ResourceShader, s.Key(), &gpuShader{shader: s, module: module}), nil
}

func (r *gpuRenderer) LinkProgram(label string, vertex, fragment *renderer.Resource) (*renderer.Resource, error) {
	if err := vertex.Check(r, renderer.ResourceShader); err != nil {
		return nil, fmt.Errorf("link %q: %w", label, err)
	}
	if err := fragment.Check(r, renderer.ResourceShader); err != nil {
		return nil, fmt.Errorf("link %q: %w", label, err)
	}
	vs := vertex.Handle().(*gpuShader)
	fs := fragment.Handle().(*gpuShader)

	if vs.shader.ShaderType() != shader.ShaderTypeVertex {
		return nil, fmt.Errorf("link %q: %q is a %s shader, want vertex", label, vs.shader.Key(), vs.shader.ShaderType())
	}
	if fs.shader.ShaderType() != shader.ShaderTypeFragment {
		return nil, fmt.Errorf("link %q: %q is a %s shader, want fragment", label, fs.shader.Key(), fs.shader.ShaderType())
	}

	loc, err := shader.ResolveUniformLocations(fs.shader)
	if err != nil {
		return nil, fmt.Errorf("link %q: %w", label, err)
	}
	if loc.BlockBinding().Group != 0 || loc.TextureBinding().Group != 0 || loc.SamplerBinding().Group != 0 {
		return nil, fmt.Errorf("link %q: uniforms, texture and sampler must share bind group 0", label)
	}

	vertexBuffers, ok := vertexBufferLayouts(vs.shader.VertexAttributes())
	if !ok {
		return nil, fmt.Errorf("link %q: vertex stage %q declares an unsupported attribute format", label, vs.shader.Key())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.readyLocked(); err != nil {
		return nil, err
	}

	merged := mergeBindGroupLayouts(
		bindGroupLayouts(vs.shader.Bindings(), wgpu.ShaderStageVertex),
		bindGroupLayouts(fs.shader.Bindings(), wgpu.ShaderStageFragment),
	)
	maxGroup := -1
	for g := range merged {
		if g > maxGroup {
			maxGroup = g
		}
	}

	p := &gpuProgram{locations: loc, slotCount: len(vertexBuffers)}
	p.groups = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		desc := merged[g]
		desc.Label = fmt.Sprintf("%s group %d", label, g)
		layout, layoutErr := r.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			p.release()
			return nil, fmt.Errorf("link %q: bind group layout %d: %w", label, g, layoutErr)
		}
		p.groups[g] = layout
	}

	p.layout, err = r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: p.groups,
	})
	if err != nil {
		p.release()
		return nil, fmt.Errorf("link %q: %w", label, err)
	}

	p.pipeline, err = r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " Render Pipeline",
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     vs.module,
			EntryPoint: vs.shader.EntryPoint(),
			Buffers:    vertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs.module,
			EntryPoint: fs.shader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    r.surfaceFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleStrip,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.release()
		return nil, fmt.Errorf("link %q: %w", label, err)
	}

	return renderer.NewResource(r, renderer.ResourceProgram, label, p), nil
}

func (r *gpuRenderer) CreateVertexBuffer(label string, data []float32) (*renderer.Resource, error) {
	bytes := common.SliceToBytes(data)
	if len(bytes) == 0 {
		return nil, fmt.Errorf("create vertex buffer %q: no data", label)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.readyLocked(); err != nil {
		return nil, err
	}

	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(bytes)),
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer %q: %w", label, err)
	}
	r.queue.WriteBuffer(buf, 0, bytes)
	return renderer.NewResource(r, renderer.ResourceVertexBuffer, label, &gpuBuffer{buffer: buf, size: uint64(len(bytes))}), nil
}

func (r *gpuRenderer) CreateUniformBuffer(label string, size uint64) (*renderer.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.readyLocked(); err != nil {
		return nil, err
	}

	buf, err := r.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer %q: %w", label, err)
	}
	return renderer.NewResource(r, renderer.ResourceUniformBuffer, label, &gpuBuffer{buffer: buf, size: size}), nil
}

func (r *gpuRenderer) CreateTexture(label string) (*renderer.Resource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.readyLocked(); err != nil {
		return nil, err
	}

	samp, err := r.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", label, err)
	}
	return renderer.NewResource(r, renderer.ResourceTexture, label, &gpuTexture{sampler: samp}), nil
}

func (r *gpuRenderer) UploadTexture(tex *renderer.Resource, img *image.RGBA) error {
	if err := tex.Check(r, renderer.ResourceTexture); err != nil {
		return err
	}
	if img == nil {
		return fmt.Errorf("upload %s: nil image", tex)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.readyLocked(); err != nil {
		return err
	}

	t := tex.Handle().(*gpuTexture)
	prevW, prevH := t.staging.Width, t.staging.Height
	common.StageImage(&t.staging, img, true)
	if t.staging.Width == 0 || t.staging.Height == 0 {
		return fmt.Errorf("upload %s: empty image", tex)
	}

	if t.texture == nil || prevW != t.staging.Width || prevH != t.staging.Height {
		t.releaseStorage()
		created, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:     tex.Label(),
			Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
			Dimension: wgpu.TextureDimension2D,
			Size: wgpu.Extent3D{
				Width:              t.staging.Width,
				Height:             t.staging.Height,
				DepthOrArrayLayers: 1,
			},
			Format:        wgpu.TextureFormatRGBA8Unorm,
			MipLevelCount: 1,
			SampleCount:   1,
		})
		if err != nil {
			return fmt.Errorf("upload %s: %w", tex, err)
		}
		view, err := created.CreateView(nil)
		if err != nil {
			created.Release()
			return fmt.Errorf("upload %s: %w", tex, err)
		}
		t.texture, t.view = created, view
	}

	r.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		t.staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  t.staging.Width * 4,
			RowsPerImage: t.staging.Height,
		},
		&wgpu.Extent3D{
			Width:              t.staging.Width,
			Height:             t.staging.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (r *gpuRenderer) WriteBuffer(buf *renderer.Resource, data []byte) error {
	if err := buf.Check(r, renderer.ResourceUniformBuffer); err != nil {
		return err
	}
	b := buf.Handle().(*gpuBuffer)
	if uint64(len(data)) > b.size {
		return fmt.Errorf("write %s: %d bytes exceeds buffer size %d", buf, len(data), b.size)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.readyLocked(); err != nil {
		return err
	}
	r.queue.WriteBuffer(b.buffer, 0, data)
	return nil
}

func (r *gpuRenderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	width, height = max(width, 0), max(height, 0)
	if width == r.width && height == r.height {
		return
	}
	r.width, r.height = width, height
	if r.closed || r.surface == nil || width == 0 || height == 0 {
		return
	}
	r.configureSurface()
}

func (r *gpuRenderer) SurfaceSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *gpuRenderer) Draw(dc renderer.DrawCall) error {
	if err := dc.Program.Check(r, renderer.ResourceProgram); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	if err := dc.Uniforms.Check(r, renderer.ResourceUniformBuffer); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	if err := dc.Texture.Check(r, renderer.ResourceTexture); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	for _, vb := range dc.VertexBuffers {
		if err := vb.Check(r, renderer.ResourceVertexBuffer); err != nil {
			return fmt.Errorf("draw: %w", err)
		}
	}

	p := dc.Program.Handle().(*gpuProgram)
	if len(dc.VertexBuffers) < p.slotCount {
		return fmt.Errorf("draw: program %q needs %d vertex buffers, got %d", dc.Program.Label(), p.slotCount, len(dc.VertexBuffers))
	}
	t := dc.Texture.Handle().(*gpuTexture)
	ubo := dc.Uniforms.Handle().(*gpuBuffer)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.readyLocked(); err != nil {
		return err
	}
	if r.width == 0 || r.height == 0 {
		return nil
	}
	if t.view == nil {
		return fmt.Errorf("draw: %s has no contents", dc.Texture)
	}
	if err := r.bindLocked(p, ubo.buffer, t); err != nil {
		return fmt.Errorf("draw: %w", err)
	}

	surfaceTexture, err := r.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("draw: acquire surface: %w", err)
	}
	defer surfaceTexture.Release()

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	defer view.Release()

	encoder, err := r.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.bindGroup, nil)
	for slot := 0; slot < p.slotCount; slot++ {
		b := dc.VertexBuffers[slot].Handle().(*gpuBuffer)
		pass.SetVertexBuffer(uint32(slot), b.buffer, 0, wgpu.WholeSize)
	}
	pass.Draw(uint32(dc.VertexCount), 1, 0, 0)
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	defer commandBuffer.Release()

	r.queue.Submit(commandBuffer)
	r.surface.Present()
	return nil
}

// bindLocked rebuilds the program's bind group when the bound buffer, texture view or sampler changed.
func (r *gpuRenderer) bindLocked(p *gpuProgram, ubo *wgpu.Buffer, t *gpuTexture) error {
	if p.bindGroup != nil && p.boundUBO == ubo && p.boundView == t.view && p.boundSampl == t.sampler {
		return nil
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}

	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Neon Bind Group",
		Layout: p.groups[0],
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: uint32(p.locations.BlockBinding().Binding),
				Buffer:  ubo,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
			{
				Binding:     uint32(p.locations.TextureBinding().Binding),
				TextureView: t.view,
			},
			{
				Binding: uint32(p.locations.SamplerBinding().Binding),
				Sampler: t.sampler,
			},
		},
	})
	if err != nil {
		return err
	}
	p.bindGroup, p.boundUBO, p.boundView, p.boundSampl = bg, ubo, t.view, t.sampler
	return nil
}

func (r *gpuRenderer) Release(resources ...*renderer.Resource) {
	for _, res := range resources {
		if res == nil || res.Check(r, res.Kind()) != nil {
			continue
		}
		if !res.MarkReleased() {
			continue
		}
		r.mu.Lock()
		switch h := res.Handle().(type) {
		case *gpuShader:
			h.module.Release()
			h.module = nil
		case *gpuProgram:
			h.release()
		case *gpuBuffer:
			h.buffer.Release()
			h.buffer = nil
		case *gpuTexture:
			h.releaseStorage()
			if h.sampler != nil {
				h.sampler.Release()
				h.sampler = nil
			}
		}
		r.mu.Unlock()
	}
}

func (r *gpuRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.releaseContext()
}

func (p *gpuProgram) release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for i, g := range p.groups {
		if g != nil {
			g.Release()
			p.groups[i] = nil
		}
	}
}

func (t *gpuTexture) releaseStorage() {
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}
