package window

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the display surface: a platform window whose client area shows the rendered
// frame. Sizes are cached atomically so the render goroutine can read them while the main
// goroutine processes events.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration on the main goroutine.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the key code and whether shift is held
	SetKeyDownCallback(callback func(keyCode uint32, shift bool))

	// SetCharCallback sets the callback for text input.
	//
	// Parameters:
	//   - callback: function receiving the typed character
	SetCharCallback(callback func(r rune))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate and is created by the wgpuglfw bridge from the
	// underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose asks the message loop to stop. It may be called from any goroutine.
	RequestClose()

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls the update callback each iteration.
	ProcessMessages()

	// ClientSize returns the client area size in display points.
	//
	// Returns:
	//   - common.Size: the client size
	ClientSize() common.Size

	// ContentScale returns the device pixel ratio: framebuffer pixels per display point.
	//
	// Returns:
	//   - float64: the device pixel ratio
	ContentScale() float64

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	title string

	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int

	// initial client size in display points
	width  int
	height int

	// clientW, clientH hold the client size in display points; fbW, fbH the framebuffer size
	clientW, clientH atomic.Int64
	fbW, fbH         atomic.Int64
	// scale holds the float64 bits of the device pixel ratio
	scale atomic.Uint64

	closeRequested atomic.Bool

	internalWindow any

	mu        *sync.Mutex
	onUpdate  func()
	onResize  func(width, height int)
	onKeyDown func(keyCode uint32, shift bool)
	onChar    func(r rune)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Must be called from the main goroutine.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the configured window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "neon-cam",
		minWidth:  320,
		minHeight: 180,
		width:     1280,
		height:    720,
		mu:        &sync.Mutex{},
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

// updateSizes stores a new client and framebuffer size and derives the device pixel ratio.
func (w *engineWindow) updateSizes(clientW, clientH, fbW, fbH int, fallbackScale float64) {
	w.clientW.Store(int64(clientW))
	w.clientH.Store(int64(clientH))
	w.fbW.Store(int64(fbW))
	w.fbH.Store(int64(fbH))
	w.scale.Store(math.Float64bits(devicePixelRatio(clientW, fbW, fallbackScale)))
}

// devicePixelRatio is framebuffer pixels per client point, falling back to the platform
// content scale while the window has no area.
func devicePixelRatio(clientW, fbW int, fallback float64) float64 {
	if clientW > 0 && fbW > 0 {
		return float64(fbW) / float64(clientW)
	}
	if fallback > 0 {
		return fallback
	}
	return 1
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32, shift bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onKeyDown = callback
}

func (w *engineWindow) SetCharCallback(callback func(r rune)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChar = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return !w.closeRequested.Load() && platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	w.closeRequested.Store(true)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		w.mu.Lock()
		update := w.onUpdate
		w.mu.Unlock()
		if update != nil {
			update()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) ClientSize() common.Size {
	return common.Size{Width: float64(w.clientW.Load()), Height: float64(w.clientH.Load())}
}

func (w *engineWindow) ContentScale() float64 {
	return math.Float64frombits(w.scale.Load())
}

func (w *engineWindow) Width() int {
	return int(w.fbW.Load())
}

func (w *engineWindow) Height() int {
	return int(w.fbH.Load())
}
