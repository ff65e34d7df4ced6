package engine

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/neon-cam/engine/profiler"
	"github.com/Carmen-Shannon/neon-cam/engine/window"
	"github.com/sirupsen/logrus"
)

// DefaultRefreshRate is the refresh rate used when none is configured.
const DefaultRefreshRate = 60.0

// FrameCallback is invoked once per display refresh with the refresh timestamp.
type FrameCallback func(now time.Time)

// scheduled is one registered per-refresh callback.
type scheduled struct {
	key       string
	callback  FrameCallback
	cancelled bool
}

// engine implements the Engine interface.
// A single loop goroutine runs every scheduled callback once per refresh, so callbacks never
// run concurrently with each other.
type engine struct {
	mu *sync.Mutex

	callbacks []*scheduled
	byKey     map[string]*scheduled

	refreshRate     float64
	refreshInterval time.Duration
	rateChannel     chan time.Duration

	running bool
	started bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	clock func() time.Time
}

// Engine is the render loop scheduler. It drives per-refresh callbacks keyed by name, such
// as the overlay physics tick and the pipeline render tick, on one loop goroutine.
type Engine interface {
	// Window returns the display window, nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Schedule registers callback to run on every refresh under key. Scheduling an existing
	// key replaces its callback and keeps its position. Callbacks run in registration order.
	//
	// Parameters:
	//   - key: the schedule name
	//   - callback: the function to run each refresh
	Schedule(key string, callback FrameCallback)

	// Cancel stops requesting further refreshes for key. A callback that is already running completes.
	//
	// Parameters:
	//   - key: the schedule name
	//
	// Returns:
	//   - bool: true if key was scheduled
	Cancel(key string) bool

	// Scheduled reports whether key is currently scheduled.
	//
	// Parameters:
	//   - key: the schedule name
	//
	// Returns:
	//   - bool: true if key is scheduled
	Scheduled(key string) bool

	// Step runs one refresh synchronously on the calling goroutine.
	//
	// Parameters:
	//   - now: the refresh timestamp passed to every callback
	Step(now time.Time)

	// SetRefreshRate changes the refresh rate; it takes effect immediately in a running loop.
	//
	// Parameters:
	//   - hz: refreshes per second, values <= 0 select DefaultRefreshRate
	SetRefreshRate(hz float64)

	// RefreshRate returns the configured refresh rate.
	//
	// Returns:
	//   - float64: refreshes per second
	RefreshRate() float64

	// EnableProfiler enables frame-rate and memory statistics logging.
	EnableProfiler()

	// DisableProfiler disables frame-rate and memory statistics logging.
	DisableProfiler()

	// Start launches the loop goroutine and returns immediately. Calling it twice is a no-op.
	Start()

	// Run starts the loop and, with a window, polls window events on the calling goroutine
	// until the window closes. Without a window it blocks until Quit.
	Run()

	// Quit signals the loop to stop. It does not wait, so a callback may call it.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Done returns a channel closed by Quit.
	//
	// Returns:
	//   - <-chan struct{}: the quit channel
	Done() <-chan struct{}
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (window, refresh rate, profiling)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:          &sync.Mutex{},
		byKey:       make(map[string]*scheduled),
		rateChannel: make(chan time.Duration, 1),
		quitChannel: make(chan struct{}),
		profiler:    profiler.NewProfiler(),
		clock:       time.Now,
	}
	e.setRateLocked(DefaultRefreshRate)

	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Schedule(key string, callback FrameCallback) {
	if callback == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.byKey[key]; ok {
		s.callback = callback
		return
	}
	s := &scheduled{key: key, callback: callback}
	e.byKey[key] = s
	e.callbacks = append(e.callbacks, s)
}

func (e *engine) Cancel(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.byKey[key]
	if !ok {
		return false
	}
	s.cancelled = true
	delete(e.byKey, key)
	for i, c := range e.callbacks {
		if c == s {
			e.callbacks = append(e.callbacks[:i], e.callbacks[i+1:]...)
			break
		}
	}
	return true
}

func (e *engine) Scheduled(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.byKey[key]
	return ok
}

func (e *engine) Step(now time.Time) {
	e.mu.Lock()
	batch := append([]*scheduled(nil), e.callbacks...)
	e.mu.Unlock()

	for _, s := range batch {
		// a callback earlier in this refresh may have cancelled or replaced a later one
		e.mu.Lock()
		cancelled, cb := s.cancelled, s.callback
		e.mu.Unlock()
		if cancelled {
			continue
		}
		cb(now)
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}
}

func (e *engine) SetRefreshRate(hz float64) {
	e.mu.Lock()
	interval := e.setRateLocked(hz)
	running := e.running
	e.mu.Unlock()

	if !running {
		return
	}
	// replace any pending update
	select {
	case e.rateChannel <- interval:
	default:
		select {
		case <-e.rateChannel:
		default:
		}
		e.rateChannel <- interval
	}
}

func (e *engine) setRateLocked(hz float64) time.Duration {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	e.refreshRate = hz
	e.refreshInterval = time.Duration(float64(time.Second) / hz)
	return e.refreshInterval
}

func (e *engine) RefreshRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshRate
}

func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) Start() {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.running = true
	interval := e.refreshInterval
	e.mu.Unlock()

	e.wg.Add(1)
	go e.handleLoop(interval)
}

func (e *engine) Run() {
	e.Start()
	defer e.wg.Wait()
	if e.window == nil {
		<-e.quitChannel
		return
	}

	e.window.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			e.window.RequestClose()
		default:
		}
	})
	e.window.ProcessMessages()
	e.Quit()
}

// Quit signals the loop goroutine to exit.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Done() <-chan struct{} {
	return e.quitChannel
}

// signalQuit closes the quit channel to signal the loop to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handleLoop runs Step once per refresh interval until quit, picking up rate changes from
// rateChannel. Recovers from panics in callbacks to avoid crashing the process and signals
// quit on recovery.
func (e *engine) handleLoop(interval time.Duration) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Engine.handleLoop",
				"panic":    r,
			}).Error("Render loop recovered from panic")
			e.signalQuit()
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			e.Step(e.clock())
		case next := <-e.rateChannel:
			ticker.Reset(next)
		}
	}
}
