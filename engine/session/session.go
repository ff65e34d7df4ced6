// Package session is the capture-session controller: it opens a frame source, waits for
// the first frame without blocking the render loop, creates the pipeline handle and keeps
// exactly one live handle for as long as the session runs.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/neon-cam/engine"
	"github.com/Carmen-Shannon/neon-cam/engine/capture"
	"github.com/Carmen-Shannon/neon-cam/engine/compositor"
	"github.com/Carmen-Shannon/neon-cam/engine/controls"
	"github.com/Carmen-Shannon/neon-cam/engine/overlay"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/pipeline"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrRunning is returned by Start while the session is already running.
var ErrRunning = errors.New("session: already running")

// Status is the user-visible state of a capture session.
type Status int

const (
	// StatusIdle is the state before the first Start.
	StatusIdle Status = iota
	// StatusStarting is the state while the capture source is being opened.
	StatusStarting
	// StatusWaitingForFrames is the state until the source reports nonzero dimensions.
	StatusWaitingForFrames
	// StatusLive is the state while the pipeline renders.
	StatusLive
	// StatusError is the state after a fatal capture or setup error.
	StatusError
	// StatusStopped is the state after Stop.
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusWaitingForFrames:
		return "waiting-for-frames"
	case StatusLive:
		return "live"
	case StatusError:
		return "error"
	case StatusStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// SourceFactory opens a fresh frame source for each Start.
type SourceFactory func() (capture.FrameSource, error)

// session is the implementation of the Session interface.
type session struct {
	mu *sync.Mutex
	id string

	engine     engine.Engine
	renderer   renderer.Renderer
	surface    pipeline.Surface
	newSource  SourceFactory
	controls   controls.Store
	overlay    overlay.Overlay
	compositor compositor.Compositor

	overlayOptions  []overlay.OverlayBuilderOption
	pipelineOptions []pipeline.PipelineBuilderOption
	onError         func(error)

	status  Status
	err     error
	running bool
	source  capture.FrameSource
	handle  pipeline.Handle
	cancel  context.CancelFunc
	// generation invalidates callbacks scheduled by an earlier Start
	generation uint64
}

// Session owns the capture source, the controls store, the overlay physics and the engine
// schedules of one capture session.
type Session interface {
	// ID returns the session identifier.
	//
	// Returns:
	//   - string: a UUID
	ID() string

	// Start opens a fresh capture source and schedules a non-blocking wait for its first
	// frame, after which the pipeline is created and the render tick scheduled.
	//
	// Parameters:
	//   - ctx: the capture lifetime
	//
	// Returns:
	//   - error: ErrRunning, or the error that prevented the source from opening
	Start(ctx context.Context) error

	// Stop cancels the wait and render ticks, disposes the pipeline handle and closes the
	// source. The physics tick follows the overlay text only. It is idempotent.
	Stop()

	// Restart stops the session and starts it again with a fresh source and handle.
	//
	// Parameters:
	//   - ctx: the capture lifetime
	//
	// Returns:
	//   - error: the error returned by Start
	Restart(ctx context.Context) error

	// Status returns the current session status.
	//
	// Returns:
	//   - Status: the status
	Status() Status

	// Err returns the fatal error that moved the session to StatusError.
	//
	// Returns:
	//   - error: the error, nil otherwise
	Err() error

	// OnError sets the callback invoked with fatal setup and capture errors.
	//
	// Parameters:
	//   - fn: the callback, called from the render loop goroutine
	OnError(fn func(error))

	// Controls returns the control surface store.
	//
	// Returns:
	//   - controls.Store: the store
	Controls() controls.Store

	// Overlay returns the overlay physics.
	//
	// Returns:
	//   - overlay.Overlay: the overlay
	Overlay() overlay.Overlay

	// Handle returns the live pipeline handle, nil when not live.
	//
	// Returns:
	//   - pipeline.Handle: the handle
	Handle() pipeline.Handle

	// AppendText adds one character to the overlay text.
	//
	// Parameters:
	//   - r: the character
	AppendText(r rune)

	// Backspace removes the last character of the overlay text.
	Backspace()

	// SetText replaces the overlay text; the empty string clears it.
	//
	// Parameters:
	//   - text: the new text
	SetText(text string)

	// SetScale sets the overlay text scale, clamped to [0.6, 2].
	//
	// Parameters:
	//   - scale: the new scale
	SetScale(scale float64)
}

var _ Session = &session{}

// NewSession creates an idle session.
//
// Parameters:
//   - e: the render loop scheduler
//   - r: the graphics context
//   - surface: the display surface
//   - newSource: opens a capture source on each Start
//   - options: variadic list of SessionBuilderOption functions
//
// Returns:
//   - Session: the session
//   - error: an error if the default compositor could not be created
func NewSession(e engine.Engine, r renderer.Renderer, surface pipeline.Surface, newSource SourceFactory, options ...SessionBuilderOption) (Session, error) {
	s := &session{
		mu:        &sync.Mutex{},
		id:        uuid.New().String(),
		engine:    e,
		renderer:  r,
		surface:   surface,
		newSource: newSource,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.controls == nil {
		s.controls = controls.NewDefaultStore()
	}
	if s.compositor == nil {
		c, err := compositor.NewCompositor()
		if err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
		s.compositor = c
	}

	ovOpts := append([]overlay.OverlayBuilderOption{
		overlay.WithMeasurer(s.compositor.MeasureText),
	}, s.overlayOptions...)
	ovOpts = append(ovOpts, overlay.WithStateChange(s.overlayStateChanged))
	s.overlay = overlay.NewOverlay(surface.ClientSize, ovOpts...)

	return s, nil
}

func (s *session) key(name string) string {
	return "session/" + s.id + "/" + name
}

func (s *session) ID() string {
	return s.id
}

func (s *session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	s.generation++
	gen := s.generation
	s.status = StatusStarting
	s.err = nil
	s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"function":   "Session.Start",
		"session_id": s.id,
	})
	log.Info("Starting capture session")

	src, err := s.newSource()
	if err != nil {
		err = fmt.Errorf("open capture source: %w", err)
		s.fail(gen, err)
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	if err := src.Start(ctx); err != nil {
		cancel()
		s.release(nil, src, nil)
		err = fmt.Errorf("open capture source: %w", err)
		s.fail(gen, err)
		return err
	}

	s.mu.Lock()
	if s.generation != gen {
		// stopped while opening
		s.mu.Unlock()
		s.release(nil, src, cancel)
		return nil
	}
	s.source, s.cancel = src, cancel
	s.status = StatusWaitingForFrames
	s.mu.Unlock()

	s.engine.Schedule(s.key("wait"), func(time.Time) { s.waitForFrames(gen, src) })
	return nil
}

// waitForFrames runs once per refresh until the source reports nonzero dimensions, then
// creates the pipeline handle.
func (s *session) waitForFrames(gen uint64, src capture.FrameSource) {
	if w, h := src.Dimensions(); w == 0 || h == 0 {
		select {
		case <-src.Done():
			s.engine.Cancel(s.key("wait"))
			err := src.Err()
			if err == nil {
				err = errors.New("capture source ended before the first frame")
			}
			s.fail(gen, err)
		default:
		}
		return
	}
	s.engine.Cancel(s.key("wait"))

	opts := append([]pipeline.PipelineBuilderOption{
		pipeline.WithControls(s.controls.Snapshot),
		pipeline.WithOverlay(s.overlay.Snapshot),
		pipeline.WithCompositor(s.compositor),
	}, s.pipelineOptions...)

	h, err := pipeline.Create(s.renderer, s.surface, src, opts...)
	if err != nil {
		s.fail(gen, err)
		return
	}

	s.mu.Lock()
	if s.generation != gen || !s.running {
		s.mu.Unlock()
		h.Dispose()
		return
	}
	s.handle = h
	s.status = StatusLive
	s.mu.Unlock()

	w, hgt := src.Dimensions()
	logrus.WithFields(logrus.Fields{
		"function":   "Session.waitForFrames",
		"session_id": s.id,
		"width":      w,
		"height":     hgt,
	}).Info("First frame received, pipeline live")

	var lastErr string
	s.engine.Schedule(s.key("render"), func(time.Time) {
		if err := h.Render(); err != nil && err.Error() != lastErr {
			lastErr = err.Error()
			logrus.WithFields(logrus.Fields{
				"function":   "Session.render",
				"session_id": s.id,
				"error":      err,
			}).Warn("Frame render failed")
		}
		select {
		case <-src.Done():
			if err := src.Err(); err != nil {
				s.engine.Cancel(s.key("render"))
				s.fail(gen, fmt.Errorf("capture source: %w", err))
			}
		default:
		}
	})
}

// fail moves the session to StatusError, releases its source and handle and reports err.
func (s *session) fail(gen uint64, err error) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.status = StatusError
	s.err = err
	onError := s.onError
	h, src, cancel := s.handle, s.source, s.cancel
	s.handle, s.source, s.cancel = nil, nil, nil
	s.running = false
	s.mu.Unlock()

	fields := logrus.Fields{
		"function":   "Session.fail",
		"session_id": s.id,
		"error":      err,
	}
	if se, ok := pipeline.IsSetupError(err); ok {
		fields["stage"] = se.Stage
	}
	logrus.WithFields(fields).Error("Capture session failed")

	s.release(h, src, cancel)
	if onError != nil {
		onError(err)
	}
}

// release disposes the handle and closes the source.
func (s *session) release(h pipeline.Handle, src capture.FrameSource, cancel context.CancelFunc) {
	if h != nil {
		h.Dispose()
	}
	if cancel != nil {
		cancel()
	}
	if src != nil {
		if err := src.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function":   "Session.release",
				"session_id": s.id,
				"error":      err,
			}).Warn("Closing capture source failed")
		}
	}
}

func (s *session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.generation++
	s.status = StatusStopped
	h, src, cancel := s.handle, s.source, s.cancel
	s.handle, s.source, s.cancel = nil, nil, nil
	s.mu.Unlock()

	s.engine.Cancel(s.key("wait"))
	s.engine.Cancel(s.key("render"))
	s.release(h, src, cancel)

	logrus.WithFields(logrus.Fields{
		"function":   "Session.Stop",
		"session_id": s.id,
	}).Info("Capture session stopped")
}

func (s *session) Restart(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

func (s *session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *session) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

func (s *session) Controls() controls.Store {
	return s.controls
}

func (s *session) Overlay() overlay.Overlay {
	return s.overlay
}

func (s *session) Handle() pipeline.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// overlayStateChanged schedules the physics tick while the overlay is active, independent of
// the capture source.
func (s *session) overlayStateChanged(state overlay.State) {
	if state != overlay.StateActive {
		s.engine.Cancel(s.key("physics"))
		return
	}
	s.engine.Schedule(s.key("physics"), s.overlay.Step)
}

func (s *session) AppendText(r rune) {
	s.overlay.SetText(s.overlay.Text() + string(r))
}

func (s *session) Backspace() {
	runes := []rune(s.overlay.Text())
	if len(runes) == 0 {
		return
	}
	s.overlay.SetText(string(runes[:len(runes)-1]))
}

func (s *session) SetText(text string) {
	s.overlay.SetText(text)
}

func (s *session) SetScale(scale float64) {
	s.overlay.SetScale(scale)
}
