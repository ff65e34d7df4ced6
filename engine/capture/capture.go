// Package capture provides the live frame sources the render tick pulls from.
//
// A source publishes into a latest-frame Inbox: every new frame overwrites the previous one,
// so a slow reader only ever sees the freshest frame and never blocks the producer.
package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrClosed is returned when a closed source is started again.
	ErrClosed = errors.New("capture: source closed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("capture: source already started")
)

// Frame is one captured image in native capture pixels.
type Frame struct {
	// Image holds the pixels. It must not be modified after publication.
	Image *image.RGBA
	// Seq is the 1-based publication sequence number.
	Seq uint64
	// TraceID identifies the frame in logs.
	TraceID string
	// Captured is the publication time.
	Captured time.Time
}

// Stats holds source counters.
type Stats struct {
	// Published is the number of frames published.
	Published uint64
	// Dropped is the number of frames overwritten before anyone read them.
	Dropped uint64
	// Width and Height are the dimensions of the latest frame.
	Width, Height int
}

// FrameSource is a continuously updating video source with queryable native dimensions.
// None of its read methods block.
type FrameSource interface {
	// Start begins capturing in the background. The source stops when ctx is cancelled,
	// the stream ends or Close is called.
	//
	// Parameters:
	//   - ctx: the capture lifetime
	//
	// Returns:
	//   - error: an error if the source could not be opened, ErrClosed after Close
	Start(ctx context.Context) error

	// Dimensions returns the native size of the latest frame, (0, 0) until the first frame.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Dimensions() (int, int)

	// Frame returns the latest frame, or nil before the first one.
	//
	// Returns:
	//   - *Frame: the latest frame
	Frame() *Frame

	// Stats returns the source counters.
	//
	// Returns:
	//   - Stats: the counters
	Stats() Stats

	// Done is closed when the source has stopped producing frames.
	//
	// Returns:
	//   - <-chan struct{}: the done channel
	Done() <-chan struct{}

	// Err returns the error that stopped the source, nil on a clean end of stream or Close.
	//
	// Returns:
	//   - error: the terminal error
	Err() error

	// Close stops the source and releases its resources. It is idempotent.
	//
	// Returns:
	//   - error: an error if releasing the underlying device failed
	Close() error
}

// Inbox holds the latest published frame. Publish and Latest may be called from different goroutines.
type Inbox struct {
	latest    atomic.Pointer[Frame]
	seq       atomic.Uint64
	readSeq   atomic.Uint64
	dropped   atomic.Uint64
	newTrace  func() string
	published atomic.Uint64
}

// NewInbox creates an empty inbox.
//
// Returns:
//   - *Inbox: the inbox
func NewInbox() *Inbox {
	return &Inbox{newTrace: func() string { return uuid.New().String() }}
}

// Publish stores img as the latest frame, counting the previous frame as dropped if it was never read.
//
// Parameters:
//   - img: the frame pixels, owned by the inbox from now on
//
// Returns:
//   - *Frame: the published frame
func (b *Inbox) Publish(img *image.RGBA) *Frame {
	f := &Frame{
		Image:    img,
		Seq:      b.seq.Add(1),
		TraceID:  b.newTrace(),
		Captured: time.Now(),
	}
	prev := b.latest.Swap(f)
	b.published.Add(1)
	if prev != nil && prev.Seq > b.readSeq.Load() {
		b.dropped.Add(1)
	}
	return f
}

// Latest returns the most recent frame and marks it read.
//
// Returns:
//   - *Frame: the latest frame, or nil before the first publication
func (b *Inbox) Latest() *Frame {
	f := b.latest.Load()
	if f == nil {
		return nil
	}
	for {
		seen := b.readSeq.Load()
		if f.Seq <= seen || b.readSeq.CompareAndSwap(seen, f.Seq) {
			return f
		}
	}
}

// Dimensions returns the size of the latest frame, (0, 0) before the first publication.
//
// Returns:
//   - int: width in pixels
//   - int: height in pixels
func (b *Inbox) Dimensions() (int, int) {
	f := b.latest.Load()
	if f == nil || f.Image == nil {
		return 0, 0
	}
	return f.Image.Rect.Dx(), f.Image.Rect.Dy()
}

// Stats returns the inbox counters.
//
// Returns:
//   - Stats: the counters
func (b *Inbox) Stats() Stats {
	w, h := b.Dimensions()
	return Stats{
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
		Width:     w,
		Height:    h,
	}
}

// Stream is the lifecycle shared by frame sources: an inbox, a cancellable producer
// goroutine and a terminal error. Source implementations embed it.
type Stream struct {
	*Inbox

	mu      *sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	wg      sync.WaitGroup
}

// NewStream creates an idle stream.
//
// Returns:
//   - *Stream: the stream
func NewStream() *Stream {
	return &Stream{
		Inbox: NewInbox(),
		mu:    &sync.Mutex{},
		done:  make(chan struct{}),
	}
}

// Run starts produce on its own goroutine with a context cancelled by Close.
// The error produce returns becomes Err, except context cancellation.
//
// Parameters:
//   - ctx: the parent context
//   - produce: the producer loop
//
// Returns:
//   - error: ErrClosed or ErrAlreadyStarted
func (s *Stream) Run(ctx context.Context, produce func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(s.done)
		err := produce(runCtx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}()
	return nil
}

// Frame returns the latest frame.
func (s *Stream) Frame() *Frame {
	return s.Latest()
}

// Done is closed when the producer has returned.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the producer's terminal error.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop cancels the producer and waits for it to return. It reports whether this call
// performed the transition to closed.
//
// Returns:
//   - bool: true on the first call
func (s *Stream) Stop() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	if !started {
		close(s.done)
	}
	return true
}
