package session

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/Carmen-Shannon/neon-cam/engine"
	"github.com/Carmen-Shannon/neon-cam/engine/capture"
	"github.com/Carmen-Shannon/neon-cam/engine/overlay"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/neon-cam/engine/renderer/shader"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct{}

func (fakeSurface) ClientSize() common.Size { return common.Size{Width: 32, Height: 24} }
func (fakeSurface) ContentScale() float64   { return 1 }

type fakeSource struct {
	*capture.Stream
	fail   chan error
	closed atomic.Bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{Stream: capture.NewStream(), fail: make(chan error, 1)}
}

func (s *fakeSource) Start(ctx context.Context) error {
	return s.Run(ctx, func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-s.fail:
			return err
		}
	})
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	s.Stop()
	return nil
}

func (s *fakeSource) publish(w, h int) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 40, 80, 120, 255
	}
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	s.Publish(img)
}

type fixture struct {
	engine   engine.Engine
	renderer renderer.SoftwareRenderer
	session  *session
	sources  []*fakeSource
}

func newFixture(t *testing.T, options ...SessionBuilderOption) *fixture {
	t.Helper()
	f := &fixture{
		engine:   engine.NewEngine(),
		renderer: renderer.NewSoftwareRenderer(renderer.WithWorkers(1)),
	}
	t.Cleanup(f.renderer.Close)

	factory := func() (capture.FrameSource, error) {
		src := newFakeSource()
		f.sources = append(f.sources, src)
		return src, nil
	}
	s, err := NewSession(f.engine, f.renderer, fakeSurface{}, factory, options...)
	require.NoError(t, err)
	f.session = s.(*session)
	t.Cleanup(f.session.Stop)
	return f
}

func (f *fixture) source() *fakeSource {
	return f.sources[len(f.sources)-1]
}

func (f *fixture) scheduled(name string) bool {
	return f.engine.Scheduled(f.session.key(name))
}

func TestSessionWaitsForFirstFrame(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, StatusIdle, f.session.Status())
	_, err := uuid.Parse(f.session.ID())
	require.NoError(t, err)

	require.NoError(t, f.session.Start(context.Background()))
	assert.Equal(t, StatusWaitingForFrames, f.session.Status())
	assert.True(t, f.scheduled("wait"))

	f.engine.Step(time.Now())
	f.engine.Step(time.Now())
	assert.Equal(t, StatusWaitingForFrames, f.session.Status())
	assert.Nil(t, f.session.Handle())

	f.source().publish(16, 12)
	f.engine.Step(time.Now())
	require.Equal(t, StatusLive, f.session.Status())
	require.NotNil(t, f.session.Handle())
	assert.False(t, f.scheduled("wait"))
	assert.True(t, f.scheduled("render"))

	f.engine.Step(time.Now())
	f.engine.Step(time.Now())
	assert.Equal(t, uint64(2), f.renderer.Frames())
	w, h := f.renderer.SurfaceSize()
	assert.Equal(t, 32, w)
	assert.Equal(t, 24, h)
}

func TestSessionStartTwice(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))
	assert.ErrorIs(t, f.session.Start(context.Background()), ErrRunning)
	assert.Len(t, f.sources, 1)
}

func TestSessionSetupErrorIsFatal(t *testing.T) {
	var reported []error
	broken := shader.NewShader("broken", shader.ShaderTypeFragment, "fn helper() -> f32 { return 1.0; }")
	f := newFixture(t,
		WithPipelineOptions(pipeline.WithShaders(shader.QuadVertexShader(), broken)),
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)

	require.NoError(t, f.session.Start(context.Background()))
	f.source().publish(8, 8)
	f.engine.Step(time.Now())

	assert.Equal(t, StatusError, f.session.Status())
	se, ok := pipeline.IsSetupError(f.session.Err())
	require.True(t, ok)
	assert.Equal(t, pipeline.StageCompileFragment, se.Stage)
	require.Len(t, reported, 1)
	assert.Equal(t, f.session.Err(), reported[0])

	assert.True(t, f.source().closed.Load())
	assert.False(t, f.scheduled("wait"))
	assert.False(t, f.scheduled("render"))
	assert.Nil(t, f.session.Handle())

	// a failed session can be started again
	require.NoError(t, f.session.Start(context.Background()))
	assert.Len(t, f.sources, 2)
	assert.NoError(t, f.session.Err())
}

func TestSessionSourceOpenError(t *testing.T) {
	e := engine.NewEngine()
	r := renderer.NewSoftwareRenderer(renderer.WithWorkers(1))
	defer r.Close()

	denied := errors.New("permission denied")
	s, err := NewSession(e, r, fakeSurface{}, func() (capture.FrameSource, error) { return nil, denied })
	require.NoError(t, err)

	err = s.Start(context.Background())
	require.ErrorIs(t, err, denied)
	assert.Equal(t, StatusError, s.Status())
	assert.ErrorIs(t, s.Err(), denied)
}

func TestSessionSourceFailsBeforeFirstFrame(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))

	lost := errors.New("device lost")
	src := f.source()
	src.fail <- lost
	<-src.Done()

	f.engine.Step(time.Now())
	assert.Equal(t, StatusError, f.session.Status())
	assert.ErrorIs(t, f.session.Err(), lost)
	assert.False(t, f.scheduled("wait"))
}

func TestSessionSourceFailsWhileLive(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))
	src := f.source()
	src.publish(8, 8)
	f.engine.Step(time.Now())
	require.Equal(t, StatusLive, f.session.Status())
	h := f.session.Handle()

	lost := errors.New("device lost")
	src.fail <- lost
	<-src.Done()
	f.engine.Step(time.Now())

	assert.Equal(t, StatusError, f.session.Status())
	assert.ErrorIs(t, f.session.Err(), lost)
	assert.True(t, h.Disposed())
	assert.False(t, f.scheduled("render"))
}

func TestSessionStopAndRestart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Start(context.Background()))
	first := f.source()
	first.publish(8, 8)
	f.engine.Step(time.Now())
	h := f.session.Handle()
	require.NotNil(t, h)

	f.session.Stop()
	assert.Equal(t, StatusStopped, f.session.Status())
	assert.True(t, h.Disposed())
	assert.True(t, first.closed.Load())
	assert.False(t, f.scheduled("render"))
	assert.NotPanics(t, f.session.Stop)

	frames := f.renderer.Frames()
	f.engine.Step(time.Now())
	assert.Equal(t, frames, f.renderer.Frames())

	require.NoError(t, f.session.Restart(context.Background()))
	assert.Len(t, f.sources, 2)
	assert.NotSame(t, first, f.source())
	assert.Equal(t, StatusWaitingForFrames, f.session.Status())

	f.source().publish(8, 8)
	f.engine.Step(time.Now())
	assert.Equal(t, StatusLive, f.session.Status())
	assert.NotSame(t, h, f.session.Handle())
}

func TestSessionPhysicsFollowsOverlay(t *testing.T) {
	f := newFixture(t)

	f.session.SetText("hi")
	assert.True(t, f.scheduled("physics"), "physics runs before the capture session starts")

	require.NoError(t, f.session.Start(context.Background()))
	assert.True(t, f.scheduled("physics"))

	f.session.SetText("")
	assert.False(t, f.scheduled("physics"))
	assert.Equal(t, overlay.StateIdle, f.session.Overlay().State())

	f.session.AppendText('n')
	f.session.AppendText('é')
	assert.Equal(t, "né", f.session.Overlay().Text())
	assert.True(t, f.scheduled("physics"))

	f.session.Backspace()
	assert.Equal(t, "n", f.session.Overlay().Text())
	f.session.Backspace()
	assert.False(t, f.scheduled("physics"))
	assert.NotPanics(t, f.session.Backspace)

	f.session.SetText("x")
	f.session.Stop()
	assert.True(t, f.scheduled("physics"), "stopping the capture keeps the overlay moving")
	assert.False(t, f.scheduled("render"))

	f.session.SetText("")
	assert.False(t, f.scheduled("physics"))
}

func TestSessionSetScale(t *testing.T) {
	f := newFixture(t)
	f.session.SetScale(5)
	assert.Equal(t, overlay.MaxScale, f.session.Overlay().Scale())
	f.session.SetScale(0.1)
	assert.Equal(t, overlay.MinScale, f.session.Overlay().Scale())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "waiting-for-frames", StatusWaitingForFrames.String())
	assert.Equal(t, "live", StatusLive.String())
	assert.Equal(t, "Status(42)", Status(42).String())
}
