package overlay

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// halfSource makes Float64 return 0.5 and IntN(2) return 0.
type halfSource struct{}

func (halfSource) Uint64() uint64 { return 1 << 52 }

func fixedWidth(w float64) Measurer {
	return func(string, float64) float64 { return w }
}

type stageBox struct {
	size common.Size
}

func (s *stageBox) get() common.Size { return s.size }

func newTestOverlay(stage *stageBox, opts ...OverlayBuilderOption) Overlay {
	base := []OverlayBuilderOption{
		WithMeasurer(fixedWidth(100)),
		WithRand(rand.New(halfSource{})),
		WithSpeedRange(100, 100),
	}
	return NewOverlay(stage.get, append(base, opts...)...)
}

func TestOverlayGeometry(t *testing.T) {
	stage := &stageBox{size: common.Size{Width: 400, Height: 200}}
	o := newTestOverlay(stage)

	o.SetText("HELLO")
	s := o.Snapshot()
	require.True(t, s.Active())
	assert.Equal(t, "HELLO", s.Text)
	assert.InDelta(t, 28.0, s.FontSize, 1e-9)
	assert.InDelta(t, 100+0.8*28, s.Width, 1e-9)
	assert.InDelta(t, 1.6*28, s.Height, 1e-9)
}

func TestOverlaySeed(t *testing.T) {
	stage := &stageBox{size: common.Size{Width: 1000, Height: 1000}}
	o := newTestOverlay(stage)
	o.SetText("HELLO")

	s := o.Snapshot()
	assert.InDelta(t, (1000-122.4)*0.5, s.X, 1e-9)
	assert.InDelta(t, (1000-44.8)*0.5, s.Y, 1e-9)
	assert.InDelta(t, -100.0, s.Vx, 1e-9)
	assert.InDelta(t, -100.0, s.Vy, 1e-9)
}

func TestOverlaySpeedRange(t *testing.T) {
	stage := &stageBox{size: common.Size{Width: 640, Height: 480}}
	o := NewOverlay(stage.get, WithRand(rand.New(rand.NewPCG(1, 2))))

	for i := range 200 {
		o.SetScale(0.6 + float64(i%10)*0.1)
		o.SetText("neon")
		s := o.Snapshot()
		for _, v := range []float64{s.Vx, s.Vy} {
			if v < 0 {
				v = -v
			}
			assert.GreaterOrEqual(t, v, DefaultMinSpeed)
			assert.Less(t, v, DefaultMaxSpeed)
		}
		assert.GreaterOrEqual(t, s.X, 0.0)
		assert.LessOrEqual(t, s.X, 640-s.Width)
	}
}

func TestOverlayFirstStepHasZeroDelta(t *testing.T) {
	stage := &stageBox{size: common.Size{Width: 1000, Height: 1000}}
	o := newTestOverlay(stage)
	o.SetText("HELLO")
	before := o.Snapshot()

	t0 := time.Unix(100, 0)
	o.Step(t0)
	s := o.Snapshot()
	assert.Equal(t, before.X, s.X)
	assert.Equal(t, before.Y, s.Y)

	o.Step(t0.Add(500 * time.Millisecond))
	s = o.Snapshot()
	assert.InDelta(t, before.X-50, s.X, 1e-9)
	assert.InDelta(t, before.Y-50, s.Y, 1e-9)
}

func TestOverlayReflection(t *testing.T) {
	stage := &stageBox{size: common.Size{Width: 200, Height: 100}}
	o := newTestOverlay(stage)
	o.SetText("HELLO")

	t0 := time.Unix(100, 0)
	o.Step(t0)
	o.Step(t0.Add(time.Second))

	s := o.Snapshot()
	assert.Zero(t, s.X)
	assert.Zero(t, s.Y)
	assert.InDelta(t, 100.0, s.Vx, 1e-9)
	assert.InDelta(t, 100.0, s.Vy, 1e-9)
}

func TestOverlayBoundaryInvariant(t *testing.T) {
	stage := &stageBox{size: common.Size{Width: 800, Height: 600}}
	rng := rand.New(rand.NewPCG(7, 11))
	o := NewOverlay(stage.get, WithRand(rand.New(rand.NewPCG(3, 5))), WithMeasurer(fixedWidth(180)))
	o.SetText("bounce")

	now := time.Unix(0, 0)
	for i := range 5000 {
		if i%250 == 0 {
			stage.size = common.Size{Width: 100 + rng.Float64()*900, Height: 50 + rng.Float64()*700}
		}
		now = now.Add(time.Duration(1+rng.IntN(40)) * time.Millisecond)
		o.Step(now)

		s := o.Snapshot()
		boundX := max(1, stage.size.Width-s.Width)
		boundY := max(1, stage.size.Height-s.Height)
		require.GreaterOrEqual(t, s.X, 0.0, "step %d", i)
		require.LessOrEqual(t, s.X, boundX, "step %d", i)
		require.GreaterOrEqual(t, s.Y, 0.0, "step %d", i)
		require.LessOrEqual(t, s.Y, boundY, "step %d", i)
	}
}

func TestOverlayScaleChangeReseeds(t *testing.T) {
	stage := &stageBox{size: common.Size{Width: 1000, Height: 1000}}
	o := newTestOverlay(stage)
	o.SetText("HELLO")

	t0 := time.Unix(100, 0)
	o.Step(t0)
	o.Step(t0.Add(time.Second))
	moved := o.Snapshot()

	o.SetScale(1.5)
	s := o.Snapshot()
	assert.InDelta(t, 42.0, s.FontSize, 1e-9)
	assert.InDelta(t, 100+0.8*42, s.Width, 1e-9)
	assert.NotEqual(t, moved.X, s.X)
	assert.InDelta(t, (1000-s.Width)*0.5, s.X, 1e-9)

	// the reseed resets the step clock
	o.Step(t0.Add(10 * time.Second))
	assert.Equal(t, s.X, o.Snapshot().X)

	o.SetScale(5)
	assert.Equal(t, MaxScale, o.Scale())
}

func TestOverlayClearStopsUpdates(t *testing.T) {
	stage := &stageBox{size: common.Size{Width: 400, Height: 200}}
	var states []State
	o := newTestOverlay(stage, WithStateChange(func(s State) { states = append(states, s) }))

	assert.Equal(t, StateIdle, o.State())
	o.SetText("HELLO")
	o.SetScale(1.2)
	o.SetText("WORLD")
	assert.Equal(t, StateActive, o.State())

	o.Clear()
	assert.Equal(t, StateIdle, o.State())
	assert.Equal(t, []State{StateActive, StateIdle}, states)

	before := o.Snapshot()
	o.Step(time.Unix(1, 0))
	o.Step(time.Unix(2, 0))
	after := o.Snapshot()
	assert.False(t, after.Active())
	assert.Equal(t, before, after)
	assert.Zero(t, after.X)
	assert.Zero(t, after.Vx)
}

func TestOverlayScaleWhileIdle(t *testing.T) {
	o := newTestOverlay(&stageBox{size: common.Size{Width: 400, Height: 200}})
	o.SetScale(0.1)
	assert.Equal(t, MinScale, o.Scale())
	assert.Equal(t, StateIdle, o.State())
	assert.False(t, o.Snapshot().Active())
}

func TestOverlayUnchangedValuesKeepMotion(t *testing.T) {
	tests := []struct {
		name   string
		scale  float64
		repeat func(o Overlay)
	}{
		{name: "same text", scale: 1.5, repeat: func(o Overlay) { o.SetText("HELLO") }},
		{name: "same scale", scale: 1.5, repeat: func(o Overlay) { o.SetScale(1.5) }},
		{name: "scale clamped to current", scale: MinScale, repeat: func(o Overlay) { o.SetScale(0.1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := &stageBox{size: common.Size{Width: 1000, Height: 1000}}
			var states []State
			o := newTestOverlay(stage, WithStateChange(func(s State) { states = append(states, s) }))
			o.SetText("HELLO")
			o.SetScale(tt.scale)

			t0 := time.Unix(100, 0)
			o.Step(t0)
			o.Step(t0.Add(time.Second))
			moved := o.Snapshot()

			tt.repeat(o)
			assert.Equal(t, moved, o.Snapshot())
			assert.Equal(t, []State{StateActive}, states)

			// the step clock keeps running from the last step
			o.Step(t0.Add(2 * time.Second))
			assert.NotEqual(t, moved.X, o.Snapshot().X)
		})
	}
}
