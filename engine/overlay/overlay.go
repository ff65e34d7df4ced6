// Package overlay animates the floating text overlay as a ball bouncing inside the stage.
//
// The physics state has a single writer (the physics tick and the text entry calls, which
// serialize on a mutex) and publishes an immutable Snapshot after every mutation, so the
// render side only ever loads a pointer.
package overlay

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/neon-cam/common"
)

const (
	// BaseFontSize is the overlay font size in display points at scale 1.
	BaseFontSize = 28.0

	// MinScale and MaxScale bound the text scale slider.
	MinScale = 0.6
	MaxScale = 2.0

	// DefaultMinSpeed and DefaultMaxSpeed bound the per-axis speed in points per second.
	DefaultMinSpeed = 70.0
	DefaultMaxSpeed = 120.0

	widthPadding  = 0.8
	heightPadding = 1.6
)

// State is the overlay state machine state.
type State int

const (
	// StateIdle means there is no text and the integrator is stopped.
	StateIdle State = iota

	// StateActive means text is present and the integrator runs.
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// Measurer returns the advance width of text rendered at the given pixel size.
type Measurer func(text string, fontSize float64) float64

// StageFunc returns the live stage size in display points.
type StageFunc func() common.Size

// Snapshot is an immutable view of the overlay published after every mutation.
type Snapshot struct {
	State    State
	Text     string
	Scale    float64
	FontSize float64
	// X and Y are the top-left of the overlay box in stage coordinates.
	X, Y          float64
	Width, Height float64
	Vx, Vy        float64
}

// Active reports whether the snapshot carries visible text.
func (s Snapshot) Active() bool {
	return s.State == StateActive && s.Text != ""
}

// motion is the mutable integrator state, only touched under mu.
type motion struct {
	pos      common.Vec2
	vel      common.Vec2
	lastStep time.Time
}

// overlay is the implementation of the Overlay interface.
type overlay struct {
	mu *sync.Mutex

	text     string
	scale    float64
	fontSize float64
	width    float64
	height   float64
	motion   *motion

	measure       Measurer
	stage         StageFunc
	rng           *rand.Rand
	minSpeed      float64
	maxSpeed      float64
	onStateChange func(State)

	current atomic.Pointer[Snapshot]
}

// Overlay owns the overlay text, its geometry and its motion state.
//
// The state machine is Idle (no text) and Active (text present). Setting different non-empty
// text or changing the scale while text is present re-seeds the motion; clearing the text
// discards it. Setting the current text or scale again is a no-op.
type Overlay interface {
	// SetText replaces the overlay text. Changed non-empty text re-measures the geometry and
	// re-seeds the motion; empty text moves to Idle.
	//
	// Parameters:
	//   - text: the new text
	SetText(text string)

	// SetScale changes the text scale, clamped to [MinScale, MaxScale]. While Active a changed
	// scale re-measures the geometry and re-seeds the motion.
	//
	// Parameters:
	//   - scale: the requested scale
	SetScale(scale float64)

	// Clear removes the text and stops the integrator.
	Clear()

	// Step advances the integrator to now. The first step after a re-seed has a zero time delta.
	// Step is a no-op while Idle.
	//
	// Parameters:
	//   - now: the current time
	Step(now time.Time)

	// State returns the current state.
	//
	// Returns:
	//   - State: StateIdle or StateActive
	State() State

	// Text returns the current text.
	//
	// Returns:
	//   - string: the overlay text, empty while Idle
	Text() string

	// Scale returns the current scale.
	//
	// Returns:
	//   - float64: the text scale
	Scale() float64

	// Snapshot returns the most recently published snapshot.
	//
	// Returns:
	//   - Snapshot: the overlay view for the compositor
	Snapshot() Snapshot
}

var _ Overlay = &overlay{}

// NewOverlay creates an Idle overlay.
//
// Parameters:
//   - stage: the live stage size provider, read on every step and re-seed
//   - options: variadic list of OverlayBuilderOption functions
//
// Returns:
//   - Overlay: the overlay
func NewOverlay(stage StageFunc, options ...OverlayBuilderOption) Overlay {
	o := &overlay{
		mu:       &sync.Mutex{},
		scale:    1,
		fontSize: BaseFontSize,
		stage:    stage,
		minSpeed: DefaultMinSpeed,
		maxSpeed: DefaultMaxSpeed,
		measure:  approximateMeasurer,
	}
	for _, opt := range options {
		opt(o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x6e656f6e))
	}
	if o.stage == nil {
		o.stage = func() common.Size { return common.Size{} }
	}
	if o.maxSpeed < o.minSpeed {
		o.minSpeed, o.maxSpeed = o.maxSpeed, o.minSpeed
	}
	o.scale = common.Clamp(o.scale, MinScale, MaxScale)
	o.fontSize = BaseFontSize * o.scale
	o.publishLocked()
	return o
}

// approximateMeasurer estimates a monospace-ish advance of 0.6em per rune.
func approximateMeasurer(text string, fontSize float64) float64 {
	return float64(len([]rune(text))) * fontSize * 0.6
}

func (o *overlay) SetText(text string) {
	o.mu.Lock()
	if text == o.text {
		o.mu.Unlock()
		return
	}
	prev := o.stateLocked()
	o.text = text
	if text == "" {
		o.motion = nil
	} else {
		o.reseedLocked()
	}
	o.publishLocked()
	next := o.stateLocked()
	o.mu.Unlock()
	o.notify(prev, next)
}

func (o *overlay) SetScale(scale float64) {
	scale = common.Clamp(scale, MinScale, MaxScale)
	o.mu.Lock()
	if scale == o.scale {
		o.mu.Unlock()
		return
	}
	o.scale = scale
	o.fontSize = BaseFontSize * o.scale
	if o.text != "" {
		o.reseedLocked()
	}
	o.publishLocked()
	o.mu.Unlock()
}

func (o *overlay) Clear() {
	o.SetText("")
}

func (o *overlay) Step(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := o.motion
	if m == nil {
		return
	}
	dt := 0.0
	if !m.lastStep.IsZero() {
		dt = now.Sub(m.lastStep).Seconds()
	}
	m.lastStep = now

	boundX, boundY := o.boundsLocked()
	m.pos = m.pos.Add(m.vel.Scale(dt))

	if m.pos.X <= 0 || m.pos.X >= boundX {
		m.vel.X = -m.vel.X
		m.pos.X = common.Clamp(m.pos.X, 0, boundX)
	}
	if m.pos.Y <= 0 || m.pos.Y >= boundY {
		m.vel.Y = -m.vel.Y
		m.pos.Y = common.Clamp(m.pos.Y, 0, boundY)
	}
	o.publishLocked()
}

func (o *overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

func (o *overlay) Text() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.text
}

func (o *overlay) Scale() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scale
}

func (o *overlay) Snapshot() Snapshot {
	return *o.current.Load()
}

func (o *overlay) stateLocked() State {
	if o.motion != nil {
		return StateActive
	}
	return StateIdle
}

// reseedLocked re-measures the geometry and draws a fresh position and velocity.
func (o *overlay) reseedLocked() {
	o.fontSize = BaseFontSize * o.scale
	o.width = o.measure(o.text, o.fontSize) + widthPadding*o.fontSize
	o.height = heightPadding * o.fontSize

	boundX, boundY := o.boundsLocked()
	o.motion = &motion{
		pos: common.Vec2{
			X: o.rng.Float64() * boundX,
			Y: o.rng.Float64() * boundY,
		},
		vel: common.Vec2{
			X: o.randomVelocity(),
			Y: o.randomVelocity(),
		},
	}
}

func (o *overlay) randomVelocity() float64 {
	v := o.minSpeed + o.rng.Float64()*(o.maxSpeed-o.minSpeed)
	if o.rng.IntN(2) == 0 {
		return -v
	}
	return v
}

// boundsLocked returns the legal position range per axis, at least 1.
func (o *overlay) boundsLocked() (float64, float64) {
	stage := o.stage()
	return math.Max(1, stage.Width-o.width), math.Max(1, stage.Height-o.height)
}

func (o *overlay) publishLocked() {
	s := &Snapshot{
		State:    o.stateLocked(),
		Text:     o.text,
		Scale:    o.scale,
		FontSize: o.fontSize,
		Width:    o.width,
		Height:   o.height,
	}
	if m := o.motion; m != nil {
		s.X, s.Y = m.pos.X, m.pos.Y
		s.Vx, s.Vy = m.vel.X, m.vel.Y
	}
	o.current.Store(s)
}

func (o *overlay) notify(prev, next State) {
	if prev != next && o.onStateChange != nil {
		o.onStateChange(next)
	}
}
