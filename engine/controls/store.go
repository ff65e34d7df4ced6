package controls

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/neon-cam/common"
)

// Snapshot is an immutable view of the control surface consumed once per rendered frame.
type Snapshot struct {
	Controls ControlState
	Effects  EffectToggleSet
}

// store is the implementation of the Store interface.
// Writers serialize on mu and publish a fresh Snapshot; readers only load the pointer.
type store struct {
	mu      *sync.Mutex
	current atomic.Pointer[Snapshot]
}

// Store publishes control surface snapshots from the input side to the render side.
// Every setter copies the current snapshot, modifies the copy and publishes it atomically,
// so a reader never observes a partially applied change.
type Store interface {
	// Snapshot returns the most recently published snapshot.
	//
	// Returns:
	//   - Snapshot: the current controls and effect toggles
	Snapshot() Snapshot

	// Replace publishes a complete snapshot after clamping its controls.
	//
	// Parameters:
	//   - s: the snapshot to publish
	Replace(s Snapshot)

	// SetGlitch sets the glitch amount, clamped to [0, 0.6].
	//
	// Parameters:
	//   - v: the requested glitch amount
	SetGlitch(v float64)

	// SetOutlineBoost sets the outline boost, clamped to [0.8, 2.4].
	//
	// Parameters:
	//   - v: the requested boost
	SetOutlineBoost(v float64)

	// SetFire switches the fire trail on or off.
	//
	// Parameters:
	//   - on: true to enable the fire trail
	SetFire(on bool)

	// SetEffect switches a single post-effect.
	//
	// Parameters:
	//   - e: the effect to change
	//   - on: the new state
	SetEffect(e Effect, on bool)

	// ToggleEffect flips a single post-effect.
	//
	// Parameters:
	//   - e: the effect to flip
	ToggleEffect(e Effect)

	// SetAllEffects switches every post-effect at once.
	//
	// Parameters:
	//   - on: the new state for all effects
	SetAllEffects(on bool)

	// HandleKey applies the key binding for a pressed key.
	//
	// Parameters:
	//   - keyCode: the GLFW key code
	//   - shift: whether a shift key is held
	//
	// Returns:
	//   - bool: true if the key is bound and the snapshot changed
	HandleKey(keyCode uint32, shift bool) bool
}

var _ Store = &store{}

// NewStore creates a Store with the given initial snapshot.
//
// Parameters:
//   - initial: the first published snapshot; its controls are clamped
//
// Returns:
//   - Store: the new store
func NewStore(initial Snapshot) Store {
	s := &store{mu: &sync.Mutex{}}
	initial.Controls = initial.Controls.Clamped()
	s.current.Store(&initial)
	return s
}

// NewDefaultStore creates a Store holding the default controls and no effects.
func NewDefaultStore() Store {
	return NewStore(Snapshot{Controls: DefaultControlState()})
}

func (s *store) Snapshot() Snapshot {
	return *s.current.Load()
}

func (s *store) Replace(next Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next.Controls = next.Controls.Clamped()
	s.current.Store(&next)
}

// update applies fn to a copy of the current snapshot and publishes the result.
func (s *store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current.Load()
	fn(&next)
	next.Controls = next.Controls.Clamped()
	s.current.Store(&next)
}

func (s *store) SetGlitch(v float64) {
	s.update(func(n *Snapshot) { n.Controls.Glitch = v })
}

func (s *store) SetOutlineBoost(v float64) {
	s.update(func(n *Snapshot) { n.Controls.OutlineBoost = v })
}

func (s *store) SetFire(on bool) {
	s.update(func(n *Snapshot) {
		n.Controls.FireIntensity = 0
		if on {
			n.Controls.FireIntensity = 1
		}
	})
}

func (s *store) SetEffect(e Effect, on bool) {
	s.update(func(n *Snapshot) { n.Effects = n.Effects.With(e, on) })
}

func (s *store) ToggleEffect(e Effect) {
	s.update(func(n *Snapshot) { n.Effects = n.Effects.Toggle(e) })
}

func (s *store) SetAllEffects(on bool) {
	s.update(func(n *Snapshot) {
		if on {
			n.Effects = AllEffects()
		} else {
			n.Effects = NoEffects()
		}
	})
}

// effectKeys binds the number row to the effects in canonical order.
var effectKeys = map[uint32]Effect{
	common.Key1: EffectChromatic,
	common.Key2: EffectScanline,
	common.Key3: EffectVignette,
	common.Key4: EffectInvert,
	common.Key5: EffectPixelate,
	common.Key6: EffectNoise,
}

func (s *store) HandleKey(keyCode uint32, shift bool) bool {
	before := s.Snapshot()

	if e, ok := effectKeys[keyCode]; ok {
		s.ToggleEffect(e)
		return true
	}

	switch keyCode {
	case common.Key0:
		s.SetAllEffects(!before.Effects.All())
	case common.KeyF:
		s.SetFire(before.Controls.FireIntensity == 0)
	case common.KeyG:
		step := GlitchStep
		if shift {
			step = -step
		}
		s.SetGlitch(before.Controls.Glitch + step)
	case common.KeyB:
		step := BoostStep
		if shift {
			step = -step
		}
		s.SetOutlineBoost(before.Controls.OutlineBoost + step)
	default:
		return false
	}

	return s.Snapshot() != before
}
