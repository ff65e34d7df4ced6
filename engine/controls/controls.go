package controls

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/neon-cam/common"
)

// Effect identifies one of the stackable post-processing filters.
type Effect int

const (
	// EffectChromatic splits the red and blue channels horizontally.
	EffectChromatic Effect = iota

	// EffectScanline modulates brightness with moving horizontal lines.
	EffectScanline

	// EffectVignette darkens the image radially towards the corners.
	EffectVignette

	// EffectInvert inverts the fully composited colour.
	EffectInvert

	// EffectPixelate quantizes the sampling coordinates to a coarse grid.
	EffectPixelate

	// EffectNoise adds signed hash-based grain.
	EffectNoise

	effectCount
)

var effectNames = [effectCount]string{
	EffectChromatic: "chromatic",
	EffectScanline:  "scanline",
	EffectVignette:  "vignette",
	EffectInvert:    "invert",
	EffectPixelate:  "pixelate",
	EffectNoise:     "noise",
}

func (e Effect) String() string {
	if e < 0 || e >= effectCount {
		return fmt.Sprintf("Effect(%d)", int(e))
	}
	return effectNames[e]
}

// Effects returns every effect in canonical order.
func Effects() []Effect {
	out := make([]Effect, 0, effectCount)
	for e := Effect(0); e < effectCount; e++ {
		out = append(out, e)
	}
	return out
}

// ParseEffect resolves an effect by its lower-case name.
//
// Parameters:
//   - name: the effect name, e.g. "scanline"
//
// Returns:
//   - Effect: the matching effect
//   - error: an error if the name is unknown
func ParseEffect(name string) (Effect, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for e, s := range effectNames {
		if s == n {
			return Effect(e), nil
		}
	}
	return 0, fmt.Errorf("unknown effect %q", name)
}

// EffectToggleSet maps every Effect to an on/off state. It is a small value type; the
// mutating helpers return a modified copy.
type EffectToggleSet struct {
	bits uint8
}

// NoEffects returns a set with every toggle off.
func NoEffects() EffectToggleSet {
	return EffectToggleSet{}
}

// AllEffects returns a set with every toggle on.
func AllEffects() EffectToggleSet {
	return EffectToggleSet{bits: 1<<uint(effectCount) - 1}
}

// ParseEffects builds a set with the named effects enabled.
//
// Parameters:
//   - names: effect names to enable
//
// Returns:
//   - EffectToggleSet: the resulting set
//   - error: an error naming the first unknown effect
func ParseEffects(names []string) (EffectToggleSet, error) {
	var s EffectToggleSet
	for _, n := range names {
		e, err := ParseEffect(n)
		if err != nil {
			return EffectToggleSet{}, err
		}
		s = s.With(e, true)
	}
	return s, nil
}

// Enabled reports whether the effect is on.
func (s EffectToggleSet) Enabled(e Effect) bool {
	if e < 0 || e >= effectCount {
		return false
	}
	return s.bits&(1<<uint(e)) != 0
}

// With returns a copy of s with the effect set to on.
func (s EffectToggleSet) With(e Effect, on bool) EffectToggleSet {
	if e < 0 || e >= effectCount {
		return s
	}
	if on {
		s.bits |= 1 << uint(e)
	} else {
		s.bits &^= 1 << uint(e)
	}
	return s
}

// Toggle returns a copy of s with the effect flipped.
func (s EffectToggleSet) Toggle(e Effect) EffectToggleSet {
	return s.With(e, !s.Enabled(e))
}

// Any reports whether at least one effect is on.
func (s EffectToggleSet) Any() bool {
	return s.bits != 0
}

// All reports whether every effect is on.
func (s EffectToggleSet) All() bool {
	return s == AllEffects()
}

// Value returns the toggle as the 0/1 blend factor consumed by the shader.
func (s EffectToggleSet) Value(e Effect) float32 {
	if s.Enabled(e) {
		return 1
	}
	return 0
}

// Names returns the names of the enabled effects in canonical order.
func (s EffectToggleSet) Names() []string {
	var out []string
	for _, e := range Effects() {
		if s.Enabled(e) {
			out = append(out, e.String())
		}
	}
	return out
}

func (s EffectToggleSet) String() string {
	return "[" + strings.Join(s.Names(), " ") + "]"
}

// Control ranges and defaults.
const (
	MinGlitch       = 0.0
	MaxGlitch       = 0.6
	DefaultGlitch   = 0.22
	MinOutlineBoost = 0.8
	MaxOutlineBoost = 2.4
	DefaultBoost    = 1.4
	GlitchStep      = 0.02
	BoostStep       = 0.1
)

// ControlState holds the stylization parameters read once per rendered frame.
type ControlState struct {
	// Glitch scales the sampling displacement, in [0, 0.6].
	Glitch float64

	// OutlineBoost scales the Sobel magnitude before the silhouette threshold, in [0.8, 2.4].
	OutlineBoost float64

	// FireIntensity is either 0 (off) or 1 (on).
	FireIntensity float64
}

// DefaultControlState returns the initial control values.
func DefaultControlState() ControlState {
	return ControlState{
		Glitch:        DefaultGlitch,
		OutlineBoost:  DefaultBoost,
		FireIntensity: 0,
	}
}

// Clamped returns a copy with every field forced into its legal range.
// FireIntensity snaps to 0 or 1 at the 0.5 midpoint.
func (c ControlState) Clamped() ControlState {
	c.Glitch = common.Clamp(c.Glitch, MinGlitch, MaxGlitch)
	c.OutlineBoost = common.Clamp(c.OutlineBoost, MinOutlineBoost, MaxOutlineBoost)
	if c.FireIntensity >= 0.5 {
		c.FireIntensity = 1
	} else {
		c.FireIntensity = 0
	}
	return c
}
