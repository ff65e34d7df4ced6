package controls

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlStateClamped(t *testing.T) {
	tests := []struct {
		name string
		in   ControlState
		want ControlState
	}{
		{"defaults unchanged", DefaultControlState(), ControlState{Glitch: 0.22, OutlineBoost: 1.4, FireIntensity: 0}},
		{"glitch too high", ControlState{Glitch: 2, OutlineBoost: 1}, ControlState{Glitch: 0.6, OutlineBoost: 1}},
		{"negative glitch", ControlState{Glitch: -1, OutlineBoost: 1}, ControlState{Glitch: 0, OutlineBoost: 1}},
		{"boost too low", ControlState{OutlineBoost: 0.1}, ControlState{OutlineBoost: 0.8}},
		{"boost too high", ControlState{OutlineBoost: 9}, ControlState{OutlineBoost: 2.4}},
		{"fire snaps on", ControlState{OutlineBoost: 1, FireIntensity: 0.7}, ControlState{OutlineBoost: 1, FireIntensity: 1}},
		{"fire snaps off", ControlState{OutlineBoost: 1, FireIntensity: 0.2}, ControlState{OutlineBoost: 1, FireIntensity: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Clamped()
			assert.InDelta(t, tt.want.Glitch, got.Glitch, 1e-9)
			assert.InDelta(t, tt.want.OutlineBoost, got.OutlineBoost, 1e-9)
			assert.Equal(t, tt.want.FireIntensity, got.FireIntensity)
		})
	}
}

func TestEffectToggleSet(t *testing.T) {
	s := NoEffects()
	assert.False(t, s.Any())

	s = s.With(EffectScanline, true).With(EffectNoise, true)
	assert.True(t, s.Enabled(EffectScanline))
	assert.True(t, s.Enabled(EffectNoise))
	assert.False(t, s.Enabled(EffectInvert))
	assert.True(t, s.Any())
	assert.False(t, s.All())
	assert.Equal(t, []string{"scanline", "noise"}, s.Names())
	assert.Equal(t, float32(1), s.Value(EffectScanline))
	assert.Equal(t, float32(0), s.Value(EffectChromatic))

	s = s.Toggle(EffectScanline)
	assert.False(t, s.Enabled(EffectScanline))

	assert.True(t, AllEffects().All())
	assert.Len(t, AllEffects().Names(), len(Effects()))
}

func TestParseEffects(t *testing.T) {
	s, err := ParseEffects([]string{"Invert", " pixelate "})
	require.NoError(t, err)
	assert.True(t, s.Enabled(EffectInvert))
	assert.True(t, s.Enabled(EffectPixelate))

	_, err = ParseEffects([]string{"sepia"})
	assert.Error(t, err)
}

func TestStoreSetters(t *testing.T) {
	st := NewDefaultStore()

	st.SetGlitch(5)
	st.SetOutlineBoost(0)
	st.SetFire(true)
	st.SetEffect(EffectVignette, true)

	snap := st.Snapshot()
	assert.Equal(t, MaxGlitch, snap.Controls.Glitch)
	assert.Equal(t, MinOutlineBoost, snap.Controls.OutlineBoost)
	assert.Equal(t, 1.0, snap.Controls.FireIntensity)
	assert.True(t, snap.Effects.Enabled(EffectVignette))

	st.SetAllEffects(true)
	assert.True(t, st.Snapshot().Effects.All())
	st.SetAllEffects(false)
	assert.False(t, st.Snapshot().Effects.Any())
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	st := NewDefaultStore()
	snap := st.Snapshot()
	st.SetGlitch(0.5)
	assert.Equal(t, DefaultGlitch, snap.Controls.Glitch)
}

func TestStoreHandleKey(t *testing.T) {
	tests := []struct {
		name    string
		key     uint32
		shift   bool
		changed bool
		check   func(t *testing.T, s Snapshot)
	}{
		{"toggle chromatic", common.Key1, false, true, func(t *testing.T, s Snapshot) {
			assert.True(t, s.Effects.Enabled(EffectChromatic))
		}},
		{"toggle noise", common.Key6, false, true, func(t *testing.T, s Snapshot) {
			assert.True(t, s.Effects.Enabled(EffectNoise))
		}},
		{"all effects", common.Key0, false, true, func(t *testing.T, s Snapshot) {
			assert.True(t, s.Effects.All())
		}},
		{"fire on", common.KeyF, false, true, func(t *testing.T, s Snapshot) {
			assert.Equal(t, 1.0, s.Controls.FireIntensity)
		}},
		{"glitch up", common.KeyG, false, true, func(t *testing.T, s Snapshot) {
			assert.InDelta(t, DefaultGlitch+GlitchStep, s.Controls.Glitch, 1e-9)
		}},
		{"boost down", common.KeyB, true, true, func(t *testing.T, s Snapshot) {
			assert.InDelta(t, DefaultBoost-BoostStep, s.Controls.OutlineBoost, 1e-9)
		}},
		{"unbound", common.KeySpace, false, false, func(t *testing.T, s Snapshot) {
			assert.Equal(t, DefaultControlState(), s.Controls)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewDefaultStore()
			assert.Equal(t, tt.changed, st.HandleKey(tt.key, tt.shift))
			tt.check(t, st.Snapshot())
		})
	}
}

func TestStoreHandleKeyAtLimit(t *testing.T) {
	st := NewStore(Snapshot{Controls: ControlState{Glitch: MaxGlitch, OutlineBoost: 1}})
	assert.False(t, st.HandleKey(common.KeyG, false))
}

func TestStoreConcurrentReaders(t *testing.T) {
	st := NewDefaultStore()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s := st.Snapshot()
				assert.GreaterOrEqual(t, s.Controls.OutlineBoost, MinOutlineBoost)
			}
		}()
	}
	for j := 0; j < 200; j++ {
		st.SetOutlineBoost(float64(j%20) / 10)
	}
	wg.Wait()
}
