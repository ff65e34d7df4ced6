package window

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/stretchr/testify/assert"
)

func TestDevicePixelRatio(t *testing.T) {
	tests := []struct {
		name     string
		clientW  int
		fbW      int
		fallback float64
		want     float64
	}{
		{name: "retina", clientW: 800, fbW: 1600, want: 2},
		{name: "fractional", clientW: 1000, fbW: 1250, want: 1.25},
		{name: "minimized uses content scale", clientW: 0, fbW: 0, fallback: 1.5, want: 1.5},
		{name: "nothing known", want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, devicePixelRatio(tt.clientW, tt.fbW, tt.fallback), 1e-9)
		})
	}
}

func TestUpdateSizesConcurrentReads(t *testing.T) {
	w := &engineWindow{mu: &sync.Mutex{}}
	w.updateSizes(800, 600, 1600, 1200, 2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 1000 {
			w.updateSizes(800, 600, 1600, 1200, 2)
		}
	}()
	for range 1000 {
		_ = w.ClientSize()
		_ = w.ContentScale()
	}
	wg.Wait()

	assert.Equal(t, common.Size{Width: 800, Height: 600}, w.ClientSize())
	assert.Equal(t, 2.0, w.ContentScale())
	assert.Equal(t, 1600, w.Width())
	assert.Equal(t, 1200, w.Height())

	bw, bh := common.BackingSize(w.ClientSize(), w.ContentScale())
	assert.Equal(t, 1600, bw)
	assert.Equal(t, 1200, bh)
}

func TestBuilderOptions(t *testing.T) {
	w := &engineWindow{width: 1280, height: 720}
	WithTitle("cam")(w)
	WithSize(640, 0)(w)
	assert.Equal(t, "cam", w.title)
	assert.Equal(t, 1280, w.width)

	WithSize(640, 480)(w)
	WithMinSize(-1, 100)(w)
	WithMaxSize(1920, 1080)(w)
	assert.Equal(t, 640, w.width)
	assert.Equal(t, 480, w.height)
	assert.Zero(t, w.minWidth)
	assert.Equal(t, 100, w.minHeight)
	assert.Equal(t, 1920, w.maxWidth)

	w.RequestClose()
	assert.False(t, w.IsRunning())
}
