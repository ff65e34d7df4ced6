package gstsource

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawCaps(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		fps  int
		want string
	}{
		{name: "free rate", w: 1280, h: 720, want: "video/x-raw,format=RGBA,width=1280,height=720"},
		{name: "fixed rate", w: 640, h: 480, fps: 30, want: "video/x-raw,format=RGBA,width=640,height=480,framerate=30/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rawCaps(tt.w, tt.h, tt.fps))
		})
	}
}

func TestFrameFromBytes(t *testing.T) {
	data := []byte{
		1, 2, 3, 255, 4, 5, 6, 255,
		7, 8, 9, 255, 10, 11, 12, 255,
		99, 99, // trailing padding is ignored
	}
	img, err := frameFromBytes(data, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 10, G: 11, B: 12, A: 255}, img.RGBAAt(1, 1))

	// the image owns its pixels
	data[0] = 0
	assert.Equal(t, uint8(1), img.Pix[0])

	_, err = frameFromBytes(data[:7], 2, 2)
	assert.Error(t, err)
}

func TestBuilderOptions(t *testing.T) {
	s := NewSource().(*source)
	assert.Equal(t, DefaultDevice, s.Device())
	assert.Equal(t, DefaultWidth, s.width)
	assert.Equal(t, DefaultHeight, s.height)

	s = NewSource(
		WithDevice("/dev/video2"),
		WithResolution(640, 360),
		WithFrameRate(24),
	).(*source)
	assert.Equal(t, "/dev/video2", s.Device())
	assert.Equal(t, 640, s.width)
	assert.Equal(t, 360, s.height)
	assert.Equal(t, 24, s.fps)

	s = NewSource(WithDevice(""), WithResolution(0, 10), WithFrameRate(-5)).(*source)
	assert.Equal(t, DefaultDevice, s.Device())
	assert.Equal(t, DefaultWidth, s.width)
	assert.Zero(t, s.fps)
}

func TestCloseWithoutStart(t *testing.T) {
	s := NewSource()
	require.NoError(t, s.Close())
	<-s.Done()
	assert.Nil(t, s.Frame())
}
