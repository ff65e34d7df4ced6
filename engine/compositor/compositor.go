// Package compositor burns the floating text overlay into the captured frame before the frame
// is uploaded as the shader's source texture.
//
// Three coordinate systems meet here: the stage (display points, where overlay physics runs),
// the buffer (native capture pixels) and, downstream, the surface (backing-store pixels).
// The compositor only converts stage to buffer.
package compositor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/Carmen-Shannon/neon-cam/common"
	"github.com/Carmen-Shannon/neon-cam/engine/overlay"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/math/fixed"
)

const (
	// GlowRadius is the glow blur radius in stage points.
	GlowRadius = 28.0

	// maxCachedFaces bounds the per-size face cache.
	maxCachedFaces = 16
)

var (
	// GlowColor is the soft glow drawn beneath the text.
	GlowColor = color.NRGBA{R: 124, G: 241, B: 255, A: 230}

	// BasePalette is the text gradient when no post-effect is active.
	BasePalette = []color.RGBA{
		{R: 0x7c, G: 0xf1, B: 0xff, A: 0xff},
		{R: 0xff, G: 0x2f, B: 0xb9, A: 0xff},
	}

	// EffectPalette is the text gradient when any post-effect is active.
	EffectPalette = []color.RGBA{
		{R: 0x7c, G: 0xf1, B: 0xff, A: 0xff},
		{R: 0xff, G: 0x2f, B: 0xb9, A: 0xff},
		{R: 0xff, G: 0xc4, B: 0x5a, A: 0xff},
	}
)

// compositor is the implementation of the Compositor interface.
type compositor struct {
	mu *sync.Mutex

	buffer *image.RGBA

	font   *truetype.Font
	faces  map[float64]font.Face
	sprite *textSprite
}

// Compositor owns the intermediate buffer the shader samples from. The buffer is mutated in
// place on every Compose call; nothing else may write to it.
type Compositor interface {
	// Compose copies frame 1:1 into the intermediate buffer, reallocating the buffer only when
	// the frame dimensions change, then draws the overlay text when ov is active.
	//
	// Parameters:
	//   - frame: the captured frame in native pixels
	//   - ov: the current overlay snapshot in stage coordinates
	//   - stage: the stage size in display points
	//   - anyEffect: whether any post-effect toggle is on, selecting the 3-stop palette
	//
	// Returns:
	//   - *image.RGBA: the intermediate buffer, or nil if frame is nil and no buffer exists
	Compose(frame image.Image, ov overlay.Snapshot, stage common.Size, anyEffect bool) *image.RGBA

	// Buffer returns the intermediate buffer without modifying it.
	//
	// Returns:
	//   - *image.RGBA: the buffer, nil before the first Compose or after Release
	Buffer() *image.RGBA

	// MeasureText returns the advance width of text at the given pixel size with the
	// compositor's face. It satisfies overlay.Measurer.
	//
	// Parameters:
	//   - text: the text to measure
	//   - fontSize: the font size in pixels
	//
	// Returns:
	//   - float64: the advance width in pixels
	MeasureText(text string, fontSize float64) float64

	// Release drops the intermediate buffer and cached glyph data.
	Release()
}

var _ Compositor = &compositor{}

// NewCompositor creates a compositor drawing with the bundled Go Bold face unless a
// TrueType font is supplied with WithFontData.
//
// Parameters:
//   - options: variadic list of CompositorBuilderOption functions
//
// Returns:
//   - Compositor: the compositor
//   - error: an error if the font could not be parsed
func NewCompositor(options ...CompositorBuilderOption) (Compositor, error) {
	cfg := &compositorConfig{}
	for _, opt := range options {
		opt(cfg)
	}
	data := cfg.fontData
	if len(data) == 0 {
		data = gobold.TTF
	}
	f, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse overlay font: %w", err)
	}
	return &compositor{
		mu:    &sync.Mutex{},
		font:  f,
		faces: make(map[float64]font.Face),
	}, nil
}

func (c *compositor) Compose(frame image.Image, ov overlay.Snapshot, stage common.Size, anyEffect bool) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	if frame == nil {
		return c.buffer
	}
	fb := frame.Bounds()
	if c.buffer == nil || c.buffer.Rect.Dx() != fb.Dx() || c.buffer.Rect.Dy() != fb.Dy() {
		c.buffer = image.NewRGBA(image.Rect(0, 0, fb.Dx(), fb.Dy()))
	}
	draw.Draw(c.buffer, c.buffer.Rect, frame, fb.Min, draw.Src)

	if ov.Active() {
		c.drawOverlayLocked(ov, stage, anyEffect)
	}
	return c.buffer
}

// drawOverlayLocked draws the glow and the gradient-filled text at the overlay position
// converted from stage to buffer coordinates.
func (c *compositor) drawOverlayLocked(ov overlay.Snapshot, stage common.Size, anyEffect bool) {
	stage.Width, stage.Height = math.Max(stage.Width, 1), math.Max(stage.Height, 1)
	bufferSize := common.Size{Width: float64(c.buffer.Rect.Dx()), Height: float64(c.buffer.Rect.Dy())}
	ratio := StageToBuffer(stage, bufferSize)

	px := ov.FontSize * ratio.Y
	radius := GlowRadius * ratio.Y
	if px <= 0 {
		return
	}
	drawX := ov.X * ratio.X
	drawY := ov.Y * ratio.Y

	s := c.spriteLocked(ov.Text, px, radius)
	origin := image.Pt(int(math.Floor(drawX))-s.pad, int(math.Floor(drawY))-s.pad)
	dst := s.mask.Rect.Add(origin).Intersect(c.buffer.Rect)
	if dst.Empty() {
		return
	}

	draw.Draw(c.buffer, dst, s.glow, dst.Min.Sub(origin), draw.Over)

	fill := &linearGradient{x0: drawX, width: ov.Width * ratio.X, stops: Palette(anyEffect)}
	draw.DrawMask(c.buffer, dst, fill, dst.Min, s.mask, dst.Min.Sub(origin), draw.Over)
}

func (c *compositor) Buffer() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer
}

func (c *compositor) MeasureText(text string, fontSize float64) float64 {
	if text == "" || fontSize <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return fixedToFloat(font.MeasureString(c.faceLocked(fontSize), text))
}

func (c *compositor) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer = nil
	c.sprite = nil
	c.closeFacesLocked()
}

// faceLocked returns a cached face for the pixel size, rounded to a quarter pixel.
func (c *compositor) faceLocked(px float64) font.Face {
	key := math.Round(px*4) / 4
	if f, ok := c.faces[key]; ok {
		return f
	}
	if len(c.faces) >= maxCachedFaces {
		c.closeFacesLocked()
	}
	f := truetype.NewFace(c.font, &truetype.Options{
		Size:    key,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	c.faces[key] = f
	return f
}

func (c *compositor) closeFacesLocked() {
	for k, f := range c.faces {
		_ = f.Close()
		delete(c.faces, k)
	}
}

// StageToBuffer returns the per-axis ratio converting stage points into buffer pixels.
//
// Parameters:
//   - stage: the stage size in display points
//   - buffer: the buffer size in pixels
//
// Returns:
//   - common.Vec2: buffer / stage per axis
func StageToBuffer(stage, buffer common.Size) common.Vec2 {
	return buffer.Ratio(stage)
}

// Palette returns the gradient stops for the given effect state.
//
// Parameters:
//   - anyEffect: whether any post-effect toggle is on
//
// Returns:
//   - []color.RGBA: the gradient stops, evenly spaced
func Palette(anyEffect bool) []color.RGBA {
	if anyEffect {
		return EffectPalette
	}
	return BasePalette
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
