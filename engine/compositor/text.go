package compositor

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// textSprite is the rasterized text mask and its blurred glow, both anchored at (0,0) with
// pad pixels of margin around the em box. It is rebuilt only when the text, size or glow
// radius change; moving the overlay just translates it.
type textSprite struct {
	text   string
	px     float64
	radius float64

	pad  int
	mask *image.Alpha
	glow *image.NRGBA
}

func (c *compositor) spriteLocked(text string, px, radius float64) *textSprite {
	if s := c.sprite; s != nil && s.text == text && s.px == px && s.radius == radius {
		return s
	}

	face := c.faceLocked(px)
	metrics := face.Metrics()
	advance := font.MeasureString(face, text).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	sigma := radius / 2
	pad := int(math.Ceil(sigma * 3))
	bounds := image.Rect(0, 0, advance+2*pad, height+2*pad)

	// top baseline: the pen starts one ascent below the top of the box
	mask := image.NewAlpha(bounds)
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(pad),
			Y: fixed.I(pad) + metrics.Ascent,
		},
	}
	d.DrawString(text)

	shadow := image.NewNRGBA(bounds)
	for i, a := range mask.Pix {
		if a == 0 {
			continue
		}
		o := i * 4
		shadow.Pix[o] = GlowColor.R
		shadow.Pix[o+1] = GlowColor.G
		shadow.Pix[o+2] = GlowColor.B
		shadow.Pix[o+3] = uint8(uint32(a) * uint32(GlowColor.A) / 255)
	}
	glow := shadow
	if sigma > 0 {
		glow = imaging.Blur(shadow, sigma)
	}

	c.sprite = &textSprite{
		text:   text,
		px:     px,
		radius: radius,
		pad:    pad,
		mask:   mask,
		glow:   glow,
	}
	return c.sprite
}

// linearGradient is an unbounded horizontal gradient with evenly spaced stops, interpolated
// per channel in sRGB. Colours are clamped to the end stops outside [x0, x0+width].
type linearGradient struct {
	x0    float64
	width float64
	stops []color.RGBA
}

func (g *linearGradient) ColorModel() color.Model {
	return color.RGBAModel
}

func (g *linearGradient) Bounds() image.Rectangle {
	return image.Rect(-1<<24, -1<<24, 1<<24, 1<<24)
}

func (g *linearGradient) At(x, _ int) color.Color {
	t := 0.0
	if g.width > 0 {
		t = (float64(x) + 0.5 - g.x0) / g.width
	}
	return gradientAt(g.stops, t)
}

// gradientAt samples evenly spaced stops at t in [0,1].
func gradientAt(stops []color.RGBA, t float64) color.RGBA {
	switch len(stops) {
	case 0:
		return color.RGBA{}
	case 1:
		return stops[0]
	}
	t = math.Max(0, math.Min(1, t))
	seg := t * float64(len(stops)-1)
	i := int(math.Floor(seg))
	if i >= len(stops)-1 {
		return stops[len(stops)-1]
	}
	f := seg - float64(i)
	a, b := stops[i], stops[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*f))
	}
	return color.RGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}
