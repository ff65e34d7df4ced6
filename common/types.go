// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"image"
	"math"
)

// TextureStagingData holds tightly packed RGBA pixel data for a texture pending upload.
// Row 0 is the bottom row of the source image when staged with flipY, which matches the
// texture-space convention of the quad where texcoord (0,0) is the bottom-left corner.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It is in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// StageImage copies img into dst as tightly packed RGBA rows, optionally flipping the rows vertically.
// The destination pixel slice is reused when it already has the required capacity.
//
// Parameters:
//   - dst: the staging data to fill
//   - img: the source image
//   - flipY: if true, the last image row becomes row 0
func StageImage(dst *TextureStagingData, img *image.RGBA, flipY bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rowBytes := w * 4
	need := rowBytes * h
	if cap(dst.Pixels) < need {
		dst.Pixels = make([]byte, need)
	}
	dst.Pixels = dst.Pixels[:need]
	dst.Width = uint32(w)
	dst.Height = uint32(h)

	for y := 0; y < h; y++ {
		srcRow := img.PixOffset(b.Min.X, b.Min.Y+y)
		dstY := y
		if flipY {
			dstY = h - 1 - y
		}
		copy(dst.Pixels[dstY*rowBytes:(dstY+1)*rowBytes], img.Pix[srcRow:srcRow+rowBytes])
	}
}

// Size is a width/height pair in an explicitly named coordinate system.
// Stage sizes are display points, buffer sizes are capture pixels and surface sizes are backing-store pixels.
type Size struct {
	Width, Height float64
}

// Empty reports whether either dimension is zero or negative.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Ratio returns the per-axis conversion factor from the from coordinate system into s.
// A zero source dimension yields a ratio of 1 on that axis.
//
// Parameters:
//   - from: the size in the source coordinate system
//
// Returns:
//   - Vec2: s / from per axis
func (s Size) Ratio(from Size) Vec2 {
	r := Vec2{1, 1}
	if from.Width > 0 {
		r.X = s.Width / from.Width
	}
	if from.Height > 0 {
		r.Y = s.Height / from.Height
	}
	return r
}

// BackingSize converts a client (display point) size into backing-store pixels at the given
// device pixel ratio, flooring each axis.
//
// Parameters:
//   - client: the client size in display points
//   - devicePixelRatio: the number of backing pixels per display point; values <= 0 are treated as 1
//
// Returns:
//   - int: the backing width in pixels
//   - int: the backing height in pixels
func BackingSize(client Size, devicePixelRatio float64) (int, int) {
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}
	return int(math.Floor(client.Width * devicePixelRatio)), int(math.Floor(client.Height * devicePixelRatio))
}
