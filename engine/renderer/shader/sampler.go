package shader

import (
	"math"

	"github.com/Carmen-Shannon/neon-cam/common"
)

// Sampler reads filtered texels from a bound texture.
type Sampler interface {
	// Sample returns the filtered RGB value at a texture coordinate.
	//
	// Parameters:
	//   - uv: the texture coordinate, (0,0) is the bottom-left corner
	//
	// Returns:
	//   - common.Vec3: the RGB value in [0,1]
	Sample(uv common.Vec2) common.Vec3
}

// LinearClampSampler samples staged RGBA pixels with bilinear filtering and clamp-to-edge
// addressing, matching a linear sampler with no mip levels.
type LinearClampSampler struct {
	tex *common.TextureStagingData
}

var _ Sampler = LinearClampSampler{}

// NewLinearClampSampler wraps staged texture data. Row 0 of tex is texture v = 0.
//
// Parameters:
//   - tex: the staged texture, not copied
//
// Returns:
//   - LinearClampSampler: the sampler
func NewLinearClampSampler(tex *common.TextureStagingData) LinearClampSampler {
	return LinearClampSampler{tex: tex}
}

func (s LinearClampSampler) Sample(uv common.Vec2) common.Vec3 {
	if s.tex == nil || s.tex.Width == 0 || s.tex.Height == 0 {
		return common.Vec3{}
	}
	w, h := int(s.tex.Width), int(s.tex.Height)

	fx := uv.X*float64(w) - 0.5
	fy := uv.Y*float64(h) - 0.5
	x0f, y0f := math.Floor(fx), math.Floor(fy)
	tx, ty := fx-x0f, fy-y0f
	x0, y0 := int(x0f), int(y0f)

	c00 := s.texel(x0, y0, w, h)
	c10 := s.texel(x0+1, y0, w, h)
	c01 := s.texel(x0, y0+1, w, h)
	c11 := s.texel(x0+1, y0+1, w, h)

	return common.MixVec3(common.MixVec3(c00, c10, tx), common.MixVec3(c01, c11, tx), ty)
}

func (s LinearClampSampler) texel(x, y, w, h int) common.Vec3 {
	x = min(max(x, 0), w-1)
	y = min(max(y, 0), h-1)
	i := (y*w + x) * 4
	p := s.tex.Pixels[i : i+3 : i+3]
	return common.Vec3{X: float64(p[0]) / 255, Y: float64(p[1]) / 255, Z: float64(p[2]) / 255}
}
