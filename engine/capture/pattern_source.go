package capture

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// barColors are the classic 75% colour bars, left to right.
var barColors = []color.RGBA{
	{R: 191, G: 191, B: 191, A: 255},
	{R: 191, G: 191, B: 0, A: 255},
	{R: 0, G: 191, B: 191, A: 255},
	{R: 0, G: 191, B: 0, A: 255},
	{R: 191, G: 0, B: 191, A: 255},
	{R: 191, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 191, A: 255},
}

// patternSource is a synthetic FrameSource drawing colour bars with a white square that
// sweeps across the frame, for running without a camera.
type patternSource struct {
	*Stream
	width  int
	height int
	fps    float64
	clock  func() time.Time
	start  time.Time
}

var _ FrameSource = &patternSource{}

// NewPatternSource creates a synthetic animated test pattern source.
//
// Parameters:
//   - width: the frame width in pixels
//   - height: the frame height in pixels
//   - fps: the frame rate, values <= 0 become 30
//
// Returns:
//   - FrameSource: the source
func NewPatternSource(width, height int, fps float64) FrameSource {
	if fps <= 0 {
		fps = 30
	}
	return &patternSource{
		Stream: NewStream(),
		width:  max(width, 1),
		height: max(height, 1),
		fps:    fps,
		clock:  time.Now,
	}
}

func (p *patternSource) Start(ctx context.Context) error {
	p.start = p.clock()
	logrus.WithFields(logrus.Fields{
		"function": "PatternSource.Start",
		"width":    p.width,
		"height":   p.height,
		"fps":      p.fps,
	}).Info("Starting test pattern source")

	return p.Run(ctx, func(ctx context.Context) error {
		ticker := time.NewTicker(time.Duration(float64(time.Second) / p.fps))
		defer ticker.Stop()

		p.Publish(p.render(0))
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				p.Publish(p.render(now.Sub(p.start).Seconds()))
			}
		}
	})
}

// render draws one pattern frame at t seconds.
func (p *patternSource) render(t float64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	barW := float64(p.width) / float64(len(barColors))
	for x := 0; x < p.width; x++ {
		c := barColors[min(int(float64(x)/barW), len(barColors)-1)]
		for y := 0; y < p.height; y++ {
			img.SetRGBA(x, y, c)
		}
	}

	side := max(p.height/6, 1)
	travelX := float64(max(p.width-side, 1))
	travelY := float64(max(p.height-side, 1))
	// triangle waves so the square bounces between the edges
	sx := int(travelX * (1 - math.Abs(math.Mod(t*0.25, 2)-1)))
	sy := int(travelY * (1 - math.Abs(math.Mod(t*0.15, 2)-1)))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	for y := sy; y < min(sy+side, p.height); y++ {
		for x := sx; x < min(sx+side, p.width); x++ {
			img.SetRGBA(x, y, white)
		}
	}
	return img
}

func (p *patternSource) Close() error {
	if p.Stop() {
		logrus.WithFields(logrus.Fields{
			"function":  "PatternSource.Close",
			"published": p.Stats().Published,
		}).Info("Test pattern source closed")
	}
	return nil
}
