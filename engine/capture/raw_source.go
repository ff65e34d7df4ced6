package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/sirupsen/logrus"
)

// rawSource reads tightly packed RGBA frames of a fixed size from a byte stream, e.g.
// `ffmpeg -f v4l2 -i /dev/video0 -pix_fmt rgba -f rawvideo -`.
type rawSource struct {
	*Stream
	r      io.Reader
	width  int
	height int
}

var _ FrameSource = &rawSource{}

// NewRawSource creates a source reading raw RGBA frames from r. A clean EOF on a frame boundary
// ends the stream without error; a truncated final frame is reported through Err.
//
// Parameters:
//   - r: the byte stream; closed by Close when it implements io.Closer
//   - width: the frame width in pixels
//   - height: the frame height in pixels
//
// Returns:
//   - FrameSource: the source
//   - error: an error if the dimensions are not positive
func NewRawSource(r io.Reader, width, height int) (FrameSource, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raw source: invalid frame size %dx%d", width, height)
	}
	return &rawSource{Stream: NewStream(), r: r, width: width, height: height}, nil
}

func (s *rawSource) Start(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"function": "RawSource.Start",
		"width":    s.width,
		"height":   s.height,
	}).Info("Reading raw RGBA frames")

	return s.Run(ctx, func(ctx context.Context) error {
		frameBytes := s.width * s.height * 4
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
			if _, err := io.ReadFull(s.r, img.Pix[:frameBytes]); err != nil {
				if errors.Is(err, io.EOF) {
					logrus.WithFields(logrus.Fields{
						"function":  "RawSource.Start",
						"published": s.Stats().Published,
					}).Info("Raw stream reached end of stream")
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("raw source: read frame %d: %w", s.Stats().Published+1, err)
			}
			s.Publish(img)
		}
	})
}

func (s *rawSource) Close() error {
	var err error
	// a blocked read only returns once the reader is closed
	if c, ok := s.r.(io.Closer); ok {
		err = c.Close()
	}
	s.Stop()
	return err
}
