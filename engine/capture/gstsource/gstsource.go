// Package gstsource captures a v4l2 camera through a GStreamer pipeline.
//
// Pipeline: v4l2src → videoconvert → videoscale → capsfilter(RGBA, WxH) → appsink.
// The appsink keeps one buffer and drops the rest, so only the freshest camera frame is
// ever copied into the capture inbox.
package gstsource

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/Carmen-Shannon/neon-cam/engine/capture"
	"github.com/sirupsen/logrus"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

const (
	// DefaultDevice is the camera opened when no device is configured.
	DefaultDevice = "/dev/video0"
	// DefaultWidth and DefaultHeight are the ideal camera resolution.
	DefaultWidth  = 1280
	DefaultHeight = 720

	busPollInterval = 50 * time.Millisecond
)

// Source is a GStreamer camera frame source.
type Source interface {
	capture.FrameSource

	// Device returns the capture device path.
	//
	// Returns:
	//   - string: the device path
	Device() string
}

type source struct {
	*capture.Stream
	device string
	width  int
	height int
	fps    int
}

var _ Source = &source{}

// NewSource creates a camera source. The GStreamer pipeline is built by Start.
//
// Parameters:
//   - options: builder options for the device, resolution and frame rate
//
// Returns:
//   - Source: the camera source
func NewSource(options ...SourceBuilderOption) Source {
	s := &source{
		Stream: capture.NewStream(),
		device: DefaultDevice,
		width:  DefaultWidth,
		height: DefaultHeight,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *source) Device() string {
	return s.device
}

func (s *source) Start(ctx context.Context) error {
	pipeline, err := s.build()
	if err != nil {
		return err
	}

	if err := s.Run(ctx, func(ctx context.Context) error {
		return s.watchBus(ctx, pipeline)
	}); err != nil {
		pipeline.SetState(gst.StateNull)
		return err
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		s.Stop()
		return fmt.Errorf("start camera pipeline: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Source.Start",
		"device":   s.device,
		"width":    s.width,
		"height":   s.height,
		"fps":      s.fps,
	}).Info("Camera pipeline playing")
	return nil
}

// build creates and links the pipeline elements.
func (s *source) build() (*gst.Pipeline, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("failed to create v4l2src: %w", err)
	}
	if err := src.SetProperty("device", s.device); err != nil {
		return nil, fmt.Errorf("failed to set camera device %q: %w", s.device, err)
	}

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoscale: %w", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(rawCaps(s.width, s.height, s.fps)))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)

	pipeline.AddMany(src, convert, scale, capsfilter, sink.Element)
	if err := gst.ElementLinkMany(src, convert, scale, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("failed to link camera pipeline: %w", err)
	}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	return pipeline, nil
}

// rawCaps builds the capsfilter string forcing tightly packed RGBA at the target size.
func rawCaps(width, height, fps int) string {
	caps := fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d", width, height)
	if fps > 0 {
		caps += fmt.Sprintf(",framerate=%d/1", fps)
	}
	return caps
}

// onNewSample copies the appsink buffer into a frame and publishes it.
func (s *source) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	data := buffer.Map(gst.MapRead).Bytes()
	img, err := frameFromBytes(data, s.width, s.height)
	buffer.Unmap()
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Source.onNewSample",
			"device":   s.device,
			"error":    err,
		}).Warn("Skipping camera frame")
		return gst.FlowOK
	}

	f := s.Publish(img)
	if f.Seq == 1 {
		logrus.WithFields(logrus.Fields{
			"function": "Source.onNewSample",
			"device":   s.device,
			"trace_id": f.TraceID,
		}).Info("First camera frame received")
	}
	return gst.FlowOK
}

// frameFromBytes copies tightly packed RGBA pixels into a new image.
func frameFromBytes(data []byte, width, height int) (*image.RGBA, error) {
	want := width * height * 4
	if len(data) < want {
		return nil, fmt.Errorf("short camera buffer: got %d bytes, want %d", len(data), want)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, data[:want])
	return img, nil
}

// watchBus polls the pipeline bus until the stream ends, fails or ctx is cancelled.
// The pipeline is torn down on return.
func (s *source) watchBus(ctx context.Context, pipeline *gst.Pipeline) error {
	defer pipeline.SetState(gst.StateNull)

	bus := pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			logrus.WithFields(logrus.Fields{
				"function":  "Source.watchBus",
				"device":    s.device,
				"published": s.Stats().Published,
			}).Info("Camera reached end of stream")
			return nil

		case gst.MessageError:
			gerr := msg.ParseError()
			logrus.WithFields(logrus.Fields{
				"function": "Source.watchBus",
				"device":   s.device,
				"error":    gerr.Error(),
				"debug":    gerr.DebugString(),
			}).Error("Camera pipeline error")
			return fmt.Errorf("camera %s: %s", s.device, gerr.Error())
		}
	}
}

func (s *source) Close() error {
	if s.Stop() {
		stats := s.Stats()
		logrus.WithFields(logrus.Fields{
			"function":  "Source.Close",
			"device":    s.device,
			"published": stats.Published,
			"dropped":   stats.Dropped,
		}).Info("Camera source closed")
	}
	return nil
}
