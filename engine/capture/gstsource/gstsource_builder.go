package gstsource

// SourceBuilderOption is a functional option applied during construction via NewSource.
type SourceBuilderOption func(*source)

// WithDevice sets the v4l2 device path.
//
// Parameters:
//   - device: the device path, e.g. /dev/video0
//
// Returns:
//   - SourceBuilderOption: a function that applies the device option
func WithDevice(device string) SourceBuilderOption {
	return func(s *source) {
		if device != "" {
			s.device = device
		}
	}
}

// WithResolution sets the requested frame size. Non-positive values keep the 1280x720 default.
//
// Parameters:
//   - width: the frame width in pixels
//   - height: the frame height in pixels
//
// Returns:
//   - SourceBuilderOption: a function that applies the resolution option
func WithResolution(width, height int) SourceBuilderOption {
	return func(s *source) {
		if width > 0 && height > 0 {
			s.width = width
			s.height = height
		}
	}
}

// WithFrameRate pins the camera frame rate. Zero lets the camera choose.
//
// Parameters:
//   - fps: frames per second
//
// Returns:
//   - SourceBuilderOption: a function that applies the frame rate option
func WithFrameRate(fps int) SourceBuilderOption {
	return func(s *source) {
		s.fps = max(fps, 0)
	}
}
