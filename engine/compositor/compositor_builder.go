package compositor

import (
	"fmt"
	"os"
)

type compositorConfig struct {
	fontData []byte
}

// CompositorBuilderOption is a functional option applied during construction via NewCompositor.
type CompositorBuilderOption func(*compositorConfig)

// WithFontData sets the TrueType font used to draw and measure the overlay text.
//
// Parameters:
//   - ttf: the raw TTF bytes
//
// Returns:
//   - CompositorBuilderOption: a function that applies the font option
func WithFontData(ttf []byte) CompositorBuilderOption {
	return func(c *compositorConfig) {
		c.fontData = ttf
	}
}

// LoadFont reads a TrueType font file for use with WithFontData.
//
// Parameters:
//   - path: the font file path
//
// Returns:
//   - []byte: the file contents
//   - error: an error if the file could not be read
func LoadFont(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay font: %w", err)
	}
	return data, nil
}
