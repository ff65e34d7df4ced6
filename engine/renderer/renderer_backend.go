package renderer

import (
	"fmt"
	"strings"
)

// RendererBackendType identifies the Renderer implementation.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based renderer.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU renderer.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "gpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// ParseBackendType parses "gpu" (or "wgpu") and "software".
func ParseBackendType(s string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gpu", "wgpu":
		return BackendTypeWGPU, nil
	case "software", "cpu":
		return BackendTypeSoftware, nil
	default:
		return 0, fmt.Errorf("unknown renderer backend %q", s)
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	default:
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
}

// ParsePresentMode parses "vsync" and "uncapped".
func ParsePresentMode(s string) (PresentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vsync", "":
		return PresentModeVSync, nil
	case "uncapped", "immediate":
		return PresentModeUncapped, nil
	default:
		return 0, fmt.Errorf("unknown present mode %q", s)
	}
}
