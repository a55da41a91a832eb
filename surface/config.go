// SPDX-License-Identifier: Unlicense OR MIT

package surface

import (
	"fmt"
	"image"
)

// ConfigSpec describes the smallest framebuffer configuration a Session
// accepts. Bit sizes are minimums.
type ConfigSpec struct {
	Red, Green, Blue, Alpha int
	Depth, Stencil          int
	// ClientVersion is the requested GLES major version. Zero prefers
	// version 3 and falls back to 2.
	ClientVersion int
}

// DefaultConfigSpec is an RGB888 configuration with a 16 bit depth buffer.
var DefaultConfigSpec = ConfigSpec{Red: 8, Green: 8, Blue: 8, Depth: 16}

// Config is the configuration chosen by a Device.
type Config struct {
	ConfigSpec
	// VisualID is the native visual of the configuration, or zero.
	VisualID int
	// SRGB reports whether window surfaces use an sRGB color space.
	SRGB bool
}

// Satisfies reports whether c meets every minimum in spec.
func (c Config) Satisfies(spec ConfigSpec) bool {
	return c.Red >= spec.Red && c.Green >= spec.Green && c.Blue >= spec.Blue &&
		c.Alpha >= spec.Alpha && c.Depth >= spec.Depth && c.Stencil >= spec.Stencil &&
		(spec.ClientVersion == 0 || c.ClientVersion == spec.ClientVersion)
}

func (c Config) String() string {
	return fmt.Sprintf("rgba%d%d%d%d d%d s%d es%d srgb=%v", c.Red, c.Green, c.Blue, c.Alpha, c.Depth, c.Stencil, c.ClientVersion, c.SRGB)
}

// Capabilities describes what a device allows across contexts.
type Capabilities struct {
	// MultipleContexts reports whether more than one context may be live
	// in the process at the same time.
	MultipleContexts bool
	// ReleaseOnPause asks paused render threads to release their context
	// even if they were configured to keep it.
	ReleaseOnPause bool
}

// Window is a native window a surface can be bound to. Each Driver
// accepts its own concrete Window type. Window values must be
// comparable; equal values denote the same native window.
type Window interface {
	// Size returns the window size in pixels.
	Size() image.Point
}
