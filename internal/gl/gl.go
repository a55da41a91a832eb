// SPDX-License-Identifier: Unlicense OR MIT

// Package gl exposes the few OpenGL ES entry points the render threads
// and the demo need.
package gl

type Enum uint

const (
	COLOR_BUFFER_BIT = 0x4000
	DEPTH_BUFFER_BIT = 0x100
	RENDERER         = 0x1f01
	VENDOR           = 0x1f00
	VERSION          = 0x1f02
)

// Functions calls the OpenGL ES functions of the context current on the
// calling thread.
type Functions struct{}
