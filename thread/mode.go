// SPDX-License-Identifier: Unlicense OR MIT

package thread

import "fmt"

// RenderMode controls when frames are drawn.
type RenderMode uint8

const (
	// OnDemand draws one frame per RequestRender and whenever the
	// surface is created or resized.
	OnDemand RenderMode = iota
	// Continuous draws frames back to back while drawing is possible.
	Continuous
)

func (m RenderMode) String() string {
	switch m {
	case OnDemand:
		return "OnDemand"
	case Continuous:
		return "Continuous"
	default:
		return fmt.Sprintf("RenderMode(%d)", uint8(m))
	}
}

func (m RenderMode) valid() bool {
	return m == OnDemand || m == Continuous
}

// State is a summary of the render thread state, for diagnostics.
type State uint8

const (
	// WaitingForSurface means no surface has been made available.
	WaitingForSurface State = iota
	// HasSurface means a surface is available but no context is held.
	HasSurface
	// HasContext means a context is held but no surface is bound.
	HasContext
	// Ready means both a context and a bound surface are held.
	Ready
	// Paused means the thread acknowledged a pause request.
	Paused
	// Exiting means Shutdown was called and teardown is in progress.
	Exiting
	// Exited means the render thread has terminated.
	Exited
)

func (s State) String() string {
	switch s {
	case WaitingForSurface:
		return "WaitingForSurface"
	case HasSurface:
		return "HasSurface"
	case HasContext:
		return "HasContext"
	case Ready:
		return "Ready"
	case Paused:
		return "Paused"
	case Exiting:
		return "Exiting"
	case Exited:
		return "Exited"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}
