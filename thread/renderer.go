// SPDX-License-Identifier: Unlicense OR MIT

package thread

import (
	"sync"

	"gioui.org/glthread/surface"
)

// Renderer draws frames. Its methods are called on the render thread,
// one at a time, in the order OnContextCreated, OnSurfaceSized,
// OnDrawFrame for each context, with OnSurfaceTeardown before the
// surface is destroyed.
type Renderer interface {
	// OnContextCreated is called after a new context is made current.
	// Resources of previous contexts are gone.
	OnContextCreated(cfg surface.Config)
	// OnSurfaceSized is called after the surface is created or resized.
	OnSurfaceSized(width, height int)
	// OnDrawFrame draws one complete frame.
	OnDrawFrame()
	// OnSurfaceTeardown is called while the surface and context are
	// still valid, right before the surface is destroyed. It is called
	// with the Thread locked and must not call any Thread method.
	OnSurfaceTeardown()
}

// Handle is a reference from a Thread to its Renderer that the
// Renderer's owner can revoke. A Thread skips callbacks once its Handle
// is invalidated.
type Handle struct {
	mu sync.Mutex
	r  Renderer
}

// NewHandle returns a valid Handle for r.
func NewHandle(r Renderer) *Handle {
	return &Handle{r: r}
}

// Get returns the Renderer and whether the handle is still valid.
func (h *Handle) Get() (Renderer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.r, h.r != nil
}

// Invalidate drops the reference to the Renderer.
func (h *Handle) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.r = nil
}
