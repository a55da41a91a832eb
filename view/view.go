// SPDX-License-Identifier: Unlicense OR MIT

// Package view connects the surface events of a windowing toolkit to a
// render thread.
package view

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"gioui.org/glthread/arbiter"
	ilog "gioui.org/glthread/internal/log"
	"gioui.org/glthread/surface"
	"gioui.org/glthread/thread"
)

// ErrRendererSet is returned by SetRenderer when a renderer has already
// been set.
var ErrRendererSet = errors.New("view: renderer already set")

// View owns the render thread of one window. It starts the thread when
// its renderer is set, stops it on Detach and starts a new one on
// Attach.
type View struct {
	driver surface.Driver
	arb    *arbiter.Arbiter
	opts   []thread.Option
	log    *logrus.Entry

	mu       sync.Mutex
	handle   *thread.Handle
	thread   *thread.Thread
	mode     thread.RenderMode
	detached bool
}

// New returns a View whose render threads use d and arb, configured by
// opts. A nil arb selects arbiter.Default.
func New(d surface.Driver, arb *arbiter.Arbiter, opts ...thread.Option) *View {
	if arb == nil {
		arb = arbiter.Default()
	}
	return &View{
		driver: d,
		arb:    arb,
		opts:   opts,
		log:    ilog.New("view"),
		mode:   thread.RenderModeOf(opts...),
	}
}

// SetRenderer sets the renderer and starts the render thread. It can
// only be called once.
func (v *View) SetRenderer(r thread.Renderer) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.handle != nil {
		return ErrRendererSet
	}
	v.handle = thread.NewHandle(r)
	v.startLocked()
	return nil
}

func (v *View) startLocked() {
	opts := append(v.opts[:len(v.opts):len(v.opts)], thread.WithRenderMode(v.mode))
	v.thread = thread.New(v.driver, v.arb, v.handle, opts...)
	v.log.WithField("thread", v.thread.Name()).Debug("render thread started")
}

// current returns the running render thread, or nil.
func (v *View) current() *thread.Thread {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.thread
}

// SurfaceAvailable reports that win is ready with the given size. It
// returns once the first frame is presented or the render thread cannot
// draw.
func (v *View) SurfaceAvailable(win surface.Window, width, height int) {
	t := v.current()
	if t == nil {
		return
	}
	t.NotifySurfaceAvailableSize(win, width, height)
}

// SurfaceResized reports a new window size.
func (v *View) SurfaceResized(width, height int) {
	if t := v.current(); t != nil {
		t.OnResize(width, height)
	}
}

// SurfaceLost reports that the window is gone. The surface is destroyed
// when SurfaceLost returns.
func (v *View) SurfaceLost() {
	if t := v.current(); t != nil {
		t.NotifySurfaceLost()
	}
}

// SurfaceUpdated reports that the window content was invalidated.
func (v *View) SurfaceUpdated() {
	v.RequestRender()
}

// Pause pauses rendering, for example when the window is hidden.
func (v *View) Pause() {
	if t := v.current(); t != nil {
		t.RequestPause()
	}
}

// Resume resumes rendering after Pause.
func (v *View) Resume() {
	if t := v.current(); t != nil {
		t.RequestResume()
	}
}

// Queue runs f on the render thread before the next frame.
func (v *View) Queue(f func()) {
	if t := v.current(); t != nil {
		t.Enqueue(f)
	}
}

// RequestRender asks for a frame in OnDemand mode.
func (v *View) RequestRender() {
	if t := v.current(); t != nil {
		t.RequestRender()
	}
}

// SetRenderMode sets the render mode of the current and future render
// threads.
func (v *View) SetRenderMode(m thread.RenderMode) {
	v.mu.Lock()
	v.mode = m
	t := v.thread
	v.mu.Unlock()
	if t != nil {
		t.SetRenderMode(m)
	}
}

// RenderMode returns the render mode.
func (v *View) RenderMode() thread.RenderMode {
	if t := v.current(); t != nil {
		return t.RenderMode()
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// Detach stops the render thread, destroying its surface and context. It
// returns the error that stopped the thread, if any.
func (v *View) Detach() error {
	v.mu.Lock()
	t := v.thread
	v.thread = nil
	v.detached = true
	if t != nil {
		v.mode = t.RenderMode()
	}
	v.mu.Unlock()
	if t == nil {
		return nil
	}
	err := t.Shutdown()
	v.log.WithField("thread", t.Name()).Debug("render thread stopped")
	return err
}

// Attach starts a new render thread after Detach. The new thread keeps
// the render mode of the old one. Attach does nothing if the View is
// not detached or has no renderer.
func (v *View) Attach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.detached || v.handle == nil {
		return
	}
	v.detached = false
	v.startLocked()
}

// Close stops the render thread and releases the renderer. It returns
// the error that stopped the thread, if any.
func (v *View) Close() error {
	err := v.Detach()
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.handle != nil {
		v.handle.Invalidate()
	}
	// A closed View can't be attached again.
	v.detached = false
	return err
}
