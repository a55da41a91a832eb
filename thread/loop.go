// SPDX-License-Identifier: Unlicense OR MIT

package thread

import (
	"errors"
	"runtime"
	"time"

	"gioui.org/glthread/internal/tid"
	"gioui.org/glthread/surface"
)

// frame is the pending work for the next frame drawn outside the lock.
type frame struct {
	contextCreated bool
	sized          bool
	width, height  int
	// gen is the last request evaluated before the frame.
	gen uint64
}

func (t *Thread) run() {
	// Contexts are bound to the OS thread that made them current.
	runtime.LockOSThread()
	// Don't UnlockOSThread; a native driver may keep thread local state
	// after the context is gone.
	id := tid.Current()
	t.log = t.log.WithField("tid", id)
	t.sess = surface.NewSession(t.driver, t.spec, t.log)
	t.mu.Lock()
	t.tid = id
	t.mu.Unlock()
	t.log.Debug("render thread started")

	defer func() {
		t.mu.Lock()
		t.releaseSurfaceLocked()
		t.releaseContextLocked()
		t.arb.Release(t)
		t.exited = true
		t.cond.Broadcast()
		t.mu.Unlock()
		close(t.done)
		t.log.Debug("render thread exited")
	}()
	var f frame
	for {
		task, ok := t.next(&f)
		if !ok {
			return
		}
		if task != nil {
			task()
			continue
		}
		t.draw(&f)
	}
}

// next waits until there is a task to run or a frame to draw, and
// records the callbacks due before the frame in f. It returns false
// when the thread must exit.
func (t *Thread) next(f *frame) (func(), bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		if t.shouldExit {
			return nil, false
		}
		if len(t.tasks) > 0 {
			task := t.tasks[0]
			t.tasks[0] = nil
			t.tasks = t.tasks[1:]
			return task, true
		}

		pausing := false
		if t.paused != t.requestPaused {
			pausing = t.requestPaused
			t.paused = t.requestPaused
			t.cond.Broadcast()
			t.log.WithField("paused", t.paused).Debug("pause state changed")
		}
		if t.releaseContext {
			t.log.Debug("releasing context for another thread")
			t.releaseSurfaceLocked()
			t.releaseContextLocked()
			t.releaseContext = false
			t.yieldContext = true
		}
		if t.lostContext {
			t.releaseSurfaceLocked()
			t.releaseContextLocked()
			t.lostContext = false
		}
		if pausing {
			t.releaseSurfaceLocked()
			_, alive := t.handle.Get()
			if !(t.preserve && alive) || t.arb.ReleaseOnPause() {
				t.releaseContextLocked()
			}
		}
		if !t.hasSurface && !t.waitingForSurface {
			t.releaseSurfaceLocked()
			t.waitingForSurface = true
			t.surfaceBad = false
			t.cond.Broadcast()
			t.log.Debug("waiting for surface")
		}
		if t.hasSurface && t.waitingForSurface {
			t.waitingForSurface = false
			t.cond.Broadcast()
		}

		if t.readyToDraw() {
			if !t.haveContext {
				if err := t.acquireContextLocked(); err != nil {
					t.err = err
					t.log.WithError(err).Error("render thread stopped")
					return nil, false
				}
				if t.haveContext {
					f.contextCreated = true
				}
			}
			if t.haveContext && (!t.haveSurface || t.sizeChanged) {
				if !t.createSurfaceLocked() {
					continue
				}
				f.sized = true
				f.width, f.height = t.width, t.height
			}
			if t.haveContext && t.haveSurface {
				t.requestRender = false
				f.gen = t.reqGen
				if t.seenGen != t.reqGen {
					t.seenGen = t.reqGen
					t.cond.Broadcast()
				}
				return nil, true
			}
		}

		if t.parkedGen != t.reqGen {
			t.seenGen = t.reqGen
			t.parkedGen = t.reqGen
			t.cond.Broadcast()
		}
		t.cond.Wait()
	}
}

func (t *Thread) readyToDraw() bool {
	return !t.paused && t.hasSurface && !t.surfaceBad && t.width > 0 && t.height > 0 &&
		(t.requestRender || t.mode == Continuous)
}

// acquireContextLocked creates a context if the arbiter allows it and no
// retry is pending. It only returns fatal errors.
func (t *Thread) acquireContextLocked() error {
	switch {
	case t.yieldContext:
		// Give the thread that asked for the context a chance to get it.
		t.yieldContext = false
		t.retryLaterLocked()
		return nil
	case t.retryPending:
		return nil
	case !t.arb.TryAcquire(t):
		t.log.Debug("context held by another thread")
		return nil
	}
	if err := t.sess.Begin(); err != nil {
		t.arb.Release(t)
		if errors.Is(err, surface.ErrDeviceInit) {
			return err
		}
		t.log.WithError(err).Warn("context creation failed, retrying")
		t.retryLaterLocked()
		return nil
	}
	t.haveContext = true
	t.arb.Probe(t.sess)
	t.cond.Broadcast()
	return nil
}

// createSurfaceLocked (re)creates the window surface. It reports whether
// a surface is bound.
func (t *Thread) createSurfaceLocked() bool {
	t.releaseSurfaceLocked()
	t.sizeChanged = false
	err := t.sess.CreateSurface(t.win)
	t.cond.Broadcast()
	if err != nil {
		t.surfaceBad = true
		t.log.WithError(err).Warn("surface creation failed")
		return false
	}
	t.haveSurface = true
	return true
}

func (t *Thread) retryLaterLocked() {
	if t.retryPending {
		return
	}
	t.retryPending = true
	time.AfterFunc(t.retryDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.retryPending = false
		t.cond.Broadcast()
	})
}

func (t *Thread) releaseSurfaceLocked() {
	if !t.haveSurface {
		return
	}
	if r, ok := t.handle.Get(); ok {
		r.OnSurfaceTeardown()
	}
	t.sess.DestroySurface()
	t.haveSurface = false
	t.cond.Broadcast()
}

func (t *Thread) releaseContextLocked() {
	if !t.haveContext {
		return
	}
	t.sess.End()
	t.haveContext = false
	t.arb.Release(t)
	t.cond.Broadcast()
}

// draw runs the callbacks due and presents a frame.
func (t *Thread) draw(f *frame) {
	if r, ok := t.handle.Get(); ok {
		if f.contextCreated {
			r.OnContextCreated(t.sess.Config())
		}
		if f.sized {
			r.OnSurfaceSized(f.width, f.height)
		}
		r.OnDrawFrame()
	}
	f.contextCreated = false
	f.sized = false
	err := t.sess.Present()

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case err == nil:
		t.drawnGen = f.gen
	case errors.Is(err, surface.ErrContextLost):
		t.log.WithError(err).Warn("context lost")
		t.lostContext = true
		// Redraw with the new context.
		t.requestRender = true
	default:
		t.log.WithError(err).Warn("present failed")
		t.releaseSurfaceLocked()
		t.surfaceBad = true
	}
	t.cond.Broadcast()
}
