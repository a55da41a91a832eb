// SPDX-License-Identifier: Unlicense OR MIT

/*
Package thread implements render threads.

A Thread owns a goroutine locked to its own OS thread. The goroutine
creates a graphics context and a window surface when a surface is
available, draws frames through a Renderer and tears everything down
again when the surface goes away, when the thread is paused, or when a
competing Thread needs the only context a device supports.

Every method that changes the thread state blocks until the render
thread has acknowledged the change. The acknowledgments are
generation counters written under the Thread lock and followed by a
broadcast, so no wakeup is lost.
*/
package thread

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"gioui.org/glthread/arbiter"
	ilog "gioui.org/glthread/internal/log"
	"gioui.org/glthread/internal/tid"
	"gioui.org/glthread/surface"
)

// Thread is a render thread. Its methods are safe for concurrent use
// from any goroutine except the render thread itself.
type Thread struct {
	name   string
	log    logrus.FieldLogger
	arb    *arbiter.Arbiter
	handle *Handle
	driver surface.Driver
	spec   surface.ConfigSpec
	// sess belongs to the render thread.
	sess       *surface.Session
	preserve   bool
	retryDelay time.Duration
	done       chan struct{}

	mu   sync.Mutex
	cond *sync.Cond

	shouldExit bool
	exited     bool
	err        error
	// tid is the OS thread id of the render thread, or zero.
	tid int

	requestPaused bool
	paused        bool

	// hasSurface is whether the UI reports the window as available.
	hasSurface        bool
	surfaceBad        bool
	waitingForSurface bool
	win               surface.Window

	haveContext bool
	haveSurface bool
	// releaseContext is set when the arbiter asks for the context.
	releaseContext bool
	// yieldContext skips the next acquisition after giving the context
	// away.
	yieldContext bool
	lostContext  bool
	retryPending bool

	width, height int
	sizeChanged   bool
	mode          RenderMode
	requestRender bool
	tasks         []func()

	// reqGen counts requests that wait for acknowledgment. seenGen is
	// the last request the render thread evaluated completely, parkedGen
	// the last one it evaluated before going idle and drawnGen the last
	// one evaluated before a successfully presented frame.
	reqGen    uint64
	seenGen   uint64
	parkedGen uint64
	drawnGen  uint64
}

var threadID atomic.Int32

// New starts a render thread that creates contexts from d under the
// control of arb and calls the Renderer referenced by h. A nil arb
// selects arbiter.Default.
func New(d surface.Driver, arb *arbiter.Arbiter, h *Handle, opts ...Option) *Thread {
	if h == nil {
		panic("thread: nil Handle")
	}
	cfg := config{
		mode:       Continuous,
		spec:       surface.DefaultConfigSpec,
		retryDelay: defaultRetryDelay,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if arb == nil {
		arb = arbiter.Default()
	}
	if cfg.name == "" {
		cfg.name = fmt.Sprintf("glthread-%d", threadID.Add(1))
	}
	l := cfg.log
	if l == nil {
		l = ilog.New("thread")
	}
	l = l.WithField("thread", cfg.name)
	t := &Thread{
		name:          cfg.name,
		log:           l,
		arb:           arb,
		handle:        h,
		driver:        d,
		spec:          cfg.spec,
		preserve:      cfg.preserve,
		retryDelay:    cfg.retryDelay,
		done:          make(chan struct{}),
		mode:          cfg.mode,
		requestRender: true,
		sizeChanged:   true,
	}
	t.cond = sync.NewCond(&t.mu)
	go t.run()
	return t
}

// Name returns the thread name.
func (t *Thread) Name() string {
	return t.name
}

// request records a state change that waits for acknowledgment and
// wakes the render thread. It returns the generation to wait for.
// Call it with t.mu held.
func (t *Thread) request() uint64 {
	t.reqGen++
	t.cond.Broadcast()
	return t.reqGen
}

// NotifySurfaceAvailable reports that win can be rendered to. It blocks
// until the render thread has tried to bind a surface to win, or found
// that it cannot draw.
func (t *Thread) NotifySurfaceAvailable(win surface.Window) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sz := win.Size()
	gen := t.surfaceAvailableLocked(win, sz.X, sz.Y)
	for !t.exited && t.seenGen < gen {
		t.cond.Wait()
	}
}

// NotifySurfaceAvailableSize is like NotifySurfaceAvailable for a window
// the toolkit reports at the given size, which may differ from win.Size.
// It blocks until a frame of that size has been presented or the render
// thread found that it cannot draw.
func (t *Thread) NotifySurfaceAvailableSize(win surface.Window, width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	gen := t.surfaceAvailableLocked(win, width, height)
	for !t.exited && !t.paused && t.drawnGen < gen && t.parkedGen < gen {
		t.cond.Wait()
	}
}

func (t *Thread) surfaceAvailableLocked(win surface.Window, width, height int) uint64 {
	if win != t.win {
		t.win = win
		t.sizeChanged = true
	}
	t.setSizeLocked(width, height)
	t.hasSurface = true
	t.surfaceBad = false
	// A new surface has no content yet.
	t.requestRender = true
	return t.request()
}

// NotifySurfaceLost reports that the window is gone. It blocks until the
// render thread has destroyed its surface.
func (t *Thread) NotifySurfaceLost() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hasSurface = false
	t.request()
	for !t.exited && !t.hasSurface && !t.waitingForSurface {
		t.cond.Wait()
	}
}

// RequestPause pauses drawing and blocks until the render thread has
// released its surface, and its context if required.
func (t *Thread) RequestPause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestPaused = true
	t.request()
	for !t.exited && t.requestPaused && !t.paused {
		t.cond.Wait()
	}
}

// RequestResume resumes drawing. It blocks until a frame has been
// presented or the render thread found that it cannot draw.
func (t *Thread) RequestResume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestPaused = false
	t.requestRender = true
	gen := t.request()
	for !t.exited && !t.requestPaused && (t.paused || (t.drawnGen < gen && t.parkedGen < gen)) {
		t.cond.Wait()
	}
}

// OnResize sets the surface size and blocks until a frame of that size
// has been presented or the render thread found that it cannot draw.
func (t *Thread) OnResize(width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setSizeLocked(width, height)
	t.requestRender = true
	gen := t.request()
	for !t.exited && !t.paused && t.drawnGen < gen && t.parkedGen < gen {
		t.cond.Wait()
	}
}

func (t *Thread) setSizeLocked(width, height int) {
	if width == t.width && height == t.height {
		return
	}
	t.width, t.height = width, height
	t.sizeChanged = true
}

// SetRenderMode sets the render mode. It panics if m is not a valid
// mode.
func (t *Thread) SetRenderMode(m RenderMode) {
	if !m.valid() {
		panic("thread: invalid render mode")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = m
	t.cond.Broadcast()
}

// RenderMode returns the current render mode.
func (t *Thread) RenderMode() RenderMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// RequestRender asks for a frame. It is only needed in OnDemand mode.
func (t *Thread) RequestRender() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestRender = true
	t.cond.Broadcast()
}

// Enqueue schedules task to run on the render thread before the next
// frame. Tasks run in the order they were enqueued. It panics if task is
// nil.
func (t *Thread) Enqueue(task func()) {
	if task == nil {
		panic("thread: nil task")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = append(t.tasks, task)
	t.cond.Broadcast()
}

// Shutdown stops the render thread and blocks until it has destroyed its
// surface and context. It returns the error that stopped the thread, if
// any. Calling Shutdown from the render thread panics.
func (t *Thread) Shutdown() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id := tid.Current(); id != 0 && id == t.tid {
		panic("thread: Shutdown called from the render thread")
	}
	t.shouldExit = true
	t.cond.Broadcast()
	for !t.exited {
		t.cond.Wait()
	}
	return t.err
}

// Done returns a channel that is closed when the render thread has
// exited.
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

// Err returns the error that stopped the render thread, if any.
func (t *Thread) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// State returns a summary of the thread state.
func (t *Thread) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.exited:
		return Exited
	case t.shouldExit:
		return Exiting
	case t.paused:
		return Paused
	case t.haveContext && t.haveSurface:
		return Ready
	case t.haveContext:
		return HasContext
	case t.hasSurface:
		return HasSurface
	default:
		return WaitingForSurface
	}
}

// RequestReleaseContext implements arbiter.Owner.
func (t *Thread) RequestReleaseContext() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.haveContext {
		return
	}
	t.releaseContext = true
	t.cond.Broadcast()
}

// ContextReleased implements arbiter.Owner.
func (t *Thread) ContextReleased() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cond.Broadcast()
}
