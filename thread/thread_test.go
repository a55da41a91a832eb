// SPDX-License-Identifier: Unlicense OR MIT

package thread

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/image/draw"

	"gioui.org/glthread/arbiter"
	ilog "gioui.org/glthread/internal/log"
	"gioui.org/glthread/internal/tid"
	"gioui.org/glthread/surface"
	"gioui.org/glthread/surface/headless"
)

// recorder is a Renderer that records its callbacks together with the
// native operations of a headless driver.
type recorder struct {
	mu     sync.Mutex
	events []string
	win    *headless.Window
	col    color.RGBA
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) OnContextCreated(cfg surface.Config) { r.add("created") }
func (r *recorder) OnSurfaceSized(w, h int)            { r.add(fmt.Sprintf("sized %dx%d", w, h)) }
func (r *recorder) OnSurfaceTeardown()                 { r.add("teardown") }

func (r *recorder) OnDrawFrame() {
	if r.win != nil {
		if b := r.win.BackBuffer(); b != nil {
			draw.Draw(b, b.Bounds(), image.NewUniform(r.col), image.Point{}, draw.Src)
		}
	}
	r.add("draw")
}

func (r *recorder) hook(e headless.Event) {
	switch e.Kind {
	case headless.ContextCreated:
		r.add("ctx+")
	case headless.ContextDestroyed:
		r.add("ctx-")
	case headless.SurfaceCreated:
		r.add("surf+")
	case headless.SurfaceDestroyed:
		r.add("surf-")
	}
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(e string) int {
	n := 0
	for _, got := range r.Events() {
		if got == e {
			n++
		}
	}
	return n
}

// callbacks returns the renderer callbacks, without native operations.
func (r *recorder) callbacks() []string {
	var cbs []string
	for _, e := range r.Events() {
		switch e {
		case "ctx+", "ctx-", "surf+", "surf-":
		default:
			cbs = append(cbs, e)
		}
	}
	return cbs
}

type testThread struct {
	*Thread
	rec *recorder
	drv *headless.Driver
}

func newTestThread(t *testing.T, arb *arbiter.Arbiter, opts ...Option) *testThread {
	t.Helper()
	rec := new(recorder)
	drv := headless.NewDriver(headless.WithEventHook(rec.hook))
	return startTestThread(t, drv, arb, rec, opts...)
}

func startTestThread(t *testing.T, drv *headless.Driver, arb *arbiter.Arbiter, rec *recorder, opts ...Option) *testThread {
	t.Helper()
	if arb == nil {
		arb = arbiter.New()
	}
	opts = append([]Option{WithLogger(ilog.Discard()), WithRetryDelay(time.Millisecond)}, opts...)
	th := New(drv, arb, NewHandle(rec), opts...)
	t.Cleanup(func() {
		th.Shutdown()
	})
	return &testThread{Thread: th, rec: rec, drv: drv}
}

// waitIdle blocks until the render thread has nothing left to do.
func waitIdle(th *Thread) {
	th.mu.Lock()
	defer th.mu.Unlock()
	gen := th.request()
	for !th.exited && th.parkedGen < gen {
		th.cond.Wait()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOnDemand(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	th.RequestRender()
	waitIdle(th.Thread)
	if got := th.rec.Events(); len(got) != 0 {
		t.Fatalf("callbacks without a surface: %v", got)
	}
	if s := th.State(); s != WaitingForSurface {
		t.Errorf("got state %v, expected %v", s, WaitingForSurface)
	}

	win := headless.NewWindow(64, 48)
	th.rec.win = win
	th.rec.col = color.RGBA{R: 0xca, G: 0xfe, A: 0xff}
	th.NotifySurfaceAvailable(win)
	waitIdle(th.Thread)
	want := []string{"created", "sized 64x48", "draw"}
	if got := th.rec.callbacks(); !equal(got, want) {
		t.Fatalf("got callbacks %v, expected %v", got, want)
	}
	if s := th.State(); s != Ready {
		t.Errorf("got state %v, expected %v", s, Ready)
	}

	th.RequestRender()
	waitIdle(th.Thread)
	want = append(want, "draw")
	if got := th.rec.callbacks(); !equal(got, want) {
		t.Errorf("got callbacks %v, expected %v", got, want)
	}
	if n := win.Frames(); n != 2 {
		t.Errorf("got %d presented frames, expected 2", n)
	}
	if got := win.Screenshot().RGBAAt(10, 10); got != th.rec.col {
		t.Errorf("got color %v, expected %v", got, th.rec.col)
	}
}

func TestContinuous(t *testing.T) {
	th := newTestThread(t, nil)
	win := headless.NewWindow(16, 16)
	th.NotifySurfaceAvailable(win)
	waitFor(t, "frames", func() bool { return win.Frames() > 10 })
	th.SetRenderMode(OnDemand)
	if m := th.RenderMode(); m != OnDemand {
		t.Errorf("got mode %v, expected %v", m, OnDemand)
	}
	waitIdle(th.Thread)
	n := win.Frames()
	waitIdle(th.Thread)
	if got := win.Frames(); got != n {
		t.Errorf("%d frames drawn in OnDemand mode without a request", got-n)
	}
}

func TestPauseResume(t *testing.T) {
	tests := []struct {
		name     string
		arb      *arbiter.Arbiter
		preserve bool
		live     int
	}{
		{"release", arbiter.New(arbiter.MultipleContexts()), false, 0},
		{"preserve", arbiter.New(arbiter.MultipleContexts()), true, 1},
		{"single context", arbiter.New(arbiter.SingleContext()), true, 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			th := newTestThread(t, test.arb, PreserveContextOnPause(test.preserve))
			win := headless.NewWindow(8, 8)
			th.NotifySurfaceAvailable(win)
			for i := 0; i < 5; i++ {
				th.RequestPause()
				if s := th.State(); s != Paused {
					t.Fatalf("got state %v after RequestPause, expected %v", s, Paused)
				}
				if n := th.drv.LiveContexts(); n != test.live {
					t.Errorf("%d live contexts while paused, expected %d", n, test.live)
				}
				n := win.Frames()
				th.RequestResume()
				if s := th.State(); s == Paused {
					t.Fatalf("still paused after RequestResume")
				}
				if win.Frames() == n {
					t.Error("RequestResume returned before a frame was presented")
				}
			}
			if n := th.rec.count("created"); test.live == 1 && n != 1 {
				t.Errorf("context created %d times, expected once", n)
			}
		})
	}
}

func TestConcurrentPauseResume(t *testing.T) {
	th := newTestThread(t, nil)
	th.NotifySurfaceAvailable(headless.NewWindow(8, 8))
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if (i+j)%2 == 0 {
					th.RequestPause()
				} else {
					th.RequestResume()
				}
			}
		}(i)
	}
	wg.Wait()
	th.RequestPause()
	if s := th.State(); s != Paused {
		t.Errorf("got state %v, expected %v", s, Paused)
	}
	th.RequestResume()
	if s := th.State(); s != Ready {
		t.Errorf("got state %v, expected %v", s, Ready)
	}
}

func TestSurfaceLostAndAvailable(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	win := headless.NewWindow(8, 8)
	th.NotifySurfaceAvailable(win)
	waitIdle(th.Thread)
	th.NotifySurfaceLost()
	if s := th.State(); s != HasContext {
		t.Errorf("got state %v after surface loss, expected %v", s, HasContext)
	}
	th.NotifySurfaceAvailable(win)
	waitIdle(th.Thread)
	if n := th.drv.MaxLiveContexts(); n != 1 {
		t.Errorf("%d contexts alive at once, expected 1", n)
	}
	if n := th.rec.count("ctx+"); n != 1 {
		t.Errorf("%d contexts created, expected 1", n)
	}
	if n := th.rec.count("surf+"); n != 2 {
		t.Errorf("%d surfaces created, expected 2", n)
	}
	if n := win.Frames(); n != 2 {
		t.Errorf("%d frames presented, expected 2", n)
	}
}

// checkOrder verifies that surfaces are torn down while their context is
// alive and that every context is announced before it is sized.
func checkOrder(t *testing.T, events []string) {
	t.Helper()
	var ctx, created bool
	prev := ""
	for i, e := range events {
		switch e {
		case "ctx+":
			ctx, created = true, false
		case "ctx-":
			ctx = false
		case "created":
			if !ctx {
				t.Errorf("event %d: OnContextCreated without a context: %v", i, events)
			}
			created = true
		case "teardown":
			if !ctx {
				t.Errorf("event %d: OnSurfaceTeardown after context release: %v", i, events)
			}
		case "surf-":
			if prev != "teardown" {
				t.Errorf("event %d: surface destroyed without OnSurfaceTeardown: %v", i, events)
			}
		default:
			if strings.HasPrefix(e, "sized") && !created {
				t.Errorf("event %d: OnSurfaceSized before OnContextCreated: %v", i, events)
			}
		}
		prev = e
	}
}

func TestCallbackOrder(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	win := headless.NewWindow(20, 10)
	th.NotifySurfaceAvailable(win)
	th.OnResize(30, 10)
	th.RequestPause()
	th.RequestResume()
	th.NotifySurfaceLost()
	th.NotifySurfaceAvailable(win)
	th.drv.FailPresent(surface.ErrContextLost)
	th.RequestRender()
	waitIdle(th.Thread)
	if err := th.Shutdown(); err != nil {
		t.Fatal(err)
	}
	events := th.rec.Events()
	checkOrder(t, events)
	if n := th.rec.count("ctx+"); n != 3 {
		t.Errorf("%d contexts created, expected 3: %v", n, events)
	}
	if n := th.drv.LiveContexts(); n != 0 {
		t.Errorf("%d contexts alive after Shutdown", n)
	}
}

func TestIdenticalResize(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	th.OnResize(32, 32)
	th.OnResize(32, 32)
	th.NotifySurfaceAvailable(headless.NewWindow(32, 32))
	waitIdle(th.Thread)
	if n := th.rec.count("sized 32x32"); n != 1 {
		t.Errorf("got %d OnSurfaceSized(32, 32), expected 1: %v", n, th.rec.Events())
	}

	th.OnResize(40, 30)
	th.OnResize(40, 30)
	if n := th.rec.count("sized 40x30"); n != 1 {
		t.Errorf("got %d OnSurfaceSized(40, 30), expected 1: %v", n, th.rec.Events())
	}
	if n := th.rec.count("draw"); n != 3 {
		t.Errorf("got %d frames, expected 3", n)
	}
}

func TestSurfaceAvailableSize(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	// The toolkit already knows a size the window does not report yet.
	th.NotifySurfaceAvailableSize(headless.NewWindow(10, 10), 20, 20)
	want := []string{"created", "sized 20x20", "draw"}
	if got := th.rec.callbacks(); !equal(got, want) {
		t.Errorf("got callbacks %v, expected %v", got, want)
	}
	if n := th.rec.count("surf+"); n != 1 {
		t.Errorf("got %d surfaces, expected 1", n)
	}
}

func TestSurfaceAvailableSizePaused(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	th.RequestPause()
	th.NotifySurfaceAvailableSize(headless.NewWindow(8, 8), 8, 8)
	if got := th.rec.callbacks(); len(got) != 0 {
		t.Errorf("paused thread called back: %v", got)
	}
	th.RequestResume()
	want := []string{"created", "sized 8x8", "draw"}
	if got := th.rec.callbacks(); !equal(got, want) {
		t.Errorf("got callbacks %v, expected %v", got, want)
	}
}

func TestRenderModeOf(t *testing.T) {
	if m := RenderModeOf(); m != Continuous {
		t.Errorf("got default mode %v, expected %v", m, Continuous)
	}
	if m := RenderModeOf(WithName("x"), WithRenderMode(OnDemand)); m != OnDemand {
		t.Errorf("got mode %v, expected %v", m, OnDemand)
	}
}

func TestExclusiveContext(t *testing.T) {
	arb := arbiter.New(arbiter.SingleContext())
	drv := headless.NewDriver()
	a := startTestThread(t, drv, arb, new(recorder))
	b := startTestThread(t, drv, arb, new(recorder))

	a.NotifySurfaceAvailable(headless.NewWindow(8, 8))
	waitFor(t, "first context", func() bool { return a.rec.count("draw") > 0 })
	if arb.Owner() != a.Thread {
		t.Fatal("first thread does not own the context")
	}
	b.NotifySurfaceAvailable(headless.NewWindow(8, 8))
	waitFor(t, "second context", func() bool { return b.rec.count("draw") > 0 })
	waitFor(t, "context handover", func() bool { return a.rec.count("created") > 1 })

	a.Shutdown()
	b.Shutdown()
	if n := drv.MaxLiveContexts(); n != 1 {
		t.Errorf("%d contexts alive at once, expected 1", n)
	}
	if n := drv.LiveContexts(); n != 0 {
		t.Errorf("%d contexts alive after Shutdown", n)
	}
	if o := arb.Owner(); o != nil {
		t.Errorf("context still owned by %v", o)
	}
}

func TestShutdownWaitingForSurface(t *testing.T) {
	th := newTestThread(t, nil)
	waitIdle(th.Thread)
	done := make(chan error, 1)
	go func() {
		done <- th.Shutdown()
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Error(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return")
	}
	select {
	case <-th.Done():
	default:
		t.Error("Done not closed after Shutdown")
	}
	if err := th.Shutdown(); err != nil {
		t.Errorf("second Shutdown: %v", err)
	}
	if s := th.State(); s != Exited {
		t.Errorf("got state %v, expected %v", s, Exited)
	}
	// Requests after exit return immediately.
	th.RequestPause()
	th.RequestResume()
	th.NotifySurfaceAvailable(headless.NewWindow(1, 1))
	th.OnResize(2, 2)
	th.NotifySurfaceLost()
}

func TestDeviceInitError(t *testing.T) {
	th := newTestThread(t, nil)
	th.drv.FailOpen(errors.New("no display"))
	th.NotifySurfaceAvailable(headless.NewWindow(8, 8))
	<-th.Done()
	err := th.Shutdown()
	if !errors.Is(err, surface.ErrDeviceInit) {
		t.Errorf("got error %v, expected %v", err, surface.ErrDeviceInit)
	}
	if !errors.Is(th.Err(), surface.ErrDeviceInit) {
		t.Errorf("got Err() %v, expected %v", th.Err(), surface.ErrDeviceInit)
	}
	if n := len(th.rec.Events()); n != 0 {
		t.Errorf("callbacks after a failed device initialization: %v", th.rec.Events())
	}
}

func TestContextCreationRetry(t *testing.T) {
	th := newTestThread(t, nil)
	th.drv.FailContexts(3)
	th.NotifySurfaceAvailable(headless.NewWindow(8, 8))
	waitFor(t, "context", func() bool { return th.rec.count("created") == 1 })
	if err := th.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if n := th.drv.LiveContexts(); n != 1 {
		t.Errorf("%d live contexts, expected 1", n)
	}
}

func TestSurfaceCreationFailure(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	th.drv.FailSurfaces(1)
	win := headless.NewWindow(8, 8)
	th.NotifySurfaceAvailable(win)
	waitIdle(th.Thread)
	if n := win.Frames(); n != 0 {
		t.Fatalf("%d frames presented to a bad surface", n)
	}
	th.NotifySurfaceAvailable(win)
	waitIdle(th.Thread)
	if n := win.Frames(); n != 1 {
		t.Errorf("%d frames presented after the surface recovered, expected 1", n)
	}
}

func TestPresentError(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	win := headless.NewWindow(8, 8)
	th.NotifySurfaceAvailable(win)
	waitIdle(th.Thread)
	th.drv.FailPresent(errors.New("window gone"))
	th.RequestRender()
	waitIdle(th.Thread)
	if s := th.State(); s != HasContext {
		t.Errorf("got state %v after present failure, expected %v", s, HasContext)
	}
	th.RequestRender()
	waitIdle(th.Thread)
	if n := win.Frames(); n != 1 {
		t.Errorf("got %d frames, expected 1", n)
	}
	th.NotifySurfaceAvailable(win)
	waitIdle(th.Thread)
	if n := win.Frames(); n != 2 {
		t.Errorf("got %d frames, expected 2", n)
	}
	if n := th.rec.count("ctx+"); n != 1 {
		t.Errorf("%d contexts created, expected 1", n)
	}
}

func TestContextLost(t *testing.T) {
	th := newTestThread(t, nil, WithRenderMode(OnDemand))
	win := headless.NewWindow(8, 8)
	th.NotifySurfaceAvailable(win)
	waitIdle(th.Thread)
	th.drv.FailPresent(surface.ErrContextLost)
	th.RequestRender()
	waitIdle(th.Thread)
	want := []string{
		"created", "sized 8x8", "draw",
		"draw", "teardown",
		"created", "sized 8x8", "draw",
	}
	if got := th.rec.callbacks(); !equal(got, want) {
		t.Errorf("got callbacks %v, expected %v", got, want)
	}
	if n := th.drv.LiveContexts(); n != 1 {
		t.Errorf("%d live contexts, expected 1", n)
	}
	checkOrder(t, th.rec.Events())
}

func TestEnqueue(t *testing.T) {
	th := newTestThread(t, nil)
	var got []int
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		th.Enqueue(func() {
			got = append(got, i)
			if i == 99 {
				close(done)
			}
		})
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not run")
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}

	defer func() {
		if recover() == nil {
			t.Error("Enqueue(nil) did not panic")
		}
	}()
	th.Enqueue(nil)
}

func TestShutdownFromRenderThread(t *testing.T) {
	if tid.Current() == 0 {
		t.Skip("thread ids not available")
	}
	th := newTestThread(t, nil)
	panicked := make(chan bool, 1)
	th.Enqueue(func() {
		defer func() {
			panicked <- recover() != nil
		}()
		th.Shutdown()
	})
	select {
	case p := <-panicked:
		if !p {
			t.Error("Shutdown on the render thread did not panic")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown on the render thread deadlocked")
	}
}

func TestInvalidRenderMode(t *testing.T) {
	th := newTestThread(t, nil)
	defer func() {
		if recover() == nil {
			t.Error("SetRenderMode did not panic")
		}
	}()
	th.SetRenderMode(RenderMode(7))
}

func TestInvalidatedHandle(t *testing.T) {
	rec := new(recorder)
	h := NewHandle(rec)
	drv := headless.NewDriver()
	th := New(drv, arbiter.New(), h, WithRenderMode(OnDemand), WithLogger(ilog.Discard()),
		PreserveContextOnPause(true))
	defer th.Shutdown()
	win := headless.NewWindow(8, 8)
	th.NotifySurfaceAvailable(win)
	waitIdle(th)
	n := len(rec.Events())
	h.Invalidate()
	th.RequestRender()
	waitIdle(th)
	if got := rec.Events(); len(got) != n {
		t.Errorf("callbacks after Invalidate: %v", got[n:])
	}
	if got := win.Frames(); got != 2 {
		t.Errorf("got %d frames, expected 2", got)
	}
	// Contexts of dead renderers are not preserved.
	th.RequestPause()
	if n := drv.LiveContexts(); n != 0 {
		t.Errorf("%d live contexts after pause", n)
	}
}
