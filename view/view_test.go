// SPDX-License-Identifier: Unlicense OR MIT

package view

import (
	"errors"
	"sync"
	"testing"
	"time"

	"gioui.org/glthread/arbiter"
	ilog "gioui.org/glthread/internal/log"
	"gioui.org/glthread/surface"
	"gioui.org/glthread/surface/headless"
	"gioui.org/glthread/thread"
)

type counter struct {
	mu                         sync.Mutex
	created, sized, draws, tds int
	w, h                       int
}

func (c *counter) OnContextCreated(surface.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created++
}

func (c *counter) OnSurfaceSized(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sized++
	c.w, c.h = w, h
}

func (c *counter) OnDrawFrame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draws++
}

func (c *counter) OnSurfaceTeardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tds++
}

func (c *counter) get() (created, sized, draws int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created, c.sized, c.draws
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

func newView(t *testing.T, d surface.Driver) *View {
	t.Helper()
	v := New(d, arbiter.New(), thread.WithLogger(ilog.Discard()), thread.WithRenderMode(thread.OnDemand))
	t.Cleanup(func() {
		v.Close()
	})
	return v
}

func TestSetRenderer(t *testing.T) {
	v := newView(t, headless.NewDriver())
	// Without a renderer, events are ignored.
	v.SurfaceAvailable(headless.NewWindow(4, 4), 4, 4)
	v.Pause()
	v.Resume()
	v.RequestRender()
	if err := v.SetRenderer(new(counter)); err != nil {
		t.Fatal(err)
	}
	if err := v.SetRenderer(new(counter)); !errors.Is(err, ErrRendererSet) {
		t.Errorf("got %v, expected %v", err, ErrRendererSet)
	}
}

func TestSurfaceEvents(t *testing.T) {
	v := newView(t, headless.NewDriver())
	c := new(counter)
	v.SetRenderer(c)
	win := headless.NewWindow(16, 16)
	v.SurfaceAvailable(win, 16, 16)
	if created, sized, draws := c.get(); created != 1 || sized != 1 || draws != 1 {
		t.Errorf("got created=%d sized=%d draws=%d, expected 1, 1, 1", created, sized, draws)
	}
	// An identical size draws one frame without a new surface.
	v.SurfaceResized(16, 16)
	if created, sized, draws := c.get(); created != 1 || sized != 1 || draws != 2 {
		t.Errorf("got created=%d sized=%d draws=%d, expected 1, 1, 2", created, sized, draws)
	}
	// OnDemand views draw nothing more until asked.
	time.Sleep(20 * time.Millisecond)
	if _, _, draws := c.get(); draws != 2 {
		t.Errorf("got %d frames without a request, expected 2", draws)
	}
	v.SurfaceResized(32, 8)
	c.mu.Lock()
	if c.w != 32 || c.h != 8 {
		t.Errorf("got size %dx%d, expected 32x8", c.w, c.h)
	}
	c.mu.Unlock()
	v.SurfaceLost()
	c.mu.Lock()
	if c.tds != 2 {
		t.Errorf("got %d teardowns, expected 2", c.tds)
	}
	c.mu.Unlock()
}

func TestSurfaceAvailableSize(t *testing.T) {
	v := newView(t, headless.NewDriver())
	c := new(counter)
	v.SetRenderer(c)
	// The toolkit reports a size the window does not have yet.
	v.SurfaceAvailable(headless.NewWindow(10, 10), 20, 20)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w != 20 || c.h != 20 {
		t.Errorf("got size %dx%d, expected 20x20", c.w, c.h)
	}
	// The window size is never drawn.
	if c.sized != 1 || c.draws != 1 {
		t.Errorf("got sized=%d draws=%d, expected 1, 1", c.sized, c.draws)
	}
}

func TestRenderModeOption(t *testing.T) {
	tests := []struct {
		name string
		opts []thread.Option
		want thread.RenderMode
	}{
		{"default", nil, thread.Continuous},
		{"on demand", []thread.Option{thread.WithRenderMode(thread.OnDemand)}, thread.OnDemand},
		{"last wins", []thread.Option{thread.WithRenderMode(thread.OnDemand), thread.WithRenderMode(thread.Continuous)}, thread.Continuous},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			opts := append([]thread.Option{thread.WithLogger(ilog.Discard())}, test.opts...)
			v := New(headless.NewDriver(), arbiter.New(), opts...)
			defer v.Close()
			if m := v.RenderMode(); m != test.want {
				t.Errorf("got mode %v before SetRenderer, expected %v", m, test.want)
			}
			v.SetRenderer(new(counter))
			if m := v.RenderMode(); m != test.want {
				t.Errorf("got mode %v after SetRenderer, expected %v", m, test.want)
			}
		})
	}
}

func TestDetachAttach(t *testing.T) {
	d := headless.NewDriver()
	v := newView(t, d)
	c := new(counter)
	v.SetRenderer(c)
	win := headless.NewWindow(8, 8)
	v.SurfaceAvailable(win, 8, 8)
	if err := v.Detach(); err != nil {
		t.Fatal(err)
	}
	if n := d.LiveContexts(); n != 0 {
		t.Errorf("%d live contexts after Detach", n)
	}
	v.Attach()
	if m := v.RenderMode(); m != thread.OnDemand {
		t.Errorf("got mode %v after Attach, expected %v", m, thread.OnDemand)
	}
	v.SurfaceAvailable(win, 8, 8)
	waitFor(t, "second context", func() bool {
		created, _, _ := c.get()
		return created == 2
	})
	// Attach without Detach is a no-op.
	v.Attach()
	if n := d.MaxLiveContexts(); n != 1 {
		t.Errorf("%d contexts alive at once, expected 1", n)
	}
}

func TestRenderModeWhileDetached(t *testing.T) {
	v := newView(t, headless.NewDriver())
	v.SetRenderer(new(counter))
	v.Detach()
	v.SetRenderMode(thread.Continuous)
	v.Attach()
	if m := v.RenderMode(); m != thread.Continuous {
		t.Errorf("got mode %v, expected %v", m, thread.Continuous)
	}
}

func TestQueue(t *testing.T) {
	v := newView(t, headless.NewDriver())
	v.SetRenderer(new(counter))
	done := make(chan struct{})
	v.Queue(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queued function did not run")
	}
}

func TestClose(t *testing.T) {
	d := headless.NewDriver()
	d.FailOpen(errors.New("no display"))
	v := New(d, arbiter.New(), thread.WithLogger(ilog.Discard()))
	c := new(counter)
	v.SetRenderer(c)
	v.SurfaceAvailable(headless.NewWindow(8, 8), 8, 8)
	if err := v.Close(); !errors.Is(err, surface.ErrDeviceInit) {
		t.Errorf("got %v, expected %v", err, surface.ErrDeviceInit)
	}
	if err := v.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	v.Attach()
	if v.current() != nil {
		t.Error("closed view attached")
	}
}
