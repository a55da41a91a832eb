// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux && !android && !wayland) || freebsd || openbsd || windows

package main

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"

	"gioui.org/glthread/arbiter"
	"gioui.org/glthread/surface/egl"
	"gioui.org/glthread/thread"
	"gioui.org/glthread/view"
)

type window struct {
	win    *glfw.Window
	surf   *egl.Window
	view   *view.View
	closed bool
}

func newWindow(idx int, drv *egl.Driver, arb *arbiter.Arbiter, opts []thread.Option) (*window, error) {
	title := fmt.Sprintf("glthread %d", idx)
	win, err := glfw.CreateWindow(*width, *height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GLFW window: %v", err)
	}
	opts = append(opts, thread.WithName(title))
	w := &window{
		win:  win,
		view: view.New(drv, arb, opts...),
	}
	if err := w.view.SetRenderer(newClearRenderer(idx)); err != nil {
		win.Destroy()
		return nil, err
	}

	// Framebuffer sizes are in pixels, unlike window sizes on high-DPI
	// displays.
	fbw, fbh := win.GetFramebufferSize()
	w.surf = egl.NewWindow(nativeWindow(win), fbw, fbh)
	w.view.SurfaceAvailable(w.surf, fbw, fbh)

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.surf.Resize(width, height)
		w.view.SurfaceResized(width, height)
	})
	win.SetIconifyCallback(func(_ *glfw.Window, iconified bool) {
		if iconified {
			w.view.Pause()
		} else {
			w.view.Resume()
		}
	})
	win.SetRefreshCallback(func(_ *glfw.Window) {
		w.view.SurfaceUpdated()
	})
	win.SetCloseCallback(func(_ *glfw.Window) {
		w.close()
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.close()
		case glfw.KeySpace:
			if w.view.RenderMode() == thread.Continuous {
				w.view.SetRenderMode(thread.OnDemand)
			} else {
				w.view.SetRenderMode(thread.Continuous)
			}
		case glfw.KeyR:
			w.view.RequestRender()
		}
	})
	return w, nil
}

func (w *window) close() {
	if w.closed {
		return
	}
	w.closed = true
	w.view.SurfaceLost()
	w.win.Hide()
}
