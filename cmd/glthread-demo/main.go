// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux && !android && !wayland) || freebsd || openbsd || windows

// Command glthread-demo opens GLFW windows and clears them from render
// threads. Windows can share one context with -single-context, in which
// case the render threads take turns.
//
// Keys: space toggles the render mode, r requests a frame, escape
// closes the window.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gioui.org/glthread/arbiter"
	ilog "gioui.org/glthread/internal/log"
	"gioui.org/glthread/surface/egl"
	"gioui.org/glthread/thread"
)

var (
	width      = flag.Int("width", 640, "window width")
	height     = flag.Int("height", 480, "window height")
	count      = flag.Int("windows", 1, "number of windows")
	continuous = flag.Bool("continuous", false, "draw continuously instead of on demand")
	preserve   = flag.Bool("preserve", false, "keep the context while paused")
	single     = flag.Bool("single-context", false, "allow only one context at a time")
	verbose    = flag.Bool("v", false, "verbose logging")
)

func init() {
	// GLFW must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	if *verbose {
		ilog.SetLevel(logrus.DebugLevel)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "glthread-demo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %v", err)
	}
	defer glfw.Terminate()
	// The render threads create their own EGL contexts.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	var arbOpts []arbiter.Option
	if *single {
		arbOpts = append(arbOpts, arbiter.SingleContext())
	}
	arb := arbiter.New(arbOpts...)
	drv := egl.NewDriver(nativeDisplay())
	mode := thread.OnDemand
	if *continuous {
		mode = thread.Continuous
	}
	opts := []thread.Option{
		thread.WithRenderMode(mode),
		thread.PreserveContextOnPause(*preserve),
	}

	var wins []*window
	defer func() {
		for _, w := range wins {
			w.win.Destroy()
		}
	}()
	for i := 0; i < *count; i++ {
		w, err := newWindow(i, drv, arb, opts)
		if err != nil {
			return err
		}
		wins = append(wins, w)
	}
	for open(wins) {
		glfw.WaitEvents()
	}

	// Stop the render threads before their windows are destroyed.
	var g errgroup.Group
	for _, w := range wins {
		g.Go(w.view.Close)
	}
	return g.Wait()
}

func open(wins []*window) bool {
	for _, w := range wins {
		if !w.closed {
			return true
		}
	}
	return false
}
