// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux && !android && !wayland) || freebsd || openbsd || windows

package main

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"gioui.org/glthread/internal/gl"
	ilog "gioui.org/glthread/internal/log"
	"gioui.org/glthread/surface"
)

// clearRenderer fills the window with a slowly changing color.
type clearRenderer struct {
	f     gl.Functions
	log   *logrus.Entry
	phase float64
	start time.Time
}

func newClearRenderer(idx int) *clearRenderer {
	return &clearRenderer{
		log:   ilog.New("demo").WithField("window", idx),
		phase: float64(idx) * math.Pi / 3,
		start: time.Now(),
	}
}

func (r *clearRenderer) OnContextCreated(cfg surface.Config) {
	r.log.WithField("config", cfg).Info("context created")
}

func (r *clearRenderer) OnSurfaceSized(width, height int) {
	r.f.Viewport(0, 0, width, height)
}

func (r *clearRenderer) OnDrawFrame() {
	t := time.Since(r.start).Seconds() + r.phase
	red := float32(0.5 + 0.5*math.Sin(t))
	green := float32(0.5 + 0.5*math.Sin(t+2*math.Pi/3))
	blue := float32(0.5 + 0.5*math.Sin(t+4*math.Pi/3))
	r.f.ClearColor(red, green, blue, 1)
	r.f.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (r *clearRenderer) OnSurfaceTeardown() {
	r.log.Debug("surface teardown")
}
