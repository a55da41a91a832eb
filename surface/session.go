// SPDX-License-Identifier: Unlicense OR MIT

// Package surface pairs a graphics context with a window surface.
//
// A Session owns at most one context and at most one surface. The
// surface never outlives the context: End and the context loss paths
// always destroy the surface first.
package surface

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Session is the lifetime of one context and its window surface on a
// Device opened from a Driver. A Session is not safe for concurrent use;
// it belongs to the render thread.
type Session struct {
	driver Driver
	spec   ConfigSpec
	log    log.FieldLogger

	dev        Device
	cfg        Config
	hasSurface bool
	// epoch counts successful calls to Begin.
	epoch int
}

// NewSession returns a Session that opens devices from d and asks for
// configurations matching spec. A nil logger discards output.
func NewSession(d Driver, spec ConfigSpec, l log.FieldLogger) *Session {
	if l == nil {
		nop := log.New()
		nop.SetLevel(log.PanicLevel)
		l = nop
	}
	return &Session{driver: d, spec: spec, log: l}
}

// Begin connects to the device, chooses a configuration and creates a
// context. Device connection failures wrap ErrDeviceInit; configuration
// and context failures wrap ErrContextCreation. A failed Begin leaves
// nothing held.
func (s *Session) Begin() error {
	if s.dev != nil {
		panic("surface: Begin called on a session with a context")
	}
	dev, err := s.driver.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceInit, err)
	}
	cfg, err := dev.ChooseConfig(s.spec)
	if err != nil {
		dev.Close()
		return fmt.Errorf("%w: choose config: %v", ErrContextCreation, err)
	}
	if err := dev.CreateContext(cfg); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %v", ErrContextCreation, err)
	}
	s.dev = dev
	s.cfg = cfg
	s.epoch++
	s.log.WithFields(log.Fields{"epoch": s.epoch, "config": cfg}).Info("context created")
	return nil
}

// CreateSurface destroys any existing surface and creates a new one for
// win. Failures wrap ErrSurfaceCreation.
func (s *Session) CreateSurface(win Window) error {
	if s.dev == nil {
		return fmt.Errorf("%w: %v", ErrSurfaceCreation, ErrNoContext)
	}
	s.DestroySurface()
	if err := s.dev.CreateSurface(win); err != nil {
		return fmt.Errorf("%w: %v", ErrSurfaceCreation, err)
	}
	s.hasSurface = true
	sz := win.Size()
	s.log.WithFields(log.Fields{"epoch": s.epoch, "width": sz.X, "height": sz.Y}).Debug("surface created")
	return nil
}

// Present swaps the surface buffers. It returns nil on success, an
// error wrapping ErrContextLost if the context was lost, and an error
// wrapping ErrPresent otherwise.
func (s *Session) Present() error {
	if !s.hasSurface {
		return fmt.Errorf("%w: no surface", ErrPresent)
	}
	err := s.dev.SwapBuffers()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrContextLost):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrPresent, err)
	}
}

// DestroySurface destroys the surface, if any, and keeps the context.
func (s *Session) DestroySurface() {
	if !s.hasSurface {
		return
	}
	s.dev.DestroySurface()
	s.hasSurface = false
	s.log.WithField("epoch", s.epoch).Debug("surface destroyed")
}

// End destroys the surface, then the context, then disconnects from the
// device. End is a no-op without a context.
func (s *Session) End() {
	if s.dev == nil {
		return
	}
	s.DestroySurface()
	s.dev.DestroyContext()
	s.dev.Close()
	s.dev = nil
	s.log.WithField("epoch", s.epoch).Info("context destroyed")
}

// Capabilities reports the multi-context capabilities of the device.
func (s *Session) Capabilities() (Capabilities, error) {
	if s.dev == nil {
		return Capabilities{}, ErrNoContext
	}
	return s.dev.Capabilities()
}

// Config returns the configuration of the current context.
func (s *Session) Config() Config {
	return s.cfg
}

// Epoch returns the number of contexts created by the session.
func (s *Session) Epoch() int {
	return s.epoch
}

// HasContext reports whether Begin has succeeded and End has not been
// called since.
func (s *Session) HasContext() bool {
	return s.dev != nil
}

// HasSurface reports whether a surface is bound.
func (s *Session) HasSurface() bool {
	return s.hasSurface
}
