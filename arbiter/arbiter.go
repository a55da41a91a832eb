// SPDX-License-Identifier: Unlicense OR MIT

// Package arbiter grants the right to hold a graphics context on devices
// that cannot keep more than one context alive per process.
package arbiter

import (
	"sync"

	"github.com/sirupsen/logrus"

	ilog "gioui.org/glthread/internal/log"
	"gioui.org/glthread/surface"
)

// Owner is a holder of a graphics context, typically a render thread.
//
// The Arbiter never calls an Owner while holding its own lock, and
// always calls it from a fresh goroutine, so implementations may take
// their own locks.
type Owner interface {
	// RequestReleaseContext asks the owner to destroy its context and
	// call Release soon.
	RequestReleaseContext()
	// ContextReleased tells an owner whose TryAcquire failed that the
	// context has been released and a new attempt may succeed.
	ContextReleased()
}

// Prober reports the capabilities of a live device.
type Prober interface {
	Capabilities() (surface.Capabilities, error)
}

// Arbiter tracks which Owner holds the exclusive context. It is safe for
// concurrent use.
type Arbiter struct {
	log *logrus.Entry

	mu      sync.Mutex
	owner   Owner
	waiters []Owner
	// known is set once caps is valid, either from an option or a probe.
	known bool
	caps  surface.Capabilities
}

// Option configures an Arbiter.
type Option func(a *Arbiter)

var (
	defaultOnce sync.Once
	defaultArb  *Arbiter
)

// SingleContext declares that the device supports one context at a time.
// Owners release their context when paused. The device is not probed.
func SingleContext() Option {
	return func(a *Arbiter) {
		a.setFixed(surface.Capabilities{ReleaseOnPause: true})
	}
}

// MultipleContexts declares that the device supports any number of
// concurrent contexts. The device is not probed.
func MultipleContexts() Option {
	return func(a *Arbiter) {
		a.setFixed(surface.Capabilities{MultipleContexts: true})
	}
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Entry) Option {
	return func(a *Arbiter) {
		a.log = l
	}
}

// New returns an Arbiter. Without SingleContext or MultipleContexts it
// treats the device as single-context until the first Probe.
func New(opts ...Option) *Arbiter {
	a := &Arbiter{log: ilog.New("arbiter")}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Default returns the Arbiter shared by every caller that does not
// provide its own.
func Default() *Arbiter {
	defaultOnce.Do(func() {
		defaultArb = New()
	})
	return defaultArb
}

func (a *Arbiter) setFixed(c surface.Capabilities) {
	a.caps = c
	a.known = true
}

// TryAcquire attempts to make o the owner of the context without
// blocking. It succeeds if nobody owns the context, if o already owns it,
// or if the device supports multiple contexts. Otherwise the current
// owner is asked to release its context and o is told through
// ContextReleased when it did.
func (a *Arbiter) TryAcquire(o Owner) bool {
	a.mu.Lock()
	if a.owner == nil || a.owner == o {
		a.owner = o
		a.mu.Unlock()
		return true
	}
	if a.known && a.caps.MultipleContexts {
		a.mu.Unlock()
		return true
	}
	owner := a.owner
	a.addWaiter(o)
	a.mu.Unlock()
	a.log.Debug("context busy, asking owner to release")
	go owner.RequestReleaseContext()
	return false
}

func (a *Arbiter) addWaiter(o Owner) {
	for _, w := range a.waiters {
		if w == o {
			return
		}
	}
	a.waiters = append(a.waiters, o)
}

// Release gives up ownership held by o and wakes the owners waiting for
// the context. It is a no-op if o is not the owner, apart from dropping
// o from the waiters.
func (a *Arbiter) Release(o Owner) {
	a.mu.Lock()
	a.removeWaiter(o)
	if a.owner != o {
		a.mu.Unlock()
		return
	}
	a.owner = nil
	waiters := a.waiters
	a.waiters = nil
	a.mu.Unlock()
	for _, w := range waiters {
		go w.ContextReleased()
	}
}

func (a *Arbiter) removeWaiter(o Owner) {
	for i, w := range a.waiters {
		if w == o {
			a.waiters = append(a.waiters[:i], a.waiters[i+1:]...)
			return
		}
	}
}

// Probe determines the device capabilities from p the first time it is
// called; later calls are no-ops. A failing probe is taken to mean the
// device supports one context at a time.
func (a *Arbiter) Probe(p Prober) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.known {
		return
	}
	caps, err := p.Capabilities()
	if err != nil {
		a.log.WithError(err).Warn("capability probe failed, assuming a single context")
		caps = surface.Capabilities{ReleaseOnPause: true}
	}
	a.caps = caps
	a.known = true
	a.log.WithFields(logrus.Fields{
		"multiple_contexts": caps.MultipleContexts,
		"release_on_pause":  caps.ReleaseOnPause,
	}).Info("device capabilities")
}

// Probed reports whether the capabilities are known.
func (a *Arbiter) Probed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.known
}

// ReleaseOnPause reports whether paused owners must release their
// context.
func (a *Arbiter) ReleaseOnPause() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.known && a.caps.ReleaseOnPause
}

// MultipleContexts reports whether the device is known to support
// concurrent contexts.
func (a *Arbiter) MultipleContexts() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.known && a.caps.MultipleContexts
}

// Owner returns the current owner, or nil.
func (a *Arbiter) Owner() Owner {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owner
}
