// SPDX-License-Identifier: Unlicense OR MIT

package thread

import (
	"time"

	"github.com/sirupsen/logrus"

	"gioui.org/glthread/surface"
)

// Option configures a Thread.
type Option func(c *config)

type config struct {
	mode       RenderMode
	preserve   bool
	spec       surface.ConfigSpec
	retryDelay time.Duration
	log        logrus.FieldLogger
	name       string
}

const defaultRetryDelay = 100 * time.Millisecond

// WithRenderMode sets the initial render mode. The default is
// Continuous.
func WithRenderMode(m RenderMode) Option {
	if !m.valid() {
		panic("thread: invalid render mode")
	}
	return func(c *config) {
		c.mode = m
	}
}

// PreserveContextOnPause keeps the context alive while paused, unless
// the device requires paused threads to release it.
func PreserveContextOnPause(preserve bool) Option {
	return func(c *config) {
		c.preserve = preserve
	}
}

// WithConfigSpec sets the minimum framebuffer configuration. The
// default is surface.DefaultConfigSpec.
func WithConfigSpec(spec surface.ConfigSpec) Option {
	return func(c *config) {
		c.spec = spec
	}
}

// WithRetryDelay sets how long the thread waits before retrying a
// failed context creation.
func WithRetryDelay(d time.Duration) Option {
	return func(c *config) {
		c.retryDelay = d
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithName names the thread in log output.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// RenderModeOf returns the initial render mode selected by opts.
func RenderModeOf(opts ...Option) RenderMode {
	c := config{mode: Continuous}
	for _, o := range opts {
		o(&c)
	}
	return c.mode
}
