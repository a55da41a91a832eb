// SPDX-License-Identifier: Unlicense OR MIT

package surface

// Driver opens connections to a display device. A Driver is shared by
// every Session using the same backend.
type Driver interface {
	// Open connects to the device.
	Open() (Device, error)
}

// Device is one connection to a display device. It holds at most one
// context and at most one window surface, and its methods are only
// called from the goroutine that owns the Session.
type Device interface {
	// ChooseConfig selects a configuration satisfying spec.
	ChooseConfig(spec ConfigSpec) (Config, error)
	// CreateContext creates the context for cfg.
	CreateContext(cfg Config) error
	// DestroyContext destroys the context. The surface, if any, has
	// already been destroyed.
	DestroyContext()
	// CreateSurface creates a window surface for win and makes it current
	// together with the context.
	CreateSurface(win Window) error
	// DestroySurface releases the current binding and destroys the
	// surface.
	DestroySurface()
	// SwapBuffers presents the back buffer. It returns an error wrapping
	// ErrContextLost if the context was lost.
	SwapBuffers() error
	// Capabilities reports the multi-context capabilities of the device.
	Capabilities() (Capabilities, error)
	// Close disconnects from the device.
	Close()
}
