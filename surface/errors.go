// SPDX-License-Identifier: Unlicense OR MIT

package surface

import "errors"

var (
	// ErrDeviceInit is returned by Session.Begin when the display device
	// cannot be initialized. A render thread stops on this error.
	ErrDeviceInit = errors.New("surface: device initialization failed")
	// ErrContextCreation is returned by Session.Begin when no context
	// could be created on an initialized device. The attempt may be
	// repeated.
	ErrContextCreation = errors.New("surface: context creation failed")
	// ErrSurfaceCreation is returned when a window surface could not be
	// created. The window is usually no longer valid.
	ErrSurfaceCreation = errors.New("surface: window surface creation failed")
	// ErrContextLost is returned by Present when the context and all its
	// resources were lost and must be recreated.
	ErrContextLost = errors.New("surface: context lost")
	// ErrPresent is returned by Present for all other failures.
	ErrPresent = errors.New("surface: present failed")
	// ErrNoContext is returned when an operation needs a context and
	// Begin has not succeeded.
	ErrNoContext = errors.New("surface: no context")
)
