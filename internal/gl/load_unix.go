// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux || freebsd || openbsd

package gl

// Load is a no-op; libGLESv2 is linked at build time.
func Load() error {
	return nil
}
