// SPDX-License-Identifier: Unlicense OR MIT

//go:build !linux && !android && !windows

package tid

// Current returns 0; thread ids are not available on this platform.
func Current() int {
	return 0
}
