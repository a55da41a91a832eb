// SPDX-License-Identifier: Unlicense OR MIT

//go:build linux || android

package tid

import "golang.org/x/sys/unix"

// Current returns the id of the calling thread.
func Current() int {
	return unix.Gettid()
}
