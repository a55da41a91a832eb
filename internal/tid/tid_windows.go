// SPDX-License-Identifier: Unlicense OR MIT

package tid

import "golang.org/x/sys/windows"

// Current returns the id of the calling thread.
func Current() int {
	return int(windows.GetCurrentThreadId())
}
