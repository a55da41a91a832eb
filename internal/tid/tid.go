// SPDX-License-Identifier: Unlicense OR MIT

// Package tid reports operating system thread ids. Goroutines locked to
// their thread with runtime.LockOSThread keep a stable id.
package tid
