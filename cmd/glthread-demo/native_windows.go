// SPDX-License-Identifier: Unlicense OR MIT

package main

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"gioui.org/glthread/surface/egl"
)

func nativeDisplay() egl.NativeDisplayType {
	return egl.DefaultDisplay
}

func nativeWindow(w *glfw.Window) egl.NativeWindowType {
	return egl.NativeWindowType(unsafe.Pointer(w.GetWin32Window()))
}
