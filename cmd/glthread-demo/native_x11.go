// SPDX-License-Identifier: Unlicense OR MIT

//go:build (linux && !android && !wayland) || freebsd || openbsd

package main

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"gioui.org/glthread/surface/egl"
)

func nativeDisplay() egl.NativeDisplayType {
	return egl.NativeDisplayType(unsafe.Pointer(glfw.GetX11Display()))
}

func nativeWindow(w *glfw.Window) egl.NativeWindowType {
	return egl.NativeWindowType(w.GetX11Window())
}
