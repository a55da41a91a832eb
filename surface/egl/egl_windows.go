// SPDX-License-Identifier: Unlicense OR MIT

package egl

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

type (
	_EGLint           int32
	_EGLDisplay       uintptr
	_EGLConfig        uintptr
	_EGLContext       uintptr
	_EGLSurface       uintptr
	NativeDisplayType uintptr
	NativeWindowType  uintptr
)

// DefaultDisplay selects the platform's default native display.
var DefaultDisplay NativeDisplayType

// Entry points of libEGL.dll, indexing procs.
const (
	procChooseConfig = iota
	procCreateContext
	procCreateWindowSurface
	procDestroyContext
	procDestroySurface
	procGetConfigAttrib
	procGetDisplay
	procGetError
	procInitialize
	procMakeCurrent
	procQueryString
	procReleaseThread
	procSwapBuffers
	procSwapInterval
	procTerminate
	numProcs
)

var procNames = [numProcs]string{
	procChooseConfig:        "eglChooseConfig",
	procCreateContext:       "eglCreateContext",
	procCreateWindowSurface: "eglCreateWindowSurface",
	procDestroyContext:      "eglDestroyContext",
	procDestroySurface:      "eglDestroySurface",
	procGetConfigAttrib:     "eglGetConfigAttrib",
	procGetDisplay:          "eglGetDisplay",
	procGetError:            "eglGetError",
	procInitialize:          "eglInitialize",
	procMakeCurrent:         "eglMakeCurrent",
	procQueryString:         "eglQueryString",
	procReleaseThread:       "eglReleaseThread",
	procSwapBuffers:         "eglSwapBuffers",
	procSwapInterval:        "eglSwapInterval",
	procTerminate:           "eglTerminate",
}

var (
	procs    [numProcs]*windows.Proc
	loadOnce sync.Once
	loadErr  error
)

// loadEGL resolves the EGL entry points from libEGL.dll, usually ANGLE.
func loadEGL() error {
	loadOnce.Do(func() {
		loadErr = resolveProcs()
	})
	return loadErr
}

func resolveProcs() error {
	const name = "libEGL.dll"
	h, err := windows.LoadLibraryEx(name, 0, windows.LOAD_LIBRARY_SEARCH_DEFAULT_DIRS)
	if err != nil {
		return fmt.Errorf("egl: failed to load %s: %v", name, err)
	}
	dll := &windows.DLL{Name: name, Handle: h}
	for i, fn := range procNames {
		p, err := dll.FindProc(fn)
		if err != nil {
			return fmt.Errorf("egl: %s: %w", name, err)
		}
		procs[i] = p
	}
	return nil
}

func eglChooseConfig(disp _EGLDisplay, attribs []_EGLint) (_EGLConfig, bool) {
	var cfg _EGLConfig
	var n _EGLint
	ok, _, _ := procs[procChooseConfig].Call(uintptr(disp), uintptr(unsafe.Pointer(&attribs[0])), uintptr(unsafe.Pointer(&cfg)), 1, uintptr(unsafe.Pointer(&n)))
	runtime.KeepAlive(attribs)
	return cfg, ok != 0
}

func eglCreateContext(disp _EGLDisplay, cfg _EGLConfig, share _EGLContext, attribs []_EGLint) _EGLContext {
	ctx, _, _ := procs[procCreateContext].Call(uintptr(disp), uintptr(cfg), uintptr(share), uintptr(unsafe.Pointer(&attribs[0])))
	runtime.KeepAlive(attribs)
	return _EGLContext(ctx)
}

func eglCreateWindowSurface(disp _EGLDisplay, cfg _EGLConfig, win NativeWindowType, attribs []_EGLint) _EGLSurface {
	surf, _, _ := procs[procCreateWindowSurface].Call(uintptr(disp), uintptr(cfg), uintptr(win), uintptr(unsafe.Pointer(&attribs[0])))
	runtime.KeepAlive(attribs)
	return _EGLSurface(surf)
}

func eglDestroySurface(disp _EGLDisplay, surf _EGLSurface) bool {
	return callBool(procDestroySurface, uintptr(disp), uintptr(surf))
}

func eglDestroyContext(disp _EGLDisplay, ctx _EGLContext) bool {
	return callBool(procDestroyContext, uintptr(disp), uintptr(ctx))
}

func eglGetConfigAttrib(disp _EGLDisplay, cfg _EGLConfig, attr _EGLint) (_EGLint, bool) {
	var v _EGLint
	ok, _, _ := procs[procGetConfigAttrib].Call(uintptr(disp), uintptr(cfg), uintptr(attr), uintptr(unsafe.Pointer(&v)))
	return v, ok != 0
}

func eglGetDisplay(disp NativeDisplayType) _EGLDisplay {
	d, _, _ := procs[procGetDisplay].Call(uintptr(disp))
	return _EGLDisplay(d)
}

func eglGetError() _EGLint {
	code, _, _ := procs[procGetError].Call()
	return _EGLint(code)
}

func eglInitialize(disp _EGLDisplay) (_EGLint, _EGLint, bool) {
	var major, minor _EGLint
	ok, _, _ := procs[procInitialize].Call(uintptr(disp), uintptr(unsafe.Pointer(&major)), uintptr(unsafe.Pointer(&minor)))
	return major, minor, ok != 0
}

func eglMakeCurrent(disp _EGLDisplay, draw, read _EGLSurface, ctx _EGLContext) bool {
	return callBool(procMakeCurrent, uintptr(disp), uintptr(draw), uintptr(read), uintptr(ctx))
}

func eglReleaseThread() bool {
	return callBool(procReleaseThread)
}

func eglSwapInterval(disp _EGLDisplay, interval _EGLint) bool {
	return callBool(procSwapInterval, uintptr(disp), uintptr(interval))
}

func eglSwapBuffers(disp _EGLDisplay, surf _EGLSurface) bool {
	return callBool(procSwapBuffers, uintptr(disp), uintptr(surf))
}

func eglTerminate(disp _EGLDisplay) bool {
	return callBool(procTerminate, uintptr(disp))
}

func eglQueryString(disp _EGLDisplay, name _EGLint) string {
	s, _, _ := procs[procQueryString].Call(uintptr(disp), uintptr(name))
	return windows.BytePtrToString((*byte)(unsafe.Pointer(s)))
}

// callBool calls an entry point that takes no pointers and returns an
// EGLBoolean.
func callBool(p int, args ...uintptr) bool {
	r, _, _ := procs[p].Call(args...)
	return r != 0
}
