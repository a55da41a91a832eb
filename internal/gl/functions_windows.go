// SPDX-License-Identifier: Unlicense OR MIT

package gl

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	syscall "golang.org/x/sys/windows"
)

var (
	libGLESv2     = syscall.DLL{}
	_glClear      *syscall.Proc
	_glClearColor *syscall.Proc
	_glFinish     *syscall.Proc
	_glGetString  *syscall.Proc
	_glViewport   *syscall.Proc

	loadOnce sync.Once
	loadErr  error
)

// Load loads the OpenGL ES library. It must succeed before any Functions
// method is called.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadDLL()
	})
	return loadErr
}

func loadDLL() error {
	handle, err := syscall.LoadLibraryEx("libGLESv2.dll", 0, syscall.LOAD_LIBRARY_SEARCH_DEFAULT_DIRS)
	if err != nil {
		return fmt.Errorf("gl: failed to load libGLESv2.dll: %v", err)
	}
	libGLESv2.Handle = handle
	libGLESv2.Name = "libGLESv2.dll"
	procs := map[string]**syscall.Proc{
		"glClear":      &_glClear,
		"glClearColor": &_glClearColor,
		"glFinish":     &_glFinish,
		"glGetString":  &_glGetString,
		"glViewport":   &_glViewport,
	}
	for name, proc := range procs {
		p, err := libGLESv2.FindProc(name)
		if err != nil {
			return fmt.Errorf("failed to locate %s in %s: %w", name, libGLESv2.Name, err)
		}
		*proc = p
	}
	return nil
}

func (f *Functions) Clear(mask Enum) {
	_glClear.Call(uintptr(mask))
}

func (f *Functions) ClearColor(red, green, blue, alpha float32) {
	_glClearColor.Call(uintptr(math.Float32bits(red)), uintptr(math.Float32bits(green)), uintptr(math.Float32bits(blue)), uintptr(math.Float32bits(alpha)))
}

func (f *Functions) Finish() {
	_glFinish.Call()
}

func (f *Functions) GetString(pname Enum) string {
	s, _, _ := _glGetString.Call(uintptr(pname))
	return syscall.BytePtrToString((*byte)(unsafe.Pointer(s)))
}

func (f *Functions) Viewport(x, y, width, height int) {
	_glViewport.Call(uintptr(x), uintptr(y), uintptr(width), uintptr(height))
}
